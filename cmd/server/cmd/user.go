package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/counselcms/server/internal/api"
	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/spf13/cobra"
)

// passwordEnv lets scripts pass a password without putting it in argv.
const passwordEnv = "COUNSEL_USER_PASSWORD"

// cliActor is the audit actor for changes made from this binary.
const cliActor = "cli"

var (
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage admin console users",
		Long: `Manage the accounts that can sign in to the admin console.

Passwords are read from --password, then the COUNSEL_USER_PASSWORD
environment variable, then the first line of stdin.`,
	}

	userCreateCmd = &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Long: `Create an admin console user.

Examples:
  # Create an editor, reading the password from stdin
  echo 's3cret-passphrase' | server user create jdoe --email jdoe@example.com --role editor`,
		Args: cobra.ExactArgs(1),
		RunE: runUserCreate,
	}

	userPasswdCmd = &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserPasswd,
	}

	userListCmd = &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE:  runUserList,
	}

	userTokenCmd = &cobra.Command{
		Use:   "token <username>",
		Short: "Print a bearer token for a user",
		Long: `Print a signed JWT for an existing user, for scripting the admin API.

The token carries the user's current role and expires after JWT_EXPIRY_HOURS.`,
		Args: cobra.ExactArgs(1),
		RunE: runUserToken,
	}

	userEmail    string
	userRole     string
	userPassword string
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userPasswdCmd, userListCmd, userTokenCmd)

	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(auth.RoleEditor), "role (admin, editor, viewer)")
	for _, c := range []*cobra.Command{userCreateCmd, userPasswdCmd} {
		c.Flags().StringVar(&userPassword, "password", "", "password (prefer "+passwordEnv+" or stdin)")
	}
}

// readPassword resolves the password from the flag, the environment or the
// first line of in.
func readPassword(in io.Reader) (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password is required (--password, %s or stdin)", passwordEnv)
	}
	return pw, nil
}

// withUsers opens the database and hands fn a user service.
func withUsers(cmd *cobra.Command, fn func(ctx context.Context, service *users.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := commandLogger(cmd, cfg.Logging)
	ctx := cmd.Context()
	pool, repo, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	service := users.NewService(repo.Repositories().Users, audit.NewLogger(logger), logger)
	return fn(ctx, service)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if !auth.ValidRole(userRole) {
		return fmt.Errorf("invalid role %q (want admin, editor or viewer)", userRole)
	}
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	return withUsers(cmd, func(ctx context.Context, service *users.Service) error {
		user, err := service.Create(ctx, users.CreateUserParams{
			Username: args[0],
			Email:    userEmail,
			Password: password,
			Role:     userRole,
		}, cliActor)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)\n", user.Role, user.Username, user.ID)
		return nil
	})
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	return withUsers(cmd, func(ctx context.Context, service *users.Service) error {
		if err := service.ChangePasswordByUsername(ctx, args[0], password, cliActor); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", args[0])
		return nil
	})
}

func runUserList(cmd *cobra.Command, args []string) error {
	return withUsers(cmd, func(ctx context.Context, service *users.Service) error {
		list, err := service.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tROLE\tEMAIL\tLAST LOGIN")
		for _, u := range list {
			lastLogin := "never"
			if u.LastLoginAt != nil {
				lastLogin = u.LastLoginAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Role, u.Email, lastLogin)
		}
		return w.Flush()
	})
}

func runUserToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	ctx := cmd.Context()
	pool, repo, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := repo.Repositories().Users.GetByUsername(ctx, args[0])
	if err != nil {
		return fmt.Errorf("user %q: %w", args[0], err)
	}
	manager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, api.JWTIssuer)
	token, err := manager.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
