package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/counselcms/server/internal/patches"
	"github.com/spf13/cobra"
)

var (
	patchCmd = &cobra.Command{
		Use:   "patch",
		Short: "List and run one-shot data patches",
		Long: `Data patches fix stored content in place. Each patch runs in a single
transaction and is recorded, so it applies at most once per database.`,
	}

	patchListCmd = &cobra.Command{
		Use:   "list",
		Short: "List available patches and when they were applied",
		Args:  cobra.NoArgs,
		RunE:  runPatchList,
	}

	patchRunCmd = &cobra.Command{
		Use:   "run <name>",
		Short: "Apply a patch",
		Long: `Apply a named patch.

Examples:
  # Preview a patch; the transaction is rolled back
  server patch run normalize-slugs --dry-run

  # Retag legacy BANNER sections as HERO
  server patch run rename-section-type --from BANNER --to HERO`,
		Args: cobra.ExactArgs(1),
		RunE: runPatchRun,
	}

	patchDryRun bool
	patchFrom   string
	patchTo     string
)

func init() {
	rootCmd.AddCommand(patchCmd)
	patchCmd.AddCommand(patchListCmd, patchRunCmd)

	patchRunCmd.Flags().BoolVar(&patchDryRun, "dry-run", false, "run the patch and roll back")
	patchRunCmd.Flags().StringVar(&patchFrom, "from", "", "source value for patches that take one")
	patchRunCmd.Flags().StringVar(&patchTo, "to", "", "target value for patches that take one")
}

func runPatchList(cmd *cobra.Command, args []string) error {
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

	statuses, err := patches.List(ctx, repo.Repositories().Patches)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAPPLIED\tDESCRIPTION")
	for _, st := range statuses {
		applied := "-"
		if n := len(st.Applied); n > 0 {
			last := st.Applied[n-1]
			applied = last.At.Format("2006-01-02 15:04")
			if n > 1 {
				applied = fmt.Sprintf("%s (%d runs)", applied, n)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.Patch.Name, applied, st.Patch.Description)
	}
	return w.Flush()
}

func runPatchRun(cmd *cobra.Command, args []string) error {
	// Fail on a bad name before touching the database.
	if _, err := patches.Lookup(args[0]); err != nil {
		return err
	}
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

	res, err := patches.Run(ctx, repo, args[0], patches.Options{From: patchFrom, To: patchTo}, patchDryRun, logger)
	if errors.Is(err, patches.ErrAlreadyApplied) {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	prefix := "Applied"
	if res.DryRun {
		prefix = "Dry run (rolled back)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", prefix, res.Key, res.Summary)
	return nil
}
