package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// newRootCommand creates a fresh root command for testing. Each subcommand
// is cloned so flag state never leaks between tests; serve is replaced by a
// stub that does not start the server.
func newRootCommand() *cobra.Command {
	testRootCmd := &cobra.Command{
		Use:           rootCmd.Use,
		Short:         rootCmd.Short,
		Long:          rootCmd.Long,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	copyFlags(testRootCmd.PersistentFlags(), rootCmd.PersistentFlags())

	for _, sub := range rootCmd.Commands() {
		if sub == serveCmd {
			continue
		}
		testRootCmd.AddCommand(cloneCommand(sub))
	}
	testRootCmd.AddCommand(newServeCommand())
	return testRootCmd
}

// cloneCommand copies src and its children into new commands. The copied
// flags stay bound to the package variables, which are reset to defaults.
func cloneCommand(src *cobra.Command) *cobra.Command {
	dst := &cobra.Command{
		Use:   src.Use,
		Short: src.Short,
		Long:  src.Long,
		Args:  src.Args,
		RunE:  src.RunE,
	}
	copyFlags(dst.Flags(), src.LocalNonPersistentFlags())
	copyFlags(dst.PersistentFlags(), src.PersistentFlags())
	for _, child := range src.Commands() {
		dst.AddCommand(cloneCommand(child))
	}
	return dst
}

func copyFlags(dst, src *pflag.FlagSet) {
	src.VisitAll(func(f *pflag.Flag) {
		clone := *f
		clone.Changed = false
		_ = clone.Value.Set(clone.DefValue)
		dst.AddFlag(&clone)
	})
}

// newServeCommand mirrors serveCmd's flags without starting the server.
func newServeCommand() *cobra.Command {
	var host string
	var port int
	stub := &cobra.Command{
		Use:   serveCmd.Use,
		Short: serveCmd.Short,
		Long:  serveCmd.Long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	stub.Flags().StringVar(&host, "host", "", "server host address (default: 0.0.0.0)")
	stub.Flags().IntVar(&port, "port", 0, "server port (default: 8080)")
	return stub
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectedError  string
	}{
		{
			name:           "help flag",
			args:           []string{"--help"},
			expectedOutput: "Counsel CMS serves a law firm's public website",
		},
		{
			name:           "short help flag",
			args:           []string{"-h"},
			expectedOutput: "seeds\ncontent from YAML",
		},
		{
			name:          "invalid flag",
			args:          []string{"--invalid-flag"},
			expectedError: "unknown flag: --invalid-flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)
			if tt.expectedError != "" {
				require.ErrorContains(t, err, tt.expectedError)
				require.NotContains(t, output, "Error:")
				return
			}
			require.NoError(t, err)
			require.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestNewRootCommandLeavesPackageTreeIntact(t *testing.T) {
	_ = newRootCommand()
	_ = newRootCommand()
	for _, sub := range []*cobra.Command{versionCmd, healthcheckCmd, migrateCmd, seedCmd, patchCmd, userCmd, cleanupCmd} {
		require.Same(t, rootCmd, sub.Parent(), "subcommand %q", sub.Name())
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	for _, flag := range []string{"log-level", "log-format"} {
		require.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "persistent flag %q", flag)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	registered := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		registered[sub.Name()] = true
	}
	for _, name := range []string{"serve", "version", "healthcheck", "migrate", "seed", "patch", "user", "cleanup"} {
		require.True(t, registered[name], "expected subcommand %q", name)
	}
}
