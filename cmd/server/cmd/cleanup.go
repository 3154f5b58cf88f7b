package cmd

import (
	"fmt"
	"time"

	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove data past its retention period",
	Long: `Remove stored data that is past its retention period.

The retention worker does this daily while the server runs with background
jobs enabled. This command runs the same purge on demand, for example from
cron when JOBS_ENABLED=false.`,
}

var cleanupApplicantsCmd = &cobra.Command{
	Use:   "applicants",
	Short: "Delete job applicants older than the retention period",
	Long: `Delete job applicants older than the retention period, together with
their uploaded resumes.

Examples:
  # Use APPLICANT_RETENTION_DAYS (default 365)
  server cleanup applicants

  # Keep only the last 90 days
  server cleanup applicants --days 90`,
	Args: cobra.NoArgs,
	RunE: runCleanupApplicants,
}

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupApplicantsCmd)

	cleanupApplicantsCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention in days (default: APPLICANT_RETENTION_DAYS)")
}

func runCleanupApplicants(cmd *cobra.Command, args []string) error {
	if cleanupDays < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := commandLogger(cmd, cfg.Logging)

	days := cfg.Jobs.ApplicantRetentionDays
	if cleanupDays > 0 {
		days = cleanupDays
	}
	if days <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Applicant retention is disabled; nothing to do.")
		return nil
	}

	ctx := cmd.Context()
	pool, repo, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := files.New(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}
	service := careers.NewService(repo.Repositories().Careers, store, nil)
	removed, err := service.PurgeApplicants(logger.WithContext(ctx), time.Duration(days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("purge applicants: %w", err)
	}
	logger.Info().Int("removed", removed).Int("retention_days", days).Msg("applicant purge finished")
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d applicants older than %d days.\n", removed, days)
	return nil
}
