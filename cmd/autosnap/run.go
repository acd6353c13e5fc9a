package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/younsl/autosnap/internal/config"
	"github.com/younsl/autosnap/internal/logger"
	"github.com/younsl/autosnap/internal/models"
	"github.com/younsl/autosnap/pkg/formatter"
)

type runFlags struct {
	date  string
	quiet bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one snapshot pass over every region and exit",
		Long: `Run creates the snapshots scheduled for today, deletes expired snapshots
and copies completed snapshots to their destination regions. The exit code
is non-zero when any region or action failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cmd.OutOrStdout(), cfg, cfg.DryRun, flags)
		},
	}

	cmd.Flags().BoolVar(&root.dryRun, "dry-run", false, "Only report what would be done")
	cmd.Flags().StringVar(&flags.date, "date", "", "Run as if today were this date (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print the result tables")
	return cmd
}

func newPlanCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would do, without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cmd.OutOrStdout(), cfg, true, flags)
		},
	}

	cmd.Flags().StringVar(&flags.date, "date", "", "Plan as if today were this date (YYYY-MM-DD)")
	return cmd
}

// startRunSpinner starts a spinner on stderr, shown only on a terminal
func startRunSpinner(dryRun bool) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
	if dryRun {
		s.Suffix = " Planning snapshots ..."
	} else {
		s.Suffix = " Processing snapshots ..."
	}
	s.Start()
	return s
}

// execute performs one pass and prints its report
func execute(ctx context.Context, out io.Writer, cfg config.Config, dryRun bool, flags *runFlags) error {
	day, err := today(flags.date)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync(a.logger)

	r, err := a.newRunner(ctx, dryRun)
	if err != nil {
		return err
	}

	s := startRunSpinner(dryRun)
	report, runErr := r.Run(ctx, day)
	s.FinalMSG = fmt.Sprintf("✓ [%d actions] Snapshot run completed in %.2f seconds\n",
		len(report.Actions), report.Duration.Seconds())
	s.Stop()

	if !flags.quiet {
		printReport(out, report)
		formatter.PrintPricingAPIStats(out, a.pricing.GetAPIStats())
	}
	return runErr
}

func printReport(out io.Writer, report models.RunReport) {
	if report.DryRun {
		fmt.Fprintln(out, "## Planned Snapshot Actions (dry run)")
	} else {
		fmt.Fprintln(out, "## Snapshot Actions")
	}
	formatter.PrintActionsTable(out, report, time.Now())
	formatter.PrintRegionSummary(out, report)
}
