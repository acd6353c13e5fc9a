package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/younsl/autosnap/internal/config"
	"github.com/younsl/autosnap/internal/logger"
	"github.com/younsl/autosnap/pkg/policy"
	"go.uber.org/zap"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run snapshot passes on a cron schedule until interrupted",
		Long: `Serve keeps running and starts a snapshot pass on every tick of the
configured cron schedule (default "0 3 * * *", UTC). A tick is skipped while
the previous pass is still running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, runOnStart)
		},
	}

	cmd.Flags().BoolVar(&root.dryRun, "dry-run", false, "Only report what would be done")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run one pass immediately after starting")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, runOnStart bool) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer logger.Sync(a.logger)

	pass := func() {
		passCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		r, err := a.newRunner(passCtx, cfg.DryRun)
		if err != nil {
			a.logger.Error("failed to prepare snapshot run", zap.Error(err))
			return
		}
		if _, err := r.Run(passCtx, policy.Day(time.Now().UTC())); err != nil {
			a.logger.Error("snapshot run finished with errors", zap.Error(err))
		}
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(a.logger.Named("cron")))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(cfg.Schedule, pass); err != nil {
		return err
	}

	a.logger.Info("snapshot scheduler started",
		zap.String("schedule", cfg.Schedule),
		zap.Bool("dry_run", cfg.DryRun))

	c.Start()
	if runOnStart {
		for _, entry := range c.Entries() {
			go entry.WrappedJob.Run()
		}
	}

	<-ctx.Done()
	a.logger.Info("shutting down, waiting for the running pass to finish")
	<-c.Stop().Done()
	return nil
}
