package main

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/younsl/autosnap/internal/config"
	"github.com/younsl/autosnap/internal/logger"
	"github.com/younsl/autosnap/internal/runner"
	"github.com/younsl/autosnap/pkg/aws"
	"github.com/younsl/autosnap/pkg/policy"
	"github.com/younsl/autosnap/pkg/pricing"
	"go.uber.org/zap"
)

// app holds what lives for the whole process: configuration, logger, AWS
// clients and the pricing cache
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	account *aws.Account
	pricing *pricing.Client
	sinks   []runner.ReportSink
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	homeRegion := cfg.HomeRegion
	if homeRegion == "" {
		homeRegion = aws.ResolveHomeRegion(ctx, "", aws.NewMetadataClient())
	}
	log.Debug("resolved home region", zap.String("aws_region", homeRegion))

	a := &app{
		cfg:     cfg,
		logger:  log,
		account: aws.NewAccount(homeRegion),
	}

	pricingClient, err := pricing.NewClient(ctx, log)
	if err != nil {
		log.Warn("pricing API unavailable, using default snapshot prices", zap.Error(err))
		pricingClient = pricing.NewClientFromAPI(nil, log)
	}
	a.pricing = pricingClient

	if cfg.MetricsNamespace != "" {
		publisher, err := aws.NewMetricsPublisher(ctx, homeRegion, cfg.MetricsNamespace)
		if err != nil {
			return nil, err
		}
		a.sinks = append(a.sinks, publisher)
	}
	if cfg.ReportBucket != "" {
		uploader, err := aws.NewReportUploader(ctx, homeRegion, cfg.ReportBucket, cfg.ReportPrefix)
		if err != nil {
			return nil, err
		}
		a.sinks = append(a.sinks, uploader)
	}

	return a, nil
}

// regions returns the configured regions, or every region enabled for the
// account
func (a *app) regions(ctx context.Context) ([]string, error) {
	if len(a.cfg.Regions) > 0 {
		return lo.Uniq(a.cfg.Regions), nil
	}
	regions, err := a.account.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing regions: %w", err)
	}
	return regions, nil
}

// newRunner builds a runner for one pass. The region set is resolved per
// pass so a long running daemon picks up newly enabled regions.
func (a *app) newRunner(ctx context.Context, dryRun bool) (*runner.Runner, error) {
	regions, err := a.regions(ctx)
	if err != nil {
		return nil, err
	}

	codec := policy.NewCodec(a.cfg.TagKey, a.cfg.DefaultRetentionDays, policy.NewRegionSet(regions))
	r := runner.New(runner.AccountCloud(a.account), codec, a.logger, runner.Options{
		Regions:     regions,
		Concurrency: a.cfg.Concurrency,
		DryRun:      dryRun,
	})

	r.WithCostEstimator(a.pricing.Estimator(ctx))
	if !dryRun {
		r.WithSinks(a.sinks...)
	}
	return r, nil
}

// today returns the run date: the --date flag when set, else the current
// UTC date
func today(date string) (time.Time, error) {
	if date == "" {
		return policy.Day(time.Now().UTC()), nil
	}
	t, err := time.Parse(policy.ExpirationLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}
	return t, nil
}
