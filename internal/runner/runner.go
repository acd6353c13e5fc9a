// Package runner executes one scheduling pass over every configured region:
// it creates the snapshots volume policies ask for, deletes expired
// snapshots and replicates completed snapshots to their copy destinations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/younsl/autosnap/internal/logger"
	"github.com/younsl/autosnap/internal/models"
	"github.com/younsl/autosnap/pkg/aws"
	"github.com/younsl/autosnap/pkg/policy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RegionClient is the per-region EC2 surface the runner needs
type RegionClient interface {
	ListPolicyVolumes(ctx context.Context, tagKey string) ([]models.VolumeInfo, error)
	ListManagedSnapshots(ctx context.Context, tagKeys []string) ([]models.SnapshotInfo, error)
	CreateSnapshot(ctx context.Context, in models.CreateSnapshotInput) (string, error)
	DeleteSnapshot(ctx context.Context, snapshotID string) error
	CopySnapshot(ctx context.Context, in models.CopySnapshotInput) (string, error)
}

// Cloud hands out region clients
type Cloud interface {
	Region(ctx context.Context, region string) (RegionClient, error)
}

// CloudFunc adapts a function to Cloud
type CloudFunc func(ctx context.Context, region string) (RegionClient, error)

// Region calls f
func (f CloudFunc) Region(ctx context.Context, region string) (RegionClient, error) {
	return f(ctx, region)
}

// AccountCloud exposes an aws.Account as a Cloud
func AccountCloud(account *aws.Account) Cloud {
	return CloudFunc(func(ctx context.Context, region string) (RegionClient, error) {
		client, err := account.Region(ctx, region)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// ReportSink receives the report at the end of a run
type ReportSink interface {
	Name() string
	Publish(ctx context.Context, report models.RunReport) error
}

// CostEstimator returns the estimated monthly storage cost of a snapshot of
// a sizeGB volume in region, and where the price came from
type CostEstimator func(region string, sizeGB int) (float64, string)

// Options controls a Runner
type Options struct {
	// Regions processed by the run, also the only valid copy destinations
	Regions     []string
	Concurrency int
	DryRun      bool
}

// Runner coordinates the policy core with the EC2 API
type Runner struct {
	cloud    Cloud
	codec    *policy.Codec
	planner  *policy.Planner
	logger   *zap.Logger
	opts     Options
	sinks    []ReportSink
	estimate CostEstimator
	now      func() time.Time
}

// New creates a Runner
func New(cloud Cloud, codec *policy.Codec, log *zap.Logger, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cloud:   cloud,
		codec:   codec,
		planner: policy.NewPlanner(codec),
		logger:  log,
		opts:    opts,
		now:     time.Now,
	}
}

// WithSinks adds report sinks, called in order after every run
func (r *Runner) WithSinks(sinks ...ReportSink) *Runner {
	r.sinks = append(r.sinks, sinks...)
	return r
}

// WithCostEstimator sets the estimator used for created snapshots
func (r *Runner) WithCostEstimator(estimate CostEstimator) *Runner {
	r.estimate = estimate
	return r
}

// copyCandidate is a completed source snapshot with pending destinations
type copyCandidate struct {
	record      policy.SnapshotRecord
	description string
	sizeGB      int
}

type copyJob struct {
	instruction policy.CopyInstruction
	source      copyCandidate
	description string
}

type regionResult struct {
	summary    models.RegionSummary
	actions    []models.Action
	candidates []copyCandidate
	copies     []policy.SnapshotRecord
	err        error
}

// Run performs one pass for today. It always returns the report; the error
// joins every region failure and reports failed actions, after all the
// work that could be done was done.
func (r *Runner) Run(ctx context.Context, today time.Time) (models.RunReport, error) {
	startedAt := r.now()
	report := models.RunReport{
		RequestID: uuid.NewString(),
		Date:      policy.Day(today),
		StartedAt: startedAt,
		DryRun:    r.opts.DryRun,
	}
	log := r.logger.With(zap.String("request_id", report.RequestID))
	log.Info("starting snapshot run",
		zap.String("date", policy.EncodeExpiration(today)),
		zap.Strings("regions", r.opts.Regions),
		zap.Bool("dry_run", r.opts.DryRun))

	results := make([]regionResult, len(r.opts.Regions))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for idx, region := range r.opts.Regions {
		g.Go(func() error {
			results[idx] = r.processRegion(ctx, logger.Region(log, region), region, report.Date)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	var candidates []copyCandidate
	var copies []policy.SnapshotRecord
	failedRegions := map[string]struct{}{}
	for _, res := range results {
		report.Regions = append(report.Regions, res.summary)
		report.Actions = append(report.Actions, res.actions...)
		candidates = append(candidates, res.candidates...)
		copies = append(copies, res.copies...)
		if res.err != nil {
			errs = append(errs, res.err)
			failedRegions[res.summary.Region] = struct{}{}
		}
	}

	report.Actions = append(report.Actions, r.replicate(ctx, log, candidates, copies, failedRegions)...)
	report.Duration = r.now().Sub(startedAt)

	if failed := report.Failures(); failed > 0 {
		errs = append(errs, fmt.Errorf("%d snapshot actions failed", failed))
	}

	log.Info("snapshot run finished",
		zap.Int("created", report.Count(models.ActionCreate)),
		zap.Int("deleted", report.Count(models.ActionDelete)),
		zap.Int("copied", report.Count(models.ActionCopy)),
		zap.Int("failed", report.Failures()),
		zap.Duration("duration", report.Duration))

	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			log.Error("failed to publish run report", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return report, errors.Join(errs...)
}

func (r *Runner) processRegion(ctx context.Context, log *zap.Logger, region string, today time.Time) regionResult {
	res := regionResult{summary: models.RegionSummary{Region: region}}
	fail := func(err error) regionResult {
		log.Error("region failed", zap.Error(err))
		res.err = fmt.Errorf("region %s: %w", region, err)
		res.summary.Error = err.Error()
		return res
	}

	client, err := r.cloud.Region(ctx, region)
	if err != nil {
		return fail(err)
	}

	keys := r.codec.Keys()
	snapshots, err := client.ListManagedSnapshots(ctx, []string{keys.Expiration, keys.SourceLink})
	if err != nil {
		return fail(err)
	}
	volumes, err := client.ListPolicyVolumes(ctx, r.codec.TagKey())
	if err != nil {
		return fail(err)
	}

	records := make([]policy.SnapshotRecord, 0, len(snapshots))
	infos := make(map[string]models.SnapshotInfo, len(snapshots))
	takenToday := map[string]bool{}
	for _, s := range snapshots {
		rec := r.codec.DecodeSnapshot(s.SnapshotID, s.VolumeID, region, s.State, s.StartTime, s.Tags)
		records = append(records, rec)
		infos[rec.ID] = s
		if !rec.IsCopy && rec.CreatedDate.Equal(today) {
			takenToday[rec.VolumeID] = true
		}
		if rec.IsCopy {
			res.copies = append(res.copies, rec)
		}
	}
	res.summary.ManagedSnapshots = len(records)

	for _, vol := range volumes {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		p, ok := r.codec.FromTags(vol.Tags)
		if !ok {
			continue
		}
		res.summary.Volumes++
		vlog := log.With(zap.String("volume_id", vol.VolumeID))

		if len(p.Issues) > 0 {
			res.summary.PolicyIssues++
			vlog.Warn("policy tag has invalid fields, defaults applied",
				zap.String("tag_value", vol.Tags[r.codec.TagKey()]),
				zap.Strings("issues", p.Issues))
		}

		switch {
		case !p.Enabled:
			res.summary.Disabled++
			vlog.Debug("snapshots disabled for volume")
			continue
		case !policy.ShouldCreate(p, today):
			res.summary.NotScheduled++
			vlog.Debug("no snapshot scheduled today", zap.String("policy", p.String()))
			continue
		case p.Recurrence != policy.RecurrenceAlways && takenToday[vol.VolumeID]:
			res.summary.AlreadyTaken++
			vlog.Debug("snapshot already taken today")
			continue
		}

		res.actions = append(res.actions, r.create(ctx, vlog, client, vol, p, today))
	}

	plan := policy.Reconcile(records, today)
	res.summary.UnmanagedSkipped = len(plan.Unmanaged)
	for _, rec := range plan.Unmanaged {
		log.Warn("snapshot has no readable expiration date, leaving it in place",
			zap.String("snapshot_id", rec.ID),
			zap.String("tag_value", rec.Tags[keys.Expiration]))
	}

	for _, rec := range plan.Delete {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		res.actions = append(res.actions, r.delete(ctx, log, client, rec, infos[rec.ID]))
	}

	for _, rec := range plan.Keep {
		if rec.IsCopy || len(rec.CopyTo) == 0 || rec.State != "completed" {
			continue
		}
		res.candidates = append(res.candidates, copyCandidate{
			record:      rec,
			description: infos[rec.ID].Description,
			sizeGB:      infos[rec.ID].VolumeSize,
		})
	}

	return res
}

func (r *Runner) create(ctx context.Context, log *zap.Logger, client RegionClient, vol models.VolumeInfo, p policy.Policy, today time.Time) models.Action {
	action := models.Action{
		Kind:       models.ActionCreate,
		Region:     vol.Region,
		VolumeID:   vol.VolumeID,
		VolumeName: vol.Name,
		Expiration: policy.ComputeExpiration(today, p.RetentionDays),
		SizeGB:     vol.Size,
		DryRun:     r.opts.DryRun,
	}
	if r.estimate != nil {
		action.EstimatedMonthlyCost, action.PricingSource = r.estimate(vol.Region, vol.Size)
	}

	tags, dropped := r.codec.SnapshotTags(p, today, vol.Tags)
	if len(dropped) > 0 {
		log.Warn("volume has too many tags to copy, leaving some off the snapshot",
			zap.Int("max_tags", policy.MaxSnapshotTags),
			zap.Strings("dropped_tags", dropped))
	}

	if r.opts.DryRun {
		log.Info("would create snapshot", zap.Time("expiration", action.Expiration))
		return action
	}

	id, err := client.CreateSnapshot(ctx, models.CreateSnapshotInput{
		VolumeID:    vol.VolumeID,
		Description: r.describe(vol, p, today),
		Tags:        tags,
	})
	if err != nil {
		if aws.IsLimitExceeded(err) {
			action.Skipped = aws.APIErrorCode(err)
			log.Info("snapshot limit reached, retrying on next run", zap.Error(err))
			return action
		}
		action.Error = err.Error()
		log.Error("failed to create snapshot", zap.Error(err))
		return action
	}

	action.SnapshotID = id
	log.Info("created snapshot",
		zap.String("snapshot_id", id),
		zap.String("expiration", policy.EncodeExpiration(action.Expiration)))
	return action
}

// describe builds the snapshot description, e.g.
// "Snapshot of vol-1 attached to i-1 (web) as /dev/xvdf on 2024-01-01"
func (r *Runner) describe(vol models.VolumeInfo, p policy.Policy, today time.Time) string {
	when := policy.EncodeExpiration(today)
	if p.Recurrence == policy.RecurrenceAlways {
		when = r.now().UTC().Format("2006-01-02 15:04:05")
	}

	if vol.InstanceID == "" {
		return fmt.Sprintf("Snapshot of %s on %s", vol.VolumeID, when)
	}
	instance := vol.InstanceID
	if vol.InstanceName != "" {
		instance = fmt.Sprintf("%s (%s)", vol.InstanceID, vol.InstanceName)
	}
	return fmt.Sprintf("Snapshot of %s attached to %s as %s on %s", vol.VolumeID, instance, vol.Device, when)
}

func (r *Runner) delete(ctx context.Context, log *zap.Logger, client RegionClient, rec policy.SnapshotRecord, info models.SnapshotInfo) models.Action {
	action := models.Action{
		Kind:       models.ActionDelete,
		Region:     rec.Region,
		VolumeID:   rec.VolumeID,
		VolumeName: rec.Tags["Name"],
		SnapshotID: rec.ID,
		Expiration: rec.ExpirationDate,
		SizeGB:     info.VolumeSize,
		DryRun:     r.opts.DryRun,
	}
	dlog := log.With(
		zap.String("snapshot_id", rec.ID),
		zap.String("expiration", policy.EncodeExpiration(rec.ExpirationDate)))

	if r.opts.DryRun {
		dlog.Info("would delete expired snapshot")
		return action
	}

	if err := client.DeleteSnapshot(ctx, rec.ID); err != nil {
		action.Error = err.Error()
		if aws.IsInUse(err) {
			dlog.Error("expired snapshot is still in use, for example by an AMI", zap.Error(err))
		} else {
			dlog.Error("failed to delete expired snapshot", zap.Error(err))
		}
		return action
	}

	dlog.Info("deleted expired snapshot")
	return action
}

// replicate plans and issues the copies of completed source snapshots.
// Destinations outside the run, or whose snapshots could not be listed,
// are left for a later run since their copy index is unknown.
func (r *Runner) replicate(ctx context.Context, log *zap.Logger, candidates []copyCandidate, copies []policy.SnapshotRecord, failedRegions map[string]struct{}) []models.Action {
	if len(candidates) == 0 {
		return nil
	}

	inRun := policy.NewRegionSet(r.opts.Regions)
	index := policy.NewCopyIndex(copies)

	var jobs []copyJob
	for _, c := range candidates {
		p := policy.Policy{CopyTo: c.record.CopyTo, CopyTags: true}
		for _, in := range r.planner.Plan(p, c.record, c.record.Tags, index) {
			if !inRun.Contains(in.DestinationRegion) {
				log.Warn("copy destination is not part of this run, skipping",
					zap.String("snapshot_id", in.SourceSnapshotID),
					zap.String("destination", in.DestinationRegion))
				continue
			}
			if _, failed := failedRegions[in.DestinationRegion]; failed {
				continue
			}
			jobs = append(jobs, copyJob{
				instruction: in,
				source:      c,
				description: fmt.Sprintf("%s [Copy of %s from %s]", c.description, in.SourceSnapshotID, in.SourceRegion),
			})
		}
	}

	actions := make([]models.Action, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for idx, j := range jobs {
		g.Go(func() error {
			actions[idx] = r.copy(ctx, log, j)
			return nil
		})
	}
	_ = g.Wait()

	return actions
}

func (r *Runner) copy(ctx context.Context, log *zap.Logger, j copyJob) models.Action {
	in := j.instruction
	action := models.Action{
		Kind:        models.ActionCopy,
		Region:      in.SourceRegion,
		VolumeID:    j.source.record.VolumeID,
		VolumeName:  j.source.record.Tags["Name"],
		SnapshotID:  in.SourceSnapshotID,
		Destination: in.DestinationRegion,
		SizeGB:      j.source.sizeGB,
		DryRun:      r.opts.DryRun,
	}
	if exp, ok := policy.DecodeExpiration(in.Tags[r.codec.Keys().Expiration]); ok {
		action.Expiration = exp
	}
	clog := logger.Region(log, in.SourceRegion).With(
		zap.String("snapshot_id", in.SourceSnapshotID),
		zap.String("destination", in.DestinationRegion))

	if r.opts.DryRun {
		clog.Info("would copy snapshot")
		return action
	}

	client, err := r.cloud.Region(ctx, in.DestinationRegion)
	if err != nil {
		action.Error = err.Error()
		clog.Error("failed to copy snapshot", zap.Error(err))
		return action
	}

	id, err := client.CopySnapshot(ctx, models.CopySnapshotInput{
		SourceRegion:     in.SourceRegion,
		SourceSnapshotID: in.SourceSnapshotID,
		Description:      j.description,
		Tags:             in.Tags,
	})
	if err != nil {
		if aws.IsLimitExceeded(err) {
			action.Skipped = aws.APIErrorCode(err)
			clog.Info("copy limit reached, retrying on next run", zap.Error(err))
			return action
		}
		action.Error = err.Error()
		clog.Error("failed to copy snapshot", zap.Error(err))
		return action
	}

	action.CopyID = id
	clog.Info("copied snapshot", zap.String("copy_id", id))
	return action
}
