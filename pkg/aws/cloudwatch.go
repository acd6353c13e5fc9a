package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/samber/lo"
	"github.com/younsl/autosnap/internal/models"
)

// CloudWatchAPI is the subset of the CloudWatch API used for run metrics
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// maxMetricDatums is the PutMetricData limit per request
const maxMetricDatums = 1000

// MetricsPublisher publishes per-region run counters to CloudWatch
type MetricsPublisher struct {
	client    CloudWatchAPI
	namespace string
}

// NewMetricsPublisher creates a publisher writing to namespace in region
func NewMetricsPublisher(ctx context.Context, region, namespace string) (*MetricsPublisher, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewMetricsPublisherFromAPI(cloudwatch.NewFromConfig(cfg), namespace), nil
}

// NewMetricsPublisherFromAPI wraps an existing CloudWatch API implementation
func NewMetricsPublisherFromAPI(api CloudWatchAPI, namespace string) *MetricsPublisher {
	return &MetricsPublisher{client: api, namespace: namespace}
}

// Name identifies the sink in logs
func (p *MetricsPublisher) Name() string { return "cloudwatch" }

// Publish sends SnapshotsCreated, SnapshotsDeleted, SnapshotsCopied and
// Errors for every region of the report
func (p *MetricsPublisher) Publish(ctx context.Context, report models.RunReport) error {
	datums := MetricDatums(report)
	for _, chunk := range lo.Chunk(datums, maxMetricDatums) {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: chunk,
		})
		if err != nil {
			return fmt.Errorf("error publishing metrics to %s: %w", p.namespace, err)
		}
	}
	return nil
}

// MetricDatums converts a report into CloudWatch datums, one per metric and
// region, in region order
func MetricDatums(report models.RunReport) []cwTypes.MetricDatum {
	type counters struct {
		created, deleted, copied, errors float64
	}

	perRegion := make(map[string]*counters, len(report.Regions))
	for _, summary := range report.Regions {
		c := &counters{}
		if summary.Error != "" {
			c.errors++
		}
		perRegion[summary.Region] = c
	}

	for _, action := range report.Actions {
		c, ok := perRegion[action.Region]
		if !ok {
			c = &counters{}
			perRegion[action.Region] = c
		}
		switch {
		case action.Failed():
			c.errors++
		case action.Skipped != "" || action.DryRun:
		case action.Kind == models.ActionCreate:
			c.created++
		case action.Kind == models.ActionDelete:
			c.deleted++
		case action.Kind == models.ActionCopy:
			c.copied++
		}
	}

	timestamp := report.StartedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	regions := lo.Keys(perRegion)
	sort.Strings(regions)

	var datums []cwTypes.MetricDatum
	for _, region := range regions {
		c := perRegion[region]
		for _, metric := range []struct {
			name  string
			value float64
		}{
			{"SnapshotsCreated", c.created},
			{"SnapshotsDeleted", c.deleted},
			{"SnapshotsCopied", c.copied},
			{"Errors", c.errors},
		} {
			datums = append(datums, cwTypes.MetricDatum{
				MetricName: aws.String(metric.name),
				Dimensions: []cwTypes.Dimension{
					{Name: aws.String("Region"), Value: aws.String(region)},
				},
				Timestamp: aws.Time(timestamp),
				Unit:      cwTypes.StandardUnitCount,
				Value:     aws.Float64(metric.value),
			})
		}
	}
	return datums
}
