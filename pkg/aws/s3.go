package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/younsl/autosnap/internal/models"
)

// S3API is the subset of the S3 API used to store run reports
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportUploader stores JSON run reports in an S3 bucket
type ReportUploader struct {
	client S3API
	bucket string
	prefix string
}

// NewReportUploader creates an uploader for bucket, reached through region
func NewReportUploader(ctx context.Context, region, bucket, prefix string) (*ReportUploader, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Use path-style addressing which is more reliable
	})
	return NewReportUploaderFromAPI(client, bucket, prefix), nil
}

// NewReportUploaderFromAPI wraps an existing S3 API implementation
func NewReportUploaderFromAPI(api S3API, bucket, prefix string) *ReportUploader {
	return &ReportUploader{client: api, bucket: bucket, prefix: prefix}
}

// Name identifies the sink in logs
func (u *ReportUploader) Name() string { return "s3" }

// ReportKey returns the object key of a report:
// <prefix>/<yyyy>/<mm>/<dd>/<request id>.json
func (u *ReportUploader) ReportKey(report models.RunReport) string {
	return path.Join(u.prefix, report.Date.Format("2006/01/02"), report.RequestID+".json")
}

// Publish uploads the report as JSON
func (u *ReportUploader) Publish(ctx context.Context, report models.RunReport) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding run report: %w", err)
	}

	key := u.ReportKey(report)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error uploading run report to s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}
