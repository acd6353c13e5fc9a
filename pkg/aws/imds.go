package aws

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/younsl/autosnap/pkg/utils"
)

// RegionGetter is satisfied by *imds.Client
type RegionGetter interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// ResolveHomeRegion picks the region for account-wide calls: the configured
// value, then AWS_REGION / AWS_DEFAULT_REGION, then the instance metadata
// service, then the default region.
func ResolveHomeRegion(ctx context.Context, configured string, metadata RegionGetter) string {
	if configured != "" {
		return configured
	}
	for _, name := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if region := os.Getenv(name); region != "" {
			return region
		}
	}

	if metadata != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if out, err := metadata.GetRegion(ctx, &imds.GetRegionInput{}); err == nil && out.Region != "" {
			return out.Region
		}
	}

	return utils.GetDefaultRegion()
}

// NewMetadataClient returns an instance metadata client. Lookups are bounded
// by ResolveHomeRegion's timeout when running outside EC2.
func NewMetadataClient() *imds.Client {
	return imds.New(imds.Options{})
}
