package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/younsl/autosnap/pkg/utils"
	"go.uber.org/zap"
)

// snapshotUsageSuffix marks standard tier snapshot storage. Archive tier
// entries end in SnapshotArchiveStorage instead.
const snapshotUsageSuffix = "EBS:SnapshotUsage"

// GetSnapshotPrice returns the price per GB-month of standard tier EBS
// snapshot storage in region and where it came from
func (c *Client) GetSnapshotPrice(ctx context.Context, region string) (float64, PricingSource) {
	cacheKey := "snapshot:" + region

	c.mu.RLock()
	price, found := c.cache[cacheKey]
	c.mu.RUnlock()
	if found {
		c.updateStats(region, func(s *Stats) { s.Cache++ })
		return price, PricingSourceCache
	}

	price, err := c.getSnapshotPriceFromAPI(ctx, region)
	if err != nil {
		c.logger.Debug("using fallback snapshot pricing",
			zap.String("aws_region", region),
			zap.Error(err))
		c.updateStats(region, func(s *Stats) { s.Failure++ })
		return defaultSnapshotPrice(region), PricingSourceDefault
	}

	c.updateStats(region, func(s *Stats) { s.Success++ })

	c.mu.Lock()
	c.cache[cacheKey] = price
	c.mu.Unlock()

	return price, PricingSourceAPI
}

func defaultSnapshotPrice(region string) float64 {
	if price, found := DefaultSnapshotPrices[region]; found {
		return price
	}
	return DefaultSnapshotPrice
}

// getSnapshotPriceFromAPI retrieves snapshot storage pricing from the AWS Pricing API
func (c *Client) getSnapshotPriceFromAPI(ctx context.Context, region string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filters := []types.Filter{
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("productFamily"),
			Value: aws.String("Storage Snapshot"),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("regionCode"),
			Value: aws.String(region),
		},
	}

	products, err := c.GetPricingProducts(ctx, "AmazonEC2", filters, "EBS snapshot", region)
	if err != nil {
		return 0, err
	}

	for _, product := range products {
		priceData, err := utils.ParseJSON(product)
		if err != nil {
			continue
		}
		if !strings.HasSuffix(productAttribute(priceData, "usagetype"), snapshotUsageSuffix) {
			continue
		}

		price, unit, err := ExtractOnDemandPrice(priceData)
		if err != nil {
			return 0, err
		}
		if unit != "GB-Mo" && unit != "GB-month" {
			return 0, fmt.Errorf("unexpected pricing unit: %s", unit)
		}
		return price, nil
	}

	return 0, fmt.Errorf("no standard snapshot storage price found in %s (%s)", region, GetRegionDescriptiveName(region))
}

// CalculateSnapshotMonthlyCostWithSource estimates the monthly storage cost
// of a snapshot of a sizeGB volume. The full volume size is an upper bound,
// since snapshots after the first only store changed blocks.
func (c *Client) CalculateSnapshotMonthlyCostWithSource(ctx context.Context, region string, sizeGB int) (float64, string) {
	price, source := c.GetSnapshotPrice(ctx, region)
	return float64(sizeGB) * price, string(source)
}

// Estimator binds ctx to CalculateSnapshotMonthlyCostWithSource
func (c *Client) Estimator(ctx context.Context) func(region string, sizeGB int) (float64, string) {
	return func(region string, sizeGB int) (float64, string) {
		return c.CalculateSnapshotMonthlyCostWithSource(ctx, region, sizeGB)
	}
}
