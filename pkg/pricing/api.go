package pricing

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	awsclient "github.com/younsl/autosnap/pkg/aws"
	"go.uber.org/zap"
)

// The AWS Pricing API is only available in us-east-1 and ap-south-1 regions
const pricingRegion = "us-east-1"

// ProductsAPI is the subset of the Pricing API used by Client
type ProductsAPI interface {
	pricing.GetProductsAPIClient
}

// Client looks up EBS prices, caching one price per region
type Client struct {
	api    ProductsAPI
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]float64
	stats map[string]*Stats
}

// NewClient creates a Client talking to the Pricing API endpoint
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	cfg, err := awsclient.LoadConfig(ctx, pricingRegion)
	if err != nil {
		return nil, err
	}
	logger.Debug("AWS Pricing API initialized",
		zap.String("endpoint", fmt.Sprintf("https://api.pricing.%s.amazonaws.com", pricingRegion)))
	return NewClientFromAPI(pricing.NewFromConfig(cfg), logger), nil
}

// NewClientFromAPI wraps an existing Pricing API implementation. A nil api
// always answers with default prices.
func NewClientFromAPI(api ProductsAPI, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    api,
		logger: logger,
		cache:  make(map[string]float64),
		stats:  make(map[string]*Stats),
	}
}

// GetPricingProducts returns every price list entry matching filters
func (c *Client) GetPricingProducts(ctx context.Context, serviceCode string, filters []types.Filter, resourceType, region string) ([]string, error) {
	if c.api == nil {
		return nil, fmt.Errorf("AWS pricing client not initialized")
	}

	input := &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		Filters:     filters,
		MaxResults:  aws.Int32(100),
	}

	var products []string
	paginator := pricing.NewGetProductsPaginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error calling AWS Pricing API: %w", err)
		}
		products = append(products, page.PriceList...)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("no pricing found for %s in region %s", resourceType, region)
	}
	return products, nil
}
