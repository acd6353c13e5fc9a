package pricing

// PricingSource represents the source of pricing information
type PricingSource string

const (
	// PricingSourceAPI indicates pricing data came from AWS API
	PricingSourceAPI PricingSource = "API"

	// PricingSourceCache indicates pricing data came from cache
	PricingSourceCache PricingSource = "Cache"

	// PricingSourceDefault indicates pricing data came from hardcoded defaults
	PricingSourceDefault PricingSource = "Default"
)

// DefaultSnapshotPrice is the standard tier snapshot price in USD per
// GB-month used for regions missing from DefaultSnapshotPrices
const DefaultSnapshotPrice = 0.05

// Default EBS snapshot prices (standard tier) in USD per GB-month.
// These are fallback prices if Pricing API fails.
var DefaultSnapshotPrices = map[string]float64{
	"us-east-1":      0.05,
	"us-east-2":      0.05,
	"us-west-1":      0.055,
	"us-west-2":      0.05,
	"ca-central-1":   0.055,
	"eu-west-1":      0.05,
	"eu-west-2":      0.053,
	"eu-west-3":      0.053,
	"eu-central-1":   0.054,
	"eu-north-1":     0.0475,
	"ap-northeast-1": 0.05,
	"ap-northeast-2": 0.05,
	"ap-northeast-3": 0.05,
	"ap-southeast-1": 0.05,
	"ap-southeast-2": 0.055,
	"ap-south-1":     0.05,
	"sa-east-1":      0.068,
}
