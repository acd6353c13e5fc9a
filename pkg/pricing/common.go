package pricing

import (
	"fmt"
	"strconv"

	"github.com/younsl/autosnap/pkg/utils"
)

// GetRegionDescriptiveName returns the human-readable region name used in AWS Pricing API
func GetRegionDescriptiveName(region string) string {
	return utils.GetRegionDescriptiveName(region)
}

// productAttribute returns one attribute of a price list entry
func productAttribute(priceData map[string]interface{}, name string) string {
	value, err := utils.GetNestedString(priceData, "product", "attributes", name)
	if err != nil {
		return ""
	}
	return value
}

// ExtractOnDemandPrice extracts the on-demand USD price and its unit from a
// decoded price list entry
func ExtractOnDemandPrice(priceData map[string]interface{}) (float64, string, error) {
	// The structure of the pricing data can be complex and may change
	terms, ok := priceData["terms"].(map[string]interface{})
	if !ok {
		return 0, "", fmt.Errorf("terms field not found or invalid")
	}

	onDemand, ok := terms["OnDemand"].(map[string]interface{})
	if !ok {
		return 0, "", fmt.Errorf("OnDemand field not found or invalid")
	}

	// Extract the first skuOffer
	skuOffer, err := utils.GetFirstMapValue(onDemand)
	if err != nil {
		return 0, "", fmt.Errorf("no SKU offer found")
	}

	skuOfferMap, ok := skuOffer.(map[string]interface{})
	if !ok {
		return 0, "", fmt.Errorf("SKU offer is not a map")
	}

	priceDimensions, ok := skuOfferMap["priceDimensions"].(map[string]interface{})
	if !ok {
		return 0, "", fmt.Errorf("priceDimensions field not found or invalid")
	}

	// Extract the first price dimension
	dimension, err := utils.GetFirstMapValue(priceDimensions)
	if err != nil {
		return 0, "", fmt.Errorf("no price dimension found")
	}

	dimensionMap, ok := dimension.(map[string]interface{})
	if !ok {
		return 0, "", fmt.Errorf("price dimension is not a map")
	}

	unit, _ := dimensionMap["unit"].(string)

	usd, err := utils.GetNestedString(dimensionMap, "pricePerUnit", "USD")
	if err != nil {
		return 0, "", fmt.Errorf("USD price not found or invalid")
	}

	price, err := strconv.ParseFloat(usd, 64)
	if err != nil {
		return 0, "", fmt.Errorf("error parsing price: %w", err)
	}

	return price, unit, nil
}
