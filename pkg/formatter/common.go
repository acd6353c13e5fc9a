package formatter

import (
	"fmt"
	"io"
	"time"
)

// printTimestamp prints the run timestamp and duration
func printTimestamp(w io.Writer, startTime time.Time, duration time.Duration) {
	// Format the run time
	timeStr := startTime.Format("2006-01-02 15:04:05")

	// Format the duration
	durationStr := fmt.Sprintf("%.2fs", duration.Seconds())

	fmt.Fprintf(w, "Run completed at %s (took %s)\n", timeStr, durationStr)
}

// GetPricingMarker returns the PRICING column value for a pricing source
func GetPricingMarker(source string) string {
	switch source {
	case "API":
		return "API"
	case "Cache":
		return "CACHE"
	case "Default":
		return "DEFAULT"
	default:
		return "-"
	}
}
