package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/younsl/autosnap/pkg/pricing"
)

// PrintPricingAPIStats prints the statistics of pricing API calls
func PrintPricingAPIStats(out io.Writer, stats map[string]pricing.Stats) {
	if len(stats) == 0 {
		return
	}

	fmt.Fprintln(out, "\n## AWS Pricing API Call Statistics")

	// Use tabwriter for clean tabular output
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	// Print header
	fmt.Fprintln(w, "REGION\tAPI CALLS\tSUCCESS\tFAILURE\tCACHE HITS\tSUCCESS RATE")

	regions := lo.Keys(stats)
	sort.Strings(regions)

	for _, region := range regions {
		s := stats[region]
		total := s.Success + s.Failure

		// Calculate success rate percentage
		successRate := 0.0
		if total > 0 {
			successRate = float64(s.Success) / float64(total) * 100.0
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f%%\n",
			region,
			total,
			s.Success,
			s.Failure,
			s.Cache,
			successRate,
		)
	}

	w.Flush()
}
