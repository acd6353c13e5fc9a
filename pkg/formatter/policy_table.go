package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/younsl/autosnap/pkg/policy"
)

// PrintPolicy prints a parsed policy and its upcoming creation dates
func PrintPolicy(out io.Writer, p policy.Policy, runs []time.Time) {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintf(w, "Canonical:\t%s\n", p.String())
	fmt.Fprintf(w, "Enabled:\t%t\n", p.Enabled)
	fmt.Fprintf(w, "Type:\t%s\n", p.Recurrence)
	switch p.Recurrence {
	case policy.RecurrenceWeekly:
		days := make([]string, len(p.Weekdays))
		for i, d := range p.Weekdays {
			days[i] = d.String()
		}
		fmt.Fprintf(w, "When:\t%s\n", orDash(strings.Join(days, ", ")))
	case policy.RecurrenceMonthly:
		days := make([]string, len(p.MonthDays))
		for i, d := range p.MonthDays {
			days[i] = fmt.Sprint(d)
		}
		fmt.Fprintf(w, "When:\t%s\n", orDash(strings.Join(days, ", ")))
	}
	fmt.Fprintf(w, "Retention:\t%d days\n", p.RetentionDays)
	fmt.Fprintf(w, "Copy tags:\t%t\n", p.CopyTags)
	fmt.Fprintf(w, "Copy to:\t%s\n", orDash(strings.Join(p.CopyTo, ", ")))
	for _, issue := range p.Issues {
		fmt.Fprintf(w, "Warning:\t%s\n", issue)
	}
	w.Flush()

	if !p.Enabled {
		fmt.Fprintln(out, "\nSnapshots are disabled for this policy.")
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "\nThis policy never creates a snapshot.")
		return
	}

	fmt.Fprintln(out, "\n## Next Snapshots")
	w = tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tWEEKDAY\tEXPIRES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			run.Format("2006-01-02"),
			run.Weekday(),
			policy.ComputeExpiration(run, p.RetentionDays).Format("2006-01-02"),
		)
	}
	w.Flush()
}
