package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/younsl/autosnap/internal/models"
)

var kindOrder = map[models.ActionKind]int{
	models.ActionCreate: 0,
	models.ActionCopy:   1,
	models.ActionDelete: 2,
}

// PrintActionsTable prints every create, copy and delete of a run. now is
// the reference for relative expiry times.
func PrintActionsTable(out io.Writer, report models.RunReport, now time.Time) {
	if len(report.Actions) == 0 {
		fmt.Fprintln(out, "No snapshot actions.")
		printTimestamp(out, report.StartedAt, report.Duration)
		return
	}

	actions := make([]models.Action, len(report.Actions))
	copy(actions, report.Actions)
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Region != actions[j].Region {
			return actions[i].Region < actions[j].Region
		}
		return kindOrder[actions[i].Kind] < kindOrder[actions[j].Kind]
	})

	// kubectl style tabwriter
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "ACTION\tREGION\tNAME\tVOLUME ID\tSNAPSHOT ID\tDESTINATION\tEXPIRES\tSIZE\tMONTHLY COST\tPRICING\tSTATUS")

	for _, a := range actions {
		snapshotID := a.SnapshotID
		if a.Kind == models.ActionCopy && a.CopyID != "" {
			snapshotID = a.SnapshotID + " -> " + a.CopyID
		}

		cost := "-"
		if a.PricingSource != "" {
			cost = fmt.Sprintf("$%.2f", a.EstimatedMonthlyCost)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Kind,
			a.Region,
			FormatName(a.VolumeName),
			orDash(a.VolumeID),
			orDash(snapshotID),
			orDash(a.Destination),
			formatExpiry(a.Expiration, now),
			formatSize(a.SizeGB),
			cost,
			GetPricingMarker(a.PricingSource),
			actionStatus(a),
		)
	}

	printActionTotals(w, report)

	w.Flush()
	printTimestamp(out, report.StartedAt, report.Duration)
}

// printActionTotals prints the summary line at the bottom of the table
func printActionTotals(w io.Writer, report models.RunReport) {
	var totalCost float64
	for _, a := range report.Actions {
		if a.Kind == models.ActionCreate && !a.Failed() && a.Skipped == "" {
			totalCost += a.EstimatedMonthlyCost
		}
	}

	fmt.Fprintf(w, "Total:\t\t\t\t\t\t\t\t$%.2f\t\t%s created, %s copied, %s deleted, %s failed\n",
		totalCost,
		humanize.Comma(int64(report.Count(models.ActionCreate))),
		humanize.Comma(int64(report.Count(models.ActionCopy))),
		humanize.Comma(int64(report.Count(models.ActionDelete))),
		humanize.Comma(int64(report.Failures())),
	)
}

// PrintRegionSummary prints what the run examined in every region
func PrintRegionSummary(out io.Writer, report models.RunReport) {
	if len(report.Regions) == 0 {
		return
	}

	fmt.Fprintln(out, "\n## Region Summary")

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "REGION\tVOLUMES\tDISABLED\tNOT SCHEDULED\tTAKEN TODAY\tSNAPSHOTS\tUNMANAGED\tPOLICY ISSUES\tERROR")

	for _, s := range report.Regions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Region,
			humanize.Comma(int64(s.Volumes)),
			humanize.Comma(int64(s.Disabled)),
			humanize.Comma(int64(s.NotScheduled)),
			humanize.Comma(int64(s.AlreadyTaken)),
			humanize.Comma(int64(s.ManagedSnapshots)),
			humanize.Comma(int64(s.UnmanagedSkipped)),
			humanize.Comma(int64(s.PolicyIssues)),
			orDash(s.Error),
		)
	}

	w.Flush()
}

func actionStatus(a models.Action) string {
	switch {
	case a.Failed():
		return "FAILED: " + a.Error
	case a.Skipped != "":
		return "SKIPPED: " + a.Skipped
	case a.DryRun:
		return "DRY RUN"
	default:
		return "OK"
	}
}

// formatExpiry renders an expiration date with its distance from now,
// e.g. "2024-01-04 (2 days from now)"
func formatExpiry(expiration, now time.Time) string {
	if expiration.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)",
		expiration.Format("2006-01-02"),
		humanize.RelTime(expiration, now, "ago", "from now"))
}

func formatSize(sizeGB int) string {
	if sizeGB <= 0 {
		return "-"
	}
	return humanize.Comma(int64(sizeGB)) + " GB"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
