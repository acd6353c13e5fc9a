// Package policy turns the free-form scheduler tag found on EBS volumes into
// snapshot decisions: whether to create a snapshot today, when it expires,
// which existing snapshots are due for deletion and where new snapshots must
// be copied. Every function in this package is pure; dates and the set of
// valid regions are always passed in by the caller.
package policy

import (
	"strings"
	"time"
)

// DefaultTagKey is the tag key recognized on volumes and stamped on snapshots
const DefaultTagKey = "scheduler:ebs-auto-snapshot-creation"

// DefaultRetentionDays is used when a policy has no valid Retention field
const DefaultRetentionDays = 2

// MaxRetentionDays caps the Retention field at 100 years
const MaxRetentionDays = 36500

// Recurrence describes how often a policy triggers snapshot creation
type Recurrence string

const (
	// RecurrenceAlways creates a snapshot on every execution
	RecurrenceAlways Recurrence = "Always"
	// RecurrenceDaily creates one snapshot per calendar day
	RecurrenceDaily Recurrence = "Daily"
	// RecurrenceWeekly creates a snapshot on the listed weekdays
	RecurrenceWeekly Recurrence = "Weekly"
	// RecurrenceMonthly creates a snapshot on the listed days of month
	RecurrenceMonthly Recurrence = "Monthly"
)

// parseRecurrence maps a Type value to a Recurrence, falling back to Daily
func parseRecurrence(value string) (Recurrence, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "always":
		return RecurrenceAlways, true
	case "daily":
		return RecurrenceDaily, true
	case "weekly":
		return RecurrenceWeekly, true
	case "monthly":
		return RecurrenceMonthly, true
	default:
		return RecurrenceDaily, false
	}
}

// Policy is the structured form of one volume's scheduler tag
type Policy struct {
	Enabled    bool
	Recurrence Recurrence

	// Weekdays is only meaningful for RecurrenceWeekly
	Weekdays []time.Weekday
	// MonthDays is only meaningful for RecurrenceMonthly, values 1-31
	MonthDays []int

	RetentionDays int
	CopyTags      bool
	CopyTo        []string

	// Issues lists tokens and fields that were dropped or defaulted while
	// parsing. It is informational and never influences a decision.
	Issues []string
}

// Default returns the all-defaults policy for the given retention
func Default(retentionDays int) Policy {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return Policy{
		Recurrence:    RecurrenceDaily,
		RetentionDays: retentionDays,
	}
}

// Day truncates t to midnight UTC of its calendar date in t's own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SnapshotRecord is the core's view of an existing or about to be created
// snapshot. A zero ExpirationDate means the expiration metadata is missing.
type SnapshotRecord struct {
	ID          string
	VolumeID    string
	Region      string
	State       string
	CreatedDate time.Time

	ExpirationDate   time.Time
	SourceSnapshotID string
	IsCopy           bool

	// CopyTo holds destinations stamped on a source snapshot at creation
	CopyTo []string
	Tags   map[string]string
}

// HasExpiration reports whether the expiration metadata was recovered
func (r SnapshotRecord) HasExpiration() bool {
	return !r.ExpirationDate.IsZero()
}
