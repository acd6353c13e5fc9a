package models

import "time"

// ActionKind identifies what a run did (or would do, in dry-run mode)
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionDelete ActionKind = "delete"
	ActionCopy   ActionKind = "copy"
)

// Action is one create, delete or copy decision and its outcome
type Action struct {
	Kind        ActionKind `json:"kind"`
	Region      string     `json:"region"`
	VolumeID    string     `json:"volumeId,omitempty"`
	VolumeName  string     `json:"volumeName,omitempty"`
	SnapshotID  string     `json:"snapshotId,omitempty"`
	Destination string     `json:"destination,omitempty"`

	// CopyID is the id of the new snapshot in Destination
	CopyID string `json:"copyId,omitempty"`

	Expiration time.Time `json:"expiration,omitempty"`
	SizeGB     int       `json:"sizeGb,omitempty"`

	EstimatedMonthlyCost float64 `json:"estimatedMonthlyCost,omitempty"`
	PricingSource        string  `json:"pricingSource,omitempty"`

	DryRun  bool   `json:"dryRun,omitempty"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the action was attempted and failed
func (a Action) Failed() bool { return a.Error != "" }

// RegionSummary counts what was examined in one region
type RegionSummary struct {
	Region           string `json:"region"`
	Volumes          int    `json:"volumes"`
	Disabled         int    `json:"disabled"`
	NotScheduled     int    `json:"notScheduled"`
	AlreadyTaken     int    `json:"alreadyTaken"`
	ManagedSnapshots int    `json:"managedSnapshots"`
	UnmanagedSkipped int    `json:"unmanagedSkipped"`
	PolicyIssues     int    `json:"policyIssues"`
	Error            string `json:"error,omitempty"`
}

// RunReport is the outcome of one scheduled run across all regions
type RunReport struct {
	RequestID string          `json:"requestId"`
	Date      time.Time       `json:"date"`
	StartedAt time.Time       `json:"startedAt"`
	Duration  time.Duration   `json:"duration"`
	DryRun    bool            `json:"dryRun"`
	Regions   []RegionSummary `json:"regions"`
	Actions   []Action        `json:"actions"`
}

// Count returns the number of successful actions of the given kind
func (r RunReport) Count(kind ActionKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == kind && !a.Failed() && a.Skipped == "" {
			n++
		}
	}
	return n
}

// Failures returns the number of failed actions
func (r RunReport) Failures() int {
	n := 0
	for _, a := range r.Actions {
		if a.Failed() {
			n++
		}
	}
	return n
}
