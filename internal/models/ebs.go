package models

import "time"

// VolumeInfo represents an EBS volume carrying the scheduler tag
type VolumeInfo struct {
	VolumeID     string
	Name         string
	Size         int
	VolumeType   string
	State        string
	Region       string
	Tags         map[string]string
	InstanceID   string // empty when the volume is not attached
	InstanceName string
	Device       string
}

// SnapshotInfo represents an existing EBS snapshot as listed by the EC2 API
type SnapshotInfo struct {
	SnapshotID  string
	VolumeID    string
	VolumeSize  int
	Region      string
	State       string
	Description string
	StartTime   time.Time
	Tags        map[string]string
}

// CreateSnapshotInput describes a snapshot to create
type CreateSnapshotInput struct {
	VolumeID    string
	Description string
	Tags        map[string]string
}

// CopySnapshotInput describes a cross-region copy, issued in the destination region
type CopySnapshotInput struct {
	SourceRegion     string
	SourceSnapshotID string
	Description      string
	Tags             map[string]string
}
