package policy

import "time"

// ComputeExpiration returns the calendar day a snapshot created on created
// expires, counting whole days regardless of the time of creation.
func ComputeExpiration(created time.Time, retentionDays int) time.Time {
	return Day(created).AddDate(0, 0, retentionDays)
}

// IsExpired reports whether rec is due for deletion on today. The expiration
// day itself counts as expired. Records without expiration metadata never
// expire.
func IsExpired(rec SnapshotRecord, today time.Time) bool {
	if !rec.HasExpiration() {
		return false
	}
	return !Day(today).Before(Day(rec.ExpirationDate))
}

// RetentionPlan partitions existing snapshots for one retention pass
type RetentionPlan struct {
	Keep   []SnapshotRecord
	Delete []SnapshotRecord
	// Unmanaged snapshots lack expiration metadata and are left alone
	Unmanaged []SnapshotRecord
}

// Reconcile decides, for every record, whether it is kept or deleted on today
func Reconcile(records []SnapshotRecord, today time.Time) RetentionPlan {
	var plan RetentionPlan
	for _, rec := range records {
		switch {
		case !rec.HasExpiration():
			plan.Unmanaged = append(plan.Unmanaged, rec)
		case IsExpired(rec, today):
			plan.Delete = append(plan.Delete, rec)
		default:
			plan.Keep = append(plan.Keep, rec)
		}
	}
	return plan
}
