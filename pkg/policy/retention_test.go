package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeExpiration(t *testing.T) {
	tests := []struct {
		name     string
		created  time.Time
		days     int
		expected time.Time
	}{
		{"two days", date(2024, time.January, 1), 2, date(2024, time.January, 3)},
		{"time of day is ignored", time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC), 2, date(2024, time.January, 3)},
		{"crosses month", date(2024, time.January, 30), 3, date(2024, time.February, 2)},
		{"leap day", date(2024, time.February, 28), 1, date(2024, time.February, 29)},
		{"crosses year", date(2023, time.December, 31), 1, date(2024, time.January, 1)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ComputeExpiration(test.created, test.days))
		})
	}
}

func TestIsExpired(t *testing.T) {
	rec := SnapshotRecord{ID: "snap-1", ExpirationDate: date(2024, time.January, 3)}

	assert.False(t, IsExpired(rec, date(2024, time.January, 2)))
	assert.True(t, IsExpired(rec, date(2024, time.January, 3)))
	assert.True(t, IsExpired(rec, time.Date(2024, time.January, 3, 0, 0, 1, 0, time.UTC)))
	assert.True(t, IsExpired(rec, date(2024, time.February, 1)))
}

func TestIsExpired_MissingMetadataNeverExpires(t *testing.T) {
	rec := SnapshotRecord{ID: "snap-1", CreatedDate: date(2000, time.January, 1)}
	assert.False(t, IsExpired(rec, date(2100, time.January, 1)))
}

func TestReconcile(t *testing.T) {
	today := date(2024, time.January, 10)
	keep := SnapshotRecord{ID: "snap-keep", ExpirationDate: date(2024, time.January, 11)}
	expired := SnapshotRecord{ID: "snap-old", ExpirationDate: date(2024, time.January, 10)}
	copyExpired := SnapshotRecord{ID: "snap-copy", ExpirationDate: date(2024, time.January, 9), IsCopy: true, SourceSnapshotID: "snap-gone"}
	foreign := SnapshotRecord{ID: "snap-foreign"}

	plan := Reconcile([]SnapshotRecord{keep, expired, copyExpired, foreign}, today)

	assert.Equal(t, []SnapshotRecord{keep}, plan.Keep)
	assert.Equal(t, []SnapshotRecord{expired, copyExpired}, plan.Delete)
	assert.Equal(t, []SnapshotRecord{foreign}, plan.Unmanaged)
}
