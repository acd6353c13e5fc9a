package policy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirationRoundTrip(t *testing.T) {
	day := date(1999, time.December, 31)
	for i := 0; i < 3000; i++ {
		got, ok := DecodeExpiration(EncodeExpiration(day))
		require.True(t, ok)
		require.Equal(t, day, got)
		day = day.AddDate(0, 0, 1)
	}
}

func TestDecodeExpiration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Time
		ok       bool
	}{
		{"2024-01-03", date(2024, time.January, 3), true},
		{" 2024-01-03 ", date(2024, time.January, 3), true},
		{"2024-01-03;us-west-1,eu-west-1", date(2024, time.January, 3), true},
		{"2024-01-03;None", date(2024, time.January, 3), true},
		{"2024-02-30", time.Time{}, false},
		{"Enable=Yes", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, test := range tests {
		t.Run(test.value, func(t *testing.T) {
			got, ok := DecodeExpiration(test.value)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestSourceLinkRoundTrip(t *testing.T) {
	id, ok := DecodeSourceLink(EncodeSourceLink("snap-0123456789abcdef0"))
	require.True(t, ok)
	assert.Equal(t, "snap-0123456789abcdef0", id)

	_, ok = DecodeSourceLink("vol-0123")
	assert.False(t, ok)
}

func TestDecodeCopyTo(t *testing.T) {
	assert.Equal(t, []string{"us-west-1", "eu-west-1"}, DecodeCopyTo("us-west-1, EU-WEST-1"))
	assert.Empty(t, DecodeCopyTo("None"))
	assert.Empty(t, DecodeCopyTo(""))
	assert.Equal(t, "us-west-1,eu-west-1", EncodeCopyTo([]string{"us-west-1", "eu-west-1"}))
}

func TestSnapshotTags(t *testing.T) {
	codec := NewCodec("", 0, nil)
	keys := codec.Keys()
	volumeTags := map[string]string{
		"Name":                  "db-data",
		"team":                  "storage",
		"aws:cloudformation:id": "stack",
		DefaultTagKey:           "Enable=Yes;CopyTags=Yes;CopyTo=us-west-1",
	}
	today := time.Date(2024, time.January, 1, 13, 0, 0, 0, time.UTC)

	t.Run("without copy tags", func(t *testing.T) {
		p := codec.Parse("Enable=Yes;Retention=5")
		tags, dropped := codec.SnapshotTags(p, today, volumeTags)
		assert.Equal(t, map[string]string{keys.Expiration: "2024-01-06"}, tags)
		assert.Empty(t, dropped)
	})

	t.Run("with copy tags and destinations", func(t *testing.T) {
		p := codec.Parse(volumeTags[DefaultTagKey])
		tags, dropped := codec.SnapshotTags(p, today, volumeTags)
		assert.Equal(t, map[string]string{
			"Name":          "db-data",
			"team":          "storage",
			keys.Expiration: "2024-01-03",
			keys.CopyTo:     "us-west-1",
		}, tags)
		assert.Empty(t, dropped)
	})

	t.Run("metadata tags on the volume are not carried over", func(t *testing.T) {
		restored := map[string]string{
			"Name":          "restored",
			DefaultTagKey:   "Enable=Yes;CopyTags=Yes",
			keys.CopyTo:     "us-west-1",
			keys.SourceLink: "snap-0123456789abcdef0",
		}
		p := codec.Parse(restored[DefaultTagKey])
		require.Empty(t, p.CopyTo)

		tags, _ := codec.SnapshotTags(p, today, restored)
		assert.Equal(t, map[string]string{
			"Name":          "restored",
			keys.Expiration: "2024-01-03",
		}, tags)

		rec := codec.DecodeSnapshot("snap-new", "vol-1", "us-east-1", "completed", today, tags)
		assert.False(t, rec.IsCopy)
		assert.Empty(t, rec.CopyTo)
		assert.Empty(t, NewPlanner(codec).Plan(p, rec, restored, CopyIndex{}))
	})
}

func TestSnapshotTags_TagLimit(t *testing.T) {
	codec := NewCodec("", 0, nil)
	keys := codec.Keys()

	volumeTags := map[string]string{DefaultTagKey: "Enable=Yes;CopyTags=Yes;CopyTo=us-west-1"}
	for i := 0; i < MaxSnapshotTags-1; i++ {
		volumeTags[fmt.Sprintf("tag-%02d", i)] = "v"
	}
	p := codec.Parse(volumeTags[DefaultTagKey])

	tags, dropped := codec.SnapshotTags(p, date(2024, time.January, 1), volumeTags)
	assert.Len(t, tags, MaxSnapshotTags)
	assert.Equal(t, "2024-01-03", tags[keys.Expiration])
	assert.Equal(t, "us-west-1", tags[keys.CopyTo])
	assert.Equal(t, []string{"tag-48"}, dropped)
	assert.NotContains(t, tags, "tag-48")
	assert.Contains(t, tags, "tag-47")
}

func TestEncodeExpiration_MaxRetention(t *testing.T) {
	codec := NewCodec("", 0, nil)

	p := codec.Parse("Enable=Yes;Retention=99999999")
	assert.Equal(t, MaxRetentionDays, p.RetentionDays)
	assert.NotEmpty(t, p.Issues)

	created := date(2024, time.January, 1)
	expiration := ComputeExpiration(created, p.RetentionDays)
	got, ok := DecodeExpiration(EncodeExpiration(expiration))
	require.True(t, ok)
	assert.Equal(t, expiration, got)

	assert.Equal(t, MaxRetentionDays, NewCodec("", 99999999, nil).Parse("Enable=Yes").RetentionDays)
}

func TestDecodeSnapshot(t *testing.T) {
	codec := NewCodec("", 0, nil)
	keys := codec.Keys()
	created := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

	t.Run("source snapshot", func(t *testing.T) {
		tags := map[string]string{keys.Expiration: "2024-01-03", keys.CopyTo: "us-west-1"}
		rec := codec.DecodeSnapshot("snap-1", "vol-1", "us-east-1", "completed", created, tags)
		assert.Equal(t, date(2024, time.January, 3), rec.ExpirationDate)
		assert.Equal(t, date(2024, time.January, 1), rec.CreatedDate)
		assert.Equal(t, []string{"us-west-1"}, rec.CopyTo)
		assert.False(t, rec.IsCopy)
	})

	t.Run("legacy value", func(t *testing.T) {
		tags := map[string]string{keys.Expiration: "2024-01-03;us-west-1,eu-west-1"}
		rec := codec.DecodeSnapshot("snap-1", "vol-1", "us-east-1", "completed", created, tags)
		assert.Equal(t, date(2024, time.January, 3), rec.ExpirationDate)
		assert.Equal(t, []string{"us-west-1", "eu-west-1"}, rec.CopyTo)
	})

	t.Run("copy", func(t *testing.T) {
		tags := map[string]string{keys.Expiration: "2024-01-03", keys.SourceLink: "snap-1"}
		rec := codec.DecodeSnapshot("snap-2", "vol-ffffffff", "us-west-1", "pending", created, tags)
		assert.True(t, rec.IsCopy)
		assert.Equal(t, "snap-1", rec.SourceSnapshotID)
		assert.Empty(t, rec.CopyTo)
	})

	t.Run("unreadable expiration", func(t *testing.T) {
		tags := map[string]string{keys.Expiration: "someday"}
		rec := codec.DecodeSnapshot("snap-3", "vol-1", "us-east-1", "completed", created, tags)
		assert.False(t, rec.HasExpiration())
	})
}
