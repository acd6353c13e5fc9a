package policy

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ExpirationLayout is the date format of the expiration tag value
const ExpirationLayout = "2006-01-02"

// MaxSnapshotTags is the number of tags EC2 accepts on one snapshot
const MaxSnapshotTags = 50

// MetadataKeys are the tag keys written on snapshots managed by autosnap
type MetadataKeys struct {
	// Expiration shares the policy key, as on snapshots created by earlier
	// releases of the scheduler
	Expiration string
	SourceLink string
	CopyTo     string
}

func newMetadataKeys(tagKey string) MetadataKeys {
	return MetadataKeys{
		Expiration: tagKey,
		SourceLink: tagKey + ":source-snapshot",
		CopyTo:     tagKey + ":copy-to",
	}
}

// Contains reports whether key is one of the metadata keys. Volume tags with
// these keys are never carried over to snapshots.
func (k MetadataKeys) Contains(key string) bool {
	return key == k.Expiration || key == k.SourceLink || key == k.CopyTo
}

// EncodeExpiration formats an expiration date as a tag value. Only years
// 0000 to 9999 decode back; Parse caps Retention at MaxRetentionDays so
// computed expirations stay in that range.
func EncodeExpiration(date time.Time) string {
	return Day(date).Format(ExpirationLayout)
}

// DecodeExpiration parses an expiration tag value. Values written by the
// legacy scheduler ("2024-01-03;us-west-1,eu-west-1") are accepted too.
func DecodeExpiration(value string) (time.Time, bool) {
	date, _, _ := strings.Cut(value, ";")
	t, err := time.Parse(ExpirationLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EncodeSourceLink formats the id of the snapshot a copy was made from
func EncodeSourceLink(snapshotID string) string {
	return strings.TrimSpace(snapshotID)
}

// DecodeSourceLink returns the source snapshot id stored on a copy
func DecodeSourceLink(value string) (string, bool) {
	id := strings.TrimSpace(value)
	if !strings.HasPrefix(id, "snap-") {
		return "", false
	}
	return id, true
}

// EncodeCopyTo formats pending copy destinations
func EncodeCopyTo(regions []string) string {
	return strings.Join(regions, ",")
}

// DecodeCopyTo parses pending copy destinations. "None" (written on copies by
// the legacy scheduler) decodes to nothing.
func DecodeCopyTo(value string) []string {
	var regions []string
	for _, token := range listTokens(value) {
		token = strings.ToLower(token)
		if token == "none" {
			continue
		}
		regions = append(regions, token)
	}
	return regions
}

// isReservedTag reports tag keys that cannot be set through the EC2 API
func isReservedTag(key string) bool {
	return strings.HasPrefix(strings.ToLower(key), "aws:")
}

// SnapshotTags returns the tags to attach to a snapshot created today under
// policy p. Volume tags are carried over only when CopyTags is set. Metadata
// tags always fit; volume tags beyond MaxSnapshotTags are left out in key
// order and their keys returned as dropped.
func (c *Codec) SnapshotTags(p Policy, today time.Time, volumeTags map[string]string) (tags map[string]string, dropped []string) {
	keys := c.Keys()
	tags = map[string]string{
		keys.Expiration: EncodeExpiration(ComputeExpiration(today, p.RetentionDays)),
	}
	if len(p.CopyTo) > 0 {
		tags[keys.CopyTo] = EncodeCopyTo(p.CopyTo)
	}

	if !p.CopyTags {
		return tags, nil
	}

	carried := lo.Filter(lo.Keys(volumeTags), func(k string, _ int) bool {
		return !isReservedTag(k) && !keys.Contains(k)
	})
	sort.Strings(carried)
	for _, k := range carried {
		if len(tags) >= MaxSnapshotTags {
			dropped = append(dropped, k)
			continue
		}
		tags[k] = volumeTags[k]
	}
	return tags, dropped
}

// DecodeSnapshot recovers the metadata stamped on a snapshot from its tags.
// Missing or unreadable metadata leaves the matching fields empty.
func (c *Codec) DecodeSnapshot(id, volumeID, region, state string, created time.Time, tags map[string]string) SnapshotRecord {
	keys := c.Keys()
	rec := SnapshotRecord{
		ID:          id,
		VolumeID:    volumeID,
		Region:      region,
		State:       state,
		CreatedDate: Day(created),
		Tags:        tags,
	}

	if value, ok := tags[keys.Expiration]; ok {
		if date, ok := DecodeExpiration(value); ok {
			rec.ExpirationDate = date
		}
		if _, legacy, found := strings.Cut(value, ";"); found {
			rec.CopyTo = DecodeCopyTo(legacy)
		}
	}

	if value, ok := tags[keys.SourceLink]; ok {
		if source, ok := DecodeSourceLink(value); ok {
			rec.SourceSnapshotID = source
			rec.IsCopy = true
		}
	}

	if value, ok := tags[keys.CopyTo]; ok {
		rec.CopyTo = DecodeCopyTo(value)
	}
	if rec.IsCopy {
		rec.CopyTo = nil
	}

	return rec
}
