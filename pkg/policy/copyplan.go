package policy

// CopyInstruction asks for one cross-region copy of a source snapshot
type CopyInstruction struct {
	SourceSnapshotID  string
	SourceRegion      string
	DestinationRegion string
	Tags              map[string]string
}

// CopyIndex maps a destination region to the ids of source snapshots that
// already have a copy there. It is rebuilt every run from the source link
// tag on copies, so no external state is needed to stay idempotent.
type CopyIndex map[string]map[string]struct{}

// NewCopyIndex indexes the copies among records
func NewCopyIndex(records []SnapshotRecord) CopyIndex {
	index := make(CopyIndex)
	for _, rec := range records {
		if rec.IsCopy {
			index.Add(rec.Region, rec.SourceSnapshotID)
		}
	}
	return index
}

// Add records that sourceID has a copy in region
func (x CopyIndex) Add(region, sourceID string) {
	if x[region] == nil {
		x[region] = make(map[string]struct{})
	}
	x[region][sourceID] = struct{}{}
}

// Has reports whether sourceID already has a copy in region
func (x CopyIndex) Has(region, sourceID string) bool {
	_, ok := x[region][sourceID]
	return ok
}

// Planner computes cross-region copy instructions
type Planner struct {
	keys MetadataKeys
}

// NewPlanner creates a Planner writing the metadata keys of codec
func NewPlanner(codec *Codec) *Planner {
	return &Planner{keys: codec.Keys()}
}

// Plan returns one instruction per region of p.CopyTo, in declaration order,
// that does not already hold a copy of snap. The snapshot's own region is
// skipped, and copies are never copied again.
//
// Each instruction carries the source link, the source's expiration tag as
// is (copies expire with their source) and, when p.CopyTags is set, the
// volume tags.
func (pl *Planner) Plan(p Policy, snap SnapshotRecord, volumeTags map[string]string, existing CopyIndex) []CopyInstruction {
	if snap.IsCopy {
		return nil
	}

	var instructions []CopyInstruction
	for _, region := range p.CopyTo {
		if region == snap.Region || existing.Has(region, snap.ID) {
			continue
		}
		instructions = append(instructions, CopyInstruction{
			SourceSnapshotID:  snap.ID,
			SourceRegion:      snap.Region,
			DestinationRegion: region,
			Tags:              pl.copyTags(p, snap, volumeTags),
		})
	}
	return instructions
}

func (pl *Planner) copyTags(p Policy, snap SnapshotRecord, volumeTags map[string]string) map[string]string {
	tags := make(map[string]string)
	if p.CopyTags {
		for k, v := range volumeTags {
			if isReservedTag(k) || pl.keys.Contains(k) {
				continue
			}
			tags[k] = v
		}
	}

	if value, ok := snap.Tags[pl.keys.Expiration]; ok {
		tags[pl.keys.Expiration] = value
	} else if snap.HasExpiration() {
		tags[pl.keys.Expiration] = EncodeExpiration(snap.ExpirationDate)
	}
	tags[pl.keys.SourceLink] = EncodeSourceLink(snap.ID)
	return tags
}
