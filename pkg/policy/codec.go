package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
	"github.com/younsl/autosnap/pkg/utils"
)

// Codec parses volume policy tags and encodes snapshot metadata tags.
// It is safe for concurrent use once constructed.
type Codec struct {
	tagKey           string
	defaultRetention int
	regions          RegionSet
}

// RegionSet is the set of region ids accepted in CopyTo
type RegionSet map[string]struct{}

// NewRegionSet builds a RegionSet from region ids, normalizing case
func NewRegionSet(ids []string) RegionSet {
	set := make(RegionSet, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether id is in the set
func (s RegionSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// NewCodec creates a Codec. An empty tagKey selects DefaultTagKey, a
// non-positive retention selects DefaultRetentionDays and an empty region
// set falls back to the built-in list of known AWS regions.
func NewCodec(tagKey string, defaultRetention int, regions RegionSet) *Codec {
	if tagKey == "" {
		tagKey = DefaultTagKey
	}
	if defaultRetention <= 0 {
		defaultRetention = DefaultRetentionDays
	}
	defaultRetention = min(defaultRetention, MaxRetentionDays)
	return &Codec{
		tagKey:           tagKey,
		defaultRetention: defaultRetention,
		regions:          regions,
	}
}

// TagKey returns the policy tag key
func (c *Codec) TagKey() string { return c.tagKey }

// Keys returns the tag keys used for snapshot metadata
func (c *Codec) Keys() MetadataKeys { return newMetadataKeys(c.tagKey) }

// IsValidRegion reports whether id may be used as a copy destination
func (c *Codec) IsValidRegion(id string) bool {
	if len(c.regions) == 0 {
		return utils.IsValidRegion(id)
	}
	return c.regions.Contains(id)
}

// FromTags looks up the policy tag in a volume's tags. The boolean is false
// only when the tag is absent, which excludes the volume from processing;
// a present tag that disables backups still yields a Policy.
func (c *Codec) FromTags(tags map[string]string) (Policy, bool) {
	value, ok := tags[c.tagKey]
	if !ok {
		return Policy{}, false
	}
	return c.Parse(value), true
}

// Parse decodes a tag value such as
//
//	Enable=Yes;Type=Weekly;When=Mon,Thu;Retention=7;CopyTags=Yes;CopyTo=us-west-1
//
// Parse never fails: every malformed field falls back to its default on its
// own, and list fields drop invalid tokens one at a time.
func (c *Codec) Parse(value string) Policy {
	p := Default(c.defaultRetention)
	fields := splitFields(value, &p)

	p.Enabled = isYes(fields["enable"])
	p.CopyTags = isYes(fields["copytags"])

	if raw, ok := fields["type"]; ok {
		recurrence, valid := parseRecurrence(raw)
		if !valid {
			p.Issues = append(p.Issues, fmt.Sprintf("Type: unknown value %q, using %s", raw, RecurrenceDaily))
		}
		p.Recurrence = recurrence
	}

	if raw, ok := fields["retention"]; ok {
		days, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil || days <= 0:
			p.Issues = append(p.Issues, fmt.Sprintf("Retention: invalid value %q, using %d", raw, c.defaultRetention))
		case days > MaxRetentionDays:
			p.Issues = append(p.Issues, fmt.Sprintf("Retention: %d days exceeds the maximum, using %d", days, MaxRetentionDays))
			p.RetentionDays = MaxRetentionDays
		default:
			p.RetentionDays = days
		}
	}

	switch p.Recurrence {
	case RecurrenceWeekly:
		p.Weekdays = c.parseWeekdays(fields["when"], &p)
	case RecurrenceMonthly:
		p.MonthDays = c.parseMonthDays(fields["when"], &p)
	}

	p.CopyTo = c.parseRegions(fields["copyto"], &p)

	return p
}

// splitFields splits "k=v;k=v" into a lowercase-keyed map. Later duplicates win.
func splitFields(value string, p *Policy) map[string]string {
	fields := make(map[string]string)
	for _, option := range strings.Split(value, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		key, val, found := strings.Cut(option, "=")
		if !found {
			p.Issues = append(p.Issues, fmt.Sprintf("ignored malformed option %q", option))
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return fields
}

func isYes(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "yes")
}

// listTokens splits a list value on commas and whitespace
func listTokens(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// parseWeekday accepts a full weekday name or any prefix of at least three
// letters ("tue", "Tues", "TUESDAY").
func parseWeekday(token string) (time.Weekday, bool) {
	token = strings.ToLower(token)
	if len(token) < 3 {
		return 0, false
	}
	for day, name := range weekdayNames {
		if strings.HasPrefix(name, token) {
			return day, true
		}
	}
	return 0, false
}

func (c *Codec) parseWeekdays(value string, p *Policy) []time.Weekday {
	var days []time.Weekday
	for _, token := range listTokens(value) {
		day, ok := parseWeekday(token)
		if !ok {
			p.Issues = append(p.Issues, fmt.Sprintf("When: dropped weekday %q", token))
			continue
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		p.Issues = append(p.Issues, "When: no valid weekday, policy never matches")
		return nil
	}
	return lo.Uniq(days)
}

func (c *Codec) parseMonthDays(value string, p *Policy) []int {
	var days []int
	for _, token := range listTokens(value) {
		day, err := strconv.Atoi(token)
		if err != nil || day < 1 || day > 31 {
			p.Issues = append(p.Issues, fmt.Sprintf("When: dropped day of month %q", token))
			continue
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		p.Issues = append(p.Issues, "When: no valid day of month, policy never matches")
		return nil
	}
	return lo.Uniq(days)
}

func (c *Codec) parseRegions(value string, p *Policy) []string {
	var regions []string
	for _, token := range listTokens(value) {
		region := strings.ToLower(token)
		if !c.IsValidRegion(region) {
			p.Issues = append(p.Issues, fmt.Sprintf("CopyTo: dropped unknown region %q", token))
			continue
		}
		regions = append(regions, region)
	}
	if len(regions) == 0 {
		return nil
	}
	return lo.Uniq(regions)
}

// String renders the policy back into tag syntax with every field explicit
func (p Policy) String() string {
	parts := []string{
		"Enable=" + yesNo(p.Enabled),
		"Type=" + string(p.Recurrence),
	}
	switch p.Recurrence {
	case RecurrenceWeekly:
		names := lo.Map(p.Weekdays, func(d time.Weekday, _ int) string { return d.String()[:3] })
		parts = append(parts, "When="+strings.Join(names, ","))
	case RecurrenceMonthly:
		days := lo.Map(p.MonthDays, func(d int, _ int) string { return strconv.Itoa(d) })
		parts = append(parts, "When="+strings.Join(days, ","))
	}
	parts = append(parts,
		"Retention="+strconv.Itoa(p.RetentionDays),
		"CopyTags="+yesNo(p.CopyTags),
	)
	if len(p.CopyTo) > 0 {
		parts = append(parts, "CopyTo="+strings.Join(p.CopyTo, ","))
	}
	return strings.Join(parts, ";")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
