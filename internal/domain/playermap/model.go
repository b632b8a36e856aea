package playermap

import (
	"fmt"
	"strings"
)

// MatchType records how a mapping entry was produced.
type MatchType string

const (
	MatchTypeManual    MatchType = "manual"
	MatchTypeAutomated MatchType = "automated"
)

// ManualConfidence is the fixed confidence carried by human-confirmed links.
const ManualConfidence = 1.0

// Record is one player row produced by a source adapter. Records are treated
// as immutable once fetched.
type Record struct {
	ID    string
	Name  string
	Team  string
	Extra map[string]any
}

// NewRecord builds a record from loosely typed adapter values. Missing values
// become empty strings so matching never fails on a malformed row.
func NewRecord(id, name, team any, extra map[string]any) Record {
	return Record{
		ID:    coerce(id),
		Name:  coerce(name),
		Team:  coerce(team),
		Extra: extra,
	}
}

// Attr returns a passthrough attribute from the extension bag.
func (r Record) Attr(key string) (any, bool) {
	if r.Extra == nil {
		return nil, false
	}
	v, ok := r.Extra[key]
	return v, ok
}

// Mapping links a primary record to a secondary record.
type Mapping struct {
	PrimaryID     string    `json:"primary_id"`
	SecondaryID   string    `json:"secondary_id"`
	PrimaryName   string    `json:"primary_name"`
	SecondaryName string    `json:"secondary_name"`
	MatchType     MatchType `json:"match_type"`
	Confidence    float64   `json:"confidence"`
}

// Result is the outcome of one matching run.
type Result struct {
	Mappings  []Mapping
	Unmatched []Record
}

func (r Result) Count(matchType MatchType) int {
	count := 0
	for _, item := range r.Mappings {
		if item.MatchType == matchType {
			count++
		}
	}
	return count
}

// MatchRate is the share of primary records that ended up mapped.
func (r Result) MatchRate() float64 {
	total := len(r.Mappings) + len(r.Unmatched)
	if total == 0 {
		return 0
	}
	return float64(len(r.Mappings)) / float64(total)
}

// MappedPrimaryIDs returns the set of primary ids present in the mapping table.
func (r Result) MappedPrimaryIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Mappings))
	for _, item := range r.Mappings {
		out[item.PrimaryID] = struct{}{}
	}
	return out
}

// SecondaryStats carries the secondary-source attributes attached to a mapped
// primary player.
type SecondaryStats struct {
	PrimaryID   string
	SecondaryID string
	Attributes  map[string]any
}

func coerce(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
