package playermap

import "context"

// ManualMappingStore is the persisted overlay of human-confirmed links keyed
// by primary id.
type ManualMappingStore interface {
	Load() map[string]string
	Add(ctx context.Context, primaryID int64, secondaryID string) error
}

// Repository persists the mapping table keyed by primary id.
type Repository interface {
	UpsertMappings(ctx context.Context, items []Mapping) error
	ListMappings(ctx context.Context) ([]Mapping, error)
}

// StatsWriter attaches secondary-source attributes to mapped primary players.
type StatsWriter interface {
	UpsertSecondaryStats(ctx context.Context, items []SecondaryStats) error
}
