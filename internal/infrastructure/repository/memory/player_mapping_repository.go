package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
)

// PlayerMappingRepository keeps the mapping table in process memory. It backs
// dry runs and runs without a database.
type PlayerMappingRepository struct {
	mu        sync.RWMutex
	byPrimary map[string]playermap.Mapping
}

func NewPlayerMappingRepository() *PlayerMappingRepository {
	return &PlayerMappingRepository{byPrimary: make(map[string]playermap.Mapping)}
}

func (r *PlayerMappingRepository) UpsertMappings(_ context.Context, items []playermap.Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		primaryID := strings.TrimSpace(item.PrimaryID)
		if primaryID == "" {
			continue
		}
		item.PrimaryID = primaryID
		r.byPrimary[primaryID] = item
	}
	return nil
}

// ListMappings returns the table ordered by numeric primary id; non-numeric
// ids sort after numeric ones.
func (r *PlayerMappingRepository) ListMappings(_ context.Context) ([]playermap.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Collect(maps.Values(r.byPrimary))
	slices.SortFunc(out, func(a, b playermap.Mapping) int {
		ai, aErr := strconv.ParseInt(a.PrimaryID, 10, 64)
		bi, bErr := strconv.ParseInt(b.PrimaryID, 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			return cmp.Compare(ai, bi)
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			return strings.Compare(a.PrimaryID, b.PrimaryID)
		}
	})
	if out == nil {
		out = []playermap.Mapping{}
	}
	return out, nil
}

type SecondaryStatsRepository struct {
	mu        sync.RWMutex
	byPrimary map[string]playermap.SecondaryStats
}

func NewSecondaryStatsRepository() *SecondaryStatsRepository {
	return &SecondaryStatsRepository{byPrimary: make(map[string]playermap.SecondaryStats)}
}

func (r *SecondaryStatsRepository) UpsertSecondaryStats(_ context.Context, items []playermap.SecondaryStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		primaryID := strings.TrimSpace(item.PrimaryID)
		if primaryID == "" {
			continue
		}
		item.PrimaryID = primaryID
		item.Attributes = maps.Clone(item.Attributes)
		r.byPrimary[primaryID] = item
	}
	return nil
}

func (r *SecondaryStatsRepository) GetByPrimaryID(_ context.Context, primaryID string) (playermap.SecondaryStats, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byPrimary[strings.TrimSpace(primaryID)]
	if !ok {
		return playermap.SecondaryStats{}, false, nil
	}
	item.Attributes = maps.Clone(item.Attributes)
	return item, true, nil
}
