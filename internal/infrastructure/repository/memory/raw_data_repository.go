package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
)

type rawDataKey struct {
	source     string
	entityType string
	entityKey  string
}

type RawDataRepository struct {
	mu    sync.RWMutex
	items map[rawDataKey]rawdata.Payload
	now   func() time.Time
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{
		items: make(map[rawDataKey]rawdata.Payload),
		now:   time.Now,
	}
}

// UpsertMany stores payloads by (source, entity type, entity key). An entry
// with an unchanged hash is left untouched.
func (r *RawDataRepository) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		key := rawDataKey{source: item.Source, entityType: item.EntityType, entityKey: item.EntityKey}
		if existing, ok := r.items[key]; ok && existing.PayloadHash == item.PayloadHash {
			continue
		}
		if item.FetchedAt == nil {
			now := r.now().UTC()
			item.FetchedAt = &now
		}
		r.items[key] = item
	}
	return nil
}

func (r *RawDataRepository) Get(source, entityType, entityKey string) (rawdata.Payload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[rawDataKey{source: source, entityType: entityType, entityKey: entityKey}]
	return item, ok
}

func (r *RawDataRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
