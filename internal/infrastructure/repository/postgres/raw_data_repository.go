package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
	qb "github.com/riskibarqy/fantasy-player-mapper/internal/platform/querybuilder"
)

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

// UpsertMany stores source payloads keyed by (source, entity_type,
// entity_key). A row whose hash is unchanged keeps its ingested_at.
func (r *RawDataRepository) UpsertMany(ctx context.Context, items []rawdata.Payload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		insertModel := rawSourcePayloadInsertModel{
			Source:          item.Source,
			EntityType:      item.EntityType,
			EntityKey:       item.EntityKey,
			PlayerID:        nullableString(item.PlayerID),
			Payload:         item.PayloadJSON,
			PayloadHash:     item.PayloadHash,
			SourceFetchedAt: item.FetchedAt,
		}

		query, args, err := qb.InsertModel("raw_source_payloads", insertModel, `ON CONFLICT (source, entity_type, entity_key)
DO UPDATE SET
    player_id = EXCLUDED.player_id,
    payload = EXCLUDED.payload,
    payload_hash = EXCLUDED.payload_hash,
    source_fetched_at = EXCLUDED.source_fetched_at,
    ingested_at = NOW()
WHERE raw_source_payloads.payload_hash IS DISTINCT FROM EXCLUDED.payload_hash`)
		if err != nil {
			return fmt.Errorf("build upsert raw payload query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert raw payload entity=%s key=%s: %w", item.EntityType, item.EntityKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}

	return nil
}

type rawSourcePayloadInsertModel struct {
	Source          string     `db:"source"`
	EntityType      string     `db:"entity_type"`
	EntityKey       string     `db:"entity_key"`
	PlayerID        *string    `db:"player_id"`
	Payload         string     `db:"payload"`
	PayloadHash     string     `db:"payload_hash"`
	SourceFetchedAt *time.Time `db:"source_fetched_at"`
}
