package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	qb "github.com/riskibarqy/fantasy-player-mapper/internal/platform/querybuilder"
)

type SecondaryStatsRepository struct {
	db *sqlx.DB
}

func NewSecondaryStatsRepository(db *sqlx.DB) *SecondaryStatsRepository {
	return &SecondaryStatsRepository{db: db}
}

func (r *SecondaryStatsRepository) UpsertSecondaryStats(ctx context.Context, items []playermap.SecondaryStats) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]secondaryStatsTableModel, 0, len(items))
	for _, item := range items {
		primaryID, err := strconv.ParseInt(strings.TrimSpace(item.PrimaryID), 10, 64)
		if err != nil {
			return fmt.Errorf("secondary stats primary id %q is not numeric: %w", item.PrimaryID, err)
		}
		attributes, err := sonic.MarshalString(item.Attributes)
		if err != nil {
			return fmt.Errorf("encode secondary stats primary_id=%d: %w", primaryID, err)
		}
		rows = append(rows, secondaryStatsTableModel{
			PrimaryID:   primaryID,
			SecondaryID: strings.TrimSpace(item.SecondaryID),
			Attributes:  attributes,
		})
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert secondary stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, row := range rows {
		query, args, err := qb.InsertModel("player_secondary_stats", row, `ON CONFLICT (primary_id)
DO UPDATE SET
    secondary_id = EXCLUDED.secondary_id,
    attributes = EXCLUDED.attributes,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert secondary stats query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert secondary stats primary_id=%d: %w", row.PrimaryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert secondary stats tx: %w", err)
	}
	return nil
}
