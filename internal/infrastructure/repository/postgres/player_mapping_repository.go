package postgres

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	qb "github.com/riskibarqy/fantasy-player-mapper/internal/platform/querybuilder"
)

type PlayerMappingRepository struct {
	db        *sqlx.DB
	validator *validator.Validate
}

func NewPlayerMappingRepository(db *sqlx.DB) *PlayerMappingRepository {
	return &PlayerMappingRepository{db: db, validator: validator.New()}
}

// UpsertMappings replaces the stored link of every primary id in items. Rows
// are validated before the transaction opens so a bad row writes nothing.
func (r *PlayerMappingRepository) UpsertMappings(ctx context.Context, items []playermap.Mapping) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]playerMappingTableModel, 0, len(items))
	for _, item := range items {
		row, err := toPlayerMappingTableModel(item)
		if err != nil {
			return fmt.Errorf("convert player mapping: %w", err)
		}
		if err := r.validator.StructCtx(ctx, row); err != nil {
			return fmt.Errorf("validate player mapping primary_id=%d: %w", row.PrimaryID, err)
		}
		rows = append(rows, row)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert player mappings: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, row := range rows {
		query, args, err := qb.InsertModel("player_mappings", row, `ON CONFLICT (primary_id)
DO UPDATE SET
    secondary_id = EXCLUDED.secondary_id,
    primary_name = EXCLUDED.primary_name,
    secondary_name = EXCLUDED.secondary_name,
    match_type = EXCLUDED.match_type,
    confidence = EXCLUDED.confidence,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert player mapping query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player mapping primary_id=%d: %w", row.PrimaryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert player mappings tx: %w", err)
	}
	return nil
}

func (r *PlayerMappingRepository) ListMappings(ctx context.Context) ([]playermap.Mapping, error) {
	query, args, err := qb.Select(
		"primary_id",
		"secondary_id",
		"primary_name",
		"secondary_name",
		"match_type",
		"confidence",
	).From("player_mappings").
		OrderBy("primary_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player mappings query: %w", err)
	}

	var rows []playerMappingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isUndefinedTable(err) {
			return []playermap.Mapping{}, nil
		}
		return nil, fmt.Errorf("list player mappings: %w", err)
	}

	out := make([]playermap.Mapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
