package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
)

type playerMappingTableModel struct {
	PrimaryID     int64   `db:"primary_id" validate:"gt=0"`
	SecondaryID   string  `db:"secondary_id" validate:"required"`
	PrimaryName   string  `db:"primary_name"`
	SecondaryName string  `db:"secondary_name"`
	MatchType     string  `db:"match_type" validate:"oneof=manual automated"`
	Confidence    float64 `db:"confidence" validate:"gte=0,lte=1"`
}

func toPlayerMappingTableModel(item playermap.Mapping) (playerMappingTableModel, error) {
	primaryID, err := strconv.ParseInt(strings.TrimSpace(item.PrimaryID), 10, 64)
	if err != nil {
		return playerMappingTableModel{}, fmt.Errorf("primary id %q is not numeric: %w", item.PrimaryID, err)
	}

	return playerMappingTableModel{
		PrimaryID:     primaryID,
		SecondaryID:   strings.TrimSpace(item.SecondaryID),
		PrimaryName:   item.PrimaryName,
		SecondaryName: item.SecondaryName,
		MatchType:     string(item.MatchType),
		Confidence:    item.Confidence,
	}, nil
}

func (m playerMappingTableModel) toDomain() playermap.Mapping {
	return playermap.Mapping{
		PrimaryID:     strconv.FormatInt(m.PrimaryID, 10),
		SecondaryID:   m.SecondaryID,
		PrimaryName:   m.PrimaryName,
		SecondaryName: m.SecondaryName,
		MatchType:     playermap.MatchType(m.MatchType),
		Confidence:    m.Confidence,
	}
}

type secondaryStatsTableModel struct {
	PrimaryID   int64  `db:"primary_id"`
	SecondaryID string `db:"secondary_id"`
	Attributes  string `db:"attributes"`
}
