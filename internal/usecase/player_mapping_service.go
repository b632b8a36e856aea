package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/team"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/similarity"
)

// DefaultMatchThreshold is the minimum similarity an automated match needs.
const DefaultMatchThreshold = 0.8

// MatchOptions tunes one matching run.
type MatchOptions struct {
	// Threshold is clamped to [0, 1]; nil selects DefaultMatchThreshold.
	Threshold *float64
	// ConsumeAutomatedMatches removes a secondary record from the candidate
	// pool once an automated match used it. Off by default, which lets one
	// secondary record satisfy several primary records.
	ConsumeAutomatedMatches bool
}

// WithThreshold returns a copy of o using threshold.
func (o MatchOptions) WithThreshold(threshold float64) MatchOptions {
	o.Threshold = &threshold
	return o
}

func (o MatchOptions) threshold() float64 {
	switch {
	case o.Threshold == nil:
		return DefaultMatchThreshold
	case *o.Threshold < 0:
		return 0
	case *o.Threshold > 1:
		return 1
	default:
		return *o.Threshold
	}
}

// AddManualMappingInput is a human-confirmed link to persist in the overlay.
type AddManualMappingInput struct {
	PrimaryID   int64  `validate:"gt=0"`
	SecondaryID string `validate:"required"`
}

type PlayerMappingService struct {
	store     playermap.ManualMappingStore
	validator *validator.Validate
	logger    *logging.Logger
}

func NewPlayerMappingService(store playermap.ManualMappingStore, logger *logging.Logger) *PlayerMappingService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PlayerMappingService{
		store:     store,
		validator: validator.New(),
		logger:    logger,
	}
}

// MapPlayers links primary records to secondary records. Manual links are
// applied first; the remaining records are matched by name similarity inside
// their normalized team. Ids named anywhere in the manual map never enter the
// automated pass. A nil manual map is read from the store.
//
// MapPlayers never fails: malformed rows match on empty strings and an empty
// input table yields an empty mapping table.
func (s *PlayerMappingService) MapPlayers(
	ctx context.Context,
	primary, secondary []playermap.Record,
	manual map[string]string,
	opts MatchOptions,
) playermap.Result {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerMappingService.MapPlayers")
	defer span.End()

	threshold := opts.threshold()
	if len(primary) == 0 || len(secondary) == 0 {
		s.logger.WarnContext(ctx, "skip player mapping: empty source table",
			"primary_count", len(primary),
			"secondary_count", len(secondary),
		)
		return playermap.Result{
			Mappings:  []playermap.Mapping{},
			Unmatched: append([]playermap.Record(nil), primary...),
		}
	}

	if manual == nil && s.store != nil {
		manual = s.store.Load()
	}

	secondaryByID := make(map[string]playermap.Record, len(secondary))
	for _, record := range secondary {
		if _, exists := secondaryByID[record.ID]; !exists {
			secondaryByID[record.ID] = record
		}
	}

	mappings := make([]playermap.Mapping, 0, len(primary))
	mappedPrimary := make(map[string]struct{}, len(primary))
	usedSecondary := make(map[string]struct{}, len(manual))

	for _, record := range primary {
		if _, done := mappedPrimary[record.ID]; done {
			continue
		}
		secondaryID, ok := manual[record.ID]
		if !ok {
			continue
		}
		match, ok := secondaryByID[secondaryID]
		if !ok {
			continue
		}
		if _, used := usedSecondary[secondaryID]; used {
			s.logger.WarnContext(ctx, "skip manual mapping: secondary already linked",
				"primary_id", record.ID,
				"secondary_id", secondaryID,
			)
			continue
		}

		mappings = append(mappings, playermap.Mapping{
			PrimaryID:     record.ID,
			SecondaryID:   match.ID,
			PrimaryName:   record.Name,
			SecondaryName: match.Name,
			MatchType:     playermap.MatchTypeManual,
			Confidence:    playermap.ManualConfidence,
		})
		mappedPrimary[record.ID] = struct{}{}
		usedSecondary[secondaryID] = struct{}{}
	}
	manualCount := len(mappings)

	// Every overlay entry reserves its ids, including links that did not resolve.
	for primaryID, secondaryID := range manual {
		mappedPrimary[primaryID] = struct{}{}
		usedSecondary[secondaryID] = struct{}{}
	}

	buckets := bucketByTeam(secondary, usedSecondary)
	for _, record := range primary {
		if _, done := mappedPrimary[record.ID]; done {
			continue
		}

		best, score := bestCandidate(record, buckets[team.Normalize(record.Team)], usedSecondary)
		if best == nil || score < threshold {
			continue
		}

		mappings = append(mappings, playermap.Mapping{
			PrimaryID:     record.ID,
			SecondaryID:   best.ID,
			PrimaryName:   record.Name,
			SecondaryName: best.Name,
			MatchType:     playermap.MatchTypeAutomated,
			Confidence:    score,
		})
		mappedPrimary[record.ID] = struct{}{}
		if opts.ConsumeAutomatedMatches {
			usedSecondary[best.ID] = struct{}{}
		}
	}

	result := playermap.Result{
		Mappings:  mappings,
		Unmatched: s.UnmatchedRecords(primary, mappings),
	}

	s.logger.InfoContext(ctx, "player mapping finished",
		"primary_count", len(primary),
		"secondary_count", len(secondary),
		"manual", manualCount,
		"automated", len(mappings)-manualCount,
		"unmatched", len(result.Unmatched),
		"threshold", threshold,
		"consume_automated", opts.ConsumeAutomatedMatches,
	)
	return result
}

// UnmatchedRecords returns the primary records whose id is absent from
// mappings, in input order.
func (s *PlayerMappingService) UnmatchedRecords(primary []playermap.Record, mappings []playermap.Mapping) []playermap.Record {
	mapped := playermap.Result{Mappings: mappings}.MappedPrimaryIDs()
	out := make([]playermap.Record, 0, len(primary))
	for _, record := range primary {
		if _, ok := mapped[record.ID]; ok {
			continue
		}
		out = append(out, record)
	}
	return out
}

// NearMisses lists the best same-team candidate for each unmatched record so
// a reviewer can confirm it by hand. Candidates already used by a mapping are
// skipped.
func (s *PlayerMappingService) NearMisses(
	unmatched, secondary []playermap.Record,
	mappings []playermap.Mapping,
) []playermap.NearMiss {
	used := make(map[string]struct{}, len(mappings))
	for _, item := range mappings {
		used[item.SecondaryID] = struct{}{}
	}
	buckets := bucketByTeam(secondary, used)

	out := make([]playermap.NearMiss, 0, len(unmatched))
	for _, record := range unmatched {
		best, score := bestCandidate(record, buckets[team.Normalize(record.Team)], nil)
		miss := playermap.NearMiss{Primary: record, Score: score}
		if best != nil {
			candidate := *best
			miss.Candidate = &candidate
			miss.CleanedScore = similarity.Ratio(playermap.CleanName(record.Name), playermap.CleanName(best.Name))
		}
		out = append(out, miss)
	}
	return out
}

// AddManualMapping validates and persists a reviewed link. A persistence
// failure wraps ErrStorageUnavailable; the link still applies to runs made
// through the same store.
func (s *PlayerMappingService) AddManualMapping(ctx context.Context, input AddManualMappingInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerMappingService.AddManualMapping")
	defer span.End()

	input.SecondaryID = strings.TrimSpace(input.SecondaryID)
	if err := s.validator.StructCtx(ctx, input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.store == nil {
		return fmt.Errorf("%w: manual mapping store is not configured", ErrDependencyUnavailable)
	}

	if err := s.store.Add(ctx, input.PrimaryID, input.SecondaryID); err != nil {
		s.logger.WarnContext(ctx, "manual mapping kept in memory only",
			"primary_id", strconv.FormatInt(input.PrimaryID, 10),
			"secondary_id", input.SecondaryID,
			"error", err,
		)
		return fmt.Errorf("add manual mapping: %w", err)
	}
	return nil
}

// bucketByTeam groups secondary records by normalized team key, preserving
// input order inside each bucket.
func bucketByTeam(records []playermap.Record, exclude map[string]struct{}) map[string][]playermap.Record {
	out := make(map[string][]playermap.Record)
	for _, record := range records {
		if _, skip := exclude[record.ID]; skip {
			continue
		}
		key := team.Normalize(record.Team)
		out[key] = append(out[key], record)
	}
	return out
}

// bestCandidate returns the first candidate with the strictly highest score.
func bestCandidate(record playermap.Record, candidates []playermap.Record, used map[string]struct{}) (*playermap.Record, float64) {
	var best *playermap.Record
	bestScore := 0.0
	for i := range candidates {
		if _, taken := used[candidates[i].ID]; taken {
			continue
		}
		score := similarity.Ratio(record.Name, candidates[i].Name)
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best, bestScore
}
