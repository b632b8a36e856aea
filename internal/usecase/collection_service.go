package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/team"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

// DefaultLowMatchRate is the match rate below which a run is flagged.
const DefaultLowMatchRate = 0.7

// SourceTable is the fully materialized output of one source adapter.
type SourceTable struct {
	Source   string
	Records  []playermap.Record
	Teams    []team.Team
	Payloads []rawdata.Payload
}

type PlayerSource interface {
	FetchPlayers(ctx context.Context) (SourceTable, error)
}

type PlayerHistorySource interface {
	FetchPlayerHistories(ctx context.Context, playerIDs []int64) ([]rawdata.Payload, error)
}

// MatchExporter writes review artifacts and returns the written path.
type MatchExporter interface {
	WriteUnmatched(ctx context.Context, records []playermap.Record) (string, error)
	WriteMappings(ctx context.Context, mappings []playermap.Mapping) (string, error)
	WriteReport(ctx context.Context, report playermap.Report) (string, error)
}

type MatchRecorder interface {
	ObserveRun(result playermap.Result, duration time.Duration)
}

type CollectionDeps struct {
	Primary      PlayerSource
	Secondary    PlayerSource
	Histories    PlayerHistorySource
	Matcher      *PlayerMappingService
	MappingRepo  playermap.Repository
	StatsWriter  playermap.StatsWriter
	RawDataRepo  rawdata.Repository
	Exporter     MatchExporter
	Metrics      MatchRecorder
	Logger       *logging.Logger
	LowMatchRate float64
}

type CollectInput struct {
	Match MatchOptions
	// HistorySample fetches per-player history for the first N primary
	// records. Zero disables it.
	HistorySample int
	// DryRun skips every write to the record store. Exports still run.
	DryRun bool
	// SkipExport skips writing review files.
	SkipExport bool
}

type CollectResult struct {
	Primary          SourceTable
	Secondary        SourceTable
	Result           playermap.Result
	Report           playermap.Report
	UnpairedTeams    []string
	HistoriesFetched int
	LowMatchRate     bool
	Files            []string
}

type CollectionService struct {
	primary      PlayerSource
	secondary    PlayerSource
	histories    PlayerHistorySource
	matcher      *PlayerMappingService
	mappingRepo  playermap.Repository
	statsWriter  playermap.StatsWriter
	rawDataRepo  rawdata.Repository
	exporter     MatchExporter
	metrics      MatchRecorder
	logger       *logging.Logger
	lowMatchRate float64
	now          func() time.Time
}

func NewCollectionService(deps CollectionDeps) *CollectionService {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	matcher := deps.Matcher
	if matcher == nil {
		matcher = NewPlayerMappingService(nil, logger)
	}
	lowMatchRate := deps.LowMatchRate
	if lowMatchRate <= 0 || lowMatchRate > 1 {
		lowMatchRate = DefaultLowMatchRate
	}

	return &CollectionService{
		primary:      deps.Primary,
		secondary:    deps.Secondary,
		histories:    deps.Histories,
		matcher:      matcher,
		mappingRepo:  deps.MappingRepo,
		statsWriter:  deps.StatsWriter,
		rawDataRepo:  deps.RawDataRepo,
		exporter:     deps.Exporter,
		metrics:      deps.Metrics,
		logger:       logger,
		lowMatchRate: lowMatchRate,
		now:          time.Now,
	}
}

// Collect fetches both sources, matches them and persists the outcome. Both
// tables are fully fetched before matching starts.
func (s *CollectionService) Collect(ctx context.Context, input CollectInput) (CollectResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectionService.Collect")
	defer span.End()

	if s.primary == nil || s.secondary == nil {
		return CollectResult{}, fmt.Errorf("%w: both player sources are required", ErrInvalidInput)
	}

	primary, secondary, err := s.fetchTables(ctx)
	if err != nil {
		return CollectResult{}, err
	}

	out := CollectResult{
		Primary:       primary,
		Secondary:     secondary,
		UnpairedTeams: unpairedTeams(primary.Teams, secondary.Teams),
	}
	if len(out.UnpairedTeams) > 0 {
		s.logger.WarnContext(ctx, "teams without counterpart in secondary source",
			"teams", strings.Join(out.UnpairedTeams, ", "),
		)
	}

	started := s.now()
	out.Result = s.matcher.MapPlayers(ctx, primary.Records, secondary.Records, nil, input.Match)
	if s.metrics != nil {
		s.metrics.ObserveRun(out.Result, s.now().Sub(started))
	}

	nearMisses := s.matcher.NearMisses(out.Result.Unmatched, secondary.Records, out.Result.Mappings)
	out.Report = playermap.BuildReport(s.now().UTC(), input.Match.threshold(), primary.Records, secondary.Records, out.Result, nearMisses)

	if len(primary.Records) > 0 && out.Result.MatchRate() < s.lowMatchRate {
		out.LowMatchRate = true
		s.logger.WarnContext(ctx, "low player match rate, review unmatched export",
			"match_rate", out.Result.MatchRate(),
			"warn_below", s.lowMatchRate,
			"unmatched", len(out.Result.Unmatched),
		)
	}

	payloads := append(append([]rawdata.Payload{}, primary.Payloads...), secondary.Payloads...)
	if input.HistorySample > 0 && s.histories != nil {
		histories := s.fetchHistories(ctx, primary.Records, input.HistorySample)
		out.HistoriesFetched = len(histories)
		payloads = append(payloads, histories...)
	}

	if !input.DryRun {
		if err := s.persist(ctx, out.Result, secondary.Records, payloads); err != nil {
			return out, err
		}
	}

	if !input.SkipExport && s.exporter != nil {
		files, err := s.export(ctx, out.Result, out.Report)
		out.Files = files
		if err != nil {
			return out, err
		}
	}

	s.logger.InfoContext(ctx, "collection finished",
		"primary", len(primary.Records),
		"secondary", len(secondary.Records),
		"mapped", len(out.Result.Mappings),
		"unmatched", len(out.Result.Unmatched),
		"histories", out.HistoriesFetched,
		"dry_run", input.DryRun,
	)
	return out, nil
}

// ListMappings returns the mapping table stored by earlier runs.
func (s *CollectionService) ListMappings(ctx context.Context) ([]playermap.Mapping, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectionService.ListMappings")
	defer span.End()

	if s.mappingRepo == nil {
		return nil, fmt.Errorf("%w: mapping repository is not configured", ErrDependencyUnavailable)
	}
	items, err := s.mappingRepo.ListMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return items, nil
}

func (s *CollectionService) fetchTables(ctx context.Context) (SourceTable, SourceTable, error) {
	var primary, secondary SourceTable

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		table, err := s.primary.FetchPlayers(ctx)
		if err != nil {
			return fmt.Errorf("fetch primary players: %w", err)
		}
		primary = table
		return nil
	})
	p.Go(func(ctx context.Context) error {
		table, err := s.secondary.FetchPlayers(ctx)
		if err != nil {
			return fmt.Errorf("fetch secondary players: %w", err)
		}
		secondary = table
		return nil
	})
	if err := p.Wait(); err != nil {
		return SourceTable{}, SourceTable{}, err
	}
	return primary, secondary, nil
}

func (s *CollectionService) fetchHistories(ctx context.Context, records []playermap.Record, limit int) []rawdata.Payload {
	ids := make([]int64, 0, min(limit, len(records)))
	for _, record := range records {
		if len(ids) == limit {
			break
		}
		id, err := strconv.ParseInt(record.ID, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}

	payloads, err := s.histories.FetchPlayerHistories(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "skip player histories", "requested", len(ids), "error", err)
		return nil
	}
	return payloads
}

func (s *CollectionService) persist(ctx context.Context, result playermap.Result, secondary []playermap.Record, payloads []rawdata.Payload) error {
	if s.mappingRepo != nil && len(result.Mappings) > 0 {
		if err := s.mappingRepo.UpsertMappings(ctx, result.Mappings); err != nil {
			return fmt.Errorf("upsert mappings: %w", err)
		}
	}

	if s.statsWriter != nil && len(result.Mappings) > 0 {
		if err := s.statsWriter.UpsertSecondaryStats(ctx, secondaryStats(result.Mappings, secondary)); err != nil {
			return fmt.Errorf("upsert secondary stats: %w", err)
		}
	}

	if s.rawDataRepo != nil && len(payloads) > 0 {
		cleaned, err := prepareRawPayloads(payloads)
		if err != nil {
			return err
		}
		if err := s.rawDataRepo.UpsertMany(ctx, cleaned); err != nil {
			return fmt.Errorf("upsert raw payloads: %w", err)
		}
	}
	return nil
}

func (s *CollectionService) export(ctx context.Context, result playermap.Result, report playermap.Report) ([]string, error) {
	files := make([]string, 0, 3)

	path, err := s.exporter.WriteUnmatched(ctx, result.Unmatched)
	if err != nil {
		return files, fmt.Errorf("export unmatched players: %w", err)
	}
	if path != "" {
		files = append(files, path)
	}

	path, err = s.exporter.WriteMappings(ctx, result.Mappings)
	if err != nil {
		return files, fmt.Errorf("export mappings: %w", err)
	}
	files = append(files, path)

	path, err = s.exporter.WriteReport(ctx, report)
	if err != nil {
		return files, fmt.Errorf("export report: %w", err)
	}
	return append(files, path), nil
}

// secondaryStats copies each mapped secondary record's attributes onto its
// primary player. Secondary ids missing from the table are skipped.
func secondaryStats(mappings []playermap.Mapping, secondary []playermap.Record) []playermap.SecondaryStats {
	byID := make(map[string]playermap.Record, len(secondary))
	for _, record := range secondary {
		if _, exists := byID[record.ID]; !exists {
			byID[record.ID] = record
		}
	}

	out := make([]playermap.SecondaryStats, 0, len(mappings))
	for _, item := range mappings {
		record, ok := byID[item.SecondaryID]
		if !ok {
			continue
		}
		attributes := make(map[string]any, len(record.Extra)+3)
		for key, value := range record.Extra {
			attributes[key] = value
		}
		attributes["secondary_name"] = record.Name
		attributes["match_type"] = string(item.MatchType)
		attributes["confidence"] = item.Confidence

		out = append(out, playermap.SecondaryStats{
			PrimaryID:   item.PrimaryID,
			SecondaryID: item.SecondaryID,
			Attributes:  attributes,
		})
	}
	return out
}

func prepareRawPayloads(items []rawdata.Payload) ([]rawdata.Payload, error) {
	out := make([]rawdata.Payload, 0, len(items))
	for _, item := range items {
		item.Source = strings.ToLower(strings.TrimSpace(item.Source))
		item.EntityType = strings.ToLower(strings.TrimSpace(item.EntityType))
		item.EntityKey = strings.TrimSpace(item.EntityKey)
		item.PlayerID = strings.TrimSpace(item.PlayerID)
		item.PayloadJSON = strings.TrimSpace(item.PayloadJSON)
		if item.Source == "" || item.EntityType == "" || item.EntityKey == "" || item.PayloadJSON == "" {
			return nil, fmt.Errorf("%w: source, entity_type, entity_key and payload are required", ErrInvalidInput)
		}

		hash := sha256.Sum256([]byte(item.PayloadJSON))
		item.PayloadHash = hex.EncodeToString(hash[:])
		out = append(out, item)
	}
	return out, nil
}

// unpairedTeams lists primary teams whose normalized key no secondary team
// shares. A non-empty result usually means the alias table needs an entry.
func unpairedTeams(primary, secondary []team.Team) []string {
	if len(primary) == 0 || len(secondary) == 0 {
		return nil
	}

	keys := make(map[string]struct{}, len(secondary))
	for _, item := range secondary {
		keys[item.Key()] = struct{}{}
	}

	var out []string
	for _, item := range primary {
		if _, ok := keys[item.Key()]; !ok {
			out = append(out, item.Name)
		}
	}
	sort.Strings(out)
	return out
}
