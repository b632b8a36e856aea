package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/team"
	playermapmock "github.com/riskibarqy/fantasy-player-mapper/internal/mocks/domain/playermap"
	rawdatamock "github.com/riskibarqy/fantasy-player-mapper/internal/mocks/domain/rawdata"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

type staticSource struct {
	table SourceTable
	err   error
}

func (s staticSource) FetchPlayers(context.Context) (SourceTable, error) {
	return s.table, s.err
}

type recordingHistories struct {
	requested []int64
}

func (h *recordingHistories) FetchPlayerHistories(_ context.Context, ids []int64) ([]rawdata.Payload, error) {
	h.requested = append(h.requested, ids...)
	out := make([]rawdata.Payload, 0, len(ids))
	for range ids {
		out = append(out, rawdata.Payload{Source: "FPL", EntityType: "player_history", EntityKey: "/element-summary/1/", PayloadJSON: `[]`})
	}
	return out, nil
}

type recordingExporter struct {
	unmatched []playermap.Record
	mappings  []playermap.Mapping
	report    playermap.Report
}

func (e *recordingExporter) WriteUnmatched(_ context.Context, records []playermap.Record) (string, error) {
	e.unmatched = records
	return "unmatched.csv", nil
}

func (e *recordingExporter) WriteMappings(_ context.Context, mappings []playermap.Mapping) (string, error) {
	e.mappings = mappings
	return "mappings.json", nil
}

func (e *recordingExporter) WriteReport(_ context.Context, report playermap.Report) (string, error) {
	e.report = report
	return "report.md", nil
}

type countingMetrics struct {
	runs int
}

func (m *countingMetrics) ObserveRun(playermap.Result, time.Duration) {
	m.runs++
}

func fplTable() SourceTable {
	return SourceTable{
		Source: rawdata.SourceFPL,
		Records: []playermap.Record{
			rec("1", "Salah", "Liverpool"),
			rec("2", "Gakpo", "Liverpool"),
			rec("3", "Isak", "Newcastle"),
			rec("x", "Broken", ""),
		},
		Teams: []team.Team{
			{ID: 1, Name: "Liverpool"},
			{ID: 2, Name: "Newcastle"},
			{ID: 3, Name: "Sunderland"},
		},
		Payloads: []rawdata.Payload{{Source: rawdata.SourceFPL, EntityType: "bootstrap_static", EntityKey: "/bootstrap-static/", PayloadJSON: `{"elements":[]}`}},
	}
}

func understatTable() SourceTable {
	salah := rec("u1", "Mohamed Salah", "Liverpool")
	salah.Extra = map[string]any{"xG": 18.5}
	return SourceTable{
		Source: rawdata.SourceUnderstat,
		Records: []playermap.Record{
			salah,
			rec("u3", "Alexander Isak", "Newcastle United"),
		},
		Teams: []team.Team{
			{Name: "Liverpool"},
			{Name: "Newcastle United"},
		},
		Payloads: []rawdata.Payload{{Source: rawdata.SourceUnderstat, EntityType: "league_players", EntityKey: "/league/epl/2024", PayloadJSON: `[]`}},
	}
}

func TestCollectionService_Collect_PersistsAndExports(t *testing.T) {
	t.Parallel()

	mappingRepo := playermapmock.NewRepository(t)
	statsWriter := playermapmock.NewStatsWriter(t)
	rawRepo := rawdatamock.NewRepository(t)
	exporter := &recordingExporter{}
	metrics := &countingMetrics{}
	histories := &recordingHistories{}

	mappingRepo.
		On("UpsertMappings", mock.Anything, mock.MatchedBy(func(items []playermap.Mapping) bool {
			return len(items) == 1 && items[0].PrimaryID == "1" && items[0].SecondaryID == "u1"
		})).
		Return(nil).
		Once()
	statsWriter.
		On("UpsertSecondaryStats", mock.Anything, mock.MatchedBy(func(items []playermap.SecondaryStats) bool {
			return len(items) == 1 &&
				items[0].PrimaryID == "1" &&
				items[0].Attributes["xG"] == 18.5 &&
				items[0].Attributes["match_type"] == "manual"
		})).
		Return(nil).
		Once()
	rawRepo.
		On("UpsertMany", mock.Anything, mock.MatchedBy(func(items []rawdata.Payload) bool {
			if len(items) != 4 {
				return false
			}
			for _, item := range items {
				if len(item.PayloadHash) != 64 || item.Source == "FPL" {
					return false
				}
			}
			return true
		})).
		Return(nil).
		Once()

	matcher := NewPlayerMappingService(staticStore{"1": "u1"}, logging.NewNop())
	service := NewCollectionService(CollectionDeps{
		Primary:     staticSource{table: fplTable()},
		Secondary:   staticSource{table: understatTable()},
		Histories:   histories,
		Matcher:     matcher,
		MappingRepo: mappingRepo,
		StatsWriter: statsWriter,
		RawDataRepo: rawRepo,
		Exporter:    exporter,
		Metrics:     metrics,
		Logger:      logging.NewNop(),
	})

	got, err := service.Collect(context.Background(), CollectInput{HistorySample: 2})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if len(got.Result.Mappings) != 1 {
		t.Fatalf("expected only the manual mapping at default threshold, got %+v", got.Result.Mappings)
	}
	if len(got.Result.Unmatched) != 3 {
		t.Fatalf("expected 3 unmatched, got %+v", got.Result.Unmatched)
	}
	if !got.LowMatchRate {
		t.Fatalf("expected low match rate flag at 25%%")
	}
	if len(got.UnpairedTeams) != 1 || got.UnpairedTeams[0] != "Sunderland" {
		t.Fatalf("unexpected unpaired teams: %v", got.UnpairedTeams)
	}
	if len(histories.requested) != 2 || histories.requested[0] != 1 || histories.requested[1] != 2 {
		t.Fatalf("expected first two numeric ids, got %v", histories.requested)
	}
	if got.HistoriesFetched != 2 {
		t.Fatalf("unexpected histories fetched: %d", got.HistoriesFetched)
	}
	if len(got.Files) != 3 {
		t.Fatalf("expected 3 exported files, got %v", got.Files)
	}
	if len(exporter.unmatched) != 3 || exporter.report.PrimaryCount != 4 {
		t.Fatalf("unexpected export inputs: unmatched=%d report=%+v", len(exporter.unmatched), exporter.report)
	}
	if len(exporter.report.NearMisses) != 3 {
		t.Fatalf("expected a near miss per unmatched record, got %d", len(exporter.report.NearMisses))
	}
	if metrics.runs != 1 {
		t.Fatalf("expected metrics to observe one run, got %d", metrics.runs)
	}
}

func TestCollectionService_Collect_DryRunSkipsStore(t *testing.T) {
	t.Parallel()

	mappingRepo := playermapmock.NewRepository(t)
	rawRepo := rawdatamock.NewRepository(t)

	service := NewCollectionService(CollectionDeps{
		Primary:     staticSource{table: fplTable()},
		Secondary:   staticSource{table: understatTable()},
		MappingRepo: mappingRepo,
		RawDataRepo: rawRepo,
		Logger:      logging.NewNop(),
	})

	got, err := service.Collect(context.Background(), CollectInput{DryRun: true, Match: MatchOptions{}.WithThreshold(0.4)})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got.Result.Mappings) != 2 {
		t.Fatalf("expected salah and isak matched at 0.4, got %+v", got.Result.Mappings)
	}
	if got.Report.Threshold != 0.4 {
		t.Fatalf("unexpected report threshold: %v", got.Report.Threshold)
	}
}

func TestCollectionService_Collect_SourceFailure(t *testing.T) {
	t.Parallel()

	service := NewCollectionService(CollectionDeps{
		Primary:   staticSource{table: fplTable()},
		Secondary: staticSource{err: ErrDependencyUnavailable},
		Logger:    logging.NewNop(),
	})

	_, err := service.Collect(context.Background(), CollectInput{})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestCollectionService_Collect_RequiresSources(t *testing.T) {
	service := NewCollectionService(CollectionDeps{Logger: logging.NewNop()})

	if _, err := service.Collect(context.Background(), CollectInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCollectionService_Collect_PersistFailure(t *testing.T) {
	t.Parallel()

	mappingRepo := playermapmock.NewRepository(t)
	mappingRepo.
		On("UpsertMappings", mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).
		Once()

	service := NewCollectionService(CollectionDeps{
		Primary:     staticSource{table: fplTable()},
		Secondary:   staticSource{table: understatTable()},
		MappingRepo: mappingRepo,
		Logger:      logging.NewNop(),
	})

	if _, err := service.Collect(context.Background(), CollectInput{Match: MatchOptions{}.WithThreshold(0.4)}); err == nil {
		t.Fatalf("expected persist error")
	}
}

func TestCollectionService_ListMappings(t *testing.T) {
	t.Parallel()

	mappingRepo := playermapmock.NewRepository(t)
	want := []playermap.Mapping{{PrimaryID: "1", SecondaryID: "u1", MatchType: playermap.MatchTypeManual, Confidence: 1}}
	mappingRepo.On("ListMappings", mock.Anything).Return(want, nil).Once()

	service := NewCollectionService(CollectionDeps{MappingRepo: mappingRepo, Logger: logging.NewNop()})
	got, err := service.ListMappings(context.Background())
	if err != nil {
		t.Fatalf("list mappings: %v", err)
	}
	if len(got) != 1 || got[0].SecondaryID != "u1" {
		t.Fatalf("unexpected mappings: %+v", got)
	}
}

func TestPrepareRawPayloads_RequiresFields(t *testing.T) {
	_, err := prepareRawPayloads([]rawdata.Payload{{Source: "fpl", EntityType: "x", EntityKey: "k"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type staticStore map[string]string

func (s staticStore) Load() map[string]string {
	out := make(map[string]string, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}

func (s staticStore) Add(_ context.Context, primaryID int64, secondaryID string) error {
	return nil
}
