// Package fpl adapts the official Fantasy Premier League API into the
// primary player table.
package fpl

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fantasy-player-mapper/external/sourcehttp"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/team"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

const (
	defaultBaseURL        = "https://fantasy.premierleague.com/api"
	defaultHistoryWorkers = 8
	bootstrapPath         = "/bootstrap-static/"
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	HistoryWorkers int
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerConfig
}

type Client struct {
	http           *sourcehttp.Client
	historyWorkers int
	logger         *logging.Logger
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	workers := cfg.HistoryWorkers
	if workers <= 0 {
		workers = defaultHistoryWorkers
	}

	return &Client{
		http: sourcehttp.New(sourcehttp.Config{
			Name:       rawdata.SourceFPL,
			HTTPClient: cfg.HTTPClient,
			BaseURL:    baseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
			Breaker:    cfg.CircuitBreaker,
		}),
		historyWorkers: workers,
		logger:         logger,
		now:            time.Now,
	}
}

// FetchPlayers loads bootstrap-static and returns one record per element,
// keyed by element id and named by web_name.
func (c *Client) FetchPlayers(ctx context.Context) (usecase.SourceTable, error) {
	var envelope bootstrapEnvelope
	raw, err := c.http.GetJSON(ctx, bootstrapPath, nil, &envelope)
	if err != nil {
		return usecase.SourceTable{}, fmt.Errorf("fetch fpl bootstrap-static: %w", err)
	}

	teamsByID := make(map[int64]bootstrapTeam, len(envelope.Teams))
	teams := make([]team.Team, 0, len(envelope.Teams))
	for _, item := range envelope.Teams {
		teamsByID[item.ID] = item
		teams = append(teams, team.Team{ID: item.ID, Name: item.Name, ShortName: item.ShortName})
	}
	positions := make(map[int64]string, len(envelope.ElementTypes))
	for _, item := range envelope.ElementTypes {
		positions[item.ID] = item.SingularName
	}

	records := make([]playermap.Record, 0, len(envelope.Elements))
	for _, item := range envelope.Elements {
		records = append(records, toRecord(item, teamsByID[item.Team].Name, positions[item.ElementType]))
	}

	fetchedAt := c.now().UTC()
	c.logger.InfoContext(ctx, "fetched fpl players", "players", len(records), "teams", len(teams))
	return usecase.SourceTable{
		Source:  rawdata.SourceFPL,
		Records: records,
		Teams:   teams,
		Payloads: []rawdata.Payload{{
			Source:      rawdata.SourceFPL,
			EntityType:  "bootstrap_static",
			EntityKey:   bootstrapPath,
			PayloadJSON: string(raw),
			FetchedAt:   &fetchedAt,
		}},
	}, nil
}

// FetchPlayerHistories loads element-summary for each id on a bounded worker
// pool. Failed ids are logged and skipped; the result is ordered by id.
func (c *Client) FetchPlayerHistories(ctx context.Context, playerIDs []int64) ([]rawdata.Payload, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(min(c.historyWorkers, len(playerIDs)))
	if err != nil {
		return nil, fmt.Errorf("create history worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		out      = make([]rawdata.Payload, 0, len(playerIDs))
		failed   int
		fetchErr error
	)
	err = runHistoryTasks(pool, playerIDs, func(playerID int64) {
		payload, err := c.fetchHistory(ctx, playerID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed++
			fetchErr = err
			c.logger.WarnContext(ctx, "fetch fpl player history failed", "player_id", playerID, "error", err)
			return
		}
		out = append(out, payload)
	})
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(out) == 0 && fetchErr != nil {
		return nil, fmt.Errorf("fetch fpl player histories: %w", fetchErr)
	}

	sort.Slice(out, func(i, j int) bool {
		left, _ := strconv.ParseInt(out[i].PlayerID, 10, 64)
		right, _ := strconv.ParseInt(out[j].PlayerID, 10, 64)
		return left < right
	})
	c.logger.InfoContext(ctx, "fetched fpl player histories", "requested", len(playerIDs), "fetched", len(out), "failed", failed)
	return out, nil
}

// runHistoryTasks submits one task per id and waits for every submitted task,
// including when a later submit fails.
func runHistoryTasks(pool *ants.Pool, playerIDs []int64, task func(playerID int64)) error {
	var workers sync.WaitGroup
	for _, playerID := range playerIDs {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			task(playerID)
		}); err != nil {
			workers.Done()
			workers.Wait()
			return fmt.Errorf("submit history task player_id=%d: %w", playerID, err)
		}
	}
	workers.Wait()
	return nil
}

func (c *Client) fetchHistory(ctx context.Context, playerID int64) (rawdata.Payload, error) {
	path := fmt.Sprintf("/element-summary/%d/", playerID)
	var summary elementSummary
	raw, err := c.http.GetJSON(ctx, path, nil, &summary)
	if err != nil {
		return rawdata.Payload{}, err
	}

	history := raw
	if len(summary.History) > 0 {
		history, err = sonic.Marshal(summary.History)
		if err != nil {
			return rawdata.Payload{}, fmt.Errorf("encode history player_id=%d: %w", playerID, err)
		}
	}

	fetchedAt := c.now().UTC()
	return rawdata.Payload{
		Source:      rawdata.SourceFPL,
		EntityType:  "player_history",
		EntityKey:   path,
		PlayerID:    strconv.FormatInt(playerID, 10),
		PayloadJSON: string(history),
		FetchedAt:   &fetchedAt,
	}, nil
}

func toRecord(item element, teamName, position string) playermap.Record {
	extra := map[string]any{
		"first_name":   item.FirstName,
		"second_name":  item.SecondName,
		"team_id":      item.Team,
		"position":     position,
		"now_cost":     item.NowCost,
		"total_points": item.TotalPoints,
		"minutes":      item.Minutes,
		"status":       item.Status,
	}
	if item.Minutes > 0 {
		extra["points_per_90"] = float64(item.TotalPoints) / float64(item.Minutes) * 90
	}
	if item.NowCost > 0 {
		extra["value"] = float64(item.TotalPoints) / (float64(item.NowCost) / 10)
	}
	return playermap.NewRecord(item.ID, item.WebName, teamName, extra)
}

type bootstrapEnvelope struct {
	Elements     []element       `json:"elements"`
	Teams        []bootstrapTeam `json:"teams"`
	ElementTypes []elementType   `json:"element_types"`
}

type element struct {
	ID          int64  `json:"id"`
	WebName     string `json:"web_name"`
	FirstName   string `json:"first_name"`
	SecondName  string `json:"second_name"`
	Team        int64  `json:"team"`
	ElementType int64  `json:"element_type"`
	NowCost     int    `json:"now_cost"`
	TotalPoints int    `json:"total_points"`
	Minutes     int    `json:"minutes"`
	Status      string `json:"status"`
}

type bootstrapTeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type elementType struct {
	ID           int64  `json:"id"`
	SingularName string `json:"singular_name"`
}

type elementSummary struct {
	History []map[string]any `json:"history"`
}
