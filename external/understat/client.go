// Package understat scrapes the Understat league page into the secondary
// player table. Understat has no public API; player data is embedded in the
// page as a JSON.parse('...') call.
package understat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-player-mapper/external/sourcehttp"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/team"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

const (
	defaultBaseURL = "https://understat.com"
	defaultLeague  = "epl"
)

var playersDataRegex = regexp.MustCompile(`var\s+playersData\s*=\s*JSON\.parse\('(.*?)'\)`)

var numericFields = []string{
	"games", "time", "goals", "assists", "shots", "key_passes",
	"yellow_cards", "red_cards", "xG", "xA", "npg", "npxG", "xGChain", "xGBuildup",
}

type ClientConfig struct {
	HTTPClient        *http.Client
	BaseURL           string
	League            string
	Season            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	Logger            *logging.Logger
	CircuitBreaker    resilience.BreakerConfig
}

type Client struct {
	http   *sourcehttp.Client
	league string
	season string
	logger *logging.Logger
	now    func() time.Time
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
	league := strings.TrimSpace(cfg.League)
	if league == "" {
		league = defaultLeague
	}
	season := strings.TrimSpace(cfg.Season)
	if season == "" {
		season = strconv.Itoa(currentSeason(time.Now()))
	}

	return &Client{
		http: sourcehttp.New(sourcehttp.Config{
			Name:              rawdata.SourceUnderstat,
			HTTPClient:        cfg.HTTPClient,
			BaseURL:           baseURL,
			Timeout:           cfg.Timeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerMinute: cfg.RequestsPerMinute,
			Logger:            logger,
			Breaker:           cfg.CircuitBreaker,
		}),
		league: league,
		season: season,
		logger: logger,
		now:    time.Now,
	}
}

// FetchPlayers loads the league page for the configured season.
func (c *Client) FetchPlayers(ctx context.Context) (usecase.SourceTable, error) {
	path := "/league/" + url.PathEscape(c.league) + "/" + url.PathEscape(c.season)
	page, err := c.http.Get(ctx, path, nil, "text/html")
	if err != nil {
		return usecase.SourceTable{}, fmt.Errorf("fetch understat league page: %w", err)
	}

	payload, err := extractPlayersData(page)
	if err != nil {
		return usecase.SourceTable{}, fmt.Errorf("extract understat players league=%s season=%s: %w", c.league, c.season, err)
	}

	var rows []map[string]any
	if err := sonic.Unmarshal(payload, &rows); err != nil {
		return usecase.SourceTable{}, fmt.Errorf("decode understat players: %w", err)
	}

	records := make([]playermap.Record, 0, len(rows))
	seenTeams := make(map[string]struct{})
	teams := make([]team.Team, 0, 20)
	for _, row := range rows {
		record := toRecord(row)
		records = append(records, record)
		if _, ok := seenTeams[record.Team]; !ok && record.Team != "" {
			seenTeams[record.Team] = struct{}{}
			teams = append(teams, team.Team{Name: record.Team})
		}
	}

	fetchedAt := c.now().UTC()
	c.logger.InfoContext(ctx, "fetched understat players",
		"players", len(records),
		"teams", len(teams),
		"league", c.league,
		"season", c.season,
	)
	return usecase.SourceTable{
		Source:  rawdata.SourceUnderstat,
		Records: records,
		Teams:   teams,
		Payloads: []rawdata.Payload{{
			Source:      rawdata.SourceUnderstat,
			EntityType:  "league_players",
			EntityKey:   path,
			PayloadJSON: string(payload),
			FetchedAt:   &fetchedAt,
		}},
	}, nil
}

func extractPlayersData(page []byte) ([]byte, error) {
	match := playersDataRegex.FindSubmatch(page)
	if match == nil {
		return nil, fmt.Errorf("playersData not found in page")
	}
	decoded, err := unescapeJSString(string(match[1]))
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}

// toRecord keeps the current club for players transferred mid-season; the
// page lists them as "Old Club,New Club".
func toRecord(row map[string]any) playermap.Record {
	extra := make(map[string]any, len(row))
	for key, value := range row {
		extra[key] = value
	}
	for _, field := range numericFields {
		raw, ok := extra[field]
		if !ok {
			continue
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(raw)), 64); err == nil {
			extra[field] = parsed
		}
	}

	teamTitle, _ := row["team_title"].(string)
	teamTitle = strings.TrimSpace(teamTitle)
	if parts := strings.Split(teamTitle, ","); len(parts) > 1 {
		extra["team_history"] = teamTitle
		teamTitle = strings.TrimSpace(parts[len(parts)-1])
	}

	return playermap.NewRecord(row["id"], row["player_name"], teamTitle, extra)
}

// currentSeason returns the starting year of the season in progress. Seasons
// roll over in July.
func currentSeason(now time.Time) int {
	if now.Month() >= time.July {
		return now.Year()
	}
	return now.Year() - 1
}
