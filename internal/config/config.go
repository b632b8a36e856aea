package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
)

// Config stores runtime configuration for the mapper.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	DBEnabled bool
	DBURL     string

	FPLBaseURL        string
	FPLTimeout        time.Duration
	FPLMaxRetries     int
	FPLHistoryWorkers int

	UnderstatBaseURL           string
	UnderstatLeague            string
	UnderstatSeason            string
	UnderstatTimeout           time.Duration
	UnderstatMaxRetries        int
	UnderstatRequestsPerMinute int

	SourceCircuitEnabled        bool
	SourceCircuitFailureCount   int
	SourceCircuitOpenTimeout    time.Duration
	SourceCircuitHalfOpenMaxReq int

	MappingFile           string
	MatchThreshold        float64
	MatchConsumeAutomated bool
	ExportDir             string
	LowMatchRateWarn      float64
	MetricsTextfile       string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:           appEnv,
		ServiceName:      getEnv("APP_SERVICE_NAME", "fantasy-player-mapper"),
		ServiceVersion:   getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:         parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		DBURL:            strings.TrimSpace(getEnv("DB_URL", "")),
		FPLBaseURL:       strings.TrimRight(getEnv("FPL_BASE_URL", "https://fantasy.premierleague.com/api"), "/"),
		UnderstatBaseURL: strings.TrimRight(getEnv("UNDERSTAT_BASE_URL", "https://understat.com"), "/"),
		UnderstatLeague:  strings.TrimSpace(getEnv("UNDERSTAT_LEAGUE", "EPL")),
		UnderstatSeason:  strings.TrimSpace(getEnv("UNDERSTAT_SEASON", "")),
		MappingFile:      strings.TrimSpace(getEnv("MAPPING_FILE", "data/processed/player_mapping.json")),
		ExportDir:        strings.TrimSpace(getEnv("EXPORT_DIR", "data/processed")),
		MetricsTextfile:  strings.TrimSpace(getEnv("METRICS_TEXTFILE", "")),
	}

	cfg.DBEnabled, err = strconv.ParseBool(getEnv("DB_ENABLED", strconv.FormatBool(cfg.DBURL != "")))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_ENABLED: %w", err)
	}
	if cfg.DBEnabled && cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when DB_ENABLED=true")
	}

	if cfg.FPLTimeout, err = getEnvAsDuration("FPL_TIMEOUT", "15s"); err != nil {
		return Config{}, err
	}
	if cfg.FPLMaxRetries, err = getEnvAsInt("FPL_MAX_RETRIES", 2); err != nil {
		return Config{}, fmt.Errorf("parse FPL_MAX_RETRIES: %w", err)
	}
	if cfg.FPLMaxRetries < 0 {
		return Config{}, fmt.Errorf("FPL_MAX_RETRIES must be >= 0")
	}
	if cfg.FPLHistoryWorkers, err = getEnvAsInt("FPL_HISTORY_WORKERS", 8); err != nil {
		return Config{}, fmt.Errorf("parse FPL_HISTORY_WORKERS: %w", err)
	}
	if cfg.FPLHistoryWorkers <= 0 {
		return Config{}, fmt.Errorf("FPL_HISTORY_WORKERS must be > 0")
	}

	if cfg.UnderstatTimeout, err = getEnvAsDuration("UNDERSTAT_TIMEOUT", "20s"); err != nil {
		return Config{}, err
	}
	if cfg.UnderstatMaxRetries, err = getEnvAsInt("UNDERSTAT_MAX_RETRIES", 2); err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_MAX_RETRIES: %w", err)
	}
	if cfg.UnderstatMaxRetries < 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_MAX_RETRIES must be >= 0")
	}
	if cfg.UnderstatRequestsPerMinute, err = getEnvAsInt("UNDERSTAT_REQUESTS_PER_MINUTE", 30); err != nil {
		return Config{}, fmt.Errorf("parse UNDERSTAT_REQUESTS_PER_MINUTE: %w", err)
	}
	if cfg.UnderstatRequestsPerMinute < 0 {
		return Config{}, fmt.Errorf("UNDERSTAT_REQUESTS_PER_MINUTE must be >= 0")
	}
	if cfg.UnderstatSeason != "" {
		if _, err := strconv.Atoi(cfg.UnderstatSeason); err != nil {
			return Config{}, fmt.Errorf("parse UNDERSTAT_SEASON: %w", err)
		}
	}

	if cfg.SourceCircuitEnabled, err = strconv.ParseBool(getEnv("SOURCE_CIRCUIT_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_CIRCUIT_ENABLED: %w", err)
	}
	if cfg.SourceCircuitFailureCount, err = getEnvAsInt("SOURCE_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cfg.SourceCircuitFailureCount <= 0 {
		return Config{}, fmt.Errorf("SOURCE_CIRCUIT_FAILURE_COUNT must be > 0")
	}
	if cfg.SourceCircuitOpenTimeout, err = getEnvAsDuration("SOURCE_CIRCUIT_OPEN_TIMEOUT", "30s"); err != nil {
		return Config{}, err
	}
	if cfg.SourceCircuitHalfOpenMaxReq, err = getEnvAsInt("SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return Config{}, fmt.Errorf("parse SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cfg.SourceCircuitHalfOpenMaxReq <= 0 {
		return Config{}, fmt.Errorf("SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ must be > 0")
	}

	if cfg.MatchThreshold, err = getEnvAsFloat("MATCH_THRESHOLD", 0.8); err != nil {
		return Config{}, fmt.Errorf("parse MATCH_THRESHOLD: %w", err)
	}
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return Config{}, fmt.Errorf("MATCH_THRESHOLD must be in [0, 1]")
	}
	if cfg.MatchConsumeAutomated, err = strconv.ParseBool(getEnv("MATCH_CONSUME_AUTOMATED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse MATCH_CONSUME_AUTOMATED: %w", err)
	}
	if cfg.LowMatchRateWarn, err = getEnvAsFloat("LOW_MATCH_RATE_WARN", 0.7); err != nil {
		return Config{}, fmt.Errorf("parse LOW_MATCH_RATE_WARN: %w", err)
	}
	if cfg.LowMatchRateWarn <= 0 || cfg.LowMatchRateWarn > 1 {
		return Config{}, fmt.Errorf("LOW_MATCH_RATE_WARN must be in (0, 1]")
	}
	if cfg.MappingFile == "" {
		return Config{}, fmt.Errorf("MAPPING_FILE must not be empty")
	}

	if cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	if cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	if cfg.PyroscopeUploadRate, err = getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.ParseFloat(value, 64)
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
