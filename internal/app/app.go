// Package app wires configuration into the mapper's services.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-player-mapper/external/fpl"
	"github.com/riskibarqy/fantasy-player-mapper/external/understat"
	"github.com/riskibarqy/fantasy-player-mapper/internal/config"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/rawdata"
	"github.com/riskibarqy/fantasy-player-mapper/internal/export"
	"github.com/riskibarqy/fantasy-player-mapper/internal/infrastructure/manualmapping"
	"github.com/riskibarqy/fantasy-player-mapper/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fantasy-player-mapper/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fantasy-player-mapper/internal/observability"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type App struct {
	Config     config.Config
	Logger     *logging.Logger
	Store      *manualmapping.FileStore
	Mapping    *usecase.PlayerMappingService
	Collection *usecase.CollectionService
	Exporter   *export.FileExporter
	Metrics    *observability.MatchMetrics

	db              *sqlx.DB
	shutdownTracing func(context.Context) error
	stopProfiling   func() error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}

	a := &App{
		Config:          cfg,
		Logger:          logger,
		Metrics:         observability.NewMatchMetrics(),
		Exporter:        export.NewFileExporter(cfg.ExportDir, logger.Named("export")),
		shutdownTracing: shutdownTracing,
		stopProfiling:   stopProfiling,
	}

	var (
		mappingRepo playermap.Repository
		statsWriter playermap.StatsWriter
		rawDataRepo rawdata.Repository
	)
	if cfg.DBEnabled {
		db, err := openDB(ctx, cfg.DBURL)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.db = db
		mappingRepo = postgres.NewPlayerMappingRepository(db)
		statsWriter = postgres.NewSecondaryStatsRepository(db)
		rawDataRepo = postgres.NewRawDataRepository(db)
		logger.Info("record store: postgres", "db_name", dbNameFromURL(cfg.DBURL))
	} else {
		mappingRepo = memory.NewPlayerMappingRepository()
		statsWriter = memory.NewSecondaryStatsRepository()
		rawDataRepo = memory.NewRawDataRepository()
		logger.Info("record store: memory", "reason", "DB_ENABLED=false")
	}

	breaker := resilience.BreakerConfig{
		Enabled:          cfg.SourceCircuitEnabled,
		FailureThreshold: cfg.SourceCircuitFailureCount,
		OpenTimeout:      cfg.SourceCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.SourceCircuitHalfOpenMaxReq,
	}
	fplClient := fpl.NewClient(fpl.ClientConfig{
		HTTPClient:     tracedHTTPClient(cfg.FPLTimeout),
		BaseURL:        cfg.FPLBaseURL,
		Timeout:        cfg.FPLTimeout,
		MaxRetries:     cfg.FPLMaxRetries,
		HistoryWorkers: cfg.FPLHistoryWorkers,
		Logger:         logger.Named("fpl"),
		CircuitBreaker: breaker,
	})
	understatClient := understat.NewClient(understat.ClientConfig{
		HTTPClient:        tracedHTTPClient(cfg.UnderstatTimeout),
		BaseURL:           cfg.UnderstatBaseURL,
		League:            cfg.UnderstatLeague,
		Season:            cfg.UnderstatSeason,
		Timeout:           cfg.UnderstatTimeout,
		MaxRetries:        cfg.UnderstatMaxRetries,
		RequestsPerMinute: cfg.UnderstatRequestsPerMinute,
		Logger:            logger.Named("understat"),
		CircuitBreaker:    breaker,
	})

	a.Store = manualmapping.Open(cfg.MappingFile, logger.Named("manual_mapping"))
	a.Mapping = usecase.NewPlayerMappingService(a.Store, logger.Named("matcher"))
	a.Collection = usecase.NewCollectionService(usecase.CollectionDeps{
		Primary:      fplClient,
		Secondary:    understatClient,
		Histories:    fplClient,
		Matcher:      a.Mapping,
		MappingRepo:  mappingRepo,
		StatsWriter:  statsWriter,
		RawDataRepo:  rawDataRepo,
		Exporter:     a.Exporter,
		Metrics:      a.Metrics,
		Logger:       logger.Named("collection"),
		LowMatchRate: cfg.LowMatchRateWarn,
	})

	return a, nil
}

// MatchOptions returns the configured matching policy.
func (a *App) MatchOptions() usecase.MatchOptions {
	return usecase.MatchOptions{
		ConsumeAutomatedMatches: a.Config.MatchConsumeAutomated,
	}.WithThreshold(a.Config.MatchThreshold)
}

// Close writes the metrics textfile, then releases the database, profiler
// and tracer.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Metrics.WriteTextfile(a.Config.MetricsTextfile); err != nil {
		errs = append(errs, err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if a.stopProfiling != nil {
		if err := a.stopProfiling(); err != nil {
			errs = append(errs, fmt.Errorf("stop profiling: %w", err))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

// tracedHTTPClient gives each source request a client span under the run's
// usecase span.
func tracedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "source " + r.Method + " " + r.URL.Host
			}),
		),
	}
}

func openDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", usecase.ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", usecase.ErrStorageUnavailable, err)
	}
	return db, nil
}
