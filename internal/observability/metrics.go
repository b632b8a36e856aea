package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
)

const metricsNamespace = "playermap"

// MatchMetrics records matching runs on a private registry. A batch CLI has
// no scrape endpoint, so the registry is dumped as a node-exporter textfile.
type MatchMetrics struct {
	registry *prometheus.Registry

	runs          prometheus.Counter
	matches       *prometheus.CounterVec
	unmatched     prometheus.Gauge
	matchRate     prometheus.Gauge
	confidence    prometheus.Histogram
	duration      prometheus.Histogram
	lastRunUnixTS prometheus.Gauge
}

func NewMatchMetrics() *MatchMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MatchMetrics{
		registry: registry,
		runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Matching runs completed.",
		}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "matches_total",
			Help:      "Mapping entries produced, by match type.",
		}, []string{"match_type"}),
		unmatched: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "unmatched_players",
			Help:      "Primary players left unmatched by the last run.",
		}),
		matchRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "match_rate",
			Help:      "Share of primary players mapped by the last run.",
		}),
		confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "automated_match_confidence",
			Help:      "Similarity score of automated matches.",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_duration_seconds",
			Help:      "Wall time of the matching step.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		lastRunUnixTS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}
}

func (m *MatchMetrics) ObserveRun(result playermap.Result, duration time.Duration) {
	if m == nil {
		return
	}

	m.runs.Inc()
	m.matches.WithLabelValues(string(playermap.MatchTypeManual)).Add(0)
	m.matches.WithLabelValues(string(playermap.MatchTypeAutomated)).Add(0)
	for _, item := range result.Mappings {
		m.matches.WithLabelValues(string(item.MatchType)).Inc()
		if item.MatchType == playermap.MatchTypeAutomated {
			m.confidence.Observe(item.Confidence)
		}
	}
	m.unmatched.Set(float64(len(result.Unmatched)))
	m.matchRate.Set(result.MatchRate())
	m.duration.Observe(duration.Seconds())
	m.lastRunUnixTS.SetToCurrentTime()
}

// WriteTextfile dumps the registry in text exposition format. The write goes
// through a temp file so a collector never reads a partial file.
func (m *MatchMetrics) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
