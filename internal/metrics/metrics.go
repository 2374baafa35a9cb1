package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "pairscope"

// Metrics holds the engine and runner collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	EventsHandled *prometheus.CounterVec
	EventsFailed  *prometheus.CounterVec
	EventsSkipped *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	LastBlock     prometheus.Gauge
}

// New builds the collectors and registers them on reg when reg is non-nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Events applied to the entity store.",
		}, []string{"event"}),
		EventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Events aborted by a missing entity or failed lookup.",
		}, []string{"event"}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events ignored before reaching a handler.",
		}, []string{"reason"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one fetched block range.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_block",
			Help:      "Last block whose events are committed.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.EventsHandled, m.EventsFailed, m.EventsSkipped, m.BatchDuration, m.LastBlock} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) Handled(event string) {
	if m != nil {
		m.EventsHandled.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) Failed(event string) {
	if m != nil {
		m.EventsFailed.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) Skipped(reason string) {
	if m != nil {
		m.EventsSkipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetLastBlock(block uint64) {
	if m != nil {
		m.LastBlock.Set(float64(block))
	}
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
