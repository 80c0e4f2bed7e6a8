// Package metrics holds the prometheus collectors shared by the assembler,
// the submitter and the watch stream.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	MetricPlansTotal          = "plans_total"
	MetricPlanInstructions    = "plan_instructions"
	MetricSimulationsTotal    = "simulations_total"
	MetricSubmissionsTotal    = "submissions_total"
	MetricWatchUpdatesTotal   = "watch_updates_total"
	MetricWatchDecodeErrors   = "watch_decode_errors_total"
	MetricWatchPositionAmount = "watch_position_amount"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	plans        *prometheus.CounterVec
	instructions *prometheus.HistogramVec
	simulations  *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	updates      *prometheus.CounterVec
	decodeErrors *prometheus.CounterVec
	amounts      *prometheus.GaugeVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return NewWith(registry, registry)
}

func NewWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	return &Metrics{
		gatherer: gatherer,
		plans: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Subsystem: "assembler",
			Name:      MetricPlansTotal,
			Help:      "Instruction plans assembled, by dex, operation and result.",
		}, []string{"dex", "op", "result"}),
		instructions: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clmm",
			Subsystem: "assembler",
			Name:      MetricPlanInstructions,
			Help:      "Number of instructions in a finished plan.",
			Buckets:   prometheus.LinearBuckets(2, 2, 8),
		}, []string{"dex", "op"}),
		simulations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Subsystem: "submitter",
			Name:      MetricSimulationsTotal,
			Help:      "Transaction simulations, by result.",
		}, []string{"result"}),
		submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Subsystem: "submitter",
			Name:      MetricSubmissionsTotal,
			Help:      "Transactions sent, by result.",
		}, []string{"result"}),
		updates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Subsystem: "watch",
			Name:      MetricWatchUpdatesTotal,
			Help:      "Account updates received from the stream, by account kind.",
		}, []string{"kind"}),
		decodeErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "clmm",
			Subsystem: "watch",
			Name:      MetricWatchDecodeErrors,
			Help:      "Account updates that failed to decode, by account kind.",
		}, []string{"kind"}),
		amounts: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clmm",
			Subsystem: "watch",
			Name:      MetricWatchPositionAmount,
			Help:      "Token amounts currently held by the watched position.",
		}, []string{"token"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObservePlan(dex, op string, instructions int, err error) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(dex, op, result(err)).Inc()
	if err == nil {
		m.instructions.WithLabelValues(dex, op).Observe(float64(instructions))
	}
}

func (m *Metrics) ObserveSimulation(err error) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveSubmission(err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveUpdate(kind string, decodeErr error) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
	if decodeErr != nil {
		m.decodeErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetPositionAmounts(amount0, amount1 float64) {
	if m == nil {
		return
	}
	m.amounts.WithLabelValues("token0").Set(amount0)
	m.amounts.WithLabelValues("token1").Set(amount1)
}

// Router exposes /metrics and /healthz.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve runs the metrics server until ctx is done. An empty addr disables it.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	if addr == "" || m == nil {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
