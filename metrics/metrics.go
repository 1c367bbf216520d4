package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matchpoint",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchpoint",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	BracketsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchpoint",
		Subsystem: "engine",
		Name:      "brackets_generated_total",
		Help:      "Brackets generated, by division format.",
	}, []string{"format"})

	MatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "matchpoint",
		Subsystem: "engine",
		Name:      "matches_completed_total",
		Help:      "Matches driven to completion by the scoring engine.",
	})

	SetsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "matchpoint",
		Subsystem: "engine",
		Name:      "sets_recorded_total",
		Help:      "Set results accepted by the scoring engine.",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware records latency per chi route pattern so path parameters do
// not explode label cardinality.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(recorder.status)).
			Observe(time.Since(start).Seconds())
	})
}
