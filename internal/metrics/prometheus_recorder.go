package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requests      prom.Counter
	jobDuration   *prom.HistogramVec
	jobOutcomes   *prom.CounterVec
	phaseDuration *prom.HistogramVec
	pageRenders   *prom.CounterVec
	sessions      prom.Gauge
}

// NewPrometheusRecorder builds the metrics and registers them with reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		requests: prom.NewCounter(prom.CounterOpts{
			Namespace: "vellum",
			Name:      "compile_requests_total",
			Help:      "Compile requests submitted to sessions",
		}),
		jobDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "vellum",
			Name:      "compile_job_duration_seconds",
			Help:      "Duration of compile jobs by outcome",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
		jobOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "vellum",
			Name:      "compile_jobs_total",
			Help:      "Compile jobs by outcome",
		}, []string{"outcome"}),
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "vellum",
			Name:      "compile_phase_duration_seconds",
			Help:      "Duration of job phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"}),
		pageRenders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "vellum",
			Name:      "page_renders_total",
			Help:      "Page render requests by cache result",
		}, []string{"cache"}),
		sessions: prom.NewGauge(prom.GaugeOpts{
			Namespace: "vellum",
			Name:      "sessions",
			Help:      "Open compile sessions",
		}),
	}
	reg.MustRegister(pr.requests, pr.jobDuration, pr.jobOutcomes, pr.phaseDuration, pr.pageRenders, pr.sessions)
	return pr
}

func (p *PrometheusRecorder) IncRequests() {
	if p == nil {
		return
	}
	p.requests.Inc()
}

func (p *PrometheusRecorder) ObserveJob(d time.Duration, outcome Outcome) {
	if p == nil {
		return
	}
	p.jobDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
	p.jobOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObservePhase(phase string, d time.Duration) {
	if p == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageRender(cached bool) {
	if p == nil {
		return
	}
	label := "miss"
	if cached {
		label = "hit"
	}
	p.pageRenders.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) SetSessions(n int) {
	if p == nil {
		return
	}
	p.sessions.Set(float64(n))
}

// HTTPHandler serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
