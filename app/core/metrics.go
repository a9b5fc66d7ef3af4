package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mindarch-ai/mindarch/pkg/metrics"
)

type Metrics struct {
	apiResponseTime *prometheus.HistogramVec
	apiErrorCounter *prometheus.CounterVec

	stageTime      *prometheus.HistogramVec
	modelCallTime  *prometheus.HistogramVec
	modelCallError *prometheus.CounterVec
	jobFinished    *prometheus.CounterVec
	unitsResolved  *prometheus.CounterVec
}

func NewMetrics(ns, system string) *Metrics {
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime: metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter: metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		stageTime:       metrics.NewHistogramVec("import_stage_time", []string{"stage"}),
		modelCallTime:   metrics.NewHistogramVec("model_call_time", []string{"kind"}),
		modelCallError:  metrics.NewCounterVec("model_call_error", []string{"kind"}),
		jobFinished:     metrics.NewCounterVec("import_job_finished", []string{"state"}),
		unitsResolved:   metrics.NewCounterVec("units_resolved", []string{"decision"}),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) StageObserve(stage string, d time.Duration) {
	m.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ModelCallTimer(kind string) *prometheus.Timer {
	return prometheus.NewTimer(m.modelCallTime.WithLabelValues(kind))
}

func (m *Metrics) ModelCallErrorInc(kind string) {
	m.modelCallError.WithLabelValues(kind).Inc()
}

func (m *Metrics) JobFinishedInc(state string) {
	m.jobFinished.WithLabelValues(state).Inc()
}

func (m *Metrics) UnitResolvedAdd(decision string, n int) {
	m.unitsResolved.WithLabelValues(decision).Add(float64(n))
}
