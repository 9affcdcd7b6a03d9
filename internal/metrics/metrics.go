// Package metrics содержит Prometheus-метрики клиента.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics хранит метрики обращений к сервису и этапов построения.
// Все методы безопасны для nil-получателя.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests     *prometheus.CounterVec
	APIDuration     *prometheus.HistogramVec
	IDsIngested     prometheus.Counter
	ChunksAppended  prometheus.Counter
	PipelineRuns    *prometheus.CounterVec
	Reconciliations *prometheus.CounterVec
}

// New создает метрики в собственном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audience_api_requests_total",
			Help: "Requests sent to the audience API by method, route and status code",
		}, []string{"method", "route", "status"}),
		APIDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audience_api_request_duration_seconds",
			Help:    "Latency of audience API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IDsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "audience_ids_ingested_total",
			Help: "Unique user ids loaded from the inbox",
		}),
		ChunksAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "audience_segment_chunks_appended_total",
			Help: "User id chunks successfully appended to segments",
		}),
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audience_pipeline_runs_total",
			Help: "Build pipeline runs by final stage and outcome",
		}, []string{"stage", "outcome"}),
		Reconciliations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audience_reconciliations_total",
			Help: "Audience relink attempts by result",
		}, []string{"result"}),
	}
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAPI учитывает один запрос к сервису. status 0 означает сетевую ошибку.
func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(method, route, code).Inc()
	m.APIDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) AddIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.IDsIngested.Add(float64(n))
}

func (m *Metrics) IncChunkAppended() {
	if m == nil {
		return
	}
	m.ChunksAppended.Inc()
}

func (m *Metrics) ObservePipeline(stage, outcome string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) ObserveReconciliation(result string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(result).Inc()
}

// WriteTextfile сохраняет текущие значения в формате textfile-коллектора node_exporter.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
