package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet"

// Metrics 服務的 prometheus 指標，使用獨立的 registry
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	sink     *prometheus.CounterVec
	dropped  prometheus.Counter
}

// New 建立指標並註冊到新的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Ledger requests by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Ledger request latency by method.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"method"}),
		sink: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_sink_publish_total",
			Help:      "Audit records delivered to external sinks by sink and result.",
		}, []string{"sink", "result"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_sink_dropped_total",
			Help:      "Audit records kept in memory but not published because sinks fell behind.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.sink,
		m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest 記錄一次請求
func (m *Metrics) ObserveRequest(method, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, code).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveSinkPublish 記錄一次稽核 sink 寫入
func (m *Metrics) ObserveSinkPublish(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sink.WithLabelValues(sink, result).Inc()
}

// ObserveSinkDrop 記錄一筆沒有送到 sink 的稽核紀錄
func (m *Metrics) ObserveSinkDrop() {
	m.dropped.Inc()
}

// RegisterAccountGauge 以 count 提供目前帳戶數
func (m *Metrics) RegisterAccountGauge(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "accounts",
		Help:      "Number of accounts currently held by the ledger.",
	}, func() float64 { return float64(count()) }))
}

// RegisterAuditGauge 以 count 提供稽核紀錄筆數
func (m *Metrics) RegisterAuditGauge(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_records",
		Help:      "Number of audit records appended since start.",
	}, func() float64 { return float64(count()) }))
}

// Registry 回傳底層 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 回傳 /metrics 的 http handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
