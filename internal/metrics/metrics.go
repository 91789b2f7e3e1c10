package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics NFC 读取链路指标
type AppMetrics struct {
	DetectionTotal    prometheus.Counter
	TagReadTotal      *prometheus.CounterVec // labels: result=ok|empty|no_ndef|session_error
	RecordDecodeTotal *prometheus.CounterVec // labels: result=ok|malformed|filtered
	DeliveryTotal     *prometheus.CounterVec // labels: result=delivered|dropped|failed|forwarded|sink_failed
	RegistrationTotal *prometheus.CounterVec // labels: op=register|replace|unregister|consume
	DispatchArmed     prometheus.Gauge       // 1=前台分发已启用
	ReadDuration      prometheus.Histogram
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		DetectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nfc_detection_total",
			Help: "Total tag detection events received from the platform.",
		}),
		TagReadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfc_tag_read_total",
			Help: "Tag reads by outcome.",
		}, []string{"result"}),
		RecordDecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfc_record_decode_total",
			Help: "NDEF records processed by outcome.",
		}, []string{"result"}),
		DeliveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfc_delivery_total",
			Help: "Read results handed to the delivery gate by outcome.",
		}, []string{"result"}),
		RegistrationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfc_registration_total",
			Help: "Caller registration operations.",
		}, []string{"op"}),
		DispatchArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nfc_dispatch_armed",
			Help: "Whether foreground dispatch is currently armed (1) or not (0).",
		}),
		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nfc_tag_read_duration_seconds",
			Help:    "Duration of a single tag read including the NDEF session.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
	reg.MustRegister(m.DetectionTotal, m.TagReadTotal, m.RecordDecodeTotal, m.DeliveryTotal,
		m.RegistrationTotal, m.DispatchArmed, m.ReadDuration)
	return m
}

// 以下方法允许 m 为 nil（未启用指标时）

func (m *AppMetrics) ObserveDetection() {
	if m != nil {
		m.DetectionTotal.Inc()
	}
}

func (m *AppMetrics) ObserveRead(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.TagReadTotal.WithLabelValues(result).Inc()
	m.ReadDuration.Observe(d.Seconds())
}

func (m *AppMetrics) ObserveRecord(result string) {
	if m != nil {
		m.RecordDecodeTotal.WithLabelValues(result).Inc()
	}
}

func (m *AppMetrics) ObserveDelivery(result string) {
	if m != nil {
		m.DeliveryTotal.WithLabelValues(result).Inc()
	}
}

func (m *AppMetrics) ObserveRegistration(op string) {
	if m != nil {
		m.RegistrationTotal.WithLabelValues(op).Inc()
	}
}

func (m *AppMetrics) SetArmed(armed bool) {
	if m == nil {
		return
	}
	if armed {
		m.DispatchArmed.Set(1)
		return
	}
	m.DispatchArmed.Set(0)
}
