package thirdparty

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 第三方推送指标；方法对 nil 接收者安全
type Metrics struct {
	// PushTotal 推送总数，result: success/failed/retry
	PushTotal *prometheus.CounterVec
	// PushDuration 推送延迟
	PushDuration *prometheus.HistogramVec
	// QueueSize 队列长度，queue_type: main/dlq
	QueueSize *prometheus.GaugeVec
	// DedupHitTotal 去重命中次数
	DedupHitTotal *prometheus.CounterVec
	// EnqueueTotal 入队总数，result: success/failed
	EnqueueTotal *prometheus.CounterVec
	// DLQMoveTotal 移入死信队列总数
	DLQMoveTotal *prometheus.CounterVec
}

// NewMetrics 在给定 Registerer 上注册推送指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PushTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_push_total",
			Help: "Total number of event pushes to third party",
		}, []string{"event_type", "result"}),
		PushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thirdparty_push_duration_seconds",
			Help:    "Duration of event push to third party in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type"}),
		QueueSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thirdparty_queue_size",
			Help: "Current size of event queue",
		}, []string{"queue_type"}),
		DedupHitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_dedup_hit_total",
			Help: "Total number of duplicate events detected",
		}, []string{"event_type"}),
		EnqueueTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_enqueue_total",
			Help: "Total number of events enqueued",
		}, []string{"event_type", "result"}),
		DLQMoveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thirdparty_dlq_move_total",
			Help: "Total number of events moved to DLQ",
		}, []string{"event_type", "reason"}),
	}
}

// RecordPush 记录推送结果
func (m *Metrics) RecordPush(eventType EventType, result string, seconds float64) {
	if m == nil {
		return
	}
	m.PushTotal.WithLabelValues(string(eventType), result).Inc()
	if result != "retry" {
		m.PushDuration.WithLabelValues(string(eventType)).Observe(seconds)
	}
}

// RecordEnqueue 记录入队结果
func (m *Metrics) RecordEnqueue(eventType EventType, result string) {
	if m == nil {
		return
	}
	m.EnqueueTotal.WithLabelValues(string(eventType), result).Inc()
}

// RecordDLQMove 记录移入死信队列
func (m *Metrics) RecordDLQMove(eventType EventType, reason string) {
	if m == nil {
		return
	}
	m.DLQMoveTotal.WithLabelValues(string(eventType), reason).Inc()
}

// RecordDedupHit 记录去重命中
func (m *Metrics) RecordDedupHit(eventType EventType) {
	if m == nil {
		return
	}
	m.DedupHitTotal.WithLabelValues(string(eventType)).Inc()
}

// UpdateQueueSize 更新队列长度
func (m *Metrics) UpdateQueueSize(queueType string, size int64) {
	if m == nil {
		return
	}
	m.QueueSize.WithLabelValues(queueType).Set(float64(size))
}
