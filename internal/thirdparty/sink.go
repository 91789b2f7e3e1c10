package thirdparty

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
)

// WebhookToken 将检测结果转发到第三方 Webhook 的调用方令牌
//
// 配置了队列时异步入队，否则同步推送。
type WebhookToken struct {
	queue   *EventQueue
	pusher  *Pusher
	url     string
	metrics *Metrics
	logger  *zap.Logger
}

// NewQueuedToken 异步令牌（Redis 队列）
func NewQueuedToken(q *EventQueue, logger *zap.Logger) *WebhookToken {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookToken{queue: q, logger: logger}
}

// NewDirectToken 同步令牌
func NewDirectToken(p *Pusher, url string, m *Metrics, logger *zap.Logger) *WebhookToken {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookToken{pusher: p, url: url, metrics: m, logger: logger}
}

func (t *WebhookToken) Resolve(ctx context.Context, ev coremodel.TagEvent) error {
	event := NewTagReadEvent(ev)
	if t.queue != nil {
		return t.queue.Enqueue(ctx, event)
	}

	start := time.Now()
	code, _, err := t.pusher.SendJSON(ctx, t.url, event)
	if err == nil && code >= 300 {
		err = fmt.Errorf("webhook rejected event: http %d", code)
	}
	if err != nil {
		t.metrics.RecordPush(event.EventType, "failed", time.Since(start).Seconds())
		return err
	}
	t.metrics.RecordPush(event.EventType, "success", time.Since(start).Seconds())
	t.logger.Debug("event pushed", zap.String("event_id", event.EventID), zap.Int("status_code", code))
	return nil
}
