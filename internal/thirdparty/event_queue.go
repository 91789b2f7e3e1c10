package thirdparty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultKeyPrefix 未指定命名空间时的键前缀
	DefaultKeyPrefix = "nfc"

	maxRetries = 5
	retryTTL   = 24 * time.Hour
)

// EventQueue 基于 Redis List 的异步推送队列
type EventQueue struct {
	redis   redis.Cmdable
	pusher  *Pusher
	dedup   *Deduper
	baseURL string
	metrics *Metrics
	logger  *zap.Logger

	// RetryBase 重试退避基数（1x, 2x, 4x...）
	RetryBase time.Duration
	// PopTimeout BLPOP 阻塞超时
	PopTimeout time.Duration

	queueKey string // 主队列
	dlqKey   string // 死信队列
	retryKey string // 重试计数器前缀（后接 event_id）

	wg sync.WaitGroup
}

// NewEventQueue 创建事件队列；dedup 可为 nil
func NewEventQueue(rdb redis.Cmdable, pusher *Pusher, dedup *Deduper, webhookURL string, m *Metrics, logger *zap.Logger) *EventQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &EventQueue{
		redis:      rdb,
		pusher:     pusher,
		dedup:      dedup,
		baseURL:    webhookURL,
		metrics:    m,
		logger:     logger,
		RetryBase:  time.Second,
		PopTimeout: 5 * time.Second,
	}
	return q.WithKeyPrefix(DefaultKeyPrefix)
}

// WithKeyPrefix 设置队列键命名空间：<prefix>:event:{queue,dlq,retry}
func (q *EventQueue) WithKeyPrefix(prefix string) *EventQueue {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	q.queueKey = prefix + ":event:queue"
	q.dlqKey = prefix + ":event:dlq"
	q.retryKey = prefix + ":event:retry:"
	return q
}

// Enqueue 入队事件；同一 EventID 在去重窗口内只入队一次
func (q *EventQueue) Enqueue(ctx context.Context, event *StandardEvent) error {
	if q == nil || q.redis == nil {
		return fmt.Errorf("event queue not initialized")
	}

	if q.dedup != nil {
		dup, err := q.dedup.IsDuplicate(ctx, event.EventID)
		if err != nil {
			q.logger.Warn("dedup unavailable, enqueue anyway", zap.String("event_id", event.EventID), zap.Error(err))
		} else if dup {
			q.metrics.RecordDedupHit(event.EventType)
			return nil
		}
	}

	data, err := sonic.Marshal(event)
	if err != nil {
		q.metrics.RecordEnqueue(event.EventType, "failed")
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := q.redis.RPush(ctx, q.queueKey, data).Err(); err != nil {
		q.metrics.RecordEnqueue(event.EventType, "failed")
		q.logger.Error("failed to enqueue event", zap.String("event_id", event.EventID), zap.Error(err))
		if q.dedup != nil {
			_ = q.dedup.Delete(ctx, event.EventID)
		}
		return fmt.Errorf("redis rpush: %w", err)
	}

	q.metrics.RecordEnqueue(event.EventType, "success")
	q.logger.Debug("event enqueued",
		zap.String("event_id", event.EventID),
		zap.String("tag_id", event.TagID))
	return nil
}

// StartWorker 启动消费 Worker，ctx 取消后退出
func (q *EventQueue) StartWorker(ctx context.Context, workerCount int) {
	if q == nil || q.redis == nil || q.pusher == nil {
		return
	}
	if workerCount <= 0 {
		workerCount = 1
	}

	q.logger.Info("starting event queue workers",
		zap.Int("worker_count", workerCount),
		zap.String("webhook_url", q.baseURL))

	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i+1)
	}
}

// Wait 等待所有 Worker 退出
func (q *EventQueue) Wait() {
	q.wg.Wait()
}

func (q *EventQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()
	logger := q.logger.With(zap.Int("worker_id", workerID))
	logger.Info("event queue worker started")

	for {
		if ctx.Err() != nil {
			logger.Info("event queue worker stopped")
			return
		}

		result, err := q.redis.BLPop(ctx, q.PopTimeout, q.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error("redis blpop error", zap.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}
		if len(result) < 2 {
			logger.Warn("invalid blpop result", zap.Strings("result", result))
			continue
		}

		// result[0]是key，result[1]是value
		q.processEvent(ctx, result[1], logger)
	}
}

// processEvent 处理单个事件：5xx/网络错误重新入队，4xx 与超限进入死信
func (q *EventQueue) processEvent(ctx context.Context, eventData string, logger *zap.Logger) {
	var event StandardEvent
	if err := sonic.UnmarshalString(eventData, &event); err != nil {
		logger.Error("failed to unmarshal event", zap.Error(err))
		return
	}
	log := logger.With(zap.String("event_id", event.EventID), zap.String("tag_id", event.TagID))

	retryCount, err := q.getRetryCount(ctx, event.EventID)
	if err != nil {
		log.Error("failed to get retry count", zap.Error(err))
	}
	if retryCount >= maxRetries {
		log.Warn("event exceeded max retries, moving to DLQ", zap.Int("retry_count", retryCount))
		q.moveToDLQ(ctx, &event, eventData, "max_retries_exceeded")
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	statusCode, respBody, err := q.pusher.SendJSON(pushCtx, q.baseURL, &event)

	switch {
	case err != nil || statusCode >= 500:
		q.metrics.RecordPush(event.EventType, "retry", 0)
		log.Warn("event push failed, will retry",
			zap.Int("status_code", statusCode),
			zap.Int("retry_count", retryCount+1),
			zap.Error(err))

		q.incrementRetryCount(ctx, event.EventID)
		sleepCtx(ctx, q.RetryBase*time.Duration(1<<uint(retryCount)))

		// ctx 已取消时仍尝试写回，避免丢失事件
		if err := q.redis.RPush(context.WithoutCancel(ctx), q.queueKey, eventData).Err(); err != nil {
			log.Error("failed to re-enqueue event", zap.Error(err))
			q.moveToDLQ(ctx, &event, eventData, "re_enqueue_failed")
		}

	case statusCode >= 400:
		q.metrics.RecordPush(event.EventType, "failed", time.Since(start).Seconds())
		log.Warn("event push client error, moving to DLQ",
			zap.Int("status_code", statusCode),
			zap.ByteString("response", respBody))
		q.moveToDLQ(ctx, &event, eventData, fmt.Sprintf("client_error_%d", statusCode))

	default:
		q.metrics.RecordPush(event.EventType, "success", time.Since(start).Seconds())
		log.Info("event pushed successfully", zap.Int("status_code", statusCode))
		q.deleteRetryCount(ctx, event.EventID)
	}
}

type dlqRecord struct {
	EventData string `json:"event_data"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

func (q *EventQueue) moveToDLQ(ctx context.Context, event *StandardEvent, eventData, reason string) {
	q.metrics.RecordDLQMove(event.EventType, reason)
	data, err := sonic.Marshal(dlqRecord{EventData: eventData, Reason: reason, Timestamp: time.Now().Unix()})
	if err != nil {
		q.logger.Error("failed to marshal dlq record", zap.Error(err))
		return
	}
	if err := q.redis.RPush(context.WithoutCancel(ctx), q.dlqKey, data).Err(); err != nil {
		q.logger.Error("failed to move event to DLQ", zap.Error(err))
	}
}

func (q *EventQueue) getRetryCount(ctx context.Context, eventID string) (int, error) {
	n, err := q.redis.Get(ctx, q.retryKey+eventID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (q *EventQueue) incrementRetryCount(ctx context.Context, eventID string) {
	key := q.retryKey + eventID
	if err := q.redis.Incr(ctx, key).Err(); err != nil {
		q.logger.Error("failed to increment retry count", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	q.redis.Expire(ctx, key, retryTTL)
}

func (q *EventQueue) deleteRetryCount(ctx context.Context, eventID string) {
	q.redis.Del(ctx, q.retryKey+eventID)
}

// QueueLength 主队列长度
func (q *EventQueue) QueueLength(ctx context.Context) (int64, error) {
	if q == nil || q.redis == nil {
		return 0, fmt.Errorf("queue not initialized")
	}
	n, err := q.redis.LLen(ctx, q.queueKey).Result()
	if err == nil {
		q.metrics.UpdateQueueSize("main", n)
	}
	return n, err
}

// DLQLength 死信队列长度
func (q *EventQueue) DLQLength(ctx context.Context) (int64, error) {
	if q == nil || q.redis == nil {
		return 0, fmt.Errorf("queue not initialized")
	}
	n, err := q.redis.LLen(ctx, q.dlqKey).Result()
	if err == nil {
		q.metrics.UpdateQueueSize("dlq", n)
	}
	return n, err
}

// GetDLQEvents 获取死信队列中的事件（用于人工处理）
func (q *EventQueue) GetDLQEvents(ctx context.Context, start, stop int64) ([]string, error) {
	if q == nil || q.redis == nil {
		return nil, fmt.Errorf("queue not initialized")
	}
	return q.redis.LRange(ctx, q.dlqKey, start, stop).Result()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
