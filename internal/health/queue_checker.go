package health

import (
	"context"
	"fmt"
	"time"
)

// QueueSource 推送队列长度来源
type QueueSource interface {
	QueueLength(ctx context.Context) (int64, error)
	DLQLength(ctx context.Context) (int64, error)
}

// QueueChecker 推送队列积压检查
type QueueChecker struct {
	src       QueueSource
	threshold int64
}

// NewQueueChecker threshold 为积压告警阈值（<=0 时取1000）
func NewQueueChecker(src QueueSource, threshold int64) *QueueChecker {
	if threshold <= 0 {
		threshold = 1000
	}
	return &QueueChecker{src: src, threshold: threshold}
}

func (c *QueueChecker) Name() string {
	return "webhook_queue"
}

func (c *QueueChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	pending, err := c.src.QueueLength(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("queue length: %v", err), Latency: time.Since(start)}
	}
	dead, err := c.src.DLQLength(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("dlq length: %v", err), Latency: time.Since(start)}
	}

	status, message := StatusHealthy, "ok"
	if pending > c.threshold {
		status, message = StatusDegraded, "queue backlog"
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{"pending": pending, "dead": dead},
		Latency: time.Since(start),
	}
}
