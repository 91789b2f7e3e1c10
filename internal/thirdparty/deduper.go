package thirdparty

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultDedupTTL 默认去重TTL（1小时）
	DefaultDedupTTL = time.Hour
)

// Deduper 去重器（基于Redis SETNX）
type Deduper struct {
	redis  redis.Cmdable
	logger *zap.Logger
	ttl    time.Duration
	prefix string
}

// NewDeduper 创建去重器
func NewDeduper(rdb redis.Cmdable, logger *zap.Logger, ttl time.Duration) *Deduper {
	if ttl == 0 {
		ttl = DefaultDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{redis: rdb, logger: logger, ttl: ttl, prefix: DefaultKeyPrefix + ":dedup"}
}

// WithKeyPrefix 设置去重键命名空间：<prefix>:dedup:<event_id>
func (d *Deduper) WithKeyPrefix(prefix string) *Deduper {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	d.prefix = prefix + ":dedup"
	return d
}

// IsDuplicate 检查事件是否重复，同时占位
// 返回true表示是重复事件，false表示首次出现
func (d *Deduper) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	if d == nil || d.redis == nil {
		return false, fmt.Errorf("deduper not initialized")
	}
	if eventID == "" {
		return false, fmt.Errorf("event_id is empty")
	}

	// key 不存在时设置成功，表示首次出现
	ok, err := d.redis.SetNX(ctx, d.buildKey(eventID), "1", d.ttl).Result()
	if err != nil {
		d.logger.Error("dedup check failed", zap.String("event_id", eventID), zap.Error(err))
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		d.logger.Debug("duplicate event detected", zap.String("event_id", eventID))
	}
	return !ok, nil
}

// Delete 删除去重标记（入队失败时回滚占位）
func (d *Deduper) Delete(ctx context.Context, eventID string) error {
	if d == nil || d.redis == nil {
		return fmt.Errorf("deduper not initialized")
	}
	if eventID == "" {
		return fmt.Errorf("event_id is empty")
	}
	return d.redis.Del(ctx, d.buildKey(eventID)).Err()
}

func (d *Deduper) buildKey(eventID string) string {
	return d.prefix + ":" + eventID
}
