package app

import (
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
	redisstorage "github.com/taoyao-code/nfc-reader/internal/storage/redis"
	"github.com/taoyao-code/nfc-reader/internal/thirdparty"
)

// NewWebhookSink 根据配置创建 Webhook 转发令牌
//
// 有 Redis 时走异步队列（带去重），否则同步推送。未启用时返回 nil。
func NewWebhookSink(
	cfg cfgpkg.WebhookConfig,
	redisClient *redisstorage.Client,
	m *thirdparty.Metrics,
	logger *zap.Logger,
) (*thirdparty.WebhookToken, *thirdparty.EventQueue) {
	if !cfg.Enabled || cfg.URL == "" {
		logger.Info("webhook sink disabled")
		return nil, nil
	}

	pusher := thirdparty.NewPusher(&http.Client{Timeout: cfg.Timeout}, cfg.APIKey, cfg.Secret)

	if redisClient == nil {
		logger.Warn("webhook queue unavailable without redis, pushing synchronously",
			zap.String("webhook_url", cfg.URL))
		return thirdparty.NewDirectToken(pusher, cfg.URL, m, logger.Named("webhook")), nil
	}

	prefix := redisClient.KeyPrefix()
	dedup := thirdparty.NewDeduper(redisClient, logger.Named("deduper"), cfg.DedupTTL).WithKeyPrefix(prefix)
	queue := thirdparty.NewEventQueue(redisClient, pusher, dedup, cfg.URL, m, logger.Named("event_queue")).WithKeyPrefix(prefix)
	logger.Info("webhook event queue initialized",
		zap.String("webhook_url", cfg.URL),
		zap.String("key_prefix", prefix),
		zap.Duration("dedup_ttl", cfg.DedupTTL),
		zap.Int("worker_count", cfg.Workers))
	return thirdparty.NewQueuedToken(queue, logger.Named("webhook")), queue
}
