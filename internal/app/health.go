package app

import (
	"github.com/taoyao-code/nfc-reader/internal/health"
	redisstorage "github.com/taoyao-code/nfc-reader/internal/storage/redis"
	"github.com/taoyao-code/nfc-reader/internal/thirdparty"
)

// NewHealthAggregator 创建健康检查聚合器，按已启用的组件挂载检查器
func NewHealthAggregator(src health.NFCSource, redisClient *redisstorage.Client, queue *thirdparty.EventQueue) *health.Aggregator {
	agg := health.NewAggregator(health.NewNFCChecker(src))
	if redisClient != nil {
		agg.AddChecker(health.NewRedisChecker(redisClient))
	}
	if queue != nil {
		agg.AddChecker(health.NewQueueChecker(queue, 0))
	}
	return agg
}
