package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
	"github.com/taoyao-code/nfc-reader/internal/coremodel"
	"github.com/taoyao-code/nfc-reader/internal/eventbus"
)

const eventBusBuffer = 64

// NewEventBus 创建进程内事件总线；未启用时返回 nil
func NewEventBus(cfg cfgpkg.EventBusConfig, logger *zap.Logger) *eventbus.Bus {
	if !cfg.Enabled {
		return nil
	}
	bus := eventbus.NewGoChannel(cfg.Topic, eventBusBuffer, logger.Named("eventbus"))
	logger.Info("event bus initialized", zap.String("topic", bus.Topic()))
	return bus
}

// StartAuditConsumer 订阅总线并记录每条检测事件
func StartAuditConsumer(ctx context.Context, bus *eventbus.Bus, logger *zap.Logger) {
	if bus == nil {
		return
	}
	log := logger.Named("audit")
	go func() {
		err := bus.Consume(ctx, func(ev coremodel.TagEvent) error {
			log.Info("tag event",
				zap.String("event_id", ev.EventID),
				zap.String("tag_id", string(ev.Result.TagID)),
				zap.Strings("messages", ev.Result.Messages),
				zap.Time("detected_at", ev.DetectedAt))
			return nil
		})
		if err != nil {
			log.Error("audit consumer stopped", zap.Error(err))
		}
	}()
}
