// Package eventbus 通过 watermill 发布检测事件
package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
)

// DefaultTopic 检测事件主题
const DefaultTopic = "nfc.tag.read"

const (
	metaTagID       = "tag_id"
	metaContentType = "content_type"
)

var codec = sonic.ConfigStd

// Bus 发布/订阅封装
type Bus struct {
	topic  string
	pub    message.Publisher
	sub    message.Subscriber
	logger *zap.Logger
}

// New 以任意 watermill 实现构造；sub 可为 nil（仅发布）
func New(pub message.Publisher, sub message.Subscriber, topic string, logger *zap.Logger) *Bus {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{topic: topic, pub: pub, sub: sub, logger: logger}
}

// NewGoChannel 进程内 gochannel 实现
func NewGoChannel(topic string, buffer int64, logger *zap.Logger) *Bus {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, NewLoggerAdapter(logger))
	return New(ps, ps, topic, logger)
}

// Topic 主题名
func (b *Bus) Topic() string { return b.topic }

// Publish 发布检测事件；消息 UUID 为事件 ID
func (b *Bus) Publish(ev coremodel.TagEvent) error {
	payload, err := codec.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode tag event: %w", err)
	}
	id := ev.EventID
	if id == "" {
		id = watermill.NewULID()
	}
	msg := message.NewMessage(id, payload)
	msg.Metadata.Set(metaTagID, string(ev.Result.TagID))
	msg.Metadata.Set(metaContentType, "application/json")

	if err := b.pub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", b.topic, err)
	}
	b.logger.Debug("tag event published", zap.String("event_id", id), zap.String("topic", b.topic))
	return nil
}

// Subscribe 订阅检测事件
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if b.sub == nil {
		return nil, fmt.Errorf("eventbus: no subscriber configured")
	}
	return b.sub.Subscribe(ctx, b.topic)
}

// Close 关闭发布者与订阅者
func (b *Bus) Close() error {
	err := b.pub.Close()
	if b.sub != nil && any(b.sub) != any(b.pub) {
		if serr := b.sub.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// DecodeEvent 解析消息负载
func DecodeEvent(msg *message.Message) (coremodel.TagEvent, error) {
	var ev coremodel.TagEvent
	if err := codec.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decode tag event: %w", err)
	}
	return ev, nil
}

// PublisherToken 将检测结果发布到总线的调用方令牌
type PublisherToken struct {
	bus *Bus
}

// NewPublisherToken 创建令牌
func NewPublisherToken(b *Bus) *PublisherToken {
	return &PublisherToken{bus: b}
}

func (t *PublisherToken) Resolve(_ context.Context, ev coremodel.TagEvent) error {
	return t.bus.Publish(ev)
}

// Consume 消费事件并交给 handle，直到 ctx 取消或通道关闭
//
// 至多一次：解码或处理失败只记录日志，消息仍然 Ack。
func (b *Bus) Consume(ctx context.Context, handle func(coremodel.TagEvent) error) error {
	msgs, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := DecodeEvent(msg)
			if err == nil {
				err = handle(ev)
			}
			if err != nil {
				b.logger.Warn("tag event handling failed", zap.String("message_id", msg.UUID), zap.Error(err))
			}
			msg.Ack()
		}
	}
}
