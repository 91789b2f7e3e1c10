package delivery

import (
	"context"
	"errors"
	"sync"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
)

var (
	ErrTokenReleased = errors.New("delivery: token released")
	ErrTokenFull     = errors.New("delivery: token buffer full")
)

// FuncToken 函数适配为 Token
type FuncToken func(ctx context.Context, ev coremodel.TagEvent) error

func (f FuncToken) Resolve(ctx context.Context, ev coremodel.TagEvent) error { return f(ctx, ev) }

// ChannelToken 基于通道的令牌，供长轮询/SSE 等进程内调用方使用
// 发送非阻塞：缓冲满时返回 ErrTokenFull，投递不会卡住检测线程。
type ChannelToken struct {
	ch   chan coremodel.TagEvent
	done chan struct{}

	once   sync.Once
	mu     sync.Mutex
	reason ReleaseReason
}

// NewChannelToken 创建令牌，buffer 最小为1
func NewChannelToken(buffer int) *ChannelToken {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelToken{ch: make(chan coremodel.TagEvent, buffer), done: make(chan struct{})}
}

func (t *ChannelToken) Resolve(_ context.Context, ev coremodel.TagEvent) error {
	select {
	case <-t.done:
		return ErrTokenReleased
	default:
	}
	select {
	case t.ch <- ev:
		return nil
	default:
		return ErrTokenFull
	}
}

func (t *ChannelToken) Release(reason ReleaseReason) {
	t.once.Do(func() {
		t.mu.Lock()
		t.reason = reason
		t.mu.Unlock()
		close(t.done)
	})
}

// Events 结果通道
func (t *ChannelToken) Events() <-chan coremodel.TagEvent { return t.ch }

// Done 登记失效时关闭
func (t *ChannelToken) Done() <-chan struct{} { return t.done }

// Reason 失效原因
func (t *ChannelToken) Reason() ReleaseReason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}
