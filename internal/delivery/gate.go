// Package delivery 单一待决调用方登记与结果投递
package delivery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
	"github.com/taoyao-code/nfc-reader/internal/metrics"
)

// Token 调用方能力令牌：每次检测结果通过 Resolve 交付
type Token interface {
	Resolve(ctx context.Context, ev coremodel.TagEvent) error
}

// Releaser 可选接口：登记被替换或注销时收到通知
type Releaser interface {
	Release(reason ReleaseReason)
}

// ReleaseReason 登记失效原因
type ReleaseReason string

const (
	ReleaseReplaced     ReleaseReason = "replaced"
	ReleaseUnregistered ReleaseReason = "unregistered"
	// ReleaseConsumed oneshot 登记已投递一次
	ReleaseConsumed ReleaseReason = "consumed"
)

// Policy 登记在投递后是否保留
type Policy string

const (
	// PolicyKeepAlive 登记跨多次检测保持有效
	PolicyKeepAlive Policy = "keepalive"
	// PolicyOneShot 投递一次即消费，需重新登记
	PolicyOneShot Policy = "oneshot"
)

// ParsePolicy 解析策略，空串默认 keepalive
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyKeepAlive:
		return PolicyKeepAlive, nil
	case PolicyOneShot:
		return PolicyOneShot, nil
	}
	return "", fmt.Errorf("unknown delivery policy %q", s)
}

// Registration 待决调用方登记
type Registration struct {
	ID        string
	CreatedAt time.Time

	token Token
	fired atomic.Int64
}

// Fired 已投递次数
func (r *Registration) Fired() int64 { return r.fired.Load() }

// Gate 投递闸门：同一时刻至多一个登记，后登记者覆盖前者
type Gate struct {
	mu      sync.Mutex
	pending *Registration
	policy  Policy

	logger  *zap.Logger
	metrics *metrics.AppMetrics
}

// NewGate 创建投递闸门
func NewGate(policy Policy, logger *zap.Logger, m *metrics.AppMetrics) *Gate {
	if policy == "" {
		policy = PolicyKeepAlive
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{policy: policy, logger: logger, metrics: m}
}

// Policy 当前策略
func (g *Gate) Policy() Policy { return g.policy }

// Register 登记调用方，替换并释放已有登记
func (g *Gate) Register(tok Token) *Registration {
	reg := &Registration{ID: uuid.NewString(), CreatedAt: time.Now(), token: tok}

	g.mu.Lock()
	prev := g.pending
	g.pending = reg
	g.mu.Unlock()

	g.metrics.ObserveRegistration("register")
	if prev != nil {
		g.metrics.ObserveRegistration("replace")
		g.logger.Info("caller registration replaced",
			zap.String("previous_id", prev.ID), zap.String("registration_id", reg.ID))
		release(prev, ReleaseReplaced)
	} else {
		g.logger.Info("caller registered", zap.String("registration_id", reg.ID))
	}
	return reg
}

// Unregister 注销登记；id 为空时注销当前任意登记
func (g *Gate) Unregister(id string) bool {
	g.mu.Lock()
	cur := g.pending
	if cur == nil || (id != "" && cur.ID != id) {
		g.mu.Unlock()
		return false
	}
	g.pending = nil
	g.mu.Unlock()

	g.metrics.ObserveRegistration("unregister")
	g.logger.Info("caller unregistered", zap.String("registration_id", cur.ID))
	release(cur, ReleaseUnregistered)
	return true
}

// Pending 返回当前登记
func (g *Gate) Pending() (*Registration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending, g.pending != nil
}

// Deliver 将检测结果交付给当前登记
//
// 无登记时丢弃结果（不是错误）。Resolve 失败只记录日志，不向上传播。
// oneshot 登记在交付后以 ReleaseConsumed 释放。返回值表示是否成功交付。
func (g *Gate) Deliver(ctx context.Context, ev coremodel.TagEvent) bool {
	g.mu.Lock()
	reg := g.pending
	if reg != nil && g.policy == PolicyOneShot {
		g.pending = nil
	}
	g.mu.Unlock()

	log := g.logger.With(zap.String("event_id", ev.EventID), zap.String("tag_id", string(ev.Result.TagID)))
	if reg == nil {
		g.metrics.ObserveDelivery("dropped")
		log.Debug("no caller registered, result dropped")
		return false
	}
	if g.policy == PolicyOneShot {
		g.metrics.ObserveRegistration("consume")
		defer release(reg, ReleaseConsumed)
	}

	reg.fired.Add(1)
	if err := reg.token.Resolve(ctx, ev); err != nil {
		g.metrics.ObserveDelivery("failed")
		log.Warn("resolve caller failed", zap.String("registration_id", reg.ID), zap.Error(err))
		return false
	}
	g.metrics.ObserveDelivery("delivered")
	log.Debug("result delivered", zap.String("registration_id", reg.ID))
	return true
}

func release(reg *Registration, reason ReleaseReason) {
	if r, ok := reg.token.(Releaser); ok {
		r.Release(reason)
	}
}
