// Package nfc 标签读取插件：组合分发生命周期、标签读取与结果投递
package nfc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
	"github.com/taoyao-code/nfc-reader/internal/delivery"
	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/metrics"
	"github.com/taoyao-code/nfc-reader/internal/tagreader"
)

// Plugin 对外边界：initializeNFC、生命周期钩子、检测回调
type Plugin struct {
	manager *dispatch.Manager
	reader  *tagreader.Reader
	gate    *delivery.Gate
	logger  *zap.Logger
	metrics *metrics.AppMetrics
	sinks   []delivery.Token
	now     func() time.Time
}

// Options 插件依赖
type Options struct {
	Adapter  dispatch.Adapter
	Notifier dispatch.Notifier
	Policy   delivery.Policy
	Logger   *zap.Logger
	Metrics  *metrics.AppMetrics
	// Sinks 后台转发（Webhook、事件总线），每次检测都会收到结果，不占用调用方登记
	Sinks []delivery.Token
}

// New 创建插件
func New(opts Options) *Plugin {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Plugin{
		manager: dispatch.NewManager(opts.Adapter, opts.Notifier, log.Named("dispatch"), opts.Metrics),
		reader:  tagreader.New(log.Named("reader"), opts.Metrics),
		gate:    delivery.NewGate(opts.Policy, log.Named("delivery"), opts.Metrics),
		logger:  log,
		metrics: opts.Metrics,
		sinks:   opts.Sinks,
		now:     time.Now,
	}
}

// Load 启动时探测子系统可用性并提示用户
func (p *Plugin) Load() error {
	return p.manager.Handle(dispatch.EventLoad)
}

// InitializeNFC 登记调用方，结果通过 token 异步到达；返回登记ID
func (p *Plugin) InitializeNFC(tok delivery.Token) string {
	return p.gate.Register(tok).ID
}

// RemoveAllListeners 注销当前登记
func (p *Plugin) RemoveAllListeners() bool {
	return p.gate.Unregister("")
}

// CancelRegistration 注销指定登记；登记已被替换时无操作
func (p *Plugin) CancelRegistration(id string) bool {
	if id == "" {
		return false
	}
	return p.gate.Unregister(id)
}

// Resume 宿主回到前台
func (p *Plugin) Resume() error {
	return p.manager.Handle(dispatch.EventResume)
}

// Pause 宿主进入后台
func (p *Plugin) Pause() error {
	return p.manager.Handle(dispatch.EventPause)
}

// HandleLifecycle 按事件分派
func (p *Plugin) HandleLifecycle(e dispatch.Event) error {
	return p.manager.Handle(e)
}

// OnDetection 平台检测回调：读取标签并投递结果
//
// 检测由平台串行派发；读取失败也会投递仅含ID的结果。
func (p *Plugin) OnDetection(ctx context.Context, tag tagreader.PlatformTag) coremodel.TagReadResult {
	if tag == nil {
		p.logger.Debug("detection without tag ignored")
		return coremodel.TagReadResult{}
	}
	p.metrics.ObserveDetection()

	result := p.reader.Read(tag)
	ev := coremodel.NewTagEvent(result, p.now())
	p.logger.Info("tag detected",
		zap.String("event_id", ev.EventID),
		zap.String("tag_id", string(result.TagID)),
		zap.Int("messages", len(result.Messages)))

	p.gate.Deliver(ctx, ev)
	p.forward(ctx, ev)
	return result
}

// forward 转发到后台 sink；失败只记录
func (p *Plugin) forward(ctx context.Context, ev coremodel.TagEvent) {
	for _, s := range p.sinks {
		if err := s.Resolve(ctx, ev); err != nil {
			p.metrics.ObserveDelivery("sink_failed")
			p.logger.Warn("forward to sink failed", zap.String("event_id", ev.EventID), zap.Error(err))
			continue
		}
		p.metrics.ObserveDelivery("forwarded")
	}
}

// Status 插件状态快照
type Status struct {
	State        string `json:"state"`
	Availability string `json:"availability"`
	Policy       string `json:"policy"`
	Pending      bool   `json:"pending"`
	Registration string `json:"registrationId,omitempty"`
}

// Status 返回当前状态
func (p *Plugin) Status() Status {
	st := Status{
		State:        p.manager.State().String(),
		Availability: p.manager.Availability().String(),
		Policy:       string(p.gate.Policy()),
	}
	if reg, ok := p.gate.Pending(); ok {
		st.Pending = true
		st.Registration = reg.ID
	}
	return st
}

// Availability 子系统可用性检查（供健康检查使用）
func (p *Plugin) Availability() error {
	return p.manager.Check()
}
