package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/metrics"
)

// TechNDEF NDEF 数据格式技术标识
const TechNDEF = "ndef"

const (
	msgUnavailable = "NFC is not available on this device."
	msgDisabled    = "Please enable NFC in your settings."
)

var (
	ErrUnavailable = errors.New("dispatch: nfc not available on this device")
	ErrDisabled    = errors.New("dispatch: nfc is disabled")
)

// TechFilter 前台分发的技术过滤器：标签暴露其中任一技术即可被分发
type TechFilter []string

// Adapter 平台标签适配器（无线驱动边界）
type Adapter interface {
	Present() bool
	Enabled() bool
	EnableForegroundDispatch(filter TechFilter) error
	DisableForegroundDispatch() error
}

// ArmProber 可选接口：适配器报告前台分发是否仍然有效
//
// 射频被用户关闭时平台会撤销分发，管理器据此校正自身状态。
type ArmProber interface {
	Armed() bool
}

// Notifier 面向用户的提示（UI 边界）。只负责提示，不会强制开启射频
type Notifier interface {
	NotifyUnavailable(msg string)
	// PromptEnable 提示用户开启，可引导至系统设置
	PromptEnable(msg string)
}

// Manager 前台分发生命周期管理器
type Manager struct {
	mu       sync.Mutex
	adapter  Adapter
	notifier Notifier
	state    State
	logger   *zap.Logger
	metrics  *metrics.AppMetrics
}

// NewManager 创建管理器，初始状态 disarmed。adapter 为 nil 表示设备无标签硬件
func NewManager(adapter Adapter, notifier Notifier, logger *zap.Logger, m *metrics.AppMetrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{adapter: adapter, notifier: notifier, logger: logger, metrics: m}
}

// State 当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observedLocked()
}

// observedLocked 结合适配器实际分发状态的当前状态
func (m *Manager) observedLocked() State {
	if m.state != StateArmed {
		return m.state
	}
	if p, ok := m.adapter.(ArmProber); ok && !p.Armed() {
		return StateDisarmed
	}
	return m.state
}

// Availability 探测子系统是否存在且已开启
func (m *Manager) Availability() Availability {
	if m.adapter == nil || !m.adapter.Present() {
		return Unavailable
	}
	if !m.adapter.Enabled() {
		return Disabled
	}
	return Available
}

// Check 以错误形式返回可用性
func (m *Manager) Check() error {
	switch m.Availability() {
	case Unavailable:
		return ErrUnavailable
	case Disabled:
		return ErrDisabled
	}
	return nil
}

// Handle 处理一个生命周期事件
func (m *Manager) Handle(e Event) error {
	m.mu.Lock()
	avail := m.Availability()
	log := m.logger.With(zap.Stringer("event", e), zap.Stringer("availability", avail))
	if cur := m.observedLocked(); cur != m.state {
		log.Info("foreground dispatch revoked by platform")
		m.state = cur
	}
	next, action := Transition(m.state, e, avail)

	var err error
	switch action {
	case ActionArm:
		if err = m.adapter.EnableForegroundDispatch(TechFilter{TechNDEF}); err != nil {
			next = m.state
			err = fmt.Errorf("enable foreground dispatch: %w", err)
			log.Error("arm failed", zap.Error(err))
		} else {
			log.Info("foreground dispatch enabled")
		}
	case ActionDisarm:
		if avail != Unavailable {
			if err = m.adapter.DisableForegroundDispatch(); err != nil {
				err = fmt.Errorf("disable foreground dispatch: %w", err)
				log.Warn("disarm failed", zap.Error(err))
			} else {
				log.Info("foreground dispatch disabled")
			}
		}
	}
	m.state = next
	m.metrics.SetArmed(next == StateArmed)
	m.mu.Unlock()

	// 提示在锁外执行，避免 UI 回调重入
	switch action {
	case ActionNotifyUnavailable:
		log.Warn("nfc unavailable")
		if m.notifier != nil {
			m.notifier.NotifyUnavailable(msgUnavailable)
		}
	case ActionPromptEnable:
		log.Warn("nfc disabled, prompting user")
		if m.notifier != nil {
			m.notifier.PromptEnable(msgDisabled)
		}
	}
	return err
}
