package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/tagreader"
)

var (
	ErrNoHardware     = errors.New("sim: no nfc hardware")
	ErrRadioOff       = errors.New("sim: nfc radio is off")
	ErrNotArmed       = errors.New("sim: foreground dispatch not enabled")
	ErrFiltered       = errors.New("sim: tag does not match tech filter")
	ErrMultipleTags   = errors.New("sim: more than one tag in field")
	ErrNoReceiver     = errors.New("sim: no detection receiver")
	ErrUnknownFixture = errors.New("sim: unknown fixture")
)

// Receiver 检测事件接收方（通常为 nfc.Plugin.OnDetection）
type Receiver func(ctx context.Context, tag tagreader.PlatformTag)

// Adapter 模拟无线适配器，实现 dispatch.Adapter
type Adapter struct {
	mu       sync.Mutex
	present  bool
	enabled  bool
	armed    bool
	filter   dispatch.TechFilter
	receiver Receiver
	fixtures map[string]Fixture

	// 检测串行派发
	dispatchMu sync.Mutex
	logger     *zap.Logger
}

// NewAdapter 创建模拟适配器
func NewAdapter(present, enabled bool, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{present: present, enabled: enabled, fixtures: map[string]Fixture{}, logger: logger}
}

func (a *Adapter) Present() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.present
}

func (a *Adapter) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.present && a.enabled
}

// SetEnabled 模拟用户在系统设置中开关射频；关闭时前台分发随之失效
func (a *Adapter) SetEnabled(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = v
	if !v {
		a.armed = false
	}
}

func (a *Adapter) EnableForegroundDispatch(filter dispatch.TechFilter) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.present {
		return ErrNoHardware
	}
	if !a.enabled {
		return ErrRadioOff
	}
	a.armed = true
	a.filter = append(dispatch.TechFilter(nil), filter...)
	a.logger.Debug("sim foreground dispatch enabled", zap.Strings("techs", filter))
	return nil
}

func (a *Adapter) DisableForegroundDispatch() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armed = false
	a.filter = nil
	return nil
}

// Armed 前台分发是否启用
func (a *Adapter) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

// SetReceiver 设置检测接收方
func (a *Adapter) SetReceiver(r Receiver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.receiver = r
}

// AddFixtures 注册夹具，供按名称触碰
func (a *Adapter) AddFixtures(fs ...Fixture) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, f := range fs {
		a.fixtures[f.Name] = f
	}
}

// FixtureNames 已注册夹具名
func (a *Adapter) FixtureNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.fixtures))
	for n := range a.fixtures {
		names = append(names, n)
	}
	return names
}

// TapFixture 按夹具名模拟触碰
func (a *Adapter) TapFixture(ctx context.Context, name string) error {
	a.mu.Lock()
	f, ok := a.fixtures[name]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFixture, name)
	}
	tag, err := f.Tag()
	if err != nil {
		return err
	}
	return a.Tap(ctx, tag)
}

// Tap 模拟标签进入射频场
//
// 场内多于一个标签时不派发（需移开后重试）；标签技术不匹配过滤器时不派发。
func (a *Adapter) Tap(ctx context.Context, tags ...*Tag) error {
	if len(tags) == 0 {
		return nil
	}
	if len(tags) > 1 {
		a.logger.Warn("more than one tag detected, remove all tags and try again", zap.Int("count", len(tags)))
		return ErrMultipleTags
	}
	tag := tags[0]

	a.mu.Lock()
	armed, filter, recv := a.armed, a.filter, a.receiver
	a.mu.Unlock()

	if !armed {
		return ErrNotArmed
	}
	if !matches(filter, tag.Techs()) {
		return ErrFiltered
	}
	if recv == nil {
		return ErrNoReceiver
	}

	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()
	recv(ctx, tag)
	return nil
}

func matches(filter dispatch.TechFilter, techs []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		for _, t := range techs {
			if f == t {
				return true
			}
		}
	}
	return false
}

// Notifier 将面向用户的提示写入日志
type Notifier struct {
	Logger *zap.Logger

	mu       sync.Mutex
	messages []string
}

func (n *Notifier) NotifyUnavailable(msg string) {
	n.record(msg)
	n.logger().Warn("nfc notice", zap.String("notice", msg))
}

func (n *Notifier) PromptEnable(msg string) {
	n.record(msg)
	n.logger().Warn("nfc prompt", zap.String("prompt", msg), zap.String("action", "open_settings"))
}

// Messages 已发出的提示
func (n *Notifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *Notifier) record(msg string) {
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

func (n *Notifier) logger() *zap.Logger {
	if n.Logger == nil {
		return zap.NewNop()
	}
	return n.Logger
}
