package health

import "sync/atomic"

// Readiness 启动阶段就绪标记（插件加载、后台推送）
type Readiness struct {
	pluginReady atomic.Bool
	sinksReady  atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetPluginReady(v bool) { r.pluginReady.Store(v) }
func (r *Readiness) SetSinksReady(v bool)  { r.sinksReady.Store(v) }

// Ready 总体就绪：各阶段均为 true
func (r *Readiness) Ready() bool {
	return r.pluginReady.Load() && r.sinksReady.Load()
}
