package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/nfc-reader/internal/metrics"
	"github.com/taoyao-code/nfc-reader/internal/thirdparty"
)

// NewMetrics 初始化注册表、读取链路指标与推送指标
func NewMetrics() (*prometheus.Registry, *metrics.AppMetrics, *thirdparty.Metrics) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewAppMetrics(reg), thirdparty.NewMetrics(reg)
}
