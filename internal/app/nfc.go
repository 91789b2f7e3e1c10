package app

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
	"github.com/taoyao-code/nfc-reader/internal/delivery"
	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/metrics"
	"github.com/taoyao-code/nfc-reader/internal/nfc"
	"github.com/taoyao-code/nfc-reader/internal/platform/sim"
	"github.com/taoyao-code/nfc-reader/internal/tagreader"
)

// NewSimulator 创建模拟平台并加载夹具；未启用时返回 nil
func NewSimulator(cfg cfgpkg.SimulatorConfig, logger *zap.Logger) (*sim.Adapter, error) {
	if !cfg.Enabled {
		logger.Info("nfc simulator disabled, no tag hardware attached")
		return nil, nil
	}

	ad := sim.NewAdapter(cfg.Present, cfg.RadioEnabled, logger.Named("sim"))
	if cfg.Fixtures != "" {
		fixtures, err := sim.LoadFixtures(cfg.Fixtures)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("fixture file not found", zap.String("path", cfg.Fixtures))
		case err != nil:
			return nil, err
		default:
			ad.AddFixtures(fixtures...)
			logger.Info("fixtures loaded", zap.String("path", cfg.Fixtures), zap.Int("count", len(fixtures)))
		}
	}
	return ad, nil
}

// NewPlugin 创建标签读取插件；simulator 为 nil 时视为设备无标签硬件
func NewPlugin(
	cfg cfgpkg.NFCConfig,
	simulator *sim.Adapter,
	sinks []delivery.Token,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) (*nfc.Plugin, error) {
	policy, err := delivery.ParsePolicy(cfg.Delivery.Policy)
	if err != nil {
		return nil, err
	}

	var adapter dispatch.Adapter
	if simulator != nil {
		adapter = simulator
	}

	p := nfc.New(nfc.Options{
		Adapter:  adapter,
		Notifier: &sim.Notifier{Logger: logger.Named("notice")},
		Policy:   policy,
		Logger:   logger.Named("nfc"),
		Metrics:  appm,
		Sinks:    sinks,
	})

	if simulator != nil {
		simulator.SetReceiver(func(ctx context.Context, tag tagreader.PlatformTag) {
			p.OnDetection(ctx, tag)
		})
	}
	return p, nil
}
