package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
	"github.com/taoyao-code/nfc-reader/internal/coremodel"
	"github.com/taoyao-code/nfc-reader/internal/delivery"
	"github.com/taoyao-code/nfc-reader/internal/health"
)

func TestNewSimulator(t *testing.T) {
	log := zap.NewNop()

	t.Run("未启用", func(t *testing.T) {
		ad, err := NewSimulator(cfgpkg.SimulatorConfig{}, log)
		require.NoError(t, err)
		assert.Nil(t, ad)
	})

	t.Run("夹具文件缺失", func(t *testing.T) {
		ad, err := NewSimulator(cfgpkg.SimulatorConfig{
			Enabled: true, Present: true, RadioEnabled: true,
			Fixtures: filepath.Join(t.TempDir(), "missing.yaml"),
		}, log)
		require.NoError(t, err)
		require.NotNil(t, ad)
		assert.Empty(t, ad.FixtureNames())
	})

	t.Run("夹具文件损坏", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tags: [ {id: '01'} ]"), 0o600))
		_, err := NewSimulator(cfgpkg.SimulatorConfig{Enabled: true, Fixtures: path}, log)
		assert.Error(t, err)
	})

	t.Run("加载仓库夹具", func(t *testing.T) {
		ad, err := NewSimulator(cfgpkg.SimulatorConfig{
			Enabled: true, Present: true, RadioEnabled: true,
			Fixtures: "../../configs/tags.yaml",
		}, log)
		require.NoError(t, err)
		assert.Contains(t, ad.FixtureNames(), "greeting")
	})
}

func TestNewPlugin_EndToEnd(t *testing.T) {
	log := zap.NewNop()
	_, appm, _ := NewMetrics()

	ad, err := NewSimulator(cfgpkg.SimulatorConfig{
		Enabled: true, Present: true, RadioEnabled: true,
		Fixtures: "../../configs/tags.yaml",
	}, log)
	require.NoError(t, err)

	var forwarded []coremodel.TagEvent
	sink := delivery.FuncToken(func(_ context.Context, ev coremodel.TagEvent) error {
		forwarded = append(forwarded, ev)
		return nil
	})

	p, err := NewPlugin(cfgpkg.NFCConfig{Delivery: cfgpkg.DeliveryConfig{Policy: "oneshot"}}, ad, []delivery.Token{sink}, appm, log)
	require.NoError(t, err)
	require.NoError(t, p.Load())
	require.NoError(t, p.Resume())

	tok := delivery.NewChannelToken(1)
	p.InitializeNFC(tok)
	require.NoError(t, ad.TapFixture(context.Background(), "greeting"))

	ev := <-tok.Events()
	assert.Equal(t, coremodel.NewTagReadResult("0102", "Hi"), ev.Result)
	require.Len(t, forwarded, 1)
	assert.Equal(t, ev.EventID, forwarded[0].EventID)
}

func TestNewPlugin_InvalidPolicy(t *testing.T) {
	_, err := NewPlugin(cfgpkg.NFCConfig{Delivery: cfgpkg.DeliveryConfig{Policy: "forever"}}, nil, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewPlugin_NoHardware(t *testing.T) {
	p, err := NewPlugin(cfgpkg.NFCConfig{}, nil, nil, nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.Load())

	agg := NewHealthAggregator(p, nil, nil)
	results := agg.CheckAll(context.Background())
	require.Contains(t, results, "nfc")
	assert.Equal(t, health.StatusDegraded, results["nfc"].Status)
}

func TestNewWebhookSink(t *testing.T) {
	log := zap.NewNop()
	_, _, tpm := NewMetrics()

	tok, q := NewWebhookSink(cfgpkg.WebhookConfig{}, nil, tpm, log)
	assert.Nil(t, tok)
	assert.Nil(t, q)

	tok, q = NewWebhookSink(cfgpkg.WebhookConfig{Enabled: true, URL: "http://127.0.0.1:1/hook"}, nil, tpm, log)
	assert.NotNil(t, tok)
	assert.Nil(t, q)
}

func TestNewEventBus(t *testing.T) {
	assert.Nil(t, NewEventBus(cfgpkg.EventBusConfig{}, zap.NewNop()))

	bus := NewEventBus(cfgpkg.EventBusConfig{Enabled: true, Topic: "test.topic"}, zap.NewNop())
	require.NotNil(t, bus)
	assert.Equal(t, "test.topic", bus.Topic())
	require.NoError(t, bus.Close())
}
