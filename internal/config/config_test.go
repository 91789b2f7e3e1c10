package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../../configs/example.yaml")
	require.NoError(t, err, "配置文件加载失败")

	assert.Equal(t, "nfc-reader", cfg.App.Name)
	assert.Equal(t, "keepalive", cfg.NFC.Delivery.Policy)
	assert.Equal(t, 30*time.Second, cfg.API.LongPollTimeout)
	assert.Equal(t, "nfc.tag.read", cfg.EventBus.Topic)
	assert.True(t, cfg.NFC.Simulator.Enabled)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 20, cfg.API.RateLimit.RPS)
	assert.Equal(t, time.Hour, cfg.Webhook.DedupTTL)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nfc:\n  delivery:\n    policy: keepalive\n"), 0o600))

	t.Setenv("NFC_NFC_DELIVERY_POLICY", "oneshot")
	t.Setenv("NFC_HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "oneshot", cfg.NFC.Delivery.Policy)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nfc:\n  delivery:\n    policy: forever\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate())

	cfg.Webhook.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Webhook.URL = "http://localhost/hook"
	assert.NoError(t, cfg.Validate())

	cfg.API.Auth.Enabled = true
	assert.Error(t, cfg.Validate())
}
