package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// APIAuthConfig API Key 认证
type APIAuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// RateLimitConfig 令牌桶限流
type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

// APIConfig 桥接 API 配置
type APIConfig struct {
	Auth            APIAuthConfig   `mapstructure:"auth"`
	RateLimit       RateLimitConfig `mapstructure:"rateLimit"`
	LongPollTimeout time.Duration   `mapstructure:"longPollTimeout"`
	StreamBuffer    int             `mapstructure:"streamBuffer"`
}

// DeliveryConfig 登记投递策略
type DeliveryConfig struct {
	// Policy keepalive | oneshot
	Policy string `mapstructure:"policy"`
}

// SimulatorConfig 模拟平台（无真实射频硬件时使用）
type SimulatorConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Present      bool   `mapstructure:"present"`
	RadioEnabled bool   `mapstructure:"radioEnabled"`
	Fixtures     string `mapstructure:"fixtures"`
}

// NFCConfig 标签读取配置
type NFCConfig struct {
	Delivery  DeliveryConfig  `mapstructure:"delivery"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	// KeyPrefix 键命名空间；同一 Redis 上运行多个读卡实例时区分队列
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// WebhookConfig 第三方推送配置
type WebhookConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"apiKey"`
	Secret   string        `mapstructure:"secret"`
	Workers  int           `mapstructure:"workers"`
	DedupTTL time.Duration `mapstructure:"dedupTTL"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EventBusConfig 事件总线配置
type EventBusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Topic   string `mapstructure:"topic"`
}

// Config 顶层配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	API      APIConfig      `mapstructure:"api"`
	NFC      NFCConfig      `mapstructure:"nfc"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	EventBus EventBusConfig `mapstructure:"eventbus"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 NFC_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	// 环境变量覆盖：前缀 NFC_，并将点号替换为下划线
	v.SetEnvPrefix("NFC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch strings.ToLower(c.NFC.Delivery.Policy) {
	case "", "keepalive", "oneshot":
	default:
		return fmt.Errorf("invalid nfc.delivery.policy %q", c.NFC.Delivery.Policy)
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return errors.New("webhook.url is required when webhook is enabled")
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.apiKeys is required when auth is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nfc-reader")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "0s") // SSE 长连接

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/nfc-reader.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("api.auth.enabled", false)
	v.SetDefault("api.rateLimit.rps", 20)
	v.SetDefault("api.rateLimit.burst", 40)
	v.SetDefault("api.longPollTimeout", "30s")
	v.SetDefault("api.streamBuffer", 16)

	v.SetDefault("nfc.delivery.policy", "keepalive")
	v.SetDefault("nfc.simulator.enabled", true)
	v.SetDefault("nfc.simulator.present", true)
	v.SetDefault("nfc.simulator.radioEnabled", true)
	v.SetDefault("nfc.simulator.fixtures", "configs/tags.yaml")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.keyPrefix", "nfc")

	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.workers", 2)
	v.SetDefault("webhook.dedupTTL", "1h")
	v.SetDefault("webhook.timeout", "5s")

	v.SetDefault("eventbus.enabled", false)
	v.SetDefault("eventbus.topic", "nfc.tag.read")
}
