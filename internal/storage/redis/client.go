// Package redis 检测事件推送共用的 Redis 连接（队列、去重、健康检查）
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
)

const (
	// DefaultKeyPrefix 未配置 keyPrefix 时的键命名空间
	DefaultKeyPrefix = "nfc"

	defaultPingTimeout = 5 * time.Second
)

// ErrDisabled 配置中未启用 Redis
var ErrDisabled = errors.New("redis: not enabled")

// Client Redis客户端，附带本实例的键命名空间
type Client struct {
	*redis.Client
	prefix string
}

// Options 由配置构造连接参数
//
// 连接名为 "<app>:<prefix>"，便于在 CLIENT LIST 中区分多个读卡实例。
func Options(cfg cfgpkg.RedisConfig, appName string) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if appName != "" {
		opts.ClientName = appName + ":" + keyPrefix(cfg)
	}
	return opts
}

// NewClient 创建客户端并在拨号超时内完成一次 PING
func NewClient(cfg cfgpkg.RedisConfig, appName string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	rdb := redis.NewClient(Options(cfg, appName))

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return &Client{Client: rdb, prefix: keyPrefix(cfg)}, nil
}

// KeyPrefix 键命名空间（队列与去重键均以此开头）
func (c *Client) KeyPrefix() string {
	if c == nil || c.prefix == "" {
		return DefaultKeyPrefix
	}
	return c.prefix
}

// Key 拼接命名空间内的键：<prefix>:<part>:<part>...
func (c *Client) Key(parts ...string) string {
	return strings.Join(append([]string{c.KeyPrefix()}, parts...), ":")
}

func (c *Client) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Stats 连接池统计
func (c *Client) Stats() *redis.PoolStats {
	return c.PoolStats()
}

func keyPrefix(cfg cfgpkg.RedisConfig) string {
	p := strings.Trim(strings.TrimSpace(cfg.KeyPrefix), ":")
	if p == "" {
		return DefaultKeyPrefix
	}
	return p
}
