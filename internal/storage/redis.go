package storage

import (
	"context"
	"fmt"
	"time"

	"cv-agent-go/internal/config"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Redis 键值存储封装。检查点层直接复用底层客户端，
// 这里只负责连接的建立、探活与关闭。
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedis 创建 Redis 客户端并完成连通性检查
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis注入OpenTelemetry追踪失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis失败 (%s): %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		cfg:    cfg,
	}, nil
}

// SessionTTL 会话检查点的过期时间，配置为0时使用内置默认值
func (r *Redis) SessionTTL(fallback time.Duration) time.Duration {
	if r.cfg.SessionTTLHours > 0 {
		return time.Duration(r.cfg.SessionTTLHours) * time.Hour
	}
	return fallback
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("Redis客户端未初始化")
	}
	return r.Client.Ping(ctx).Err()
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}
