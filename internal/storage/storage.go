package storage

import (
	"context"
	"fmt"
	"strings"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖。
// 各组件按配置可选：未配置的组件保持为 nil，调用方需自行判空。
type Storage struct {
	// 键值存储，会话检查点
	Redis *Redis

	// 关系型数据库，会话归档
	MySQL *MySQL

	// 对象存储，原始文档与终稿
	MinIO *MinIO

	// 消息队列，会话生命周期事件
	RabbitMQ *RabbitMQ
}

// NewStorage 创建存储管理器。单个组件初始化失败只告警不中断，
// 全部失败才返回错误。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var initErrors []string

	if cfg.Redis.Address != "" {
		redis, err := NewRedis(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		} else {
			s.Redis = redis
		}
	}

	if cfg.MySQL.Host != "" {
		mysql, err := NewMySQL(&cfg.MySQL)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		} else {
			s.MySQL = mysql
		}
	}

	if cfg.MinIO.Endpoint != "" {
		minio, err := NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		} else {
			s.MinIO = minio
		}
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else {
			s.RabbitMQ = mq
		}
	}

	configured := cfg.Redis.Address != "" || cfg.MySQL.Host != "" ||
		cfg.MinIO.Endpoint != "" || cfg.RabbitMQ.URL != ""
	if configured && s.Redis == nil && s.MySQL == nil && s.MinIO == nil && s.RabbitMQ == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}

	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO客户端无需显式关闭
}
