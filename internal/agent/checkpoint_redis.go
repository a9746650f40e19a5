package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cv-agent-go/internal/types"

	"github.com/redis/go-redis/v9"
)

// RedisCheckpointStore 实现了 CheckpointStore 接口，使用 Redis 作为持久化存储。
// 每个会话一个 String 键，值为状态的 JSON 快照，带可选过期时间。
type RedisCheckpointStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

// NewRedisCheckpointStore 创建一个新的 RedisCheckpointStore 实例。
// keyPrefix: 所有键的前缀，例如 "cvagent:session:"。
// ttl: 检查点的可选过期时间。如果为0，则不过期。
func NewRedisCheckpointStore(redisClient *redis.Client, keyPrefix string, ttl time.Duration) (*RedisCheckpointStore, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = "cvagent:session:"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCheckpointStore{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
	}, nil
}

// buildKey 为给定的 sessionID 构建 Redis 键
func (rcs *RedisCheckpointStore) buildKey(sessionID string) string {
	return rcs.keyPrefix + sessionID
}

// Save 实现 CheckpointStore 接口
func (rcs *RedisCheckpointStore) Save(state *types.WorkflowState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("状态或会话ID不能为空")
	}
	key := rcs.buildKey(state.SessionID)
	ctx := context.Background()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state for session %s: %w", state.SessionID, err)
	}

	if err := rcs.redisClient.Set(ctx, key, data, rcs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis for session %s: %w", state.SessionID, err)
	}
	return nil
}

// Load 实现 CheckpointStore 接口
func (rcs *RedisCheckpointStore) Load(sessionID string) (*types.WorkflowState, error) {
	key := rcs.buildKey(sessionID)
	ctx := context.Background()

	data, err := rcs.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint from redis for session %s: %w", sessionID, err)
	}

	var state types.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state for session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Delete 实现 CheckpointStore 接口
func (rcs *RedisCheckpointStore) Delete(sessionID string) error {
	key := rcs.buildKey(sessionID)
	ctx := context.Background()

	if err := rcs.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint from redis for session %s: %w", sessionID, err)
	}
	return nil
}

var _ CheckpointStore = (*RedisCheckpointStore)(nil)
