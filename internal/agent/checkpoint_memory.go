package agent

import (
	"encoding/json"
	"fmt"
	"sync"

	"cv-agent-go/internal/types"
)

// InMemoryCheckpointStore 进程内检查点存储，用于测试和单机运行。
// 内部以 JSON 序列化做深拷贝，调用方后续修改状态不会影响已保存的快照。
type InMemoryCheckpointStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewInMemoryCheckpointStore 创建内存检查点存储
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{
		states: make(map[string][]byte),
	}
}

// Save 实现 CheckpointStore 接口
func (s *InMemoryCheckpointStore) Save(state *types.WorkflowState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("状态或会话ID不能为空")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化会话状态失败 %s: %w", state.SessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.SessionID] = data
	return nil
}

// Load 实现 CheckpointStore 接口
func (s *InMemoryCheckpointStore) Load(sessionID string) (*types.WorkflowState, error) {
	s.mu.RLock()
	data, ok := s.states[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	var state types.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("反序列化会话状态失败 %s: %w", sessionID, err)
	}
	return &state, nil
}

// Delete 实现 CheckpointStore 接口
func (s *InMemoryCheckpointStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}

var _ CheckpointStore = (*InMemoryCheckpointStore)(nil)
