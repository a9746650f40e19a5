package agent

import (
	"errors"

	"cv-agent-go/internal/types"
)

// ErrSessionNotFound 会话检查点不存在
var ErrSessionNotFound = errors.New("session checkpoint not found")

// CheckpointStore 工作流状态的检查点存储接口。
// 每个会话以 SessionID 为键保存一份完整的 WorkflowState 快照，
// 驱动器在每个阶段完成后覆盖写入，中断后可从最近的检查点恢复。
type CheckpointStore interface {
	// Save 保存会话状态快照，覆盖已有检查点
	Save(state *types.WorkflowState) error

	// Load 读取会话状态。会话不存在时返回 ErrSessionNotFound。
	Load(sessionID string) (*types.WorkflowState, error)

	// Delete 删除会话检查点。删除不存在的会话不报错。
	Delete(sessionID string) error
}
