package agent

import (
	"testing"

	"cv-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCheckpointStore_SaveLoad(t *testing.T) {
	store := NewInMemoryCheckpointStore()

	state := types.NewWorkflowState("sess-1", "resume text", "jd text")
	state.ATSComplianceScore = types.IntPtr(72)
	require.NoError(t, store.Save(state))

	loaded, err := store.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", loaded.SessionID)
	assert.Equal(t, "resume text", loaded.UploadedResume)
	assert.Equal(t, types.StepUpload, loaded.CurrentStep)
	require.NotNil(t, loaded.ATSComplianceScore)
	assert.Equal(t, 72, *loaded.ATSComplianceScore)
}

func TestInMemoryCheckpointStore_SnapshotIsolation(t *testing.T) {
	store := NewInMemoryCheckpointStore()

	state := types.NewWorkflowState("sess-2", "resume", "jd")
	require.NoError(t, store.Save(state))

	// 保存后的修改不能影响已有快照
	state.CurrentStep = types.StepCVGenerated
	state.ImprovedCV = "changed after save"

	loaded, err := store.Load("sess-2")
	require.NoError(t, err)
	assert.Equal(t, types.StepUpload, loaded.CurrentStep)
	assert.Empty(t, loaded.ImprovedCV)
}

func TestInMemoryCheckpointStore_Overwrite(t *testing.T) {
	store := NewInMemoryCheckpointStore()

	state := types.NewWorkflowState("sess-3", "resume", "jd")
	require.NoError(t, store.Save(state))

	state.CurrentStep = types.StepResumeAnalyzed
	require.NoError(t, store.Save(state))

	loaded, err := store.Load("sess-3")
	require.NoError(t, err)
	assert.Equal(t, types.StepResumeAnalyzed, loaded.CurrentStep)
}

func TestInMemoryCheckpointStore_NotFound(t *testing.T) {
	store := NewInMemoryCheckpointStore()

	_, err := store.Load("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInMemoryCheckpointStore_Delete(t *testing.T) {
	store := NewInMemoryCheckpointStore()

	state := types.NewWorkflowState("sess-4", "resume", "jd")
	require.NoError(t, store.Save(state))
	require.NoError(t, store.Delete("sess-4"))

	_, err := store.Load("sess-4")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 删除不存在的会话不报错
	assert.NoError(t, store.Delete("missing"))
}

func TestInMemoryCheckpointStore_RejectsEmptySession(t *testing.T) {
	store := NewInMemoryCheckpointStore()

	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&types.WorkflowState{}))
}
