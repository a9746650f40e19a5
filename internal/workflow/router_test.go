package workflow

import (
	"encoding/json"
	"testing"

	"cv-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
)

// fullyPopulatedState 返回一个各阶段产出齐备、位于指定步骤的状态
func fullyPopulatedState(step types.Step) *types.WorkflowState {
	state := types.NewWorkflowState("sess", "resume text", "jd text")
	state.CurrentStep = step
	state.ResumeAnalysis = json.RawMessage(`{"personal_info":{}}`)
	state.JDAnalysis = json.RawMessage(`{"job_title":"Engineer"}`)
	state.MatchAnalysis = &types.MatchAnalysis{OverallMatchPercentage: 70}
	state.ImprovedCV = "improved"
	state.FinalCV = "final"
	return state
}

// TestNext_ErrorIsSticky 只要错误字段非空，无论其他字段多完整都终止
func TestNext_ErrorIsSticky(t *testing.T) {
	for _, step := range types.StepSequence {
		state := fullyPopulatedState(step)
		state.Error = "某个阶段失败了"
		assert.Equal(t, types.StepEnd, Next(state, true), "step=%s", step)
	}
}

// TestNext_HappyPath 每个步骤在产出齐备时推进到固定的下一步
func TestNext_HappyPath(t *testing.T) {
	cases := []struct {
		current types.Step
		next    types.Step
	}{
		{types.StepUpload, types.StepResumeAnalyzed},
		{types.StepResumeAnalyzed, types.StepJDAnalyzed},
		{types.StepJDAnalyzed, types.StepMatchAnalyzed},
		{types.StepMatchAnalyzed, types.StepCVGenerated},
		{types.StepCVGenerated, types.StepCVFinalized},
		{types.StepCVFinalized, types.StepAnalysisComplete},
		{types.StepAnalysisComplete, types.StepEnd},
	}
	for _, c := range cases {
		state := fullyPopulatedState(c.current)
		assert.Equal(t, c.next, Next(state, true), "current=%s", c.current)
	}
}

// TestNext_MissingPayloadEnds 阶段没报错但缺少产出时终止
func TestNext_MissingPayloadEnds(t *testing.T) {
	state := types.NewWorkflowState("sess", "resume", "")
	assert.Equal(t, types.StepEnd, Next(state, true), "缺少职位描述")

	state = fullyPopulatedState(types.StepResumeAnalyzed)
	state.ResumeAnalysis = nil
	assert.Equal(t, types.StepEnd, Next(state, true))

	state = fullyPopulatedState(types.StepMatchAnalyzed)
	state.MatchAnalysis = nil
	assert.Equal(t, types.StepEnd, Next(state, true))

	state = fullyPopulatedState(types.StepCVGenerated)
	state.ImprovedCV = ""
	assert.Equal(t, types.StepEnd, Next(state, true))
}

// TestNext_ClientsNotReady 客户端不可用时所有分析步骤都终止
func TestNext_ClientsNotReady(t *testing.T) {
	for _, step := range []types.Step{
		types.StepUpload, types.StepResumeAnalyzed, types.StepJDAnalyzed,
		types.StepMatchAnalyzed, types.StepCVGenerated, types.StepCVFinalized,
	} {
		state := fullyPopulatedState(step)
		assert.Equal(t, types.StepEnd, Next(state, false), "step=%s", step)
	}
}

// TestNext_UnknownStepEnds 未知步骤落入终止而不是崩溃
func TestNext_UnknownStepEnds(t *testing.T) {
	state := fullyPopulatedState("nonsense_step")
	assert.Equal(t, types.StepEnd, Next(state, true))
}

func TestNextStep(t *testing.T) {
	assert.Equal(t, types.StepResumeAnalyzed, NextStep(types.StepUpload))
	assert.Equal(t, types.StepAnalysisComplete, NextStep(types.StepCVFinalized))
	assert.Equal(t, types.StepEnd, NextStep(types.StepAnalysisComplete))
	assert.Equal(t, types.StepEnd, NextStep("bogus"))
}

func TestValidateStateForStep(t *testing.T) {
	empty := types.NewWorkflowState("sess", "", "")
	full := fullyPopulatedState(types.StepUpload)

	assert.False(t, ValidateStateForStep(empty, types.StepResumeAnalyzed))
	assert.True(t, ValidateStateForStep(full, types.StepResumeAnalyzed))

	assert.False(t, ValidateStateForStep(empty, types.StepJDAnalyzed))
	assert.True(t, ValidateStateForStep(full, types.StepJDAnalyzed))

	assert.False(t, ValidateStateForStep(empty, types.StepCVGenerated))
	assert.True(t, ValidateStateForStep(full, types.StepCVGenerated))

	assert.False(t, ValidateStateForStep(empty, types.StepAnalysisComplete))
	assert.True(t, ValidateStateForStep(full, types.StepAnalysisComplete))

	// 未知步骤默认有效
	assert.True(t, ValidateStateForStep(empty, "custom_step"))
}

func TestCanSkipFeedback(t *testing.T) {
	state := types.NewWorkflowState("sess", "resume", "jd")
	assert.True(t, CanSkipFeedback(state))

	state.UserFeedback = "please emphasize leadership"
	assert.False(t, CanSkipFeedback(state))
}
