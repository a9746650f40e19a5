package workflow

import (
	"cv-agent-go/internal/types"
)

// Next 是状态机的转移函数：给定当前状态和客户端可用性，
// 返回流水线应当推进到的下一个步骤，或 StepEnd 表示终止。
// 它只读状态、不写状态，也没有任何副作用——同一个状态可以
// 反复求值，这正是流水线可恢复的基础。
func Next(state *types.WorkflowState, clientsReady bool) types.Step {
	// 错误是粘滞的：一旦写入就不再推进任何阶段
	if state.HasError() {
		return types.StepEnd
	}

	// 需要 LLM 的步骤在客户端不可用时快速失败，而不是发起注定失败的调用
	if !clientsReady && requiresClients(state.CurrentStep) {
		return types.StepEnd
	}

	switch state.CurrentStep {
	case types.StepUpload:
		if state.UploadedResume != "" && state.JobDescription != "" {
			return types.StepResumeAnalyzed
		}
	case types.StepResumeAnalyzed:
		if state.ResumeAnalysis != nil {
			return types.StepJDAnalyzed
		}
	case types.StepJDAnalyzed:
		if state.JDAnalysis != nil {
			return types.StepMatchAnalyzed
		}
	case types.StepMatchAnalyzed:
		if state.MatchAnalysis != nil {
			return types.StepCVGenerated
		}
	case types.StepCVGenerated:
		if state.ImprovedCV != "" {
			return types.StepCVFinalized
		}
	case types.StepCVFinalized:
		if state.FinalCV != "" {
			return types.StepAnalysisComplete
		}
	case types.StepAnalysisComplete:
		return types.StepEnd
	}

	// 阶段"成功"却没有产出可用载荷，或步骤未知，一律终止
	return types.StepEnd
}

// requiresClients 判断某步骤的后续阶段是否依赖 LLM 客户端
func requiresClients(step types.Step) bool {
	switch step {
	case types.StepUpload, types.StepResumeAnalyzed, types.StepJDAnalyzed,
		types.StepMatchAnalyzed, types.StepCVGenerated, types.StepCVFinalized:
		return true
	}
	return false
}

// NextStep 返回固定顺序中的下一个步骤，用于展示进度。
// 已是最后一步或步骤未知时返回 StepEnd。
func NextStep(current types.Step) types.Step {
	for i, step := range types.StepSequence {
		if step == current {
			if i < len(types.StepSequence)-1 {
				return types.StepSequence[i+1]
			}
			return types.StepEnd
		}
	}
	return types.StepEnd
}

// ValidateStateForStep 校验状态是否具备推进到目标步骤所需的数据
func ValidateStateForStep(state *types.WorkflowState, target types.Step) bool {
	switch target {
	case types.StepResumeAnalyzed:
		return state.UploadedResume != ""
	case types.StepJDAnalyzed:
		return state.JobDescription != "" && state.ResumeAnalysis != nil
	case types.StepMatchAnalyzed:
		return state.ResumeAnalysis != nil && state.JDAnalysis != nil
	case types.StepCVGenerated:
		return state.MatchAnalysis != nil && state.ResumeAnalysis != nil && state.JDAnalysis != nil
	case types.StepCVFinalized:
		return state.ImprovedCV != ""
	case types.StepAnalysisComplete:
		return state.FinalCV != "" && state.JDAnalysis != nil
	}
	return true
}

// CanSkipFeedback 反馈阶段在没有用户反馈时可以直通，不发起 LLM 调用
func CanSkipFeedback(state *types.WorkflowState) bool {
	return state.UserFeedback == ""
}
