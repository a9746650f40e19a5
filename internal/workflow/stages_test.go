package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/llm"
	"cv-agent-go/internal/scorer"
	"cv-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testResumeAnalysisJSON = `{"personal_info": {"name": "Jane Doe", "email": "jane@example.com"}, "skills": {"technical": ["Go", "PostgreSQL"]}, "key_keywords": ["Go", "backend"]}`

	testJDAnalysisJSON = `{"job_title": "Backend Engineer", "important_keywords": ["Go", "Kubernetes"]}`

	testMatchAnalysisJSON = `{
		"overall_match_percentage": 72.5,
		"gaps_identified": [
			{"category": "Technical Skills", "gap": "Missing Kubernetes experience", "severity": "High", "addressable": true, "suggestions": ["Add container projects"]}
		],
		"strengths_identified": [
			{"category": "Technical Skills", "strength": "Strong Go background", "value": "Matches core requirement", "leverage_suggestion": "Highlight Go services"}
		],
		"recommendations": [
			{"type": "Content Addition", "priority": "High", "description": "Add Kubernetes exposure", "section": "Skills"}
		]
	}`

	testCVGenerationJSON = `{
		"improved_resume_text": "IMPROVED RESUME TEXT",
		"changes_made": [
			{"section": "Skills", "change_type": "Added", "original": "N/A", "improved": "Added Kubernetes", "reason": "Job requires it", "addresses_gap": "Missing Kubernetes experience"}
		],
		"keywords_added": ["Kubernetes"],
		"ats_improvements": ["Standard section headers"],
		"sections_restructured": []
	}`

	testFeedbackJSON = `{
		"final_resume_text": "FINAL RESUME TEXT",
		"feedback_changes": [
			{"feedback_item": "Emphasize leadership", "section": "Experience", "change_type": "Modified", "original": "Led team", "updated": "Led a team of 8 engineers", "reasoning": "Addresses the feedback directly"}
		],
		"feedback_not_applied": []
	}`

	testFinalAnalysisJSON = `{
		"final_match_analysis": {"overall_match_percentage": 88.0},
		"gaps_analysis": {
			"gaps_addressed": [{"gap": "Missing Kubernetes experience"}],
			"remaining_gaps": [{"gap": "Needs 2 more years of platform experience"}]
		},
		"improvement_summary": {"key_enhancements": ["Better keyword coverage"]}
	}`
)

func newTestStages(mock *llm.MockChatModel) *Stages {
	clients := &llm.Clients{Analyzer: mock, Generator: mock}
	sc := scorer.NewHybridScorer(config.DefaultConfig().Scorer, nil)
	return NewStages(clients, sc)
}

func TestAnalyzeResume(t *testing.T) {
	mock := llm.NewMockChatModel(testResumeAnalysisJSON, nil)
	s := newTestStages(mock)

	state := types.NewWorkflowState("sess", "resume with experience education skills contact jane@example.com 2020", "jd")
	update := s.AnalyzeResume(context.Background(), state)

	require.Empty(t, update.Err)
	assert.NotNil(t, update.ResumeAnalysis)
	require.NotNil(t, update.ATSComplianceScore)
	assert.GreaterOrEqual(t, *update.ATSComplianceScore, 0)
	assert.Equal(t, types.StepResumeAnalyzed, update.CurrentStep)

	// 提示词应同时携带简历原文和ATS评分结果
	userPrompt := mock.ReceivedMessages[0][1].Content
	assert.Contains(t, userPrompt, "resume with experience")
	assert.Contains(t, userPrompt, "rule_based")
}

func TestAnalyzeResume_MissingInput(t *testing.T) {
	s := newTestStages(llm.NewMockChatModel("{}", nil))

	update := s.AnalyzeResume(context.Background(), types.NewWorkflowState("sess", "", "jd"))
	assert.NotEmpty(t, update.Err)
}

func TestAnalyzeResume_NoClients(t *testing.T) {
	sc := scorer.NewHybridScorer(config.DefaultConfig().Scorer, nil)
	s := NewStages(nil, sc)

	update := s.AnalyzeResume(context.Background(), types.NewWorkflowState("sess", "resume", "jd"))
	assert.NotEmpty(t, update.Err)
	assert.Contains(t, update.Err, "未初始化")
}

func TestAnalyzeResume_LLMFailure(t *testing.T) {
	mock := llm.NewMockChatModel("", errors.New("timeout"))
	s := newTestStages(mock)

	update := s.AnalyzeResume(context.Background(), types.NewWorkflowState("sess", "resume", "jd"))
	assert.NotEmpty(t, update.Err)
}

func TestAnalyzeJobDescription(t *testing.T) {
	mock := llm.NewMockChatModel(testJDAnalysisJSON, nil)
	s := newTestStages(mock)

	update := s.AnalyzeJobDescription(context.Background(), types.NewWorkflowState("sess", "resume", "jd text"))

	require.Empty(t, update.Err)
	assert.NotNil(t, update.JDAnalysis)
	assert.Equal(t, types.StepJDAnalyzed, update.CurrentStep)
}

func TestAnalyzeJobDescription_FencedResponse(t *testing.T) {
	mock := llm.NewMockChatModel("```json\n"+testJDAnalysisJSON+"\n```", nil)
	s := newTestStages(mock)

	update := s.AnalyzeJobDescription(context.Background(), types.NewWorkflowState("sess", "resume", "jd text"))

	require.Empty(t, update.Err)
	assert.JSONEq(t, testJDAnalysisJSON, string(update.JDAnalysis))
}

func TestMatchAnalysis(t *testing.T) {
	mock := llm.NewMockChatModel(testMatchAnalysisJSON, nil)
	s := newTestStages(mock)

	state := types.NewWorkflowState("sess", "resume", "jd")
	state.ResumeAnalysis = json.RawMessage(testResumeAnalysisJSON)
	state.JDAnalysis = json.RawMessage(testJDAnalysisJSON)

	update := s.MatchAnalysis(context.Background(), state)

	require.Empty(t, update.Err)
	require.NotNil(t, update.MatchAnalysis)
	assert.InDelta(t, 72.5, update.MatchAnalysis.OverallMatchPercentage, 0.001)
	require.NotNil(t, update.MatchPercentage)
	assert.InDelta(t, 72.5, *update.MatchPercentage, 0.001)
	assert.Equal(t, []string{"Missing Kubernetes experience"}, update.IdentifiedGaps)
	require.Len(t, update.GapDetails, 1)
	assert.Equal(t, types.SeverityHigh, update.GapDetails[0].Severity)
	assert.Len(t, update.Strengths, 1)
	assert.Len(t, update.Recommendations, 1)
	assert.Equal(t, types.StepMatchAnalyzed, update.CurrentStep)
}

func TestMatchAnalysis_RequiresBothAnalyses(t *testing.T) {
	s := newTestStages(llm.NewMockChatModel(testMatchAnalysisJSON, nil))

	state := types.NewWorkflowState("sess", "resume", "jd")
	state.ResumeAnalysis = json.RawMessage(testResumeAnalysisJSON)

	update := s.MatchAnalysis(context.Background(), state)
	assert.NotEmpty(t, update.Err)
}

func TestGenerateCV(t *testing.T) {
	mock := llm.NewMockChatModel(testCVGenerationJSON, nil)
	s := newTestStages(mock)

	state := types.NewWorkflowState("sess", "resume", "jd")
	state.ResumeAnalysis = json.RawMessage(testResumeAnalysisJSON)
	state.JDAnalysis = json.RawMessage(testJDAnalysisJSON)
	state.MatchAnalysis = &types.MatchAnalysis{
		OverallMatchPercentage: 72.5,
		Raw:                    json.RawMessage(testMatchAnalysisJSON),
	}

	update := s.GenerateCV(context.Background(), state)

	require.Empty(t, update.Err)
	assert.Equal(t, "IMPROVED RESUME TEXT", update.ImprovedCV)
	require.Len(t, update.ChangesMade, 1)
	assert.Equal(t, types.ChangeAdded, update.ChangesMade[0].ChangeType)
	assert.Equal(t, []string{"Kubernetes"}, update.KeywordsAdded)
	assert.Equal(t, types.StepCVGenerated, update.CurrentStep)
}

// TestApplyFeedback_PassThrough 没有用户反馈时终稿等于改进稿，
// 应用列表为空，且不发生任何 LLM 调用
func TestApplyFeedback_PassThrough(t *testing.T) {
	mock := llm.NewMockChatModel(testFeedbackJSON, nil)
	s := newTestStages(mock)

	state := types.NewWorkflowState("sess", "resume", "jd")
	state.ImprovedCV = "IMPROVED RESUME TEXT"

	update := s.ApplyFeedback(context.Background(), state)

	require.Empty(t, update.Err)
	assert.Equal(t, "IMPROVED RESUME TEXT", update.FinalCV)
	assert.NotNil(t, update.UserFeedbackApplied)
	assert.Empty(t, update.UserFeedbackApplied)
	assert.Equal(t, types.StepCVFinalized, update.CurrentStep)
	assert.Equal(t, 0, mock.CallCount)
}

func TestApplyFeedback_WithFeedback(t *testing.T) {
	mock := llm.NewMockChatModel(testFeedbackJSON, nil)
	s := newTestStages(mock)

	state := types.NewWorkflowState("sess", "resume", "jd")
	state.ImprovedCV = "IMPROVED RESUME TEXT"
	state.UserFeedback = "Emphasize leadership"
	state.JDAnalysis = json.RawMessage(testJDAnalysisJSON)

	update := s.ApplyFeedback(context.Background(), state)

	require.Empty(t, update.Err)
	assert.Equal(t, "FINAL RESUME TEXT", update.FinalCV)
	require.Len(t, update.UserFeedbackApplied, 1)
	assert.Equal(t, "Emphasize leadership", update.UserFeedbackApplied[0].FeedbackItem)
	assert.Equal(t, 1, mock.CallCount)
	assert.Equal(t, types.StepCVFinalized, update.CurrentStep)
}

func TestApplyFeedback_MissingImprovedCV(t *testing.T) {
	s := newTestStages(llm.NewMockChatModel(testFeedbackJSON, nil))

	update := s.ApplyFeedback(context.Background(), types.NewWorkflowState("sess", "resume", "jd"))
	assert.NotEmpty(t, update.Err)
}

func TestFinalAnalysis(t *testing.T) {
	mock := llm.NewMockChatModel(testFinalAnalysisJSON, nil)
	s := newTestStages(mock)

	state := types.NewWorkflowState("sess", "original resume", "jd")
	state.JDAnalysis = json.RawMessage(testJDAnalysisJSON)
	state.FinalCV = "FINAL RESUME TEXT"
	state.ATSComplianceScore = types.IntPtr(20)

	update := s.FinalAnalysis(context.Background(), state)

	require.Empty(t, update.Err)
	require.NotNil(t, update.FinalATSScore)
	require.NotNil(t, update.ATSImprovement)
	// 改进幅度恒等于终稿分数减初稿分数
	assert.Equal(t, *update.FinalATSScore-20, *update.ATSImprovement)
	require.NotNil(t, update.FinalMatchPercentage)
	assert.InDelta(t, 88.0, *update.FinalMatchPercentage, 0.001)
	assert.Equal(t, []string{"Missing Kubernetes experience"}, update.AddressedGaps)
	assert.Equal(t, []string{"Needs 2 more years of platform experience"}, update.RemainingGaps)
	assert.NotNil(t, update.ImprovementSummary)
	assert.NotNil(t, update.FinalAnalysis)
	assert.Equal(t, types.StepAnalysisComplete, update.CurrentStep)
}

func TestFinalAnalysis_MissingInputs(t *testing.T) {
	s := newTestStages(llm.NewMockChatModel(testFinalAnalysisJSON, nil))

	state := types.NewWorkflowState("sess", "resume", "jd")
	update := s.FinalAnalysis(context.Background(), state)
	assert.NotEmpty(t, update.Err)
}

func TestStages_MalformedResponseBecomesError(t *testing.T) {
	mock := llm.NewMockChatModel("not json at all", nil)
	s := newTestStages(mock)

	update := s.AnalyzeJobDescription(context.Background(), types.NewWorkflowState("sess", "resume", "jd"))
	assert.NotEmpty(t, update.Err)
}
