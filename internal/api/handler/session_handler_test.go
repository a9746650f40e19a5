package handler

import (
	"context"
	"testing"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/config"
	"cv-agent-go/internal/llm"
	"cv-agent-go/internal/scorer"
	"cv-agent-go/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 能通过简历启发式校验的样本：关键词、邮箱、日期、长度都满足
const validResumeText = `John Doe
Email: john.doe@example.com | Phone: (555) 123-4567

EXPERIENCE
Senior Software Engineer at Acme Corp, 2019 - 2023
- Led development of distributed backend services handling production traffic
- Improved deployment pipeline and reduced release time significantly

EDUCATION
University of Somewhere, BSc Computer Science, 2015

SKILLS
Go, Python, Kubernetes, PostgreSQL`

// 能通过职位描述启发式校验的样本
const validJDText = `We are looking for a Senior Backend Engineer to join our platform team.

Requirements:
- 5+ years of experience building distributed systems
- Strong skills in Go and cloud infrastructure

Responsibilities:
- Design and operate backend services
- Mentor junior engineers on the team`

// 各阶段的最小合法响应
const (
	stageResumeJSON = `{"personal_info":{"name":"John Doe"},"skills":{"technical_skills":["Go"]}}`
	stageJDJSON     = `{"job_title":"Senior Backend Engineer","required_skills":["Go"]}`
	stageMatchJSON  = `{"overall_match_percentage":72.5,"gaps_identified":[{"category":"Skills","gap":"Missing Kubernetes experience","severity":"Medium","addressable":true,"suggestions":[]}],"strengths_identified":[],"recommendations":[]}`
	stageCVJSON     = `{"improved_resume_text":"IMPROVED RESUME TEXT","changes_made":[],"keywords_added":["Go"],"ats_improvements":[],"sections_restructured":[]}`
	stageFbJSON     = `{"final_resume_text":"FINAL RESUME TEXT","feedback_changes":[{"feedback_item":"Emphasize leadership","section":"Experience","change_type":"Enhanced","original":"","updated":"","reasoning":""}],"feedback_not_applied":[]}`
	stageFinalJSON  = `{"final_match_analysis":{"overall_match_percentage":88.0},"gaps_analysis":{"gaps_addressed":[],"remaining_gaps":[]},"improvement_summary":{"total_changes":1}}`
)

func newTestHandler(mock *llm.MockChatModel) (*SessionHandler, *agent.InMemoryCheckpointStore) {
	cfg := config.DefaultConfig()
	clients := &llm.Clients{Analyzer: mock, Generator: mock}
	sc := scorer.NewHybridScorer(cfg.Scorer, nil)
	store := agent.NewInMemoryCheckpointStore()
	driver := workflow.NewDriver(workflow.NewStages(clients, sc), store)

	return NewSessionHandler(cfg, driver, store, clients, nil, nil), store
}

// TestHandleCreateSession_RunsToFeedbackPause 创建会话后流水线推进到
// cv_generated 暂停，摘要里带改进稿和 ATS 分数
func TestHandleCreateSession_RunsToFeedbackPause(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: stageResumeJSON},
		{Content: stageJDJSON},
		{Content: stageMatchJSON},
		{Content: stageCVJSON},
	})
	h, _ := newTestHandler(mock)

	summary, err := h.HandleCreateSession(context.Background(), &CreateSessionRequest{
		ResumeText:     validResumeText,
		JobDescription: validJDText,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, "cv_generated", summary.CurrentStep)
	assert.True(t, summary.AwaitingFeedback)
	assert.False(t, summary.Completed)
	assert.Equal(t, "IMPROVED RESUME TEXT", summary.ImprovedCV)
	require.NotNil(t, summary.ATSScore)
	require.NotNil(t, summary.MatchPercentage)
	assert.InDelta(t, 72.5, *summary.MatchPercentage, 0.001)
	assert.Equal(t, 4, mock.CallCount)
}

// TestHandleCreateSession_RejectsInvalidInputs 校验门挡住非简历文本
// 和不完整的职位描述，不创建会话也不调用 LLM
func TestHandleCreateSession_RejectsInvalidInputs(t *testing.T) {
	mock := llm.NewMockChatModel("{}", nil)
	h, _ := newTestHandler(mock)

	_, err := h.HandleCreateSession(context.Background(), &CreateSessionRequest{
		ResumeText:     "这显然不是一份简历",
		JobDescription: validJDText,
	})
	assert.ErrorIs(t, err, ErrInvalidResume)

	_, err = h.HandleCreateSession(context.Background(), &CreateSessionRequest{
		ResumeText:     validResumeText,
		JobDescription: "too short",
	})
	assert.ErrorIs(t, err, ErrInvalidJobDescription)

	assert.Equal(t, 0, mock.CallCount)
}

// TestHandleFeedback_CompletesSession 反馈注入后流水线走完剩余阶段，
// 结果接口返回终稿与分数恒等式
func TestHandleFeedback_CompletesSession(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: stageResumeJSON},
		{Content: stageJDJSON},
		{Content: stageMatchJSON},
		{Content: stageCVJSON},
		{Content: stageFbJSON},
		{Content: stageFinalJSON},
	})
	h, _ := newTestHandler(mock)

	created, err := h.HandleCreateSession(context.Background(), &CreateSessionRequest{
		ResumeText:     validResumeText,
		JobDescription: validJDText,
	})
	require.NoError(t, err)

	summary, err := h.HandleFeedback(context.Background(), created.SessionID, "Emphasize leadership")
	require.NoError(t, err)
	assert.True(t, summary.Completed)
	assert.Equal(t, "analysis_complete", summary.CurrentStep)

	result, err := h.HandleResult(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "FINAL RESUME TEXT", result.FinalCV)
	require.NotNil(t, result.OriginalATSScore)
	require.NotNil(t, result.FinalATSScore)
	require.NotNil(t, result.ATSImprovement)
	assert.Equal(t, *result.FinalATSScore-*result.OriginalATSScore, *result.ATSImprovement)
	require.Len(t, result.FeedbackApplied, 1)
}

// TestHandleStatus 状态接口返回检查点里的当前进度
func TestHandleStatus(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: stageResumeJSON},
		{Content: stageJDJSON},
		{Content: stageMatchJSON},
		{Content: stageCVJSON},
	})
	h, _ := newTestHandler(mock)

	created, err := h.HandleCreateSession(context.Background(), &CreateSessionRequest{
		ResumeText:     validResumeText,
		JobDescription: validJDText,
	})
	require.NoError(t, err)

	status, err := h.HandleStatus(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "cv_generated", status.CurrentStep)
	assert.Equal(t, "cv_finalized", status.NextStep)
}

// TestHandleStatus_UnknownSession 不存在的会话返回存储层的未找到错误
func TestHandleStatus_UnknownSession(t *testing.T) {
	h, _ := newTestHandler(llm.NewMockChatModel("{}", nil))

	_, err := h.HandleStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, agent.ErrSessionNotFound)
}

// TestHandleResult_NotFinished 未完成的会话拿结果返回冲突错误
func TestHandleResult_NotFinished(t *testing.T) {
	mock := llm.NewMockChatModelSequential([]llm.MockResponse{
		{Content: stageResumeJSON},
		{Content: stageJDJSON},
		{Content: stageMatchJSON},
		{Content: stageCVJSON},
	})
	h, _ := newTestHandler(mock)

	created, err := h.HandleCreateSession(context.Background(), &CreateSessionRequest{
		ResumeText:     validResumeText,
		JobDescription: validJDText,
	})
	require.NoError(t, err)

	_, err = h.HandleResult(context.Background(), created.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFinished)
}
