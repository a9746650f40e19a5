package handler

import (
	"context"
	"errors"
	"fmt"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/config"
	"cv-agent-go/internal/llm"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/parser"
	storage2 "cv-agent-go/internal/storage"
	"cv-agent-go/internal/storage/models"
	"cv-agent-go/internal/types"
	"cv-agent-go/internal/workflow"
)

// 校验失败时返回给调用方的哨兵错误，路由层据此映射到422
var (
	ErrInvalidResume         = errors.New("上传内容看起来不是一份简历")
	ErrInvalidJobDescription = errors.New("职位描述内容不完整或格式不正确")
	ErrSessionNotFinished    = errors.New("会话尚未完成")
)

// SessionHandler 会话处理器，协调文档解析、流水线驱动和归档
type SessionHandler struct {
	cfg       *config.Config
	driver    *workflow.Driver
	store     agent.CheckpointStore
	clients   *llm.Clients
	extractor *parser.DocumentExtractor
	storage   *storage2.Storage // 可为nil，各组件按需判空
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(
	cfg *config.Config,
	driver *workflow.Driver,
	store agent.CheckpointStore,
	clients *llm.Clients,
	extractor *parser.DocumentExtractor,
	storage *storage2.Storage,
) *SessionHandler {
	return &SessionHandler{
		cfg:       cfg,
		driver:    driver,
		store:     store,
		clients:   clients,
		extractor: extractor,
		storage:   storage,
	}
}

// CreateSessionRequest 创建会话请求。ResumeText 与 FileBytes 二选一，
// 文件内容会先经过文本提取。
type CreateSessionRequest struct {
	ResumeText     string
	Filename       string
	FileBytes      []byte
	JobDescription string
}

// SessionSummary 会话状态摘要
type SessionSummary struct {
	SessionID        string   `json:"session_id"`
	CurrentStep      string   `json:"current_step"`
	NextStep         string   `json:"next_step,omitempty"`
	AwaitingFeedback bool     `json:"awaiting_feedback"`
	Completed        bool     `json:"completed"`
	ATSScore         *int     `json:"ats_score,omitempty"`
	ATSFeedback      []string `json:"ats_feedback,omitempty"`
	MatchPercentage  *float64 `json:"match_percentage,omitempty"`
	ImprovedCV       string   `json:"improved_cv,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// SessionResult 完成会话的最终结果
type SessionResult struct {
	SessionID        string                 `json:"session_id"`
	FinalCV          string                 `json:"final_cv"`
	OriginalATSScore *int                   `json:"original_ats_score,omitempty"`
	FinalATSScore    *int                   `json:"final_ats_score,omitempty"`
	ATSImprovement   *int                   `json:"ats_improvement,omitempty"`
	MatchPercentage  *float64               `json:"match_percentage,omitempty"`
	IdentifiedGaps   []string               `json:"identified_gaps,omitempty"`
	AddressedGaps    []string               `json:"addressed_gaps,omitempty"`
	RemainingGaps    []string               `json:"remaining_gaps,omitempty"`
	ChangesMade      []types.ChangeRecord   `json:"changes_made,omitempty"`
	FeedbackApplied  []types.FeedbackChange `json:"feedback_applied,omitempty"`
	KeywordsAdded    []string               `json:"keywords_added,omitempty"`
	Recommendations  []types.Recommendation `json:"recommendations,omitempty"`
}

// HandleCreateSession 创建会话并推进流水线到反馈暂停点。
// 上传内容先过简历/职位描述的启发式校验，不合格直接拒绝。
func (h *SessionHandler) HandleCreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionSummary, error) {
	resumeText := req.ResumeText
	if resumeText == "" && len(req.FileBytes) > 0 {
		if h.extractor == nil {
			return nil, fmt.Errorf("文档提取器未初始化，无法处理文件上传")
		}
		extracted, err := h.extractor.Parse(ctx, req.FileBytes, req.Filename)
		if err != nil {
			return nil, fmt.Errorf("提取简历文本失败: %w", err)
		}
		resumeText = extracted
	}

	if !parser.LooksLikeResume(resumeText) {
		return nil, ErrInvalidResume
	}
	if !parser.LooksLikeJobDescription(req.JobDescription) {
		return nil, ErrInvalidJobDescription
	}

	state, err := h.driver.NewSession(resumeText, req.JobDescription)
	if err != nil {
		return nil, err
	}

	// 原始文件异步归档到对象存储，失败不影响流水线
	if len(req.FileBytes) > 0 && h.storage != nil && h.storage.MinIO != nil {
		go h.archiveOriginal(state.SessionID, req.Filename, req.FileBytes)
	}

	final, err := h.driver.RunUntilFeedback(ctx, state)
	if err != nil {
		return nil, err
	}

	h.archiveIfTerminal(ctx, final)
	return summaryFromState(final), nil
}

// HandleFeedback 注入用户反馈并从检查点恢复流水线直至完成
func (h *SessionHandler) HandleFeedback(ctx context.Context, sessionID, feedback string) (*SessionSummary, error) {
	final, err := h.driver.Resume(ctx, sessionID, feedback)
	if err != nil {
		return nil, err
	}

	h.archiveIfTerminal(ctx, final)
	return summaryFromState(final), nil
}

// HandleStatus 返回会话当前状态摘要
func (h *SessionHandler) HandleStatus(ctx context.Context, sessionID string) (*SessionSummary, error) {
	state, err := h.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	return summaryFromState(state), nil
}

// HandleResult 返回已完成会话的最终结果
func (h *SessionHandler) HandleResult(ctx context.Context, sessionID string) (*SessionResult, error) {
	state, err := h.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if state.CurrentStep != types.StepAnalysisComplete {
		return nil, ErrSessionNotFinished
	}

	return &SessionResult{
		SessionID:        state.SessionID,
		FinalCV:          state.FinalCV,
		OriginalATSScore: state.ATSComplianceScore,
		FinalATSScore:    state.FinalATSScore,
		ATSImprovement:   state.ATSImprovement,
		MatchPercentage:  state.MatchPercentage,
		IdentifiedGaps:   state.IdentifiedGaps,
		AddressedGaps:    state.AddressedGaps,
		RemainingGaps:    state.RemainingGaps,
		ChangesMade:      state.ChangesMade,
		FeedbackApplied:  state.UserFeedbackApplied,
		KeywordsAdded:    state.KeywordsAdded,
		Recommendations:  state.Recommendations,
	}, nil
}

// ClientsReady LLM客户端是否就绪
func (h *SessionHandler) ClientsReady() bool {
	return h.clients != nil && h.clients.Ready()
}

// archiveOriginal 把原始上传文件存入对象存储并登记到数据库
func (h *SessionHandler) archiveOriginal(sessionID, filename string, data []byte) {
	ctx := context.Background()
	objectName, contentMD5, err := h.storage.MinIO.UploadOriginalDocument(ctx, sessionID, filename, data)
	if err != nil {
		logger.Warn().Err(err).
			Str("session_id", sessionID).
			Msg("归档原始文档失败")
		return
	}

	if h.storage.MySQL != nil {
		doc := &models.OriginalDocument{
			SessionID:        sessionID,
			OriginalFilename: filename,
			ObjectPathOSS:    objectName,
			ContentMD5:       contentMD5,
			FileSize:         int64(len(data)),
		}
		if err := h.storage.MySQL.RecordOriginalDocument(ctx, doc); err != nil {
			logger.Warn().Err(err).
				Str("session_id", sessionID).
				Msg("登记原始文档失败")
		}
	}
}

// archiveIfTerminal 会话到达终态时写入归档表并保存终稿。
// 归档失败只记日志，检查点仍是权威状态。
func (h *SessionHandler) archiveIfTerminal(ctx context.Context, state *types.WorkflowState) {
	if state == nil || !state.IsTerminal() || h.storage == nil {
		return
	}

	if h.storage.MySQL != nil {
		if err := h.storage.MySQL.ArchiveSession(ctx, state); err != nil {
			logger.Warn().Err(err).
				Str("session_id", state.SessionID).
				Msg("归档会话失败")
		}
	}

	if h.storage.MinIO != nil && state.FinalCV != "" {
		if _, err := h.storage.MinIO.UploadFinalCV(ctx, state.SessionID, state.FinalCV); err != nil {
			logger.Warn().Err(err).
				Str("session_id", state.SessionID).
				Msg("保存终稿到对象存储失败")
		}
	}
}

// summaryFromState 从状态快照生成对外摘要
func summaryFromState(state *types.WorkflowState) *SessionSummary {
	summary := &SessionSummary{
		SessionID:        state.SessionID,
		CurrentStep:      string(state.CurrentStep),
		AwaitingFeedback: state.CurrentStep == types.StepCVGenerated && !state.HasError(),
		Completed:        state.CurrentStep == types.StepAnalysisComplete,
		ATSScore:         state.ATSComplianceScore,
		ATSFeedback:      state.ATSFeedback,
		MatchPercentage:  state.MatchPercentage,
		ImprovedCV:       state.ImprovedCV,
		Error:            state.Error,
	}
	if next := workflow.NextStep(state.CurrentStep); next != types.StepEnd {
		summary.NextStep = string(next)
	}
	return summary
}
