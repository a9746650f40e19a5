package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"cv-agent-go/internal/llm"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/scorer"
	"cv-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Stages 六个阶段函数的集合。每个阶段消费当前状态，产出一个
// 增量更新或携带错误的更新；除调用 LLM 外没有任何副作用。
// 依赖通过构造函数显式注入，不存在进程级单例。
type Stages struct {
	analyzer  model.ToolCallingChatModel
	generator model.ToolCallingChatModel
	scorer    *scorer.HybridScorer
}

// NewStages 创建阶段集合。clients 为 nil 时各阶段会在执行时
// 返回"客户端未初始化"错误而不是崩溃。
func NewStages(clients *llm.Clients, sc *scorer.HybridScorer) *Stages {
	s := &Stages{scorer: sc}
	if clients != nil {
		s.analyzer = clients.Analyzer
		s.generator = clients.Generator
	}
	return s
}

// ClientsReady 判断 LLM 客户端是否可用
func (s *Stages) ClientsReady() bool {
	return s.analyzer != nil && s.generator != nil
}

// cvGenerationResult CV 生成阶段的响应契约
type cvGenerationResult struct {
	ImprovedResumeText   string               `json:"improved_resume_text"`
	ChangesMade          []types.ChangeRecord `json:"changes_made"`
	KeywordsAdded        []string             `json:"keywords_added"`
	ATSImprovements      []string             `json:"ats_improvements"`
	SectionsRestructured []string             `json:"sections_restructured"`
}

// feedbackResult 反馈应用阶段的响应契约
type feedbackResult struct {
	FinalResumeText    string                    `json:"final_resume_text"`
	FeedbackChanges    []types.FeedbackChange    `json:"feedback_changes"`
	FeedbackNotApplied []types.FeedbackRejection `json:"feedback_not_applied"`
}

// finalAnalysisResult 最终分析阶段的响应契约，只解析核心流程
// 消费的字段，完整响应原样保留
type finalAnalysisResult struct {
	FinalMatchAnalysis struct {
		OverallMatchPercentage float64 `json:"overall_match_percentage"`
	} `json:"final_match_analysis"`
	GapsAnalysis struct {
		GapsAddressed []struct {
			Gap string `json:"gap"`
		} `json:"gaps_addressed"`
		RemainingGaps []struct {
			Gap string `json:"gap"`
		} `json:"remaining_gaps"`
	} `json:"gaps_analysis"`
	ImprovementSummary json.RawMessage `json:"improvement_summary"`
}

// AnalyzeResume 简历分析阶段：先做 ATS 评分，再让 LLM 抽取结构化档案
func (s *Stages) AnalyzeResume(ctx context.Context, state *types.WorkflowState) *types.Update {
	if state.UploadedResume == "" {
		return types.ErrorUpdate("未上传简历")
	}
	if s.analyzer == nil {
		return types.ErrorUpdate("LLM 客户端未初始化，请先配置 API 密钥")
	}

	atsResult := s.scorer.Score(ctx, state.UploadedResume)
	atsJSON, err := json.MarshalIndent(atsResult, "", "  ")
	if err != nil {
		return types.ErrorUpdate(fmt.Sprintf("序列化 ATS 评分结果失败: %v", err))
	}

	prompt := fmt.Sprintf(resumeAnalysisPromptTemplate, state.UploadedResume, string(atsJSON))
	var analysis json.RawMessage
	if err := s.generate(ctx, s.analyzer, resumeAnalysisSystemPrompt, prompt, &analysis); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("简历分析失败: %v", err))
	}

	return &types.Update{
		ResumeAnalysis:     analysis,
		ATSComplianceScore: types.IntPtr(atsResult.Score),
		ATSFeedback:        atsResult.Feedback,
		CurrentStep:        types.StepResumeAnalyzed,
	}
}

// AnalyzeJobDescription 职位描述分析阶段
func (s *Stages) AnalyzeJobDescription(ctx context.Context, state *types.WorkflowState) *types.Update {
	if state.JobDescription == "" {
		return types.ErrorUpdate("未提供职位描述")
	}
	if s.analyzer == nil {
		return types.ErrorUpdate("LLM 客户端未初始化，请先配置 API 密钥")
	}

	prompt := fmt.Sprintf(jdAnalysisPromptTemplate, state.JobDescription)
	var analysis json.RawMessage
	if err := s.generate(ctx, s.analyzer, jdAnalysisSystemPrompt, prompt, &analysis); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("职位描述分析失败: %v", err))
	}

	return &types.Update{
		JDAnalysis:  analysis,
		CurrentStep: types.StepJDAnalyzed,
	}
}

// MatchAnalysis 匹配分析阶段：对比简历档案与职位要求，
// 展开差距、优势和建议等命名字段
func (s *Stages) MatchAnalysis(ctx context.Context, state *types.WorkflowState) *types.Update {
	if state.ResumeAnalysis == nil || state.JDAnalysis == nil {
		return types.ErrorUpdate("必须先完成简历和职位描述的分析")
	}
	if s.analyzer == nil {
		return types.ErrorUpdate("LLM 客户端未初始化，请先配置 API 密钥")
	}

	prompt := fmt.Sprintf(matchAnalysisPromptTemplate,
		indentJSON(state.ResumeAnalysis), indentJSON(state.JDAnalysis))

	var raw json.RawMessage
	if err := s.generate(ctx, s.analyzer, matchAnalysisSystemPrompt, prompt, &raw); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("匹配分析失败: %v", err))
	}

	var match types.MatchAnalysis
	if err := json.Unmarshal(raw, &match); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("匹配分析结果结构不合法: %v", err))
	}
	match.Raw = raw

	gaps := make([]string, 0, len(match.GapsIdentified))
	for _, gap := range match.GapsIdentified {
		gaps = append(gaps, gap.Gap)
	}

	return &types.Update{
		MatchAnalysis:   &match,
		MatchPercentage: types.Float64Ptr(match.OverallMatchPercentage),
		IdentifiedGaps:  gaps,
		GapDetails:      match.GapsIdentified,
		Strengths:       match.StrengthsIdentified,
		Recommendations: match.Recommendations,
		CurrentStep:     types.StepMatchAnalyzed,
	}
}

// GenerateCV CV 生成阶段：产出改进后的简历全文和逐条修改记录
func (s *Stages) GenerateCV(ctx context.Context, state *types.WorkflowState) *types.Update {
	if state.ResumeAnalysis == nil || state.JDAnalysis == nil || state.MatchAnalysis == nil {
		return types.ErrorUpdate("必须先完成全部分析才能生成简历")
	}
	if s.generator == nil {
		return types.ErrorUpdate("LLM 客户端未初始化，请先配置 API 密钥")
	}

	prompt := fmt.Sprintf(cvGenerationPromptTemplate,
		state.UploadedResume,
		indentJSON(state.ResumeAnalysis),
		indentJSON(state.JDAnalysis),
		indentJSON(state.MatchAnalysis.Raw))

	var result cvGenerationResult
	if err := s.generate(ctx, s.generator, cvGenerationSystemPrompt, prompt, &result); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("生成改进简历失败: %v", err))
	}

	return &types.Update{
		ImprovedCV:           result.ImprovedResumeText,
		ChangesMade:          result.ChangesMade,
		KeywordsAdded:        result.KeywordsAdded,
		ATSImprovements:      result.ATSImprovements,
		SectionsRestructured: result.SectionsRestructured,
		CurrentStep:          types.StepCVGenerated,
	}
}

// ApplyFeedback 反馈应用阶段。没有用户反馈时直接把改进稿定为终稿，
// 不做任何 LLM 调用。
func (s *Stages) ApplyFeedback(ctx context.Context, state *types.WorkflowState) *types.Update {
	if state.ImprovedCV == "" {
		return types.ErrorUpdate("没有可修改的改进简历")
	}

	if state.UserFeedback == "" {
		return &types.Update{
			FinalCV:             state.ImprovedCV,
			UserFeedbackApplied: []types.FeedbackChange{},
			CurrentStep:         types.StepCVFinalized,
		}
	}

	if s.generator == nil {
		return types.ErrorUpdate("LLM 客户端未初始化，请先配置 API 密钥")
	}

	changesJSON, err := json.MarshalIndent(state.ChangesMade, "", "  ")
	if err != nil {
		return types.ErrorUpdate(fmt.Sprintf("序列化修改记录失败: %v", err))
	}

	prompt := fmt.Sprintf(feedbackPromptTemplate,
		state.ImprovedCV,
		state.UserFeedback,
		indentJSON(state.JDAnalysis),
		string(changesJSON))

	var result feedbackResult
	if err := s.generate(ctx, s.generator, feedbackSystemPrompt, prompt, &result); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("应用用户反馈失败: %v", err))
	}

	finalCV := result.FinalResumeText
	if finalCV == "" {
		finalCV = state.ImprovedCV
	}
	applied := result.FeedbackChanges
	if applied == nil {
		applied = []types.FeedbackChange{}
	}

	return &types.Update{
		FinalCV:             finalCV,
		UserFeedbackApplied: applied,
		FeedbackNotApplied:  result.FeedbackNotApplied,
		CurrentStep:         types.StepCVFinalized,
	}
}

// FinalAnalysis 最终分析阶段：重新计算终稿的 ATS 分数并汇总改进情况。
// ats_improvement 恒等于终稿分数减去初稿分数。
func (s *Stages) FinalAnalysis(ctx context.Context, state *types.WorkflowState) *types.Update {
	if state.FinalCV == "" || state.JDAnalysis == nil {
		return types.ErrorUpdate("需要终稿简历和职位分析结果")
	}
	if s.analyzer == nil {
		return types.ErrorUpdate("LLM 客户端未初始化，请先配置 API 密钥")
	}

	finalATS := s.scorer.Score(ctx, state.FinalCV)
	finalATSJSON, err := json.MarshalIndent(finalATS, "", "  ")
	if err != nil {
		return types.ErrorUpdate(fmt.Sprintf("序列化 ATS 评分结果失败: %v", err))
	}

	matchJSON := json.RawMessage("{}")
	if state.MatchAnalysis != nil && state.MatchAnalysis.Raw != nil {
		matchJSON = state.MatchAnalysis.Raw
	}
	changesJSON, err := json.MarshalIndent(state.ChangesMade, "", "  ")
	if err != nil {
		return types.ErrorUpdate(fmt.Sprintf("序列化修改记录失败: %v", err))
	}
	feedbackJSON, err := json.MarshalIndent(state.UserFeedbackApplied, "", "  ")
	if err != nil {
		return types.ErrorUpdate(fmt.Sprintf("序列化反馈记录失败: %v", err))
	}

	prompt := fmt.Sprintf(finalAnalysisPromptTemplate,
		state.FinalCV,
		state.UploadedResume,
		indentJSON(state.JDAnalysis),
		indentJSON(matchJSON),
		string(changesJSON),
		string(feedbackJSON),
		string(finalATSJSON))

	var raw json.RawMessage
	if err := s.generate(ctx, s.analyzer, finalAnalysisSystemPrompt, prompt, &raw); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("最终分析失败: %v", err))
	}

	var result finalAnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.ErrorUpdate(fmt.Sprintf("最终分析结果结构不合法: %v", err))
	}

	originalScore := 0
	if state.ATSComplianceScore != nil {
		originalScore = *state.ATSComplianceScore
	}

	addressed := make([]string, 0, len(result.GapsAnalysis.GapsAddressed))
	for _, gap := range result.GapsAnalysis.GapsAddressed {
		addressed = append(addressed, gap.Gap)
	}
	remaining := make([]string, 0, len(result.GapsAnalysis.RemainingGaps))
	for _, gap := range result.GapsAnalysis.RemainingGaps {
		remaining = append(remaining, gap.Gap)
	}

	return &types.Update{
		FinalATSScore:        types.IntPtr(finalATS.Score),
		ATSImprovement:       types.IntPtr(finalATS.Score - originalScore),
		FinalMatchPercentage: types.Float64Ptr(result.FinalMatchAnalysis.OverallMatchPercentage),
		AddressedGaps:        addressed,
		RemainingGaps:        remaining,
		ImprovementSummary:   result.ImprovementSummary,
		FinalAnalysis:        raw,
		CurrentStep:          types.StepAnalysisComplete,
	}
}

// generate 调用 LLM 并把响应解析为期望的结构。
// 先整体反序列化，失败后按大括号配平提取，再不行就做引号修复重试。
func (s *Stages) generate(ctx context.Context, m model.ToolCallingChatModel, systemPrompt, userPrompt string, v interface{}) error {
	resp, err := m.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	})
	if err != nil {
		return fmt.Errorf("调用 LLM 失败: %w", err)
	}

	content := llm.CleanResponse(resp.Content)
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}

	extracted := llm.ExtractJSONObject(content)
	if extracted == "" {
		return fmt.Errorf("响应中找不到 JSON 对象")
	}
	if err := json.Unmarshal([]byte(extracted), v); err == nil {
		return nil
	}

	sanitized := llm.SanitizeJSON(extracted)
	if err := json.Unmarshal([]byte(sanitized), v); err != nil {
		logger.Debug().Str("content", truncateForLog(content)).Msg("LLM 响应无法解析为 JSON")
		return fmt.Errorf("解析 LLM 响应失败: %w", err)
	}
	return nil
}

// indentJSON 把已有的 JSON 重新缩进后嵌入提示词，解析失败时原样返回
func indentJSON(raw json.RawMessage) string {
	if raw == nil {
		return "{}"
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	indented, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(indented)
}

func truncateForLog(s string) string {
	const limit = 500
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
