package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/llm"
	"cv-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 意见分请求中简历文本的最大长度，超出部分截断以控制调用成本
const opinionTextLimit = 3000

const opinionSystemPrompt = "You are an ATS expert. Be realistic with scoring - most resumes score 40-70. Return only JSON."

const opinionPromptTemplate = `Analyze this resume for ATS compliance. Score 40-70 for typical resumes, 75+ only for exceptional ones.

RESUME:
%s

Score based on:
1. Structure/Sections (25pts): Standard sections, clear headers
2. Contact Info (15pts): Proper email/phone formatting
3. Format (20pts): ATS-friendly, no tables/complex formatting
4. Content (25pts): Action verbs, quantified achievements
5. Technical (15pts): Parsing compatibility

Return ONLY this JSON:
{
    "score": 65,
    "confidence": "high",
    "feedback": ["Critical issue 1", "Issue 2", "Issue 3"],
    "detailed_analysis": {
        "structure_score": 18,
        "contact_score": 12,
        "format_score": 15,
        "content_score": 15,
        "technical_score": 5,
        "strengths": ["Strength 1"],
        "weaknesses": ["Weakness 1"],
        "keyword_density": "medium"
    }
}`

// opinionResult LLM 意见分的响应契约
type opinionResult struct {
	Score            int             `json:"score"`
	Confidence       string          `json:"confidence"`
	Feedback         []string        `json:"feedback"`
	DetailedAnalysis json.RawMessage `json:"detailed_analysis"`
}

// HybridScorer 混合评分器。先做确定性的规则评分，只在分数处于
// 边界区间或文本较长时再请求 LLM 意见分，按权重融合。
// model 为 nil 时退化为纯规则评分。
type HybridScorer struct {
	cfg   config.ScorerConfig
	model model.ToolCallingChatModel
}

// NewHybridScorer 创建混合评分器
func NewHybridScorer(cfg config.ScorerConfig, m model.ToolCallingChatModel) *HybridScorer {
	return &HybridScorer{cfg: cfg, model: m}
}

// Score 计算 ATS 合规性分数。
// LLM 调用失败时静默回退到规则评分，绝不向上传播错误。
func (h *HybridScorer) Score(ctx context.Context, text string) *Result {
	ruleResult := CalculateRuleBasedScore(text)

	useLLM := (ruleResult.Score >= h.cfg.BorderlineLow && ruleResult.Score <= h.cfg.BorderlineHigh) ||
		len(text) > h.cfg.LongTextChars

	if !useLLM || h.model == nil {
		return ruleResult
	}

	opinion, err := h.fetchOpinion(ctx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM 意见分获取失败，回退到规则评分")
		return ruleResult
	}

	finalScore := clampScore(int(math.Round(
		float64(ruleResult.Score)*h.cfg.RuleWeight + float64(opinion.Score)*h.cfg.OpinionWeight)))

	// 合并反馈：LLM 前3条优先，规则前2条补充，大小写不敏感去重
	combined := make([]string, 0, 5)
	combined = append(combined, firstN(opinion.Feedback, 3)...)
	combined = append(combined, firstN(ruleResult.Feedback, 2)...)
	feedback := dedupeFeedback(combined, h.cfg.MaxFeedbackItems)

	llmScore := opinion.Score
	return &Result{
		Score:                       finalScore,
		Grade:                       GradeFor(finalScore),
		Feedback:                    feedback,
		SectionsFound:               ruleResult.SectionsFound,
		ContactComplete:             ruleResult.ContactComplete,
		HasQuantifiedAchievements:   ruleResult.HasQuantifiedAchievements,
		ActionVerbsCount:            ruleResult.ActionVerbsCount,
		QuantifiedAchievementsCount: ruleResult.QuantifiedAchievementsCount,
		TechnicalIssues:             ruleResult.TechnicalIssues,
		ScoringMethod:               MethodHybrid,
		RuleBasedScore:              ruleResult.Score,
		LLMScore:                    &llmScore,
		DetailedAnalysis:            opinion.DetailedAnalysis,
	}
}

// fetchOpinion 请求 LLM 给出意见分。分数超过上限时截断，防止模型打分虚高。
func (h *HybridScorer) fetchOpinion(ctx context.Context, text string) (*opinionResult, error) {
	truncated := text
	if len(text) > opinionTextLimit {
		truncated = text[:opinionTextLimit] + "..."
	}

	resp, err := h.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(opinionSystemPrompt),
		schema.UserMessage(fmt.Sprintf(opinionPromptTemplate, truncated)),
	})
	if err != nil {
		return nil, fmt.Errorf("调用 LLM 失败: %w", err)
	}

	content := llm.CleanResponse(resp.Content)

	var result opinionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		extracted := llm.ExtractJSONObject(content)
		if extracted == "" {
			return nil, fmt.Errorf("解析意见分响应失败: %w", err)
		}
		if err2 := json.Unmarshal([]byte(extracted), &result); err2 != nil {
			return nil, fmt.Errorf("解析意见分响应失败: %w", err2)
		}
	}

	if result.Score > h.cfg.OpinionScoreCap {
		result.Score = h.cfg.OpinionScoreCap
	}
	if result.Score < 0 {
		result.Score = 0
	}

	return &result, nil
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// dedupeFeedback 保序去重（大小写不敏感），最多保留 limit 条
func dedupeFeedback(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out
}
