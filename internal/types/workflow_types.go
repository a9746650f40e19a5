package types

import (
	"encoding/json"
	"time"
)

// Step 工作流步骤标记。只会沿固定顺序前进，或停在终止/错误态，从不回退。
type Step string

const (
	StepUpload           Step = "upload"
	StepResumeAnalyzed   Step = "resume_analyzed"
	StepJDAnalyzed       Step = "jd_analyzed"
	StepMatchAnalyzed    Step = "match_analyzed"
	StepCVGenerated      Step = "cv_generated"
	StepCVFinalized      Step = "cv_finalized"
	StepAnalysisComplete Step = "analysis_complete"
	StepEnd              Step = "END"
)

// StepSequence 工作流步骤的固定顺序
var StepSequence = []Step{
	StepUpload,
	StepResumeAnalyzed,
	StepJDAnalyzed,
	StepMatchAnalyzed,
	StepCVGenerated,
	StepCVFinalized,
	StepAnalysisComplete,
}

// ChangeType 单条修改记录的类型
type ChangeType string

const (
	ChangeAdded        ChangeType = "Added"
	ChangeModified     ChangeType = "Modified"
	ChangeRemoved      ChangeType = "Removed"
	ChangeRestructured ChangeType = "Restructured"
	ChangeEnhanced     ChangeType = "Enhanced"
)

// GapSeverity 差距严重程度
type GapSeverity string

const (
	SeverityCritical GapSeverity = "Critical"
	SeverityHigh     GapSeverity = "High"
	SeverityMedium   GapSeverity = "Medium"
	SeverityLow      GapSeverity = "Low"
)

// ChangeRecord 一条对简历的修改审计记录。创建后只追加，不修改。
type ChangeRecord struct {
	Section      string     `json:"section"`
	ChangeType   ChangeType `json:"change_type"`
	Original     string     `json:"original"`
	Improved     string     `json:"improved"`
	Reason       string     `json:"reason"`
	AddressesGap string     `json:"addresses_gap,omitempty"`
}

// GapRecord 匹配分析阶段识别出的一条差距，后续阶段只读。
type GapRecord struct {
	Category    string      `json:"category"`
	Gap         string      `json:"gap"`
	Severity    GapSeverity `json:"severity"`
	Addressable bool        `json:"addressable"`
	Suggestions []string    `json:"suggestions"`
}

// StrengthRecord 匹配分析识别出的优势
type StrengthRecord struct {
	Category           string `json:"category"`
	Strength           string `json:"strength"`
	Value              string `json:"value"`
	LeverageSuggestion string `json:"leverage_suggestion"`
}

// Recommendation 改进建议
type Recommendation struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Section     string `json:"section"`
}

// FeedbackChange 根据用户反馈实际应用的一条修改
type FeedbackChange struct {
	FeedbackItem string     `json:"feedback_item"`
	Section      string     `json:"section"`
	ChangeType   ChangeType `json:"change_type"`
	Original     string     `json:"original"`
	Updated      string     `json:"updated"`
	Reasoning    string     `json:"reasoning"`
}

// FeedbackRejection 未能应用的用户反馈及原因
type FeedbackRejection struct {
	FeedbackItem string `json:"feedback_item"`
	Reason       string `json:"reason"`
}

// MatchAnalysis 匹配分析结果。核心流程只消费其中少数命名字段，
// 完整的分析内容保留在 Raw 里供展示层使用。
type MatchAnalysis struct {
	OverallMatchPercentage float64          `json:"overall_match_percentage"`
	GapsIdentified         []GapRecord      `json:"gaps_identified"`
	StrengthsIdentified    []StrengthRecord `json:"strengths_identified"`
	Recommendations        []Recommendation `json:"recommendations"`
	Raw                    json.RawMessage  `json:"raw,omitempty"`
}

// WorkflowState 贯穿所有阶段的共享状态。各阶段只追加扩展字段，
// 不覆盖先前阶段的产出。以会话ID为键做检查点持久化。
type WorkflowState struct {
	SessionID string `json:"session_id"`

	// 输入
	UploadedResume string `json:"uploaded_resume,omitempty"`
	JobDescription string `json:"job_description,omitempty"`

	// 各阶段的分析产出。简历和JD的结构化分析对核心流程是不透明的，
	// 原样保留给生成阶段的提示词和展示层。
	ResumeAnalysis json.RawMessage `json:"resume_analysis,omitempty"`
	JDAnalysis     json.RawMessage `json:"jd_analysis,omitempty"`
	MatchAnalysis  *MatchAnalysis  `json:"match_analysis,omitempty"`

	// 派生分数
	ATSComplianceScore *int     `json:"ats_compliance_score,omitempty"`
	ATSFeedback        []string `json:"ats_feedback,omitempty"`
	MatchPercentage    *float64 `json:"match_percentage,omitempty"`

	// 匹配分析的展开字段
	IdentifiedGaps  []string         `json:"identified_gaps,omitempty"`
	GapDetails      []GapRecord      `json:"gap_details,omitempty"`
	Strengths       []StrengthRecord `json:"strengths,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`

	// 生成内容
	ImprovedCV           string         `json:"improved_cv,omitempty"`
	ChangesMade          []ChangeRecord `json:"changes_made,omitempty"`
	KeywordsAdded        []string       `json:"keywords_added,omitempty"`
	ATSImprovements      []string       `json:"ats_improvements,omitempty"`
	SectionsRestructured []string       `json:"sections_restructured,omitempty"`

	// 用户反馈
	UserFeedback        string              `json:"user_feedback,omitempty"`
	UserFeedbackApplied []FeedbackChange    `json:"user_feedback_applied,omitempty"`
	FeedbackNotApplied  []FeedbackRejection `json:"feedback_not_applied,omitempty"`

	// 最终结果
	FinalCV              string          `json:"final_cv,omitempty"`
	FinalATSScore        *int            `json:"final_ats_score,omitempty"`
	ATSImprovement       *int            `json:"ats_improvement,omitempty"`
	FinalMatchPercentage *float64        `json:"final_match_percentage,omitempty"`
	AddressedGaps        []string        `json:"addressed_gaps,omitempty"`
	RemainingGaps        []string        `json:"remaining_gaps,omitempty"`
	ImprovementSummary   json.RawMessage `json:"improvement_summary,omitempty"`
	FinalAnalysis        json.RawMessage `json:"final_analysis,omitempty"`

	// 控制字段
	CurrentStep Step   `json:"current_step"`
	Error       string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkflowState 创建一个位于入口步骤的新会话状态
func NewWorkflowState(sessionID, resumeText, jobDescription string) *WorkflowState {
	now := time.Now()
	return &WorkflowState{
		SessionID:      sessionID,
		UploadedResume: resumeText,
		JobDescription: jobDescription,
		CurrentStep:    StepUpload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasError 判断状态是否已进入错误态。错误一旦写入即粘滞，
// 路由器不会再推进任何阶段。
func (s *WorkflowState) HasError() bool {
	return s.Error != ""
}

// IsTerminal 判断状态是否已到达终点
func (s *WorkflowState) IsTerminal() bool {
	return s.HasError() || s.CurrentStep == StepAnalysisComplete || s.CurrentStep == StepEnd
}

// Update 单个阶段产生的增量状态更新。字段为零值时不参与合并，
// 因此后续阶段只扩展状态而不会清掉先前阶段的产出。
type Update struct {
	ResumeAnalysis json.RawMessage
	JDAnalysis     json.RawMessage
	MatchAnalysis  *MatchAnalysis

	ATSComplianceScore *int
	ATSFeedback        []string
	MatchPercentage    *float64

	IdentifiedGaps  []string
	GapDetails      []GapRecord
	Strengths       []StrengthRecord
	Recommendations []Recommendation

	ImprovedCV           string
	ChangesMade          []ChangeRecord
	KeywordsAdded        []string
	ATSImprovements      []string
	SectionsRestructured []string

	UserFeedbackApplied []FeedbackChange
	FeedbackNotApplied  []FeedbackRejection

	FinalCV              string
	FinalATSScore        *int
	ATSImprovement       *int
	FinalMatchPercentage *float64
	AddressedGaps        []string
	RemainingGaps        []string
	ImprovementSummary   json.RawMessage
	FinalAnalysis        json.RawMessage

	CurrentStep Step

	// Err 非空表示阶段失败，Apply 只写入 Error 字段，其余更新全部丢弃
	Err string
}

// ErrorUpdate 构造一个仅携带错误的更新
func ErrorUpdate(msg string) *Update {
	return &Update{Err: msg}
}

// Apply 将增量更新合并进状态。失败的更新只设置 Error；
// 成功的更新逐字段追加，changes_made 等审计序列只增不改。
func (u *Update) Apply(s *WorkflowState) {
	s.UpdatedAt = time.Now()

	if u.Err != "" {
		s.Error = u.Err
		return
	}

	if u.ResumeAnalysis != nil {
		s.ResumeAnalysis = u.ResumeAnalysis
	}
	if u.JDAnalysis != nil {
		s.JDAnalysis = u.JDAnalysis
	}
	if u.MatchAnalysis != nil {
		s.MatchAnalysis = u.MatchAnalysis
	}
	if u.ATSComplianceScore != nil {
		s.ATSComplianceScore = u.ATSComplianceScore
	}
	if u.ATSFeedback != nil {
		s.ATSFeedback = u.ATSFeedback
	}
	if u.MatchPercentage != nil {
		s.MatchPercentage = u.MatchPercentage
	}
	if u.IdentifiedGaps != nil {
		s.IdentifiedGaps = u.IdentifiedGaps
	}
	if u.GapDetails != nil {
		s.GapDetails = u.GapDetails
	}
	if u.Strengths != nil {
		s.Strengths = u.Strengths
	}
	if u.Recommendations != nil {
		s.Recommendations = u.Recommendations
	}
	if u.ImprovedCV != "" {
		s.ImprovedCV = u.ImprovedCV
	}
	if len(u.ChangesMade) > 0 {
		s.ChangesMade = append(s.ChangesMade, u.ChangesMade...)
	}
	if u.KeywordsAdded != nil {
		s.KeywordsAdded = u.KeywordsAdded
	}
	if u.ATSImprovements != nil {
		s.ATSImprovements = u.ATSImprovements
	}
	if u.SectionsRestructured != nil {
		s.SectionsRestructured = u.SectionsRestructured
	}
	if u.UserFeedbackApplied != nil {
		s.UserFeedbackApplied = u.UserFeedbackApplied
	}
	if u.FeedbackNotApplied != nil {
		s.FeedbackNotApplied = u.FeedbackNotApplied
	}
	if u.FinalCV != "" {
		s.FinalCV = u.FinalCV
	}
	if u.FinalATSScore != nil {
		s.FinalATSScore = u.FinalATSScore
	}
	if u.ATSImprovement != nil {
		s.ATSImprovement = u.ATSImprovement
	}
	if u.FinalMatchPercentage != nil {
		s.FinalMatchPercentage = u.FinalMatchPercentage
	}
	if u.AddressedGaps != nil {
		s.AddressedGaps = u.AddressedGaps
	}
	if u.RemainingGaps != nil {
		s.RemainingGaps = u.RemainingGaps
	}
	if u.ImprovementSummary != nil {
		s.ImprovementSummary = u.ImprovementSummary
	}
	if u.FinalAnalysis != nil {
		s.FinalAnalysis = u.FinalAnalysis
	}
	if u.CurrentStep != "" {
		s.CurrentStep = u.CurrentStep
	}
}

// IntPtr 辅助函数，取整数指针
func IntPtr(v int) *int { return &v }

// Float64Ptr 辅助函数，取浮点数指针
func Float64Ptr(v float64) *float64 { return &v }
