package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullMarksResume 一份在所有规则维度上都拿满分的简历文本：
// 四个段落关键词组齐全、邮箱电话合规、项目符号充足、全大写段落标题、
// 动词和量化成果丰富、篇幅适中且无乱码。
const fullMarksResume = `John Doe
Software Engineer with ten years of experience in large scale distributed systems and data platforms
Contact: john.doe@example.com | (555) 123-4567

EXPERIENCE

Senior Software Engineer at Example Corp from 2018 to 2024
- Achieved a 25% increase in system throughput across core services
- Managed a team of 8 engineers delivering critical platform projects
- Led the migration of legacy services to cloud infrastructure saving $120,000
- Developed internal tooling adopted by 300 users across the organization
- Implemented automated deployment pipelines for 12 projects
- Created monitoring dashboards that reduced incident response time by 40%
- Improved database query performance through careful index redesign
- Increased test coverage from sixty percent to ninety percent over 2 years
- Reduced infrastructure spend by 30% through capacity planning
- Coordinated cross functional releases with product and design partners

EDUCATION

Bachelor of Science in Computer Science from State University 2014
Graduated with honors after completing a senior thesis on compilers

SKILLS

Technical skills include Go Python Kubernetes PostgreSQL Redis and Kafka
Designed built executed and delivered production systems at scale
Optimized service latency budgets for five years across three teams
Strong written communication and mentoring record over 5 years`

// TestCalculateRuleBasedScore_FullMarks 验证满分样本。
// 排版类三项加分合计 15 分，低于该类 20 分的上限，因此
// 规则评分在数值上可达到的最高分是 95 而不是 100。
func TestCalculateRuleBasedScore_FullMarks(t *testing.T) {
	result := CalculateRuleBasedScore(fullMarksResume)

	assert.Equal(t, 95, result.Score)
	assert.Equal(t, "Excellent", result.Grade)
	assert.Empty(t, result.Feedback)
	assert.Equal(t, 4, result.SectionsFound)
	assert.True(t, result.ContactComplete)
	assert.True(t, result.HasQuantifiedAchievements)
	assert.GreaterOrEqual(t, result.ActionVerbsCount, 8)
	assert.GreaterOrEqual(t, result.QuantifiedAchievementsCount, 6)
	assert.Equal(t, 0, result.TechnicalIssues)
	assert.Equal(t, MethodRuleBased, result.ScoringMethod)
	assert.Equal(t, result.Score, result.RuleBasedScore)
}

// TestCalculateRuleBasedScore_PlaceholderResume 占位文本应得到很低的分数
func TestCalculateRuleBasedScore_PlaceholderResume(t *testing.T) {
	result := CalculateRuleBasedScore("John Doe, Engineer.")

	assert.Less(t, result.Score, 40)
	assert.Equal(t, "Very Poor", result.Grade)
	assert.NotEmpty(t, result.Feedback)
	assert.Equal(t, 0, result.SectionsFound)
	assert.False(t, result.ContactComplete)
	assert.False(t, result.HasQuantifiedAchievements)
}

// TestCalculateRuleBasedScore_MissingContact 无邮箱无电话时联系方式类贡献为0，
// 且两条对应的反馈都存在
func TestCalculateRuleBasedScore_MissingContact(t *testing.T) {
	text := `EXPERIENCE
Worked on various education projects and skills training
No reachable address listed here`

	result := CalculateRuleBasedScore(text)

	assert.False(t, result.ContactComplete)
	assert.Contains(t, result.Feedback, "Missing valid email address format")
	assert.Contains(t, result.Feedback, "Missing properly formatted phone number")
}

// TestCalculateRuleBasedScore_StructureCaseInsensitive 四个关键词组
// 全部命中时结构类固定贡献25分，与大小写和出现顺序无关
func TestCalculateRuleBasedScore_StructureCaseInsensitive(t *testing.T) {
	variants := []string{
		"SKILLS listed before EDUCATION then EXPERIENCE and CONTACT details",
		"contact info, experience summary, education history, skills list",
		"Skills. Education. Experience. Contact.",
	}

	for _, text := range variants {
		result := CalculateRuleBasedScore(text)
		require.Equal(t, 4, result.SectionsFound, "text: %s", text)
		// 结构类满分时不会产生任何 Missing ... section 反馈
		for _, fb := range result.Feedback {
			assert.NotContains(t, fb, "section:")
			assert.NotContains(t, fb, "sections:")
		}
	}
}

// TestCalculateRuleBasedScore_MissingSectionFeedback 缺失的段落名出现在反馈中
func TestCalculateRuleBasedScore_MissingSectionFeedback(t *testing.T) {
	// 只有 experience 和 education 两组命中
	result := CalculateRuleBasedScore("My experience and education background.")

	assert.Equal(t, 2, result.SectionsFound)
	found := false
	for _, fb := range result.Feedback {
		if strings.Contains(fb, "Missing multiple sections:") {
			found = true
			assert.Contains(t, fb, "Contact")
			assert.Contains(t, fb, "Skills")
		}
	}
	assert.True(t, found, "应包含缺失段落反馈")
}

// TestCalculateRuleBasedScore_VagueLanguage 空泛用词超过两个时扣分并反馈
func TestCalculateRuleBasedScore_VagueLanguage(t *testing.T) {
	text := "Did stuff and things with lots of systems, experience with various tools etc."
	result := CalculateRuleBasedScore(text)

	assert.Contains(t, result.Feedback, "Contains vague language")
}

// TestCalculateRuleBasedScore_EncodingArtifacts 乱码特征触发技术兼容性扣分
func TestCalculateRuleBasedScore_EncodingArtifacts(t *testing.T) {
	result := CalculateRuleBasedScore("Resume with broken text â€™ inside it")

	assert.Contains(t, result.Feedback, "Contains character encoding issues")
	assert.Greater(t, result.TechnicalIssues, 0)
}

// TestCalculateRuleBasedScore_TablePenalty 表格标记触发排版扣分反馈
func TestCalculateRuleBasedScore_TablePenalty(t *testing.T) {
	result := CalculateRuleBasedScore("[TABLE] col | col | col | col | col | col")

	assert.Contains(t, result.Feedback, "Contains tables - may cause ATS parsing issues")
}

// TestCalculateRuleBasedScore_Deterministic 相同输入必须产生完全相同的结果
func TestCalculateRuleBasedScore_Deterministic(t *testing.T) {
	first := CalculateRuleBasedScore(fullMarksResume)
	for i := 0; i < 5; i++ {
		again := CalculateRuleBasedScore(fullMarksResume)
		assert.Equal(t, first, again)
	}
}

// TestGradeFor 等级映射的边界值
func TestGradeFor(t *testing.T) {
	cases := []struct {
		score int
		grade string
	}{
		{100, "Excellent"},
		{85, "Excellent"},
		{84, "Good"},
		{75, "Good"},
		{74, "Fair"},
		{60, "Fair"},
		{59, "Poor"},
		{40, "Poor"},
		{39, "Very Poor"},
		{0, "Very Poor"},
	}
	for _, c := range cases {
		assert.Equal(t, c.grade, GradeFor(c.score), "score=%d", c.score)
	}
}

// TestCalculateRuleBasedScore_EmptyText 空文本不应崩溃且分数在合法区间
func TestCalculateRuleBasedScore_EmptyText(t *testing.T) {
	result := CalculateRuleBasedScore("")

	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
	assert.NotEmpty(t, result.Feedback)
}
