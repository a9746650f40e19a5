package scorer

import (
	"encoding/json"
	"regexp"
	"strings"
)

// 评分方式标记
const (
	MethodRuleBased = "rule_based"
	MethodHybrid    = "hybrid"
)

// Result ATS 合规性评分结果。Score 始终在 [0,100] 内。
// 规则评分是确定性的：相同输入永远得到相同的分数和反馈序列。
type Result struct {
	Score    int      `json:"score"`
	Grade    string   `json:"grade"`
	Feedback []string `json:"feedback"`

	SectionsFound               int  `json:"sections_found"`
	ContactComplete             bool `json:"contact_complete"`
	HasQuantifiedAchievements   bool `json:"has_quantified_achievements"`
	ActionVerbsCount            int  `json:"action_verbs_count"`
	QuantifiedAchievementsCount int  `json:"quantified_achievements_count"`
	TechnicalIssues             int  `json:"technical_issues"`

	// 评分来源。纯规则评分为 rule_based，与 LLM 意见分融合后为 hybrid。
	ScoringMethod  string `json:"scoring_method"`
	RuleBasedScore int    `json:"rule_based_score"`
	LLMScore       *int   `json:"llm_score,omitempty"`

	// LLM 给出的分项细节，仅 hybrid 模式下存在，核心流程不解析
	DetailedAnalysis json.RawMessage `json:"detailed_analysis,omitempty"`
}

// 结构完整性检查的四个关键词组。任一同义词命中即认为该段落存在。
var requiredSections = []struct {
	name     string
	keywords []string
}{
	{"contact", []string{"email", "phone", "@", "contact"}},
	{"experience", []string{"experience", "work history", "employment", "career"}},
	{"education", []string{"education", "degree", "university", "college", "school"}},
	{"skills", []string{"skills", "technical", "proficiencies", "competencies"}},
}

// 内容质量检查用的固定动词表
var actionVerbs = []string{
	"achieved", "managed", "led", "developed", "implemented", "created",
	"improved", "increased", "reduced", "coordinated", "designed",
	"built", "executed", "delivered", "optimized",
}

// 空泛用词表。按原始实现的口径做子串匹配，"many" 会命中 "Germany"
// 之类的词，属于已知且接受的粗粒度检查。
var vagueWords = []string{"stuff", "things", "lots", "many", "various", "etc"}

// 文本乱码特征，出现即认为存在编码问题
var encodingArtifacts = []string{"â€™", "â€œ", "â€", "�", "Â"}

var (
	emailRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe  = regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`)
	headerRe = regexp.MustCompile(`(?m)^[A-Z\s]{3,20}$`)

	bulletRes = []*regexp.Regexp{
		regexp.MustCompile(`•`),
		regexp.MustCompile(`-\s`),
		regexp.MustCompile(`\*\s`),
		regexp.MustCompile(`◦`),
		regexp.MustCompile(`▪`),
	}

	// 量化成果的六类表达
	quantifiedRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d{1,3}%`),
		regexp.MustCompile(`(?i)\$[\d,]+`),
		regexp.MustCompile(`(?i)\d+\+?\s*(years?|months?)`),
		regexp.MustCompile(`(?i)\d{1,3}[kmb]?\s*(users?|customers?|people)`),
		regexp.MustCompile(`(?i)(increased|improved|reduced|saved).*?\d+`),
		regexp.MustCompile(`(?i)\d+\s*(projects?|teams?|reports?)`),
	}
)

// CalculateRuleBasedScore 对简历文本做确定性的规则评分。
// 五个类别独立计分后求和：结构 25、联系方式 15、排版 20、内容 25、技术兼容 15。
func CalculateRuleBasedScore(text string) *Result {
	score := 0
	feedback := make([]string, 0, 8)
	textLower := strings.ToLower(text)

	// 一、结构完整性 (25分)
	sectionsFound := 0
	var missingSections []string
	for _, sec := range requiredSections {
		found := false
		for _, kw := range sec.keywords {
			if strings.Contains(textLower, kw) {
				found = true
				break
			}
		}
		if found {
			sectionsFound++
		} else {
			missingSections = append(missingSections, titleCase(sec.name))
		}
	}

	switch sectionsFound {
	case 4:
		score += 25
	case 3:
		score += 15
		feedback = append(feedback, "Missing critical section: "+strings.Join(missingSections, ", "))
	case 2:
		score += 8
		feedback = append(feedback, "Missing multiple sections: "+strings.Join(missingSections, ", "))
	default:
		feedback = append(feedback, "Missing essential sections: "+strings.Join(missingSections, ", "))
	}

	// 二、联系方式 (15分)
	contactScore := 0
	if emailRe.MatchString(text) {
		contactScore += 8
	} else {
		feedback = append(feedback, "Missing valid email address format")
	}
	if phoneRe.MatchString(text) {
		contactScore += 7
	} else {
		feedback = append(feedback, "Missing properly formatted phone number")
	}
	score += contactScore

	// 三、排版结构 (20分)
	formatScore := 0
	totalLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			totalLines++
		}
	}
	switch {
	case totalLines < 15:
		feedback = append(feedback, "Resume appears too short")
	case totalLines > 100:
		feedback = append(feedback, "Resume may be too long for ATS parsing")
		formatScore -= 3
	default:
		formatScore += 5
	}

	bulletCount := 0
	for _, re := range bulletRes {
		bulletCount += len(re.FindAllStringIndex(text, -1))
	}
	switch {
	case bulletCount >= 8:
		formatScore += 5
	case bulletCount >= 4:
		formatScore += 3
		feedback = append(feedback, "Could use more bullet points")
	default:
		feedback = append(feedback, "Insufficient bullet points")
	}

	// 表格内容会打乱解析器的阅读顺序
	if strings.Contains(text, "[TABLE]") || strings.Count(text, "|") > 5 {
		feedback = append(feedback, "Contains tables - may cause ATS parsing issues")
		formatScore -= 2
	}

	if headerRe.MatchString(text) {
		formatScore += 5
	} else {
		feedback = append(feedback, "Missing clear section headers")
	}

	if formatScore < 0 {
		formatScore = 0
	}
	score += minInt(20, formatScore)

	// 四、内容质量 (25分)
	contentScore := 0
	uniqueVerbs := 0
	for _, verb := range actionVerbs {
		if strings.Contains(textLower, verb) {
			uniqueVerbs++
		}
	}
	switch {
	case uniqueVerbs >= 8:
		contentScore += 8
	case uniqueVerbs >= 5:
		contentScore += 5
		feedback = append(feedback, "Could use more varied action verbs")
	default:
		feedback = append(feedback, "Insufficient action verbs")
	}

	quantifiedCount := 0
	for _, re := range quantifiedRes {
		quantifiedCount += len(re.FindAllStringIndex(text, -1))
	}
	switch {
	case quantifiedCount >= 6:
		contentScore += 10
	case quantifiedCount >= 3:
		contentScore += 6
		feedback = append(feedback, "Add more quantified achievements")
	default:
		feedback = append(feedback, "Lacks quantified achievements")
	}

	if len(strings.Fields(text)) >= 200 {
		contentScore += 4
	} else {
		feedback = append(feedback, "Resume content appears too brief")
	}

	vagueFound := 0
	for _, word := range vagueWords {
		if strings.Contains(textLower, word) {
			vagueFound++
		}
	}
	if vagueFound > 2 {
		contentScore -= 3
		feedback = append(feedback, "Contains vague language")
	} else {
		contentScore += 3
	}

	score += minInt(25, contentScore)

	// 五、技术兼容性 (15分)
	technicalScore := 15
	if len(text) < 500 {
		technicalScore -= 5
		feedback = append(feedback, "Resume appears too short")
	}
	for _, artifact := range encodingArtifacts {
		if strings.Contains(text, artifact) {
			technicalScore -= 3
			feedback = append(feedback, "Contains character encoding issues")
			break
		}
	}
	newlines := strings.Count(text, "\n")
	if float64(strings.Count(text, "\n\n")) > float64(newlines)*0.3 {
		technicalScore -= 2
		feedback = append(feedback, "Excessive spacing may confuse ATS")
	}
	if technicalScore < 0 {
		technicalScore = 0
	}
	score += technicalScore

	finalScore := clampScore(score)

	return &Result{
		Score:                       finalScore,
		Grade:                       GradeFor(finalScore),
		Feedback:                    feedback,
		SectionsFound:               sectionsFound,
		ContactComplete:             contactScore >= 12,
		HasQuantifiedAchievements:   quantifiedCount >= 3,
		ActionVerbsCount:            uniqueVerbs,
		QuantifiedAchievementsCount: quantifiedCount,
		TechnicalIssues:             15 - technicalScore,
		ScoringMethod:               MethodRuleBased,
		RuleBasedScore:              finalScore,
	}
}

// GradeFor 将数值分数映射为等级
func GradeFor(score int) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Fair"
	case score >= 40:
		return "Poor"
	default:
		return "Very Poor"
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
