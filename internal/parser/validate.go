package parser

import (
	"regexp"
	"strings"
)

// 简历特征关键词
var resumeKeywords = []string{
	"experience", "education", "skills", "work", "employment",
	"university", "college", "degree", "contact", "email",
	"phone", "address", "objective", "summary", "projects",
	"responsibilities", "achievements", "professional", "career",
}

// 职位描述特征关键词
var jdKeywords = []string{
	"requirements", "responsibilities", "qualifications", "experience",
	"skills", "required", "preferred", "must have", "should have",
	"position", "role", "job", "company", "team", "work", "years",
	"candidate", "looking for", "seeking", "we offer", "benefits",
}

// 年份或月份缩写，用于判断文本中是否带有经历时间线
var datePatternRe = regexp.MustCompile(`\b(19|20)\d{2}\b|\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)

// LooksLikeResume 判断文本是否像一份简历。
// 要求：命中至少4个简历关键词、正文不少于200字符、
// 存在邮箱或电话线索、存在日期线索。
func LooksLikeResume(text string) bool {
	textLower := strings.ToLower(text)

	found := 0
	for _, kw := range resumeKeywords {
		if strings.Contains(textLower, kw) {
			found++
		}
	}

	hasEmail := strings.Contains(text, "@") && strings.Contains(text, ".")
	hasPhone := containsDigit(text) &&
		(strings.Contains(textLower, "phone") ||
			strings.Contains(textLower, "mobile") ||
			strings.Contains(textLower, "tel"))
	hasDates := datePatternRe.MatchString(textLower)

	return found >= 4 &&
		len(strings.TrimSpace(text)) >= 200 &&
		(hasEmail || hasPhone) &&
		hasDates
}

// LooksLikeJobDescription 判断文本是否像一份职位描述。
// 要求：命中至少4个JD关键词、正文不少于100字符、
// 提到要求或职责、同时提到年限和经验。
func LooksLikeJobDescription(text string) bool {
	if len(strings.TrimSpace(text)) < 50 {
		return false
	}

	textLower := strings.ToLower(text)

	found := 0
	for _, kw := range jdKeywords {
		if strings.Contains(textLower, kw) {
			found++
		}
	}

	hasRequirements := strings.Contains(textLower, "requirement") ||
		strings.Contains(textLower, "qualification")
	hasResponsibilities := strings.Contains(textLower, "responsibilit") ||
		strings.Contains(textLower, "duties")
	hasExperienceMention := strings.Contains(textLower, "year") &&
		strings.Contains(textLower, "experience")

	return found >= 4 &&
		len(strings.TrimSpace(text)) >= 100 &&
		(hasRequirements || hasResponsibilities) &&
		hasExperienceMention
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
