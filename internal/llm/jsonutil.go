package llm

import (
	"strings"
)

// CleanResponse 预处理LLM返回的文本：去掉BOM并剥离markdown代码围栏。
// 模型经常把JSON包在```json ... ```里，解析前必须去壳。
func CleanResponse(content string) string {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// ExtractJSONObject 从文本中按大括号配平提取第一个完整的JSON对象。
// 找不到时返回空字符串。
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inStr = !inStr
		case inStr:
			// 字符串内部的大括号不参与配平
		case c == '{':
			level++
		case c == '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// SanitizeJSON 遍历 src，把字符串字面量内部未转义的双引号改写成 \"，
// 使模型输出的"近似JSON"能够被标准库反序列化。
// 通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断某个 " 是否为字符串的真正结束。
func SanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false
		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)
		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
