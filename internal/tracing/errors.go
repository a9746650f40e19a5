package tracing

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeLLM LLM调用错误
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeDB 数据库错误
	ErrorTypeDB ErrorType = "db"
	// ErrorTypeRedis Redis错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeRabbitMQ RabbitMQ错误
	ErrorTypeRabbitMQ ErrorType = "rabbitmq"
	// ErrorTypeObjectStorage 对象存储错误
	ErrorTypeObjectStorage ErrorType = "object_storage"
	// ErrorTypeValidation 验证错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 记录错误，添加统一的错误类型和详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)
	span.SetStatus(codes.Error, err.Error())
}

// MaxResumeAttrLength span属性中简历内容的最大长度
const MaxResumeAttrLength = 150

// SafeResumeContent 截断简历内容，避免把整份简历写进span属性。
// 简历全文包含个人信息，属性里只保留首尾片段。
func SafeResumeContent(content string) string {
	return truncateMiddle(content, MaxResumeAttrLength)
}

// truncateMiddle 保留字符串首尾，中间用省略号连接
func truncateMiddle(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// MaskContact 掩码邮箱或手机号，只保留首尾各两个字符
func MaskContact(value string) string {
	runes := []rune(value)
	length := len(runes)
	switch {
	case length == 0:
		return ""
	case length <= 4:
		return string(runes[0:1]) + strings.Repeat("*", length-1)
	}
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}
