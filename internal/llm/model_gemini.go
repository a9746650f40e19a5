package llm

import (
	"context"
	"fmt"
	"strings"

	"cv-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-pro"

// GeminiChatModel 基于 Google Gemini 实现 model.ToolCallingChatModel。
// system 消息映射为 SystemInstruction，其余消息按角色转换。
type GeminiChatModel struct {
	client    *genai.Client
	modelName string
}

// NewGeminiChatModel 创建一个新的 GeminiChatModel 实例
func NewGeminiChatModel(ctx context.Context, apiKey, modelName string) (*GeminiChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultGeminiModel
	}

	logger.Info().Str("model", mn).Msg("使用 Gemini LLM 客户端")

	return &GeminiChatModel{
		client:    client,
		modelName: mn,
	}, nil
}

// Generate 实现 model.ChatModel 接口
func (g *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("消息列表不能为空")
	}

	gm := g.client.GenerativeModel(g.modelName)
	gm.SetTemperature(defaultTemperature)

	// system 消息作为系统指令，其余拼接为用户输入
	var userParts []genai.Part
	for _, msg := range messages {
		if msg == nil || msg.Content == "" {
			continue
		}
		if msg.Role == schema.System {
			gm.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}
		userParts = append(userParts, genai.Text(msg.Content))
	}

	if len(userParts) == 0 {
		return nil, fmt.Errorf("没有可发送的用户消息")
	}

	resp, err := gm.GenerateContent(ctx, userParts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini 生成内容失败: %w", err)
	}

	text, err := extractGeminiText(resp)
	if err != nil {
		return nil, err
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: text,
	}, nil
}

// Stream 实现 model.ChatModel 接口
func (g *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("GeminiChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口。本工作流不使用工具调用。
func (g *GeminiChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		return fmt.Errorf("GeminiChatModel 不支持工具调用")
	}
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (g *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := g.BindTools(tools); err != nil {
		return nil, err
	}
	return g, nil
}

// Close 释放底层客户端资源
func (g *GeminiChatModel) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// extractGeminiText 从 Gemini 响应中提取文本内容
func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini 响应中没有候选结果")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini 响应中没有内容")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("Gemini 响应中没有文本部分")
	}

	return strings.Join(parts, ""), nil
}

var _ model.ChatModel = (*GeminiChatModel)(nil)
var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)
