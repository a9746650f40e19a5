package llm

import (
	"context"
	"fmt"
	"time"

	"cv-agent-go/internal/config"

	"github.com/cloudwego/eino/components/model"
)

// 支持的提供商
const (
	ProviderOpenAICompatible = "openai_compatible"
	ProviderGemini           = "gemini"
)

// Clients 聚合分析与生成两个角色的模型。两者可以是同一个提供商的
// 不同模型：分析阶段偏抽取，生成阶段偏改写。
type Clients struct {
	Analyzer  model.ToolCallingChatModel
	Generator model.ToolCallingChatModel
	Provider  string
}

// NewClients 根据配置构建 LLM 客户端集合。
// APIKey 为空时返回 nil（未配置），由调用方决定是否允许继续。
func NewClients(ctx context.Context, cfg config.LLMConfig) (*Clients, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case ProviderOpenAICompatible, "":
		analyzer, err := NewOpenAICompatChatModel(cfg.APIKey, cfg.AnalyzerModel, cfg.APIURL, timeout)
		if err != nil {
			return nil, fmt.Errorf("初始化分析模型失败: %w", err)
		}
		generator, err := NewOpenAICompatChatModel(cfg.APIKey, cfg.GeneratorModel, cfg.APIURL, timeout)
		if err != nil {
			return nil, fmt.Errorf("初始化生成模型失败: %w", err)
		}
		return &Clients{Analyzer: analyzer, Generator: generator, Provider: ProviderOpenAICompatible}, nil

	case ProviderGemini:
		analyzer, err := NewGeminiChatModel(ctx, cfg.APIKey, cfg.AnalyzerModel)
		if err != nil {
			return nil, fmt.Errorf("初始化分析模型失败: %w", err)
		}
		generator, err := NewGeminiChatModel(ctx, cfg.APIKey, cfg.GeneratorModel)
		if err != nil {
			return nil, fmt.Errorf("初始化生成模型失败: %w", err)
		}
		return &Clients{Analyzer: analyzer, Generator: generator, Provider: ProviderGemini}, nil

	default:
		return nil, fmt.Errorf("不支持的 LLM 提供商: %s", cfg.Provider)
	}
}

// Ready 判断客户端集合是否可用
func (c *Clients) Ready() bool {
	return c != nil && c.Analyzer != nil && c.Generator != nil
}
