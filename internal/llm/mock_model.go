package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 是用于测试的 model.ToolCallingChatModel 模拟实现。
// 既支持固定响应，也支持按调用顺序返回不同响应。
type MockChatModel struct {
	mu sync.Mutex

	// 固定响应模式
	ExpectedResponse string
	ExpectedError    error

	// 顺序响应模式
	SequentialResponses []MockResponse
	ResponseIndex       int
	IsSequential        bool

	// 记录收到的所有调用，供断言使用
	ReceivedMessages [][]*schema.Message
	CallCount        int
}

// NewMockChatModel 创建一个返回固定响应的 MockChatModel
func NewMockChatModel(expectedResponse string, expectedError error) *MockChatModel {
	return &MockChatModel{
		ExpectedResponse: expectedResponse,
		ExpectedError:    expectedError,
	}
}

// NewMockChatModelSequential 创建一个按顺序返回不同响应的 MockChatModel
func NewMockChatModelSequential(responses []MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock model has no responses configured")}}
	}
	return &MockChatModel{
		SequentialResponses: responses,
		IsSequential:        true,
	}
}

// Generate 实现 model.ChatModel 接口
func (m *MockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReceivedMessages = append(m.ReceivedMessages, messages)
	m.CallCount++

	if m.IsSequential {
		if m.ResponseIndex >= len(m.SequentialResponses) {
			return nil, fmt.Errorf("mock model exhausted after %d responses", len(m.SequentialResponses))
		}
		resp := m.SequentialResponses[m.ResponseIndex]
		m.ResponseIndex++
		if resp.Error != nil {
			return nil, resp.Error
		}
		return schema.AssistantMessage(resp.Content, nil), nil
	}

	if m.ExpectedError != nil {
		return nil, m.ExpectedError
	}
	return schema.AssistantMessage(m.ExpectedResponse, nil), nil
}

// Stream 实现 model.ChatModel 接口
func (m *MockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("mock model does not support streaming")
}

// BindTools 实现 model.ChatModel 接口
func (m *MockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

var _ model.ChatModel = (*MockChatModel)(nil)
var _ model.ToolCallingChatModel = (*MockChatModel)(nil)
