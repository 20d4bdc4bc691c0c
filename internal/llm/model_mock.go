package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel 是 model.ToolCallingChatModel 的模拟实现。
// 未配置API密钥时服务端回退使用它，按系统提示词关键字返回
// 形状正确的固定响应，让整条流水线可以脱离外部模型运行；
// 测试中也用它验证生成器包装层的行为。
type MockChatModel struct {
	mu sync.Mutex

	// Responses 非空时按调用顺序依次返回，耗尽后回到关键字路由
	Responses []MockResponse
	index     int

	// Received 记录每次调用收到的消息，供测试断言
	Received [][]*schema.Message
}

// MockResponse 单次调用的预期结果
type MockResponse struct {
	Content string
	Err     error
}

// Generate 实现 model.BaseChatModel 接口
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	content, err := m.respond(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream 实现 model.BaseChatModel 接口，把固定响应按16字节分片下发。
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	content, err := m.respond(input)
	if err != nil {
		return nil, err
	}
	var msgs []*schema.Message
	for i := 0; i < len(content); i += 16 {
		end := i + 16
		if end > len(content) {
			end = len(content)
		}
		msgs = append(msgs, schema.AssistantMessage(content[i:end], nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

// WithTools 实现 model.ToolCallingChatModel 接口，模拟实现不支持工具。
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *MockChatModel) respond(input []*schema.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recorded := make([]*schema.Message, len(input))
	copy(recorded, input)
	m.Received = append(m.Received, recorded)

	if m.index < len(m.Responses) {
		resp := m.Responses[m.index]
		m.index++
		return resp.Content, resp.Err
	}
	return cannedResponse(input), nil
}

// cannedResponse 按系统提示词关键字路由到对应阶段的固定响应。
// 标记词必须在各阶段提示词之间两两不重叠：洞察提示词里出现
// "summary"、问题提示词里出现"insights"，用裸词匹配会把洞察
// 阶段路由到摘要、问题阶段路由到洞察。
func cannedResponse(input []*schema.Message) string {
	var prompt string
	for _, msg := range input {
		if msg.Role == schema.System {
			prompt = strings.ToLower(msg.Content)
			break
		}
	}
	switch {
	case strings.Contains(prompt, "work experiences"):
		return `{"work_experiences": [{"company": "Acme", "role": "Engineer", "start_date": "2020-01", "end_date": "2023-06", "description": "Built things."}]}`
	case strings.Contains(prompt, "educational experiences"):
		return `{"edu_experiences": [{"Institution": "State U", "Degree": "B.S.", "Field": "Computer Science", "Start_year": 2016, "End_year": 2020}]}`
	case strings.Contains(prompt, "key insights"):
		return `{"insights": ["Three years of hands-on engineering experience at Acme", "Solid computer science fundamentals from State U"]}`
	case strings.Contains(prompt, "interview questions"):
		return `{"questions": ["What was the most challenging system you built at Acme?", "How do you approach debugging production incidents?"]}`
	case strings.Contains(prompt, "professional summary"):
		return "Engineer at Acme with a B.S. in Computer Science from State U, experienced in building production systems."
	default:
		return "mock response"
	}
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)
