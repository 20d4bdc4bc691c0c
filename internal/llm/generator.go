package llm

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// TextGenerator 是流水线各阶段对底层大模型能力的唯一依赖。
// 实现方对调用方是黑盒：文本进，文本出，可能失败，可能很慢。
type TextGenerator interface {
	// Generate 同步生成一段完整文本。
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)

	// GenerateStream 增量生成文本。返回的通道是有限的、不可重启的：
	// 生成结束或出错后通道关闭。调用方必须消费到通道关闭为止。
	GenerateStream(ctx context.Context, systemPrompt string, userPrompt string) (<-chan string, error)
}

// EinoTextGenerator 基于 eino 聊天模型实现 TextGenerator，
// 在每次调用外层包一层超时与有限重试。
type EinoTextGenerator struct {
	llmModel    model.ToolCallingChatModel
	callTimeout time.Duration
	maxRetries  int
	logger      *log.Logger
}

// GeneratorOption EinoTextGenerator 的配置选项
type GeneratorOption func(*EinoTextGenerator)

// WithCallTimeout 设置单次LLM调用的超时
func WithCallTimeout(d time.Duration) GeneratorOption {
	return func(g *EinoTextGenerator) {
		if d > 0 {
			g.callTimeout = d
		}
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) GeneratorOption {
	return func(g *EinoTextGenerator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithGeneratorLogger 设置日志记录器
func WithGeneratorLogger(l *log.Logger) GeneratorOption {
	return func(g *EinoTextGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewEinoTextGenerator 创建一个新的 EinoTextGenerator
func NewEinoTextGenerator(llmModel model.ToolCallingChatModel, options ...GeneratorOption) *EinoTextGenerator {
	g := &EinoTextGenerator{
		llmModel:    llmModel,
		callTimeout: 60 * time.Second,
		maxRetries:  2,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func buildMessages(systemPrompt, userPrompt string) []*einoschema.Message {
	messages := make([]*einoschema.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, &einoschema.Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, &einoschema.Message{Role: "user", Content: userPrompt})
	return messages
}

// Generate 实现 TextGenerator 接口
func (g *EinoTextGenerator) Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	messages := buildMessages(systemPrompt, userPrompt)

	retryDelay := 2 * time.Second

	var response *einoschema.Message
	var err error

	// 重试逻辑
	for retry := 0; retry <= g.maxRetries; retry++ {
		// 如果是重试，则先检查上下文是否已取消
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				// 增加退避时间
				retryDelay *= 2
				g.logger.Printf("重试LLM调用 (第%d次)", retry)
			}
		}

		// 创建带超时的上下文，继承上游的取消信号
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		response, err = g.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}

		if !isRetryableError(err) || retry >= g.maxRetries {
			g.logger.Printf("[EinoTextGenerator] LLM call final error after retries: %v", err)
			return "", fmt.Errorf("LLM Generate failed: %w", err)
		}
	}

	return response.Content, nil
}

// GenerateStream 实现 TextGenerator 接口。
// 将 eino 的 StreamReader 适配为字符串通道；流式调用不做重试，
// 因为部分内容可能已经发出。
func (g *EinoTextGenerator) GenerateStream(ctx context.Context, systemPrompt string, userPrompt string) (<-chan string, error) {
	messages := buildMessages(systemPrompt, userPrompt)

	reader, err := g.llmModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLM Stream failed: %w", err)
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			msg, recvErr := reader.Recv()
			if recvErr == io.EOF {
				return
			}
			if recvErr != nil {
				g.logger.Printf("[EinoTextGenerator] 流式接收中断: %v", recvErr)
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}
			select {
			case out <- msg.Content:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 检查常见的可重试错误
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "503")
}

var _ TextGenerator = (*EinoTextGenerator)(nil)
