package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/streaming"
	"resume-agent-go/internal/types"
)

const summaryPrompt = `Generate a concise professional summary of the candidate based on the following work experience and education. Write plain prose, no headings or bullet points.`

// StreamMode 摘要下发模式
type StreamMode string

const (
	// StreamModeChunked 生成完整摘要后按固定宽度切片重放（打字机效果）
	StreamModeChunked StreamMode = "chunked"
	// StreamModeIncremental 模型产出分片时立即转发，压低首字节延迟
	StreamModeIncremental StreamMode = "incremental"
)

// SummaryStage 基于工作经历与教育经历生成自然语言摘要。
// 结果按输入内容指纹做进程级备忘：任意会话的字节级相同输入
// 直接命中缓存，不再调用模型。
type SummaryStage struct {
	generator llm.TextGenerator
	cache     *SummaryCache
	chunkSize int
	mode      StreamMode
	logger    *log.Logger
}

// NewSummaryStage 创建摘要阶段。cache 为 nil 时禁用备忘。
func NewSummaryStage(generator llm.TextGenerator, cache *SummaryCache, chunkSize int, mode StreamMode, logger *log.Logger) *SummaryStage {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if chunkSize <= 0 {
		chunkSize = 50
	}
	if mode == "" {
		mode = StreamModeChunked
	}
	return &SummaryStage{
		generator: generator,
		cache:     cache,
		chunkSize: chunkSize,
		mode:      mode,
		logger:    logger,
	}
}

// Generate 生成摘要并把摘要文本分片下发到 emitter。
// 缓存命中与失败占位都走切片重放；只有真正的新生成
// 在 incremental 模式下边生成边下发。
// 返回的 error 只反映下发失败（客户端断开），生成失败被就地收敛。
func (s *SummaryStage) Generate(ctx context.Context, workText, educationText string, emitter streaming.Emitter) (types.SummaryOutput, error) {
	if emitter == nil {
		emitter = streaming.Discard
	}

	fingerprint := Fingerprint(workText, educationText)
	if s.cache != nil {
		if cached, ok := s.cache.Get(fingerprint); ok {
			s.logger.Printf("[summary] 缓存命中，指纹 %.12s...", fingerprint)
			out := types.SummaryOutput{Text: cached, FromCache: true}
			return out, streaming.EmitAll(emitter, cached, s.chunkSize)
		}
	}

	userPrompt := fmt.Sprintf("Work experience:\n%s\n\nEducation:\n%s", workText, educationText)

	var summary string
	var emitErr error
	if s.mode == StreamModeIncremental {
		summary, emitErr = s.generateIncremental(ctx, userPrompt, emitter)
	} else {
		summary, emitErr = s.generateChunked(ctx, userPrompt, emitter)
	}

	if summary == "" {
		// 生成失败：给出非空占位，保证下游阶段总有输入
		s.logger.Printf("[summary] 摘要生成失败，使用占位文本")
		summary = constants.NoSummaryAvailable
		if emitErr == nil {
			emitErr = streaming.EmitAll(emitter, summary, s.chunkSize)
		}
		return types.SummaryOutput{Text: summary}, emitErr
	}

	if s.cache != nil {
		s.cache.Put(fingerprint, summary)
	}
	s.logger.Printf("[summary] Output: %.80s", summary)
	return types.SummaryOutput{Text: summary}, emitErr
}

func (s *SummaryStage) generateChunked(ctx context.Context, userPrompt string, emitter streaming.Emitter) (string, error) {
	summary, err := s.generator.Generate(ctx, summaryPrompt, userPrompt)
	if err != nil {
		s.logger.Printf("[summary] LLM调用失败: %v", err)
		return "", nil
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", nil
	}
	return summary, streaming.EmitAll(emitter, summary, s.chunkSize)
}

func (s *SummaryStage) generateIncremental(ctx context.Context, userPrompt string, emitter streaming.Emitter) (string, error) {
	chunks, err := s.generator.GenerateStream(ctx, summaryPrompt, userPrompt)
	if err != nil {
		s.logger.Printf("[summary] 流式LLM调用失败，回退为同步生成: %v", err)
		return s.generateChunked(ctx, userPrompt, emitter)
	}

	var sb strings.Builder
	var emitErr error
	for chunk := range chunks {
		sb.WriteString(chunk)
		if emitErr == nil {
			// 下发失败后继续攒完整摘要：客户端不在了，检查点还得写
			emitErr = emitter.Emit(chunk)
		}
	}
	return strings.TrimSpace(sb.String()), emitErr
}
