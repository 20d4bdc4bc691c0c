package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/types"
)

const questionGenerationPrompt = `You are an experienced technical interviewer. Based on the insights about the candidate below, generate targeted interview questions that probe the candidate's actual experience. Each question should be specific to the candidate, not generic.
Return strictly a JSON object of the form {"questions": ["...", "..."]}. Do not include any explanatory text or Markdown markers.`

// QuestionStage 基于候选人洞察生成定制化面试问题。
// 这是流水线中唯一可独立重跑的阶段：insights 在手即可再生成一批新问题。
type QuestionStage struct {
	generator llm.TextGenerator
	logger    *log.Logger
}

// NewQuestionStage 创建问题生成阶段
func NewQuestionStage(generator llm.TextGenerator, logger *log.Logger) *QuestionStage {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &QuestionStage{generator: generator, logger: logger}
}

// Generate 生成面试问题。失败收敛为空列表，不中断流水线；
// 调用方据此决定是否下发首个问题。
func (s *QuestionStage) Generate(ctx context.Context, insights []string) types.QuestionsOutput {
	items, err := s.generate(ctx, insights)
	if err != nil {
		s.logger.Printf("[questions] 生成面试问题失败，使用空结果: %v", err)
		return types.QuestionsOutput{}
	}
	s.logger.Printf("[questions] 生成 %d 个面试问题", len(items))
	return types.QuestionsOutput{Items: items}
}

func (s *QuestionStage) generate(ctx context.Context, insights []string) ([]string, error) {
	var sb strings.Builder
	for _, insight := range insights {
		sb.WriteString("- ")
		sb.WriteString(insight)
		sb.WriteString("\n")
	}
	userPrompt := fmt.Sprintf("Candidate insights:\n%s", sb.String())

	response, err := s.generator.Generate(ctx, questionGenerationPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	return parseQuestions(response), nil
}

// parseQuestions 解析问题列表。兼容对象与裸数组两种JSON形态；
// 完全不是JSON时把整段响应当作一个问题，不让一次生成白费。
func parseQuestions(response string) []string {
	var raw []string
	if jsonStr := llm.ExtractJSON(response); jsonStr != "" {
		if strings.HasPrefix(jsonStr, "[") {
			_ = json.Unmarshal([]byte(jsonStr), &raw)
		} else {
			var result types.QuestionsPayload
			if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
				raw = result.Questions
			}
		}
	}
	if raw == nil {
		if trimmed := strings.TrimSpace(response); trimmed != "" {
			raw = []string{trimmed}
		}
	}

	// 过滤空白项，问题列表里不允许出现空问题
	questions := make([]string, 0, len(raw))
	for _, q := range raw {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	return questions
}
