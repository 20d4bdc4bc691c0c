package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/types"
)

const insightExtractionPrompt = `You are an experienced technical recruiter. Extract the key insights about the candidate from the summary below: notable strengths, career trajectory, domain expertise and potential gaps.
Return strictly a JSON object of the form {"insights": ["...", "..."]}. Each insight is one short sentence. Do not include any explanatory text or Markdown markers.`

// InsightStage 从候选人摘要中提炼面试官视角的洞察要点。
type InsightStage struct {
	generator llm.TextGenerator
	logger    *log.Logger
}

// NewInsightStage 创建洞察提炼阶段
func NewInsightStage(generator llm.TextGenerator, logger *log.Logger) *InsightStage {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &InsightStage{generator: generator, logger: logger}
}

// Extract 从摘要提炼洞察。失败收敛为单条兜底洞察，不中断流水线。
func (s *InsightStage) Extract(ctx context.Context, summary string) types.InsightsOutput {
	items, err := s.extract(ctx, summary)
	if err != nil || len(items) == 0 {
		if err != nil {
			s.logger.Printf("[insights] 提炼洞察失败，使用兜底结果: %v", err)
		}
		return types.InsightsOutput{Items: []string{constants.NoInsightsExtracted}}
	}
	s.logger.Printf("[insights] 提炼到 %d 条洞察", len(items))
	return types.InsightsOutput{Items: items}
}

func (s *InsightStage) extract(ctx context.Context, summary string) ([]string, error) {
	userPrompt := fmt.Sprintf("Candidate summary:\n%s", summary)
	response, err := s.generator.Generate(ctx, insightExtractionPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	if jsonStr := llm.ExtractJSON(response); jsonStr != "" {
		var result types.InsightsPayload
		if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
			return result.Insights, nil
		}
	}

	// 模型没按约定输出JSON时退化为逐行解析，能救多少救多少
	s.logger.Printf("[insights] LLM响应不是有效JSON，按行拆分")
	var items []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
		if line != "" {
			items = append(items, line)
		}
	}
	return items, nil
}
