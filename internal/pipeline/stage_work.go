package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/types"
)

const workExtractionPrompt = `Extract work experiences from the resume text below. Include company, role, start date (YYYY-MM), end date (YYYY-MM or 'Present'), and description for each experience.
Return strictly a JSON object of the form {"work_experiences": [{"company": "...", "role": "...", "start_date": "...", "end_date": "...", "description": "..."}]}.
Omit fields that are not present in the resume. Do not include any explanatory text or Markdown markers.`

// WorkStage 从原始简历文本中抽取结构化的工作经历。
// 纯函数语义：简历文本进，工作经历列表出；失败收敛为空列表。
type WorkStage struct {
	generator llm.TextGenerator
	logger    *log.Logger
}

// NewWorkStage 创建工作经历抽取阶段
func NewWorkStage(generator llm.TextGenerator, logger *log.Logger) *WorkStage {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &WorkStage{generator: generator, logger: logger}
}

// Extract 抽取工作经历。
// LLM失败或输出不可解析时返回空列表和兜底文本，从不返回错误：
// 单阶段失败被就地收敛，不中断流水线。
func (s *WorkStage) Extract(ctx context.Context, resumeText string) types.WorkOutput {
	entries, err := s.extract(ctx, resumeText)
	if err != nil {
		s.logger.Printf("[work_exp] 抽取工作经历失败，使用空结果: %v", err)
		entries = nil
	}
	out := types.WorkOutput{
		Entries: entries,
		Text:    types.RenderWorkExperiences(entries),
	}
	s.logger.Printf("[work_exp] Output: %s", out.Text)
	return out
}

func (s *WorkStage) extract(ctx context.Context, resumeText string) ([]types.WorkExperience, error) {
	userPrompt := fmt.Sprintf("Resume:\n%s", resumeText)
	response, err := s.generator.Generate(ctx, workExtractionPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var result types.WorkExperienceList
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return result.WorkExperiences, nil
}
