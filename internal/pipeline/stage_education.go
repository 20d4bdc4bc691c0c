package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/types"
)

const educationExtractionPrompt = `Extract educational experiences from the resume text, returning Institution, Degree, Field, Start_year, End_year for each.
Return strictly a JSON object of the form {"edu_experiences": [{"Institution": "...", "Degree": "...", "Field": "...", "Start_year": 2016, "End_year": 2020}]}.
Omit fields that are not present in the resume. Do not include any explanatory text or Markdown markers.`

var whitespaceRe = regexp.MustCompile(`\s+`)

// EducationStage 从原始简历文本中抽取结构化的教育经历。
type EducationStage struct {
	generator llm.TextGenerator
	logger    *log.Logger
}

// NewEducationStage 创建教育经历抽取阶段
func NewEducationStage(generator llm.TextGenerator, logger *log.Logger) *EducationStage {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &EducationStage{generator: generator, logger: logger}
}

// cleanResumeText 去掉注释行并压平空白，教育抽取对多余结构比较敏感。
func cleanResumeText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(strings.Join(kept, "\n")), " ")
}

// Extract 抽取教育经历。失败收敛为兜底文本，不中断流水线。
func (s *EducationStage) Extract(ctx context.Context, resumeText string) types.EducationOutput {
	cleaned := cleanResumeText(resumeText)
	if cleaned == "" {
		s.logger.Printf("[edu_exp] 输入为空，跳过抽取")
		return types.EducationOutput{Text: constants.NoEducationData}
	}

	entries, err := s.extract(ctx, cleaned)
	if err != nil {
		s.logger.Printf("[edu_exp] 抽取教育经历失败，使用空结果: %v", err)
		return types.EducationOutput{Text: constants.NoEducationData}
	}

	out := types.EducationOutput{
		Entries: entries,
		Text:    types.RenderEducations(entries),
	}
	s.logger.Printf("[edu_exp] Output: %s", out.Text)
	return out
}

func (s *EducationStage) extract(ctx context.Context, cleanedText string) ([]types.Education, error) {
	response, err := s.generator.Generate(ctx, educationExtractionPrompt, cleanedText)
	if err != nil {
		return nil, err
	}

	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var result types.EducationList
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return result.EduExperiences, nil
}
