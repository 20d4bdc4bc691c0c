package types

import (
	"fmt"
	"strings"

	"resume-agent-go/internal/constants"
)

// WorkExperience 一段工作经历。
// 所有字段都可能缺失：原始简历没写的信息不做编造，渲染时用 Unknown 占位。
type WorkExperience struct {
	Company     string `json:"company,omitempty"`
	Role        string `json:"role,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorkExperienceList LLM结构化输出的外层包装
type WorkExperienceList struct {
	WorkExperiences []WorkExperience `json:"work_experiences"`
}

// Render 渲染为一行文本："<role> at <company> (<start> - <end>): <desc>"
func (w WorkExperience) Render() string {
	role := w.Role
	if role == "" {
		role = "Unknown"
	}
	company := w.Company
	if company == "" {
		company = "Unknown"
	}
	start := w.StartDate
	if start == "" {
		start = "Unknown"
	}
	end := w.EndDate
	if end == "" {
		end = "Unknown"
	}
	return fmt.Sprintf("%s at %s (%s - %s): %s", role, company, start, end, w.Description)
}

// RenderWorkExperiences 把工作经历列表渲染为多行文本，空列表返回兜底行。
func RenderWorkExperiences(entries []WorkExperience) string {
	if len(entries) == 0 {
		return constants.NoWorkExtracted
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Render())
	}
	return strings.Join(lines, "\n")
}

// Education 一段教育经历。
type Education struct {
	Institution string `json:"Institution,omitempty"`
	Degree      string `json:"Degree,omitempty"`
	Field       string `json:"Field,omitempty"`
	StartYear   int    `json:"Start_year,omitempty"`
	EndYear     int    `json:"End_year,omitempty"`
}

// EducationList LLM结构化输出的外层包装
type EducationList struct {
	EduExperiences []Education `json:"edu_experiences"`
}

// Valid 判断条目是否保留：学位、院校、专业三者缺一即丢弃。
func (e Education) Valid() bool {
	return e.Degree != "" && e.Institution != "" && e.Field != ""
}

// Render 渲染为一行文本："<Degree> in <Field> at <Institution> (<start> - <end>)"
func (e Education) Render() string {
	start := "Unknown"
	if e.StartYear != 0 {
		start = fmt.Sprintf("%d", e.StartYear)
	}
	end := "Unknown"
	if e.EndYear != 0 {
		end = fmt.Sprintf("%d", e.EndYear)
	}
	return fmt.Sprintf("%s in %s at %s (%s - %s)", e.Degree, e.Field, e.Institution, start, end)
}

// RenderEducations 渲染教育经历列表，过滤无效条目，空结果返回兜底行。
func RenderEducations(entries []Education) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Valid() {
			continue
		}
		lines = append(lines, e.Render())
	}
	if len(lines) == 0 {
		return constants.NoValidEducation
	}
	return strings.Join(lines, "\n")
}

// InsightsPayload 洞察阶段的结构化输出
type InsightsPayload struct {
	Insights []string `json:"insights"`
}

// QuestionsPayload 问题阶段的结构化输出
type QuestionsPayload struct {
	Questions []string `json:"questions"`
}

// StageOutput 是各阶段产出的带标签联合类型。
// 同一时刻只有与Stage对应的那个指针字段非nil，
// 禁止用位置偏移（如"倒数第3条消息"）寻址阶段输出。
type StageOutput struct {
	Stage     constants.StageName `json:"stage"`
	Work      *WorkOutput         `json:"work,omitempty"`
	Education *EducationOutput    `json:"education,omitempty"`
	Summary   *SummaryOutput      `json:"summary,omitempty"`
	Insights  *InsightsOutput     `json:"insights,omitempty"`
	Questions *QuestionsOutput    `json:"questions,omitempty"`
}

// WorkOutput 工作经历阶段产出：结构化条目 + 渲染文本
type WorkOutput struct {
	Entries []WorkExperience `json:"entries"`
	Text    string           `json:"text"`
}

// EducationOutput 教育经历阶段产出
type EducationOutput struct {
	Entries []Education `json:"entries"`
	Text    string      `json:"text"`
}

// SummaryOutput 摘要阶段产出
type SummaryOutput struct {
	Text      string `json:"text"`
	FromCache bool   `json:"from_cache"`
}

// InsightsOutput 洞察阶段产出
type InsightsOutput struct {
	Items []string `json:"items"`
}

// QuestionsOutput 问题阶段产出
type QuestionsOutput struct {
	Items []string `json:"items"`
}

// Validate 校验联合类型的标签与内容是否一致。
func (o StageOutput) Validate() error {
	switch o.Stage {
	case constants.StageWorkExp:
		if o.Work == nil {
			return fmt.Errorf("阶段 %s 缺少工作经历产出", o.Stage)
		}
	case constants.StageEduExp:
		if o.Education == nil {
			return fmt.Errorf("阶段 %s 缺少教育经历产出", o.Stage)
		}
	case constants.StageSummary:
		if o.Summary == nil {
			return fmt.Errorf("阶段 %s 缺少摘要产出", o.Stage)
		}
	case constants.StageInsights:
		if o.Insights == nil {
			return fmt.Errorf("阶段 %s 缺少洞察产出", o.Stage)
		}
	case constants.StageQuestions:
		if o.Questions == nil {
			return fmt.Errorf("阶段 %s 缺少问题产出", o.Stage)
		}
	default:
		return fmt.Errorf("未知的流水线阶段: %s", o.Stage)
	}
	return nil
}

// AnalyzeResumeRequest 简历分析请求体
type AnalyzeResumeRequest struct {
	ResumeText string `json:"resume_text"`
}

// NextQuestionResponse 下一问题接口的响应体。
// Question 与 Message 互斥：取尽时只返回 Message。
type NextQuestionResponse struct {
	Question string `json:"question,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RegenerateQuestionsRequest 从洞察阶段恢复执行的请求体
type RegenerateQuestionsRequest struct {
	Insights string `json:"insights,omitempty"`
}

// RegenerateQuestionsResponse 恢复执行后的新问题列表
type RegenerateQuestionsResponse struct {
	SessionID string   `json:"session_id"`
	Questions []string `json:"questions"`
	Count     int      `json:"count"`
}
