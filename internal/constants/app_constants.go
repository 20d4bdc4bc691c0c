package constants

// StageName 流水线阶段的名称。
// 阶段产出在会话中按此名称寻址，改名会使已有会话数据失效。
type StageName string

const (
	StageWorkExp   StageName = "work_exp"  // 工作经历抽取
	StageEduExp    StageName = "edu_exp"   // 教育经历抽取
	StageSummary   StageName = "summary"   // 摘要生成
	StageInsights  StageName = "insights"  // 洞察提取
	StageQuestions StageName = "questions" // 面试问题生成
)

// PipelineStageOrder 阶段的固定执行顺序。
var PipelineStageOrder = []StageName{
	StageWorkExp,
	StageEduExp,
	StageSummary,
	StageInsights,
	StageQuestions,
}

const (
	// NoWorkExtracted 工作经历阶段的兜底输出
	NoWorkExtracted = "No work experience extracted"
	// NoValidEducation 教育经历阶段过滤后为空时的兜底输出
	NoValidEducation = "No valid education entries found"
	// NoEducationData 教育经历阶段完全失败时的兜底输出
	NoEducationData = "No education data extracted"
	// NoInsightsExtracted 洞察阶段的兜底输出
	NoInsightsExtracted = "No insights extracted"
	// NoSummaryAvailable 摘要阶段失败时的非空占位符
	NoSummaryAvailable = "Summary unavailable for this resume"
)

const (
	// SummaryStreamPrefix 流式响应中摘要部分的前缀
	SummaryStreamPrefix = "Summary: "
	// FirstQuestionStreamPrefix 流式响应中首个问题的前缀
	FirstQuestionStreamPrefix = "\nFirst interview question: "
	// NoMoreQuestionsMessage 问题取尽后的固定提示
	NoMoreQuestionsMessage = "No more questions available"
)
