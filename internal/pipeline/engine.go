package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-agent-go/internal/config"
	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/session"
	"resume-agent-go/internal/streaming"
	"resume-agent-go/internal/tracing"
	"resume-agent-go/internal/types"
)

// Engine 编排五阶段简历分析流水线：
// 工作经历抽取 → 教育经历抽取 → 摘要 → 洞察提炼 → 问题生成。
// 阶段严格串行，每个阶段的输出先落到会话存储，再启动下一阶段；
// 单阶段失败在阶段内部收敛为占位输出，从不中断整条流水线。
type Engine struct {
	store     session.Store
	work      *WorkStage
	education *EducationStage
	summary   *SummaryStage
	insight   *InsightStage
	question  *QuestionStage
	cfg       config.PipelineConfig
	tracer    trace.Tracer
	logger    *log.Logger
}

// NewEngine 组装流水线。所有阶段共享同一个文本生成器与日志器。
func NewEngine(store session.Store, generator llm.TextGenerator, cfg config.PipelineConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cache := NewSummaryCache(cfg.SummaryCacheMaxEntries)
	return &Engine{
		store:     store,
		work:      NewWorkStage(generator, logger),
		education: NewEducationStage(generator, logger),
		summary:   NewSummaryStage(generator, cache, cfg.SummaryChunkSize, StreamMode(cfg.StreamMode), logger),
		insight:   NewInsightStage(generator, logger),
		question:  NewQuestionStage(generator, logger),
		cfg:       cfg,
		tracer:    otel.Tracer("resume-agent-go/pipeline"),
		logger:    logger,
	}
}

// Run 对一份简历执行完整流水线，流式下发摘要与首个面试问题。
//
// 返回的 sessionID 在校验通过、会话创建成功后即有效；后续任何
// 下发失败（客户端断开）都只放弃剩余的流式输出，已写入的会话
// 状态不回滚，客户端可凭 sessionID 继续拉取问题。
func (e *Engine) Run(ctx context.Context, resumeText string, emitter streaming.Emitter) (string, error) {
	sessionID, err := e.Prepare(ctx, resumeText)
	if err != nil {
		return "", err
	}
	return sessionID, e.Analyze(ctx, sessionID, resumeText, emitter)
}

// Prepare 校验简历文本并创建会话。HTTP 层先调它拿到会话ID写响应头，
// 再异步执行 Analyze 做流式分析。
func (e *Engine) Prepare(ctx context.Context, resumeText string) (string, error) {
	if err := ValidateResumeText(resumeText); err != nil {
		return "", err
	}
	sessionID, err := e.store.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("创建会话失败: %w", err)
	}
	return sessionID, nil
}

// Analyze 对已创建的会话执行五个阶段并流式下发结果。
func (e *Engine) Analyze(ctx context.Context, sessionID, resumeText string, emitter streaming.Emitter) error {
	if emitter == nil {
		emitter = streaming.Discard
	}
	paced := streaming.NewPacedEmitter(ctx, emitter, e.cfg.StreamInterval())
	e.logger.Printf("[pipeline] 会话 %s 开始分析，简历长度 %d", sessionID, len(resumeText))

	// 工作经历
	workOut, err := e.runWorkStage(ctx, sessionID, resumeText)
	if err != nil {
		return err
	}

	// 教育经历
	eduOut, err := e.runEducationStage(ctx, sessionID, resumeText)
	if err != nil {
		return err
	}

	// 摘要：先下发前缀，再由阶段内部分片下发正文
	if err := paced.Emit(constants.SummaryStreamPrefix); err != nil {
		// 客户端已断开：放弃剩余阶段，已落盘的状态保留
		e.logger.Printf("[pipeline] 会话 %s 客户端断开，放弃剩余阶段", sessionID)
		return err
	}
	summaryOut, emitErr, err := e.runSummaryStage(ctx, sessionID, workOut.Text, eduOut.Text, paced)
	if err != nil {
		return err
	}
	if emitErr != nil {
		// 摘要已生成并落盘，但客户端断开：放弃洞察与问题阶段
		e.logger.Printf("[pipeline] 会话 %s 摘要下发失败，放弃剩余阶段: %v", sessionID, emitErr)
		return emitErr
	}

	// 洞察
	insightsOut, err := e.runInsightStage(ctx, sessionID, summaryOut.Text)
	if err != nil {
		return err
	}

	// 问题
	if _, err := e.runQuestionStage(ctx, sessionID, insightsOut.Items); err != nil {
		return err
	}

	// 首个问题走与分页相同的消费式读取，游标从这里开始前进
	first, ok, err := e.store.NextQuestion(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("读取首个面试问题失败: %w", err)
	}
	if ok {
		if err := paced.Emit(constants.FirstQuestionStreamPrefix + first); err != nil {
			return err
		}
	}

	e.logger.Printf("[pipeline] 会话 %s 分析完成", sessionID)
	return nil
}

// ResumeFromInsights 从问题生成阶段重入：基于已存洞察（或调用方给出的
// 覆盖文本）重新生成一批问题并重置游标。上游阶段一概不重跑。
func (e *Engine) ResumeFromInsights(ctx context.Context, sessionID string, overrideInsights string) ([]string, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	insights := sess.LatestInsights()
	if override := strings.TrimSpace(overrideInsights); override != "" {
		insights = splitInsightLines(override)
	}
	if len(insights) == 0 {
		insights = []string{constants.NoInsightsExtracted}
	}

	e.logger.Printf("[pipeline] 会话 %s 基于 %d 条洞察重新生成问题", sessionID, len(insights))
	questionsOut, err := e.runQuestionStage(ctx, sessionID, insights)
	if err != nil {
		return nil, err
	}
	return questionsOut.Items, nil
}

// NextQuestion 取下一个未消费的面试问题。
// 问题耗尽后永久返回 ok=false，除非有新一批问题生成。
func (e *Engine) NextQuestion(ctx context.Context, sessionID string) (string, bool, error) {
	return e.store.NextQuestion(ctx, sessionID)
}

func (e *Engine) runWorkStage(ctx context.Context, sessionID, resumeText string) (types.WorkOutput, error) {
	ctx, span := e.startStageSpan(ctx, sessionID, constants.StageWorkExp)
	defer span.End()

	out := e.work.Extract(ctx, resumeText)
	span.SetAttributes(attribute.String("stage.output", tracing.SafeResumeContent(out.Text)))
	if err := e.store.AppendStageOutput(ctx, sessionID, types.StageOutput{Stage: constants.StageWorkExp, Work: &out}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return out, fmt.Errorf("写入工作经历结果失败: %w", err)
	}
	return out, nil
}

func (e *Engine) runEducationStage(ctx context.Context, sessionID, resumeText string) (types.EducationOutput, error) {
	ctx, span := e.startStageSpan(ctx, sessionID, constants.StageEduExp)
	defer span.End()

	out := e.education.Extract(ctx, resumeText)
	span.SetAttributes(attribute.String("stage.output", tracing.SafeResumeContent(out.Text)))
	if err := e.store.AppendStageOutput(ctx, sessionID, types.StageOutput{Stage: constants.StageEduExp, Education: &out}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return out, fmt.Errorf("写入教育经历结果失败: %w", err)
	}
	return out, nil
}

// runSummaryStage 返回三个值：阶段输出、下发错误（客户端侧）、存储错误（服务端侧）。
// 两类错误的处置不同：下发错误只影响后续流式输出，存储错误中止流水线。
func (e *Engine) runSummaryStage(ctx context.Context, sessionID, workText, eduText string, emitter streaming.Emitter) (types.SummaryOutput, error, error) {
	ctx, span := e.startStageSpan(ctx, sessionID, constants.StageSummary)
	defer span.End()

	out, emitErr := e.summary.Generate(ctx, workText, eduText, emitter)
	span.SetAttributes(
		attribute.Bool("summary.from_cache", out.FromCache),
		attribute.String("stage.output", tracing.SafeResumeContent(out.Text)),
	)
	if emitErr != nil {
		tracing.RecordError(span, emitErr, tracing.ErrorTypeStream)
	}
	if err := e.store.AppendStageOutput(ctx, sessionID, types.StageOutput{Stage: constants.StageSummary, Summary: &out}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return out, emitErr, fmt.Errorf("写入摘要结果失败: %w", err)
	}
	return out, emitErr, nil
}

func (e *Engine) runInsightStage(ctx context.Context, sessionID, summary string) (types.InsightsOutput, error) {
	ctx, span := e.startStageSpan(ctx, sessionID, constants.StageInsights)
	defer span.End()

	out := e.insight.Extract(ctx, summary)
	span.SetAttributes(attribute.Int("insights.count", len(out.Items)))
	if err := e.store.AppendStageOutput(ctx, sessionID, types.StageOutput{Stage: constants.StageInsights, Insights: &out}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return out, fmt.Errorf("写入洞察结果失败: %w", err)
	}
	return out, nil
}

func (e *Engine) runQuestionStage(ctx context.Context, sessionID string, insights []string) (types.QuestionsOutput, error) {
	ctx, span := e.startStageSpan(ctx, sessionID, constants.StageQuestions)
	defer span.End()

	out := e.question.Generate(ctx, insights)
	span.SetAttributes(attribute.Int("questions.count", len(out.Items)))
	if err := e.store.AppendStageOutput(ctx, sessionID, types.StageOutput{Stage: constants.StageQuestions, Questions: &out}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return out, fmt.Errorf("写入问题列表失败: %w", err)
	}
	return out, nil
}

func (e *Engine) startStageSpan(ctx context.Context, sessionID string, stage constants.StageName) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "pipeline."+string(stage),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("pipeline.stage", string(stage)),
		))
}

// splitInsightLines 把覆盖文本拆成洞察条目：按行切分、剥掉列表符号，
// 拆不出多行时整段作为单条洞察。
func splitInsightLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
