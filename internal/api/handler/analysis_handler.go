package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/pipeline"
	"resume-agent-go/internal/session"
	"resume-agent-go/internal/streaming"
	"resume-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// AnalysisHandler 处理简历分析相关的HTTP请求
type AnalysisHandler struct {
	engine *pipeline.Engine
	logger *log.Logger
}

// NewAnalysisHandler 创建简历分析处理器。logger为nil时丢弃日志。
func NewAnalysisHandler(engine *pipeline.Engine, logger *log.Logger) *AnalysisHandler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &AnalysisHandler{
		engine: engine,
		logger: logger,
	}
}

// HandleAnalyzeResume 处理简历分析请求。
// 响应体是流式纯文本：摘要分片先到，首个面试问题随后；
// 会话ID通过 X-Session-Id 响应头返回，供后续分页拉取问题。
func (h *AnalysisHandler) HandleAnalyzeResume(ctx context.Context, c *app.RequestContext) {
	// 1. 解析请求体
	var req types.AnalyzeResumeRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "请求体必须是合法的JSON",
		})
		return
	}

	// 2. 校验简历文本并创建会话，失败时在流式响应开始前返回明确错误
	sessionID, err := h.engine.Prepare(ctx, req.ResumeText)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidResume) {
			c.JSON(consts.StatusBadRequest, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		h.logger.Printf("创建会话失败: %v", err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "创建会话失败",
		})
		return
	}

	h.logger.Printf("开始分析简历, sessionID: %s, 文本长度: %d", sessionID, len(req.ResumeText))

	// 3. 建立管道：流水线写入写端，响应体从读端流出
	pr, pw := io.Pipe()
	c.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	c.Response.Header.Set("X-Session-Id", sessionID)
	c.SetStatusCode(consts.StatusOK)
	c.SetBodyStream(pr, -1)

	// 4. 异步执行流水线。请求上下文在处理器返回后会被取消，
	// 这里剥离取消信号，让分析在响应流动期间继续进行；
	// 客户端断开会通过管道写失败传导给流水线。
	analysisCtx := context.WithoutCancel(ctx)
	go func() {
		err := h.engine.Analyze(analysisCtx, sessionID, req.ResumeText, streaming.NewWriterEmitter(pw))
		if err != nil {
			h.logger.Printf("会话 %s 分析中断: %v", sessionID, err)
		}
		pw.CloseWithError(err)
	}()
}

// HandleNextQuestion 取会话中下一个未消费的面试问题。
// 问题耗尽后固定返回提示信息，不回绕。
func (h *AnalysisHandler) HandleNextQuestion(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")

	question, ok, err := h.engine.NextQuestion(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(consts.StatusNotFound, map[string]interface{}{
				"error": "会话不存在",
			})
			return
		}
		h.logger.Printf("获取下一个问题失败, sessionID: %s: %v", sessionID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "获取问题失败",
		})
		return
	}

	if !ok {
		c.JSON(consts.StatusOK, types.NextQuestionResponse{
			Message: constants.NoMoreQuestionsMessage,
		})
		return
	}
	c.JSON(consts.StatusOK, types.NextQuestionResponse{Question: question})
}

// HandleRegenerateQuestions 基于已存洞察（或请求体中的覆盖文本）
// 重新生成一批面试问题。上游阶段不重跑，游标重置到新列表开头。
func (h *AnalysisHandler) HandleRegenerateQuestions(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")

	var req types.RegenerateQuestionsRequest
	if len(c.Request.Body()) > 0 {
		if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
			c.JSON(consts.StatusBadRequest, map[string]interface{}{
				"error": "请求体必须是合法的JSON",
			})
			return
		}
	}

	questions, err := h.engine.ResumeFromInsights(ctx, sessionID, req.Insights)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(consts.StatusNotFound, map[string]interface{}{
				"error": "会话不存在",
			})
			return
		}
		h.logger.Printf("重新生成问题失败, sessionID: %s: %v", sessionID, err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "重新生成问题失败",
		})
		return
	}

	c.JSON(consts.StatusOK, types.RegenerateQuestionsResponse{
		SessionID: sessionID,
		Questions: questions,
		Count:     len(questions),
	})
}
