package router

import (
	"context"

	"resume-agent-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, analysisHandler *handler.AnalysisHandler) {
	api := h.Group("/api/v1")

	// 简历分析：流式返回摘要与首个面试问题
	api.POST("/resume/analyze", analysisHandler.HandleAnalyzeResume)

	// 面试问题分页拉取与重新生成
	api.GET("/resume/session/:session_id/question", analysisHandler.HandleNextQuestion)
	api.POST("/resume/session/:session_id/questions", analysisHandler.HandleRegenerateQuestions)

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
