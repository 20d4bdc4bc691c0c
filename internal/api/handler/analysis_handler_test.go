package handler_test

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"testing"

	"resume-agent-go/internal/api/handler"
	"resume-agent-go/internal/api/router"
	"resume-agent-go/internal/config"
	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/llm"
	"resume-agent-go/internal/pipeline"
	"resume-agent-go/internal/session"
	"resume-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testResume = "Work Experience:\n- Engineer, Acme, 2020-2023: Built things.\nEducation:\n- B.S., State U, 2016-2020"

// newTestEngine 组装一个全内存、零停顿、用MockChatModel驱动的测试服务
func newTestEngine(t *testing.T) *route.Engine {
	t.Helper()

	generator := llm.NewEinoTextGenerator(&llm.MockChatModel{})
	engine := pipeline.NewEngine(session.NewMemoryStore(), generator, config.PipelineConfig{
		SummaryChunkSize: 50,
		StreamMode:       "chunked",
	}, nil)

	h := server.Default()
	router.RegisterRoutes(h, handler.NewAnalysisHandler(engine, nil))
	return h.Engine
}

func analyzeResume(t *testing.T, e *route.Engine, resumeText string) *ut.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(types.AnalyzeResumeRequest{ResumeText: resumeText})
	require.NoError(t, err)
	return ut.PerformRequest(e, "POST", "/api/v1/resume/analyze",
		&ut.Body{Body: bytes.NewBuffer(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
}

func TestHandleAnalyzeResume_Success(t *testing.T) {
	e := newTestEngine(t)

	resp := analyzeResume(t, e, testResume)
	result := resp.Result()
	require.Equal(t, http.StatusOK, result.StatusCode())

	sessionID := string(result.Header.Get("X-Session-Id"))
	assert.NotEmpty(t, sessionID, "响应头应携带会话ID")

	body := string(result.Body())
	assert.True(t, strings.HasPrefix(body, constants.SummaryStreamPrefix), "响应体应以摘要前缀开头: %q", body)
	assert.Contains(t, body, constants.FirstQuestionStreamPrefix)

	// 摘要完整出现在首问之前
	idx := strings.Index(body, constants.FirstQuestionStreamPrefix)
	question := strings.TrimSpace(body[idx+len(constants.FirstQuestionStreamPrefix):])
	assert.NotEmpty(t, question)
}

// 处理器日志只写注入的logger，不直接落到标准输出
func TestHandleAnalyzeResume_LogsThroughInjectedLogger(t *testing.T) {
	var logBuf bytes.Buffer
	generator := llm.NewEinoTextGenerator(&llm.MockChatModel{})
	engine := pipeline.NewEngine(session.NewMemoryStore(), generator, config.PipelineConfig{
		SummaryChunkSize: 50,
		StreamMode:       "chunked",
	}, nil)

	h := server.Default()
	router.RegisterRoutes(h, handler.NewAnalysisHandler(engine, log.New(&logBuf, "[ResumeAnalysis] ", 0)))

	resp := analyzeResume(t, h.Engine, testResume)
	sessionID := string(resp.Result().Header.Get("X-Session-Id"))
	require.NotEmpty(t, sessionID)
	assert.Contains(t, logBuf.String(), sessionID)
	assert.Contains(t, logBuf.String(), "[ResumeAnalysis]")
}

func TestHandleAnalyzeResume_InvalidResume(t *testing.T) {
	e := newTestEngine(t)

	resp := analyzeResume(t, e, "no education section here")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var errBody map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errBody))
	assert.Contains(t, errBody["error"], "education")
}

func TestHandleAnalyzeResume_MalformedBody(t *testing.T) {
	e := newTestEngine(t)

	raw := []byte("not json at all")
	resp := ut.PerformRequest(e, "POST", "/api/v1/resume/analyze",
		&ut.Body{Body: bytes.NewBuffer(raw), Len: len(raw)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleNextQuestion_PaginationFlow(t *testing.T) {
	e := newTestEngine(t)

	resp := analyzeResume(t, e, testResume)
	sessionID := string(resp.Result().Header.Get("X-Session-Id"))
	require.NotEmpty(t, sessionID)

	// MockChatModel 固定生成两个问题，首问已在分析响应中消费
	qResp := ut.PerformRequest(e, "GET", "/api/v1/resume/session/"+sessionID+"/question", nil)
	require.Equal(t, http.StatusOK, qResp.Code)
	var next types.NextQuestionResponse
	require.NoError(t, json.Unmarshal(qResp.Body.Bytes(), &next))
	assert.NotEmpty(t, next.Question)
	assert.Empty(t, next.Message)

	// 取尽后固定返回提示信息
	for i := 0; i < 2; i++ {
		qResp = ut.PerformRequest(e, "GET", "/api/v1/resume/session/"+sessionID+"/question", nil)
		require.Equal(t, http.StatusOK, qResp.Code)
		next = types.NextQuestionResponse{}
		require.NoError(t, json.Unmarshal(qResp.Body.Bytes(), &next))
		assert.Empty(t, next.Question)
		assert.Equal(t, constants.NoMoreQuestionsMessage, next.Message)
	}
}

func TestHandleNextQuestion_UnknownSession(t *testing.T) {
	e := newTestEngine(t)
	resp := ut.PerformRequest(e, "GET", "/api/v1/resume/session/no-such-session/question", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleRegenerateQuestions(t *testing.T) {
	e := newTestEngine(t)

	resp := analyzeResume(t, e, testResume)
	sessionID := string(resp.Result().Header.Get("X-Session-Id"))
	require.NotEmpty(t, sessionID)

	body, err := json.Marshal(types.RegenerateQuestionsRequest{Insights: "Deep distributed systems expertise"})
	require.NoError(t, err)
	regenResp := ut.PerformRequest(e, "POST", "/api/v1/resume/session/"+sessionID+"/questions",
		&ut.Body{Body: bytes.NewBuffer(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusOK, regenResp.Code)

	var regen types.RegenerateQuestionsResponse
	require.NoError(t, json.Unmarshal(regenResp.Body.Bytes(), &regen))
	assert.Equal(t, sessionID, regen.SessionID)
	assert.NotEmpty(t, regen.Questions)
	assert.Equal(t, len(regen.Questions), regen.Count)

	// 新列表从头消费
	qResp := ut.PerformRequest(e, "GET", "/api/v1/resume/session/"+sessionID+"/question", nil)
	require.Equal(t, http.StatusOK, qResp.Code)
	var next types.NextQuestionResponse
	require.NoError(t, json.Unmarshal(qResp.Body.Bytes(), &next))
	assert.Equal(t, regen.Questions[0], next.Question)
}

func TestHandleRegenerateQuestions_UnknownSession(t *testing.T) {
	e := newTestEngine(t)
	resp := ut.PerformRequest(e, "POST", "/api/v1/resume/session/no-such-session/questions", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEngine(t)
	resp := ut.PerformRequest(e, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status": "ok"}`, resp.Body.String())
}
