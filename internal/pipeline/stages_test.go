package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/pipeline"
	"resume-agent-go/internal/streaming"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator 按系统提示词关键字路由的脚本化文本生成器。
// 记录每个阶段的调用次数与最近一次的用户提示词，供断言使用。
type stubGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     map[string]int
	lastUser  map[string]string
	streamErr error
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{
		responses: map[string]string{
			"work":      `{"work_experiences": [{"company": "Acme", "role": "Engineer", "start_date": "2020-01", "end_date": "2023-06", "description": "Built things."}]}`,
			"edu":       `{"edu_experiences": [{"Institution": "State U", "Degree": "B.S.", "Field": "Computer Science", "Start_year": 2016, "End_year": 2020}]}`,
			"summary":   "An engineer who built things at Acme after studying at State U.",
			"insights":  `{"insights": ["Hands-on engineering experience at Acme", "Solid CS fundamentals from State U"]}`,
			"questions": `{"questions": ["What did you build at Acme?", "Why did you choose State U?"]}`,
		},
		failures: map[string]error{},
		calls:    map[string]int{},
		lastUser: map[string]string{},
	}
}

// stageKey 识别系统提示词属于哪个阶段。标记词必须两两不重叠：
// 洞察提示词里有"summary"、问题提示词里有"insights"，裸词会串台。
func stageKey(systemPrompt string) string {
	p := strings.ToLower(systemPrompt)
	switch {
	case strings.Contains(p, "work experiences"):
		return "work"
	case strings.Contains(p, "educational experiences"):
		return "edu"
	case strings.Contains(p, "key insights"):
		return "insights"
	case strings.Contains(p, "interview questions"):
		return "questions"
	case strings.Contains(p, "professional summary"):
		return "summary"
	default:
		return "unknown"
	}
}

func (g *stubGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := stageKey(systemPrompt)
	g.calls[key]++
	g.lastUser[key] = userPrompt
	if err := g.failures[key]; err != nil {
		return "", err
	}
	return g.responses[key], nil
}

func (g *stubGenerator) GenerateStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, error) {
	if g.streamErr != nil {
		return nil, g.streamErr
	}
	content, err := g.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for _, chunk := range streaming.ChunkText(content, 16) {
			out <- chunk
		}
	}()
	return out, nil
}

func (g *stubGenerator) callCount(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

func TestWorkStage_ExtractFromFencedJSON(t *testing.T) {
	gen := newStubGenerator()
	gen.responses["work"] = "```json\n" + `{"work_experiences": [{"company": "Acme", "role": "Engineer", "start_date": "2020-01", "end_date": "2023-06", "description": "Built things."}]}` + "\n```"

	stage := pipeline.NewWorkStage(gen, nil)
	out := stage.Extract(context.Background(), validResume)

	require.Len(t, out.Entries, 1)
	assert.Equal(t, "Acme", out.Entries[0].Company)
	assert.Contains(t, out.Text, "Engineer at Acme (2020-01 - 2023-06): Built things.")
}

func TestWorkStage_FailureFallsBackToPlaceholder(t *testing.T) {
	gen := newStubGenerator()
	gen.failures["work"] = errors.New("model unavailable")

	stage := pipeline.NewWorkStage(gen, nil)
	out := stage.Extract(context.Background(), validResume)

	assert.Empty(t, out.Entries)
	assert.Equal(t, constants.NoWorkExtracted, out.Text)
}

func TestEducationStage_DropsInvalidEntries(t *testing.T) {
	gen := newStubGenerator()
	gen.responses["edu"] = `{"edu_experiences": [
		{"Institution": "State U", "Degree": "B.S.", "Field": "Computer Science", "Start_year": 2016, "End_year": 2020},
		{"Institution": "Night School"}
	]}`

	stage := pipeline.NewEducationStage(gen, nil)
	out := stage.Extract(context.Background(), validResume)

	assert.Contains(t, out.Text, "B.S. in Computer Science at State U")
	assert.NotContains(t, out.Text, "Night School")
}

func TestEducationStage_FailureFallsBackToPlaceholder(t *testing.T) {
	gen := newStubGenerator()
	gen.failures["edu"] = errors.New("model unavailable")

	stage := pipeline.NewEducationStage(gen, nil)
	out := stage.Extract(context.Background(), validResume)

	assert.Empty(t, out.Entries)
	assert.Equal(t, constants.NoEducationData, out.Text)
}

func TestSummaryStage_ChunkedEmission(t *testing.T) {
	gen := newStubGenerator()
	stage := pipeline.NewSummaryStage(gen, pipeline.NewSummaryCache(8), 10, pipeline.StreamModeChunked, nil)

	var buf bytes.Buffer
	out, err := stage.Generate(context.Background(), "work text", "edu text", streaming.NewWriterEmitter(&buf))
	require.NoError(t, err)
	assert.Equal(t, gen.responses["summary"], out.Text)
	assert.False(t, out.FromCache)
	assert.Equal(t, gen.responses["summary"], buf.String())
}

func TestSummaryStage_CacheHitSkipsGenerator(t *testing.T) {
	gen := newStubGenerator()
	stage := pipeline.NewSummaryStage(gen, pipeline.NewSummaryCache(8), 10, pipeline.StreamModeChunked, nil)
	ctx := context.Background()

	_, err := stage.Generate(ctx, "work text", "edu text", streaming.Discard)
	require.NoError(t, err)
	require.Equal(t, 1, gen.callCount("summary"))

	out, err := stage.Generate(ctx, "work text", "edu text", streaming.Discard)
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.Equal(t, gen.responses["summary"], out.Text)
	assert.Equal(t, 1, gen.callCount("summary"), "缓存命中不应再调用模型")
}

func TestSummaryStage_FailurePlaceholder(t *testing.T) {
	gen := newStubGenerator()
	gen.failures["summary"] = errors.New("model unavailable")
	stage := pipeline.NewSummaryStage(gen, nil, 10, pipeline.StreamModeChunked, nil)

	var buf bytes.Buffer
	out, err := stage.Generate(context.Background(), "w", "e", streaming.NewWriterEmitter(&buf))
	require.NoError(t, err)
	assert.Equal(t, constants.NoSummaryAvailable, out.Text)
	assert.Equal(t, constants.NoSummaryAvailable, buf.String())
}

func TestSummaryStage_IncrementalMode(t *testing.T) {
	gen := newStubGenerator()
	stage := pipeline.NewSummaryStage(gen, nil, 10, pipeline.StreamModeIncremental, nil)

	var buf bytes.Buffer
	out, err := stage.Generate(context.Background(), "w", "e", streaming.NewWriterEmitter(&buf))
	require.NoError(t, err)
	assert.Equal(t, gen.responses["summary"], out.Text)
	assert.Equal(t, gen.responses["summary"], buf.String())
}

func TestSummaryStage_IncrementalFallsBackWhenStreamUnavailable(t *testing.T) {
	gen := newStubGenerator()
	gen.streamErr = fmt.Errorf("streaming not supported")
	stage := pipeline.NewSummaryStage(gen, nil, 10, pipeline.StreamModeIncremental, nil)

	var buf bytes.Buffer
	out, err := stage.Generate(context.Background(), "w", "e", streaming.NewWriterEmitter(&buf))
	require.NoError(t, err)
	assert.Equal(t, gen.responses["summary"], out.Text)
	assert.Equal(t, gen.responses["summary"], buf.String())
}

// 洞察与问题阶段的提示词里分别出现"summary"和"insights"字样，
// 必须各自路由到自己的响应，不能串到上游阶段
func TestStubGenerator_RoutesEachStagePrompt(t *testing.T) {
	gen := newStubGenerator()
	ctx := context.Background()

	insightOut := pipeline.NewInsightStage(gen, nil).Extract(ctx, "summary text")
	assert.Equal(t, []string{
		"Hands-on engineering experience at Acme",
		"Solid CS fundamentals from State U",
	}, insightOut.Items)
	assert.Equal(t, 1, gen.callCount("insights"))
	assert.Zero(t, gen.callCount("summary"))

	questionOut := pipeline.NewQuestionStage(gen, nil).Generate(ctx, insightOut.Items)
	assert.Equal(t, []string{"What did you build at Acme?", "Why did you choose State U?"}, questionOut.Items)
	assert.Equal(t, 1, gen.callCount("questions"))
	assert.Equal(t, 1, gen.callCount("insights"))
}

func TestInsightStage_LineFallbackOnMalformedJSON(t *testing.T) {
	gen := newStubGenerator()
	gen.responses["insights"] = "- strong engineering background\n- good communicator\n"

	stage := pipeline.NewInsightStage(gen, nil)
	out := stage.Extract(context.Background(), "summary text")

	assert.Equal(t, []string{"strong engineering background", "good communicator"}, out.Items)
}

func TestInsightStage_FailureFallsBackToPlaceholder(t *testing.T) {
	gen := newStubGenerator()
	gen.failures["insights"] = errors.New("model unavailable")

	stage := pipeline.NewInsightStage(gen, nil)
	out := stage.Extract(context.Background(), "summary text")

	assert.Equal(t, []string{constants.NoInsightsExtracted}, out.Items)
}

func TestQuestionStage_BareArray(t *testing.T) {
	gen := newStubGenerator()
	gen.responses["questions"] = `["Q one?", "Q two?"]`

	stage := pipeline.NewQuestionStage(gen, nil)
	out := stage.Generate(context.Background(), []string{"insight"})

	assert.Equal(t, []string{"Q one?", "Q two?"}, out.Items)
}

func TestQuestionStage_RawTextBecomesSingleQuestion(t *testing.T) {
	gen := newStubGenerator()
	gen.responses["questions"] = "Tell me about the hardest bug you fixed."

	stage := pipeline.NewQuestionStage(gen, nil)
	out := stage.Generate(context.Background(), []string{"insight"})

	assert.Equal(t, []string{"Tell me about the hardest bug you fixed."}, out.Items)
}

func TestQuestionStage_FailureYieldsEmptyList(t *testing.T) {
	gen := newStubGenerator()
	gen.failures["questions"] = errors.New("model unavailable")

	stage := pipeline.NewQuestionStage(gen, nil)
	out := stage.Generate(context.Background(), []string{"insight"})

	assert.Empty(t, out.Items)
}
