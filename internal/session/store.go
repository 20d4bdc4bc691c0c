package session

import (
	"context"
	"errors"
	"time"

	"resume-agent-go/internal/types"
)

// ErrSessionNotFound 未知的会话ID。调用方应视为客户端错误（HTTP 404）。
var ErrSessionNotFound = errors.New("session not found")

// Session 一次简历分析运行的累积状态（检查点）。
// 每个阶段的产出只追加不修改：重新运行某阶段会追加一个新条目，
// 问题列表以最后一个条目为活动列表，游标只对活动列表生效。
type Session struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`

	// 各阶段产出，按阶段命名寻址，禁止位置偏移
	Work         []types.WorkOutput      `json:"work,omitempty"`
	Education    []types.EducationOutput `json:"education,omitempty"`
	Summaries    []types.SummaryOutput   `json:"summaries,omitempty"`
	InsightSets  []types.InsightsOutput  `json:"insight_sets,omitempty"`
	QuestionSets []types.QuestionsOutput `json:"question_sets,omitempty"`

	// Cursor 指向活动问题列表中下一个待返回的问题下标。
	// 始终落在 [0, len(questions)] 区间内。
	Cursor int `json:"cursor"`
}

// ActiveQuestions 返回当前活动（最新）的问题列表。
func (s *Session) ActiveQuestions() []string {
	if len(s.QuestionSets) == 0 {
		return nil
	}
	return s.QuestionSets[len(s.QuestionSets)-1].Items
}

// LatestSummary 返回最新一次生成的摘要文本，没有则返回空串。
func (s *Session) LatestSummary() string {
	if len(s.Summaries) == 0 {
		return ""
	}
	return s.Summaries[len(s.Summaries)-1].Text
}

// LatestInsights 返回最新一组洞察。
func (s *Session) LatestInsights() []string {
	if len(s.InsightSets) == 0 {
		return nil
	}
	return s.InsightSets[len(s.InsightSets)-1].Items
}

// LatestWorkText 返回工作经历阶段最新的渲染文本。
func (s *Session) LatestWorkText() string {
	if len(s.Work) == 0 {
		return ""
	}
	return s.Work[len(s.Work)-1].Text
}

// LatestEducationText 返回教育经历阶段最新的渲染文本。
func (s *Session) LatestEducationText() string {
	if len(s.Education) == 0 {
		return ""
	}
	return s.Education[len(s.Education)-1].Text
}

// applyStageOutput 把一条阶段产出追加进会话。
// 追加新的问题列表时游标归零，新列表从头消费。
func (s *Session) applyStageOutput(output types.StageOutput) {
	switch {
	case output.Work != nil:
		s.Work = append(s.Work, *output.Work)
	case output.Education != nil:
		s.Education = append(s.Education, *output.Education)
	case output.Summary != nil:
		s.Summaries = append(s.Summaries, *output.Summary)
	case output.Insights != nil:
		s.InsightSets = append(s.InsightSets, *output.Insights)
	case output.Questions != nil:
		s.QuestionSets = append(s.QuestionSets, *output.Questions)
		s.Cursor = 0
	}
}

// nextQuestion 返回游标处的问题并前移游标。
// 越过末尾后永久返回 ok=false，不回绕也不越界。
func (s *Session) nextQuestion() (string, bool) {
	questions := s.ActiveQuestions()
	if s.Cursor >= len(questions) {
		return "", false
	}
	q := questions[s.Cursor]
	s.Cursor++
	return q, true
}

// Store 会话检查点存储。
// 会话状态只通过session_id可见，不支持枚举全部会话。
type Store interface {
	// Create 分配一个新的空会话，返回全局唯一的会话ID。
	Create(ctx context.Context) (string, error)

	// Get 获取指定会话。会话不存在时返回 ErrSessionNotFound。
	Get(ctx context.Context, sessionID string) (*Session, error)

	// AppendStageOutput 记录一个阶段的产出。
	// 会话不存在时返回 ErrSessionNotFound；产出校验失败时返回错误。
	AppendStageOutput(ctx context.Context, sessionID string, output types.StageOutput) error

	// NextQuestion 返回游标处的问题并前移游标。
	// ok=false 表示问题已取尽（此后永久如此）；
	// 会话不存在时返回 ErrSessionNotFound。
	NextQuestion(ctx context.Context, sessionID string) (question string, ok bool, err error)
}
