package session_test

import (
	"context"
	"testing"

	"resume-agent-go/internal/session"
	"resume-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*session.MemoryStore, string) {
	t.Helper()
	store := session.NewMemoryStore()
	sessionID, err := store.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	return store, sessionID
}

func appendQuestions(t *testing.T, store session.Store, sessionID string, questions ...string) {
	t.Helper()
	err := store.AppendStageOutput(context.Background(), sessionID, types.StageOutput{
		Stage:     "questions",
		Questions: &types.QuestionsOutput{Items: questions},
	})
	require.NoError(t, err)
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store, sessionID := newTestStore(t)

	sess, err := store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, sess.SessionID)
	assert.False(t, sess.CreatedAt.IsZero())
	assert.Zero(t, sess.Cursor)
}

func TestMemoryStore_GetUnknownSession(t *testing.T) {
	store := session.NewMemoryStore()
	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_AppendStageOutputs(t *testing.T) {
	store, sessionID := newTestStore(t)
	ctx := context.Background()

	err := store.AppendStageOutput(ctx, sessionID, types.StageOutput{
		Stage: "work_exp",
		Work:  &types.WorkOutput{Text: "Engineer at Acme (2020 - 2023): Built things."},
	})
	require.NoError(t, err)

	err = store.AppendStageOutput(ctx, sessionID, types.StageOutput{
		Stage:   "summary",
		Summary: &types.SummaryOutput{Text: "A capable engineer."},
	})
	require.NoError(t, err)

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Engineer at Acme (2020 - 2023): Built things.", sess.LatestWorkText())
	assert.Equal(t, "A capable engineer.", sess.LatestSummary())
}

func TestMemoryStore_AppendToUnknownSession(t *testing.T) {
	store := session.NewMemoryStore()
	err := store.AppendStageOutput(context.Background(), "no-such-session", types.StageOutput{
		Stage:   "summary",
		Summary: &types.SummaryOutput{Text: "s"},
	})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

// 游标单调前移：每个问题恰好返回一次，取尽后永久没有更多
func TestMemoryStore_NextQuestionPagination(t *testing.T) {
	store, sessionID := newTestStore(t)
	ctx := context.Background()
	appendQuestions(t, store, sessionID, "q0", "q1", "q2")

	var got []string
	for {
		q, ok, err := store.NextQuestion(ctx, sessionID)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, q)
	}
	assert.Equal(t, []string{"q0", "q1", "q2"}, got)

	// 取尽后的"没有更多"是永久状态
	for i := 0; i < 3; i++ {
		_, ok, err := store.NextQuestion(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestMemoryStore_NextQuestionNoQuestions(t *testing.T) {
	store, sessionID := newTestStore(t)
	_, ok, err := store.NextQuestion(context.Background(), sessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// 追加新问题列表后游标归零，旧列表保留在历史中
func TestMemoryStore_NewQuestionSetResetsCursor(t *testing.T) {
	store, sessionID := newTestStore(t)
	ctx := context.Background()
	appendQuestions(t, store, sessionID, "old-0", "old-1")

	q, ok, err := store.NextQuestion(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "old-0", q)

	appendQuestions(t, store, sessionID, "new-0", "new-1")

	q, ok, err = store.NextQuestion(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new-0", q)

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, sess.QuestionSets, 2)
	assert.Equal(t, []string{"new-0", "new-1"}, sess.ActiveQuestions())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store, sessionID := newTestStore(t)
	ctx := context.Background()
	appendQuestions(t, store, sessionID, "q0")

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	sess.Cursor = 99

	q, ok, err := store.NextQuestion(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "q0", q)
}

func TestMemoryStore_StageOutputValidation(t *testing.T) {
	store, sessionID := newTestStore(t)

	// 空的阶段产出不允许写入
	err := store.AppendStageOutput(context.Background(), sessionID, types.StageOutput{Stage: "summary"})
	assert.Error(t, err)
}
