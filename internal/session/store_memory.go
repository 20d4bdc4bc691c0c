package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resume-agent-go/internal/types"

	"github.com/google/uuid"
)

// MemoryStore 是 Store 接口的进程内实现。
// 注意：此实现不是持久化的，进程退出后全部会话状态丢失；
// 也没有淘汰策略，会话随进程生命周期常驻。
type MemoryStore struct {
	// 使用读写锁以支持并发访问
	mu sync.RWMutex
	// sessions map 的键是 sessionID
	sessions map[string]*Session
}

// NewMemoryStore 创建一个新的 MemoryStore 实例。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Create 实现 Store 接口
func (m *MemoryStore) Create(ctx context.Context) (string, error) {
	sessionID := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = &Session{
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	return sessionID, nil
}

// Get 实现 Store 接口。
// 返回会话的副本，防止调用方绕过存储直接修改内部状态。
func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("会话 %s: %w", sessionID, ErrSessionNotFound)
	}
	cpy := *sess
	return &cpy, nil
}

// AppendStageOutput 实现 Store 接口
func (m *MemoryStore) AppendStageOutput(ctx context.Context, sessionID string, output types.StageOutput) error {
	if err := output.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("会话 %s: %w", sessionID, ErrSessionNotFound)
	}
	sess.applyStageOutput(output)
	return nil
}

// NextQuestion 实现 Store 接口
func (m *MemoryStore) NextQuestion(ctx context.Context, sessionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return "", false, fmt.Errorf("会话 %s: %w", sessionID, ErrSessionNotFound)
	}
	q, ok := sess.nextQuestion()
	return q, ok, nil
}

var _ Store = (*MemoryStore)(nil)
