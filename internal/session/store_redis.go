package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-agent-go/internal/constants"
	"resume-agent-go/internal/types"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore 实现了 Store 接口，使用 Redis 保存会话状态。
// 会话本体以JSON字符串存储，问题游标单独存为整数键，
// 用 INCR 保证游标前移的原子性。
//
// 会话正文的读改写不加锁：按设计同一会话同一时刻只被持有它的
// 请求推进（single-writer-per-session），存储层只需保证自身结构安全。
type RedisStore struct {
	redisClient *redis.Client
	ttl         time.Duration // 可选：会话状态的过期时间，0表示不过期
}

// NewRedisStore 创建一个新的 RedisStore 实例。
// redisClient: 一个已连接和配置好的 go-redis 客户端实例。
// ttl: 会话状态在 Redis 中的可选过期时间。如果为0，则不过期。
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	// Ping Redis to ensure connectivity
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{
		redisClient: redisClient,
		ttl:         ttl,
	}, nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyInterviewSession, sessionID)
}

func cursorKey(sessionID string) string {
	return fmt.Sprintf(constants.KeyInterviewCursor, sessionID)
}

// Create 实现 Store 接口
func (rs *RedisStore) Create(ctx context.Context) (string, error) {
	sessionID := uuid.NewString()
	sess := &Session{
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	if err := rs.save(ctx, sess); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Get 实现 Store 接口
func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := rs.redisClient.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("会话 %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s from redis: %w", sessionID, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}

	// 游标单独存储，读取时合并进会话视图
	cursor, err := rs.redisClient.Get(ctx, cursorKey(sessionID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get cursor for session %s: %w", sessionID, err)
	}
	sess.Cursor = cursor
	return &sess, nil
}

// AppendStageOutput 实现 Store 接口
func (rs *RedisStore) AppendStageOutput(ctx context.Context, sessionID string, output types.StageOutput) error {
	if err := output.Validate(); err != nil {
		return err
	}

	sess, err := rs.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.applyStageOutput(output)

	if err := rs.save(ctx, sess); err != nil {
		return err
	}

	// 追加新问题列表时重置游标
	if output.Questions != nil {
		if err := rs.redisClient.Del(ctx, cursorKey(sessionID)).Err(); err != nil {
			return fmt.Errorf("failed to reset cursor for session %s: %w", sessionID, err)
		}
	}
	return nil
}

// NextQuestion 实现 Store 接口。
// INCR 返回前移后的游标值，待返回的问题下标是该值减一。
func (rs *RedisStore) NextQuestion(ctx context.Context, sessionID string) (string, bool, error) {
	raw, err := rs.redisClient.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, fmt.Errorf("会话 %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get session %s from redis: %w", sessionID, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	questions := sess.ActiveQuestions()

	next, err := rs.redisClient.Incr(ctx, cursorKey(sessionID)).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to advance cursor for session %s: %w", sessionID, err)
	}
	index := int(next) - 1
	if index >= len(questions) {
		// 取尽后游标不再回退，保持"没有更多"的永久性
		return "", false, nil
	}
	return questions[index], true, nil
}

// save 序列化并写入会话本体，带可选TTL。
func (rs *RedisStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.SessionID, err)
	}

	// 使用 Pipeline 保证写入和过期设置一并提交
	pipe := rs.redisClient.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.SessionID), data, rs.ttl)
	if rs.ttl > 0 {
		pipe.Expire(ctx, cursorKey(sess.SessionID), rs.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session %s to redis: %w", sess.SessionID, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
