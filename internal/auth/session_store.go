package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
)

// SessionStore はトークンとユーザーIDの対応を保持するストア。
// 実装はmemory（既定）、postgres（repository.PostgresSessionRepo）、redis。
type SessionStore = repository.SessionRepository

// --- memory ---

// MemorySessionStore はミューテックスで保護されたマップによるセッションストア。
// 同時に複数リクエストから読み書きされる。
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewMemorySessionStore はMemorySessionStoreを生成する。
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

// Create はセッションを登録する。
func (s *MemorySessionStore) Create(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// FindByID はセッションを返す。存在しない・期限切れの場合はnilを返す。
func (s *MemorySessionStore) FindByID(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if session.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, nil
	}
	return &session, nil
}

// DeleteByID はセッションを削除する。存在しない場合もエラーにしない。
func (s *MemorySessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
func (s *MemorySessionStore) DeleteExpired(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len は保持中のセッション数を返す。
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// --- redis ---

const redisSessionPrefix = "session:"

// redisSession はRedisに保存するセッション値。
type redisSession struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisSessionStore はRedisによるセッションストア。
// 有効期限はキーのTTLで表現する。
type RedisSessionStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewRedisSessionStore はRedisSessionStoreを生成する。
func NewRedisSessionStore(rdb redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, now: time.Now}
}

// Create はセッションをTTL付きで保存する。
func (s *RedisSessionStore) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	val, err := json.Marshal(redisSession{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.rdb.Set(ctx, redisSessionKey(session.ID), val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindByID はセッションを返す。存在しない・期限切れの場合はnilを返す。
func (s *RedisSessionStore) FindByID(ctx context.Context, id string) (*model.Session, error) {
	val, err := s.rdb.Get(ctx, redisSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(val, &rs); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	session := &model.Session{
		ID:        id,
		UserID:    rs.UserID,
		CreatedAt: rs.CreatedAt,
		ExpiresAt: rs.ExpiresAt,
	}
	if session.Expired(s.now()) {
		return nil, nil
	}
	return session, nil
}

// DeleteByID はセッションを削除する。存在しない場合もエラーにしない。
func (s *RedisSessionStore) DeleteByID(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, redisSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func redisSessionKey(id string) string {
	return redisSessionPrefix + id
}

// compile-time interface checks
var (
	_ SessionStore = (*MemorySessionStore)(nil)
	_ SessionStore = (*RedisSessionStore)(nil)
	_ SessionStore = (*repository.PostgresSessionRepo)(nil)
)
