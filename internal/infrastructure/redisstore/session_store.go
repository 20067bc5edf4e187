// Package redisstore keeps login sessions in Redis with a TTL matching the
// session expiry.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
)

type sessionRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb, now: time.Now}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *SessionStore) Create(ctx context.Context, sess *entity.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	rec := sessionRecord{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt.UTC(), CreatedAt: s.now().UTC()}
	return helpers.RedisSetJSON(ctx, s.rdb, sessionKey(sess.ID), rec, ttl)
}

func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	var rec sessionRecord
	found, err := helpers.RedisGetJSON(ctx, s.rdb, sessionKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	sess := &entity.Session{ID: id, UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}
	if sess.Expired(s.now()) {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return helpers.RedisDel(ctx, s.rdb, sessionKey(id))
}

var _ repository.SessionStore = (*SessionStore)(nil)
