package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

const (
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore issues and resolves opaque session tokens.
type SessionStore interface {
	Create(ctx context.Context, sess models.Session) (string, error)
	// Get returns nil without error when the token is unknown or expired.
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// RedisSessions keeps one live session per user in Redis.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

// Create stores a new session. Any existing session of the same user is
// invalidated so the expiry timer restarts from this sign-in.
func (s *RedisSessions) Create(ctx context.Context, sess models.Session) (string, error) {
	if err := s.invalidateUser(ctx, sess.UserID); err != nil {
		return "", err
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, data, s.ttl)
	pipe.Set(ctx, UserSessionKeyPrefix+sess.UserID.String(), token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisSessions) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	data, err := s.client.Get(ctx, SessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Delete removes a session and its user mapping.
func (s *RedisSessions) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	if sess != nil {
		s.client.Del(ctx, UserSessionKeyPrefix+sess.UserID.String())
	}
	return s.client.Del(ctx, SessionKeyPrefix+token).Err()
}

func (s *RedisSessions) invalidateUser(ctx context.Context, userID uuid.UUID) error {
	userKey := UserSessionKeyPrefix + userID.String()
	token, err := s.client.Get(ctx, userKey).Result()
	if err == nil && token != "" {
		s.client.Del(ctx, SessionKeyPrefix+token)
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load user session: %w", err)
	}
	return s.client.Del(ctx, userKey).Err()
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
