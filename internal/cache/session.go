package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haircarepro/haircarepro/internal/model"
)

// sessionPrefix is the Redis key prefix for session payloads.
const sessionPrefix = "session:"

// ErrSessionNotFound is returned when a session is missing or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionKey returns the Redis key for a session token.
func SessionKey(token string) string {
	return sessionPrefix + token
}

// CreateSession stores a session for user under token. Redis expires it after ttl.
func (c *Cache) CreateSession(ctx context.Context, token string, user model.SessionUser, ttl time.Duration) (*model.Session, error) {
	now := time.Now().UTC()
	session := &model.Session{
		ID:        token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := c.client.Set(ctx, SessionKey(token), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return session, nil
}

// GetSession loads the session for token.
// Returns ErrSessionNotFound on a miss, an expired payload or a corrupted entry.
func (c *Cache) GetSession(ctx context.Context, token string) (*model.Session, error) {
	data, err := c.client.Get(ctx, SessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrSessionNotFound
	}
	session.ID = token

	if session.IsExpired(time.Now()) {
		return nil, ErrSessionNotFound
	}

	return &session, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, SessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
