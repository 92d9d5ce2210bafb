// Package session maps opaque cookie tokens to account ids in Redis.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("no active session")

type Store struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewStore(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *Store {
	return &Store{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

func (s *Store) key(token string) string { return "session:" + token }

// Create opens a session for userID and returns the opaque token. Nothing but
// the account id is stored server-side; role claims are always re-read from
// the users table.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the account id for token and slides the TTL window.
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSession
		}
		return "", err
	}
	_ = s.client.Expire(ctx, s.key(token), s.ttl).Err()
	return userID, nil
}

func (s *Store) Destroy(ctx context.Context, token string) error {
	err := s.client.Del(ctx, s.key(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// CookieName exposes the configured cookie identifier.
func (s *Store) CookieName() string { return s.cookieName }

func (s *Store) SetCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(s.ttl),
	})
}

func (s *Store) ClearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
