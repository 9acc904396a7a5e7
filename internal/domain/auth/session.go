package auth

import (
	"context"
	"strings"
	"time"

	"stayhub/internal/domain/shared/failure"
	"stayhub/internal/domain/user"
)

var ErrSessionNotFound = failure.New(failure.KindUnauthenticated, "session expired or invalid")

type Token string

type Session struct {
	Token     Token
	UserID    user.ID
	IsHost    bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token Token
	User  *user.User
	TTL   time.Duration
	Now   time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	token := strings.TrimSpace(string(params.Token))
	if token == "" {
		return nil, failure.Validation("session token is required")
	}
	if params.User == nil {
		return nil, failure.Validation("session user is required")
	}
	if params.TTL <= 0 {
		return nil, failure.Validation("session ttl must be positive")
	}
	now := params.Now.UTC()
	return &Session{
		Token:     Token(token),
		UserID:    params.User.ID,
		IsHost:    params.User.HasRole(user.RoleHost),
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at.UTC())
}

func (s *Session) Principal() user.Principal {
	return user.Principal{ID: string(s.UserID), IsHost: s.IsHost}
}

// SessionStore keeps bearer sessions. Get returns ErrSessionNotFound for unknown or expired tokens.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
}
