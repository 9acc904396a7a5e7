package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainauth "stayhub/internal/domain/auth"
	domainuser "stayhub/internal/domain/user"
)

// SessionStore keeps sessions as JSON values expiring together with the session.
type SessionStore struct {
	client goredis.Cmdable
	prefix string
}

func NewSessionStore(client goredis.Cmdable) *SessionStore {
	return &SessionStore{client: client, prefix: "stayhub:session:"}
}

type sessionValue struct {
	UserID    string    `json:"user_id"`
	IsHost    bool      `json:"is_host"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.Token), data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(token, data)
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *SessionStore) key(token domainauth.Token) string {
	return s.prefix + string(token)
}

func encodeSession(session *domainauth.Session) ([]byte, error) {
	return json.Marshal(sessionValue{
		UserID:    string(session.UserID),
		IsHost:    session.IsHost,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

func decodeSession(token domainauth.Token, data []byte) (*domainauth.Session, error) {
	var v sessionValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &domainauth.Session{
		Token:     token,
		UserID:    domainuser.ID(v.UserID),
		IsHost:    v.IsHost,
		CreatedAt: v.CreatedAt,
		ExpiresAt: v.ExpiresAt,
	}, nil
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
