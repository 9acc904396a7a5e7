package user

import (
	"context"
	"strings"
	"time"

	"stayhub/internal/domain/shared/failure"
)

var (
	ErrNotFound   = failure.NotFound("user")
	ErrEmailTaken = failure.Validation("email is already registered")
)

type ID string

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)

type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated caller as seen by the booking core.
type Principal struct {
	ID     string
	IsHost bool
}

// Repository stores users. Save fails with ErrEmailTaken when another user owns the email.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Host         bool
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, failure.Validation("user id is required")
	}
	email := NormalizeEmail(params.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, failure.Validation("a valid email is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, failure.Validation("name is required")
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, failure.Validation("password hash is required")
	}
	roles := []Role{RoleGuest}
	if params.Host {
		roles = append(roles, RoleHost)
	}
	now := params.CreatedAt.UTC()
	return &User{
		ID:           params.ID,
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) Principal() Principal {
	return Principal{ID: string(u.ID), IsHost: u.HasRole(RoleHost)}
}

// ParseRoles drops unknown role names.
func ParseRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, r := range raw {
		switch role := Role(strings.ToLower(strings.TrimSpace(r))); role {
		case RoleGuest, RoleHost:
			out = append(out, role)
		}
	}
	return out
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
