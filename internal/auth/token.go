// Package auth issues and validates identity tokens and guards routes with them.
//
// Two strategies implement TokenService: OpaqueService keeps one random token
// per teacher in a SessionStore and is presented as "Token <value>";
// SignedService mints stateless HS256 access/refresh pairs presented as
// "Bearer <value>". A deployment runs exactly one of them.
package auth

import (
	"context"
	"time"

	"rollcall/internal/model"
)

// Header schemes.
const (
	SchemeToken  = "Token"
	SchemeBearer = "Bearer"
)

// Credentials is a login request.
type Credentials struct {
	Username string
	Password string
}

// TokenSet is the result of Issue or Refresh. OpaqueService fills Token;
// SignedService fills the access (and, on Issue, refresh) fields.
type TokenSet struct {
	Token        string
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// TokenService is the capability set shared by both strategies.
type TokenService interface {
	// Scheme is the Authorization header scheme the guard expects.
	Scheme() string
	// Issue authenticates credentials and returns tokens for the teacher.
	Issue(ctx context.Context, creds Credentials) (TokenSet, error)
	// Validate resolves a token string to its principal.
	Validate(ctx context.Context, token string) (model.Principal, error)
	// Revoke invalidates the principal's tokens where the strategy can.
	Revoke(ctx context.Context, p model.Principal) error
}

// Refresher is implemented by strategies that can trade a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}

// Authenticator checks credentials against the credential store.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (model.Teacher, error)
}

func principalOf(t model.Teacher) model.Principal {
	return model.Principal{ID: t.ID, Username: t.Username}
}
