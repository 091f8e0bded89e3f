package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

const opaqueTokenBytes = 32

// SessionStore keeps at most one opaque token per teacher.
type SessionStore interface {
	// GetOrCreate returns the teacher's existing token, or stores candidate
	// and returns it. It must be atomic across concurrent callers.
	GetOrCreate(ctx context.Context, p model.Principal, candidate string) (string, error)
	// Lookup returns apperr.ErrNotFound for unknown tokens.
	Lookup(ctx context.Context, token string) (model.Principal, error)
	// DeleteByTeacher removes the teacher's token, if any.
	DeleteByTeacher(ctx context.Context, teacherID uuid.UUID) error
}

// OpaqueService issues server-side session tokens. Logging in twice returns
// the same token until it is revoked.
type OpaqueService struct {
	creds    Authenticator
	sessions SessionStore
}

// NewOpaqueService creates an opaque token service.
func NewOpaqueService(creds Authenticator, sessions SessionStore) *OpaqueService {
	return &OpaqueService{creds: creds, sessions: sessions}
}

func (s *OpaqueService) Scheme() string { return SchemeToken }

// Issue authenticates and fetches or creates the teacher's token.
func (s *OpaqueService) Issue(ctx context.Context, creds Credentials) (TokenSet, error) {
	t, err := s.creds.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return TokenSet{}, err
	}
	candidate, err := generateToken()
	if err != nil {
		return TokenSet{}, fmt.Errorf("generate token: %w", err)
	}
	token, err := s.sessions.GetOrCreate(ctx, principalOf(t), candidate)
	if err != nil {
		return TokenSet{}, fmt.Errorf("store token: %w", err)
	}
	return TokenSet{Token: token}, nil
}

// Validate looks the token up in the session store.
func (s *OpaqueService) Validate(ctx context.Context, token string) (model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Principal{}, apperr.ErrUnauthenticated
	}
	p, err := s.sessions.Lookup(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return model.Principal{}, apperr.ErrUnauthenticated
	}
	if err != nil {
		return model.Principal{}, fmt.Errorf("lookup token: %w", err)
	}
	return p, nil
}

// Revoke deletes the teacher's token so it stops validating immediately.
func (s *OpaqueService) Revoke(ctx context.Context, p model.Principal) error {
	if err := s.sessions.DeleteByTeacher(ctx, p.ID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
