// Package identity is the credential store: teacher accounts and password checks.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/apperr"
	"rollcall/internal/logging"
	"rollcall/internal/model"
)

const (
	maxUsernameLen = 150
	// bcrypt ignores input past 72 bytes; longer passwords are rejected instead of truncated.
	maxPasswordLen = 72
)

// Repository persists teacher accounts.
type Repository interface {
	// InsertTeacher returns apperr.ErrConflict when the username is taken.
	InsertTeacher(ctx context.Context, t model.Teacher) error
	// TeacherByUsername returns apperr.ErrNotFound when no such user exists.
	TeacherByUsername(ctx context.Context, username string) (model.Teacher, error)
}

// Store registers and authenticates teachers.
type Store struct {
	repo Repository
	cost int
	log  *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewStore creates a credential store hashing with the given bcrypt cost.
func NewStore(repo Repository, cost int, log *zap.Logger) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{repo: repo, cost: cost, log: logging.OrNop(log)}
}

// CreateUser registers a new teacher.
func (s *Store) CreateUser(ctx context.Context, username, password string) (model.Teacher, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return model.Teacher{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.Teacher{}, fmt.Errorf("hash password: %w", err)
	}
	t := model.Teacher{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertTeacher(ctx, t); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return model.Teacher{}, apperr.Conflict("Username already taken")
		}
		return model.Teacher{}, fmt.Errorf("insert teacher: %w", err)
	}
	s.log.Info("teacher registered", zap.String("username", username), zap.Stringer("teacher_id", t.ID))
	return t, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords both yield apperr.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (model.Teacher, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return model.Teacher{}, apperr.Input("username is required")
	case password == "":
		return model.Teacher{}, apperr.Input("password is required")
	case len(username) > maxUsernameLen || len(password) > maxPasswordLen:
		// No stored account can match.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password[:min(len(password), maxPasswordLen)]))
		return model.Teacher{}, apperr.ErrInvalidCredentials
	}
	t, err := s.repo.TeacherByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		// Burn a comparison so unknown usernames take as long as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return model.Teacher{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return model.Teacher{}, fmt.Errorf("lookup teacher: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)); err != nil {
		return model.Teacher{}, apperr.ErrInvalidCredentials
	}
	return t, nil
}

func (s *Store) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return apperr.Input("username is required")
	case len(username) > maxUsernameLen:
		return apperr.Input("username must be at most %d characters", maxUsernameLen)
	case password == "":
		return apperr.Input("password is required")
	case len(password) > maxPasswordLen:
		return apperr.Input("password must be at most %d bytes", maxPasswordLen)
	}
	return nil
}
