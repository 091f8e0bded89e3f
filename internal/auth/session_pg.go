package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// A concurrent login may commit its row after this statement's snapshot was
// taken; the insert then does nothing and the select sees nothing. Retrying
// the statement picks the committed row up.
const getOrCreateAttempts = 3

// PGSessionStore keeps opaque tokens in the auth_tokens table.
type PGSessionStore struct {
	db *sql.DB
}

// NewPGSessionStore creates a Postgres-backed session store.
func NewPGSessionStore(db *sql.DB) *PGSessionStore {
	return &PGSessionStore{db: db}
}

// GetOrCreate inserts candidate unless the teacher already has a token.
func (s *PGSessionStore) GetOrCreate(ctx context.Context, p model.Principal, candidate string) (string, error) {
	var token string
	var err error
	for i := 0; i < getOrCreateAttempts; i++ {
		err = s.db.QueryRowContext(ctx, `
			WITH ins AS (
				INSERT INTO auth_tokens (token, teacher_id)
				VALUES ($1, $2)
				ON CONFLICT (teacher_id) DO NOTHING
				RETURNING token
			)
			SELECT token FROM ins
			UNION ALL
			SELECT token FROM auth_tokens WHERE teacher_id = $2
			LIMIT 1
		`, candidate, p.ID).Scan(&token)
		if !errors.Is(err, sql.ErrNoRows) {
			break
		}
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token to its teacher.
func (s *PGSessionStore) Lookup(ctx context.Context, token string) (model.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.username
		FROM auth_tokens a
		JOIN teachers t ON t.id = a.teacher_id
		WHERE a.token = $1
	`, token)
	var p model.Principal
	if err := row.Scan(&p.ID, &p.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Principal{}, apperr.NotFound("Session")
		}
		return model.Principal{}, err
	}
	return p, nil
}

// DeleteByTeacher removes the teacher's token.
func (s *PGSessionStore) DeleteByTeacher(ctx context.Context, teacherID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE teacher_id = $1`, teacherID)
	return err
}
