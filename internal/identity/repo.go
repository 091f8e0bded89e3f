package identity

import (
	"context"
	"database/sql"
	"errors"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

// PGRepository persists teachers in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// InsertTeacher writes a new teacher row.
func (r *PGRepository) InsertTeacher(ctx context.Context, t model.Teacher) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teachers (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, t.ID, t.Username, t.PasswordHash, t.CreatedAt)
	if store.IsUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

// TeacherByUsername loads a teacher by login name.
func (r *PGRepository) TeacherByUsername(ctx context.Context, username string) (model.Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM teachers WHERE username = $1
	`, username)
	var t model.Teacher
	if err := row.Scan(&t.ID, &t.Username, &t.PasswordHash, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Teacher{}, apperr.NotFound("Teacher")
		}
		return model.Teacher{}, err
	}
	return t, nil
}
