package roster

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

// PGRepository persists students in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// InsertStudent writes a new student.
func (r *PGRepository) InsertStudent(ctx context.Context, s model.Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, teacher_id, name, roll_number, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.TeacherID, s.Name, s.RollNumber, s.CreatedAt)
	if store.IsUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

// ListStudents returns a teacher's students in creation order.
func (r *PGRepository) ListStudents(ctx context.Context, teacherID uuid.UUID) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, teacher_id, name, roll_number, created_at
		FROM students
		WHERE teacher_id = $1
		ORDER BY created_at, roll_number
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.Name, &s.RollNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// RenameStudent updates a student's name.
func (r *PGRepository) RenameStudent(ctx context.Context, teacherID uuid.UUID, rollNumber, name string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET name = $3
		WHERE teacher_id = $1 AND roll_number = $2
	`, teacherID, rollNumber, name)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteStudent removes a student; attendance rows go with it via ON DELETE CASCADE.
func (r *PGRepository) DeleteStudent(ctx context.Context, teacherID uuid.UUID, rollNumber string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM students WHERE teacher_id = $1 AND roll_number = $2
	`, teacherID, rollNumber)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Student")
	}
	return nil
}
