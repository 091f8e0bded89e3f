package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
	"rollcall/internal/store"
)

// PGRepository persists attendance data in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// StudentByRoll resolves a roll number within a teacher's roster.
func (r *PGRepository) StudentByRoll(ctx context.Context, teacherID uuid.UUID, rollNumber string) (model.Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, name, roll_number, created_at
		FROM students WHERE teacher_id = $1 AND roll_number = $2
	`, teacherID, rollNumber)
	var s model.Student
	if err := row.Scan(&s.ID, &s.TeacherID, &s.Name, &s.RollNumber, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Student{}, apperr.NotFound("Student")
		}
		return model.Student{}, err
	}
	return s, nil
}

// InsertRecord writes a new record; the (student_id, date) constraint rejects
// duplicates and the student foreign key rejects deleted students.
func (r *PGRepository) InsertRecord(ctx context.Context, rec model.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_id, date, status)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.StudentID, rec.Date, rec.Status)
	switch {
	case store.IsUniqueViolation(err):
		return apperr.ErrConflict
	case store.IsForeignKeyViolation(err):
		// The student was deleted after it was resolved.
		return apperr.NotFound("Student")
	}
	return err
}

// UpdateStatus overwrites the status of the record for a teacher's student on date.
func (r *PGRepository) UpdateStatus(ctx context.Context, teacherID uuid.UUID, rollNumber string, date model.Date, status bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records a
		SET status = $4
		FROM students s
		WHERE a.student_id = s.id
			AND s.teacher_id = $1
			AND s.roll_number = $2
			AND a.date = $3
	`, teacherID, rollNumber, date, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Attendance")
	}
	return nil
}

// RollCall lists records on date for all of a teacher's students.
func (r *PGRepository) RollCall(ctx context.Context, teacherID uuid.UUID, date model.Date) ([]model.RollCallEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.name, s.roll_number, a.status
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE s.teacher_id = $1 AND a.date = $2
		ORDER BY s.roll_number
	`, teacherID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.RollCallEntry
	for rows.Next() {
		var e model.RollCallEntry
		if err := rows.Scan(&e.StudentName, &e.RollNumber, &e.Status); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// RecordsByStudent lists a student's records by date.
func (r *PGRepository) RecordsByStudent(ctx context.Context, studentID uuid.UUID) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, date, status
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY date
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Status); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// CountByRoll counts all and present records of a teacher's student.
func (r *PGRepository) CountByRoll(ctx context.Context, teacherID uuid.UUID, rollNumber string) (int, int, error) {
	var total, present int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE a.status)
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE s.teacher_id = $1 AND s.roll_number = $2
	`, teacherID, rollNumber).Scan(&total, &present)
	return total, present, err
}
