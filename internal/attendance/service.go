// Package attendance is the ledger of per-date attendance records.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/apperr"
	"rollcall/internal/logging"
	"rollcall/internal/metrics"
	"rollcall/internal/model"
	"rollcall/internal/roster"
)

// Repository persists attendance records. Every read and write is scoped by
// the owning teacher, directly or through a student the teacher owns.
type Repository interface {
	// StudentByRoll returns apperr.ErrNotFound when the teacher has no such student.
	StudentByRoll(ctx context.Context, teacherID uuid.UUID, rollNumber string) (model.Student, error)
	// InsertRecord returns apperr.ErrConflict when the student already has a record for the date.
	InsertRecord(ctx context.Context, rec model.AttendanceRecord) error
	// UpdateStatus returns apperr.ErrNotFound when no record matches.
	UpdateStatus(ctx context.Context, teacherID uuid.UUID, rollNumber string, date model.Date, status bool) error
	RollCall(ctx context.Context, teacherID uuid.UUID, date model.Date) ([]model.RollCallEntry, error)
	RecordsByStudent(ctx context.Context, studentID uuid.UUID) ([]model.AttendanceRecord, error)
	CountByRoll(ctx context.Context, teacherID uuid.UUID, rollNumber string) (total, present int, err error)
}

// Summary is the attendance percentage of one roll number.
type Summary struct {
	RollNumber string
	Total      int
	Present    int
	Percentage float64
}

// Ledger records and aggregates attendance.
type Ledger struct {
	repo Repository
	log  *zap.Logger
}

// NewLedger creates a ledger backed by a repository.
func NewLedger(repo Repository, log *zap.Logger) *Ledger {
	return &Ledger{repo: repo, log: logging.OrNop(log)}
}

// Mark records a new status for a student on a date. A second mark for the
// same student and date is rejected with a conflict.
func (l *Ledger) Mark(ctx context.Context, owner uuid.UUID, rollNumber string, date model.Date, status bool) error {
	rollNumber = strings.TrimSpace(rollNumber)
	if err := validate(rollNumber, date); err != nil {
		return err
	}
	st, err := l.repo.StudentByRoll(ctx, owner, rollNumber)
	if err != nil {
		return err
	}
	rec := model.AttendanceRecord{
		ID:        uuid.New(),
		StudentID: st.ID,
		Date:      date,
		Status:    status,
	}
	if err := l.repo.InsertRecord(ctx, rec); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			metrics.AttendanceWrites.WithLabelValues("mark", "conflict").Inc()
			l.log.Info("duplicate attendance mark rejected",
				zap.Stringer("teacher_id", owner),
				zap.String("roll_number", rollNumber),
				zap.Stringer("date", date))
			return apperr.Conflict("Attendance already marked for this date")
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	metrics.AttendanceWrites.WithLabelValues("mark", "ok").Inc()
	return nil
}

// Update overwrites the status of an existing record.
func (l *Ledger) Update(ctx context.Context, owner uuid.UUID, rollNumber string, date model.Date, status bool) error {
	rollNumber = strings.TrimSpace(rollNumber)
	if err := validate(rollNumber, date); err != nil {
		return err
	}
	if err := l.repo.UpdateStatus(ctx, owner, rollNumber, date, status); err != nil {
		return err
	}
	metrics.AttendanceWrites.WithLabelValues("update", "ok").Inc()
	return nil
}

// RollCall returns every record on date across the owner's students, ordered
// by roll number. The sequence can be ranged over more than once.
func (l *Ledger) RollCall(ctx context.Context, owner uuid.UUID, date model.Date) (iter.Seq[model.RollCallEntry], error) {
	if date.IsZero() {
		return nil, apperr.Input("date is required")
	}
	entries, err := l.repo.RollCall(ctx, owner, date)
	if err != nil {
		return nil, fmt.Errorf("roll call: %w", err)
	}
	return slices.Values(entries), nil
}

// History returns every record of one student, ordered by date. It fails with
// a not-found error when the owner has no student with that roll number.
func (l *Ledger) History(ctx context.Context, owner uuid.UUID, rollNumber string) (iter.Seq[model.AttendanceRecord], error) {
	rollNumber = strings.TrimSpace(rollNumber)
	if err := roster.ValidateRollNumber(rollNumber); err != nil {
		return nil, err
	}
	st, err := l.repo.StudentByRoll(ctx, owner, rollNumber)
	if err != nil {
		return nil, err
	}
	records, err := l.repo.RecordsByStudent(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return slices.Values(records), nil
}

// Percentage is present/total*100 over the student's records, or 0 when there
// are none. Unknown and foreign roll numbers count as having no records.
func (l *Ledger) Percentage(ctx context.Context, owner uuid.UUID, rollNumber string) (Summary, error) {
	rollNumber = strings.TrimSpace(rollNumber)
	if rollNumber == "" {
		return Summary{}, apperr.Input("roll_number is required")
	}
	total, present, err := l.repo.CountByRoll(ctx, owner, rollNumber)
	if err != nil {
		return Summary{}, fmt.Errorf("count attendance: %w", err)
	}
	return Summary{
		RollNumber: rollNumber,
		Total:      total,
		Present:    present,
		Percentage: PercentOf(present, total),
	}, nil
}

// PercentOf returns present/total*100, and 0 for an empty total.
func PercentOf(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total) * 100
}

func validate(rollNumber string, date model.Date) error {
	if err := roster.ValidateRollNumber(rollNumber); err != nil {
		return err
	}
	if date.IsZero() {
		return apperr.Input("date is required")
	}
	return nil
}
