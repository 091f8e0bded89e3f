// Package roster manages each teacher's students.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

const (
	maxNameLen       = 100
	maxRollNumberLen = 20
)

// Repository persists students. Every method is scoped by the owning teacher.
type Repository interface {
	// InsertStudent returns apperr.ErrConflict when the roll number is taken for the teacher.
	InsertStudent(ctx context.Context, s model.Student) error
	ListStudents(ctx context.Context, teacherID uuid.UUID) ([]model.Student, error)
	// RenameStudent and DeleteStudent return apperr.ErrNotFound when the teacher has no such student.
	RenameStudent(ctx context.Context, teacherID uuid.UUID, rollNumber, name string) error
	DeleteStudent(ctx context.Context, teacherID uuid.UUID, rollNumber string) error
}

// Service coordinates roster changes for a teacher.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Add creates a student in the owner's roster.
func (s *Service) Add(ctx context.Context, owner uuid.UUID, name, rollNumber string) (model.Student, error) {
	name, rollNumber = strings.TrimSpace(name), strings.TrimSpace(rollNumber)
	if err := validateName(name); err != nil {
		return model.Student{}, err
	}
	if err := ValidateRollNumber(rollNumber); err != nil {
		return model.Student{}, err
	}
	st := model.Student{
		ID:         uuid.New(),
		TeacherID:  owner,
		Name:       name,
		RollNumber: rollNumber,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.InsertStudent(ctx, st); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return model.Student{}, apperr.Conflict("Student with this roll number already exists")
		}
		return model.Student{}, fmt.Errorf("insert student: %w", err)
	}
	return st, nil
}

// List returns the owner's students.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]model.Student, error) {
	students, err := s.repo.ListStudents(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Rename changes a student's name.
func (s *Service) Rename(ctx context.Context, owner uuid.UUID, rollNumber, name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	return s.repo.RenameStudent(ctx, owner, strings.TrimSpace(rollNumber), name)
}

// Remove deletes a student together with its attendance records.
func (s *Service) Remove(ctx context.Context, owner uuid.UUID, rollNumber string) error {
	return s.repo.DeleteStudent(ctx, owner, strings.TrimSpace(rollNumber))
}

// ValidateRollNumber checks a roll number supplied by a caller.
func ValidateRollNumber(rollNumber string) error {
	switch {
	case rollNumber == "":
		return apperr.Input("roll_number is required")
	case len(rollNumber) > maxRollNumberLen:
		return apperr.Input("roll_number must be at most %d characters", maxRollNumberLen)
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return apperr.Input("name is required")
	case len([]rune(name)) > maxNameLen:
		return apperr.Input("name must be at most %d characters", maxNameLen)
	}
	return nil
}
