// Package memstore is an in-process backend for teachers, sessions, students
// and attendance. It enforces the same uniqueness and ownership rules as the
// Postgres schema and is used for local runs and tests.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

type rosterKey struct {
	teacherID  uuid.UUID
	rollNumber string
}

type recordKey struct {
	studentID uuid.UUID
	date      model.Date
}

// Store holds all state behind a single mutex.
type Store struct {
	mu sync.RWMutex

	teachers map[string]model.Teacher // by username

	tokens         map[string]model.Principal
	tokenByTeacher map[uuid.UUID]string

	students  map[uuid.UUID]model.Student
	studentBy map[rosterKey]uuid.UUID

	records  map[uuid.UUID]model.AttendanceRecord
	recordBy map[recordKey]uuid.UUID
}

// New returns an empty store.
func New() *Store {
	return &Store{
		teachers:       make(map[string]model.Teacher),
		tokens:         make(map[string]model.Principal),
		tokenByTeacher: make(map[uuid.UUID]string),
		students:       make(map[uuid.UUID]model.Student),
		studentBy:      make(map[rosterKey]uuid.UUID),
		records:        make(map[uuid.UUID]model.AttendanceRecord),
		recordBy:       make(map[recordKey]uuid.UUID),
	}
}

// InsertTeacher implements identity.Repository.
func (s *Store) InsertTeacher(_ context.Context, t model.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teachers[t.Username]; ok {
		return apperr.ErrConflict
	}
	s.teachers[t.Username] = t
	return nil
}

// TeacherByUsername implements identity.Repository.
func (s *Store) TeacherByUsername(_ context.Context, username string) (model.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teachers[username]
	if !ok {
		return model.Teacher{}, apperr.NotFound("Teacher")
	}
	return t, nil
}

// GetOrCreate implements auth.SessionStore.
func (s *Store) GetOrCreate(_ context.Context, p model.Principal, candidate string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokenByTeacher[p.ID]; ok {
		return tok, nil
	}
	s.tokenByTeacher[p.ID] = candidate
	s.tokens[candidate] = p
	return candidate, nil
}

// Lookup implements auth.SessionStore.
func (s *Store) Lookup(_ context.Context, token string) (model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tokens[token]
	if !ok {
		return model.Principal{}, apperr.NotFound("Session")
	}
	return p, nil
}

// DeleteByTeacher implements auth.SessionStore.
func (s *Store) DeleteByTeacher(_ context.Context, teacherID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokenByTeacher[teacherID]; ok {
		delete(s.tokens, tok)
		delete(s.tokenByTeacher, teacherID)
	}
	return nil
}

// InsertStudent implements roster.Repository.
func (s *Store) InsertStudent(_ context.Context, st model.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rosterKey{st.TeacherID, st.RollNumber}
	if _, ok := s.studentBy[key]; ok {
		return apperr.ErrConflict
	}
	s.students[st.ID] = st
	s.studentBy[key] = st.ID
	return nil
}

// ListStudents implements roster.Repository.
func (s *Store) ListStudents(_ context.Context, teacherID uuid.UUID) ([]model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Student
	for _, st := range s.students {
		if st.TeacherID == teacherID {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b model.Student) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.RollNumber, b.RollNumber))
	})
	return out, nil
}

// RenameStudent implements roster.Repository.
func (s *Store) RenameStudent(_ context.Context, teacherID uuid.UUID, rollNumber, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.studentBy[rosterKey{teacherID, rollNumber}]
	if !ok {
		return apperr.NotFound("Student")
	}
	st := s.students[id]
	st.Name = name
	s.students[id] = st
	return nil
}

// DeleteStudent implements roster.Repository. Records of the student are removed too.
func (s *Store) DeleteStudent(_ context.Context, teacherID uuid.UUID, rollNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rosterKey{teacherID, rollNumber}
	id, ok := s.studentBy[key]
	if !ok {
		return apperr.NotFound("Student")
	}
	for rid, rec := range s.records {
		if rec.StudentID == id {
			delete(s.records, rid)
			delete(s.recordBy, recordKey{id, rec.Date})
		}
	}
	delete(s.students, id)
	delete(s.studentBy, key)
	return nil
}

// StudentByRoll implements attendance.Repository.
func (s *Store) StudentByRoll(_ context.Context, teacherID uuid.UUID, rollNumber string) (model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.studentBy[rosterKey{teacherID, rollNumber}]
	if !ok {
		return model.Student{}, apperr.NotFound("Student")
	}
	return s.students[id], nil
}

// InsertRecord implements attendance.Repository.
func (s *Store) InsertRecord(_ context.Context, rec model.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[rec.StudentID]; !ok {
		return apperr.NotFound("Student")
	}
	key := recordKey{rec.StudentID, rec.Date}
	if _, ok := s.recordBy[key]; ok {
		return apperr.ErrConflict
	}
	s.records[rec.ID] = rec
	s.recordBy[key] = rec.ID
	return nil
}

// UpdateStatus implements attendance.Repository.
func (s *Store) UpdateStatus(_ context.Context, teacherID uuid.UUID, rollNumber string, date model.Date, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sid, ok := s.studentBy[rosterKey{teacherID, rollNumber}]
	if !ok {
		return apperr.NotFound("Attendance")
	}
	rid, ok := s.recordBy[recordKey{sid, date}]
	if !ok {
		return apperr.NotFound("Attendance")
	}
	rec := s.records[rid]
	rec.Status = status
	s.records[rid] = rec
	return nil
}

// RollCall implements attendance.Repository.
func (s *Store) RollCall(_ context.Context, teacherID uuid.UUID, date model.Date) ([]model.RollCallEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RollCallEntry
	for _, rec := range s.records {
		if rec.Date != date {
			continue
		}
		st := s.students[rec.StudentID]
		if st.TeacherID != teacherID {
			continue
		}
		out = append(out, model.RollCallEntry{StudentName: st.Name, RollNumber: st.RollNumber, Status: rec.Status})
	}
	slices.SortFunc(out, func(a, b model.RollCallEntry) int { return cmp.Compare(a.RollNumber, b.RollNumber) })
	return out, nil
}

// RecordsByStudent implements attendance.Repository.
func (s *Store) RecordsByStudent(_ context.Context, studentID uuid.UUID) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AttendanceRecord
	for _, rec := range s.records {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b model.AttendanceRecord) int { return a.Date.Compare(b.Date.Time) })
	return out, nil
}

// CountByRoll implements attendance.Repository.
func (s *Store) CountByRoll(_ context.Context, teacherID uuid.UUID, rollNumber string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sid, ok := s.studentBy[rosterKey{teacherID, rollNumber}]
	if !ok {
		return 0, 0, nil
	}
	var total, present int
	for _, rec := range s.records {
		if rec.StudentID != sid {
			continue
		}
		total++
		if rec.Status {
			present++
		}
	}
	return total, present, nil
}
