package model

import (
	"time"

	"github.com/google/uuid"
)

// Teacher is a registered user and the owner of a roster.
type Teacher struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Student belongs to exactly one teacher. RollNumber is unique per teacher.
type Student struct {
	ID         uuid.UUID
	TeacherID  uuid.UUID
	Name       string
	RollNumber string
	CreatedAt  time.Time
}

// AttendanceRecord is the status of one student on one date.
type AttendanceRecord struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	Date      Date
	Status    bool
}

// RollCallEntry is one record of a roll call joined with its student.
type RollCallEntry struct {
	StudentName string
	RollNumber  string
	Status      bool
}

// StatusLabel renders an attendance status for display.
func StatusLabel(present bool) string {
	if present {
		return "Present"
	}
	return "Absent"
}

// Principal is the authenticated teacher behind a validated token.
type Principal struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}
