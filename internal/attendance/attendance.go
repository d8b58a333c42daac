// Package attendance records daily check-in marks for students and coaches
// and resolves the live session board.
package attendance

import (
	"context"
	"time"
)

// Subject kinds.
const (
	KindStudent = "student"
	KindCoach   = "coach"
)

// DateLayout is the wire and storage format of a mark's day.
const DateLayout = "2006-01-02"

// Mark is one subject's attendance row for a day.
type Mark struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	SubjectKind string     `json:"subject_kind"`
	Name        string     `json:"name,omitempty"`
	Day         string     `json:"day"`
	CheckIn     time.Time  `json:"check_in"`
	CheckOut    *time.Time `json:"check_out,omitempty"`
}

// Open reports whether the subject has not checked out yet.
func (m Mark) Open() bool { return m.CheckOut == nil }

// Repository persists marks.
type Repository interface {
	// SubjectExists reports whether a student or coach with id exists.
	SubjectExists(ctx context.Context, kind, id string) (bool, error)
	// Open creates the day's mark or reopens a closed one. An already open
	// mark is returned unchanged.
	Open(ctx context.Context, m Mark) (Mark, error)
	// Close sets check-out on the day's open mark; nil when none is open.
	Close(ctx context.Context, subjectID, day string, at time.Time) (*Mark, error)
	MarksOn(ctx context.Context, day string) ([]Mark, error)
	Range(ctx context.Context, subjectID, from, to string) ([]Mark, error)
	// CloseStale closes marks checked in before cutoff and still open.
	CloseStale(ctx context.Context, cutoff, at time.Time) (int64, error)
}
