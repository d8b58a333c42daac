// Package assessment manages skills and batch scoring of students through
// server-side draft grids.
package assessment

import (
	"context"
	"time"
)

// Score is one persisted cell.
type Score struct {
	StudentID  string
	SkillID    string
	Value      float64
	AssessedOn string
	AssessedBy string
}

// Record is a saved score joined with its skill, used for history.
type Record struct {
	SkillID    string    `json:"skill_id"`
	SkillName  string    `json:"skill_name"`
	Category   string    `json:"category,omitempty"`
	Score      float64   `json:"score"`
	MaxScore   float64   `json:"max_score"`
	AssessedOn string    `json:"assessed_on"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RowError reports the row that aborted a save.
type RowError struct {
	StudentID string
	Err       error
}

func (e *RowError) Error() string { return "student " + e.StudentID + ": " + e.Err.Error() }
func (e *RowError) Unwrap() error { return e.Err }

// Repository persists skills and scores.
type Repository interface {
	CreateSkill(ctx context.Context, s Skill) (Skill, error)
	ListSkills(ctx context.Context) ([]Skill, error)
	DeleteSkill(ctx context.Context, id string) error
	SkillsByID(ctx context.Context, ids []string) ([]Skill, error)
	// SaveGrid writes every row of grid in one transaction. Cells with no
	// score delete any stored score for that day. The first failing row
	// aborts the save and is returned as a *RowError.
	SaveGrid(ctx context.Context, grid Grid, day, author string) error
	// Scores returns saved scores for students on day.
	Scores(ctx context.Context, studentIDs []string, day string) ([]Score, error)
	History(ctx context.Context, studentID string) ([]Record, error)
}

// Draft is an in-progress grid.
type Draft struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"group_id,omitempty"`
	AssessedOn string    `json:"assessed_on"`
	AuthorID   string    `json:"author_id"`
	Grid       Grid      `json:"grid"`
	UpdatedAt  time.Time `json:"updated_at"`
	// Undo holds earlier grids, oldest first. It is kept by the draft store
	// but not rendered.
	Undo      []Grid `json:"-"`
	UndoDepth int    `json:"undo_depth"`
}

// DraftStore keeps drafts between requests.
type DraftStore interface {
	Put(ctx context.Context, d Draft) error
	// Get returns nil when the draft does not exist or expired.
	Get(ctx context.Context, id string) (*Draft, error)
	Delete(ctx context.Context, id string) error
}
