package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"academy/internal/apperr"
	"academy/internal/metrics"
	"academy/internal/roster"
)

// Roster resolves the students a draft is built from.
type Roster interface {
	Group(ctx context.Context, id string) (roster.Group, error)
	Student(ctx context.Context, id string) (roster.Student, error)
}

// Service runs the batch assessment workflow.
type Service struct {
	repo   Repository
	drafts DraftStore
	roster Roster
	now    func() time.Time
}

// NewService creates a service.
func NewService(repo Repository, drafts DraftStore, r Roster) *Service {
	return &Service{repo: repo, drafts: drafts, roster: r, now: time.Now}
}

// SkillInput is the create payload for a skill.
type SkillInput struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category"`
	MaxScore float64 `json:"max_score" binding:"required,gt=0"`
}

// CreateSkill adds a skill.
func (s *Service) CreateSkill(ctx context.Context, in SkillInput) (Skill, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Skill{}, apperr.Invalid("name must not be empty")
	}
	if in.MaxScore <= 0 {
		return Skill{}, apperr.Invalid("max_score must be positive")
	}
	return s.repo.CreateSkill(ctx, Skill{Name: name, Category: strings.TrimSpace(in.Category), MaxScore: in.MaxScore})
}

// Skills lists every skill.
func (s *Service) Skills(ctx context.Context) ([]Skill, error) {
	return s.repo.ListSkills(ctx)
}

// DeleteSkill removes a skill and its saved scores.
func (s *Service) DeleteSkill(ctx context.Context, id string) error {
	err := s.repo.DeleteSkill(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("skill not found")
	}
	return err
}

// MaxUndo is how many edits of a draft can be undone.
const MaxUndo = 20

// DraftInput starts a draft. Students come from the group, from StudentIDs,
// or both; duplicates are dropped.
type DraftInput struct {
	GroupID    string   `json:"group_id"`
	StudentIDs []string `json:"student_ids"`
	SkillIDs   []string `json:"skill_ids" binding:"required,min=1"`
	AssessedOn string   `json:"assessed_on" binding:"omitempty,datetime=2006-01-02"`
}

// StartDraft builds a grid pre-filled with any scores already saved for the
// day and stores it as a draft.
func (s *Service) StartDraft(ctx context.Context, in DraftInput, authorID string) (Draft, error) {
	if in.GroupID == "" && len(in.StudentIDs) == 0 {
		return Draft{}, apperr.Invalid("group_id or student_ids required")
	}
	day := in.AssessedOn
	if day == "" {
		day = s.now().Format("2006-01-02")
	}

	skillIDs := distinct(in.SkillIDs)
	skills, err := s.repo.SkillsByID(ctx, skillIDs)
	if err != nil {
		return Draft{}, err
	}
	if len(skills) != len(skillIDs) {
		return Draft{}, apperr.NotFound("unknown skill")
	}

	grid := &Grid{}
	for _, sk := range skills {
		grid.AddSkill(sk)
	}
	if in.GroupID != "" {
		g, err := s.roster.Group(ctx, in.GroupID)
		if err != nil {
			return Draft{}, err
		}
		for _, m := range g.Members {
			grid.AddStudent(m.StudentID, m.FullName)
		}
	}
	for _, id := range in.StudentIDs {
		st, err := s.roster.Student(ctx, id)
		if err != nil {
			return Draft{}, err
		}
		grid.AddStudent(st.ID, st.FullName)
	}
	if err := s.prefill(ctx, grid, day); err != nil {
		return Draft{}, err
	}

	d := Draft{
		ID:         uuid.NewString(),
		GroupID:    in.GroupID,
		AssessedOn: day,
		AuthorID:   authorID,
		Grid:       *grid,
	}
	return d, s.put(ctx, &d)
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) prefill(ctx context.Context, grid *Grid, day string) error {
	ids := make([]string, 0, len(grid.Rows))
	for _, r := range grid.Rows {
		ids = append(ids, r.StudentID)
	}
	saved, err := s.repo.Scores(ctx, ids, day)
	if err != nil {
		return err
	}
	for _, sc := range saved {
		// Scores for skills outside the batch or above a lowered maximum
		// are left out.
		_ = grid.SetScore(sc.StudentID, sc.SkillID, sc.Value)
	}
	return nil
}

// Draft loads a draft.
func (s *Service) Draft(ctx context.Context, id string) (Draft, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if d == nil {
		return Draft{}, apperr.NotFound("draft not found or expired")
	}
	return *d, nil
}

// ApplyCells applies a batch of cell edits. A rejected cell leaves the
// stored draft untouched.
func (s *Service) ApplyCells(ctx context.Context, id string, cells []Cell) (Draft, error) {
	return s.edit(ctx, id, func(g *Grid) error { return g.Apply(cells) })
}

// AddSkill adds a skill column to a draft.
func (s *Service) AddSkill(ctx context.Context, id, skillID string) (Draft, error) {
	skills, err := s.repo.SkillsByID(ctx, []string{skillID})
	if err != nil {
		return Draft{}, err
	}
	if len(skills) == 0 {
		return Draft{}, apperr.NotFound("skill not found")
	}
	return s.edit(ctx, id, func(g *Grid) error {
		g.AddSkill(skills[0])
		return nil
	})
}

// RemoveSkill drops a skill column; totals are recomputed.
func (s *Service) RemoveSkill(ctx context.Context, id, skillID string) (Draft, error) {
	return s.edit(ctx, id, func(g *Grid) error {
		if !g.RemoveSkill(skillID) {
			return apperr.NotFound("skill not in batch")
		}
		return nil
	})
}

// AddStudent adds a student row.
func (s *Service) AddStudent(ctx context.Context, id, studentID string) (Draft, error) {
	st, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return Draft{}, err
	}
	return s.edit(ctx, id, func(g *Grid) error {
		g.AddStudent(st.ID, st.FullName)
		return nil
	})
}

// RemoveStudent drops a student row.
func (s *Service) RemoveStudent(ctx context.Context, id, studentID string) (Draft, error) {
	return s.edit(ctx, id, func(g *Grid) error {
		if !g.RemoveStudent(studentID) {
			return apperr.NotFound("student not in batch")
		}
		return nil
	})
}

// Discard deletes a draft without saving.
func (s *Service) Discard(ctx context.Context, id string) error {
	return s.drafts.Delete(ctx, id)
}

// Save persists every row of the draft in one transaction and deletes the
// draft. On failure nothing is written and the draft is kept.
func (s *Service) Save(ctx context.Context, id string) (Draft, error) {
	d, err := s.Draft(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if len(d.Grid.Rows) == 0 || len(d.Grid.Skills) == 0 {
		return Draft{}, apperr.Invalid("draft has no students or no skills")
	}
	if err := s.repo.SaveGrid(ctx, d.Grid, d.AssessedOn, d.AuthorID); err != nil {
		metrics.DraftSaves.WithLabelValues("failed").Inc()
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			return Draft{}, &apperr.Error{
				Code:     apperr.CodeInternal,
				Message:  fmt.Sprintf("saving %s failed", rowName(d.Grid, rowErr.StudentID)),
				Metadata: map[string]string{"student_id": rowErr.StudentID},
				Cause:    rowErr,
			}
		}
		return Draft{}, err
	}
	metrics.DraftSaves.WithLabelValues("saved").Inc()
	if err := s.drafts.Delete(ctx, id); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Report rebuilds the saved grid of a group for a day.
func (s *Service) Report(ctx context.Context, groupID, day string) (Grid, error) {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return Grid{}, apperr.Invalid("day must be YYYY-MM-DD")
	}
	g, err := s.roster.Group(ctx, groupID)
	if err != nil {
		return Grid{}, err
	}
	grid := &Grid{}
	skills, err := s.repo.ListSkills(ctx)
	if err != nil {
		return Grid{}, err
	}
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		grid.AddStudent(m.StudentID, m.FullName)
		ids = append(ids, m.StudentID)
	}
	saved, err := s.repo.Scores(ctx, ids, day)
	if err != nil {
		return Grid{}, err
	}
	used := make(map[string]bool)
	for _, sc := range saved {
		used[sc.SkillID] = true
	}
	for _, sk := range skills {
		if used[sk.ID] {
			grid.AddSkill(sk)
		}
	}
	for _, sc := range saved {
		_ = grid.SetScore(sc.StudentID, sc.SkillID, sc.Value)
	}
	return *grid, nil
}

// History lists saved assessments of a student, newest first.
func (s *Service) History(ctx context.Context, studentID string) ([]Record, error) {
	return s.repo.History(ctx, studentID)
}

// Undo restores the grid as it was before the last edit.
func (s *Service) Undo(ctx context.Context, id string) (Draft, error) {
	d, err := s.Draft(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	n := len(d.Undo)
	if n == 0 {
		return Draft{}, apperr.New(apperr.CodeConflict, "nothing to undo")
	}
	d.Grid = d.Undo[n-1]
	d.Undo = d.Undo[:n-1]
	return d, s.put(ctx, &d)
}

func (s *Service) edit(ctx context.Context, id string, fn func(*Grid) error) (Draft, error) {
	d, err := s.Draft(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	prev := d.Grid.clone()
	if err := fn(&d.Grid); err != nil {
		return Draft{}, err
	}
	d.Undo = append(d.Undo, prev)
	if len(d.Undo) > MaxUndo {
		d.Undo = d.Undo[len(d.Undo)-MaxUndo:]
	}
	return d, s.put(ctx, &d)
}

func (s *Service) put(ctx context.Context, d *Draft) error {
	d.UpdatedAt = s.now()
	d.UndoDepth = len(d.Undo)
	return s.drafts.Put(ctx, *d)
}

func rowName(g Grid, studentID string) string {
	for _, r := range g.Rows {
		if r.StudentID == studentID && r.Name != "" {
			return r.Name
		}
	}
	return studentID
}
