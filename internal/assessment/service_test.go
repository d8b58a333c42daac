package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
	"academy/internal/roster"
)

type fakeRepo struct {
	skills  []Skill
	saved   []Score
	failOn  string
	history []Record
}

func (f *fakeRepo) CreateSkill(_ context.Context, s Skill) (Skill, error) {
	s.ID = "sk" + s.Name
	f.skills = append(f.skills, s)
	return s, nil
}

func (f *fakeRepo) ListSkills(context.Context) ([]Skill, error) { return f.skills, nil }

func (f *fakeRepo) DeleteSkill(context.Context, string) error { return nil }

func (f *fakeRepo) SkillsByID(_ context.Context, ids []string) ([]Skill, error) {
	seen := make(map[string]bool, len(ids))
	var out []Skill
	for _, id := range ids {
		for _, s := range f.skills {
			if s.ID == id && !seen[id] {
				seen[id] = true
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveGrid(_ context.Context, g Grid, day, author string) error {
	var staged []Score
	for _, r := range g.Rows {
		if r.StudentID == f.failOn {
			return &RowError{StudentID: r.StudentID, Err: errors.New("constraint violated")}
		}
		for id, v := range r.Scores {
			staged = append(staged, Score{StudentID: r.StudentID, SkillID: id, Value: v, AssessedOn: day, AssessedBy: author})
		}
	}
	f.saved = append(f.saved, staged...)
	return nil
}

func (f *fakeRepo) Scores(_ context.Context, ids []string, day string) ([]Score, error) {
	var out []Score
	for _, s := range f.saved {
		for _, id := range ids {
			if s.StudentID == id && s.AssessedOn == day {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) History(context.Context, string) ([]Record, error) { return f.history, nil }

type fakeRoster struct{}

func (fakeRoster) Group(_ context.Context, id string) (roster.Group, error) {
	if id != "g1" {
		return roster.Group{}, apperr.NotFound("group not found")
	}
	return roster.Group{ID: "g1", Members: []roster.Member{
		{StudentID: "s1", FullName: "Ana"},
		{StudentID: "s2", FullName: "Ben"},
	}}, nil
}

func (fakeRoster) Student(_ context.Context, id string) (roster.Student, error) {
	return roster.Student{ID: id, FullName: "Student " + id}, nil
}

func newService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{skills: []Skill{
		{ID: "kick", Name: "Kick", MaxScore: 10},
		{ID: "guard", Name: "Guard", MaxScore: 5},
	}}
	s := NewService(repo, NewMemoryDrafts(time.Hour), fakeRoster{})
	s.now = func() time.Time { return time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC) }
	return s, repo
}

func TestDraftLifecycle(t *testing.T) {
	s, repo := newService(t)
	ctx := context.Background()

	d, err := s.StartDraft(ctx, DraftInput{GroupID: "g1", StudentIDs: []string{"s3", "s1"}, SkillIDs: []string{"kick", "guard"}}, "coach-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", d.AssessedOn)
	require.Len(t, d.Grid.Rows, 3)
	assert.Equal(t, "s3", d.Grid.Rows[2].StudentID)

	d, err = s.ApplyCells(ctx, d.ID, []Cell{
		{StudentID: "s1", SkillID: "kick", Value: ptr(8)},
		{StudentID: "s1", SkillID: "guard", Value: ptr(4)},
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, d.Grid.Rows[0].Total)

	_, err = s.ApplyCells(ctx, d.ID, []Cell{
		{StudentID: "s2", SkillID: "kick", Value: ptr(3)},
		{StudentID: "s2", SkillID: "guard", Value: ptr(9)},
	})
	assert.True(t, apperr.Is(err, apperr.CodeScoreOutOfRange))

	stored, err := s.Draft(ctx, d.ID)
	require.NoError(t, err)
	_, ok := stored.Grid.Score("s2", "kick")
	assert.False(t, ok)

	d, err = s.RemoveSkill(ctx, d.ID, "kick")
	require.NoError(t, err)
	assert.Equal(t, 4.0, d.Grid.Rows[0].Total)

	_, err = s.Save(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "coach-1", repo.saved[0].AssessedBy)

	_, err = s.Draft(ctx, d.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestSaveAbortsOnFirstFailingRow(t *testing.T) {
	s, repo := newService(t)
	ctx := context.Background()
	d, err := s.StartDraft(ctx, DraftInput{GroupID: "g1", SkillIDs: []string{"kick"}}, "")
	require.NoError(t, err)
	_, err = s.ApplyCells(ctx, d.ID, []Cell{{StudentID: "s1", SkillID: "kick", Value: ptr(1)}})
	require.NoError(t, err)

	repo.failOn = "s2"
	_, err = s.Save(ctx, d.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ben")
	assert.Empty(t, repo.saved)

	// The draft survives for a retry.
	_, err = s.Draft(ctx, d.ID)
	assert.NoError(t, err)
}

func TestStartDraftPrefillsSavedScores(t *testing.T) {
	s, repo := newService(t)
	repo.saved = []Score{{StudentID: "s2", SkillID: "guard", Value: 3, AssessedOn: "2024-03-04"}}

	d, err := s.StartDraft(context.Background(), DraftInput{GroupID: "g1", SkillIDs: []string{"guard"}}, "")
	require.NoError(t, err)
	v, ok := d.Grid.Score("s2", "guard")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
	assert.Equal(t, 3.0, d.Grid.Rows[1].Total)
}

func TestStartDraftValidation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.StartDraft(ctx, DraftInput{SkillIDs: []string{"kick"}}, "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = s.StartDraft(ctx, DraftInput{GroupID: "g1", SkillIDs: []string{"nope"}}, "")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = s.StartDraft(ctx, DraftInput{GroupID: "missing", SkillIDs: []string{"kick"}}, "")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestUndoRestoresPreviousGrid(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	d, err := s.StartDraft(ctx, DraftInput{GroupID: "g1", SkillIDs: []string{"kick", "guard"}}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, d.UndoDepth)

	_, err = s.Undo(ctx, d.ID)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	_, err = s.ApplyCells(ctx, d.ID, []Cell{{StudentID: "s1", SkillID: "kick", Value: ptr(8)}})
	require.NoError(t, err)
	d, err = s.RemoveSkill(ctx, d.ID, "guard")
	require.NoError(t, err)
	assert.Equal(t, 2, d.UndoDepth)

	// A rejected batch is not an undoable edit.
	_, err = s.ApplyCells(ctx, d.ID, []Cell{{StudentID: "s1", SkillID: "kick", Value: ptr(99)}})
	require.Error(t, err)

	d, err = s.Undo(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, d.Grid.Skills, 2)
	v, ok := d.Grid.Score("s1", "kick")
	require.True(t, ok)
	assert.Equal(t, 8.0, v)
	assert.Equal(t, 1, d.UndoDepth)

	d, err = s.Undo(ctx, d.ID)
	require.NoError(t, err)
	_, ok = d.Grid.Score("s1", "kick")
	assert.False(t, ok)
	assert.Equal(t, 0.0, d.Grid.Rows[0].Total)

	stored, err := s.Draft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UndoDepth)
}

func TestUndoHistoryIsBounded(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	d, err := s.StartDraft(ctx, DraftInput{GroupID: "g1", SkillIDs: []string{"kick"}}, "")
	require.NoError(t, err)

	for i := 0; i <= MaxUndo+2; i++ {
		d, err = s.ApplyCells(ctx, d.ID, []Cell{{StudentID: "s1", SkillID: "kick", Value: ptr(float64(i % 10))}})
		require.NoError(t, err)
	}
	assert.Equal(t, MaxUndo, d.UndoDepth)
}

func TestStartDraftIgnoresDuplicateSkills(t *testing.T) {
	s, _ := newService(t)
	d, err := s.StartDraft(context.Background(), DraftInput{GroupID: "g1", SkillIDs: []string{"kick", "guard", "kick"}}, "")
	require.NoError(t, err)
	require.Len(t, d.Grid.Skills, 2)
	assert.Equal(t, "kick", d.Grid.Skills[0].ID)
	assert.Equal(t, "guard", d.Grid.Skills[1].ID)
}

func TestReport(t *testing.T) {
	s, repo := newService(t)
	repo.saved = []Score{
		{StudentID: "s1", SkillID: "kick", Value: 7, AssessedOn: "2024-03-01"},
		{StudentID: "s2", SkillID: "kick", Value: 5, AssessedOn: "2024-03-01"},
	}
	g, err := s.Report(context.Background(), "g1", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, g.Skills, 1)
	assert.Equal(t, 7.0, g.Rows[0].Total)
	assert.Equal(t, 5.0, g.Rows[1].Total)
}

func TestMemoryDraftsExpire(t *testing.T) {
	store := NewMemoryDrafts(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, Draft{ID: "d"}))

	got, err := store.Get(ctx, "d")
	require.NoError(t, err)
	require.NotNil(t, got)

	now = now.Add(2 * time.Minute)
	got, err = store.Get(ctx, "d")
	require.NoError(t, err)
	assert.Nil(t, got)
}
