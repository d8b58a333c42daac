package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/schedule"
)

func TestResolve(t *testing.T) {
	// Monday 17:00.
	now := time.Date(2024, time.January, 1, 17, 0, 0, 0, time.UTC)
	left := now.Add(-10 * time.Minute)

	groups := []Group{
		{
			ID:       "g1",
			Name:     "Juniors",
			Schedule: schedule.Parse("mon:16:00:18:00"),
			Coach:    &Member{SubjectID: "k", Name: "Coach Kim"},
			Members: []Member{
				{SubjectID: "a", Name: "Ana"},
				{SubjectID: "b", Name: "Ben"},
				{SubjectID: "c", Name: "Cid"},
				{SubjectID: "d", Name: "Dee"},
			},
		},
		{
			ID:       "g2",
			Name:     "Seniors",
			Schedule: schedule.Parse("tue:16:00:18:00"),
			Members:  []Member{{SubjectID: "e", Name: "Eve"}},
		},
	}
	marks := []Mark{
		{SubjectID: "c", CheckIn: now.Add(-30 * time.Minute)},
		{SubjectID: "b", CheckIn: now.Add(-40 * time.Minute), CheckOut: &left},
		{SubjectID: "d", CheckIn: now.Add(-20 * time.Minute)},
		{SubjectID: "e", CheckIn: now.Add(-5 * time.Minute)},
		{SubjectID: "z", CheckIn: now.Add(-50 * time.Minute)},
		{SubjectID: "k", CheckIn: now.Add(-60 * time.Minute)},
	}

	board := Resolve(now, groups, marks)
	require.Len(t, board.Sessions, 1)

	sess := board.Sessions[0]
	assert.Equal(t, "g1", sess.GroupID)
	assert.Equal(t, 2, sess.PresentCount)
	assert.Equal(t, 4, sess.Total)
	require.NotNil(t, sess.Coach)
	assert.True(t, sess.Coach.Present)

	var order []string
	for _, e := range sess.Entries {
		order = append(order, e.SubjectID)
	}
	assert.Equal(t, []string{"c", "d", "a", "b"}, order)

	ben := sess.Entries[3]
	assert.False(t, ben.Present)
	assert.True(t, ben.Completed)
	require.NotNil(t, ben.CheckedInAt)

	ana := sess.Entries[2]
	assert.False(t, ana.Present)
	assert.Nil(t, ana.CheckedInAt)

	// e belongs to an inactive group and z to no group; both surface as others,
	// earliest check-in first.
	require.Len(t, board.Others, 2)
	assert.Equal(t, "z", board.Others[0].SubjectID)
	assert.Equal(t, "e", board.Others[1].SubjectID)
	assert.Equal(t, 4, board.PresentCount())
}

func TestResolveNoActiveGroups(t *testing.T) {
	now := time.Date(2024, time.January, 1, 3, 0, 0, 0, time.UTC)
	groups := []Group{{ID: "g", Schedule: schedule.Parse("mon:16:00")}}

	board := Resolve(now, groups, nil)
	assert.Empty(t, board.Sessions)
	assert.Empty(t, board.Others)
	assert.Equal(t, 0, board.PresentCount())
}

func TestResolveClosedStrayMarksAreNotOthers(t *testing.T) {
	now := time.Date(2024, time.January, 1, 3, 0, 0, 0, time.UTC)
	out := now.Add(-time.Minute)
	board := Resolve(now, nil, []Mark{{SubjectID: "x", CheckIn: now.Add(-time.Hour), CheckOut: &out}})
	assert.Empty(t, board.Others)
}
