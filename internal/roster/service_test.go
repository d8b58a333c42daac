package roster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
	"academy/internal/cloudinary"
	"academy/internal/events"
)

type fakeRepo struct {
	students map[string]*Student
	groups   map[string]*Group
	seq      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{students: map[string]*Student{}, groups: map[string]*Group{}}
}

func (f *fakeRepo) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeRepo) CreateStudent(_ context.Context, s Student) (Student, error) {
	s.ID = f.id("s")
	f.students[s.ID] = &s
	return s, nil
}

func (f *fakeRepo) UpdateStudent(_ context.Context, s Student) error {
	f.students[s.ID] = &s
	return nil
}

func (f *fakeRepo) GetStudent(_ context.Context, id string) (*Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) ListStudents(context.Context, StudentFilter) ([]Student, error) { return nil, nil }

func (f *fakeRepo) CreateGroup(_ context.Context, g Group) (Group, error) {
	g.ID = f.id("g")
	g.CreatedAt = time.Now()
	f.groups[g.ID] = &g
	return g, nil
}

func (f *fakeRepo) UpdateGroup(_ context.Context, g Group) error {
	f.groups[g.ID] = &g
	return nil
}

func (f *fakeRepo) DeleteGroup(_ context.Context, id string) error {
	delete(f.groups, id)
	return nil
}

func (f *fakeRepo) GetGroup(_ context.Context, id string) (*Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeRepo) ListGroups(context.Context, string) ([]Group, error) {
	out := make([]Group, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) AddMember(_ context.Context, groupID, studentID string) error {
	g := f.groups[groupID]
	g.Members = append(g.Members, Member{StudentID: studentID, FullName: f.students[studentID].FullName})
	return nil
}

func (f *fakeRepo) RemoveMember(context.Context, string, string) error { return nil }

type fakeImages struct{ err error }

func (f fakeImages) UploadImage(_ context.Context, _ []byte, filename string) (*cloudinary.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cloudinary.UploadResult{SecureURL: "https://cdn.example/" + filename}, nil
}

func TestCreateGroupCanonicalisesSchedule(t *testing.T) {
	bus := events.NewMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, events.GroupChanged)
	require.NoError(t, err)

	s := NewService(newFakeRepo(), bus, nil)
	g, err := s.CreateGroup(ctx, GroupInput{Name: " Juniors ", Schedule: "Monday:16:00:18:00 | thu:17:30"})
	require.NoError(t, err)
	assert.Equal(t, "Juniors", g.Name)
	assert.Equal(t, "monday:16:00:18:00|thu:17:30", g.Schedule)

	select {
	case evt := <-ch:
		payload, err := events.Decode[map[string]string](evt)
		require.NoError(t, err)
		assert.Equal(t, g.ID, payload["group_id"])
	case <-time.After(time.Second):
		t.Fatal("no group.changed event")
	}
}

func TestCreateGroupRejectsBadSchedule(t *testing.T) {
	s := NewService(newFakeRepo(), nil, nil)
	_, err := s.CreateGroup(context.Background(), GroupInput{Name: "X", Schedule: "mon:18:00:17:00"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = s.CreateGroup(context.Background(), GroupInput{Name: " ", Schedule: "mon:18:00"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestAddMemberRequiresActiveStudent(t *testing.T) {
	repo := newFakeRepo()
	s := NewService(repo, nil, nil)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, GroupInput{Name: "Juniors", Schedule: "mon:16:00"})
	require.NoError(t, err)
	inactive := false
	st, err := s.CreateStudent(ctx, StudentInput{FullName: "Ana", Active: &inactive})
	require.NoError(t, err)

	err = s.AddMember(ctx, g.ID, st.ID)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	active := true
	_, err = s.UpdateStudent(ctx, st.ID, StudentInput{FullName: "Ana", Active: &active})
	require.NoError(t, err)
	require.NoError(t, s.AddMember(ctx, g.ID, st.ID))

	got, err := s.Group(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 1)

	assert.True(t, apperr.Is(s.AddMember(ctx, "missing", st.ID), apperr.CodeNotFound))
}

func TestSetPhoto(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()

	s := NewService(repo, nil, nil)
	st, err := s.CreateStudent(ctx, StudentInput{FullName: "Ana"})
	require.NoError(t, err)
	_, err = s.SetPhoto(ctx, st.ID, []byte("jpg"), "ana.jpg")
	assert.True(t, apperr.Is(err, apperr.CodeUnavailable))

	s = NewService(repo, nil, fakeImages{})
	got, err := s.SetPhoto(ctx, st.ID, []byte("jpg"), "ana.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/ana.jpg", got.PhotoURL)

	s = NewService(repo, nil, fakeImages{err: errors.New("timeout")})
	_, err = s.SetPhoto(ctx, st.ID, []byte("jpg"), "ana.jpg")
	assert.True(t, apperr.Is(err, apperr.CodeUnavailable))
}

func TestGroupsOnFiltersBySessionDay(t *testing.T) {
	s := NewService(newFakeRepo(), nil, nil)
	ctx := context.Background()
	_, err := s.CreateGroup(ctx, GroupInput{Name: "Juniors", Schedule: "mon:16:00:18:00|thu:17:30"})
	require.NoError(t, err)
	_, err = s.CreateGroup(ctx, GroupInput{Name: "Seniors", Schedule: "tue:18:00"})
	require.NoError(t, err)

	all, err := s.GroupsOn(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	thu, err := s.GroupsOn(ctx, "", "Thursday")
	require.NoError(t, err)
	require.Len(t, thu, 1)
	assert.Equal(t, "Juniors", thu[0].Name)

	sun, err := s.GroupsOn(ctx, "", "sun")
	require.NoError(t, err)
	assert.Empty(t, sun)

	_, err = s.GroupsOn(ctx, "", "funday")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}
