// Package presence joins groups that are in session with today's check-in
// marks to build the live attendance board.
package presence

import (
	"sort"
	"time"

	"academy/internal/schedule"
)

// Mark is one subject's attendance row for a day.
type Mark struct {
	SubjectID string     `json:"subject_id"`
	Name      string     `json:"name,omitempty"`
	Date      string     `json:"date"`
	CheckIn   time.Time  `json:"check_in"`
	CheckOut  *time.Time `json:"check_out,omitempty"`
}

// Open reports whether the subject is still checked in.
func (m Mark) Open() bool { return m.CheckOut == nil }

// Member is a subject enrolled in a group.
type Member struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
}

// Group is a training group with its recurring schedule.
type Group struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Schedule schedule.Set `json:"-"`
	Coach    *Member      `json:"coach,omitempty"`
	Members  []Member     `json:"members"`
}

// Entry annotates a member with today's presence.
type Entry struct {
	Member
	Present     bool       `json:"present"`
	Completed   bool       `json:"completed"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// Session is a group that is in session right now.
type Session struct {
	GroupID      string          `json:"group_id"`
	GroupName    string          `json:"group_name"`
	Window       schedule.Window `json:"window"`
	Coach        *Entry          `json:"coach,omitempty"`
	Entries      []Entry         `json:"entries"`
	PresentCount int             `json:"present_count"`
	Total        int             `json:"total"`
}

// Board is the live view at a point in time.
type Board struct {
	At       time.Time `json:"at"`
	Sessions []Session `json:"sessions"`
	// Others holds open check-ins whose subject belongs to no active group.
	Others []Mark `json:"others"`
}

// Resolve builds the board for now. Marks are expected to be today's marks;
// groups keep their input order.
func Resolve(now time.Time, groups []Group, marks []Mark) Board {
	bySubject := make(map[string]Mark, len(marks))
	for _, m := range marks {
		bySubject[m.SubjectID] = m
	}

	board := Board{At: now, Sessions: []Session{}, Others: []Mark{}}
	seen := make(map[string]bool)
	for _, g := range groups {
		w, ok := g.Schedule.Match(now)
		if !ok {
			continue
		}
		sess := Session{GroupID: g.ID, GroupName: g.Name, Window: w, Total: len(g.Members)}
		if g.Coach != nil {
			seen[g.Coach.SubjectID] = true
			coach := annotate(*g.Coach, bySubject)
			sess.Coach = &coach
		}
		sess.Entries = make([]Entry, 0, len(g.Members))
		for _, member := range g.Members {
			seen[member.SubjectID] = true
			e := annotate(member, bySubject)
			if e.Present {
				sess.PresentCount++
			}
			sess.Entries = append(sess.Entries, e)
		}
		sort.SliceStable(sess.Entries, func(i, j int) bool {
			return sess.Entries[i].Present && !sess.Entries[j].Present
		})
		board.Sessions = append(board.Sessions, sess)
	}

	for _, m := range marks {
		if m.Open() && !seen[m.SubjectID] {
			board.Others = append(board.Others, m)
		}
	}
	sort.SliceStable(board.Others, func(i, j int) bool {
		return board.Others[i].CheckIn.Before(board.Others[j].CheckIn)
	})
	return board
}

func annotate(member Member, bySubject map[string]Mark) Entry {
	e := Entry{Member: member}
	if m, ok := bySubject[member.SubjectID]; ok {
		checkIn := m.CheckIn
		e.CheckedInAt = &checkIn
		e.Present = m.Open()
		e.Completed = !m.Open()
	}
	return e
}

// PresentCount totals present members across sessions plus stray check-ins.
// Coaches are not counted.
func (b Board) PresentCount() int {
	n := len(b.Others)
	for _, s := range b.Sessions {
		n += s.PresentCount
	}
	return n
}
