package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"academy/internal/apperr"
	"academy/internal/events"
	"academy/internal/metrics"
	"academy/internal/presence"
	"academy/internal/roster"
	"academy/internal/schedule"
)

// GroupLister supplies groups with their members for the live board.
type GroupLister interface {
	Groups(ctx context.Context, coachID string) ([]roster.Group, error)
}

// Service records check-ins and resolves the live board in the academy's
// time zone.
type Service struct {
	repo   Repository
	groups GroupLister
	bus    events.Bus
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a service. A nil loc means time.Local.
func NewService(repo Repository, groups GroupLister, bus events.Bus, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, groups: groups, bus: bus, loc: loc, now: time.Now}
}

// Changed is the attendance.changed payload.
type Changed struct {
	SubjectID string `json:"subject_id"`
	Kind      string `json:"kind"`
	Action    string `json:"action"`
	Day       string `json:"day"`
}

func (s *Service) clock() time.Time { return s.now().In(s.loc) }

// Today returns the current academy day as YYYY-MM-DD.
func (s *Service) Today() string { return s.clock().Format(DateLayout) }

// CheckIn opens today's mark for a subject. Checking in while already in
// returns the open mark; checking in after check-out reopens it.
func (s *Service) CheckIn(ctx context.Context, subjectID, kind string) (Mark, error) {
	if kind == "" {
		kind = KindStudent
	}
	if kind != KindStudent && kind != KindCoach {
		return Mark{}, apperr.Invalid("kind must be student or coach")
	}
	ok, err := s.repo.SubjectExists(ctx, kind, subjectID)
	if err != nil {
		return Mark{}, err
	}
	if !ok {
		return Mark{}, apperr.NotFound(kind + " not found")
	}
	now := s.clock()
	m, err := s.repo.Open(ctx, Mark{
		SubjectID:   subjectID,
		SubjectKind: kind,
		Day:         now.Format(DateLayout),
		CheckIn:     now,
	})
	if err != nil {
		return Mark{}, err
	}
	s.changed(ctx, m, "check_in")
	return m, nil
}

// CheckOut closes today's open mark.
func (s *Service) CheckOut(ctx context.Context, subjectID string) (Mark, error) {
	now := s.clock()
	m, err := s.repo.Close(ctx, subjectID, now.Format(DateLayout), now)
	if err != nil {
		return Mark{}, err
	}
	if m == nil {
		return Mark{}, apperr.NotFound("no open check-in today")
	}
	s.changed(ctx, *m, "check_out")
	return *m, nil
}

// Marks returns today's marks.
func (s *Service) Marks(ctx context.Context) ([]Mark, error) {
	return s.repo.MarksOn(ctx, s.Today())
}

// History returns marks between from and to (inclusive, YYYY-MM-DD). Empty
// bounds default to the last 30 days.
func (s *Service) History(ctx context.Context, subjectID, from, to string) ([]Mark, error) {
	from, to, err := s.bounds(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.Range(ctx, subjectID, from, to)
}

func (s *Service) bounds(from, to string) (string, string, error) {
	today := s.clock()
	if to == "" {
		to = today.Format(DateLayout)
	}
	if from == "" {
		from = today.AddDate(0, 0, -30).Format(DateLayout)
	}
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return "", "", apperr.Invalid("from must be YYYY-MM-DD")
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return "", "", apperr.Invalid("to must be YYYY-MM-DD")
	}
	if t.Before(f) {
		return "", "", apperr.Invalid("to is before from")
	}
	return from, to, nil
}

// LiveBoard resolves which groups are in session now and who is present.
func (s *Service) LiveBoard(ctx context.Context) (presence.Board, error) {
	ctx, span := otel.Tracer("academy/attendance").Start(ctx, "attendance.LiveBoard")
	defer span.End()

	now := s.clock()
	groups, err := s.groups.Groups(ctx, "")
	if err != nil {
		return presence.Board{}, fmt.Errorf("load groups: %w", err)
	}
	marks, err := s.repo.MarksOn(ctx, now.Format(DateLayout))
	if err != nil {
		return presence.Board{}, fmt.Errorf("load marks: %w", err)
	}

	board := presence.Resolve(now, toPresenceGroups(groups), toPresenceMarks(marks))
	span.SetAttributes(
		attribute.Int("academy.sessions", len(board.Sessions)),
		attribute.Int("academy.present", board.PresentCount()),
	)
	metrics.LiveSessions.Set(float64(len(board.Sessions)))
	return board, nil
}

// CloseStale checks out every mark still open after maxOpen.
func (s *Service) CloseStale(ctx context.Context, maxOpen time.Duration) (int64, error) {
	now := s.clock()
	n, err := s.repo.CloseStale(ctx, now.Add(-maxOpen), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.StaleClosed.Add(float64(n))
		if err := events.Emit(ctx, s.bus, events.AttendanceChanged, Changed{Action: "sweep", Day: now.Format(DateLayout)}); err != nil {
			log.Printf("attendance: publish sweep: %v", err)
		}
	}
	return n, nil
}

var csvHeader = []string{"day", "subject_id", "kind", "name", "check_in", "check_out", "minutes"}

// ExportCSV writes the marks between from and to as a CSV report.
func (s *Service) ExportCSV(ctx context.Context, from, to string, w io.Writer) error {
	marks, err := s.History(ctx, "", from, to)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range marks {
		checkOut, minutes := "", ""
		if m.CheckOut != nil {
			checkOut = m.CheckOut.In(s.loc).Format("15:04")
			minutes = strconv.Itoa(int(m.CheckOut.Sub(m.CheckIn).Minutes()))
		}
		row := []string{m.Day, m.SubjectID, m.SubjectKind, m.Name, m.CheckIn.In(s.loc).Format("15:04"), checkOut, minutes}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) changed(ctx context.Context, m Mark, action string) {
	metrics.Checkins.WithLabelValues(m.SubjectKind, action).Inc()
	err := events.Emit(ctx, s.bus, events.AttendanceChanged, Changed{
		SubjectID: m.SubjectID,
		Kind:      m.SubjectKind,
		Action:    action,
		Day:       m.Day,
	})
	if err != nil {
		log.Printf("attendance: publish %s: %v", action, err)
	}
}

func toPresenceGroups(groups []roster.Group) []presence.Group {
	out := make([]presence.Group, 0, len(groups))
	for _, g := range groups {
		pg := presence.Group{
			ID:       g.ID,
			Name:     g.Name,
			Schedule: schedule.Parse(g.Schedule),
			Members:  make([]presence.Member, 0, len(g.Members)),
		}
		if g.CoachID != nil {
			pg.Coach = &presence.Member{SubjectID: *g.CoachID, Name: g.CoachName}
		}
		for _, m := range g.Members {
			pg.Members = append(pg.Members, presence.Member{SubjectID: m.StudentID, Name: m.FullName})
		}
		out = append(out, pg)
	}
	return out
}

func toPresenceMarks(marks []Mark) []presence.Mark {
	out := make([]presence.Mark, 0, len(marks))
	for _, m := range marks {
		out = append(out, presence.Mark{
			SubjectID: m.SubjectID,
			Name:      m.Name,
			Date:      m.Day,
			CheckIn:   m.CheckIn,
			CheckOut:  m.CheckOut,
		})
	}
	return out
}
