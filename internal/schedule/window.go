// Package schedule parses recurring weekly group schedules and decides which
// windows are in session at a given wall-clock time.
//
// A schedule is stored as segments joined by "|", each segment being
// "day:startHH:startMM[:endHH:endMM]". The day accepts a 3-letter or full
// weekday name.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultLength is the session length assumed when a segment has no end time.
const DefaultLength = time.Hour

// Window is one recurring day/time interval.
type Window struct {
	Day         string `json:"day"`
	StartHour   int    `json:"start_hour"`
	StartMinute int    `json:"start_minute"`
	EndHour     int    `json:"end_hour"`
	EndMinute   int    `json:"end_minute"`
	ExplicitEnd bool   `json:"explicit_end"`
}

// Set is the ordered list of windows belonging to one group.
type Set []Window

// Start returns the window start as minutes since midnight.
func (w Window) Start() int { return w.StartHour*60 + w.StartMinute }

// End returns the window end as minutes since midnight. An implied end for a
// late start may run past 24:00.
func (w Window) End() int { return w.EndHour*60 + w.EndMinute }

// StartLabel renders the start as zero-padded HH:MM.
func (w Window) StartLabel() string { return clock(w.StartHour, w.StartMinute) }

// EndLabel renders the end as zero-padded HH:MM.
func (w Window) EndLabel() string { return clock(w.EndHour, w.EndMinute) }

// Contains reports whether now falls on the window's day and inside
// [start, end], both bounds inclusive.
func (w Window) Contains(now time.Time) bool {
	if !DayMatches(w.Day, DayTag(now)) {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	return minute >= w.Start() && minute <= w.End()
}

// String renders the window in its encoded segment form.
func (w Window) String() string {
	seg := fmt.Sprintf("%s:%02d:%02d", w.Day, w.StartHour, w.StartMinute)
	if w.ExplicitEnd {
		seg += fmt.Sprintf(":%02d:%02d", w.EndHour, w.EndMinute)
	}
	return seg
}

// Active reports whether any window contains now.
func (s Set) Active(now time.Time) bool {
	_, ok := s.Match(now)
	return ok
}

// Match returns the first window containing now.
func (s Set) Match(now time.Time) (Window, bool) {
	for _, w := range s {
		if w.Contains(now) {
			return w, true
		}
	}
	return Window{}, false
}

// OnDay returns the windows scheduled on day, which may be any name KnownDay
// accepts, in schedule order.
func (s Set) OnDay(day string) []Window {
	full, ok := canonicalDay(day)
	if !ok {
		return nil
	}
	var out []Window
	for _, w := range s {
		if DayMatches(w.Day, full) {
			out = append(out, w)
		}
	}
	return out
}

// String encodes the set back into its "|"-joined form.
func (s Set) String() string {
	parts := make([]string, len(s))
	for i, w := range s {
		parts[i] = w.String()
	}
	return strings.Join(parts, "|")
}

// DayTag returns the lowercase full weekday name of t.
func DayTag(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// DayMatches compares a segment day against the current day tag in both
// directions so that "mon" and "monday" encodings both match.
func DayMatches(segmentDay, currentDay string) bool {
	segmentDay = strings.ToLower(strings.TrimSpace(segmentDay))
	currentDay = strings.ToLower(strings.TrimSpace(currentDay))
	if segmentDay == "" || currentDay == "" {
		return false
	}
	prefix := currentDay
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return strings.HasPrefix(currentDay, segmentDay) || strings.HasPrefix(segmentDay, prefix)
}

// Parse decodes a schedule string. Malformed segments are skipped.
func Parse(s string) Set {
	var set Set
	for _, seg := range segments(s) {
		w, err := parseSegment(seg)
		if err != nil {
			continue
		}
		set = append(set, w)
	}
	return set
}

// Validate checks every segment strictly and reports the first malformed one.
// An empty schedule is valid.
func Validate(s string) error {
	for i, seg := range segments(s) {
		w, err := parseSegment(seg)
		if err != nil {
			return fmt.Errorf("segment %d %q: %w", i+1, seg, err)
		}
		if !KnownDay(w.Day) {
			return fmt.Errorf("segment %d %q: unknown day %q", i+1, seg, w.Day)
		}
		if w.ExplicitEnd && w.End() < w.Start() {
			return fmt.Errorf("segment %d %q: end before start", i+1, seg)
		}
	}
	return nil
}

func segments(s string) []string {
	var out []string
	for _, seg := range strings.Split(s, "|") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func parseSegment(seg string) (Window, error) {
	fields := strings.Split(seg, ":")
	if len(fields) < 3 {
		return Window{}, fmt.Errorf("want day:HH:MM, got %d fields", len(fields))
	}
	day := strings.ToLower(strings.TrimSpace(fields[0]))
	if day == "" {
		return Window{}, fmt.Errorf("empty day")
	}
	sh, err := field(fields[1], 23)
	if err != nil {
		return Window{}, fmt.Errorf("start hour: %w", err)
	}
	sm, err := field(fields[2], 59)
	if err != nil {
		return Window{}, fmt.Errorf("start minute: %w", err)
	}
	w := Window{Day: day, StartHour: sh, StartMinute: sm}
	if len(fields) >= 5 {
		eh, err := field(fields[3], 23)
		if err != nil {
			return Window{}, fmt.Errorf("end hour: %w", err)
		}
		em, err := field(fields[4], 59)
		if err != nil {
			return Window{}, fmt.Errorf("end minute: %w", err)
		}
		w.EndHour, w.EndMinute, w.ExplicitEnd = eh, em, true
		return w, nil
	}
	w.EndHour = sh + int(DefaultLength/time.Hour)
	w.EndMinute = sm
	return w, nil
}

func field(raw string, max int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("%d out of range 0-%d", v, max)
	}
	return v, nil
}

// KnownDay reports whether day names a weekday, abbreviated or in full.
func KnownDay(day string) bool {
	_, ok := canonicalDay(day)
	return ok
}

// canonicalDay resolves day to the lowercase full weekday name it matches.
func canonicalDay(day string) (string, bool) {
	day = strings.ToLower(strings.TrimSpace(day))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if DayMatches(day, full) {
			return full, true
		}
	}
	return "", false
}

func clock(h, m int) string { return fmt.Sprintf("%02d:%02d", h, m) }
