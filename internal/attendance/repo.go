package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PGRepository persists attendance marks in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const markColumns = `a.id, a.subject_id, a.subject_kind, COALESCE(s.full_name, p.full_name, ''), a.day, a.check_in_at, a.check_out_at`

const markFrom = `
	FROM attendance a
	LEFT JOIN students s ON a.subject_kind = 'student' AND s.id = a.subject_id
	LEFT JOIN profiles p ON a.subject_kind = 'coach' AND p.account_id = a.subject_id`

func scanMark(row interface{ Scan(...any) error }) (Mark, error) {
	var m Mark
	var day time.Time
	if err := row.Scan(&m.ID, &m.SubjectID, &m.SubjectKind, &m.Name, &day, &m.CheckIn, &m.CheckOut); err != nil {
		return Mark{}, err
	}
	m.Day = day.Format(DateLayout)
	return m, nil
}

// SubjectExists checks the students table or coach profiles.
func (r *PGRepository) SubjectExists(ctx context.Context, kind, id string) (bool, error) {
	var query string
	switch kind {
	case KindStudent:
		query = `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND active)`
	case KindCoach:
		query = `SELECT EXISTS (SELECT 1 FROM profiles WHERE account_id = $1 AND role IN ('coach', 'admin'))`
	default:
		return false, fmt.Errorf("unknown subject kind %q", kind)
	}
	var ok bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ok)
	return ok, err
}

// Open upserts the day's mark. A closed mark is reopened keeping its first
// check-in time.
func (r *PGRepository) Open(ctx context.Context, m Mark) (Mark, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, subject_id, subject_kind, day, check_in_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, day) DO UPDATE SET check_out_at = NULL
		RETURNING id
	`, m.ID, m.SubjectID, m.SubjectKind, m.Day, m.CheckIn).Scan(&id)
	if err != nil {
		return Mark{}, err
	}
	return scanMark(r.db.QueryRowContext(ctx, `SELECT `+markColumns+markFrom+` WHERE a.id = $1`, id))
}

// Close sets check_out_at on the open mark.
func (r *PGRepository) Close(ctx context.Context, subjectID, day string, at time.Time) (*Mark, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE attendance SET check_out_at = $3
		WHERE subject_id = $1 AND day = $2 AND check_out_at IS NULL
		RETURNING id
	`, subjectID, day, at).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m, err := scanMark(r.db.QueryRowContext(ctx, `SELECT `+markColumns+markFrom+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarksOn returns the day's marks in check-in order.
func (r *PGRepository) MarksOn(ctx context.Context, day string) ([]Mark, error) {
	return r.list(ctx, ` WHERE a.day = $1 ORDER BY a.check_in_at`, day)
}

// Range returns marks between from and to inclusive; an empty subjectID
// returns every subject.
func (r *PGRepository) Range(ctx context.Context, subjectID, from, to string) ([]Mark, error) {
	if subjectID == "" {
		return r.list(ctx, ` WHERE a.day BETWEEN $1 AND $2 ORDER BY a.day, a.check_in_at`, from, to)
	}
	return r.list(ctx, ` WHERE a.day BETWEEN $1 AND $2 AND a.subject_id = $3 ORDER BY a.day, a.check_in_at`, from, to, subjectID)
}

func (r *PGRepository) list(ctx context.Context, where string, args ...any) ([]Mark, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+markColumns+markFrom+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Mark
	for rows.Next() {
		m, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// CloseStale closes marks left open since before cutoff.
func (r *PGRepository) CloseStale(ctx context.Context, cutoff, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET check_out_at = $2
		WHERE check_out_at IS NULL AND check_in_at < $1
	`, cutoff, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
