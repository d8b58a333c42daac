package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PGRepository persists the roster in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const studentColumns = `id, full_name, level, guardian_phone, photo_url, active, account_id, created_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.FullName, &s.Level, &s.GuardianPhone, &s.PhotoURL, &s.Active, &s.AccountID, &s.CreatedAt)
	return s, err
}

// CreateStudent inserts a student.
func (r *PGRepository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, full_name, level, guardian_phone, photo_url, active, account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, s.ID, s.FullName, s.Level, s.GuardianPhone, s.PhotoURL, s.Active, s.AccountID)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// UpdateStudent overwrites the editable columns.
func (r *PGRepository) UpdateStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET full_name = $2, level = $3, guardian_phone = $4, photo_url = $5, active = $6, account_id = $7, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.FullName, s.Level, s.GuardianPhone, s.PhotoURL, s.Active, s.AccountID)
	return err
}

// GetStudent returns nil when no student matches.
func (r *PGRepository) GetStudent(ctx context.Context, id string) (*Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStudents returns students ordered by name.
func (r *PGRepository) ListStudents(ctx context.Context, f StudentFilter) ([]Student, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT ` + studentColumns + ` FROM students`
	var clauses []string
	var args []any
	if f.ActiveOnly {
		clauses = append(clauses, "active")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		clauses = append(clauses, fmt.Sprintf("lower(full_name) LIKE $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY full_name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// CreateGroup inserts a group without members.
func (r *PGRepository) CreateGroup(ctx context.Context, g Group) (Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO groups (id, name, coach_id, schedule)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, g.ID, g.Name, g.CoachID, g.Schedule)
	if err := row.Scan(&g.CreatedAt); err != nil {
		return Group{}, err
	}
	g.Members = []Member{}
	return g, nil
}

// UpdateGroup overwrites name, coach and schedule.
func (r *PGRepository) UpdateGroup(ctx context.Context, g Group) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE groups SET name = $2, coach_id = $3, schedule = $4, updated_at = NOW()
		WHERE id = $1
	`, g.ID, g.Name, g.CoachID, g.Schedule)
	return err
}

// DeleteGroup removes a group and its memberships.
func (r *PGRepository) DeleteGroup(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return err
}

// GetGroup returns nil when no group matches.
func (r *PGRepository) GetGroup(ctx context.Context, id string) (*Group, error) {
	groups, err := r.groups(ctx, `WHERE g.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

// ListGroups returns groups with members, optionally for one coach.
func (r *PGRepository) ListGroups(ctx context.Context, coachID string) ([]Group, error) {
	if coachID != "" {
		return r.groups(ctx, `WHERE g.coach_id = $1`, coachID)
	}
	return r.groups(ctx, ``)
}

func (r *PGRepository) groups(ctx context.Context, where string, args ...any) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.coach_id, COALESCE(p.full_name, ''), g.schedule, g.created_at,
		       s.id, s.full_name
		FROM groups g
		LEFT JOIN profiles p ON p.account_id = g.coach_id
		LEFT JOIN group_members m ON m.group_id = g.id
		LEFT JOIN students s ON s.id = m.student_id AND s.active
		`+where+`
		ORDER BY g.name, g.id, m.position
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Group
	for rows.Next() {
		var g Group
		var studentID, studentName sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.CoachID, &g.CoachName, &g.Schedule, &g.CreatedAt, &studentID, &studentName); err != nil {
			return nil, err
		}
		if len(res) == 0 || res[len(res)-1].ID != g.ID {
			g.Members = []Member{}
			res = append(res, g)
		}
		if studentID.Valid {
			last := &res[len(res)-1]
			last.Members = append(last.Members, Member{StudentID: studentID.String, FullName: studentName.String})
		}
	}
	return res, rows.Err()
}

// AddMember enrols a student; enrolling twice is a no-op.
func (r *PGRepository) AddMember(ctx context.Context, groupID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, student_id) DO NOTHING
	`, groupID, studentID)
	return err
}

// RemoveMember drops an enrolment.
func (r *PGRepository) RemoveMember(ctx context.Context, groupID, studentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND student_id = $2`, groupID, studentID)
	return err
}
