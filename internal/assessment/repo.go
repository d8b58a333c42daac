package assessment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"academy/internal/store"
)

// PGRepository persists skills and assessments in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) CreateSkill(ctx context.Context, s Skill) (Skill, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO skills (id, name, category, max_score) VALUES ($1, $2, $3, $4)
	`, s.ID, s.Name, s.Category, s.MaxScore)
	return s, err
}

func (r *PGRepository) ListSkills(ctx context.Context) ([]Skill, error) {
	return r.skills(ctx, `SELECT id, name, category, max_score FROM skills ORDER BY category, name`)
}

func (r *PGRepository) DeleteSkill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SkillsByID returns each requested skill once, in the order first given.
// Unknown ids are skipped.
func (r *PGRepository) SkillsByID(ctx context.Context, ids []string) ([]Skill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := r.skills(ctx, `SELECT id, name, category, max_score FROM skills WHERE id IN (`+placeholders(1, len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Skill, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	out := make([]Skill, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *PGRepository) skills(ctx context.Context, query string, args ...any) ([]Skill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.MaxScore); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SaveGrid upserts every row in a single transaction.
func (r *PGRepository) SaveGrid(ctx context.Context, grid Grid, day, author string) error {
	var by any
	if author != "" {
		by = author
	}
	return store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, row := range grid.Rows {
			for _, skill := range grid.Skills {
				var err error
				if v, ok := row.Scores[skill.ID]; ok {
					_, err = tx.ExecContext(ctx, `
						INSERT INTO assessments (id, student_id, skill_id, score, assessed_on, assessed_by)
						VALUES ($1, $2, $3, $4, $5, $6)
						ON CONFLICT (student_id, skill_id, assessed_on)
						DO UPDATE SET score = EXCLUDED.score, assessed_by = EXCLUDED.assessed_by, updated_at = NOW()
					`, uuid.NewString(), row.StudentID, skill.ID, v, day, by)
				} else {
					_, err = tx.ExecContext(ctx, `
						DELETE FROM assessments WHERE student_id = $1 AND skill_id = $2 AND assessed_on = $3
					`, row.StudentID, skill.ID, day)
				}
				if err != nil {
					return &RowError{StudentID: row.StudentID, Err: err}
				}
			}
		}
		return nil
	})
}

func (r *PGRepository) Scores(ctx context.Context, studentIDs []string, day string) ([]Score, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	args := append([]any{day}, toArgs(studentIDs)...)
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, skill_id, score, assessed_on::text, COALESCE(assessed_by::text, '')
		FROM assessments
		WHERE assessed_on = $1 AND student_id IN (`+placeholders(2, len(studentIDs))+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.StudentID, &s.SkillID, &s.Value, &s.AssessedOn, &s.AssessedBy); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *PGRepository) History(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT k.id, k.name, k.category, a.score, k.max_score, a.assessed_on::text, a.updated_at
		FROM assessments a
		JOIN skills k ON k.id = a.skill_id
		WHERE a.student_id = $1
		ORDER BY a.assessed_on DESC, k.name
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.SkillID, &rec.SkillName, &rec.Category, &rec.Score, &rec.MaxScore, &rec.AssessedOn, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// placeholders returns "$start, ..., $start+n-1".
func placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ", ")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
