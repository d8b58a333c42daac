package assessment

import (
	"fmt"

	"academy/internal/apperr"
	"academy/internal/command"
)

// Skill is an assessable skill with its maximum score.
type Skill struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	MaxScore float64 `json:"max_score"`
}

// Row holds one student's scores keyed by skill id.
type Row struct {
	StudentID string             `json:"student_id"`
	Name      string             `json:"name"`
	Scores    map[string]float64 `json:"scores"`
	Total     float64            `json:"total"`
}

// Grid is the in-progress batch score sheet.
type Grid struct {
	Skills []Skill `json:"skills"`
	Rows   []Row   `json:"rows"`
}

// Cell addresses one score. A nil Value clears the cell.
type Cell struct {
	StudentID string   `json:"student_id" binding:"required"`
	SkillID   string   `json:"skill_id" binding:"required"`
	Value     *float64 `json:"value"`
}

// clone returns a deep copy of g.
func (g Grid) clone() Grid {
	out := Grid{Skills: append([]Skill(nil), g.Skills...), Rows: make([]Row, len(g.Rows))}
	for i, r := range g.Rows {
		scores := make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = v
		}
		r.Scores = scores
		out.Rows[i] = r
	}
	return out
}

// SetScore validates and stores a score. On rejection the previous value is kept.
func (g *Grid) SetScore(studentID, skillID string, value float64) error {
	skill, ok := g.skill(skillID)
	if !ok {
		return apperr.NotFound("skill not in batch")
	}
	row := g.row(studentID)
	if row == nil {
		return apperr.NotFound("student not in batch")
	}
	if value < 0 || value > skill.MaxScore {
		return apperr.WithMetadata(apperr.CodeScoreOutOfRange,
			fmt.Sprintf("%s score must be between 0 and %g", skill.Name, skill.MaxScore),
			map[string]string{"skill_id": skillID, "max": fmt.Sprintf("%g", skill.MaxScore)})
	}
	if row.Scores == nil {
		row.Scores = make(map[string]float64)
	}
	row.Scores[skillID] = value
	g.recompute(row)
	return nil
}

// ClearScore removes a score.
func (g *Grid) ClearScore(studentID, skillID string) error {
	row := g.row(studentID)
	if row == nil {
		return apperr.NotFound("student not in batch")
	}
	delete(row.Scores, skillID)
	g.recompute(row)
	return nil
}

// Score returns the score for a cell.
func (g *Grid) Score(studentID, skillID string) (float64, bool) {
	row := g.row(studentID)
	if row == nil {
		return 0, false
	}
	v, ok := row.Scores[skillID]
	return v, ok
}

// AddSkill appends a skill column. Adding an existing skill is a no-op.
func (g *Grid) AddSkill(s Skill) {
	if _, ok := g.skill(s.ID); ok {
		return
	}
	g.Skills = append(g.Skills, s)
}

// RemoveSkill drops a skill column and recomputes every row total.
func (g *Grid) RemoveSkill(skillID string) bool {
	idx := -1
	for i, s := range g.Skills {
		if s.ID == skillID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	g.Skills = append(g.Skills[:idx], g.Skills[idx+1:]...)
	for i := range g.Rows {
		delete(g.Rows[i].Scores, skillID)
		g.recompute(&g.Rows[i])
	}
	return true
}

// AddStudent appends a row. Adding an existing student is a no-op.
func (g *Grid) AddStudent(studentID, name string) {
	if g.row(studentID) != nil {
		return
	}
	g.Rows = append(g.Rows, Row{StudentID: studentID, Name: name, Scores: map[string]float64{}})
}

// RemoveStudent drops a row.
func (g *Grid) RemoveStudent(studentID string) bool {
	for i, r := range g.Rows {
		if r.StudentID == studentID {
			g.Rows = append(g.Rows[:i], g.Rows[i+1:]...)
			return true
		}
	}
	return false
}

// Apply applies a batch of cell edits as a unit: if any cell is rejected,
// none of the batch is kept.
func (g *Grid) Apply(cells []Cell) error {
	cmds := make([]command.Command, 0, len(cells))
	for _, c := range cells {
		cmds = append(cmds, g.cellCommand(c))
	}
	return command.Run(cmds...)
}

func (g *Grid) cellCommand(c Cell) command.Command {
	var prev float64
	var had bool
	return command.Command{
		Apply: func() error {
			prev, had = g.Score(c.StudentID, c.SkillID)
			if c.Value == nil {
				return g.ClearScore(c.StudentID, c.SkillID)
			}
			return g.SetScore(c.StudentID, c.SkillID, *c.Value)
		},
		Rollback: func() {
			if had {
				_ = g.SetScore(c.StudentID, c.SkillID, prev)
			} else {
				_ = g.ClearScore(c.StudentID, c.SkillID)
			}
		},
	}
}

// MaxTotal is the sum of all skill maxima.
func (g *Grid) MaxTotal() float64 {
	var sum float64
	for _, s := range g.Skills {
		sum += s.MaxScore
	}
	return sum
}

func (g *Grid) recompute(row *Row) {
	var sum float64
	for _, s := range g.Skills {
		sum += row.Scores[s.ID]
	}
	row.Total = sum
}

func (g *Grid) skill(id string) (Skill, bool) {
	for _, s := range g.Skills {
		if s.ID == id {
			return s, true
		}
	}
	return Skill{}, false
}

func (g *Grid) row(studentID string) *Row {
	for i := range g.Rows {
		if g.Rows[i].StudentID == studentID {
			return &g.Rows[i]
		}
	}
	return nil
}
