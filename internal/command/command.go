// Package command applies groups of reversible mutations as a unit.
package command

import "fmt"

// Command is a mutation paired with the step that reverts it.
type Command struct {
	Name     string
	Apply    func() error
	Rollback func()
}

// Run applies cmds in order. When one fails, the commands already applied
// are rolled back in reverse order and the failure is returned.
func Run(cmds ...Command) error {
	for i, c := range cmds {
		if err := c.Apply(); err != nil {
			rollback(cmds[:i])
			if c.Name != "" {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			return err
		}
	}
	return nil
}

func rollback(done []Command) {
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].Rollback != nil {
			done[i].Rollback()
		}
	}
}
