package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/ligustah/acquire/pkg/acquire"
)

// Command runs an external program for each unit. Every argument is a
// template rendered with the unit.
type Command struct {
	argv []*template.Template

	// Dir is the working directory. Empty means the current one.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
	Logger zerolog.Logger
}

// NewCommand parses argv. The first element is the program.
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 {
		return nil, errors.New("trigger: empty command")
	}
	c := &Command{Logger: zerolog.Nop()}
	for i, a := range argv {
		t, err := parseTemplate(fmt.Sprintf("arg%d", i), a)
		if err != nil {
			return nil, err
		}
		c.argv = append(c.argv, t)
	}
	return c, nil
}

// Args renders the command line for unit.
func (c *Command) Args(unit acquire.UnitRequest) ([]string, error) {
	args := make([]string, 0, len(c.argv))
	for _, t := range c.argv {
		a, err := render(t, unit)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, nil
}

// Fire runs the command and waits for it to exit.
func (c *Command) Fire(ctx context.Context, unit acquire.UnitRequest) error {
	args, err := c.Args(unit)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	c.Logger.Debug().Strs("args", args).Str("unit", unit.ID).Msg("running command")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s: %w", args[0], err)
	}
	return nil
}
