package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vk/envbuild/internal/assembler"
	"github.com/vk/envbuild/internal/ctxlog"
)

// Command runs units as external processes.
type Command struct {
	// Dir is the working directory, normally the project root.
	Dir string
	// Env is appended to the current environment.
	Env map[string]string
}

// NewCommand returns an executor running tools from dir.
func NewCommand(dir string) *Command {
	return &Command{Dir: dir}
}

// Compile runs the unit's compiler.
func (c *Command) Compile(ctx context.Context, unit *assembler.CompileUnit) (Artifact, error) {
	return c.run(ctx, unit.Argv(), unit.Object)
}

// Link runs the linker.
func (c *Command) Link(ctx context.Context, unit *assembler.LinkUnit) (Artifact, error) {
	return c.run(ctx, unit.Argv(), unit.Output)
}

func (c *Command) run(ctx context.Context, argv []string, output string) (Artifact, error) {
	if len(argv) == 0 {
		return Artifact{}, errors.New("empty command")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	ctxlog.FromContext(ctx).Debug("Running tool.", "tool", argv[0], "output", output)
	if err := cmd.Run(); err != nil {
		f := &Failure{ExitCode: -1, Diagnostic: combined.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			f.ExitCode = exitErr.ExitCode()
		}
		return Artifact{}, f
	}
	return Artifact{Path: output, Output: combined.String()}, nil
}

var _ Executor = (*Command)(nil)
