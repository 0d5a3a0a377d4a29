// Package toolchain runs compile and link units. The Executor contract is
// deliberately small: it receives a fully assembled unit and reports the
// artifact it produced or a failure carrying the compiler's diagnostic.
package toolchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/envbuild/internal/assembler"
)

// Artifact is the output of one successful unit.
type Artifact struct {
	Path string
	// Output is whatever the tool printed, typically warnings.
	Output string
}

// Failure is a unit the tool rejected.
type Failure struct {
	ExitCode   int
	Diagnostic string
	Err        error
}

func (f *Failure) Error() string {
	diag := strings.TrimSpace(f.Diagnostic)
	if i := strings.IndexByte(diag, '\n'); i >= 0 {
		diag = diag[:i]
	}
	if diag == "" {
		return fmt.Sprintf("exit status %d", f.ExitCode)
	}
	return fmt.Sprintf("exit status %d: %s", f.ExitCode, diag)
}

func (f *Failure) Unwrap() error { return f.Err }

// Executor compiles and links assembled units. Implementations must be safe
// for concurrent Compile calls.
type Executor interface {
	Compile(ctx context.Context, unit *assembler.CompileUnit) (Artifact, error)
	Link(ctx context.Context, unit *assembler.LinkUnit) (Artifact, error)
}
