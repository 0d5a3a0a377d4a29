package toolchain

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vk/envbuild/internal/assembler"
)

// Recorder is an Executor that runs nothing. It records every command and
// reports success unless a failure was configured for the source. It backs
// dry runs and tests.
type Recorder struct {
	mu    sync.Mutex
	calls [][]string
	// fail maps a source base name to the failure reported for it.
	fail map[string]error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[string]error)}
}

// FailOn makes every unit compiling a file named base fail with err.
func (r *Recorder) FailOn(base string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[base] = err
	return r
}

// Compile records the unit.
func (r *Recorder) Compile(ctx context.Context, unit *assembler.CompileUnit) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, unit.Argv())
	if err, ok := r.fail[filepath.Base(unit.Source.Path)]; ok {
		return Artifact{}, err
	}
	return Artifact{Path: unit.Object}, nil
}

// Link records the link unit.
func (r *Recorder) Link(ctx context.Context, unit *assembler.LinkUnit) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, unit.Argv())
	return Artifact{Path: unit.Output}, nil
}

// Calls returns the recorded argument vectors sorted by their joined text,
// since concurrent compiles are recorded in completion order.
func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([][]string(nil), r.calls...)
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

func key(argv []string) string { return strings.Join(argv, "\x00") }

var _ Executor = (*Recorder)(nil)
