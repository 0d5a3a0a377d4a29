// Package executor hands assembled units to the toolchain. Compiles run in
// parallel, bounded by a worker count; units share no mutable state so no
// locking is needed beyond collecting results.
package executor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/vk/envbuild/internal/assembler"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/toolchain"
	"golang.org/x/sync/errgroup"
)

// Dispatcher compiles and links the units of a plan.
type Dispatcher struct {
	toolchain toolchain.Executor
	jobs      int
	// transcript receives one line per unit, in unit order.
	transcript io.Writer
}

// Result holds the artifacts of a successful run, in unit order.
type Result struct {
	Objects []toolchain.Artifact
	Program *toolchain.Artifact
}

// New creates a dispatcher. A non-positive jobs value means one worker per
// CPU. transcript may be nil.
func New(tc toolchain.Executor, jobs int, transcript io.Writer) *Dispatcher {
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}
	if transcript == nil {
		transcript = io.Discard
	}
	return &Dispatcher{toolchain: tc, jobs: jobs, transcript: transcript}
}

// Run compiles every unit, then links if all of them succeeded. A failing
// unit does not stop its siblings; failures are reported together as
// *builderr.CompileFailures once every unit has been attempted.
func (d *Dispatcher) Run(ctx context.Context, plan *assembler.Plan) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	for _, u := range plan.Units {
		fmt.Fprintln(d.transcript, u.Transcript())
	}

	objects := make([]toolchain.Artifact, len(plan.Units))
	failures := make([]error, len(plan.Units))

	var g errgroup.Group
	g.SetLimit(d.jobs)
	logger.Debug("Dispatching compile units.", "units", len(plan.Units), "jobs", d.jobs)
	for i, u := range plan.Units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return nil
			}
			unitLogger := logger.With("unit", i, "source", display(plan, u.Source.Path))
			art, err := d.toolchain.Compile(ctx, u)
			if err != nil {
				unitLogger.Debug("Compile unit failed.", "error", err)
				failures[i] = err
				return nil
			}
			objects[i] = art
			return nil
		})
	}
	// Workers never return errors; failures are collected per unit.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agg := &builderr.CompileFailures{Env: plan.Env}
	for i, err := range failures {
		if err != nil {
			agg.Failures = append(agg.Failures, builderr.Compile(plan.Env, display(plan, plan.Units[i].Source.Path), err))
		}
	}
	if len(agg.Failures) > 0 {
		logger.Error("Compilation failed.", "failed", len(agg.Failures), "units", len(plan.Units))
		return nil, agg
	}

	res := &Result{Objects: objects}
	if plan.Link != nil {
		fmt.Fprintln(d.transcript, plan.Link.Transcript())
		art, err := d.toolchain.Link(ctx, plan.Link)
		if err != nil {
			return nil, builderr.Compile(plan.Env, display(plan, plan.Link.Output), err)
		}
		res.Program = &art
	}
	logger.Info("Build finished.", "units", len(plan.Units), "duration", time.Since(start).String())
	return res, nil
}

func display(plan *assembler.Plan, path string) string {
	if rel, err := filepath.Rel(plan.ProjectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}
