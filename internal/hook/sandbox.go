package hook

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/flags"
)

const entryPoint = "main.Apply"

// defaultAllowed are the imports a script may use. Nothing that reaches the
// filesystem, the network or other processes is listed.
var defaultAllowed = []string{
	ImportPath,
	"errors",
	"fmt",
	"path",
	"path/filepath",
	"regexp",
	"sort",
	"strconv",
	"strings",
}

// Sandbox loads scripts into isolated interpreters.
type Sandbox struct {
	allowed map[string]bool
}

// NewSandbox returns a sandbox with the default import whitelist plus extra.
func NewSandbox(extra ...string) *Sandbox {
	s := &Sandbox{allowed: make(map[string]bool)}
	for _, pkg := range append(defaultAllowed, extra...) {
		s.allowed[pkg] = true
	}
	return s
}

// Script is a loaded hook ready to run.
type Script struct {
	Path  string
	Stage config.Stage
	apply func(*flags.Env) error
}

// Load interprets the script referenced by ref. Relative paths resolve
// against projectDir. Every failure is a hook error.
func (s *Sandbox) Load(ctx context.Context, projectDir string, ref config.ScriptRef) (*Script, error) {
	path := ref.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectDir, path)
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return nil, builderr.Hook("", ref.Path, err)
	}
	if err := s.validateImports(path, code); err != nil {
		return nil, builderr.Hook("", ref.Path, err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, builderr.Hook("", ref.Path, fmt.Errorf("failed to load stdlib: %w", err))
	}
	if err := i.Use(Symbols); err != nil {
		return nil, builderr.Hook("", ref.Path, fmt.Errorf("failed to load build API: %w", err))
	}
	if _, err := i.EvalWithContext(ctx, string(code)); err != nil {
		return nil, builderr.Hook("", ref.Path, fmt.Errorf("evaluation failed: %w", err))
	}

	fnValue, err := i.Eval(entryPoint)
	if err != nil {
		return nil, builderr.Hook("", ref.Path, fmt.Errorf("script must define func Apply(env *build.Env) error: %w", err))
	}

	var apply func(*flags.Env) error
	switch fn := fnValue.Interface().(type) {
	case func(*flags.Env) error:
		apply = fn
	case func(*flags.Env):
		apply = func(env *flags.Env) error { fn(env); return nil }
	default:
		return nil, builderr.Hook("", ref.Path, fmt.Errorf("Apply has signature %T, want func(*build.Env) error", fn))
	}

	ctxlog.FromContext(ctx).Debug("Hook script loaded.", "path", ref.Path, "stage", ref.Stage)
	return &Script{Path: ref.Path, Stage: ref.Stage, apply: apply}, nil
}

// validateImports rejects scripts importing anything outside the whitelist.
func (s *Sandbox) validateImports(path string, code []byte) error {
	f, err := parser.ParseFile(token.NewFileSet(), path, code, parser.ImportsOnly)
	if err != nil {
		return err
	}
	if f.Name.Name != "main" {
		return fmt.Errorf("script must be in package main, found %q", f.Name.Name)
	}

	var forbidden []string
	for _, imp := range f.Imports {
		pkg, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return err
		}
		if !s.allowed[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		sort.Strings(forbidden)
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}

// Run calls the script's Apply. It returns when Apply does or when ctx is
// done, whichever comes first. Interpreted code cannot be preempted: after
// ctx is done the goroutine running Apply is abandoned, not stopped, and a
// script that never returns keeps it for the life of the process.
func (sc *Script) Run(ctx context.Context, env *flags.Env) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("script panicked: %v", r)
			}
		}()
		done <- sc.apply(env)
	}()

	select {
	case err := <-done:
		if err != nil {
			return builderr.Hook("", sc.Path, err)
		}
		return nil
	case <-ctx.Done():
		return builderr.Hook("", sc.Path, fmt.Errorf("script interrupted: %w", ctx.Err()))
	}
}

// Mutation adapts the script to the flag pipeline.
func (sc *Script) Mutation() flags.Mutation {
	return flags.Mutation{Name: sc.Path, Run: sc.Run}
}

// LoadAll loads every extra_scripts entry of desc and groups them by stage,
// keeping declaration order. All load failures are reported together.
func (s *Sandbox) LoadAll(ctx context.Context, projectDir string, desc *config.Environment) (map[config.Stage][]flags.Mutation, error) {
	out := make(map[config.Stage][]flags.Mutation)
	var errs []error
	for _, stage := range []config.Stage{config.StagePre, config.StagePost} {
		for _, ref := range desc.ScriptsAt(stage) {
			sc, err := s.Load(ctx, projectDir, ref)
			if err != nil {
				errs = append(errs, builderr.WithEnv(err, desc.Name))
				continue
			}
			out[stage] = append(out[stage], sc.Mutation())
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
