// Package builderr defines the error taxonomy shared by every stage of an
// environment build. Each error is classified by a string Kind and carries the
// environment it belongs to and, where one exists, the offending path.
package builderr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a build failure. Kinds are strings so they read well in
// structured logs.
type Kind string

const (
	// KindManifest covers malformed flag syntax and invalid option values.
	KindManifest Kind = "MANIFEST_ERROR"

	// KindResolution covers missing or unreadable locator targets and
	// malformed library descriptors.
	KindResolution Kind = "RESOLUTION_ERROR"

	// KindGraph indicates the dependency graph's visited-set invariant was
	// violated. It is an internal consistency fault.
	KindGraph Kind = "GRAPH_ERROR"

	// KindHook indicates a user hook script failed to load or returned an error.
	KindHook Kind = "HOOK_ERROR"

	// KindCompile is reported by the toolchain executor for a single unit.
	KindCompile Kind = "COMPILE_UNIT_FAILURE"
)

// Error is a classified build error scoped to one environment.
type Error struct {
	Kind Kind
	Env  string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Env != "" {
		fmt.Fprintf(&b, " [env:%s]", e.Env)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind only, so callers can write
// errors.Is(err, &builderr.Error{Kind: builderr.KindManifest}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Env == "" || t.Env == e.Env)
}

// Manifest returns a KindManifest error.
func Manifest(env, path string, format string, args ...any) *Error {
	return &Error{Kind: KindManifest, Env: env, Path: path, Err: fmt.Errorf(format, args...)}
}

// Resolution returns a KindResolution error.
func Resolution(env, path string, err error) *Error {
	return &Error{Kind: KindResolution, Env: env, Path: path, Err: err}
}

// Graph returns a KindGraph error.
func Graph(env string, format string, args ...any) *Error {
	return &Error{Kind: KindGraph, Env: env, Err: fmt.Errorf(format, args...)}
}

// Hook returns a KindHook error for the script at path.
func Hook(env, path string, err error) *Error {
	return &Error{Kind: KindHook, Env: env, Path: path, Err: err}
}

// Compile returns a KindCompile error for the unit built from source.
func Compile(env, source string, err error) *Error {
	return &Error{Kind: KindCompile, Env: env, Path: source, Err: err}
}

// WithEnv stamps env onto err if it is an *Error without one. Other errors
// are returned unchanged.
func WithEnv(err error, env string) error {
	var be *Error
	if errors.As(err, &be) && be.Env == "" {
		be.Env = env
	}
	return err
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// CompileFailures aggregates per-unit failures after every unit has been
// attempted.
type CompileFailures struct {
	Env      string
	Failures []*Error
}

func (c *CompileFailures) Error() string {
	parts := make([]string, 0, len(c.Failures))
	for _, f := range c.Failures {
		parts = append(parts, f.Path)
	}
	return fmt.Sprintf("%d unit(s) failed in env %q: %s", len(c.Failures), c.Env, strings.Join(parts, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (c *CompileFailures) Unwrap() []error {
	errs := make([]error, len(c.Failures))
	for i, f := range c.Failures {
		errs[i] = f
	}
	return errs
}
