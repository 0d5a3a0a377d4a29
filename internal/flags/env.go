package flags

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// InputKind tags the shape of an Input.
type InputKind int

const (
	InputScalar InputKind = iota
	InputList
	InputKeyValue
)

// Input is the value a hook passes to an Append call: a scalar, a list of
// scalars, or a name/value pair.
type Input struct {
	Kind   InputKind
	Values []string
	Key    string
	Value  string
}

// Scalar wraps a single value.
func Scalar(v string) Input { return Input{Kind: InputScalar, Values: []string{v}} }

// List wraps several values.
func List(vs ...string) Input { return Input{Kind: InputList, Values: vs} }

// Pair wraps a name/value pair such as a define with a value. A nil value
// yields a bare name.
func Pair(key string, value any) Input {
	in := Input{Kind: InputKeyValue, Key: key}
	if value != nil {
		in.Value = fmt.Sprint(value)
	}
	return in
}

// stageBuffer collects one stage's hook contributions until the stage ends.
type stageBuffer struct {
	mu     sync.Mutex
	tokens []Token
	errs   []error
}

func (b *stageBuffer) add(tokens ...Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, tokens...)
}

func (b *stageBuffer) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, err)
}

func (b *stageBuffer) err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

// Env is the capability handed to a hook script. It can only add flags, one
// method per category, and read the environment's options.
type Env struct {
	name       string
	projectDir string
	options    map[string]string
	buf        *stageBuffer
	project    *ProjectEnv
}

// ProjectEnv is the narrower handle whose additions reach project sources
// only.
type ProjectEnv struct {
	buf *stageBuffer
}

func newEnv(name, projectDir string, options map[string]string, buf *stageBuffer) *Env {
	return &Env{name: name, projectDir: projectDir, options: options, buf: buf, project: &ProjectEnv{buf: buf}}
}

// Name returns the environment name.
func (e *Env) Name() string { return e.name }

// Option returns a raw manifest option, or "" when unset.
func (e *Env) Option(key string) string { return e.options[key] }

// ProjectDir returns the absolute project root.
func (e *Env) ProjectDir() string { return e.projectDir }

// Project returns the src-only handle.
func (e *Env) Project() *ProjectEnv { return e.project }

// AppendDefines adds -D defines to every unit.
func (e *Env) AppendDefines(in Input) {
	appendInput(e.buf, CategoryDefine, ScopeGlobal, in)
}

// AppendIncludePaths adds include directories to every unit.
func (e *Env) AppendIncludePaths(in Input) {
	appendInput(e.buf, CategoryIncludePath, ScopeGlobal, in)
}

// AppendFlags adds raw flags to every unit. Values are tokenized like
// build_flags.
func (e *Env) AppendFlags(in Input) {
	appendInput(e.buf, CategoryCompileFlag, ScopeGlobal, in)
}

// AppendLibs adds libraries to the link unit.
func (e *Env) AppendLibs(in Input) {
	appendInput(e.buf, CategoryLibrary, ScopeGlobal, in)
}

func (p *ProjectEnv) AppendDefines(in Input) {
	appendInput(p.buf, CategoryDefine, ScopeSrcOnly, in)
}

func (p *ProjectEnv) AppendIncludePaths(in Input) {
	appendInput(p.buf, CategoryIncludePath, ScopeSrcOnly, in)
}

func (p *ProjectEnv) AppendFlags(in Input) {
	appendInput(p.buf, CategoryCompileFlag, ScopeSrcOnly, in)
}

func (p *ProjectEnv) AppendLibs(in Input) {
	appendInput(p.buf, CategoryLibrary, ScopeSrcOnly, in)
}

func appendInput(buf *stageBuffer, cat Category, scope Scope, in Input) {
	tokens, err := FromInput(cat, scope, OriginScript, in)
	if err != nil {
		buf.fail(err)
		return
	}
	buf.add(tokens...)
}

// FromInput normalizes a hook Input into tokens of the given category.
func FromInput(cat Category, scope Scope, origin Origin, in Input) ([]Token, error) {
	var values []string
	switch in.Kind {
	case InputScalar, InputList:
		values = in.Values
	case InputKeyValue:
		if strings.TrimSpace(in.Key) == "" {
			return nil, fmt.Errorf("%s pair has an empty name", cat)
		}
		switch cat {
		case CategoryDefine:
			if in.Value == "" {
				values = []string{in.Key}
			} else {
				values = []string{in.Key + "=" + in.Value}
			}
		case CategoryCompileFlag:
			values = []string{in.Key + "=" + in.Value}
		default:
			return nil, fmt.Errorf("%s does not accept a name/value pair", cat)
		}
	default:
		return nil, fmt.Errorf("unknown input kind %d", in.Kind)
	}

	var out []Token
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch cat {
		case CategoryDefine:
			out = append(out, NewToken("-D"+strings.TrimPrefix(v, "-D"), "", v, origin, scope))
		case CategoryIncludePath:
			out = append(out, NewToken("-I"+filepath.Clean(strings.TrimPrefix(v, "-I")), "", v, origin, scope))
		case CategoryLibrary:
			if isArchive(v) {
				out = append(out, NewToken(v, "", v, origin, scope))
			} else {
				out = append(out, NewToken("-l"+strings.TrimPrefix(v, "-l"), "", v, origin, scope))
			}
		default:
			tokens, err := Tokenize(v, origin, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, tokens...)
		}
	}
	return out, nil
}
