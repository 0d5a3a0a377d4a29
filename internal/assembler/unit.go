package assembler

import (
	"strings"

	"github.com/vk/envbuild/internal/dag"
	"github.com/vk/envbuild/internal/flags"
)

// Scope tells which flag sets a source file receives.
type Scope int

const (
	// ScopeProject marks a file from the project's own src dir.
	ScopeProject Scope = iota
	// ScopeLibrary marks a file belonging to a discovered library.
	ScopeLibrary
)

func (s Scope) String() string {
	if s == ScopeLibrary {
		return "library"
	}
	return "project-src"
}

// SourceFile is one translation unit input.
type SourceFile struct {
	// Path is absolute.
	Path  string
	Scope Scope
	// Owner is the graph node the file belongs to; RootID for project files.
	Owner dag.NodeID
}

// CompileUnit is one source file with its fully resolved, ordered flags.
type CompileUnit struct {
	Source   SourceFile
	Compiler string
	// Object is the absolute artifact path.
	Object string
	// Flags are the effective tokens in argv order.
	Flags []flags.Token
	// Args is the argument vector after the compiler name.
	Args []string
	// Visible is Args as rendered in the transcript, with internal tokens
	// elided and paths shown relative to the project.
	Visible []string
}

// Argv returns the full command line handed to the toolchain.
func (u *CompileUnit) Argv() []string {
	return append([]string{u.Compiler}, u.Args...)
}

// Transcript returns the human-visible line for the unit.
func (u *CompileUnit) Transcript() string {
	return strings.Join(append([]string{u.Compiler}, u.Visible...), " ")
}

// LinkUnit links every object of a plan into the program.
type LinkUnit struct {
	Linker  string
	Output  string
	Objects []string
	Flags   []flags.Token
	Args    []string
	Visible []string
}

// Argv returns the full link command line.
func (u *LinkUnit) Argv() []string {
	return append([]string{u.Linker}, u.Args...)
}

// Transcript returns the human-visible link line.
func (u *LinkUnit) Transcript() string {
	return strings.Join(append([]string{u.Linker}, u.Visible...), " ")
}

// Plan is the assembled build of one environment.
type Plan struct {
	Env         string
	ProjectRoot string
	Units       []*CompileUnit
	// Link is nil when there is nothing to link.
	Link *LinkUnit
}

// Transcript returns one line per compile unit, in unit order, followed by
// the link line.
func (p *Plan) Transcript() []string {
	lines := make([]string, 0, len(p.Units)+1)
	for _, u := range p.Units {
		lines = append(lines, u.Transcript())
	}
	if p.Link != nil {
		lines = append(lines, p.Link.Transcript())
	}
	return lines
}
