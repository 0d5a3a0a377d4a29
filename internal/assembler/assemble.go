package assembler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/dag"
	"github.com/vk/envbuild/internal/flags"
	"github.com/vk/envbuild/internal/registry"
)

// Options carries the per-environment inputs that are not flags.
type Options struct {
	Env         string
	ProjectRoot string
	// BuildDir is the absolute artifact directory of the environment.
	BuildDir string
	Platform *registry.Platform
}

// Assemble builds one compile unit per source, in the given order, and the
// link unit over their objects.
func Assemble(ctx context.Context, global, srcOnly *flags.Set, g *dag.Graph, sources []SourceFile, opts Options) (*Plan, error) {
	if opts.Platform == nil {
		return nil, fmt.Errorf("assemble %s: no platform", opts.Env)
	}
	logger := ctxlog.FromContext(ctx)
	a := &assembly{opts: opts, graph: g, libTokens: make(map[dag.NodeID][]flags.Token)}

	plan := &Plan{Env: opts.Env, ProjectRoot: opts.ProjectRoot}
	cxx := false
	for _, src := range sources {
		u, err := a.unit(global, srcOnly, src)
		if err != nil {
			return nil, err
		}
		cxx = cxx || u.Compiler == opts.Platform.CXX
		plan.Units = append(plan.Units, u)
	}

	if len(plan.Units) > 0 {
		link, err := a.link(global, srcOnly, plan.Units, cxx)
		if err != nil {
			return nil, err
		}
		plan.Link = link
	}
	logger.Debug("Build plan assembled.", "units", len(plan.Units), "libraries", g.Len()-1)
	return plan, nil
}

type assembly struct {
	opts      Options
	graph     *dag.Graph
	libTokens map[dag.NodeID][]flags.Token
}

func (a *assembly) unit(global, srcOnly *flags.Set, src SourceFile) (*CompileUnit, error) {
	tokens := compileTokens(global.Tokens())
	switch src.Scope {
	case ScopeProject:
		tokens = append(tokens, compileTokens(srcOnly.Tokens())...)
	case ScopeLibrary:
		own, err := a.libraryTokens(src.Owner)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, compileTokens(own)...)
	}
	tokens = order(tokens)

	object, err := a.object(src)
	if err != nil {
		return nil, err
	}
	u := &CompileUnit{
		Source:   src,
		Compiler: a.opts.Platform.CompilerFor(src.Path),
		Object:   object,
		Flags:    tokens,
	}

	u.Args = append(u.Args, "-o", object, "-c")
	u.Visible = append(u.Visible, "-o", flags.Quote(a.display(object)), "-c")
	for _, t := range tokens {
		u.Args = append(u.Args, t.Argv()...)
	}
	u.Visible = append(u.Visible, flags.VisibleArgs(tokens)...)
	u.Args = append(u.Args, src.Path)
	u.Visible = append(u.Visible, flags.Quote(a.display(src.Path)))
	return u, nil
}

// libraryTokens tokenizes a library's declared flags once per node. Compile
// tokens go to the library's own units, link tokens to the link unit.
func (a *assembly) libraryTokens(id dag.NodeID) ([]flags.Token, error) {
	if tokens, ok := a.libTokens[id]; ok {
		return tokens, nil
	}
	node := a.graph.Node(id)
	if node == nil || node.Candidate == nil {
		return nil, builderr.Graph(a.opts.Env, "library unit owned by unknown node %d", id)
	}
	c := node.Candidate
	tokens, err := flags.Tokenize(c.Flags, flags.OriginLibrary, flags.ScopeGlobal)
	if err != nil {
		return nil, builderr.Resolution(a.opts.Env, c.DescriptorPath, fmt.Errorf("build.flags: %w", err))
	}
	a.libTokens[id] = tokens
	return tokens, nil
}

func (a *assembly) object(src SourceFile) (string, error) {
	var rel string
	switch src.Scope {
	case ScopeLibrary:
		node := a.graph.Node(src.Owner)
		if node == nil || node.Candidate == nil {
			return "", builderr.Graph(a.opts.Env, "library unit owned by unknown node %d", src.Owner)
		}
		r, err := filepath.Rel(node.Candidate.Root, src.Path)
		if err != nil || strings.HasPrefix(r, "..") {
			r = filepath.Base(src.Path)
		}
		rel = filepath.Join("lib", node.Name, r)
	default:
		r, err := filepath.Rel(a.opts.ProjectRoot, src.Path)
		if err != nil || strings.HasPrefix(r, "..") {
			r = filepath.Join("src", filepath.Base(src.Path))
		}
		rel = r
	}
	return filepath.Join(a.opts.BuildDir, rel+".o"), nil
}

// link builds the link unit. Link flags and libraries are gathered from the
// platform, the global set, the src-only set and every library's declared
// flags, in that order. A repeated token keeps its first position.
func (a *assembly) link(global, srcOnly *flags.Set, units []*CompileUnit, cxx bool) (*LinkUnit, error) {
	var base []flags.Token
	for _, raw := range a.opts.Platform.LinkFlags {
		tokens, err := flags.Tokenize(raw, flags.OriginBaseDefault, flags.ScopeGlobal)
		if err != nil {
			return nil, builderr.Manifest(a.opts.Env, "", "platform %s link flags: %v", a.opts.Platform.Name, err)
		}
		base = append(base, tokens...)
	}

	var options, dirs, libs []flags.Token
	seen := make(map[string]bool)
	place := func(t flags.Token) {
		if seen[t.Normalized] {
			return
		}
		seen[t.Normalized] = true
		switch {
		case t.Category == flags.CategoryLibrary:
			libs = append(libs, t)
		case t.Category == flags.CategoryLinkFlag && strings.HasPrefix(t.Arg, "-L"):
			dirs = append(dirs, t)
		default:
			options = append(options, t)
		}
	}
	for _, t := range base {
		place(t)
	}
	for _, t := range linkTokens(global.Tokens()) {
		place(t)
	}
	for _, t := range linkTokens(srcOnly.Tokens()) {
		place(t)
	}
	for _, n := range a.graph.Libraries() {
		own, err := a.libraryTokens(n.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range linkTokens(own) {
			place(t)
		}
	}
	tokens := append(append(options, dirs...), libs...)

	name := a.opts.Platform.ProgramName
	if name == "" {
		name = "program"
	}
	lu := &LinkUnit{
		Linker: a.opts.Platform.CC,
		Output: filepath.Join(a.opts.BuildDir, name),
		Flags:  tokens,
	}
	if cxx {
		lu.Linker = a.opts.Platform.CXX
	}

	lu.Args = append(lu.Args, "-o", lu.Output)
	lu.Visible = append(lu.Visible, "-o", flags.Quote(a.display(lu.Output)))
	for _, u := range units {
		lu.Objects = append(lu.Objects, u.Object)
		lu.Args = append(lu.Args, u.Object)
		lu.Visible = append(lu.Visible, flags.Quote(a.display(u.Object)))
	}
	for _, t := range tokens {
		lu.Args = append(lu.Args, t.Argv()...)
	}
	lu.Visible = append(lu.Visible, flags.VisibleArgs(tokens)...)
	return lu, nil
}

// display shows paths inside the project relative to its root.
func (a *assembly) display(path string) string {
	if rel, err := filepath.Rel(a.opts.ProjectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func compileTokens(tokens []flags.Token) []flags.Token {
	var out []flags.Token
	for _, t := range tokens {
		switch t.Category {
		case flags.CategoryCompileFlag, flags.CategoryDefine, flags.CategoryIncludePath:
			out = append(out, t)
		}
	}
	return out
}

func linkTokens(tokens []flags.Token) []flags.Token {
	var out []flags.Token
	for _, t := range tokens {
		if t.Category == flags.CategoryLinkFlag || t.Category == flags.CategoryLibrary {
			out = append(out, t)
		}
	}
	return out
}

// order lays tokens out as compile flags, defines, include paths. Relative
// order inside each group is kept.
func order(tokens []flags.Token) []flags.Token {
	out := make([]flags.Token, 0, len(tokens))
	for _, cat := range []flags.Category{flags.CategoryCompileFlag, flags.CategoryDefine, flags.CategoryIncludePath} {
		for _, t := range tokens {
			if t.Category == cat {
				out = append(out, t)
			}
		}
	}
	return out
}
