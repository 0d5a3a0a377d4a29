package flags

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/ctxlog"
)

// Defaults are the stage-1 base flags, already in raw manifest syntax.
type Defaults struct {
	Flags []string
}

// Mutation is one hook invocation. It runs to completion before the pipeline
// reads the stage's contributions.
type Mutation struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

type pipelineState int

const (
	stateBase pipelineState = iota
	statePreDone
	statePostDone
	stateFinal
)

// Pipeline builds the global and src-only flag sets of one environment,
// stage by stage. It is not safe for concurrent use.
type Pipeline struct {
	desc       *config.Environment
	projectDir string
	global     *Set
	src        *Set
	state      pipelineState
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProjectDir sets the directory hooks see as the project root.
func WithProjectDir(dir string) Option {
	return func(p *Pipeline) { p.projectDir = dir }
}

// NewPipeline runs stages 1 to 4: base defaults, build_type defaults,
// build_flags and build_src_flags.
func NewPipeline(ctx context.Context, desc *config.Environment, defaults Defaults, opts ...Option) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	p := &Pipeline{desc: desc, global: NewSet(), src: NewSet()}
	for _, opt := range opts {
		opt(p)
	}

	for _, raw := range defaults.Flags {
		tokens, err := Tokenize(raw, OriginBaseDefault, ScopeGlobal)
		if err != nil {
			return nil, builderr.Manifest(desc.Name, "", "base defaults: %v", err)
		}
		p.global.Append(tokens...)
	}
	logger.Debug("Stage 1: base defaults applied.", "count", p.global.Len())

	if desc.BuildType == config.BuildDebug {
		if err := p.applyDebugDefaults(); err != nil {
			return nil, err
		}
		logger.Debug("Stage 2: debug defaults applied.", "count", p.global.Len())
	}

	buildFlags, err := Tokenize(desc.BuildFlags, OriginManifest, ScopeGlobal)
	if err != nil {
		return nil, builderr.Manifest(desc.Name, "", "build_flags: %v", err)
	}
	p.global.Append(buildFlags...)
	logger.Debug("Stage 3: build_flags applied.", "count", len(buildFlags))

	srcFlags, err := Tokenize(desc.BuildSrcFlags, OriginManifest, ScopeSrcOnly)
	if err != nil {
		return nil, builderr.Manifest(desc.Name, "", "build_src_flags: %v", err)
	}
	p.src.Append(srcFlags...)
	logger.Debug("Stage 4: build_src_flags applied.", "count", len(srcFlags))

	return p, nil
}

// applyDebugDefaults fills each identity slot with the custom debug flag if
// one was given, else with the default. Base-default members of a filled
// slot are displaced.
func (p *Pipeline) applyDebugDefaults() error {
	var custom []Token
	if strings.TrimSpace(p.desc.DebugBuildFlags) != "" {
		var err error
		custom, err = Tokenize(p.desc.DebugBuildFlags, OriginManifest, ScopeGlobal)
		if err != nil {
			return builderr.Manifest(p.desc.Name, "", "debug_build_flags: %v", err)
		}
	}
	defaults, err := Tokenize(DefaultDebugFlags, OriginDebugDefault, ScopeGlobal)
	if err != nil {
		return err
	}

	supplied := make(map[Family]bool)
	for _, t := range custom {
		if fam, ok := FamilyOf(t.Arg); ok {
			supplied[fam] = true
		}
	}

	place := func(t Token) {
		fam, ok := FamilyOf(t.Arg)
		if !ok {
			p.global.Append(t)
			return
		}
		p.global.Override(t, func(cur Token) bool {
			f, ok := FamilyOf(cur.Arg)
			return ok && f == fam && cur.Origin == OriginBaseDefault
		})
	}

	for _, t := range custom {
		place(t)
	}
	for _, t := range defaults {
		fam, _ := FamilyOf(t.Arg)
		if supplied[fam] {
			continue
		}
		place(t)
	}
	p.global.Append(NewToken(DebugDefine, "", "", OriginDebugDefault, ScopeGlobal))
	return nil
}

// RunStage executes the hooks of one stage in order. Their contributions are
// appended only after every hook of the stage has returned.
func (p *Pipeline) RunStage(ctx context.Context, stage config.Stage, mutations []Mutation) error {
	switch stage {
	case config.StagePre:
		if p.state != stateBase {
			return fmt.Errorf("pre stage must run before post stage and finalize")
		}
	case config.StagePost:
		if p.state > statePreDone {
			return fmt.Errorf("post stage already ran")
		}
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	logger := ctxlog.FromContext(ctx)
	buf := &stageBuffer{}
	for _, m := range mutations {
		if err := ctx.Err(); err != nil {
			return err
		}
		env := newEnv(p.desc.Name, p.projectDir, p.desc.Options, buf)
		logger.Debug("Running hook.", "stage", stage, "hook", m.Name)
		if err := m.Run(ctx, env); err != nil {
			return builderr.WithEnv(err, p.desc.Name)
		}
		if err := buf.err(); err != nil {
			return builderr.Hook(p.desc.Name, m.Name, err)
		}
	}

	for _, t := range buf.tokens {
		if t.Scope == ScopeSrcOnly {
			p.src.Append(t)
		} else {
			p.global.Append(t)
		}
	}
	if stage == config.StagePre {
		p.state = statePreDone
	} else {
		p.state = statePostDone
	}
	logger.Debug("Stage complete.", "stage", stage, "hooks", len(mutations), "tokens", len(buf.tokens))
	return nil
}

// AddDependencyIncludes appends include paths discovered by the dependency
// finder. They are global so library units can see each other's interfaces.
// A dir the global set already carries keeps its original token.
func (p *Pipeline) AddDependencyIncludes(dirs []string) {
	for _, d := range dirs {
		t := NewToken("-I"+d, "", "", OriginDependency, ScopeGlobal)
		if p.global.Has(t.Normalized) {
			continue
		}
		p.global.Append(t)
	}
}

// IncludePaths returns the include directories currently in the global and
// src-only sets, in order and without duplicates.
func (p *Pipeline) IncludePaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range []*Set{p.global, p.src} {
		for _, t := range set.Filter(CategoryIncludePath) {
			dir := strings.TrimPrefix(t.Normalized, "-I")
			if t.Operand != "" {
				dir = t.Operand
			}
			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out
}

// Finalize runs the unflag pass and collapses duplicates. The pipeline cannot
// be used afterwards.
func (p *Pipeline) Finalize(ctx context.Context) (global, src *Set, err error) {
	if p.state == stateFinal {
		return nil, nil, fmt.Errorf("pipeline already finalized")
	}
	unflags, err := Tokenize(p.desc.BuildUnflags, OriginManifest, ScopeGlobal)
	if err != nil {
		return nil, nil, builderr.Manifest(p.desc.Name, "", "build_unflags: %v", err)
	}

	logger := ctxlog.FromContext(ctx)
	for _, u := range unflags {
		removed := 0
		for _, set := range []*Set{p.global, p.src} {
			removed += set.Remove(u.Normalized)
			if fam, ok := FamilyOf(u.Arg); ok {
				removed += set.RemoveFunc(func(t Token) bool {
					f, ok := FamilyOf(t.Arg)
					return ok && f == fam && t.Origin.IsDefault()
				})
			}
		}
		logger.Debug("Unflag applied.", "flag", u.Normalized, "removed", removed)
	}

	p.global.Dedupe()
	p.src.Dedupe()
	p.state = stateFinal
	return p.global, p.src, nil
}

// Resolve runs the whole pipeline without a dependency-finder step in between.
func Resolve(ctx context.Context, desc *config.Environment, defaults Defaults, hooks map[config.Stage][]Mutation, opts ...Option) (global, src *Set, err error) {
	p, err := NewPipeline(ctx, desc, defaults, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := p.RunStage(ctx, config.StagePre, hooks[config.StagePre]); err != nil {
		return nil, nil, err
	}
	if err := p.RunStage(ctx, config.StagePost, hooks[config.StagePost]); err != nil {
		return nil, nil, err
	}
	return p.Finalize(ctx)
}
