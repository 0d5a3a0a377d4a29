package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Model is the unified representation of a project manifest.
type Model struct {
	Project      *Project
	Environments []*Environment // declaration order
}

// Environment returns the named environment, or nil.
func (m *Model) Environment(name string) *Environment {
	for _, env := range m.Environments {
		if env.Name == name {
			return env
		}
	}
	return nil
}

// Select returns the environments to build. An explicit list wins, then the
// project's default_envs, then every declared environment.
func (m *Model) Select(names []string) ([]*Environment, error) {
	if len(names) == 0 && m.Project != nil {
		names = m.Project.DefaultEnvs
	}
	if len(names) == 0 {
		return m.Environments, nil
	}
	out := make([]*Environment, 0, len(names))
	for _, name := range names {
		env := m.Environment(name)
		if env == nil {
			return nil, fmt.Errorf("unknown environment %q", name)
		}
		out = append(out, env)
	}
	return out, nil
}

// Project holds the directory layout shared by every environment.
type Project struct {
	Root        string
	SrcDir      string
	IncludeDir  string
	LibDir      string
	TestDir     string
	LibDepsDir  string
	BuildDir    string
	DefaultEnvs []string
}

// DefaultProject returns the conventional layout rooted at root.
func DefaultProject(root string) *Project {
	return &Project{
		Root:       root,
		SrcDir:     "src",
		IncludeDir: "include",
		LibDir:     "lib",
		TestDir:    "test",
		LibDepsDir: ".deps",
		BuildDir:   ".build",
	}
}

// Abs resolves a project-relative directory against the project root.
func (p *Project) Abs(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.Root, dir)
}

// Environment is the descriptor of a single build environment. It is built
// once per run and not mutated afterwards; the flag pipeline copies what it
// needs.
type Environment struct {
	Name      string
	Platform  string
	BuildType BuildType
	LDFMode   LDFMode

	BuildFlags      string
	BuildUnflags    string
	BuildSrcFlags   string
	DebugBuildFlags string

	ExtraScripts []ScriptRef
	LibDeps      []string
	LibExtraDirs []string
	LibIgnore    []string

	// Options keeps every raw option as written, for read access from hooks.
	Options map[string]string
}

// BuildType selects the flag defaults of stage 2.
type BuildType string

const (
	BuildRelease BuildType = "release"
	BuildDebug   BuildType = "debug"
)

// ParseBuildType validates a build_type value. Empty means release.
func ParseBuildType(s string) (BuildType, error) {
	switch strings.TrimSpace(s) {
	case "", string(BuildRelease):
		return BuildRelease, nil
	case string(BuildDebug):
		return BuildDebug, nil
	default:
		return "", fmt.Errorf("unknown build_type %q (want release or debug)", s)
	}
}

// LDFMode is the library dependency finder strictness.
type LDFMode string

const (
	ModeChain     LDFMode = "chain"
	ModeDeep      LDFMode = "deep"
	ModeChainPlus LDFMode = "chain+"
	ModeDeepPlus  LDFMode = "deep+"
)

// ParseLDFMode validates a lib_ldf_mode value. Empty means chain.
func ParseLDFMode(s string) (LDFMode, error) {
	switch m := LDFMode(strings.TrimSpace(s)); m {
	case "":
		return ModeChain, nil
	case ModeChain, ModeDeep, ModeChainPlus, ModeDeepPlus:
		return m, nil
	default:
		return "", fmt.Errorf("unknown lib_ldf_mode %q (want chain, deep, chain+ or deep+)", s)
	}
}

// Deep reports whether every source of a discovered library is scanned.
func (m LDFMode) Deep() bool { return m == ModeDeep || m == ModeDeepPlus }

// Strict reports whether the project's non-primary targets are scanned too.
func (m LDFMode) Strict() bool { return strings.HasSuffix(string(m), "+") }

// Stage is the pipeline stage a hook script runs at.
type Stage string

const (
	StagePre  Stage = "pre"
	StagePost Stage = "post"
)

// ScriptRef is one extra_scripts entry.
type ScriptRef struct {
	Path  string
	Stage Stage
}

// ParseScripts splits extra_scripts entries into stage and path. Entries
// without a pre: or post: prefix run at the post stage.
func ParseScripts(entries []string) []ScriptRef {
	var refs []ScriptRef
	for _, raw := range entries {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			ref := ScriptRef{Path: item, Stage: StagePost}
			if rest, ok := strings.CutPrefix(item, "pre:"); ok {
				ref = ScriptRef{Path: strings.TrimSpace(rest), Stage: StagePre}
			} else if rest, ok := strings.CutPrefix(item, "post:"); ok {
				ref.Path = strings.TrimSpace(rest)
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

// ScriptsAt filters scripts by stage, keeping declaration order.
func (e *Environment) ScriptsAt(stage Stage) []ScriptRef {
	var out []ScriptRef
	for _, s := range e.ExtraScripts {
		if s.Stage == stage {
			out = append(out, s)
		}
	}
	return out
}
