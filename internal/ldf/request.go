package ldf

import (
	"path/filepath"

	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/library"
)

// Request describes one resolution.
type Request struct {
	Env         string
	ProjectRoot string
	Mode        config.LDFMode

	// SrcDirs are scanned as seeds; TestDir is added for the strict modes.
	SrcDirs []string
	TestDir string
	// IncludeDirs satisfy project includes before any library is searched.
	IncludeDirs []string
	// FlagIncludeDirs come from -I flags of build_flags and pre-stage hooks.
	// They are consulted after IncludeDirs and are not seeds.
	FlagIncludeDirs []string

	// Roots are the library search roots in declaration order.
	Roots []library.Root
	// LibDeps are the raw lib_deps entries.
	LibDeps []string
	Ignore  []string
}

// NewRequest derives the request for env from the project layout. The
// project's lib dir is searched first, then the environment's installed
// packages, then lib_extra_dirs in declaration order.
func NewRequest(project *config.Project, env *config.Environment) Request {
	req := Request{
		Env:         env.Name,
		ProjectRoot: project.Root,
		Mode:        env.LDFMode,
		SrcDirs:     []string{project.Abs(project.SrcDir)},
		TestDir:     project.Abs(project.TestDir),
		IncludeDirs: []string{project.Abs(project.IncludeDir), project.Abs(project.SrcDir)},
		LibDeps:     env.LibDeps,
		Ignore:      env.LibIgnore,
	}
	if req.Mode == "" {
		req.Mode = config.ModeChain
	}
	req.Roots = append(req.Roots,
		library.Root{Dir: project.Abs(project.LibDir), Origin: library.OriginProjectLocal},
		library.Root{Dir: filepath.Join(project.Abs(project.LibDepsDir), env.Name), Origin: library.OriginInstalled},
	)
	for _, d := range env.LibExtraDirs {
		req.Roots = append(req.Roots, library.Root{Dir: project.Abs(d), Origin: library.OriginInstalled})
	}
	return req
}

// AddIncludeDirs records include paths contributed by the flag pipeline.
// Relative dirs are taken against the project root; dirs already known are
// skipped.
func (r *Request) AddIncludeDirs(dirs ...string) {
	seen := make(map[string]bool)
	for _, d := range append(append([]string(nil), r.IncludeDirs...), r.FlagIncludeDirs...) {
		seen[filepath.Clean(d)] = true
	}
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(r.ProjectRoot, d)
		}
		d = filepath.Clean(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		r.FlagIncludeDirs = append(r.FlagIncludeDirs, d)
	}
}

func (r Request) seedDirs() []string {
	dirs := append([]string(nil), r.SrcDirs...)
	if r.Mode.Strict() && r.TestDir != "" {
		dirs = append(dirs, r.TestDir)
	}
	return dirs
}

// layoutIncludeDirs are the project's own include dirs.
func (r Request) layoutIncludeDirs() []string {
	dirs := append([]string(nil), r.IncludeDirs...)
	if r.Mode.Strict() && r.TestDir != "" {
		dirs = append(dirs, r.TestDir)
	}
	return dirs
}

// projectIncludeDirs is the lookup order for includes made by project files.
func (r Request) projectIncludeDirs() []string {
	return append(r.layoutIncludeDirs(), r.FlagIncludeDirs...)
}
