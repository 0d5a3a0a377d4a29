package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/envbuild/internal/fsutil"
)

// Origin tells where a candidate was found.
type Origin int

const (
	OriginProjectLocal Origin = iota
	OriginLocator
	OriginInstalled
)

func (o Origin) String() string {
	switch o {
	case OriginProjectLocal:
		return "project-local"
	case OriginLocator:
		return "locator"
	case OriginInstalled:
		return "installed"
	default:
		return "unknown"
	}
}

// Candidate is a library that may satisfy includes.
type Candidate struct {
	// Name is the display name: the descriptor's name, else the directory
	// name.
	Name    string
	Version string
	// Locator is the lib_deps entry that produced the candidate, if any. It
	// is the name used in diagnostics.
	Locator string
	// Root is the canonical, symlink-free library directory.
	Root string
	// Dir is the directory as it was reached, before canonicalization.
	Dir string

	// IncludeDirs are added to the include path of every unit once the
	// library is part of the graph.
	IncludeDirs []string
	// SrcDirs hold the library's translation units.
	SrcDirs []string
	// Headers are the public header names, relative to an include dir, in
	// sorted order.
	Headers []string

	// DescriptorPath is the library.json or library.yaml file, if any.
	DescriptorPath string

	Dependencies []Dependency
	// Flags are the descriptor's build.flags, applied to this library's
	// units only.
	Flags  string
	Origin Origin
	// Explicit is set for candidates requested by lib_deps.
	Explicit bool
	// Priority is the candidate's position in search order; lower wins.
	Priority int
}

// Provides reports whether header is one of the candidate's public headers.
func (c *Candidate) Provides(header string) bool {
	i := sort.SearchStrings(c.Headers, header)
	return i < len(c.Headers) && c.Headers[i] == header
}

// DiagnosticName is the name used in log lines and errors.
func (c *Candidate) DiagnosticName() string {
	if c.Locator != "" {
		return c.Locator
	}
	return c.Name
}

// HeaderPath returns the file providing header, or "".
func (c *Candidate) HeaderPath(header string) string {
	for _, dir := range c.IncludeDirs {
		p := filepath.Join(dir, header)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Sources returns every translation unit of the library, sorted.
func (c *Candidate) Sources() ([]string, error) {
	var out []string
	for _, dir := range c.SrcDirs {
		files, err := fsutil.FindFilesByExtension(dir, fsutil.SourceExtensions...)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	sort.Strings(out)
	return out, nil
}

// Load reads the library rooted at dir. The layout is either include/ plus
// src/, or flat with headers and sources side by side. Descriptor paths
// override both.
func Load(dir string, origin Origin) (*Candidate, error) {
	canonical, err := fsutil.Canonical(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.ReadDir(canonical); err != nil {
		return nil, err
	}

	c := &Candidate{
		Name:   filepath.Base(canonical),
		Root:   canonical,
		Dir:    dir,
		Origin: origin,
	}

	desc, err := ReadDescriptor(canonical)
	if err != nil {
		return nil, err
	}
	if desc != nil {
		c.Name = desc.Name
		c.DescriptorPath = desc.Path
		c.Version = desc.Version
		c.Dependencies = desc.Dependencies
		c.Flags = desc.BuildFlags
	}

	c.IncludeDirs, c.SrcDirs = layout(canonical, desc)
	if err := c.scanHeaders(desc); err != nil {
		return nil, fmt.Errorf("scan headers of %s: %w", c.Name, err)
	}
	return c, nil
}

func layout(root string, desc *Descriptor) (includes, srcs []string) {
	if desc != nil && desc.IncludeDir != "" {
		includes = []string{filepath.Join(root, desc.IncludeDir)}
	}
	if desc != nil && desc.SrcDir != "" {
		srcs = []string{filepath.Join(root, desc.SrcDir)}
	}

	inc, src := filepath.Join(root, "include"), filepath.Join(root, "src")
	switch {
	case includes == nil && fsutil.IsDir(inc):
		includes = []string{inc}
		if fsutil.IsDir(src) {
			includes = append(includes, src)
		}
	case includes == nil && fsutil.IsDir(src):
		includes = []string{src}
	case includes == nil:
		includes = []string{root}
	}

	if srcs == nil {
		if fsutil.IsDir(src) {
			srcs = []string{src}
		} else {
			srcs = []string{root}
		}
	}
	return includes, srcs
}

func (c *Candidate) scanHeaders(desc *Descriptor) error {
	seen := make(map[string]bool)
	if desc != nil && len(desc.Headers) > 0 {
		for _, h := range desc.Headers {
			seen[filepath.ToSlash(h)] = true
		}
	} else {
		for _, dir := range c.IncludeDirs {
			files, err := fsutil.FindFilesByExtension(dir, fsutil.HeaderExtensions...)
			if err != nil {
				return err
			}
			for _, f := range files {
				rel, err := filepath.Rel(dir, f)
				if err != nil {
					return err
				}
				seen[filepath.ToSlash(rel)] = true
			}
		}
	}

	c.Headers = make([]string, 0, len(seen))
	for h := range seen {
		c.Headers = append(c.Headers, h)
	}
	sort.Strings(c.Headers)
	return nil
}
