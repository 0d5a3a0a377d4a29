package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Dependency is one parsed lib_deps entry or descriptor dependency.
type Dependency struct {
	// Raw is the entry as written.
	Raw string
	// Name is the requested library name. For a locator without a name
	// prefix it is empty until the target is loaded.
	Name string
	// Constraint restricts acceptable versions; nil accepts any.
	Constraint *semver.Constraints
	// Scheme and Path are set for locator entries such as symlink://../lib.
	Scheme string
	Path   string
}

// IsLocator reports whether the entry points at a directory instead of
// naming a library.
func (d Dependency) IsLocator() bool { return d.Scheme != "" }

// Matches reports whether version satisfies the constraint. Unversioned or
// unparseable candidates satisfy only an unconstrained dependency.
func (d Dependency) Matches(version string) bool {
	if d.Constraint == nil {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return d.Constraint.Check(v)
}

func (d Dependency) String() string { return d.Raw }

// LocalSchemes are the locator schemes that point at the local filesystem.
var LocalSchemes = []string{"symlink", "file"}

// ParseDependency parses a lib_deps entry. Accepted forms are
//
//	Name
//	Name@constraint
//	symlink://path, file://path
//	Name=symlink://path
func ParseDependency(raw string) (Dependency, error) {
	entry := strings.TrimSpace(raw)
	if entry == "" {
		return Dependency{}, fmt.Errorf("empty dependency")
	}

	if i := strings.Index(entry, "://"); i >= 0 {
		d := Dependency{Raw: entry}
		head := entry[:i]
		if name, scheme, ok := strings.Cut(head, "="); ok {
			d.Name = strings.TrimSpace(name)
			head = strings.TrimSpace(scheme)
			if d.Name == "" {
				return Dependency{}, fmt.Errorf("dependency %q: empty name before '='", raw)
			}
		}
		d.Scheme = head
		d.Path = entry[i+3:]
		if d.Path == "" {
			return Dependency{}, fmt.Errorf("dependency %q: empty path", raw)
		}
		return d, nil
	}

	name, constraint, _ := strings.Cut(entry, "@")
	d, err := newNamedDependency(strings.TrimSpace(name), constraint)
	if err != nil {
		return Dependency{}, err
	}
	d.Raw = entry
	return d, nil
}

func newNamedDependency(name, constraint string) (Dependency, error) {
	d := Dependency{Raw: name, Name: name}
	if name == "" {
		return Dependency{}, fmt.Errorf("dependency has an empty name")
	}
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == "*" {
		return d, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return Dependency{}, fmt.Errorf("dependency %q: invalid version constraint %q: %w", name, constraint, err)
	}
	d.Raw = name + "@" + constraint
	d.Constraint = c
	return d, nil
}

// ResolveLocator loads the library a locator entry points at. Relative paths
// resolve against projectRoot. The target must be a readable directory.
func ResolveLocator(projectRoot string, d Dependency) (*Candidate, error) {
	if !d.IsLocator() {
		return nil, fmt.Errorf("%q is not a locator", d.Raw)
	}
	local := false
	for _, s := range LocalSchemes {
		if d.Scheme == s {
			local = true
		}
	}
	if !local {
		return nil, fmt.Errorf("%q: scheme %q requires fetching, which is not supported", d.Raw, d.Scheme)
	}

	path := filepath.FromSlash(d.Path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", d.Raw, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q: %s is not a directory", d.Raw, path)
	}

	c, err := Load(path, OriginLocator)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", d.Raw, err)
	}
	c.Locator = d.Raw
	if d.Name != "" && c.DescriptorPath == "" {
		c.Name = d.Name
	}
	return c, nil
}
