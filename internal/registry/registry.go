package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/envbuild/internal/flags"
)

// Module is the interface that all platform modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Platform is a registered toolchain description.
type Platform struct {
	Name string
	// CC and CXX compile C and C++ units; CXX also links the program.
	CC  string
	CXX string
	AR  string

	// CompileFlags are the stage-1 base defaults, in manifest syntax.
	CompileFlags []string
	// LinkFlags are always passed to the link unit.
	LinkFlags []string

	// ProgramName is the file name of the linked output.
	ProgramName string
}

// Defaults returns the base defaults handed to the flag pipeline.
func (p *Platform) Defaults() flags.Defaults {
	return flags.Defaults{Flags: append([]string(nil), p.CompileFlags...)}
}

// CompilerFor returns the compiler used for a source file.
func (p *Platform) CompilerFor(source string) string {
	for _, ext := range []string{".cpp", ".cc", ".cxx"} {
		if strings.HasSuffix(source, ext) {
			return p.CXX
		}
	}
	return p.CC
}

// Registry holds the platforms known to a single application instance.
type Registry struct {
	platforms map[string]*Platform
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{platforms: make(map[string]*Platform)}
}

// RegisterPlatform adds a platform. Registering the same name twice is a
// programming error.
func (r *Registry) RegisterPlatform(p *Platform) {
	if _, exists := r.platforms[p.Name]; exists {
		panic(fmt.Sprintf("platform with name '%s' already registered", p.Name))
	}
	slog.Debug("Registering platform.", "name", p.Name, "cc", p.CC)
	r.platforms[p.Name] = p
}

// Platform returns the platform registered under name.
func (r *Registry) Platform(name string) (*Platform, error) {
	p, ok := r.platforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names returns the registered platform names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.platforms))
	for n := range r.platforms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
