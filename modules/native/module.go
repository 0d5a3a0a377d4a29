// Package native registers the host toolchain platform.
package native

import "github.com/vk/envbuild/internal/registry"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the platform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlatform(&registry.Platform{
		Name:         "native",
		CC:           "gcc",
		CXX:          "g++",
		AR:           "ar",
		CompileFlags: []string{"-Os", "-Iinclude -Isrc"},
		ProgramName:  "program",
	})
}
