// Package embedded registers a bare-metal ARM Cortex-M platform built with the
// arm-none-eabi toolchain.
package embedded

import "github.com/vk/envbuild/internal/registry"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the platform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPlatform(&registry.Platform{
		Name: "embedded",
		CC:   "arm-none-eabi-gcc",
		CXX:  "arm-none-eabi-g++",
		AR:   "arm-none-eabi-ar",
		CompileFlags: []string{
			"-Os -mthumb -ffunction-sections -fdata-sections",
			"-Iinclude -Isrc",
		},
		LinkFlags:   []string{"-mthumb -Wl,--gc-sections"},
		ProgramName: "firmware.elf",
	})
}
