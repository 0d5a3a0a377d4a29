package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostPlatform() *Platform {
	return &Platform{
		Name:         "host",
		CC:           "cc",
		CXX:          "c++",
		CompileFlags: []string{"-Os", "-Iinclude -Isrc"},
		ProgramName:  "program",
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	r.RegisterPlatform(hostPlatform())

	p, err := r.Platform("host")
	require.NoError(t, err)
	assert.Equal(t, "c++", p.CompilerFor("src/main.cpp"))
	assert.Equal(t, "cc", p.CompilerFor("src/main.c"))
	assert.Equal(t, []string{"-Os", "-Iinclude -Isrc"}, p.Defaults().Flags)

	_, err = r.Platform("avr")
	assert.ErrorContains(t, err, `unknown platform "avr"`)

	assert.Panics(t, func() { r.RegisterPlatform(hostPlatform()) })
}

func TestRegistry_Validate(t *testing.T) {
	r := New()
	r.RegisterPlatform(hostPlatform())
	r.RegisterPlatform(&Platform{Name: "broken", CC: "cc", CompileFlags: []string{`-DX="open`}})

	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "platform 'broken': cc and cxx must be set")
	assert.ErrorContains(t, err, "platform 'broken': build_flags")
	assert.NotContains(t, err.Error(), "'host'")
}

func TestRegistry_LoadPlatformFiles(t *testing.T) {
	dir := t.TempDir()
	content := `
platform "host-lto" {
  extends     = "host"
  build_flags = ["-O2 -flto", "-Iinclude -Isrc"]
  link_flags  = ["-flto"]
}

platform "riscv" {
  cc  = "riscv64-unknown-elf-gcc"
  cxx = "riscv64-unknown-elf-g++"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.hcl"), []byte(content), 0o644))

	r := New()
	r.RegisterPlatform(hostPlatform())
	require.NoError(t, r.LoadPlatformFiles(context.Background(), dir))
	assert.Equal(t, []string{"host", "host-lto", "riscv"}, r.Names())

	lto, err := r.Platform("host-lto")
	require.NoError(t, err)
	assert.Equal(t, "cc", lto.CC)
	assert.Equal(t, []string{"-O2 -flto", "-Iinclude -Isrc"}, lto.CompileFlags)
	assert.Equal(t, []string{"-flto"}, lto.LinkFlags)

	riscv, err := r.Platform("riscv")
	require.NoError(t, err)
	assert.Equal(t, "riscv64-unknown-elf-g++", riscv.CXX)
	assert.Equal(t, "program", riscv.ProgramName)
	assert.Empty(t, riscv.CompileFlags)

	host, err := r.Platform("host")
	require.NoError(t, err)
	assert.Equal(t, []string{"-Os", "-Iinclude -Isrc"}, host.CompileFlags)
}

func TestRegistry_LoadPlatformFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hcl"), []byte(`platform "x" { extends = "nope" }`), 0o644))

	r := New()
	err := r.LoadPlatformFiles(context.Background(), dir)
	assert.ErrorContains(t, err, `unknown platform "nope"`)

	assert.NoError(t, New().LoadPlatformFiles(context.Background(), filepath.Join(dir, "missing")))
}
