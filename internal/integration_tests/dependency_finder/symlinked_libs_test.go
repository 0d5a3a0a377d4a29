package integration_tests

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/envbuild/internal/testutil"
)

// Test for: a symlink:// dependency outside the project satisfies an include
// and its include dir stays out of the transcript.
func TestDependencyFinder_SymlinkedLibs(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"../External/External.h": "#define EXTERNAL 1\n",
		"../External/library.json": `{
    "name": "External",
    "version": "1.0.0"
}`,
		"src/main.c": `
#include <External.h>
#
#if !defined(EXTERNAL)
#error "EXTERNAL is not defined"
#endif

int main() {
}
`,
		"envbuild.hcl": `
environment "native" {
  platform = "native"
  lib_deps = "symlink://../External"
}
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.NotContains(t, result.LogOutput, "Include not found")

	external, err := filepath.EvalSymlinks(filepath.Join(result.Root, "..", "External"))
	require.NoError(t, err)
	calls := result.Toolchain.Calls()
	require.NotEmpty(t, calls)
	compiled := false
	for _, call := range calls {
		if slices.Contains(call, "-c") {
			compiled = true
			assert.Contains(t, call, "-I"+external)
		}
	}
	assert.True(t, compiled)
	assert.NotContains(t, result.Transcript, external)
}

// Test for: a library under lib/ reached through a project symlink resolves to
// one canonical node and compiles once.
func TestDependencyFinder_SymlinkInsideLibDir(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"../checkout/Shared/shared.h": "int shared(void);\n",
		"../checkout/Shared/shared.c": "int shared(void) { return 1; }\n",
		"src/main.c":                  "#include <shared.h>\nint main() { return shared(); }\n",
		"envbuild.hcl": `
environment "native" {}
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{
		Symlinks: map[string]string{"lib/Shared": "../checkout/Shared"},
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	n := 0
	for _, call := range result.Toolchain.Calls() {
		if filepath.Base(call[len(call)-1]) == "shared.c" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}
