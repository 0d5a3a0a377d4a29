package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/envbuild/internal/testutil"
)

// vendorShadowFiles is a project where foo.h is available both from vendor/
// and from a library named foo.
func vendorShadowFiles(manifest string) map[string]string {
	return map[string]string{
		"envbuild.hcl":  manifest,
		"src/main.c":    "#include <foo.h>\nint main() { return FOO; }\n",
		"vendor/foo.h":  "#define FOO 0\n",
		"lib/foo/foo.h": "int foo(void);\n",
		"lib/foo/foo.c": "int foo(void) { return 1; }\n",
	}
}

func assertFooNotPulledIn(t *testing.T, result *testutil.HarnessResult) {
	t.Helper()
	require.NoError(t, result.Err)
	for _, line := range testutil.TranscriptLines(result) {
		assert.NotContains(t, line, "lib/foo/foo.c")
		assert.NotContains(t, line, "-Ilib/foo")
	}
	line := testutil.CompileLine(t, result, "src/main.c")
	assert.Equal(t, 1, testutil.CountArg(t, line, "-Ivendor"))
}

// Test for: an include dir from build_flags satisfies a project include
// before any library is searched.
func TestDependencyFinder_BuildFlagsIncludeDir(t *testing.T) {
	// --- Arrange ---
	files := vendorShadowFiles(`
environment "native" {
  build_flags = "-Ivendor"
}
`)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	// --- Assert ---
	assertFooNotPulledIn(t, result)
}

// Test for: include dirs appended by a pre-stage hook are visible to the
// dependency finder.
func TestDependencyFinder_PreHookIncludeDir(t *testing.T) {
	// --- Arrange ---
	files := vendorShadowFiles(`
environment "native" {
  extra_scripts = "pre:vendor.go"
}
`)
	files["vendor.go"] = `package main

import "envbuild/build"

func Apply(env *build.Env) {
	env.AppendIncludePaths(build.Scalar("vendor"))
}
`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	// --- Assert ---
	assertFooNotPulledIn(t, result)
}

// Test for: without the extra include dir the library still provides foo.h.
func TestDependencyFinder_LibraryWhenNoIncludeDir(t *testing.T) {
	// --- Arrange ---
	files := vendorShadowFiles(`
environment "native" {}
`)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.CompileLine(t, result, "lib/foo/foo.c")
}
