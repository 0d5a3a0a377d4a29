package integration_tests

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/envbuild/internal/testutil"
)

// chainFiles is a project whose main.c reaches a. The source next to a.h
// includes b.h; only a second source of a includes c.h, so just the deep
// modes reach c.
func chainFiles(mode string) map[string]string {
	return map[string]string{
		"envbuild.hcl": fmt.Sprintf(`
environment "native" {
  lib_ldf_mode = %q
}
`, mode),
		"src/main.c":    "#include <a.h>\nint main() { return a(); }\n",
		"lib/a/a.h":     "int a(void);\n",
		"lib/a/a.c":     "#include \"a.h\"\n#include <b.h>\nint a(void) { return b(); }\n",
		"lib/a/other.c": "#include <c.h>\nint other(void) { return c(); }\n",
		"lib/b/b.h":     "int b(void);\n",
		"lib/b/b.c":     "int b(void) { return 0; }\n",
		"lib/c/c.h":     "int c(void);\n",
		"lib/c/c.c":     "int c(void) { return 0; }\n",
	}
}

func compiledLibraries(result *testutil.HarnessResult) []string {
	var out []string
	for _, line := range testutil.TranscriptLines(result) {
		if !strings.Contains(line, " -c ") {
			continue
		}
		for _, lib := range []string{"a", "b", "c"} {
			if strings.HasSuffix(line, fmt.Sprintf(" lib/%s/%s.c", lib, lib)) {
				out = append(out, lib)
			}
		}
	}
	return out
}

// Test for: chain mode stops at the libraries the project reaches through
// library headers, deep mode follows library sources.
func TestDependencyFinder_Modes(t *testing.T) {
	cases := map[string][]string{
		"chain": {"a", "b"},
		"deep":  {"a", "b", "c"},
	}
	for mode, want := range cases {
		t.Run(mode, func(t *testing.T) {
			// --- Act ---
			result := testutil.RunIntegrationTest(t, chainFiles(mode), testutil.Options{})

			// --- Assert ---
			require.NoError(t, result.Err)
			assert.Equal(t, want, compiledLibraries(result))
		})
	}
}

// Test for: lib_ignore keeps a library out of the graph and its include is
// reported as unresolved instead.
func TestDependencyFinder_LibIgnore(t *testing.T) {
	// --- Arrange ---
	files := chainFiles("deep")
	files["envbuild.hcl"] = `
environment "native" {
  lib_ldf_mode = "deep"
  lib_ignore   = "c"
}
`

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, []string{"a", "b"}, compiledLibraries(result))
	assert.Contains(t, result.LogOutput, "Include not found in any library.")
	assert.Contains(t, result.LogOutput, "header=c.h")
}

// Test for: lib_extra_dirs are searched after the project lib dir.
func TestDependencyFinder_ExtraDirs(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"envbuild.hcl": `
environment "native" {
  lib_extra_dirs = "vendor"
}
`,
		"src/main.c":           "#include <extra.h>\nint main() { return 0; }\n",
		"vendor/extra/extra.h": "#define EXTRA 1\n",
		"vendor/extra/extra.c": "int extra;\n",
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, testutil.Options{})

	// --- Assert ---
	require.NoError(t, result.Err)
	line := testutil.CompileLine(t, result, "src/main.c")
	assert.Equal(t, 1, testutil.CountArg(t, line, "-Ivendor/extra"))
	testutil.CompileLine(t, result, "vendor/extra/extra.c")
}
