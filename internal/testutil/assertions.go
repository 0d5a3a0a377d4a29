package testutil

import (
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/require"
)

// TranscriptLines returns the non-empty transcript lines in order.
func TranscriptLines(result *HarnessResult) []string {
	var out []string
	for _, line := range strings.Split(result.Transcript, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// CompileLine returns the transcript line compiling source, a path relative
// to the project root. It fails the test if there is none.
func CompileLine(t *testing.T, result *HarnessResult, source string) string {
	t.Helper()
	for _, line := range TranscriptLines(result) {
		if strings.HasSuffix(line, " "+source) && strings.Contains(line, " -c ") {
			return line
		}
	}
	require.Failf(t, "source not compiled", "no transcript line compiles %s:\n%s", source, result.Transcript)
	return ""
}

// CountArg splits a transcript line the way a shell would and counts the
// arguments equal to arg.
func CountArg(t *testing.T, line, arg string) int {
	t.Helper()
	argv, err := shellquote.Split(line)
	require.NoError(t, err, line)
	n := 0
	for _, a := range argv {
		if a == arg {
			n++
		}
	}
	return n
}
