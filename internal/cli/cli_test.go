package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RunFlags(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"run", "-d", "proj", "-e", "native", "-e", "embedded",
		"-j", "3", "--no-cache", "--dry-run", "--log-format", "JSON",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, "proj", cfg.ProjectDir)
	assert.Equal(t, []string{"native", "embedded"}, cfg.Environments)
	assert.Equal(t, 3, cfg.Jobs)
	assert.True(t, cfg.NoCache)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_Defaults(t *testing.T) {
	cfg, _, err := Parse([]string{"run"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.ProjectDir)
	assert.Empty(t, cfg.Environments)
	assert.Zero(t, cfg.Jobs)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParse_PositionalProjectDir(t *testing.T) {
	cfg, _, err := Parse([]string{"run", "some/dir", "-v"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "some/dir", cfg.ProjectDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_Help(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"run", "--help"}} {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(args, out)
		require.NoError(t, err, args)
		assert.True(t, shouldExit, args)
		assert.Nil(t, cfg, args)
		assert.Contains(t, out.String(), "Usage:", args)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		args []string
		want string
	}{
		"unknown flag":      {[]string{"run", "--nope"}, "unknown flag: --nope"},
		"bad log format":    {[]string{"run", "--log-format", "xml"}, "invalid log-format"},
		"bad log level":     {[]string{"run", "--log-level", "loud"}, "invalid log-level"},
		"negative jobs":     {[]string{"run", "--jobs=-1"}, "jobs must not be negative"},
		"watch and dry-run": {[]string{"run", "--watch", "--dry-run"}, "cannot be combined"},
		"dir given twice":   {[]string{"run", "a", "-d", "b"}, "both as argument"},
		"too many args":     {[]string{"run", "a", "b"}, "accepts at most 1 arg"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
