package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/envbuild/internal/app"
	"github.com/vk/envbuild/internal/hcl"
	"github.com/vk/envbuild/internal/inmemorystore"
	"github.com/vk/envbuild/internal/toolchain"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Options tweak a harness run.
type Options struct {
	Environments []string
	Jobs         int
	// Toolchain records the commands. A fresh recorder is used when nil.
	Toolchain *toolchain.Recorder
	// Symlinks maps link paths to targets, both relative to the project root.
	Symlinks map[string]string
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root       string
	LogOutput  string
	Transcript string
	Err        error
	App        *app.App
	Toolchain  *toolchain.Recorder
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, opts)
}

// RunIntegrationTestWithContext writes files into a fresh project and builds
// it with a recording toolchain. File names are relative to the project
// root and may climb out of it with "../" to place files next to it.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, opts Options) *HarnessResult {
	t.Helper()

	// 1. Create a temporary root directory for the test.
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "project")
	require.NoError(t, os.MkdirAll(root, 0755))

	// 2. Write all files, creating directories as needed.
	for name, content := range files {
		filePath := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}
	for link, target := range opts.Symlinks {
		linkPath := filepath.Join(root, filepath.FromSlash(link))
		require.NoError(t, os.MkdirAll(filepath.Dir(linkPath), 0755))
		require.NoError(t, os.Symlink(filepath.Join(root, filepath.FromSlash(target)), linkPath))
	}

	// 3. Build the app around a recorder so no compiler is needed.
	recorder := opts.Toolchain
	if recorder == nil {
		recorder = toolchain.NewRecorder()
	}
	cfg, err := app.NewConfig(app.Config{
		ProjectDir:   root,
		Environments: opts.Environments,
		Jobs:         opts.Jobs,
		LogLevel:     "debug",
		LogFormat:    "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	transcript := &SafeBuffer{}
	result := &HarnessResult{Root: root, Toolchain: recorder}

	testApp, err := app.NewApp(logBuffer, cfg, hcl.NewLoader(),
		app.WithToolchain(recorder),
		app.WithCache(inmemorystore.New()),
		app.WithTranscript(transcript),
	)
	if err == nil {
		t.Cleanup(func() { testApp.Close() })
		result.App = testApp
		err = testApp.Run(ctx)
	}
	result.Err = err
	result.LogOutput = logBuffer.String()
	result.Transcript = transcript.String()

	if os.Getenv("ENVBUILD_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
		t.Logf("--- Transcript for %s ---\n%s", t.Name(), result.Transcript)
	}
	return result
}
