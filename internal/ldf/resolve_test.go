package ldf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/dag"
	"github.com/vk/envbuild/internal/inmemorystore"
	"github.com/vk/envbuild/internal/library"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func request(root string, env *config.Environment) Request {
	if env.Name == "" {
		env.Name = "native"
	}
	return NewRequest(config.DefaultProject(root), env)
}

func names(g *dag.Graph) []string {
	var out []string
	for _, n := range g.Libraries() {
		out = append(out, n.Name)
	}
	return out
}

func resolve(t *testing.T, req Request) *dag.Graph {
	t.Helper()
	res, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	return res.Graph
}

func TestResolve_FlatComponentDeepPlus(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.cpp"), "#ifdef I_AM_ONLY_SRC_FLAG\n#include <component.h>\n#endif\n#include <stdio.h>\nint main() {}\n")
	write(t, filepath.Join(root, "lib", "component", "component.h"), "#define I_AM_COMPONENT\nvoid dummy(void);\n")
	write(t, filepath.Join(root, "lib", "component", "component.cpp"), "void dummy(void) {}\n")

	g := resolve(t, request(root, &config.Environment{LDFMode: config.ModeDeepPlus}))
	assert.Equal(t, []string{"component"}, names(g))

	deps, err := g.Dependencies(dag.RootID)
	require.NoError(t, err)
	assert.Equal(t, []dag.NodeID{1}, deps)
	assert.Equal(t, []dag.Unresolved{{Header: "stdio.h", From: "src/main.cpp"}}, g.Unresolved())
}

func TestResolve_SymlinkLocator(t *testing.T) {
	base := t.TempDir()
	write(t, filepath.Join(base, "ext-checkout", "External.h"), "#define EXTERNAL 1\n")
	write(t, filepath.Join(base, "ext-checkout", "library.json"), `{"name": "External", "version": "1.0.0"}`)
	require.NoError(t, os.Symlink(filepath.Join(base, "ext-checkout"), filepath.Join(base, "External")))
	project := filepath.Join(base, "project")
	write(t, filepath.Join(project, "src", "main.c"), "#include <External.h>\n#\nint main() {}\n")

	g := resolve(t, request(project, &config.Environment{LibDeps: []string{"symlink://../External"}}))
	require.Equal(t, []string{"External"}, names(g))
	c := g.Node(1).Candidate
	assert.Equal(t, "symlink://../External", c.DiagnosticName())
	assert.Equal(t, library.OriginLocator, c.Origin)
	assert.True(t, c.Explicit)
	assert.Empty(t, g.Unresolved())
}

func TestResolve_ResolutionErrors(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "int main() {}\n")

	for _, dep := range []string{"symlink://../Missing", "ghost", "ghost@^1.0.0", "Bad=://"} {
		t.Run(dep, func(t *testing.T) {
			_, err := (&Resolver{}).Resolve(context.Background(), request(root, &config.Environment{LibDeps: []string{dep}}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, &builderr.Error{Kind: builderr.KindResolution, Env: "native"}), err.Error())
		})
	}
}

func TestResolve_SearchRootPriority(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "#include <common.h>\n")
	write(t, filepath.Join(root, "lib", "alpha", "common.h"), "")
	write(t, filepath.Join(root, ".deps", "native", "beta", "common.h"), "")

	t.Run("project-local first", func(t *testing.T) {
		g := resolve(t, request(root, &config.Environment{}))
		assert.Equal(t, []string{"alpha"}, names(g))
	})

	t.Run("installed root declared first", func(t *testing.T) {
		req := request(root, &config.Environment{})
		req.Roots[0], req.Roots[1] = req.Roots[1], req.Roots[0]
		g := resolve(t, req)
		assert.Equal(t, []string{"beta"}, names(g))
	})
}

func TestResolve_ExplicitWinsSameName(t *testing.T) {
	base := t.TempDir()
	project := filepath.Join(base, "project")
	write(t, filepath.Join(project, "src", "main.c"), "#include <Wire.h>\n")
	write(t, filepath.Join(project, "lib", "Wire", "Wire.h"), "")
	write(t, filepath.Join(base, "WireFork", "Wire.h"), "")
	write(t, filepath.Join(base, "WireFork", "library.yaml"), "name: Wire\nversion: 2.0.0\n")

	g := resolve(t, request(project, &config.Environment{LibDeps: []string{"symlink://../WireFork"}}))
	require.Equal(t, []string{"Wire"}, names(g))
	assert.Equal(t, "2.0.0", g.Node(1).Candidate.Version)
}

func TestResolve_ExplicitNamedDependency(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "int main() {}\n")
	write(t, filepath.Join(root, ".deps", "native", "beta", "beta.h"), "")
	write(t, filepath.Join(root, ".deps", "native", "beta", "library.json"), `{"name": "beta", "version": "1.2.0"}`)

	g := resolve(t, request(root, &config.Environment{LibDeps: []string{"beta@^1.0.0"}}))
	assert.Equal(t, []string{"beta"}, names(g))

	_, err := (&Resolver{}).Resolve(context.Background(), request(root, &config.Environment{LibDeps: []string{"beta@^2.0.0"}}))
	assert.ErrorContains(t, err, `library "beta" not found`)
}

func chainDeepProject(t *testing.T) string {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "#include <a.h>\nint main() {}\n")
	write(t, filepath.Join(root, "test", "test_main.c"), "#include <t.h>\n")
	write(t, filepath.Join(root, "lib", "a", "a.h"), "void a(void);\n")
	write(t, filepath.Join(root, "lib", "a", "a.c"), "#include \"a.h\"\n#include <b.h>\n")
	write(t, filepath.Join(root, "lib", "a", "other.c"), "#include <c.h>\n")
	write(t, filepath.Join(root, "lib", "b", "b.h"), "")
	write(t, filepath.Join(root, "lib", "c", "c.h"), "")
	write(t, filepath.Join(root, "lib", "t", "t.h"), "")
	return root
}

func TestResolve_Modes(t *testing.T) {
	root := chainDeepProject(t)
	cases := []struct {
		mode config.LDFMode
		want []string
	}{
		{config.ModeChain, []string{"a", "b"}},
		{config.ModeDeep, []string{"a", "b", "c"}},
		{config.ModeChainPlus, []string{"a", "t", "b"}},
		{config.ModeDeepPlus, []string{"a", "t", "b", "c"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			g := resolve(t, request(root, &config.Environment{LDFMode: tc.mode}))
			assert.Equal(t, tc.want, names(g))
		})
	}
}

func TestResolve_CycleTolerated(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "#include <x.h>\n")
	write(t, filepath.Join(root, "lib", "x", "x.h"), "#include <y.h>\n")
	write(t, filepath.Join(root, "lib", "y", "y.h"), "#include <x.h>\n")

	g := resolve(t, request(root, &config.Environment{}))
	assert.Equal(t, []string{"x", "y"}, names(g))
	assert.Equal(t, []dag.Edge{{From: 2, To: 1}}, g.DroppedEdges())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []dag.NodeID{dag.RootID, 1, 2}, order)
}

func TestResolve_DescriptorDependenciesAndIgnore(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "#include <d.h>\n")
	write(t, filepath.Join(root, "lib", "d", "d.h"), "")
	write(t, filepath.Join(root, "lib", "d", "library.json"), `{"name": "d", "version": "1.0.0", "dependencies": ["e", "missing"]}`)
	write(t, filepath.Join(root, "lib", "e", "e.h"), "")

	g := resolve(t, request(root, &config.Environment{}))
	assert.Equal(t, []string{"d", "e"}, names(g))
	deps, err := g.Dependencies(1)
	require.NoError(t, err)
	assert.Equal(t, []dag.NodeID{2}, deps)
	assert.Equal(t, []dag.Unresolved{{Header: "missing", From: "lib/d/library.json"}}, g.Unresolved())

	g = resolve(t, request(root, &config.Environment{LibIgnore: []string{"e"}}))
	assert.Equal(t, []string{"d"}, names(g))
}

func TestResolve_Deterministic(t *testing.T) {
	root := chainDeepProject(t)
	write(t, filepath.Join(root, "src", "z.c"), "#include <c.h>\n")
	write(t, filepath.Join(root, "src", "m.c"), "#include <b.h>\n")

	req := request(root, &config.Environment{LDFMode: config.ModeDeepPlus})
	first := resolve(t, req)
	firstEdges, err := first.Edges()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		g := resolve(t, req)
		assert.Equal(t, names(first), names(g))
		edges, err := g.Edges()
		require.NoError(t, err)
		assert.Equal(t, firstEdges, edges)
	}
}

func TestResolve_Cache(t *testing.T) {
	root := chainDeepProject(t)
	r := &Resolver{Cache: inmemorystore.New()}
	req := request(root, &config.Environment{})
	ctx := context.Background()

	first, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, names(first.Graph), names(second.Graph))

	write(t, filepath.Join(root, "src", "main.c"), "#include <a.h>\n#include <c.h>\n")
	third, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
	assert.Equal(t, []string{"a", "c", "b"}, names(third.Graph))

	fourth, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.True(t, fourth.Cached)
}

func TestResolve_FlagIncludeDirsShadowLibraries(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "main.c"), "#include <foo.h>\n")
	write(t, filepath.Join(root, "vendor", "foo.h"), "#define FOO 1\n")
	write(t, filepath.Join(root, "lib", "foo", "foo.h"), "int foo(void);\n")
	write(t, filepath.Join(root, "lib", "foo", "foo.c"), "int foo(void) { return 0; }\n")

	r := &Resolver{Cache: inmemorystore.New()}
	ctx := context.Background()
	plain := request(root, &config.Environment{})
	withoutDir, err := r.Resolve(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, names(withoutDir.Graph))

	shadowed := plain
	shadowed.AddIncludeDirs("vendor", filepath.Join(root, "include"), "vendor/")
	assert.Equal(t, []string{filepath.Join(root, "vendor")}, shadowed.FlagIncludeDirs)

	withDir, err := r.Resolve(ctx, shadowed)
	require.NoError(t, err)
	assert.False(t, withDir.Cached)
	assert.NotEqual(t, withoutDir.Fingerprint, withDir.Fingerprint)
	assert.Empty(t, names(withDir.Graph))
	assert.Empty(t, withDir.Graph.Unresolved())
}

func TestResolve_Cancelled(t *testing.T) {
	root := chainDeepProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Resolver{}).Resolve(ctx, request(root, &config.Environment{}))
	assert.ErrorIs(t, err, context.Canceled)
}
