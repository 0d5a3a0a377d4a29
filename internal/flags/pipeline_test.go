package flags

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/config"
)

var nativeDefaults = Defaults{Flags: []string{"-Os -Wall", "-Iinclude -Isrc"}}

func countArg(argv []string, arg string) int {
	n := 0
	for _, a := range argv {
		if a == arg {
			n++
		}
	}
	return n
}

func hook(name string, fn func(env *Env)) Mutation {
	return Mutation{Name: name, Run: func(ctx context.Context, env *Env) error {
		fn(env)
		return nil
	}}
}

func TestResolve_UnflagScenario(t *testing.T) {
	desc := &config.Environment{
		Name:         "native",
		BuildUnflags: "-DTMP_MACRO1=45 -I. -DNON_EXISTING_MACRO -lunknownLib -Os",
	}
	pre := hook("extra.go", func(env *Env) {
		env.AppendIncludePaths(Scalar("/tmp/project-root"))
		env.AppendDefines(Scalar("TMP_MACRO1"))
		env.AppendDefines(List("TMP_MACRO2"))
		env.AppendDefines(Pair("TMP_MACRO3", 13))
		env.AppendFlags(List("-Os"))
		env.AppendLibs(List("unknownLib"))
	})

	global, src, err := Resolve(context.Background(), desc, nativeDefaults, map[config.Stage][]Mutation{
		config.StagePre: {pre},
	})
	require.NoError(t, err)
	assert.Zero(t, src.Len())

	argv := global.Args()
	assert.Equal(t, 1, countArg(argv, "-DTMP_MACRO2"))
	assert.Equal(t, 1, countArg(argv, "-DTMP_MACRO3=13"))
	assert.False(t, global.Has("-DTMP_MACRO1"))
	assert.False(t, global.Has("-Os"))
	assert.False(t, global.Has("-lunknownLib"))
	assert.True(t, global.Has("-Wall"))

	// The absolute include path survives in argv but is never visible.
	assert.Contains(t, argv, "-I/tmp/project-root")
	assert.NotContains(t, strings.Join(VisibleArgs(global.Tokens()), " "), "/tmp/project-root")
}

func TestResolve_DebugDefaults(t *testing.T) {
	desc := &config.Environment{Name: "native", BuildType: config.BuildDebug}
	global, _, err := Resolve(context.Background(), desc, nativeDefaults, nil)
	require.NoError(t, err)

	argv := global.Args()
	for _, f := range []string{"-Og", "-g2", "-ggdb2"} {
		assert.Equal(t, 1, countArg(argv, f), f)
	}
	for _, fam := range []string{"O", "g", "ggdb"} {
		for _, lvl := range []string{"0", "1", "3"} {
			assert.Zero(t, countArg(argv, "-"+fam+lvl))
		}
	}
	assert.NotContains(t, argv, "-Os")
	assert.Contains(t, argv, DebugDefine)
}

func TestResolve_CustomDebugFlagsSuppressDefaults(t *testing.T) {
	desc := &config.Environment{
		Name:            "native",
		BuildType:       config.BuildDebug,
		DebugBuildFlags: "-O3 -g3 -ggdb3",
	}
	global, _, err := Resolve(context.Background(), desc, nativeDefaults, nil)
	require.NoError(t, err)

	argv := global.Args()
	for _, f := range []string{"-O3", "-g3", "-ggdb3"} {
		assert.Equal(t, 1, countArg(argv, f), f)
	}
	for _, f := range []string{"-Og", "-Os", "-g2", "-ggdb2", "-O0", "-g0"} {
		assert.Zero(t, countArg(argv, f), f)
	}
}

func TestResolve_PartialCustomDebugFlags(t *testing.T) {
	desc := &config.Environment{
		Name:            "native",
		BuildType:       config.BuildDebug,
		DebugBuildFlags: "-O1",
	}
	global, _, err := Resolve(context.Background(), desc, nativeDefaults, nil)
	require.NoError(t, err)

	argv := global.Args()
	assert.Equal(t, 1, countArg(argv, "-O1"))
	assert.Zero(t, countArg(argv, "-Og"))
	assert.Equal(t, 1, countArg(argv, "-g2"))
	assert.Equal(t, 1, countArg(argv, "-ggdb2"))
}

func TestResolve_Idempotent(t *testing.T) {
	desc := &config.Environment{
		Name:          "native",
		BuildType:     config.BuildDebug,
		BuildFlags:    `-DA=1 -DNAME="A B" -Wextra`,
		BuildSrcFlags: "-DONLY_SRC",
		BuildUnflags:  "-Wextra",
	}
	hooks := map[config.Stage][]Mutation{
		config.StagePost: {hook("post.go", func(env *Env) { env.Project().AppendDefines(Scalar("POST")) })},
	}

	g1, s1, err := Resolve(context.Background(), desc, nativeDefaults, hooks)
	require.NoError(t, err)
	g2, s2, err := Resolve(context.Background(), desc, nativeDefaults, hooks)
	require.NoError(t, err)

	if diff := cmp.Diff(g1.Tokens(), g2.Tokens()); diff != "" {
		t.Errorf("global flags differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(s1.Tokens(), s2.Tokens()); diff != "" {
		t.Errorf("src flags differ between runs (-first +second):\n%s", diff)
	}
}

func TestResolve_UnflagSymmetry(t *testing.T) {
	for _, flag := range []string{"-DFOO", "-Wall", "-Iinclude", "-lm", "-DWITH_VALUE"} {
		t.Run(flag, func(t *testing.T) {
			desc := &config.Environment{
				Name:          "native",
				BuildFlags:    "-DFOO -DFOO_BAR -Wall -Wall-extra -lm -lmath -DWITH_VALUE=3",
				BuildSrcFlags: "-DFOO -Wall",
				BuildUnflags:  flag,
			}
			hooks := map[config.Stage][]Mutation{
				config.StagePost: {hook("post.go", func(env *Env) {
					env.AppendFlags(Scalar(flag))
					env.Project().AppendFlags(Scalar(flag))
				})},
			}
			global, src, err := Resolve(context.Background(), desc, nativeDefaults, hooks)
			require.NoError(t, err)

			norm := NewToken(flag, "", "", OriginManifest, ScopeGlobal).Normalized
			assert.False(t, global.Has(norm))
			assert.False(t, src.Has(norm))
			assert.True(t, global.Has("-DFOO_BAR"))
			assert.True(t, global.Has("-Wall-extra"))
			assert.True(t, global.Has("-lmath"))
		})
	}
}

func TestResolve_ScopeSeparation(t *testing.T) {
	desc := &config.Environment{
		Name:          "native",
		BuildFlags:    "-DGLOBAL",
		BuildSrcFlags: "-DI_AM_ONLY_SRC_FLAG",
	}
	global, src, err := Resolve(context.Background(), desc, nativeDefaults, nil)
	require.NoError(t, err)

	assert.True(t, global.Has("-DGLOBAL"))
	assert.False(t, global.Has("-DI_AM_ONLY_SRC_FLAG"))
	assert.True(t, src.Has("-DI_AM_ONLY_SRC_FLAG"))
	for _, tok := range src.Tokens() {
		assert.Equal(t, ScopeSrcOnly, tok.Scope)
	}
}

func TestResolve_StageContributionsFollowStageOrder(t *testing.T) {
	desc := &config.Environment{Name: "native"}
	hooks := map[config.Stage][]Mutation{
		config.StagePre: {
			hook("a.go", func(env *Env) { env.AppendDefines(Scalar("PRE_A")) }),
			hook("b.go", func(env *Env) { env.AppendDefines(Scalar("PRE_B")) }),
		},
		config.StagePost: {hook("c.go", func(env *Env) { env.AppendDefines(Scalar("POST_C")) })},
	}
	global, _, err := Resolve(context.Background(), desc, Defaults{}, hooks)
	require.NoError(t, err)
	assert.Equal(t, []string{"-DPRE_A", "-DPRE_B", "-DPOST_C"}, global.Args())
}

func TestResolve_Errors(t *testing.T) {
	t.Run("malformed build_flags", func(t *testing.T) {
		desc := &config.Environment{Name: "native", BuildFlags: `-DX="oops`}
		_, _, err := Resolve(context.Background(), desc, Defaults{}, nil)
		kind, ok := builderr.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, builderr.KindManifest, kind)
		assert.ErrorContains(t, err, "native")
	})

	t.Run("hook returns error", func(t *testing.T) {
		desc := &config.Environment{Name: "native"}
		failing := Mutation{Name: "bad.go", Run: func(ctx context.Context, env *Env) error {
			return builderr.Hook("", "bad.go", errors.New("boom"))
		}}
		_, _, err := Resolve(context.Background(), desc, Defaults{}, map[config.Stage][]Mutation{config.StagePre: {failing}})
		assert.True(t, errors.Is(err, &builderr.Error{Kind: builderr.KindHook, Env: "native"}))
	})

	t.Run("bad hook input", func(t *testing.T) {
		desc := &config.Environment{Name: "native"}
		bad := hook("pair.go", func(env *Env) { env.AppendLibs(Pair("m", 1)) })
		_, _, err := Resolve(context.Background(), desc, Defaults{}, map[config.Stage][]Mutation{config.StagePost: {bad}})
		assert.ErrorContains(t, err, "does not accept a name/value pair")
	})
}

func TestPipeline_StageOrderEnforced(t *testing.T) {
	ctx := context.Background()
	p, err := NewPipeline(ctx, &config.Environment{Name: "native"}, Defaults{})
	require.NoError(t, err)

	require.NoError(t, p.RunStage(ctx, config.StagePost, nil))
	assert.Error(t, p.RunStage(ctx, config.StagePre, nil))

	_, _, err = p.Finalize(ctx)
	require.NoError(t, err)
	_, _, err = p.Finalize(ctx)
	assert.Error(t, err)
}

func TestPipeline_DependencyIncludes(t *testing.T) {
	ctx := context.Background()
	p, err := NewPipeline(ctx, &config.Environment{Name: "native"}, nativeDefaults)
	require.NoError(t, err)

	p.AddDependencyIncludes([]string{"lib/component", "/opt/External", "src/"})
	assert.Equal(t, []string{"include", "src", "lib/component", "/opt/External"}, p.IncludePaths())
	for _, tok := range p.global.Filter(CategoryIncludePath) {
		if tok.Normalized == "-Isrc" {
			assert.Equal(t, OriginBaseDefault, tok.Origin, "an existing include dir keeps its token")
		}
	}

	global, _, err := p.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"-Iinclude", "-Isrc", "-Ilib/component"}, VisibleArgs(global.Filter(CategoryIncludePath)))
}
