package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTokens(t *testing.T, raw string, origin Origin) []Token {
	t.Helper()
	tokens, err := Tokenize(raw, origin, ScopeGlobal)
	require.NoError(t, err)
	return tokens
}

func TestSet_AppendKeepsOrderAndDuplicates(t *testing.T) {
	s := NewSet(mustTokens(t, "-Wall -Os -Wall", OriginManifest)...)
	assert.Equal(t, []string{"-Wall", "-Os", "-Wall"}, s.Args())
	assert.True(t, s.Has("-Wall"))
	assert.False(t, s.Has("-O2"))
}

func TestSet_RemoveIsExact(t *testing.T) {
	s := NewSet(mustTokens(t, "-DTMP -DTMP_MACRO1 -DTMP_MACRO1=2 -Os", OriginManifest)...)

	removed := s.Remove("-DTMP_MACRO1")
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"-DTMP", "-Os"}, s.Args())

	assert.Zero(t, s.Remove("-DNOT_THERE"))
	assert.Equal(t, 2, s.Len())
}

func TestSet_OverrideDisplacesSlot(t *testing.T) {
	s := NewSet(mustTokens(t, "-Os -Wall -O2", OriginBaseDefault)...)
	optimization := func(cur Token) bool {
		fam, ok := FamilyOf(cur.Arg)
		return ok && fam == FamilyOptimization
	}

	removed := s.Override(NewToken("-Og", "", "", OriginDebugDefault, ScopeGlobal), optimization)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"-Wall", "-Og"}, s.Args())

	removed = s.Override(NewToken("-g2", "", "", OriginDebugDefault, ScopeGlobal), func(Token) bool { return false })
	assert.Zero(t, removed)
	assert.Equal(t, []string{"-Wall", "-Og", "-g2"}, s.Args())
}

func TestSet_Dedupe(t *testing.T) {
	s := NewSet(mustTokens(t, "-Wall -DX=1 -Os -Wall -DX=2", OriginManifest)...)
	s.Append(NewToken("-DX=9", "", "", OriginManifest, ScopeSrcOnly))
	s.Dedupe()

	assert.Equal(t, []string{"-Wall", "-DX=2", "-Os", "-DX=9"}, s.Args())
}

func TestFamilyOf(t *testing.T) {
	cases := map[string]Family{
		"-O0": FamilyOptimization, "-O3": FamilyOptimization, "-Os": FamilyOptimization, "-Og": FamilyOptimization,
		"-g": FamilyDebugInfo, "-g2": FamilyDebugInfo,
		"-ggdb": FamilyBackendDebug, "-ggdb3": FamilyBackendDebug,
	}
	for arg, want := range cases {
		got, ok := FamilyOf(arg)
		require.True(t, ok, arg)
		assert.Equal(t, want, got, arg)
	}
	for _, arg := range []string{"-O4", "-Wall", "-gsplit-dwarf", "-ggdb4"} {
		_, ok := FamilyOf(arg)
		assert.False(t, ok, arg)
	}
}
