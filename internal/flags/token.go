package flags

import (
	"path/filepath"
	"strings"
)

// Category is the kind of toolchain argument a token represents.
type Category int

const (
	CategoryDefine Category = iota
	CategoryIncludePath
	CategoryCompileFlag
	CategoryLinkFlag
	CategoryLibrary
)

func (c Category) String() string {
	switch c {
	case CategoryDefine:
		return "define"
	case CategoryIncludePath:
		return "include-path"
	case CategoryCompileFlag:
		return "compile-flag"
	case CategoryLinkFlag:
		return "link-flag"
	case CategoryLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// Origin records which pipeline input contributed a token.
type Origin string

const (
	OriginBaseDefault  Origin = "base-default"
	OriginDebugDefault Origin = "debug-default"
	OriginManifest     Origin = "manifest"
	OriginScript       Origin = "script"
	OriginDependency   Origin = "dependency"
	OriginLibrary      Origin = "library"
)

// IsDefault reports whether the token came from a default rather than from
// something the user wrote.
func (o Origin) IsDefault() bool {
	return o == OriginBaseDefault || o == OriginDebugDefault
}

// Visibility controls whether a token is shown in the transcript.
type Visibility int

const (
	Visible Visibility = iota
	Internal
)

// Scope controls which compile units receive a token.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeSrcOnly
)

func (s Scope) String() string {
	if s == ScopeSrcOnly {
		return "src-only"
	}
	return "global"
}

// Token is a single flag as it moves through the pipeline.
type Token struct {
	Category Category
	// Raw is the text as it was written.
	Raw string
	// Arg is the effective argument; never split further.
	Arg string
	// Operand is the second argv element of two-word flags like -include.
	Operand string
	// Normalized is the identity used for unflag matching and dedupe.
	Normalized string

	Origin     Origin
	Visibility Visibility
	Scope      Scope
}

// Argv returns the argv elements of the token.
func (t Token) Argv() []string {
	if t.Operand != "" {
		return []string{t.Arg, t.Operand}
	}
	return []string{t.Arg}
}

// twoWordFlags take their operand as a separate argv element.
var twoWordFlags = map[string]bool{
	"-include":   true,
	"-imacros":   true,
	"-isystem":   true,
	"-iquote":    true,
	"-idirafter": true,
	"-x":         true,
}

// joinedFlags accept "-D NAME" as a spelling of "-DNAME".
var joinedFlags = map[string]bool{
	"-D": true,
	"-U": true,
	"-I": true,
	"-L": true,
	"-l": true,
}

// NewToken classifies arg and fills in identity and visibility.
func NewToken(arg, operand, raw string, origin Origin, scope Scope) Token {
	t := Token{Raw: raw, Arg: arg, Operand: operand, Origin: origin, Scope: scope}
	if t.Raw == "" {
		t.Raw = strings.Join(t.Argv(), " ")
	}

	switch {
	case strings.HasPrefix(arg, "-D"), strings.HasPrefix(arg, "-U"):
		t.Category = CategoryDefine
		name, _, _ := strings.Cut(arg[2:], "=")
		t.Normalized = arg[:2] + name
	case strings.HasPrefix(arg, "-I"):
		t.Category = CategoryIncludePath
		dir := arg[2:]
		if dir != "" {
			dir = filepath.Clean(dir)
		}
		t.Normalized = "-I" + dir
		if filepath.IsAbs(dir) {
			t.Visibility = Internal
		}
	case strings.HasPrefix(arg, "-isystem"), strings.HasPrefix(arg, "-iquote"), strings.HasPrefix(arg, "-idirafter"):
		t.Category = CategoryIncludePath
		t.Normalized = arg + " " + filepath.Clean(operand)
		if filepath.IsAbs(operand) {
			t.Visibility = Internal
		}
	case strings.HasPrefix(arg, "-l"):
		t.Category = CategoryLibrary
		t.Normalized = arg
	case strings.HasPrefix(arg, "-L"):
		t.Category = CategoryLinkFlag
		t.Normalized = "-L" + filepath.Clean(arg[2:])
		if filepath.IsAbs(arg[2:]) {
			t.Visibility = Internal
		}
	case strings.HasPrefix(arg, "-Wl,"), strings.HasPrefix(arg, "-T"), arg == "-static", arg == "-nostdlib", arg == "-shared":
		t.Category = CategoryLinkFlag
		t.Normalized = arg
	case !strings.HasPrefix(arg, "-") && isArchive(arg):
		t.Category = CategoryLibrary
		t.Normalized = arg
		if filepath.IsAbs(arg) {
			t.Visibility = Internal
		}
	default:
		t.Category = CategoryCompileFlag
		t.Normalized = strings.Join(t.Argv(), " ")
	}
	return t
}

func isArchive(s string) bool {
	switch filepath.Ext(s) {
	case ".a", ".so", ".o", ".lib", ".dylib":
		return true
	}
	return false
}
