package flags

import "regexp"

// Family is an identity slot: a group of mutually exclusive flags.
type Family string

const (
	FamilyOptimization Family = "optimization"
	FamilyDebugInfo    Family = "debug-info"
	FamilyBackendDebug Family = "backend-debug-info"
)

var families = []struct {
	family Family
	re     *regexp.Regexp
}{
	{FamilyOptimization, regexp.MustCompile(`^-O([0-3]|s|g|z|fast)?$`)},
	{FamilyBackendDebug, regexp.MustCompile(`^-ggdb[0-3]?$`)},
	{FamilyDebugInfo, regexp.MustCompile(`^-g[0-3]?$`)},
}

// FamilyOf reports the identity slot arg belongs to, if any.
func FamilyOf(arg string) (Family, bool) {
	for _, f := range families {
		if f.re.MatchString(arg) {
			return f.family, true
		}
	}
	return "", false
}

// DefaultDebugFlags are the stage-2 defaults for build_type = debug.
const DefaultDebugFlags = "-Og -g2 -ggdb2"

// DebugDefine is added to every debug build.
const DebugDefine = "-D__BUILD_DEBUG__"
