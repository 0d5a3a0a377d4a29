package hook

import (
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/vk/envbuild/internal/flags"
)

// ImportPath is the path scripts import the build API from.
const ImportPath = "envbuild/build"

// Symbols exposes the flag mutation API to interpreted scripts.
var Symbols = interp.Exports{
	ImportPath + "/build": {
		"Env":        reflect.ValueOf((*flags.Env)(nil)),
		"ProjectEnv": reflect.ValueOf((*flags.ProjectEnv)(nil)),
		"Input":      reflect.ValueOf((*flags.Input)(nil)),
		"Scalar":     reflect.ValueOf(flags.Scalar),
		"List":       reflect.ValueOf(flags.List),
		"Pair":       reflect.ValueOf(flags.Pair),
	},
}
