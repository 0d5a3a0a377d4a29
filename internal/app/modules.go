package app

import (
	"github.com/vk/envbuild/internal/registry"
	"github.com/vk/envbuild/modules/embedded"
	"github.com/vk/envbuild/modules/native"
)

// coreModules is the definitive list of platforms compiled into the envbuild
// binary. Projects add more through platforms/*.hcl.
var coreModules = []registry.Module{
	&native.Module{},
	&embedded.Module{},
}
