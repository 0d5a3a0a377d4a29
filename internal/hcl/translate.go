package hcl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/envbuild/internal/config"
)

// translateProject applies the project block over the default layout.
func translateProject(root string, b *projectBlock) *config.Project {
	p := config.DefaultProject(root)
	if b == nil {
		return p
	}
	set := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	set(&p.SrcDir, b.SrcDir)
	set(&p.IncludeDir, b.IncludeDir)
	set(&p.LibDir, b.LibDir)
	set(&p.TestDir, b.TestDir)
	set(&p.LibDepsDir, b.LibDepsDir)
	set(&p.BuildDir, b.BuildDir)
	p.DefaultEnvs = b.DefaultEnvs
	return p
}

// translateEnvironment evaluates the defaults, then the environment's own
// attributes, and builds the descriptor. An attribute set in the
// environment replaces the default entirely.
func translateEnvironment(b *environmentBlock, defaults map[string]*hcl.Attribute) (*config.Environment, error) {
	own, diags := b.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	values := make(map[string][]string)
	for _, attrs := range []map[string]*hcl.Attribute{defaults, own} {
		ctx := sysenvContext(attrs)
		for _, name := range sortedNames(attrs) {
			v, err := evalStrings(attrs[name], ctx)
			if err != nil {
				return nil, err
			}
			values[name] = v
		}
	}

	env := &config.Environment{
		Name:    b.Name,
		Options: make(map[string]string, len(values)),
	}
	for k, v := range values {
		env.Options[k] = strings.Join(v, "\n")
	}

	flag := func(key string) string { return env.Options[key] }
	// Multi-value options take one entry per line or per comma.
	list := func(key string) []string {
		var out []string
		for _, v := range values[key] {
			for _, item := range strings.FieldsFunc(v, isListSeparator) {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
		}
		return out
	}

	env.Platform = strings.TrimSpace(flag("platform"))
	if env.Platform == "" {
		env.Platform = "native"
	}

	var err error
	if env.BuildType, err = config.ParseBuildType(flag("build_type")); err != nil {
		return nil, err
	}
	if env.LDFMode, err = config.ParseLDFMode(flag("lib_ldf_mode")); err != nil {
		return nil, err
	}

	env.BuildFlags = flag("build_flags")
	env.BuildSrcFlags = flag("build_src_flags")
	env.BuildUnflags = flag("build_unflags")
	env.DebugBuildFlags = flag("debug_build_flags")

	env.LibDeps = list("lib_deps")
	env.LibExtraDirs = list("lib_extra_dirs")
	env.LibIgnore = list("lib_ignore")
	env.ExtraScripts = config.ParseScripts(list("extra_scripts"))

	for _, s := range env.ExtraScripts {
		if s.Path == "" {
			return nil, fmt.Errorf("extra_scripts: empty script path")
		}
	}
	return env, nil
}

func isListSeparator(r rune) bool { return r == '\n' || r == ',' }
