package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/ctxlog"
)

// FileName is the manifest looked up in the project directory.
const FileName = "envbuild.hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of a manifest.
type fileRoot struct {
	Project      *projectBlock
	Defaults     *optionsBlock
	Environments []*environmentBlock
}

type projectBlock struct {
	SrcDir      *string  `hcl:"src_dir,optional"`
	IncludeDir  *string  `hcl:"include_dir,optional"`
	LibDir      *string  `hcl:"lib_dir,optional"`
	TestDir     *string  `hcl:"test_dir,optional"`
	LibDepsDir  *string  `hcl:"libdeps_dir,optional"`
	BuildDir    *string  `hcl:"build_dir,optional"`
	DefaultEnvs []string `hcl:"default_envs,optional"`
}

type optionsBlock struct {
	Body hcl.Body
}

type environmentBlock struct {
	Name string
	Body hcl.Body
}

// Load parses projectDir/envbuild.hcl.
func (l *Loader) Load(ctx context.Context, projectDir string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(projectDir, FileName)
	logger.Debug("HCL loader started.", "path", path)

	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, builderr.Manifest("", path, "no %s in %s", FileName, projectDir)
	}
	if err != nil {
		return nil, builderr.Manifest("", path, "%v", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, builderr.Manifest("", path, "failed to parse: %v", diags)
	}

	root, err := decodeRoot(file.Body)
	if err != nil {
		return nil, builderr.Manifest("", path, "%v", err)
	}

	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, err
	}
	model := &config.Model{Project: translateProject(abs, root.Project)}

	var defaults map[string]*hcl.Attribute
	if root.Defaults != nil {
		if defaults, diags = root.Defaults.Body.JustAttributes(); diags.HasErrors() {
			return nil, builderr.Manifest("", path, "defaults: %v", diags)
		}
	}

	seen := make(map[string]bool)
	for _, block := range root.Environments {
		if seen[block.Name] {
			return nil, builderr.Manifest(block.Name, path, "environment %q is declared more than once", block.Name)
		}
		seen[block.Name] = true

		env, err := translateEnvironment(block, defaults)
		if err != nil {
			return nil, builderr.Manifest(block.Name, path, "%v", err)
		}
		model.Environments = append(model.Environments, env)
	}
	if len(model.Environments) == 0 {
		return nil, builderr.Manifest("", path, "no environment blocks declared")
	}

	logger.Debug("HCL loading complete.", "environments", len(model.Environments))
	return model, nil
}

func decodeRoot(body hcl.Body) (*fileRoot, error) {
	// The project block may reference ${sysenv.*}; decode the block list first,
	// then the project attributes with the variables they use.
	var root fileRoot
	content, diags := body.Content(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "project"},
			{Type: "defaults"},
			{Type: "environment", LabelNames: []string{"name"}},
		},
	})
	if diags.HasErrors() {
		return nil, diags
	}

	for _, b := range content.Blocks {
		switch b.Type {
		case "project":
			if root.Project != nil {
				return nil, fmt.Errorf("only one project block is allowed")
			}
			attrs, diags := b.Body.JustAttributes()
			if diags.HasErrors() {
				return nil, diags
			}
			p := &projectBlock{}
			if diags := gohcl.DecodeBody(b.Body, sysenvContext(attrs), p); diags.HasErrors() {
				return nil, diags
			}
			root.Project = p
		case "defaults":
			if root.Defaults != nil {
				return nil, fmt.Errorf("only one defaults block is allowed")
			}
			root.Defaults = &optionsBlock{Body: b.Body}
		case "environment":
			root.Environments = append(root.Environments, &environmentBlock{Name: b.Labels[0], Body: b.Body})
		}
	}
	return &root, nil
}

var _ config.Loader = (*Loader)(nil)
