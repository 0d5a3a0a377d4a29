package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/fsutil"
)

type platformFile struct {
	Platforms []*platformBlock `hcl:"platform,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type platformBlock struct {
	Name        string   `hcl:"name,label"`
	Extends     *string  `hcl:"extends,optional"`
	CC          *string  `hcl:"cc,optional"`
	CXX         *string  `hcl:"cxx,optional"`
	AR          *string  `hcl:"ar,optional"`
	BuildFlags  []string `hcl:"build_flags,optional"`
	LinkFlags   []string `hcl:"link_flags,optional"`
	ProgramName *string  `hcl:"program_name,optional"`
}

// LoadPlatformFiles registers every platform block found in .hcl files under
// dir. A block may extend an already registered platform, inheriting every
// attribute it does not set. A missing dir is not an error.
func (r *Registry) LoadPlatformFiles(ctx context.Context, dir string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading platform definitions...", "path", dir)

	filePaths, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return fmt.Errorf("failed to walk platforms directory %s: %w", dir, err)
	}
	if len(filePaths) == 0 {
		return nil
	}

	parser := hclparse.NewParser()
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
		}

		var pf platformFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &pf); diags.HasErrors() {
			return fmt.Errorf("failed to decode platforms in %s: %w", filePath, diags)
		}
		for _, b := range pf.Platforms {
			p, err := r.fromBlock(b)
			if err != nil {
				return fmt.Errorf("%s: %w", filePath, err)
			}
			if _, exists := r.platforms[p.Name]; exists {
				return fmt.Errorf("%s: platform '%s' already registered", filePath, p.Name)
			}
			r.RegisterPlatform(p)
		}
		logger.Debug("Successfully loaded platforms from HCL file", "file", filePath, "count", len(pf.Platforms))
	}
	return nil
}

func (r *Registry) fromBlock(b *platformBlock) (*Platform, error) {
	p := &Platform{Name: b.Name, ProgramName: "program"}
	if b.Extends != nil {
		base, err := r.Platform(*b.Extends)
		if err != nil {
			return nil, fmt.Errorf("platform '%s' extends: %w", b.Name, err)
		}
		cp := *base
		cp.Name = b.Name
		cp.CompileFlags = append([]string(nil), base.CompileFlags...)
		cp.LinkFlags = append([]string(nil), base.LinkFlags...)
		p = &cp
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.CC, b.CC)
	set(&p.CXX, b.CXX)
	set(&p.AR, b.AR)
	set(&p.ProgramName, b.ProgramName)
	if b.BuildFlags != nil {
		p.CompileFlags = b.BuildFlags
	}
	if b.LinkFlags != nil {
		p.LinkFlags = b.LinkFlags
	}
	return p, nil
}
