package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/envbuild/internal/assembler"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/dag"
	"github.com/vk/envbuild/internal/executor"
	"github.com/vk/envbuild/internal/flags"
	"github.com/vk/envbuild/internal/hook"
	"github.com/vk/envbuild/internal/ldf"
	"github.com/vk/envbuild/internal/watch"
)

// Run builds every selected environment. A failing environment does not stop
// the others; their errors are joined. In watch mode Run keeps rebuilding on
// changes until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	envs, err := a.model.Select(a.cfg.Environments)
	if err != nil {
		return builderr.Manifest("", "", "%v", err)
	}
	if len(envs) == 0 {
		a.logger.Warn("No environments declared, nothing to build.")
		return nil
	}

	err = a.buildAll(ctx, envs)
	if !a.cfg.Watch {
		return err
	}

	p := a.model.Project
	w := watch.New(p.Root, p.Abs(p.SrcDir), p.Abs(p.IncludeDir), p.Abs(p.LibDir), p.Abs(p.TestDir))
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		a.logger.Info("Change detected, rebuilding.", "files", len(changed))
		if err := a.buildAll(ctx, envs); err != nil {
			a.logger.Error("Rebuild failed.", "error", err)
		}
	})
}

func (a *App) buildAll(ctx context.Context, envs []*config.Environment) error {
	runID := uuid.NewString()
	var errs []error
	for _, env := range envs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.Build(ctx, env, runID); err != nil {
			ctxlog.FromContext(ctx).Error("Environment failed.", "env", env.Name, "error", err)
			errs = append(errs, builderr.WithEnv(err, env.Name))
		}
	}
	return errors.Join(errs...)
}

// Build runs the whole pipeline for one environment: flags, dependency
// finder, assembly and toolchain dispatch.
func (a *App) Build(ctx context.Context, env *config.Environment, runID string) (*executor.Result, error) {
	ctx = ctxlog.With(ctx, "env", env.Name, "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	project := a.model.Project

	platform, err := a.registry.Platform(env.Platform)
	if err != nil {
		return nil, builderr.Manifest(env.Name, "", "%v", err)
	}

	hooks, err := hook.NewSandbox().LoadAll(ctx, project.Root, env)
	if err != nil {
		return nil, err
	}

	pipeline, err := flags.NewPipeline(ctx, env, platform.Defaults(), flags.WithProjectDir(project.Root))
	if err != nil {
		return nil, err
	}
	if err := pipeline.RunStage(ctx, config.StagePre, hooks[config.StagePre]); err != nil {
		return nil, err
	}

	req := ldf.NewRequest(project, env)
	req.AddIncludeDirs(pipeline.IncludePaths()...)
	resolver := &ldf.Resolver{Cache: a.cache}
	res, err := resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, u := range res.Graph.Unresolved() {
		logger.Warn("Include not found in any library.", "header", u.Header, "from", u.From)
	}
	pipeline.AddDependencyIncludes(includeDirs(project.Root, res.Graph))

	if err := pipeline.RunStage(ctx, config.StagePost, hooks[config.StagePost]); err != nil {
		return nil, err
	}
	global, src, err := pipeline.Finalize(ctx)
	if err != nil {
		return nil, err
	}

	srcDir := project.Abs(project.SrcDir)
	sources, err := assembler.CollectSources([]string{srcDir}, res.Graph)
	if err != nil {
		return nil, builderr.Resolution(env.Name, srcDir, err)
	}
	buildDir := filepath.Join(project.Abs(project.BuildDir), env.Name)
	plan, err := assembler.Assemble(ctx, global, src, res.Graph, sources, assembler.Options{
		Env:         env.Name,
		ProjectRoot: project.Root,
		BuildDir:    buildDir,
		Platform:    platform,
	})
	if err != nil {
		return nil, err
	}

	if !a.cfg.DryRun {
		path, err := plan.WriteCompileCommands(buildDir)
		if err != nil {
			logger.Warn("Failed to write compilation database.", "error", err)
		} else {
			logger.Debug("Compilation database written.", "path", path)
		}
	}

	result, err := executor.New(a.toolchain, a.cfg.Jobs, a.transcript).Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	logger.Info("Environment built.",
		"units", len(plan.Units),
		"libraries", res.Graph.Len()-1,
		"cached_graph", res.Cached,
		"duration", time.Since(start),
	)
	return result, nil
}

// includeDirs lists the include dirs of every resolved library in discovery
// order. Dirs inside the project are made relative to it so they show up in
// the transcript; dirs outside it stay absolute and internal.
func includeDirs(root string, g *dag.Graph) []string {
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		canonical = root
	}
	var out []string
	for _, n := range g.Libraries() {
		for _, dir := range n.Candidate.IncludeDirs {
			out = append(out, relInside(canonical, root, dir))
		}
	}
	return out
}

func relInside(canonical, root, dir string) string {
	for _, base := range []string{root, canonical} {
		rel, err := filepath.Rel(base, dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return dir
}
