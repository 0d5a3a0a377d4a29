package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/cachestore"
	"github.com/vk/envbuild/internal/config"
	"github.com/vk/envbuild/internal/ctxlog"
	"github.com/vk/envbuild/internal/inmemorystore"
	"github.com/vk/envbuild/internal/registry"
	"github.com/vk/envbuild/internal/sqlitestore"
	"github.com/vk/envbuild/internal/toolchain"
)

// PlatformDir is the project directory holding extra platform definitions.
const PlatformDir = "platforms"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	transcript io.Writer
	logger     *slog.Logger
	cfg        *Config
	registry   *registry.Registry
	model      *config.Model
	cache      cachestore.Store
	toolchain  toolchain.Executor
}

// Option customizes an App. Tests use options to inject fakes.
type Option func(*App)

// WithToolchain replaces the process-spawning toolchain.
func WithToolchain(tc toolchain.Executor) Option {
	return func(a *App) { a.toolchain = tc }
}

// WithCache replaces the graph cache.
func WithCache(store cachestore.Store) Option {
	return func(a *App) { a.cache = store }
}

// WithTranscript sends the command transcript somewhere other than outW.
func WithTranscript(w io.Writer) Option {
	return func(a *App) { a.transcript = w }
}

// WithModules replaces the built-in platform modules.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) {
		for _, mod := range modules {
			mod.Register(a.registry)
		}
	}
}

// NewApp is the constructor for the main application. It loads the manifest,
// registers platforms and opens the graph cache. The returned App must be
// closed.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	root, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	model, err := loader.Load(ctx, root)
	if err != nil {
		return nil, err
	}
	logger.Debug("Manifest loaded.", "environments", len(model.Environments))

	a := &App{
		outW:       outW,
		transcript: outW,
		logger:     logger,
		cfg:        cfg,
		registry:   registry.New(),
		model:      model,
	}
	for _, opt := range opts {
		opt(a)
	}

	if len(a.registry.Names()) == 0 {
		for _, mod := range coreModules {
			mod.Register(a.registry)
		}
	}
	platformDir := model.Project.Abs(PlatformDir)
	if err := a.registry.LoadPlatformFiles(ctx, platformDir); err != nil {
		return nil, builderr.Manifest("", platformDir, "%v", err)
	}
	if err := a.registry.ValidateRegistry(ctx); err != nil {
		return nil, builderr.Manifest("", platformDir, "%v", err)
	}
	logger.Debug("Registry validation passed.", "platforms", a.registry.Names())

	if a.toolchain == nil {
		if cfg.DryRun {
			a.toolchain = toolchain.NewRecorder()
		} else {
			a.toolchain = toolchain.NewCommand(model.Project.Root)
		}
	}
	if a.cache == nil {
		a.cache = openCache(ctx, cfg)
	}
	return a, nil
}

// openCache opens the persistent graph cache. The build still works without
// one, so a failure only degrades to an in-memory store.
func openCache(ctx context.Context, cfg *Config) cachestore.Store {
	logger := ctxlog.FromContext(ctx)
	if cfg.NoCache {
		return nil
	}
	path := ""
	if cfg.CacheDir != "" {
		path = filepath.Join(cfg.CacheDir, "ldf.db")
	}
	store, err := sqlitestore.Open(ctx, path)
	if err != nil {
		logger.Warn("Graph cache unavailable, using memory.", "error", err)
		return inmemorystore.New()
	}
	logger.Debug("Graph cache opened.", "path", store.Path())
	return store
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded manifest.
func (a *App) Model() *config.Model {
	return a.model
}

// Close releases the graph cache.
func (a *App) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
