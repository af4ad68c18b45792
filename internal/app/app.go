package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/codegen"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/render"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	modules  []catalog.Module
	catalog  *catalog.Catalog
	gen      *codegen.Generator
	renderer *render.Renderer
}

// NewApp is the constructor for the main application. Programs are written
// to outW unless the config names an output file; logs go to logW. It
// returns a fully initialized App with its own isolated logger and catalog.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...catalog.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cat, err := loadCatalog(ctx, cfg.CatalogPath, modules)
	if err != nil {
		return nil, err
	}
	logger.Debug("Catalog ready.", "kinds", len(cat.Kinds()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		modules:  modules,
		catalog:  cat,
		gen:      codegen.New(cat),
		renderer: render.NewRenderer(cfg.ManimBinary, cfg.WorkDir),
	}, nil
}

// Catalog returns the application's catalog. This is primarily for testing.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// loadCatalog builds the built-in catalog and layers the manifests under
// dir on top of it.
func loadCatalog(ctx context.Context, dir string, modules []catalog.Module) (*catalog.Catalog, error) {
	cat, err := catalog.Default(ctx, modules...)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	if dir == "" {
		return cat, nil
	}
	if err := cat.LoadDir(ctx, dir); err != nil {
		return nil, fmt.Errorf("failed to load catalog manifests: %w", err)
	}
	if err := cat.Validate(ctx); err != nil {
		return nil, err
	}
	return cat, nil
}
