package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/insituflow/internal/engine"
	"github.com/vk/insituflow/internal/fingerprint"
	"github.com/vk/insituflow/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	engine     *engine.Engine
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Reports go to outW
// and logs to logW. With no modules the core filter set is registered. A
// module registering a duplicate type panics; that is a programming error.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(cfg.OutputDir, outW)
	}
	registry.RegisterModules(reg, modules...)
	logger.Debug("All filter modules registered.", "modules", len(modules), "types", reg.Types())

	opts := []engine.Option{engine.WithWorkers(cfg.Workers)}
	if cfg.CacheSize > 0 {
		opts = append(opts, engine.WithCache(fingerprint.NewCache(cfg.CacheSize)))
		logger.Debug("Incremental execution enabled.", "cache_size", cfg.CacheSize)
	}

	return &App{
		ctx:      context.Background(),
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		engine:   engine.New(reg, opts...),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
