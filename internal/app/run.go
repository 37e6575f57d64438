package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vk/insituflow/internal/action"
	"github.com/vk/insituflow/internal/actionfile"
	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/engine"
	"github.com/vk/insituflow/modules/mesh"
)

// ErrPassFailed is returned in strict mode when a pass reports errors.
var ErrPassFailed = errors.New("pass completed with errors")

// Run loads the action file and executes one pass per timestep against a
// freshly published braid mesh, writing each report as one JSON line.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.startHealthcheckServer()
	defer a.closeHealthcheckServer()

	tree, err := actionfile.Load(ctx, a.config.ActionPath)
	if err != nil {
		return fmt.Errorf("failed to load actions: %w", err)
	}

	var changed <-chan struct{}
	if a.config.Watch {
		w, err := actionfile.NewWatcher(a.config.ActionPath, actionfile.DefaultDebounce)
		if err != nil {
			return fmt.Errorf("failed to watch actions: %w", err)
		}
		defer w.Close()
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch actions: %w", err)
		}
		changed = w.Changed()
	}

	enc := json.NewEncoder(a.outW)
	failed := 0
	for cycle := 0; cycle < a.config.Steps; cycle++ {
		select {
		case <-changed:
			tree = a.reload(ctx, tree)
		default:
		}

		a.logger.Info("🚀 Starting pass.", "cycle", cycle)
		src := engine.Single(mesh.DefaultName, mesh.Braid(mesh.DefaultName, a.config.MeshDims, cycle))
		rep, err := a.engine.Execute(ctx, tree, src)
		if rep != nil {
			if encErr := enc.Encode(rep); encErr != nil {
				return fmt.Errorf("failed to write report: %w", encErr)
			}
		}
		if err != nil {
			return err
		}
		if !rep.OK() {
			failed++
		}
	}

	a.logger.Info("🏁 Run finished.", "passes", a.config.Steps, "failed_passes", failed)
	if a.config.Strict && failed > 0 {
		return fmt.Errorf("%d of %d passes: %w", failed, a.config.Steps, ErrPassFailed)
	}
	return nil
}

// reload re-reads the action file. A file that no longer parses keeps the
// previous tree so a half-saved edit does not stop the run.
func (a *App) reload(ctx context.Context, current *action.Tree) *action.Tree {
	tree, err := actionfile.Load(ctx, a.config.ActionPath)
	if err != nil {
		a.logger.Warn("Reload failed; keeping previous actions.", "error", err)
		return current
	}
	a.logger.Info("Actions reloaded.", "directives", len(tree.Actions))
	return tree
}
