package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/insituflow/internal/actionfile"
	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/diag"
	"github.com/vk/insituflow/internal/engine"
	"github.com/vk/insituflow/internal/graph"
	"github.com/vk/insituflow/modules/mesh"
)

// compile loads the action file and compiles it against the default mesh
// without executing anything.
func (a *App) compile(ctx context.Context) (*graph.Plan, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	tree, err := actionfile.Load(ctx, a.config.ActionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}
	src := engine.Single(mesh.DefaultName, nil)
	_, plan := a.engine.Compile(ctx, tree, src)
	return plan, nil
}

// Validate prints every diagnostic of the action file, one per line, and
// returns them. A load failure is returned as an error.
func (a *App) Validate(ctx context.Context) (diag.List, error) {
	plan, err := a.compile(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range plan.Errors {
		fmt.Fprintln(a.outW, d.Error())
	}
	if len(plan.Errors) == 0 {
		fmt.Fprintf(a.outW, "OK: %d nodes\n", len(plan.Order))
	}
	return plan.Errors, nil
}

// Graph writes the compiled plan as "dot" or "json".
func (a *App) Graph(ctx context.Context, format string) error {
	plan, err := a.compile(ctx)
	if err != nil {
		return err
	}
	switch format {
	case "dot":
		dot, err := plan.DOT()
		if err != nil {
			return fmt.Errorf("failed to render graph: %w", err)
		}
		_, err = fmt.Fprintln(a.outW, dot)
		return err
	case "json":
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(plan.Info())
	}
	return fmt.Errorf("unknown graph format %q: must be 'dot' or 'json'", format)
}
