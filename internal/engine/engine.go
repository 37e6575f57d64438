package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/insituflow/internal/action"
	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/diag"
	"github.com/vk/insituflow/internal/fingerprint"
	"github.com/vk/insituflow/internal/graph"
	"github.com/vk/insituflow/internal/metrics"
	"github.com/vk/insituflow/internal/nodeid"
	"github.com/vk/insituflow/internal/outreg"
	"github.com/vk/insituflow/internal/params"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/internal/report"
	"github.com/vk/insituflow/internal/scheduler"
	"github.com/vk/insituflow/internal/schema"
)

const tracerName = "github.com/vk/insituflow/internal/engine"

// Sources are the datasets published for one pass.
type Sources struct {
	// Default is the dataset consumed by directives that name no input.
	Default  string
	Datasets map[string]any
}

// Single publishes one dataset as the default source.
func Single(name string, handle any) Sources {
	return Sources{Default: name, Datasets: map[string]any{name: handle}}
}

func (s Sources) catalog() graph.Catalog {
	names := make([]string, 0, len(s.Datasets))
	for name := range s.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return graph.Catalog{Default: s.Default, Names: names}
}

// OutputHook sees the output registry of a pass after scheduling and
// before it is cleared.
type OutputHook func(ctx context.Context, out *outreg.Registry)

// Engine executes action trees against a sealed filter registry. It is safe
// for concurrent use; each Execute call owns its own output registry.
type Engine struct {
	reg     *registry.Registry
	workers int
	cache   *fingerprint.Cache
	tracer  trace.Tracer
	hook    OutputHook
	sched   *scheduler.Scheduler
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many filters may run at once.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithCache enables incremental execution: step results are memoized by
// fingerprint across passes.
func WithCache(c *fingerprint.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithTracer sets the tracer for pass spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithOutputHook installs a hook that inspects outputs before release.
func WithOutputHook(h OutputHook) Option {
	return func(e *Engine) { e.hook = h }
}

// New creates an engine and seals the registry.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	reg.Seal()

	schedOpts := []scheduler.Option{scheduler.WithWorkers(e.workers), scheduler.WithTracer(e.tracer)}
	if e.cache != nil {
		schedOpts = append(schedOpts, scheduler.WithCache(e.cache))
	}
	e.sched = scheduler.New(schedOpts...)
	return e
}

// Registry returns the filter registry the engine resolves types against.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Reset drops every memoized result.
func (e *Engine) Reset() {
	if e.cache != nil {
		e.cache.Reset()
	}
}

// Compile validates and builds a tree without executing it. Diagnostics
// from both stages are in the plan's Errors.
func (e *Engine) Compile(ctx context.Context, tree *action.Tree, src Sources) (*schema.Result, *graph.Plan) {
	res := schema.Validate(tree)
	plan := graph.Build(ctx, res, e.reg, src.catalog())
	errs := append(diag.List{}, res.Errors...)
	errs.Extend(plan.Errors)
	plan.Errors = errs
	return res, plan
}

// ExecuteValue decodes a raw action tree and executes it. It fails only when
// the root itself cannot be read as an action tree.
func (e *Engine) ExecuteValue(ctx context.Context, root params.Value, src Sources) (*report.Report, error) {
	tree, err := action.FromValue(root)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, tree, src)
}

// Execute runs one pass. Validation, build and execution problems are
// recorded in the report; the only error returned is the context's, when
// the pass was cancelled. Outputs are released before Execute returns.
func (e *Engine) Execute(ctx context.Context, tree *action.Tree, src Sources) (*report.Report, error) {
	passID := uuid.NewString()
	ctx = ctxlog.With(ctx, "pass_id", passID)
	ctx, span := e.tracer.Start(ctx, "engine.Execute", trace.WithAttributes(
		attribute.String("pass.id", passID),
		attribute.Int("actions", len(tree.Actions)),
	))
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	rep := report.New(passID)
	out := outreg.New()
	defer func() {
		if err := out.Clear(); err != nil {
			logger.Warn("Releasing outputs failed.", "error", err)
			var l diag.List
			l.Add(diag.Execution, nodeid.New("outputs"), "release outputs: %v", err)
			rep.AddErrors(l)
		}
		rep.Finish()
		metrics.RecordPass(rep)
		logger.Info("Pass finished.",
			"duration", rep.Duration,
			"errors", len(rep.Errors),
			"pipelines", len(rep.Pipelines),
			"extracts", len(rep.Extracts),
			"plots", len(rep.Plots),
		)
	}()

	res, plan := e.Compile(ctx, tree, src)
	if res.Reset {
		logger.Info("Reset requested, dropping memoized results.")
		e.Reset()
	}
	rep.AddErrors(plan.Errors)
	for _, r := range res.Rejected {
		kind, name := section(r)
		rep.Set(kind, name, report.StatusInvalid, nil)
	}
	for _, r := range plan.Pruned {
		kind, name := section(r)
		rep.Set(kind, name, report.StatusPruned, nil)
	}
	if len(plan.Errors) > 0 {
		logger.Warn("Action tree has problems; running what remains.", "diagnostics", len(plan.Errors), "first", plan.Errors[0].Error())
	}

	err := e.sched.Run(ctx, plan, out, scheduler.Sources(src.Datasets), rep)
	if e.hook != nil {
		e.hook(ctx, out)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return rep, fmt.Errorf("pass %s: %w", passID, err)
	}
	return rep, nil
}

// section maps a rejected name to its report section. A scene that was
// rejected as a whole is reported as <scene>/*.
func section(r schema.Rejected) (report.Kind, string) {
	switch r.Kind {
	case schema.KindExtract:
		return report.Extract, r.Name
	case schema.KindScene:
		return report.Plot, schema.PlotKey(r.Name, "*")
	case schema.KindPlot:
		return report.Plot, r.Name
	}
	return report.Pipeline, r.Name
}
