package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/fingerprint"
	"github.com/vk/insituflow/internal/graph"
	"github.com/vk/insituflow/internal/outreg"
	"github.com/vk/insituflow/internal/report"
)

const tracerName = "github.com/vk/insituflow/internal/scheduler"

// Scheduler executes plans. It holds no per-pass state and may run several
// plans at once.
type Scheduler struct {
	workers int
	cache   *fingerprint.Cache
	tracer  trace.Tracer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the number of concurrent workers. Values below one mean
// one.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = max(n, 1)
	}
}

// WithCache enables incremental execution through the given cache.
func WithCache(c *fingerprint.Cache) Option {
	return func(s *Scheduler) { s.cache = c }
}

// WithTracer sets the tracer used for pass and invocation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// New creates a scheduler with one worker and no cache.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Workers returns the configured worker count.
func (s *Scheduler) Workers() int { return s.workers }

// Sources maps published dataset names to their handles.
type Sources map[string]any

// nodeState is the per-pass execution state of one plan node.
type nodeState struct {
	node      *graph.Node
	remaining atomic.Int32
	settle    sync.Once

	// Written once by the settling goroutine, read after the pass.
	status report.Status
	err    error
	cached bool
	sum    fingerprint.Sum
}

// pass is one run of a plan.
type pass struct {
	*Scheduler
	plan    *graph.Plan
	reg     *outreg.Registry
	sources Sources
	passID  string
	states  map[string]*nodeState
	ready   chan *nodeState
	wg      sync.WaitGroup
}

// Run executes every node of the plan, installs step results into reg and
// records the outcome of every pipeline, extract and plot in rep. Filter
// failures are recorded, not returned. The returned error is the context's
// error when the pass was cancelled.
func (s *Scheduler) Run(ctx context.Context, plan *graph.Plan, reg *outreg.Registry, sources Sources, rep *report.Report) error {
	ctx, span := s.tracer.Start(ctx, "scheduler.Run", trace.WithAttributes(
		attribute.String("pass.id", rep.PassID),
		attribute.Int("plan.nodes", len(plan.Order)),
		attribute.Int("scheduler.workers", s.workers),
	))
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	p := &pass{
		Scheduler: s,
		plan:      plan,
		reg:       reg,
		sources:   sources,
		passID:    rep.PassID,
		states:    make(map[string]*nodeState, len(plan.Order)),
		ready:     make(chan *nodeState, len(plan.Order)),
	}
	for _, id := range plan.Order {
		st := &nodeState{node: plan.Nodes[id]}
		deps, _ := plan.DAG.Dependencies(id)
		st.remaining.Store(int32(len(deps)))
		p.states[id] = st
	}

	p.wg.Add(len(plan.Order))
	roots := 0
	for _, id := range plan.Order {
		if st := p.states[id]; st.remaining.Load() == 0 {
			p.ready <- st
			roots++
		}
	}
	logger.Debug("Starting worker pool.", "workers", s.workers, "nodes", len(plan.Order), "roots", roots)

	var g errgroup.Group
	for i := range s.workers {
		g.Go(func() error {
			p.worker(ctx, i)
			return nil
		})
	}
	p.wg.Wait()
	close(p.ready)
	_ = g.Wait()

	p.fill(rep)
	if err := ctx.Err(); err != nil {
		logger.Warn("Pass cancelled.", "error", err)
		return err
	}
	logger.Debug("All nodes settled.")
	return nil
}

// fill copies node outcomes into the report. Steps keep pipeline order.
func (p *pass) fill(rep *report.Report) {
	for _, name := range p.plan.Pipelines {
		for _, id := range p.plan.Steps(name) {
			st := p.states[id]
			step := report.StepResult{
				Name:   st.node.StepName,
				Type:   st.node.Type,
				Status: st.status,
				Cached: st.cached,
			}
			if st.err != nil {
				step.Error = st.err.Error()
			}
			rep.AddStep(name, step)
		}
	}
	for _, id := range p.plan.Order {
		st := p.states[id]
		switch st.node.Kind {
		case graph.ExtractNode:
			rep.Set(report.Extract, st.node.Owner, st.status, st.err)
		case graph.PlotNode:
			rep.Set(report.Plot, st.node.Owner, st.status, st.err)
		}
	}
}
