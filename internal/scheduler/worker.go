package scheduler

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/fingerprint"
	"github.com/vk/insituflow/internal/graph"
	"github.com/vk/insituflow/internal/metrics"
	"github.com/vk/insituflow/internal/report"
)

// worker is the processing loop of one concurrent worker.
func (p *pass) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for st := range p.ready {
		workerLogger := logger.With("workerID", workerID, "nodeID", st.node.ID)

		if err := ctx.Err(); err != nil {
			workerLogger.Debug("Context cancelled, not starting node.")
			p.settle(st, report.StatusCancelled, err)
			p.skipDependents(ctx, st, report.StatusCancelled, err)
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		if err := p.execute(ctx, st); err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			p.settle(st, report.StatusFailed, err)
			p.skipDependents(ctx, st, report.StatusSkipped, fmt.Errorf("skipped due to upstream failure of '%s'", st.node.ID))
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		p.settle(st, report.StatusSuccess, nil)
		dependents, _ := p.plan.DAG.Dependents(st.node.ID)
		for _, id := range dependents {
			dep := p.states[id]
			if dep.remaining.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", id)
				p.ready <- dep
			}
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// settle records the final outcome of a node exactly once. A failed or
// skipped step also fails its registry key so readers never block on it.
func (p *pass) settle(st *nodeState, status report.Status, err error) bool {
	settled := false
	st.settle.Do(func() {
		settled = true
		st.status = status
		st.err = err
		if status != report.StatusSuccess {
			if key, ok := st.node.Key(); ok {
				_ = p.reg.Fail(key, err)
			}
		}
		p.wg.Done()
	})
	return settled
}

// skipDependents settles the whole subtree below st with the given status.
func (p *pass) skipDependents(ctx context.Context, st *nodeState, status report.Status, err error) {
	logger := ctxlog.FromContext(ctx)
	dependents, _ := p.plan.DAG.Dependents(st.node.ID)
	for _, id := range dependents {
		dep := p.states[id]
		if p.settle(dep, status, err) {
			logger.Warn("Skipping dependent node.", "nodeID", id, "dependency", st.node.ID, "status", status)
			p.skipDependents(ctx, dep, status, err)
		}
	}
}

// execute runs one node and installs its result.
func (p *pass) execute(ctx context.Context, st *nodeState) error {
	n := st.node
	if n.Kind == graph.SourceNode {
		return p.publish(st)
	}

	ctx, span := p.tracer.Start(ctx, "filter.invoke", trace.WithAttributes(
		attribute.String("node.id", n.ID),
		attribute.String("node.kind", n.Kind.String()),
		attribute.String("filter.type", n.Type),
	))
	defer span.End()

	err := p.run(ctx, st)
	status := report.StatusSuccess
	if err != nil {
		status = report.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool("filter.cached", st.cached))
	if !st.cached {
		metrics.RecordInvocation(n.Type, status)
	}
	return err
}

// publish installs a source handle. Sources are borrowed from the caller.
func (p *pass) publish(st *nodeState) error {
	n := st.node
	handle, ok := p.sources[n.Owner]
	if !ok {
		return fmt.Errorf("source %q is not published", n.Owner)
	}
	version := p.passID
	if v, ok := handle.(fingerprint.Versioned); ok && v.Version() != "" {
		version = v.Version()
	}
	st.sum = fingerprint.Source(n.Owner, version)
	key, _ := n.Key()
	return p.reg.Share(key, handle)
}

func (p *pass) run(ctx context.Context, st *nodeState) error {
	n := st.node
	upstream := p.states[n.Input]
	inKey, _ := upstream.node.Key()
	input, err := p.reg.Wait(ctx, inKey)
	if err != nil {
		return fmt.Errorf("input %s: %w", inKey, err)
	}

	key, producesData := n.Key()
	if !producesData {
		_, err := invoke(ctx, n, input)
		return err
	}

	if p.cache == nil {
		out, err := invoke(ctx, n, input)
		if err != nil {
			return err
		}
		return p.reg.Put(key, out)
	}

	sum, err := fingerprint.Step(n.Type, n.Params.Value(), upstream.sum)
	if err != nil {
		return err
	}
	st.sum = sum
	out, hit, err := p.cache.Do(ctx, sum, func(ctx context.Context) (any, error) {
		return invoke(ctx, n, input)
	})
	metrics.RecordCacheLookup(hit)
	if err != nil {
		return err
	}
	st.cached = hit
	return p.reg.Share(key, out)
}

// invoke calls the filter, turning a panic into an error.
func invoke(ctx context.Context, n *graph.Node, input any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("filter %q panicked: %v", n.Type, r)
		}
	}()
	out, err = n.Desc.Invoke(ctx, []any{input}, n.Params)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", n.Kind, n.Type, err)
	}
	return out, nil
}
