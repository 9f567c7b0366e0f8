package exec

import (
	"context"

	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/expr"
	"github.com/kvfluent/client-go/pkg/stream"
)

// QueryOptions controls a namespace/set scan's behavior selection.
type QueryOptions struct {
	BehaviorName string
	Mode         behavior.Mode
}

// Query runs a (possibly index-accelerated) scan over namespace/set,
// resolving QueryPolicy from the registry and handing the call straight to
// the backend -- an AsyncRecordStream satisfies kvproto.RecordSink
// structurally, so the backend publishes results directly into it.
func (e *Executor) Query(ctx context.Context, namespace, set string, filter *expr.Filter, pred *expr.IRNode, opts QueryOptions) (*stream.AsyncRecordStream, error) {
	b, err := e.resolveBehavior(opts.BehaviorName)
	if err != nil {
		return nil, err
	}
	settings, err := b.Resolve(behavior.Triple{Kind: behavior.KindRead, Shape: behavior.ShapeQuery, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return nil, err
	}
	pol := behavior.AsQueryPolicy(settings)

	capacity := pol.QueueSize
	if capacity <= 0 {
		capacity = e.streamCapacity
	}
	s, err := stream.New(capacity)
	if err != nil {
		return nil, err
	}

	_, sp := e.inst.startCallSpan(ctx, "query", 0)
	if err := e.backend.Query(ctx, namespace, set, filter, pred, pol, s); err != nil {
		e.inst.finishCallSpan(sp, "query", err)
		return nil, err
	}
	e.inst.finishCallSpan(sp, "query", nil)
	return s, nil
}
