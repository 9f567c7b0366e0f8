package exec

import (
	"context"
	"errors"
	"sync"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/expr"
	"github.com/kvfluent/client-go/pkg/kv"
	"github.com/kvfluent/client-go/pkg/kverrors"
	"github.com/kvfluent/client-go/pkg/stream"
)

// Get performs a single-key read, draining the one-element stream
// ReadMany produces and converting any per-key outcome error into a
// directly-returned Go error -- the "single-key synchronous paths throw"
// reading of spec.md §7's error policy.
func (e *Executor) Get(ctx context.Context, key kv.Key, pred *expr.IRNode, opts ReadOptions) (*kv.Record, error) {
	opts.Async = false
	s, err := e.ReadMany(ctx, []kv.Key{key}, pred, opts)
	if err != nil {
		return nil, err
	}
	view := s.View()
	defer view.Close()
	if !view.HasNext() {
		return nil, nil
	}
	record, err := view.Next()
	if err != nil {
		var keyErr *kverrors.KeyError
		if errors.As(err, &keyErr) {
			return nil, keyErr.Err
		}
		return nil, err
	}
	return record, nil
}

// ReadMany executes a multi-key read, selecting among the single/small-N/
// batch strategies by key count (spec.md §4.5). In synchronous mode (the
// default) it blocks until every worker (or the single batch call) has
// finished before returning; in asynchronous mode it returns immediately
// with a stream that completes once the last worker finishes.
func (e *Executor) ReadMany(ctx context.Context, keys []kv.Key, pred *expr.IRNode, opts ReadOptions) (*stream.AsyncRecordStream, error) {
	const op = "read"
	e.warnIfAsyncInTransaction(ctx, op, opts.Async)

	strat := e.selectStrategy(len(keys))
	shape := behavior.ShapePoint
	if strat == strategyBatch {
		shape = behavior.ShapeBatch
	}

	b, err := e.resolveBehavior(opts.BehaviorName)
	if err != nil {
		return nil, err
	}
	settings, err := b.Resolve(behavior.Triple{Kind: behavior.KindRead, Shape: shape, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return nil, err
	}
	readPol := behavior.AsReadPolicy(settings)
	batchPol := behavior.AsBatchPolicy(settings)

	s, err := stream.New(e.streamCapacity)
	if err != nil {
		return nil, err
	}

	run := func() {
		ctx, sp := e.inst.startCallSpan(ctx, op, len(keys))
		var runErr error
		switch strat {
		case strategyBatch:
			runErr = e.runBatchRead(ctx, op, s, keys, pred, batchPol, opts)
		default:
			runErr = e.runFannedOutRead(ctx, op, s, keys, pred, readPol, opts)
		}
		if runErr != nil {
			s.Error(runErr)
		} else {
			s.Complete()
		}
		e.inst.finishCallSpan(sp, op, runErr)
	}

	if opts.Async {
		go run()
	} else {
		run()
	}
	return s, nil
}

// runFannedOutRead implements strategies 1 (single key) and 2 (small N):
// one goroutine per key, each issuing its own single-key call, joined at a
// WaitGroup barrier -- mirroring src/driver/reactive.go's
// goroutine-per-operator-stage + wg.Wait() pattern. A whole-call-level
// error is never produced by this path; every outcome is per-key.
func (e *Executor) runFannedOutRead(ctx context.Context, op string, s *stream.AsyncRecordStream, keys []kv.Key, pred *expr.IRNode, pol behavior.ReadPolicy, opts ReadOptions) error {
	var wg sync.WaitGroup
	for _, key := range keys {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Cancelled() {
				return
			}
			record, err := e.readOne(ctx, op, key, pred, pol)
			e.emitReadOutcome(s, op, key, record, err, pred, opts)
		}()
	}
	wg.Wait()
	return nil
}

// runBatchRead implements strategy 3: one batched call to the backend,
// with results mapped to per-key events in request order.
func (e *Executor) runBatchRead(ctx context.Context, op string, s *stream.AsyncRecordStream, keys []kv.Key, pred *expr.IRNode, pol behavior.BatchPolicy, opts ReadOptions) error {
	rp := defaultRetryPolicy(pol.MaxRetries+1, false)
	callCtx := ctx
	if pol.TotalTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, pol.TotalTimeout)
		defer cancel()
	}
	results, err := retry(callCtx, rp, func() { e.inst.recordRetry(op) }, func() ([]kvproto.BatchResult, error) {
		return e.backend.BatchGet(callCtx, keys, pred, pol)
	})
	if err != nil {
		return err
	}
	for _, res := range results {
		e.emitReadOutcome(s, op, res.Key, res.Record, res.Err, pred, opts)
	}
	return nil
}

// readOne issues a single-key Get with the settings-resolved retry policy,
// bounding each attempt by AttemptTimeout and the whole call by
// TotalTimeout.
func (e *Executor) readOne(ctx context.Context, op string, key kv.Key, pred *expr.IRNode, pol behavior.ReadPolicy) (*kv.Record, error) {
	rp := defaultRetryPolicy(pol.MaxRetries+1, false)
	callCtx := ctx
	if pol.TotalTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, pol.TotalTimeout)
		defer cancel()
	}
	return retry(callCtx, rp, func() { e.inst.recordRetry(op) }, func() (*kv.Record, error) {
		attemptCtx := callCtx
		if pol.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(callCtx, pol.AttemptTimeout)
			defer cancel()
		}
		return e.backend.Get(attemptCtx, key, pred, pol)
	})
}

// emitReadOutcome applies the result-inclusion policy of spec.md §4.5 to a
// single key's outcome and publishes the corresponding stream event, if
// any. A genuine backend error always becomes a per-key event. A nil
// record with a non-nil predicate is read as "filtered out"; the Backend
// contract has no separate filtered-vs-missing signal, so this is the
// distinguishing rule this package applies (see DESIGN.md). A nil record
// with no predicate is a bare miss.
func (e *Executor) emitReadOutcome(s *stream.AsyncRecordStream, op string, key kv.Key, record *kv.Record, err error, pred *expr.IRNode, opts ReadOptions) {
	if err != nil {
		s.PublishErr(kverrors.NewKeyError(key, err))
		e.inst.recordEvents(op, 1)
		return
	}
	if record != nil {
		s.Publish(record)
		e.inst.recordEvents(op, 1)
		return
	}
	if pred != nil {
		if opts.FailOnFilteredOut {
			s.PublishErr(kverrors.NewKeyError(key, kverrors.NewServerError("filtered_out", "record filtered out by predicate")))
			e.inst.recordEvents(op, 1)
		}
		return
	}
	if opts.RespondAllKeys {
		s.PublishErr(kverrors.NewKeyError(key, kverrors.NewServerError("not_found", "key not found")))
		e.inst.recordEvents(op, 1)
	}
}
