package exec

import (
	"context"
	"sync"
	"time"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/kv"
	"github.com/kvfluent/client-go/pkg/kverrors"
	"github.com/kvfluent/client-go/pkg/stream"
)

// Put writes bins to a single key, applying the TTL (resolved by ResolveTTL)
// and generation precondition given in opts.
func (e *Executor) Put(ctx context.Context, key kv.Key, bins map[string]interface{}, opts WriteOptions) error {
	ttl, err := ResolveTTL(opts.TTLSeconds, opts.BatchTTLSeconds, time.Now())
	if err != nil {
		return err
	}

	b, err := e.resolveBehavior(opts.BehaviorName)
	if err != nil {
		return err
	}
	settings, err := b.Resolve(behavior.Triple{Kind: opts.writeKind(), Shape: behavior.ShapePoint, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return err
	}
	pol := behavior.AsWritePolicy(settings)

	wop := kvproto.WriteOp{Bins: bins, Generation: opts.Generation, TTLSeconds: ttl}
	allowConflictRetry := opts.writeKind() == behavior.KindWriteRetryable
	return e.writeOne(ctx, "put", pol, allowConflictRetry, func(attemptCtx context.Context) error {
		return e.backend.Put(attemptCtx, key, wop, pol)
	})
}

// Delete removes a single key, applying the generation precondition given
// in opts.
func (e *Executor) Delete(ctx context.Context, key kv.Key, opts WriteOptions) error {
	b, err := e.resolveBehavior(opts.BehaviorName)
	if err != nil {
		return err
	}
	settings, err := b.Resolve(behavior.Triple{Kind: opts.writeKind(), Shape: behavior.ShapePoint, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return err
	}
	pol := behavior.AsWritePolicy(settings)

	allowConflictRetry := opts.writeKind() == behavior.KindWriteRetryable
	return e.writeOne(ctx, "delete", pol, allowConflictRetry, func(attemptCtx context.Context) error {
		return e.backend.Delete(attemptCtx, key, opts.Generation, pol)
	})
}

func (e *Executor) writeOne(ctx context.Context, op string, pol behavior.WritePolicy, allowConflictRetry bool, call func(ctx context.Context) error) error {
	rp := defaultRetryPolicy(pol.MaxRetries+1, allowConflictRetry)
	callCtx := ctx
	if pol.TotalTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, pol.TotalTimeout)
		defer cancel()
	}
	_, err := retry(callCtx, rp, func() { e.inst.recordRetry(op) }, func() (struct{}, error) {
		attemptCtx := callCtx
		if pol.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(callCtx, pol.AttemptTimeout)
			defer cancel()
		}
		return struct{}{}, call(attemptCtx)
	})
	return err
}

// BatchPutEntry is one key's write, for PutMany.
type BatchPutEntry struct {
	Key  kv.Key
	Bins map[string]interface{}
	// TTLSeconds overrides opts.TTLSeconds/BatchTTLSeconds for this entry.
	TTLSeconds int32
	// Generation overrides opts.Generation for this entry.
	Generation uint32
}

// PutMany writes multiple keys, selecting among the single/small-N/batch
// strategies by entry count, in synchronous or asynchronous mode.
func (e *Executor) PutMany(ctx context.Context, entries []BatchPutEntry, opts WriteOptions) (*stream.AsyncRecordStream, error) {
	const op = "put"
	e.warnIfAsyncInTransaction(ctx, op, opts.Async)

	strat := e.selectStrategy(len(entries))

	b, err := e.resolveBehavior(opts.BehaviorName)
	if err != nil {
		return nil, err
	}
	pointSettings, err := b.Resolve(behavior.Triple{Kind: opts.writeKind(), Shape: behavior.ShapePoint, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return nil, err
	}
	batchSettings, err := b.Resolve(behavior.Triple{Kind: opts.writeKind(), Shape: behavior.ShapeBatch, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return nil, err
	}
	pointPol := behavior.AsWritePolicy(pointSettings)
	batchPol := behavior.AsBatchPolicy(batchSettings)
	allowConflictRetry := opts.writeKind() == behavior.KindWriteRetryable

	s, err := stream.New(e.streamCapacity)
	if err != nil {
		return nil, err
	}

	run := func() {
		ctx, sp := e.inst.startCallSpan(ctx, op, len(entries))
		var runErr error
		switch strat {
		case strategyBatch:
			runErr = e.runBatchPut(ctx, s, entries, opts, batchPol)
		default:
			runErr = e.runFannedOutPut(ctx, s, entries, opts, pointPol, allowConflictRetry)
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

func (e *Executor) runFannedOutPut(ctx context.Context, s *stream.AsyncRecordStream, entries []BatchPutEntry, opts WriteOptions, pol behavior.WritePolicy, allowConflictRetry bool) error {
	var wg sync.WaitGroup
	for _, entry := range entries {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Cancelled() {
				return
			}
			ttl, err := ResolveTTL(entryTTL(entry, opts), opts.BatchTTLSeconds, time.Now())
			if err != nil {
				s.PublishErr(kverrors.NewKeyError(entry.Key, err))
				return
			}
			gen := entryGeneration(entry, opts)
			wop := kvproto.WriteOp{Bins: entry.Bins, Generation: gen, TTLSeconds: ttl}
			writeErr := e.writeOne(ctx, "put", pol, allowConflictRetry, func(attemptCtx context.Context) error {
				return e.backend.Put(attemptCtx, entry.Key, wop, pol)
			})
			if writeErr != nil {
				s.PublishErr(kverrors.NewKeyError(entry.Key, writeErr))
				e.inst.recordEvents("put", 1)
				return
			}
			s.Publish(kv.NewRecord(entry.Key))
			e.inst.recordEvents("put", 1)
		}()
	}
	wg.Wait()
	return nil
}

func (e *Executor) runBatchPut(ctx context.Context, s *stream.AsyncRecordStream, entries []BatchPutEntry, opts WriteOptions, pol behavior.BatchPolicy) error {
	ops := make([]kvproto.BatchWriteOp, len(entries))
	now := time.Now()
	for i, entry := range entries {
		ttl, err := ResolveTTL(entryTTL(entry, opts), opts.BatchTTLSeconds, now)
		if err != nil {
			return err
		}
		ops[i] = kvproto.BatchWriteOp{
			Key: entry.Key,
			Op: kvproto.WriteOp{
				Bins:       entry.Bins,
				Generation: entryGeneration(entry, opts),
				TTLSeconds: ttl,
			},
		}
	}

	rp := defaultRetryPolicy(pol.MaxRetries+1, false)
	callCtx := ctx
	if pol.TotalTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, pol.TotalTimeout)
		defer cancel()
	}
	results, err := retry(callCtx, rp, func() { e.inst.recordRetry("put") }, func() ([]kvproto.BatchResult, error) {
		return e.backend.BatchPut(callCtx, ops, pol)
	})
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			s.PublishErr(kverrors.NewKeyError(res.Key, res.Err))
			e.inst.recordEvents("put", 1)
			continue
		}
		s.Publish(kv.NewRecord(res.Key))
		e.inst.recordEvents("put", 1)
	}
	return nil
}

func entryTTL(entry BatchPutEntry, opts WriteOptions) int32 {
	if entry.TTLSeconds != 0 {
		return entry.TTLSeconds
	}
	return opts.TTLSeconds
}

func entryGeneration(entry BatchPutEntry, opts WriteOptions) uint32 {
	if entry.Generation > 0 {
		return entry.Generation
	}
	return opts.Generation
}

// DeleteMany removes multiple keys, selecting among the single/small-N/
// batch strategies by key count.
func (e *Executor) DeleteMany(ctx context.Context, keys []kv.Key, opts WriteOptions) (*stream.AsyncRecordStream, error) {
	const op = "delete"
	e.warnIfAsyncInTransaction(ctx, op, opts.Async)

	strat := e.selectStrategy(len(keys))

	b, err := e.resolveBehavior(opts.BehaviorName)
	if err != nil {
		return nil, err
	}
	pointSettings, err := b.Resolve(behavior.Triple{Kind: opts.writeKind(), Shape: behavior.ShapePoint, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return nil, err
	}
	batchSettings, err := b.Resolve(behavior.Triple{Kind: opts.writeKind(), Shape: behavior.ShapeBatch, Mode: resolvedMode(opts.Mode)})
	if err != nil {
		return nil, err
	}
	pointPol := behavior.AsWritePolicy(pointSettings)
	batchPol := behavior.AsBatchPolicy(batchSettings)
	allowConflictRetry := opts.writeKind() == behavior.KindWriteRetryable

	s, err := stream.New(e.streamCapacity)
	if err != nil {
		return nil, err
	}

	run := func() {
		ctx, sp := e.inst.startCallSpan(ctx, op, len(keys))
		var runErr error
		switch strat {
		case strategyBatch:
			runErr = e.runBatchDelete(ctx, s, keys, opts, batchPol)
		default:
			runErr = e.runFannedOutDelete(ctx, s, keys, opts, pointPol, allowConflictRetry)
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

func (e *Executor) runFannedOutDelete(ctx context.Context, s *stream.AsyncRecordStream, keys []kv.Key, opts WriteOptions, pol behavior.WritePolicy, allowConflictRetry bool) error {
	var wg sync.WaitGroup
	for _, key := range keys {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Cancelled() {
				return
			}
			writeErr := e.writeOne(ctx, "delete", pol, allowConflictRetry, func(attemptCtx context.Context) error {
				return e.backend.Delete(attemptCtx, key, opts.Generation, pol)
			})
			if writeErr != nil {
				s.PublishErr(kverrors.NewKeyError(key, writeErr))
				e.inst.recordEvents("delete", 1)
				return
			}
			s.Publish(kv.NewRecord(key))
			e.inst.recordEvents("delete", 1)
		}()
	}
	wg.Wait()
	return nil
}

func (e *Executor) runBatchDelete(ctx context.Context, s *stream.AsyncRecordStream, keys []kv.Key, opts WriteOptions, pol behavior.BatchPolicy) error {
	ops := make([]kvproto.BatchDeleteOp, len(keys))
	for i, key := range keys {
		ops[i] = kvproto.BatchDeleteOp{Key: key, Generation: opts.Generation}
	}

	rp := defaultRetryPolicy(pol.MaxRetries+1, false)
	callCtx := ctx
	if pol.TotalTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, pol.TotalTimeout)
		defer cancel()
	}
	results, err := retry(callCtx, rp, func() { e.inst.recordRetry("delete") }, func() ([]kvproto.BatchResult, error) {
		return e.backend.BatchDelete(callCtx, ops, pol)
	})
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			s.PublishErr(kverrors.NewKeyError(res.Key, res.Err))
			e.inst.recordEvents("delete", 1)
			continue
		}
		s.Publish(kv.NewRecord(res.Key))
		e.inst.recordEvents("delete", 1)
	}
	return nil
}
