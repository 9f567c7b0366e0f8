// Package exec implements execution orchestration: strategy selection
// (single key / small-N parallel fan-out / batch) and mode (synchronous /
// asynchronous) over an internal/kvproto.Backend, resolving per-call
// policy from a pkg/behavior.Registry and delivering results through a
// pkg/stream.AsyncRecordStream. Grounded in src/driver/run.go's
// span/metric bracketing pattern and src/driver/retry.go's generic retry
// helper.
package exec

import (
	"context"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/internal/session"
	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/logging"
)

// DefaultBatchThreshold is the key count at or above which the executor
// issues a single batched call instead of fanning out per-key calls
// (spec.md §9 Open Question (c)).
const DefaultBatchThreshold = 10

// DefaultStreamCapacity bounds the AsyncRecordStream backing a multi-key
// operation's result delivery.
const DefaultStreamCapacity = 256

// Executor orchestrates single/small-N/batch calls against a Backend.
type Executor struct {
	backend  kvproto.Backend
	sess     session.Session
	registry *behavior.Registry
	logger   logging.Logger
	inst     *instruments

	batchThreshold int
	streamCapacity int
}

// New constructs an Executor bound to backend, sess (for the current
// transaction token), and registry (for per-call policy resolution). A nil
// logger installs logging.NoOpLogger{}.
func New(backend kvproto.Backend, sess session.Session, registry *behavior.Registry, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{
		backend:        backend,
		sess:           sess,
		registry:       registry,
		logger:         logger,
		inst:           newInstruments(),
		batchThreshold: DefaultBatchThreshold,
		streamCapacity: DefaultStreamCapacity,
	}
}

// WithBatchThreshold overrides the small-N/batch strategy boundary. Values
// <= 0 are ignored, leaving the previous threshold in place.
func (e *Executor) WithBatchThreshold(n int) *Executor {
	if n > 0 {
		e.batchThreshold = n
	}
	return e
}

// WithStreamCapacity overrides the capacity of streams the executor
// creates for multi-key operations.
func (e *Executor) WithStreamCapacity(n int) *Executor {
	if n > 0 {
		e.streamCapacity = n
	}
	return e
}

// strategy is which of the three execution strategies a call count selects.
type strategy int

const (
	strategySingle strategy = iota
	strategySmallN
	strategyBatch
)

func (e *Executor) selectStrategy(keyCount int) strategy {
	switch {
	case keyCount <= 1:
		return strategySingle
	case keyCount < e.batchThreshold:
		return strategySmallN
	default:
		return strategyBatch
	}
}

func (e *Executor) resolveBehavior(name string) (*behavior.Behavior, error) {
	if name == "" {
		return e.registry.Default(), nil
	}
	return e.registry.Get(name)
}

// txnToken returns the session's transaction token. Its only use is to
// decide whether an async call inside a transactional scope should warn:
// the token is not placed in any per-operation policy, and no Backend call
// receives it.
func (e *Executor) txnToken() (string, bool) {
	if e.sess == nil {
		return "", false
	}
	return e.sess.TxnToken()
}

// warnIfAsyncInTransaction logs the spec-mandated warning when an async
// call is issued inside a transactional scope, and proceeds regardless
// (spec.md §4.5 "inside a transactional scope the executor must log a
// warning but proceed").
func (e *Executor) warnIfAsyncInTransaction(ctx context.Context, op string, async bool) {
	if !async {
		return
	}
	if _, ok := e.txnToken(); ok {
		e.logger.Warn("async execution requested inside a transactional scope; proceeding", "op", op)
	}
}
