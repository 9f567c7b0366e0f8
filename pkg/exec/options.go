package exec

import "github.com/kvfluent/client-go/pkg/behavior"

// ReadOptions controls a read's behavior selection, mode, and
// result-inclusion policy (spec.md §4.5).
type ReadOptions struct {
	// BehaviorName selects which registered Behavior to resolve Settings
	// from. Empty means the registry's DEFAULT.
	BehaviorName string

	// Mode picks the AP/CP tier of the resolved policy. Zero defaults to
	// ModeAP.
	Mode behavior.Mode

	// Async, if true, returns the result stream before all workers have
	// finished; otherwise ReadMany blocks until every worker completes
	// (or the batch call returns) before returning the stream.
	Async bool

	// RespondAllKeys, if true, emits one event per requested key --
	// including misses -- instead of suppressing bare misses.
	RespondAllKeys bool

	// FailOnFilteredOut, if true, emits a filtered-out outcome as a
	// per-key error event instead of silently suppressing it.
	FailOnFilteredOut bool
}

// WriteOptions controls a single-record write's behavior selection, mode,
// TTL, and generation precondition.
type WriteOptions struct {
	BehaviorName string
	Mode         behavior.Mode
	Async        bool

	// Generation, if > 0, requires the existing record's generation to
	// equal this value; a mismatch surfaces a precondition-failed error.
	// 0 means "no precondition" (spec.md §9 Open Question (a): only > 0
	// counts as "set").
	Generation uint32

	// TTLSeconds is the per-record TTL override; see kv.TTL* sentinels.
	// 0 defers to BatchTTLSeconds when present (ResolveTTL).
	TTLSeconds int32

	// BatchTTLSeconds is the per-batch TTL fallback used when
	// TTLSeconds is 0 (spec.md §4.5 expiration semantics).
	BatchTTLSeconds int32
}

// writeKind reports which Kind a write resolves Settings under: a
// generation precondition makes it a guarded, non-retryable-on-conflict
// write (kverrors.AsRetriable only allows conflict retries for
// KindWriteRetryable).
func (o WriteOptions) writeKind() behavior.Kind {
	if o.Generation > 0 {
		return behavior.KindWriteNonRetryable
	}
	return behavior.KindWriteRetryable
}

func resolvedMode(m behavior.Mode) behavior.Mode {
	if m == 0 {
		return behavior.ModeAP
	}
	return m
}
