// Package kvproto defines the minimal contract the core hands lowered
// expressions to: an interface, not a wire codec. Real deployments back it
// with an actual cluster client; tests back it with the in-memory fake in
// this package.
package kvproto

import (
	"context"

	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/expr"
	"github.com/kvfluent/client-go/pkg/kv"
)

// WriteOp describes the bins, generation precondition and TTL that Put
// applies to one key.
type WriteOp struct {
	Bins       map[string]interface{}
	Generation uint32 // 0 means "no precondition"
	TTLSeconds int32  // see kv.TTL* sentinels
}

// BatchWriteOp pairs a key with the write to apply, for BatchPut.
type BatchWriteOp struct {
	Key kv.Key
	Op  WriteOp
}

// BatchDeleteOp pairs a key with its optional generation precondition, for
// BatchDelete.
type BatchDeleteOp struct {
	Key        kv.Key
	Generation uint32
}

// NodeInfo is one cluster node's identity and address, as enumerated by
// the backend for internal/session and pkg/info.
type NodeInfo struct {
	Name    string
	Address string
}

// Backend is the contract pkg/exec issues work against. A Backend never
// sees the Expr/IR tree directly -- only the lowered, opaque IRNode and, if
// extracted, the Filter -- so the wire format is entirely the backend's own
// business.
type Backend interface {
	// Get fetches a single record by key, applying policy-derived retry
	// parameters as the caller (pkg/exec) sees fit; Backend implementations
	// themselves perform no retries.
	Get(ctx context.Context, key kv.Key, pred *expr.IRNode, pol behavior.ReadPolicy) (*kv.Record, error)

	// Put applies a write to a single key.
	Put(ctx context.Context, key kv.Key, op WriteOp, pol behavior.WritePolicy) error

	// Delete removes a single key.
	Delete(ctx context.Context, key kv.Key, generation uint32, pol behavior.WritePolicy) error

	// BatchGet fetches multiple keys in request order. Per-key failures
	// are reported alongside successes; BatchGet itself only fails for a
	// whole-batch-level problem (e.g. the backend rejected the batch).
	BatchGet(ctx context.Context, keys []kv.Key, pred *expr.IRNode, pol behavior.BatchPolicy) ([]BatchResult, error)

	// BatchPut applies multiple writes in one batched call. Per-key
	// failures (e.g. a generation precondition mismatch) are reported
	// alongside successes.
	BatchPut(ctx context.Context, ops []BatchWriteOp, pol behavior.BatchPolicy) ([]BatchResult, error)

	// BatchDelete removes multiple keys in one batched call.
	BatchDelete(ctx context.Context, ops []BatchDeleteOp, pol behavior.BatchPolicy) ([]BatchResult, error)

	// Query runs a (possibly index-accelerated) scan over a namespace/set,
	// delivering results into dst as they arrive. Query returns once the
	// request has been issued; dst's terminal state reports completion.
	Query(ctx context.Context, namespace, set string, filter *expr.Filter, pred *expr.IRNode, pol behavior.QueryPolicy, dst RecordSink) error

	// Nodes enumerates the cluster's current node set.
	Nodes(ctx context.Context) ([]NodeInfo, error)
}

// BatchResult pairs a requested key with its outcome.
type BatchResult struct {
	Key    kv.Key
	Record *kv.Record
	Err    error
}

// RecordSink receives query results. pkg/stream.AsyncRecordStream implements
// it; kept as a narrow interface so internal/kvproto never imports pkg/stream
// types it doesn't need beyond this shape.
type RecordSink interface {
	Publish(record *kv.Record)
	Complete()
	Error(err error)
}
