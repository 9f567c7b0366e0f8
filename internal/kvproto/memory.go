package kvproto

import (
	"context"
	"sync"

	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/expr"
	"github.com/kvfluent/client-go/pkg/kv"
	"github.com/kvfluent/client-go/pkg/kverrors"
)

// MemoryBackend is a test double implementing Backend entirely in process
// memory, with no predicate evaluation -- Get/BatchGet/Query return
// whatever is stored regardless of pred, since exercising the expression
// evaluator itself is pkg/expr's job, not pkg/exec's.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]*kv.Record
	nodes   []NodeInfo
}

// NewMemoryBackend creates an empty in-memory backend with the given
// simulated cluster nodes.
func NewMemoryBackend(nodes ...NodeInfo) *MemoryBackend {
	return &MemoryBackend{records: make(map[string]*kv.Record), nodes: nodes}
}

// Seed directly installs a record, bypassing Put -- useful for test setup.
func (m *MemoryBackend) Seed(r *kv.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.Key.String()] = r
}

func (m *MemoryBackend) Get(ctx context.Context, key kv.Key, pred *expr.IRNode, pol behavior.ReadPolicy) (*kv.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key.String()]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (m *MemoryBackend) Put(ctx context.Context, key kv.Key, op WriteOp, pol behavior.WritePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[key.String()]
	if op.Generation > 0 {
		if !ok || existing.Generation != op.Generation {
			return kverrors.NewServerError("generation", "generation precondition failed")
		}
	}
	r := kv.NewRecord(key)
	for k, v := range op.Bins {
		r.Set(k, v)
	}
	if ok {
		r.Generation = existing.Generation + 1
	} else {
		r.Generation = 1
	}
	r.VoidTime = int64(op.TTLSeconds)
	m.records[key.String()] = r
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key kv.Key, generation uint32, pol behavior.WritePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[key.String()]
	if !ok {
		return nil
	}
	if generation > 0 && existing.Generation != generation {
		return kverrors.NewServerError("generation", "generation precondition failed")
	}
	delete(m.records, key.String())
	return nil
}

func (m *MemoryBackend) BatchGet(ctx context.Context, keys []kv.Key, pred *expr.IRNode, pol behavior.BatchPolicy) ([]BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BatchResult, len(keys))
	for i, k := range keys {
		r := m.records[k.String()]
		out[i] = BatchResult{Key: k, Record: r}
	}
	return out, nil
}

func (m *MemoryBackend) BatchPut(ctx context.Context, ops []BatchWriteOp, pol behavior.BatchPolicy) ([]BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BatchResult, len(ops))
	for i, bo := range ops {
		existing, ok := m.records[bo.Key.String()]
		if bo.Op.Generation > 0 && (!ok || existing.Generation != bo.Op.Generation) {
			out[i] = BatchResult{Key: bo.Key, Err: kverrors.NewServerError("generation", "generation precondition failed")}
			continue
		}
		r := kv.NewRecord(bo.Key)
		for k, v := range bo.Op.Bins {
			r.Set(k, v)
		}
		if ok {
			r.Generation = existing.Generation + 1
		} else {
			r.Generation = 1
		}
		r.VoidTime = int64(bo.Op.TTLSeconds)
		m.records[bo.Key.String()] = r
		out[i] = BatchResult{Key: bo.Key, Record: r}
	}
	return out, nil
}

func (m *MemoryBackend) BatchDelete(ctx context.Context, ops []BatchDeleteOp, pol behavior.BatchPolicy) ([]BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BatchResult, len(ops))
	for i, bo := range ops {
		existing, ok := m.records[bo.Key.String()]
		if !ok {
			out[i] = BatchResult{Key: bo.Key}
			continue
		}
		if bo.Generation > 0 && existing.Generation != bo.Generation {
			out[i] = BatchResult{Key: bo.Key, Err: kverrors.NewServerError("generation", "generation precondition failed")}
			continue
		}
		delete(m.records, bo.Key.String())
		out[i] = BatchResult{Key: bo.Key}
	}
	return out, nil
}

func (m *MemoryBackend) Query(ctx context.Context, namespace, set string, filter *expr.Filter, pred *expr.IRNode, pol behavior.QueryPolicy, dst RecordSink) error {
	m.mu.Lock()
	matches := make([]*kv.Record, 0, len(m.records))
	for _, r := range m.records {
		if r.Key.Namespace == namespace && r.Key.Set == set {
			matches = append(matches, r)
		}
	}
	m.mu.Unlock()

	go func() {
		for _, r := range matches {
			dst.Publish(r)
		}
		dst.Complete()
	}()
	return nil
}

func (m *MemoryBackend) Nodes(ctx context.Context) ([]NodeInfo, error) {
	return m.nodes, nil
}
