package exec

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/internal/session"
	"github.com/kvfluent/client-go/pkg/behavior"
	"github.com/kvfluent/client-go/pkg/kv"
	"github.com/kvfluent/client-go/pkg/logging"
)

func newExecutor(t *testing.T) (*Executor, *kvproto.MemoryBackend) {
	t.Helper()
	backend := kvproto.NewMemoryBackend(kvproto.NodeInfo{Name: "n1", Address: "127.0.0.1:3000"})
	reg := behavior.NewRegistry()
	ex := New(backend, nil, reg, logging.NoOpLogger{})
	return ex, backend
}

// fakeSession implements session.Session with a fixed, already-set
// transaction token, for exercising the async-inside-transaction warning.
type fakeSession struct {
	token string
}

func (f *fakeSession) TxnToken() (string, bool)         { return f.token, true }
func (f *fakeSession) WithTxnToken(token string) session.Session { return &fakeSession{token: token} }
func (f *fakeSession) Nodes(ctx context.Context) ([]kvproto.NodeInfo, error) { return nil, nil }
func (f *fakeSession) Invoke(ctx context.Context, fn func(conn net.Conn) error) error {
	return fn(nil)
}
func (f *fakeSession) Close() error { return nil }

// capturingLogger records Warn calls for assertions.
type capturingLogger struct {
	logging.NoOpLogger
	warnings []string
}

func (c *capturingLogger) Warn(msg string, keysAndValues ...interface{}) {
	c.warnings = append(c.warnings, msg)
}

func TestAsyncInsideTransactionLogsWarningAndProceeds(t *testing.T) {
	backend := kvproto.NewMemoryBackend()
	key := kv.NewKey("ns", "set", "txn")
	backend.Seed(kv.NewRecord(key))

	logger := &capturingLogger{}
	reg := behavior.NewRegistry()
	ex := New(backend, &fakeSession{token: "txn-1"}, reg, logger)

	s, err := ex.ReadMany(context.Background(), []kv.Key{key}, nil, ReadOptions{Async: true})
	require.NoError(t, err)
	view := s.View()
	defer view.Close()
	require.True(t, view.HasNext())
	_, err = view.Next()
	require.NoError(t, err)

	require.NotEmpty(t, logger.warnings)
}

func TestScenario6BatchAbove10IssuesOneCallOrderedByIndex(t *testing.T) {
	ex, backend := newExecutor(t)
	keys := make([]kv.Key, 12)
	for i := 0; i < 12; i++ {
		keys[i] = kv.NewKey("ns", "set", i)
		r := kv.NewRecord(keys[i])
		r.Set("v", i)
		backend.Seed(r)
	}

	s, err := ex.ReadMany(context.Background(), keys, nil, ReadOptions{RespondAllKeys: true})
	require.NoError(t, err)

	view := s.View()
	defer view.Close()
	var got []int
	for view.HasNext() {
		r, err := view.Next()
		require.NoError(t, err)
		v, _ := r.Get("v")
		got = append(got, v.(int))
	}
	require.Len(t, got, 12)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestScenario7TTLNeverExpireOverridesBatchExpire(t *testing.T) {
	ttl, err := ResolveTTL(kv.TTLNeverExpire, 3600, time.Now())
	require.NoError(t, err)
	require.Equal(t, kv.TTLNeverExpire, ttl)
}

func TestResolveTTLFallsBackToBatchWhenRecordUnset(t *testing.T) {
	ttl, err := ResolveTTL(0, 3600, time.Now())
	require.NoError(t, err)
	require.Equal(t, int32(3600), ttl)
}

func TestResolveTTLRejectsPastAbsoluteDeadline(t *testing.T) {
	past := AbsoluteTTLThreshold + 100
	_, err := ResolveTTL(past, 0, time.Now())
	require.Error(t, err)
}

func TestGenerationPreconditionMismatchIsPreconditionFailed(t *testing.T) {
	ex, backend := newExecutor(t)
	key := kv.NewKey("ns", "set", "a")
	seeded := kv.NewRecord(key)
	seeded.Generation = 5
	backend.Seed(seeded)

	err := ex.Put(context.Background(), key, map[string]interface{}{"x": 1}, WriteOptions{Generation: 99})
	require.Error(t, err)
}

func TestGenerationZeroMeansNoPrecondition(t *testing.T) {
	ex, _ := newExecutor(t)
	key := kv.NewKey("ns", "set", "b")
	err := ex.Put(context.Background(), key, map[string]interface{}{"x": 1}, WriteOptions{})
	require.NoError(t, err)
}

func TestBareMissSuppressedUnlessRespondAllKeys(t *testing.T) {
	ex, _ := newExecutor(t)
	key := kv.NewKey("ns", "set", "missing")

	s, err := ex.ReadMany(context.Background(), []kv.Key{key}, nil, ReadOptions{})
	require.NoError(t, err)
	view := s.View()
	defer view.Close()
	require.False(t, view.HasNext())

	s2, err := ex.ReadMany(context.Background(), []kv.Key{key}, nil, ReadOptions{RespondAllKeys: true})
	require.NoError(t, err)
	view2 := s2.View()
	defer view2.Close()
	require.True(t, view2.HasNext())
	_, err = view2.Next()
	require.Error(t, err)
}

func TestGetReturnsNilRecordAndNoErrorForSuppressedMiss(t *testing.T) {
	ex, _ := newExecutor(t)
	key := kv.NewKey("ns", "set", "gone")
	record, err := ex.Get(context.Background(), key, nil, ReadOptions{})
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestSmallNFanOutBelowThreshold(t *testing.T) {
	ex, backend := newExecutor(t)
	keys := make([]kv.Key, 3)
	for i := range keys {
		keys[i] = kv.NewKey("ns", "set", i)
		r := kv.NewRecord(keys[i])
		backend.Seed(r)
	}
	s, err := ex.ReadMany(context.Background(), keys, nil, ReadOptions{})
	require.NoError(t, err)
	view := s.View()
	defer view.Close()
	count := 0
	for view.HasNext() {
		_, err := view.Next()
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 3, count)
}

func TestAsyncModeReturnsBeforeCompletion(t *testing.T) {
	ex, backend := newExecutor(t)
	key := kv.NewKey("ns", "set", "async")
	r := kv.NewRecord(key)
	backend.Seed(r)

	s, err := ex.ReadMany(context.Background(), []kv.Key{key}, nil, ReadOptions{Async: true})
	require.NoError(t, err)
	view := s.View()
	defer view.Close()
	require.True(t, view.HasNext())
	_, err = view.Next()
	require.NoError(t, err)
}

func TestPutManyBatchAboveThreshold(t *testing.T) {
	ex, _ := newExecutor(t)
	entries := make([]BatchPutEntry, 11)
	for i := range entries {
		entries[i] = BatchPutEntry{Key: kv.NewKey("ns", "set", i), Bins: map[string]interface{}{"v": i}}
	}
	s, err := ex.PutMany(context.Background(), entries, WriteOptions{})
	require.NoError(t, err)
	view := s.View()
	defer view.Close()
	count := 0
	for view.HasNext() {
		_, err := view.Next()
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 11, count)
}

func TestDeleteManySmallN(t *testing.T) {
	ex, backend := newExecutor(t)
	keys := make([]kv.Key, 2)
	for i := range keys {
		keys[i] = kv.NewKey("ns", "set", i)
		backend.Seed(kv.NewRecord(keys[i]))
	}
	s, err := ex.DeleteMany(context.Background(), keys, WriteOptions{})
	require.NoError(t, err)
	view := s.View()
	defer view.Close()
	count := 0
	for view.HasNext() {
		_, err := view.Next()
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 2, count)
}
