package info

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/internal/session"
)

// fakeSession returns a fixed node list; pkg/info never calls any other
// session.Session method.
type fakeSession struct {
	nodes []kvproto.NodeInfo
	err   error
}

func (f *fakeSession) TxnToken() (string, bool)                 { return "", false }
func (f *fakeSession) WithTxnToken(token string) session.Session { return f }
func (f *fakeSession) Nodes(ctx context.Context) ([]kvproto.NodeInfo, error) {
	return f.nodes, f.err
}
func (f *fakeSession) Invoke(ctx context.Context, fn func(conn net.Conn) error) error { return nil }
func (f *fakeSession) Close() error                                                  { return nil }

// fakeProber returns canned per-node values, optionally failing specific
// nodes by address.
type fakeProber struct {
	mu      sync.Mutex
	values  map[string]map[string]interface{}
	failing map[string]bool
	calls   int
}

func (p *fakeProber) Probe(ctx context.Context, node kvproto.NodeInfo, names []string) (map[string]interface{}, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.failing[node.Address] {
		return nil, fmt.Errorf("probe failed for %s", node.Address)
	}
	return p.values[node.Address], nil
}

func TestMergeRules(t *testing.T) {
	cases := []struct {
		rule   MergeRule
		values []interface{}
		want   interface{}
	}{
		{RuleSum, []interface{}{1.0, 2.0, 3.0}, 6.0},
		{RuleAverage, []interface{}{2.0, 4.0}, 3.0},
		{RuleAnd, []interface{}{true, true, true}, true},
		{RuleAnd, []interface{}{true, false}, false},
		{RuleOr, []interface{}{false, false, true}, true},
		{RuleFirstOf, []interface{}{"a", "b"}, "a"},
		{RuleUnanimous, []interface{}{"x", "x", "x"}, "x"},
	}
	for _, c := range cases {
		got, err := merge(c.rule, c.values)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestMergeUnanimousDisagreement(t *testing.T) {
	_, err := merge(RuleUnanimous, []interface{}{"x", "y"})
	require.Error(t, err)
}

func TestMergeUnknownRule(t *testing.T) {
	_, err := merge(MergeRule("bogus"), []interface{}{1.0})
	require.Error(t, err)
}

func newTestInfo(t *testing.T, sess *fakeSession, prober Prober, registry *Registry) *Info {
	t.Helper()
	in, err := New(sess, prober, registry, nil, nil)
	require.NoError(t, err)
	return in
}

func TestRefreshMergesAcrossNodes(t *testing.T) {
	nodes := []kvproto.NodeInfo{{Name: "n1", Address: "a1"}, {Name: "n2", Address: "a2"}}
	sess := &fakeSession{nodes: nodes}
	prober := &fakeProber{values: map[string]map[string]interface{}{
		"a1": {"uptime": 10.0, "healthy": true},
		"a2": {"uptime": 20.0, "healthy": true},
	}}
	registry := NewRegistry(map[string]MergeRule{"uptime": RuleSum, "healthy": RuleAnd})

	in := newTestInfo(t, sess, prober, registry)
	in.refreshOnce(context.Background())

	view := in.Snapshot()
	require.NoError(t, view["uptime"].Err)
	require.Equal(t, 30.0, view["uptime"].Value)
	require.NoError(t, view["healthy"].Err)
	require.Equal(t, true, view["healthy"].Value)
}

func TestRefreshUnknownMetricYieldsError(t *testing.T) {
	nodes := []kvproto.NodeInfo{{Name: "n1", Address: "a1"}}
	sess := &fakeSession{nodes: nodes}
	prober := &fakeProber{values: map[string]map[string]interface{}{
		"a1": {"mystery": 1.0},
	}}
	registry := NewRegistry(map[string]MergeRule{"mystery": MergeRule("no_such_rule")})

	in := newTestInfo(t, sess, prober, registry)
	in.refreshOnce(context.Background())

	view := in.Snapshot()
	require.Error(t, view["mystery"].Err)
}

func TestRefreshKeepsPreviousViewOnTotalFailure(t *testing.T) {
	nodes := []kvproto.NodeInfo{{Name: "n1", Address: "a1"}}
	sess := &fakeSession{nodes: nodes}
	prober := &fakeProber{
		values:  map[string]map[string]interface{}{"a1": {"uptime": 5.0}},
		failing: map[string]bool{},
	}
	registry := NewRegistry(map[string]MergeRule{"uptime": RuleSum})

	in := newTestInfo(t, sess, prober, registry)
	in.refreshOnce(context.Background())
	require.Equal(t, 5.0, in.Snapshot()["uptime"].Value)

	prober.failing["a1"] = true
	in.refreshOnce(context.Background())
	require.Equal(t, 5.0, in.Snapshot()["uptime"].Value, "a refresh where no node answers must not clobber the cached view")
}

func TestOnChangeListenerFires(t *testing.T) {
	nodes := []kvproto.NodeInfo{{Name: "n1", Address: "a1"}}
	sess := &fakeSession{nodes: nodes}
	prober := &fakeProber{values: map[string]map[string]interface{}{"a1": {"uptime": 1.0}}}
	registry := NewRegistry(map[string]MergeRule{"uptime": RuleSum})

	in := newTestInfo(t, sess, prober, registry)

	fired := make(chan ClusterView, 1)
	unsub := in.OnChange(func(v ClusterView) { fired <- v })
	defer unsub()

	in.refreshOnce(context.Background())

	select {
	case v := <-fired:
		require.Equal(t, 1.0, v["uptime"].Value)
	case <-time.After(time.Second):
		t.Fatal("listener never fired")
	}
}

func TestCircuitBreakerSkipsTrippedNode(t *testing.T) {
	b := newCircuitBreaker(3, 2)
	require.False(t, b.open())
	b.record(true)
	require.False(t, b.open())
	b.record(true)
	require.True(t, b.open())
	b.record(false)
	require.True(t, b.open(), "failures still inside the window keep the breaker open")
}

func TestCircuitBreakerWindowAges(t *testing.T) {
	b := newCircuitBreaker(2, 2)
	b.record(true)
	b.record(true)
	require.True(t, b.open())
	b.record(false)
	require.False(t, b.open(), "the oldest failure should have aged out of the window")
}
