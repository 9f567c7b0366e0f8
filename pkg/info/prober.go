package info

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yudhasubki/netpool"

	"github.com/kvfluent/client-go/internal/kvproto"
)

// Prober collects one node's raw metric values. internal/kvproto.Backend
// stays opaque to any particular wire format, and so does Prober: a real
// deployment supplies an implementation that knows how to ask a node for
// its metrics; NewNetProber is this package's own default, modeled on the
// classic name-request/name\tvalue-response info protocol.
type Prober interface {
	Probe(ctx context.Context, node kvproto.NodeInfo, names []string) (map[string]interface{}, error)
}

// netProber dials each node through its own pooled connection -- a
// netpool.Netpool per node address, separate from internal/session's pool -- rather than
// opening one ad hoc connection per refresh tick.
type netProber struct {
	dialTimeout time.Duration
	readTimeout time.Duration

	mu    sync.Mutex
	pools map[string]*netpool.Netpool
}

// NewNetProber builds a Prober that dials node addresses directly,
// pooling one netpool.Netpool per node address.
func NewNetProber(dialTimeout, readTimeout time.Duration) *netProber {
	return &netProber{
		dialTimeout: dialTimeout,
		readTimeout: readTimeout,
		pools:       make(map[string]*netpool.Netpool),
	}
}

func (p *netProber) poolFor(addr string) (*netpool.Netpool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok := p.pools[addr]; ok {
		return pool, nil
	}
	dialTimeout := p.dialTimeout
	pool, err := netpool.New(func() (net.Conn, error) {
		return net.DialTimeout("tcp", addr, dialTimeout)
	})
	if err != nil {
		return nil, err
	}
	p.pools[addr] = pool
	return pool, nil
}

// Probe sends a newline-joined request for names and parses a
// "name\tvalue\n" response line per requested metric.
func (p *netProber) Probe(ctx context.Context, node kvproto.NodeInfo, names []string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pool, err := p.poolFor(node.Address)
	if err != nil {
		return nil, fmt.Errorf("info: dial %s: %w", node.Address, err)
	}
	conn, err := pool.Get()
	if err != nil {
		return nil, fmt.Errorf("info: checkout connection to %s: %w", node.Address, err)
	}

	runErr := p.roundTrip(ctx, conn, names)
	var out map[string]interface{}
	if runErr == nil {
		out, runErr = p.readResponse(conn, len(names))
	}
	pool.Put(conn, runErr)
	if runErr != nil {
		return nil, fmt.Errorf("info: probe %s: %w", node.Address, runErr)
	}
	return out, nil
}

// deadlineFor picks the tighter of the prober's own read timeout and any
// deadline already on ctx. The dial itself can't be bound to a single
// caller's ctx -- the connection is pooled and reused across many calls --
// but each round trip still should be.
func (p *netProber) deadlineFor(ctx context.Context) time.Time {
	var deadline time.Time
	if p.readTimeout > 0 {
		deadline = time.Now().Add(p.readTimeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok {
		if deadline.IsZero() || ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
	}
	return deadline
}

func (p *netProber) roundTrip(ctx context.Context, conn net.Conn, names []string) error {
	if deadline := p.deadlineFor(ctx); !deadline.IsZero() {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	req := strings.Join(names, "\n") + "\n"
	_, err := conn.Write([]byte(req))
	return err
}

func (p *netProber) readResponse(conn net.Conn, wantLines int) (map[string]interface{}, error) {
	out := make(map[string]interface{}, wantLines)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() && len(out) < wantLines {
		line := scanner.Text()
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("malformed info response line %q", line)
		}
		out[name] = parseValue(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseValue(raw string) interface{} {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
