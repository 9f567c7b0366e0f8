// Package session implements the external-collaborator boundary the core
// consumes: the current (optional) transaction token, cluster-node
// enumeration, and an escape-hatch for callers who need a raw connection
// the fluent API doesn't otherwise expose.
package session

import (
	"context"
	"net"

	"github.com/yudhasubki/netpool"

	"github.com/kvfluent/client-go/internal/kvproto"
	"github.com/kvfluent/client-go/pkg/logging"
)

// Session is the contract the core depends on; it never constructs one
// itself.
type Session interface {
	// TxnToken returns the session's current transaction token and
	// whether one is set. A session with no token (ok == false) runs
	// every operation outside a transaction.
	TxnToken() (token string, ok bool)

	// WithTxnToken returns a derived Session carrying the given token,
	// leaving the receiver untouched -- transaction scoping is by value,
	// not by mutation, matching the immutable-value preference used
	// throughout pkg/behavior and pkg/expr.
	WithTxnToken(token string) Session

	// Nodes enumerates the cluster's current node set.
	Nodes(ctx context.Context) ([]kvproto.NodeInfo, error)

	// Invoke hands the caller a pooled raw connection to run backend-
	// specific logic the fluent API doesn't cover, returning it to the
	// pool afterward (or discarding it, if fn reports an error).
	Invoke(ctx context.Context, fn func(conn net.Conn) error) error

	// Close releases the session's pooled connections.
	Close() error
}

// DialFunc opens a new raw connection to the cluster; callers typically
// supply one that resolves an address via Backend.Nodes and dials TCP/TLS,
// mirroring the teacher's own dialFn closure in src/driver/driver.go.
type DialFunc func(ctx context.Context) (net.Conn, error)

type defaultSession struct {
	token   string
	hasTok  bool
	backend kvproto.Backend
	pool    *netpool.Netpool
	logger  logging.Logger
}

// New creates a Session backed by a connection pool dialed with dial, and
// cluster-node enumeration served by backend.Nodes.
func New(backend kvproto.Backend, dial DialFunc, logger logging.Logger) (Session, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	pool, err := netpool.New(func() (net.Conn, error) {
		return dial(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return &defaultSession{backend: backend, pool: pool, logger: logger}, nil
}

func (s *defaultSession) TxnToken() (string, bool) {
	return s.token, s.hasTok
}

func (s *defaultSession) WithTxnToken(token string) Session {
	return &defaultSession{
		token:   token,
		hasTok:  true,
		backend: s.backend,
		pool:    s.pool,
		logger:  s.logger,
	}
}

func (s *defaultSession) Nodes(ctx context.Context) ([]kvproto.NodeInfo, error) {
	return s.backend.Nodes(ctx)
}

func (s *defaultSession) Invoke(ctx context.Context, fn func(conn net.Conn) error) error {
	conn, err := s.pool.Get()
	if err != nil {
		s.logger.Error("escape-hatch dial failed", "error", err)
		return err
	}
	runErr := fn(conn)
	s.pool.Put(conn, runErr)
	return runErr
}

func (s *defaultSession) Close() error {
	s.pool.Close()
	return nil
}
