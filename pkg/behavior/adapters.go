package behavior

import "time"

// ReadPolicy, WritePolicy, BatchPolicy, and QueryPolicy are the
// operation-shaped views that pkg/exec actually consumes. They are derived
// from a resolved Settings rather than passed around as a bare Settings so
// that each call site only sees the fields relevant to its own op shape.

// ReadPolicy governs single-record reads.
type ReadPolicy struct {
	AttemptTimeout    time.Duration
	TotalTimeout      time.Duration
	ConnectTimeout    time.Duration
	MaxRetries        int
	PostFailTimeout   time.Duration
	ReplicaOrder      string
	ReadConsistencyAP string
	ReadConsistencyCP string
}

// WritePolicy governs single-record writes.
type WritePolicy struct {
	AttemptTimeout  time.Duration
	TotalTimeout    time.Duration
	ConnectTimeout  time.Duration
	MaxRetries      int
	PostFailTimeout time.Duration
	SendKey         bool
	Compress        bool
	DurableDelete   bool
	CommitLevel     string
	TouchTTLPercent int
}

// BatchPolicy governs batch-shaped reads/writes.
type BatchPolicy struct {
	AttemptTimeout         time.Duration
	TotalTimeout           time.Duration
	MaxRetries             int
	Concurrency            int
	AllowInlineRecord      bool
	AllowInlineSSD         bool
	ReadConsistencyAP      string
	ReadConsistencyCP      string
}

// QueryPolicy governs query-shaped reads.
type QueryPolicy struct {
	TotalTimeout      time.Duration
	MaxRetries        int
	QueueSize         int
	ReadConsistencyAP string
	ReadConsistencyCP string
}

// maxRetries converts a settings' maximumNumberOfCallAttempts (total
// attempts, including the first) into a retry count (attempts after the
// first), clamped to never go negative.
func maxRetries(s *Settings) int {
	r := s.MaxCallAttempts - 1
	if r < 0 {
		return 0
	}
	return r
}

// AsReadPolicy adapts a resolved Settings into a ReadPolicy.
func AsReadPolicy(s *Settings) ReadPolicy {
	return ReadPolicy{
		AttemptTimeout:    s.AttemptTimeout,
		TotalTimeout:      s.TotalTimeout,
		ConnectTimeout:    s.ConnectTimeout,
		MaxRetries:        maxRetries(s),
		PostFailTimeout:   s.PostFailTimeout,
		ReplicaOrder:      s.ReplicaOrder,
		ReadConsistencyAP: s.ReadConsistencyAP,
		ReadConsistencyCP: s.ReadConsistencyCP,
	}
}

// AsWritePolicy adapts a resolved Settings into a WritePolicy.
func AsWritePolicy(s *Settings) WritePolicy {
	return WritePolicy{
		AttemptTimeout:  s.AttemptTimeout,
		TotalTimeout:    s.TotalTimeout,
		ConnectTimeout:  s.ConnectTimeout,
		MaxRetries:      maxRetries(s),
		PostFailTimeout: s.PostFailTimeout,
		SendKey:         s.SendKey,
		Compress:        s.Compress,
		DurableDelete:   s.DurableDelete,
		CommitLevel:     s.CommitLevel,
		TouchTTLPercent: s.TouchTTLPercent,
	}
}

// AsBatchPolicy adapts a resolved Settings into a BatchPolicy.
func AsBatchPolicy(s *Settings) BatchPolicy {
	return BatchPolicy{
		AttemptTimeout:    s.AttemptTimeout,
		TotalTimeout:      s.TotalTimeout,
		MaxRetries:        maxRetries(s),
		Concurrency:       s.BatchConcurrency,
		AllowInlineRecord: s.BatchAllowInlineRecord,
		AllowInlineSSD:    s.BatchAllowInlineSSD,
		ReadConsistencyAP: s.ReadConsistencyAP,
		ReadConsistencyCP: s.ReadConsistencyCP,
	}
}

// AsQueryPolicy adapts a resolved Settings into a QueryPolicy.
func AsQueryPolicy(s *Settings) QueryPolicy {
	return QueryPolicy{
		TotalTimeout:      s.TotalTimeout,
		MaxRetries:        maxRetries(s),
		QueueSize:         s.QueryQueueSize,
		ReadConsistencyAP: s.ReadConsistencyAP,
		ReadConsistencyCP: s.ReadConsistencyCP,
	}
}
