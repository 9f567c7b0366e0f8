// Package stream implements AsyncRecordStream: a bounded, backpressured
// channel of per-key outcomes with single-error propagation and a blocking
// iterator, grounded in the teacher's reactive/streaming result delivery
// (src/driver/reactive.go, streaming_connection.go) but reshaped around an
// explicit bounded-queue-plus-reserved-terminal-slot model instead of the
// teacher's unbounded-channel reactive operators.
package stream

import (
	"sync"
	"time"

	"github.com/kvfluent/client-go/pkg/kv"
	"github.com/kvfluent/client-go/pkg/kverrors"
)

// State is one of the stream's four lifecycle states.
type State int

const (
	Open State = iota
	Completed
	Errored
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "Open"
	case Completed:
		return "Completed"
	case Errored:
		return "Errored"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// eventKind tags what a queued item represents.
type eventKind int

const (
	eventRecord eventKind = iota
	eventEnd
	eventErr
	// eventKeyErr is a per-key outcome error (a filtered-out record, a bare
	// miss under respondAllKeys, or a per-key backend failure) -- unlike
	// eventErr it is not a stream-wide terminal: it consumes one capacity
	// slot like a record event, and the stream keeps delivering further
	// events after it. Produced by the executor's result-inclusion policy
	// (spec.md §4.5), not by single-producer record publication.
	eventKeyErr
)

// Event is a single item delivered to a stream consumer: exactly one of
// Record or Err is set, unless Kind is eventEnd in which case both are nil.
type Event struct {
	kind   eventKind
	record *kv.Record
	err    error
}

// IsRecord reports whether this event carries a record.
func (e Event) IsRecord() bool { return e.kind == eventRecord }

// Record returns the event's record, or nil if this isn't a record event.
func (e Event) Record() *kv.Record { return e.record }

// pollInterval bounds how long publish blocks before re-checking for
// cancellation, per the spec's ≤50ms polling requirement.
const pollInterval = 50 * time.Millisecond

// AsyncRecordStream carries per-key results from one or more producers to a
// single consumer with backpressure and single-error propagation.
type AsyncRecordStream struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State

	capacity int
	queue    []Event
	// terminalQueued is true once an eventEnd/eventErr item has been placed
	// in queue -- the reserved slot has been consumed, and no further
	// enqueue is permitted regardless of capacity.
	terminalQueued bool

	// pendingErr is the single error ERR events carry, once queued.
	pendingErr error
}

// New creates a stream with the given bounded capacity. Capacity below 1 is
// rejected with a UsageError -- a stream with no room for a single event
// cannot ever deliver one.
func New(capacity int) (*AsyncRecordStream, error) {
	if capacity < 1 {
		return nil, kverrors.NewUsageError("stream capacity must be >= 1")
	}
	s := &AsyncRecordStream{capacity: capacity, state: Open}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// State returns the stream's current lifecycle state.
func (s *AsyncRecordStream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancelled reports whether producers must abandon work: true iff the
// stream is Closed or Completed.
func (s *AsyncRecordStream) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Closed || s.state == Completed
}

// Publish enqueues a record event. It blocks while the queue is at
// capacity and the stream remains Open, waking at least every pollInterval
// to re-check for cancellation. A nil record is ignored (a no-op). Publish
// silently drops the event (returns immediately, enqueueing nothing) once
// the stream is Closed or Completed -- publish never errors; producers
// learn the stream is done via Cancelled.
func (s *AsyncRecordStream) Publish(record *kv.Record) {
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.state != Open {
			return
		}
		// The terminal marker is appended past capacity when it comes
		// (enqueueTerminalLocked), so it never takes a data slot: the full
		// capacity is available to data events.
		if len(s.queue) < s.capacity {
			s.queue = append(s.queue, Event{kind: eventRecord, record: record})
			s.cond.Broadcast()
			return
		}
		s.waitWithPoll()
	}
}

// PublishErr enqueues a per-key error outcome -- e.g. a filtered-out record
// or a per-key backend failure under respondAllKeys -- as a non-terminal
// data event. It shares Publish's backpressure and cancellation behavior;
// unlike Error (a whole-stream terminal failure), the stream keeps
// accepting further Publish/PublishErr calls afterward. A nil err is a
// no-op, matching Publish's nil-record handling.
func (s *AsyncRecordStream) PublishErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.state != Open {
			return
		}
		if len(s.queue) < s.capacity {
			s.queue = append(s.queue, Event{kind: eventKeyErr, err: err})
			s.cond.Broadcast()
			return
		}
		s.waitWithPoll()
	}
}

// waitWithPoll blocks on the condition variable for at most pollInterval,
// giving callers watching Cancelled a bounded latency even though
// sync.Cond itself has no timed wait. Must be called with s.mu held; it
// releases and reacquires s.mu internally via a timer-driven broadcast.
func (s *AsyncRecordStream) waitWithPoll() {
	done := make(chan struct{})
	timer := time.AfterFunc(pollInterval, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
		close(done)
	})
	s.cond.Wait()
	timer.Stop()
	select {
	case <-done:
	default:
	}
}

// Complete idempotently transitions Open to Completed, guaranteeing the
// consumer observes an END even if the queue is currently full: the
// terminal marker always has a reserved slot regardless of capacity. A
// second call, or a call after Errored/Closed, is a no-op.
func (s *AsyncRecordStream) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Open {
		return
	}
	s.state = Completed
	s.enqueueTerminalLocked(Event{kind: eventEnd})
	s.cond.Broadcast()
}

// Error moves Open to Errored by enqueueing a single ERR event. A nil err
// is normalized to a generic error. If, implausibly, the reserved slot has
// already been consumed by a concurrent terminal event, the stream instead
// transitions directly to Closed with no event delivered (the consumer has
// already observed a terminal and will not read further). Calling Error
// when already Completed is ignored -- Completed is final success and
// cannot be downgraded to a failure.
func (s *AsyncRecordStream) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Completed || s.state == Closed {
		return
	}
	if err == nil {
		err = kverrors.NewServerError("", "unknown stream error")
	}
	s.state = Errored
	s.pendingErr = err
	if s.terminalQueued {
		s.state = Closed
		s.cond.Broadcast()
		return
	}
	s.enqueueTerminalLocked(Event{kind: eventErr, err: err})
	s.cond.Broadcast()
}

// Close idempotently drains the queue, enqueues an END if no terminal has
// been queued yet, and moves the stream to Closed from any state. After
// Close returns, no further events are ever delivered to the consumer.
func (s *AsyncRecordStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	// Drop buffered record events, but keep an already-queued terminal (ERR
	// or END) in place -- it was reserved a slot and must still be the one
	// and only terminal the consumer ever observes.
	kept := s.queue[:0]
	for _, e := range s.queue {
		if e.kind == eventEnd || e.kind == eventErr {
			kept = append(kept, e)
		}
	}
	s.queue = kept
	if !s.terminalQueued {
		s.queue = append(s.queue, Event{kind: eventEnd})
		s.terminalQueued = true
	}
	s.state = Closed
	s.cond.Broadcast()
}

// enqueueTerminalLocked appends a terminal event, using the reserved slot
// so it is delivered even over a full data queue. Must be called with
// s.mu held and s.terminalQueued false.
func (s *AsyncRecordStream) enqueueTerminalLocked(e Event) {
	s.queue = append(s.queue, e)
	s.terminalQueued = true
}

// HasNext blocks until an event, ERR, or END is available, then reports
// whether a further call to Next will yield a data event -- a record or a
// per-key error (true) -- or terminate the iteration (false, whether by END
// or by having just surfaced ERR).
func (s *AsyncRecordStream) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 {
		s.cond.Wait()
	}
	k := s.queue[0].kind
	return k == eventRecord || k == eventKeyErr
}

// Next returns the next record. A per-key error event is popped and
// returned as (nil, err), and iteration continues. If the head of the queue is ERR, Next
// raises that error and the stream behaves as if at END from then on. If
// the head is END, Next returns a not-found error. Callers should always
// guard with HasNext.
func (s *AsyncRecordStream) Next() (*kv.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 {
		s.cond.Wait()
	}
	e := s.queue[0]
	switch e.kind {
	case eventRecord:
		s.queue = s.queue[1:]
		return e.record, nil
	case eventKeyErr:
		// Non-terminal: pop and keep going, unlike the sticky stream-wide
		// eventErr below.
		s.queue = s.queue[1:]
		return nil, e.err
	case eventErr:
		// ERR is sticky: leave an END in its place so subsequent HasNext
		// calls report "no more", matching "behaves as if at END" after
		// the error has been raised once.
		s.queue[0] = Event{kind: eventEnd}
		return nil, e.err
	default: // eventEnd
		return nil, kverrors.NewUsageError("stream exhausted: no more records")
	}
}

// View returns a consumer-facing handle equivalent to direct iteration;
// closing the view closes the underlying stream.
func (s *AsyncRecordStream) View() *View {
	return &View{s: s}
}

// View is a thin handle for consuming a stream without exposing Publish/
// Complete/Error to the caller.
type View struct {
	s *AsyncRecordStream
}

func (v *View) HasNext() bool            { return v.s.HasNext() }
func (v *View) Next() (*kv.Record, error) { return v.s.Next() }
func (v *View) Close()                    { v.s.Close() }
