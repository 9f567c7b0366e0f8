package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/kvfluent/client-go/pkg/kv"
)

func newTestRecord(id int) *kv.Record {
	return kv.NewRecord(kv.NewKey("ns", "set", id))
}

func drainAll(t *testing.T, s *AsyncRecordStream) ([]*kv.Record, error) {
	t.Helper()
	var out []*kv.Record
	for s.HasNext() {
		r, err := s.Next()
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	// One final Next() call at END surfaces the not-found condition, or
	// the sticky error if HasNext just reported false after an ERR.
	_, err := s.Next()
	return out, err
}

func TestCapacityOneProducerCompleteConsumerDoesNotDeadlock(t *testing.T) {
	s, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Publish(newTestRecord(1))
		s.Complete()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("producer deadlocked on capacity-1 stream")
	}

	records, err := drainAll(t, s)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if err == nil {
		t.Fatalf("expected a not-found condition at END")
	}
}

func TestCapacityRejectsLessThanOne(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected an error for capacity 0")
	}
	if _, err := New(-1); err == nil {
		t.Fatalf("expected an error for negative capacity")
	}
}

func TestPublishBlocksThenWakesOnConsume(t *testing.T) {
	s, _ := New(2)
	s.Publish(newTestRecord(1))
	s.Publish(newTestRecord(2))

	published3 := make(chan struct{})
	go func() {
		s.Publish(newTestRecord(3)) // must block: queue full
		close(published3)
	}()

	select {
	case <-published3:
		t.Fatalf("expected third publish to block while queue is full")
	case <-time.After(100 * time.Millisecond):
	}

	if !s.HasNext() {
		t.Fatalf("expected a record available")
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-published3:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected blocked publish to unblock after consume")
	}
	s.Complete()
}

func TestErrorThenEndBehavior(t *testing.T) {
	s, _ := New(4)
	s.Publish(newTestRecord(1))
	s.Error(nil)

	if !s.HasNext() {
		t.Fatalf("expected the first record to still be observed before the error")
	}
	if _, err := s.Next(); err != nil {
		t.Fatalf("unexpected error reading buffered record: %v", err)
	}

	if s.HasNext() {
		t.Fatalf("expected HasNext to report false once only ERR remains")
	}
	if _, err := s.Next(); err == nil {
		t.Fatalf("expected the stream's error to be raised")
	}
	// Subsequent reads behave as if at END.
	if s.HasNext() {
		t.Fatalf("expected HasNext false after the error has been surfaced")
	}
	if _, err := s.Next(); err == nil {
		t.Fatalf("expected a not-found condition on a second read past the error")
	}
}

func TestCompleteIsIdempotentAndUnblocksFullQueue(t *testing.T) {
	s, _ := New(1)
	s.Publish(newTestRecord(1))
	s.Complete()
	s.Complete() // idempotent, must not panic or double-enqueue END

	records, err := drainAll(t, s)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if err == nil {
		t.Fatalf("expected END not-found condition")
	}
}

func TestCloseAfterErrorPreservesTheSingleTerminal(t *testing.T) {
	s, _ := New(4)
	s.Error(someErr{})
	s.Close() // must not hang or drop the already-queued ERR

	if s.HasNext() {
		// The ERR is the head; HasNext reports false since it isn't a
		// record.
		t.Fatalf("expected HasNext false at an ERR head")
	}
	if _, err := s.Next(); err == nil {
		t.Fatalf("expected the error to still be observed after Close")
	}
}

type someErr struct{}

func (someErr) Error() string { return "boom" }

func TestCancelledReflectsTerminalStates(t *testing.T) {
	s, _ := New(1)
	if s.Cancelled() {
		t.Fatalf("expected Open stream to not be cancelled")
	}
	s.Complete()
	if !s.Cancelled() {
		t.Fatalf("expected Completed stream to be cancelled")
	}

	s2, _ := New(1)
	s2.Close()
	if !s2.Cancelled() {
		t.Fatalf("expected Closed stream to be cancelled")
	}
}

// The END terminal is never popped, so every one of N concurrent
// HasNext/Next pairs observes that same single terminal: HasNext reports
// false and Next returns the not-found condition.
func TestConcurrentConsumersObserveExactlyOneTerminal(t *testing.T) {
	s, _ := New(8)
	s.Complete()

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	notFoundCount := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !s.HasNext() {
				if _, err := s.Next(); err != nil {
					mu.Lock()
					notFoundCount++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	if notFoundCount != n {
		t.Fatalf("expected all %d goroutines to observe the not-found condition, got %d", n, notFoundCount)
	}
}

func TestPublishIgnoredAfterClose(t *testing.T) {
	s, _ := New(4)
	s.Close()
	s.Publish(newTestRecord(1))

	if s.HasNext() {
		t.Fatalf("expected no record to have been queued after Close")
	}
}
