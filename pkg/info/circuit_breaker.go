package info

import "sync"

// circuitBreaker is a per-node sliding-window error tripwire: once
// maxErrors failures are recorded within the last windowTicks refresh
// ticks, the node is skipped until the window ages the failures out.
// windowTicks/maxErrors come from spec.md §6's numTendIntervalsInErrorWindow/
// maximumErrorsInErrorWindow system.circuitBreaker settings.
type circuitBreaker struct {
	mu         sync.Mutex
	windowSize int
	maxErrors  int
	window     []bool
	pos        int
}

func newCircuitBreaker(windowSize, maxErrors int) *circuitBreaker {
	if windowSize < 1 {
		windowSize = 1
	}
	return &circuitBreaker{
		windowSize: windowSize,
		maxErrors:  maxErrors,
		window:     make([]bool, windowSize),
	}
}

// record advances the window by one tick and records whether that tick
// failed.
func (b *circuitBreaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window[b.pos] = failed
	b.pos = (b.pos + 1) % b.windowSize
}

// open reports whether the node should be skipped this tick: the count of
// failures currently in the window meets or exceeds maxErrors.
func (b *circuitBreaker) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxErrors <= 0 {
		return false
	}
	count := 0
	for _, failed := range b.window {
		if failed {
			count++
		}
	}
	return count >= b.maxErrors
}
