package config

import (
	"testing"
	"time"

	"github.com/kvfluent/client-go/pkg/behavior"
)

const sampleDoc = `
behaviors:
  DEFAULT:
    patches:
      reads:
        maximumNumberOfCallAttempts: 2
      reads.batch:
        maximumNumberOfCallAttempts: 3
      reads.batch.ap:
        maximumNumberOfCallAttempts: 4
  aggressive:
    parent: DEFAULT
    patches:
      writes:
        attemptTimeout: 250ms
        sendKey: true
system:
  connections:
    minimumConnectionsPerNode: 2
    maximumConnectionsPerNode: 64
  circuitBreaker:
    numTendIntervalsInErrorWindow: 2
    maximumErrorsInErrorWindow: 50
  refresh:
    tendInterval: 1s
`

func TestLoadResolvesScenario3Layering(t *testing.T) {
	reg, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	def := reg.Default()
	ap := behavior.Triple{Kind: behavior.KindRead, Shape: behavior.ShapeBatch, Mode: behavior.ModeAP}
	cp := behavior.Triple{Kind: behavior.KindRead, Shape: behavior.ShapeBatch, Mode: behavior.ModeCP}

	sAP, err := def.Resolve(ap)
	if err != nil {
		t.Fatalf("resolve ap: %v", err)
	}
	if sAP.MaxCallAttempts != 4 {
		t.Fatalf("expected 4, got %d", sAP.MaxCallAttempts)
	}

	sCP, err := def.Resolve(cp)
	if err != nil {
		t.Fatalf("resolve cp: %v", err)
	}
	if sCP.MaxCallAttempts != 3 {
		t.Fatalf("expected 3, got %d", sCP.MaxCallAttempts)
	}
}

func TestLoadAppliesChildBehaviorAndDuration(t *testing.T) {
	reg, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	child, err := reg.Get("aggressive")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s, err := child.Resolve(behavior.Triple{Kind: behavior.KindWriteRetryable, Shape: behavior.ShapePoint, Mode: behavior.ModeAP})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.AttemptTimeout != 250*time.Millisecond {
		t.Fatalf("expected 250ms attempt timeout, got %v", s.AttemptTimeout)
	}
	if !s.SendKey {
		t.Fatalf("expected sendKey true")
	}
}

func TestLoadAppliesSystemBlocksToDefault(t *testing.T) {
	reg, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := reg.Default().Resolve(behavior.Triple{Kind: behavior.KindSystemConnections, Shape: behavior.ShapeSystem, Mode: behavior.ModeAP})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.MinConnsPerNode != 2 || s.MaxConnsPerNode != 64 {
		t.Fatalf("unexpected connection bounds: %+v", s)
	}

	breaker, err := reg.Default().Resolve(behavior.Triple{Kind: behavior.KindSystemCircuitBreaker, Shape: behavior.ShapeSystem, Mode: behavior.ModeAP})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if breaker.ErrorWindowTicks != 2 || breaker.MaxErrorsInWindow != 50 {
		t.Fatalf("unexpected circuit breaker settings: %+v", breaker)
	}
}

func TestLoadRejectsUnknownParent(t *testing.T) {
	doc := `
behaviors:
  orphan:
    parent: nonexistent
    patches:
      reads:
        maximumNumberOfCallAttempts: 1
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatalf("expected an error for an unknown parent reference")
	}
}

func TestLoadRejectsInheritanceCycle(t *testing.T) {
	doc := `
behaviors:
  a:
    parent: b
    patches: {}
  b:
    parent: a
    patches: {}
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatalf("expected a cycle error")
	}
}

func TestParseDurationUnits(t *testing.T) {
	cases := map[string]time.Duration{
		"5ns":  5 * time.Nanosecond,
		"5us":  5 * time.Microsecond,
		"5ms":  5 * time.Millisecond,
		"5s":   5 * time.Second,
		"5m":   5 * time.Minute,
		"5h":   5 * time.Hour,
		"5d":   5 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDurationRejectsUnknownUnit(t *testing.T) {
	if _, err := ParseDuration("5fortnights"); err == nil {
		t.Fatalf("expected an error for an unknown unit")
	}
}
