package behavior

import (
	"testing"
	"time"
)

// Scenario 3 from spec §8: DEFAULT carries patches for "reads" (max
// attempts 2), "reads.batch" (max attempts 3), and "reads.batch.ap" (max
// attempts 4). resolve(READ, BATCH, AP) must land on 4 (most specific
// match); resolve(READ, BATCH, CP) must land on 3 (the ap-only patch no
// longer matches, so the next most specific one wins).
func TestScenario3SpecificityLayering(t *testing.T) {
	reg := NewRegistry()
	def := reg.Default()

	def.AddPatch(NewNamedPatch("reads").MaxCallAttempts(2).Build())
	def.AddPatch(NewNamedPatch("reads.batch").MaxCallAttempts(3).Build())
	def.AddPatch(NewNamedPatch("reads.batch.ap").MaxCallAttempts(4).Build())

	ap := Triple{Kind: KindRead, Shape: ShapeBatch, Mode: ModeAP}
	cp := Triple{Kind: KindRead, Shape: ShapeBatch, Mode: ModeCP}

	sAP, err := def.Resolve(ap)
	if err != nil {
		t.Fatalf("resolve ap: %v", err)
	}
	if sAP.MaxCallAttempts != 4 {
		t.Fatalf("expected 4 call attempts for AP, got %d", sAP.MaxCallAttempts)
	}

	sCP, err := def.Resolve(cp)
	if err != nil {
		t.Fatalf("resolve cp: %v", err)
	}
	if sCP.MaxCallAttempts != 3 {
		t.Fatalf("expected 3 call attempts for CP, got %d", sCP.MaxCallAttempts)
	}
}

func TestChildOverridesParentAtEqualSpecificity(t *testing.T) {
	reg := NewRegistry()
	def := reg.Default()
	def.AddPatch(NewNamedPatch("reads").MaxCallAttempts(5).Build())

	child := NewBehavior("child", def)
	child.AddPatch(NewNamedPatch("reads").MaxCallAttempts(9).Build())
	reg.Register(child)

	s, err := child.Resolve(Triple{Kind: KindRead, Shape: ShapePoint, Mode: ModeAP})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.MaxCallAttempts != 9 {
		t.Fatalf("expected child patch (9) to win over parent patch (5), got %d", s.MaxCallAttempts)
	}
}

func TestDefaultPopulatesEveryFieldWithNoOtherPatches(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Default().Resolve(Triple{Kind: KindWriteRetryable, Shape: ShapePoint, Mode: ModeCP})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.TotalTimeout == 0 {
		t.Fatalf("expected a nonzero default total timeout")
	}
	if s.ReplicaOrder == "" {
		t.Fatalf("expected a default replica order")
	}
}

func TestCacheInvalidatedOnAddPatch(t *testing.T) {
	reg := NewRegistry()
	def := reg.Default()
	triple := Triple{Kind: KindRead, Shape: ShapePoint, Mode: ModeAP}

	first, _ := def.Resolve(triple)
	if first.MaxCallAttempts != 3 {
		t.Fatalf("expected built-in default 3, got %d", first.MaxCallAttempts)
	}

	def.AddPatch(NewNamedPatch("reads").MaxCallAttempts(7).Build())
	second, _ := def.Resolve(triple)
	if second.MaxCallAttempts != 7 {
		t.Fatalf("expected cache invalidation to pick up new patch, got %d", second.MaxCallAttempts)
	}
}

func TestInheritanceCycleDetected(t *testing.T) {
	a := NewBehavior("a", nil)
	b := NewBehavior("b", a)
	// Manually force a cycle: a now "inherits" from b, forming a -> b -> a.
	a.parent = b

	_, err := a.Resolve(Triple{Kind: KindRead, Shape: ShapePoint, Mode: ModeAP})
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestParseSelectorCatalog(t *testing.T) {
	names := []string{
		"all", "reads", "reads.ap", "reads.cp", "reads.get",
		"reads.batch", "reads.batch.ap", "reads.batch.cp",
		"reads.query", "reads.query.ap", "reads.query.cp",
		"writes", "writes.ap", "writes.cp",
		"writes.retryable", "writes.non_retryable",
		"writes.point", "writes.point.ap", "writes.batch",
		"writes.retryable.point.ap",
		"system.txn_verify", "system.txn_roll", "system.connections",
		"system.circuit_breaker", "system.refresh",
	}
	for _, n := range names {
		if _, err := ParseSelector(n); err != nil {
			t.Fatalf("ParseSelector(%q): %v", n, err)
		}
	}
}

func TestParseSelectorRejectsInconsistentCombination(t *testing.T) {
	if _, err := ParseSelector("reads.retryable"); err == nil {
		t.Fatalf("expected an error combining reads with retryable")
	}
}

func TestSelectorSpecificityOrdering(t *testing.T) {
	all := MustSelector("all")
	reads := MustSelector("reads")
	readsBatch := MustSelector("reads.batch")
	readsBatchAP := MustSelector("reads.batch.ap")

	if all.specificity() >= reads.specificity() {
		t.Fatalf("expected reads to be more specific than all")
	}
	if reads.specificity() >= readsBatch.specificity() {
		t.Fatalf("expected reads.batch to be more specific than reads")
	}
	if readsBatch.specificity() >= readsBatchAP.specificity() {
		t.Fatalf("expected reads.batch.ap to be more specific than reads.batch")
	}
}

func TestAsReadPolicyClampsMaxRetries(t *testing.T) {
	s := &Settings{MaxCallAttempts: 0}
	p := AsReadPolicy(s)
	if p.MaxRetries != 0 {
		t.Fatalf("expected clamped MaxRetries of 0, got %d", p.MaxRetries)
	}

	s2 := &Settings{MaxCallAttempts: 4, AttemptTimeout: 2 * time.Second}
	p2 := AsReadPolicy(s2)
	if p2.MaxRetries != 3 {
		t.Fatalf("expected MaxRetries 3, got %d", p2.MaxRetries)
	}
}
