// Package behavior implements the selector algebra and the declarative,
// inheritable Behavior matrix that resolves a full Settings record for
// every (OpKind, OpShape, Mode) triple.
package behavior

import (
	"fmt"
	"strings"
)

// Kind is one axis of a Triple: which operation family is running.
type Kind uint16

const (
	KindRead Kind = 1 << iota
	KindWriteRetryable
	KindWriteNonRetryable
	KindSystemTxnVerify
	KindSystemTxnRoll
	KindSystemConnections
	KindSystemCircuitBreaker
	KindSystemRefresh
)

const kindUniverse = KindRead | KindWriteRetryable | KindWriteNonRetryable |
	KindSystemTxnVerify | KindSystemTxnRoll | KindSystemConnections |
	KindSystemCircuitBreaker | KindSystemRefresh

const kindWrite = KindWriteRetryable | KindWriteNonRetryable
const kindSystem = KindSystemTxnVerify | KindSystemTxnRoll | KindSystemConnections |
	KindSystemCircuitBreaker | KindSystemRefresh

// Shape is the second axis: the operation's request shape.
type Shape uint8

const (
	ShapePoint Shape = 1 << iota
	ShapeBatch
	ShapeQuery
	ShapeSystem
)

const shapeUniverse = ShapePoint | ShapeBatch | ShapeQuery | ShapeSystem

// Mode is the third axis: the consistency mode the op runs under.
type Mode uint8

const (
	ModeAP Mode = 1 << iota
	ModeCP
)

const modeUniverse = ModeAP | ModeCP

// Triple is the (OpKind, OpShape, Mode) tuple a Settings value is resolved
// for.
type Triple struct {
	Kind  Kind
	Shape Shape
	Mode  Mode
}

// Selector is an immutable descriptor of a subset of (kind, shape, mode)
// space. Selector A is strictly more specific than B iff A's triples are a
// proper subset of B's.
type Selector struct {
	name   string
	kinds  Kind
	shapes Shape
	modes  Mode
}

// Name returns the selector's canonical dotted name.
func (s Selector) Name() string { return s.name }

// Contains reports whether the selector matches the given triple.
func (s Selector) Contains(t Triple) bool {
	return s.kinds&t.Kind != 0 && s.shapes&t.Shape != 0 && s.modes&t.Mode != 0
}

// Subsumes reports whether every triple matched by other is also matched by
// s -- i.e. other ⊆ s.
func (s Selector) Subsumes(other Selector) bool {
	return other.kinds&^s.kinds == 0 && other.shapes&^s.shapes == 0 && other.modes&^s.modes == 0
}

// MoreSpecificThan reports whether s ⊂ other (s is a strict subset).
func (s Selector) MoreSpecificThan(other Selector) bool {
	return other.Subsumes(s) && !s.Subsumes(other)
}

// specificity scores how constrained a selector is: one weighted point per
// constrained axis, with weights (kind=4, shape=2, mode=1) implementing the
// "more axes constrained is more specific, ties broken by kind > shape >
// mode" rule as a single total order.
func (s Selector) specificity() int {
	score := 0
	if s.kinds != kindUniverse {
		score += 4
	}
	if s.shapes != shapeUniverse {
		score += 2
	}
	if s.modes != modeUniverse {
		score += 1
	}
	return score
}

var universal = Selector{name: "all", kinds: kindUniverse, shapes: shapeUniverse, modes: modeUniverse}

// ParseSelector parses one of the closed-catalog dotted selector names
// (e.g. "reads.batch.ap", "writes.retryable.point.ap", "system.refresh")
// into a Selector. Unrecognized names or inconsistent combinations (e.g.
// combining "reads" with "retryable") return a ConfigurationError.
func ParseSelector(name string) (Selector, error) {
	tokens := strings.Split(strings.TrimSpace(name), ".")
	if len(tokens) == 0 || tokens[0] == "" {
		return Selector{}, &ConfigurationError{Message: "empty selector name"}
	}

	sel := Selector{name: name, kinds: kindUniverse, shapes: shapeUniverse, modes: modeUniverse}

	switch tokens[0] {
	case "all":
		if len(tokens) != 1 {
			return Selector{}, &ConfigurationError{Message: fmt.Sprintf("selector %q: \"all\" takes no further segments", name)}
		}
		return sel, nil
	case "reads":
		sel.kinds = KindRead
	case "writes":
		sel.kinds = kindWrite
	case "system":
		sel.kinds = kindSystem
		sel.shapes = ShapeSystem
		if len(tokens) < 2 {
			return Selector{}, &ConfigurationError{Message: fmt.Sprintf("selector %q: system selectors require a sub-kind", name)}
		}
		sub, ok := systemSubKinds[tokens[1]]
		if !ok {
			return Selector{}, &ConfigurationError{Message: fmt.Sprintf("selector %q: unknown system sub-kind %q", name, tokens[1])}
		}
		sel.kinds = sub
		if len(tokens) != 2 {
			return Selector{}, &ConfigurationError{Message: fmt.Sprintf("selector %q: system selectors take exactly one sub-kind segment", name)}
		}
		return sel, nil
	default:
		return Selector{}, &ConfigurationError{Message: fmt.Sprintf("selector %q: unknown root segment %q", name, tokens[0])}
	}

	for _, tok := range tokens[1:] {
		if err := applyToken(&sel, tok, name); err != nil {
			return Selector{}, err
		}
	}
	return sel, nil
}

var systemSubKinds = map[string]Kind{
	"txn_verify":      KindSystemTxnVerify,
	"txn_roll":        KindSystemTxnRoll,
	"connections":     KindSystemConnections,
	"circuit_breaker": KindSystemCircuitBreaker,
	"refresh":         KindSystemRefresh,
}

func applyToken(sel *Selector, tok, fullName string) error {
	switch tok {
	case "ap":
		sel.modes = ModeAP
	case "cp":
		sel.modes = ModeCP
	case "retryable":
		if sel.kinds&kindWrite == 0 {
			return &ConfigurationError{Message: fmt.Sprintf("selector %q: %q only applies to writes", fullName, tok)}
		}
		sel.kinds = KindWriteRetryable
	case "non_retryable":
		if sel.kinds&kindWrite == 0 {
			return &ConfigurationError{Message: fmt.Sprintf("selector %q: %q only applies to writes", fullName, tok)}
		}
		sel.kinds = KindWriteNonRetryable
	case "get":
		sel.shapes = ShapePoint
	case "point":
		sel.shapes = ShapePoint
	case "batch":
		sel.shapes = ShapeBatch
	case "query":
		sel.shapes = ShapeQuery
	default:
		return &ConfigurationError{Message: fmt.Sprintf("selector %q: unknown segment %q", fullName, tok)}
	}
	return nil
}

// MustSelector is ParseSelector for callers that already know the name is
// well-formed, such as package-level table construction.
func MustSelector(name string) Selector {
	sel, err := ParseSelector(name)
	if err != nil {
		panic(err)
	}
	return sel
}
