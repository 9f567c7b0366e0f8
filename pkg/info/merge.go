package info

import (
	"fmt"

	"github.com/kvfluent/client-go/pkg/kverrors"
)

// MergeRule is a declarative rule for combining one metric's per-node
// values into a single cluster-wide value.
type MergeRule string

const (
	RuleSum       MergeRule = "sum"
	RuleAverage   MergeRule = "average"
	RuleAnd       MergeRule = "and"
	RuleOr        MergeRule = "or"
	RuleFirstOf   MergeRule = "first_of"
	RuleUnanimous MergeRule = "unanimous"
)

// Registry maps metric names to the merge rule used to combine their
// per-node samples. Only metrics named in the registry are requested from
// nodes and merged; a registered metric whose rule is not one of the Rule*
// constants merges to an error rather than a value.
type Registry struct {
	rules map[string]MergeRule
}

// NewRegistry builds a Registry from a name-to-rule map.
func NewRegistry(rules map[string]MergeRule) *Registry {
	r := &Registry{rules: make(map[string]MergeRule, len(rules))}
	for name, rule := range rules {
		r.rules[name] = rule
	}
	return r
}

// Register adds or overwrites one metric's merge rule.
func (r *Registry) Register(name string, rule MergeRule) {
	r.rules[name] = rule
}

// Rule looks up a metric's merge rule.
func (r *Registry) Rule(name string) (MergeRule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// Names returns every registered metric name, for gauge registration.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	return names
}

// merge combines one metric's per-node values (in node enumeration order)
// per rule. An unrecognized rule, a type the rule can't operate on, or a
// unanimous-rule disagreement all surface as a *kverrors.UsageError rather
// than panicking -- a merge failure is a per-metric result, not a
// whole-refresh failure.
func merge(rule MergeRule, values []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return nil, kverrors.NewUsageError("info: no values to merge")
	}
	switch rule {
	case RuleSum:
		var total float64
		for _, v := range values {
			f, ok := toFloat64(v)
			if !ok {
				return nil, kverrors.NewUsageError(fmt.Sprintf("info: %q is not numeric for rule %q", v, rule))
			}
			total += f
		}
		return total, nil
	case RuleAverage:
		var total float64
		for _, v := range values {
			f, ok := toFloat64(v)
			if !ok {
				return nil, kverrors.NewUsageError(fmt.Sprintf("info: %q is not numeric for rule %q", v, rule))
			}
			total += f
		}
		return total / float64(len(values)), nil
	case RuleAnd:
		result := true
		for _, v := range values {
			b, ok := toBool(v)
			if !ok {
				return nil, kverrors.NewUsageError(fmt.Sprintf("info: %q is not boolean for rule %q", v, rule))
			}
			result = result && b
		}
		return result, nil
	case RuleOr:
		result := false
		for _, v := range values {
			b, ok := toBool(v)
			if !ok {
				return nil, kverrors.NewUsageError(fmt.Sprintf("info: %q is not boolean for rule %q", v, rule))
			}
			result = result || b
		}
		return result, nil
	case RuleFirstOf:
		return values[0], nil
	case RuleUnanimous:
		first := values[0]
		for _, v := range values[1:] {
			if v != first {
				return nil, kverrors.NewUsageError(fmt.Sprintf("info: values disagree across nodes (%v vs %v)", first, v))
			}
		}
		return first, nil
	default:
		return nil, kverrors.NewUsageError(fmt.Sprintf("info: unknown metric merge rule %q", rule))
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
