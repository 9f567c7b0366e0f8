package expr

import "fmt"

// cmpNode represents a comparison (=, !=, <, <=, >, >=) or the special
// "between" range predicate. Its result type is always Bool.
type cmpNode struct {
	op          string
	left, right rawNode // right unused when op == "between"
	low, high   rawNode // only set when op == "between"
}

func (n *cmpNode) resultType() ResultType { return TypeBool }

func (n *cmpNode) lower(ctx *lowerCtx) (*IRNode, error) {
	l, err := n.left.lower(ctx)
	if err != nil {
		return nil, err
	}
	if n.op == "between" {
		low, err := n.low.lower(ctx)
		if err != nil {
			return nil, err
		}
		high, err := n.high.lower(ctx)
		if err != nil {
			return nil, err
		}
		return &IRNode{Kind: IRCmp, ResultType: TypeBool, Op: n.op, Left: l, Low: low, High: high}, nil
	}
	r, err := n.right.lower(ctx)
	if err != nil {
		return nil, err
	}
	return &IRNode{Kind: IRCmp, ResultType: TypeBool, Op: n.op, Left: l, Right: r}, nil
}

func (n *cmpNode) describe() string {
	if n.op == "between" {
		return fmt.Sprintf("(%s between %s and %s)", n.left.describe(), n.low.describe(), n.high.describe())
	}
	return fmt.Sprintf("(%s %s %s)", n.left.describe(), n.op, n.right.describe())
}

// equalityOps are valid for every result type, including Blob.
var equalityOps = map[string]bool{"=": true, "!=": true}

// orderingOps are valid for Int, Float, Str but not Blob or Bool.
var orderingOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}

func newCmp(op string, left, right rawNode) (rawNode, error) {
	if err := firstError(left, right); err != nil {
		return nil, err
	}
	lt, rt := left.resultType(), right.resultType()
	if lt != rt {
		return nil, &TypeError{Op: op, Want: lt, Got: rt, Message: fmt.Sprintf("%s: operands must share a type, got %s and %s", op, lt, rt)}
	}
	if lt == TypeBlob && !equalityOps[op] {
		return nil, &TypeError{Op: op, Want: lt, Got: rt, Message: "Blob supports only = and !="}
	}
	if lt == TypeBool && !equalityOps[op] {
		return nil, &TypeError{Op: op, Want: lt, Got: rt, Message: "Bool supports only = and !="}
	}
	return &cmpNode{op: op, left: left, right: right}, nil
}

func newBetween(left, low, high rawNode) (rawNode, error) {
	if err := firstError(left, low, high); err != nil {
		return nil, err
	}
	lt := left.resultType()
	if lt != TypeInt && lt != TypeFloat && lt != TypeStr {
		return nil, &TypeError{Op: "between", Want: TypeInt, Got: lt, Message: "between is only valid on Int, Float, or Str"}
	}
	if low.resultType() != lt || high.resultType() != lt {
		return nil, &TypeError{Op: "between", Want: lt, Got: low.resultType(), Message: "between bounds must share the bin's type"}
	}
	return &cmpNode{op: "between", left: left, low: low, high: high}, nil
}
