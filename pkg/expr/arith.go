package expr

import "fmt"

// arithNode represents a binary arithmetic operation (+, -, *, /) between
// two operands of the same numeric type. Chaining is left-to-right as
// written: a.Add(3).Mul(4) lowers as (a+3)*4, never algebraic precedence.
type arithNode struct {
	op          string
	left, right rawNode
	rt          ResultType
}

func (n *arithNode) resultType() ResultType { return n.rt }

func (n *arithNode) lower(ctx *lowerCtx) (*IRNode, error) {
	l, err := n.left.lower(ctx)
	if err != nil {
		return nil, err
	}
	r, err := n.right.lower(ctx)
	if err != nil {
		return nil, err
	}
	return &IRNode{Kind: IRArith, ResultType: n.rt, Op: n.op, Left: l, Right: r}, nil
}

func (n *arithNode) describe() string {
	return fmt.Sprintf("(%s %s %s)", n.left.describe(), n.op, n.right.describe())
}

func newArith(op string, left, right rawNode) (rawNode, error) {
	if err := firstError(left, right); err != nil {
		return nil, err
	}
	lt, rt := left.resultType(), right.resultType()
	if lt != TypeInt && lt != TypeFloat {
		return nil, newTypeError(op, TypeInt, lt)
	}
	if rt != lt {
		return nil, &TypeError{Op: op, Want: lt, Got: rt, Message: fmt.Sprintf("%s: operands must share a numeric type, got %s and %s", op, lt, rt)}
	}
	return &arithNode{op: op, left: left, right: right, rt: lt}, nil
}
