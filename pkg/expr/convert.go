package expr

import "fmt"

// convertNode represents an explicit toFloat/toInt conversion.
type convertNode struct {
	kind  string // "toFloat","toInt"
	inner rawNode
	rt    ResultType
}

func (n *convertNode) resultType() ResultType { return n.rt }

func (n *convertNode) lower(ctx *lowerCtx) (*IRNode, error) {
	inner, err := n.inner.lower(ctx)
	if err != nil {
		return nil, err
	}
	return &IRNode{Kind: IRConvert, ResultType: n.rt, ConvertKind: n.kind, Inner: inner}, nil
}

func (n *convertNode) describe() string {
	return fmt.Sprintf("%s(%s)", n.kind, n.inner.describe())
}

func newToFloat(inner rawNode) (rawNode, error) {
	if err := firstError(inner); err != nil {
		return nil, err
	}
	if inner.resultType() != TypeInt {
		return nil, newTypeError("toFloat", TypeInt, inner.resultType())
	}
	return &convertNode{kind: "toFloat", inner: inner, rt: TypeFloat}, nil
}

func newToInt(inner rawNode) (rawNode, error) {
	if err := firstError(inner); err != nil {
		return nil, err
	}
	if inner.resultType() != TypeFloat {
		return nil, newTypeError("toInt", TypeFloat, inner.resultType())
	}
	return &convertNode{kind: "toInt", inner: inner, rt: TypeInt}, nil
}
