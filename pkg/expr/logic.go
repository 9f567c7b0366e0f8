package expr

import "strings"

// logicNode represents AND/OR (variadic, short-circuit) or NOT (unary).
type logicNode struct {
	op       string // "AND","OR","NOT"
	operands []rawNode
}

func (n *logicNode) resultType() ResultType { return TypeBool }

func (n *logicNode) lower(ctx *lowerCtx) (*IRNode, error) {
	operands := make([]*IRNode, 0, len(n.operands))
	for _, o := range n.operands {
		lowered, err := o.lower(ctx)
		if err != nil {
			return nil, err
		}
		operands = append(operands, lowered)
	}
	return &IRNode{Kind: IRLogic, ResultType: TypeBool, LogicOp: n.op, Operands: operands}, nil
}

func (n *logicNode) describe() string {
	parts := make([]string, len(n.operands))
	for i, o := range n.operands {
		parts[i] = o.describe()
	}
	if n.op == "NOT" {
		return "NOT " + parts[0]
	}
	return "(" + strings.Join(parts, " "+n.op+" ") + ")"
}

func requireBool(op string, operands ...rawNode) error {
	for _, o := range operands {
		if o.resultType() != TypeBool {
			return &TypeError{Op: op, Want: TypeBool, Got: o.resultType()}
		}
	}
	return nil
}

func newLogic(op string, operands ...rawNode) (rawNode, error) {
	if err := firstError(operands...); err != nil {
		return nil, err
	}
	if err := requireBool(op, operands...); err != nil {
		return nil, err
	}
	return &logicNode{op: op, operands: operands}, nil
}
