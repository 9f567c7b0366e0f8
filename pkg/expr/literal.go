package expr

import "fmt"

// literalNode is a leaf carrying a constant value of known type.
type literalNode struct {
	value interface{}
	rt    ResultType
}

func (n *literalNode) resultType() ResultType { return n.rt }

func (n *literalNode) lower(ctx *lowerCtx) (*IRNode, error) {
	return &IRNode{Kind: IRLiteral, ResultType: n.rt, Value: n.value}, nil
}

func (n *literalNode) describe() string {
	return fmt.Sprintf("%v", n.value)
}

// binRefNode is a leaf referencing a named bin of known type.
type binRefNode struct {
	name string
	rt   ResultType
}

func (n *binRefNode) resultType() ResultType { return n.rt }

func (n *binRefNode) lower(ctx *lowerCtx) (*IRNode, error) {
	return &IRNode{Kind: IRBinRef, ResultType: n.rt, BinName: n.name}, nil
}

func (n *binRefNode) describe() string {
	return n.name
}
