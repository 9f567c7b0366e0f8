package expr

// varRefNode references a let-bound local variable. Its declared type is
// fixed by which VarInt/VarFloat/VarStr/VarBool/VarBlob constructor created
// it, so arithmetic/comparison builders can type-check immediately; the
// binding's actual presence and type are verified during lowering against
// the active scope, where a mismatch surfaces as a ScopeError (undefined
// name) or TypeError (type mismatch with the binding).
type varRefNode struct {
	name     string
	declared ResultType
}

func (n *varRefNode) resultType() ResultType { return n.declared }

func (n *varRefNode) lower(ctx *lowerCtx) (*IRNode, error) {
	actual, ok := ctx.lookup(n.name)
	if !ok {
		return nil, &ScopeError{Name: n.name}
	}
	if actual != n.declared {
		return nil, &TypeError{Op: "var", Want: n.declared, Got: actual, Message: "var(" + n.name + ") referenced at a different type than its binding"}
	}
	return &IRNode{Kind: IRVarRef, ResultType: n.declared, VarName: n.name}, nil
}

func (n *varRefNode) describe() string {
	return "var(" + n.name + ")"
}
