// Package expr implements the typed fluent expression DSL: typed bin
// references, literals, arithmetic, comparisons, logical operators, type
// conversions, if/elif/else, and local-variable let-bindings. Every builder
// method returns a fresh, immutable node; lowering produces a tagged IR tree
// and, opportunistically, a secondary-index Filter.
package expr

// ResultType is the inferred static type of an expression node.
type ResultType int

const (
	TypeInt ResultType = iota
	TypeFloat
	TypeStr
	TypeBool
	TypeBlob
	// typeUnknown marks a node with no usable result type: an error node
	// carrying a deferred build error, or an if-chain without an else
	// branch.
	typeUnknown
)

func (t ResultType) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeStr:
		return "Str"
	case TypeBool:
		return "Bool"
	case TypeBlob:
		return "Blob"
	default:
		return "Unknown"
	}
}

// Expr is the type-erased interface every node in the DSL satisfies. Typed
// builders (IntExpr, FloatExpr, ...) wrap a rawNode and expose only the
// operations meaningful for their result type.
type Expr interface {
	rawNode() rawNode
}

// rawNode is the internal node contract: result-type inference and
// lowering to the tagged IR. Implementations are immutable value types or
// pointers to immutable structs; builder methods never mutate a receiver.
type rawNode interface {
	resultType() ResultType
	lower(ctx *lowerCtx) (*IRNode, error)
	describe() string
}

// lowerCtx threads the local-variable scope (for LetIn/VarRef) through a
// lowering pass. Scopes are pushed/popped per LetIn node; VarRef resolves
// by walking outward, so inner bindings shadow outer ones.
type lowerCtx struct {
	scopes []map[string]ResultType
}

func newLowerCtx() *lowerCtx {
	return &lowerCtx{}
}

func (c *lowerCtx) push(name string, t ResultType) {
	scope := map[string]ResultType{name: t}
	c.scopes = append(c.scopes, scope)
}

func (c *lowerCtx) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *lowerCtx) lookup(name string) (ResultType, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i][name]; ok {
			return t, true
		}
	}
	return 0, false
}

// Describe renders a debug string for an expression tree. It is never part
// of the wire IR; it exists only for logs and test failure messages.
func Describe(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	return e.rawNode().describe()
}
