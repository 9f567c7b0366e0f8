package expr

// IntExpr is a fluent, statically-typed handle over an Int-valued node.
type IntExpr struct{ n rawNode }

// FloatExpr is a fluent, statically-typed handle over a Float-valued node.
type FloatExpr struct{ n rawNode }

// StrExpr is a fluent, statically-typed handle over a Str-valued node.
type StrExpr struct{ n rawNode }

// BoolExpr is a fluent, statically-typed handle over a Bool-valued node.
type BoolExpr struct{ n rawNode }

// BlobExpr is a fluent, statically-typed handle over a Blob-valued node.
type BlobExpr struct{ n rawNode }

func (e IntExpr) rawNode() rawNode   { return e.n }
func (e FloatExpr) rawNode() rawNode { return e.n }
func (e StrExpr) rawNode() rawNode   { return e.n }
func (e BoolExpr) rawNode() rawNode  { return e.n }
func (e BlobExpr) rawNode() rawNode  { return e.n }

// --- Bin references -------------------------------------------------------

// IntBin references a bin holding a 64-bit integer (32-bit values widen implicitly).
func IntBin(name string) IntExpr { return IntExpr{&binRefNode{name: name, rt: TypeInt}} }

// FloatBin references a bin holding a 64-bit float.
func FloatBin(name string) FloatExpr { return FloatExpr{&binRefNode{name: name, rt: TypeFloat}} }

// StrBin references a bin holding a string.
func StrBin(name string) StrExpr { return StrExpr{&binRefNode{name: name, rt: TypeStr}} }

// BoolBin references a bin holding a boolean.
func BoolBin(name string) BoolExpr { return BoolExpr{&binRefNode{name: name, rt: TypeBool}} }

// BlobBin references a bin holding an opaque byte blob.
func BlobBin(name string) BlobExpr { return BlobExpr{&binRefNode{name: name, rt: TypeBlob}} }

// --- Literals --------------------------------------------------------------

// Int constructs an Int literal. Values narrower than 64 bits widen implicitly.
func Int(v int64) IntExpr { return IntExpr{&literalNode{value: v, rt: TypeInt}} }

// Int32 is a convenience constructor matching the spec's "32-bit literals
// widen implicitly" rule explicitly at the call site.
func Int32(v int32) IntExpr { return Int(int64(v)) }

// Float constructs a Float literal (64-bit).
func Float(v float64) FloatExpr { return FloatExpr{&literalNode{value: v, rt: TypeFloat}} }

// Float32 widens a 32-bit float literal to 64-bit, never the reverse.
func Float32(v float32) FloatExpr { return Float(float64(v)) }

// Str constructs a Str literal.
func Str(v string) StrExpr { return StrExpr{&literalNode{value: v, rt: TypeStr}} }

// Bool constructs a Bool literal.
func Bool(v bool) BoolExpr { return BoolExpr{&literalNode{value: v, rt: TypeBool}} }

// Blob constructs a Blob literal.
func Blob(v []byte) BlobExpr { return BlobExpr{&literalNode{value: v, rt: TypeBlob}} }

// --- Local variables --------------------------------------------------------

// VarInt references a let-bound Int variable by name.
func VarInt(name string) IntExpr { return IntExpr{&varRefNode{name: name, declared: TypeInt}} }

// VarFloat references a let-bound Float variable by name.
func VarFloat(name string) FloatExpr { return FloatExpr{&varRefNode{name: name, declared: TypeFloat}} }

// VarStr references a let-bound Str variable by name.
func VarStr(name string) StrExpr { return StrExpr{&varRefNode{name: name, declared: TypeStr}} }

// VarBool references a let-bound Bool variable by name.
func VarBool(name string) BoolExpr { return BoolExpr{&varRefNode{name: name, declared: TypeBool}} }

// VarBlob references a let-bound Blob variable by name.
func VarBlob(name string) BlobExpr { return BlobExpr{&varRefNode{name: name, declared: TypeBlob}} }

// --- Recovering a typed handle from a type-erased chain (If/LetIn) --------

// AsInt wraps an Expr (typically the result of an if-chain or let-binding)
// as an IntExpr. The wrapped node's result type is not checked here or at
// lowering; a mismatch surfaces as a TypeError only where an operator or
// if-chain that uses the handle compares operand types.
func AsInt(e Expr) IntExpr { return IntExpr{e.rawNode()} }

// AsFloat wraps an Expr as a FloatExpr. See AsInt.
func AsFloat(e Expr) FloatExpr { return FloatExpr{e.rawNode()} }

// AsStr wraps an Expr as a StrExpr. See AsInt.
func AsStr(e Expr) StrExpr { return StrExpr{e.rawNode()} }

// AsBool wraps an Expr as a BoolExpr. See AsInt.
func AsBool(e Expr) BoolExpr { return BoolExpr{e.rawNode()} }

// AsBlob wraps an Expr as a BlobExpr. See AsInt.
func AsBlob(e Expr) BlobExpr { return BlobExpr{e.rawNode()} }

// --- Int / Float arithmetic -------------------------------------------------

func (e IntExpr) Add(other IntExpr) IntExpr  { return IntExpr{mustArith("+", e.n, other.n)} }
func (e IntExpr) Sub(other IntExpr) IntExpr  { return IntExpr{mustArith("-", e.n, other.n)} }
func (e IntExpr) Mul(other IntExpr) IntExpr  { return IntExpr{mustArith("*", e.n, other.n)} }
func (e IntExpr) Div(other IntExpr) IntExpr  { return IntExpr{mustArith("/", e.n, other.n)} }
func (e IntExpr) ToFloat() FloatExpr {
	n, err := newToFloat(e.n)
	return FloatExpr{errNode(n, err)}
}

func (e FloatExpr) Add(other FloatExpr) FloatExpr { return FloatExpr{mustArith("+", e.n, other.n)} }
func (e FloatExpr) Sub(other FloatExpr) FloatExpr { return FloatExpr{mustArith("-", e.n, other.n)} }
func (e FloatExpr) Mul(other FloatExpr) FloatExpr { return FloatExpr{mustArith("*", e.n, other.n)} }
func (e FloatExpr) Div(other FloatExpr) FloatExpr { return FloatExpr{mustArith("/", e.n, other.n)} }
func (e FloatExpr) ToInt() IntExpr {
	n, err := newToInt(e.n)
	return IntExpr{errNode(n, err)}
}

// mustArith builds an arithmetic node, deferring any type error to the node
// itself (see errNode) so the fluent chain never needs an (Expr, error)
// tuple return -- matching the teacher's "every builder returns a fresh
// node" contract. The error resurfaces when that node is lowered.
func mustArith(op string, left, right rawNode) rawNode {
	n, err := newArith(op, left, right)
	return errNode(n, err)
}

// --- Comparisons (Int, Float, Str share =,!=,<,<=,>,>=; Blob only =,!=) ----

func (e IntExpr) Eq(o IntExpr) BoolExpr  { return cmp("=", e.n, o.n) }
func (e IntExpr) Ne(o IntExpr) BoolExpr  { return cmp("!=", e.n, o.n) }
func (e IntExpr) Lt(o IntExpr) BoolExpr  { return cmp("<", e.n, o.n) }
func (e IntExpr) Lte(o IntExpr) BoolExpr { return cmp("<=", e.n, o.n) }
func (e IntExpr) Gt(o IntExpr) BoolExpr  { return cmp(">", e.n, o.n) }
func (e IntExpr) Gte(o IntExpr) BoolExpr { return cmp(">=", e.n, o.n) }
func (e IntExpr) Between(low, high IntExpr) BoolExpr {
	n, err := newBetween(e.n, low.n, high.n)
	return BoolExpr{errNode(n, err)}
}

func (e FloatExpr) Eq(o FloatExpr) BoolExpr  { return cmp("=", e.n, o.n) }
func (e FloatExpr) Ne(o FloatExpr) BoolExpr  { return cmp("!=", e.n, o.n) }
func (e FloatExpr) Lt(o FloatExpr) BoolExpr  { return cmp("<", e.n, o.n) }
func (e FloatExpr) Lte(o FloatExpr) BoolExpr { return cmp("<=", e.n, o.n) }
func (e FloatExpr) Gt(o FloatExpr) BoolExpr  { return cmp(">", e.n, o.n) }
func (e FloatExpr) Gte(o FloatExpr) BoolExpr { return cmp(">=", e.n, o.n) }
func (e FloatExpr) Between(low, high FloatExpr) BoolExpr {
	n, err := newBetween(e.n, low.n, high.n)
	return BoolExpr{errNode(n, err)}
}

func (e StrExpr) Eq(o StrExpr) BoolExpr  { return cmp("=", e.n, o.n) }
func (e StrExpr) Ne(o StrExpr) BoolExpr  { return cmp("!=", e.n, o.n) }
func (e StrExpr) Lt(o StrExpr) BoolExpr  { return cmp("<", e.n, o.n) }
func (e StrExpr) Lte(o StrExpr) BoolExpr { return cmp("<=", e.n, o.n) }
func (e StrExpr) Gt(o StrExpr) BoolExpr  { return cmp(">", e.n, o.n) }
func (e StrExpr) Gte(o StrExpr) BoolExpr { return cmp(">=", e.n, o.n) }
func (e StrExpr) Between(low, high StrExpr) BoolExpr {
	n, err := newBetween(e.n, low.n, high.n)
	return BoolExpr{errNode(n, err)}
}

func (e BlobExpr) Eq(o BlobExpr) BoolExpr { return cmp("=", e.n, o.n) }
func (e BlobExpr) Ne(o BlobExpr) BoolExpr { return cmp("!=", e.n, o.n) }

func (e BoolExpr) Eq(o BoolExpr) BoolExpr { return cmp("=", e.n, o.n) }
func (e BoolExpr) Ne(o BoolExpr) BoolExpr { return cmp("!=", e.n, o.n) }

func cmp(op string, left, right rawNode) BoolExpr {
	n, err := newCmp(op, left, right)
	return BoolExpr{errNode(n, err)}
}

// --- Logical operators -------------------------------------------------------

func (e BoolExpr) And(others ...BoolExpr) BoolExpr {
	operands := append([]rawNode{e.n}, unwrapBools(others)...)
	n, err := newLogic("AND", operands...)
	return BoolExpr{errNode(n, err)}
}

func (e BoolExpr) Or(others ...BoolExpr) BoolExpr {
	operands := append([]rawNode{e.n}, unwrapBools(others)...)
	n, err := newLogic("OR", operands...)
	return BoolExpr{errNode(n, err)}
}

func (e BoolExpr) Not() BoolExpr {
	n, err := newLogic("NOT", e.n)
	return BoolExpr{errNode(n, err)}
}

func unwrapBools(es []BoolExpr) []rawNode {
	out := make([]rawNode, len(es))
	for i, e := range es {
		out[i] = e.n
	}
	return out
}

// --- Deferred-error plumbing -------------------------------------------------

// errorNode wraps a build-time error so it can flow through the fluent
// chain as an ordinary rawNode and surface the moment the tree is lowered,
// rather than forcing every builder method to return (Expr, error).
type errorNode struct {
	err error
}

func (n *errorNode) resultType() ResultType            { return typeUnknown }
func (n *errorNode) lower(*lowerCtx) (*IRNode, error)   { return nil, n.err }
func (n *errorNode) describe() string                  { return "<error: " + n.err.Error() + ">" }

func errNode(n rawNode, err error) rawNode {
	if err != nil {
		return &errorNode{err: err}
	}
	return n
}

// firstError returns the first already-deferred build error among nodes,
// if any, so a chain built on top of a failed node re-surfaces the
// original failure instead of a confusing secondary one.
func firstError(nodes ...rawNode) error {
	for _, n := range nodes {
		if en, ok := n.(*errorNode); ok {
			return en.err
		}
	}
	return nil
}
