package expr

// IRKind tags the variant of an IRNode.
type IRKind int

const (
	IRBinRef IRKind = iota
	IRLiteral
	IRArith
	IRCmp
	IRLogic
	IRConvert
	IRIf
	IRLetIn
	IRVarRef
)

func (k IRKind) String() string {
	switch k {
	case IRBinRef:
		return "BinRef"
	case IRLiteral:
		return "Literal"
	case IRArith:
		return "Arith"
	case IRCmp:
		return "Cmp"
	case IRLogic:
		return "Logic"
	case IRConvert:
		return "Convert"
	case IRIf:
		return "If"
	case IRLetIn:
		return "LetIn"
	case IRVarRef:
		return "VarRef"
	default:
		return "Unknown"
	}
}

// IRBranch is a single (condition, result) pair in an If node.
type IRBranch struct {
	Cond *IRNode
	Then *IRNode
}

// IRBinding is a single name->expression pair in a LetIn node.
type IRBinding struct {
	Name  string
	Value *IRNode
}

// IRNode is the tagged wire-level representation produced by lowering.
// Exactly one group of fields is meaningful per Kind; this mirrors the
// teacher's AST-per-clause-type layout collapsed into a single tagged
// struct, which is the idiomatic shape for a small closed node set.
type IRNode struct {
	Kind       IRKind
	ResultType ResultType

	// IRBinRef
	BinName string

	// IRLiteral
	Value interface{}

	// IRArith / IRCmp
	Op          string // "+","-","*","/","=","!=","<","<=",">",">=","between"
	Left, Right *IRNode
	Low, High   *IRNode // only set when Op == "between"

	// IRLogic
	LogicOp  string // "AND","OR","NOT"
	Operands []*IRNode

	// IRConvert
	ConvertKind string // "toFloat","toInt"
	Inner       *IRNode

	// IRIf
	Branches []IRBranch
	Else     *IRNode

	// IRLetIn
	Bindings []IRBinding
	Body     *IRNode

	// IRVarRef
	VarName string
}

// Compile lowers a typed expression to its tagged IR, and opportunistically
// extracts a secondary-index Filter when idx is non-nil. Lowering is
// deterministic: the same expression always lowers to an equal IR tree.
func Compile(e Expr, idx IndexSet) (*IRNode, *Filter, error) {
	ir, err := Lower(e)
	if err != nil {
		return nil, nil, err
	}
	var filter *Filter
	if idx != nil {
		filter = ExtractFilter(ir, idx)
	}
	return ir, filter, nil
}

// Lower lowers a typed expression to its tagged IR without filter
// extraction.
func Lower(e Expr) (*IRNode, error) {
	return e.rawNode().lower(newLowerCtx())
}
