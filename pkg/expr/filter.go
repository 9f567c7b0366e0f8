package expr

// FilterKind tags the shape of an extracted secondary-index predicate.
type FilterKind int

const (
	FilterEqual FilterKind = iota
	FilterRange
	FilterGeoWithin
)

// Filter is an indexed-lookup predicate opportunistically extracted from an
// expression tree. At most one Filter is ever produced per compiled
// expression.
type Filter struct {
	Kind    FilterKind
	BinName string

	// FilterEqual
	Value interface{}

	// FilterRange
	Low, High interface{}

	// FilterGeoWithin
	Region interface{}
}

// IndexSet answers whether a bin name has a secondary index the extractor
// may target. The core does not know the cluster's index catalog; callers
// (the execution layer) supply it.
type IndexSet interface {
	IsIndexed(binName string) bool
}

// IndexSetFunc adapts a plain function to IndexSet.
type IndexSetFunc func(binName string) bool

func (f IndexSetFunc) IsIndexed(binName string) bool { return f(binName) }

// ExtractFilter inspects the top-level node of a compiled IR tree and
// produces a Filter only when the whole expression is a single predicate of
// the shape `binRef op literal` (or `binRef between literal and literal`)
// on an indexed bin. The extractor is sound (it never emits a filter that
// would change the expression's result semantics) but intentionally
// incomplete: conjunctions, nested predicates, and predicates where the bin
// reference is on the right are never extracted, even when a human reader
// could see the opportunity.
func ExtractFilter(ir *IRNode, idx IndexSet) *Filter {
	if ir == nil || ir.Kind != IRCmp {
		return nil
	}
	if ir.Left == nil || ir.Left.Kind != IRBinRef {
		return nil
	}
	if !idx.IsIndexed(ir.Left.BinName) {
		return nil
	}

	if ir.Op == "between" {
		if ir.Low == nil || ir.High == nil || ir.Low.Kind != IRLiteral || ir.High.Kind != IRLiteral {
			return nil
		}
		return &Filter{Kind: FilterRange, BinName: ir.Left.BinName, Low: ir.Low.Value, High: ir.High.Value}
	}

	if ir.Right == nil || ir.Right.Kind != IRLiteral {
		return nil
	}

	switch ir.Op {
	case "=":
		return &Filter{Kind: FilterEqual, BinName: ir.Left.BinName, Value: ir.Right.Value}
	case ">=":
		return &Filter{Kind: FilterRange, BinName: ir.Left.BinName, Low: ir.Right.Value, High: nil}
	case ">":
		return &Filter{Kind: FilterRange, BinName: ir.Left.BinName, Low: ir.Right.Value, High: nil}
	case "<=":
		return &Filter{Kind: FilterRange, BinName: ir.Left.BinName, Low: nil, High: ir.Right.Value}
	case "<":
		return &Filter{Kind: FilterRange, BinName: ir.Left.BinName, Low: nil, High: ir.Right.Value}
	default:
		return nil
	}
}
