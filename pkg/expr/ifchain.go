package expr

import "fmt"

type condBranch struct {
	cond rawNode
	then rawNode
}

// ifChain builds an if/elif*/else expression. It implements rawNode
// directly (type-erased) so that an incomplete chain -- one where Else was
// never called -- can still be passed to Lower/Compile and fail there with
// IllFormedConditionalError, matching the documented contract that a
// missing else is a lowering-time failure rather than a compile error the
// Go type system can catch.
type ifChain struct {
	branches []condBranch
	elseNode rawNode // nil until Else() is called
}

// If starts a new if/elif/else chain.
func If(cond BoolExpr, then Expr) *ifChain {
	return &ifChain{branches: []condBranch{{cond: cond.rawNode(), then: then.rawNode()}}}
}

// Elif appends another condition/result branch.
func (c *ifChain) Elif(cond BoolExpr, then Expr) *ifChain {
	branches := make([]condBranch, len(c.branches), len(c.branches)+1)
	copy(branches, c.branches)
	branches = append(branches, condBranch{cond: cond.rawNode(), then: then.rawNode()})
	return &ifChain{branches: branches, elseNode: c.elseNode}
}

// Else terminates the chain. The returned value is both an *ifChain and an
// Expr; wrap it with AsInt/AsFloat/AsStr/AsBool/AsBlob to recover a typed
// handle once you know the branches' common result type.
func (c *ifChain) Else(elseExpr Expr) *ifChain {
	branches := make([]condBranch, len(c.branches))
	copy(branches, c.branches)
	return &ifChain{branches: branches, elseNode: elseExpr.rawNode()}
}

func (c *ifChain) rawNode() rawNode { return c }

// commonType returns the unified result type across all branches and the
// else expression, or an error if they disagree. It is evaluated eagerly
// whenever resultType()/lower() run, which is effectively "build time" for
// any chain that already has an else, and "lowering time" for one that
// doesn't (since resultType() can't be answered without it).
func (c *ifChain) commonType() (ResultType, error) {
	if c.elseNode == nil {
		return 0, &IllFormedConditionalError{}
	}
	rt := c.elseNode.resultType()
	for _, b := range c.branches {
		if b.then.resultType() != rt {
			return 0, &TypeError{Op: "if", Want: rt, Got: b.then.resultType(), Message: "if/elif/else branches must share a result type"}
		}
		if b.cond.resultType() != TypeBool {
			return 0, newTypeError("if", TypeBool, b.cond.resultType())
		}
	}
	return rt, nil
}

func (c *ifChain) resultType() ResultType {
	rt, err := c.commonType()
	if err != nil {
		return typeUnknown
	}
	return rt
}

func (c *ifChain) lower(ctx *lowerCtx) (*IRNode, error) {
	rt, err := c.commonType()
	if err != nil {
		return nil, err
	}
	branches := make([]IRBranch, 0, len(c.branches))
	for _, b := range c.branches {
		cond, err := b.cond.lower(ctx)
		if err != nil {
			return nil, err
		}
		then, err := b.then.lower(ctx)
		if err != nil {
			return nil, err
		}
		branches = append(branches, IRBranch{Cond: cond, Then: then})
	}
	elseIR, err := c.elseNode.lower(ctx)
	if err != nil {
		return nil, err
	}
	return &IRNode{Kind: IRIf, ResultType: rt, Branches: branches, Else: elseIR}, nil
}

func (c *ifChain) describe() string {
	s := ""
	for i, b := range c.branches {
		kw := "if"
		if i > 0 {
			kw = "elif"
		}
		s += fmt.Sprintf("%s %s then %s ", kw, b.cond.describe(), b.then.describe())
	}
	if c.elseNode != nil {
		s += "else " + c.elseNode.describe()
	} else {
		s += "<missing else>"
	}
	return s
}
