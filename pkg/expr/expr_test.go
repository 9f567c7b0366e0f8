package expr

import "testing"

func mustLower(t *testing.T, e Expr) *IRNode {
	t.Helper()
	ir, err := Lower(e)
	if err != nil {
		t.Fatalf("unexpected lowering error: %v", err)
	}
	return ir
}

// Scenario 1 from spec §8: ageBin.gt(17).and(nameBin.eq("Tim")) lowers to
// logical-AND(gt(intBin("age"), 17), eq(strBin("name"), "Tim")); extracts no
// filter.
func TestScenario1LogicalAndNoFilter(t *testing.T) {
	e := IntBin("age").Gt(Int(17)).And(StrBin("name").Eq(Str("Tim")))
	ir, filter, err := Compile(e, IndexSetFunc(func(string) bool { return true }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ir.Kind != IRLogic || ir.LogicOp != "AND" {
		t.Fatalf("expected top-level AND, got %+v", ir)
	}
	if len(ir.Operands) != 2 {
		t.Fatalf("expected 2 operands, got %d", len(ir.Operands))
	}
	if ir.Operands[0].Op != ">" || ir.Operands[0].Left.BinName != "age" {
		t.Fatalf("unexpected first operand: %+v", ir.Operands[0])
	}
	if ir.Operands[1].Op != "=" || ir.Operands[1].Left.BinName != "name" {
		t.Fatalf("unexpected second operand: %+v", ir.Operands[1])
	}
	if filter != nil {
		t.Fatalf("expected no filter, got %+v", filter)
	}
}

// Scenario 2: ageBin.gte(21) on indexed bin age extracts Range(21, +inf)
// and the same IR predicate.
func TestScenario2RangeFilterOnIndexedBin(t *testing.T) {
	e := IntBin("age").Gte(Int(21))
	idx := IndexSetFunc(func(name string) bool { return name == "age" })
	ir, filter, err := Compile(e, idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ir.Kind != IRCmp || ir.Op != ">=" {
		t.Fatalf("unexpected ir: %+v", ir)
	}
	if filter == nil || filter.Kind != FilterRange || filter.BinName != "age" {
		t.Fatalf("unexpected filter: %+v", filter)
	}
	if filter.Low != int64(21) || filter.High != nil {
		t.Fatalf("unexpected filter bounds: %+v", filter)
	}
}

func TestFilterNotExtractedWhenNotIndexed(t *testing.T) {
	e := IntBin("age").Gte(Int(21))
	idx := IndexSetFunc(func(string) bool { return false })
	_, filter, err := Compile(e, idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter != nil {
		t.Fatalf("expected no filter, got %+v", filter)
	}
}

func TestFilterNotExtractedForConjunction(t *testing.T) {
	e := IntBin("age").Gte(Int(21)).And(IntBin("age").Lt(Int(40)))
	idx := IndexSetFunc(func(string) bool { return true })
	_, filter, err := Compile(e, idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter != nil {
		t.Fatalf("expected no filter for a conjunction, got %+v", filter)
	}
}

// Left-to-right chaining: a.Add(3).Mul(4) lowers as (a+3)*4, never
// algebraic precedence.
func TestLeftToRightChaining(t *testing.T) {
	e := IntBin("a").Add(Int(3)).Mul(Int(4))
	ir := mustLower(t, e)
	if ir.Op != "*" {
		t.Fatalf("expected outer op *, got %s", ir.Op)
	}
	if ir.Left.Op != "+" {
		t.Fatalf("expected inner op +, got %s", ir.Left.Op)
	}
	if ir.Right.Value != int64(4) {
		t.Fatalf("expected right operand 4, got %v", ir.Right.Value)
	}
}

func TestTypeErrorMixedArithmeticOperands(t *testing.T) {
	e := IntBin("a").Add(AsInt(Float(1.5)))
	_, err := Lower(e)
	if err == nil {
		t.Fatalf("expected a type error")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected *TypeError, got %T: %v", err, err)
	}
}

func TestBlobOnlySupportsEquality(t *testing.T) {
	a := BlobBin("payload")
	b := Blob([]byte("x"))
	_ = a.Eq(b)
	_ = a.Ne(b)
	// No Lt/Gt methods exist on BlobExpr at all -- this is enforced at
	// compile time by the Go type system, not at runtime.
}

func TestIfElseCommonType(t *testing.T) {
	e := AsInt(If(BoolBin("flag"), IntBin("a")).Else(IntBin("b")))
	ir := mustLower(t, e)
	if ir.Kind != IRIf {
		t.Fatalf("expected If node, got %+v", ir)
	}
	if ir.ResultType != TypeInt {
		t.Fatalf("expected Int result type, got %v", ir.ResultType)
	}
	if len(ir.Branches) != 1 || ir.Else == nil {
		t.Fatalf("unexpected branches/else: %+v", ir)
	}
}

func TestIfElifElse(t *testing.T) {
	e := AsStr(If(IntBin("n").Eq(Int(1)), Str("one")).
		Elif(IntBin("n").Eq(Int(2)), Str("two")).
		Else(Str("many")))
	ir := mustLower(t, e)
	if len(ir.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(ir.Branches))
	}
}

func TestIfMissingElseIsIllFormedAtLowering(t *testing.T) {
	chain := If(BoolBin("flag"), IntBin("a")) // no .Else(...)
	e := AsInt(chain)
	_, err := Lower(e)
	if err == nil {
		t.Fatalf("expected ill-formed conditional error")
	}
	if _, ok := err.(*IllFormedConditionalError); !ok {
		t.Fatalf("expected *IllFormedConditionalError, got %T: %v", err, err)
	}
}

func TestIfBranchTypeMismatch(t *testing.T) {
	e := AsInt(If(BoolBin("flag"), IntBin("a")).Else(AsInt(Str("oops"))))
	_, err := Lower(e)
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected *TypeError, got %T: %v", err, err)
	}
}

func TestLetInScoping(t *testing.T) {
	e := AsInt(Define("x").As(Int(10)).
		And("y").As(VarInt("x").Add(Int(5))).
		Then(VarInt("y").Mul(Int(2))))
	ir := mustLower(t, e)
	if ir.Kind != IRLetIn {
		t.Fatalf("expected LetIn, got %+v", ir)
	}
	if len(ir.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(ir.Bindings))
	}
	if ir.Body.Op != "*" {
		t.Fatalf("unexpected body: %+v", ir.Body)
	}
}

func TestVarRefUndefinedIsScopeError(t *testing.T) {
	e := AsInt(Define("x").As(Int(1)).Then(VarInt("nope")))
	_, err := Lower(e)
	if _, ok := err.(*ScopeError); !ok {
		t.Fatalf("expected *ScopeError, got %T: %v", err, err)
	}
}

func TestVarShadowing(t *testing.T) {
	inner := Define("x").As(Int(2)).Then(VarInt("x"))
	e := AsInt(Define("x").As(Int(1)).Then(inner))
	ir := mustLower(t, e)
	if ir.Body.Kind != IRLetIn {
		t.Fatalf("expected nested LetIn body, got %+v", ir.Body)
	}
	if ir.Body.Body.Value != nil {
		t.Fatalf("expected a var ref body, got %+v", ir.Body.Body)
	}
}

func TestToFloatToInt(t *testing.T) {
	e := IntBin("a").ToFloat().Add(Float(0.5)).ToInt()
	ir := mustLower(t, e)
	if ir.Kind != IRConvert || ir.ConvertKind != "toInt" {
		t.Fatalf("unexpected ir: %+v", ir)
	}
}

func TestDeterministicLowering(t *testing.T) {
	build := func() Expr { return IntBin("age").Gt(Int(17)).And(StrBin("name").Eq(Str("Tim"))) }
	ir1 := mustLower(t, build())
	ir2 := mustLower(t, build())
	if Describe(build()) != Describe(build()) {
		t.Fatalf("expected deterministic Describe output")
	}
	if ir1.Operands[0].Op != ir2.Operands[0].Op {
		t.Fatalf("expected deterministic lowering")
	}
}
