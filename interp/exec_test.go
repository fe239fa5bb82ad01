package interp

import (
	"math/big"
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

func newTestState(ctx *z3.Context) (*state.ProgState, p4ir.TypeRef) {
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8, Signed: false})
	return state.NewProgState(ctx, arena), bits8
}

func assertBVEq(t *testing.T, ctx *z3.Context, got, want z3.BV, msg string) {
	t.Helper()
	solver := z3.NewSolver(ctx)
	solver.Assert(got.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("%s: solver found a counterexample", msg)
	}
}

func TestExecAssign_UpdatesVariable(t *testing.T) {
	ctx := z3.NewContext(nil)
	st, bits8 := newTestState(ctx)
	st.DeclareVar("x", bits8, &value.Bitvector{BV: ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)})

	Exec(ctx, st, &p4ir.AssignmentStatement{
		LHS: &p4ir.PathExpression{Name: "x"},
		RHS: &p4ir.Constant{Type: bits8, Value: bigInt(5)},
	})

	got := st.GetVar("x").(*value.Bitvector)
	assertBVEq(t, ctx, got.BV, ctx.FromInt(5, ctx.BVSort(8)).(z3.BV), "expected x to equal 5 after assignment")
}

func TestExecBlock_ScopesLocalsAwayAfterReturn(t *testing.T) {
	ctx := z3.NewContext(nil)
	st, bits8 := newTestState(ctx)

	flow := ExecBlock(ctx, st, []p4ir.Stmt{
		&p4ir.DeclarationStatement{Decl: &p4ir.DeclVariable{Name: "tmp", Type: bits8, Init: &p4ir.Constant{Type: bits8, Value: bigInt(1)}}},
		&p4ir.ReturnStatement{Result: &p4ir.Constant{Type: bits8, Value: bigInt(9)}},
	})

	if flow.Kind != FlowReturn {
		t.Fatalf("got flow kind %v; want FlowReturn", flow.Kind)
	}
	got := flow.Value.(*value.Bitvector)
	assertBVEq(t, ctx, got.BV, ctx.FromInt(9, ctx.BVSort(8)).(z3.BV), "expected returned value to equal 9")

	defer func() {
		if recover() == nil {
			t.Errorf("expected tmp to have gone out of scope once the block returned")
		}
	}()
	st.GetVar("tmp")
}

func TestExecIf_MergesBothArmsUnderCondition(t *testing.T) {
	ctx := z3.NewContext(nil)
	st, bits8 := newTestState(ctx)
	st.DeclareVar("x", bits8, &value.Bitvector{BV: ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)})
	st.DeclareVar("cond", p4ir.NoType, value.Bool32(ctx.BoolConst("cond")))

	Exec(ctx, st, &p4ir.IfStatement{
		Cond: &p4ir.PathExpression{Name: "cond"},
		Then: &p4ir.AssignmentStatement{LHS: &p4ir.PathExpression{Name: "x"}, RHS: &p4ir.Constant{Type: bits8, Value: bigInt(1)}},
		Else: &p4ir.AssignmentStatement{LHS: &p4ir.PathExpression{Name: "x"}, RHS: &p4ir.Constant{Type: bits8, Value: bigInt(2)}},
	})

	got := st.GetVar("x").(*value.Bitvector)
	cond := ctx.BoolConst("cond")
	want := cond.Ite(ctx.FromInt(1, ctx.BVSort(8)), ctx.FromInt(2, ctx.BVSort(8))).(z3.BV)
	assertBVEq(t, ctx, got.BV, want, "expected x to equal ite(cond, 1, 2)")
}

func TestExecIf_ReturnInThenArmPropagatesFlow(t *testing.T) {
	ctx := z3.NewContext(nil)
	st, bits8 := newTestState(ctx)
	st.DeclareVar("cond", p4ir.NoType, value.Bool32(ctx.FromBool(true)))

	flow := Exec(ctx, st, &p4ir.IfStatement{
		Cond: &p4ir.PathExpression{Name: "cond"},
		Then: &p4ir.ReturnStatement{Result: &p4ir.Constant{Type: bits8, Value: bigInt(7)}},
	})

	if flow.Kind != FlowReturn {
		t.Fatalf("got flow kind %v; want FlowReturn", flow.Kind)
	}
}

func TestExecSwitch_FallthroughRunsSubsequentCase(t *testing.T) {
	ctx := z3.NewContext(nil)
	st, bits8 := newTestState(ctx)
	st.DeclareVar("x", bits8, &value.Bitvector{BV: ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)})

	boolRef := st.Arena.Add(&p4ir.TypeBool{})
	_ = boolRef
	errType := st.Arena.Add(&p4ir.TypeError{Name: "error", Members: []string{"NoError", "PacketTooShort"}})
	st.DeclareVar("sel", errType, &value.ErrorValue{Type: errType, Members: []string{"NoError", "PacketTooShort"}, Expr: value.MemberConst(ctx, "error", "PacketTooShort")})

	flow := Exec(ctx, st, &p4ir.SwitchStatement{
		Selector: &p4ir.PathExpression{Name: "sel"},
		Cases: []p4ir.SwitchCase{
			{
				Labels: []p4ir.Expr{&p4ir.Member{Base: &p4ir.TypeNameExpression{Type: errType}, Name: "PacketTooShort"}},
				Body:   nil,
			},
			{
				Labels: nil,
				Body:   &p4ir.AssignmentStatement{LHS: &p4ir.PathExpression{Name: "x"}, RHS: &p4ir.Constant{Type: bits8, Value: bigInt(3)}},
			},
		},
	})

	if flow.Kind != FlowNormal {
		t.Fatalf("got flow kind %v; want FlowNormal", flow.Kind)
	}
	got := st.GetVar("x").(*value.Bitvector)
	assertBVEq(t, ctx, got.BV, ctx.FromInt(3, ctx.BVSort(8)).(z3.BV), "expected the matched case to fall through into the default arm")
}

func bigInt(n int64) *big.Int { return big.NewInt(n) }
