package lvalue

import (
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

func evalPath(st *state.ProgState) func(p4ir.Expr) value.Value {
	return func(e p4ir.Expr) value.Value {
		switch x := e.(type) {
		case *p4ir.PathExpression:
			return st.GetVar(x.Name)
		default:
			panic("evalPath: unsupported expression in test")
		}
	}
}

func newStructVar(ctx *z3.Context, fieldVal z3.BV) *value.Struct {
	return &value.Struct{
		Type:       p4ir.NoType,
		FieldOrder: []string{"f"},
		Fields:     map[string]value.Value{"f": &value.Bitvector{BV: fieldVal}},
		FieldTypes: map[string]p4ir.TypeRef{"f": p4ir.NoType},
	}
}

func TestGetMemberStruct_FlatMemberAccess(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	st := state.NewProgState(ctx, arena)
	st.DeclareVar("hdr", p4ir.NoType, newStructVar(ctx, ctx.FromInt(1, ctx.BVSort(8)).(z3.BV)))

	ms := GetMemberStruct(ctx, st, &p4ir.Member{Base: &p4ir.PathExpression{Name: "hdr"}, Name: "f"}, evalPath(st))

	if !ms.IsFlat || ms.HasStack {
		t.Errorf("got %+v; want a flat, non-stack member path", ms)
	}
	if ms.Root != "hdr" || ms.TargetMember.Field != "f" {
		t.Errorf("got root %q target %+v; want hdr.f", ms.Root, ms.TargetMember)
	}
}

func TestGetValue_ReadsFlatMember(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	st := state.NewProgState(ctx, arena)
	want := ctx.FromInt(42, ctx.BVSort(8)).(z3.BV)
	st.DeclareVar("hdr", p4ir.NoType, newStructVar(ctx, want))

	ms := GetMemberStruct(ctx, st, &p4ir.Member{Base: &p4ir.PathExpression{Name: "hdr"}, Name: "f"}, evalPath(st))
	got := GetValue(ctx, st, ms).(*value.Bitvector)

	solver := z3.NewSolver(ctx)
	solver.Assert(got.BV.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected GetValue to read back the field's own value")
	}
}

func TestSetVar_WriteThenReadRoundTrips(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	st := state.NewProgState(ctx, arena)
	st.DeclareVar("hdr", p4ir.NoType, newStructVar(ctx, ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)))

	lhs := &p4ir.Member{Base: &p4ir.PathExpression{Name: "hdr"}, Name: "f"}
	ms := GetMemberStruct(ctx, st, lhs, evalPath(st))
	rval := &value.Bitvector{BV: ctx.FromInt(7, ctx.BVSort(8)).(z3.BV)}
	SetVar(ctx, st, ms, rval)

	readMs := GetMemberStruct(ctx, st, lhs, evalPath(st))
	got := GetValue(ctx, st, readMs).(*value.Bitvector)

	solver := z3.NewSolver(ctx)
	solver.Assert(got.BV.Eq(rval.BV).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected the written value to read back unchanged")
	}
}

func TestSetVar_ConstantStackIndexWritesSingleMember(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	st := state.NewProgState(ctx, arena)

	mkHeader := func(v int64) *value.Header {
		return &value.Header{
			Struct: value.Struct{FieldOrder: []string{"f"}, Fields: map[string]value.Value{"f": &value.Bitvector{BV: ctx.FromInt(v, ctx.BVSort(8)).(z3.BV)}}, FieldTypes: map[string]p4ir.TypeRef{"f": p4ir.NoType}},
			Valid:  ctx.FromBool(true),
		}
	}
	stack := &value.HeaderStack{Members: []*value.Header{mkHeader(0), mkHeader(0)}, NextIndex: ctx.FromInt(0, ctx.BVSort(32)).(z3.BV)}
	st.DeclareVar("stk", p4ir.NoType, stack)

	lhs := &p4ir.ArrayIndex{Base: &p4ir.PathExpression{Name: "stk"}, Index: &p4ir.Constant{}}
	eval := func(e p4ir.Expr) value.Value {
		return &value.Bitvector{BV: ctx.FromInt(1, ctx.BVSort(32)).(z3.BV)}
	}
	ms := GetMemberStruct(ctx, st, lhs, eval)
	if !ms.HasStack {
		t.Fatalf("expected an array-indexed lvalue to report HasStack")
	}

	newHeader := mkHeader(9)
	SetVar(ctx, st, ms, newHeader)

	got := st.GetVar("stk").(*value.HeaderStack)
	if got.Members[1] != newHeader {
		t.Errorf("expected member index 1 to be replaced with the written header")
	}
	if got.Members[0] == newHeader {
		t.Errorf("expected member index 0 to be left untouched")
	}
}
