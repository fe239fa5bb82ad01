package value

import (
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4ir"
)

func TestInfInt_Merge_WidensBitvectorOperand(t *testing.T) {
	ctx := z3.NewContext(nil)

	self := &InfInt{Expr: ctx.FromInt(7, ctx.IntSort()).(z3.Int)}
	other := &Bitvector{BV: ctx.FromInt(3, ctx.BVSort(8)).(z3.BV), Signed: false}

	cond := ctx.BoolConst("cond")
	merged := self.Copy().(*InfInt)
	merged.Merge(ctx, cond, other)

	widened := other.BV.UToInt()
	want := cond.Ite(widened, self.Expr).(z3.Int)

	solver := z3.NewSolver(ctx)
	solver.Assert(merged.Expr.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected merging a Bitvector into an InfInt to widen it to ite(cond, widened, self), solver found a counterexample")
	}
}

func TestInfInt_CastToBits(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8, Signed: false})

	i := &InfInt{Expr: ctx.FromInt(42, ctx.IntSort()).(z3.Int)}
	cast := i.Cast(ctx, arena, bits8).(*Bitvector)

	want := ctx.FromInt(42, ctx.BVSort(8)).(z3.BV)
	solver := z3.NewSolver(ctx)
	solver.Assert(cast.BV.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected casting InfInt 42 to bit<8> to equal 42, solver found a counterexample")
	}
}

func TestInfInt_CastToBool(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	boolRef := arena.Add(&p4ir.TypeBool{})

	zero := &InfInt{Expr: ctx.FromInt(0, ctx.IntSort()).(z3.Int)}
	cast := zero.Cast(ctx, arena, boolRef).(*Bitvector)

	solver := z3.NewSolver(ctx)
	solver.Assert(cast.Bool)
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected casting InfInt 0 to bool to be false, solver found a counterexample")
	}
}
