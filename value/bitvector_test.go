package value

import (
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4ir"
)

func TestBitvector_CastToBool_NonzeroIsTrue(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	boolRef := arena.Add(&p4ir.TypeBool{})

	bv := &Bitvector{BV: ctx.FromInt(5, ctx.BVSort(8)).(z3.BV), Signed: false}
	cast := bv.Cast(ctx, arena, boolRef).(*Bitvector)
	if !cast.IsBool() {
		t.Fatalf("expected a bool-kind Bitvector")
	}

	solver := z3.NewSolver(ctx)
	solver.Assert(cast.Bool.Not())
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected casting nonzero bit<8> to bool to be true, solver found a counterexample")
	}
}

func TestBitvector_CastToBool_ZeroIsFalse(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	boolRef := arena.Add(&p4ir.TypeBool{})

	bv := &Bitvector{BV: ctx.FromInt(0, ctx.BVSort(8)).(z3.BV), Signed: false}
	cast := bv.Cast(ctx, arena, boolRef).(*Bitvector)

	solver := z3.NewSolver(ctx)
	solver.Assert(cast.Bool)
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected casting zero bit<8> to bool to be false, solver found a counterexample")
	}
}

func TestBitvector_CastBits_Widens(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	bits16 := arena.Add(&p4ir.TypeBits{Width: 16, Signed: false})

	bv := &Bitvector{BV: ctx.FromInt(5, ctx.BVSort(8)).(z3.BV), Signed: false}
	cast := bv.Cast(ctx, arena, bits16).(*Bitvector)

	if int(cast.BV.BVSize()) != 16 {
		t.Fatalf("got width %d; want 16", cast.BV.BVSize())
	}

	want := ctx.FromInt(5, ctx.BVSort(16)).(z3.BV)
	solver := z3.NewSolver(ctx)
	solver.Assert(cast.BV.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected widening bit<8> 5 to bit<16> to equal 5, solver found a counterexample")
	}
}

func TestBitvector_Merge_PicksTakenBranch(t *testing.T) {
	ctx := z3.NewContext(nil)

	self := &Bitvector{BV: ctx.FromInt(1, ctx.BVSort(8)).(z3.BV)}
	taken := &Bitvector{BV: ctx.FromInt(2, ctx.BVSort(8)).(z3.BV)}

	cond := ctx.BoolConst("cond")
	merged := self.Copy().(*Bitvector)
	merged.Merge(ctx, cond, taken)

	want := cond.Ite(taken.BV, self.BV).(z3.BV)
	solver := z3.NewSolver(ctx)
	solver.Assert(merged.BV.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected merged value to equal ite(cond, other, self), solver found a counterexample")
	}
}
