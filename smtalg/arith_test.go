package smtalg

import (
	"testing"

	"github.com/aclements/go-z3/z3"
)

func TestSatAdd_UnsignedOverflowSaturates(t *testing.T) {
	ctx := z3.NewContext(nil)
	sort := ctx.BVSort(4)
	a := ctx.FromInt(15, sort).(z3.BV)
	b := ctx.FromInt(5, sort).(z3.BV)

	sum := SatAdd(ctx, false, a, b)
	want := ctx.FromInt(15, sort).(z3.BV)

	solver := z3.NewSolver(ctx)
	solver.Assert(sum.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected SatAdd(15, 5) over bit<4> to saturate to 15, solver found a counterexample")
	}
}

func TestSatAdd_NoOverflowPassesThrough(t *testing.T) {
	ctx := z3.NewContext(nil)
	sort := ctx.BVSort(8)
	a := ctx.FromInt(10, sort).(z3.BV)
	b := ctx.FromInt(20, sort).(z3.BV)

	sum := SatAdd(ctx, false, a, b)
	want := ctx.FromInt(30, sort).(z3.BV)

	solver := z3.NewSolver(ctx)
	solver.Assert(sum.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected SatAdd(10, 20) over bit<8> to equal 30, solver found a counterexample")
	}
}

func TestSatSub_UnsignedUnderflowClampsToZero(t *testing.T) {
	ctx := z3.NewContext(nil)
	sort := ctx.BVSort(4)
	a := ctx.FromInt(2, sort).(z3.BV)
	b := ctx.FromInt(5, sort).(z3.BV)

	diff := SatSub(ctx, false, a, b)
	want := ctx.FromInt(0, sort).(z3.BV)

	solver := z3.NewSolver(ctx)
	solver.Assert(diff.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected SatSub(2, 5) over bit<4> to clamp to 0, solver found a counterexample")
	}
}

func TestAlign_ZeroExtendsNarrowerBitvector(t *testing.T) {
	ctx := z3.NewContext(nil)
	narrow := ctx.FromInt(5, ctx.BVSort(4)).(z3.BV)
	wide := Align(ctx, narrow, ctx.BVSort(8))

	if int(wide.BVSize()) != 8 {
		t.Fatalf("got width %d; want 8", wide.BVSize())
	}

	want := ctx.FromInt(5, ctx.BVSort(8)).(z3.BV)
	solver := z3.NewSolver(ctx)
	solver.Assert(wide.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected zero-extending bit<4> 5 to bit<8> to equal 5, solver found a counterexample")
	}
}

func TestAlign_TruncatesWiderBitvector(t *testing.T) {
	ctx := z3.NewContext(nil)
	// 0x1F5 truncated to the low 4 bits is 0x5.
	wide := ctx.FromInt(0x1F5, ctx.BVSort(12)).(z3.BV)
	narrow := Align(ctx, wide, ctx.BVSort(4))

	if int(narrow.BVSize()) != 4 {
		t.Fatalf("got width %d; want 4", narrow.BVSize())
	}

	want := ctx.FromInt(0x5, ctx.BVSort(4)).(z3.BV)
	solver := z3.NewSolver(ctx)
	solver.Assert(narrow.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected truncating 0x1F5 to 4 bits to equal 0x5, solver found a counterexample")
	}
}

func TestShl_ShiftPastWidthYieldsZero(t *testing.T) {
	ctx := z3.NewContext(nil)
	left := ctx.FromInt(0xFF, ctx.BVSort(8)).(z3.BV)

	result := Shl(ctx, left, nil, true, 16)
	want := ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)

	solver := z3.NewSolver(ctx)
	solver.Assert(result.Eq(want).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected shifting bit<8> by 16 to zero it out, solver found a counterexample")
	}
}
