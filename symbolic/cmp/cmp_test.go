package cmp

import (
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/value"
)

func TestCompare_IdenticalExpressionsAreEquivalent(t *testing.T) {
	ctx := z3.NewContext(nil)
	x := ctx.BVConst("x", 8)

	before := []value.LeafPath{{Path: "hdr.f", Expr: x}}
	after := []value.LeafPath{{Path: "hdr.f", Expr: x}}

	res, err := Compare(ctx, before, after)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !res.Equivalent {
		t.Errorf("expected identical expressions to be equivalent")
	}
}

func TestCompare_ConstantMismatchIsNotEquivalent(t *testing.T) {
	ctx := z3.NewContext(nil)
	a := ctx.FromInt(1, ctx.BVSort(8)).(z3.BV)
	b := ctx.FromInt(2, ctx.BVSort(8)).(z3.BV)

	before := []value.LeafPath{{Path: "hdr.f", Expr: a}}
	after := []value.LeafPath{{Path: "hdr.f", Expr: b}}

	res, err := Compare(ctx, before, after)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.Equivalent {
		t.Errorf("expected constants 1 and 2 to be reported as not equivalent")
	}
	if res.Counterexample == "" {
		t.Errorf("expected a counterexample model when not equivalent")
	}
}

func TestCompare_PathMismatchIsAnError(t *testing.T) {
	ctx := z3.NewContext(nil)
	x := ctx.BVConst("x", 8)

	before := []value.LeafPath{{Path: "hdr.f", Expr: x}}
	after := []value.LeafPath{{Path: "hdr.g", Expr: x}}

	if _, err := Compare(ctx, before, after); err == nil {
		t.Errorf("expected a mismatched leaf path to report an error")
	}
}

func TestCompare_CountMismatchIsAnError(t *testing.T) {
	ctx := z3.NewContext(nil)
	x := ctx.BVConst("x", 8)

	before := []value.LeafPath{{Path: "hdr.f", Expr: x}}
	after := []value.LeafPath{}

	if _, err := Compare(ctx, before, after); err == nil {
		t.Errorf("expected a leaf-count mismatch to report an error")
	}
}

func TestCompare_FreeVariableIsProvablyEqualToItself(t *testing.T) {
	ctx := z3.NewContext(nil)
	x := ctx.BVConst("x", 8)
	y := ctx.BVConst("x", 8) // same name resolves to the same constant in ctx

	before := []value.LeafPath{{Path: "hdr.f", Expr: x}}
	after := []value.LeafPath{{Path: "hdr.f", Expr: y}}

	res, err := Compare(ctx, before, after)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !res.Equivalent {
		t.Errorf("expected two identically-named constants to be equivalent")
	}
}
