// Package cmp holds the equivalence check shared by the comparator and the
// validator: given two programs' flattened leaf paths, decide whether every
// matched leaf is provably equal under every input, or exhibit a
// counterexample where it is not.
package cmp

import (
	"fmt"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/value"
)

// Result is the outcome of comparing two leaf-path sets.
type Result struct {
	Equivalent     bool
	Counterexample string
}

// Compare asserts the negation of "every matched leaf is equal" and checks
// satisfiability: UNSAT means the two sides agree on every leaf under every
// assignment to their free variables, SAT means the model is a
// counterexample where some leaf disagrees.
//
// before and after must list the same leaf paths in the same order (the
// callers both derive theirs from symbolic.Interpret run against programs
// sharing the same pipeline/parameter shape); a mismatch is reported as an
// error rather than silently compared positionally.
func Compare(ctx *z3.Context, before, after []value.LeafPath) (Result, error) {
	if len(before) != len(after) {
		return Result{}, &p4err.Error{
			Kind: p4err.KindInvariantViolation,
			Msg:  fmt.Sprintf("cmp.Compare: leaf count mismatch (%d vs %d)", len(before), len(after)),
		}
	}

	var diffs []z3.Bool
	for i := range before {
		if before[i].Path != after[i].Path {
			return Result{}, &p4err.Error{
				Kind: p4err.KindInvariantViolation,
				Msg:  fmt.Sprintf("cmp.Compare: leaf path mismatch at index %d (%q vs %q)", i, before[i].Path, after[i].Path),
			}
		}
		diffs = append(diffs, leafNeq(before[i].Expr, after[i].Expr))
	}

	if len(diffs) == 0 {
		return Result{Equivalent: true}, nil
	}

	disj := diffs[0]
	for _, d := range diffs[1:] {
		disj = disj.Or(d).(z3.Bool)
	}

	solver := z3.NewSolver(ctx)
	solver.Assert(disj)
	sat, err := solver.Check()
	if err != nil {
		return Result{}, &p4err.Error{Kind: p4err.KindSolverUnknown, Msg: err.Error()}
	}
	if !sat {
		return Result{Equivalent: true}, nil
	}
	return Result{Equivalent: false, Counterexample: fmt.Sprint(solver.Model())}, nil
}

// leafNeq builds a disequality test between two leaves of the same SMT
// sort. The leaf's dynamic type is whatever FlattenLeaves attached it as
// (z3.BV, z3.Bool, z3.Int, or z3.Uninterpreted), and the switch below
// has one case per sort.
func leafNeq(a, b z3.Value) z3.Bool {
	switch av := a.(type) {
	case z3.Bool:
		bv, ok := b.(z3.Bool)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "cmp.leafNeq: sort mismatch (bool vs %T)", b)
		}
		return av.Eq(bv).Not().(z3.Bool)
	case z3.BV:
		bv, ok := b.(z3.BV)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "cmp.leafNeq: sort mismatch (bitvector vs %T)", b)
		}
		return av.Eq(bv).Not().(z3.Bool)
	case z3.Int:
		bv, ok := b.(z3.Int)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "cmp.leafNeq: sort mismatch (int vs %T)", b)
		}
		return av.Eq(bv).Not().(z3.Bool)
	case z3.Uninterpreted:
		bv, ok := b.(z3.Uninterpreted)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "cmp.leafNeq: sort mismatch (uninterpreted vs %T)", b)
		}
		return av.Eq(bv).Not().(z3.Bool)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "cmp.leafNeq: unsupported leaf sort %T", a)
		panic("unreachable")
	}
}
