// Package smtalg is the thin semantic layer over the external SMT algebra
// (github.com/aclements/go-z3/z3): bitvector alignment, saturating
// arithmetic, and slice assembly. Every function is pure: it takes whatever
// operands and an explicit *z3.Context and returns a new expression, never
// mutating shared state. No package-level z3 context exists anywhere in
// this module — symbolic.Interpret owns the one context for a run.
package smtalg

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
)

// Align coerces val, which is either a bitvector or an unbounded integer,
// to target's bitvector sort: an InfInt is first sent through int2bv, a
// shorter bitvector is zero-extended, a longer one is truncated to its low
// bits. Widths equal to target's width pass through unchanged.
func Align(ctx *z3.Context, val z3.Value, target z3.Sort) z3.BV {
	width := int(target.BVSize())
	switch v := val.(type) {
	case z3.Int:
		bv := v.ToBV(width)
		return ctx.Simplify(bv, nil).(z3.BV)
	case z3.BV:
		w := int(v.Sort().BVSize())
		switch {
		case w == width:
			return v
		case w < width:
			return v.ZeroExtend(width - w)
		default:
			return v.Extract(width-1, 0)
		}
	default:
		p4err.Fatalf(p4err.KindInvariantViolation, "Align: unsupported operand kind %T", val)
		panic("unreachable")
	}
}

// AlignPair aligns two bitvectors to the same, wider of the two widths,
// zero-extending the narrower one. Used by shift operators whose right
// operand may be narrower than the left.
func AlignPair(a, b z3.BV) (z3.BV, z3.BV) {
	wa, wb := int(a.Sort().BVSize()), int(b.Sort().BVSize())
	switch {
	case wa == wb:
		return a, b
	case wa < wb:
		return a.ZeroExtend(wb - wa), b
	default:
		return a, b.ZeroExtend(wa - wb)
	}
}

// ToInfInt round-trips a bitvector through the SMT integer sort, reading it
// as two's-complement when signed is set and as unsigned otherwise (InfInt
// has no sign of its own — the caller in package value passes the source
// Bitvector's signedness).
func ToInfInt(ctx *z3.Context, bv z3.BV, signed bool) z3.Int {
	if signed {
		return bv.SToInt()
	}
	return bv.UToInt()
}
