package smtalg

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
)

// Signed reports whether a bitvector operand should use signed dispatch
// (int<w>) rather than unsigned (bit<w>). The interpreter passes this in
// explicitly — the algebra layer never infers signedness from the
// expression itself.
type Signed bool

// BVBinOp dispatches a P4_16 binary arithmetic/relational operator over two
// already width-aligned bitvectors (see Align), honoring the signed flag
// for the operators whose meaning depends on it.
func BVBinOp(op string, signed bool, a, b z3.BV) z3.Value {
	switch op {
	case "*":
		return a.Mul(b)
	case "/":
		if signed {
			return a.SDiv(b)
		}
		return a.UDiv(b)
	case "%":
		if signed {
			return a.SRem(b)
		}
		return a.URem(b)
	case "+":
		return a.Add(b)
	case "-":
		return a.Sub(b)
	case "<":
		if signed {
			return a.SLT(b)
		}
		return a.ULT(b)
	case "<=":
		if signed {
			return a.SLE(b)
		}
		return a.ULE(b)
	case ">":
		if signed {
			return a.SGT(b)
		}
		return a.UGT(b)
	case ">=":
		if signed {
			return a.SGE(b)
		}
		return a.UGE(b)
	case ">>":
		if signed {
			return a.SRsh(b)
		}
		return a.URsh(b)
	case "==":
		return a.Eq(b)
	case "!=":
		return a.NE(b)
	case "&":
		return a.And(b)
	case "|":
		return a.Or(b)
	case "^":
		return a.Xor(b)
	case "<<":
		return a.Lsh(b)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "BVBinOp: unsupported operator %q", op)
		panic("unreachable")
	}
}

// SatAdd is `a |+| b`: saturates to the bitvector's maximum value on
// overflow/underflow instead of wrapping.
func SatAdd(ctx *z3.Context, signed bool, a, b z3.BV) z3.BV {
	width := int(a.Sort().BVSize())
	noOverflow := a.AddNoOverflow(b, signed)
	noUnderflow := a.AddNoUnderflow(b)
	sum := a.Add(b)
	max := saturatedMax(ctx, width, signed)
	return noOverflow.And(noUnderflow).Ite(sum, max).(z3.BV)
}

// SatSub is `a |-| b`: clamps to zero (unsigned) or the signed minimum
// instead of wrapping on underflow.
func SatSub(ctx *z3.Context, signed bool, a, b z3.BV) z3.BV {
	width := int(a.Sort().BVSize())
	noOverflow := a.SubNoOverflow(b)
	noUnderflow := a.SubNoUnderflow(b, signed)
	diff := a.Sub(b)
	min := saturatedMin(ctx, width, signed)
	return noOverflow.And(noUnderflow).Ite(diff, min).(z3.BV)
}

func saturatedMax(ctx *z3.Context, width int, signed bool) z3.BV {
	if signed {
		// 0111...1
		allOnes := ctx.FromInt(-1, ctx.BVSort(width)).(z3.BV)
		return allOnes.URsh(ctx.FromInt(1, ctx.BVSort(width)).(z3.BV))
	}
	return ctx.FromInt(-1, ctx.BVSort(width)).(z3.BV)
}

func saturatedMin(ctx *z3.Context, width int, signed bool) z3.BV {
	if signed {
		one := ctx.FromInt(1, ctx.BVSort(width)).(z3.BV)
		allOnes := ctx.FromInt(-1, ctx.BVSort(width)).(z3.BV)
		half := allOnes.URsh(one)
		return half.Not()
	}
	return ctx.FromInt(0, ctx.BVSort(width)).(z3.BV)
}

// Shl shifts left. If the right operand originates from an InfInt amount
// greater than the left operand's width, the result is the zero bitvector
// of that width (the shift would empty every bit). Otherwise both operands
// are aligned to the widest of the two before the shift, then truncated
// back to the left operand's original sort.
func Shl(ctx *z3.Context, left z3.BV, rightAmount z3.Value, rightIsInfInt bool, rightLiteral int64) z3.BV {
	width := int(left.Sort().BVSize())
	if rightIsInfInt && rightLiteral >= int64(width) {
		return ctx.FromInt(0, ctx.BVSort(width)).(z3.BV)
	}
	right, ok := rightAmount.(z3.BV)
	if !ok {
		right = Align(ctx, rightAmount, left.Sort())
	}
	a, b := AlignPair(left, right)
	shifted := a.Lsh(b)
	if int(shifted.Sort().BVSize()) != width {
		return shifted.Extract(width-1, 0)
	}
	return shifted
}
