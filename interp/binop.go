package interp

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/smtalg"
	"p4z3/state"
	"p4z3/value"
)

func evalBinary(ctx *z3.Context, st *state.ProgState, e *p4ir.Binary) value.Value {
	switch e.Op {
	case p4ir.OpLAnd:
		l := asBool(Eval(ctx, st, e.Left))
		r := asBool(Eval(ctx, st, e.Right))
		return value.Bool32(l.And(r).(z3.Bool))
	case p4ir.OpLOr:
		l := asBool(Eval(ctx, st, e.Left))
		r := asBool(Eval(ctx, st, e.Right))
		return value.Bool32(l.Or(r).(z3.Bool))
	case p4ir.OpConcat:
		l := evalToBV(ctx, st, e.Left)
		r := evalToBV(ctx, st, e.Right)
		return &value.Bitvector{BV: l.Concat(r)}
	}

	left := Eval(ctx, st, e.Left)
	right := Eval(ctx, st, e.Right)

	if e.Op == p4ir.OpAddSat || e.Op == p4ir.OpSubSat {
		lb, rb := asBitvector(left), asBitvector(right)
		a, b := smtalg.AlignPair(lb.BV, rb.BV)
		if e.Op == p4ir.OpAddSat {
			return &value.Bitvector{BV: smtalg.SatAdd(ctx, lb.Signed, a, b), Signed: lb.Signed}
		}
		return &value.Bitvector{BV: smtalg.SatSub(ctx, lb.Signed, a, b), Signed: lb.Signed}
	}

	switch l := left.(type) {
	case *value.InfInt:
		if r, ok := right.(*value.InfInt); ok {
			return infintBinOp(ctx, e.Op, l, r)
		}
		return bitvectorBinOp(ctx, e.Op, widenToBV(ctx, left, right), asBitvector(right))
	case *value.Bitvector:
		if _, ok := right.(*value.InfInt); ok {
			return bitvectorBinOp(ctx, e.Op, l, widenToBV(ctx, right, left))
		}
		return bitvectorBinOp(ctx, e.Op, l, asBitvector(right))
	default:
		p4err.Fatalf(p4err.KindUnsupported, "evalBinary: unsupported operand kind %T", left)
		panic("unreachable")
	}
}

// widenToBV narrows an InfInt operand (v) to the bitvector sort of its
// partner (partner) — the alignment rule binary operators apply whenever
// one side is a compile-time int and the other a sized bitvector.
func widenToBV(ctx *z3.Context, v, partner value.Value) *value.Bitvector {
	inf := v.(*value.InfInt)
	pb := asBitvector(partner)
	return &value.Bitvector{BV: smtalg.Align(ctx, inf.Expr, pb.BV.Sort()), Signed: pb.Signed}
}

func asBitvector(v value.Value) *value.Bitvector {
	bv, ok := v.(*value.Bitvector)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "asBitvector: value is not a bitvector")
	}
	return bv
}

func evalToBV(ctx *z3.Context, st *state.ProgState, expr p4ir.Expr) z3.BV {
	return asBitvector(Eval(ctx, st, expr)).BV
}

func infintBinOp(ctx *z3.Context, op p4ir.BinOp, l, r *value.InfInt) value.Value {
	switch op {
	case p4ir.OpAdd:
		return &value.InfInt{Expr: l.Expr.Add(r.Expr)}
	case p4ir.OpSub:
		return &value.InfInt{Expr: l.Expr.Sub(r.Expr)}
	case p4ir.OpMul:
		return &value.InfInt{Expr: l.Expr.Mul(r.Expr)}
	case p4ir.OpEq:
		return value.Bool32(l.Expr.Eq(r.Expr).(z3.Bool))
	case p4ir.OpNeq:
		return value.Bool32(l.Expr.NE(r.Expr).(z3.Bool))
	case p4ir.OpLt:
		return value.Bool32(l.Expr.LT(r.Expr).(z3.Bool))
	case p4ir.OpLe:
		return value.Bool32(l.Expr.LE(r.Expr).(z3.Bool))
	case p4ir.OpGt:
		return value.Bool32(l.Expr.GT(r.Expr).(z3.Bool))
	case p4ir.OpGe:
		return value.Bool32(l.Expr.GE(r.Expr).(z3.Bool))
	default:
		p4err.Fatalf(p4err.KindUnsupported, "infintBinOp: unsupported operator %q on InfInt", op)
		panic("unreachable")
	}
}

func bitvectorBinOp(ctx *z3.Context, op p4ir.BinOp, l, r *value.Bitvector) value.Value {
	a, b := smtalg.AlignPair(l.BV, r.BV)
	signed := l.Signed || r.Signed
	if op == p4ir.OpShl {
		return &value.Bitvector{BV: smtalg.Shl(ctx, l.BV, r.BV, false, 0), Signed: l.Signed}
	}
	if op == p4ir.OpShr {
		result := smtalg.BVBinOp(">>", signed, l.BV, alignRightForShift(ctx, l.BV, r.BV))
		return &value.Bitvector{BV: result.(z3.BV), Signed: l.Signed}
	}
	result := smtalg.BVBinOp(string(op), signed, a, b)
	switch rv := result.(type) {
	case z3.Bool:
		return value.Bool32(rv)
	case z3.BV:
		return &value.Bitvector{BV: rv, Signed: signed}
	default:
		p4err.Fatalf(p4err.KindInvariantViolation, "bitvectorBinOp: unexpected result kind %T", result)
		panic("unreachable")
	}
}

func alignRightForShift(ctx *z3.Context, left, right z3.BV) z3.BV {
	return smtalg.Align(ctx, right, left.Sort())
}

func evalUnary(ctx *z3.Context, st *state.ProgState, e *p4ir.Unary) value.Value {
	arg := Eval(ctx, st, e.Arg)
	switch e.Op {
	case p4ir.OpLNot:
		return value.Bool32(asBool(arg).Not().(z3.Bool))
	case p4ir.OpNeg:
		switch a := arg.(type) {
		case *value.InfInt:
			zero := ctx.FromInt(0, ctx.IntSort()).(z3.Int)
			return &value.InfInt{Expr: zero.Sub(a.Expr)}
		case *value.Bitvector:
			return &value.Bitvector{BV: a.BV.Neg(), Signed: a.Signed}
		}
	case p4ir.OpCmpl:
		bv := asBitvector(arg)
		return &value.Bitvector{BV: bv.BV.Not(), Signed: bv.Signed}
	}
	p4err.Fatalf(p4err.KindUnsupported, "evalUnary: unsupported operator %q", e.Op)
	panic("unreachable")
}
