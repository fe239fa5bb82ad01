package value

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/smtalg"
)

// InfInt is an SMT integer-sort expression standing in for P4's unbounded
// compile-time `int` constants. It carries no width or sign bit of its own
// until cast to a concrete bitvector type.
type InfInt struct {
	Expr z3.Int
}

func (i *InfInt) Copy() Value {
	return &InfInt{Expr: i.Expr}
}

// Merge accepts a same-tag InfInt other, or a Bitvector other that first
// gets cast up to InfInt. The *target* sort always wins: merging a
// Bitvector into an InfInt widens the bitvector rather than narrowing the
// InfInt.
func (i *InfInt) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	switch o := other.(type) {
	case *InfInt:
		i.Expr = cond.Ite(o.Expr, i.Expr).(z3.Int)
	case *Bitvector:
		if o.isBool() {
			p4err.Fatalf(p4err.KindInvariantViolation, "InfInt.Merge: cannot widen a bool into an InfInt")
		}
		i.Expr = cond.Ite(smtalg.ToInfInt(ctx, o.BV, o.Signed), i.Expr).(z3.Int)
	default:
		p4err.Fatalf(p4err.KindInvariantViolation, "InfInt.Merge: incompatible operand %T", other)
	}
}

func (i *InfInt) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	switch t := arena.Get(rt).(type) {
	case *p4ir.TypeInfInt:
		return &InfInt{Expr: i.Expr}
	case *p4ir.TypeBits:
		return &Bitvector{BV: i.Expr.ToBV(t.Width).Simplify().(z3.BV), Signed: t.Signed}
	case *p4ir.TypeBool:
		zero := ctx.FromInt(0, ctx.IntSort()).(z3.Int)
		return Bool32(i.Expr.Eq(zero).Not().(z3.Bool))
	default:
		p4err.Fatalf(p4err.KindUnsupported, "InfInt.Cast: unsupported target %T", t)
		panic("unreachable")
	}
}

func (i *InfInt) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	return []LeafPath{{Path: prefix, Expr: i.Expr}}
}
