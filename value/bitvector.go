package value

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/smtalg"
)

// Bitvector holds either a fixed-width bitvector expression or a native
// boolean expression — P4's `bool` is not a bit<1>, so it rides its own SMT
// sort rather than a one-bit vector. IsBoolKind selects which of BV/Bool is
// live; the other field is left at its zero value.
type Bitvector struct {
	BV         z3.BV
	Bool       z3.Bool
	Signed     bool
	IsBoolKind bool
}

// Bool32 constructs a boolean-kind Bitvector.
func Bool32(b z3.Bool) *Bitvector { return &Bitvector{Bool: b, IsBoolKind: true} }

func (b *Bitvector) isBool() bool { return b.IsBoolKind }

// IsBool reports whether this Bitvector carries a native boolean expression
// rather than a fixed-width bitvector.
func (b *Bitvector) IsBool() bool { return b.isBool() }

func (b *Bitvector) Copy() Value {
	cp := *b
	return &cp
}

func (b *Bitvector) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	ob, ok := other.(*Bitvector)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "Bitvector.Merge: incompatible operand %T", other)
	}
	switch {
	case b.isBool() && ob.isBool():
		b.Bool = cond.Ite(ob.Bool, b.Bool).(z3.Bool)
	case !b.isBool() && !ob.isBool():
		other := ob.BV
		if int(other.BVSize()) != int(b.BV.BVSize()) {
			other = smtalg.Align(ctx, other, b.BV.Sort())
		}
		b.BV = cond.Ite(other, b.BV).(z3.BV)
	default:
		p4err.Fatalf(p4err.KindInvariantViolation, "Bitvector.Merge: bool/bitvector shape mismatch")
	}
}

func (b *Bitvector) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	switch t := arena.Get(rt).(type) {
	case *p4ir.TypeBool:
		if b.isBool() {
			return Bool32(b.Bool)
		}
		zero := ctx.FromInt(0, b.BV.Sort()).(z3.BV)
		return Bool32(b.BV.Eq(zero).Not().(z3.Bool))
	case *p4ir.TypeBits:
		if b.isBool() {
			one := ctx.FromInt(1, ctx.BVSort(t.Width)).(z3.BV)
			zero := ctx.FromInt(0, ctx.BVSort(t.Width)).(z3.BV)
			return &Bitvector{BV: b.Bool.Ite(one, zero).(z3.BV), Signed: t.Signed}
		}
		return &Bitvector{BV: smtalg.Align(ctx, b.BV, ctx.BVSort(t.Width)), Signed: t.Signed}
	case *p4ir.TypeVarbits:
		return &Bitvector{BV: smtalg.Align(ctx, b.BV, ctx.BVSort(t.MaxWidth)), Signed: false}
	case *p4ir.TypeInfInt:
		return &InfInt{Expr: smtalg.ToInfInt(ctx, b.BV, b.Signed)}
	case *p4ir.TypeSerEnum:
		aligned := smtalg.Align(ctx, b.BV, memberBVSort(ctx, arena, t.MemberType))
		return &SerEnum{Type: rt, Members: t.Members, Expr: &Bitvector{BV: aligned}}
	default:
		p4err.Fatalf(p4err.KindUnsupported, "Bitvector.Cast: unsupported target %T", t)
		panic("unreachable")
	}
}

func (b *Bitvector) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	if b.isBool() {
		return []LeafPath{{Path: prefix, Expr: b.Bool}}
	}
	return []LeafPath{{Path: prefix, Expr: b.BV}}
}

func memberBVSort(ctx *z3.Context, arena *p4ir.TypeArena, t p4ir.TypeRef) z3.Sort {
	bits, ok := arena.Get(arena.Resolve(t)).(*p4ir.TypeBits)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "memberBVSort: SerEnum member type is not bits")
	}
	return ctx.BVSort(bits.Width)
}
