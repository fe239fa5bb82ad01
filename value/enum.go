package value

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
)

// Enum is one of a fixed set of named members, represented as a constant of
// a dedicated uninterpreted sort so distinct members compare unequal and an
// unresolved Enum can still be merged symbolically across branches.
type Enum struct {
	Type    p4ir.TypeRef
	Members []string
	Expr    z3.Uninterpreted
}

func (e *Enum) Copy() Value { return &Enum{Type: e.Type, Members: e.Members, Expr: e.Expr} }

func (e *Enum) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	oe, ok := other.(*Enum)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "Enum.Merge: incompatible operand %T", other)
	}
	e.Expr = cond.Ite(oe.Expr, e.Expr).(z3.Uninterpreted)
}

func (e *Enum) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	if _, ok := arena.Get(rt).(*p4ir.TypeEnum); !ok {
		p4err.Fatalf(p4err.KindUnsupported, "Enum.Cast: only identity casts between enum types are supported")
	}
	return &Enum{Type: rt, Members: e.Members, Expr: e.Expr}
}

func (e *Enum) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	return []LeafPath{{Path: prefix, Expr: e.Expr}}
}

// MemberConst returns the uninterpreted constant standing for a named
// member of this enum's type — used by switch/select matching and by the
// interpreter when evaluating a TypeNameExpression member access.
func MemberConst(ctx *z3.Context, typeName, member string) z3.Uninterpreted {
	return ctx.Const(typeName+"::"+member, ctx.UninterpretedSort(typeName)).(z3.Uninterpreted)
}

// SerEnum pairs an Enum's named-member discipline with an underlying
// bitvector representation: every member also has a concrete numeric value,
// so a SerEnum can be read/written as its bit-pattern as well as compared
// by name.
type SerEnum struct {
	Type    p4ir.TypeRef
	Members []string
	Expr    *Bitvector
}

func (s *SerEnum) Copy() Value {
	return &SerEnum{Type: s.Type, Members: s.Members, Expr: s.Expr.Copy().(*Bitvector)}
}

func (s *SerEnum) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	os, ok := other.(*SerEnum)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "SerEnum.Merge: incompatible operand %T", other)
	}
	s.Expr.Merge(ctx, cond, os.Expr)
}

func (s *SerEnum) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	switch t := arena.Get(rt).(type) {
	case *p4ir.TypeSerEnum:
		return &SerEnum{Type: rt, Members: t.Members, Expr: s.Expr.Cast(ctx, arena, t.MemberType).(*Bitvector)}
	case *p4ir.TypeBits:
		return s.Expr.Cast(ctx, arena, rt)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "SerEnum.Cast: unsupported target %T", t)
		panic("unreachable")
	}
}

func (s *SerEnum) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	return s.Expr.FlattenLeaves(ctx, prefix)
}

// ErrorValue is one of a fixed set of named error members (P4_16's `error`
// type), represented the same way as Enum: distinct uninterpreted constants.
type ErrorValue struct {
	Type    p4ir.TypeRef
	Members []string
	Expr    z3.Uninterpreted
}

func (e *ErrorValue) Copy() Value {
	return &ErrorValue{Type: e.Type, Members: e.Members, Expr: e.Expr}
}

func (e *ErrorValue) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	oe, ok := other.(*ErrorValue)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "ErrorValue.Merge: incompatible operand %T", other)
	}
	e.Expr = cond.Ite(oe.Expr, e.Expr).(z3.Uninterpreted)
}

func (e *ErrorValue) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	if _, ok := arena.Get(rt).(*p4ir.TypeError); !ok {
		p4err.Fatalf(p4err.KindUnsupported, "ErrorValue.Cast: only identity casts between error types are supported")
	}
	return &ErrorValue{Type: rt, Members: e.Members, Expr: e.Expr}
}

func (e *ErrorValue) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	return []LeafPath{{Path: prefix, Expr: e.Expr}}
}
