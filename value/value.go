// Package value implements the tagged value universe of the interpreter:
// bitvectors, unbounded integers, headers/structs, header stacks, enums,
// errors, declaration values, extern handles, and void. Every variant
// satisfies the same three-operation contract — Copy, Merge, Cast — behind
// one discriminant-free interface.
package value

import (
	"fmt"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
)

// LeafPath is one flattened scalar leaf of a composite value: a dotted
// field path and the SMT expression it resolves to.
type LeafPath struct {
	Path string
	Expr z3.Value
}

// Value is the tagged-union contract every variant implements.
type Value interface {
	// Copy produces an independent deep clone; SMT expression leaves are
	// shared by reference (they are immutable terms in the shared context),
	// everything else is owned.
	Copy() Value
	// Merge replaces self's scalar leaves, in place, with
	// ite(cond, other's leaf, self's leaf) — composite merges recurse field
	// by field in declared order. self and other must share tag and field
	// layout; any other relationship is a fatal invariant violation, except
	// for the InfInt/Bitvector convertible-type exception.
	Merge(ctx *z3.Context, cond z3.Bool, other Value)
	// Cast returns a new value of the requested type.
	Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value
	// FlattenLeaves appends prefix to every field name on the way down and
	// returns the scalar leaves in declared AST order, deterministically.
	// ctx is needed only by Header, which havocs a fresh "what if this read
	// were invalid" leaf per field; every other variant ignores it.
	FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Havoc builds a fresh, unconstrained value of the resolved type t, the way
// the interpreter allocates `out` parameters and bare `Type x;` declarations.
// name seeds every SMT constant created transitively so two havocs of the
// same type never alias.
func Havoc(ctx *z3.Context, arena *p4ir.TypeArena, t p4ir.TypeRef, name string) Value {
	rt := arena.Resolve(t)
	switch ty := arena.Get(rt).(type) {
	case *p4ir.TypeBool:
		return Bool32(ctx.BoolConst(name))
	case *p4ir.TypeBits:
		return &Bitvector{BV: ctx.BVConst(name, ty.Width), Signed: ty.Signed}
	case *p4ir.TypeVarbits:
		return &Bitvector{BV: ctx.BVConst(name, ty.MaxWidth), Signed: false}
	case *p4ir.TypeInfInt:
		return &InfInt{Expr: ctx.IntConst(name)}
	case *p4ir.TypeStruct:
		return havocComposite(ctx, arena, rt, ty.Fields, name, TagStruct)
	case *p4ir.TypeHeader:
		s := havocComposite(ctx, arena, rt, ty.Fields, name, TagHeader).(*Header)
		s.Valid = ctx.BoolConst(name + ".$valid")
		return s
	case *p4ir.TypeHeaderUnion:
		s := havocComposite(ctx, arena, rt, ty.Fields, name, TagHeaderUnion)
		return s
	case *p4ir.TypeStack:
		members := make([]*Header, ty.Size)
		for i := 0; i < ty.Size; i++ {
			members[i] = Havoc(ctx, arena, ty.Elem, fmt.Sprintf("%s[%d]", name, i)).(*Header)
		}
		return &HeaderStack{
			ElemType:  ty.Elem,
			Members:   members,
			NextIndex: ctx.BVConst(name+".$next", 32),
		}
	case *p4ir.TypeEnum:
		return &Enum{Type: rt, Members: ty.Members, Expr: ctx.Const(name, ctx.UninterpretedSort(ty.Name)).(z3.Uninterpreted)}
	case *p4ir.TypeSerEnum:
		return &SerEnum{Type: rt, Members: ty.Members, Expr: Havoc(ctx, arena, ty.MemberType, name).(*Bitvector)}
	case *p4ir.TypeError:
		return &ErrorValue{Type: rt, Members: ty.Members, Expr: ctx.Const(name, ctx.UninterpretedSort(ty.Name)).(z3.Uninterpreted)}
	case *p4ir.TypeExtern:
		return &Extern{Type: rt}
	case *p4ir.TypeVoid:
		return &Void{}
	default:
		p4err.Fatalf(p4err.KindUnsupported, "Havoc: unsupported type %T", ty)
		panic("unreachable")
	}
}

func havocComposite(ctx *z3.Context, arena *p4ir.TypeArena, rt p4ir.TypeRef, fields []p4ir.FieldType, name string, tag Tag) Value {
	order := make([]string, 0, len(fields))
	vals := make(map[string]Value, len(fields))
	types := make(map[string]p4ir.TypeRef, len(fields))
	for _, f := range fields {
		order = append(order, f.Name)
		types[f.Name] = f.Type
		vals[f.Name] = Havoc(ctx, arena, f.Type, joinPath(name, f.Name))
	}
	base := Struct{Type: rt, FieldOrder: order, Fields: vals, FieldTypes: types}
	switch tag {
	case TagHeader:
		return &Header{Struct: base}
	case TagHeaderUnion:
		return &HeaderUnion{Struct: base}
	default:
		return &base
	}
}

// Tag discriminates the Value universe for code that needs to branch on it
// explicitly without a type switch; havocComposite uses it to pick which
// composite variant to build. Merge checks shapes by type assertion instead.
type Tag int

const (
	TagBitvector Tag = iota
	TagInfInt
	TagStruct
	TagHeader
	TagHeaderUnion
	TagHeaderStack
	TagEnum
	TagSerEnum
	TagError
	TagExtern
	TagControlInstance
	TagDeclaration
	TagTable
	TagVoid
)
