package value

import (
	"sort"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
)

// Extern is an opaque handle to an extern instance: the interpreter does
// not model extern internals, so this carries only enough identity for
// method-call dispatch to find the extern's declared type.
type Extern struct {
	Type  p4ir.TypeRef
	State map[string]Value
}

func (e *Extern) Copy() Value {
	st := make(map[string]Value, len(e.State))
	for k, v := range e.State {
		st[k] = v.Copy()
	}
	return &Extern{Type: e.Type, State: st}
}

func (e *Extern) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	oe, ok := other.(*Extern)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "Extern.Merge: incompatible operand %T", other)
	}
	for k, v := range e.State {
		ov, ok := oe.State[k]
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "Extern.Merge: missing state field %q", k)
		}
		v.Merge(ctx, cond, ov)
	}
}

func (e *Extern) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	p4err.Fatalf(p4err.KindUnsupported, "Extern values cannot be cast")
	panic("unreachable")
}

func (e *Extern) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	var out []LeafPath
	for _, k := range sortedKeys(e.State) {
		out = append(out, e.State[k].FlattenLeaves(ctx, joinPath(prefix, k))...)
	}
	return out
}

// sortedKeys gives map-backed variants a deterministic leaf order (by name).
func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ControlInstance is the bound result of instantiating a control, parser,
// or package: the declaration being instantiated, the constructor
// arguments captured at instantiation, and the type substitution resolved
// by package generic (see generic.Bind).
type ControlInstance struct {
	Decl        p4ir.Decl
	CtorArgs    map[string]Value
	TypeSubst   map[string]p4ir.TypeRef
}

func (c *ControlInstance) Copy() Value {
	args := make(map[string]Value, len(c.CtorArgs))
	for k, v := range c.CtorArgs {
		args[k] = v.Copy()
	}
	subst := make(map[string]p4ir.TypeRef, len(c.TypeSubst))
	for k, v := range c.TypeSubst {
		subst[k] = v
	}
	return &ControlInstance{Decl: c.Decl, CtorArgs: args, TypeSubst: subst}
}

func (c *ControlInstance) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	oc, ok := other.(*ControlInstance)
	if !ok || oc.Decl != c.Decl {
		p4err.Fatalf(p4err.KindInvariantViolation, "ControlInstance.Merge: incompatible operand")
	}
	for k, v := range c.CtorArgs {
		if ov, ok := oc.CtorArgs[k]; ok {
			v.Merge(ctx, cond, ov)
		}
	}
}

func (c *ControlInstance) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	p4err.Fatalf(p4err.KindUnsupported, "ControlInstance values cannot be cast")
	panic("unreachable")
}

func (c *ControlInstance) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	var out []LeafPath
	for _, k := range sortedKeys(c.CtorArgs) {
		out = append(out, c.CtorArgs[k].FlattenLeaves(ctx, joinPath(prefix, k))...)
	}
	return out
}

// TypeOf returns the type of v as a TypeRef in arena, synthesizing an entry
// for the shapes that don't carry one of their own (Bitvector/InfInt are
// untyped bit<W>/int in this universe). Used by generic.Bind to unify a
// control or parser's constructor type parameters against the runtime type
// of the arguments actually supplied at instantiation, the way P4_16 infers
// `T` in `Pipe<T>(bit<8> x)` from the argument passed to `x`.
func TypeOf(arena *p4ir.TypeArena, v Value) p4ir.TypeRef {
	switch t := v.(type) {
	case *Bitvector:
		if t.IsBool() {
			return arena.Add(&p4ir.TypeBool{})
		}
		return arena.Add(&p4ir.TypeBits{Width: int(t.BV.BVSize()), Signed: t.Signed})
	case *InfInt:
		return arena.Add(&p4ir.TypeInfInt{})
	case *Struct:
		return t.Type
	case *Header:
		return t.Type
	case *HeaderUnion:
		return t.Type
	case *Enum:
		return t.Type
	case *SerEnum:
		return t.Type
	case *ErrorValue:
		return t.Type
	case *Extern:
		return t.Type
	default:
		return p4ir.NoType
	}
}

// Declaration wraps a static AST declaration (an action, function, method,
// or type) as a first-class Value so it can live in a scope slot and be
// looked up by name like any variable — actions passed as table action
// references, for instance.
type Declaration struct {
	Decl p4ir.Decl
}

func (d *Declaration) Copy() Value { return &Declaration{Decl: d.Decl} }

func (d *Declaration) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	od, ok := other.(*Declaration)
	if !ok || od.Decl != d.Decl {
		p4err.Fatalf(p4err.KindInvariantViolation, "Declaration.Merge: branches bind different declarations")
	}
}

func (d *Declaration) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	p4err.Fatalf(p4err.KindUnsupported, "Declaration values cannot be cast")
	panic("unreachable")
}

func (d *Declaration) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath { return nil }

// Table wraps a static table declaration as a first-class Value.
type Table struct {
	Decl *p4ir.P4Table
}

func (t *Table) Copy() Value { return &Table{Decl: t.Decl} }

func (t *Table) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	ot, ok := other.(*Table)
	if !ok || ot.Decl != t.Decl {
		p4err.Fatalf(p4err.KindInvariantViolation, "Table.Merge: branches bind different tables")
	}
}

func (t *Table) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	p4err.Fatalf(p4err.KindUnsupported, "Table values cannot be cast")
	panic("unreachable")
}

func (t *Table) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath { return nil }

// Void is the result of evaluating a statement or a void-returning call.
type Void struct{}

func (Void) Copy() Value                                                            { return Void{} }
func (Void) Merge(ctx *z3.Context, cond z3.Bool, other Value)                       {}
func (Void) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value { return Void{} }
func (Void) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath                { return nil }
