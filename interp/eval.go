// Package interp is the core symbolic evaluator: Eval turns an expression
// into a value.Value, Exec runs a statement against a state.ProgState, and
// the Apply* family drives controls, parsers, and table lookups. Every
// function here is pure with respect to its inputs except for the explicit
// *state.ProgState it mutates — no package-level state exists anywhere.
package interp

import (
	"math/big"

	"github.com/aclements/go-z3/z3"

	"p4z3/lvalue"
	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/smtalg"
	"p4z3/state"
	"p4z3/value"
)

// MaxParserVisits bounds how many times RunParser will re-enter the same
// state name before failing with a parser-loop error — P4_16 programs can build unbounded parser
// loops (e.g. `ip_opt` skip loops), and a purely symbolic interpreter has
// no length to bound the loop by without this cutoff.
const MaxParserVisits = 16

// Eval evaluates expr against st and returns its value. Composite reads
// (Member, ArrayIndex, Slice) go through package lvalue so the same chain
// resolution logic backs both reads and writes.
func Eval(ctx *z3.Context, st *state.ProgState, expr p4ir.Expr) value.Value {
	switch e := expr.(type) {
	case *p4ir.PathExpression:
		return st.GetVar(e.Name)
	case *p4ir.Constant:
		// A literal typed bit<w>/int<w> evaluates to a bitvector of that
		// width; an untyped `int` literal stays an InfInt.
		lit := &value.InfInt{Expr: ctx.FromBigInt(e.Value, ctx.IntSort()).(z3.Int)}
		if e.Type != p4ir.NoType {
			if _, sized := st.Arena.Get(st.Arena.Resolve(e.Type)).(*p4ir.TypeBits); sized {
				return lit.Cast(ctx, st.Arena, e.Type)
			}
		}
		return lit
	case *p4ir.BoolLiteral:
		return value.Bool32(ctx.FromBool(e.Value))
	case *p4ir.Member:
		return evalMember(ctx, st, e)
	case *p4ir.ArrayIndex:
		ms := lvalue.GetMemberStruct(ctx, st, e, func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
		return lvalue.GetValue(ctx, st, ms)
	case *p4ir.Slice:
		ms := lvalue.GetMemberStruct(ctx, st, e, func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
		return lvalue.GetValue(ctx, st, ms)
	case *p4ir.Binary:
		return evalBinary(ctx, st, e)
	case *p4ir.Unary:
		return evalUnary(ctx, st, e)
	case *p4ir.Mux:
		cond := asBool(Eval(ctx, st, e.Cond))
		then := Eval(ctx, st, e.Then)
		els := Eval(ctx, st, e.Else)
		result := then.Copy()
		result.Merge(ctx, cond.Not().(z3.Bool), els)
		return result
	case *p4ir.Cast:
		v := Eval(ctx, st, e.Arg)
		return v.Cast(ctx, st.Arena, e.Type)
	case *p4ir.StructExpression:
		return evalStructExpr(ctx, st, e)
	case *p4ir.ListExpression:
		return evalListExpr(ctx, st, e)
	case *p4ir.TypeNameExpression:
		return &value.Declaration{Decl: &p4ir.TypeDecl{Name: typeNameOf(st, e.Type), Type: e.Type}}
	case *p4ir.MethodCallExpression:
		return EvalCall(ctx, st, e)
	case *p4ir.NamedExpr:
		return Eval(ctx, st, e.Value)
	case *p4ir.SelectExpression:
		p4err.Fatalf(p4err.KindInvariantViolation, "Eval: select expressions only evaluate inside RunParser")
		panic("unreachable")
	default:
		p4err.Fatalf(p4err.KindUnsupported, "Eval: unsupported expression %T", expr)
		panic("unreachable")
	}
}

func typeNameOf(st *state.ProgState, t p4ir.TypeRef) string {
	switch ty := st.Arena.Get(t).(type) {
	case *p4ir.TypeEnum:
		return ty.Name
	case *p4ir.TypeError:
		return ty.Name
	case *p4ir.TypeExtern:
		return ty.Name
	case *p4ir.TypeName:
		return ty.Name
	default:
		return ""
	}
}

func evalMember(ctx *z3.Context, st *state.ProgState, e *p4ir.Member) value.Value {
	if base, ok := e.Base.(*p4ir.TypeNameExpression); ok {
		return evalEnumMember(ctx, st, base, e.Name)
	}
	ms := lvalue.GetMemberStruct(ctx, st, e, func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
	return lvalue.GetValue(ctx, st, ms)
}

func evalEnumMember(ctx *z3.Context, st *state.ProgState, tne *p4ir.TypeNameExpression, member string) value.Value {
	rt := st.Arena.Resolve(tne.Type)
	switch t := st.Arena.Get(rt).(type) {
	case *p4ir.TypeEnum:
		return &value.Enum{Type: rt, Members: t.Members, Expr: value.MemberConst(ctx, t.Name, member)}
	case *p4ir.TypeError:
		return &value.ErrorValue{Type: rt, Members: t.Members, Expr: value.MemberConst(ctx, t.Name, member)}
	case *p4ir.TypeSerEnum:
		return evalSerEnumMember(ctx, st, rt, t, member)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "evalMember: %q is not an enum/error type member access", member)
		panic("unreachable")
	}
}

func evalSerEnumMember(ctx *z3.Context, st *state.ProgState, rt p4ir.TypeRef, t *p4ir.TypeSerEnum, member string) value.Value {
	for i, m := range t.Members {
		if m == member {
			bits := st.Arena.Get(st.Arena.Resolve(t.MemberType)).(*p4ir.TypeBits)
			lit := ctx.FromInt(t.Values[i], ctx.BVSort(bits.Width)).(z3.BV)
			return &value.SerEnum{Type: rt, Members: t.Members, Expr: &value.Bitvector{BV: lit, Signed: bits.Signed}}
		}
	}
	p4err.Fatalf(p4err.KindLookupFailure, "evalSerEnumMember: %q has no member %q", t.Name, member)
	panic("unreachable")
}

func evalStructExpr(ctx *z3.Context, st *state.ProgState, e *p4ir.StructExpression) value.Value {
	rt := st.Arena.Resolve(e.Type)
	order := make([]string, 0, len(e.Fields))
	fields := make(map[string]value.Value, len(e.Fields))
	types := make(map[string]p4ir.TypeRef, len(e.Fields))
	fieldTypesOf := fieldTypeLookup(st, rt)
	for _, nf := range e.Fields {
		order = append(order, nf.Name)
		fields[nf.Name] = Eval(ctx, st, nf.Value)
		types[nf.Name] = fieldTypesOf(nf.Name)
	}
	base := value.Struct{Type: rt, FieldOrder: order, Fields: fields, FieldTypes: types}
	switch st.Arena.Get(rt).(type) {
	case *p4ir.TypeHeader:
		return &value.Header{Struct: base, Valid: ctx.FromBool(true)}
	case *p4ir.TypeHeaderUnion:
		return &value.HeaderUnion{Struct: base}
	default:
		return &base
	}
}

func fieldTypeLookup(st *state.ProgState, rt p4ir.TypeRef) func(string) p4ir.TypeRef {
	var fields []p4ir.FieldType
	switch t := st.Arena.Get(rt).(type) {
	case *p4ir.TypeStruct:
		fields = t.Fields
	case *p4ir.TypeHeader:
		fields = t.Fields
	case *p4ir.TypeHeaderUnion:
		fields = t.Fields
	}
	return func(name string) p4ir.TypeRef {
		for _, f := range fields {
			if f.Name == name {
				return f.Type
			}
		}
		return p4ir.NoType
	}
}

func evalListExpr(ctx *z3.Context, st *state.ProgState, e *p4ir.ListExpression) value.Value {
	order := make([]string, len(e.Elems))
	fields := make(map[string]value.Value, len(e.Elems))
	types := make(map[string]p4ir.TypeRef, len(e.Elems))
	for i, el := range e.Elems {
		name := listFieldName(i)
		order[i] = name
		fields[name] = Eval(ctx, st, el)
		types[name] = p4ir.NoType
	}
	return &value.Struct{Type: p4ir.NoType, FieldOrder: order, Fields: fields, FieldTypes: types}
}

func listFieldName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "_" + string([]byte{letters[i%26]}) + big.NewInt(int64(i)).String()
}

func asBool(v value.Value) z3.Bool {
	bv, ok := v.(*value.Bitvector)
	if !ok || !bv.IsBool() {
		p4err.Fatalf(p4err.KindInvariantViolation, "asBool: value is not a boolean-shaped bitvector")
	}
	return bv.Bool
}
