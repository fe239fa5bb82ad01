// Package generic binds a control or parser declaration's type parameters
// by inferring them from the constructor arguments supplied at
// instantiation (`MyPipe(x)` with the width inferred from x; explicit type
// arguments are not consulted), producing the substitution map package interp's
// ApplyControl/RunParser thread through every Param lookup inside that
// instance's body.
package generic

import (
	"fmt"

	"p4z3/p4ir"
	"p4z3/value"
)

// Subst maps a type-parameter name to the concrete TypeRef bound to it for
// one instantiation.
type Subst map[string]p4ir.TypeRef

// Bind instantiates decl (a *p4ir.P4Control or *p4ir.P4Parser) against args,
// the already-evaluated constructor-argument values supplied at the
// instantiation site. It unifies decl's declared type parameters by looking
// through each constructor parameter's p4ir.TypeName for one that names an
// unbound parameter and resolving it to the runtime type of the
// corresponding argument (value.TypeOf); a parameter no constructor
// argument ever mentions is reported as an error, same as a
// constructor-argument-count mismatch — both are malformed-program errors
// the caller should surface, not interpreter bugs.
func Bind(decl p4ir.Decl, args []value.Value, arena *p4ir.TypeArena) (*value.ControlInstance, error) {
	typeParams, ctorParams, err := instanceShape(decl)
	if err != nil {
		return nil, err
	}
	if len(args) != len(ctorParams) {
		return nil, fmt.Errorf("generic.Bind: got %d constructor arguments for %d parameters", len(args), len(ctorParams))
	}

	subst := Subst{}
	for i, p := range ctorParams {
		tn, ok := arena.Get(p.Type).(*p4ir.TypeName)
		if !ok || !contains(typeParams, tn.Name) {
			continue
		}
		if _, bound := subst[tn.Name]; !bound {
			subst[tn.Name] = value.TypeOf(arena, args[i])
		}
	}
	for _, name := range typeParams {
		if _, ok := subst[name]; !ok {
			return nil, fmt.Errorf("generic.Bind: type parameter %q is not mentioned by any constructor argument", name)
		}
	}

	ctorArgs := make(map[string]value.Value, len(ctorParams))
	for i, p := range ctorParams {
		ctorArgs[p.Name] = args[i]
	}
	return &value.ControlInstance{Decl: decl, CtorArgs: ctorArgs, TypeSubst: subst}, nil
}

func instanceShape(decl p4ir.Decl) ([]string, []p4ir.Param, error) {
	switch d := decl.(type) {
	case *p4ir.P4Control:
		return d.TypeParams, d.ConstructorParams, nil
	case *p4ir.P4Parser:
		return d.TypeParams, d.ConstructorParams, nil
	default:
		return nil, nil, fmt.Errorf("generic.Bind: %T is not a control or parser declaration", decl)
	}
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// Apply rewrites t through the substitution, following TypeName
// indirection: a bare TypeName{Name: p} where p is a bound parameter
// resolves to subst[p]; any other type passes through unchanged, since this
// module's AST only ever leaves type parameters unresolved as TypeName
// leaves, never nested inside a composite that itself needs rewriting (the
// arena already carries concrete field/member types by construction).
func Apply(arena *p4ir.TypeArena, subst Subst, t p4ir.TypeRef) p4ir.TypeRef {
	if len(subst) == 0 {
		return t
	}
	tn, ok := arena.Get(t).(*p4ir.TypeName)
	if !ok {
		return t
	}
	if bound, ok := subst[tn.Name]; ok {
		return bound
	}
	return t
}

// ApplyParams returns a copy of params with every parameter's Type run
// through Apply, used when copy_in needs the instantiation's concrete
// parameter types rather than the generic declaration's.
func ApplyParams(arena *p4ir.TypeArena, subst Subst, params []p4ir.Param) []p4ir.Param {
	if len(subst) == 0 {
		return params
	}
	out := make([]p4ir.Param, len(params))
	for i, p := range params {
		out[i] = p
		out[i].Type = Apply(arena, subst, p.Type)
	}
	return out
}
