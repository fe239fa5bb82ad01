// Package state implements the interpreter's scoped environment: a stack of
// name->Value bindings searched top-down, a parallel type arena shared by
// every scope, and the fork/merge and copy-in/copy-out machinery symbolic
// execution needs around branches and calls.
package state

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/value"
)

// Scope is one level of the environment stack: a flat name->Value map plus
// the declaration order it was populated in, so enumeration (needed when a
// scope itself gets flattened into leaves, e.g. for a package's toplevel
// instances) is deterministic.
type Scope struct {
	order []string
	vars  map[string]value.Value
	types map[string]p4ir.TypeRef
}

func newScope() *Scope {
	return &Scope{vars: map[string]value.Value{}, types: map[string]p4ir.TypeRef{}}
}

func (s *Scope) copy() *Scope {
	cp := newScope()
	cp.order = append(cp.order, s.order...)
	for k, v := range s.vars {
		cp.vars[k] = v.Copy()
	}
	for k, t := range s.types {
		cp.types[k] = t
	}
	return cp
}

// ProgState is the full interpreter state for one symbolic execution path:
// the scope stack (innermost last), the shared type arena, and the path
// condition accumulated so far.
type ProgState struct {
	Arena     *p4ir.TypeArena
	scopes    []*Scope
	PathCond  z3.Bool
	Statics   map[string]p4ir.Decl
	Overloads map[string][]p4ir.Decl
}

// NewProgState starts a fresh state with one empty scope and a true path
// condition.
func NewProgState(ctx *z3.Context, arena *p4ir.TypeArena) *ProgState {
	return &ProgState{
		Arena:     arena,
		scopes:    []*Scope{newScope()},
		PathCond:  ctx.FromBool(true),
		Statics:   map[string]p4ir.Decl{},
		Overloads: map[string][]p4ir.Decl{},
	}
}

// PushScope opens a new innermost scope (entering a block, a call, or a
// control/parser/action body).
func (s *ProgState) PushScope() {
	s.scopes = append(s.scopes, newScope())
}

// PopScope closes the innermost scope, discarding everything declared in it.
func (s *ProgState) PopScope() {
	if len(s.scopes) == 1 {
		p4err.Fatalf(p4err.KindInvariantViolation, "PopScope: cannot pop the root scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// DeclareVar binds name to v in the innermost scope. Redeclaring a name
// already bound in the same scope is a fatal invariant violation; shadowing
// a name from an outer scope is allowed.
func (s *ProgState) DeclareVar(name string, t p4ir.TypeRef, v value.Value) {
	top := s.scopes[len(s.scopes)-1]
	if _, exists := top.vars[name]; exists {
		p4err.Fatalf(p4err.KindInvariantViolation, "DeclareVar: %q already declared in this scope", name)
	}
	top.order = append(top.order, name)
	top.vars[name] = v
	top.types[name] = t
}

// GetVar searches scopes top-of-stack first and returns the bound value.
func (s *ProgState) GetVar(name string) value.Value {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].vars[name]; ok {
			return v
		}
	}
	p4err.Fatalf(p4err.KindLookupFailure, "GetVar: %q is not declared", name)
	panic("unreachable")
}

// GetVarType mirrors GetVar for the variable's declared type.
func (s *ProgState) GetVarType(name string) p4ir.TypeRef {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if t, ok := s.scopes[i].types[name]; ok {
			return t
		}
	}
	p4err.Fatalf(p4err.KindLookupFailure, "GetVarType: %q is not declared", name)
	panic("unreachable")
}

// UpdateVar replaces the binding for name in whichever scope currently owns
// it (top-of-stack first), used by plain (non-lvalue-resolved) assignment.
func (s *ProgState) UpdateVar(name string, v value.Value) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i].vars[name]; ok {
			s.scopes[i].vars[name] = v
			return
		}
	}
	p4err.Fatalf(p4err.KindLookupFailure, "UpdateVar: %q is not declared", name)
}

// AddType binds a name to a type in the shared arena. The binding is global:
// it is not recorded in any scope, so it is not undone by PopScope, and a
// later AddType of the same name replaces it everywhere.
func (s *ProgState) AddType(name string, t p4ir.TypeRef) {
	s.Arena.BindName(name, t)
}

// ResolveType follows TypeName indirection through the arena. Typedef and
// Newtype nodes are returned as they are, not followed to their referent.
func (s *ProgState) ResolveType(t p4ir.TypeRef) p4ir.TypeRef {
	return s.Arena.Resolve(t)
}

// DeclareStaticDecl registers a toplevel declaration (action, function,
// table, control, parser, ...) by name, visible from anywhere in the
// program rather than scoped lexically.
func (s *ProgState) DeclareStaticDecl(name string, d p4ir.Decl) {
	s.Statics[name] = d
}

// GetStaticDecl looks up a toplevel declaration by name.
func (s *ProgState) GetStaticDecl(name string) (p4ir.Decl, bool) {
	d, ok := s.Statics[name]
	return d, ok
}

// AddOverload appends d to the named overload bucket — used for Function
// and Method declarations, which P4_16 allows to repeat a name with a
// different parameter arity.
func (s *ProgState) AddOverload(name string, d p4ir.Decl) {
	s.Overloads[name] = append(s.Overloads[name], d)
}

// GetOverloads returns every declaration registered under name.
func (s *ProgState) GetOverloads(name string) []p4ir.Decl {
	return s.Overloads[name]
}

// CloneState deep-copies the entire scope stack; the Statics and Overloads
// maps and the Arena are shared with s by reference, not copied.
func (s *ProgState) CloneState() *ProgState {
	scopes := make([]*Scope, len(s.scopes))
	for i, sc := range s.scopes {
		scopes[i] = sc.copy()
	}
	return &ProgState{
		Arena:     s.Arena,
		scopes:    scopes,
		PathCond:  s.PathCond,
		Statics:   s.Statics,
		Overloads: s.Overloads,
	}
}

// ForkState clones s for a branch under the given condition, conjoining it
// onto PathCond. Use once per arm of an if/switch/select.
func (s *ProgState) ForkState(ctx *z3.Context, cond z3.Bool) *ProgState {
	forked := s.CloneState()
	forked.PathCond = s.PathCond.And(cond).(z3.Bool)
	return forked
}

// MergeState folds other's bindings into s, in place, under cond — used to
// rejoin two branches of an if/switch into their common continuation. Both
// states must share the same scope-stack shape (same scopes, same names in
// each, in the same order) which holds by construction since both forked
// from a common ancestor.
func (s *ProgState) MergeState(ctx *z3.Context, cond z3.Bool, other *ProgState) {
	if len(s.scopes) != len(other.scopes) {
		p4err.Fatalf(p4err.KindInvariantViolation, "MergeState: scope stack depth mismatch")
	}
	for i := range s.scopes {
		s.mergeScope(ctx, cond, s.scopes[i], other.scopes[i])
	}
	s.PathCond = cond.Ite(other.PathCond, s.PathCond).(z3.Bool)
}

func (s *ProgState) mergeScope(ctx *z3.Context, cond z3.Bool, dst, src *Scope) {
	for _, name := range dst.order {
		ov, ok := src.vars[name]
		if !ok {
			continue
		}
		dst.vars[name].Merge(ctx, cond, ov)
	}
}

// MergeVars merges only the named variables (found in whichever scope owns
// each) of other into s under cond, leaving every other variable of the
// scope stack as it is.
func (s *ProgState) MergeVars(ctx *z3.Context, cond z3.Bool, other *ProgState, names []string) {
	for _, name := range names {
		s.UpdateVar(name, mergedCopy(ctx, cond, s.GetVar(name), other.GetVar(name)))
	}
}

func mergedCopy(ctx *z3.Context, cond z3.Bool, dst, src value.Value) value.Value {
	cp := dst.Copy()
	cp.Merge(ctx, cond, src)
	return cp
}

// CopyIn binds a fresh local for each parameter: `in`/`inout` parameters
// copy the caller-side argument's value, `out` parameters get a havoc'd
// fresh value of the parameter's type, matching P4_16 call-by-value
// copy-in/copy-out semantics.
func CopyIn(ctx *z3.Context, s *ProgState, params []p4ir.Param, args []value.Value, seed string) {
	s.PushScope()
	for i, p := range params {
		switch p.Direction {
		case p4ir.DirOut:
			s.DeclareVar(p.Name, p.Type, value.Havoc(ctx, s.Arena, p.Type, seed+"."+p.Name))
		default:
			s.DeclareVar(p.Name, p.Type, args[i].Copy().Cast(ctx, s.Arena, p.Type))
		}
	}
}

// CopyOut writes inout/out parameter locals back into the caller-supplied
// lvalue targets, then pops the call's scope. write is called once per
// out/inout parameter with its final local value.
func CopyOut(s *ProgState, params []p4ir.Param, write func(i int, v value.Value)) {
	for i, p := range params {
		if p.Direction == p4ir.DirOut || p.Direction == p4ir.DirInOut {
			write(i, s.GetVar(p.Name))
		}
	}
	s.PopScope()
}
