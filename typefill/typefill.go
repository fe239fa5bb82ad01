// Package typefill implements the pre-pass that runs once over a parsed
// program before interpretation starts: it registers every toplevel
// declaration into a fresh ProgState, unions the members of every `error`
// declaration into one canonical error type (P4_16 treats `error` as a
// single open enum that every translation unit only ever adds to), and
// evaluates toplevel constant initializers.
package typefill

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/generic"
	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

// EvalConst evaluates a constant-initializer expression against a partially
// filled ProgState. The caller (package symbolic) supplies this so typefill
// never has to import the interpreter, avoiding an import cycle.
type EvalConst func(st *state.ProgState, expr p4ir.Expr) value.Value

// Fill walks prog.Decls in declaration order and returns a ProgState with
// every toplevel name registered: constants, variables, value sets (as
// fresh havocs of their element type) and extern/control/parser instances
// in the root scope; type declarations in the arena; everything else
// (actions, functions, methods, tables, controls, parsers, packages, other
// instances) in Statics or Overloads.
func Fill(ctx *z3.Context, prog *p4ir.Program, evalConst EvalConst) (*state.ProgState, error) {
	st := state.NewProgState(ctx, prog.Arena)
	f := &filler{ctx: ctx, st: st, evalConst: evalConst}
	if err := f.unionErrors(prog); err != nil {
		return nil, err
	}
	for _, d := range prog.Decls {
		if err := f.fillOne(d); err != nil {
			return nil, err
		}
	}
	return st, nil
}

type filler struct {
	ctx       *z3.Context
	st        *state.ProgState
	evalConst EvalConst
}

// unionErrors finds every TypeDecl wrapping a *p4ir.TypeError named "error"
// and rewrites the arena's single "error" binding to a type covering every
// member any of them declared, so `error.X` and `error.Y` from separate
// declarations resolve into the same type.
func (f *filler) unionErrors(prog *p4ir.Program) (err error) {
	defer p4err.Recover(func(e *p4err.Error) { err = e })
	var union *p4ir.TypeError
	var ref p4ir.TypeRef
	seen := map[string]bool{}
	for _, d := range prog.Decls {
		td, ok := d.(*p4ir.TypeDecl)
		if !ok {
			continue
		}
		te, ok := prog.Arena.Get(td.Type).(*p4ir.TypeError)
		if !ok || td.Name != "error" {
			continue
		}
		if union == nil {
			union = &p4ir.TypeError{Name: "error"}
			ref = td.Type
		}
		for _, m := range te.Members {
			if !seen[m] {
				seen[m] = true
				union.Members = append(union.Members, m)
			}
		}
	}
	if union != nil {
		prog.Arena.Set(ref, union)
		prog.Arena.BindName("error", ref)
	}
	return nil
}

// FillDecl registers a single declaration into st the same way Fill does
// for a toplevel one. interp's control/parser drivers call this directly
// for LocalDecls, which typefill.Fill never visits (they're nested inside
// a control/parser body, not at program scope).
func FillDecl(ctx *z3.Context, st *state.ProgState, evalConst EvalConst, d p4ir.Decl) error {
	f := &filler{ctx: ctx, st: st, evalConst: evalConst}
	return f.fillOne(d)
}

func (f *filler) fillOne(d p4ir.Decl) (err error) {
	defer p4err.Recover(func(e *p4err.Error) { err = e })
	switch decl := d.(type) {
	case *p4ir.TypeDecl:
		if _, isErr := f.st.Arena.Get(decl.Type).(*p4ir.TypeError); isErr && decl.Name == "error" {
			break // unionErrors already bound "error" to the merged type
		}
		f.st.AddType(decl.Name, decl.Type)
	case *p4ir.DeclConstant:
		f.st.DeclareVar(decl.Name, decl.Type, f.evalConst(f.st, decl.Init))
	case *p4ir.DeclVariable:
		v := f.initialValue(decl)
		f.st.DeclareVar(decl.Name, decl.Type, v)
	case *p4ir.DeclInstance:
		f.fillInstance(decl)
	case *p4ir.P4Action:
		f.st.DeclareStaticDecl(decl.Name, decl)
	case *p4ir.Function:
		f.st.AddOverload(decl.Name, decl)
	case *p4ir.Method:
		f.st.AddOverload(decl.Name, decl)
	case *p4ir.P4Table:
		f.st.DeclareStaticDecl(decl.Name, decl)
	case *p4ir.P4Control:
		f.st.DeclareStaticDecl(decl.Name, decl)
	case *p4ir.P4Parser:
		f.st.DeclareStaticDecl(decl.Name, decl)
	case *p4ir.P4Package:
		f.st.DeclareStaticDecl(decl.Name, decl)
	case *p4ir.ValueSet:
		f.st.DeclareVar(decl.Name, decl.ElemType, value.Havoc(f.ctx, f.st.Arena, decl.ElemType, decl.Name))
	default:
		p4err.Fatalf(p4err.KindUnsupported, "typefill: unsupported toplevel declaration %T", d)
	}
	return nil
}

// fillInstance resolves one `Type name(args...);` toplevel instantiation by
// what its declared Type actually is: an extern instance becomes an opaque
// value.Extern handle; a control/parser instance evaluates its constructor
// arguments, binds the declaration's type parameters against them through
// generic.Bind, and becomes the resulting value.ControlInstance — both
// stored as an ordinary variable so later PathExpression lookups by name
// (a `main(pipe)` argument, for instance) resolve it the same way any other
// toplevel declaration resolves.
func (f *filler) fillInstance(decl *p4ir.DeclInstance) {
	rt := f.st.Arena.Resolve(decl.Type)
	switch f.st.Arena.Get(rt).(type) {
	case *p4ir.TypeExtern:
		f.st.DeclareVar(decl.Name, decl.Type, &value.Extern{Type: rt, State: map[string]value.Value{}})
	case *p4ir.TypeControl, *p4ir.TypeParser:
		target, ok := f.instanceTarget(rt)
		if !ok {
			p4err.Fatalf(p4err.KindLookupFailure, "typefill: %q names an undeclared control/parser type", decl.Name)
		}
		args := make([]value.Value, len(decl.Args))
		for i, a := range decl.Args {
			args[i] = f.evalConst(f.st, a)
		}
		inst, err := generic.Bind(target, args, f.st.Arena)
		if err != nil {
			p4err.Fatalf(p4err.KindInvariantViolation, "typefill: %s", err)
		}
		f.st.DeclareVar(decl.Name, decl.Type, inst)
	default:
		f.st.DeclareStaticDecl(decl.Name, decl)
	}
}

// instanceTarget maps a resolved TypeControl/TypeParser descriptor back to
// the *p4ir.P4Control/*p4ir.P4Parser declaration it names, which must
// already be registered in Statics — P4_16 requires a control/parser type
// to be declared before anything instantiates it.
func (f *filler) instanceTarget(rt p4ir.TypeRef) (p4ir.Decl, bool) {
	var name string
	switch t := f.st.Arena.Get(rt).(type) {
	case *p4ir.TypeControl:
		name = t.Name
	case *p4ir.TypeParser:
		name = t.Name
	default:
		return nil, false
	}
	return f.st.GetStaticDecl(name)
}

func (f *filler) initialValue(decl *p4ir.DeclVariable) value.Value {
	if decl.Init != nil {
		return f.evalConst(f.st, decl.Init)
	}
	return value.Havoc(f.ctx, f.st.Arena, decl.Type, decl.Name)
}
