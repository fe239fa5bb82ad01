// Package symbolic is the core orchestration entry point: Interpret wires
// typefill, interp, and generic together against one *z3.Context and drives
// every pipeline instance of a program's `main` declaration to completion,
// flattening the resulting state into the leaf paths the front-end tools
// print or compare.
package symbolic

import (
	"fmt"
	"sort"

	"github.com/aclements/go-z3/z3"

	"p4z3/generic"
	"p4z3/interp"
	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/typefill"
	"p4z3/value"
)

// Kind re-exports p4err's error taxonomy under the name this package's
// callers expect; the taxonomy itself lives in p4err (a dependency-free
// leaf package) so value/state/lvalue/etc. can all raise it without any of
// them importing symbolic, which sits above them.
type Kind = p4err.Kind

const (
	KindUserP4Error        = p4err.KindUserP4Error
	KindUnsupported        = p4err.KindUnsupported
	KindInvariantViolation = p4err.KindInvariantViolation
	KindLookupFailure      = p4err.KindLookupFailure
	KindSolverUnknown      = p4err.KindSolverUnknown
)

// Error is p4err.Error under the name this package's callers expect.
type Error = p4err.Error

// Interpret runs the full pipeline over prog: type-fill, then every
// control/parser instance argument of the program's `main` package
// instantiation, in source order. Each pipeline's parameters are seeded
// with fresh havoc'd values (there is no outer packet/metadata source in
// this module's scope, §1) and its post-apply state is flattened into
// dotted leaf paths keyed by "<pipelineName>.<paramName>.<field>...".
func Interpret(prog *p4ir.Program) (map[string][]value.LeafPath, error) {
	ctx := z3.NewContext(nil)
	var st *state.ProgState
	var out map[string][]value.LeafPath

	err := func() (err error) {
		defer p4err.Recover(func(e *p4err.Error) { err = e })

		evalConst := func(s *state.ProgState, expr p4ir.Expr) value.Value {
			return interp.Eval(ctx, s, expr)
		}
		filled, ferr := typefill.Fill(ctx, prog, evalConst)
		if ferr != nil {
			return ferr
		}
		st = filled
		out = runMain(ctx, st, prog)
		return nil
	}()
	if err != nil {
		return nil, err
	}
	return out, nil
}

func runMain(ctx *z3.Context, st *state.ProgState, prog *p4ir.Program) map[string][]value.LeafPath {
	main := findMain(prog)
	if main == nil {
		return map[string][]value.LeafPath{}
	}

	out := map[string][]value.LeafPath{}
	for _, arg := range main.Args {
		name, inst, ok := resolveStageInstance(ctx, st, arg)
		if !ok {
			continue
		}
		runStage(ctx, st, name, inst)
		out[name] = flattenStage(ctx, st, name, inst)
	}
	return out
}

func findMain(prog *p4ir.Program) *p4ir.DeclInstance {
	for _, d := range prog.Decls {
		if di, ok := d.(*p4ir.DeclInstance); ok && di.Name == "main" {
			return di
		}
	}
	return nil
}

// resolveStageInstance maps one of main's arguments to the control/parser
// instance it names, in either of the two forms P4_16 allows: an inline
// constructor call (`main(MyIngress())`), bound fresh right here via
// generic.Bind, or a reference to an instance declared earlier at toplevel
// (`MyIngress() pipe; ... main(pipe)`), looked up by name from the variable
// typefill already bound it to.
func resolveStageInstance(ctx *z3.Context, st *state.ProgState, arg p4ir.Expr) (string, *value.ControlInstance, bool) {
	switch e := arg.(type) {
	case *p4ir.MethodCallExpression:
		path, ok := e.Method.(*p4ir.PathExpression)
		if !ok {
			return "", nil, false
		}
		decl, ok := st.GetStaticDecl(path.Name)
		if !ok {
			return "", nil, false
		}
		switch decl.(type) {
		case *p4ir.P4Control, *p4ir.P4Parser:
		default:
			return "", nil, false
		}
		args := make([]value.Value, len(e.Args))
		for i, a := range e.Args {
			args[i] = interp.Eval(ctx, st, a)
		}
		inst, err := generic.Bind(decl, args, st.Arena)
		if err != nil {
			p4err.Fatalf(p4err.KindInvariantViolation, "resolveStageInstance: %s", err)
		}
		return path.Name, inst, true
	case *p4ir.PathExpression:
		inst, ok := st.GetVar(e.Name).(*value.ControlInstance)
		return e.Name, inst, ok
	default:
		return "", nil, false
	}
}

func runStage(ctx *z3.Context, st *state.ProgState, name string, inst *value.ControlInstance) {
	switch d := inst.Decl.(type) {
	case *p4ir.P4Control:
		params := generic.ApplyParams(st.Arena, inst.TypeSubst, d.Params)
		argExprs := havocParamVars(ctx, st, name, params)
		interp.ApplyControl(ctx, st, d, inst.TypeSubst, argExprs)
	case *p4ir.P4Parser:
		params := generic.ApplyParams(st.Arena, inst.TypeSubst, d.Params)
		argExprs := havocParamVars(ctx, st, name, params)
		interp.RunParser(ctx, st, d, inst.TypeSubst, argExprs)
	}
}

// havocParamVars declares one fresh top-level variable per stage parameter,
// named "<stage>.<param>", and returns PathExpressions naming them so
// ApplyControl/RunParser's CopyIn/CopyOut machinery can bind and write them
// back exactly as it would for a nested call.
func havocParamVars(ctx *z3.Context, st *state.ProgState, stage string, params []p4ir.Param) []p4ir.Expr {
	exprs := make([]p4ir.Expr, len(params))
	for i, p := range params {
		varName := stage + "." + p.Name
		st.DeclareVar(varName, p.Type, value.Havoc(ctx, st.Arena, p.Type, varName))
		exprs[i] = &p4ir.PathExpression{Name: varName}
	}
	return exprs
}

func flattenStage(ctx *z3.Context, st *state.ProgState, stage string, inst *value.ControlInstance) []value.LeafPath {
	var params []p4ir.Param
	switch d := inst.Decl.(type) {
	case *p4ir.P4Control:
		params = d.Params
	case *p4ir.P4Parser:
		params = d.Params
	}
	params = generic.ApplyParams(st.Arena, inst.TypeSubst, params)
	var out []value.LeafPath
	for _, p := range params {
		varName := stage + "." + p.Name
		out = append(out, st.GetVar(varName).FlattenLeaves(ctx, varName)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// String is a small debugging aid: render a leaf-path slice the way the
// front-end tools print it, one "path = expr" per line.
func String(leaves []value.LeafPath) string {
	s := ""
	for _, l := range leaves {
		s += fmt.Sprintf("%s = %v\n", l.Path, l.Expr)
	}
	return s
}
