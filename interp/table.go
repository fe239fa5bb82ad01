package interp

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

// tableAction is one `actions { ... }` entry: the action's name and any
// arguments given at the call site (action parameters the control plane
// would otherwise fill in are left as fresh havoc'd values, since there is
// no concrete match-action-data table to read them from).
type tableAction struct {
	name string
	args []p4ir.Expr
}

func tableActions(props []p4ir.TableProperty) []tableAction {
	var out []tableAction
	for _, p := range props {
		if p.Name != "actions" {
			continue
		}
		for _, a := range p.Actions {
			call, ok := a.(*p4ir.MethodCallExpression)
			if !ok {
				continue
			}
			path, ok := call.Method.(*p4ir.PathExpression)
			if !ok {
				continue
			}
			out = append(out, tableAction{name: path.Name, args: call.Args})
		}
	}
	return out
}

func tableDefaultAction(props []p4ir.TableProperty) (tableAction, bool) {
	for _, p := range props {
		if p.Name != "default_action" || p.Default == nil {
			continue
		}
		call, ok := p.Default.(*p4ir.MethodCallExpression)
		if !ok {
			continue
		}
		path, ok := call.Method.(*p4ir.PathExpression)
		if !ok {
			continue
		}
		return tableAction{name: path.Name, args: call.Args}, true
	}
	return tableAction{}, false
}

// ApplyTable models `table.apply()`: the match result (hit/miss) and which
// action ran are both left fully symbolic since no concrete entries exist
// to match against — this is the entry point a real control-plane/entries
// feed would replace, but symbolic execution over a table's possible
// outcomes is exactly the property tests here want to explore. Every
// listed action runs once, each forked under the condition that it was the
// one actually selected, and the default action (when the table has one)
// runs under the miss condition even if it is also a listed action; each
// run is folded back into st via the normal state-merge machinery.
func ApplyTable(ctx *z3.Context, st *state.ProgState, tbl *p4ir.P4Table) value.Value {
	actions := tableActions(tbl.Properties)
	if len(actions) == 0 {
		p4err.Fatalf(p4err.KindInvariantViolation, "ApplyTable: table %q declares no actions", tbl.Name)
	}
	def, hasDefault := tableDefaultAction(tbl.Properties)

	enumType := tbl.Name + ".Action"
	members := make([]string, len(actions))
	for i, a := range actions {
		members[i] = a.name
	}

	hit := ctx.BoolConst(tbl.Name + ".$hit")
	choice := ctx.Const(tbl.Name+".$choice", ctx.UninterpretedSort(enumType)).(z3.Uninterpreted)

	for _, a := range actions {
		cond := hit.And(choice.Eq(value.MemberConst(ctx, enumType, a.name))).(z3.Bool)
		runForked(ctx, st, cond, a)
	}

	missExpr := choice
	if hasDefault {
		missExpr = value.MemberConst(ctx, enumType, def.name)
		runForked(ctx, st, hit.Not().(z3.Bool), def)
	}

	actionRun := &value.Enum{Type: p4ir.NoType, Members: members, Expr: hit.Ite(choice, missExpr).(z3.Uninterpreted)}

	return &value.Struct{
		Type:       p4ir.NoType,
		FieldOrder: []string{"hit", "miss", "action_run"},
		Fields: map[string]value.Value{
			"hit":        value.Bool32(hit),
			"miss":       value.Bool32(hit.Not().(z3.Bool)),
			"action_run": actionRun,
		},
		FieldTypes: map[string]p4ir.TypeRef{"hit": p4ir.NoType, "miss": p4ir.NoType, "action_run": p4ir.NoType},
	}
}

func runForked(ctx *z3.Context, st *state.ProgState, cond z3.Bool, a tableAction) {
	armSt := st.ForkState(ctx, cond)
	d, ok := armSt.GetStaticDecl(a.name)
	if !ok {
		p4err.Fatalf(p4err.KindLookupFailure, "ApplyTable: action %q is not declared", a.name)
	}
	action, ok := d.(*p4ir.P4Action)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "ApplyTable: %q is not an action", a.name)
	}
	runTableAction(ctx, armSt, action.Params, action.Body, a.args, a.name)
	st.MergeState(ctx, cond, armSt)
}

// runTableAction binds an action's parameters for a table-apply call site.
// Any parameter past the arguments actually written in the `actions` list
// is action-data the control plane would supply per table entry; with no
// concrete entries to read, it gets a fresh havoc instead. There is no
// lvalue to write an out/inout parameter back into at a table call site,
// so CopyOut's callback is a no-op (it still pops the call's scope).
func runTableAction(ctx *z3.Context, st *state.ProgState, params []p4ir.Param, body []p4ir.Stmt, args []p4ir.Expr, seed string) {
	vals := make([]value.Value, len(params))
	for i := range params {
		if i < len(args) {
			vals[i] = Eval(ctx, st, args[i])
		} else {
			vals[i] = value.Havoc(ctx, st.Arena, params[i].Type, seed+"."+params[i].Name)
		}
	}
	state.CopyIn(ctx, st, params, vals, seed)
	Exec(ctx, st, &p4ir.BlockStatement{Stmts: body})
	state.CopyOut(st, params, func(int, value.Value) {})
}
