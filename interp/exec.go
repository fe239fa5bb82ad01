package interp

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/lvalue"
	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

// FlowKind classifies how a statement (or block) finished.
type FlowKind int

const (
	// FlowNormal means execution fell through to the next statement.
	FlowNormal FlowKind = iota
	// FlowReturn means a `return` was hit; Value holds the returned
	// expression's value, or nil for a bare `return;`.
	FlowReturn
	// FlowExit means an `exit` was hit — unwinds all the way out of the
	// enclosing control/parser apply.
	FlowExit
)

// Flow is Exec's result: how the statement finished and, for FlowReturn,
// what it returned.
type Flow struct {
	Kind  FlowKind
	Value value.Value
}

var normalFlow = Flow{Kind: FlowNormal}

// Exec runs stmt against st and reports how it finished. A return or exit
// inside one arm of an if/switch short-circuits that arm's own block; the
// merge back into the continuation state happens the same way a normal
// branch result would (via state.ForkState/MergeState), and statements
// textually following the if/switch still run against the merged state —
// this interpreter does not re-gate "did this path already return" past the
// point of the merge, which is a deliberate scope boundary rather than an
// oversight.
func Exec(ctx *z3.Context, st *state.ProgState, stmt p4ir.Stmt) Flow {
	switch s := stmt.(type) {
	case *p4ir.BlockStatement:
		return ExecBlock(ctx, st, s.Stmts)
	case *p4ir.EmptyStatement:
		return normalFlow
	case *p4ir.DeclarationStatement:
		execLocalDecl(ctx, st, s.Decl)
		return normalFlow
	case *p4ir.AssignmentStatement:
		execAssign(ctx, st, s)
		return normalFlow
	case *p4ir.MethodCallStatement:
		EvalCall(ctx, st, s.Call)
		return normalFlow
	case *p4ir.IfStatement:
		return execIf(ctx, st, s)
	case *p4ir.SwitchStatement:
		return execSwitch(ctx, st, s)
	case *p4ir.ReturnStatement:
		if s.Result == nil {
			return Flow{Kind: FlowReturn}
		}
		return Flow{Kind: FlowReturn, Value: Eval(ctx, st, s.Result)}
	case *p4ir.ExitStatement:
		return Flow{Kind: FlowExit}
	default:
		p4err.Fatalf(p4err.KindUnsupported, "Exec: unsupported statement %T", stmt)
		panic("unreachable")
	}
}

// ExecBlock pushes a fresh scope, runs each statement in order, and stops
// early on the first non-normal Flow.
func ExecBlock(ctx *z3.Context, st *state.ProgState, stmts []p4ir.Stmt) Flow {
	st.PushScope()
	defer st.PopScope()
	for _, s := range stmts {
		if flow := Exec(ctx, st, s); flow.Kind != FlowNormal {
			return flow
		}
	}
	return normalFlow
}

func execLocalDecl(ctx *z3.Context, st *state.ProgState, d p4ir.Decl) {
	switch decl := d.(type) {
	case *p4ir.DeclVariable:
		var v value.Value
		if decl.Init != nil {
			v = Eval(ctx, st, decl.Init)
		} else {
			v = value.Havoc(ctx, st.Arena, decl.Type, decl.Name)
		}
		st.DeclareVar(decl.Name, decl.Type, v)
	case *p4ir.DeclConstant:
		st.DeclareVar(decl.Name, decl.Type, Eval(ctx, st, decl.Init))
	default:
		p4err.Fatalf(p4err.KindUnsupported, "execLocalDecl: unsupported local declaration %T", d)
	}
}

func execAssign(ctx *z3.Context, st *state.ProgState, s *p4ir.AssignmentStatement) {
	rhs := Eval(ctx, st, s.RHS)
	ms := lvalue.GetMemberStruct(ctx, st, s.LHS, func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
	lvalue.SetVar(ctx, st, ms, rhs)
}

// execIf forks on Cond, runs each arm against its own forked state, merges
// the taken-else-arm's bindings back under the negated condition, and
// propagates whichever arm's Flow is "more exceptional" (a return/exit in
// either arm wins over falling through the other).
func execIf(ctx *z3.Context, st *state.ProgState, s *p4ir.IfStatement) Flow {
	cond := asBool(Eval(ctx, st, s.Cond))

	thenSt := st.ForkState(ctx, cond)
	thenFlow := Exec(ctx, thenSt, s.Then)

	var elseFlow Flow
	elseSt := st.ForkState(ctx, cond.Not().(z3.Bool))
	if s.Else != nil {
		elseFlow = Exec(ctx, elseSt, s.Else)
	} else {
		elseFlow = normalFlow
	}

	st.MergeState(ctx, cond, thenSt)
	st.MergeState(ctx, cond.Not().(z3.Bool), elseSt)

	return mergeFlow(ctx, cond.Not().(z3.Bool), thenFlow, elseFlow)
}

// mergeFlow combines the two arms' Flows under cond. If both arms agree on
// Kind the result keeps that Kind (a returned Value is b's where cond holds
// and a's elsewhere); if they
// disagree, a FlowReturn/FlowExit from either side wins — the statement
// that follows only runs on whichever sub-state actually reaches it, which
// MergeState has already folded correctly path-condition-wise.
func mergeFlow(ctx *z3.Context, cond z3.Bool, a, b Flow) Flow {
	if a.Kind == b.Kind {
		if a.Kind == FlowReturn && a.Value != nil && b.Value != nil {
			merged := a.Value.Copy()
			merged.Merge(ctx, cond, b.Value)
			return Flow{Kind: FlowReturn, Value: merged}
		}
		return a
	}
	if a.Kind == FlowNormal {
		return b
	}
	if b.Kind == FlowNormal {
		return a
	}
	return a
}

// execSwitch runs the body of the first case whose label matches
// Selector's value, or of the label-less `default` case when no earlier
// case matched. A case with a nil Body falls through, per P4_16: its match
// condition carries over to the next case that has a body. Each executed
// arm's state is folded back in the same fork/merge style as execIf, with
// the implicit "none matched" arm treated as the continuation unchanged.
func execSwitch(ctx *z3.Context, st *state.ProgState, s *p4ir.SwitchStatement) Flow {
	sel := Eval(ctx, st, s.Selector)

	flow := normalFlow
	taken := ctx.FromBool(false)
	pending := ctx.FromBool(false)

	for _, c := range s.Cases {
		matchCond := pending.Or(caseMatch(ctx, st, sel, c.Labels, taken)).(z3.Bool)
		if c.Body == nil {
			pending = matchCond
			continue
		}
		armSt := st.ForkState(ctx, matchCond)
		armFlow := Exec(ctx, armSt, c.Body)
		st.MergeState(ctx, matchCond, armSt)
		flow = mergeFlow(ctx, matchCond, flow, armFlow)
		taken = taken.Or(matchCond).(z3.Bool)
		pending = ctx.FromBool(false)
	}
	return flow
}

// caseMatch reports the symbolic condition under which this case is the
// one selected: no earlier case was taken and, unless the case has no
// labels (`default`), Selector equals one of its labels.
func caseMatch(ctx *z3.Context, st *state.ProgState, sel value.Value, labels []p4ir.Expr, taken z3.Bool) z3.Bool {
	notTaken := taken.Not().(z3.Bool)
	if len(labels) == 0 {
		return notTaken
	}
	var acc z3.Bool
	for i, lbl := range labels {
		eq := valuesEqual(ctx, sel, labelValue(ctx, st, sel, lbl))
		if i == 0 {
			acc = eq
		} else {
			acc = acc.Or(eq).(z3.Bool)
		}
	}
	return notTaken.And(acc).(z3.Bool)
}

// labelValue resolves a switch-case label to a Value comparable against
// the selector: either `EnumType.Member` written out in full, or (when the
// selector is a table's action_run result) a bare action name.
func labelValue(ctx *z3.Context, st *state.ProgState, sel value.Value, lbl p4ir.Expr) value.Value {
	switch l := lbl.(type) {
	case *p4ir.Member:
		if tne, ok := l.Base.(*p4ir.TypeNameExpression); ok {
			return evalEnumMember(ctx, st, tne, l.Name)
		}
	case *p4ir.PathExpression:
		if sv, ok := sel.(*value.Enum); ok {
			return &value.Enum{Type: sv.Type, Members: sv.Members, Expr: value.MemberConst(ctx, typeNameOf(st, sv.Type), l.Name)}
		}
	}
	p4err.Fatalf(p4err.KindUnsupported, "labelValue: unsupported switch label %T", lbl)
	panic("unreachable")
}

func valuesEqual(ctx *z3.Context, a, b value.Value) z3.Bool {
	switch av := a.(type) {
	case *value.ErrorValue:
		bv := b.(*value.ErrorValue)
		return av.Expr.Eq(bv.Expr).(z3.Bool)
	case *value.Enum:
		bv := b.(*value.Enum)
		return av.Expr.Eq(bv.Expr).(z3.Bool)
	case *value.Bitvector:
		bv := b.(*value.Bitvector)
		return av.BV.Eq(bv.BV).(z3.Bool)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "valuesEqual: unsupported switch selector kind %T", a)
		panic("unreachable")
	}
}
