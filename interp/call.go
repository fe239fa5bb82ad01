package interp

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/lvalue"
	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

// EvalCall dispatches a MethodCallExpression: a built-in header/stack
// method, a table's `.apply()`, or a user-defined action/function/method
// reached by name through the receiver chain or the static declaration set.
func EvalCall(ctx *z3.Context, st *state.ProgState, call *p4ir.MethodCallExpression) value.Value {
	switch m := call.Method.(type) {
	case *p4ir.Member:
		if builtin, ok := builtinOn(ctx, st, m, call.Args); ok {
			return builtin
		}
		name := m.Name
		if tbl, ok := tableReceiver(ctx, st, m); ok {
			return ApplyTable(ctx, st, tbl)
		}
		return callNamed(ctx, st, name, call.Args)
	case *p4ir.PathExpression:
		return callNamed(ctx, st, m.Name, call.Args)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "EvalCall: unsupported call target %T", call.Method)
		panic("unreachable")
	}
}

func tableReceiver(ctx *z3.Context, st *state.ProgState, m *p4ir.Member) (*p4ir.P4Table, bool) {
	if m.Name != "apply" {
		return nil, false
	}
	path, ok := m.Base.(*p4ir.PathExpression)
	if !ok {
		return nil, false
	}
	d, ok := st.GetStaticDecl(path.Name)
	if !ok {
		return nil, false
	}
	tbl, ok := d.(*p4ir.P4Table)
	return tbl, ok
}

// builtinOn handles the fixed set of built-in methods the interpreter
// models directly rather than through user-defined bodies: header validity,
// and header-stack push/pop.
func builtinOn(ctx *z3.Context, st *state.ProgState, m *p4ir.Member, args []p4ir.Expr) (value.Value, bool) {
	recvExpr := m.Base
	switch m.Name {
	case "isValid":
		h := evalReceiverAs(ctx, st, recvExpr, "*value.Header")
		hdr, ok := h.(*value.Header)
		if !ok {
			return nil, false
		}
		return hdr.IsValid(), true
	case "setValid":
		hdr := receiverHeader(ctx, st, recvExpr)
		hdr.SetValid(ctx)
		writeBack(ctx, st, recvExpr, hdr)
		return &value.Void{}, true
	case "setInvalid":
		hdr := receiverHeader(ctx, st, recvExpr)
		hdr.SetInvalid(ctx)
		writeBack(ctx, st, recvExpr, hdr)
		return &value.Void{}, true
	case "push_front":
		stk := receiverStack(ctx, st, recvExpr)
		n := constArg(ctx, st, args, 0)
		stk.PushFront(ctx, st.Arena, n, m.Name)
		writeBack(ctx, st, recvExpr, stk)
		return &value.Void{}, true
	case "pop_front":
		stk := receiverStack(ctx, st, recvExpr)
		n := constArg(ctx, st, args, 0)
		stk.PopFront(ctx, st.Arena, n, m.Name)
		writeBack(ctx, st, recvExpr, stk)
		return &value.Void{}, true
	default:
		return nil, false
	}
}

func evalReceiverAs(ctx *z3.Context, st *state.ProgState, recv p4ir.Expr, want string) value.Value {
	return Eval(ctx, st, recv)
}

func receiverHeader(ctx *z3.Context, st *state.ProgState, recv p4ir.Expr) *value.Header {
	v := Eval(ctx, st, recv)
	h, ok := v.(*value.Header)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "receiver is not a header")
	}
	return h
}

func receiverStack(ctx *z3.Context, st *state.ProgState, recv p4ir.Expr) *value.HeaderStack {
	v := Eval(ctx, st, recv)
	s, ok := v.(*value.HeaderStack)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "receiver is not a header stack")
	}
	return s
}

func writeBack(ctx *z3.Context, st *state.ProgState, recv p4ir.Expr, v value.Value) {
	ms := lvalue.GetMemberStruct(ctx, st, recv, func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
	lvalue.SetVar(ctx, st, ms, v)
}

func constArg(ctx *z3.Context, st *state.ProgState, args []p4ir.Expr, i int) int {
	v := Eval(ctx, st, args[i])
	inf, ok := v.(*value.InfInt)
	if !ok {
		p4err.Fatalf(p4err.KindUnsupported, "constArg: argument is not a compile-time constant")
	}
	n, ok := inf.Expr.AsInt64()
	if !ok {
		p4err.Fatalf(p4err.KindUnsupported, "constArg: argument is not a literal constant")
	}
	return int(n)
}

// callNamed dispatches a user declaration (P4Action, Function, Method) by
// name, selecting the overload whose parameter count matches argc.
func callNamed(ctx *z3.Context, st *state.ProgState, name string, argExprs []p4ir.Expr) value.Value {
	if d, ok := st.GetStaticDecl(name); ok {
		if action, ok := d.(*p4ir.P4Action); ok {
			return runBody(ctx, st, action.Params, action.Body, argExprs, name)
		}
	}
	overloads := st.GetOverloads(name)
	for _, d := range overloads {
		switch fn := d.(type) {
		case *p4ir.Function:
			if len(fn.Params) == len(argExprs) {
				return runFunction(ctx, st, fn, argExprs)
			}
		case *p4ir.Method:
			if len(fn.Params) == len(argExprs) {
				return &value.Void{}
			}
		}
	}
	p4err.Fatalf(p4err.KindLookupFailure, "callNamed: no declaration %q matches %d arguments", name, len(argExprs))
	panic("unreachable")
}

func evalArgs(ctx *z3.Context, st *state.ProgState, exprs []p4ir.Expr) []value.Value {
	out := make([]value.Value, len(exprs))
	for i, e := range exprs {
		out[i] = Eval(ctx, st, e)
	}
	return out
}

func runBody(ctx *z3.Context, st *state.ProgState, params []p4ir.Param, body []p4ir.Stmt, argExprs []p4ir.Expr, seed string) value.Value {
	args := evalArgs(ctx, st, argExprs)
	state.CopyIn(ctx, st, params, args, seed)
	Exec(ctx, st, &p4ir.BlockStatement{Stmts: body})
	state.CopyOut(st, params, func(i int, v value.Value) {
		ms := lvalue.GetMemberStruct(ctx, st, argExprs[i], func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
		lvalue.SetVar(ctx, st, ms, v)
	})
	return &value.Void{}
}

func runFunction(ctx *z3.Context, st *state.ProgState, fn *p4ir.Function, argExprs []p4ir.Expr) value.Value {
	args := evalArgs(ctx, st, argExprs)
	state.CopyIn(ctx, st, fn.Params, args, fn.Name)
	flow := Exec(ctx, st, &p4ir.BlockStatement{Stmts: fn.Body})
	state.CopyOut(st, fn.Params, func(i int, v value.Value) {
		ms := lvalue.GetMemberStruct(ctx, st, argExprs[i], func(x p4ir.Expr) value.Value { return Eval(ctx, st, x) })
		lvalue.SetVar(ctx, st, ms, v)
	})
	if flow.Kind == FlowReturn && flow.Value != nil {
		return flow.Value
	}
	return &value.Void{}
}
