package interp

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/generic"
	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/typefill"
	"p4z3/value"
)

func localEvalConst(ctx *z3.Context) typefill.EvalConst {
	return func(st *state.ProgState, expr p4ir.Expr) value.Value { return Eval(ctx, st, expr) }
}

func registerLocals(ctx *z3.Context, st *state.ProgState, decls []p4ir.Decl) {
	evalConst := localEvalConst(ctx)
	for _, d := range decls {
		if err := typefill.FillDecl(ctx, st, evalConst, d); err != nil {
			panic(err)
		}
	}
}

// ApplyControl runs one control's apply block: bind Params (narrowed by the
// type substitution generic.Bind resolved at instantiation) via copy-in,
// register the control's local tables and actions, execute the body
// statement-by-statement so an `exit` stops the remaining statements, then
// copy the in/out parameters back out.
func ApplyControl(ctx *z3.Context, st *state.ProgState, ctrl *p4ir.P4Control, subst generic.Subst, argExprs []p4ir.Expr) {
	params := generic.ApplyParams(st.Arena, subst, ctrl.Params)
	args := evalArgs(ctx, st, argExprs)

	state.CopyIn(ctx, st, params, args, ctrl.Name)
	registerLocals(ctx, st, ctrl.LocalDecls)

	for _, s := range ctrl.Body {
		if flow := Exec(ctx, st, s); flow.Kind != FlowNormal {
			break
		}
	}

	state.CopyOut(st, params, func(i int, v value.Value) {
		writeBack(ctx, st, argExprs[i], v)
	})
}

// RunParser drives one parser's state machine, starting from "start" and
// following each state's Select expression (or falling straight through to
// "accept" when a state has none) until it reaches "accept"/"reject".
// Entering the same state name more than MaxParserVisits times is a fatal
// parser-loop error — unbounded P4_16 parser loops have no static bound, so
// this cutoff stands in for one.
func RunParser(ctx *z3.Context, st *state.ProgState, psr *p4ir.P4Parser, subst generic.Subst, argExprs []p4ir.Expr) {
	params := generic.ApplyParams(st.Arena, subst, psr.Params)
	args := evalArgs(ctx, st, argExprs)

	state.CopyIn(ctx, st, params, args, psr.Name)
	registerLocals(ctx, st, psr.LocalDecls)

	byName := make(map[string]*p4ir.ParserState, len(psr.States))
	for _, s := range psr.States {
		byName[s.Name] = s
	}

	visits := map[string]int{}
	current := "start"
	for current != "accept" && current != "reject" {
		visits[current]++
		if visits[current] > MaxParserVisits {
			p4err.Fatalf(p4err.KindUnsupported, "RunParser: parser loop: state %q entered more than %d times", current, MaxParserVisits)
		}
		next, ok := byName[current]
		if !ok {
			p4err.Fatalf(p4err.KindLookupFailure, "RunParser: no state named %q", current)
		}
		for _, s := range next.Body {
			if flow := Exec(ctx, st, s); flow.Kind != FlowNormal {
				current = "reject"
				break
			}
		}
		if next.Select == nil {
			current = "accept"
			continue
		}
		current = evalSelect(ctx, st, next.Select)
	}

	state.CopyOut(st, params, func(i int, v value.Value) {
		writeBack(ctx, st, argExprs[i], v)
	})
}

// evalSelect walks the SelectCases in order and returns the target state
// name of the first one that is either a bare `default`/label-less case or
// whose Masks all test equal to their paired Selectors; if none does, the
// result is "reject".
//
// Choosing the next parser state has to be a concrete decision — unlike an
// if/switch body, the interpreter has no mechanism to fork and later merge
// two entirely different remaining parses. Where both sides of a case are
// compile-time constants, the match is decided for real; where either side
// is symbolic, the case is treated as a match (first such case wins), which
// is a documented approximation rather than a soundness-preserving choice.
func evalSelect(ctx *z3.Context, st *state.ProgState, sel *p4ir.SelectExpression) string {
	keys := make([]value.Value, len(sel.Selectors))
	for i, s := range sel.Selectors {
		keys[i] = Eval(ctx, st, s)
	}
	for _, c := range sel.Cases {
		if len(c.Masks) == 0 {
			return c.State
		}
		if selectCaseMatches(ctx, st, keys, c.Masks) {
			return c.State
		}
	}
	return "reject"
}

func selectCaseMatches(ctx *z3.Context, st *state.ProgState, keys []value.Value, masks []p4ir.Expr) bool {
	for i, m := range masks {
		mv := Eval(ctx, st, m)
		if !constantsMatch(keys[i], mv) {
			return false
		}
	}
	return true
}

// constantsMatch reports false only when both sides are known integer
// constants that disagree; any symbolic operand is treated as matching.
func constantsMatch(key, mask value.Value) bool {
	ki, kok := asConstInt(key)
	mi, mok := asConstInt(mask)
	if kok && mok {
		return ki == mi
	}
	return true
}

func asConstInt(v value.Value) (int64, bool) {
	switch x := v.(type) {
	case *value.InfInt:
		return x.Expr.AsInt64()
	case *value.Bitvector:
		if x.IsBool() {
			return 0, false
		}
		return x.BV.AsInt64()
	default:
		return 0, false
	}
}
