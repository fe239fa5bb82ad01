// Package lvalue resolves the left-hand side of an assignment — a chain of
// Member/ArrayIndex/Slice expressions rooted at a PathExpression — into a
// structure that can be read back or written without re-walking the
// expression tree, and performs the write itself, including the symbolic
// fan-out needed when an array index into a header stack is not a compile
// time constant.
package lvalue

import (
	"fmt"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
	"p4z3/smtalg"
	"p4z3/state"
	"p4z3/value"
)

// Selector is one step below the root variable: either a field name or a
// symbolic array index into a header stack.
type Selector struct {
	Field string   // "" when Index is set
	Index z3.Value // nil when Field is set
}

func fieldSel(name string) Selector  { return Selector{Field: name} }
func indexSel(idx z3.Value) Selector { return Selector{Index: idx} }

func (s Selector) isIndex() bool { return s.Index != nil }
func (s Selector) isZero() bool  { return s.Field == "" && s.Index == nil }

// MemberStruct is the resolved shape of an lvalue: the root variable name,
// the chain of selectors leading to (but not including) the final step,
// the final selector itself, whether every selector was a constant field
// access (IsFlat — the common, cheap case with no symbolic fan-out), and
// whether the chain passes through a header stack (HasStack — callers need
// this to choose the array-write fan-out path). A trailing Slice, if
// present, narrows the final write to a bit range of the resolved leaf.
type MemberStruct struct {
	Root         string
	MidMembers   []Selector
	TargetMember Selector
	IsFlat       bool
	HasStack     bool
	SliceHi      int
	SliceLo      int
	HasSlice     bool
}

// GetMemberStruct walks expr (which must bottom out at a PathExpression)
// into a MemberStruct, evaluating any ArrayIndex subscripts via eval.
func GetMemberStruct(ctx *z3.Context, st *state.ProgState, expr p4ir.Expr, eval func(p4ir.Expr) value.Value) MemberStruct {
	if sl, ok := expr.(*p4ir.Slice); ok {
		ms := GetMemberStruct(ctx, st, sl.Arg, eval)
		ms.HasSlice = true
		ms.SliceHi, ms.SliceLo = sl.Hi, sl.Lo
		return ms
	}
	root, chain := unwind(ctx, st, expr, nil, eval)
	ms := MemberStruct{Root: root}
	flat, hasStack := true, false
	for _, sel := range chain {
		if sel.isIndex() {
			flat, hasStack = false, true
		}
	}
	if len(chain) > 0 {
		ms.MidMembers = chain[:len(chain)-1]
		ms.TargetMember = chain[len(chain)-1]
	}
	ms.IsFlat, ms.HasStack = flat, hasStack
	return ms
}

func unwind(ctx *z3.Context, st *state.ProgState, expr p4ir.Expr, acc []Selector, eval func(p4ir.Expr) value.Value) (string, []Selector) {
	switch e := expr.(type) {
	case *p4ir.PathExpression:
		return e.Name, acc
	case *p4ir.Member:
		root, chain := unwind(ctx, st, e.Base, acc, eval)
		return root, append(chain, fieldSel(e.Name))
	case *p4ir.ArrayIndex:
		idxVal := leafExpr(ctx, eval(e.Index))
		root, chain := unwind(ctx, st, e.Base, acc, eval)
		return root, append(chain, indexSel(idxVal))
	default:
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue.GetMemberStruct: unassignable expression %T", expr)
		panic("unreachable")
	}
}

func leafExpr(ctx *z3.Context, v value.Value) z3.Value {
	leaves := v.FlattenLeaves(ctx, "")
	if len(leaves) != 1 {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: array index did not evaluate to a scalar")
	}
	return leaves[0].Expr
}

// GetValue reads the value an already-resolved MemberStruct points to.
func GetValue(ctx *z3.Context, st *state.ProgState, ms MemberStruct) value.Value {
	v := st.GetVar(ms.Root)
	path := ms.Root
	for _, sel := range ms.MidMembers {
		v, path = step(ctx, v, sel, path)
	}
	if !ms.TargetMember.isZero() {
		v, path = step(ctx, v, ms.TargetMember, path)
	}
	return sliceRead(v, ms)
}

func sliceRead(v value.Value, ms MemberStruct) value.Value {
	if !ms.HasSlice {
		return v
	}
	bv, ok := v.(*value.Bitvector)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: slice target is not a bitvector")
	}
	return &value.Bitvector{BV: smtalg.Slice(bv.BV, ms.SliceHi, ms.SliceLo)}
}

type fieldHolder interface {
	fieldValue(string) value.Value
	setField(string, value.Value)
	fieldType(string) p4ir.TypeRef
}

// step resolves one selector below v, returning the resulting value and the
// dotted path leading to it (used only to name the fresh placeholder a
// gated header-field read needs).
func step(ctx *z3.Context, v value.Value, sel Selector, path string) (value.Value, string) {
	if sel.isIndex() {
		stack, ok := v.(*value.HeaderStack)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: index into a non-stack value")
		}
		if lit, isConst := constIndex(sel.Index); isConst {
			if lit < 0 || lit >= len(stack.Members) {
				p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: constant index %d out of range", lit)
			}
			return stack.Members[lit], fmt.Sprintf("%s[%d]", path, lit)
		}
		return symbolicIndexRead(ctx, stack, sel.Index), path + "[?]"
	}
	holder, ok := v.(fieldHolder)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: member access on non-composite value")
	}
	fv := holder.fieldValue(sel.Field)
	fieldPath := path + "." + sel.Field
	if hdr, ok := v.(*value.Header); ok {
		fv = value.GateHeaderField(ctx, hdr.Valid, fieldPath, fv)
	}
	return fv, fieldPath
}

// constIndex reports whether idx is a literal bitvector numeral, and its
// value as a plain int when it is. Symbolic indices fall through to the
// fan-out path.
func constIndex(idx z3.Value) (int, bool) {
	bv, ok := idx.(z3.BV)
	if !ok {
		return 0, false
	}
	n, ok := bv.AsInt64()
	if !ok {
		return 0, false
	}
	return int(n), true
}

// symbolicIndexRead builds `ite(idx==0, m[0], ite(idx==1, m[1], ... m[n-1]))`
// over the stack's members — the read side of the fan-out SetVar uses for a
// symbolic-index write.
func symbolicIndexRead(ctx *z3.Context, stack *value.HeaderStack, idx z3.Value) value.Value {
	n := len(stack.Members)
	if n == 0 {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: symbolic index into an empty stack")
	}
	idxBV, ok := idx.(z3.BV)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: stack index is not a bitvector")
	}
	result := stack.Members[n-1].Copy()
	for i := n - 2; i >= 0; i-- {
		lit := ctx.FromInt(int64(i), idxBV.Sort()).(z3.BV)
		cond := idxBV.Eq(lit).(z3.Bool)
		result.Merge(ctx, cond, stack.Members[i])
	}
	return result
}

// SetVar writes rval into the variable in st named by ms, handling the
// three shapes: a flat field-path write, a slice-of-member write
// (AssembleSlice around the existing leaf), and a symbolic-stack-index
// write (merge rval into every member under the condition that member's
// position equals the index).
func SetVar(ctx *z3.Context, st *state.ProgState, ms MemberStruct, rval value.Value) {
	switch {
	case ms.HasStack:
		setStackMember(ctx, st, ms, rval)
	case ms.MidMembers == nil && ms.TargetMember.isZero():
		writeWholeVar(ctx, st, ms, rval)
	default:
		writeField(ctx, st, ms, rval)
	}
}

func writeWholeVar(ctx *z3.Context, st *state.ProgState, ms MemberStruct, rval value.Value) {
	if !ms.HasSlice {
		st.UpdateVar(ms.Root, rval)
		return
	}
	cur := st.GetVar(ms.Root).(*value.Bitvector)
	rv := rval.(*value.Bitvector)
	st.UpdateVar(ms.Root, &value.Bitvector{
		BV:     smtalg.AssembleSlice(ctx, cur.BV, rv.BV, ms.SliceHi, ms.SliceLo),
		Signed: cur.Signed,
	})
}

// writeField walks the root variable down to the holder just above the
// target selector, mutating each fieldHolder's map in place as it goes
// (Struct.Fields is a reference type, so the mutation is visible through
// the root variable without writing it back at every level).
func writeField(ctx *z3.Context, st *state.ProgState, ms MemberStruct, rval value.Value) {
	root := st.GetVar(ms.Root)
	path := append(append([]Selector{}, ms.MidMembers...), ms.TargetMember)
	cur := root
	var parent fieldHolder
	var parentSel Selector
	for _, sel := range path[:len(path)-1] {
		holder, ok := cur.(fieldHolder)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: nested write through a non-composite field")
		}
		parent, parentSel = holder, sel
		cur = holder.fieldValue(sel.Field)
	}
	final := path[len(path)-1]
	holder, ok := cur.(fieldHolder)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: write target is not a composite")
	}
	if ms.HasSlice {
		leaf := holder.fieldValue(final.Field).(*value.Bitvector)
		rv := rval.(*value.Bitvector)
		rval = &value.Bitvector{BV: smtalg.AssembleSlice(ctx, leaf.BV, rv.BV, ms.SliceHi, ms.SliceLo), Signed: leaf.Signed}
	} else if ft := holder.fieldType(final.Field); ft != p4ir.NoType {
		rval = rval.Cast(ctx, st.Arena, ft)
	}
	holder.setField(final.Field, rval)
	if parent != nil {
		parent.setField(parentSel.Field, cur)
	}
	st.UpdateVar(ms.Root, root)
}

// setStackMember handles a write whose selector chain passes through an
// array index: either the index itself is the target (`stk[i] = hdr`) or
// the index is a mid-selector on the way to a field inside the indexed
// member (`stk[i].a = 7`). P4_16 has no nested header stacks, so the chain
// carries exactly one index selector; everything before it walks plain
// fields down to the *HeaderStack, everything after it walks plain fields
// down to the target field inside whichever member the index selects.
func setStackMember(ctx *z3.Context, st *state.ProgState, ms MemberStruct, rval value.Value) {
	root := st.GetVar(ms.Root)
	full := append(append([]Selector{}, ms.MidMembers...), ms.TargetMember)
	idxPos := -1
	for i, sel := range full {
		if sel.isIndex() {
			idxPos = i
			break
		}
	}
	if idxPos < 0 {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: stack write target has no index selector")
	}
	stack, ok := findStack(root, full[:idxPos])
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: stack write target is not a header stack")
	}
	idx := full[idxPos].Index
	fieldPath := full[idxPos+1:]

	if lit, isConst := constIndex(idx); isConst {
		if lit < 0 || lit >= len(stack.Members) {
			p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: constant index %d out of range", lit)
		}
		if len(fieldPath) == 0 {
			stack.Members[lit] = rval.(*value.Header)
		} else {
			writeStackField(ctx, st.Arena, stack.Members[lit], fieldPath, rval)
		}
		st.UpdateVar(ms.Root, root)
		return
	}
	idxBV, ok := idx.(z3.BV)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: stack index is not a bitvector")
	}
	for i, member := range stack.Members {
		lit := ctx.FromInt(int64(i), idxBV.Sort()).(z3.BV)
		cond := idxBV.Eq(lit).(z3.Bool)
		if len(fieldPath) == 0 {
			member.Merge(ctx, cond, rval)
			continue
		}
		branch := member.Copy().(*value.Header)
		writeStackField(ctx, st.Arena, branch, fieldPath, rval.Copy())
		member.Merge(ctx, cond, branch)
	}
	st.UpdateVar(ms.Root, root)
}

// writeStackField writes rval into hdr at fieldPath, casting to the final
// field's declared type the same way writeField does for a plain (non-stack)
// target, mutating hdr's nested Struct.Fields maps in place.
func writeStackField(ctx *z3.Context, arena *p4ir.TypeArena, hdr *value.Header, fieldPath []Selector, rval value.Value) {
	var cur value.Value = hdr
	var parent fieldHolder
	var parentSel Selector
	for _, sel := range fieldPath[:len(fieldPath)-1] {
		holder, ok := cur.(fieldHolder)
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: nested stack write through a non-composite field")
		}
		parent, parentSel = holder, sel
		cur = holder.fieldValue(sel.Field)
	}
	final := fieldPath[len(fieldPath)-1]
	holder, ok := cur.(fieldHolder)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "lvalue: stack write target is not a composite")
	}
	if ft := holder.fieldType(final.Field); ft != p4ir.NoType {
		rval = rval.Cast(ctx, arena, ft)
	}
	holder.setField(final.Field, rval)
	if parent != nil {
		parent.setField(parentSel.Field, cur)
	}
}

// findStack walks mid (plain field selectors only — index selectors are
// handled by the caller before reaching here) down to the *HeaderStack the
// write ultimately targets.
func findStack(root value.Value, mid []Selector) (*value.HeaderStack, bool) {
	v := root
	for _, sel := range mid {
		holder, ok := v.(fieldHolder)
		if !ok {
			return nil, false
		}
		v = holder.fieldValue(sel.Field)
	}
	stack, ok := v.(*value.HeaderStack)
	return stack, ok
}
