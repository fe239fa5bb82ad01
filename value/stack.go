package value

import (
	"fmt"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
)

// HeaderStack is a fixed-size array of Headers plus a symbolic `nextIndex`
// cursor (a 32-bit bitvector, matching the width P4_16 reserves for stack
// indices) that push_front/pop_front advance. The `.next`/`.last`
// accessors are not modelled.
type HeaderStack struct {
	ElemType  p4ir.TypeRef
	Members   []*Header
	NextIndex z3.BV
}

func (s *HeaderStack) Copy() Value {
	members := make([]*Header, len(s.Members))
	for i, m := range s.Members {
		members[i] = m.Copy().(*Header)
	}
	return &HeaderStack{ElemType: s.ElemType, Members: members, NextIndex: s.NextIndex}
}

func (s *HeaderStack) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	os, ok := other.(*HeaderStack)
	if !ok || len(os.Members) != len(s.Members) {
		p4err.Fatalf(p4err.KindInvariantViolation, "HeaderStack.Merge: incompatible operand")
	}
	for i := range s.Members {
		s.Members[i].Merge(ctx, cond, os.Members[i])
	}
	s.NextIndex = cond.Ite(os.NextIndex, s.NextIndex).(z3.BV)
}

func (s *HeaderStack) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	ts, ok := arena.Get(rt).(*p4ir.TypeStack)
	if !ok || ts.Size != len(s.Members) {
		p4err.Fatalf(p4err.KindUnsupported, "HeaderStack.Cast: incompatible target stack type")
	}
	members := make([]*Header, len(s.Members))
	for i, m := range s.Members {
		members[i] = m.Cast(ctx, arena, ts.Elem).(*Header)
	}
	return &HeaderStack{ElemType: ts.Elem, Members: members, NextIndex: s.NextIndex}
}

func (s *HeaderStack) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	var out []LeafPath
	for i, m := range s.Members {
		out = append(out, m.FlattenLeaves(ctx, indexPath(prefix, i))...)
	}
	return append(out, LeafPath{Path: joinPath(prefix, "$next"), Expr: s.NextIndex})
}

// PushFront shifts every member right by count positions, filling the
// vacated low indices with fresh invalid headers, and advances NextIndex by
// count (clamped to the stack size, per P4_16 `push_front`).
func (s *HeaderStack) PushFront(ctx *z3.Context, arena *p4ir.TypeArena, count int, seed string) {
	n := len(s.Members)
	shifted := make([]*Header, n)
	for i := 0; i < n; i++ {
		src := i - count
		if src < 0 {
			h := Havoc(ctx, arena, s.ElemType, indexPath(seed, i)).(*Header)
			h.SetInvalid(ctx)
			shifted[i] = h
		} else {
			shifted[i] = s.Members[src]
		}
	}
	s.Members = shifted
	s.advanceNext(ctx, count)
}

// PopFront shifts every member left by count positions, filling the
// vacated high indices with fresh invalid headers.
func (s *HeaderStack) PopFront(ctx *z3.Context, arena *p4ir.TypeArena, count int, seed string) {
	n := len(s.Members)
	shifted := make([]*Header, n)
	for i := 0; i < n; i++ {
		src := i + count
		if src >= n {
			h := Havoc(ctx, arena, s.ElemType, indexPath(seed, i)).(*Header)
			h.SetInvalid(ctx)
			shifted[i] = h
		} else {
			shifted[i] = s.Members[src]
		}
	}
	s.Members = shifted
	s.advanceNext(ctx, count)
}

func (s *HeaderStack) advanceNext(ctx *z3.Context, count int) {
	delta := ctx.FromInt(int64(count), s.NextIndex.Sort()).(z3.BV)
	max := ctx.FromInt(int64(len(s.Members)), s.NextIndex.Sort()).(z3.BV)
	advanced := s.NextIndex.Add(delta)
	s.NextIndex = advanced.UGT(max).Ite(max, advanced).(z3.BV)
}

func indexPath(prefix string, i int) string {
	return joinPath(prefix, fmt.Sprintf("[%d]", i))
}
