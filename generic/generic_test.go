package generic

import (
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4ir"
	"p4z3/value"
)

func TestBind_InfersTypeParamFromConstructorArgValue(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	typeParam := arena.Add(&p4ir.TypeName{Name: "T"})
	ctrl := &p4ir.P4Control{
		Name:              "Pipe",
		TypeParams:        []string{"T"},
		ConstructorParams: []p4ir.Param{{Name: "x", Type: typeParam}},
	}

	arg := &value.Bitvector{BV: ctx.BVConst("x", 8), Signed: false}
	inst, err := Bind(ctrl, []value.Value{arg}, arena)
	if err != nil {
		t.Fatalf("Bind returned an error: %s", err)
	}
	if inst.Decl != ctrl {
		t.Errorf("got Decl %v; want the control passed in", inst.Decl)
	}
	if inst.CtorArgs["x"] != arg {
		t.Errorf("got CtorArgs[%q] %v; want the argument passed in", "x", inst.CtorArgs["x"])
	}
	bound, ok := inst.TypeSubst["T"]
	if !ok {
		t.Fatalf("expected T to be bound")
	}
	bits, ok := arena.Get(bound).(*p4ir.TypeBits)
	if !ok || bits.Width != 8 {
		t.Errorf("got bound type %+v; want bit<8>", arena.Get(bound))
	}
}

func TestBind_ArgCountMismatchReturnsError(t *testing.T) {
	arena := p4ir.NewTypeArena()
	ctrl := &p4ir.P4Control{Name: "Pipe", ConstructorParams: []p4ir.Param{{Name: "x", Type: p4ir.NoType}}}

	if _, err := Bind(ctrl, nil, arena); err == nil {
		t.Errorf("expected a constructor-argument count mismatch to return an error")
	}
}

func TestBind_UnresolvedTypeParamReturnsError(t *testing.T) {
	arena := p4ir.NewTypeArena()
	ctrl := &p4ir.P4Control{Name: "Pipe", TypeParams: []string{"T"}}

	if _, err := Bind(ctrl, nil, arena); err == nil {
		t.Errorf("expected a type parameter mentioned by no constructor argument to return an error")
	}
}

func TestBind_RejectsNonControlParserDecl(t *testing.T) {
	arena := p4ir.NewTypeArena()
	if _, err := Bind(&p4ir.P4Action{Name: "drop"}, nil, arena); err == nil {
		t.Errorf("expected binding a non-control/parser declaration to return an error")
	}
}

func TestApply_RewritesBoundTypeNameLeaf(t *testing.T) {
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8})
	param := arena.Add(&p4ir.TypeName{Name: "T"})

	subst := Subst{"T": bits8}
	got := Apply(arena, subst, param)

	if got != bits8 {
		t.Errorf("got %d; want the bound type %d", got, bits8)
	}
}

func TestApply_LeavesUnboundAndConcreteTypesUnchanged(t *testing.T) {
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8})
	otherParam := arena.Add(&p4ir.TypeName{Name: "U"})

	subst := Subst{"T": bits8}

	if got := Apply(arena, subst, bits8); got != bits8 {
		t.Errorf("got %d; want a concrete type to pass through unchanged", got)
	}
	if got := Apply(arena, subst, otherParam); got != otherParam {
		t.Errorf("got %d; want an unbound type parameter to pass through unchanged", got)
	}
}

func TestApplyParams_RewritesEachParamType(t *testing.T) {
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8})
	param := arena.Add(&p4ir.TypeName{Name: "T"})
	subst := Subst{"T": bits8}

	params := []p4ir.Param{{Name: "v", Direction: p4ir.DirInOut, Type: param}}
	got := ApplyParams(arena, subst, params)

	if got[0].Type != bits8 {
		t.Errorf("got param type %d; want %d", got[0].Type, bits8)
	}
	if params[0].Type != param {
		t.Errorf("ApplyParams mutated its input slice in place")
	}
}
