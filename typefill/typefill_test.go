package typefill

import (
	"math/big"
	"testing"

	"github.com/aclements/go-z3/z3"

	"p4z3/p4ir"
	"p4z3/state"
	"p4z3/value"
)

func TestFill_ControlInstanceBindsGenericTypeParam(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8})
	typeParam := arena.Add(&p4ir.TypeName{Name: "T"})
	ctrlType := arena.Add(&p4ir.TypeControl{
		Name:              "Pipe",
		TypeParams:        []string{"T"},
		ConstructorParams: []p4ir.Param{{Name: "x", Type: typeParam}},
	})
	ctrl := &p4ir.P4Control{
		Name:              "Pipe",
		TypeParams:        []string{"T"},
		ConstructorParams: []p4ir.Param{{Name: "x", Type: typeParam}},
	}

	prog := &p4ir.Program{
		Arena: arena,
		Decls: []p4ir.Decl{
			ctrl,
			&p4ir.DeclInstance{Name: "pipe", Type: ctrlType, Args: []p4ir.Expr{&p4ir.Constant{Type: bits8, Value: big.NewInt(5)}}},
		},
	}

	st, err := Fill(ctx, prog, constEval)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	inst, ok := st.GetVar("pipe").(*value.ControlInstance)
	if !ok {
		t.Fatalf("got %T; want *value.ControlInstance", st.GetVar("pipe"))
	}
	if inst.Decl != ctrl {
		t.Errorf("got Decl %v; want the registered control", inst.Decl)
	}
	bound, ok := inst.TypeSubst["T"]
	if !ok {
		t.Fatalf("expected T to be bound")
	}
	if bits, ok := arena.Get(bound).(*p4ir.TypeBits); !ok || bits.Width != 8 {
		t.Errorf("got bound type %+v; want bit<8>", arena.Get(bound))
	}
}

func TestFill_ExternInstanceBecomesAnExternValue(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	externType := arena.Add(&p4ir.TypeExtern{Name: "Checksum16"})

	prog := &p4ir.Program{
		Arena: arena,
		Decls: []p4ir.Decl{
			&p4ir.DeclInstance{Name: "csum", Type: externType},
		},
	}

	st, err := Fill(ctx, prog, constEval)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := st.GetVar("csum").(*value.Extern); !ok {
		t.Errorf("got %T; want *value.Extern", st.GetVar("csum"))
	}
}

func constEval(st *state.ProgState, expr p4ir.Expr) value.Value {
	c := expr.(*p4ir.Constant)
	ctx := st.PathCond.Context()
	bits := st.Arena.Get(st.Arena.Resolve(c.Type)).(*p4ir.TypeBits)
	n, _ := c.Value.Int64()
	return &value.Bitvector{BV: ctx.FromInt(n, ctx.BVSort(bits.Width)).(z3.BV), Signed: bits.Signed}
}

func TestFill_RegistersConstantsAndActions(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8})

	prog := &p4ir.Program{
		Arena: arena,
		Decls: []p4ir.Decl{
			&p4ir.DeclConstant{Name: "ZERO", Type: bits8, Init: &p4ir.Constant{Type: bits8, Value: big.NewInt(0)}},
			&p4ir.P4Action{Name: "noop"},
		},
	}

	st, err := Fill(ctx, prog, constEval)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got := st.GetVar("ZERO").(*value.Bitvector)
	solver := z3.NewSolver(ctx)
	solver.Assert(got.BV.Eq(ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if sat {
		t.Errorf("expected ZERO to equal 0")
	}

	if _, ok := st.GetStaticDecl("noop"); !ok {
		t.Errorf("expected action noop to be registered as a static declaration")
	}
}

func TestFill_UnionsErrorMembersAcrossDeclarations(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	err1 := arena.Add(&p4ir.TypeError{Name: "error", Members: []string{"NoError"}})
	arena.BindName("error", err1)
	err2 := arena.Add(&p4ir.TypeError{Name: "error", Members: []string{"PacketTooShort"}})

	prog := &p4ir.Program{
		Arena: arena,
		Decls: []p4ir.Decl{
			&p4ir.TypeDecl{Name: "error", Type: err1},
			&p4ir.TypeDecl{Name: "error", Type: err2},
		},
	}

	if _, err := Fill(ctx, prog, constEval); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	ref, ok := arena.Lookup("error")
	if !ok {
		t.Fatalf("expected the error type to still resolve by name")
	}
	te := arena.Get(ref).(*p4ir.TypeError)
	if len(te.Members) != 2 {
		t.Errorf("got members %v; want both NoError and PacketTooShort present", te.Members)
	}
}

func TestFillDecl_RegistersALocalVariable(t *testing.T) {
	ctx := z3.NewContext(nil)
	arena := p4ir.NewTypeArena()
	bits8 := arena.Add(&p4ir.TypeBits{Width: 8})
	st := state.NewProgState(ctx, arena)

	if err := FillDecl(ctx, st, constEval, &p4ir.DeclVariable{Name: "tmp", Type: bits8}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, ok := st.GetVar("tmp").(*value.Bitvector)
	if !ok {
		t.Fatalf("got %T; want *value.Bitvector", st.GetVar("tmp"))
	}

	// No Init means a fresh havoc: its value is unconstrained, not fixed to
	// any particular bit pattern.
	solver := z3.NewSolver(ctx)
	solver.Assert(got.BV.Eq(ctx.FromInt(0, ctx.BVSort(8)).(z3.BV)).Not().(z3.Bool))
	sat, err := solver.Check()
	if err != nil {
		t.Fatalf("solver error: %s", err)
	}
	if !sat {
		t.Errorf("expected a bare declaration with no initializer to havoc to a free variable")
	}
}
