package value

import (
	"github.com/aclements/go-z3/z3"

	"p4z3/p4err"
	"p4z3/p4ir"
)

// Struct is the shared shape behind P4 structs, headers, and header unions:
// an ordered map from field name to owned Value plus the declared type of
// each field. FieldOrder carries the declaration order so FlattenLeaves and
// Merge traverse fields deterministically — Go maps are order-less, so the
// order lives beside the map rather than being reconstructed from it.
type Struct struct {
	Type       p4ir.TypeRef
	FieldOrder []string
	Fields     map[string]Value
	FieldTypes map[string]p4ir.TypeRef
}

func (s *Struct) copyFields() (map[string]Value, map[string]p4ir.TypeRef) {
	fields := make(map[string]Value, len(s.Fields))
	types := make(map[string]p4ir.TypeRef, len(s.FieldTypes))
	for _, name := range s.FieldOrder {
		fields[name] = s.Fields[name].Copy()
		types[name] = s.FieldTypes[name]
	}
	return fields, types
}

func (s *Struct) Copy() Value {
	order := append([]string(nil), s.FieldOrder...)
	fields, types := s.copyFields()
	return &Struct{Type: s.Type, FieldOrder: order, Fields: fields, FieldTypes: types}
}

func (s *Struct) mergeFieldsFrom(ctx *z3.Context, cond z3.Bool, other *Struct) {
	if len(other.FieldOrder) != len(s.FieldOrder) {
		p4err.Fatalf(p4err.KindInvariantViolation, "Struct.Merge: field count mismatch")
	}
	for _, name := range s.FieldOrder {
		ov, ok := other.Fields[name]
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "Struct.Merge: missing field %q", name)
		}
		s.Fields[name].Merge(ctx, cond, ov)
	}
}

func (s *Struct) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	os, ok := other.(*Struct)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "Struct.Merge: incompatible operand %T", other)
	}
	s.mergeFieldsFrom(ctx, cond, os)
}

func (s *Struct) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	rt := arena.Resolve(target)
	var targetFields []p4ir.FieldType
	switch ts := arena.Get(rt).(type) {
	case *p4ir.TypeStruct:
		targetFields = ts.Fields
	case *p4ir.TypeHeader:
		targetFields = ts.Fields
	case *p4ir.TypeHeaderUnion:
		targetFields = ts.Fields
	default:
		p4err.Fatalf(p4err.KindUnsupported, "Struct.Cast: target is not a struct, header or header_union type")
	}
	order := make([]string, 0, len(targetFields))
	fields := make(map[string]Value, len(targetFields))
	types := make(map[string]p4ir.TypeRef, len(targetFields))
	for _, f := range targetFields {
		order = append(order, f.Name)
		types[f.Name] = f.Type
		src, ok := s.Fields[f.Name]
		if !ok {
			p4err.Fatalf(p4err.KindInvariantViolation, "Struct.Cast: source has no field %q", f.Name)
		}
		fields[f.Name] = src.Cast(ctx, arena, f.Type)
	}
	return &Struct{Type: rt, FieldOrder: order, Fields: fields, FieldTypes: types}
}

// fieldValue and setField back the generic member-access path in package
// lvalue, which only knows it is holding some composite Value, not which
// concrete tag.
func (s *Struct) fieldValue(name string) Value       { return s.Fields[name] }
func (s *Struct) setField(name string, v Value)      { s.Fields[name] = v }
func (s *Struct) fieldType(name string) p4ir.TypeRef { return s.FieldTypes[name] }

func (s *Struct) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	var out []LeafPath
	for _, name := range s.FieldOrder {
		out = append(out, s.Fields[name].FlattenLeaves(ctx, joinPath(prefix, name))...)
	}
	return out
}

// Header adds a symbolic `valid` bit and validity-propagation on top of
// Struct. Reading a header field while it is invalid does not observe
// whatever bits happen to be stored — per P4_16 semantics it yields an
// unconstrained value, so every leaf FlattenLeaves reports is gated as
// ite(valid, stored, havoc).
type Header struct {
	Struct
	Valid z3.Bool
}

func (h *Header) Copy() Value {
	order := append([]string(nil), h.FieldOrder...)
	fields, types := h.copyFields()
	return &Header{Struct: Struct{Type: h.Type, FieldOrder: order, Fields: fields, FieldTypes: types}, Valid: h.Valid}
}

func (h *Header) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	oh, ok := other.(*Header)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "Header.Merge: incompatible operand %T", other)
	}
	h.mergeFieldsFrom(ctx, cond, &oh.Struct)
	h.Valid = cond.Ite(oh.Valid, h.Valid).(z3.Bool)
}

func (h *Header) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	cast := h.Struct.Cast(ctx, arena, target).(*Struct)
	return &Header{Struct: *cast, Valid: h.Valid}
}

func (h *Header) FlattenLeaves(ctx *z3.Context, prefix string) []LeafPath {
	out := h.Struct.FlattenLeaves(ctx, prefix)
	for i, leaf := range out {
		out[i].Expr = gateInvalid(ctx, h.Valid, leaf)
	}
	return append(out, LeafPath{Path: joinPath(prefix, "$valid"), Expr: h.Valid})
}

// gateInvalid wraps a leaf read through an invalid header in a fresh,
// unconstrained stand-in of the same sort, so an invalid read never observes
// whatever bits happen to be stored. A header's own fields are always
// fixed-width bit/bool-shaped per P4_16, so a plain bitvector/bool type
// switch covers every leaf this ever sees; nested composites gate their own
// leaves via their own Valid bit instead.
func gateInvalid(ctx *z3.Context, valid z3.Bool, leaf LeafPath) z3.Value {
	switch e := leaf.Expr.(type) {
	case z3.BV:
		invalid := ctx.Const(leaf.Path+".$invalid", e.Sort()).(z3.BV)
		return valid.Ite(e, invalid)
	case z3.Bool:
		invalid := ctx.BoolConst(leaf.Path + ".$invalid")
		return valid.Ite(e, invalid)
	default:
		p4err.Fatalf(p4err.KindUnsupported, "Header.FlattenLeaves: unsupported leaf kind %T", leaf.Expr)
		panic("unreachable")
	}
}

// GateHeaderField reconstructs fv, a value read directly off a header field
// outside FlattenLeaves (package lvalue's member-access read path), wrapped
// in ite(valid, stored, havoc) — the same gating FlattenLeaves applies when
// flattening a header's leaves. path names the fresh invalid placeholder.
// P4_16 header fields are always bit/bool/serializable-enum shaped; any
// other value is returned unchanged.
func GateHeaderField(ctx *z3.Context, valid z3.Bool, path string, fv Value) Value {
	switch t := fv.(type) {
	case *Bitvector:
		leaf := t.FlattenLeaves(ctx, path)[0]
		gated := gateInvalid(ctx, valid, leaf)
		if t.IsBool() {
			return Bool32(gated.(z3.Bool))
		}
		return &Bitvector{BV: gated.(z3.BV), Signed: t.Signed}
	case *SerEnum:
		return &SerEnum{Type: t.Type, Members: t.Members, Expr: GateHeaderField(ctx, valid, path, t.Expr).(*Bitvector)}
	default:
		return fv
	}
}

// SetValid marks the header valid.
func (h *Header) SetValid(ctx *z3.Context) { h.Valid = ctx.FromBool(true) }

// SetInvalid marks the header invalid.
func (h *Header) SetInvalid(ctx *z3.Context) { h.Valid = ctx.FromBool(false) }

// IsValid returns the header's validity expression as a boolean Bitvector.
func (h *Header) IsValid() *Bitvector { return Bool32(h.Valid) }

// PropagateValidity sets Valid to *opt (if opt is non-nil) or a fresh
// boolean constant named after memberID, then recurses into any nested
// Header fields so their validity symbolically tracks the outer one.
func (h *Header) PropagateValidity(ctx *z3.Context, opt *z3.Bool, memberID string) {
	if opt != nil {
		h.Valid = *opt
	} else {
		h.Valid = ctx.BoolConst(memberID + ".$valid")
	}
	for _, name := range h.FieldOrder {
		if nested, ok := h.Fields[name].(*Header); ok {
			nested.PropagateValidity(ctx, &h.Valid, joinPath(memberID, name))
		}
	}
}

// HeaderUnion shares Struct's field storage — its members are themselves
// Headers, each carrying its own Valid bit, and P4_16 guarantees at most one
// member is valid at a time (enforced by the interpreter's setValid calls,
// not by this type).
type HeaderUnion struct {
	Struct
}

func (u *HeaderUnion) Copy() Value {
	order := append([]string(nil), u.FieldOrder...)
	fields, types := u.copyFields()
	return &HeaderUnion{Struct{Type: u.Type, FieldOrder: order, Fields: fields, FieldTypes: types}}
}

func (u *HeaderUnion) Merge(ctx *z3.Context, cond z3.Bool, other Value) {
	ou, ok := other.(*HeaderUnion)
	if !ok {
		p4err.Fatalf(p4err.KindInvariantViolation, "HeaderUnion.Merge: incompatible operand %T", other)
	}
	u.mergeFieldsFrom(ctx, cond, &ou.Struct)
}

func (u *HeaderUnion) Cast(ctx *z3.Context, arena *p4ir.TypeArena, target p4ir.TypeRef) Value {
	cast := u.Struct.Cast(ctx, arena, target).(*Struct)
	return &HeaderUnion{*cast}
}
