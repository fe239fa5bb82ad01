package p4ir

import (
	"bytes"
	"encoding/gob"
	"io"
)

// GobEncode/GobDecode let a *TypeArena round-trip through gob despite its
// fields being unexported (gob only sees exported struct fields by
// default, and TypeArena's slice/map indirection through TypeRef needs to
// stay unexported for every other package — only p4ir itself constructs or
// mutates a TypeArena directly).
func (a *TypeArena) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(a.types); err != nil {
		return nil, err
	}
	if err := enc.Encode(a.names); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *TypeArena) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&a.types); err != nil {
		return err
	}
	return dec.Decode(&a.names)
}

// This module's input contract is an already-parsed Go AST (§1 scopes out a
// real P4 front-end), so the serialization format for that AST is this
// module's own concern. gob is the only option in reach that round-trips a
// tagged interface union (Expr/Stmt/Decl/Type) without hand-written
// marshal/unmarshal code per node kind, so every concrete type below is
// registered once at package init.
func init() {
	gob.Register(&PathExpression{})
	gob.Register(&Member{})
	gob.Register(&ArrayIndex{})
	gob.Register(&Constant{})
	gob.Register(&BoolLiteral{})
	gob.Register(&Binary{})
	gob.Register(&Unary{})
	gob.Register(&MethodCallExpression{})
	gob.Register(&StructExpression{})
	gob.Register(&Mux{})
	gob.Register(&Cast{})
	gob.Register(&Slice{})
	gob.Register(&ListExpression{})
	gob.Register(&SelectExpression{})
	gob.Register(&TypeNameExpression{})
	gob.Register(&NamedExpr{})

	gob.Register(&BlockStatement{})
	gob.Register(&AssignmentStatement{})
	gob.Register(&IfStatement{})
	gob.Register(&SwitchStatement{})
	gob.Register(&MethodCallStatement{})
	gob.Register(&ReturnStatement{})
	gob.Register(&ExitStatement{})
	gob.Register(&EmptyStatement{})
	gob.Register(&DeclarationStatement{})

	gob.Register(&DeclConstant{})
	gob.Register(&DeclVariable{})
	gob.Register(&DeclInstance{})
	gob.Register(&P4Action{})
	gob.Register(&Function{})
	gob.Register(&Method{})
	gob.Register(&P4Table{})
	gob.Register(&P4Control{})
	gob.Register(&P4Parser{})
	gob.Register(&P4Package{})
	gob.Register(&ValueSet{})
	gob.Register(&TypeDecl{})

	gob.Register(&TypeBool{})
	gob.Register(&TypeVoid{})
	gob.Register(&TypeInfInt{})
	gob.Register(&TypeBits{})
	gob.Register(&TypeVarbits{})
	gob.Register(&TypeStruct{})
	gob.Register(&TypeHeader{})
	gob.Register(&TypeHeaderUnion{})
	gob.Register(&TypeStack{})
	gob.Register(&TypeEnum{})
	gob.Register(&TypeSerEnum{})
	gob.Register(&TypeError{})
	gob.Register(&TypeExtern{})
	gob.Register(&TypeName{})
	gob.Register(&TypeTypedef{})
	gob.Register(&TypeNewtype{})
	gob.Register(&TypeControl{})
	gob.Register(&TypeParser{})
	gob.Register(&TypePackage{})
}

// EncodeProgram writes prog to w in this module's wire format.
func EncodeProgram(w io.Writer, prog *Program) error {
	return gob.NewEncoder(w).Encode(prog)
}

// DecodeProgram reads a Program previously written by EncodeProgram.
func DecodeProgram(r io.Reader) (*Program, error) {
	var prog Program
	if err := gob.NewDecoder(r).Decode(&prog); err != nil {
		return nil, err
	}
	return &prog, nil
}
