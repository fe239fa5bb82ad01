package p4ir

// Program is the fixed input contract: a type arena plus a declaration
// list in source declaration order. The type-fill pass (typefill.Fill)
// visits Decls once, in order, before the interpreter pass ever runs.
type Program struct {
	Arena *TypeArena
	Decls []Decl
}
