// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/jscheck/jsast"

// DeclKind classifies a declaration.
type DeclKind int

const (
	DeclVar          DeclKind = iota // var
	DeclLet                          // let
	DeclConst                        // const
	DeclFunction                     // function statement
	DeclFunctionName                 // function expression self name
	DeclParam                        // function parameter
	DeclCatchParam                   // catch clause parameter
	DeclClass                        // class statement
	DeclClassName                    // class expression self name
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	case DeclFunction:
		return "function"
	case DeclFunctionName:
		return "function-name"
	case DeclParam:
		return "parameter"
	case DeclCatchParam:
		return "catch-parameter"
	case DeclClass:
		return "class"
	case DeclClassName:
		return "class-name"
	default:
		return "unknown"
	}
}

// IsSelfName reports whether k names a function or class expression inside
// itself.
func (k DeclKind) IsSelfName() bool {
	return k == DeclFunctionName || k == DeclClassName
}

// IsLexical reports whether k is block scoped when block scoping is on.
func (k DeclKind) IsLexical() bool {
	return k == DeclLet || k == DeclConst || k == DeclClass
}

// Declaration is one site that introduces a name.
type Declaration struct {
	Name string
	Kind DeclKind

	// Node is the identifier node naming the declaration.
	Node jsast.NodeID

	// Site is the node that owns the declaration: a Decl, Function, Class
	// or Catch node.
	Site jsast.NodeID

	// Syntactic is the scope the declaration appears in; Scope is the scope
	// it is registered in after hoisting.
	Syntactic *Scope
	Scope     *Scope

	// Block is the innermost block or case clause containing the
	// declaration within its function, or NoNode.
	Block jsast.NodeID

	// Init reports whether the declaration assigns a value where it
	// appears.
	Init bool

	// Alias is set on a function expression self name whose function is
	// assigned to a target with the same name, as in var f = function f(){}.
	Alias bool

	// split is the catch scope a hoisted initializer would assign into.
	split *Scope
}

// Symbol aggregates every declaration of one name in one scope.
type Symbol struct {
	Name  string
	Scope *Scope
	Decls []*Declaration
}

// First returns the first declaration of the symbol.
func (s *Symbol) First() *Declaration {
	return s.Decls[0]
}

// SymbolTable maps names to symbols for one scope. Names enumerate in
// insertion order. There is no removal.
type SymbolTable struct {
	syms  map[string]*Symbol
	names []string
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[string]*Symbol)}
}

// Declare appends d to the symbol for name, creating it if needed.
func (t *SymbolTable) Declare(name string, d *Declaration) *Symbol {
	sym, ok := t.syms[name]
	if !ok {
		sym = &Symbol{Name: name}
		t.syms[name] = sym
		t.names = append(t.names, name)
	}
	if d != nil {
		sym.Scope = d.Scope
		sym.Decls = append(sym.Decls, d)
	}
	return sym
}

// Symbol returns the symbol for name or nil.
func (t *SymbolTable) Symbol(name string) *Symbol {
	return t.syms[name]
}

// Names returns the declared names in insertion order.
func (t *SymbolTable) Names() []string {
	return t.names
}

// Len returns the number of names in the table.
func (t *SymbolTable) Len() int {
	return len(t.names)
}
