// Copyright © 2024 The ELPS authors

// Package jsast defines the JavaScript syntax tree consumed by the scope,
// liveness and lint passes.
//
// Nodes are stored in an arena (Tree.Nodes) and addressed by NodeID. Node
// kinds form a closed set; every pass over the tree switches exhaustively on
// Kind. Passes never mutate nodes to record their results. Per-node facts
// such as the containing scope or the live variable set live in parallel
// Attr tables indexed by NodeID.
package jsast

import "fmt"

// NodeID addresses a node in a Tree.
type NodeID int32

// NoNode fills optional child slots that are absent.
const NoNode NodeID = -1

// Valid reports whether id refers to a node.
func (id NodeID) Valid() bool { return id >= 0 }

// Kind classifies a node.
type Kind uint8

const (
	KindInvalid Kind = iota
	// Statements
	KindProgram  // statements...
	KindBlock    // statements...
	KindEmpty    //
	KindDebugger //
	KindExprStmt // [expr]
	KindVarDecl  // decls... (FlagLet, FlagConst, or neither for var)
	KindDecl     // [target, init|NoNode]
	KindIf       // [test, then, else|NoNode]
	KindWhile    // [test, body]
	KindDoWhile  // [body, test]
	KindFor      // [init|NoNode, test|NoNode, update|NoNode, body]
	KindForIn    // [target, object, body] (FlagForOf)
	KindSwitch   // [discriminant, cases...]
	KindCase     // [test|NoNode, statements...]
	KindBreak    // Name = label
	KindContinue // Name = label
	KindReturn   // [arg|NoNode]
	KindThrow    // [arg]
	KindTry      // [block, catch|NoNode, finally|NoNode]
	KindCatch    // [param|NoNode, body]
	KindLabeled  // Name = label, [statement]
	KindWith     // [object, body]
	// Expressions
	KindFunction // [name|NoNode, params(KindDecl)..., body]
	KindClass    // [name|NoNode, super|NoNode, members(KindProperty)...]
	KindRef      // Name
	KindThis     // Name = "this"
	KindOp       // operands... (Op)
	KindLiteral  // Value = raw text, Name = cooked string value
	KindArray    // elements... (NoNode for holes)
	KindObject   // properties...
	KindProperty // [key|NoNode, value|NoNode]
	KindPattern  // targets... (FlagArrayPattern or FlagObjectPattern)

	numKinds
)

var kindNames = [...]string{
	KindInvalid:  "Invalid",
	KindProgram:  "Program",
	KindBlock:    "Block",
	KindEmpty:    "Empty",
	KindDebugger: "Debugger",
	KindExprStmt: "ExprStmt",
	KindVarDecl:  "VarDecl",
	KindDecl:     "Decl",
	KindIf:       "If",
	KindWhile:    "While",
	KindDoWhile:  "DoWhile",
	KindFor:      "For",
	KindForIn:    "ForIn",
	KindSwitch:   "Switch",
	KindCase:     "Case",
	KindBreak:    "Break",
	KindContinue: "Continue",
	KindReturn:   "Return",
	KindThrow:    "Throw",
	KindTry:      "Try",
	KindCatch:    "Catch",
	KindLabeled:  "Labeled",
	KindWith:     "With",
	KindFunction: "Function",
	KindClass:    "Class",
	KindRef:      "Ref",
	KindThis:     "This",
	KindOp:       "Op",
	KindLiteral:  "Literal",
	KindArray:    "Array",
	KindObject:   "Object",
	KindProperty: "Property",
	KindPattern:  "Pattern",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsStatement reports whether nodes of kind k appear in statement position.
func (k Kind) IsStatement() bool {
	return k >= KindProgram && k <= KindWith
}

// Op identifies the operator of a KindOp node.
type Op uint8

const (
	OpInvalid        Op = iota
	OpAssign            // [target, value]
	OpAssignOp          // [target, value], Value = "+=" etc.
	OpAssignAnd         // [target, value] (&&=)
	OpAssignOr          // [target, value] (||=)
	OpAssignCoalesce    // [target, value] (??=)
	OpAnd               // [left, right]
	OpOr                // [left, right]
	OpCoalesce          // [left, right]
	OpNot               // [operand]
	OpHook              // [test, then, else]
	OpComma             // [exprs...]
	OpCall              // [callee, args...]
	OpNew               // [callee, args...]
	OpDot               // [object], Name = property
	OpIndex             // [object, key]
	OpDelete            // [operand]
	OpTypeof            // [operand]
	OpVoid              // [operand]
	OpUnary             // [operand], Value = "-", "+", "~"
	OpBinary            // [left, right], Value = operator
	OpInc               // [operand] (FlagPostfix)
	OpDec               // [operand] (FlagPostfix)
	OpSpread            // [operand]
	OpTemplate          // [tag|NoNode, chunks and exprs...]
	OpYield             // [arg|NoNode]
	OpAwait             // [arg]
	OpDefault           // [target, init]
	OpOptional          // [expr] optional chain
	OpMeta              // Name = "new.target", "import.meta"
	OpSuper             //

	numOps
)

var opNames = [...]string{
	OpInvalid:        "invalid",
	OpAssign:         "=",
	OpAssignOp:       "op=",
	OpAssignAnd:      "&&=",
	OpAssignOr:       "||=",
	OpAssignCoalesce: "??=",
	OpAnd:            "&&",
	OpOr:             "||",
	OpCoalesce:       "??",
	OpNot:            "!",
	OpHook:           "?:",
	OpComma:          ",",
	OpCall:           "call",
	OpNew:            "new",
	OpDot:            ".",
	OpIndex:          "[]",
	OpDelete:         "delete",
	OpTypeof:         "typeof",
	OpVoid:           "void",
	OpUnary:          "unary",
	OpBinary:         "binary",
	OpInc:            "++",
	OpDec:            "--",
	OpSpread:         "...",
	OpTemplate:       "template",
	OpYield:          "yield",
	OpAwait:          "await",
	OpDefault:        "default",
	OpOptional:       "?.",
	OpMeta:           "meta",
	OpSuper:          "super",
}

func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// IsAssign reports whether op stores into its first operand.
func (op Op) IsAssign() bool {
	switch op {
	case OpAssign, OpAssignOp, OpAssignAnd, OpAssignOr, OpAssignCoalesce:
		return true
	}
	return false
}

// Flags carry per-kind modifiers.
type Flags uint32

const (
	FlagLet           Flags = 1 << iota // VarDecl: let
	FlagConst                           // VarDecl: const
	FlagForOf                           // ForIn: for-of loop
	FlagDeclaration                     // Function, Class: statement form
	FlagArrow                           // Function: arrow function
	FlagExprBody                        // Function: body is an expression
	FlagMethod                          // Function: object or class method
	FlagAsync                           // Function
	FlagGenerator                       // Function
	FlagRest                            // Decl: rest parameter
	FlagPostfix                         // Op: postfix increment/decrement
	FlagComputed                        // Property: computed key
	FlagShorthand                       // Property: shorthand {a}
	FlagStatic                          // Property: static class member
	FlagIdentKey                        // Literal: property key written as a bare identifier
	FlagString                          // Literal
	FlagNumber                          // Literal
	FlagBoolean                         // Literal
	FlagNull                            // Literal
	FlagRegExp                          // Literal
	FlagTemplate                        // Literal: raw template chunk
	FlagArrayPattern                    // Pattern
	FlagObjectPattern                   // Pattern
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Node is a single syntax tree node. Pos and End are 0-based byte offsets of
// the node's source span.
type Node struct {
	Kind     Kind
	Op       Op
	Flags    Flags
	Pos      int
	End      int
	Name     string
	Value    string
	Children []NodeID
}

// Span is a half-open byte range of source text.
type Span struct {
	Pos int
	End int
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Pos }

// Tree is an arena of nodes parsed from one source file.
type Tree struct {
	File   string
	Source []byte
	Nodes  []Node
	Root   NodeID

	lines *LineIndex
}

// Node returns the node for id. It panics on NoNode.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.Nodes) }

// Kind returns the kind of id, or KindInvalid for NoNode.
func (t *Tree) Kind(id NodeID) Kind {
	if !id.Valid() {
		return KindInvalid
	}
	return t.Nodes[id].Kind
}

// Child returns the i-th child of id, or NoNode when out of range.
func (t *Tree) Child(id NodeID, i int) NodeID {
	c := t.Nodes[id].Children
	if i < 0 || i >= len(c) {
		return NoNode
	}
	return c[i]
}

// Span returns the source span of id.
func (t *Tree) Span(id NodeID) Span {
	n := &t.Nodes[id]
	return Span{Pos: n.Pos, End: n.End}
}

// Text returns the source text covered by id.
func (t *Tree) Text(id NodeID) string {
	n := &t.Nodes[id]
	if n.Pos < 0 || n.End > len(t.Source) || n.Pos > n.End {
		return ""
	}
	return string(t.Source[n.Pos:n.End])
}

// Lines returns the line index for the tree's source, building it on first
// use.
func (t *Tree) Lines() *LineIndex {
	if t.lines == nil {
		t.lines = NewLineIndex(t.Source)
	}
	return t.lines
}

// IsOp reports whether id is a KindOp node with operator op.
func (t *Tree) IsOp(id NodeID, op Op) bool {
	if !id.Valid() {
		return false
	}
	n := &t.Nodes[id]
	return n.Kind == KindOp && n.Op == op
}

// FunctionParams returns the parameter declarations of a function node.
func (t *Tree) FunctionParams(fn NodeID) []NodeID {
	c := t.Nodes[fn].Children
	if len(c) < 2 {
		return nil
	}
	return c[1 : len(c)-1]
}

// FunctionBody returns the body of a function node.
func (t *Tree) FunctionBody(fn NodeID) NodeID {
	c := t.Nodes[fn].Children
	return c[len(c)-1]
}
