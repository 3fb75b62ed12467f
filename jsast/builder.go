// Copyright © 2024 The ELPS authors

package jsast

// Builder appends nodes to a Tree. The parser uses it to convert goja
// syntax trees and tests use it to construct trees directly.
type Builder struct {
	t *Tree
}

// NewBuilder returns a builder for a tree over src.
func NewBuilder(file string, src []byte) *Builder {
	return &Builder{t: &Tree{File: file, Source: src, Root: NoNode}}
}

// Add appends n and returns its id.
func (b *Builder) Add(n Node) NodeID {
	id := NodeID(len(b.t.Nodes))
	b.t.Nodes = append(b.t.Nodes, n)
	return id
}

// SetChildren replaces the children of id. Converters use it when a node
// must be allocated before its children.
func (b *Builder) SetChildren(id NodeID, children ...NodeID) {
	b.t.Nodes[id].Children = children
}

// Node returns the node for id for in-place adjustment during construction.
func (b *Builder) Node(id NodeID) *Node {
	return &b.t.Nodes[id]
}

// Finish sets the root and returns the tree. The builder must not be used
// afterwards.
func (b *Builder) Finish(root NodeID) *Tree {
	t := b.t
	t.Root = root
	b.t = nil
	return t
}

// Stmt adds a statement node of kind k.
func (b *Builder) Stmt(k Kind, children ...NodeID) NodeID {
	return b.Add(Node{Kind: k, Children: children})
}

// Program adds a program node.
func (b *Builder) Program(stmts ...NodeID) NodeID {
	return b.Stmt(KindProgram, stmts...)
}

// Block adds a block statement.
func (b *Builder) Block(stmts ...NodeID) NodeID {
	return b.Stmt(KindBlock, stmts...)
}

// Expr adds an expression statement.
func (b *Builder) Expr(x NodeID) NodeID {
	return b.Stmt(KindExprStmt, x)
}

// Var adds a `var` declaration of a single name with an optional initializer.
func (b *Builder) Var(name string, init NodeID) NodeID {
	return b.Stmt(KindVarDecl, b.Decl(b.Ref(name), init))
}

// Let adds a `let` declaration of a single name.
func (b *Builder) Let(name string, init NodeID) NodeID {
	id := b.Var(name, init)
	b.t.Nodes[id].Flags |= FlagLet
	return id
}

// Decl adds a declarator.
func (b *Builder) Decl(target, init NodeID) NodeID {
	return b.Add(Node{Kind: KindDecl, Children: []NodeID{target, init}})
}

// Ref adds an identifier reference.
func (b *Builder) Ref(name string) NodeID {
	return b.Add(Node{Kind: KindRef, Name: name})
}

// Num adds a number literal.
func (b *Builder) Num(raw string) NodeID {
	return b.Add(Node{Kind: KindLiteral, Flags: FlagNumber, Value: raw, Name: raw})
}

// Str adds a string literal with the given cooked value.
func (b *Builder) Str(s string) NodeID {
	return b.Add(Node{Kind: KindLiteral, Flags: FlagString, Value: `"` + s + `"`, Name: s})
}

// Op adds an operation node.
func (b *Builder) Op(op Op, operands ...NodeID) NodeID {
	return b.Add(Node{Kind: KindOp, Op: op, Children: operands})
}

// Assign adds `name = value`.
func (b *Builder) Assign(name string, value NodeID) NodeID {
	return b.Op(OpAssign, b.Ref(name), value)
}

// Call adds a call of the named function.
func (b *Builder) Call(name string, args ...NodeID) NodeID {
	return b.Op(OpCall, append([]NodeID{b.Ref(name)}, args...)...)
}

// If adds an if statement. els may be NoNode.
func (b *Builder) If(test, then, els NodeID) NodeID {
	return b.Stmt(KindIf, test, then, els)
}

// Return adds a return statement. arg may be NoNode.
func (b *Builder) Return(arg NodeID) NodeID {
	return b.Stmt(KindReturn, arg)
}

// Throw adds a throw statement.
func (b *Builder) Throw(arg NodeID) NodeID {
	return b.Stmt(KindThrow, arg)
}

// Break adds a break statement with an optional label.
func (b *Builder) Break(label string) NodeID {
	return b.Add(Node{Kind: KindBreak, Name: label})
}

// Continue adds a continue statement with an optional label.
func (b *Builder) Continue(label string) NodeID {
	return b.Add(Node{Kind: KindContinue, Name: label})
}

// Labeled adds a labeled statement.
func (b *Builder) Labeled(label string, stmt NodeID) NodeID {
	return b.Add(Node{Kind: KindLabeled, Name: label, Children: []NodeID{stmt}})
}

// While adds a while loop.
func (b *Builder) While(test, body NodeID) NodeID {
	return b.Stmt(KindWhile, test, body)
}

// Try adds a try statement. catch and finally may be NoNode.
func (b *Builder) Try(block, catch, finally NodeID) NodeID {
	return b.Stmt(KindTry, block, catch, finally)
}

// Catch adds a catch clause binding param.
func (b *Builder) Catch(param string, body NodeID) NodeID {
	p := NoNode
	if param != "" {
		p = b.Ref(param)
	}
	return b.Stmt(KindCatch, p, body)
}

// Function adds a function. name may be empty; params are bound names.
func (b *Builder) Function(flags Flags, name string, params []string, body NodeID) NodeID {
	children := []NodeID{NoNode}
	if name != "" {
		children[0] = b.Ref(name)
	}
	for _, p := range params {
		children = append(children, b.Decl(b.Ref(p), NoNode))
	}
	children = append(children, body)
	return b.Add(Node{Kind: KindFunction, Name: name, Flags: flags, Children: children})
}
