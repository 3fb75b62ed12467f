// Copyright © 2024 The ELPS authors

package parser

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/token"

	"github.com/luthersystems/jscheck/jsast"
)

type converter struct {
	b        *jsast.Builder
	shift    int
	size     int
	branches map[int]branch
}

func newConverter(filename string, src []byte, shift int) *converter {
	return &converter{
		b:     jsast.NewBuilder(filename, src),
		shift: shift,
		size:  len(src),
	}
}

func (c *converter) offset(idx file.Idx) int {
	off := int(idx) - 1 - c.shift
	if off < 0 {
		return 0
	}
	if off > c.size {
		return c.size
	}
	return off
}

func (c *converter) add(src ast.Node, n jsast.Node) jsast.NodeID {
	if src != nil {
		n.Pos = c.offset(src.Idx0())
		n.End = c.offset(src.Idx1())
		if n.End < n.Pos {
			n.End = n.Pos
		}
	}
	return c.b.Add(n)
}

func (c *converter) addSpan(pos, end file.Idx, n jsast.Node) jsast.NodeID {
	n.Pos = c.offset(pos)
	n.End = c.offset(end)
	if n.End < n.Pos {
		n.End = n.Pos
	}
	return c.b.Add(n)
}

func (c *converter) program(body []ast.Statement) *jsast.Tree {
	stmts := c.stmts(body)
	root := c.b.Add(jsast.Node{Kind: jsast.KindProgram, Pos: 0, End: c.size, Children: stmts})
	return c.b.Finish(root)
}

func (c *converter) stmts(list []ast.Statement) []jsast.NodeID {
	ids := make([]jsast.NodeID, 0, len(list))
	for _, s := range list {
		ids = append(ids, c.stmt(s))
	}
	return ids
}

func (c *converter) optStmt(s ast.Statement) jsast.NodeID {
	if s == nil {
		return jsast.NoNode
	}
	return c.stmt(s)
}

func (c *converter) optExpr(e ast.Expression) jsast.NodeID {
	if e == nil {
		return jsast.NoNode
	}
	return c.expr(e)
}

func (c *converter) stmt(s ast.Statement) jsast.NodeID {
	switch s := s.(type) {
	case *ast.BlockStatement:
		return c.block(s)
	case *ast.EmptyStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindEmpty})
	case *ast.BadStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindEmpty})
	case *ast.DebuggerStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindDebugger})
	case *ast.ExpressionStatement:
		if id, ok := c.recovered(s); ok {
			return id
		}
		return c.add(s, jsast.Node{Kind: jsast.KindExprStmt, Children: []jsast.NodeID{c.expr(s.Expression)}})
	case *ast.VariableStatement:
		return c.varDecl(s, 0, s.List)
	case *ast.LexicalDeclaration:
		return c.varDecl(s, lexicalFlags(s.Token), s.List)
	case *ast.FunctionDeclaration:
		return c.function(s.Function, jsast.FlagDeclaration)
	case *ast.ClassDeclaration:
		return c.class(s.Class, jsast.FlagDeclaration)
	case *ast.IfStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindIf, Children: []jsast.NodeID{
			c.expr(s.Test), c.stmt(s.Consequent), c.optStmt(s.Alternate),
		}})
	case *ast.WhileStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindWhile, Children: []jsast.NodeID{
			c.expr(s.Test), c.stmt(s.Body),
		}})
	case *ast.DoWhileStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindDoWhile, Children: []jsast.NodeID{
			c.stmt(s.Body), c.expr(s.Test),
		}})
	case *ast.ForStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindFor, Children: []jsast.NodeID{
			c.forInit(s.Initializer), c.optExpr(s.Test), c.optExpr(s.Update), c.stmt(s.Body),
		}})
	case *ast.ForInStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindForIn, Children: []jsast.NodeID{
			c.forInto(s.Into), c.expr(s.Source), c.stmt(s.Body),
		}})
	case *ast.ForOfStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindForIn, Flags: jsast.FlagForOf, Children: []jsast.NodeID{
			c.forInto(s.Into), c.expr(s.Source), c.stmt(s.Body),
		}})
	case *ast.SwitchStatement:
		children := []jsast.NodeID{c.expr(s.Discriminant)}
		for _, cs := range s.Body {
			children = append(children, c.caseClause(cs))
		}
		return c.add(s, jsast.Node{Kind: jsast.KindSwitch, Children: children})
	case *ast.CaseStatement:
		return c.caseClause(s)
	case *ast.BranchStatement:
		kind := jsast.KindBreak
		if s.Token == token.CONTINUE {
			kind = jsast.KindContinue
		}
		n := jsast.Node{Kind: kind}
		if s.Label != nil {
			n.Name = s.Label.Name.String()
		}
		return c.add(s, n)
	case *ast.ReturnStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindReturn, Children: []jsast.NodeID{c.optExpr(s.Argument)}})
	case *ast.ThrowStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindThrow, Children: []jsast.NodeID{c.expr(s.Argument)}})
	case *ast.TryStatement:
		catch := jsast.NoNode
		if s.Catch != nil {
			catch = c.catchClause(s.Catch)
		}
		finally := jsast.NoNode
		if s.Finally != nil {
			finally = c.block(s.Finally)
		}
		return c.add(s, jsast.Node{Kind: jsast.KindTry, Children: []jsast.NodeID{c.block(s.Body), catch, finally}})
	case *ast.CatchStatement:
		return c.catchClause(s)
	case *ast.LabelledStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindLabeled, Name: s.Label.Name.String(), Children: []jsast.NodeID{c.stmt(s.Statement)}})
	case *ast.WithStatement:
		return c.add(s, jsast.Node{Kind: jsast.KindWith, Children: []jsast.NodeID{c.expr(s.Object), c.stmt(s.Body)}})
	}
	panic(fmt.Sprintf("parser: unhandled statement %T", s))
}

func (c *converter) block(s *ast.BlockStatement) jsast.NodeID {
	return c.add(s, jsast.Node{Kind: jsast.KindBlock, Children: c.stmts(s.List)})
}

// recovered returns the branch node for a statement blanked by
// recoverBranches.
func (c *converter) recovered(s *ast.ExpressionStatement) (jsast.NodeID, bool) {
	if _, ok := s.Expression.(*ast.NumberLiteral); !ok {
		return jsast.NoNode, false
	}
	pos := c.offset(s.Idx0())
	b, ok := c.branches[pos]
	if !ok {
		return jsast.NoNode, false
	}
	return c.b.Add(jsast.Node{Kind: b.kind, Name: b.label, Pos: pos, End: b.end}), true
}

func (c *converter) caseClause(s *ast.CaseStatement) jsast.NodeID {
	children := []jsast.NodeID{c.optExpr(s.Test)}
	children = append(children, c.stmts(s.Consequent)...)
	// CaseStatement.Idx1 indexes the last consequent, so empty clauses end
	// after their test or keyword.
	var end file.Idx
	switch {
	case len(s.Consequent) > 0:
		end = s.Consequent[len(s.Consequent)-1].Idx1()
	case s.Test != nil:
		end = s.Test.Idx1() + 1
	default:
		end = s.Case + file.Idx(len("default:"))
	}
	return c.addSpan(s.Case, end, jsast.Node{Kind: jsast.KindCase, Children: children})
}

func (c *converter) catchClause(s *ast.CatchStatement) jsast.NodeID {
	param := jsast.NoNode
	if s.Parameter != nil {
		param = c.target(s.Parameter)
	}
	return c.add(s, jsast.Node{Kind: jsast.KindCatch, Children: []jsast.NodeID{param, c.block(s.Body)}})
}

func lexicalFlags(tok token.Token) jsast.Flags {
	if tok == token.CONST {
		return jsast.FlagConst
	}
	return jsast.FlagLet
}

func (c *converter) varDecl(src ast.Node, flags jsast.Flags, list []*ast.Binding) jsast.NodeID {
	decls := make([]jsast.NodeID, 0, len(list))
	for _, b := range list {
		decls = append(decls, c.binding(b, 0))
	}
	return c.add(src, jsast.Node{Kind: jsast.KindVarDecl, Flags: flags, Children: decls})
}

func (c *converter) binding(b *ast.Binding, flags jsast.Flags) jsast.NodeID {
	target := c.target(b.Target)
	init := c.optExpr(b.Initializer)
	end := b.Target.Idx1()
	if b.Initializer != nil {
		end = b.Initializer.Idx1()
	}
	return c.addSpan(b.Target.Idx0(), end, jsast.Node{Kind: jsast.KindDecl, Flags: flags, Children: []jsast.NodeID{target, init}})
}

func (c *converter) forInit(init ast.ForLoopInitializer) jsast.NodeID {
	switch init := init.(type) {
	case nil:
		return jsast.NoNode
	case *ast.ForLoopInitializerExpression:
		return c.expr(init.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		return c.varDecl(init, 0, init.List)
	case *ast.ForLoopInitializerLexicalDecl:
		return c.varDecl(&init.LexicalDeclaration, lexicalFlags(init.LexicalDeclaration.Token), init.LexicalDeclaration.List)
	}
	panic(fmt.Sprintf("parser: unhandled for initializer %T", init))
}

func (c *converter) forInto(into ast.ForInto) jsast.NodeID {
	switch into := into.(type) {
	case *ast.ForIntoVar:
		return c.varDecl(into, 0, []*ast.Binding{into.Binding})
	case *ast.ForDeclaration:
		flags := jsast.FlagLet
		if into.IsConst {
			flags = jsast.FlagConst
		}
		return c.varDecl(into, flags, []*ast.Binding{{Target: into.Target}})
	case *ast.ForIntoExpression:
		return c.target(into.Expression)
	}
	panic(fmt.Sprintf("parser: unhandled for-in target %T", into))
}

// target converts a binding or assignment target. Inside patterns an
// assignment expression denotes a default value.
func (c *converter) target(e ast.Expression) jsast.NodeID {
	switch e := e.(type) {
	case *ast.Identifier:
		return c.ident(e)
	case *ast.ArrayPattern:
		children := make([]jsast.NodeID, 0, len(e.Elements)+1)
		for _, el := range e.Elements {
			if el == nil {
				children = append(children, jsast.NoNode)
				continue
			}
			children = append(children, c.target(el))
		}
		if e.Rest != nil {
			children = append(children, c.add(e.Rest, jsast.Node{Kind: jsast.KindOp, Op: jsast.OpSpread, Children: []jsast.NodeID{c.target(e.Rest)}}))
		}
		return c.add(e, jsast.Node{Kind: jsast.KindPattern, Flags: jsast.FlagArrayPattern, Children: children})
	case *ast.ObjectPattern:
		children := make([]jsast.NodeID, 0, len(e.Properties)+1)
		for _, p := range e.Properties {
			children = append(children, c.patternProperty(p))
		}
		if e.Rest != nil {
			children = append(children, c.add(e.Rest, jsast.Node{Kind: jsast.KindOp, Op: jsast.OpSpread, Children: []jsast.NodeID{c.target(e.Rest)}}))
		}
		return c.add(e, jsast.Node{Kind: jsast.KindPattern, Flags: jsast.FlagObjectPattern, Children: children})
	case *ast.AssignExpression:
		if e.Operator == token.ASSIGN {
			return c.add(e, jsast.Node{Kind: jsast.KindOp, Op: jsast.OpDefault, Children: []jsast.NodeID{c.target(e.Left), c.expr(e.Right)}})
		}
	}
	return c.expr(e)
}

func (c *converter) patternProperty(p ast.Property) jsast.NodeID {
	switch p := p.(type) {
	case *ast.PropertyShort:
		key := c.keyLiteral(&ast.StringLiteral{Idx: p.Name.Idx, Literal: p.Name.Name.String(), Value: p.Name.Name})
		value := c.ident(&p.Name)
		if p.Initializer != nil {
			value = c.add(p, jsast.Node{Kind: jsast.KindOp, Op: jsast.OpDefault, Children: []jsast.NodeID{value, c.expr(p.Initializer)}})
		}
		return c.add(p, jsast.Node{Kind: jsast.KindProperty, Flags: jsast.FlagShorthand, Name: p.Name.Name.String(), Children: []jsast.NodeID{key, value}})
	case *ast.PropertyKeyed:
		key, flags, name := c.propertyKey(p.Key, p.Computed)
		return c.add(p, jsast.Node{Kind: jsast.KindProperty, Flags: flags, Name: name, Children: []jsast.NodeID{key, c.target(p.Value)}})
	case *ast.SpreadElement:
		return c.add(p, jsast.Node{Kind: jsast.KindOp, Op: jsast.OpSpread, Children: []jsast.NodeID{c.target(p.Expression)}})
	}
	return c.expr(p)
}

func (c *converter) ident(id *ast.Identifier) jsast.NodeID {
	return c.add(id, jsast.Node{Kind: jsast.KindRef, Name: id.Name.String()})
}

// keyLiteral converts a non-computed property key. Keys written as bare
// identifiers carry FlagIdentKey.
func (c *converter) keyLiteral(lit *ast.StringLiteral) jsast.NodeID {
	flags := jsast.FlagString
	if raw := lit.Literal; raw == "" || (raw[0] != '"' && raw[0] != '\'') {
		flags |= jsast.FlagIdentKey
	}
	return c.addSpan(lit.Idx, lit.Idx+file.Idx(len(lit.Literal)), jsast.Node{
		Kind:  jsast.KindLiteral,
		Flags: flags,
		Value: lit.Literal,
		Name:  lit.Value.String(),
	})
}

func (c *converter) propertyKey(key ast.Expression, computed bool) (jsast.NodeID, jsast.Flags, string) {
	if computed {
		return c.expr(key), jsast.FlagComputed, ""
	}
	switch k := key.(type) {
	case *ast.StringLiteral:
		return c.keyLiteral(k), 0, k.Value.String()
	case *ast.NumberLiteral:
		return c.expr(k), 0, k.Literal
	case *ast.PrivateIdentifier:
		name := "#" + k.Name.String()
		return c.add(k, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagIdentKey, Value: name, Name: name}), 0, name
	case nil:
		return jsast.NoNode, 0, ""
	}
	return c.expr(key), jsast.FlagComputed, ""
}

func (c *converter) exprs(list []ast.Expression) []jsast.NodeID {
	ids := make([]jsast.NodeID, 0, len(list))
	for _, e := range list {
		ids = append(ids, c.optExpr(e))
	}
	return ids
}

func (c *converter) op(src ast.Node, op jsast.Op, operands ...jsast.NodeID) jsast.NodeID {
	return c.add(src, jsast.Node{Kind: jsast.KindOp, Op: op, Children: operands})
}

func (c *converter) expr(e ast.Expression) jsast.NodeID {
	switch e := e.(type) {
	case *ast.Identifier:
		return c.ident(e)
	case *ast.ThisExpression:
		return c.add(e, jsast.Node{Kind: jsast.KindThis, Name: "this"})
	case *ast.SuperExpression:
		return c.op(e, jsast.OpSuper)
	case *ast.StringLiteral:
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagString, Value: e.Literal, Name: e.Value.String()})
	case *ast.NumberLiteral:
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagNumber, Value: e.Literal, Name: e.Literal})
	case *ast.BooleanLiteral:
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagBoolean, Value: e.Literal, Name: e.Literal})
	case *ast.NullLiteral:
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagNull, Value: "null", Name: "null"})
	case *ast.RegExpLiteral:
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagRegExp, Value: e.Literal, Name: e.Pattern})
	case *ast.BadExpression:
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral})
	case *ast.TemplateLiteral:
		return c.template(e)
	case *ast.ArrayLiteral:
		return c.add(e, jsast.Node{Kind: jsast.KindArray, Children: c.exprs(e.Value)})
	case *ast.ObjectLiteral:
		props := make([]jsast.NodeID, 0, len(e.Value))
		for _, p := range e.Value {
			props = append(props, c.property(p))
		}
		return c.add(e, jsast.Node{Kind: jsast.KindObject, Children: props})
	case *ast.ArrayPattern, *ast.ObjectPattern:
		return c.target(e)
	case *ast.SpreadElement:
		return c.op(e, jsast.OpSpread, c.expr(e.Expression))
	case *ast.FunctionLiteral:
		return c.function(e, 0)
	case *ast.ArrowFunctionLiteral:
		return c.arrow(e)
	case *ast.ClassLiteral:
		return c.class(e, 0)
	case *ast.AssignExpression:
		return c.assign(e)
	case *ast.BinaryExpression:
		var op jsast.Op
		switch e.Operator {
		case token.LOGICAL_AND:
			op = jsast.OpAnd
		case token.LOGICAL_OR:
			op = jsast.OpOr
		case token.COALESCE:
			op = jsast.OpCoalesce
		default:
			id := c.op(e, jsast.OpBinary, c.expr(e.Left), c.expr(e.Right))
			c.b.Node(id).Value = e.Operator.String()
			return id
		}
		return c.op(e, op, c.expr(e.Left), c.expr(e.Right))
	case *ast.ConditionalExpression:
		return c.op(e, jsast.OpHook, c.expr(e.Test), c.expr(e.Consequent), c.expr(e.Alternate))
	case *ast.SequenceExpression:
		return c.op(e, jsast.OpComma, c.exprs(e.Sequence)...)
	case *ast.UnaryExpression:
		return c.unary(e)
	case *ast.CallExpression:
		return c.op(e, jsast.OpCall, append([]jsast.NodeID{c.expr(e.Callee)}, c.exprs(e.ArgumentList)...)...)
	case *ast.NewExpression:
		return c.op(e, jsast.OpNew, append([]jsast.NodeID{c.expr(e.Callee)}, c.exprs(e.ArgumentList)...)...)
	case *ast.DotExpression:
		id := c.op(e, jsast.OpDot, c.expr(e.Left))
		c.b.Node(id).Name = e.Identifier.Name.String()
		return id
	case *ast.PrivateDotExpression:
		id := c.op(e, jsast.OpDot, c.expr(e.Left))
		c.b.Node(id).Name = "#" + e.Identifier.Name.String()
		return id
	case *ast.BracketExpression:
		return c.op(e, jsast.OpIndex, c.expr(e.Left), c.expr(e.Member))
	case *ast.OptionalChain:
		return c.op(e, jsast.OpOptional, c.expr(e.Expression))
	case *ast.Optional:
		return c.expr(e.Expression)
	case *ast.YieldExpression:
		return c.op(e, jsast.OpYield, c.optExpr(e.Argument))
	case *ast.AwaitExpression:
		return c.op(e, jsast.OpAwait, c.expr(e.Argument))
	case *ast.MetaProperty:
		id := c.op(e, jsast.OpMeta)
		c.b.Node(id).Name = e.Meta.Name.String() + "." + e.Property.Name.String()
		return id
	case *ast.PrivateIdentifier:
		name := "#" + e.Name.String()
		return c.add(e, jsast.Node{Kind: jsast.KindLiteral, Flags: jsast.FlagIdentKey, Value: name, Name: name})
	}
	panic(fmt.Sprintf("parser: unhandled expression %T", e))
}

func (c *converter) assign(e *ast.AssignExpression) jsast.NodeID {
	var op jsast.Op
	value := ""
	switch e.Operator {
	case token.ASSIGN:
		op = jsast.OpAssign
	case token.LOGICAL_AND:
		op = jsast.OpAssignAnd
	case token.LOGICAL_OR:
		op = jsast.OpAssignOr
	case token.COALESCE:
		op = jsast.OpAssignCoalesce
	default:
		op = jsast.OpAssignOp
		value = e.Operator.String() + "="
	}
	id := c.op(e, op, c.target(e.Left), c.expr(e.Right))
	c.b.Node(id).Value = value
	return id
}

func (c *converter) unary(e *ast.UnaryExpression) jsast.NodeID {
	operand := c.expr(e.Operand)
	var id jsast.NodeID
	switch e.Operator {
	case token.NOT:
		id = c.op(e, jsast.OpNot, operand)
	case token.TYPEOF:
		id = c.op(e, jsast.OpTypeof, operand)
	case token.DELETE:
		id = c.op(e, jsast.OpDelete, operand)
	case token.VOID:
		id = c.op(e, jsast.OpVoid, operand)
	case token.INCREMENT, token.DECREMENT:
		op := jsast.OpInc
		if e.Operator == token.DECREMENT {
			op = jsast.OpDec
		}
		id = c.op(e, op, operand)
		if e.Postfix {
			c.b.Node(id).Flags |= jsast.FlagPostfix
		}
	default:
		id = c.op(e, jsast.OpUnary, operand)
		c.b.Node(id).Value = e.Operator.String()
	}
	return id
}

func (c *converter) template(e *ast.TemplateLiteral) jsast.NodeID {
	children := []jsast.NodeID{c.optExpr(e.Tag)}
	for i, el := range e.Elements {
		chunk := c.addSpan(el.Idx-1, el.Idx-1+file.Idx(len(el.Literal)), jsast.Node{
			Kind:  jsast.KindLiteral,
			Flags: jsast.FlagTemplate,
			Value: el.Literal,
			Name:  el.Parsed.String(),
		})
		children = append(children, chunk)
		if i < len(e.Expressions) {
			children = append(children, c.expr(e.Expressions[i]))
		}
	}
	return c.op(e, jsast.OpTemplate, children...)
}

func (c *converter) property(p ast.Property) jsast.NodeID {
	switch p := p.(type) {
	case *ast.PropertyShort:
		key := c.keyLiteral(&ast.StringLiteral{Idx: p.Name.Idx, Literal: p.Name.Name.String(), Value: p.Name.Name})
		value := c.ident(&p.Name)
		if p.Initializer != nil {
			value = c.add(p, jsast.Node{Kind: jsast.KindOp, Op: jsast.OpDefault, Children: []jsast.NodeID{value, c.expr(p.Initializer)}})
		}
		return c.add(p, jsast.Node{Kind: jsast.KindProperty, Flags: jsast.FlagShorthand, Name: p.Name.Name.String(), Children: []jsast.NodeID{key, value}})
	case *ast.PropertyKeyed:
		key, flags, name := c.propertyKey(p.Key, p.Computed)
		var value jsast.NodeID
		if fn, ok := p.Value.(*ast.FunctionLiteral); ok && p.Kind != ast.PropertyKindValue {
			value = c.method(fn, name)
		} else {
			value = c.optExpr(p.Value)
		}
		return c.add(p, jsast.Node{Kind: jsast.KindProperty, Flags: flags, Name: name, Children: []jsast.NodeID{key, value}})
	case *ast.SpreadElement:
		return c.op(p, jsast.OpSpread, c.expr(p.Expression))
	}
	panic(fmt.Sprintf("parser: unhandled property %T", p))
}

func functionFlags(async, generator bool) jsast.Flags {
	var flags jsast.Flags
	if async {
		flags |= jsast.FlagAsync
	}
	if generator {
		flags |= jsast.FlagGenerator
	}
	return flags
}

func (c *converter) params(list *ast.ParameterList) []jsast.NodeID {
	if list == nil {
		return nil
	}
	ids := make([]jsast.NodeID, 0, len(list.List)+1)
	for _, b := range list.List {
		ids = append(ids, c.binding(b, 0))
	}
	if list.Rest != nil {
		target := c.target(list.Rest)
		ids = append(ids, c.add(list.Rest, jsast.Node{Kind: jsast.KindDecl, Flags: jsast.FlagRest, Children: []jsast.NodeID{target, jsast.NoNode}}))
	}
	return ids
}

func (c *converter) function(fn *ast.FunctionLiteral, flags jsast.Flags) jsast.NodeID {
	flags |= functionFlags(fn.Async, fn.Generator)
	name := jsast.NoNode
	n := jsast.Node{Kind: jsast.KindFunction, Flags: flags}
	if fn.Name != nil {
		name = c.ident(fn.Name)
		n.Name = fn.Name.Name.String()
	}
	children := []jsast.NodeID{name}
	children = append(children, c.params(fn.ParameterList)...)
	children = append(children, c.block(fn.Body))
	n.Children = children
	return c.add(fn, n)
}

// method converts an object or class method. Its name is the property key
// and is not bound as a variable.
func (c *converter) method(fn *ast.FunctionLiteral, key string) jsast.NodeID {
	n := jsast.Node{Kind: jsast.KindFunction, Flags: jsast.FlagMethod | functionFlags(fn.Async, fn.Generator), Name: key}
	children := []jsast.NodeID{jsast.NoNode}
	children = append(children, c.params(fn.ParameterList)...)
	children = append(children, c.block(fn.Body))
	n.Children = children
	return c.add(fn, n)
}

func (c *converter) arrow(fn *ast.ArrowFunctionLiteral) jsast.NodeID {
	flags := jsast.FlagArrow | functionFlags(fn.Async, false)
	children := []jsast.NodeID{jsast.NoNode}
	children = append(children, c.params(fn.ParameterList)...)
	switch body := fn.Body.(type) {
	case *ast.BlockStatement:
		children = append(children, c.block(body))
	case *ast.ExpressionBody:
		flags |= jsast.FlagExprBody
		children = append(children, c.expr(body.Expression))
	default:
		panic(fmt.Sprintf("parser: unhandled arrow body %T", body))
	}
	return c.add(fn, jsast.Node{Kind: jsast.KindFunction, Flags: flags, Children: children})
}

func (c *converter) class(cl *ast.ClassLiteral, flags jsast.Flags) jsast.NodeID {
	n := jsast.Node{Kind: jsast.KindClass, Flags: flags}
	name := jsast.NoNode
	if cl.Name != nil {
		name = c.ident(cl.Name)
		n.Name = cl.Name.Name.String()
	}
	children := []jsast.NodeID{name, c.optExpr(cl.SuperClass)}
	for _, el := range cl.Body {
		children = append(children, c.classElement(el))
	}
	n.Children = children
	return c.add(cl, n)
}

func (c *converter) classElement(el ast.ClassElement) jsast.NodeID {
	switch el := el.(type) {
	case *ast.MethodDefinition:
		key, flags, name := c.propertyKey(el.Key, el.Computed)
		if el.Static {
			flags |= jsast.FlagStatic
		}
		return c.add(el, jsast.Node{Kind: jsast.KindProperty, Flags: flags, Name: name, Children: []jsast.NodeID{key, c.method(el.Body, name)}})
	case *ast.FieldDefinition:
		key, flags, name := c.propertyKey(el.Key, el.Computed)
		if el.Static {
			flags |= jsast.FlagStatic
		}
		value := jsast.NoNode
		if el.Initializer != nil {
			// Field initializers run later with `this` bound to the
			// instance, like a method body.
			init := c.expr(el.Initializer)
			value = c.add(el.Initializer, jsast.Node{
				Kind:     jsast.KindFunction,
				Flags:    jsast.FlagMethod | jsast.FlagExprBody,
				Name:     name,
				Children: []jsast.NodeID{jsast.NoNode, init},
			})
		}
		return c.add(el, jsast.Node{Kind: jsast.KindProperty, Flags: flags, Name: name, Children: []jsast.NodeID{key, value}})
	case *ast.ClassStaticBlock:
		body := c.block(el.Block)
		fn := c.add(el, jsast.Node{Kind: jsast.KindFunction, Flags: jsast.FlagMethod, Name: "static", Children: []jsast.NodeID{jsast.NoNode, body}})
		return c.add(el, jsast.Node{Kind: jsast.KindProperty, Flags: jsast.FlagStatic, Children: []jsast.NodeID{jsast.NoNode, fn}})
	}
	panic(fmt.Sprintf("parser: unhandled class element %T", el))
}
