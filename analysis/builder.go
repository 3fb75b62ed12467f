// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/jscheck/jsast"

// Config controls how scopes are introduced.
type Config struct {
	// BlockScopes adds BLOCK scopes for blocks, loop heads and switch
	// bodies. let, const and class declarations then stop at the nearest
	// block; var and function declarations still hoist to the function.
	BlockScopes bool

	// SelfNameVisibleInBody declares a function expression's name inside
	// its own body.
	SelfNameVisibleInBody bool

	// SelfNameVisibleInContaining also declares a function expression's
	// name in the containing scope unless a function statement of the same
	// name is declared there.
	SelfNameVisibleInContaining bool

	// IntroducesScope, when set, adds a BLOCK scope for every block, loop or
	// switch node for which it returns true.
	IntroducesScope func(t *jsast.Tree, id jsast.NodeID) bool
}

// DefaultConfig returns the standard dialect: block scoping on and function
// expression names visible only in their own bodies.
func DefaultConfig() *Config {
	return &Config{BlockScopes: true, SelfNameVisibleInBody: true}
}

// LegacyConfig returns the dialect of interpreters without block scoping
// that leak function expression names into the containing scope.
func LegacyConfig() *Config {
	return &Config{SelfNameVisibleInBody: true, SelfNameVisibleInContaining: true}
}

// ScopeTree is the output of Build.
type ScopeTree struct {
	Source *jsast.Tree
	Root   *Scope
	Scopes []*Scope // indexed by Scope.ID

	// ScopeOf is the scope each visited node occurs in. Created is the
	// scope a node introduces.
	ScopeOf *jsast.Attr[*Scope]
	Created *jsast.Attr[*Scope]

	// DefiningScope is the scope each declaring identifier is registered
	// in after hoisting.
	DefiningScope *jsast.Attr[*Scope]

	DeclAt *jsast.Attr[*Declaration]
	UseAt  *jsast.Attr[*Use]

	Declarations []*Declaration
	Uses         []*Use
}

type builder struct {
	cfg     *Config
	t       *jsast.Tree
	st      *ScopeTree
	leaks   []*Declaration
	aliases map[jsast.NodeID]string
}

// Build walks t once to create the scope tree and register every
// declaration in its defining scope, then replays the tree to l. Uses are
// resolved when their scope exits, after every nested scope, so declarations
// hoisted from later code are visible.
func Build(t *jsast.Tree, cfg *Config, l Listener) *ScopeTree {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := &builder{
		cfg: cfg,
		t:   t,
		st: &ScopeTree{
			Source:        t,
			ScopeOf:       jsast.NewAttr[*Scope](t),
			Created:       jsast.NewAttr[*Scope](t),
			DefiningScope: jsast.NewAttr[*Scope](t),
			DeclAt:        jsast.NewAttr[*Declaration](t),
			UseAt:         jsast.NewAttr[*Use](t),
		},
		aliases: make(map[jsast.NodeID]string),
	}
	root := b.newScope(ScopeProgram, nil, t.Root)
	b.st.Root = root
	b.st.ScopeOf.Set(t.Root, root)
	b.children(t.Root, root, jsast.NoNode)
	b.resolveLeaks()
	if l == nil {
		l = NopListener{}
	}
	b.replay(root, l)
	return b.st
}

func (b *builder) newScope(kind ScopeKind, parent *Scope, node jsast.NodeID) *Scope {
	s := NewScope(kind, parent, node)
	s.ID = len(b.st.Scopes)
	b.st.Scopes = append(b.st.Scopes, s)
	b.st.Created.Set(node, s)
	return s
}

func (b *builder) blockScope(id jsast.NodeID) bool {
	if b.cfg.BlockScopes {
		return true
	}
	return b.cfg.IntroducesScope != nil && b.cfg.IntroducesScope(b.t, id)
}

func (b *builder) children(id jsast.NodeID, s *Scope, blk jsast.NodeID) {
	for _, c := range b.t.Node(id).Children {
		b.visit(c, s, blk)
	}
}

func (b *builder) visit(id jsast.NodeID, s *Scope, blk jsast.NodeID) {
	if !id.Valid() {
		return
	}
	b.st.ScopeOf.Set(id, s)
	n := b.t.Node(id)
	switch n.Kind {
	case jsast.KindBlock:
		if b.blockScope(id) {
			s = b.newScope(ScopeBlock, s, id)
		}
		b.children(id, s, id)
	case jsast.KindCase:
		b.children(id, s, id)
	case jsast.KindFor, jsast.KindSwitch:
		if b.blockScope(id) {
			s = b.newScope(ScopeBlock, s, id)
		}
		b.children(id, s, blk)
	case jsast.KindForIn:
		if b.blockScope(id) {
			s = b.newScope(ScopeBlock, s, id)
		}
		target := n.Children[0]
		if b.t.Kind(target) == jsast.KindVarDecl {
			b.visit(target, s, blk)
		} else {
			b.assignTarget(target, s, blk, false, true)
		}
		b.visit(n.Children[1], s, blk)
		b.visit(n.Children[2], s, blk)
	case jsast.KindVarDecl:
		kind := DeclVar
		switch {
		case n.Flags.Has(jsast.FlagConst):
			kind = DeclConst
		case n.Flags.Has(jsast.FlagLet):
			kind = DeclLet
		}
		for _, d := range n.Children {
			b.declarator(d, kind, s, blk)
		}
	case jsast.KindFunction:
		b.function(id, s, blk)
	case jsast.KindClass:
		b.class(id, s, blk)
	case jsast.KindCatch:
		c := b.newScope(ScopeCatch, s, id)
		b.bind(n.Children[0], DeclCatchParam, c, jsast.NoNode, id, true)
		body := n.Children[1]
		b.st.ScopeOf.Set(body, c)
		b.children(body, c, body)
	case jsast.KindWith:
		b.visit(n.Children[0], s, blk)
		w := b.newScope(ScopeWith, s, id)
		b.visit(n.Children[1], w, blk)
	case jsast.KindRef:
		b.use(id, s, blk, true, false)
	case jsast.KindThis:
		b.use(id, s, blk, true, false)
	case jsast.KindOp:
		b.op(id, s, blk)
	case jsast.KindProperty:
		b.property(id, s, blk)
	case jsast.KindPattern:
		b.assignTarget(id, s, blk, false, false)
	default:
		b.children(id, s, blk)
	}
}

func (b *builder) property(id jsast.NodeID, s *Scope, blk jsast.NodeID) {
	n := b.t.Node(id)
	key := n.Children[0]
	if n.Flags.Has(jsast.FlagComputed) {
		b.visit(key, s, blk)
	} else if key.Valid() {
		b.st.ScopeOf.Set(key, s)
	}
	b.visit(n.Children[1], s, blk)
}

func (b *builder) declarator(id jsast.NodeID, kind DeclKind, s *Scope, blk jsast.NodeID) {
	b.st.ScopeOf.Set(id, s)
	target, init := b.t.Child(id, 0), b.t.Child(id, 1)
	if b.t.Kind(target) == jsast.KindRef {
		b.alias(init, b.t.Node(target).Name)
	}
	b.bind(target, kind, s, blk, id, init.Valid())
	b.visit(init, s, blk)
}

// alias records that the function expression fn is stored under name.
func (b *builder) alias(fn jsast.NodeID, name string) {
	if b.t.Kind(fn) == jsast.KindFunction && b.t.Node(fn).Name == name {
		b.aliases[fn] = name
	}
}

// bind declares every identifier bound by target. Default values and
// computed keys are visited as expressions.
func (b *builder) bind(target jsast.NodeID, kind DeclKind, s *Scope, blk, site jsast.NodeID, init bool) {
	if !target.Valid() {
		return
	}
	b.st.ScopeOf.Set(target, s)
	n := b.t.Node(target)
	switch n.Kind {
	case jsast.KindRef:
		b.declare(kind, target, site, s, blk, init)
	case jsast.KindPattern:
		for _, c := range n.Children {
			b.bind(c, kind, s, blk, site, init)
		}
	case jsast.KindProperty:
		key := n.Children[0]
		if n.Flags.Has(jsast.FlagComputed) {
			b.visit(key, s, blk)
		} else if key.Valid() {
			b.st.ScopeOf.Set(key, s)
		}
		b.bind(n.Children[1], kind, s, blk, site, init)
	case jsast.KindOp:
		switch n.Op {
		case jsast.OpDefault:
			b.bind(n.Children[0], kind, s, blk, site, true)
			b.visit(n.Children[1], s, blk)
		case jsast.OpSpread:
			b.bind(n.Children[0], kind, s, blk, site, init)
		default:
			b.visit(target, s, blk)
		}
	default:
		b.visit(target, s, blk)
	}
}

// assignTarget records assignments to the identifiers in target. read is set
// for compound assignment; forIn for loop key receivers.
func (b *builder) assignTarget(target jsast.NodeID, s *Scope, blk jsast.NodeID, read, forIn bool) {
	if !target.Valid() {
		return
	}
	b.st.ScopeOf.Set(target, s)
	n := b.t.Node(target)
	switch n.Kind {
	case jsast.KindRef:
		u := b.use(target, s, blk, read, true)
		u.ForInKey = forIn
	case jsast.KindPattern:
		for _, c := range n.Children {
			b.assignTarget(c, s, blk, read, forIn)
		}
	case jsast.KindProperty:
		key := n.Children[0]
		if n.Flags.Has(jsast.FlagComputed) {
			b.visit(key, s, blk)
		} else if key.Valid() {
			b.st.ScopeOf.Set(key, s)
		}
		b.assignTarget(n.Children[1], s, blk, read, forIn)
	case jsast.KindOp:
		switch n.Op {
		case jsast.OpDefault:
			b.assignTarget(n.Children[0], s, blk, read, forIn)
			b.visit(n.Children[1], s, blk)
		case jsast.OpSpread:
			b.assignTarget(n.Children[0], s, blk, read, forIn)
		case jsast.OpOptional:
			b.assignTarget(n.Children[0], s, blk, read, forIn)
		default:
			b.children(target, s, blk)
		}
	default:
		b.visit(target, s, blk)
	}
}

func (b *builder) op(id jsast.NodeID, s *Scope, blk jsast.NodeID) {
	n := b.t.Node(id)
	switch n.Op {
	case jsast.OpAssign, jsast.OpAssignOp, jsast.OpAssignAnd, jsast.OpAssignOr, jsast.OpAssignCoalesce:
		target, value := n.Children[0], n.Children[1]
		if n.Op == jsast.OpAssign {
			switch {
			case b.t.Kind(target) == jsast.KindRef:
				b.alias(value, b.t.Node(target).Name)
			case b.t.IsOp(target, jsast.OpDot):
				b.alias(value, b.t.Node(target).Name)
			}
		}
		b.assignTarget(target, s, blk, n.Op != jsast.OpAssign, false)
		b.visit(value, s, blk)
	case jsast.OpInc, jsast.OpDec:
		b.assignTarget(n.Children[0], s, blk, true, false)
	case jsast.OpTypeof:
		operand := n.Children[0]
		if b.t.Kind(operand) == jsast.KindRef {
			b.st.ScopeOf.Set(operand, s)
			u := b.use(operand, s, blk, true, false)
			u.TypeofOperand = true
			return
		}
		b.children(id, s, blk)
	default:
		b.children(id, s, blk)
	}
}

func (b *builder) function(id jsast.NodeID, s *Scope, blk jsast.NodeID) {
	n := b.t.Node(id)
	name := n.Children[0]
	decl := n.Flags.Has(jsast.FlagDeclaration)
	if decl && name.Valid() {
		b.st.ScopeOf.Set(name, s)
		b.declare(DeclFunction, name, id, s, blk, true)
	}
	fs := b.newScope(ScopeFunction, s, id)
	fs.Arrow = n.Flags.Has(jsast.FlagArrow)
	if !decl && name.Valid() {
		b.st.ScopeOf.Set(name, fs)
		alias := b.aliases[id] != ""
		if b.cfg.SelfNameVisibleInBody {
			d := b.declare(DeclFunctionName, name, id, fs, jsast.NoNode, true)
			d.Alias = alias
		}
		if b.cfg.SelfNameVisibleInContaining {
			b.leaks = append(b.leaks, &Declaration{
				Name:      b.t.Node(name).Name,
				Kind:      DeclFunctionName,
				Node:      name,
				Site:      id,
				Syntactic: s,
				Block:     blk,
				Init:      true,
				Alias:     alias,
			})
		}
	}
	for _, p := range b.t.FunctionParams(id) {
		b.st.ScopeOf.Set(p, fs)
		init := b.t.Child(p, 1)
		b.bind(b.t.Child(p, 0), DeclParam, fs, jsast.NoNode, p, true)
		b.visit(init, fs, jsast.NoNode)
	}
	body := b.t.FunctionBody(id)
	if n.Flags.Has(jsast.FlagExprBody) {
		b.visit(body, fs, jsast.NoNode)
		return
	}
	b.st.ScopeOf.Set(body, fs)
	b.children(body, fs, jsast.NoNode)
}

func (b *builder) class(id jsast.NodeID, s *Scope, blk jsast.NodeID) {
	n := b.t.Node(id)
	name := n.Children[0]
	inner := s
	if name.Valid() {
		if n.Flags.Has(jsast.FlagDeclaration) {
			b.st.ScopeOf.Set(name, s)
			b.declare(DeclClass, name, id, s, blk, true)
		} else {
			inner = b.newScope(ScopeBlock, s, id)
			b.st.ScopeOf.Set(name, inner)
			b.declare(DeclClassName, name, id, inner, jsast.NoNode, true)
		}
	}
	for _, c := range n.Children[1:] {
		b.visit(c, inner, blk)
	}
}

func (b *builder) declare(kind DeclKind, ref, site jsast.NodeID, syntactic *Scope, blk jsast.NodeID, init bool) *Declaration {
	d := &Declaration{
		Name:      b.t.Node(ref).Name,
		Kind:      kind,
		Node:      ref,
		Site:      site,
		Syntactic: syntactic,
		Block:     blk,
		Init:      init,
	}
	d.Scope = b.hoist(d)
	b.register(d)
	return d
}

func (b *builder) register(d *Declaration) {
	d.Scope.Table.Declare(d.Name, d)
	d.Scope.decls = append(d.Scope.decls, d)
	b.st.Declarations = append(b.st.Declarations, d)
	if !b.st.DeclAt.Has(d.Node) {
		b.st.DeclAt.Set(d.Node, d)
		b.st.DefiningScope.Set(d.Node, d.Scope)
	}
}

// hoist finds the defining scope of d. var-like declarations leave catch,
// with and block scopes until they reach a function or the program; lexical
// declarations stop at the first block or catch scope when block scoping is
// on. A hoisted initializer that passes a catch clause declaring the same
// name is recorded as a split initialization.
func (b *builder) hoist(d *Declaration) *Scope {
	s := d.Syntactic
	switch d.Kind {
	case DeclParam, DeclCatchParam, DeclFunctionName, DeclClassName:
		return s
	}
	lexical := d.Kind.IsLexical() && (b.cfg.BlockScopes || b.cfg.IntroducesScope != nil)
	for {
		switch s.Kind {
		case ScopeProgram, ScopeFunction:
			return s
		case ScopeBlock:
			if lexical {
				return s
			}
		case ScopeCatch:
			if lexical {
				return s
			}
			if sym := s.Table.Symbol(d.Name); sym != nil && sym.First().Kind == DeclCatchParam && d.Init && d.split == nil {
				d.split = s
			}
		}
		s = s.Parent
	}
}

// resolveLeaks declares function expression names in their containing
// scopes unless a function statement of the same name is declared there.
func (b *builder) resolveLeaks() {
	for _, d := range b.leaks {
		d.Scope = b.hoist(&Declaration{Name: d.Name, Kind: DeclVar, Syntactic: d.Syntactic})
		if sym := d.Scope.Table.Symbol(d.Name); sym != nil && hasKind(sym, DeclFunction) {
			continue
		}
		b.register(d)
	}
}

func hasKind(sym *Symbol, kind DeclKind) bool {
	for _, d := range sym.Decls {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func (b *builder) use(id jsast.NodeID, s *Scope, blk jsast.NodeID, read, assigned bool) *Use {
	u := &Use{
		Name:     b.t.Node(id).Name,
		Node:     id,
		Scope:    s,
		Block:    blk,
		Read:     read,
		Assigned: assigned,
	}
	s.uses = append(s.uses, u)
	b.st.Uses = append(b.st.Uses, u)
	b.st.UseAt.Set(id, u)
	return u
}

func (b *builder) replay(s *Scope, l Listener) {
	l.EnterScope(s)
	ml, _ := l.(MaskListener)
	sl, _ := l.(SplitInitListener)
	for _, d := range s.decls {
		l.Declared(d)
		if ml != nil {
			checkMasking(d, ml)
		}
		if sl != nil && d.split != nil {
			sl.SplitInitialization(d, d.split)
		}
	}
	for _, child := range s.Children {
		b.replay(child, l)
	}
	for _, u := range s.uses {
		u.Defining, u.Symbol = resolve(u.Name, u.Scope)
		if u.Read {
			l.Read(u)
		}
		if u.Assigned {
			l.Assigned(u)
		}
	}
	l.ExitScope(s)
}

func checkMasking(d *Declaration, ml MaskListener) {
	sym := d.Scope.Table.Symbol(d.Name)
	if !d.Kind.IsSelfName() {
		for _, prev := range sym.Decls {
			if prev == d {
				break
			}
			if !prev.Kind.IsSelfName() {
				ml.Duplicate(d, d.Scope)
				break
			}
		}
	}
	if sym.First() != d || d.Alias {
		return
	}
	for outer := d.Scope.Parent; outer != nil; outer = outer.Parent {
		if outer.Kind == ScopeWith {
			continue
		}
		if outer.Table.Symbol(d.Name) != nil {
			ml.Masked(d, d.Scope, outer)
			return
		}
	}
}

// resolve finds the scope and symbol name refers to from s. `this` and
// `arguments` resolve to the nearest non-arrow function unless explicitly
// declared on the way; `this` at top level resolves to the program.
func resolve(name string, s *Scope) (*Scope, *Symbol) {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym := scope.Table.Symbol(name); sym != nil {
			return scope, sym
		}
		switch name {
		case "this":
			if scope.Kind == ScopeProgram || (scope.Kind == ScopeFunction && !scope.Arrow) {
				return scope, nil
			}
		case "arguments":
			if scope.Kind == ScopeFunction && !scope.Arrow {
				return scope, nil
			}
		}
	}
	return nil, nil
}
