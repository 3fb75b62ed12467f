// Copyright © 2024 The ELPS authors

// Package flow computes definite assignment over a JavaScript syntax tree.
//
// Analyze visits the tree once in evaluation order. For every reachable
// node it records the LiveSet on entry, the variables assigned on every path
// reaching the node. For every statement it computes ExitModes, the ways
// control leaves it. No control-flow graph is built: the composition rules
// for each statement kind encode the language's completion semantics on the
// syntax directly. Nodes without a LiveSet are unreachable.
package flow

import (
	"fmt"

	"github.com/luthersystems/jscheck/analysis"
	"github.com/luthersystems/jscheck/jsast"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jscheck.flow")

// Result holds the output of Analyze.
type Result struct {
	Scopes *analysis.Result

	// Live is the set on entry to each reachable node.
	Live *jsast.Attr[*LiveSet]

	// Unanalyzable marks nodes under with statements and in functions that
	// call eval directly. They carry no liveness.
	Unanalyzable *jsast.Attr[bool]

	// FunctionExits holds the exits of each function body.
	FunctionExits map[jsast.NodeID]*ExitModes

	ProgramExits *ExitModes

	// ProgramOut is the set live when the program falls off its end.
	ProgramOut *LiveSet
}

// LiveAt returns the set on entry to id and whether id is reachable.
func (r *Result) LiveAt(id jsast.NodeID) (*LiveSet, bool) {
	return r.Live.Get(id)
}

// IsUnanalyzable reports whether id lies in code the analysis gave up on.
func (r *Result) IsUnanalyzable(id jsast.NodeID) bool {
	return r.Unanalyzable.Value(id)
}

type analyzer struct {
	t          *jsast.Tree
	sr         *analysis.Result
	res        *Result
	done       *jsast.Attr[bool]
	loopLabels map[jsast.NodeID][]string
}

// Analyze computes liveness and exits for the tree scoped by sr.
func Analyze(sr *analysis.Result) *Result {
	t := sr.Source
	a := &analyzer{
		t:  t,
		sr: sr,
		res: &Result{
			Scopes:        sr,
			Live:          jsast.NewAttr[*LiveSet](t),
			Unanalyzable:  jsast.NewAttr[bool](t),
			FunctionExits: make(map[jsast.NodeID]*ExitModes),
		},
		done:       jsast.NewAttr[bool](t),
		loopLabels: make(map[jsast.NodeID][]string),
	}
	in := a.hoisted(sr.Root, Empty())
	a.res.Live.Set(t.Root, in)
	a.hoistFunctions(sr.Root, in)
	out, ex := a.stmts(t.Node(t.Root).Children, in)
	a.res.ProgramExits = ex
	a.res.ProgramOut = Empty()
	if out != nil {
		a.res.ProgramOut = out
	}
	log.Debugf("%s: program exits %s", t.File, ex)
	return a.res
}

// hoisted adds the function declarations of s to in.
func (a *analyzer) hoisted(s *analysis.Scope, in *LiveSet) *LiveSet {
	for _, name := range s.Table.Names() {
		for _, d := range s.Table.Symbol(name).Decls {
			if d.Kind == analysis.DeclFunction {
				in = in.With(Var{Name: name, Scope: s})
				break
			}
		}
	}
	return in
}

// hoistFunctions analyzes the function declarations of s with the set on
// entry to s, since they may be called from anywhere in it.
func (a *analyzer) hoistFunctions(s *analysis.Scope, in *LiveSet) {
	for _, d := range s.Declarations() {
		if d.Kind == analysis.DeclFunction && !a.done.Value(d.Site) {
			a.function(d.Site, in)
		}
	}
}

func (a *analyzer) function(fn jsast.NodeID, outer *LiveSet) {
	a.done.Set(fn, true)
	fs := a.sr.Created.Value(fn)
	in := outer
	for _, name := range fs.Table.Names() {
		for _, d := range fs.Table.Symbol(name).Decls {
			switch d.Kind {
			case analysis.DeclParam, analysis.DeclFunctionName, analysis.DeclFunction:
				in = in.With(Var{Name: name, Scope: fs})
			}
		}
	}
	if !fs.Arrow {
		in = in.With(Var{Name: "arguments", Scope: fs})
	}
	a.hoistFunctions(fs, in)

	for _, p := range a.t.FunctionParams(fn) {
		a.res.Live.Set(p, in)
		a.expr(a.t.Child(p, 1), in)
		a.target(a.t.Child(p, 0), in, true)
	}
	body := a.t.FunctionBody(fn)
	ex := Completes()
	if a.t.Node(fn).Flags.Has(jsast.FlagExprBody) {
		a.expr(body, in)
	} else {
		a.res.Live.Set(body, in)
		_, ex = a.stmts(a.t.Node(body).Children, in)
	}
	a.res.FunctionExits[fn] = ex
	if a.callsEval(fn) {
		for _, c := range a.t.Node(fn).Children {
			a.scrub(c)
		}
	}
}

// callsEval reports whether fn calls eval directly, outside nested
// functions.
func (a *analyzer) callsEval(fn jsast.NodeID) bool {
	found := false
	jsast.Inspect(a.t, fn, func(id jsast.NodeID) bool {
		if found || (id != fn && a.t.Kind(id) == jsast.KindFunction) {
			return false
		}
		if a.t.IsOp(id, jsast.OpCall) {
			callee := a.t.Child(id, 0)
			if a.t.Kind(callee) == jsast.KindRef && a.t.Node(callee).Name == "eval" {
				if u := a.sr.UseAt.Value(callee); u != nil && u.Free() {
					found = true
				}
			}
		}
		return true
	})
	return found
}

// scrub discards liveness under id.
func (a *analyzer) scrub(id jsast.NodeID) {
	jsast.Inspect(a.t, id, func(n jsast.NodeID) bool {
		a.res.Live.Delete(n)
		a.res.Unanalyzable.Set(n, true)
		if a.t.Kind(n) == jsast.KindFunction {
			a.done.Set(n, true)
		}
		return true
	})
}

// dead visits unreachable code. Functions defined there are still analyzed,
// starting from nothing.
func (a *analyzer) dead(id jsast.NodeID) {
	jsast.Inspect(a.t, id, func(n jsast.NodeID) bool {
		if a.t.Kind(n) == jsast.KindFunction {
			if !a.done.Value(n) {
				a.function(n, Empty())
			}
			return false
		}
		return true
	})
}

func (a *analyzer) source(id jsast.NodeID) Source {
	return Source{Node: id, Pos: a.t.Node(id).Pos}
}

func (a *analyzer) stmts(list []jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	cur, ex := in, Completes()
	for _, s := range list {
		if !ex.CanComplete() {
			a.dead(s)
			continue
		}
		out, e := a.stmt(s, cur)
		ex = ex.Seq(e)
		if e.CanComplete() {
			cur = out
		}
	}
	if !ex.CanComplete() {
		return nil, ex
	}
	return cur, ex
}

// stmt analyzes one statement. The returned set is nil when the statement
// cannot complete. Variables whose scope does not enclose the statement are
// dropped from every result.
func (a *analyzer) stmt(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	a.res.Live.Set(id, in)
	out, ex := a.statement(id, in)
	if s := a.sr.ScopeOf.Value(id); s != nil {
		keep := func(v Var) bool { return v.Scope == nil || v.Scope.Encloses(s) }
		if out != nil {
			out = out.Filter(keep)
		}
		ex = ex.FilterLive(keep)
	}
	if !ex.CanComplete() {
		out = nil
	}
	return out, ex
}

func (a *analyzer) statement(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	switch n.Kind {
	case jsast.KindEmpty, jsast.KindDebugger:
		return in, Completes()
	case jsast.KindExprStmt:
		return a.expr(n.Children[0], in), Completes()
	case jsast.KindVarDecl:
		return a.varDecl(id, in), Completes()
	case jsast.KindFunction:
		if !a.done.Value(id) {
			a.function(id, in)
		}
		return in, Completes()
	case jsast.KindClass:
		return a.class(id, in), Completes()
	case jsast.KindBlock:
		return a.stmts(n.Children, in)
	case jsast.KindIf:
		t, f := a.cond(n.Children[0], in)
		o1, e1 := a.stmt(n.Children[1], t)
		o2, e2 := f, Completes()
		if els := a.t.Child(id, 2); els.Valid() {
			o2, e2 = a.stmt(els, f)
		}
		return meet(o1, o2), e1.Join(e2)
	case jsast.KindWhile:
		return a.while(id, in)
	case jsast.KindDoWhile:
		return a.doWhile(id, in)
	case jsast.KindFor:
		return a.forLoop(id, in)
	case jsast.KindForIn:
		return a.forIn(id, in)
	case jsast.KindSwitch:
		return a.switchStmt(id, in)
	case jsast.KindBreak:
		return nil, NewExit(ExitKey{Kind: ExitBreak, Label: n.Name}, in, a.source(id))
	case jsast.KindContinue:
		return nil, NewExit(ExitKey{Kind: ExitContinue, Label: n.Name}, in, a.source(id))
	case jsast.KindReturn:
		out := a.expr(a.t.Child(id, 0), in)
		return nil, NewExit(ExitKey{Kind: ExitReturn}, out, a.source(id))
	case jsast.KindThrow:
		out := a.expr(n.Children[0], in)
		return nil, NewExit(ExitKey{Kind: ExitThrow}, out, a.source(id))
	case jsast.KindTry:
		return a.try(id, in)
	case jsast.KindLabeled:
		target := n.Children[0]
		for a.t.Kind(target) == jsast.KindLabeled {
			target = a.t.Child(target, 0)
		}
		a.loopLabels[target] = append(a.loopLabels[target], n.Name)
		out, ex := a.stmt(n.Children[0], in)
		return a.breaks(out, ex, n.Name)
	case jsast.KindWith:
		out := a.expr(n.Children[0], in)
		a.scrub(n.Children[1])
		return out, Completes()
	}
	panic(fmt.Sprintf("flow: unhandled statement %s at offset %d", n.Kind, n.Pos))
}

// continues folds the continue channels of loop id into the state at the
// end of its body.
func (a *analyzer) continues(id jsast.NodeID, out *LiveSet, ex *ExitModes) (*LiveSet, *ExitModes) {
	var m *ExitMode
	ex, m = ex.Consume(ExitKey{Kind: ExitContinue})
	if m != nil {
		out = meet(out, m.Live)
	}
	for _, label := range a.loopLabels[id] {
		ex, m = ex.Consume(ExitKey{Kind: ExitContinue, Label: label})
		if m != nil {
			out = meet(out, m.Live)
		}
	}
	return out, ex
}

// breaks folds the break channels for labels into the state after the
// construct.
func (a *analyzer) breaks(out *LiveSet, ex *ExitModes, labels ...string) (*LiveSet, *ExitModes) {
	for _, label := range labels {
		var m *ExitMode
		ex, m = ex.Consume(ExitKey{Kind: ExitBreak, Label: label})
		if m != nil {
			out = meet(out, m.Live)
		}
	}
	return out, ex
}

func (a *analyzer) while(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	t, f := a.cond(n.Children[0], in)
	bo, be := a.stmt(n.Children[1], t)
	bo, be = a.continues(id, bo, be)
	out := f
	if be.CanComplete() {
		out = meet(f, bo)
	}
	out, be = a.breaks(out, be, "")
	return out, be.Downgrade()
}

func (a *analyzer) doWhile(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	bo, be := a.stmt(n.Children[0], in)
	bo, be = a.continues(id, bo, be)
	var out *LiveSet
	if be.CanComplete() {
		_, out = a.cond(n.Children[1], bo)
	} else {
		a.dead(n.Children[1])
	}
	return a.breaks(out, be, "")
}

func (a *analyzer) forLoop(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	init, test, update, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	cur := in
	if a.t.Kind(init) == jsast.KindVarDecl {
		a.res.Live.Set(init, cur)
		cur = a.varDecl(init, cur)
	} else {
		cur = a.expr(init, cur)
	}
	t, f := cur, (*LiveSet)(nil)
	if test.Valid() {
		t, f = a.cond(test, cur)
	}
	bo, be := a.stmt(body, t)
	bo, be = a.continues(id, bo, be)
	if update.Valid() {
		if be.CanComplete() {
			bo = a.expr(update, bo)
		} else {
			a.dead(update)
		}
	}
	out := f
	if test.Valid() && be.CanComplete() {
		out = meet(f, bo)
	}
	out, be = a.breaks(out, be, "")
	if test.Valid() {
		return out, be.Downgrade()
	}
	// Without a test the loop is left only by a break.
	return out, be.setCompletes(out != nil)
}

func (a *analyzer) forIn(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	target, obj, body := n.Children[0], n.Children[1], n.Children[2]
	cur := a.expr(obj, in)
	keyed := cur
	if a.t.Kind(target) == jsast.KindVarDecl {
		a.res.Live.Set(target, cur)
		for _, d := range a.t.Node(target).Children {
			a.res.Live.Set(d, keyed)
			keyed = a.expr(a.t.Child(d, 1), keyed)
			keyed = a.target(a.t.Child(d, 0), keyed, true)
		}
	} else {
		keyed = a.target(target, keyed, true)
	}
	bo, be := a.stmt(body, keyed)
	bo, be = a.continues(id, bo, be)
	// The key is live after the loop even when no iteration runs.
	out := keyed
	if be.CanComplete() {
		out = meet(keyed, bo)
	}
	out, be = a.breaks(out, be, "")
	return out, be.Downgrade()
}

func (a *analyzer) switchStmt(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	cases := n.Children[1:]
	cur := a.expr(n.Children[0], in)
	entries := make([]*LiveSet, len(cases))
	hasDefault := false
	for i, c := range cases {
		if test := a.t.Child(c, 0); test.Valid() {
			cur = a.expr(test, cur)
			entries[i] = cur
		} else {
			hasDefault = true
		}
	}
	for i, c := range cases {
		if !a.t.Child(c, 0).Valid() {
			entries[i] = cur
		}
	}

	exits := make([]*ExitModes, len(cases))
	var prev *LiveSet
	for i, c := range cases {
		caseIn := meet(entries[i], prev)
		a.res.Live.Set(c, caseIn)
		prev, exits[i] = a.stmts(a.t.Node(c).Children[1:], caseIn)
	}

	// Entering at case i runs the chain of bodies from i up to the first
	// one that cannot fall through.
	var ex, chain *ExitModes
	for i := len(cases) - 1; i >= 0; i-- {
		if chain == nil || !exits[i].CanComplete() {
			chain = exits[i]
		} else {
			chain = exits[i].Seq(chain)
		}
		if ex == nil {
			ex = chain
		} else {
			ex = ex.Join(chain)
		}
	}
	out := prev
	if !hasDefault {
		out = meet(out, cur)
		if ex == nil {
			ex = Completes()
		} else {
			ex = ex.Downgrade()
		}
	}
	return a.breaks(out, ex, "")
}

func (a *analyzer) try(id jsast.NodeID, in *LiveSet) (*LiveSet, *ExitModes) {
	n := a.t.Node(id)
	block, catch, finally := n.Children[0], n.Children[1], n.Children[2]
	bo, be := a.stmt(block, in)
	out, ex := bo, be
	if catch.Valid() {
		// An exception may be raised before any assignment in the block,
		// including at an explicit throw, so only what was live before
		// the block is live in the handler.
		cin := in
		if bo != nil {
			cin = in.Intersection(bo)
		}
		a.res.Live.Set(catch, cin)
		cin = a.target(a.t.Child(catch, 0), cin, true)
		co, ce := a.stmt(a.t.Child(catch, 1), cin)
		out = meet(bo, co)
		ex = be.Without(ExitKey{Kind: ExitThrow}).Join(ce)
	}
	if finally.Valid() {
		fin := in
		if out != nil {
			fin = in.Intersection(out)
		}
		fo, fe := a.stmt(finally, fin)
		if !fe.CanComplete() {
			return nil, fe
		}
		ex = Trump(ex, fe, fo)
		if out != nil {
			out = out.Union(fo)
		}
	}
	return out, ex
}

func (a *analyzer) varDecl(id jsast.NodeID, in *LiveSet) *LiveSet {
	n := a.t.Node(id)
	lexical := n.Flags.Has(jsast.FlagLet) || n.Flags.Has(jsast.FlagConst)
	cur := in
	for _, d := range n.Children {
		a.res.Live.Set(d, cur)
		target, init := a.t.Child(d, 0), a.t.Child(d, 1)
		if init.Valid() {
			cur = a.expr(init, cur)
			cur = a.target(target, cur, true)
			continue
		}
		// let x; assigns undefined, var x; assigns nothing.
		cur = a.target(target, cur, lexical)
	}
	return cur
}

func (a *analyzer) class(id jsast.NodeID, in *LiveSet) *LiveSet {
	n := a.t.Node(id)
	name := n.Children[0]
	cur := a.expr(n.Children[1], in)
	inner := cur
	if name.Valid() {
		a.res.Live.Set(name, in)
		if !n.Flags.Has(jsast.FlagDeclaration) {
			inner = a.bind(name, inner)
		}
	}
	for _, m := range n.Children[2:] {
		inner = a.expr(m, inner)
	}
	if name.Valid() && n.Flags.Has(jsast.FlagDeclaration) {
		cur = a.bind(name, cur)
	}
	return cur
}

// varOf returns the variable a declaring or referencing identifier names.
// Free names are globals of the program scope.
func (a *analyzer) varOf(ref jsast.NodeID) (Var, bool) {
	if d := a.sr.DeclAt.Value(ref); d != nil {
		return Var{Name: d.Name, Scope: d.Scope}, true
	}
	if u := a.sr.UseAt.Value(ref); u != nil {
		switch {
		case u.Symbol != nil:
			return Var{Name: u.Name, Scope: u.Defining}, true
		case u.Free():
			return Var{Name: u.Name, Scope: a.sr.Root}, true
		}
	}
	return Var{}, false
}

func (a *analyzer) bind(ref jsast.NodeID, cur *LiveSet) *LiveSet {
	if v, ok := a.varOf(ref); ok {
		return cur.With(v)
	}
	return cur
}

// target visits a binding or assignment target. When assign is set the
// identifiers it binds become live.
func (a *analyzer) target(id jsast.NodeID, cur *LiveSet, assign bool) *LiveSet {
	if !id.Valid() {
		return cur
	}
	a.res.Live.Set(id, cur)
	n := a.t.Node(id)
	switch n.Kind {
	case jsast.KindRef:
		if assign {
			return a.bind(id, cur)
		}
		return cur
	case jsast.KindPattern:
		for _, c := range n.Children {
			cur = a.target(c, cur, assign)
		}
		return cur
	case jsast.KindProperty:
		if n.Flags.Has(jsast.FlagComputed) {
			cur = a.expr(n.Children[0], cur)
		}
		return a.target(n.Children[1], cur, assign)
	case jsast.KindOp:
		switch n.Op {
		case jsast.OpDefault:
			// The default is evaluated only when the value is undefined.
			a.expr(n.Children[1], cur)
			return a.target(n.Children[0], cur, assign)
		case jsast.OpSpread:
			return a.target(n.Children[0], cur, assign)
		}
	}
	return a.expr(id, cur)
}

// cond evaluates a condition and returns the sets live when it is truthy
// and when it is falsy.
func (a *analyzer) cond(id jsast.NodeID, in *LiveSet) (*LiveSet, *LiveSet) {
	n := a.t.Node(id)
	if n.Kind == jsast.KindOp {
		switch n.Op {
		case jsast.OpNot:
			a.res.Live.Set(id, in)
			t, f := a.cond(n.Children[0], in)
			return f, t
		case jsast.OpAnd, jsast.OpOr:
			spine := []jsast.NodeID{id}
			left := n.Children[0]
			for a.t.IsOp(left, n.Op) {
				spine = append(spine, left)
				left = a.t.Child(left, 0)
			}
			for _, s := range spine {
				a.res.Live.Set(s, in)
			}
			t, f := a.cond(left, in)
			for i := len(spine) - 1; i >= 0; i-- {
				right := a.t.Child(spine[i], 1)
				if n.Op == jsast.OpAnd {
					rt, rf := a.cond(right, t)
					t, f = t.Union(rt), f.Intersection(rf)
				} else {
					rt, rf := a.cond(right, f)
					t, f = t.Intersection(rt), f.Union(rf)
				}
			}
			return t, f
		}
	}
	out := a.expr(id, in)
	return out, out
}

func (a *analyzer) seq(list []jsast.NodeID, in *LiveSet) *LiveSet {
	cur := in
	for _, c := range list {
		cur = a.expr(c, cur)
	}
	return cur
}

func (a *analyzer) expr(id jsast.NodeID, in *LiveSet) *LiveSet {
	if !id.Valid() {
		return in
	}
	a.res.Live.Set(id, in)
	n := a.t.Node(id)
	switch n.Kind {
	case jsast.KindRef, jsast.KindThis, jsast.KindLiteral:
		return in
	case jsast.KindArray, jsast.KindObject:
		return a.seq(n.Children, in)
	case jsast.KindProperty:
		cur := in
		if n.Flags.Has(jsast.FlagComputed) {
			cur = a.expr(n.Children[0], cur)
		}
		return a.expr(n.Children[1], cur)
	case jsast.KindFunction:
		if !a.done.Value(id) {
			a.function(id, in)
		}
		return in
	case jsast.KindClass:
		return a.class(id, in)
	case jsast.KindPattern:
		return a.target(id, in, true)
	case jsast.KindOp:
		return a.op(id, in)
	}
	panic(fmt.Sprintf("flow: unhandled expression %s at offset %d", n.Kind, n.Pos))
}

func (a *analyzer) op(id jsast.NodeID, in *LiveSet) *LiveSet {
	n := a.t.Node(id)
	switch n.Op {
	case jsast.OpAssign:
		target, value := n.Children[0], n.Children[1]
		switch a.t.Kind(target) {
		case jsast.KindRef:
			a.res.Live.Set(target, in)
			return a.bind(target, a.expr(value, in))
		case jsast.KindPattern:
			return a.target(target, a.expr(value, in), true)
		}
		return a.expr(value, a.expr(target, in))
	case jsast.OpAssignOp:
		target := n.Children[0]
		cur := a.expr(n.Children[1], a.expr(target, in))
		if a.t.Kind(target) == jsast.KindRef {
			cur = a.bind(target, cur)
		}
		return cur
	case jsast.OpAssignAnd, jsast.OpAssignOr, jsast.OpAssignCoalesce, jsast.OpCoalesce:
		// The right operand may not run.
		cur := a.expr(n.Children[0], in)
		a.expr(n.Children[1], cur)
		return cur
	case jsast.OpAnd, jsast.OpOr:
		t, f := a.cond(id, in)
		return meet(t, f)
	case jsast.OpHook:
		t, f := a.cond(n.Children[0], in)
		return meet(a.expr(n.Children[1], t), a.expr(n.Children[2], f))
	case jsast.OpBinary:
		spine := []jsast.NodeID{id}
		left := n.Children[0]
		for a.t.IsOp(left, jsast.OpBinary) {
			spine = append(spine, left)
			left = a.t.Child(left, 0)
		}
		for _, s := range spine[1:] {
			a.res.Live.Set(s, in)
		}
		cur := a.expr(left, in)
		for i := len(spine) - 1; i >= 0; i-- {
			cur = a.expr(a.t.Child(spine[i], 1), cur)
		}
		return cur
	case jsast.OpDefault:
		a.expr(n.Children[1], in)
		return a.target(n.Children[0], in, true)
	}
	return a.seq(n.Children, in)
}
