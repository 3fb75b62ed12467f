// Copyright © 2024 The ELPS authors

package jsast

// Walk calls fn for every node under root, depth-first in source order.
// parent is NoNode for root. When fn returns false the node's children are
// skipped.
func Walk(t *Tree, root NodeID, fn func(id, parent NodeID, depth int) bool) {
	if !root.Valid() {
		return
	}
	walkNode(t, root, NoNode, 0, fn)
}

func walkNode(t *Tree, id, parent NodeID, depth int, fn func(NodeID, NodeID, int) bool) {
	if !fn(id, parent, depth) {
		return
	}
	for _, child := range t.Nodes[id].Children {
		if child.Valid() {
			walkNode(t, child, id, depth+1, fn)
		}
	}
}

// Inspect calls fn for every node under root in source order, stopping
// descent where fn returns false.
func Inspect(t *Tree, root NodeID, fn func(id NodeID) bool) {
	Walk(t, root, func(id, _ NodeID, _ int) bool { return fn(id) })
}

// Parents returns the parent of every node, indexed by NodeID. The root's
// parent is NoNode.
func Parents(t *Tree) []NodeID {
	parents := make([]NodeID, len(t.Nodes))
	for i := range parents {
		parents[i] = NoNode
	}
	for i := range t.Nodes {
		for _, c := range t.Nodes[i].Children {
			if c.Valid() {
				parents[c] = NodeID(i)
			}
		}
	}
	return parents
}

// EachBinding calls fn for every identifier bound by the binding or
// assignment target rooted at target. Default value expressions and computed
// keys are not visited.
func EachBinding(t *Tree, target NodeID, fn func(ref NodeID)) {
	if !target.Valid() {
		return
	}
	n := &t.Nodes[target]
	switch n.Kind {
	case KindRef:
		fn(target)
	case KindPattern:
		for _, c := range n.Children {
			EachBinding(t, c, fn)
		}
	case KindProperty:
		EachBinding(t, t.Child(target, 1), fn)
	case KindDecl:
		EachBinding(t, t.Child(target, 0), fn)
	case KindOp:
		switch n.Op {
		case OpDefault, OpSpread:
			EachBinding(t, t.Child(target, 0), fn)
		}
	}
}

// BoundNames returns the names bound by target in source order.
func BoundNames(t *Tree, target NodeID) []string {
	var names []string
	EachBinding(t, target, func(ref NodeID) {
		names = append(names, t.Nodes[ref].Name)
	})
	return names
}

// Unparen strips optional-chain wrappers from an expression.
func Unparen(t *Tree, id NodeID) NodeID {
	for t.IsOp(id, OpOptional) {
		id = t.Child(id, 0)
	}
	return id
}
