package scene

import "slices"

// Tombstone records one DestroySubtrees call so it can be undone as a unit.
type Tombstone struct {
	g       *Graph
	entries []tombEntry
	undone  bool
}

type tombEntry struct {
	root    NodeID
	parent  NodeID
	index   int      // position in parent's children
	subtree []NodeID // root first
}

// DestroySubtrees detaches each listed node from its parent and marks it and
// every live descendant dead. Handles that are already dead, or that lie
// inside a subtree destroyed earlier in the same call, are skipped.
func (g *Graph) DestroySubtrees(ids []NodeID) *Tombstone {
	t := &Tombstone{g: g}
	for _, id := range ids {
		n := g.Node(id)
		if n == nil {
			continue
		}
		e := tombEntry{root: id, parent: n.Parent, index: -1}
		if p := g.Node(n.Parent); p != nil {
			e.index = slices.Index(p.Children, id)
			p.Children = slices.Delete(p.Children, e.index, e.index+1)
		}
		g.Walk(id, func(d NodeID) bool {
			e.subtree = append(e.subtree, d)
			return true
		})
		for _, d := range e.subtree {
			g.nodes[d].alive = false
		}
		t.entries = append(t.entries, e)
	}
	return t
}

// Nodes returns every destroyed handle, subtree roots first within each entry.
func (t *Tombstone) Nodes() []NodeID {
	var out []NodeID
	for _, e := range t.entries {
		out = append(out, e.subtree...)
	}
	return out
}

// Roots returns the handles passed to DestroySubtrees that were destroyed.
func (t *Tombstone) Roots() []NodeID {
	out := make([]NodeID, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.root
	}
	return out
}

// Undo restores every destroyed node with its original parent link and child
// position. A second call is a no-op.
func (t *Tombstone) Undo() {
	if t == nil || t.undone {
		return
	}
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		for _, d := range e.subtree {
			t.g.nodes[d].alive = true
		}
		if p := t.g.Node(e.parent); p != nil && e.index >= 0 {
			p.Children = slices.Insert(p.Children, e.index, e.root)
		}
	}
	t.undone = true
}
