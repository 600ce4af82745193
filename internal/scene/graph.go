// Package scene is the host-side model representation the pruning engine
// operates on: an arena of transform nodes addressed by NodeID handles plus
// the skin bindings that reference them.
package scene

import (
	"math"

	"bone-pruner/internal/mathutil"
)

// NodeID is an opaque handle into a Graph. Handles are never reused, so a
// destroyed node's handle stays invalid instead of aliasing a new node.
type NodeID uint32

// NoNode is the nil handle.
const NoNode NodeID = math.MaxUint32

// Node is one transform in the scene hierarchy.
type Node struct {
	Name     string
	Parent   NodeID
	Children []NodeID
	Local    mathutil.Mat4 // relative to Parent
	alive    bool
}

// Graph owns every node of a model. It is not safe for concurrent mutation.
type Graph struct {
	nodes []Node
}

func NewGraph() *Graph {
	return &Graph{}
}

// Add appends a node as the last child of parent (NoNode for a root) and
// returns its handle.
func (g *Graph) Add(name string, parent NodeID, local mathutil.Mat4) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		Name:   name,
		Parent: parent,
		Local:  local,
		alive:  true,
	})
	if p := g.Node(parent); p != nil {
		p.Children = append(p.Children, id)
	} else {
		g.nodes[id].Parent = NoNode
	}
	return id
}

// Node returns the live node for id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id == NoNode || int(id) >= len(g.nodes) || !g.nodes[id].alive {
		return nil
	}
	return &g.nodes[id]
}

func (g *Graph) Alive(id NodeID) bool {
	return g.Node(id) != nil
}

// Parent returns the parent handle, NoNode for roots and dead nodes.
func (g *Graph) Parent(id NodeID) NodeID {
	if n := g.Node(id); n != nil {
		return n.Parent
	}
	return NoNode
}

// Children returns the ordered child handles. The slice must not be modified.
func (g *Graph) Children(id NodeID) []NodeID {
	if n := g.Node(id); n != nil {
		return n.Children
	}
	return nil
}

func (g *Graph) Name(id NodeID) string {
	if n := g.Node(id); n != nil {
		return n.Name
	}
	return ""
}

// Len returns the number of handles ever issued, live or not.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Walk visits id and its live descendants in pre-order. Returning false from
// fn skips the node's children.
func (g *Graph) Walk(id NodeID, fn func(NodeID) bool) {
	if !g.Alive(id) {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range g.nodes[id].Children {
		g.Walk(c, fn)
	}
}

// IsAncestor reports whether anc is a strict ancestor of id.
func (g *Graph) IsAncestor(anc, id NodeID) bool {
	for p := g.Parent(id); p != NoNode; p = g.Parent(p) {
		if p == anc {
			return true
		}
	}
	return false
}

// World composes the local transforms from the root down to id.
func (g *Graph) World(id NodeID) mathutil.Mat4 {
	n := g.Node(id)
	if n == nil {
		return mathutil.Mat4Identity()
	}
	if n.Parent == NoNode {
		return n.Local
	}
	return mathutil.Mat4Mul(g.World(n.Parent), n.Local)
}

// Find returns the first live node with the given name in handle order.
func (g *Graph) Find(name string) (NodeID, bool) {
	for i := range g.nodes {
		if g.nodes[i].alive && g.nodes[i].Name == name {
			return NodeID(i), true
		}
	}
	return NoNode, false
}

// Clone deep-copies the graph. Handles keep their values, so an id from the
// source addresses the structurally identical node in the copy.
func (g *Graph) Clone() *Graph {
	c := &Graph{nodes: make([]Node, len(g.nodes))}
	for i, n := range g.nodes {
		n.Children = append([]NodeID(nil), n.Children...)
		c.nodes[i] = n
	}
	return c
}

// Translate is a pure translation, the common local transform for hand-built
// graphs.
func Translate(x, y, z float64) mathutil.Mat4 {
	return mathutil.FromMat3Translation(mathutil.Mat3Identity(), mathutil.Vec3{x, y, z})
}
