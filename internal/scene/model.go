package scene

import "bone-pruner/internal/mathutil"

// Model is a skinned model: its scene graph, the node the model hangs from,
// and every skin binding beneath it.
type Model struct {
	Name     string
	Graph    *Graph
	Root     NodeID
	Bindings []*Binding
}

// NewModel creates a model with a single root node.
func NewModel(name string) *Model {
	g := NewGraph()
	root := g.Add(name, NoNode, mathutil.Mat4Identity())
	return &Model{Name: name, Graph: g, Root: root}
}

// AddBinding appends b and returns it.
func (m *Model) AddBinding(b *Binding) *Binding {
	m.Bindings = append(m.Bindings, b)
	return b
}

// Clone duplicates the model under a new name. The copy's graph keeps the
// source handle values and the bindings keep their order.
func (m *Model) Clone(name string) *Model {
	c := &Model{
		Name:     name,
		Graph:    m.Graph.Clone(),
		Root:     m.Root,
		Bindings: make([]*Binding, len(m.Bindings)),
	}
	for i, b := range m.Bindings {
		c.Bindings[i] = b.Clone()
	}
	if n := c.Graph.Node(c.Root); n != nil {
		n.Name = name
	}
	return c
}

// Validate runs Binding.Validate on every binding.
func (m *Model) Validate() error {
	for _, b := range m.Bindings {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}
