package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bone-pruner/internal/mathutil"
)

// arm builds root > shoulder > (elbow > hand, pad).
func arm() (*Graph, map[string]NodeID) {
	g := NewGraph()
	ids := map[string]NodeID{}
	ids["root"] = g.Add("root", NoNode, mathutil.Mat4Identity())
	ids["shoulder"] = g.Add("shoulder", ids["root"], Translate(1, 0, 0))
	ids["elbow"] = g.Add("elbow", ids["shoulder"], Translate(1, 0, 0))
	ids["hand"] = g.Add("hand", ids["elbow"], Translate(1, 0, 0))
	ids["pad"] = g.Add("pad", ids["shoulder"], Translate(0, 1, 0))
	return g, ids
}

func TestGraph_Structure(t *testing.T) {
	g, ids := arm()
	assert.Equal(t, []NodeID{ids["elbow"], ids["pad"]}, g.Children(ids["shoulder"]))
	assert.Equal(t, ids["elbow"], g.Parent(ids["hand"]))
	assert.Equal(t, NoNode, g.Parent(ids["root"]))
	assert.True(t, g.IsAncestor(ids["shoulder"], ids["hand"]))
	assert.False(t, g.IsAncestor(ids["hand"], ids["hand"]))

	assert.Equal(t, mathutil.Vec3{3, 0, 0}, g.World(ids["hand"]).Translation())

	var order []string
	g.Walk(ids["root"], func(id NodeID) bool {
		order = append(order, g.Name(id))
		return id != ids["elbow"]
	})
	assert.Equal(t, []string{"root", "shoulder", "elbow", "pad"}, order)

	id, ok := g.Find("pad")
	assert.True(t, ok)
	assert.Equal(t, ids["pad"], id)
	assert.Nil(t, g.Node(NoNode))
}

func TestDestroySubtrees_Undo(t *testing.T) {
	g, ids := arm()
	tomb := g.DestroySubtrees([]NodeID{ids["hand"], ids["elbow"], ids["hand"]})

	assert.Equal(t, []NodeID{ids["hand"], ids["elbow"]}, tomb.Roots())
	assert.ElementsMatch(t, []NodeID{ids["hand"], ids["elbow"]}, tomb.Nodes())
	assert.False(t, g.Alive(ids["elbow"]))
	assert.Equal(t, []NodeID{ids["pad"]}, g.Children(ids["shoulder"]))
	_, ok := g.Find("hand")
	assert.False(t, ok)

	tomb.Undo()
	assert.True(t, g.Alive(ids["hand"]))
	assert.Equal(t, []NodeID{ids["elbow"], ids["pad"]}, g.Children(ids["shoulder"]))
	assert.Equal(t, []NodeID{ids["hand"]}, g.Children(ids["elbow"]))

	tomb.Undo()
	assert.Equal(t, []NodeID{ids["elbow"], ids["pad"]}, g.Children(ids["shoulder"]))
}

func TestGraph_CloneKeepsHandles(t *testing.T) {
	g, ids := arm()
	c := g.Clone()
	c.DestroySubtrees([]NodeID{ids["pad"]})
	c.Node(ids["hand"]).Name = "claw"

	assert.True(t, g.Alive(ids["pad"]))
	assert.Equal(t, "hand", g.Name(ids["hand"]))
	assert.Equal(t, "claw", c.Name(ids["hand"]))
	assert.Equal(t, []NodeID{ids["elbow"]}, c.Children(ids["shoulder"]))
}

func TestModel_CloneAndValidate(t *testing.T) {
	m := NewModel("avatar")
	hips := m.Graph.Add("Hips", m.Root, mathutil.Mat4Identity())
	b := m.AddBinding(&Binding{
		Name:      "Body",
		RootBone:  hips,
		Bones:     []NodeID{hips},
		BindPoses: []mathutil.Mat4{mathutil.Mat4Identity()},
		Weights:   []VertexWeight{Rigid(0), Unweighted()},
	})
	require.NoError(t, m.Validate())

	c := m.Clone("avatar_deleteBones")
	assert.Equal(t, "avatar_deleteBones", c.Graph.Name(c.Root))
	assert.Equal(t, "avatar", m.Graph.Name(m.Root))
	c.Bindings[0].Weights[0] = Rigid(5)
	assert.Equal(t, Rigid(0), b.Weights[0])
	assert.ErrorIs(t, c.Validate(), ErrBoneIndex)

	b.BindPoses = nil
	assert.ErrorIs(t, m.Validate(), ErrBindPoseCount)
}
