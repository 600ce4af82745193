package skeleton

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bone-pruner/internal/mathutil"
	"bone-pruner/internal/scene"
)

// rig is a hand-built model whose nodes can be addressed by name.
type rig struct {
	m   *scene.Model
	ids map[string]scene.NodeID
}

func newRig() *rig {
	m := scene.NewModel("avatar")
	return &rig{m: m, ids: map[string]scene.NodeID{"avatar": m.Root}}
}

// node adds name under parent ("" = model root).
func (r *rig) node(name, parent string) scene.NodeID {
	p := r.m.Root
	if parent != "" {
		p = r.ids[parent]
	}
	id := r.m.Graph.Add(name, p, scene.Translate(0, float64(len(r.ids)), 0))
	r.ids[name] = id
	return id
}

// bind adds a binding over the named bones with the given root bone.
func (r *rig) bind(name, root string, bones []string, weights ...scene.VertexWeight) *scene.Binding {
	b := &scene.Binding{
		Name:     name,
		Mesh:     name + "Mesh",
		Enabled:  true,
		RootBone: scene.NoNode,
		Weights:  weights,
	}
	if root != "" {
		b.RootBone = r.ids[root]
	}
	for _, n := range bones {
		b.Bones = append(b.Bones, r.ids[n])
		b.BindPoses = append(b.BindPoses, mathutil.Mat4Identity())
	}
	return r.m.AddBinding(b)
}

func (r *rig) names(infos []*BoneInfo) []string {
	out := make([]string, len(infos))
	for i, b := range infos {
		out[i] = b.Name
	}
	return out
}

func (r *rig) boneNames(b *scene.Binding) []string {
	out := make([]string, len(b.Bones))
	for i, id := range b.Bones {
		out[i] = r.m.Graph.Name(id)
	}
	return out
}

// slots builds a vertex from (bone, weight) pairs; missing slots are unused.
func slots(pairs ...any) scene.VertexWeight {
	w := scene.Unweighted()
	for i := 0; i+1 < len(pairs); i += 2 {
		w[i/2] = scene.Influence{Bone: pairs[i].(int), Weight: float32(pairs[i+1].(float64))}
	}
	return w
}

func mark(t *testing.T, roots []*BoneInfo, names ...string) DeletionSet {
	t.Helper()
	require.NoError(t, MarkByName(roots, names...))
	return Deleted(roots)
}

// spineRig is Root -> Spine -> Head, all three skinning bones.
func spineRig() *rig {
	r := newRig()
	r.node("Root", "")
	r.node("Spine", "Root")
	r.node("Head", "Spine")
	r.bind("Body", "Root", []string{"Root", "Spine", "Head"},
		slots(0, 1.0),
		slots(1, 0.6, 2, 0.4),
		slots(2, 1.0),
	)
	return r
}
