package scene

import (
	"errors"
	"fmt"
	"slices"

	"bone-pruner/internal/mathutil"
)

// UnusedSlot marks an influence slot that carries no bone.
const UnusedSlot = -1

// MaxInfluences is the number of bone influences stored per vertex.
const MaxInfluences = 4

var (
	ErrBindPoseCount = errors.New("scene: bind pose count does not match bone count")
	ErrBoneIndex     = errors.New("scene: vertex bone index out of range")
)

// Influence is one (bone index, weight) slot of a vertex.
type Influence struct {
	Bone   int // position in Binding.Bones, or UnusedSlot
	Weight float32
}

// VertexWeight holds the influence slots of one vertex.
type VertexWeight [MaxInfluences]Influence

// Unweighted returns a vertex with every slot unused.
func Unweighted() VertexWeight {
	var w VertexWeight
	for i := range w {
		w[i] = Influence{Bone: UnusedSlot}
	}
	return w
}

// Rigid returns a vertex fully bound to a single bone.
func Rigid(bone int) VertexWeight {
	w := Unweighted()
	w[0] = Influence{Bone: bone, Weight: 1}
	return w
}

// Binding is a skinned mesh: its bone array, the parallel bind poses and the
// per-vertex influences indexing into Bones.
type Binding struct {
	Name      string // owning component
	Mesh      string // mesh asset name
	Enabled   bool
	RootBone  NodeID
	Bones     []NodeID
	BindPoses []mathutil.Mat4
	Weights   []VertexWeight
}

// IndexOf returns the first position of id in Bones, or -1.
func (b *Binding) IndexOf(id NodeID) int {
	return slices.Index(b.Bones, id)
}

// Clone deep-copies the binding.
func (b *Binding) Clone() *Binding {
	c := *b
	c.Bones = slices.Clone(b.Bones)
	c.BindPoses = slices.Clone(b.BindPoses)
	c.Weights = slices.Clone(b.Weights)
	return &c
}

// Validate checks that bind poses parallel the bones and that every used
// influence slot indexes into Bones.
func (b *Binding) Validate() error {
	if len(b.BindPoses) != len(b.Bones) {
		return fmt.Errorf("%w: %s has %d bones, %d bind poses", ErrBindPoseCount, b.Name, len(b.Bones), len(b.BindPoses))
	}
	for vi, w := range b.Weights {
		for si, s := range w {
			if s.Bone == UnusedSlot {
				continue
			}
			if s.Bone < 0 || s.Bone >= len(b.Bones) {
				return fmt.Errorf("%w: %s vertex %d slot %d = %d (bones %d)", ErrBoneIndex, b.Name, vi, si, s.Bone, len(b.Bones))
			}
		}
	}
	return nil
}
