package skeleton

import (
	"errors"
	"fmt"
	"slices"

	"bone-pruner/internal/scene"
)

var (
	ErrRootBoneMissing = errors.New("skeleton: root bone is not in the binding's bones")
	ErrRootBoneDeleted = errors.New("skeleton: retarget fell back to a deleted root bone")
)

// Retargeted is the outcome of Retarget for one binding.
type Retargeted struct {
	Weights []scene.VertexWeight // fresh copy, same vertex order
	Removed []int                // positions in Bones of every deleted bone
	Targets map[int]int          // removed position -> inheriting position
	Changed bool
}

// Retarget moves every influence slot that points at a deleted bone onto the
// nearest ancestor that survives and that this binding actually skins with.
// Grouping nodes and other bindings' bones are walked past. When the walk
// leaves the hierarchy or meets the binding's root bone, the root bone
// inherits. Weights keep their magnitude and slots are never merged, so a
// vertex may end up with two slots on the same bone.
//
// The binding is not modified. A binding without a root bone is returned
// unchanged.
func Retarget(g *scene.Graph, b *scene.Binding, del DeletionSet) (Retargeted, error) {
	out := Retargeted{Weights: b.Weights}
	if b.RootBone == scene.NoNode {
		return out, nil
	}
	deleted := del.Set()

	for _, d := range del {
		positions := indicesOf(b.Bones, d.Bone)
		if len(positions) == 0 {
			continue
		}
		target, err := retargetIndex(g, b, d.Bone, deleted)
		if err != nil {
			return Retargeted{Weights: b.Weights}, fmt.Errorf("%s: bone %q: %w", b.Name, d.Name, err)
		}
		if !out.Changed {
			out.Weights = slices.Clone(b.Weights)
			out.Targets = make(map[int]int)
			out.Changed = true
		}
		for _, from := range positions {
			reassign(out.Weights, from, target)
			out.Removed = append(out.Removed, from)
			out.Targets[from] = target
		}
	}
	return out, nil
}

// retargetIndex walks up from bone's parent to the inheriting bone and
// returns its position in b.Bones.
func retargetIndex(g *scene.Graph, b *scene.Binding, bone scene.NodeID, deleted *BoneSet) (int, error) {
	for n := g.Parent(bone); n != scene.NoNode; n = g.Parent(n) {
		if n == b.RootBone {
			break
		}
		if deleted.Contains(n) {
			continue
		}
		if i := b.IndexOf(n); i >= 0 {
			return i, nil
		}
	}
	if deleted.Contains(b.RootBone) {
		return 0, ErrRootBoneDeleted
	}
	i := b.IndexOf(b.RootBone)
	if i < 0 {
		return 0, ErrRootBoneMissing
	}
	return i, nil
}

func reassign(weights []scene.VertexWeight, from, to int) {
	for vi := range weights {
		for si := range weights[vi] {
			if weights[vi][si].Bone == from {
				weights[vi][si].Bone = to
			}
		}
	}
}

func indicesOf(bones []scene.NodeID, id scene.NodeID) []int {
	var out []int
	for i, b := range bones {
		if b == id {
			out = append(out, i)
		}
	}
	return out
}
