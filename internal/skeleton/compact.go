package skeleton

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"bone-pruner/internal/mathutil"
	"bone-pruner/internal/scene"
)

var (
	ErrBindPoseMismatch = errors.New("skeleton: bones and bind poses differ in length")
	ErrIndexRange       = errors.New("skeleton: removed index out of range")
	ErrOrphanInfluence  = errors.New("skeleton: influence still points at a removed bone")
)

// Compact removes the listed positions from bones and poses and shifts the
// bone indices in weights so every surviving slot keeps addressing the same
// bone. Positions are removed from the highest down; each removal shifts the
// indices above it before the next one. Weights are rewritten in place; the
// returned slices are new. Influences must already have been retargeted off
// the removed positions.
func Compact(bones []scene.NodeID, poses []mathutil.Mat4, weights []scene.VertexWeight, removed []int) ([]scene.NodeID, []mathutil.Mat4, error) {
	if len(bones) != len(poses) {
		return nil, nil, fmt.Errorf("%w: %d bones, %d bind poses", ErrBindPoseMismatch, len(bones), len(poses))
	}
	order := slices.Clone(removed)
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(b, a) })
	order = slices.Compact(order)

	drop := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= len(bones) {
			return nil, nil, fmt.Errorf("%w: %d (bones %d)", ErrIndexRange, i, len(bones))
		}
		drop[i] = true
	}
	for vi, w := range weights {
		for _, s := range w {
			if s.Bone != scene.UnusedSlot && drop[s.Bone] {
				return nil, nil, fmt.Errorf("%w: vertex %d bone %d", ErrOrphanInfluence, vi, s.Bone)
			}
		}
	}

	outBones := slices.Clone(bones)
	outPoses := slices.Clone(poses)
	for _, i := range order {
		for vi := range weights {
			for si := range weights[vi] {
				if weights[vi][si].Bone > i {
					weights[vi][si].Bone--
				}
			}
		}
		outBones = slices.Delete(outBones, i, i+1)
		outPoses = slices.Delete(outPoses, i, i+1)
	}
	return outBones, outPoses, nil
}
