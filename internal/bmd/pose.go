package bmd

import "bone-pruner/internal/mathutil"

// Local returns the bone's bind-pose transform relative to its parent.
func (b Bone) Local() mathutil.Mat4 {
	if b.IsDummy {
		return mathutil.Mat4Identity()
	}
	q := mathutil.EulerToQuat(b.BindRotation[0], b.BindRotation[1], b.BindRotation[2])
	pos := mathutil.Vec3{b.BindPosition[0], b.BindPosition[1], b.BindPosition[2]}
	return mathutil.FromMat3Translation(mathutil.QuatToMat3(q), pos)
}

// parentOf returns the usable parent index of bone i, or -1.
func parentOf(bones []Bone, i int) int {
	b := bones[i]
	if b.IsDummy || b.Parent < 0 || b.Parent >= len(bones) || b.Parent == i || bones[b.Parent].IsDummy {
		return -1
	}
	return b.Parent
}

// BuildWorldMatrices computes the model-space transform for each bone using
// bind pose (frame 0, action 0). Returns a slice of 4×4 matrices indexed by
// bone index. Parent cycles are cut where they close.
func BuildWorldMatrices(bones []Bone) []mathutil.Mat4 {
	worlds := make([]mathutil.Mat4, len(bones))
	state := make([]uint8, len(bones)) // 0 pending, 1 in progress, 2 done

	var world func(i int) mathutil.Mat4
	world = func(i int) mathutil.Mat4 {
		if state[i] == 2 {
			return worlds[i]
		}
		state[i] = 1
		local := bones[i].Local()
		// Chain with parent
		if p := parentOf(bones, i); p >= 0 && state[p] != 1 {
			worlds[i] = mathutil.Mat4Mul(world(p), local)
		} else {
			worlds[i] = local
		}
		state[i] = 2
		return worlds[i]
	}

	for i := range bones {
		world(i)
	}
	return worlds
}
