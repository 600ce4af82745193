package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bone-pruner/internal/scene"
)

func TestRetarget_LeafToParent(t *testing.T) {
	r := newRig()
	r.node("Root", "")
	r.node("Arm", "Root")
	r.node("Hand", "Arm")
	b := r.bind("Body", "Root", []string{"Root", "Arm", "Hand"},
		slots(1, 1.0),
		slots(2, 0.7, 1, 0.3),
	)
	del := mark(t, Extract(r.m), "Hand")

	rt, err := Retarget(r.m.Graph, b, del)
	require.NoError(t, err)
	assert.True(t, rt.Changed)
	assert.Equal(t, []int{2}, rt.Removed)
	assert.Equal(t, map[int]int{2: 1}, rt.Targets)
	assert.Equal(t, slots(1, 1.0), rt.Weights[0])
	assert.Equal(t, slots(1, 0.7, 1, 0.3), rt.Weights[1], "slots on the same bone are not merged")
	assert.Equal(t, 2, b.Weights[1][0].Bone, "input weights untouched")
}

func TestRetarget_SkipsGroupingNode(t *testing.T) {
	r := newRig()
	r.node("Root", "")
	r.node("Arm", "Root")
	r.node("Group", "Arm")
	r.node("Hand", "Group")
	b := r.bind("Body", "Root", []string{"Root", "Arm", "Hand"}, slots(2, 1.0))
	roots := Extract(r.m)
	require.NotNil(t, Find(roots, "Group"))

	rt, err := Retarget(r.m.Graph, b, mark(t, roots, "Hand"))
	require.NoError(t, err)
	assert.Equal(t, 1, rt.Weights[0][0].Bone)
}

func TestRetarget_SkipsOtherBindingsBones(t *testing.T) {
	r := newRig()
	r.node("Root", "")
	r.node("Arm", "Root")
	r.node("Hand", "Arm")
	glove := r.bind("Glove", "Root", []string{"Root", "Hand"}, slots(1, 1.0))
	r.bind("Sleeve", "Root", []string{"Arm"})

	rt, err := Retarget(r.m.Graph, glove, mark(t, Extract(r.m), "Hand"))
	require.NoError(t, err)
	assert.Equal(t, 0, rt.Weights[0][0].Bone, "Arm is not in Glove's bones, so Root inherits")
}

func TestRetarget_SkipsDeletedAncestors(t *testing.T) {
	r := spineRig()

	rt, err := Retarget(r.m.Graph, r.m.Bindings[0], mark(t, Extract(r.m), "Spine"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, rt.Removed)
	assert.Equal(t, map[int]int{1: 0, 2: 0}, rt.Targets)
}

func TestRetarget_FallsBackToRootBoneAtTop(t *testing.T) {
	r := spineRig()
	prop := r.node("Prop", "")
	b := r.m.Bindings[0]
	b.RootBone = r.ids["Spine"]
	b.Bones = append(b.Bones, prop)
	b.BindPoses = append(b.BindPoses, b.BindPoses[0])
	b.Weights = append(b.Weights, slots(3, 1.0))

	rt, err := Retarget(r.m.Graph, b, DeletionSet{{Bone: prop, Name: "Prop"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rt.Weights[3][0].Bone)
}

func TestRetarget_RootBoneMissing(t *testing.T) {
	r := spineRig()
	b := r.bind("Hair", "Root", []string{"Spine", "Head"}, slots(1, 1.0))

	_, err := Retarget(r.m.Graph, b, mark(t, Extract(r.m), "Spine"))
	assert.ErrorIs(t, err, ErrRootBoneMissing)
	assert.Contains(t, err.Error(), "Hair")
}

func TestRetarget_RootBoneDeleted(t *testing.T) {
	r := spineRig()

	_, err := Retarget(r.m.Graph, r.m.Bindings[0], mark(t, Extract(r.m), "Root"))
	assert.ErrorIs(t, err, ErrRootBoneDeleted)
}

func TestRetarget_NoOverlap(t *testing.T) {
	r := spineRig()
	r.node("Tail", "Root")
	tail := r.bind("Tail", "Root", []string{"Root", "Tail"}, slots(1, 1.0))
	body := r.m.Bindings[0]

	del := mark(t, Extract(r.m), "Tail")

	rt, err := Retarget(r.m.Graph, body, del)
	require.NoError(t, err)
	assert.False(t, rt.Changed)
	assert.Empty(t, rt.Removed)
	assert.Same(t, &body.Weights[0], &rt.Weights[0])

	rt, err = Retarget(r.m.Graph, tail, del)
	require.NoError(t, err)
	assert.True(t, rt.Changed)
}

func TestRetarget_NilRootBone(t *testing.T) {
	r := spineRig()
	b := r.m.Bindings[0]
	del := mark(t, Extract(r.m), "Head")
	b.RootBone = scene.NoNode

	rt, err := Retarget(r.m.Graph, b, del)
	require.NoError(t, err)
	assert.False(t, rt.Changed)
}

func TestRetarget_DuplicateHandles(t *testing.T) {
	r := spineRig()
	b := r.bind("Dup", "Root", []string{"Root", "Head", "Head"}, slots(1, 0.5, 2, 0.5))

	rt, err := Retarget(r.m.Graph, b, mark(t, Extract(r.m), "Head"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rt.Removed)
	assert.Equal(t, slots(0, 0.5, 0, 0.5), rt.Weights[0])
}
