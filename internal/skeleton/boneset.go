package skeleton

import (
	"github.com/RoaringBitmap/roaring"

	"bone-pruner/internal/scene"
)

// BoneSet is a set of node handles.
type BoneSet struct {
	bm *roaring.Bitmap
}

func NewBoneSet(ids ...scene.NodeID) *BoneSet {
	s := &BoneSet{bm: roaring.New()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. NoNode is ignored.
func (s *BoneSet) Add(id scene.NodeID) {
	if id == scene.NoNode {
		return
	}
	s.bm.Add(uint32(id))
}

func (s *BoneSet) Contains(id scene.NodeID) bool {
	if id == scene.NoNode {
		return false
	}
	return s.bm.Contains(uint32(id))
}

func (s *BoneSet) Len() int {
	return int(s.bm.GetCardinality())
}

// IDs returns the members in ascending handle order.
func (s *BoneSet) IDs() []scene.NodeID {
	raw := s.bm.ToArray()
	out := make([]scene.NodeID, len(raw))
	for i, v := range raw {
		out[i] = scene.NodeID(v)
	}
	return out
}

// CollectBones returns the distinct bones referenced by the model's bindings.
// Bindings with Enabled == false are only scanned when includeDisabled is set.
func CollectBones(m *scene.Model, includeDisabled bool) *BoneSet {
	s := NewBoneSet()
	for _, b := range m.Bindings {
		if !b.Enabled && !includeDisabled {
			continue
		}
		for _, id := range b.Bones {
			s.Add(id)
		}
	}
	return s
}

// BoneCount is the number of distinct skinning bones in the model.
func BoneCount(m *scene.Model, includeDisabled bool) int {
	return CollectBones(m, includeDisabled).Len()
}
