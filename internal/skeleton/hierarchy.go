package skeleton

import "bone-pruner/internal/scene"

// BoneInfo is a node of the pruned bone forest. It references its scene node
// by handle only; dropping a BoneInfo never touches the scene.
type BoneInfo struct {
	Bone     scene.NodeID
	Name     string
	Depth    int
	Deleted  bool
	Children []*BoneInfo
}

// Extract builds the bone forest of m: one tree per distinct root bone, each
// holding the skinning bones below it plus the grouping nodes that lead to
// them. Subtrees without a single bone are left out.
//
// A root bone that already sits below another binding's root bone is not
// given its own tree, so no bone appears twice in the forest.
func Extract(m *scene.Model) []*BoneInfo {
	bones := CollectBones(m, true)
	x := extractor{
		g:       m.Graph,
		bones:   bones,
		visited: NewBoneSet(),
		hasBone: make(map[scene.NodeID]bool),
	}

	var roots []scene.NodeID
	seen := NewBoneSet()
	for _, b := range m.Bindings {
		if b.RootBone == scene.NoNode || !m.Graph.Alive(b.RootBone) || seen.Contains(b.RootBone) {
			continue
		}
		seen.Add(b.RootBone)
		roots = append(roots, b.RootBone)
	}

	var forest []*BoneInfo
	for _, r := range roots {
		nested := false
		for _, other := range roots {
			if other != r && m.Graph.IsAncestor(other, r) {
				nested = true
				break
			}
		}
		if nested || x.visited.Contains(r) {
			continue
		}
		forest = append(forest, x.node(r, 0))
	}
	return forest
}

type extractor struct {
	g       *scene.Graph
	bones   *BoneSet
	visited *BoneSet
	hasBone map[scene.NodeID]bool
}

func (x *extractor) node(id scene.NodeID, depth int) *BoneInfo {
	x.visited.Add(id)
	info := &BoneInfo{Bone: id, Name: x.g.Name(id), Depth: depth}
	for _, c := range x.g.Children(id) {
		if x.visited.Contains(c) {
			continue
		}
		if x.bones.Contains(c) || x.containsBone(c) {
			info.Children = append(info.Children, x.node(c, depth+1))
		}
	}
	return info
}

// containsBone reports whether id or any live descendant is a skinning bone.
func (x *extractor) containsBone(id scene.NodeID) bool {
	if v, ok := x.hasBone[id]; ok {
		return v
	}
	found := x.bones.Contains(id)
	for _, c := range x.g.Children(id) {
		if x.containsBone(c) {
			found = true
		}
	}
	x.hasBone[id] = found
	return found
}

// Flatten lists the forest in post-order: every child before its parent,
// siblings and roots in order. The result only depends on the forest's
// shape, which makes it usable as a positional index across clones.
func Flatten(roots []*BoneInfo) []*BoneInfo {
	var out []*BoneInfo
	var walk func(*BoneInfo)
	walk = func(b *BoneInfo) {
		for _, c := range b.Children {
			walk(c)
		}
		out = append(out, b)
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

// Find returns the first BoneInfo in post-order whose name matches.
func Find(roots []*BoneInfo, name string) *BoneInfo {
	for _, b := range Flatten(roots) {
		if b.Name == name {
			return b
		}
	}
	return nil
}
