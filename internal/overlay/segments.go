// Package overlay draws the bone forest as colored line segments: kept bones
// red, bones marked for deletion green.
package overlay

import (
	"bone-pruner/internal/mathutil"
	"bone-pruner/internal/scene"
	"bone-pruner/internal/skeleton"
)

// Segment joins a bone to one of its children. Deleted is the child's flag.
type Segment struct {
	Parent, Child string
	From, To      mathutil.Vec3
	Deleted       bool
}

// Segments walks the forest and returns one segment per parent-child pair,
// with endpoints at the bones' world positions.
func Segments(g *scene.Graph, roots []*skeleton.BoneInfo) []Segment {
	pos := make(map[scene.NodeID]mathutil.Vec3)
	at := func(id scene.NodeID) mathutil.Vec3 {
		p, ok := pos[id]
		if !ok {
			p = g.World(id).Translation()
			pos[id] = p
		}
		return p
	}

	var segs []Segment
	var walk func(b *skeleton.BoneInfo)
	walk = func(b *skeleton.BoneInfo) {
		for _, c := range b.Children {
			if c == nil {
				continue
			}
			segs = append(segs, Segment{
				Parent:  b.Name,
				Child:   c.Name,
				From:    at(b.Bone),
				To:      at(c.Bone),
				Deleted: c.Deleted,
			})
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return segs
}

// Counts returns how many segments are kept and deleted.
func Counts(segs []Segment) (kept, deleted int) {
	for _, s := range segs {
		if s.Deleted {
			deleted++
		} else {
			kept++
		}
	}
	return kept, deleted
}
