package skeleton

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"bone-pruner/internal/scene"
)

var (
	ErrUnknownBone    = errors.New("skeleton: no bone with that name")
	ErrForestMismatch = errors.New("skeleton: flattened forests differ in length")
)

// SetDeleted flags the bone and its whole subtree.
func (b *BoneInfo) SetDeleted(deleted bool) {
	b.Deleted = deleted
	for _, c := range b.Children {
		c.SetDeleted(deleted)
	}
}

// DeletedBone is one member of a DeletionSet.
type DeletedBone struct {
	Bone  scene.NodeID
	Name  string
	Depth int
}

// DeletionSet lists the bones to remove, deepest first. Sets built by
// Deleted are closed under descent: every descendant of a member is a member.
type DeletionSet []DeletedBone

// Deleted collects the flagged bones of the forest, deduplicated and sorted
// by descending depth, then by handle.
func Deleted(roots []*BoneInfo) DeletionSet {
	seen := NewBoneSet()
	var del DeletionSet
	for _, b := range Flatten(roots) {
		if !b.Deleted || seen.Contains(b.Bone) {
			continue
		}
		seen.Add(b.Bone)
		del = append(del, DeletedBone{Bone: b.Bone, Name: b.Name, Depth: b.Depth})
	}
	slices.SortStableFunc(del, func(a, b DeletedBone) int {
		if c := cmp.Compare(b.Depth, a.Depth); c != 0 {
			return c
		}
		return cmp.Compare(a.Bone, b.Bone)
	})
	return del
}

// IDs returns the handles in set order.
func (d DeletionSet) IDs() []scene.NodeID {
	out := make([]scene.NodeID, len(d))
	for i, b := range d {
		out[i] = b.Bone
	}
	return out
}

// Set returns the members as a BoneSet for membership tests.
func (d DeletionSet) Set() *BoneSet {
	return NewBoneSet(d.IDs()...)
}

// MarkByName flags every bone whose name is listed, with its subtree.
// Names that match nothing are reported together; bones matched before the
// error stay flagged.
func MarkByName(roots []*BoneInfo, names ...string) error {
	flat := Flatten(roots)
	var missing []error
	for _, name := range names {
		found := false
		for _, b := range flat {
			if b.Name == name {
				b.SetDeleted(true)
				found = true
			}
		}
		if !found {
			missing = append(missing, fmt.Errorf("%w: %q", ErrUnknownBone, name))
		}
	}
	return errors.Join(missing...)
}

// CopyDeletedFlags copies deletion flags position by position from one
// flattened forest to another, as needed when editing a fresh clone of the
// model the flags were set on.
func CopyDeletedFlags(src, dst []*BoneInfo) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: %d vs %d", ErrForestMismatch, len(src), len(dst))
	}
	for i := range src {
		if src[i].Deleted {
			dst[i].Deleted = true
		}
	}
	return nil
}
