package skeleton

import (
	"errors"
	"fmt"

	"bone-pruner/internal/scene"
)

// ErrLiveReference is returned when a binding still skins with a bone that is
// about to be destroyed.
var ErrLiveReference = errors.New("skeleton: binding still references a deleted bone")

// Destroy removes the scene subtree of every deleted bone as one undoable
// step. It must run after every binding has been retargeted and compacted;
// any binding still listing a deleted bone aborts the call. Bindings without
// a root bone are never pruned and are not checked; their references to
// destroyed bones are left dangling, as the host would leave them.
//
// del must be closed under descent (as returned by Deleted). Destroying a
// subtree takes every node below it, so an open set would take surviving
// bones with it.
func Destroy(m *scene.Model, del DeletionSet) (*scene.Tombstone, error) {
	deleted := del.Set()
	for _, b := range m.Bindings {
		if b.RootBone == scene.NoNode {
			continue
		}
		for _, id := range b.Bones {
			if deleted.Contains(id) {
				return nil, fmt.Errorf("%w: %s uses %q", ErrLiveReference, b.Name, m.Graph.Name(id))
			}
		}
	}
	return m.Graph.DestroySubtrees(del.IDs()), nil
}
