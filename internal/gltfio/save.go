package gltfio

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qmuntal/gltf"

	"bone-pruner/internal/scene"
)

// DefaultMeshSuffix is appended to the name of every mesh rewritten by Apply.
const DefaultMeshSuffix = "-pruned"

var (
	ErrModelMismatch = errors.New("gltfio: model does not match the document")
	ErrVertexCount   = errors.New("gltfio: binding vertex count changed")
)

// Apply writes the state of m into the document. m must be the File's model
// or a clone of it. Bindings whose bones or weights changed get a new skin
// and a copy of their mesh with rewritten JOINTS_0 and WEIGHTS_0; destroyed
// nodes are removed and every node reference is renumbered. Skins and meshes
// no longer used by any node are dropped.
func (f *File) Apply(m *scene.Model, meshSuffix string) error {
	if len(m.Bindings) != len(f.sources) {
		return fmt.Errorf("%w: %d bindings, document has %d", ErrModelMismatch, len(m.Bindings), len(f.sources))
	}
	for i, b := range m.Bindings {
		src := &f.sources[i]
		if src.gone || !m.Graph.Alive(f.ids[src.node]) {
			continue
		}
		if slices.Equal(b.Bones, src.bones) && slices.Equal(b.Weights, src.weights) {
			continue
		}
		if err := f.rebind(m.Graph, b, src, meshSuffix); err != nil {
			return fmt.Errorf("gltfio: %s: %w", b.Name, err)
		}
	}
	return f.compact(m.Graph)
}

func (f *File) rebind(g *scene.Graph, b *scene.Binding, src *source, suffix string) error {
	doc := f.Doc
	total := 0
	for _, p := range src.prims {
		total += p.count
	}
	if len(b.Weights) != total {
		return fmt.Errorf("%w: %d, was %d", ErrVertexCount, len(b.Weights), total)
	}

	joints := make([]uint32, len(b.Bones))
	for i, id := range b.Bones {
		ni, ok := f.index[id]
		if !ok || !g.Alive(id) {
			return fmt.Errorf("%w: bone %d (%s)", ErrDangling, i, g.Name(id))
		}
		joints[i] = ni
	}
	ibm := make([][16]float32, len(b.BindPoses))
	for i, p := range b.BindPoses {
		ibm[i] = p.ColumnMajor()
	}

	old := doc.Skins[src.skin]
	skin := &gltf.Skin{
		Name:                old.Name,
		Joints:              joints,
		InverseBindMatrices: gltf.Index(writeMatrices(doc, ibm)),
	}
	if ni, ok := f.index[b.RootBone]; ok && g.Alive(b.RootBone) {
		skin.Skeleton = gltf.Index(ni)
	}
	doc.Skins = append(doc.Skins, skin)

	srcMesh := doc.Meshes[src.mesh]
	name := srcMesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh%d", src.mesh)
	}
	mesh := &gltf.Mesh{
		Name:    name + suffix,
		Weights: slices.Clone(srcMesh.Weights),
		Extras:  srcMesh.Extras,
	}
	for pi, sp := range srcMesh.Primitives {
		p := *sp
		p.Attributes = maps.Clone(sp.Attributes)
		if r := src.prims[pi]; r.joints {
			j, w := encodeWeights(b.Weights[r.start : r.start+r.count])
			p.Attributes["JOINTS_0"] = writeJoints(doc, j)
			p.Attributes["WEIGHTS_0"] = writeWeights(doc, w)
		}
		mesh.Primitives = append(mesh.Primitives, &p)
	}
	doc.Meshes = append(doc.Meshes, mesh)

	n := doc.Nodes[src.node]
	n.Skin = gltf.Index(uint32(len(doc.Skins) - 1))
	n.Mesh = gltf.Index(uint32(len(doc.Meshes) - 1))

	src.skin = *n.Skin
	src.mesh = *n.Mesh
	src.bones = slices.Clone(b.Bones)
	src.weights = slices.Clone(b.Weights)
	return nil
}

// encodeWeights turns influences into glTF slot arrays. Unused slots get
// joint 0 with weight 0.
func encodeWeights(ws []scene.VertexWeight) ([][4]uint16, [][4]float32) {
	joints := make([][4]uint16, len(ws))
	weights := make([][4]float32, len(ws))
	for i, vw := range ws {
		for s, inf := range vw {
			if inf.Bone == scene.UnusedSlot {
				continue
			}
			joints[i][s] = uint16(inf.Bone)
			weights[i][s] = inf.Weight
		}
	}
	return joints, weights
}

// compact removes nodes that are no longer alive in g, then skins and meshes
// nothing refers to, and renumbers every reference.
func (f *File) compact(g *scene.Graph) error {
	doc := f.Doc

	nodeMap := make([]int, len(doc.Nodes))
	var nodes []*gltf.Node
	for i, n := range doc.Nodes {
		if id := f.ids[i]; id != scene.NoNode && !g.Alive(id) {
			nodeMap[i] = -1
			continue
		}
		nodeMap[i] = len(nodes)
		nodes = append(nodes, n)
	}

	skinUsed := make([]bool, len(doc.Skins))
	meshUsed := make([]bool, len(doc.Meshes))
	for _, n := range nodes {
		if n.Skin != nil {
			skinUsed[*n.Skin] = true
		}
		if n.Mesh != nil {
			meshUsed[*n.Mesh] = true
		}
	}
	skinMap, skins := keep(doc.Skins, skinUsed)
	meshMap, meshes := keep(doc.Meshes, meshUsed)

	for _, n := range nodes {
		n.Children = remapAll(n.Children, nodeMap)
		if n.Skin != nil {
			n.Skin = gltf.Index(uint32(skinMap[*n.Skin]))
		}
		if n.Mesh != nil {
			n.Mesh = gltf.Index(uint32(meshMap[*n.Mesh]))
		}
	}
	for _, s := range skins {
		for ji, j := range s.Joints {
			if nodeMap[j] < 0 {
				return fmt.Errorf("%w: skin %q joint %d (node %d)", ErrDangling, s.Name, ji, j)
			}
			s.Joints[ji] = uint32(nodeMap[j])
		}
		if s.Skeleton != nil {
			if k := nodeMap[*s.Skeleton]; k >= 0 {
				s.Skeleton = gltf.Index(uint32(k))
			} else {
				s.Skeleton = nil
			}
		}
	}
	for _, sc := range doc.Scenes {
		sc.Nodes = remapAll(sc.Nodes, nodeMap)
	}

	anims := doc.Animations[:0]
	for _, a := range doc.Animations {
		channels := a.Channels[:0]
		for _, ch := range a.Channels {
			if ch.Target.Node != nil {
				k := nodeMap[*ch.Target.Node]
				if k < 0 {
					continue
				}
				ch.Target.Node = gltf.Index(uint32(k))
			}
			channels = append(channels, ch)
		}
		a.Channels = channels
		if len(a.Channels) > 0 {
			anims = append(anims, a)
		}
	}
	doc.Animations = anims

	doc.Nodes = nodes
	doc.Skins = skins
	doc.Meshes = meshes

	ids := make([]scene.NodeID, len(nodes))
	clear(f.index)
	for old, k := range nodeMap {
		if k < 0 {
			continue
		}
		ids[k] = f.ids[old]
		if f.ids[old] != scene.NoNode {
			f.index[f.ids[old]] = uint32(k)
		}
	}
	f.ids = ids

	for i := range f.sources {
		src := &f.sources[i]
		if src.gone {
			continue
		}
		if nodeMap[src.node] < 0 {
			src.gone = true
			continue
		}
		src.node = uint32(nodeMap[src.node])
		src.skin = uint32(skinMap[src.skin])
		src.mesh = uint32(meshMap[src.mesh])
	}
	return nil
}

func keep[T any](items []T, used []bool) ([]int, []T) {
	remap := make([]int, len(items))
	var out []T
	for i, it := range items {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out)
		out = append(out, it)
	}
	return remap, out
}

func remapAll(refs []uint32, remap []int) []uint32 {
	out := refs[:0]
	for _, r := range refs {
		if int(r) < len(remap) && remap[r] >= 0 {
			out = append(out, uint32(remap[r]))
		}
	}
	return out
}

// Save applies m and writes the document. A .glb path produces a binary
// container; anything else is written as .gltf with embedded buffers.
func (f *File) Save(m *scene.Model, path, meshSuffix string) error {
	if err := f.Apply(m, meshSuffix); err != nil {
		return err
	}
	for _, b := range f.Doc.Buffers {
		b.ByteLength = uint32(len(b.Data))
	}
	if f.Doc.Asset.Version == "" {
		f.Doc.Asset.Version = "2.0"
	}

	var err error
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		for i, b := range f.Doc.Buffers {
			if i == 0 {
				b.URI = ""
			} else {
				b.EmbeddedResource()
			}
		}
		err = gltf.SaveBinary(f.Doc, path)
	} else {
		for _, b := range f.Doc.Buffers {
			b.EmbeddedResource()
		}
		err = gltf.Save(f.Doc, path)
	}
	if err != nil {
		return fmt.Errorf("gltfio: save %s: %w", path, err)
	}
	return nil
}
