// Package gltfio loads skinned glTF 2.0 models into a scene.Model and writes
// pruned models back to glTF or GLB.
package gltfio

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qmuntal/gltf"

	"bone-pruner/internal/mathutil"
	"bone-pruner/internal/scene"
)

var (
	ErrIndex        = errors.New("gltfio: index out of range")
	ErrSparse       = errors.New("gltfio: sparse accessors are not supported")
	ErrTruncated    = errors.New("gltfio: accessor exceeds its buffer")
	ErrAccessorType = errors.New("gltfio: unexpected accessor type")
	ErrJointRange   = errors.New("gltfio: joint index out of range")
	ErrNodeCycle    = errors.New("gltfio: node hierarchy has a cycle")
	ErrMultiParent  = errors.New("gltfio: node has multiple parents")
	ErrDangling     = errors.New("gltfio: skin joint was destroyed")

	// ErrExtraInfluences rejects JOINTS_1 and higher sets, which pruning
	// would otherwise leave pointing at removed joints.
	ErrExtraInfluences = errors.New("gltfio: more than four influences per vertex are not supported")
)

// File is a glTF document together with the scene model built from it.
// Handles in the model map one-to-one onto the document's nodes, so a model
// cloned with scene.Model.Clone can be written through the same File.
type File struct {
	Doc *gltf.Document

	model   *scene.Model
	ids     []scene.NodeID // document node index to handle
	index   map[scene.NodeID]uint32
	sources []source // parallel to model.Bindings
}

// source records where a binding came from in the document.
type source struct {
	node    uint32
	skin    uint32
	mesh    uint32
	prims   []primRange
	bones   []scene.NodeID
	weights []scene.VertexWeight
	gone    bool // mesh node destroyed
}

// primRange is a primitive's slice of the binding's vertex weights.
type primRange struct {
	start, count int
	joints       bool
}

// Load opens a .gltf or .glb file.
func Load(path string) (*File, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltfio: open %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	f, err := FromDocument(doc, name)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return f, nil
}

// FromDocument builds the scene model for doc. Every node with both a mesh
// and a skin becomes a binding; its weights are the concatenation of the
// mesh primitives' vertices.
func FromDocument(doc *gltf.Document, name string) (*File, error) {
	f := &File{
		Doc:   doc,
		model: scene.NewModel(name),
		ids:   make([]scene.NodeID, len(doc.Nodes)),
		index: make(map[scene.NodeID]uint32, len(doc.Nodes)),
	}
	for i := range f.ids {
		f.ids[i] = scene.NoNode
	}

	for _, root := range rootNodes(doc) {
		if err := f.addNode(root, f.model.Root, 0); err != nil {
			return nil, err
		}
	}

	for ni, n := range doc.Nodes {
		if n.Mesh == nil || n.Skin == nil || f.ids[ni] == scene.NoNode {
			continue
		}
		if err := f.addBinding(uint32(ni)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Model returns the scene model built from the document.
func (f *File) Model() *scene.Model { return f.model }

// Node returns the document node index of a handle.
func (f *File) Node(id scene.NodeID) (uint32, bool) {
	i, ok := f.index[id]
	return i, ok
}

func rootNodes(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			s = int(*doc.Scene)
		}
		return doc.Scenes[s].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []uint32
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (f *File) addNode(ni uint32, parent scene.NodeID, depth int) error {
	if int(ni) >= len(f.Doc.Nodes) {
		return fmt.Errorf("%w: node %d", ErrIndex, ni)
	}
	if seen := f.ids[ni]; seen != scene.NoNode {
		if seen == parent || f.model.Graph.IsAncestor(seen, parent) {
			return fmt.Errorf("%w: node %d", ErrNodeCycle, ni)
		}
		return fmt.Errorf("%w: node %d", ErrMultiParent, ni)
	}
	if depth > len(f.Doc.Nodes) {
		return fmt.Errorf("%w: node %d", ErrNodeCycle, ni)
	}
	n := f.Doc.Nodes[ni]
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node%d", ni)
	}
	id := f.model.Graph.Add(name, parent, localTransform(n))
	f.ids[ni] = id
	f.index[id] = ni
	for _, c := range n.Children {
		if err := f.addNode(c, id, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// localTransform reads a node's matrix, or its TRS when the matrix is unset.
// Zero rotation and scale are treated as unset for nodes built in code.
func localTransform(n *gltf.Node) mathutil.Mat4 {
	if n.Matrix != ([16]float32{}) && n.Matrix != identity {
		return mathutil.FromColumnMajor(n.Matrix)
	}
	t := mathutil.Vec3{float64(n.Translation[0]), float64(n.Translation[1]), float64(n.Translation[2])}
	q := mathutil.QuatIdentity()
	if n.Rotation != ([4]float32{}) {
		q = mathutil.Quat{float64(n.Rotation[0]), float64(n.Rotation[1]), float64(n.Rotation[2]), float64(n.Rotation[3])}
	}
	s := mathutil.Vec3{1, 1, 1}
	if n.Scale != ([3]float32{}) {
		s = mathutil.Vec3{float64(n.Scale[0]), float64(n.Scale[1]), float64(n.Scale[2])}
	}
	return mathutil.FromTRS(t, q, s)
}

var identity = mathutil.Mat4Identity().ColumnMajor()

func (f *File) addBinding(ni uint32) error {
	doc := f.Doc
	n := doc.Nodes[ni]
	if int(*n.Skin) >= len(doc.Skins) || int(*n.Mesh) >= len(doc.Meshes) {
		return fmt.Errorf("%w: node %d skin/mesh", ErrIndex, ni)
	}
	skin := doc.Skins[*n.Skin]
	mesh := doc.Meshes[*n.Mesh]

	bones := make([]scene.NodeID, len(skin.Joints))
	for i, j := range skin.Joints {
		if int(j) >= len(f.ids) || f.ids[j] == scene.NoNode {
			return fmt.Errorf("%w: skin %d joint %d -> node %d", ErrIndex, *n.Skin, i, j)
		}
		bones[i] = f.ids[j]
	}

	poses := make([]mathutil.Mat4, len(bones))
	for i := range poses {
		poses[i] = mathutil.Mat4Identity()
	}
	if skin.InverseBindMatrices != nil {
		mats, err := readMatrices(doc, *skin.InverseBindMatrices)
		if err != nil {
			return fmt.Errorf("skin %d: %w", *n.Skin, err)
		}
		for i := range poses {
			if i < len(mats) {
				poses[i] = mathutil.FromColumnMajor(mats[i])
			}
		}
	}

	src := source{node: ni, skin: *n.Skin, mesh: *n.Mesh}
	var weights []scene.VertexWeight
	for pi, p := range mesh.Primitives {
		w, hasJoints, err := primitiveWeights(doc, p, len(bones))
		if err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", *n.Mesh, pi, err)
		}
		src.prims = append(src.prims, primRange{start: len(weights), count: len(w), joints: hasJoints})
		weights = append(weights, w...)
	}
	src.bones = slices.Clone(bones)
	src.weights = slices.Clone(weights)

	meshName := mesh.Name
	if meshName == "" {
		meshName = fmt.Sprintf("mesh%d", *n.Mesh)
	}
	f.model.AddBinding(&scene.Binding{
		Name:      f.model.Graph.Name(f.ids[ni]),
		Mesh:      meshName,
		Enabled:   true,
		RootBone:  f.rootBone(skin, bones),
		Bones:     bones,
		BindPoses: poses,
		Weights:   weights,
	})
	f.sources = append(f.sources, src)
	return nil
}

// rootBone is the skin's skeleton node when that node is a joint, otherwise
// the first joint whose parent is not a joint.
func (f *File) rootBone(skin *gltf.Skin, bones []scene.NodeID) scene.NodeID {
	if skin.Skeleton != nil && int(*skin.Skeleton) < len(f.ids) {
		if id := f.ids[*skin.Skeleton]; slices.Contains(bones, id) {
			return id
		}
	}
	for _, b := range bones {
		if !slices.Contains(bones, f.model.Graph.Parent(b)) {
			return b
		}
	}
	return scene.NoNode
}

func primitiveWeights(doc *gltf.Document, p *gltf.Primitive, nbones int) ([]scene.VertexWeight, bool, error) {
	for k := range p.Attributes {
		if (strings.HasPrefix(k, "JOINTS_") && k != "JOINTS_0") || (strings.HasPrefix(k, "WEIGHTS_") && k != "WEIGHTS_0") {
			return nil, true, fmt.Errorf("%w: %s", ErrExtraInfluences, k)
		}
	}
	ji, hasJoints := p.Attributes["JOINTS_0"]
	wi, hasWeights := p.Attributes["WEIGHTS_0"]
	if !hasJoints || !hasWeights {
		pos, ok := p.Attributes["POSITION"]
		if !ok {
			return nil, false, nil
		}
		v, err := accessorView(doc, pos)
		if err != nil {
			return nil, false, err
		}
		out := make([]scene.VertexWeight, v.count)
		for i := range out {
			out[i] = scene.Unweighted()
		}
		return out, false, nil
	}

	jv, err := accessorView(doc, ji)
	if err != nil {
		return nil, true, err
	}
	wv, err := accessorView(doc, wi)
	if err != nil {
		return nil, true, err
	}
	if jv.comps != 4 || wv.comps != 4 || jv.count != wv.count {
		return nil, true, fmt.Errorf("%w: JOINTS_0/WEIGHTS_0 shape", ErrAccessorType)
	}

	out := make([]scene.VertexWeight, jv.count)
	for i := range out {
		for s := 0; s < scene.MaxInfluences; s++ {
			w := wv.float(i, s)
			if w == 0 {
				out[i][s] = scene.Influence{Bone: scene.UnusedSlot}
				continue
			}
			j := jv.uint(i, s)
			if j >= nbones {
				return nil, true, fmt.Errorf("%w: vertex %d slot %d = %d (joints %d)", ErrJointRange, i, s, j, nbones)
			}
			out[i][s] = scene.Influence{Bone: j, Weight: float32(w)}
		}
	}
	return out, true, nil
}
