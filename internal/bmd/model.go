package bmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"bone-pruner/internal/mathutil"
	"bone-pruner/internal/scene"
)

// Load parses a BMD file and converts it to a scene model.
func Load(path string) (*scene.Model, error) {
	f, err := Parse(path)
	if err != nil {
		return nil, err
	}
	name := f.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f.Model(name), nil
}

// Model builds a scene model: a Z-up root node, one node per bone (dummies
// hang directly off the root) and one rigid binding per mesh. Every binding
// shares the full bone array, so a vertex's BMD node index is its bone index.
func (f *File) Model(name string) *scene.Model {
	m := scene.NewModel(name)
	m.Graph.Node(m.Root).Local = mathutil.FromMat3Translation(mathutil.ModelFlip, mathutil.Vec3{})

	ids := make([]scene.NodeID, len(f.Bones))
	state := make([]uint8, len(f.Bones))
	var add func(i int)
	add = func(i int) {
		if state[i] != 0 {
			return
		}
		state[i] = 1
		parent := m.Root
		if p := parentOf(f.Bones, i); p >= 0 {
			add(p)
			if state[p] == 2 {
				parent = ids[p]
			}
		}
		ids[i] = m.Graph.Add(boneName(i, f.Bones[i]), parent, f.Bones[i].Local())
		state[i] = 2
	}
	for i := range f.Bones {
		add(i)
	}

	worlds := BuildWorldMatrices(f.Bones)
	poses := make([]mathutil.Mat4, len(worlds))
	for i, w := range worlds {
		poses[i] = w.InverseAffine()
	}

	root := scene.NoNode
	for i, b := range f.Bones {
		if !b.IsDummy && parentOf(f.Bones, i) < 0 {
			root = ids[i]
			break
		}
	}

	for mi, mesh := range f.Meshes {
		weights := make([]scene.VertexWeight, len(mesh.Nodes))
		for vi, node := range mesh.Nodes {
			if int(node) >= 0 && int(node) < len(ids) {
				weights[vi] = scene.Rigid(int(node))
			} else {
				weights[vi] = scene.Unweighted()
			}
		}
		m.AddBinding(&scene.Binding{
			Name:      fmt.Sprintf("%s/mesh%02d", name, mi),
			Mesh:      meshName(name, mi, mesh.TexPath),
			Enabled:   true,
			RootBone:  root,
			Bones:     append([]scene.NodeID(nil), ids...),
			BindPoses: append([]mathutil.Mat4(nil), poses...),
			Weights:   weights,
		})
	}
	return m
}

func boneName(i int, b Bone) string {
	switch {
	case b.IsDummy:
		return fmt.Sprintf("dummy_%03d", i)
	case b.Name == "":
		return fmt.Sprintf("bone_%03d", i)
	}
	return b.Name
}

func meshName(model string, i int, tex string) string {
	stem := strings.TrimSuffix(filepath.Base(tex), filepath.Ext(tex))
	if tex == "" || stem == "" || stem == "." {
		return fmt.Sprintf("%s_mesh%02d", model, i)
	}
	return fmt.Sprintf("%s_%s", model, stem)
}
