package bmd

// File is a parsed BMD model.
type File struct {
	Name   string
	Meshes []Mesh
	Bones  []Bone
}

// Mesh holds the skinning data of one sub-mesh within a BMD file.
// Geometry is skipped; only the per-vertex bone node is kept.
type Mesh struct {
	Nodes   []int16 // bone index per vertex
	TexPath string  // texture reference from BMD (e.g. "sword04.jpg")
}

// Bone holds bind-pose data for one bone in the skeleton hierarchy.
type Bone struct {
	Name         string
	Parent       int
	IsDummy      bool
	BindPosition [3]float64
	BindRotation [3]float64 // Euler XYZ radians
}
