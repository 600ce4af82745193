// Package asset persists the skinning data of pruned bindings.
package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bone-pruner/internal/scene"
)

// DefaultSuffix is appended to the mesh name of every saved asset.
const DefaultSuffix = "-pruned"

const ext = ".json"

// Slot is one serialized vertex influence. Bone is -1 for an unused slot.
type Slot struct {
	Bone   int     `json:"bone"`
	Weight float32 `json:"weight"`
}

// Payload is the saved form of a binding: bone names in binding order, the
// parallel bind poses (row-major) and per-vertex influences.
type Payload struct {
	Mesh      string        `json:"mesh"`
	Binding   string        `json:"binding"`
	RootBone  string        `json:"root_bone,omitempty"`
	Bones     []string      `json:"bones"`
	BindPoses [][16]float64 `json:"bind_poses"`
	Weights   [][4]Slot     `json:"weights"`
}

// Store writes payloads under Dir. Existing files are never overwritten.
type Store struct {
	Dir    string
	Suffix string
}

// NewPayload captures b's current arrays.
func NewPayload(b *scene.Binding, g *scene.Graph) *Payload {
	p := &Payload{
		Mesh:      b.Mesh,
		Binding:   b.Name,
		Bones:     make([]string, len(b.Bones)),
		BindPoses: make([][16]float64, len(b.BindPoses)),
		Weights:   make([][4]Slot, len(b.Weights)),
	}
	if b.RootBone != scene.NoNode {
		p.RootBone = g.Name(b.RootBone)
	}
	for i, id := range b.Bones {
		p.Bones[i] = g.Name(id)
	}
	for i, m := range b.BindPoses {
		p.BindPoses[i] = m
	}
	for i, w := range b.Weights {
		for s, inf := range w {
			p.Weights[i][s] = Slot{Bone: inf.Bone, Weight: inf.Weight}
		}
	}
	return p
}

// Save writes b to a new file named after its mesh and returns the path.
func (s Store) Save(b *scene.Binding, g *scene.Graph) (string, error) {
	data, err := json.MarshalIndent(NewPayload(b, g), "", "  ")
	if err != nil {
		return "", fmt.Errorf("asset: encode %s: %w", b.Mesh, err)
	}
	suffix := s.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("asset: %w", err)
	}
	f, path, err := create(s.Dir, Sanitize(b.Mesh)+suffix)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("asset: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("asset: write %s: %w", path, err)
	}
	return path, nil
}

// create claims the first free path among name.json, "name 1.json",
// "name 2.json", ...
func create(dir, name string) (*os.File, string, error) {
	for i := 0; ; i++ {
		base := name
		if i > 0 {
			base = fmt.Sprintf("%s %d", name, i)
		}
		path := filepath.Join(dir, base+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("asset: create %s: %w", path, err)
		}
	}
}

// Sanitize makes a mesh name usable as a file name.
func Sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "mesh"
	}
	return name
}

// Load reads a saved payload.
func Load(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("asset: read %s: %w", path, err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("asset: parse %s: %w", path, err)
	}
	return &p, nil
}
