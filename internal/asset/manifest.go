package asset

import (
	"encoding/json"
	"os"

	"bone-pruner/internal/skeleton"
)

// ManifestEntry represents one binding in the run manifest.
type ManifestEntry struct {
	Binding     string `json:"binding"`
	Mesh        string `json:"mesh"`
	Changed     bool   `json:"changed"`
	Skipped     bool   `json:"skipped,omitempty"`
	BonesBefore int    `json:"bones_before"`
	BonesAfter  int    `json:"bones_after"`
	Asset       string `json:"asset,omitempty"`
}

// Manifest summarizes one prune run.
type Manifest struct {
	Model     string          `json:"model"`
	Output    string          `json:"output,omitempty"`
	Deleted   []string        `json:"deleted"`
	BoneCount int             `json:"bone_count"`
	Bindings  []ManifestEntry `json:"bindings"`
}

// NewManifest builds a manifest from a prune report. assets maps binding
// names to the paths they were saved under.
func NewManifest(model string, del skeleton.DeletionSet, r *skeleton.Report, assets map[string]string) Manifest {
	m := Manifest{
		Model:     model,
		Deleted:   make([]string, len(del)),
		BoneCount: r.BoneCount,
		Bindings:  make([]ManifestEntry, len(r.Bindings)),
	}
	for i, d := range del {
		m.Deleted[i] = d.Name
	}
	for i, b := range r.Bindings {
		m.Bindings[i] = ManifestEntry{
			Binding:     b.Name,
			Mesh:        b.Mesh,
			Changed:     b.Changed,
			Skipped:     b.Skipped,
			BonesBefore: b.BonesBefore,
			BonesAfter:  b.BonesAfter,
			Asset:       assets[b.Name],
		}
	}
	return m
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
