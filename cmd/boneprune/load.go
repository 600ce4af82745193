package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"bone-pruner/internal/bmd"
	"bone-pruner/internal/gltfio"
	"bone-pruner/internal/scene"
)

// source is a loaded model. doc is nil for formats that cannot be written
// back.
type source struct {
	path  string
	ext   string
	model *scene.Model
	doc   *gltfio.File
}

func loadModel(path string) (*source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	src := &source{path: path, ext: ext}
	switch ext {
	case ".bmd":
		m, err := bmd.Load(path)
		if err != nil {
			return nil, err
		}
		src.model = m
	case ".gltf", ".glb":
		f, err := gltfio.Load(path)
		if err != nil {
			return nil, err
		}
		src.doc = f
		src.model = f.Model()
	default:
		return nil, fmt.Errorf("unsupported model format %q", ext)
	}
	slog.Debug("model loaded", "path", path, "nodes", src.model.Graph.Len(), "bindings", len(src.model.Bindings))
	return src, nil
}
