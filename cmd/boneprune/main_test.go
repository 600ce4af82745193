package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bone-pruner/internal/asset"
	"bone-pruner/internal/config"
	"bone-pruner/internal/skeleton"
)

// writeAvatar saves Hips > Spine > Head with a two-vertex Body skinned to
// Spine and Head.
func writeAvatar(t *testing.T, dir string) string {
	t.Helper()
	var buf []byte
	f32 := func(v float32) { buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v)) }

	for _, y := range []float32{1, 1.5, 2} { // inverse bind matrices
		for _, v := range []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -y, 0, 1} {
			f32(v)
		}
	}
	for _, y := range []float32{1.5, 2} { // positions
		f32(0)
		f32(y)
		f32(0)
	}
	buf = append(buf, 1, 0, 0, 0, 2, 0, 0, 0) // joints
	for _, w := range [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}} {
		for _, v := range w {
			f32(v)
		}
	}

	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0"},
		Nodes: []*gltf.Node{
			{Name: "Hips", Children: []uint32{1}, Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
			{Name: "Spine", Children: []uint32{2}, Translation: [3]float32{0, 0.5, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
			{Name: "Head", Translation: [3]float32{0, 0.5, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
			{Name: "Body", Mesh: gltf.Index(0), Skin: gltf.Index(0), Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		},
		Scenes: []*gltf.Scene{{Nodes: []uint32{0, 3}}},
		Scene:  gltf.Index(0),
		Skins:  []*gltf.Skin{{Joints: []uint32{0, 1, 2}, InverseBindMatrices: gltf.Index(0)}},
		Meshes: []*gltf.Mesh{{
			Name: "body",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]uint32{"POSITION": 1, "JOINTS_0": 2, "WEIGHTS_0": 3},
			}},
		}},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorMat4},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(2), ComponentType: gltf.ComponentUbyte, Count: 2, Type: gltf.AccessorVec4},
			{BufferView: gltf.Index(3), ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorVec4},
		},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 192},
			{Buffer: 0, ByteOffset: 192, ByteLength: 24},
			{Buffer: 0, ByteOffset: 216, ByteLength: 8},
			{Buffer: 0, ByteOffset: 224, ByteLength: 32},
		},
		Buffers: []*gltf.Buffer{{ByteLength: uint32(len(buf)), Data: buf}},
	}
	doc.Buffers[0].EmbeddedResource()

	path := filepath.Join(dir, "avatar.gltf")
	require.NoError(t, gltf.Save(doc, path))
	return path
}

func resolved(t *testing.T, modelPath, out string, inPlace bool) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.Resolve(config.Flags{OutputDir: out, Workers: 1, InPlace: inPlace}, modelPath)
	return cfg
}

func TestRunPrune_CopyMode(t *testing.T) {
	path := writeAvatar(t, t.TempDir())
	out := t.TempDir()

	src, err := loadModel(path)
	require.NoError(t, err)
	var log bytes.Buffer
	require.NoError(t, runPrune(&log, src, []string{"Head"}, resolved(t, path, out, false), true))

	assert.Contains(t, log.String(), "Body: 3 -> 2 bones")
	assert.FileExists(t, filepath.Join(out, "avatar_deleteBones-overlay.webp"))
	assert.FileExists(t, filepath.Join(out, "avatar_deleteBones-manifest.json"))

	p, err := asset.Load(filepath.Join(out, "body-pruned.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hips", "Spine"}, p.Bones)
	assert.Equal(t, 1, p.Weights[1][0].Bone, "Head's vertex moved to Spine")

	pruned, err := loadModel(filepath.Join(out, "avatar_deleteBones.gltf"))
	require.NoError(t, err)
	assert.Equal(t, 2, skeleton.BoneCount(pruned.model, true))
	_, ok := pruned.model.Graph.Find("Head")
	assert.False(t, ok)

	orig, err := loadModel(path)
	require.NoError(t, err)
	assert.Equal(t, 3, skeleton.BoneCount(orig.model, true), "source file untouched")
}

func TestRunPrune_InPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeAvatar(t, dir)

	src, err := loadModel(path)
	require.NoError(t, err)
	require.NoError(t, runPrune(&bytes.Buffer{}, src, []string{"Spine"}, resolved(t, path, "", true), false))

	again, err := loadModel(path)
	require.NoError(t, err)
	assert.Equal(t, 1, skeleton.BoneCount(again.model, true))
	assert.NoFileExists(t, filepath.Join(dir, "avatar_deleteBones.gltf"))
}

func TestRunPrune_Errors(t *testing.T) {
	path := writeAvatar(t, t.TempDir())
	src, err := loadModel(path)
	require.NoError(t, err)
	cfg := resolved(t, path, t.TempDir(), false)

	assert.ErrorIs(t, runPrune(&bytes.Buffer{}, src, nil, cfg, false), errNothingDeleted)
	assert.ErrorIs(t, runPrune(&bytes.Buffer{}, src, []string{"Tail"}, cfg, false), skeleton.ErrUnknownBone)

	_, err = loadModel(filepath.Join(t.TempDir(), "avatar.fbx"))
	assert.ErrorContains(t, err, "unsupported model format")
}

func TestTreeCommand(t *testing.T) {
	path := writeAvatar(t, t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"tree", path, "--delete", "Head"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "avatar: 3 bones, 1 bindings\n"+
		"[ ] Hips\n"+
		"  [ ] Spine\n"+
		"    [x] Head\n"+
		"Marked for deletion: 1\n", out.String())
}

func TestOverlayCommand(t *testing.T) {
	path := writeAvatar(t, t.TempDir())
	dest := filepath.Join(t.TempDir(), "bones.webp")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"overlay", path, "-d", "Head", "-o", dest, "-s", "64"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "(1 kept, 1 deleted)")
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
