package bmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"bone-pruner/internal/crypto"
)

// ErrUnsupportedVersion is returned for encrypted layouts this parser cannot read.
var ErrUnsupportedVersion = errors.New("bmd: unsupported version")

// Parse reads a BMD file.
// Supports versions 10 (unencrypted) and 12 (XOR).
func Parse(filepath string) (*File, error) {
	raw, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", filepath, err)
	}
	f, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, filepath)
	}
	return f, nil
}

// Decode parses BMD bytes.
func Decode(raw []byte) (*File, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, errors.New("bmd: invalid header")
	}

	version := raw[3]
	var data []byte

	switch version {
	case 12:
		if len(raw) < 8 {
			return nil, errors.New("bmd: truncated v12 header")
		}
		size := binary.LittleEndian.Uint32(raw[4:8])
		if 8+int(size) > len(raw) {
			return nil, errors.New("bmd: truncated v12 data")
		}
		data = crypto.DecryptXOR(raw[8 : 8+size])
	case 10:
		data = raw[4:]
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	r := &reader{data: data}
	return r.parse()
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) readStr(n int) string {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	// Find null terminator
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

func (r *reader) readU16() uint16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) readF32() float32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *reader) readByte() byte {
	if r.off >= len(r.data) {
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) skip(n int) {
	r.off = min(r.off+n, len(r.data))
}

func (r *reader) parse() (*File, error) {
	name := r.readStr(32)
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > 100 {
		return nil, fmt.Errorf("bmd: invalid mesh count %d", meshCount)
	}

	meshes := make([]Mesh, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		nv := int(r.readI16())
		nn := int(r.readI16())
		ntc := int(r.readI16())
		nt := int(r.readI16())
		_ = r.readI16() // texture index
		if nv < 0 || nn < 0 || ntc < 0 || nt < 0 {
			return nil, fmt.Errorf("bmd: negative element count in mesh %d", i)
		}

		// Vertices: 16 bytes each (node:i16, pad:i16, x:f32, y:f32, z:f32)
		nodes := make([]int16, nv)
		for j := 0; j < nv; j++ {
			nodes[j] = r.readI16()
			r.skip(14)
		}

		r.skip(nn * 20) // normals
		r.skip(ntc * 8) // texcoords
		r.skip(nt * 64) // triangles

		texPath := r.readStr(32)
		texPath = strings.ReplaceAll(texPath, "\\", "/")

		meshes = append(meshes, Mesh{Nodes: nodes, TexPath: texPath})
	}

	// Actions: key counts drive the bone track layout below
	actionKeys := make([]int, actionCount)
	for a := 0; a < actionCount; a++ {
		numKeys := int(r.readI16())
		lockPos := r.readByte() > 0
		if lockPos {
			r.skip(numKeys * 12) // float32 x,y,z per key
		}
		actionKeys[a] = numKeys
	}

	bones := make([]Bone, 0, boneCount)
	for b := 0; b < boneCount; b++ {
		isDummy := r.readByte() > 0
		if isDummy {
			bones = append(bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		boneName := r.readStr(32)
		parent := int(r.readI16())

		var bindPos, bindRot [3]float64
		for a := 0; a < actionCount; a++ {
			numKeys := actionKeys[a]
			if numKeys <= 0 {
				continue
			}
			// Positions then rotations, numKeys × (x, y, z) float32 each;
			// frame 0 of action 0 is the bind pose.
			for k := 0; k < numKeys; k++ {
				px, py, pz := float64(r.readF32()), float64(r.readF32()), float64(r.readF32())
				if a == 0 && k == 0 {
					bindPos = [3]float64{px, py, pz}
				}
			}
			for k := 0; k < numKeys; k++ {
				rx, ry, rz := float64(r.readF32()), float64(r.readF32()), float64(r.readF32())
				if a == 0 && k == 0 {
					bindRot = [3]float64{rx, ry, rz}
				}
			}
		}

		bones = append(bones, Bone{
			Name:         boneName,
			Parent:       parent,
			BindPosition: bindPos,
			BindRotation: bindRot,
		})
	}

	return &File{Name: name, Meshes: meshes, Bones: bones}, nil
}
