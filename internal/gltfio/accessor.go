package gltfio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
)

// view is a decoded accessor over its buffer bytes.
type view struct {
	data   []byte
	stride int
	count  int
	comps  int
	size   int
	ct     gltf.ComponentType
	norm   bool
}

func componentSize(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	}
	return 4
}

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 1
}

func accessorView(doc *gltf.Document, idx uint32) (view, error) {
	if int(idx) >= len(doc.Accessors) {
		return view{}, fmt.Errorf("%w: accessor %d", ErrIndex, idx)
	}
	a := doc.Accessors[idx]
	if a.Sparse != nil {
		return view{}, fmt.Errorf("%w: accessor %d", ErrSparse, idx)
	}
	v := view{
		count: int(a.Count),
		comps: componentCount(a.Type),
		size:  componentSize(a.ComponentType),
		ct:    a.ComponentType,
		norm:  a.Normalized,
	}
	elem := v.comps * v.size
	if a.BufferView == nil {
		// all zeros per the glTF rules
		v.data = make([]byte, v.count*elem)
		v.stride = elem
		return v, nil
	}
	if int(*a.BufferView) >= len(doc.BufferViews) {
		return view{}, fmt.Errorf("%w: buffer view %d", ErrIndex, *a.BufferView)
	}
	bv := doc.BufferViews[*a.BufferView]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return view{}, fmt.Errorf("%w: buffer %d", ErrIndex, bv.Buffer)
	}
	buf := doc.Buffers[bv.Buffer].Data
	v.stride = int(bv.ByteStride)
	if v.stride == 0 {
		v.stride = elem
	}
	start := int(bv.ByteOffset) + int(a.ByteOffset)
	end := start
	if v.count > 0 {
		end = start + (v.count-1)*v.stride + elem
	}
	if end > len(buf) || end > int(bv.ByteOffset)+int(bv.ByteLength) {
		return view{}, fmt.Errorf("%w: accessor %d needs bytes [%d,%d) of %d", ErrTruncated, idx, start, end, len(buf))
	}
	v.data = buf[start:end]
	return v, nil
}

// float returns component c of element i, normalized for integer types when
// the accessor says so.
func (v view) float(i, c int) float64 {
	off := i*v.stride + c*v.size
	b := v.data[off:]
	switch v.ct {
	case gltf.ComponentFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case gltf.ComponentUbyte:
		if v.norm {
			return float64(b[0]) / 255
		}
		return float64(b[0])
	case gltf.ComponentUshort:
		x := binary.LittleEndian.Uint16(b)
		if v.norm {
			return float64(x) / 65535
		}
		return float64(x)
	case gltf.ComponentByte:
		return float64(int8(b[0]))
	case gltf.ComponentShort:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	}
	return float64(binary.LittleEndian.Uint32(b))
}

func (v view) uint(i, c int) int {
	off := i*v.stride + c*v.size
	b := v.data[off:]
	switch v.size {
	case 1:
		return int(b[0])
	case 2:
		return int(binary.LittleEndian.Uint16(b))
	}
	return int(binary.LittleEndian.Uint32(b))
}

func readMatrices(doc *gltf.Document, idx uint32) ([][16]float32, error) {
	v, err := accessorView(doc, idx)
	if err != nil {
		return nil, err
	}
	if v.comps != 16 || v.ct != gltf.ComponentFloat {
		return nil, fmt.Errorf("%w: accessor %d is not a float MAT4", ErrAccessorType, idx)
	}
	out := make([][16]float32, v.count)
	for i := range out {
		for c := 0; c < 16; c++ {
			out[i][c] = float32(v.float(i, c))
		}
	}
	return out, nil
}

// appendView appends data to the first buffer (creating it if needed) on a
// 4-byte boundary and returns the new buffer view's index.
func appendView(doc *gltf.Document, data []byte, target gltf.Target) uint32 {
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	}
	buf := doc.Buffers[0]
	for len(buf.Data)%4 != 0 {
		buf.Data = append(buf.Data, 0)
	}
	off := len(buf.Data)
	buf.Data = append(buf.Data, data...)
	buf.ByteLength = uint32(len(buf.Data))
	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(off),
		ByteLength: uint32(len(data)),
		Target:     target,
	})
	return uint32(len(doc.BufferViews) - 1)
}

func writeMatrices(doc *gltf.Document, mats [][16]float32) uint32 {
	data := make([]byte, len(mats)*64)
	for i, m := range mats {
		for c := 0; c < 16; c++ {
			binary.LittleEndian.PutUint32(data[i*64+c*4:], math.Float32bits(m[c]))
		}
	}
	bv := appendView(doc, data, gltf.TargetNone)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Count:         uint32(len(mats)),
		Type:          gltf.AccessorMat4,
	})
	return uint32(len(doc.Accessors) - 1)
}

func writeJoints(doc *gltf.Document, joints [][4]uint16) uint32 {
	data := make([]byte, len(joints)*8)
	for i, j := range joints {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint16(data[i*8+c*2:], j[c])
		}
	}
	bv := appendView(doc, data, gltf.TargetArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentUshort,
		Count:         uint32(len(joints)),
		Type:          gltf.AccessorVec4,
	})
	return uint32(len(doc.Accessors) - 1)
}

func writeWeights(doc *gltf.Document, weights [][4]float32) uint32 {
	data := make([]byte, len(weights)*16)
	for i, w := range weights {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(data[i*16+c*4:], math.Float32bits(w[c]))
		}
	}
	bv := appendView(doc, data, gltf.TargetArrayBuffer)
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Count:         uint32(len(weights)),
		Type:          gltf.AccessorVec4,
	})
	return uint32(len(doc.Accessors) - 1)
}
