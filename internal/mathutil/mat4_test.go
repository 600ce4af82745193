package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInverseAffine(t *testing.T) {
	m := FromTRS(Vec3{1, 2, 3}, EulerToQuat(0.3, -0.7, 1.1), Vec3{2, 2, 2})
	p := Vec3{-4, 0.5, 9}

	back := m.InverseAffine().MulPoint(m.MulPoint(p))
	assert.Less(t, back.Sub(p).Len(), 1e-9)
	assert.True(t, Mat4Mul(m, m.InverseAffine()).IsIdentity())
}

func TestColumnMajor(t *testing.T) {
	m := FromMat3Translation(RotX(math.Pi/2), Vec3{5, 6, 7})
	f := m.ColumnMajor()
	assert.Equal(t, [3]float32{5, 6, 7}, [3]float32{f[12], f[13], f[14]})

	back := FromColumnMajor(f)
	assert.InDeltaSlice(t, m[:], back[:], 1e-6)
}

func TestQuatToMat3_MatchesRotX(t *testing.T) {
	q := EulerToQuat(Deg2Rad(90), 0, 0)
	got, want := QuatToMat3(q), RotX(math.Pi/2)
	assert.InDeltaSlice(t, want[:], got[:], 1e-9)

	up := got.MulVec3(Vec3{0, 1, 0}).Add(Vec3{1, 0, 0})
	assert.InDeltaSlice(t, []float64{1, 0, 1}, up[:], 1e-9)
}
