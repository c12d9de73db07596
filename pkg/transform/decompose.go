package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	polarIterations = 100
	polarEpsilon    = 1e-10
)

// Decomposed is an affine matrix split into scale, rotation and translation
type Decomposed struct {
	Scale       mgl64.Vec3
	Rotation    mgl64.Quat
	Translation mgl64.Vec3
}

// Decompose factors m ≈ T·R·S by polar decomposition of its upper 3x3 block.
// Shear is dropped. A singular block yields the identity rotation with the
// column lengths as scale.
func Decompose(m mgl64.Mat4) Decomposed {
	translation := m.Col(3).Vec3()
	n := m.Mat3()

	if math.Abs(n.Det()) < 1e-12 {
		return Decomposed{
			Scale:       mgl64.Vec3{n.Col(0).Len(), n.Col(1).Len(), n.Col(2).Len()},
			Rotation:    mgl64.QuatIdent(),
			Translation: translation,
		}
	}

	r := n
	for i := 0; i < polarIterations; i++ {
		next := r.Add(r.Transpose().Inv()).Mul(0.5)
		diff := r.Sub(next)
		r = next
		worst := 0.0
		for col := 0; col < 3; col++ {
			c := diff.Col(col)
			worst = math.Max(worst, math.Abs(c[0])+math.Abs(c[1])+math.Abs(c[2]))
		}
		if worst <= polarEpsilon {
			break
		}
	}

	// Fold a reflection into the scale so R stays a proper rotation
	if r.Det() < 0 {
		r = r.Mul(-1)
	}
	s := r.Inv().Mul3(n)
	return Decomposed{
		Scale:       mgl64.Vec3{s.At(0, 0), s.At(1, 1), s.At(2, 2)},
		Rotation:    mgl64.Mat4ToQuat(r.Mat4()).Normalize(),
		Translation: translation,
	}
}

// Interpolate blends two decompositions: scale and translation linearly,
// rotation along the shortest arc
func Interpolate(a, b Decomposed, alpha float64) Decomposed {
	q := b.Rotation
	if a.Rotation.Dot(q) < 0 {
		q = q.Scale(-1)
	}
	return Decomposed{
		Scale:       a.Scale.Mul(1 - alpha).Add(b.Scale.Mul(alpha)),
		Rotation:    mgl64.QuatSlerp(a.Rotation, q, alpha),
		Translation: a.Translation.Mul(1 - alpha).Add(b.Translation.Mul(alpha)),
	}
}

// Matrix recomposes T·R·S
func (d Decomposed) Matrix() mgl64.Mat4 {
	t := mgl64.Translate3D(d.Translation.X(), d.Translation.Y(), d.Translation.Z())
	s := mgl64.Scale3D(d.Scale.X(), d.Scale.Y(), d.Scale.Z())
	return t.Mul4(d.Rotation.Mat4()).Mul4(s)
}
