package lights

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/transform"
)

// orientation rotates an environment's local frame into the world. Only the
// linear part of the transform is used; it should be a rotation for densities
// to stay exact.
type orientation struct {
	transform transform.Transform
}

func (o orientation) identity() bool {
	return o.transform == nil || o.transform.IsIdentity()
}

func (o orientation) toLocal(w core.Vec3, time float64) core.Vec3 {
	if o.identity() {
		return w
	}
	m := o.transform.Matrix(time).Mat3()
	if m.Det() == 0 {
		return w
	}
	return fromMgl(m.Inv().Mul3x1(toMgl(w))).Normalize()
}

func (o orientation) toWorld(w core.Vec3, time float64) core.Vec3 {
	if o.identity() {
		return w
	}
	m := o.transform.Matrix(time).Mat3()
	if m.Det() == 0 {
		return w
	}
	return fromMgl(m.Mul3x1(toMgl(w))).Normalize()
}

func toMgl(v core.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromMgl(v mgl64.Vec3) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

func cosDegrees(degrees float64) float64 {
	return math.Cos(mgl64.DegToRad(degrees))
}
