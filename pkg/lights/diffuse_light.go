package lights

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
)

// Below this cosine the light is seen edge-on and contributes nothing
const edgeOnCosine = 1e-8

// DiffuseArea emits constant radiance from every point of the instances it is attached to
type DiffuseArea struct {
	Emission core.Vec3
	Scale    float64
	TwoSided bool // emit from the back face as well
}

// Radiance returns the emitted radiance
func (d *DiffuseArea) Radiance() core.Vec3 {
	return d.Emission.Multiply(d.Scale)
}

// IsBlack reports whether the light emits nothing
func (d *DiffuseArea) IsBlack() bool {
	return d.Scale == 0 || d.Emission.IsBlack()
}

// Power returns the luminous flux leaving a surface of the given area
func (d *DiffuseArea) Power(area float64) float64 {
	power := math.Pi * d.Radiance().Luminance() * area
	if d.TwoSided {
		power *= 2
	}
	return power
}

// evaluate returns the radiance leaving sp towards pFrom and the solid-angle
// density of sampling sp from pFrom. Triangles are picked by the instance mesh's
// area table and sampled uniformly inside, so the area density is the triangle's
// probability over its world-space area.
func (d *DiffuseArea) evaluate(g *geometry.Geometry, inst, prim int, sp geometry.SurfacePoint, pFrom core.Vec3) Evaluation {
	toFrom := pFrom.Subtract(sp.P)
	dist2 := toFrom.LengthSquared()
	if dist2 == 0 || sp.Area == 0 {
		return Evaluation{}
	}
	wo := toFrom.Multiply(1 / math.Sqrt(dist2))
	cosTheta := wo.Dot(sp.Ng)
	if d.TwoSided {
		cosTheta = math.Abs(cosTheta)
	}
	if cosTheta < edgeOnCosine {
		return Evaluation{}
	}
	pdfArea := g.Instance(inst).Mesh.Distribution().PDF(prim) / sp.Area
	return Evaluation{L: d.Radiance(), PDF: dist2 * pdfArea / cosTheta}
}

// sample picks a point on instance inst as seen from the shading point from.
// u.X chooses the triangle and its remainder joins u.Y to place the point.
func (d *DiffuseArea) sample(g *geometry.Geometry, inst int, from geometry.SurfacePoint, u core.Vec2) Sample {
	prim, remainder := g.Instance(inst).Mesh.Distribution().Sample(u.X)
	bary := core.SampleUniformTriangle(core.NewVec2(remainder, u.Y))
	sp := g.SurfacePoint(inst, prim, bary)

	eval := d.evaluate(g, inst, prim, sp, from.P)
	if eval.PDF == 0 {
		return Sample{}
	}
	return Sample{Eval: eval, Shadow: core.SpawnRayTo(from.P, from.Ng, sp.P)}
}
