package core

import (
	"math"
	"math/rand"
)

// OneMinusEpsilon is the largest float64 strictly below 1
const OneMinusEpsilon = 0x1.fffffffffffffp-1

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Frame is an orthonormal basis with N as its local z axis
type Frame struct {
	S, T, N Vec3
}

// NewFrame builds an orthonormal basis around n; any tangent works
func NewFrame(n Vec3) Frame {
	n = n.Normalize()
	var helper Vec3
	if math.Abs(n.X) > 0.1 {
		helper = NewVec3(0, 1, 0)
	} else {
		helper = NewVec3(1, 0, 0)
	}
	s := helper.Cross(n).Normalize()
	t := n.Cross(s)
	return Frame{S: s, T: t, N: n}
}

// ToWorld maps a local direction into the frame's world space
func (f Frame) ToWorld(v Vec3) Vec3 {
	return f.S.Multiply(v.X).Add(f.T.Multiply(v.Y)).Add(f.N.Multiply(v.Z))
}

// ToLocal maps a world direction into frame-local coordinates
func (f Frame) ToLocal(v Vec3) Vec3 {
	return NewVec3(v.Dot(f.S), v.Dot(f.T), v.Dot(f.N))
}

// SampleUniformDiskConcentric maps [0,1)² to the unit disk with Shirley's concentric mapping
func SampleUniformDiskConcentric(u Vec2) Vec2 {
	ox, oy := 2*u.X-1, 2*u.Y-1
	if ox == 0 && oy == 0 {
		return Vec2{}
	}
	var r, theta float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}
	return NewVec2(r*math.Cos(theta), r*math.Sin(theta))
}

// SampleCosineHemisphere returns a local direction around +z with density cosθ/π
func SampleCosineHemisphere(u Vec2) Vec3 {
	d := SampleUniformDiskConcentric(u)
	z := math.Sqrt(math.Max(0, 1-d.X*d.X-d.Y*d.Y))
	return NewVec3(d.X, d.Y, z)
}

// CosineHemispherePDF is the solid-angle density of SampleCosineHemisphere
func CosineHemispherePDF(cosTheta float64) float64 {
	return math.Max(cosTheta, 0) / math.Pi
}

// SampleUniformSphere generates a uniform direction on the unit sphere
func SampleUniformSphere(u Vec2) Vec3 {
	z := 1 - 2*u.X
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

// UniformSpherePDF is 1/4π
const UniformSpherePDF = 1 / (4 * math.Pi)

// InvertUniformSphereSample returns the sample that SampleUniformSphere maps to w
func InvertUniformSphereSample(w Vec3) Vec2 {
	phi := math.Atan2(w.Y, w.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return NewVec2(0.5*(1-w.Z), phi/(2*math.Pi))
}

// SampleUniformCone generates a uniform direction inside the cone of half-angle
// acos(cosMax) around +z
func SampleUniformCone(u Vec2, cosMax float64) Vec3 {
	cosTheta := 1 - u.X*(1-cosMax)
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	return NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta)
}

// UniformConePDF is the solid-angle density of SampleUniformCone
func UniformConePDF(cosMax float64) float64 {
	return 1 / (2 * math.Pi * (1 - cosMax))
}

// SampleUniformTriangle returns barycentric coordinates uniformly distributed over a triangle
func SampleUniformTriangle(u Vec2) Vec3 {
	var b0, b1 float64
	if u.X < u.Y {
		b0 = 0.5 * u.X
		b1 = u.Y - b0
	} else {
		b1 = 0.5 * u.Y
		b0 = u.X - b1
	}
	return NewVec3(b0, b1, 1-b0-b1)
}

// PowerHeuristic returns the MIS weight for nf samples of pdf fPdf against ng samples of gPdf (β = 2)
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if math.IsInf(f*f, 1) {
		return 1
	}
	if f == 0 && g == 0 {
		return 0
	}
	return (f * f) / (f*f + g*g)
}

// BalanceHeuristic returns the MIS weight for the balance heuristic
func BalanceHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f == 0 && g == 0 {
		return 0
	}
	return f / (f + g)
}
