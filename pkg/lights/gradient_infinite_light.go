package lights

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/transform"
)

// Gradient blends from Bottom straight down to Top straight up along the local
// y axis, the classic sky background
type Gradient struct {
	orientation
	top, bottom core.Vec3
	lumTop      float64
	lumBottom   float64
}

// NewGradient creates a gradient environment. t may be nil.
func NewGradient(top, bottom core.Vec3, scale float64, t transform.Transform) *Gradient {
	top = top.Multiply(scale).Max(core.Vec3{})
	bottom = bottom.Multiply(scale).Max(core.Vec3{})
	return &Gradient{
		orientation: orientation{transform: t},
		top:         top,
		bottom:      bottom,
		lumTop:      math.Max(top.Luminance(), 0),
		lumBottom:   math.Max(bottom.Luminance(), 0),
	}
}

func (g *Gradient) IsBlack() bool {
	return g.top.IsBlack() && g.bottom.IsBlack()
}

// emissionForDirection maps local y from [-1,1] to the blend factor in [0,1]
func (g *Gradient) emissionForDirection(local core.Vec3) (core.Vec3, float64) {
	t := max(0, min(0.5*(local.Y+1), 1))
	return g.bottom.Multiply(1 - t).Add(g.top.Multiply(t)), t
}

// pdf importance samples the luminance, which is linear in y. Over the sphere
// that integrates to 2π(lumBottom+lumTop).
func (g *Gradient) pdf(t float64) float64 {
	sum := g.lumBottom + g.lumTop
	if sum == 0 {
		return core.UniformSpherePDF
	}
	return (g.lumBottom*(1-t) + g.lumTop*t) / (2 * math.Pi * sum)
}

func (g *Gradient) Evaluate(wi core.Vec3, time float64) Evaluation {
	L, t := g.emissionForDirection(g.toLocal(wi, time))
	return Evaluation{L: L, PDF: g.pdf(t)}
}

func (g *Gradient) Sample(u core.Vec2, time float64) (core.Vec3, Evaluation) {
	if g.lumBottom+g.lumTop == 0 {
		w := g.toWorld(core.SampleUniformSphere(u), time)
		return w, g.Evaluate(w, time)
	}
	t := sampleLinear(u.X, g.lumBottom, g.lumTop)
	y := 2*t - 1
	r := math.Sqrt(math.Max(0, 1-y*y))
	phi := 2 * math.Pi * u.Y
	local := core.NewVec3(r*math.Cos(phi), y, r*math.Sin(phi))
	L, t := g.emissionForDirection(local)
	return g.toWorld(local, time), Evaluation{L: L, PDF: g.pdf(t)}
}

// sampleLinear draws x in [0,1] with density proportional to (1-x)a + xb
func sampleLinear(u, a, b float64) float64 {
	if u == 0 && a == 0 {
		return 0
	}
	denom := a + math.Sqrt((1-u)*a*a+u*b*b)
	if denom == 0 {
		return u
	}
	return min(u*(a+b)/denom, core.OneMinusEpsilon)
}

var _ Environment = (*Gradient)(nil)
