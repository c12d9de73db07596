package lights

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/transform"
)

// Constant is an environment of the same radiance in every direction
type Constant struct {
	emission core.Vec3
}

// NewConstant creates a constant environment of radiance emission*scale.
// Negative components are clamped to zero.
func NewConstant(emission core.Vec3, scale float64) *Constant {
	return &Constant{emission: emission.Multiply(scale).Max(core.Vec3{})}
}

// Emission returns the radiance
func (c *Constant) Emission() core.Vec3 {
	return c.emission
}

func (c *Constant) IsBlack() bool {
	return c.emission.IsBlack()
}

func (c *Constant) Evaluate(wi core.Vec3, time float64) Evaluation {
	return Evaluation{L: c.emission, PDF: core.UniformSpherePDF}
}

func (c *Constant) Sample(u core.Vec2, time float64) (core.Vec3, Evaluation) {
	return core.SampleUniformSphere(u), Evaluation{L: c.emission, PDF: core.UniformSpherePDF}
}

var _ Environment = (*Constant)(nil)

// Directional is a distant disk light: constant radiance inside a cone around
// Direction, nothing outside. With normalize set the irradiance it delivers
// head-on stays independent of the angle.
type Directional struct {
	orientation
	emission     core.Vec3
	direction    core.Vec3
	frame        core.Frame
	cosHalfAngle float64
}

// NewDirectional creates a directional environment with the given apex angle
// in degrees, clamped to [1e-3, 360]. t may be nil.
func NewDirectional(emission core.Vec3, scale float64, direction core.Vec3, angle float64, normalize bool, t transform.Transform) *Directional {
	angle = max(1e-3, min(angle, 360))
	cosHalfAngle := cosDegrees(angle / 2)
	if normalize {
		scale = 2 * scale / (1 - cosHalfAngle)
	}
	direction = direction.Normalize()
	if direction == (core.Vec3{}) {
		direction = core.NewVec3(0, 1, 0)
	}
	return &Directional{
		orientation:  orientation{transform: t},
		emission:     emission.Multiply(scale).Max(core.Vec3{}),
		direction:    direction,
		frame:        core.NewFrame(direction),
		cosHalfAngle: cosHalfAngle,
	}
}

func (d *Directional) IsBlack() bool {
	return d.emission.IsBlack()
}

func (d *Directional) Evaluate(wi core.Vec3, time float64) Evaluation {
	local := d.toLocal(wi, time)
	if local.Dot(d.direction) <= d.cosHalfAngle {
		return Evaluation{}
	}
	return Evaluation{L: d.emission, PDF: core.UniformConePDF(d.cosHalfAngle)}
}

func (d *Directional) Sample(u core.Vec2, time float64) (core.Vec3, Evaluation) {
	local := d.frame.ToWorld(core.SampleUniformCone(u, d.cosHalfAngle))
	return d.toWorld(local, time), Evaluation{L: d.emission, PDF: core.UniformConePDF(d.cosHalfAngle)}
}

var _ Environment = (*Directional)(nil)
