package material

import (
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Lambertian represents a perfectly diffuse material. It reflects on whichever
// side of the surface wo lies.
type Lambertian struct {
	Albedo core.Vec3
}

// NewLambertian creates a lambertian material; every albedo component must be in [0, 1]
func NewLambertian(albedo core.Vec3) (*Lambertian, error) {
	for _, c := range []float64{albedo.X, albedo.Y, albedo.Z} {
		if !(c >= 0 && c <= 1) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAlbedo, albedo)
		}
	}
	return &Lambertian{Albedo: albedo}, nil
}

func sameHemisphere(wo, wi, n core.Vec3) bool {
	return wo.Dot(n)*wi.Dot(n) > 0
}

// Evaluate returns albedo/π for directions on the same side as wo
func (l *Lambertian) Evaluate(wo, wi, n core.Vec3) core.Vec3 {
	if !sameHemisphere(wo, wi, n) {
		return core.Vec3{}
	}
	return l.Albedo.Multiply(1 / math.Pi)
}

// Sample draws a cosine-weighted direction around the normal flipped towards wo
func (l *Lambertian) Sample(wo, n core.Vec3, u core.Vec2) (BSDFSample, bool) {
	if wo.Dot(n) == 0 {
		return BSDFSample{}, false
	}
	n = n.FaceForward(wo)
	frame := core.NewFrame(n)
	wi := frame.ToWorld(core.SampleCosineHemisphere(u))
	pdf := core.CosineHemispherePDF(wi.Dot(n))
	if pdf == 0 {
		return BSDFSample{}, false
	}
	return BSDFSample{Wi: wi, F: l.Albedo.Multiply(1 / math.Pi), PDF: pdf}, true
}

// PDF returns cos(θ)/π for directions on the same side as wo
func (l *Lambertian) PDF(wo, wi, n core.Vec3) float64 {
	if !sameHemisphere(wo, wi, n) {
		return 0
	}
	return math.Abs(wi.Dot(n)) / math.Pi
}

var _ BSDF = (*Lambertian)(nil)
