package core

import "math"

// RayEpsilon is the relative offset applied when spawning rays off a surface
const RayEpsilon = 1e-4

// Ray represents a ray segment with an origin, a direction and a valid t-range
type Ray struct {
	Origin    Vec3
	Direction Vec3
	TMin      float64
	TMax      float64
}

// NewRay creates a new unbounded ray
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, TMin: 0, TMax: math.Inf(1)}
}

// NewRaySegment creates a ray restricted to [tMin, tMax]
func NewRaySegment(origin, direction Vec3, tMin, tMax float64) Ray {
	return Ray{Origin: origin, Direction: direction, TMin: tMin, TMax: tMax}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// OffsetRayOrigin pushes p off the surface with geometric normal ng towards w,
// scaled by the magnitude of p so large scenes don't self-intersect
func OffsetRayOrigin(p, ng, w Vec3) Vec3 {
	scale := RayEpsilon * math.Max(1, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	offset := ng.Multiply(scale)
	if w.Dot(ng) < 0 {
		offset = offset.Negate()
	}
	return p.Add(offset)
}

// SpawnRay creates a ray leaving a surface point in direction w
func SpawnRay(p, ng, w Vec3) Ray {
	return NewRay(OffsetRayOrigin(p, ng, w), w)
}

// SpawnRayTo creates a shadow ray from a surface point towards target,
// stopping just short of it
func SpawnRayTo(p, ng, target Vec3) Ray {
	origin := OffsetRayOrigin(p, ng, target.Subtract(p))
	toTarget := target.Subtract(origin)
	distance := toTarget.Length()
	if distance == 0 {
		return NewRaySegment(origin, ng, 0, 0)
	}
	return NewRaySegment(origin, toTarget.Multiply(1/distance), 0, distance*(1-ShadowEpsilon))
}

// ShadowEpsilon shortens shadow rays so they don't hit the sampled point itself
const ShadowEpsilon = 1e-4
