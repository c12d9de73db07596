// Package integrator estimates the radiance arriving along camera rays from
// the pipeline's geometry, lights, surfaces and media.
package integrator

import (
	"errors"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/lights"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
)

var ErrCrossingLimit = errors.New("integrator: too many medium boundary crossings")

// Scene is everything a ray can interact with at one point in time
type Scene struct {
	Geometry *geometry.Geometry
	Lights   *lights.Sampler
	Surfaces *material.Table
	Media    *medium.Table

	// CameraMedium is the geometry medium tag the camera sits in, or geometry.NoTag
	CameraMedium int
	Time         float64
}

// Config holds the path termination settings
type Config struct {
	MaxDepth                  int // maximum scattering events per path
	RussianRouletteMinBounces int // bounces before roulette can terminate a path
	MaxCrossings              int // boundary pass-throughs allowed between two scattering events
}

// DefaultConfig returns the settings used when a scene doesn't override them
func DefaultConfig() Config {
	return Config{
		MaxDepth:                  8,
		RussianRouletteMinBounces: 3,
		MaxCrossings:              4 * medium.Capacity,
	}
}

// Integrator computes the radiance arriving at a ray's origin
type Integrator interface {
	Li(ray core.Ray, sampler core.Sampler) (core.Vec3, error)
}

// mediumInfo converts a geometry medium tag into the tracker's medium key
func mediumInfo(tag int) medium.Info {
	if tag == geometry.NoTag {
		return medium.VacuumInfo
	}
	return medium.Info{Tag: uint32(tag)}
}

// startTracker returns the tracker state of a ray leaving the camera
func (s *Scene) startTracker() (medium.Tracker, error) {
	tracker := medium.NewTracker()
	if s.CameraMedium != geometry.NoTag && s.Media != nil {
		m := mediumInfo(s.CameraMedium)
		if err := tracker.Enter(s.Media.Priority(m), m); err != nil {
			return tracker, err
		}
	}
	return tracker, nil
}

// crossBoundary updates tracker for a path arriving at it from wo and leaving
// along wi. Nothing changes unless the hit is a medium boundary and the path
// ends up on the other side of it. Leaving a medium the tracker never entered
// enters it instead, which happens at coincident boundaries.
func (s *Scene) crossBoundary(tracker *medium.Tracker, it *geometry.Interaction, wo, wi core.Vec3) error {
	if it.Medium == geometry.NoTag || s.Media == nil {
		return nil
	}
	if wo.Dot(it.Ng)*wi.Dot(it.Ng) >= 0 {
		return nil
	}
	m := mediumInfo(it.Medium)
	priority := s.Media.Priority(m)
	if it.FrontFace(wo) || !tracker.Exist(priority, m) {
		return tracker.Enter(priority, m)
	}
	return tracker.Exit(priority, m)
}

// passThrough reports whether a ray ignores the surface at it: medium
// boundaries without a surface, and boundaries of media the current one
// dominates
func (s *Scene) passThrough(tracker *medium.Tracker, it *geometry.Interaction) bool {
	if it.Medium == geometry.NoTag || s.Media == nil {
		return false
	}
	if it.Surface == geometry.NoTag {
		return true
	}
	return !tracker.TrueHit(s.Media.Priority(mediumInfo(it.Medium)))
}

// transmittance is the fraction of light surviving distance in the current medium
func (s *Scene) transmittance(tracker *medium.Tracker, distance float64) core.Vec3 {
	if s.Media == nil {
		return core.Splat(1)
	}
	return s.Media.Transmittance(tracker.Current(), distance)
}

// trace follows ray to the next surface it interacts with. Pass-through
// boundaries update tracker along the way, and beta holds the transmittance of
// every segment covered, including the final one when nothing is hit.
func (s *Scene) trace(ray core.Ray, tracker *medium.Tracker, maxCrossings int) (it geometry.Interaction, hit bool, beta core.Vec3, err error) {
	beta = core.Splat(1)
	for crossings := 0; ; crossings++ {
		it, hit = s.Geometry.Intersect(ray)
		if !hit {
			return it, false, beta.MultiplyVec(s.transmittance(tracker, ray.TMax)), nil
		}
		beta = beta.MultiplyVec(s.transmittance(tracker, it.T))
		if !s.passThrough(tracker, &it) {
			return it, true, beta, nil
		}
		if crossings == maxCrossings {
			return it, false, core.Vec3{}, ErrCrossingLimit
		}
		if err := s.crossBoundary(tracker, &it, ray.Direction.Negate(), ray.Direction); err != nil {
			return it, false, core.Vec3{}, err
		}
		next := core.SpawnRay(it.P, it.Ng, ray.Direction)
		next.TMax = ray.TMax - it.T
		ray = next
	}
}

// visibility returns the transmittance along a shadow ray, zero when a
// surface blocks it
func (s *Scene) visibility(shadow core.Ray, tracker medium.Tracker, maxCrossings int) (core.Vec3, error) {
	_, hit, beta, err := s.trace(shadow, &tracker, maxCrossings)
	if err != nil || hit {
		return core.Vec3{}, err
	}
	return beta, nil
}
