// Package lights evaluates and samples the scene's emitters: diffuse area
// lights attached to mesh instances and an optional environment.
package lights

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/log"
)

var logger = log.New("lights")

// Evaluation is the radiance arriving along a direction together with the
// solid-angle density of light sampling producing that direction
type Evaluation struct {
	L   core.Vec3
	PDF float64
}

// Sample is a light-sampled direction. Shadow starts just off the shading point,
// points at the light and stops short of it; Shadow.Direction is unit length.
type Sample struct {
	Eval   Evaluation
	Shadow core.Ray
}

// IsZero reports whether the sample carries no contribution
func (s Sample) IsZero() bool {
	return s.Eval.PDF == 0 || s.Eval.L.IsBlack()
}

// Selection sentinels
const (
	SelectionEnvironment = -1
	SelectionNone        = -2
)

// Selection is the outcome of picking one emitter. Tag is an index into the
// sampler's light list, or one of the sentinels above.
type Selection struct {
	Tag  int
	Prob float64
}

// IsEnvironment reports whether the environment was chosen
func (s Selection) IsEnvironment() bool {
	return s.Tag == SelectionEnvironment
}

// Environment is radiance arriving from infinitely far away
type Environment interface {
	// IsBlack reports whether the environment emits nothing anywhere
	IsBlack() bool

	// Evaluate returns the radiance along world direction wi (pointing away
	// from the scene) and the density Sample would return for it
	Evaluate(wi core.Vec3, time float64) Evaluation

	// Sample draws a world direction and its radiance and density
	Sample(u core.Vec2, time float64) (core.Vec3, Evaluation)
}
