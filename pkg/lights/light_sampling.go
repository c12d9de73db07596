package lights

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/alias"
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
)

var (
	ErrUnknownStrategy = errors.New("lights: unknown selection strategy")
	ErrUnknownLight    = errors.New("lights: instance references an unregistered light")
)

// Strategy decides how likely each area light is to be picked
type Strategy int

const (
	// StrategyUniform picks every emitting light with the same probability
	StrategyUniform Strategy = iota
	// StrategyPower picks lights proportionally to their emitted flux
	StrategyPower
)

func (s Strategy) String() string {
	switch s {
	case StrategyUniform:
		return "uniform"
	case StrategyPower:
		return "power"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a scene-file name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "uniform":
		return StrategyUniform, nil
	case "power":
		return StrategyPower, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Environment selection bounds when both lights and an environment exist
const (
	DefaultEnvironmentWeight = 0.5
	minEnvironmentProb       = 0.01
	maxEnvironmentProb       = 0.99
)

// SamplerOptions configures a Sampler
type SamplerOptions struct {
	Strategy          Strategy
	EnvironmentWeight float64
}

// DefaultSamplerOptions returns uniform selection with an even environment split
func DefaultSamplerOptions() SamplerOptions {
	return SamplerOptions{Strategy: StrategyUniform, EnvironmentWeight: DefaultEnvironmentWeight}
}

// Sampler picks one emitter per shading point and reports every density in
// solid angle, already multiplied by the probability of having picked that
// emitter, so light and BSDF samples can be combined directly.
type Sampler struct {
	geometry    *geometry.Geometry
	registry    *Registry
	environment Environment
	strategy    Strategy

	lights     []geometry.LightHandle // emitting instances that can be sampled
	table      *alias.Table           // nil for uniform selection
	byInstance []int                  // instance -> index into lights, or -1
	envProb    float64
}

// NewSampler collects the emitting instances of g. Black lights and lights on
// zero-area instances are left out of selection entirely. env may be nil.
func NewSampler(g *geometry.Geometry, registry *Registry, env Environment, opts SamplerOptions) (*Sampler, error) {
	if opts.Strategy != StrategyUniform && opts.Strategy != StrategyPower {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, opts.Strategy)
	}
	s := &Sampler{
		geometry: g,
		registry: registry,
		strategy: opts.Strategy,
	}
	if env != nil && !env.IsBlack() {
		s.environment = env
	}

	s.byInstance = make([]int, g.InstanceCount())
	for i := range s.byInstance {
		s.byInstance[i] = -1
	}

	var weights []float64
	for _, handle := range g.Lights() {
		if handle.Light < 0 || handle.Light >= registry.Len() {
			return nil, fmt.Errorf("%w: instance %d uses light %d of %d", ErrUnknownLight, handle.Instance, handle.Light, registry.Len())
		}
		if registry.IsBlack(handle.Light) {
			continue
		}
		area := g.InstanceArea(handle.Instance)
		if area == 0 {
			logger.Warningf("light on instance %q has zero area, skipping", g.Instance(handle.Instance).Name)
			continue
		}
		s.byInstance[handle.Instance] = len(s.lights)
		s.lights = append(s.lights, handle)
		weights = append(weights, registry.Power(handle.Light, area))
	}

	if opts.Strategy == StrategyPower && len(s.lights) > 0 {
		table, err := alias.New(weights)
		if err != nil {
			return nil, fmt.Errorf("lights: power table: %w", err)
		}
		s.table = table
	}

	switch {
	case s.environment == nil:
		s.envProb = 0
	case len(s.lights) == 0:
		s.envProb = 1
	default:
		s.envProb = max(minEnvironmentProb, min(opts.EnvironmentWeight, maxEnvironmentProb))
	}

	if !s.HasLighting() {
		logger.Warning("scene has no emitters, light sampling is disabled")
	} else {
		logger.Infof("light sampler: %d lights (%v), environment probability %.2f",
			len(s.lights), s.strategy, s.envProb)
	}
	return s, nil
}

// HasLighting reports whether anything can be sampled
func (s *Sampler) HasLighting() bool {
	return len(s.lights) > 0 || s.environment != nil
}

// LightCount returns the number of selectable area lights
func (s *Sampler) LightCount() int {
	return len(s.lights)
}

// Light returns selectable light i
func (s *Sampler) Light(i int) geometry.LightHandle {
	return s.lights[i]
}

// Environment returns the environment, or nil when there is none or it is black
func (s *Sampler) Environment() Environment {
	return s.environment
}

// EnvironmentProbability returns the chance of selecting the environment
func (s *Sampler) EnvironmentProbability() float64 {
	return s.envProb
}

// Strategy returns the area light selection strategy
func (s *Sampler) Strategy() Strategy {
	return s.strategy
}

// lightPMF is the probability of picking light i given that an area light is picked
func (s *Sampler) lightPMF(i int) float64 {
	if s.table != nil {
		return s.table.PDF(i)
	}
	return 1 / float64(len(s.lights))
}

// Select picks an emitter. from is unused by the current strategies.
func (s *Sampler) Select(u float64, from geometry.SurfacePoint) Selection {
	if !s.HasLighting() {
		return Selection{Tag: SelectionNone}
	}
	if u < s.envProb {
		return Selection{Tag: SelectionEnvironment, Prob: s.envProb}
	}
	uu := min((u-s.envProb)/(1-s.envProb), core.OneMinusEpsilon)
	var i int
	if s.table != nil {
		i, _ = s.table.Sample(uu)
	} else {
		i = min(int(uu*float64(len(s.lights))), len(s.lights)-1)
	}
	return Selection{Tag: i, Prob: (1 - s.envProb) * s.lightPMF(i)}
}

// SelectionProbability returns the probability Select picks light i
func (s *Sampler) SelectionProbability(i int) float64 {
	if i == SelectionEnvironment {
		return s.envProb
	}
	if i < 0 || i >= len(s.lights) {
		return 0
	}
	return (1 - s.envProb) * s.lightPMF(i)
}

// EvaluateHit returns the radiance a ray from pFrom receives from the emitter
// it hit at it, and the density light sampling would have produced that point with.
// Light positions come from the geometry's last Update, so time must be
// Geometry.Time().
func (s *Sampler) EvaluateHit(it geometry.Interaction, pFrom core.Vec3, time float64) Evaluation {
	if it.Instance < 0 || it.Instance >= len(s.byInstance) {
		return Evaluation{}
	}
	i := s.byInstance[it.Instance]
	if i < 0 {
		return Evaluation{}
	}
	eval := s.evaluateLight(s.lights[i], it.Primitive, it.SurfacePoint, pFrom)
	eval.PDF *= s.SelectionProbability(i)
	return eval
}

// EvaluateMiss returns the environment radiance along an escaping direction
func (s *Sampler) EvaluateMiss(wi core.Vec3, time float64) Evaluation {
	if s.environment == nil {
		return Evaluation{}
	}
	eval := s.environment.Evaluate(wi, time)
	eval.PDF *= s.envProb
	return eval
}

func (s *Sampler) evaluateLight(handle geometry.LightHandle, prim int, sp geometry.SurfacePoint, pFrom core.Vec3) Evaluation {
	switch s.registry.Kind(handle.Light) {
	case KindDiffuseArea:
		return s.registry.DiffuseArea(handle.Light).evaluate(s.geometry, handle.Instance, prim, sp, pFrom)
	}
	return Evaluation{}
}

// SampleLight samples a point on light i. The density excludes selection.
// Like EvaluateHit it samples the geometry as of its last Update; pass
// Geometry.Time() as time.
func (s *Sampler) SampleLight(i int, from geometry.SurfacePoint, u core.Vec2, time float64) Sample {
	if i < 0 || i >= len(s.lights) {
		return Sample{}
	}
	handle := s.lights[i]
	switch s.registry.Kind(handle.Light) {
	case KindDiffuseArea:
		return s.registry.DiffuseArea(handle.Light).sample(s.geometry, handle.Instance, from, u)
	}
	return Sample{}
}

// SampleEnvironment samples a direction from the environment. The density
// excludes selection.
func (s *Sampler) SampleEnvironment(from geometry.SurfacePoint, u core.Vec2, time float64) Sample {
	if s.environment == nil {
		return Sample{}
	}
	wi, eval := s.environment.Sample(u, time)
	if eval.PDF == 0 {
		return Sample{}
	}
	shadow := core.SpawnRay(from.P, from.Ng, wi)
	shadow.TMax = math.Inf(1)
	return Sample{Eval: eval, Shadow: shadow}
}

// SampleSelection samples the emitter sel names and folds in its probability
func (s *Sampler) SampleSelection(sel Selection, from geometry.SurfacePoint, u core.Vec2, time float64) Sample {
	var sample Sample
	switch {
	case sel.Tag == SelectionNone || sel.Prob == 0:
		return Sample{}
	case sel.Tag == SelectionEnvironment:
		sample = s.SampleEnvironment(from, u, time)
	default:
		sample = s.SampleLight(sel.Tag, from, u, time)
	}
	sample.Eval.PDF *= sel.Prob
	return sample
}

// Sample selects an emitter with uSel and samples it with uLight
func (s *Sampler) Sample(from geometry.SurfacePoint, uSel float64, uLight core.Vec2, time float64) Sample {
	return s.SampleSelection(s.Select(uSel, from), from, uLight, time)
}
