package scene

import (
	"fmt"
	"runtime"
	"time"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/filter"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/integrator"
	"github.com/df07/go-light-transport/pkg/lights"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/transform"
	"github.com/df07/go-light-transport/pkg/workpool"
)

// Options override parts of a description at build time
type Options struct {
	InitialTime float64

	// Strategy replaces the scene's light selection strategy when set
	Strategy string
	// EnvironmentWeight replaces the scene's environment weight when not negative
	EnvironmentWeight float64

	// Workers sizes the pool Build creates when it isn't given one; 0 uses every CPU
	Workers int
}

// DefaultOptions keeps every scene setting
func DefaultOptions() Options {
	return Options{EnvironmentWeight: -1}
}

// Pipeline is a built scene ready to be integrated
type Pipeline struct {
	Name string

	Geometry     *geometry.Geometry
	Lights       *lights.Sampler
	Registry     *lights.Registry
	Surfaces     *material.Table
	Media        *medium.Table
	Filter       *filter.Sampler
	CameraMedium int
	Config       integrator.Config

	pool     *workpool.Pool
	ownsPool bool
}

// Build turns a description into a pipeline. Work runs on pool; when pool is
// nil Build creates one that Close stops.
func Build(desc *Description, opts Options, pool *workpool.Pool) (*Pipeline, error) {
	start := time.Now()
	p := &Pipeline{Name: desc.Name, CameraMedium: geometry.NoTag, pool: pool}
	if p.pool == nil {
		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		p.pool = workpool.New(workers)
		p.ownsPool = true
	}
	if err := p.build(desc, opts); err != nil {
		p.Close()
		return nil, err
	}
	logger.Noticef("built %q: %d instances, %d lights, %d media in %v",
		p.Name, p.Geometry.InstanceCount(), p.Lights.LightCount(), p.Media.Len(), time.Since(start))
	return p, nil
}

func (p *Pipeline) build(desc *Description, opts Options) error {
	ctx := newContext(desc, p.pool)
	p.Surfaces, p.Registry, p.Media = ctx.surfaces, ctx.lights, ctx.media

	// the environment may be loading in the background while the shapes build
	var env interface{}
	if desc.Environment != "" {
		value, err := ctx.named(KindEnvironment, desc.Environment)
		if err != nil {
			return err
		}
		env = value
	}

	shapes := make([]*geometry.Shape, 0, len(desc.Shapes))
	for _, name := range desc.Shapes {
		value, err := ctx.named(KindShape, name)
		if err != nil {
			return err
		}
		shapes = append(shapes, value.(*geometry.Shape))
	}
	if desc.CameraMedium != "" {
		value, err := ctx.named(KindMedium, desc.CameraMedium)
		if err != nil {
			return err
		}
		p.CameraMedium = value.(int)
	}

	geom, err := geometry.Build(shapes, opts.InitialTime, p.pool)
	if err != nil {
		return fmt.Errorf("scene %q: %w", desc.Name, err)
	}
	p.Geometry = geom

	environment, err := resolveEnvironment(env)
	if err != nil {
		return fmt.Errorf("scene %q: environment %q: %w", desc.Name, desc.Environment, err)
	}

	samplerOpts := lights.DefaultSamplerOptions()
	if desc.LightSampler != "" {
		value, err := ctx.named(KindLightSampler, desc.LightSampler)
		if err != nil {
			return err
		}
		samplerOpts = value.(lights.SamplerOptions)
	}
	if opts.Strategy != "" {
		if samplerOpts.Strategy, err = lights.ParseStrategy(opts.Strategy); err != nil {
			return err
		}
	}
	if opts.EnvironmentWeight >= 0 {
		samplerOpts.EnvironmentWeight = opts.EnvironmentWeight
	}
	if p.Lights, err = lights.NewSampler(geom, p.Registry, environment, samplerOpts); err != nil {
		return fmt.Errorf("scene %q: %w", desc.Name, err)
	}

	var f filter.Filter
	if desc.Filter != "" {
		value, err := ctx.named(KindFilter, desc.Filter)
		if err != nil {
			return err
		}
		f = value.(filter.Filter)
	} else if f, err = filter.NewBox(0.5, core.Vec2{}); err != nil {
		return err
	}
	if p.Filter, err = filter.NewSampler(f); err != nil {
		return fmt.Errorf("scene %q: %w", desc.Name, err)
	}

	p.Config = integrator.DefaultConfig()
	if desc.Integrator.MaxDepth > 0 {
		p.Config.MaxDepth = desc.Integrator.MaxDepth
	}
	if desc.Integrator.RussianRouletteMinBounces > 0 {
		p.Config.RussianRouletteMinBounces = desc.Integrator.RussianRouletteMinBounces
	}
	return nil
}

func resolveEnvironment(value interface{}) (lights.Environment, error) {
	switch env := value.(type) {
	case nil:
		return nil, nil
	case *workpool.Future[lights.Environment]:
		return env.Wait()
	case lights.Environment:
		return env, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrFactory, value)
	}
}

// Update moves every dynamic instance to time
func (p *Pipeline) Update(time float64) {
	p.Geometry.Update(time)
}

// Time returns the time the geometry was last updated to
func (p *Pipeline) Time() float64 {
	return p.Geometry.Time()
}

// Tree returns the transform tree of the scene's instances
func (p *Pipeline) Tree() *transform.Tree {
	return p.Geometry.Tree()
}

// Scene returns the integrator's view of the pipeline at its current time
func (p *Pipeline) Scene() *integrator.Scene {
	return &integrator.Scene{
		Geometry:     p.Geometry,
		Lights:       p.Lights,
		Surfaces:     p.Surfaces,
		Media:        p.Media,
		CameraMedium: p.CameraMedium,
		Time:         p.Geometry.Time(),
	}
}

// Pool returns the pool the pipeline was built on
func (p *Pipeline) Pool() *workpool.Pool {
	return p.pool
}

// Close stops the pool if Build created it
func (p *Pipeline) Close() {
	if p.ownsPool && p.pool != nil {
		p.pool.Stop()
		p.pool = nil
	}
}
