package integrator

import (
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
)

// PathTracer implements unidirectional path tracing with next event
// estimation. Media attenuate each segment and their boundaries are tracked
// per path; in-scattering is not simulated.
type PathTracer struct {
	scene  *Scene
	config Config
	direct *DirectLighting
}

// NewPathTracer creates a path tracer over scene
func NewPathTracer(scene *Scene, config Config) *PathTracer {
	return &PathTracer{scene: scene, config: config, direct: NewDirectLighting(scene, config)}
}

// Li returns the radiance arriving at ray's origin from its direction. A
// tracker error aborts the path and is returned with a zero estimate.
func (pt *PathTracer) Li(ray core.Ray, sampler core.Sampler) (core.Vec3, error) {
	scene := pt.scene
	tracker, err := scene.startTracker()
	if err != nil {
		return core.Vec3{}, fmt.Errorf("integrator: camera medium: %w", err)
	}

	L := core.Vec3{}
	beta := core.Splat(1)
	prevPDF := 0.0 // zero until the first scattering event
	prevPoint := ray.Origin

	for bounces := 0; ; bounces++ {
		it, hit, tr, err := scene.trace(ray, &tracker, pt.config.MaxCrossings)
		if err != nil {
			return core.Vec3{}, err
		}
		beta = beta.MultiplyVec(tr)

		// Emission reached by the previous BSDF sample, or seen directly
		if !hit || it.HasLight() {
			if bounces == 0 {
				L = L.Add(beta.MultiplyVec(directEmission(scene, it, hit, ray.Direction, prevPoint)))
			} else {
				L = L.Add(beta.MultiplyVec(emittedRadiance(scene, it, hit, ray.Direction, prevPoint, prevPDF)))
			}
		}
		if !hit || bounces == pt.config.MaxDepth {
			break
		}

		bsdf := scene.Surfaces.Get(it.Surface)
		if bsdf == nil {
			break
		}
		wo := ray.Direction.Negate()

		direct, err := pt.direct.sampleLight(it, wo, bsdf, tracker, sampler)
		if err != nil {
			return core.Vec3{}, err
		}
		L = L.Add(beta.MultiplyVec(direct))

		bs, ok := bsdf.Sample(wo, it.N, sampler.Get2D())
		if !ok || bs.PDF == 0 || bs.F.IsBlack() {
			break
		}
		beta = beta.MultiplyVec(bs.F).Multiply(bs.Wi.AbsDot(it.N) / bs.PDF)
		if err := scene.crossBoundary(&tracker, &it, wo, bs.Wi); err != nil {
			return core.Vec3{}, err
		}
		prevPDF = bs.PDF
		prevPoint = it.P
		ray = core.SpawnRay(it.P, it.Ng, bs.Wi)

		if bounces+1 >= pt.config.RussianRouletteMinBounces {
			q := math.Max(0.05, 1-beta.MaxComponent())
			if sampler.Get1D() < q {
				break
			}
			beta = beta.Multiply(1 / (1 - q))
		}
	}
	return L, nil
}

// directEmission is the unweighted radiance a camera ray sees at its first hit
// or in the environment
func directEmission(scene *Scene, it geometry.Interaction, hit bool, wi, pFrom core.Vec3) core.Vec3 {
	if !hit {
		return scene.Lights.EvaluateMiss(wi, scene.Time).L
	}
	return scene.Lights.EvaluateHit(it, pFrom, scene.Time).L
}
