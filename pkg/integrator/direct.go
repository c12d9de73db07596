package integrator

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
)

// DirectLighting estimates single-bounce reflected radiance by combining one
// light sample and one BSDF sample with the power heuristic
type DirectLighting struct {
	scene  *Scene
	config Config
}

// NewDirectLighting creates a direct lighting estimator for scene
func NewDirectLighting(scene *Scene, config Config) *DirectLighting {
	return &DirectLighting{scene: scene, config: config}
}

// Estimate returns the radiance leaving it towards wo that arrives straight
// from an emitter. tracker is the medium state on the wo side of it.
func (d *DirectLighting) Estimate(it geometry.Interaction, wo core.Vec3, bsdf material.BSDF, tracker medium.Tracker, sampler core.Sampler) (core.Vec3, error) {
	if bsdf == nil {
		return core.Vec3{}, nil
	}
	direct, err := d.sampleLight(it, wo, bsdf, tracker, sampler)
	if err != nil {
		return core.Vec3{}, err
	}
	indirect, err := d.sampleBSDF(it, wo, bsdf, tracker, sampler)
	if err != nil {
		return core.Vec3{}, err
	}
	return direct.Add(indirect), nil
}

// sampleLight is the light sampling half of Estimate
func (d *DirectLighting) sampleLight(it geometry.Interaction, wo core.Vec3, bsdf material.BSDF, tracker medium.Tracker, sampler core.Sampler) (core.Vec3, error) {
	scene := d.scene
	uSel := sampler.Get1D()
	uLight := sampler.Get2D()
	ls := scene.Lights.Sample(it.SurfacePoint, uSel, uLight, scene.Time)
	if ls.IsZero() {
		return core.Vec3{}, nil
	}

	wi := ls.Shadow.Direction
	f := bsdf.Evaluate(wo, wi, it.N)
	if f.IsBlack() {
		return core.Vec3{}, nil
	}
	if err := scene.crossBoundary(&tracker, &it, wo, wi); err != nil {
		return core.Vec3{}, err
	}
	tr, err := scene.visibility(ls.Shadow, tracker, d.config.MaxCrossings)
	if err != nil || tr.IsBlack() {
		return core.Vec3{}, err
	}

	weight := core.PowerHeuristic(1, ls.Eval.PDF, 1, bsdf.PDF(wo, wi, it.N))
	return f.MultiplyVec(ls.Eval.L).MultiplyVec(tr).Multiply(wi.AbsDot(it.N) * weight / ls.Eval.PDF), nil
}

// sampleBSDF is the BSDF sampling half of Estimate: it scores whatever emitter
// or environment the sampled direction reaches
func (d *DirectLighting) sampleBSDF(it geometry.Interaction, wo core.Vec3, bsdf material.BSDF, tracker medium.Tracker, sampler core.Sampler) (core.Vec3, error) {
	scene := d.scene
	bs, ok := bsdf.Sample(wo, it.N, sampler.Get2D())
	if !ok || bs.PDF == 0 || bs.F.IsBlack() {
		return core.Vec3{}, nil
	}
	if err := scene.crossBoundary(&tracker, &it, wo, bs.Wi); err != nil {
		return core.Vec3{}, err
	}
	hit, ok, tr, err := scene.trace(core.SpawnRay(it.P, it.Ng, bs.Wi), &tracker, d.config.MaxCrossings)
	if err != nil {
		return core.Vec3{}, err
	}
	emitted := emittedRadiance(scene, hit, ok, bs.Wi, it.P, bs.PDF)
	return bs.F.MultiplyVec(emitted).MultiplyVec(tr).Multiply(bs.Wi.AbsDot(it.N) / bs.PDF), nil
}

// emittedRadiance returns the MIS weighted radiance a BSDF-sampled ray from
// pFrom picks up at its hit, or from the environment when it escapes.
func emittedRadiance(scene *Scene, hit geometry.Interaction, ok bool, wi, pFrom core.Vec3, bsdfPDF float64) core.Vec3 {
	var L core.Vec3
	var lightPDF float64
	switch {
	case !ok:
		eval := scene.Lights.EvaluateMiss(wi, scene.Time)
		L, lightPDF = eval.L, eval.PDF
	case hit.HasLight():
		eval := scene.Lights.EvaluateHit(hit, pFrom, scene.Time)
		L, lightPDF = eval.L, eval.PDF
	default:
		return core.Vec3{}
	}
	if L.IsBlack() {
		return core.Vec3{}
	}
	return L.Multiply(core.PowerHeuristic(1, bsdfPDF, 1, lightPDF))
}
