package integrator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/lights"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
)

// testScene assembles a Scene from shapes whose light and surface tags index
// the given registry and table
func testScene(t *testing.T, shapes []*geometry.Shape, registry *lights.Registry, surfaces *material.Table, media *medium.Table, env lights.Environment, opts lights.SamplerOptions) *Scene {
	t.Helper()
	g, err := geometry.Build(shapes, 0, nil)
	if err != nil {
		t.Fatalf("geometry.Build: %v", err)
	}
	if registry == nil {
		registry = lights.NewRegistry()
	}
	ls, err := lights.NewSampler(g, registry, env, opts)
	if err != nil {
		t.Fatalf("lights.NewSampler: %v", err)
	}
	if surfaces == nil {
		surfaces = material.NewTable()
	}
	if media == nil {
		media = medium.NewTable()
	}
	return &Scene{Geometry: g, Lights: ls, Surfaces: surfaces, Media: media, CameraMedium: geometry.NoTag}
}

func lambertian(t *testing.T, albedo float64) *material.Lambertian {
	t.Helper()
	l, err := material.NewLambertian(core.Splat(albedo))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// rectangleFormFactor is the form factor from a point to an a×b rectangle
// parallel to its tangent plane at height h, with one corner straight above it
func rectangleFormFactor(a, b, h float64) float64 {
	x, y := a/h, b/h
	sx, sy := math.Sqrt(1+x*x), math.Sqrt(1+y*y)
	return (x/sx*math.Atan(y/sx) + y/sy*math.Atan(x/sy)) / (2 * math.Pi)
}

func receiver(p core.Vec3) geometry.Interaction {
	up := core.NewVec3(0, 1, 0)
	return geometry.Interaction{
		SurfacePoint: geometry.SurfacePoint{P: p, Ng: up, N: up},
		Instance:     -1,
		Surface:      geometry.NoTag,
		Light:        geometry.NoTag,
		Medium:       geometry.NoTag,
	}
}

func TestDirectLighting_QuadFormFactor(t *testing.T) {
	const (
		side     = 2.0
		height   = 1.5
		radiance = 3.0
		albedo   = 0.6
	)
	registry := lights.NewRegistry()
	tag, err := registry.AddDiffuseArea(lights.DiffuseArea{Emission: core.Splat(1), Scale: radiance})
	if err != nil {
		t.Fatal(err)
	}
	// Facing down onto the receiver: u×v = (1,0,0)×(0,0,1) = -y
	quad := geometry.NewQuad(core.NewVec3(-side/2, height, -side/2), core.NewVec3(side, 0, 0), core.NewVec3(0, 0, side))
	shapes := []*geometry.Shape{geometry.NewMeshShape("light", quad).WithLight(tag)}

	for _, strategy := range []lights.Strategy{lights.StrategyUniform, lights.StrategyPower} {
		t.Run(strategy.String(), func(t *testing.T) {
			opts := lights.DefaultSamplerOptions()
			opts.Strategy = strategy
			scene := testScene(t, shapes, registry, nil, nil, nil, opts)
			d := NewDirectLighting(scene, DefaultConfig())
			sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))
			bsdf := lambertian(t, albedo)

			it := receiver(core.Vec3{})
			wo := core.NewVec3(0, 1, 0)
			const n = 100000
			sum := core.Vec3{}
			for i := 0; i < n; i++ {
				L, err := d.Estimate(it, wo, bsdf, medium.NewTracker(), sampler)
				if err != nil {
					t.Fatal(err)
				}
				sum = sum.Add(L)
			}
			got := sum.X / n

			// Lo = ρ/π · E and E = π·L·F
			want := albedo * radiance * 4 * rectangleFormFactor(side/2, side/2, height)
			if math.Abs(got-want)/want > 0.02 {
				t.Errorf("reflected radiance %f, expected %f", got, want)
			}
		})
	}
}

func TestDirectLighting_ConstantEnvironment(t *testing.T) {
	scene := testScene(t, nil, nil, nil, nil, lights.NewConstant(core.Splat(1), 2), lights.DefaultSamplerOptions())
	d := NewDirectLighting(scene, DefaultConfig())
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(7)))
	bsdf := lambertian(t, 0.5)

	const n = 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		L, err := d.Estimate(receiver(core.Vec3{}), core.NewVec3(0, 1, 0), bsdf, medium.NewTracker(), sampler)
		if err != nil {
			t.Fatal(err)
		}
		sum += L.Y
	}
	// Uniform radiance L reflects ρ·L off a diffuse surface
	if got := sum / n; math.Abs(got-1) > 0.02 {
		t.Errorf("reflected radiance %f, expected 1", got)
	}
}

func TestDirectLighting_NoLighting(t *testing.T) {
	scene := testScene(t, nil, nil, nil, nil, nil, lights.DefaultSamplerOptions())
	d := NewDirectLighting(scene, DefaultConfig())
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))
	L, err := d.Estimate(receiver(core.Vec3{}), core.NewVec3(0, 1, 0), lambertian(t, 1), medium.NewTracker(), sampler)
	if err != nil || L != (core.Vec3{}) {
		t.Errorf("Estimate = %v, %v; expected zero", L, err)
	}
}

func TestPathTracer_DiffuseFloor(t *testing.T) {
	surfaces := material.NewTable()
	floorTag := surfaces.Add(lambertian(t, 0.7))
	floor := geometry.NewQuad(core.NewVec3(-100, 0, -100), core.NewVec3(0, 0, 200), core.NewVec3(200, 0, 0))
	shapes := []*geometry.Shape{geometry.NewMeshShape("floor", floor).WithSurface(floorTag)}
	scene := testScene(t, shapes, nil, surfaces, nil, lights.NewConstant(core.Splat(1), 1), lights.DefaultSamplerOptions())

	config := DefaultConfig()
	config.MaxDepth = 1
	pt := NewPathTracer(scene, config)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(11)))
	ray := core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0.3, -1, 0.1).Normalize())

	const n = 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		L, err := pt.Li(ray, sampler)
		if err != nil {
			t.Fatal(err)
		}
		sum += L.X
	}
	if got := sum / n; math.Abs(got-0.7) > 0.02*0.7 {
		t.Errorf("floor radiance %f, expected 0.7", got)
	}

	// Looking up sees the environment itself
	L, err := pt.Li(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0)), sampler)
	if err != nil || L != core.Splat(1) {
		t.Errorf("sky radiance %v, %v; expected 1", L, err)
	}
}

// mediumBox places an axis-aligned box of half extent half around the origin
// whose faces only bound medium tag
func mediumBox(half float64, tag int) *geometry.Shape {
	mesh := geometry.NewBox(core.Splat(-half), core.Splat(half))
	return geometry.NewMeshShape("medium", mesh).WithMedium(tag)
}

func addHomogeneous(t *testing.T, media *medium.Table, priority uint32, sigma float64) int {
	t.Helper()
	info, err := media.AddHomogeneous(medium.Homogeneous{Priority: priority, SigmaA: core.Splat(sigma)})
	if err != nil {
		t.Fatal(err)
	}
	return int(info.Tag)
}

func TestPathTracer_MediumAttenuation(t *testing.T) {
	media := medium.NewTable()
	tag := addHomogeneous(t, media, 1, 0.8)
	scene := testScene(t, []*geometry.Shape{mediumBox(0.5, tag)}, nil, nil, media, lights.NewConstant(core.Splat(1), 1), lights.DefaultSamplerOptions())
	pt := NewPathTracer(scene, DefaultConfig())
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(3)))

	L, err := pt.Li(core.NewRay(core.NewVec3(0.1, 0.2, -5), core.NewVec3(0, 0, 1)), sampler)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Exp(-0.8); math.Abs(L.X-want) > 1e-3 {
		t.Errorf("transmitted radiance %f, expected %f", L.X, want)
	}

	// Missing the box leaves the environment untouched
	L, err = pt.Li(core.NewRay(core.NewVec3(0, 2, -5), core.NewVec3(0, 0, 1)), sampler)
	if err != nil || L != core.Splat(1) {
		t.Errorf("unobstructed radiance %v, %v; expected 1", L, err)
	}
}

func TestPathTracer_MediumPriority(t *testing.T) {
	// The outer medium dominates the inner one, so the inner box is ignored
	media := medium.NewTable()
	outer := addHomogeneous(t, media, 1, 0.25)
	inner := addHomogeneous(t, media, 5, 5)
	shapes := []*geometry.Shape{mediumBox(1, outer), mediumBox(0.5, inner)}
	scene := testScene(t, shapes, nil, nil, media, lights.NewConstant(core.Splat(1), 1), lights.DefaultSamplerOptions())
	pt := NewPathTracer(scene, DefaultConfig())

	L, err := pt.Li(core.NewRay(core.NewVec3(0.1, 0.2, -5), core.NewVec3(0, 0, 1)), core.NewRandomSampler(rand.New(rand.NewSource(5))))
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Exp(-0.25 * 2); math.Abs(L.X-want) > 1e-3 {
		t.Errorf("transmitted radiance %f, expected %f", L.X, want)
	}

	// Swapping the priorities lets the dense core take over inside it
	media = medium.NewTable()
	outer = addHomogeneous(t, media, 5, 0.25)
	inner = addHomogeneous(t, media, 1, 5)
	shapes = []*geometry.Shape{mediumBox(1, outer), mediumBox(0.5, inner)}
	scene = testScene(t, shapes, nil, nil, media, lights.NewConstant(core.Splat(1), 1), lights.DefaultSamplerOptions())
	pt = NewPathTracer(scene, DefaultConfig())
	L, err = pt.Li(core.NewRay(core.NewVec3(0.1, 0.2, -5), core.NewVec3(0, 0, 1)), core.NewRandomSampler(rand.New(rand.NewSource(5))))
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Exp(-0.25*1 - 5*1); math.Abs(L.X-want) > 1e-2*want {
		t.Errorf("transmitted radiance %g, expected %g", L.X, want)
	}
}

func TestPathTracer_TrackerOverflow(t *testing.T) {
	media := medium.NewTable()
	var shapes []*geometry.Shape
	for i := 0; i <= medium.Capacity; i++ {
		tag := addHomogeneous(t, media, uint32(i+1), 0)
		shapes = append(shapes, mediumBox(float64(medium.Capacity+1-i), tag))
	}
	scene := testScene(t, shapes, nil, nil, media, lights.NewConstant(core.Splat(1), 1), lights.DefaultSamplerOptions())
	pt := NewPathTracer(scene, DefaultConfig())

	L, err := pt.Li(core.NewRay(core.NewVec3(0.1, 0.2, -100), core.NewVec3(0, 0, 1)), core.NewRandomSampler(rand.New(rand.NewSource(9))))
	if !errors.Is(err, medium.ErrOverflow) {
		t.Fatalf("Li error = %v, expected ErrOverflow", err)
	}
	if L != (core.Vec3{}) {
		t.Errorf("aborted path returned %v", L)
	}
}

func TestPathTracer_CameraMedium(t *testing.T) {
	media := medium.NewTable()
	tag := addHomogeneous(t, media, 1, 0.5)
	scene := testScene(t, []*geometry.Shape{mediumBox(1, tag)}, nil, nil, media, lights.NewConstant(core.Splat(1), 1), lights.DefaultSamplerOptions())
	scene.CameraMedium = tag
	pt := NewPathTracer(scene, DefaultConfig())

	// Starting inside, the ray leaves the box after one unit
	L, err := pt.Li(core.NewRay(core.NewVec3(0, 0.2, 0.1), core.NewVec3(1, 0, 0)), core.NewRandomSampler(rand.New(rand.NewSource(13))))
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Exp(-0.5); math.Abs(L.X-want) > 1e-3 {
		t.Errorf("transmitted radiance %f, expected %f", L.X, want)
	}
}
