package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/filter"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/lights"
	"github.com/df07/go-light-transport/pkg/loaders"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/transform"
	"github.com/df07/go-light-transport/pkg/workpool"
)

func init() {
	Register(KindTransform, "matrix", newMatrix)
	Register(KindTransform, "srt", newSRT)
	Register(KindTransform, "stack", newStack)
	Register(KindTransform, "lerp", newLerp)
	Register(KindTransform, "view", newView)

	Register(KindSurface, "lambertian", newLambertian)
	Register(KindLight, "diffuse", newDiffuseLight)
	Register(KindMedium, "vacuum", newVacuum)
	Register(KindMedium, "homogeneous", newHomogeneous)

	Register(KindEnvironment, "constant", newConstantEnvironment)
	Register(KindEnvironment, "gradient", newGradientEnvironment)
	Register(KindEnvironment, "directional", newDirectionalEnvironment)
	Register(KindEnvironment, "spherical", newSphericalEnvironment)

	Register(KindShape, "mesh", newMeshShape)
	Register(KindShape, "quad", newQuadShape)
	Register(KindShape, "box", newBoxShape)
	Register(KindShape, "ply", newPLYShape)
	Register(KindShape, "group", newGroupShape)

	Register(KindFilter, "box", newBoxFilter)
	Register(KindFilter, "triangle", newTriangleFilter)
	Register(KindFilter, "gaussian", newGaussianFilter)
	Register(KindFilter, "mitchell", newMitchellFilter)
	Register(KindFilter, "lanczos", newLanczosFilter)

	Register(KindLightSampler, "uniform", newLightSampler(lights.StrategyUniform))
	Register(KindLightSampler, "power", newLightSampler(lights.StrategyPower))
}

func toMgl(v core.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Transforms

func newMatrix(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	values := p.numbers("matrix")
	if p.err != nil {
		return nil, p.err
	}
	if len(values) != 16 {
		return nil, node.propertyError("matrix", fmt.Errorf("want 16 values, got %d", len(values)))
	}
	// row-major in the file, column-major in mgl64
	var m mgl64.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			m.Set(row, col, values[row*4+col])
		}
	}
	return transform.NewMatrix(m), nil
}

func newSRT(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	scale := p.vec3("scale", core.Splat(1))
	axis := p.vec3("axis", core.NewVec3(0, 1, 0))
	angle := p.number("angle", 0)
	translate := p.vec3("translate", core.Vec3{})
	if p.err != nil {
		return nil, p.err
	}
	return transform.NewSRT(toMgl(scale), toMgl(axis), angle, toMgl(translate)), nil
}

func newStack(ctx *Context, node *Node) (interface{}, error) {
	stages, err := ctx.Transforms(node, "stages")
	if err != nil {
		return nil, err
	}
	stack, err := transform.NewStack(stages...)
	if err != nil {
		return nil, node.propertyError("stages", err)
	}
	return stack, nil
}

func newLerp(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	times := p.numbers("times")
	if p.err != nil {
		return nil, p.err
	}
	frames, err := ctx.Transforms(node, "keyframes")
	if err != nil {
		return nil, err
	}
	if len(times) != len(frames) {
		return nil, node.propertyError("times", fmt.Errorf("%d times for %d keyframes", len(times), len(frames)))
	}
	keys := make([]transform.Keyframe, len(frames))
	for i, frame := range frames {
		keys[i] = transform.Keyframe{Time: times[i], Transform: frame}
	}
	lerp, err := transform.NewLerp(keys)
	if err != nil {
		return nil, node.propertyError("keyframes", err)
	}
	return lerp, nil
}

func newView(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	origin := p.vec3("origin", core.Vec3{})
	front := p.vec3("front", core.NewVec3(0, 0, -1))
	up := p.vec3("up", core.NewVec3(0, 1, 0))
	if p.err != nil {
		return nil, p.err
	}
	return transform.NewView(toMgl(origin), toMgl(front), toMgl(up)), nil
}

// Surfaces, lights and media

func newLambertian(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	albedo := p.vec3("albedo", core.Splat(0.5))
	if p.err != nil {
		return nil, p.err
	}
	bsdf, err := material.NewLambertian(albedo)
	if err != nil {
		return nil, node.propertyError("albedo", err)
	}
	return bsdf, nil
}

func newDiffuseLight(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	light := lights.DiffuseArea{
		Emission: p.vec3("emission", core.Splat(1)),
		Scale:    p.number("scale", 1),
		TwoSided: p.flag("two_sided", false),
	}
	return light, p.err
}

func priority(p *properties) uint32 {
	v := p.integer("priority", 0)
	if v < 0 {
		p.keep(p.node.propertyError("priority", fmt.Errorf("must not be negative, got %d", v)))
		return 0
	}
	if int64(v) >= int64(medium.VacuumPriority) {
		p.keep(p.node.propertyError("priority", fmt.Errorf("must be below %d, got %d", medium.VacuumPriority, v)))
		return 0
	}
	return uint32(v)
}

func newVacuum(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	v := medium.Vacuum{Priority: priority(&p), Eta: p.number("eta", 1)}
	return v, p.err
}

func newHomogeneous(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	h := medium.Homogeneous{
		Priority: priority(&p),
		Eta:      p.number("eta", 1),
		SigmaA:   p.vec3("sigma_a", core.Vec3{}),
		SigmaS:   p.vec3("sigma_s", core.Vec3{}),
	}
	return h, p.err
}

// Environments

func newConstantEnvironment(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	emission := p.vec3("emission", core.Splat(1))
	scale := p.number("scale", 1)
	if p.err != nil {
		return nil, p.err
	}
	return lights.Environment(lights.NewConstant(emission, scale)), nil
}

func newGradientEnvironment(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	top := p.vec3("top", core.NewVec3(0.5, 0.7, 1))
	bottom := p.vec3("bottom", core.Splat(1))
	scale := p.number("scale", 1)
	if p.err != nil {
		return nil, p.err
	}
	t, err := ctx.Transform(node, "transform")
	if err != nil {
		return nil, err
	}
	return lights.Environment(lights.NewGradient(top, bottom, scale, t)), nil
}

func newDirectionalEnvironment(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	emission := p.vec3("emission", core.Splat(1))
	scale := p.number("scale", 1)
	direction := p.vec3("direction", core.NewVec3(0, 1, 0))
	angle := p.number("angle", 1)
	normalize := p.flag("normalize", true)
	if p.err != nil {
		return nil, p.err
	}
	t, err := ctx.Transform(node, "transform")
	if err != nil {
		return nil, err
	}
	return lights.Environment(lights.NewDirectional(emission, scale, direction, angle, normalize, t)), nil
}

// newSphericalEnvironment decodes the map and builds its sampling tables on
// the pool while the geometry is being built
func newSphericalEnvironment(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	file := p.text("file", "")
	srgb := p.flag("srgb", false)
	opts := lights.SphericalOptions{
		Scale:         p.number("scale", 1),
		CompensateMIS: p.flag("compensate_mis", true),
	}
	if p.err != nil {
		return nil, p.err
	}
	if file == "" {
		return nil, node.propertyError("file", fmt.Errorf("missing"))
	}
	t, err := ctx.Transform(node, "transform")
	if err != nil {
		return nil, err
	}
	opts.Transform = t

	path := ctx.Path(file)
	pool := ctx.Pool()
	return workpool.Go(pool, func() (lights.Environment, error) {
		img, err := loaders.LoadImage(path, srgb)
		if err != nil {
			return nil, err
		}
		return lights.NewSpherical(img.Width, img.Height, img.Pixels, opts, pool)
	}), nil
}

// Shapes

// decorate applies the properties every shape accepts
func decorate(ctx *Context, node *Node, shape *geometry.Shape) (*geometry.Shape, error) {
	t, err := ctx.Transform(node, "transform")
	if err != nil {
		return nil, err
	}
	shape.Transform = t
	if shape.Surface, err = ctx.tag(KindSurface, node, "surface"); err != nil {
		return nil, err
	}
	if shape.Light, err = ctx.tag(KindLight, node, "light"); err != nil {
		return nil, err
	}
	if shape.Medium, err = ctx.tag(KindMedium, node, "medium"); err != nil {
		return nil, err
	}
	return shape, nil
}

func vec3List(node *Node, key string, values []float64) ([]core.Vec3, error) {
	if len(values)%3 != 0 {
		return nil, node.propertyError(key, fmt.Errorf("length %d is not a multiple of 3", len(values)))
	}
	out := make([]core.Vec3, len(values)/3)
	for i := range out {
		out[i] = core.NewVec3(values[3*i], values[3*i+1], values[3*i+2])
	}
	return out, nil
}

func newMeshShape(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	rawPositions := p.numbers("positions")
	rawNormals := p.numbers("normals")
	var indices []int
	_, err := node.decode("indices", &indices)
	p.keep(err)
	if p.err != nil {
		return nil, p.err
	}
	positions, err := vec3List(node, "positions", rawPositions)
	if err != nil {
		return nil, err
	}
	normals, err := vec3List(node, "normals", rawNormals)
	if err != nil {
		return nil, err
	}
	if len(indices)%3 != 0 {
		return nil, node.propertyError("indices", fmt.Errorf("length %d is not a multiple of 3", len(indices)))
	}
	triangles := make([][3]int, len(indices)/3)
	for i := range triangles {
		triangles[i] = [3]int{indices[3*i], indices[3*i+1], indices[3*i+2]}
	}
	mesh, err := geometry.NewMesh(positions, normals, triangles)
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", node.Name, err)
	}
	return decorate(ctx, node, geometry.NewMeshShape(node.Name, mesh))
}

func newQuadShape(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	corner := p.vec3("corner", core.NewVec3(-1, -1, 0))
	u := p.vec3("u", core.NewVec3(2, 0, 0))
	v := p.vec3("v", core.NewVec3(0, 2, 0))
	if p.err != nil {
		return nil, p.err
	}
	return decorate(ctx, node, geometry.NewMeshShape(node.Name, geometry.NewQuad(corner, u, v)))
}

func newBoxShape(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	lo := p.vec3("min", core.Splat(-1))
	hi := p.vec3("max", core.Splat(1))
	if p.err != nil {
		return nil, p.err
	}
	if !(lo.X < hi.X && lo.Y < hi.Y && lo.Z < hi.Z) {
		return nil, node.propertyError("max", fmt.Errorf("box %v..%v is empty", lo, hi))
	}
	return decorate(ctx, node, geometry.NewMeshShape(node.Name, geometry.NewBox(lo, hi)))
}

func newPLYShape(ctx *Context, node *Node) (interface{}, error) {
	p := properties{node: node}
	file := p.text("file", "")
	if p.err != nil {
		return nil, p.err
	}
	if file == "" {
		return nil, node.propertyError("file", fmt.Errorf("missing"))
	}
	data, err := loaders.LoadPLY(ctx.Path(file))
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", node.Name, err)
	}
	mesh, err := data.Mesh()
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", node.Name, err)
	}
	return decorate(ctx, node, geometry.NewMeshShape(node.Name, mesh))
}

func newGroupShape(ctx *Context, node *Node) (interface{}, error) {
	children, err := ctx.Shapes(node, "children")
	if err != nil {
		return nil, err
	}
	return decorate(ctx, node, geometry.NewGroup(node.Name, children...))
}

// Filters

func filterBase(node *Node, defRadius float64) (*properties, float64, core.Vec2) {
	p := &properties{node: node}
	return p, p.number("radius", defRadius), p.vec2("shift", core.Vec2{})
}

func newBoxFilter(ctx *Context, node *Node) (interface{}, error) {
	p, radius, shift := filterBase(node, 0.5)
	if p.err != nil {
		return nil, p.err
	}
	return filter.NewBox(radius, shift)
}

func newTriangleFilter(ctx *Context, node *Node) (interface{}, error) {
	p, radius, shift := filterBase(node, 2)
	if p.err != nil {
		return nil, p.err
	}
	return filter.NewTriangle(radius, shift)
}

func newGaussianFilter(ctx *Context, node *Node) (interface{}, error) {
	p, radius, shift := filterBase(node, 1.5)
	sigma := p.number("sigma", 0.5)
	if p.err != nil {
		return nil, p.err
	}
	return filter.NewGaussian(radius, sigma, shift)
}

func newMitchellFilter(ctx *Context, node *Node) (interface{}, error) {
	p, radius, shift := filterBase(node, 2)
	b := p.number("b", filter.DefaultMitchellB)
	c := p.number("c", filter.DefaultMitchellC)
	if p.err != nil {
		return nil, p.err
	}
	return filter.NewMitchell(radius, b, c, shift)
}

func newLanczosFilter(ctx *Context, node *Node) (interface{}, error) {
	p, radius, shift := filterBase(node, 4)
	tau := p.number("tau", filter.DefaultLanczosTau)
	if p.err != nil {
		return nil, p.err
	}
	return filter.NewLanczosSinc(radius, tau, shift)
}

func newLightSampler(strategy lights.Strategy) Factory {
	return func(ctx *Context, node *Node) (interface{}, error) {
		p := properties{node: node}
		opts := lights.SamplerOptions{
			Strategy:          strategy,
			EnvironmentWeight: p.number("environment_weight", lights.DefaultEnvironmentWeight),
		}
		return opts, p.err
	}
}
