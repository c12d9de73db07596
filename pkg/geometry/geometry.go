package geometry

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/math/f32"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/transform"
	"github.com/df07/go-light-transport/pkg/workpool"
)

// Updates with at least this many dynamic instances are spread over the pool
const parallelUpdateThreshold = 128

// Instance is one placement of a mesh in the world
type Instance struct {
	Name      string
	Mesh      *Mesh
	Transform transform.InstancedTransform
	Surface   int
	Light     int
	Medium    int

	toWorld      mgl64.Mat4
	normalMatrix mgl64.Mat3
	world        []core.Vec3
	bounds       core.AABB
}

// ToWorld returns the instance-to-world matrix of the last update
func (inst *Instance) ToWorld() mgl64.Mat4 {
	return inst.toWorld
}

// Bounds returns the world-space bounding box of the last update
func (inst *Instance) Bounds() core.AABB {
	return inst.bounds
}

// WorldPosition returns vertex v of the mesh in world space
func (inst *Instance) WorldPosition(v int) core.Vec3 {
	return inst.world[v]
}

func (inst *Instance) refresh(m mgl64.Mat4) {
	inst.toWorld = m
	n := m.Mat3()
	if math.Abs(n.Det()) > 1e-300 {
		inst.normalMatrix = n.Inv().Transpose()
	} else {
		inst.normalMatrix = mgl64.Ident3()
	}
	if inst.world == nil {
		inst.world = make([]core.Vec3, len(inst.Mesh.Positions))
	}
	bounds := core.EmptyAABB()
	for i, p := range inst.Mesh.Positions {
		w := mgl64.TransformCoordinate(mgl64.Vec3{p.X, p.Y, p.Z}, m)
		inst.world[i] = core.NewVec3(w[0], w[1], w[2])
		bounds = bounds.Extend(inst.world[i])
	}
	inst.bounds = bounds
}

// Geometry is the flattened, instanced shape tree
type Geometry struct {
	instances []Instance
	lights    []LightHandle
	dynamic   []int
	tree      *transform.Tree
	bvh       *BVH
	buffer    []f32.Mat4
	pool      *workpool.Pool
	time      float64
}

// Build walks the shape trees depth first, registers every mesh leaf with the
// transform tree and resolves inherited references. pool may be nil, in which
// case updates run on the calling goroutine.
func Build(shapes []*Shape, initialTime float64, pool *workpool.Pool) (*Geometry, error) {
	start := time.Now()
	g := &Geometry{pool: pool, time: initialTime}
	builder := transform.NewBuilder(initialTime)

	root := inherited{surface: NoTag, light: NoTag, medium: NoTag}
	for _, s := range shapes {
		if err := g.add(builder, s, root, 0); err != nil {
			return nil, err
		}
	}
	g.tree = builder.Build()

	g.buffer = make([]f32.Mat4, len(g.instances))
	for i := range g.instances {
		g.buffer[i] = toDevice(g.instances[i].toWorld)
		if !g.instances[i].Transform.IsStatic() {
			g.dynamic = append(g.dynamic, i)
		}
	}
	g.bvh = NewBVH(g)

	logger.Noticef("built geometry: %d instances (%d dynamic), %d emitters in %d ms",
		len(g.instances), len(g.dynamic), len(g.lights), time.Since(start).Milliseconds())
	return g, nil
}

const maxShapeDepth = 256

func (g *Geometry) add(b *transform.Builder, s *Shape, parent inherited, depth int) error {
	if s == nil {
		return fmt.Errorf("geometry: nil shape below depth %d", depth)
	}
	if depth > maxShapeDepth {
		return fmt.Errorf("geometry: shape %q nested deeper than %d", s.Name, maxShapeDepth)
	}
	refs := parent.override(s)

	if s.IsGroup() {
		if s.Transform != nil {
			b.Push(s.Transform)
			defer b.Pop()
		}
		for _, child := range s.Children {
			if err := g.add(b, child, refs, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	index := len(g.instances)
	handle, m := b.Leaf(s.Transform, index)
	g.instances = append(g.instances, Instance{
		Name:      s.Name,
		Mesh:      s.Mesh,
		Transform: handle,
		Surface:   refs.surface,
		Light:     refs.light,
		Medium:    refs.medium,
	})
	g.instances[index].refresh(m)
	if refs.light != NoTag {
		g.lights = append(g.lights, LightHandle{Instance: index, Light: refs.light})
	}
	return nil
}

// Update moves every dynamic instance to time and refits the hierarchy
func (g *Geometry) Update(time float64) {
	g.time = time
	if len(g.dynamic) == 0 {
		return
	}
	g.tree.Update(time)

	refresh := func(i int) {
		index := g.dynamic[i]
		inst := &g.instances[index]
		inst.refresh(inst.Transform.Matrix(time))
		g.buffer[index] = toDevice(inst.toWorld)
	}
	if g.pool != nil && len(g.dynamic) >= parallelUpdateThreshold {
		g.pool.Parallel(len(g.dynamic), refresh)
	} else {
		for i := range g.dynamic {
			refresh(i)
		}
	}
	g.bvh = NewBVH(g)
}

// Time returns the time of the last update
func (g *Geometry) Time() float64 {
	return g.time
}

// Tree returns the transform tree the instances hang off
func (g *Geometry) Tree() *transform.Tree {
	return g.tree
}

// InstanceCount returns the number of instances
func (g *Geometry) InstanceCount() int {
	return len(g.instances)
}

// Instance returns instance i
func (g *Geometry) Instance(i int) *Instance {
	return &g.instances[i]
}

// BVH returns the hierarchy of the last update
func (g *Geometry) BVH() *BVH {
	return g.bvh
}

// Lights returns the emitting instances in build order
func (g *Geometry) Lights() []LightHandle {
	return g.lights
}

// DynamicCount returns the number of instances that move over time
func (g *Geometry) DynamicCount() int {
	return len(g.dynamic)
}

// InstanceToWorld returns the current matrix of instance i
func (g *Geometry) InstanceToWorld(i int) mgl64.Mat4 {
	return g.instances[i].toWorld
}

// TransformBuffer returns the row-major float32 instance matrices in instance order
func (g *Geometry) TransformBuffer() []f32.Mat4 {
	return g.buffer
}

// Bounds returns the world-space bounding box of all instances
func (g *Geometry) Bounds() core.AABB {
	bounds := core.EmptyAABB()
	for i := range g.instances {
		bounds = bounds.Union(g.instances[i].bounds)
	}
	return bounds
}

// SurfacePoint evaluates triangle prim of instance inst at barycentrics bary
// (weights of the triangle's first, second and third vertex)
func (g *Geometry) SurfacePoint(inst, prim int, bary core.Vec3) SurfacePoint {
	instance := &g.instances[inst]
	tri := instance.Mesh.Triangles[prim]
	p0, p1, p2 := instance.world[tri[0]], instance.world[tri[1]], instance.world[tri[2]]

	p := p0.Multiply(bary.X).Add(p1.Multiply(bary.Y)).Add(p2.Multiply(bary.Z))
	cross := p1.Subtract(p0).Cross(p2.Subtract(p0))
	area := 0.5 * cross.Length()
	ng := cross.Normalize()

	n := ng
	if normals := instance.Mesh.Normals; len(normals) != 0 {
		local := normals[tri[0]].Multiply(bary.X).Add(normals[tri[1]].Multiply(bary.Y)).Add(normals[tri[2]].Multiply(bary.Z))
		w := instance.normalMatrix.Mul3x1(mgl64.Vec3{local.X, local.Y, local.Z})
		if shading := core.NewVec3(w[0], w[1], w[2]).Normalize(); shading != (core.Vec3{}) {
			n = shading.FaceForward(ng)
		}
	}
	return SurfacePoint{P: p, Ng: ng, N: n, Area: area}
}

// TriangleArea returns the world-space area of triangle prim of instance inst
func (g *Geometry) TriangleArea(inst, prim int) float64 {
	instance := &g.instances[inst]
	tri := instance.Mesh.Triangles[prim]
	return triangleArea(instance.world[tri[0]], instance.world[tri[1]], instance.world[tri[2]])
}

// InstanceArea returns the world-space surface area of instance inst
func (g *Geometry) InstanceArea(inst int) float64 {
	total := 0.0
	for prim := range g.instances[inst].Mesh.Triangles {
		total += g.TriangleArea(inst, prim)
	}
	return total
}

// Intersect returns the closest hit along the ray within [TMin, TMax]
func (g *Geometry) Intersect(ray core.Ray) (Interaction, bool) {
	hit, ok := g.bvh.closest(ray)
	if !ok {
		return Interaction{}, false
	}
	instance := &g.instances[hit.instance]
	bary := core.NewVec3(1-hit.u-hit.v, hit.u, hit.v)
	return Interaction{
		SurfacePoint: g.SurfacePoint(hit.instance, hit.prim, bary),
		T:            hit.t,
		Instance:     hit.instance,
		Primitive:    hit.prim,
		Bary:         bary,
		Surface:      instance.Surface,
		Light:        instance.Light,
		Medium:       instance.Medium,
	}, true
}

// Occluded reports whether anything blocks the ray within [TMin, TMax]
func (g *Geometry) Occluded(ray core.Ray) bool {
	return g.bvh.any(ray)
}

func toDevice(m mgl64.Mat4) f32.Mat4 {
	var out f32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = float32(m.At(r, c))
		}
	}
	return out
}
