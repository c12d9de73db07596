package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/transform"
	"github.com/df07/go-light-transport/pkg/workpool"
)

func unitQuad() *Mesh {
	return NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0))
}

func TestNewMesh_Validation(t *testing.T) {
	positions := []core.Vec3{{}, {X: 1}, {Y: 1}}
	tests := []struct {
		name      string
		normals   []core.Vec3
		triangles [][3]int
		want      error
	}{
		{"empty", nil, nil, ErrEmptyMesh},
		{"index out of range", nil, [][3]int{{0, 1, 3}}, ErrIndexOutRange},
		{"negative index", nil, [][3]int{{-1, 1, 2}}, ErrIndexOutRange},
		{"normal count", []core.Vec3{{Z: 1}}, [][3]int{{0, 1, 2}}, ErrNormalCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMesh(positions, tt.normals, tt.triangles); !errors.Is(err, tt.want) {
				t.Errorf("got error %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestMesh_AreaDistribution(t *testing.T) {
	// Triangle 1 has three times the area of triangle 0
	positions := []core.Vec3{{}, {X: 1}, {Y: 1}, {X: 3}, {Y: 2}}
	mesh, err := NewMesh(positions, nil, [][3]int{{0, 1, 2}, {0, 3, 4}})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mesh.Area()-3.5) > 1e-12 {
		t.Errorf("area: got %f, expected 3.5", mesh.Area())
	}
	if p := mesh.Distribution().PDF(0); math.Abs(p-0.5/3.5) > 1e-12 {
		t.Errorf("pdf(0): got %f, expected %f", p, 0.5/3.5)
	}

	// Degenerate meshes pick triangles uniformly
	flat, err := NewMesh([]core.Vec3{{}, {X: 1}, {X: 2}}, nil, [][3]int{{0, 1, 2}, {0, 2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if p := flat.Distribution().PDF(1); p != 0.5 {
		t.Errorf("degenerate pdf: got %f, expected 0.5", p)
	}
}

func TestNewBox_Outward(t *testing.T) {
	box := NewBox(core.NewVec3(-1, -2, -3), core.NewVec3(1, 2, 3))
	if box.TriangleCount() != 12 {
		t.Fatalf("got %d triangles, expected 12", box.TriangleCount())
	}
	if want := 2 * (2*4 + 2*6 + 4*6); math.Abs(box.Area()-float64(want)) > 1e-9 {
		t.Errorf("area: got %f, expected %d", box.Area(), want)
	}
	for i, tri := range box.Triangles {
		p0, p1, p2 := box.Positions[tri[0]], box.Positions[tri[1]], box.Positions[tri[2]]
		n := p1.Subtract(p0).Cross(p2.Subtract(p0))
		center := p0.Add(p1).Add(p2).Multiply(1.0 / 3)
		if n.Dot(center) <= 0 {
			t.Errorf("triangle %d faces inwards", i)
		}
	}
}

func TestBuild_Inheritance(t *testing.T) {
	leaf := NewMeshShape("leaf", unitQuad())
	override := NewMeshShape("override", unitQuad()).WithSurface(7)
	group := NewGroup("group", leaf, override).WithSurface(1).WithLight(2).WithMedium(3)

	g, err := Build([]*Shape{group, NewMeshShape("bare", unitQuad())}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.InstanceCount() != 3 {
		t.Fatalf("got %d instances, expected 3", g.InstanceCount())
	}
	tests := []struct {
		instance              int
		surface, light, media int
	}{
		{0, 1, 2, 3},
		{1, 7, 2, 3},
		{2, NoTag, NoTag, NoTag},
	}
	for _, tt := range tests {
		inst := g.Instance(tt.instance)
		if inst.Surface != tt.surface || inst.Light != tt.light || inst.Medium != tt.media {
			t.Errorf("instance %d (%s): got surface %d light %d medium %d", tt.instance, inst.Name, inst.Surface, inst.Light, inst.Medium)
		}
	}
	if lights := g.Lights(); len(lights) != 2 || lights[0] != (LightHandle{Instance: 0, Light: 2}) {
		t.Errorf("light handles: got %v", lights)
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build([]*Shape{NewGroup("g", nil)}, 0, nil); err == nil {
		t.Error("expected an error for a nil child")
	}

	// A shape tree nested deeper than allowed
	deep := NewMeshShape("leaf", unitQuad())
	for i := 0; i <= maxShapeDepth; i++ {
		deep = NewGroup("g", deep)
	}
	if _, err := Build([]*Shape{deep}, 0, nil); err == nil {
		t.Error("expected an error for an over-deep shape tree")
	}
}

func TestGeometry_Intersect(t *testing.T) {
	translate := transform.NewSRT(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 0, 1}, 0, mgl64.Vec3{0, 0, 5})
	near := NewMeshShape("near", unitQuad()).WithSurface(0)
	far := NewGroup("far", NewMeshShape("far quad", unitQuad()).WithSurface(1)).WithTransform(translate)
	g, err := Build([]*Shape{far, near}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	ray := core.NewRay(core.NewVec3(0.25, 0.5, -1), core.NewVec3(0, 0, 1))
	hit, ok := g.Intersect(ray)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Surface != 0 || math.Abs(hit.T-1) > 1e-12 {
		t.Errorf("got surface %d at t=%f, expected the near quad at t=1", hit.Surface, hit.T)
	}
	if hit.Ng != core.NewVec3(0, 0, 1) || math.Abs(hit.Area-0.5) > 1e-12 {
		t.Errorf("got Ng %v area %f", hit.Ng, hit.Area)
	}
	if p := g.SurfacePoint(hit.Instance, hit.Primitive, hit.Bary).P; p.Subtract(core.NewVec3(0.25, 0.5, 0)).Length() > 1e-12 {
		t.Errorf("surface point from barycentrics: got %v", p)
	}
	// The ray arrives from behind the quad
	if hit.FrontFace(ray.Direction.Negate()) || !hit.FrontFace(ray.Direction) {
		t.Error("FrontFace disagrees with the winding")
	}

	// Starting past the near quad finds the translated one
	hit, ok = g.Intersect(core.NewRay(core.NewVec3(0.25, 0.5, 1), core.NewVec3(0, 0, 1)))
	if !ok || hit.Surface != 1 || math.Abs(hit.T-4) > 1e-12 {
		t.Errorf("got %+v, expected the far quad at t=4", hit)
	}

	if !g.Occluded(core.NewRaySegment(core.NewVec3(0.25, 0.5, -1), core.NewVec3(0, 0, 1), 0, 2)) {
		t.Error("segment through the near quad should be occluded")
	}
	if g.Occluded(core.NewRaySegment(core.NewVec3(0.25, 0.5, -1), core.NewVec3(0, 0, 1), 0, 0.5)) {
		t.Error("segment ending before the quad should be clear")
	}
	if _, ok := g.Intersect(core.NewRay(core.NewVec3(2, 2, -1), core.NewVec3(0, 0, 1))); ok {
		t.Error("ray beside both quads should miss")
	}
}

func TestGeometry_ManyInstances(t *testing.T) {
	// Enough triangles to split the hierarchy
	var shapes []*Shape
	for i := 0; i < 40; i++ {
		move := transform.NewSRT(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 1, 0}, 0, mgl64.Vec3{float64(2 * i), 0, 0})
		shapes = append(shapes, NewGroup("g", NewMeshShape("quad", unitQuad()).WithSurface(i)).WithTransform(move))
	}
	g, err := Build(shapes, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.BVH().LeafCount() < 2 {
		t.Errorf("expected a split hierarchy, got %d leaves", g.BVH().LeafCount())
	}
	for i := 0; i < 40; i++ {
		hit, ok := g.Intersect(core.NewRay(core.NewVec3(float64(2*i)+0.3, 0.6, -1), core.NewVec3(0, 0, 1)))
		if !ok || hit.Surface != i {
			t.Errorf("ray %d: got surface %d (hit %v)", i, hit.Surface, ok)
		}
	}
	bounds := g.Bounds()
	if bounds.Min != core.NewVec3(0, 0, 0) || bounds.Max != core.NewVec3(79, 1, 0) {
		t.Errorf("bounds: got %v - %v", bounds.Min, bounds.Max)
	}
}

func TestGeometry_Update(t *testing.T) {
	start := transform.NewSRT(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 1, 0}, 0, mgl64.Vec3{0, 0, 0})
	end := transform.NewSRT(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 1, 0}, 0, mgl64.Vec3{10, 0, 0})
	lerp, err := transform.NewLerp([]transform.Keyframe{{Time: 0, Transform: start}, {Time: 1, Transform: end}})
	if err != nil {
		t.Fatal(err)
	}
	pool := workpool.New(2)
	defer pool.Stop()

	moving := NewMeshShape("moving", unitQuad()).WithTransform(lerp).WithSurface(0)
	still := NewMeshShape("still", unitQuad()).WithSurface(1)
	g, err := Build([]*Shape{moving, still}, 0, pool)
	if err != nil {
		t.Fatal(err)
	}
	if g.DynamicCount() != 1 {
		t.Fatalf("got %d dynamic instances, expected 1", g.DynamicCount())
	}

	g.Update(0.5)
	if g.Time() != 0.5 {
		t.Errorf("time: got %f", g.Time())
	}
	hit, ok := g.Intersect(core.NewRay(core.NewVec3(5.3, 0.6, -1), core.NewVec3(0, 0, 1)))
	if !ok || hit.Surface != 0 {
		t.Errorf("moved quad not hit at x=5.3: %+v", hit)
	}
	if m := g.InstanceToWorld(0); math.Abs(m.At(0, 3)-5) > 1e-9 {
		t.Errorf("translation: got %f, expected 5", m.At(0, 3))
	}
	if buf := g.TransformBuffer(); math.Abs(float64(buf[0][3])-5) > 1e-5 || buf[1][3] != 0 {
		t.Errorf("transform buffer translations: got %v and %v", buf[0][3], buf[1][3])
	}
	if math.Abs(g.InstanceArea(0)-1) > 1e-12 {
		t.Errorf("moved area: got %f", g.InstanceArea(0))
	}
}

func TestSurfacePoint_ShadingNormal(t *testing.T) {
	// Shading normals pointing away from the winding get flipped to Ng's side
	normals := []core.Vec3{{Z: -1}, {Z: -1}, {Z: -1}}
	mesh, err := NewMesh([]core.Vec3{{}, {X: 1}, {Y: 1}}, normals, [][3]int{{0, 1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	scale := transform.NewSRT(mgl64.Vec3{2, 1, 1}, mgl64.Vec3{0, 0, 1}, 0, mgl64.Vec3{})
	g, err := Build([]*Shape{NewMeshShape("tri", mesh).WithTransform(scale)}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	sp := g.SurfacePoint(0, 0, core.NewVec3(1.0/3, 1.0/3, 1.0/3))
	if sp.N.Dot(sp.Ng) <= 0 {
		t.Errorf("shading normal %v on the other side of %v", sp.N, sp.Ng)
	}
	if math.Abs(sp.Area-1) > 1e-12 {
		t.Errorf("scaled area: got %f, expected 1", sp.Area)
	}
}
