package geometry

import (
	"errors"
	"fmt"

	"github.com/df07/go-light-transport/pkg/alias"
	"github.com/df07/go-light-transport/pkg/core"
)

var (
	ErrEmptyMesh     = errors.New("geometry: mesh has no triangles")
	ErrIndexOutRange = errors.New("geometry: triangle index out of range")
	ErrNormalCount   = errors.New("geometry: normal count must match vertex count")
)

// Mesh is an indexed triangle mesh in object space. It keeps an alias table
// over its triangle areas so emitters can pick triangles proportionally to area.
type Mesh struct {
	Positions []core.Vec3
	Normals   []core.Vec3 // per vertex, optional
	Triangles [][3]int

	area         float64
	distribution *alias.Table
	bounds       core.AABB
}

// NewMesh validates the indices and builds the area distribution. A mesh whose
// triangles are all degenerate falls back to picking triangles uniformly.
func NewMesh(positions, normals []core.Vec3, triangles [][3]int) (*Mesh, error) {
	if len(triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	if len(normals) != 0 && len(normals) != len(positions) {
		return nil, fmt.Errorf("%w: %d normals, %d vertices", ErrNormalCount, len(normals), len(positions))
	}

	areas := make([]float64, len(triangles))
	total := 0.0
	for i, tri := range triangles {
		for _, index := range tri {
			if index < 0 || index >= len(positions) {
				return nil, fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrIndexOutRange, i, index, len(positions))
			}
		}
		areas[i] = triangleArea(positions[tri[0]], positions[tri[1]], positions[tri[2]])
		total += areas[i]
	}
	if total == 0 {
		logger.Warningf("mesh with %d triangles has zero area, sampling triangles uniformly", len(triangles))
	}

	distribution, err := alias.New(areas)
	if err != nil {
		return nil, fmt.Errorf("geometry: triangle areas: %w", err)
	}

	bounds := core.EmptyAABB()
	for _, p := range positions {
		bounds = bounds.Extend(p)
	}

	return &Mesh{
		Positions:    positions,
		Normals:      normals,
		Triangles:    triangles,
		area:         total,
		distribution: distribution,
		bounds:       bounds,
	}, nil
}

// TriangleCount returns the number of triangles
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// Area returns the total object-space surface area
func (m *Mesh) Area() float64 {
	return m.area
}

// Distribution returns the alias table over triangle areas
func (m *Mesh) Distribution() *alias.Table {
	return m.distribution
}

// Bounds returns the object-space bounding box
func (m *Mesh) Bounds() core.AABB {
	return m.bounds
}

func triangleArea(p0, p1, p2 core.Vec3) float64 {
	return 0.5 * p1.Subtract(p0).Cross(p2.Subtract(p0)).Length()
}

// NewQuad builds a two-triangle parallelogram spanned by edges u and v from
// corner, facing along u×v
func NewQuad(corner, u, v core.Vec3) *Mesh {
	positions := []core.Vec3{
		corner,
		corner.Add(u),
		corner.Add(u).Add(v),
		corner.Add(v),
	}
	mesh, err := NewMesh(positions, nil, [][3]int{{0, 1, 2}, {0, 2, 3}})
	if err != nil {
		panic(err)
	}
	return mesh
}

// NewBox builds an axis-aligned box between lo and hi with outward-facing
// triangles. Faces don't share vertices so each keeps a flat normal.
func NewBox(lo, hi core.Vec3) *Mesh {
	d := hi.Subtract(lo)
	dx, dy, dz := core.NewVec3(d.X, 0, 0), core.NewVec3(0, d.Y, 0), core.NewVec3(0, 0, d.Z)
	faces := [6][3]core.Vec3{
		{lo, dz, dy},         // -x
		{lo.Add(dx), dy, dz}, // +x
		{lo, dx, dz},         // -y
		{lo.Add(dy), dz, dx}, // +y
		{lo, dy, dx},         // -z
		{lo.Add(dz), dx, dy}, // +z
	}
	positions := make([]core.Vec3, 0, 24)
	triangles := make([][3]int, 0, 12)
	for _, f := range faces {
		corner, u, v := f[0], f[1], f[2]
		base := len(positions)
		positions = append(positions, corner, corner.Add(u), corner.Add(u).Add(v), corner.Add(v))
		triangles = append(triangles, [3]int{base, base + 1, base + 2}, [3]int{base, base + 2, base + 3})
	}
	mesh, err := NewMesh(positions, nil, triangles)
	if err != nil {
		panic(err)
	}
	return mesh
}
