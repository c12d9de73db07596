package geometry

import (
	"sort"

	"github.com/df07/go-light-transport/pkg/core"
)

// Leaf threshold: if we have this many or fewer triangles, store them in a leaf node
const leafThreshold = 8

// Determinant cutoff below which a ray is treated as lying in the triangle plane
const parallelEpsilon = 1e-12

// primRef addresses one world-space triangle
type primRef struct {
	instance int
	prim     int
	bounds   core.AABB
	center   core.Vec3
}

// bvhNode is a node of the flattened hierarchy. Leaves cover refs[start:end];
// interior nodes store their children's indices.
type bvhNode struct {
	bounds      core.AABB
	left, right int
	start, end  int
}

func (n *bvhNode) isLeaf() bool {
	return n.left < 0
}

// BVH is a bounding volume hierarchy over the world-space triangles of a Geometry
type BVH struct {
	geometry *Geometry
	nodes    []bvhNode
	refs     []primRef
}

// NewBVH builds the hierarchy with median splits along the longest axis
func NewBVH(g *Geometry) *BVH {
	bvh := &BVH{geometry: g}
	for i := range g.instances {
		inst := &g.instances[i]
		for prim, tri := range inst.Mesh.Triangles {
			bounds := core.EmptyAABB().
				Extend(inst.world[tri[0]]).
				Extend(inst.world[tri[1]]).
				Extend(inst.world[tri[2]])
			bvh.refs = append(bvh.refs, primRef{instance: i, prim: prim, bounds: bounds, center: bounds.Center()})
		}
	}
	if len(bvh.refs) > 0 {
		bvh.build(0, len(bvh.refs))
	}
	return bvh
}

// build recursively builds the subtree over refs[start:end] and returns its node index
func (bvh *BVH) build(start, end int) int {
	bounds := core.EmptyAABB()
	for i := start; i < end; i++ {
		bounds = bounds.Union(bvh.refs[i].bounds)
	}

	index := len(bvh.nodes)
	bvh.nodes = append(bvh.nodes, bvhNode{bounds: bounds, left: -1, right: -1, start: start, end: end})
	if end-start <= leafThreshold {
		return index
	}

	// Simple median split along the longest axis of the centers
	centers := core.EmptyAABB()
	for i := start; i < end; i++ {
		centers = centers.Extend(bvh.refs[i].center)
	}
	axis := centers.LongestAxis()
	refs := bvh.refs[start:end]
	sort.Slice(refs, func(i, j int) bool {
		return component(refs[i].center, axis) < component(refs[j].center, axis)
	})

	mid := (start + end) / 2
	left := bvh.build(start, mid)
	right := bvh.build(mid, end)
	bvh.nodes[index].left = left
	bvh.nodes[index].right = right
	return index
}

func component(v core.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

type triangleHit struct {
	instance, prim int
	t, u, v        float64
}

// closest finds the nearest triangle hit within the ray's t-range
func (bvh *BVH) closest(ray core.Ray) (triangleHit, bool) {
	var best triangleHit
	found := false
	if len(bvh.nodes) == 0 {
		return best, false
	}
	tMax := ray.TMax
	bvh.traverse(ray, func(ref *primRef) bool {
		if t, u, v, ok := bvh.hitTriangle(ref, ray, tMax); ok {
			tMax = t
			best = triangleHit{instance: ref.instance, prim: ref.prim, t: t, u: u, v: v}
			found = true
		}
		return false
	}, &tMax)
	return best, found
}

// any reports whether some triangle intersects the ray within its t-range
func (bvh *BVH) any(ray core.Ray) bool {
	if len(bvh.nodes) == 0 {
		return false
	}
	tMax := ray.TMax
	hit := false
	bvh.traverse(ray, func(ref *primRef) bool {
		if _, _, _, ok := bvh.hitTriangle(ref, ray, tMax); ok {
			hit = true
		}
		return hit
	}, &tMax)
	return hit
}

// traverse visits the leaf triangles whose boxes the ray reaches before *tMax.
// visit returns true to stop early.
func (bvh *BVH) traverse(ray core.Ray, visit func(*primRef) bool, tMax *float64) {
	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		node := &bvh.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !node.bounds.Hit(ray, ray.TMin, *tMax) {
			continue
		}
		if node.isLeaf() {
			for i := node.start; i < node.end; i++ {
				if visit(&bvh.refs[i]) {
					return
				}
			}
			continue
		}
		stack = append(stack, node.right, node.left)
	}
}

// hitTriangle tests one triangle with the Möller-Trumbore algorithm
func (bvh *BVH) hitTriangle(ref *primRef, ray core.Ray, tMax float64) (float64, float64, float64, bool) {
	inst := &bvh.geometry.instances[ref.instance]
	tri := inst.Mesh.Triangles[ref.prim]
	v0, v1, v2 := inst.world[tri[0]], inst.world[tri[1]], inst.world[tri[2]]

	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -parallelEpsilon && a < parallelEpsilon {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(v0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, 0, 0, false
	}
	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, 0, 0, false
	}

	t := f * edge2.Dot(q)
	if t <= ray.TMin || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// NodeCount returns the number of hierarchy nodes
func (bvh *BVH) NodeCount() int {
	return len(bvh.nodes)
}

// LeafCount returns the number of leaf nodes
func (bvh *BVH) LeafCount() int {
	count := 0
	for i := range bvh.nodes {
		if bvh.nodes[i].isLeaf() {
			count++
		}
	}
	return count
}
