// Package geometry holds the scene's triangle meshes, instances them through
// the transform tree and answers ray queries against the world.
package geometry

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/log"
)

var logger = log.New("geometry")

// NoTag marks an unset surface, light or medium reference. Shapes with an
// unset reference inherit their parent's.
const NoTag = -1

// SurfacePoint is a point on an instanced triangle in world space
type SurfacePoint struct {
	P    core.Vec3 // position
	Ng   core.Vec3 // unit geometric normal, following triangle winding
	N    core.Vec3 // unit shading normal, same hemisphere as Ng
	Area float64   // world-space area of the triangle
}

// Interaction describes a ray hitting an instance
type Interaction struct {
	SurfacePoint
	T         float64
	Instance  int
	Primitive int
	Bary      core.Vec3
	Surface   int
	Light     int
	Medium    int
}

// FrontFace reports whether wo leaves through the side Ng points to
func (it *Interaction) FrontFace(wo core.Vec3) bool {
	return wo.Dot(it.Ng) > 0
}

// HasLight reports whether the hit surface emits
func (it *Interaction) HasLight() bool {
	return it.Light != NoTag
}

// LightHandle ties an emitting instance to its light definition
type LightHandle struct {
	Instance int
	Light    int
}
