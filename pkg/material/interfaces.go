// Package material holds the scattering models surfaces are shaded with.
package material

import (
	"errors"
	"fmt"

	"github.com/df07/go-light-transport/pkg/core"
)

var ErrInvalidAlbedo = errors.New("material: albedo must lie in [0, 1]")

// BSDF scatters light at a surface. Directions point away from the surface and
// n is the unit shading normal.
type BSDF interface {
	// Evaluate returns f(wo, wi), without the cosine term
	Evaluate(wo, wi, n core.Vec3) core.Vec3

	// Sample draws wi given wo. ok is false when no direction can be produced.
	Sample(wo, n core.Vec3, u core.Vec2) (sample BSDFSample, ok bool)

	// PDF returns the solid-angle density Sample has for wi
	PDF(wo, wi, n core.Vec3) float64
}

// BSDFSample is a sampled incident direction with its BSDF value and density
type BSDFSample struct {
	Wi  core.Vec3
	F   core.Vec3
	PDF float64
}

// Table stores the scene's surfaces; the index of a surface is its tag
type Table struct {
	surfaces []BSDF
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Add registers a surface and returns its tag
func (t *Table) Add(b BSDF) int {
	t.surfaces = append(t.surfaces, b)
	return len(t.surfaces) - 1
}

// Len returns the number of surfaces
func (t *Table) Len() int {
	return len(t.surfaces)
}

// Get returns the surface behind tag, or nil for an unset tag
func (t *Table) Get(tag int) BSDF {
	if tag < 0 {
		return nil
	}
	if tag >= len(t.surfaces) {
		panic(fmt.Sprintf("material: surface tag %d out of range [0, %d)", tag, len(t.surfaces)))
	}
	return t.surfaces[tag]
}
