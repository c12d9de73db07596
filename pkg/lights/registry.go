package lights

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

var ErrInvalidEmission = errors.New("lights: emission must be finite and non-negative")

// Kind identifies the light variant behind a tag
type Kind uint8

const (
	KindDiffuseArea Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindDiffuseArea:
		return "diffuse"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

type record struct {
	kind Kind
	slot int
}

// Registry stores light definitions in one arena per kind. Tags handed out by
// the Add methods are what shapes reference.
type Registry struct {
	records []record
	diffuse []DiffuseArea
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Len returns the number of registered lights
func (r *Registry) Len() int {
	return len(r.records)
}

// AddDiffuseArea registers a diffuse emitter and returns its tag
func (r *Registry) AddDiffuseArea(d DiffuseArea) (int, error) {
	if !validEmission(d.Emission) || d.Scale < 0 || math.IsNaN(d.Scale) || math.IsInf(d.Scale, 0) {
		return 0, fmt.Errorf("%w: emission %v, scale %v", ErrInvalidEmission, d.Emission, d.Scale)
	}
	r.diffuse = append(r.diffuse, d)
	r.records = append(r.records, record{kind: KindDiffuseArea, slot: len(r.diffuse) - 1})
	return len(r.records) - 1, nil
}

// Kind returns the variant of the light behind tag
func (r *Registry) Kind(tag int) Kind {
	return r.records[tag].kind
}

// DiffuseArea returns the diffuse definition behind tag
func (r *Registry) DiffuseArea(tag int) *DiffuseArea {
	rec := r.records[tag]
	if rec.kind != KindDiffuseArea {
		panic(fmt.Sprintf("lights: tag %d is a %v light", tag, rec.kind))
	}
	return &r.diffuse[rec.slot]
}

// IsBlack reports whether the light behind tag emits nothing
func (r *Registry) IsBlack(tag int) bool {
	switch rec := r.records[tag]; rec.kind {
	case KindDiffuseArea:
		return r.diffuse[rec.slot].IsBlack()
	}
	return true
}

// Power returns the flux the light behind tag emits from a surface of the given area
func (r *Registry) Power(tag int, area float64) float64 {
	switch rec := r.records[tag]; rec.kind {
	case KindDiffuseArea:
		return r.diffuse[rec.slot].Power(area)
	}
	return 0
}

func validEmission(e core.Vec3) bool {
	for _, c := range []float64{e.X, e.Y, e.Z} {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
