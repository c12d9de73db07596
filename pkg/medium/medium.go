// Package medium describes participating media and tracks which of them
// enclose a ray when media nest by priority.
package medium

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

var ErrInvalidCoefficient = errors.New("medium: coefficients must be finite and non-negative")

// Kind selects the medium implementation behind a tag
type Kind uint8

const (
	KindVacuum Kind = iota
	KindHomogeneous
)

func (k Kind) String() string {
	switch k {
	case KindVacuum:
		return "vacuum"
	case KindHomogeneous:
		return "homogeneous"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Vacuum is an explicitly declared empty medium, e.g. the air gap inside glass
type Vacuum struct {
	Priority uint32
	Eta      float64
}

// Homogeneous has constant absorption and scattering coefficients
type Homogeneous struct {
	Priority uint32
	Eta      float64
	SigmaA   core.Vec3
	SigmaS   core.Vec3
}

// SigmaT returns the extinction coefficient
func (h Homogeneous) SigmaT() core.Vec3 {
	return h.SigmaA.Add(h.SigmaS)
}

type slot struct {
	kind  Kind
	index int
}

// Table assigns tags to media and dispatches on them. Each kind keeps its
// own arena; a tag indexes the slot list.
type Table struct {
	slots       []slot
	vacuums     []Vacuum
	homogeneous []Homogeneous
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of registered media
func (t *Table) Len() int {
	return len(t.slots)
}

// AddVacuum registers an empty medium
func (t *Table) AddVacuum(v Vacuum) Info {
	if v.Eta == 0 {
		v.Eta = 1
	}
	t.vacuums = append(t.vacuums, v)
	t.slots = append(t.slots, slot{kind: KindVacuum, index: len(t.vacuums) - 1})
	return Info{Tag: uint32(len(t.slots) - 1)}
}

// AddHomogeneous registers a homogeneous medium
func (t *Table) AddHomogeneous(h Homogeneous) (Info, error) {
	for _, c := range []float64{h.SigmaA.X, h.SigmaA.Y, h.SigmaA.Z, h.SigmaS.X, h.SigmaS.Y, h.SigmaS.Z} {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return VacuumInfo, fmt.Errorf("%w: sigma_a=%v sigma_s=%v", ErrInvalidCoefficient, h.SigmaA, h.SigmaS)
		}
	}
	if h.Eta == 0 {
		h.Eta = 1
	}
	t.homogeneous = append(t.homogeneous, h)
	t.slots = append(t.slots, slot{kind: KindHomogeneous, index: len(t.homogeneous) - 1})
	return Info{Tag: uint32(len(t.slots) - 1)}, nil
}

func (t *Table) slot(m Info) slot {
	if int(m.Tag) >= len(t.slots) {
		panic(fmt.Sprintf("medium: tag %d out of range [0, %d)", m.Tag, len(t.slots)))
	}
	return t.slots[m.Tag]
}

// Kind returns the implementation of m. The vacuum sentinel is KindVacuum.
func (t *Table) Kind(m Info) Kind {
	if m.IsVacuum() {
		return KindVacuum
	}
	return t.slot(m).kind
}

// Priority returns the nesting priority of m
func (t *Table) Priority(m Info) uint32 {
	if m.IsVacuum() {
		return VacuumPriority
	}
	s := t.slot(m)
	switch s.kind {
	case KindHomogeneous:
		return t.homogeneous[s.index].Priority
	default:
		return t.vacuums[s.index].Priority
	}
}

// Eta returns the relative index of refraction of m
func (t *Table) Eta(m Info) float64 {
	if m.IsVacuum() {
		return 1
	}
	s := t.slot(m)
	switch s.kind {
	case KindHomogeneous:
		return t.homogeneous[s.index].Eta
	default:
		return t.vacuums[s.index].Eta
	}
}

// Homogeneous returns the parameters of a homogeneous medium
func (t *Table) Homogeneous(m Info) (Homogeneous, bool) {
	if m.IsVacuum() {
		return Homogeneous{}, false
	}
	s := t.slot(m)
	if s.kind != KindHomogeneous {
		return Homogeneous{}, false
	}
	return t.homogeneous[s.index], true
}

// Transmittance returns the fraction of radiance surviving distance inside m
func (t *Table) Transmittance(m Info, distance float64) core.Vec3 {
	h, ok := t.Homogeneous(m)
	if !ok {
		return core.Splat(1)
	}
	sigma := h.SigmaT()
	return core.NewVec3(beer(sigma.X, distance), beer(sigma.Y, distance), beer(sigma.Z, distance))
}

func beer(sigma, distance float64) float64 {
	if sigma == 0 {
		return 1
	}
	return math.Exp(-sigma * distance)
}
