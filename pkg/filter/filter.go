// Package filter implements pixel reconstruction filters and importance
// samples their footprint.
package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

var ErrInvalidRadius = errors.New("filter: radius must be positive and finite")

// Filter is a separable reconstruction filter: the 2D weight at (x, y) is
// Evaluate(x)·Evaluate(y), zero outside [-Radius, Radius]².
type Filter interface {
	Name() string
	Radius() float64
	// Shift offsets every sample, e.g. to center a box filter on a pixel corner
	Shift() core.Vec2
	Evaluate(x float64) float64
}

type base struct {
	radius float64
	shift  core.Vec2
}

func newBase(radius float64, shift core.Vec2) (base, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return base{}, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	return base{radius: radius, shift: shift}, nil
}

func (b base) Radius() float64        { return b.radius }
func (b base) Shift() core.Vec2       { return b.shift }
func (b base) outside(x float64) bool { return math.Abs(x) > b.radius }

// Box weighs everything inside the radius equally
type Box struct{ base }

func NewBox(radius float64, shift core.Vec2) (*Box, error) {
	b, err := newBase(radius, shift)
	if err != nil {
		return nil, err
	}
	return &Box{b}, nil
}

func (f *Box) Name() string { return "box" }

func (f *Box) Evaluate(x float64) float64 {
	if f.outside(x) {
		return 0
	}
	return 1
}

// Triangle falls off linearly to zero at the radius
type Triangle struct{ base }

func NewTriangle(radius float64, shift core.Vec2) (*Triangle, error) {
	b, err := newBase(radius, shift)
	if err != nil {
		return nil, err
	}
	return &Triangle{b}, nil
}

func (f *Triangle) Name() string { return "triangle" }

func (f *Triangle) Evaluate(x float64) float64 {
	return math.Max(0, 1-math.Abs(x)/f.radius)
}

// Gaussian is a gaussian of standard deviation Sigma shifted down so it
// reaches zero at the radius
type Gaussian struct {
	base
	sigma float64
	edge  float64
}

func NewGaussian(radius, sigma float64, shift core.Vec2) (*Gaussian, error) {
	b, err := newBase(radius, shift)
	if err != nil {
		return nil, err
	}
	if !(sigma > 0) {
		return nil, fmt.Errorf("filter: gaussian sigma must be positive, got %v", sigma)
	}
	g := &Gaussian{base: b, sigma: sigma}
	g.edge = g.gaussian(radius)
	return g, nil
}

func (f *Gaussian) Name() string { return "gaussian" }

func (f *Gaussian) gaussian(x float64) float64 {
	return math.Exp(-x * x / (2 * f.sigma * f.sigma))
}

func (f *Gaussian) Evaluate(x float64) float64 {
	if f.outside(x) {
		return 0
	}
	return math.Max(0, f.gaussian(x)-f.edge)
}

// Mitchell is the Mitchell-Netravali cubic with parameters B and C. It has
// negative lobes for most parameter choices.
type Mitchell struct {
	base
	b, c float64
}

// Default Mitchell-Netravali parameters
const (
	DefaultMitchellB = 1.0 / 3.0
	DefaultMitchellC = 1.0 / 3.0
)

func NewMitchell(radius, b, c float64, shift core.Vec2) (*Mitchell, error) {
	bs, err := newBase(radius, shift)
	if err != nil {
		return nil, err
	}
	return &Mitchell{base: bs, b: b, c: c}, nil
}

func (f *Mitchell) Name() string { return "mitchell" }

func (f *Mitchell) Evaluate(x float64) float64 {
	b, c := f.b, f.c
	x = 2 * math.Abs(x/f.radius)
	switch {
	case x <= 1:
		return ((12-9*b-6*c)*x*x*x + (-18+12*b+6*c)*x*x + (6 - 2*b)) / 6
	case x <= 2:
		return ((-b-6*c)*x*x*x + (6*b+30*c)*x*x + (-12*b-48*c)*x + (8*b + 24*c)) / 6
	}
	return 0
}

// LanczosSinc is a sinc windowed by a wider sinc of period Tau
type LanczosSinc struct {
	base
	tau float64
}

const DefaultLanczosTau = 3.0

func NewLanczosSinc(radius, tau float64, shift core.Vec2) (*LanczosSinc, error) {
	b, err := newBase(radius, shift)
	if err != nil {
		return nil, err
	}
	if !(tau > 0) {
		return nil, fmt.Errorf("filter: lanczos tau must be positive, got %v", tau)
	}
	return &LanczosSinc{base: b, tau: tau}, nil
}

func (f *LanczosSinc) Name() string { return "lanczos" }

func sinc(x float64) float64 {
	x = math.Abs(x)
	if x < 1e-5 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func (f *LanczosSinc) Evaluate(x float64) float64 {
	if f.outside(x) {
		return 0
	}
	return sinc(x) * sinc(x/f.tau)
}

var (
	_ Filter = (*Box)(nil)
	_ Filter = (*Triangle)(nil)
	_ Filter = (*Gaussian)(nil)
	_ Filter = (*Mitchell)(nil)
	_ Filter = (*LanczosSinc)(nil)
)
