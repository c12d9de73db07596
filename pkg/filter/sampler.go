package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/alias"
	"github.com/df07/go-light-transport/pkg/core"
)

// LookUpTableSize is the number of filter values tabulated across [-r, r]
const LookUpTableSize = 64

var ErrNonPositiveIntegral = errors.New("filter: filter must integrate to a positive value")

// Sample is a filter offset from the pixel center and the weight to apply to
// the radiance arriving through it
type Sample struct {
	Offset core.Vec2
	Weight float64
}

// Sampler importance samples a filter from a tabulated profile. Each axis is
// one alias lookup over the table's intervals; the lookup's remainder places
// the sample uniformly inside the chosen interval.
type Sampler struct {
	filter Filter
	lut    [LookUpTableSize]float64
	table  *alias.Table
	step   float64
	// ratio of the absolute to the signed integral of the 1D profile
	ratio float64
}

// NewSampler tabulates f and builds the interval distribution
func NewSampler(f Filter) (*Sampler, error) {
	s := &Sampler{filter: f}
	r := f.Radius()
	s.step = 2 * r / (LookUpTableSize - 1)
	for i := range s.lut {
		s.lut[i] = f.Evaluate(-r + float64(i)*s.step)
	}

	weights := make([]float64, LookUpTableSize-1)
	absolute, signed := 0.0, 0.0
	for i := range weights {
		w := 0.5 * (s.lut[i] + s.lut[i+1])
		weights[i] = math.Abs(w)
		absolute += weights[i]
		signed += w
	}
	if !(signed > 0) {
		return nil, fmt.Errorf("%w: %s filter of radius %v", ErrNonPositiveIntegral, f.Name(), r)
	}
	table, err := alias.New(weights)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	s.table = table
	s.ratio = absolute / signed
	return s, nil
}

// Filter returns the sampled filter
func (s *Sampler) Filter() Filter {
	return s.filter
}

// LookUpTable returns the tabulated profile
func (s *Sampler) LookUpTable() []float64 {
	return s.lut[:]
}

// IntervalPDF returns the probability of sampling interval i
func (s *Sampler) IntervalPDF(i int) float64 {
	return s.table.PDF(i)
}

// sample1D returns an offset along one axis and the sign of the filter there
func (s *Sampler) sample1D(u float64) (float64, float64) {
	i, remainder := s.table.Sample(u)
	x := -s.filter.Radius() + (float64(i)+remainder)*s.step
	return x, math.Copysign(1, s.filter.Evaluate(x))
}

// Sample maps u to an offset. The weight is sign(f(x)·f(y)) scaled by the
// ratio of the absolute to the signed 2D integral, so it is 1 for
// non-negative filters and its expectation is 1 for all of them.
func (s *Sampler) Sample(u core.Vec2) Sample {
	x, sx := s.sample1D(u.X)
	y, sy := s.sample1D(u.Y)
	shift := s.filter.Shift()
	return Sample{
		Offset: core.NewVec2(x+shift.X, y+shift.Y),
		Weight: sx * sy * s.ratio * s.ratio,
	}
}
