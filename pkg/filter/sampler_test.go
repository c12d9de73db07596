package filter

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
)

func mustSampler(t *testing.T, f Filter, err error) *Sampler {
	t.Helper()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	s, err := NewSampler(f)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	return s
}

func TestSampler_Box(t *testing.T) {
	f, err := NewBox(0.5, core.NewVec2(0.5, 0.5))
	s := mustSampler(t, f, err)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))

	const n = 100000
	mean := core.Vec2{}
	for i := 0; i < n; i++ {
		sample := s.Sample(sampler.Get2D())
		if sample.Weight != 1 {
			t.Fatalf("box weight = %v, want 1", sample.Weight)
		}
		if sample.Offset.X < 0 || sample.Offset.X > 1 || sample.Offset.Y < 0 || sample.Offset.Y > 1 {
			t.Fatalf("offset %v outside the shifted footprint", sample.Offset)
		}
		mean.X += sample.Offset.X / n
		mean.Y += sample.Offset.Y / n
	}
	if math.Abs(mean.X-0.5) > 0.005 || math.Abs(mean.Y-0.5) > 0.005 {
		t.Errorf("mean offset %v, want the shift (0.5, 0.5)", mean)
	}
}

func TestSampler_TriangleDistribution(t *testing.T) {
	f, err := NewTriangle(1, core.Vec2{})
	s := mustSampler(t, f, err)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(2)))

	// P(|x| < r/2) = 1 - (1/2)² for a triangle
	const n = 200000
	inside := 0
	for i := 0; i < n; i++ {
		if math.Abs(s.Sample(sampler.Get2D()).Offset.X) < 0.5 {
			inside++
		}
	}
	if got := float64(inside) / n; math.Abs(got-0.75) > 0.01 {
		t.Errorf("P(|x| < r/2) = %v, want 0.75", got)
	}
}

func TestSampler_NegativeLobes(t *testing.T) {
	f, err := NewMitchell(2, DefaultMitchellB, DefaultMitchellC, core.Vec2{})
	s := mustSampler(t, f, err)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(3)))

	const n = 400000
	sum := 0.0
	negative := 0
	for i := 0; i < n; i++ {
		sample := s.Sample(sampler.Get2D())
		sum += sample.Weight
		if sample.Weight < 0 {
			negative++
		}
	}
	if negative == 0 {
		t.Error("expected some negative weights from the Mitchell lobes")
	}
	if mean := sum / n; math.Abs(mean-1) > 0.02 {
		t.Errorf("mean weight %v, want 1", mean)
	}
}

func TestSampler_SecondMoment(t *testing.T) {
	// The weighted samples reproduce ∫x²f(x)dx / ∫f(x)dx
	filters := map[string]func() (Filter, error){
		"gaussian": func() (Filter, error) { return NewGaussian(1.5, 0.5, core.Vec2{}) },
		"triangle": func() (Filter, error) { return NewTriangle(1, core.Vec2{}) },
	}
	for name, build := range filters {
		t.Run(name, func(t *testing.T) {
			f, err := build()
			s := mustSampler(t, f, err)

			r := f.Radius()
			const steps = 100000
			dx := 2 * r / steps
			num, den := 0.0, 0.0
			for i := 0; i < steps; i++ {
				x := -r + (float64(i)+0.5)*dx
				num += x * x * f.Evaluate(x) * dx
				den += f.Evaluate(x) * dx
			}
			want := num / den

			sampler := core.NewRandomSampler(rand.New(rand.NewSource(4)))
			const n = 400000
			got := 0.0
			for i := 0; i < n; i++ {
				sample := s.Sample(sampler.Get2D())
				// Integrating over y as well leaves the y weight's mean of one
				got += sample.Weight * sample.Offset.X * sample.Offset.X / n
			}
			if math.Abs(got-want)/want > 0.03 {
				t.Errorf("second moment %v, want %v", got, want)
			}
		})
	}
}

func TestLanczosSinc_Evaluate(t *testing.T) {
	f, err := NewLanczosSinc(2, DefaultLanczosTau, core.Vec2{})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, want float64
	}{
		{0, 1},
		{1, 0},
		{2.5, 0},
		{0.5, (2 / math.Pi) * math.Sin(math.Pi/6) / (math.Pi / 6)},
	}
	for _, tt := range tests {
		if got := f.Evaluate(tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
	if _, err := NewSampler(f); err != nil {
		t.Errorf("NewSampler(lanczos): %v", err)
	}
}

func TestSampler_LookUpTable(t *testing.T) {
	f, err := NewTriangle(2, core.Vec2{})
	s := mustSampler(t, f, err)
	lut := s.LookUpTable()
	if len(lut) != LookUpTableSize {
		t.Fatalf("table has %d entries, want %d", len(lut), LookUpTableSize)
	}
	if math.Abs(lut[0]) > 1e-12 || math.Abs(lut[LookUpTableSize-1]) > 1e-12 {
		t.Errorf("table ends = %v, %v, want 0", lut[0], lut[LookUpTableSize-1])
	}
	sum := 0.0
	for i := 0; i < LookUpTableSize-1; i++ {
		sum += s.IntervalPDF(i)
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("interval pdfs sum to %v", sum)
	}
}

type negativeFilter struct{ base }

func (negativeFilter) Name() string             { return "negative" }
func (negativeFilter) Evaluate(float64) float64 { return -1 }

func TestSampler_Errors(t *testing.T) {
	if _, err := NewBox(0, core.Vec2{}); !errors.Is(err, ErrInvalidRadius) {
		t.Errorf("NewBox(0) error = %v, want ErrInvalidRadius", err)
	}
	if _, err := NewGaussian(1, 0, core.Vec2{}); err == nil {
		t.Error("expected an error for zero sigma")
	}
	if _, err := NewSampler(negativeFilter{base{radius: 1}}); !errors.Is(err, ErrNonPositiveIntegral) {
		t.Errorf("NewSampler(negative) error = %v, want ErrNonPositiveIntegral", err)
	}
}
