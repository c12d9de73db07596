package alias

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
)

func TestBuild_PDFNormalized(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		pdf     []float64
	}{
		{"uniform", []float64{1, 1, 1, 1}, []float64{0.25, 0.25, 0.25, 0.25}},
		{"skewed", []float64{1, 3}, []float64{0.25, 0.75}},
		{"with zero", []float64{0, 2, 2}, []float64{0, 0.5, 0.5}},
		{"single", []float64{7}, []float64{1}},
		{"all zero", []float64{0, 0, 0}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := New(tt.weights)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sum := 0.0
			for i, expected := range tt.pdf {
				got := table.PDF(i)
				if math.IsNaN(got) || math.IsInf(got, 0) {
					t.Fatalf("pdf[%d] is not finite: %v", i, got)
				}
				if math.Abs(got-expected) > 1e-12 {
					t.Errorf("pdf[%d]: got %f, expected %f", i, got, expected)
				}
				sum += got
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("pdf sum: got %f, expected 1", sum)
			}
		})
	}
}

func TestBuild_EntriesReproducePDF(t *testing.T) {
	// Each bucket is hit with probability 1/N; summing the mass routed to every
	// index must give back its pdf exactly
	weights := []float64{0.1, 5, 0.3, 2.2, 0, 1.4, 9, 0.05}
	table := MustNew(weights)
	n := float64(table.Len())

	mass := make([]float64, table.Len())
	for i, e := range table.Entries() {
		if e.Prob < 0 || e.Prob > 1 {
			t.Fatalf("entry %d probability out of range: %f", i, e.Prob)
		}
		mass[i] += e.Prob / n
		mass[e.Alias] += (1 - e.Prob) / n
	}
	for i := range mass {
		if math.Abs(mass[i]-table.PDF(i)) > 1e-9 {
			t.Errorf("mass[%d]: got %f, expected %f", i, mass[i], table.PDF(i))
		}
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable for empty weights, got %v", err)
	}
	for _, w := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := New([]float64{1, w}); !errors.Is(err, ErrInvalidWeight) {
			t.Errorf("Expected ErrInvalidWeight for weight %v, got %v", w, err)
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustNew to panic on empty weights")
		}
	}()
	MustNew([]float64{})
}

func TestSample_FrequenciesMatchPDF(t *testing.T) {
	table := MustNew([]float64{1, 1, 1, 1})
	random := rand.New(rand.NewSource(42))

	const draws = 4_000_000
	counts := make([]int, table.Len())
	for i := 0; i < draws; i++ {
		index, _ := table.Sample(random.Float64())
		counts[index]++
	}
	for i, c := range counts {
		freq := float64(c) / draws
		if math.Abs(freq-0.25) > 0.002 {
			t.Errorf("index %d frequency: got %f, expected 0.25 ± 0.002", i, freq)
		}
	}
}

func TestSample_SkewedFrequencies(t *testing.T) {
	weights := []float64{1, 0, 4, 2, 8, 0.5}
	table := MustNew(weights)
	random := rand.New(rand.NewSource(7))

	const draws = 1_000_000
	counts := make([]int, table.Len())
	for i := 0; i < draws; i++ {
		index, _ := table.Sample(random.Float64())
		counts[index]++
	}
	if counts[1] != 0 {
		t.Errorf("zero-weight index sampled %d times", counts[1])
	}
	for i, c := range counts {
		freq := float64(c) / draws
		if math.Abs(freq-table.PDF(i)) > 0.003 {
			t.Errorf("index %d frequency: got %f, expected %f", i, freq, table.PDF(i))
		}
	}
}

func TestSample_RemainderIsUniform(t *testing.T) {
	table := MustNew([]float64{1, 2, 3, 4, 0.5})
	random := rand.New(rand.NewSource(1))

	const draws = 100_000
	remainders := make([]float64, draws)
	for i := range remainders {
		_, r := table.Sample(random.Float64())
		if r < 0 || r >= 1 {
			t.Fatalf("remainder out of [0,1): %f", r)
		}
		remainders[i] = r
	}

	// One-sample Kolmogorov–Smirnov against U(0,1); 1.628/√n is the p = 0.01 critical value
	sort.Float64s(remainders)
	d := 0.0
	for i, r := range remainders {
		lo := r - float64(i)/draws
		hi := float64(i+1)/draws - r
		d = math.Max(d, math.Max(lo, hi))
	}
	critical := 1.628 / math.Sqrt(draws)
	if d > critical {
		t.Errorf("KS statistic %f exceeds critical value %f", d, critical)
	}
}

func TestSample_EdgeInputs(t *testing.T) {
	table := MustNew([]float64{1, 1, 2})
	for _, u := range []float64{0, core.OneMinusEpsilon, 1} {
		index, r := table.Sample(u)
		if index < 0 || index >= table.Len() {
			t.Errorf("u=%v: index out of range: %d", u, index)
		}
		if math.IsNaN(r) || r < 0 || r >= 1 {
			t.Errorf("u=%v: remainder out of range: %f", u, r)
		}
	}
}

func TestTable2D_SampleDensity(t *testing.T) {
	// 2x2 grid, weights proportional to their index + 1
	weights := []float64{1, 2, 3, 4}
	table, err := NewTable2D(weights, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []float64{0.4, 0.8, 1.2, 1.6} // 4 * w / 10
	for i, e := range expected {
		uv := core.NewVec2((float64(i%2)+0.5)/2, (float64(i/2)+0.5)/2)
		if got := table.PDF(uv); math.Abs(got-e) > 1e-12 {
			t.Errorf("cell %d pdf: got %f, expected %f", i, got, e)
		}
	}

	random := rand.New(rand.NewSource(3))
	counts := make([]int, 4)
	const draws = 400_000
	for i := 0; i < draws; i++ {
		uv, pdf := table.Sample(core.NewVec2(random.Float64(), random.Float64()))
		if uv.X < 0 || uv.X >= 1 || uv.Y < 0 || uv.Y >= 1 {
			t.Fatalf("sample outside the unit square: %v", uv)
		}
		if math.Abs(pdf-table.PDF(uv)) > 1e-12 {
			t.Fatalf("sample pdf %f disagrees with PDF(uv) %f", pdf, table.PDF(uv))
		}
		cell := int(uv.Y*2)*2 + int(uv.X*2)
		counts[cell]++
	}
	for i, c := range counts {
		freq := float64(c) / draws
		if math.Abs(freq-weights[i]/10) > 0.004 {
			t.Errorf("cell %d frequency: got %f, expected %f", i, freq, weights[i]/10)
		}
	}
}

func TestTable2D_SizeMismatch(t *testing.T) {
	if _, err := NewTable2D([]float64{1, 2, 3}, 2, 2); err == nil {
		t.Error("Expected error for mismatched grid size")
	}
}
