// Package alias implements Vose's alias method for O(1) sampling of discrete
// distributions built from non-negative weight arrays.
package alias

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

var (
	ErrEmptyTable    = errors.New("alias: cannot build a table from zero weights")
	ErrInvalidWeight = errors.New("alias: weights must be finite and non-negative")
)

// Entry is one bucket of the table. A uniform draw that lands in the bucket
// keeps the bucket's own index with probability Prob and jumps to Alias
// otherwise.
type Entry struct {
	Prob  float64
	Alias int
}

// Table is an immutable alias table with the normalized pdf of every item.
type Table struct {
	entries []Entry
	pdf     []float64
}

// Build runs Vose's algorithm over weights and returns the bucket entries
// and the normalized pdf. A weight array that sums to zero yields a uniform
// distribution.
func Build(weights []float64) ([]Entry, []float64, error) {
	n := len(weights)
	if n == 0 {
		return nil, nil, ErrEmptyTable
	}

	sum := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, nil, fmt.Errorf("%w: weight[%d] = %v", ErrInvalidWeight, i, w)
		}
		sum += w
	}

	pdf := make([]float64, n)
	scaled := make([]float64, n)
	if sum == 0 {
		for i := range pdf {
			pdf[i] = 1 / float64(n)
			scaled[i] = 1
		}
	} else {
		for i, w := range weights {
			pdf[i] = w / sum
			scaled[i] = float64(n) * pdf[i]
		}
	}

	entries := make([]Entry, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, u := range scaled {
		if u < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		entries[s] = Entry{Prob: scaled[s], Alias: l}
		scaled[l] -= 1 - scaled[s]
		if scaled[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// Whatever is left is 1 up to rounding
	for _, i := range large {
		entries[i] = Entry{Prob: 1, Alias: i}
	}
	for _, i := range small {
		entries[i] = Entry{Prob: 1, Alias: i}
	}

	return entries, pdf, nil
}

// New builds a table from weights.
func New(weights []float64) (*Table, error) {
	entries, pdf, err := Build(weights)
	if err != nil {
		return nil, err
	}
	return &Table{entries: entries, pdf: pdf}, nil
}

// MustNew is like New but panics on invalid input
func MustNew(weights []float64) *Table {
	table, err := New(weights)
	if err != nil {
		panic(err)
	}
	return table
}

// Len returns the number of items in the table
func (t *Table) Len() int {
	return len(t.entries)
}

// PDF returns the normalized probability of item i
func (t *Table) PDF(i int) float64 {
	if i < 0 || i >= len(t.pdf) {
		return 0
	}
	return t.pdf[i]
}

// PDFs returns the normalized probabilities of all items. Callers must not modify it.
func (t *Table) PDFs() []float64 {
	return t.pdf
}

// Entries returns the bucket entries. Callers must not modify it.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Sample maps u in [0,1) to an item index and returns the leftover entropy,
// itself uniform in [0,1) and independent of the chosen index.
func (t *Table) Sample(u float64) (int, float64) {
	return SampleEntries(t.entries, u)
}

// SampleEntries samples a raw entry slice, for tables packed into a larger buffer
func SampleEntries(entries []Entry, u float64) (int, float64) {
	n := len(entries)
	x := u * float64(n)
	i := int(math.Floor(x))
	i = max(0, min(i, n-1))
	r := max(0, min(x-float64(i), core.OneMinusEpsilon))

	entry := entries[i]
	if r < entry.Prob {
		return i, min(r/entry.Prob, core.OneMinusEpsilon)
	}
	return entry.Alias, min((r-entry.Prob)/(1-entry.Prob), core.OneMinusEpsilon)
}
