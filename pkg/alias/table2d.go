package alias

import (
	"fmt"

	"github.com/df07/go-light-transport/pkg/core"
)

// Table2D samples a width×height grid of weights: a marginal table picks the
// row, then that row's conditional table picks the column. Both lookups reuse
// their remainders, so the continuous result stays stratified inside the cell.
type Table2D struct {
	width, height int
	marginal      *Table
	conditional   []*Table
	pdf           []float64
}

// NewTable2D builds a 2D table from row-major weights
func NewTable2D(weights []float64, width, height int) (*Table2D, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d grid", ErrEmptyTable, width, height)
	}
	if len(weights) != width*height {
		return nil, fmt.Errorf("alias: %dx%d grid needs %d weights, got %d", width, height, width*height, len(weights))
	}

	rowSums := make([]float64, height)
	conditional := make([]*Table, height)
	for y := 0; y < height; y++ {
		row := weights[y*width : (y+1)*width]
		table, err := New(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		conditional[y] = table
		for _, w := range row {
			rowSums[y] += w
		}
	}
	marginal, err := New(rowSums)
	if err != nil {
		return nil, err
	}

	// Density relative to the unit square: p(x,y) = width*height * P(row) * P(col|row)
	cells := float64(width * height)
	pdf := make([]float64, width*height)
	for y := 0; y < height; y++ {
		py := marginal.PDF(y)
		for x := 0; x < width; x++ {
			pdf[y*width+x] = cells * py * conditional[y].PDF(x)
		}
	}

	return &Table2D{
		width:       width,
		height:      height,
		marginal:    marginal,
		conditional: conditional,
		pdf:         pdf,
	}, nil
}

// Size returns the grid resolution
func (t *Table2D) Size() (int, int) {
	return t.width, t.height
}

// Sample returns a continuous point in [0,1)² and its density over the unit square
func (t *Table2D) Sample(u core.Vec2) (core.Vec2, float64) {
	y, uy := t.marginal.Sample(u.Y)
	x, ux := t.conditional[y].Sample(u.X)
	uv := core.NewVec2(
		(float64(x)+ux)/float64(t.width),
		(float64(y)+uy)/float64(t.height),
	)
	return uv, t.pdf[y*t.width+x]
}

// PDF returns the density over the unit square at uv
func (t *Table2D) PDF(uv core.Vec2) float64 {
	x := max(0, min(int(uv.X*float64(t.width)), t.width-1))
	y := max(0, min(int(uv.Y*float64(t.height)), t.height-1))
	return t.pdf[y*t.width+x]
}
