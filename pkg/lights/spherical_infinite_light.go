package lights

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/df07/go-light-transport/pkg/alias"
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/transform"
	"github.com/df07/go-light-transport/pkg/workpool"
)

var ErrImageSize = errors.New("lights: environment image size does not match its pixels")

// SphericalOptions configures a Spherical environment
type SphericalOptions struct {
	Scale float64
	// CompensateMIS subtracts the average from the sampling weights so that
	// uniformly lit regions are left to BSDF sampling
	CompensateMIS bool
	Transform     transform.Transform
}

// Spherical maps an equirectangular image onto the sphere of directions and
// importance samples it through a 2D alias table. Pixels are row-major with
// row 0 straight up (+y).
type Spherical struct {
	orientation
	width, height int
	pixels        []core.Vec3
	scale         float64
	table         *alias.Table2D
	black         bool
}

// NewSpherical builds the sampling distribution over the image. Rows of the
// weight map are computed on pool when it is non-nil.
func NewSpherical(width, height int, pixels []core.Vec3, opts SphericalOptions, pool *workpool.Pool) (*Spherical, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d pixels", ErrImageSize, width, height, len(pixels))
	}
	start := time.Now()
	scale := math.Max(opts.Scale, 0)
	s := &Spherical{
		orientation: orientation{transform: opts.Transform},
		width:       width,
		height:      height,
		pixels:      pixels,
		scale:       scale,
	}

	weights := make([]float64, width*height)
	row := func(y int) {
		sinTheta := math.Sin(math.Pi * (float64(y) + 0.5) / float64(height))
		for x := 0; x < width; x++ {
			weights[y*width+x] = math.Max(pixels[y*width+x].Luminance(), 0) * sinTheta
		}
	}
	if pool != nil {
		pool.Parallel(height, row)
	} else {
		for y := 0; y < height; y++ {
			row(y)
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 || scale == 0 {
		s.black = true
		logger.Warningf("spherical environment %dx%d is black", width, height)
		return s, nil
	}

	if opts.CompensateMIS {
		average := total / float64(len(weights))
		compensated := make([]float64, len(weights))
		remaining := 0.0
		for i, w := range weights {
			compensated[i] = math.Max(w-average, 0)
			remaining += compensated[i]
		}
		// A uniform image has nothing above its average
		if remaining > 0 {
			weights = compensated
		}
	}

	table, err := alias.NewTable2D(weights, width, height)
	if err != nil {
		return nil, fmt.Errorf("lights: spherical environment: %w", err)
	}
	s.table = table
	logger.Infof("built %dx%d environment distribution in %d ms", width, height, time.Since(start).Milliseconds())
	return s, nil
}

func (s *Spherical) IsBlack() bool {
	return s.black
}

// Size returns the image resolution
func (s *Spherical) Size() (int, int) {
	return s.width, s.height
}

func (s *Spherical) lookup(uv core.Vec2) core.Vec3 {
	x := max(0, min(int(uv.X*float64(s.width)), s.width-1))
	y := max(0, min(int(uv.Y*float64(s.height)), s.height-1))
	return s.pixels[y*s.width+x].Multiply(s.scale)
}

// directionalPDF converts a density over the unit square of uv to solid angle
func directionalPDF(p, theta float64) float64 {
	sinTheta := math.Sin(theta)
	if sinTheta <= 0 {
		return 0
	}
	return p / (2 * math.Pi * math.Pi * sinTheta)
}

func (s *Spherical) Evaluate(wi core.Vec3, time float64) Evaluation {
	if s.black {
		return Evaluation{}
	}
	theta, uv := directionToUV(s.toLocal(wi, time))
	return Evaluation{L: s.lookup(uv), PDF: directionalPDF(s.table.PDF(uv), theta)}
}

func (s *Spherical) Sample(u core.Vec2, time float64) (core.Vec3, Evaluation) {
	if s.black {
		return core.Vec3{}, Evaluation{}
	}
	uv, p := s.table.Sample(u)
	theta, local := uvToDirection(uv)
	return s.toWorld(local, time), Evaluation{L: s.lookup(uv), PDF: directionalPDF(p, theta)}
}

// uvToDirection maps image coordinates to a direction: u runs clockwise around
// +y starting from +z, v runs from +y down to -y
func uvToDirection(uv core.Vec2) (float64, core.Vec3) {
	phi := 2 * math.Pi * (1 - uv.X)
	theta := math.Pi * uv.Y
	sinTheta := math.Sin(theta)
	return theta, core.NewVec3(math.Sin(phi)*sinTheta, math.Cos(theta), math.Cos(phi)*sinTheta).Normalize()
}

func directionToUV(w core.Vec3) (float64, core.Vec2) {
	theta := math.Acos(max(-1, min(w.Y, 1)))
	phi := math.Atan2(w.X, w.Z)
	u := 1 - 0.5*phi/math.Pi
	v := theta / math.Pi
	return theta, core.NewVec2(u-math.Floor(u), min(v, core.OneMinusEpsilon))
}

var _ Environment = (*Spherical)(nil)
