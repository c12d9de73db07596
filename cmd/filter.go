package cmd

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/filter"
)

func newFilter(impl string, radius float64) (filter.Filter, error) {
	shift := core.Vec2{}
	switch impl {
	case "box":
		return filter.NewBox(radius, shift)
	case "triangle":
		return filter.NewTriangle(radius, shift)
	case "gaussian":
		return filter.NewGaussian(radius, radius/3, shift)
	case "mitchell":
		return filter.NewMitchell(radius, filter.DefaultMitchellB, filter.DefaultMitchellC, shift)
	case "lanczos":
		return filter.NewLanczosSinc(radius, filter.DefaultLanczosTau, shift)
	default:
		return nil, fmt.Errorf("unknown filter %q", impl)
	}
}

// SampleFilter draws pixel offsets from a filter and prints their statistics.
func SampleFilter(ctx *cli.Context) error {
	setupLogging(ctx)

	f, err := newFilter(ctx.String("impl"), ctx.Float64("radius"))
	if err != nil {
		return err
	}
	sampler, err := filter.NewSampler(f)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(ctx.Int64("seed")))
	n := max(ctx.Int("samples"), 1)
	var weightSum, offsetSum, maxOffset float64
	negative := 0
	for i := 0; i < n; i++ {
		s := sampler.Sample(core.NewVec2(rng.Float64(), rng.Float64()))
		weightSum += s.Weight
		if s.Weight < 0 {
			negative++
		}
		offset := math.Hypot(s.Offset.X, s.Offset.Y)
		offsetSum += offset
		maxOffset = math.Max(maxOffset, math.Max(math.Abs(s.Offset.X), math.Abs(s.Offset.Y)))
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Filter", "Radius", "Samples", "Mean weight", "Negative", "Mean |offset|", "Max offset"})
	table.Append([]string{
		f.Name(),
		fmt.Sprintf("%g", f.Radius()),
		fmt.Sprintf("%d", n),
		fmt.Sprintf("%.4f", weightSum/float64(n)),
		fmt.Sprintf("%02.1f %%", 100*float64(negative)/float64(n)),
		fmt.Sprintf("%.4f", offsetSum/float64(n)),
		fmt.Sprintf("%.4f", maxOffset),
	})
	table.Render()
	logger.Noticef("filter statistics\n%s", buf.String())
	return nil
}
