package cmd

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/integrator"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
)

func parseVec3(s string) (core.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return core.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("expected x,y,z, got %q: %v", s, err)
		}
		v[i] = f
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}

// EstimateDirect averages direct lighting estimates at a surface point.
func EstimateDirect(ctx *cli.Context) error {
	setupLogging(ctx)

	point, err := parseVec3(ctx.String("point"))
	if err != nil {
		return fmt.Errorf("--point: %v", err)
	}
	normal, err := parseVec3(ctx.String("normal"))
	if err != nil {
		return fmt.Errorf("--normal: %v", err)
	}
	normal = normal.Normalize()
	albedo := ctx.Float64("albedo")
	bsdf, err := material.NewLambertian(core.Splat(albedo))
	if err != nil {
		return err
	}

	p, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	it := geometry.Interaction{
		SurfacePoint: geometry.SurfacePoint{P: point, Ng: normal, N: normal},
		Instance:     -1,
		Surface:      geometry.NoTag,
		Light:        geometry.NoTag,
		Medium:       geometry.NoTag,
	}
	direct := integrator.NewDirectLighting(p.Scene(), p.Config)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(ctx.Int64("seed"))))

	spp := ctx.Int("spp")
	start := time.Now()
	var sum core.Vec3
	for i := 0; i < spp; i++ {
		L, err := direct.Estimate(it, normal, bsdf, medium.NewTracker(), sampler)
		if err != nil {
			return err
		}
		sum = sum.Add(L)
	}
	mean := sum.Multiply(1 / float64(max(spp, 1)))
	logger.Noticef("outgoing radiance at %v along %v: %v (albedo %v, %d samples in %v)",
		point, normal, mean, albedo, spp, time.Since(start))
	return nil
}

// TraceRay follows one camera ray with the path tracer.
func TraceRay(ctx *cli.Context) error {
	setupLogging(ctx)

	origin, err := parseVec3(ctx.String("origin"))
	if err != nil {
		return fmt.Errorf("--origin: %v", err)
	}
	dir, err := parseVec3(ctx.String("dir"))
	if err != nil {
		return fmt.Errorf("--dir: %v", err)
	}

	p, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	config := p.Config
	if depth := ctx.Int("max-depth"); depth > 0 {
		config.MaxDepth = depth
	}
	pt := integrator.NewPathTracer(p.Scene(), config)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(ctx.Int64("seed"))))
	ray := core.NewRay(origin, dir.Normalize())

	spp := ctx.Int("spp")
	var sum core.Vec3
	failed := 0
	for i := 0; i < spp; i++ {
		L, err := pt.Li(ray, sampler)
		if err != nil {
			failed++
			logger.Debugf("sample %d: %v", i, err)
			continue
		}
		sum = sum.Add(L)
	}
	if failed > 0 {
		logger.Warningf("%d of %d paths ended with an error", failed, spp)
	}
	logger.Noticef("radiance along %v from %v: %v", dir, origin, sum.Multiply(1/float64(max(spp, 1))))
	return nil
}
