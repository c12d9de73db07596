package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/df07/go-light-transport/cmd"
)

func sceneCommand(name, usage, description string, action cli.ActionFunc, flags ...cli.Flag) cli.Command {
	return cli.Command{
		Name:        name,
		Usage:       usage,
		Description: description,
		ArgsUsage:   "scene_id|scene_file.json",
		Flags:       append(flags, cmd.SceneFlags...),
		Action:      action,
	}
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "lt"
	app.Usage = "build light transport scenes and query their estimators"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "list",
			Usage: "list built-in scenes and the scene files in a directory",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dir",
					Value: "scenes",
					Usage: "directory holding *.json scene files",
				},
			},
			Action: cmd.ListScenes,
		},
		sceneCommand("inspect", "print a scene's emitters and light selection probabilities", `
Build the scene and print every sampled emitter with its area, emitted power
and the probability the light sampler picks it.`, cmd.InspectScene,
			cli.BoolFlag{Name: "instances", Usage: "also print the packed instance matrices"},
		),
		sceneCommand("estimate", "estimate direct lighting at a point", `
Place a diffuse receiver at --point facing --normal and average the direct
lighting estimator, which combines light and BSDF sampling.`, cmd.EstimateDirect,
			cli.StringFlag{Name: "point", Value: "0,0,0", Usage: "receiver position x,y,z"},
			cli.StringFlag{Name: "normal", Value: "0,1,0", Usage: "receiver normal x,y,z"},
			cli.Float64Flag{Name: "albedo", Value: 0.5, Usage: "receiver albedo"},
			cli.IntFlag{Name: "spp", Value: 1024, Usage: "number of estimates to average"},
			cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
		),
		sceneCommand("trace", "estimate the radiance along one ray with the path tracer", "", cmd.TraceRay,
			cli.StringFlag{Name: "origin", Value: "0,0,0", Usage: "ray origin x,y,z"},
			cli.StringFlag{Name: "dir", Value: "0,0,-1", Usage: "ray direction x,y,z"},
			cli.IntFlag{Name: "max-depth", Usage: "scattering events per path, 0 keeps the scene setting"},
			cli.IntFlag{Name: "spp", Value: 256, Usage: "number of paths to average"},
			cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
		),
		{
			Name:  "filter",
			Usage: "draw pixel offsets from a reconstruction filter and print their statistics",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "impl", Value: "mitchell", Usage: "box, triangle, gaussian, mitchell or lanczos"},
				cli.Float64Flag{Name: "radius", Value: 2, Usage: "filter radius in pixels"},
				cli.IntFlag{Name: "samples", Value: 100000, Usage: "number of offsets to draw"},
				cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			},
			Action: cmd.SampleFilter,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
