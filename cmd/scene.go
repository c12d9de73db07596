package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-light-transport/pkg/scene"
)

// SceneFlags select and override the scene a command works on
var SceneFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "strategy",
		Usage: "light selection strategy (uniform or power), overrides the scene",
	},
	cli.Float64Flag{
		Name:  "env-weight",
		Value: -1,
		Usage: "share of light samples spent on the environment, overrides the scene when >= 0",
	},
	cli.Float64Flag{
		Name:  "time",
		Usage: "time the scene is built at",
	},
	cli.IntFlag{
		Name:  "workers",
		Usage: "worker goroutines, 0 for one per CPU",
	},
}

// openPipeline builds the scene named by the first argument
func openPipeline(ctx *cli.Context) (*scene.Pipeline, error) {
	if ctx.NArg() < 1 {
		return nil, errors.New("missing scene argument (a built-in scene id or a .json file)")
	}
	desc, err := scene.Open(ctx.Args().First())
	if err != nil {
		return nil, err
	}
	opts := scene.DefaultOptions()
	opts.Strategy = ctx.String("strategy")
	opts.EnvironmentWeight = ctx.Float64("env-weight")
	opts.InitialTime = ctx.Float64("time")
	opts.Workers = ctx.Int("workers")
	return scene.Build(desc, opts, nil)
}

// ListScenes prints the built-in scenes and the scene files of a directory.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	scenes, err := scene.ListAll(ctx.String("dir"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Name", "Type", "Description"})
	for _, s := range scenes {
		table.Append([]string{s.ID, s.Name, s.Type, s.Description})
	}
	table.Render()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

// InspectScene builds a scene and prints its emitters and selection probabilities.
func InspectScene(ctx *cli.Context) error {
	setupLogging(ctx)

	p, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	g := p.Geometry
	logger.Noticef("scene %q: %d instances (%d dynamic), %d surfaces, %d media, strategy %s",
		p.Name, g.InstanceCount(), g.DynamicCount(), p.Surfaces.Len(), p.Media.Len(), p.Lights.Strategy())

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Instance", "Light", "Area", "Power", "Selection"})
	for i := 0; i < p.Lights.LightCount(); i++ {
		handle := p.Lights.Light(i)
		area := g.InstanceArea(handle.Instance)
		table.Append([]string{
			fmt.Sprintf("%d", i),
			g.Instance(handle.Instance).Name,
			fmt.Sprintf("%d", handle.Light),
			fmt.Sprintf("%.4g", area),
			fmt.Sprintf("%.4g", p.Registry.Power(handle.Light, area)),
			fmt.Sprintf("%.4f", p.Lights.SelectionProbability(i)),
		})
	}
	if p.Lights.Environment() != nil {
		table.Append([]string{"env", "", "", "", "", fmt.Sprintf("%.4f", p.Lights.EnvironmentProbability())})
	}
	table.Render()
	logger.Noticef("light selection\n%s", buf.String())

	if ctx.Bool("instances") {
		printInstances(ctx, p)
	}
	return nil
}

// printInstances writes the packed float32 instance matrices, the buffer a
// device upload would copy, one row per instance.
func printInstances(ctx *cli.Context, p *scene.Pipeline) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Instance", "Row 0", "Row 1", "Row 2"})
	for i, m := range p.Geometry.TransformBuffer() {
		row := func(r int) string {
			return fmt.Sprintf("%.4g %.4g %.4g %.4g", m[r*4], m[r*4+1], m[r*4+2], m[r*4+3])
		}
		table.Append([]string{fmt.Sprintf("%d", i), p.Geometry.Instance(i).Name, row(0), row(1), row(2)})
	}
	table.Render()
	fmt.Fprint(ctx.App.Writer, buf.String())
}
