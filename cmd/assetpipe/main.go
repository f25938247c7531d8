package main

import (
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/assetpipe"
	"github.com/bodgit/assetpipe/importer"
	"github.com/bodgit/assetpipe/indexed"
	"github.com/bodgit/assetpipe/palette"
	"github.com/bodgit/assetpipe/resource"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/urfave/cli/v2"
)

const defaultDB = "assets.db"

var logger = loggo.GetLogger("assetpipe")

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func configureLogging(c *cli.Context) error {
	if c.Bool("verbose") {
		return loggo.ConfigureLoggers("<root>=WARNING;assetpipe=DEBUG")
	}
	return loggo.ConfigureLoggers("<root>=WARNING;assetpipe=INFO")
}

func importOptions(c *cli.Context) (importer.Options, error) {
	depth, err := indexed.DepthFromBits(c.Int("depth"))
	if err != nil {
		return importer.Options{}, err
	}
	if _, err := palette.MetricByName(c.String("metric")); err != nil {
		return importer.Options{}, err
	}
	return importer.Options{
		Depth:  depth,
		Metric: c.String("metric"),
	}, nil
}

func openPipeline(c *cli.Context) (*assetpipe.Pipeline, error) {
	if err := configureLogging(c); err != nil {
		return nil, err
	}
	return assetpipe.New(c.String("db"), c.String("base"), logger)
}

func writePNG(file string, m image.Image) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, m); err != nil {
		return err
	}

	return f.Close()
}

func main() {
	app := cli.NewApp()

	app.Name = "assetpipe"
	app.Usage = "Game asset import utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	importFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "palette",
			Usage: "palette image, relative to the base directory",
		},
		&cli.IntFlag{
			Name:  "depth",
			Value: 8,
			Usage: "index width in bits, 8 or 16",
		},
		&cli.StringFlag{
			Name:  "metric",
			Value: "rgba",
			Usage: "color distance metric, one of " + strings.Join(palette.MetricNames(), ", "),
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "import even if up to date",
		},
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"ASSETPIPE_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.StringFlag{
			Name:    "base",
			EnvVars: []string{"ASSETPIPE_BASE"},
			Value:   cwd,
			Usage:   "base directory of assets",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "import",
			Usage:       "Import a single asset",
			Description: "",
			ArgsUsage:   "NAME",
			Flags:       importFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				opts, err := importOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				p, err := openPipeline(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer p.Close()
				p.Force = c.Bool("force")

				if err := p.Import(c.Args().First(), c.String("palette"), opts); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Import every image below the base directory",
			Description: "",
			Flags: append(importFlags, &cli.IntFlag{
				Name:  "workers",
				Value: assetpipe.DefaultWorkers,
				Usage: "number of concurrent imports",
			}),
			Action: func(c *cli.Context) error {
				opts, err := importOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				p, err := openPipeline(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer p.Close()
				p.Force = c.Bool("force")
				p.Workers = c.Int("workers")

				r, err := p.Scan(c.String("palette"), opts)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if r.Failed > 0 {
					return cli.NewExitError(errors.Errorf("%d assets failed to import", r.Failed), 2)
				}

				return nil
			},
		},
		{
			Name:        "palette",
			Usage:       "Generate a palette image from an image",
			Description: "",
			ArgsUsage:   "IMAGE OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "colors",
					Value: 16,
					Usage: "number of palette entries",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				if err := configureLogging(c); err != nil {
					return cli.NewExitError(err, 1)
				}

				l := resource.NewLocator(c.String("base"), nil)
				d, err := l.Get(c.Args().First(), false)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				m, err := importer.Decode(importer.Asset{Name: c.Args().First(), Data: d.(*resource.Static).Bytes()})
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				p, err := palette.Generate(m, c.Int("colors"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := writePNG(c.Args().Get(1), p); err != nil {
					return cli.NewExitError(err, 1)
				}

				logger.Infof("Wrote %d color palette to %q", c.Int("colors"), c.Args().Get(1))

				return nil
			},
		},
		{
			Name:        "export",
			Usage:       "Export an imported artifact as PNG",
			Description: "",
			ArgsUsage:   "NAME OUTPUT",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				p, err := openPipeline(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer p.Close()

				r, err := p.DB().FindArtifact(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if r == nil {
					return cli.NewExitError(errors.NotFoundf("artifact %q", c.Args().First()), 1)
				}

				m, err := r.Image()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if im, ok := m.(*indexed.Image); ok {
					if m, err = im.Paletted(); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				if err := writePNG(c.Args().Get(1), m); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
