package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/halfmoonlabs/imagen/internal/cli/generate"
	"github.com/halfmoonlabs/imagen/internal/cli/self"
	"github.com/halfmoonlabs/imagen/internal/core/version"
)

func main() {
	app := &cli.App{
		Name:    "imagen",
		Usage:   "Generate Dockerfiles from YAML image descriptors",
		Version: version.Version,
		Action: func(c *cli.Context) error {
			_ = cli.ShowAppHelp(c)
			return nil
		},
		Commands: []*cli.Command{
			generate.Command,
			self.Command,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
