// Package generate implements the generate command, the main entry point of
// the tool: descriptor in, Dockerfile and staged artifacts out.
package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/halfmoonlabs/imagen/internal/core/fetcher"
	"github.com/halfmoonlabs/imagen/internal/core/generator"
	"github.com/halfmoonlabs/imagen/internal/core/project"
)

// Command defines the structure of the "generate" command.
var Command = &cli.Command{
	Name:      "generate",
	Aliases:   []string{"gen"},
	Usage:     "Generates a Dockerfile and stages build artifacts from a YAML image descriptor",
	ArgsUsage: "<descriptor> [target]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "overrides",
			Usage: "Path to a YAML file with descriptor overrides",
		},
		&cli.StringSliceFlag{
			Name:    "param",
			Aliases: []string{"p"},
			Usage:   "Override a substitution parameter as NAME=VALUE (repeatable)",
		},
		&cli.StringFlag{
			Name:  "template",
			Usage: "Path or URL of a custom build file template",
		},
		&cli.StringFlag{
			Name:  "scripts-path",
			Usage: "Path to a directory with image build scripts",
		},
		&cli.StringSliceFlag{
			Name:  "additional-script",
			Usage: "Path or URL of an extra script to stage alongside the build file (repeatable)",
		},
		&cli.StringFlag{
			Name:  "repo-files-dir",
			Usage: "Directory with *.repo repository definitions to copy into the image",
		},
		&cli.StringFlag{
			Name:  "modules-path",
			Usage: "Directory containing module descriptors (defaults to 'modules' next to the descriptor)",
		},
		&cli.BoolFlag{
			Name:  "skip-ssl-verification",
			Usage: "Skip TLS certificate verification when fetching remote files",
		},
		&cli.BoolFlag{
			Name:  "without-artifacts",
			Usage: "Generate the build file without fetching artifacts",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose output",
		},
	},
	Action: run,
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Error: the <descriptor> argument is required.", 1)
	}
	descriptorPath := c.Args().Get(0)

	// Project-file defaults sit below every CLI flag.
	proj, err := project.Load(filepath.Dir(descriptorPath))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error loading %s: %v", project.FileName, err), 1)
	}

	target := firstOf(c.Args().Get(1), proj.Output)
	if target == "" {
		return cli.Exit("Error: no <target> argument given and no output configured in "+project.FileName+".", 1)
	}

	params := map[string]string{}
	for name, value := range proj.Params {
		params[name] = value
	}
	for _, raw := range c.StringSlice("param") {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return cli.Exit(fmt.Sprintf("Error: invalid --param %q, expected NAME=VALUE.", raw), 1)
		}
		params[name] = value
	}

	opts := generator.Options{
		DescriptorPath:    descriptorPath,
		Target:            target,
		OverridesPath:     c.String("overrides"),
		Params:            params,
		Template:          firstOf(c.String("template"), proj.Template),
		ScriptsPath:       firstOf(c.String("scripts-path"), proj.ScriptsPath),
		AdditionalScripts: firstSlice(c.StringSlice("additional-script"), proj.AdditionalScripts),
		RepoFilesDir:      firstOf(c.String("repo-files-dir"), proj.RepoFilesDir),
		ModulesPath:       firstOf(c.String("modules-path"), proj.ModulesPath),
		CachePattern:      os.Getenv(fetcher.EnvArtifactCache),
		SkipTLSVerify:     c.Bool("skip-ssl-verification"),
		SkipArtifacts:     c.Bool("without-artifacts"),
		Verbose:           c.Bool("verbose"),
		Out:               c.App.Writer,
	}

	if err := generator.Cleanup(target); err != nil {
		return cli.Exit(fmt.Sprintf("Error cleaning target directory: %v", err), 1)
	}

	if err := generator.New(opts).Run(); err != nil {
		return cli.Exit(color.New(color.FgRed).Sprintf("Error: %v", err), 1)
	}

	successColor := color.New(color.FgGreen).SprintFunc()
	_, _ = fmt.Fprintf(c.App.Writer, "%s\n", successColor(fmt.Sprintf("Generated %s", filepath.Join(target, "Dockerfile"))))
	return nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSlice(values ...[]string) []string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
