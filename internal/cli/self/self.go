// Package self implements the self-management commands of the imagen binary.
package self

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/urfave/cli/v2"
)

const defaultRepoSlug = "halfmoonlabs/imagen"

// Command defines the "self" command and its subcommands.
var Command = &cli.Command{
	Name:  "self",
	Usage: "Manage the imagen binary itself",
	Subcommands: []*cli.Command{
		{
			Name:  "update",
			Usage: "Update imagen to the latest released version",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "yes",
					Aliases: []string{"y"},
					Usage:   "Automatically confirm the update",
				},
				&cli.BoolFlag{
					Name:  "check",
					Usage: "Check for available updates without installing",
				},
				&cli.StringFlag{
					Name:  "source",
					Usage: "Custom GitHub update source as 'owner/repo'",
				},
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose output",
				},
			},
			Action: updateAction,
		},
	},
}

func updateAction(c *cli.Context) error {
	verbose := c.Bool("verbose")
	currentVersion := c.App.Version

	current, err := semver.NewVersion(strings.TrimPrefix(currentVersion, "v"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error parsing current version %q: %v", currentVersion, err), 1)
	}

	repoSlug := defaultRepoSlug
	if src := c.String("source"); src != "" {
		parts := strings.Split(src, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return cli.Exit(fmt.Sprintf("Invalid --source format. Expected 'owner/repo', got: %s.", src), 1)
		}
		repoSlug = src
	}

	ghSource, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error creating GitHub source: %v", err), 1)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: ghSource})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to initialize updater: %v", err), 1)
	}

	if verbose {
		fmt.Printf("Checking %s for a newer release than %s...\n", repoSlug, currentVersion)
	}

	latest, found, err := updater.DetectLatest(c.Context, selfupdate.ParseSlug(repoSlug))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error detecting latest version: %v", err), 1)
	}
	if !found || !latest.GreaterThan(current.String()) {
		fmt.Printf("Current version %s is already the latest.\n", currentVersion)
		return nil
	}

	fmt.Printf("New version available: %s (current: %s)\n", latest.Version(), currentVersion)
	if c.Bool("check") {
		return nil
	}

	if !c.Bool("yes") {
		fmt.Print("Do you want to update? (y/N): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(input)) != "y" {
			fmt.Println("Update cancelled.")
			return nil
		}
	}

	execPath, err := os.Executable()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Could not get executable path: %v", err), 1)
	}

	fmt.Printf("Updating to %s...\n", latest.Version())
	if err := updater.UpdateTo(c.Context, latest, execPath); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to update: %v", err), 1)
	}

	fmt.Printf("Successfully updated to version %s.\n", latest.Version())
	return nil
}
