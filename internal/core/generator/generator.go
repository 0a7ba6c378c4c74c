// Package generator drives the descriptor-to-Dockerfile pipeline: load,
// compose, substitute, fetch artifacts, render.
package generator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/halfmoonlabs/imagen/internal/core/compose"
	"github.com/halfmoonlabs/imagen/internal/core/descriptor"
	"github.com/halfmoonlabs/imagen/internal/core/fetcher"
	"github.com/halfmoonlabs/imagen/internal/core/substitute"
	"github.com/halfmoonlabs/imagen/internal/core/version"
)

// Script defaults and their environment overrides. An explicit value on a
// scripts entry always wins over both.
const (
	DefaultScriptExec = "run"
	DefaultScriptUser = "root"
	EnvScriptExec     = "IMAGEN_SCRIPT_EXEC"
	EnvScriptUser     = "IMAGEN_SCRIPT_USER"
)

// Options carries everything one generation run needs. The CLI resolves
// flags, project-file defaults and environment variables into this struct;
// the generator itself reads no globals.
type Options struct {
	DescriptorPath    string
	Target            string
	OverridesPath     string
	Params            map[string]string
	Template          string
	ScriptsPath       string
	AdditionalScripts []string
	RepoFilesDir      string
	ModulesPath       string
	CachePattern      string
	SkipTLSVerify     bool
	SkipArtifacts     bool
	Verbose           bool
	Out               io.Writer
}

// Generator owns the effective configuration for exactly one run. It is not
// safe to reuse across runs; build a new one instead.
type Generator struct {
	opts Options
	cfg  map[string]any

	fetch        *fetcher.Fetcher
	templatePath string
	sslVerify    bool
	scriptsPath  string
	scripts      []string
}

// New builds a Generator for one run.
func New(opts Options) *Generator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ModulesPath == "" {
		opts.ModulesPath = filepath.Join(filepath.Dir(opts.DescriptorPath), "modules")
	}
	return &Generator{opts: opts, sslVerify: true}
}

// Config exposes the effective configuration, primarily for tests.
func (g *Generator) Config() map[string]any { return g.cfg }

// TemplatePath reports the resolved template location; empty means the
// builtin template.
func (g *Generator) TemplatePath() string { return g.templatePath }

func (g *Generator) logf(format string, args ...any) {
	if g.opts.Verbose {
		_, _ = fmt.Fprintf(g.opts.Out, format+"\n", args...)
	}
}

// Run executes the pipeline. Each stage is fatal on error; the first failure
// aborts the run and surfaces as the single top-level error. A failed run
// may leave partial output behind: Cleanup is a separate operation the caller
// invokes before regenerating.
func (g *Generator) Run() error {
	if err := g.Configure(); err != nil {
		return err
	}
	if err := g.composeModules(); err != nil {
		return err
	}
	if err := g.substitute(); err != nil {
		return err
	}
	if !g.opts.SkipArtifacts {
		if err := g.fetchArtifacts(); err != nil {
			return err
		}
	}
	if err := g.handleRepoFiles(); err != nil {
		return err
	}
	if err := g.stageScripts(); err != nil {
		return err
	}
	if err := g.handleAdditionalScripts(); err != nil {
		return err
	}
	if err := g.handleCustomTemplate(); err != nil {
		return err
	}
	return g.Render()
}

// Configure loads and validates the root descriptor, applies the overrides
// file, and settles run configuration where the CLI and the descriptor's
// imagen block both have a say. CLI values always win.
func (g *Generator) Configure() error {
	g.logf("Loading image descriptor from '%s'...", g.opts.DescriptorPath)

	cfg, err := descriptor.Load(g.opts.DescriptorPath, descriptor.KindImage)
	if err != nil {
		return err
	}

	if g.opts.OverridesPath != "" {
		overrides, err := descriptor.LoadOverrides(g.opts.OverridesPath)
		if err != nil {
			return err
		}
		cfg = compose.Override(cfg, overrides)
	}

	tool, _ := cfg["imagen"].(map[string]any)

	if constraint, ok := tool["version"].(string); ok {
		if err := version.Check(constraint); err != nil {
			return fmt.Errorf("%w: %v", descriptor.ErrConfig, err)
		}
	}

	if v, ok := tool["ssl_verify"].(bool); ok {
		g.sslVerify = v
	}
	if g.opts.SkipTLSVerify {
		g.sslVerify = false
	}

	g.templatePath = g.opts.Template
	if g.templatePath == "" {
		if v, ok := tool["template"].(string); ok {
			g.templatePath = v
		}
	}

	g.scriptsPath = g.opts.ScriptsPath
	if g.scriptsPath == "" {
		if v, ok := tool["scripts_path"].(string); ok {
			g.scriptsPath = v
		}
	}
	if g.scriptsPath != "" {
		if _, err := os.Stat(g.scriptsPath); err != nil {
			return fmt.Errorf("%w: scripts path %q does not exist", descriptor.ErrConfig, g.scriptsPath)
		}
	}

	g.scripts = g.opts.AdditionalScripts
	if len(g.scripts) == 0 {
		g.scripts = descriptor.Strings(tool, "additional_scripts")
	}

	g.cfg = cfg
	g.fetch = fetcher.New(fetcher.Options{
		TargetDir:     filepath.Join(g.opts.Target, "image"),
		CachePattern:  g.opts.CachePattern,
		SkipTLSVerify: !g.sslVerify,
	})

	return nil
}

// composeModules loads every module the root descriptor references, merges
// them into the effective configuration (root always wins, later modules
// beat earlier ones, artifact-style lists union), and stages each module
// directory under the target tree.
func (g *Generator) composeModules() error {
	names := descriptor.Strings(g.cfg, "modules")
	if len(names) == 0 {
		return nil
	}

	modules := make([]map[string]any, 0, len(names))
	for _, name := range names {
		path := filepath.Join(g.opts.ModulesPath, name, "module.yaml")
		g.logf("Loading module '%s' from '%s'...", name, path)

		tree, err := descriptor.Load(path, descriptor.KindModule)
		if err != nil {
			return err
		}
		modules = append(modules, tree)

		src := filepath.Join(g.opts.ModulesPath, name)
		for _, dst := range []string{
			filepath.Join(g.opts.Target, "image", "modules", name),
			filepath.Join(g.opts.Target, "repo", "modules", name),
		} {
			if err := copyDir(src, dst); err != nil {
				return fmt.Errorf("failed to stage module %q: %w", name, err)
			}
		}
	}

	g.cfg = compose.Compose(g.cfg, modules)
	return nil
}

// substitute resolves placeholders across the whole tree, then applies the
// defaults that rendering relies on: user falls back to 0 and every scripts
// entry gets exec and user values.
func (g *Generator) substitute() error {
	cfg, err := substitute.ResolveTree(g.cfg, g.opts.Params)
	if err != nil {
		return err
	}
	g.cfg = cfg

	if _, ok := g.cfg["user"]; !ok {
		g.cfg["user"] = 0
	}

	g.handleScripts()
	return nil
}

// handleScripts fills in exec and user for each scripts entry. Entry values
// win over the environment overrides, which win over the defaults.
func (g *Generator) handleScripts() {
	raw, ok := g.cfg["scripts"].([]any)
	if !ok {
		return
	}

	execDefault := DefaultScriptExec
	if v := os.Getenv(EnvScriptExec); v != "" {
		execDefault = v
	}
	userDefault := DefaultScriptUser
	if v := os.Getenv(EnvScriptUser); v != "" {
		userDefault = v
	}

	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := entry["exec"]; !ok {
			entry["exec"] = execDefault
		}
		if _, ok := entry["user"]; !ok {
			entry["user"] = userDefault
		}
	}
}

// fetchArtifacts downloads every declared artifact into target/image,
// verifying declared checksums. Artifacts already on disk are trusted and
// skipped. Artifacts are fetched one at a time; throughput is not a goal.
func (g *Generator) fetchArtifacts() error {
	artifacts, err := descriptor.ParseArtifacts(g.cfg)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Join(g.opts.Target, "image"), 0o755); err != nil {
		return err
	}

	for _, a := range artifacts {
		g.logf("Fetching artifact '%s'...", a.Name)
		if _, err := g.fetch.Fetch(a); err != nil {
			return err
		}
	}
	return nil
}

// handleRepoFiles copies *.repo definitions into target/image/repos and
// records their names under additional_repos for the template.
func (g *Generator) handleRepoFiles() error {
	if g.opts.RepoFilesDir == "" {
		return nil
	}

	if _, err := os.Stat(g.opts.RepoFilesDir); err != nil {
		return fmt.Errorf("%w: directory %q with additional repository definitions does not exist", descriptor.ErrConfig, g.opts.RepoFilesDir)
	}

	files, err := filepath.Glob(filepath.Join(g.opts.RepoFilesDir, "*.repo"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	reposDir := filepath.Join(g.opts.Target, "image", "repos")
	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return err
	}

	var added []any
	for _, f := range files {
		g.logf("Copying repo file '%s'...", filepath.Base(f))
		if err := copyFile(f, filepath.Join(reposDir, filepath.Base(f))); err != nil {
			return err
		}
		added = append(added, strings.TrimSuffix(filepath.Base(f), ".repo"))
	}
	g.cfg["additional_repos"] = added

	return nil
}

// stageScripts copies the configured scripts directory into target/scripts so
// the build can reach them.
func (g *Generator) stageScripts() error {
	if g.scriptsPath == "" {
		return nil
	}

	g.logf("Copying scripts from '%s'...", g.scriptsPath)
	if err := copyDir(g.scriptsPath, filepath.Join(g.opts.Target, "scripts")); err != nil {
		return fmt.Errorf("failed to copy scripts from %q: %w", g.scriptsPath, err)
	}
	return nil
}

// handleAdditionalScripts stages extra scripts next to the build file,
// fetching remote references and copying local ones.
func (g *Generator) handleAdditionalScripts() error {
	if len(g.scripts) == 0 {
		return nil
	}

	scriptsDir := filepath.Join(g.opts.Target, "scripts")
	if err := os.MkdirAll(scriptsDir, 0o755); err != nil {
		return err
	}

	for _, script := range g.scripts {
		dest := filepath.Join(scriptsDir, filepath.Base(script))
		if fetcher.IsURL(script) {
			g.logf("Fetching additional script '%s'...", script)
			if _, err := g.fetch.FetchURL(script, dest); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(script, dest); err != nil {
			return fmt.Errorf("failed to copy additional script %q: %w", script, err)
		}
	}
	return nil
}

// handleCustomTemplate fetches a remote template to a temporary path and
// checks that whatever template was requested actually exists on disk.
func (g *Generator) handleCustomTemplate() error {
	if g.templatePath == "" {
		return nil
	}

	if fetcher.IsURL(g.templatePath) {
		g.logf("Fetching template '%s'...", g.templatePath)
		local, err := g.fetch.FetchURL(g.templatePath, "")
		if err != nil {
			return err
		}
		g.templatePath = local
	}

	if _, err := os.Stat(g.templatePath); err != nil {
		return fmt.Errorf("%w: template file %q could not be found; check the path or whether the fetch succeeded", fetcher.ErrFetch, g.templatePath)
	}
	return nil
}

// Render writes the build file into the target directory using either the
// builtin template or the configured custom one.
func (g *Generator) Render() error {
	if err := os.MkdirAll(g.opts.Target, 0o755); err != nil {
		return err
	}

	out := filepath.Join(g.opts.Target, "Dockerfile")
	g.logf("Rendering '%s'...", out)
	return renderTemplate(g.templatePath, g.cfg, out)
}

// Cleanup prepares a target directory for regeneration. Exactly the staged
// subtrees are removed; unrelated files in the target are never touched.
func Cleanup(target string) error {
	for _, dir := range []string{
		filepath.Join(target, "image", "modules"),
		filepath.Join(target, "image", "repos"),
		filepath.Join(target, "repo"),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single file, preserving its mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// copyDir copies a directory tree.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
