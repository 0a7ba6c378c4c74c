// Package project reads the optional imagen.toml project file, which supplies
// per-project defaults for the generate command's flags.
package project

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the project file looked up next to the image descriptor.
const FileName = "imagen.toml"

// Project mirrors the imagen.toml layout. Every field is optional; CLI flags
// always win over project-file values.
type Project struct {
	Output            string            `toml:"output,omitempty"`
	Template          string            `toml:"template,omitempty"`
	ModulesPath       string            `toml:"modules_path,omitempty"`
	ScriptsPath       string            `toml:"scripts_path,omitempty"`
	RepoFilesDir      string            `toml:"repo_files_dir,omitempty"`
	AdditionalScripts []string          `toml:"additional_scripts,omitempty"`
	Params            map[string]string `toml:"params,omitempty"`
}

// Load reads imagen.toml from the given directory. A missing file is not an
// error: it yields an empty Project.
func Load(dir string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Project{}, nil
		}
		return nil, err
	}

	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
