package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Project is the optional fusabi.yaml project file: where to look for
// importable modules, which stdlib modules to preload into a fresh
// engine, and an allow-list of HostData type names. The allow-list is
// only read through AllowsHostDataKind; Engine.CreateHostData and the
// stdlib modules do not check it. The core engine needs none of this
// to run standalone, but a CLI-fronted engine benefits from a project
// file to configure it without recompiling.
type Project struct {
	ModulePath          []string `yaml:"module_path"`
	PreloadStdlib       []string `yaml:"preload_stdlib"`
	AllowedHostDataKind []string `yaml:"allowed_host_data_kinds"`
}

// LoadProject reads and parses a fusabi.yaml file at path. A missing
// file is not an error — callers should fall back to Project{}'s zero
// value (no preloads, no module path, no host-data allow-list).
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &p, nil
}

// AllowsHostDataKind reports whether typeName is on the HostData
// allow-list. An empty allow-list means no restriction — the
// field exists for embedders that want to fence in what a script may
// wrap, not as a default sandbox.
func (p *Project) AllowsHostDataKind(typeName string) bool {
	if len(p.AllowedHostDataKind) == 0 {
		return true
	}
	for _, k := range p.AllowedHostDataKind {
		if k == typeName {
			return true
		}
	}
	return false
}
