// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the fixed configuration surface graphdex reads from
// the current working directory: index-types.json and file_types.json are
// mandatory and read once per process; graphdex.yaml is an optional
// override for the CLI's default path/port.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/graphdex/pkg/indextypes"
)

// IndexTypesFile is the default filename for the node-kind index config.
const IndexTypesFile = "index-types.json"

// FileTypesFile is the default filename for the supported/unsupported
// extension config.
const FileTypesFile = "file_types.json"

// ProjectFile is the optional YAML override for CLI defaults.
const ProjectFile = "graphdex.yaml"

// rawFileTypes mirrors file_types.json's shape.
type rawFileTypes struct {
	Supported   []string `json:"supported"`
	Unsupported []string `json:"unsupported"`
}

// LoadIndexTypes reads and parses index-types.json from dir. A missing or
// malformed file is fatal — it is config, not per-entity, failure (§7).
func LoadIndexTypes(dir string) (*indextypes.IndexTypesConfig, error) {
	path := dir + string(os.PathSeparator) + IndexTypesFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", IndexTypesFile, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", IndexTypesFile, err)
	}

	return indextypes.NewIndexTypesConfig(raw), nil
}

// LoadFileTypes reads and parses file_types.json from dir. A missing or
// malformed file is fatal (§7).
func LoadFileTypes(dir string) (*indextypes.FileTypesConfig, error) {
	path := dir + string(os.PathSeparator) + FileTypesFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileTypesFile, err)
	}

	var raw rawFileTypes
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileTypesFile, err)
	}

	return indextypes.NewFileTypesConfig(raw.Supported, raw.Unsupported), nil
}

// ProjectDefaults is the optional graphdex.yaml override for the CLI's
// positional defaults. It supplements, it never replaces, explicit flags.
type ProjectDefaults struct {
	Path string `yaml:"path"`
	Port int    `yaml:"port"`
}

// LoadProjectDefaults reads graphdex.yaml from dir if present. A missing
// file is not an error — the CLI's built-in defaults apply instead; a
// malformed file that does exist is fatal, same as the JSON configs.
func LoadProjectDefaults(dir string) (*ProjectDefaults, error) {
	path := dir + string(os.PathSeparator) + ProjectFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectDefaults{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", ProjectFile, err)
	}

	var defaults ProjectDefaults
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ProjectFile, err)
	}
	return &defaults, nil
}
