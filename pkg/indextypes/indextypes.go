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

// Package indextypes holds the two immutable, read-once configuration
// structures that decide what gets indexed (IndexTypesConfig) and whether a
// file's extension is supported by a grammar or handled as opaque text
// (FileTypesConfig), plus the filter logic (C5) that consults them.
//
// Both types are parsed once per ingest/update run and shared by reference,
// never mutated, across every concurrent task.
package indextypes

// All is the sentinel meaning "every kind"/"every extension" in the
// config files, rather than an explicit enumerated set.
const All = "ALL"

// IndexTypesConfig maps a normalised extension to the set of syntax node
// kinds that should become entities. A kinds set containing All means
// every kind under that extension is indexed.
type IndexTypesConfig struct {
	kinds map[string]map[string]bool
}

// NewIndexTypesConfig builds an IndexTypesConfig from the raw
// extension -> kind-list mapping decoded from index-types.json.
func NewIndexTypesConfig(raw map[string][]string) *IndexTypesConfig {
	kinds := make(map[string]map[string]bool, len(raw))
	for ext, list := range raw {
		set := make(map[string]bool, len(list))
		for _, k := range list {
			set[k] = true
		}
		kinds[ext] = set
	}
	return &IndexTypesConfig{kinds: kinds}
}

// kindsFor returns the kind set registered for a normalised extension, and
// whether the extension has any entry at all.
func (c *IndexTypesConfig) kindsFor(normalisedExt string) (map[string]bool, bool) {
	if c == nil {
		return nil, false
	}
	set, ok := c.kinds[normalisedExt]
	return set, ok
}

// FileTypesConfig partitions extensions into those handled by a grammar
// ("supported") and those indexed as opaque chunked text ("unsupported").
// Either set may contain the All sentinel.
type FileTypesConfig struct {
	supported   map[string]bool
	unsupported map[string]bool
}

// NewFileTypesConfig builds a FileTypesConfig from the raw
// supported/unsupported extension lists decoded from file_types.json.
func NewFileTypesConfig(supported, unsupported []string) *FileTypesConfig {
	return &FileTypesConfig{
		supported:   toSet(supported),
		unsupported: toSet(unsupported),
	}
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, e := range list {
		set[e] = true
	}
	return set
}

// IsSupported reports whether extension (raw, un-normalised) is listed
// under "supported", or whether "supported" contains the All sentinel.
func (c *FileTypesConfig) IsSupported(extension string) bool {
	if c == nil {
		return false
	}
	return c.supported[All] || c.supported[extension]
}

// IsUnsupported reports whether extension (raw, un-normalised) is listed
// under "unsupported", or whether "unsupported" contains the All sentinel.
func (c *FileTypesConfig) IsUnsupported(extension string) bool {
	if c == nil {
		return false
	}
	return c.unsupported[All] || c.unsupported[extension]
}

// Normalise collapses grammar aliases onto the extension key used by
// index-types.json: cc/cxx collapse onto cpp, h collapses onto c, jsx
// collapses onto js.
func Normalise(extension string) string {
	switch extension {
	case "cc", "cxx":
		return "cpp"
	case "h":
		return "c"
	case "jsx":
		return "js"
	default:
		return extension
	}
}

// Decide reports whether a syntax node of kind k under extension e should
// be materialised as an entity. The Python "block" passthrough (§4.6) is
// not handled here — it is a recursion-shape decision made by the caller
// before Decide is ever consulted for a block node's own kind.
func (c *IndexTypesConfig) Decide(extension, kind string) bool {
	set, ok := c.kindsFor(Normalise(extension))
	if !ok || len(set) == 0 {
		return false
	}
	return set[All] || set[kind]
}
