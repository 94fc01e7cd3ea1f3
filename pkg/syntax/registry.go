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

// Package syntax wraps the official Tree-sitter Go bindings behind the
// fixed eight-grammar registry graphdex needs (§4.2), and produces the
// detached OwnedNode tree (§3, §4.4) that the ingestion engine moves
// across task boundaries.
package syntax

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/kraklabs/graphdex/pkg/lang"
)

// Registry lazily constructs and caches one *tree_sitter.Parser per
// grammar. Parsers are not safe for concurrent use by multiple goroutines
// against overlapping calls, so Registry hands out exclusive use of a
// grammar's parser under a per-grammar mutex rather than sharing one
// *tree_sitter.Parser across concurrent Parse calls.
type Registry struct {
	mu       sync.Mutex
	parsers  map[lang.Grammar]*tree_sitter.Parser
	parserMu map[lang.Grammar]*sync.Mutex
}

// NewRegistry returns an empty registry. Grammars are initialised lazily
// on first use so a process that only ever sees Python files never pays
// the cost of loading the other seven.
func NewRegistry() *Registry {
	return &Registry{
		parsers:  make(map[lang.Grammar]*tree_sitter.Parser),
		parserMu: make(map[lang.Grammar]*sync.Mutex),
	}
}

func languageFor(g lang.Grammar) (*tree_sitter.Language, error) {
	switch g {
	case lang.Python:
		return tree_sitter.NewLanguage(tree_sitter_python.Language()), nil
	case lang.Rust:
		return tree_sitter.NewLanguage(tree_sitter_rust.Language()), nil
	case lang.Zig:
		return tree_sitter.NewLanguage(tree_sitter_zig.Language()), nil
	case lang.Cpp:
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language()), nil
	case lang.C:
		return tree_sitter.NewLanguage(tree_sitter_c.Language()), nil
	case lang.TypeScript:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case lang.TSX:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()), nil
	case lang.JavaScript:
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	default:
		return nil, fmt.Errorf("syntax: no grammar registered for %q", g)
	}
}

// parserFor returns the cached parser for g, constructing and caching it
// on first request.
func (r *Registry) parserFor(g lang.Grammar) (*tree_sitter.Parser, *sync.Mutex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.parsers[g]; ok {
		return p, r.parserMu[g], nil
	}

	language, err := languageFor(g)
	if err != nil {
		return nil, nil, err
	}

	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		return nil, nil, fmt.Errorf("syntax: set language %q: %w", g, err)
	}

	r.parsers[g] = parser
	r.parserMu[g] = &sync.Mutex{}
	return parser, r.parserMu[g], nil
}

// Parse parses source with the grammar g and returns the resulting tree.
// The caller must not retain references into source once the tree is
// converted to OwnedNodes; see TopLevelChildren.
func (r *Registry) Parse(g lang.Grammar, source []byte) (*tree_sitter.Tree, error) {
	parser, mu, err := r.parserFor(g)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("syntax: parse failed for grammar %q", g)
	}
	return tree, nil
}
