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

// Package lang maps a file extension to the Tree-sitter grammar that parses
// it. The mapping is fixed and pure: no grammar is loaded here, only the
// name that identifies it to pkg/syntax.
package lang

import "strings"

// Grammar identifies a Tree-sitter grammar by name.
type Grammar string

const (
	Python     Grammar = "python"
	Rust       Grammar = "rust"
	Zig        Grammar = "zig"
	Cpp        Grammar = "cpp"
	C          Grammar = "c"
	TypeScript Grammar = "typescript"
	TSX        Grammar = "tsx"
	JavaScript Grammar = "javascript"
)

var extensionToGrammar = map[string]Grammar{
	"py": Python,

	"rs": Rust,

	"zig": Zig,

	"cpp": Cpp,
	"cc":  Cpp,
	"cxx": Cpp,

	"c": C,
	"h": C,

	"ts":  TypeScript,
	"mts": TypeScript,
	"cts": TypeScript,

	"tsx": TSX,

	"js":   JavaScript,
	"jsx":  JavaScript,
	"mjs":  JavaScript,
	"mjsx": JavaScript,
	"cjs":  JavaScript,
	"cjsx": JavaScript,
}

// For dispatches on an extension without a leading dot and without case
// folding (extensions are compared verbatim, matching file_types.json and
// index-types.json keys). It returns the grammar and true if the extension
// is recognised, or the zero Grammar and false otherwise.
func For(extension string) (Grammar, bool) {
	g, ok := extensionToGrammar[extension]
	return g, ok
}

// TrimDot strips a leading "." from a raw filepath.Ext() result, since the
// rest of the pipeline (config files, grammar table) keys on the bare
// extension string.
func TrimDot(ext string) string {
	return strings.TrimPrefix(ext, ".")
}
