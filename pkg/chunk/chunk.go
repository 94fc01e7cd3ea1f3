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

// Package chunk splits text into size-bounded pieces for embedding.
//
// The splitter is recursive: it tries the highest-level separator first
// (paragraph breaks), and only falls back to a lower-level separator
// (line, sentence, word, character) for a piece that is still too long
// after splitting on the current one. The result is deterministic and its
// pieces concatenate back to the input exactly.
package chunk

import "strings"

// Target is the maximum length, in runes, of any emitted chunk.
const Target = 2048

// separators is the fixed ladder tried in order, highest level first.
// The empty string at the end means "split by rune", which always
// succeeds and terminates the recursion.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split divides text into an ordered, non-empty sequence of chunks each no
// longer than Target runes. Concatenating the result reproduces text
// exactly. Split is pure and deterministic: the same input always yields
// the same output.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	return split(text, 0)
}

// split recurses through the separator ladder starting at level.
func split(text string, level int) []string {
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= Target {
		return []string{text}
	}
	if level >= len(separators) {
		return splitByRune(text)
	}

	sep := separators[level]
	pieces := splitOn(text, sep)
	if len(pieces) <= 1 {
		// This separator did not divide the text at all; try the next
		// level directly rather than recursing forever on an unchanged
		// string.
		return split(text, level+1)
	}

	var out []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if len([]rune(p)) <= Target {
			out = append(out, p)
			continue
		}
		out = append(out, split(p, level+1)...)
	}
	return out
}

// splitOn divides text on sep, keeping sep attached to the end of every
// piece except the last so the pieces concatenate back to text exactly.
// The rune separator ("") is handled by splitByRune instead.
func splitOn(text, sep string) []string {
	if sep == "" {
		return splitByRune(text)
	}

	parts := strings.Split(text, sep)
	if len(parts) <= 1 {
		return []string{text}
	}

	pieces := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			pieces = append(pieces, p+sep)
		} else if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// splitByRune is the base case: a hard cut every Target runes. It always
// terminates the recursion because it can never return a piece longer
// than Target.
func splitByRune(text string) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := Target
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}
