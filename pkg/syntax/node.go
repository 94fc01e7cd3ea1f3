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

package syntax

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// OwnedNode is a detached copy of one Tree-sitter node and its subtree. The
// parser's tree borrows from the source buffer and is invalid once the
// buffer or the tree itself goes away; OwnedNode copies out everything a
// downstream task needs so it can be moved across goroutine boundaries
// without holding a reference to either.
type OwnedNode struct {
	Kind      string
	StartByte uint
	EndByte   uint
	Text      string
	Children  []*OwnedNode
}

// own recursively copies node and its descendants out of the live tree.
func own(node *tree_sitter.Node, source []byte) *OwnedNode {
	start, end := node.StartByte(), node.EndByte()

	childCount := node.ChildCount()
	var children []*OwnedNode
	if childCount > 0 {
		children = make([]*OwnedNode, 0, childCount)
		for i := uint(0); i < childCount; i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			children = append(children, own(child, source))
		}
	}

	return &OwnedNode{
		Kind:      node.Kind(),
		StartByte: start,
		EndByte:   end,
		Text:      string(source[start:end]),
		Children:  children,
	}
}

// TopLevelChildren returns the direct children of tree's root node as
// detached OwnedNodes, in source order (C4). Each carries its full
// subtree by value.
func TopLevelChildren(tree *tree_sitter.Tree, source []byte) []*OwnedNode {
	root := tree.RootNode()
	count := root.ChildCount()
	if count == 0 {
		return nil
	}

	out := make([]*OwnedNode, 0, count)
	for i := uint(0); i < count; i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		out = append(out, own(child, source))
	}
	return out
}
