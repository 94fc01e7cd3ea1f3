// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/graphdex/pkg/lang"
)

func TestRegistry_ParsePython_TopLevelChildrenInSourceOrder(t *testing.T) {
	reg := NewRegistry()
	source := []byte("def f():\n    return 1\n\n\nclass C:\n    pass\n")

	tree, err := reg.Parse(lang.Python, source)
	require.NoError(t, err)
	defer tree.Close()

	children := TopLevelChildren(tree, source)
	require.GreaterOrEqual(t, len(children), 2)

	assert.Equal(t, "function_definition", children[0].Kind)
	assert.Equal(t, "class_definition", children[len(children)-1].Kind)

	for _, c := range children {
		assert.Equal(t, string(source[c.StartByte:c.EndByte]), c.Text)
		assert.LessOrEqual(t, c.StartByte, c.EndByte)
	}
}

func TestRegistry_UnknownGrammar(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Parse(lang.Grammar("cobol"), []byte("x"))
	assert.Error(t, err)
}

func TestOwnedNode_ChildrenCarrySubtreeByValue(t *testing.T) {
	reg := NewRegistry()
	source := []byte("def f():\n    x = 1\n    return x\n")

	tree, err := reg.Parse(lang.Python, source)
	require.NoError(t, err)
	defer tree.Close()

	children := TopLevelChildren(tree, source)
	require.Len(t, children, 1)

	fn := children[0]
	assert.NotEmpty(t, fn.Children)

	var walk func(n *OwnedNode)
	walk = func(n *OwnedNode) {
		assert.Equal(t, string(source[n.StartByte:n.EndByte]), n.Text)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(fn)
}
