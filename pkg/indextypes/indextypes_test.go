// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package indextypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	cfg := NewIndexTypesConfig(map[string][]string{
		"py":  {"function_definition", "class_definition"},
		"cpp": {All},
	})

	assert.True(t, cfg.Decide("py", "function_definition"))
	assert.True(t, cfg.Decide("py", "class_definition"))
	assert.False(t, cfg.Decide("py", "import_statement"))
	assert.True(t, cfg.Decide("cpp", "anything_at_all"))
	assert.True(t, cfg.Decide("cxx", "anything_at_all")) // normalised to cpp
	assert.False(t, cfg.Decide("rs", "function_item"))   // no entry at all
}

func TestDecide_NormalisesAliases(t *testing.T) {
	cfg := NewIndexTypesConfig(map[string][]string{
		"c":  {"function_definition"},
		"js": {"function_declaration"},
	})

	assert.True(t, cfg.Decide("h", "function_definition"))
	assert.True(t, cfg.Decide("jsx", "function_declaration"))
}

func TestFileTypesConfig(t *testing.T) {
	cfg := NewFileTypesConfig([]string{"py", "rs"}, []string{"md"})

	assert.True(t, cfg.IsSupported("py"))
	assert.True(t, cfg.IsSupported("rs"))
	assert.False(t, cfg.IsSupported("md"))
	assert.True(t, cfg.IsUnsupported("md"))
	assert.False(t, cfg.IsUnsupported("py"))
}

func TestFileTypesConfig_AllSentinel(t *testing.T) {
	cfg := NewFileTypesConfig([]string{All}, nil)

	assert.True(t, cfg.IsSupported("anything"))
	assert.False(t, cfg.IsUnsupported("anything"))
}

func TestNormalise(t *testing.T) {
	assert.Equal(t, "cpp", Normalise("cc"))
	assert.Equal(t, "cpp", Normalise("cxx"))
	assert.Equal(t, "c", Normalise("h"))
	assert.Equal(t, "js", Normalise("jsx"))
	assert.Equal(t, "py", Normalise("py"))
}
