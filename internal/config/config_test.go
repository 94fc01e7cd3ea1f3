// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIndexTypes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexTypesFile),
		[]byte(`{"py":["function_definition","class_definition"],"cpp":["ALL"]}`), 0o644))

	cfg, err := LoadIndexTypes(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Decide("py", "function_definition"))
	assert.True(t, cfg.Decide("cpp", "anything"))
}

func TestLoadIndexTypes_MissingIsFatal(t *testing.T) {
	_, err := LoadIndexTypes(t.TempDir())
	assert.Error(t, err)
}

func TestLoadIndexTypes_MalformedIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexTypesFile), []byte(`not json`), 0o644))

	_, err := LoadIndexTypes(dir)
	assert.Error(t, err)
}

func TestLoadFileTypes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileTypesFile),
		[]byte(`{"supported":["py"],"unsupported":["md"]}`), 0o644))

	cfg, err := LoadFileTypes(dir)
	require.NoError(t, err)
	assert.True(t, cfg.IsSupported("py"))
	assert.True(t, cfg.IsUnsupported("md"))
}

func TestLoadProjectDefaults_MissingIsNotAnError(t *testing.T) {
	defaults, err := LoadProjectDefaults(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", defaults.Path)
	assert.Equal(t, 0, defaults.Port)
}

func TestLoadProjectDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte("path: sample\nport: 6969\n"), 0o644))

	defaults, err := LoadProjectDefaults(dir)
	require.NoError(t, err)
	assert.Equal(t, "sample", defaults.Path)
	assert.Equal(t, 6969, defaults.Port)
}
