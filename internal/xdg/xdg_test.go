// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/safeconnect", ConfigDir())
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	assert.Equal(t, "/home/testuser/.config/safeconnect", ConfigDir())
}

func TestDefaultConfigFile_Missing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := DefaultConfigFile()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestDefaultConfigFile_Present(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	dir := filepath.Join(base, "safeconnect")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	want := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(want, []byte("log:\n  level: debug\n"), 0o600))

	path, err := DefaultConfigFile()
	require.NoError(t, err)
	assert.Equal(t, want, path)
}

func TestDefaultConfigFile_Directory(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "safeconnect", ConfigFileName), 0o700))

	_, err := DefaultConfigFile()
	assert.Error(t, err)
}
