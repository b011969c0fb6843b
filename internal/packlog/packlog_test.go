// Copyright 2024 Matt Brandt. All Rights Reserved.

package packlog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInactiveIsNop(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Config{Active: true, Level: "not-a-level"})
	assert.Error(t, err)
}

func TestNewFileModeRequiresPath(t *testing.T) {
	_, err := New(Config{Active: true, Mode: "file"})
	assert.Error(t, err)
}

func TestNewFileMode(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{
		Active: true,
		Mode:   "file",
		File:   FileConfig{Path: filepath.Join(dir, "pack.log")},
	})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
}
