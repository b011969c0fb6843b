// Copyright 2024 Matt Brandt. All Rights Reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbrt/pack"
)

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	const yaml = `
readerBufferSize: 8192
writerBufferSize: 4096
compression: zstd
logger:
  active: true
  level: debug
  encoding: console
  mode: stdout
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.ReaderBufferSize)
	assert.Equal(t, 4096, cfg.WriterBufferSize)
	assert.Equal(t, CompressionZstd, cfg.Compression)
	assert.True(t, cfg.Logger.Active)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pack.yaml")
	assert.Error(t, err)
}

func TestReaderWriterOptsBuildWithoutError(t *testing.T) {
	cfg := Config{ReaderBufferSize: 1024, WriterBufferSize: 2048}
	ropts, err := cfg.ReaderOpts()
	require.NoError(t, err)
	assert.Len(t, ropts, 2)

	wopts, err := cfg.WriterOpts()
	require.NoError(t, err)
	assert.Len(t, wopts, 2)
}

func TestCodecResolution(t *testing.T) {
	cfg := Config{Compression: CompressionLZ4}
	codec, ok := cfg.Codec()
	require.True(t, ok)
	assert.IsType(t, pack.LZ4Codec{}, codec)

	none := Config{}
	_, ok = none.Codec()
	assert.False(t, ok)
}
