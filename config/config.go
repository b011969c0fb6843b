// Copyright 2024 Matt Brandt. All Rights Reserved.

// Package config loads the ambient settings for a Pack-based service:
// buffer sizing and diagnostic logging. It is adapted from a yaml-tagged
// settings struct elsewhere in the retrieval pack, trimmed to the handful
// of knobs this codec itself exposes; an application embedding Pack is
// expected to embed Config into its own, larger configuration struct.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbrt/pack"
	"github.com/mbrt/pack/internal/packlog"
)

// Config holds the settings needed to construct Readers and Writers with
// consistent buffering and logging across a process.
type Config struct {
	ReaderBufferSize int             `yaml:"readerBufferSize"`
	WriterBufferSize int             `yaml:"writerBufferSize"`
	Logger           packlog.Config  `yaml:"logger"`
	Compression      CompressionKind `yaml:"compression"`
}

// CompressionKind names which Compressor/Decompressor pair to use when a
// service stores or transmits Pack messages compressed.
type CompressionKind string

const (
	CompressionNone CompressionKind = ""
	CompressionLZ4  CompressionKind = "lz4"
	CompressionZstd CompressionKind = "zstd"
)

// Load reads and parses a YAML config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ReaderOpts translates Config into the functional options NewReader
// expects.
func (c Config) ReaderOpts() ([]pack.ReaderOpt, error) {
	logger, err := packlog.New(c.Logger)
	if err != nil {
		return nil, err
	}
	opts := []pack.ReaderOpt{pack.WithReaderLogger(logger)}
	if c.ReaderBufferSize > 0 {
		opts = append(opts, pack.WithReaderBufferSize(c.ReaderBufferSize))
	}
	return opts, nil
}

// WriterOpts is the Writer analogue of ReaderOpts.
func (c Config) WriterOpts() ([]pack.WriterOpt, error) {
	logger, err := packlog.New(c.Logger)
	if err != nil {
		return nil, err
	}
	opts := []pack.WriterOpt{pack.WithWriterLogger(logger)}
	if c.WriterBufferSize > 0 {
		opts = append(opts, pack.WithWriterBufferSize(c.WriterBufferSize))
	}
	return opts, nil
}

// Codec resolves the configured compression algorithm, if any. A nil Codec
// (ok=false) means CompressionNone.
func (c Config) Codec() (codec pack.Codec, ok bool) {
	switch c.Compression {
	case CompressionLZ4:
		return pack.NewLZ4Codec(), true
	case CompressionZstd:
		return pack.NewZstdCodec(), true
	default:
		return nil, false
	}
}
