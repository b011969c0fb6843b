// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleMessage(t *testing.T) []byte {
	t.Helper()
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteStr(1, string(bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog, "), 8))))
	require.NoError(t, w.WriteU32(2, 12345))
	require.NoError(t, w.WriteEnd())
	return w.Bytes()
}

func TestLZ4CodecRoundTrip(t *testing.T) {
	msg := buildSampleMessage(t)
	c := NewLZ4Codec()

	compressed, err := c.Compress(msg)
	require.NoError(t, err)

	got, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestLZ4CodecEmptyInput(t *testing.T) {
	c := NewLZ4Codec()
	compressed, err := c.Compress(nil)
	require.NoError(t, err)
	assert.Nil(t, compressed)
}

func TestZstdCodecRoundTrip(t *testing.T) {
	msg := buildSampleMessage(t)
	c := NewZstdCodec()

	compressed, err := c.Compress(msg)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(msg))

	got, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestZstdCodecRejectsGarbage(t *testing.T) {
	c := NewZstdCodec()
	_, err := c.Decompress(bytes.Repeat([]byte{0xFF}, 16))
	assert.Error(t, err)
}
