// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReaderTypeMismatchFails(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteU32(1, 7))
	require.NoError(t, w.WriteEnd())

	r := NewReaderBytes(w.Bytes())
	_, err := r.ReadI32(1)
	assert.Error(t, err)
}

func TestReaderMissingRequiredFieldFails(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteU32(5, 1))
	require.NoError(t, w.WriteEnd())

	r := NewReaderBytes(w.Bytes())
	_, err := r.ReadU32(1) // no defaultNull: id=1 doesn't exist
	assert.Error(t, err)
}

func TestReaderReadNextAndTypeID(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteBool(3, true))
	require.NoError(t, w.WriteEnd())

	r := NewReaderBytes(w.Bytes())
	more, err := r.ReadNext()
	require.NoError(t, err)
	require.True(t, more)
	assert.Equal(t, TypeBool, r.ReadType())
	assert.Equal(t, uint32(3), r.ReadID())

	v, err := r.ReadBool(3)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestReaderFromStreamingSource(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteStr(1, "streamed"))
	require.NoError(t, w.WriteU64(2, 1<<40))
	require.NoError(t, w.WriteEnd())

	r := NewReader(bytes.NewReader(w.Bytes()), WithReaderBufferSize(2))
	s, err := r.ReadStr(1)
	require.NoError(t, err)
	assert.Equal(t, "streamed", s)
	u, err := r.ReadU64(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u)
}

func TestReaderUnexpectedEOF(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteStr(1, "hello"))
	require.NoError(t, w.WriteEnd())
	truncated := w.Bytes()[:len(w.Bytes())-3]

	r := NewReader(bytes.NewReader(truncated))
	_, err := r.ReadStr(1)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReaderSweepsUnreadArrayFields(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteArrayBegin(1))
	require.NoError(t, w.WriteI32(0, 1))
	require.NoError(t, w.WriteI32(0, 2))
	require.NoError(t, w.WriteStr(0, "trailing"))
	require.NoError(t, w.WriteArrayEnd())
	require.NoError(t, w.WriteEnd())

	r := NewReaderBytes(w.Bytes())
	require.NoError(t, r.ReadArrayBegin(1))
	// Don't read any elements; ReadArrayEnd must skip past all of them.
	require.NoError(t, r.ReadArrayEnd())
	more, err := r.ReadNext()
	require.NoError(t, err)
	assert.False(t, more)
}

func TestReaderReadEndDrainsNestedFrames(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteObjBegin(1))
	require.NoError(t, w.WriteU32(1, 1))
	require.NoError(t, w.WriteArrayBegin(2))
	require.NoError(t, w.WriteBool(0, true))
	require.NoError(t, w.WriteArrayEnd())
	require.NoError(t, w.WriteObjEnd())
	require.NoError(t, w.WriteEnd())

	r := NewReaderBytes(w.Bytes())
	require.NoError(t, r.ReadObjBegin(1))
	require.NoError(t, r.ReadEnd())
}

func TestDecodeVarintStandaloneEOFShape(t *testing.T) {
	// Sanity-check that readVarint on a bare io.Reader maps a genuine EOF
	// mid-varint to ErrUnexpectedEOF, matching the exact-fill contract.
	r := NewReader(bytes.NewReader([]byte{0x80}))
	_, err := r.readVarint()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReaderCloseReleasesBuffer(t *testing.T) {
	r := NewReader(io.LimitReader(bytes.NewReader(nil), 0))
	assert.NoError(t, r.Close())
}

func TestReaderLogsContainerPushPopAndFormatErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteArrayBegin(1))
	require.NoError(t, w.WriteArrayEnd())
	require.NoError(t, w.WriteEnd())

	r := NewReaderBytes(w.Bytes(), WithReaderLogger(logger))
	require.NoError(t, r.ReadArrayBegin(1))
	require.NoError(t, r.ReadArrayEnd())
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.DebugLevel).Len())

	// ReadObjEnd here is a misuse (nothing is open), which must log at error
	// level in addition to returning ErrNotInObject.
	assert.ErrorIs(t, r.ReadObjEnd(), ErrNotInObject)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}
