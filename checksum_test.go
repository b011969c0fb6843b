// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendVerifyChecksumRoundTrip(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteU32(1, 99))
	require.NoError(t, w.WriteEnd())

	envelope := AppendChecksum(w.Bytes())
	assert.Len(t, envelope, len(w.Bytes())+checksumSize)

	msg, err := VerifyChecksum(envelope)
	require.NoError(t, err)
	assert.Equal(t, w.Bytes(), msg)
}

func TestVerifyChecksumDetectsCorruption(t *testing.T) {
	w := NewWriterBuffer(nil)
	require.NoError(t, w.WriteU32(1, 99))
	require.NoError(t, w.WriteEnd())

	envelope := AppendChecksum(w.Bytes())
	envelope[0] ^= 0xFF // corrupt the message body

	_, err := VerifyChecksum(envelope)
	assert.Error(t, err)
}

func TestVerifyChecksumTooShort(t *testing.T) {
	_, err := VerifyChecksum([]byte{1, 2, 3})
	assert.Error(t, err)
}
