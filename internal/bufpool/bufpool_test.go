// Copyright 2024 Matt Brandt. All Rights Reserved.

package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer(t *testing.T) {
	b := New(16)
	require.NotNil(t, b)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 16, b.Cap())
}

func TestBufferAppendAndReset(t *testing.T) {
	b := New(4)
	b.Append([]byte("hello"))
	assert.Equal(t, []byte("hello"), b.Bytes())

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestBufferGrow(t *testing.T) {
	b := New(2)
	b.Grow(100)
	assert.True(t, b.Fits(100))
}

func TestPoolGetPutDiscardsOversized(t *testing.T) {
	p := NewPool(8, 16)
	b := p.Get()
	b.Grow(1000)
	p.Put(b) // exceeds maxThreshold, should be discarded not pooled

	b2 := p.Get()
	assert.LessOrEqual(t, b2.Cap(), 16)
}

func TestPackageLevelPool(t *testing.T) {
	b := Get()
	require.NotNil(t, b)
	b.Append([]byte("x"))
	Put(b)
}
