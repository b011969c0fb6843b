// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 127, 128, 129, 16383, 16384, 1 << 35, ^uint64(0)}
	for _, v := range values {
		buf := appendVarint(nil, v)
		if len(buf) != varintLen(v) {
			t.Errorf("varintLen(%d) = %d, want %d", v, varintLen(v), len(buf))
		}
		got, n, err := decodeVarint(buf)
		if err != nil {
			t.Fatalf("decodeVarint(%d): %v", v, err)
		}
		if n != len(buf) {
			t.Errorf("decodeVarint(%d): consumed %d bytes, want %d", v, n, len(buf))
		}
		if got != v {
			t.Errorf("decodeVarint(%d) = %d", v, got)
		}
	}
}

func TestVarintZeroByte(t *testing.T) {
	got := appendVarint(nil, 0)
	want := []byte{0x00}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("appendVarint(0) mismatch (-want +got):\n%s", diff)
	}
}

func TestVarintMultiByte(t *testing.T) {
	// 300 = 0b1_0010_1100 -> low 7 bits 0101100 with continuation, then 10
	got := appendVarint(nil, 300)
	want := []byte{0xAC, 0x02}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("appendVarint(300) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeVarintNeedsMore(t *testing.T) {
	_, n, err := decodeVarint([]byte{0x80})
	if err != nil {
		t.Fatalf("decodeVarint: unexpected error %v", err)
	}
	if n != 0 {
		t.Errorf("decodeVarint with a truncated buffer should report n=0, got %d", n)
	}
}

func TestDecodeVarintUnterminated(t *testing.T) {
	buf := make([]byte, maxVarintLen)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := decodeVarint(buf)
	if err != ErrUnterminatedVarint {
		t.Errorf("decodeVarint: got err=%v, want ErrUnterminatedVarint", err)
	}
}

func TestZigzag32(t *testing.T) {
	cases := []struct {
		n    int32
		want uint32
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2147483647, 4294967294},
		{-2147483648, 4294967295},
	}
	for _, c := range cases {
		if got := zigzag32(c.n); got != c.want {
			t.Errorf("zigzag32(%d) = %d, want %d", c.n, got, c.want)
		}
		if back := unzigzag32(c.want); back != c.n {
			t.Errorf("unzigzag32(%d) = %d, want %d", c.want, back, c.n)
		}
	}
}

func TestZigzag64(t *testing.T) {
	cases := []int64{0, -1, 1, -2, 2, 1 << 40, -(1 << 40)}
	for _, n := range cases {
		if back := unzigzag64(zigzag64(n)); back != n {
			t.Errorf("zigzag round-trip for %d produced %d", n, back)
		}
	}
}
