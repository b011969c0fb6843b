// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

// Varints are little-endian base-128 encoded: each byte contributes seven
// bits, with the high bit of each byte signaling continuation. The encoding
// never exceeds ten bytes, since ten groups of seven bits cover a full
// uint64 with room to spare (§4.2).
const maxVarintLen = 10

// appendVarint appends the base-128 encoding of v to buf and returns the
// extended slice.
func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// varintLen reports the number of bytes appendVarint would emit for v.
func varintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// decodeVarint decodes a base-128 varint from the front of buf, returning
// the value and the number of bytes consumed. It fails with
// ErrUnterminatedVarint if the tenth byte still carries the continuation
// bit, and reports n=0 with a nil error (caller supplies more bytes) if buf
// runs out before a terminating byte is seen.
func decodeVarint(buf []byte) (v uint64, n int, err error) {
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if i == maxVarintLen-1 && b >= 0x80 {
			return 0, 0, ErrUnterminatedVarint
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, nil // need more input
}

// zigzag32 maps a signed 32-bit value to an unsigned one so that small
// magnitudes (positive or negative) encode as small unsigned values (§4.2,
// GLOSSARY "Zig-zag").
func zigzag32(n int32) uint32 { return uint32(n<<1) ^ uint32(n>>31) }

func unzigzag32(u uint32) int32 { return int32(u>>1) ^ -int32(u&1) }

func zigzag64(n int64) uint64 { return uint64(n<<1) ^ uint64(n>>63) }

func unzigzag64(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }
