// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// checksumSize is the width of the trailing checksum appended by
// AppendChecksum: an 8-byte little-endian xxHash64 digest of everything
// preceding it.
const checksumSize = 8

// AppendChecksum appends an xxHash64 digest of msg to itself, producing a
// self-verifying envelope around a complete Pack message (§7's storage
// note). This is a whole-message checksum rather than a streaming one: the
// caller is expected to have a complete WriteEnd'd buffer in hand, which is
// the common case for Pack messages held in memory or written to a single
// file.
func AppendChecksum(msg []byte) []byte {
	sum := xxhash.Sum64(msg)
	out := make([]byte, 0, len(msg)+checksumSize)
	out = append(out, msg...)
	return binary.LittleEndian.AppendUint64(out, sum)
}

// VerifyChecksum splits a buffer produced by AppendChecksum back into its
// message body, validating the trailing digest. It returns an error if buf
// is shorter than a checksum or the digest does not match.
func VerifyChecksum(buf []byte) (msg []byte, err error) {
	if len(buf) < checksumSize {
		return nil, fmt.Errorf("pack: checksum: buffer too short (%d bytes)", len(buf))
	}
	split := len(buf) - checksumSize
	msg, trailer := buf[:split], buf[split:]
	want := binary.LittleEndian.Uint64(trailer)
	got := xxhash.Sum64(msg)
	if got != want {
		return nil, fmt.Errorf("pack: checksum: mismatch (want %x, got %x)", want, got)
	}
	return msg, nil
}
