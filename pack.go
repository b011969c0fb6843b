// Copyright 2024 Matt Brandt. All Rights Reserved.

// Package pack implements a compact, typed, field-addressed binary
// serialization codec.
//
// A Pack value is a byte sequence representing a tree of typed fields
// organized into objects (keyed by small integer field IDs) and arrays
// (ordered). The encoding is optimized for sparse records: omitted fields
// cost zero bytes, small integers fit entirely within the leading tag byte,
// and default-valued fields can be elided as implicit nulls.
//
// Pack is not a general object-graph serializer. It does not support cycles,
// polymorphism by tag, or schema evolution beyond field-ID addition and
// removal, and it is not wire-compatible with Protocol Buffers despite
// superficial similarities in shape.
package pack

import (
	"fmt"
	"time"
)

// Type identifies the kind of a field. The ordinal values match the tag
// byte's high nibble and are part of the wire format.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeArray
	TypeBin
	TypeBool
	TypeI32
	TypeI64
	TypeObj
	TypePtr
	TypeStr
	TypeTime
	TypeU32
	TypeU64

	typeCount
)

// typeData describes the tag-layout category a type belongs to, per §3.1 and
// §4.1 of the format: valueMultiBit types carry a numeric value that may
// overflow the tag byte into a varint; valueSingleBit types carry exactly
// one bit of value directly in the tag; size types are followed by a varint
// length and that many raw payload bytes.
type typeData struct {
	name           string
	valueSingleBit bool
	valueMultiBit  bool
	size           bool
}

var typeTable = [typeCount]typeData{
	TypeUnknown: {name: "unknown"},
	TypeArray:   {name: "array"},
	TypeBin:     {name: "bin", valueSingleBit: true, size: true},
	TypeBool:    {name: "bool", valueSingleBit: true},
	TypeI32:     {name: "i32", valueMultiBit: true},
	TypeI64:     {name: "i64", valueMultiBit: true},
	TypeObj:     {name: "obj"},
	TypePtr:     {name: "ptr", valueMultiBit: true},
	TypeStr:     {name: "str", valueSingleBit: true, size: true},
	TypeTime:    {name: "time", valueMultiBit: true},
	TypeU32:     {name: "u32", valueMultiBit: true},
	TypeU64:     {name: "u64", valueMultiBit: true},
}

// TypeName returns the human-readable name of t, or "unknown" if t is not a
// recognized type.
func TypeName(t Type) string {
	if t >= typeCount {
		return "unknown"
	}
	return typeTable[t].name
}

func (t Type) String() string { return TypeName(t) }

func (t Type) valid() bool { return t > TypeUnknown && t < typeCount }

// kind describes which frame type a container tag opens; used by the
// container stack in frame.go.
type kind uint8

const (
	kindArray kind = iota
	kindObj
)

func (k kind) String() string {
	if k == kindArray {
		return "array"
	}
	return "object"
}

// tagTerminator is the single zero byte that closes every container,
// including the implicit outermost object (§3.4 invariant 1, §4.1).
const tagTerminator = 0x00

// idAbsent and idEnd are the two sentinel lookahead IDs: idAbsent ("no
// lookahead, parse on demand") mirrors the spec's tagNextId == 0, though the
// Reader tracks an empty lookahead with its haveTag flag and never uses
// idAbsent; idEnd ("lookahead observed a container terminator") mirrors
// tagNextId == 0xFFFFFFFF. idSweep is the out-of-band ID used internally by
// arrayEnd/objEnd to sweep remaining fields (§4.3.2).
const (
	idAbsent uint32 = 0
	idSweep  uint32 = 0xFFFFFFFE
	idEnd    uint32 = 0xFFFFFFFF
)

func fmtFieldErr(format string, args ...any) error {
	return newFormatError(fmt.Sprintf(format, args...))
}

// Ptr is an opaque in-process pointer-sized handle (§3.1). It is encoded as
// an unsigned 64-bit value, like U64 (no zigzag mapping), and exists to round-trip process-local
// identities (e.g. pointer-keyed caches); the bit pattern it carries is
// never meaningful across process boundaries and Pack makes no attempt to
// relocate or validate it.
type Ptr uint64

// Time is a Pack Time field: a signed count of seconds, matching the
// format's single 64-bit zigzag-encoded field (§3.1). It deliberately does
// not carry sub-second precision or a timezone, mirroring the wire format
// rather than time.Time.
type Time struct {
	seconds int64
}

// TimeFromStd converts a time.Time to a Time, truncating to whole seconds.
func TimeFromStd(t time.Time) Time { return Time{seconds: t.Unix()} }

// ToStd converts back to a time.Time in UTC.
func (t Time) ToStd() time.Time { return time.Unix(t.seconds, 0).UTC() }

// Seconds returns the raw signed second count.
func (t Time) Seconds() int64 { return t.seconds }
