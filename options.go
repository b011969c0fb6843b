// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"time"

	"go.uber.org/zap"

	"github.com/mbrt/pack/internal/popt"
)

// fieldOpts carries the defaultNull/defaultValue knobs shared by every typed
// read and write operation (§6.4's "Per-type read/write" signatures). A
// single option type serves both directions: on a read it supplies the
// value to return when the field is absent; on a write it supplies the
// value that, if matched, causes the field to be elided (§4.4.2's elision
// rule).
type fieldOpts struct {
	defaultNull bool
	defBool     bool
	defU32      uint32
	defU64      uint64
	defI32      int32
	defI64      int64
	defTime     time.Time
	defPtr      Ptr
	defBin      []byte
	defStr      string
}

// FieldOpt configures a single typed read or write call.
type FieldOpt func(*fieldOpts)

func applyFieldOpts(opts []FieldOpt) fieldOpts {
	var o fieldOpts
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Null marks a field as eligible for null-elision (on write) or as
// returning the type's zero value when absent (on read), without supplying
// an explicit non-zero default. For Time the default is
// TimeFromStd(time.Time{}), not Time{}.
func Null() FieldOpt { return func(o *fieldOpts) { o.defaultNull = true } }

// DefaultBool supplies the default value used when a Bool field is absent
// (read) or elided when it equals v (write).
func DefaultBool(v bool) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defBool = v }
}

// DefaultU32 is the U32 analogue of DefaultBool.
func DefaultU32(v uint32) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defU32 = v }
}

// DefaultU64 is the U64 analogue of DefaultBool.
func DefaultU64(v uint64) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defU64 = v }
}

// DefaultI32 is the I32 analogue of DefaultBool.
func DefaultI32(v int32) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defI32 = v }
}

// DefaultI64 is the I64 analogue of DefaultBool.
func DefaultI64(v int64) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defI64 = v }
}

// DefaultTime is the Time analogue of DefaultBool.
func DefaultTime(v time.Time) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defTime = v }
}

// DefaultPtr is the Ptr analogue of DefaultBool.
func DefaultPtr(v Ptr) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defPtr = v }
}

// DefaultBin supplies the default/elision value for a Bin field. A nil v
// (the zero value) means "absent reads as a nil blob", matching spec.md's
// "or null for reference types".
func DefaultBin(v []byte) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defBin = v }
}

// DefaultStr is the Str analogue of DefaultBin.
func DefaultStr(v string) FieldOpt {
	return func(o *fieldOpts) { o.defaultNull = true; o.defStr = v }
}

// ReaderOpt and WriterOpt configure Reader/Writer construction (buffer
// sizing, diagnostic logging). They reuse the generic functional-option
// pattern in internal/popt rather than duplicating it per type.
type ReaderOpt = popt.Option[*Reader]
type WriterOpt = popt.Option[*Writer]

// WithReaderBufferSize sets how many bytes NewReader's Reader requests from
// its source per refill, and the minimum capacity of its pooled internal
// buffer (a pooled buffer that is already larger is kept as is). The
// default is bufpool.DefaultSize.
func WithReaderBufferSize(n int) ReaderOpt {
	return popt.NoError[*Reader](func(r *Reader) { r.bufSize = n })
}

// WithReaderLogger attaches a zap logger used for debug-level diagnostics
// (container push/pop, format errors). A nil logger (the default) disables
// diagnostic logging entirely.
func WithReaderLogger(l *zap.Logger) ReaderOpt {
	return popt.NoError[*Reader](func(r *Reader) { r.logger = l })
}

// WithWriterBufferSize sets the minimum capacity of the Writer's pooled
// internal buffer (a pooled buffer that is already larger is kept as is)
// and, for a sink-backed Writer, the size from which a chunk that does not
// fit is written straight to the sink. The default is bufpool.DefaultSize.
func WithWriterBufferSize(n int) WriterOpt {
	return popt.NoError[*Writer](func(w *Writer) { w.bufSize = n })
}

// WithWriterLogger is the Writer analogue of WithReaderLogger.
func WithWriterLogger(l *zap.Logger) WriterOpt {
	return popt.NoError[*Writer](func(w *Writer) { w.logger = l })
}
