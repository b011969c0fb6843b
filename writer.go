// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"io"

	"go.uber.org/zap"

	"github.com/mbrt/pack/internal/bufpool"
	"github.com/mbrt/pack/internal/popt"
)

// Writer builds a Pack byte stream one field at a time (§4.4). It mirrors
// Reader's container-stack bookkeeping and null-elision accounting so that
// a Writer and a Reader driven by the same field-call sequence always
// agree on field IDs.
//
// A Writer is not safe for concurrent use, matching Reader.
type Writer struct {
	sink io.Writer // nil: buffer-only mode, Bytes() retrieves the result
	buf  *bufpool.Buffer

	st *stack

	bufSize int
	logger  *zap.Logger
	pooled  bool
}

// NewWriter constructs a Writer that flushes completed bytes to sink as it
// goes, retaining only an internal working buffer. The buffer comes from
// the shared bufpool.Pool (§4.4.3), the same reuse as NewReader.
func NewWriter(sink io.Writer, opts ...WriterOpt) *Writer {
	w := newWriter()
	w.sink = sink
	applyWriterOpts(w, opts)
	w.buf = bufpool.Get()
	w.buf.Reserve(w.bufSize)
	w.pooled = true
	return w
}

// NewWriterBuffer constructs a Writer that accumulates its entire output in
// memory, retrievable via Bytes. A nil buf starts from a pooled internal
// buffer; a non-nil buf is appended to in place, continuing its existing
// contents (this subsumes the format's separate "owned" vs "borrowed"
// buffer constructors: Go's append already does the right thing for both).
func NewWriterBuffer(buf []byte, opts ...WriterOpt) *Writer {
	w := newWriter()
	applyWriterOpts(w, opts)
	if buf == nil {
		w.buf = bufpool.Get()
		w.buf.Reserve(w.bufSize)
		w.pooled = true
	} else {
		w.buf = &bufpool.Buffer{B: buf}
	}
	return w
}

func newWriter() *Writer {
	return &Writer{
		st:      newStack(),
		bufSize: bufpool.DefaultSize,
	}
}

func applyWriterOpts(w *Writer, opts []WriterOpt) {
	_ = popt.Apply(w, opts...)
}

// logDebug emits a container push/pop diagnostic (§A) when a logger is
// configured; nil logger (the default) is a no-op checked once per call.
func (w *Writer) logDebug(msg string, fields ...zap.Field) {
	if w.logger != nil {
		w.logger.Debug(msg, fields...)
	}
}

// logError emits a format-error diagnostic (§A) when a logger is configured.
func (w *Writer) logError(msg string, err error) {
	if w.logger != nil {
		w.logger.Error(msg, zap.Error(err))
	}
}

// Close flushes any buffered bytes to the sink (if any) and releases the
// pooled internal buffer.
func (w *Writer) Close() error {
	if w.sink != nil {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if w.pooled && w.buf != nil {
		bufpool.Put(w.buf)
		w.buf = nil
	}
	return nil
}

// Bytes returns the accumulated output. It is only meaningful for a Writer
// constructed with NewWriterBuffer; a sink-backed Writer has already
// flushed its bytes elsewhere and Bytes returns only what remains
// unflushed.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// flush writes the buffer's contents to the sink and empties it.
func (w *Writer) flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	if _, err := w.sink.Write(w.buf.Bytes()); err != nil {
		return err
	}
	w.buf.Reset()
	return nil
}

// writeBytes appends data to the working buffer, implementing the format's
// dual-mode buffering rule (§4.4.3): in no-sink (buffer-only) mode it grows
// greedily; in sink mode it flushes first if data would not otherwise fit,
// then appends, or writes straight through for chunks too big to buffer
// profitably.
func (w *Writer) writeBytes(data []byte) error {
	if w.sink == nil {
		w.buf.Grow(len(data))
		w.buf.Append(data)
		return nil
	}
	if w.buf.Fits(len(data)) {
		w.buf.Append(data)
		return nil
	}
	if err := w.flush(); err != nil {
		return err
	}
	if len(data) >= w.bufSize {
		_, err := w.sink.Write(data)
		return err
	}
	w.buf.Append(data)
	return nil
}

func (w *Writer) writeByte(b byte) error { return w.writeBytes([]byte{b}) }

func (w *Writer) writeVarint(v uint64) error {
	var tmp [maxVarintLen]byte
	return w.writeBytes(appendVarint(tmp[:0], v))
}

// resolveID is the Writer analogue of Reader.resolveID: id=0 means "next in
// sequence"; any explicit id must strictly exceed the last one written in
// the current frame.
func (w *Writer) resolveID(id uint32) uint32 {
	top := w.st.top()
	if id == 0 {
		return top.idLast + top.nullTotal + 1
	}
	assertf(id > top.idLast+top.nullTotal, "field %d was already written", id)
	return id
}

// elideIfDefault implements the null-elision rule (§4.4.2): when
// defaultNull is set and the value being written equals the configured
// default, nothing is emitted. nullTotal records how many IDs since idLast
// have now been virtually claimed, purely so that the next auto-numbered
// (id=0) write and the "already written" bound skip past them; idLast
// itself is left untouched, since the wire delta of the next REAL field
// must still be measured from the last field actually written, not from
// an elided one.
func (w *Writer) elideIfDefault(id uint32, elide bool) bool {
	if !elide {
		return false
	}
	top := w.st.top()
	top.nullTotal = id - top.idLast
	return true
}

// writeTag emits the tag byte (and any ID-delta/value overflow varints) for
// a field, mirroring the original's pckWriteTag bit-for-bit (§4.1, §8.3).
func (w *Writer) writeTag(id uint32, t Type, value uint64) error {
	top := w.st.top()
	delta := id - top.idLast - 1
	td := typeTable[t]

	var tag byte
	switch {
	case td.valueMultiBit:
		if value <= 1 {
			tag = byte(t) << 4
			tag |= byte(value&0x1) << 2
			more := delta > 1
			if more {
				tag |= 0x2
			}
			tag |= byte(delta & 0x1)
			if err := w.writeByte(tag); err != nil {
				return err
			}
			if more {
				return w.writeVarint(uint64(delta >> 1))
			}
			return nil
		}
		tag = byte(t)<<4 | 0x8
		more := delta >= 4
		if more {
			tag |= 0x4
		}
		tag |= byte(delta & 0x3)
		if err := w.writeByte(tag); err != nil {
			return err
		}
		if more {
			if err := w.writeVarint(uint64(delta >> 2)); err != nil {
				return err
			}
		}
		return w.writeVarint(value)
	case td.valueSingleBit:
		tag = byte(t)<<4 | byte(value&0x1)<<3
		more := delta >= 4
		if more {
			tag |= 0x4
		}
		tag |= byte(delta & 0x3)
		if err := w.writeByte(tag); err != nil {
			return err
		}
		if more {
			return w.writeVarint(uint64(delta >> 2))
		}
		return nil
	default: // container
		tag = byte(t) << 4
		more := delta >= 8
		if more {
			tag |= 0x8
		}
		tag |= byte(delta & 0x7)
		if err := w.writeByte(tag); err != nil {
			return err
		}
		if more {
			return w.writeVarint(uint64(delta >> 3))
		}
		return nil
	}
}

// advance records id as the frame's new idLast after a successful write.
func (w *Writer) advance(id uint32) {
	top := w.st.top()
	top.idLast = id
	top.nullTotal = 0
}

// WriteNull explicitly elides id, equivalent to any typed write whose value
// matches a Null()-configured default.
func (w *Writer) WriteNull(id uint32) {
	id = w.resolveID(id)
	w.elideIfDefault(id, true)
}

// WriteBool writes a Bool field.
func (w *Writer) WriteBool(id uint32, v bool, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defBool {
		w.elideIfDefault(id, true)
		return nil
	}
	val := uint64(0)
	if v {
		val = 1
	}
	if err := w.writeTag(id, TypeBool, val); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WriteBin writes a Bin field. A nil v elides when DefaultBin(nil) (or
// Null()) is supplied; otherwise nil and an empty non-nil slice both
// encode as a zero-length blob (§8.2's law).
func (w *Writer) WriteBin(id uint32, v []byte, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && bytesEqual(v, o.defBin) {
		w.elideIfDefault(id, true)
		return nil
	}
	val := uint64(0)
	if len(v) > 0 {
		val = 1
	}
	if err := w.writeTag(id, TypeBin, val); err != nil {
		return err
	}
	if val == 1 {
		if err := w.writeVarint(uint64(len(v))); err != nil {
			return err
		}
		if err := w.writeBytes(v); err != nil {
			return err
		}
	}
	w.advance(id)
	return nil
}

// WriteStr writes a Str field; see WriteBin for the empty-vs-elided rule.
func (w *Writer) WriteStr(id uint32, v string, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defStr {
		w.elideIfDefault(id, true)
		return nil
	}
	val := uint64(0)
	if len(v) > 0 {
		val = 1
	}
	if err := w.writeTag(id, TypeStr, val); err != nil {
		return err
	}
	if val == 1 {
		if err := w.writeVarint(uint64(len(v))); err != nil {
			return err
		}
		if err := w.writeBytes([]byte(v)); err != nil {
			return err
		}
	}
	w.advance(id)
	return nil
}

// WriteI32 writes an I32 field, zigzag-mapping v (§4.2).
func (w *Writer) WriteI32(id uint32, v int32, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defI32 {
		w.elideIfDefault(id, true)
		return nil
	}
	if err := w.writeTag(id, TypeI32, uint64(zigzag32(v))); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WriteI64 is the 64-bit analogue of WriteI32.
func (w *Writer) WriteI64(id uint32, v int64, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defI64 {
		w.elideIfDefault(id, true)
		return nil
	}
	if err := w.writeTag(id, TypeI64, zigzag64(v)); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WriteU32 writes a U32 field.
func (w *Writer) WriteU32(id uint32, v uint32, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defU32 {
		w.elideIfDefault(id, true)
		return nil
	}
	if err := w.writeTag(id, TypeU32, uint64(v)); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WriteU64 writes a U64 field.
func (w *Writer) WriteU64(id uint32, v uint64, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defU64 {
		w.elideIfDefault(id, true)
		return nil
	}
	if err := w.writeTag(id, TypeU64, v); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WriteTime writes a Time field.
func (w *Writer) WriteTime(id uint32, v Time, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == TimeFromStd(o.defTime) {
		w.elideIfDefault(id, true)
		return nil
	}
	if err := w.writeTag(id, TypeTime, zigzag64(v.seconds)); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WritePtr writes a Ptr field.
func (w *Writer) WritePtr(id uint32, v Ptr, opts ...FieldOpt) error {
	o := applyFieldOpts(opts)
	id = w.resolveID(id)
	if o.defaultNull && v == o.defPtr {
		w.elideIfDefault(id, true)
		return nil
	}
	if err := w.writeTag(id, TypePtr, uint64(v)); err != nil {
		return err
	}
	w.advance(id)
	return nil
}

// WriteArrayBegin opens an Array field at id and pushes a new array frame.
func (w *Writer) WriteArrayBegin(id uint32) error {
	id = w.resolveID(id)
	if err := w.writeTag(id, TypeArray, 0); err != nil {
		return err
	}
	w.advance(id)
	w.st.push(kindArray)
	w.logDebug("pack: array begin", zap.Uint32("id", id), zap.Int("depth", w.st.depth()))
	return nil
}

// WriteObjBegin opens an Object field at id and pushes a new object frame.
func (w *Writer) WriteObjBegin(id uint32) error {
	id = w.resolveID(id)
	if err := w.writeTag(id, TypeObj, 0); err != nil {
		return err
	}
	w.advance(id)
	w.st.push(kindObj)
	w.logDebug("pack: object begin", zap.Uint32("id", id), zap.Int("depth", w.st.depth()))
	return nil
}

// WriteArrayEnd closes the current array frame, emitting its terminator.
func (w *Writer) WriteArrayEnd() error {
	if w.st.atOutermost() || w.st.top().k != kindArray {
		err := ErrNotInArray
		w.logError("pack: array end outside array", err)
		return err
	}
	if err := w.writeByte(tagTerminator); err != nil {
		return err
	}
	w.st.pop()
	w.logDebug("pack: array end", zap.Int("depth", w.st.depth()))
	return nil
}

// WriteObjEnd is the object analogue of WriteArrayEnd.
func (w *Writer) WriteObjEnd() error {
	if w.st.atOutermost() || w.st.top().k != kindObj {
		err := ErrNotInObject
		w.logError("pack: object end outside object", err)
		return err
	}
	if err := w.writeByte(tagTerminator); err != nil {
		return err
	}
	w.st.pop()
	w.logDebug("pack: object end", zap.Int("depth", w.st.depth()))
	return nil
}

// WriteEnd closes every remaining frame, including the implicit outermost
// object, and (for a sink-backed Writer) flushes the result.
func (w *Writer) WriteEnd() error {
	for w.st.depth() > 0 {
		if err := w.writeByte(tagTerminator); err != nil {
			return err
		}
		w.st.frames = w.st.frames[:len(w.st.frames)-1]
	}
	if w.sink != nil {
		return w.flush()
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
