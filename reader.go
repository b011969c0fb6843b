// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/mbrt/pack/internal/bufpool"
	"github.com/mbrt/pack/internal/popt"
)

// Reader parses a Pack byte stream into typed field reads (§4.3). It is a
// straight-line pull parser with a one-tag lookahead; it maintains the
// container stack (§3.3) and the lookahead state machine (§4.5) described
// by the format.
//
// A Reader is not safe for concurrent use (§5): it belongs to exactly one
// goroutine for its entire lifetime. Any error returned by the underlying
// io.Reader, or any *FormatError, poisons the Reader — its internal state
// is undefined for further use and the instance must be discarded.
type Reader struct {
	src io.Reader // nil when reading from a pre-filled buffer
	buf *bufpool.Buffer
	pos int // read cursor into buf.B[:filled]

	haveTag  bool // EMPTY (false) vs LOADED/TERMINATED (true)
	tagID    uint32
	tagType  Type
	tagValue uint64

	st *stack

	bufSize int
	logger  *zap.Logger
	pooled  bool
}

// NewReader constructs a Reader that pulls bytes from src as needed. Its
// internal buffer comes from the shared bufpool.Pool (§4.3.3): a busy
// service that constructs and Closes many Readers reuses backing arrays
// instead of allocating one per call.
func NewReader(src io.Reader, opts ...ReaderOpt) *Reader {
	r := newReader()
	r.src = src
	applyReaderOpts(r, opts)
	r.buf = bufpool.Get()
	r.buf.Reserve(r.bufSize)
	r.pooled = true
	return r
}

// NewReaderBytes constructs a Reader whose entire input is already resident
// in data. No further I/O is performed; requesting more bytes than data
// contains raises ErrUnexpectedEOF.
func NewReaderBytes(data []byte, opts ...ReaderOpt) *Reader {
	r := newReader()
	applyReaderOpts(r, opts)
	r.buf = &bufpool.Buffer{B: data}
	r.pos = 0
	return r
}

func newReader() *Reader {
	return &Reader{
		st:      newStack(),
		bufSize: bufpool.DefaultSize,
	}
}

// logDebug emits a container push/pop diagnostic (§A) when a logger is
// configured; nil logger (the default) is a no-op checked once per call.
func (r *Reader) logDebug(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Debug(msg, fields...)
	}
}

// logError emits a format-error diagnostic (§A) when a logger is configured.
func (r *Reader) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, zap.Error(err))
	}
}

func applyReaderOpts(r *Reader, opts []ReaderOpt) {
	// ReaderOpt never fails in practice (see internal/popt.NoError); the
	// error return exists so popt.Apply can compose with fallible options
	// in the future.
	_ = popt.Apply(r, opts...)
}

// Close releases the Reader's internal buffer back to the shared pool. It
// is optional: a Reader that is simply dropped is collected normally. Close
// is not required by the format itself (§6.4 names no such operation) but
// follows Go's io.Closer idiom for the pooled-buffer ambient concern
// described in SPEC_FULL.md.
func (r *Reader) Close() error {
	if r.pooled && r.buf != nil {
		bufpool.Put(r.buf)
		r.buf = nil
	}
	return nil
}

// ioErr maps an io.Reader short-read into the spec's exact-fill contract
// (§9's Open question resolution): any EOF, expected or not, becomes
// ErrUnexpectedEOF. Any other error from the source propagates unchanged
// (§5's I/O failure model).
func ioErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}
	return err
}

// fillBuffer ensures at least one byte is resident at r.pos, topping up
// from r.src by reading up to n bytes (capped by buffer capacity) when the
// resident window is exhausted (§4.3.3).
func (r *Reader) fillBuffer(n int) error {
	if r.pos < len(r.buf.B) {
		return nil
	}
	if r.src == nil {
		return ErrUnexpectedEOF
	}
	size := n
	if r.buf.Cap() > 0 && size > r.buf.Cap() {
		size = r.buf.Cap()
	}
	r.buf.B = r.buf.B[:size]
	got, err := io.ReadFull(r.src, r.buf.B)
	if err != nil {
		if got == 0 {
			return ioErr(err)
		}
		// A short-but-nonzero read is the tail of the stream: the bytes it
		// delivered are kept, and EOF surfaces on the next refill. Any other
		// error from the source propagates unchanged.
		if errors.Is(err, io.ErrUnexpectedEOF) {
			r.buf.B = r.buf.B[:got]
			r.pos = 0
			return nil
		}
		return ioErr(err)
	}
	r.buf.B = r.buf.B[:got]
	r.pos = 0
	return nil
}

func (r *Reader) readByte() (byte, error) {
	if r.pos >= len(r.buf.B) {
		if err := r.fillBuffer(r.bufSize); err != nil {
			return 0, err
		}
	}
	b := r.buf.B[r.pos]
	r.pos++
	return b, nil
}

// readRaw reads exactly n raw payload bytes (a Bin/Str body), first
// draining the resident buffer and then, if more is needed and a source is
// present, reading the remainder directly from it.
func (r *Reader) readRaw(n int) ([]byte, error) {
	out := make([]byte, n)
	avail := len(r.buf.B) - r.pos
	if avail >= n {
		copy(out, r.buf.B[r.pos:r.pos+n])
		r.pos += n
		return out, nil
	}
	copy(out, r.buf.B[r.pos:])
	got := avail
	r.pos = len(r.buf.B)
	if n == got {
		return out, nil
	}
	if r.src == nil {
		return nil, ErrUnexpectedEOF
	}
	if _, err := io.ReadFull(r.src, out[got:]); err != nil {
		return nil, ioErr(err)
	}
	return out, nil
}

// readVarint decodes a base-128 varint from the stream (§4.2), consuming up
// to maxVarintLen bytes.
func (r *Reader) readVarint() (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < maxVarintLen; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if i == maxVarintLen-1 && b >= 0x80 {
			return 0, ErrUnterminatedVarint
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
	}
	return 0, ErrUnterminatedVarint
}

// readTagNext parses the next tag into the lookahead if it is currently
// empty (§4.5's EMPTY -> LOADED/TERMINATED transition).
func (r *Reader) readTagNext() error {
	if r.haveTag {
		return nil
	}
	b, err := r.readByte()
	if err != nil {
		return err
	}
	if b == tagTerminator {
		r.tagID = idEnd
		r.haveTag = true
		return nil
	}
	t := Type(b >> 4)
	if !t.valid() {
		err := fmtFieldErr("unknown field type %d", b>>4)
		r.logError("pack: unrecognized tag", err)
		return err
	}
	td := typeTable[t]

	var id uint32
	var val uint64
	switch {
	case td.valueMultiBit:
		if b&0x8 != 0 {
			id = uint32(b & 0x3)
			if b&0x4 != 0 {
				hi, err := r.readVarint()
				if err != nil {
					return err
				}
				id |= uint32(hi) << 2
			}
			val, err = r.readVarint()
			if err != nil {
				return err
			}
		} else {
			id = uint32(b & 0x1)
			if b&0x2 != 0 {
				hi, err := r.readVarint()
				if err != nil {
					return err
				}
				id |= uint32(hi) << 1
			}
			val = uint64((b >> 2) & 0x1)
		}
	case td.valueSingleBit:
		id = uint32(b & 0x3)
		if b&0x4 != 0 {
			hi, err := r.readVarint()
			if err != nil {
				return err
			}
			id |= uint32(hi) << 2
		}
		val = uint64((b >> 3) & 0x1)
	default: // container
		id = uint32(b & 0x7)
		if b&0x8 != 0 {
			hi, err := r.readVarint()
			if err != nil {
				return err
			}
			id |= uint32(hi) << 3
		}
	}

	r.tagID = id + r.st.top().idLast + 1
	r.tagType = t
	r.tagValue = val
	r.haveTag = true
	return nil
}

// resolveID turns the caller's id=0 ("next in sequence") into a concrete
// field ID, and asserts the strictly-ascending contract otherwise (§4.3.2's
// precondition).
func (r *Reader) resolveID(id uint32) uint32 {
	top := r.st.top()
	if id == 0 {
		return top.idLast + 1
	}
	assertf(id > top.idLast, "field %d was already read", id)
	return id
}

// matchTag is the core of every read operation (§4.3.2). It skips past
// fields with ID less than id, discarding their payload bytes if sized, and
// then either matches id exactly (found=true) or determines id is absent
// (found=false, only legal when peek is set).
//
// peek=true additionally leaves the lookahead untouched on a match (used by
// readNull/arrayEnd/objEnd/readEnd, which must not consume the field they
// are only checking the position of).
func (r *Reader) matchTag(id uint32, t Type, peek bool) (value uint64, found bool, err error) {
	top := r.st.top()
	for {
		if !r.haveTag {
			if err := r.readTagNext(); err != nil {
				return 0, false, err
			}
		}
		switch {
		case id < r.tagID:
			if !peek {
				err := fmtFieldErr("field %d does not exist", id)
				r.logError("pack: field lookup miss", err)
				return 0, false, err
			}
			return 0, false, nil
		case id == r.tagID:
			if !peek {
				if r.tagType != t {
					err := fmtFieldErr(
						"field %d is type '%s' but expected '%s'", r.tagID, TypeName(r.tagType), TypeName(t))
					r.logError("pack: field type mismatch", err)
					return 0, false, err
				}
				top.idLast = r.tagID
				r.haveTag = false
			}
			return r.tagValue, true, nil
		default: // id > r.tagID: this field is being skipped over
			if typeTable[r.tagType].size && r.tagValue != 0 {
				size, err := r.readVarint()
				if err != nil {
					return 0, false, err
				}
				if _, err := r.readRaw(int(size)); err != nil {
					return 0, false, err
				}
			}
			top.idLast = r.tagID
			r.haveTag = false
		}
	}
}

// checkDefaultNull implements the defaultNull/defaultValue contract shared
// by every typed read (§4.3.2): when defaultNull is requested and the field
// is absent, it marks id consumed (so the next id=0 read continues past it)
// and reports absent=true so the caller returns its default without a
// further match.
func (r *Reader) checkDefaultNull(id uint32, defaultNull bool) (absent bool, err error) {
	if !defaultNull {
		return false, nil
	}
	_, found, err := r.matchTag(id, TypeUnknown, true)
	if err != nil {
		return false, err
	}
	if !found {
		r.st.top().idLast = id
		return true, nil
	}
	return false, nil
}

// ReadNull peeks whether id is absent (a "null" field) without consuming
// it (§4.3.2).
func (r *Reader) ReadNull(id uint32) (bool, error) {
	id = r.resolveID(id)
	_, found, err := r.matchTag(id, TypeUnknown, true)
	if err != nil {
		return false, err
	}
	return !found, nil
}

// ReadNext forces a tag lookahead parse and reports whether a non-terminator
// field follows (§4.3.2).
func (r *Reader) ReadNext() (bool, error) {
	if err := r.readTagNext(); err != nil {
		return false, err
	}
	return r.tagID != idEnd, nil
}

// ReadType returns the type of the current lookahead tag; only meaningful
// after a successful ReadNext.
func (r *Reader) ReadType() Type { return r.tagType }

// ReadID returns the field ID of the current lookahead tag; only
// meaningful after a successful ReadNext.
func (r *Reader) ReadID() uint32 { return r.tagID }

// ReadBool reads a Bool field (§3.1).
func (r *Reader) ReadBool(id uint32, opts ...FieldOpt) (bool, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defBool, err
	}
	v, _, err := r.matchTag(id, TypeBool, false)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadBin reads a Bin field. A present-but-empty blob decodes as a
// zero-length, non-nil slice (§8.2's law); an absent field with
// DefaultBin(v) decodes as v (nil unless the caller supplied otherwise).
func (r *Reader) ReadBin(id uint32, opts ...FieldOpt) ([]byte, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defBin, err
	}
	v, _, err := r.matchTag(id, TypeBin, false)
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return []byte{}, nil
	}
	size, err := r.readVarint()
	if err != nil {
		return nil, err
	}
	return r.readRaw(int(size))
}

// ReadStr reads a Str field; see ReadBin for the empty-vs-absent rule.
func (r *Reader) ReadStr(id uint32, opts ...FieldOpt) (string, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defStr, err
	}
	v, _, err := r.matchTag(id, TypeStr, false)
	if err != nil {
		return "", err
	}
	if v == 0 {
		return "", nil
	}
	size, err := r.readVarint()
	if err != nil {
		return "", err
	}
	raw, err := r.readRaw(int(size))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadI32 reads an I32 field, undoing the zigzag mapping (§4.2).
func (r *Reader) ReadI32(id uint32, opts ...FieldOpt) (int32, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defI32, err
	}
	v, _, err := r.matchTag(id, TypeI32, false)
	if err != nil {
		return 0, err
	}
	return unzigzag32(uint32(v)), nil
}

// ReadI64 is the 64-bit analogue of ReadI32.
func (r *Reader) ReadI64(id uint32, opts ...FieldOpt) (int64, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defI64, err
	}
	v, _, err := r.matchTag(id, TypeI64, false)
	if err != nil {
		return 0, err
	}
	return unzigzag64(v), nil
}

// ReadU32 reads a U32 field.
func (r *Reader) ReadU32(id uint32, opts ...FieldOpt) (uint32, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defU32, err
	}
	v, _, err := r.matchTag(id, TypeU32, false)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ReadU64 reads a U64 field.
func (r *Reader) ReadU64(id uint32, opts ...FieldOpt) (uint64, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defU64, err
	}
	v, _, err := r.matchTag(id, TypeU64, false)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// ReadTime reads a Time field: 64-bit signed seconds, zigzag encoded.
func (r *Reader) ReadTime(id uint32, opts ...FieldOpt) (Time, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return TimeFromStd(o.defTime), err
	}
	v, _, err := r.matchTag(id, TypeTime, false)
	if err != nil {
		return Time{}, err
	}
	return Time{seconds: unzigzag64(v)}, nil
}

// ReadPtr reads a Ptr field as an opaque handle (§9's DESIGN NOTES: this
// bit pattern is never cross-process-safe).
func (r *Reader) ReadPtr(id uint32, opts ...FieldOpt) (Ptr, error) {
	o := applyFieldOpts(opts)
	id = r.resolveID(id)
	absent, err := r.checkDefaultNull(id, o.defaultNull)
	if err != nil || absent {
		return o.defPtr, err
	}
	v, _, err := r.matchTag(id, TypePtr, false)
	if err != nil {
		return 0, err
	}
	return Ptr(v), nil
}

// ReadArrayBegin matches an Array tag at id and pushes a new array frame.
func (r *Reader) ReadArrayBegin(id uint32) error {
	id = r.resolveID(id)
	if _, _, err := r.matchTag(id, TypeArray, false); err != nil {
		return err
	}
	r.st.push(kindArray)
	r.logDebug("pack: array begin", zap.Uint32("id", id), zap.Int("depth", r.st.depth()))
	return nil
}

// ReadObjBegin matches an Object tag at id and pushes a new object frame.
func (r *Reader) ReadObjBegin(id uint32) error {
	id = r.resolveID(id)
	if _, _, err := r.matchTag(id, TypeObj, false); err != nil {
		return err
	}
	r.st.push(kindObj)
	r.logDebug("pack: object begin", zap.Uint32("id", id), zap.Int("depth", r.st.depth()))
	return nil
}

// ReadArrayEnd sweeps any remaining unconsumed fields of the current array
// frame and pops it.
func (r *Reader) ReadArrayEnd() error {
	if r.st.atOutermost() || r.st.top().k != kindArray {
		err := ErrNotInArray
		r.logError("pack: array end outside array", err)
		return err
	}
	if _, _, err := r.matchTag(idSweep, TypeUnknown, true); err != nil {
		return err
	}
	r.st.pop()
	r.haveTag = false
	r.logDebug("pack: array end", zap.Int("depth", r.st.depth()))
	return nil
}

// ReadObjEnd is the object analogue of ReadArrayEnd.
func (r *Reader) ReadObjEnd() error {
	if r.st.atOutermost() || r.st.top().k != kindObj {
		err := ErrNotInObject
		r.logError("pack: object end outside object", err)
		return err
	}
	if _, _, err := r.matchTag(idSweep, TypeUnknown, true); err != nil {
		return err
	}
	r.st.pop()
	r.haveTag = false
	r.logDebug("pack: object end", zap.Int("depth", r.st.depth()))
	return nil
}

// ReadEnd drains all remaining frames, including the outermost, and
// terminates parsing.
func (r *Reader) ReadEnd() error {
	for r.st.depth() > 0 {
		if _, _, err := r.matchTag(idSweep, TypeUnknown, true); err != nil {
			return err
		}
		r.st.frames = r.st.frames[:len(r.st.frames)-1]
	}
	r.haveTag = false
	return nil
}
