package dmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openradar/darnio/pkg/models"
)

const (
	// EncodingID is the identifier written at the head of every record.
	// Readers consume it but do not branch on it.
	EncodingID uint32 = 65537

	// recordHeaderSize covers encodingId, blockSize, scalarCount and
	// arrayCount. blockSize counts these 16 bytes as part of the record.
	recordHeaderSize = 16
)

// Reader decodes DMAP records sequentially from a byte buffer. The buffer
// is borrowed read-only for the lifetime of the reader; decoded payloads
// are copied out, so the caller may release the buffer after the last
// Next. A Reader is single-use and not safe for concurrent use.
type Reader struct {
	buf []byte
	pos int
	end int
	rec int

	emptyOK map[string]struct{}
	logger  zerolog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// EmptyAllowed replaces the set of array fields permitted to carry a zero
// dimension. The default set is {"slist"}: upstream processing writes an
// empty range-gate list when no gate passed its quality flag, and that is
// the only field the originating system ever emits empty.
func EmptyAllowed(names ...string) Option {
	return func(r *Reader) {
		r.emptyOK = make(map[string]struct{}, len(names))
		for _, n := range names {
			r.emptyOK[n] = struct{}{}
		}
	}
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte, opts ...Option) *Reader {
	r := &Reader{
		buf:     buf,
		end:     len(buf),
		emptyOK: map[string]struct{}{"slist": {}},
		logger:  log.With().Str("component", "dmap_reader").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next decodes and returns the next record, or io.EOF once the buffer is
// exhausted. Any decode error is fatal for the whole buffer; the reader
// must not be used again after a non-EOF error.
func (r *Reader) Next() (*models.Record, error) {
	if r.pos == len(r.buf) {
		return nil, io.EOF
	}
	return r.decodeRecord()
}

// ReadAll decodes every remaining record. Exact buffer consumption is
// already enforced per record: Next reports io.EOF only at the precise
// end of the buffer, and a block that overruns or underruns fails its
// own bounds or cursor check.
func (r *Reader) ReadAll() ([]*models.Record, error) {
	var out []*models.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	r.logger.Debug().Int("records", len(out)).Int("bytes", r.pos).Msg("decoded buffer")
	return out, nil
}

// DecodeAll decodes every record in buf.
func DecodeAll(buf []byte, opts ...Option) ([]*models.Record, error) {
	return NewReader(buf, opts...).ReadAll()
}

// VerifyStream walks the record headers of buf without materializing any
// record and returns the record count. It checks only that every declared
// block size is positive, at least the header size, and that the blocks
// tile the buffer exactly.
func VerifyStream(buf []byte) (int, error) {
	pos, n := 0, 0
	for pos < len(buf) {
		if len(buf)-pos < 8 {
			return n, &StructuralError{Offset: pos, Record: n,
				Msg: fmt.Sprintf("%d trailing bytes, record header needs 8", len(buf)-pos)}
		}
		blockSize := int(int32(binary.LittleEndian.Uint32(buf[pos+4:])))
		if blockSize < recordHeaderSize {
			return n, &StructuralError{Offset: pos, Record: n,
				Msg: fmt.Sprintf("block size %d below header size %d", blockSize, recordHeaderSize)}
		}
		if pos+blockSize > len(buf) {
			return n, &StructuralError{Offset: pos, Record: n,
				Msg: fmt.Sprintf("block size %d exceeds %d remaining bytes", blockSize, len(buf)-pos)}
		}
		pos += blockSize
		n++
	}
	return n, nil
}

func (r *Reader) decodeRecord() (*models.Record, error) {
	recStart := r.pos
	r.rec++

	if len(r.buf)-r.pos < 8 {
		return nil, &StructuralError{Offset: r.pos, Record: r.rec,
			Msg: fmt.Sprintf("%d bytes remaining, record header needs 8", len(r.buf)-r.pos)}
	}
	r.pos += 4 // encodingId, consumed but not interpreted
	blockSize := int(int32(binary.LittleEndian.Uint32(r.buf[r.pos:])))
	r.pos += 4

	// The +8 credits the encodingId/blockSize pair consumed above, which
	// blockSize counts as part of this record.
	if blockSize <= 0 || blockSize > len(r.buf)-r.pos+8 {
		return nil, &StructuralError{Offset: recStart, Record: r.rec,
			Msg: fmt.Sprintf("block size %d outside (0, %d]", blockSize, len(r.buf)-r.pos+8)}
	}

	r.end = recStart + blockSize
	defer func() { r.end = len(r.buf) }()

	scalarCount, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	arrayCount, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if scalarCount < 0 || arrayCount < 0 || int(scalarCount)+int(arrayCount) > blockSize {
		return nil, &StructuralError{Offset: recStart, Record: r.rec,
			Msg: fmt.Sprintf("scalar count %d + array count %d invalid for block size %d", scalarCount, arrayCount, blockSize)}
	}

	rec := models.NewRecord()
	for i := int32(0); i < scalarCount; i++ {
		s, err := r.readScalar()
		if err != nil {
			return nil, err
		}
		rec.Set(s)
	}
	for i := int32(0); i < arrayCount; i++ {
		a, err := r.readArray(blockSize)
		if err != nil {
			return nil, err
		}
		rec.Set(a)
	}

	if consumed := r.pos - recStart; consumed != blockSize {
		return nil, &CursorError{Offset: r.pos, Record: r.rec,
			Msg: fmt.Sprintf("consumed %d bytes of a %d byte block", consumed, blockSize)}
	}
	return rec, nil
}

func (r *Reader) readScalar() (*models.Scalar, error) {
	name, err := r.readString()
	if err != nil {
		return nil, err
	}
	tag, err := r.readTag(name)
	if err != nil {
		return nil, err
	}
	var value any
	if models.KindOf(tag) == models.KindString {
		value, err = r.readString()
	} else {
		value, err = r.readFixed(tag)
	}
	if err != nil {
		return nil, err
	}
	return &models.Scalar{Name: name, Tag: tag, Value: value}, nil
}

func (r *Reader) readArray(blockSize int) (*models.Array, error) {
	name, err := r.readString()
	if err != nil {
		return nil, err
	}
	tag, err := r.readTag(name)
	if err != nil {
		return nil, err
	}

	dims, err := r.readArrayHeader(name, blockSize)
	if err != nil {
		return nil, err
	}
	return r.readArrayPayload(name, tag, dims)
}

// readArrayHeader reads the rank and per-dimension sizes. The on-wire
// dimension order is reversed relative to the logical row-major shape
// when the rank exceeds one; the decoded list is stored reversed so the
// payload reads back row-major against it.
func (r *Reader) readArrayHeader(name string, blockSize int) ([]int, error) {
	rank, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if rank <= 0 {
		return nil, &StructuralError{Offset: r.pos, Record: r.rec,
			Msg: fmt.Sprintf("array %q rank %d, want > 0", name, rank)}
	}
	dims := make([]int, rank)
	for i := range dims {
		d, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		if d >= int32(blockSize) {
			return nil, &StructuralError{Offset: r.pos, Record: r.rec,
				Msg: fmt.Sprintf("array %q dimension %d not below block size %d", name, d, blockSize)}
		}
		if d <= 0 {
			if _, ok := r.emptyOK[name]; !ok || d < 0 {
				return nil, &StructuralError{Offset: r.pos, Record: r.rec,
					Msg: fmt.Sprintf("array %q dimension %d, want > 0", name, d)}
			}
		}
		dims[i] = int(d)
	}
	if len(dims) > 1 {
		reverse(dims)
	}
	return dims, nil
}

func (r *Reader) readArrayPayload(name string, tag models.TypeTag, dims []int) (*models.Array, error) {
	cells := 1
	for _, d := range dims {
		cells *= d
	}

	switch models.KindOf(tag) {
	case models.KindString:
		// No bulk path: element widths are not self-describing inside
		// the array envelope.
		elems := make([]string, cells)
		for i := range elems {
			s, err := r.readString()
			if err != nil {
				return nil, err
			}
			elems[i] = s
		}
		return &models.Array{Name: name, Tag: tag, Dims: dims, Strs: elems}, nil
	case models.KindChar:
		data := make([]byte, cells)
		for i := range data {
			v, err := r.readFixed(tag)
			if err != nil {
				return nil, err
			}
			data[i] = byte(v.(int8))
		}
		return &models.Array{Name: name, Tag: tag, Dims: dims, Data: data}, nil
	}

	w, err := models.Width(tag)
	if err != nil {
		return nil, &TypeTagError{Offset: r.pos, Record: r.rec, Field: name, Tag: tag}
	}
	need := cells * w
	if r.pos+need > r.end {
		return nil, &CursorError{Offset: r.pos, Record: r.rec,
			Msg: fmt.Sprintf("array %q payload needs %d bytes, %d remain in block", name, need, r.end-r.pos)}
	}
	data := make([]byte, need)
	copy(data, r.buf[r.pos:r.pos+need])
	r.pos += need
	return &models.Array{Name: name, Tag: tag, Dims: dims, Data: data}, nil
}

func (r *Reader) readTag(field string) (models.TypeTag, error) {
	if r.pos >= r.end {
		return 0, &CursorError{Offset: r.pos, Record: r.rec, Msg: "type tag past end of block"}
	}
	tag := models.TypeTag(r.buf[r.pos])
	// Tag 0 marks a nested record in some producers; nesting is not
	// part of this format and is rejected like any unknown tag.
	if tag == models.TypeNone || !models.IsWire(tag) {
		return 0, &TypeTagError{Offset: r.pos, Record: r.rec, Field: field, Tag: tag}
	}
	r.pos++
	return tag, nil
}

// readFixed decodes one little-endian element of the tag's width.
func (r *Reader) readFixed(tag models.TypeTag) (any, error) {
	w, err := models.Width(tag)
	if err != nil {
		return nil, err
	}
	if r.pos+w > r.end {
		return nil, &CursorError{Offset: r.pos, Record: r.rec,
			Msg: fmt.Sprintf("%s needs %d bytes, %d remain", tag, w, r.end-r.pos)}
	}
	b := r.buf[r.pos:]
	r.pos += w
	switch models.KindOf(tag) {
	case models.KindChar:
		return int8(b[0]), nil
	case models.KindShort:
		return int16(binary.LittleEndian.Uint16(b)), nil
	case models.KindInt:
		return int32(binary.LittleEndian.Uint32(b)), nil
	case models.KindLong:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case models.KindUchar:
		return b[0], nil
	case models.KindUshort:
		return binary.LittleEndian.Uint16(b), nil
	case models.KindUint:
		return binary.LittleEndian.Uint32(b), nil
	case models.KindUlong:
		return binary.LittleEndian.Uint64(b), nil
	case models.KindFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	case models.KindDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	}
	r.pos -= w
	return nil, &TypeTagError{Offset: r.pos, Record: r.rec, Tag: tag}
}

// readString scans to the next NUL and returns the text before it.
func (r *Reader) readString() (string, error) {
	i := bytes.IndexByte(r.buf[r.pos:r.end], 0)
	if i < 0 {
		return "", &CursorError{Offset: r.pos, Record: r.rec, Msg: "unterminated string"}
	}
	s := string(r.buf[r.pos : r.pos+i])
	r.pos += i + 1
	return s, nil
}

func (r *Reader) readInt32() (int32, error) {
	if r.pos+4 > r.end {
		return 0, &CursorError{Offset: r.pos, Record: r.rec,
			Msg: fmt.Sprintf("int needs 4 bytes, %d remain", r.end-r.pos)}
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

func reverse(v []int) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
