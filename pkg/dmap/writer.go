package dmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/openradar/darnio/pkg/models"
)

// EncodeRecord serializes one record: a 16-byte header followed by every
// scalar field, then every array field, in the record's insertion order
// within each class. The writer trusts the record's tags and shapes; run
// a format validator first when the record comes from untrusted code.
func EncodeRecord(rec *models.Record) ([]byte, error) {
	var body bytes.Buffer
	scalars := rec.Scalars()
	arrays := rec.Arrays()

	for _, s := range scalars {
		if err := writeScalar(&body, s); err != nil {
			return nil, err
		}
	}
	for _, a := range arrays {
		if err := writeArray(&body, a); err != nil {
			return nil, err
		}
	}

	out := make([]byte, recordHeaderSize+body.Len())
	binary.LittleEndian.PutUint32(out[0:], EncodingID)
	binary.LittleEndian.PutUint32(out[4:], uint32(body.Len()+recordHeaderSize))
	binary.LittleEndian.PutUint32(out[8:], uint32(len(scalars)))
	binary.LittleEndian.PutUint32(out[12:], uint32(len(arrays)))
	copy(out[recordHeaderSize:], body.Bytes())
	return out, nil
}

// EncodeAll serializes records in order into one buffer.
func EncodeAll(recs []*models.Record) ([]byte, error) {
	var buf bytes.Buffer
	for i, rec := range recs {
		b, err := EncodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func writeScalar(buf *bytes.Buffer, s *models.Scalar) error {
	if s.Tag == models.TypeNone || !models.IsWire(s.Tag) {
		return &TypeTagError{Field: s.Name, Tag: s.Tag}
	}
	writeCString(buf, s.Name)
	buf.WriteByte(byte(s.Tag))
	if models.KindOf(s.Tag) == models.KindString {
		str, ok := s.Value.(string)
		if !ok {
			return fmt.Errorf("dmap: scalar %q: value %T is not a string", s.Name, s.Value)
		}
		writeCString(buf, str)
		return nil
	}
	return writeFixed(buf, s.Name, s.Tag, s.Value)
}

func writeArray(buf *bytes.Buffer, a *models.Array) error {
	if a.Tag == models.TypeNone || !models.IsWire(a.Tag) {
		return &TypeTagError{Field: a.Name, Tag: a.Tag}
	}
	writeCString(buf, a.Name)
	buf.WriteByte(byte(a.Tag))

	// Dims are held reversed relative to the wire order for rank > 1;
	// re-reverse on output so a decode of this buffer reproduces them.
	dims := a.Dims
	if len(dims) > 1 {
		dims = make([]int, len(a.Dims))
		copy(dims, a.Dims)
		reverse(dims)
	}
	writeInt32(buf, int32(len(dims)))
	for _, d := range dims {
		writeInt32(buf, int32(d))
	}

	if models.KindOf(a.Tag) == models.KindString {
		for _, s := range a.Strs {
			writeCString(buf, s)
		}
		return nil
	}
	buf.Write(a.Data)
	return nil
}

func writeFixed(buf *bytes.Buffer, name string, tag models.TypeTag, value any) error {
	var scratch [8]byte
	b := scratch[:]
	switch v := value.(type) {
	case int8:
		b = b[:1]
		b[0] = byte(v)
	case int16:
		b = b[:2]
		binary.LittleEndian.PutUint16(b, uint16(v))
	case int32:
		b = b[:4]
		binary.LittleEndian.PutUint32(b, uint32(v))
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case uint8:
		b = b[:1]
		b[0] = v
	case uint16:
		b = b[:2]
		binary.LittleEndian.PutUint16(b, v)
	case uint32:
		b = b[:4]
		binary.LittleEndian.PutUint32(b, v)
	case uint64:
		binary.LittleEndian.PutUint64(b, v)
	case float32:
		b = b[:4]
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		return fmt.Errorf("dmap: scalar %q: value %T does not serialize", name, value)
	}
	w, err := models.Width(tag)
	if err != nil {
		return err
	}
	if len(b) != w {
		return fmt.Errorf("dmap: scalar %q: %T is %d bytes, tag %s needs %d", name, value, len(b), tag, w)
	}
	buf.Write(b)
	return nil
}

func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}
