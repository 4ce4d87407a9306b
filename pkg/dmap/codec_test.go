package dmap

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/openradar/darnio/pkg/models"
)

func testRecord() *models.Record {
	r := models.NewRecord()
	r.Set(models.NewScalar("stid", models.TypeShort, int16(5)))
	r.Set(models.NewInt16Array("ptab", []int{3}, []int16{0, 9, 12}))
	return r
}

func TestScenarioEncodeDecode(t *testing.T) {
	buf, err := EncodeRecord(testRecord())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	recs, err := DecodeAll(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("decoded %d records", len(recs))
	}

	stid, ok := recs[0].Scalar("stid")
	if !ok || stid.Tag != models.TypeShort || stid.Value.(int16) != 5 {
		t.Fatalf("stid = %+v", stid)
	}
	ptab, ok := recs[0].Array("ptab")
	if !ok || len(ptab.Dims) != 1 || ptab.Dims[0] != 3 {
		t.Fatalf("ptab shape = %v", ptab.Dims)
	}
	got, _ := ptab.Int16s()
	if got[0] != 0 || got[1] != 9 || got[2] != 12 {
		t.Fatalf("ptab = %v", got)
	}
}

func TestRoundTripAllTypes(t *testing.T) {
	r := models.NewRecord()
	r.Set(models.NewScalar("c", models.TypeChar, int8(-7)))
	r.Set(models.NewScalar("s", models.TypeShort, int16(-300)))
	r.Set(models.NewScalar("i", models.TypeInt, int32(70000)))
	r.Set(models.NewScalar("f", models.TypeFloat, float32(1.5)))
	r.Set(models.NewScalar("d", models.TypeDouble, 2.25))
	r.Set(models.NewScalar("str", models.TypeString, "twofsond"))
	r.Set(models.NewScalar("l", models.TypeLong, int64(-1<<40)))
	r.Set(models.NewScalar("uc", models.TypeUchar, uint8(200)))
	r.Set(models.NewScalar("us", models.TypeUshort, uint16(60000)))
	r.Set(models.NewScalar("ui", models.TypeUint, uint32(4000000000)))
	r.Set(models.NewScalar("ul", models.TypeUlong, uint64(1)<<50))
	r.Set(models.NewInt8Array("ac", []int{2}, []int8{-1, 1}))
	r.Set(models.NewFloat32Array("af", []int{4}, []float32{1, 2, 3, 4}))
	r.Set(models.NewFloat64Array("ad", []int{2}, []float64{0.5, -0.5}))
	sa, err := models.NewStringArray("as", []int{2}, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	r.Set(sa)

	buf, err := EncodeRecord(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	recs, err := DecodeAll(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !recs[0].Equal(r) {
		t.Fatal("round trip changed the record")
	}
}

func TestRank2ReversalRoundTrip(t *testing.T) {
	// 2x3 row-major: rows {1,2,3} and {4,5,6}.
	r := models.NewRecord()
	r.Set(models.NewInt16Array("acfd", []int{2, 3}, []int16{1, 2, 3, 4, 5, 6}))

	buf, err := EncodeRecord(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// On the wire the dimension list is reversed: rank 2, then 3, then 2.
	// Offsets: 16 header + 5 ("acfd\0") + 1 tag.
	off := 16 + 5 + 1
	if rank := int32(binary.LittleEndian.Uint32(buf[off:])); rank != 2 {
		t.Fatalf("wire rank = %d", rank)
	}
	if d0 := int32(binary.LittleEndian.Uint32(buf[off+4:])); d0 != 3 {
		t.Fatalf("wire dim[0] = %d, want 3", d0)
	}
	if d1 := int32(binary.LittleEndian.Uint32(buf[off+8:])); d1 != 2 {
		t.Fatalf("wire dim[1] = %d, want 2", d1)
	}

	recs, err := DecodeAll(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a, _ := recs[0].Array("acfd")
	if len(a.Dims) != 2 || a.Dims[0] != 2 || a.Dims[1] != 3 {
		t.Fatalf("decoded shape = %v, want [2 3]", a.Dims)
	}
	got, _ := a.Int16s()
	for i, want := range []int16{1, 2, 3, 4, 5, 6} {
		if got[i] != want {
			t.Fatalf("element %d = %d, want %d", i, got[i], want)
		}
	}
}

func TestEncodeIntegrity(t *testing.T) {
	var recs []*models.Record
	for i := 0; i < 4; i++ {
		r := models.NewRecord()
		r.Set(models.NewScalar("stid", models.TypeShort, int16(i)))
		r.Set(models.NewFloat32Array("pwr0", []int{i + 1}, make([]float32, i+1)))
		recs = append(recs, r)
	}
	buf, err := EncodeAll(recs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// The declared block sizes must tile the buffer exactly.
	sum, pos := 0, 0
	for pos < len(buf) {
		bs := int(binary.LittleEndian.Uint32(buf[pos+4:]))
		sum += bs
		pos += bs
	}
	if sum != len(buf) {
		t.Fatalf("block sizes sum to %d, buffer is %d", sum, len(buf))
	}

	n, err := VerifyStream(buf)
	if err != nil || n != 4 {
		t.Fatalf("VerifyStream = %d, %v", n, err)
	}
}

func TestNextIteration(t *testing.T) {
	buf, err := EncodeAll([]*models.Record{testRecord(), testRecord()})
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader(buf)
	n := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("record %d: %v", n, err)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("iterated %d records", n)
	}
}

func TestBlockSizeTooLarge(t *testing.T) {
	buf, _ := EncodeRecord(testRecord())
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)+1))
	var serr *StructuralError
	if _, err := DecodeAll(buf); !errors.As(err, &serr) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestBlockSizeTooSmallFailsCursorInvariant(t *testing.T) {
	buf, _ := EncodeRecord(testRecord())
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)-2))
	var cerr *CursorError
	if _, err := NewReader(buf).Next(); !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CursorError", err)
	}
}

func TestTruncatedBuffer(t *testing.T) {
	buf, _ := EncodeRecord(testRecord())
	if _, err := DecodeAll(buf[:len(buf)-3]); err == nil {
		t.Fatal("truncated buffer should not decode")
	}
}

func TestTrailingBytesRejected(t *testing.T) {
	// Leftover bytes after the last record are decoded as a record
	// header and fail there; nothing decodes partially.
	buf, _ := EncodeRecord(testRecord())
	buf = append(buf, 0xde, 0xad)
	var serr *StructuralError
	if _, err := DecodeAll(buf); !errors.As(err, &serr) {
		t.Fatalf("err = %v, want StructuralError", err)
	}
}

func TestUnknownTagRejected(t *testing.T) {
	buf, _ := EncodeRecord(testRecord())
	// "stid\0" follows the 16-byte header; the tag byte is next.
	buf[16+5] = 42
	var terr *TypeTagError
	if _, err := DecodeAll(buf); !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TypeTagError", err)
	}
	if terr.Tag != 42 || terr.Field != "stid" {
		t.Fatalf("TypeTagError = %+v", terr)
	}
}

func TestZeroCountsAllowed(t *testing.T) {
	// Arrays only.
	r := models.NewRecord()
	r.Set(models.NewInt32Array("slist", []int{2}, []int32{1, 2}))
	buf, err := EncodeRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := DecodeAll(buf)
	if err != nil {
		t.Fatalf("array-only record: %v", err)
	}
	if recs[0].Len() != 1 {
		t.Fatalf("fields = %d", recs[0].Len())
	}

	// No fields at all.
	empty, err := EncodeRecord(models.NewRecord())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeAll(empty); err != nil {
		t.Fatalf("empty record: %v", err)
	}
}

func TestEmptyDimensionOnlyForAllowedField(t *testing.T) {
	mk := func(name string) []byte {
		r := models.NewRecord()
		r.Set(&models.Array{Name: name, Tag: models.TypeShort, Dims: []int{0}})
		buf, err := EncodeRecord(r)
		if err != nil {
			t.Fatal(err)
		}
		return buf
	}

	if _, err := DecodeAll(mk("slist")); err != nil {
		t.Fatalf("empty slist should decode: %v", err)
	}
	var serr *StructuralError
	if _, err := DecodeAll(mk("ptab")); !errors.As(err, &serr) {
		t.Fatalf("empty ptab: err = %v, want StructuralError", err)
	}
	if _, err := DecodeAll(mk("ptab"), EmptyAllowed("ptab")); err != nil {
		t.Fatalf("EmptyAllowed override: %v", err)
	}
}

func TestNonWireTagsRejectedOnEncode(t *testing.T) {
	r := models.NewRecord()
	r.Set(models.NewBoolArray("agc_status", []int{1}, []bool{true}))
	if _, err := EncodeRecord(r); err == nil {
		t.Fatal("bool array must not encode")
	}
}
