package models

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Array is an n-dimensional field. Numeric and bool payloads live in Data
// as dense row-major little-endian bytes; string-kind arrays keep their
// elements in Strs instead (strings have no fixed width). Dims is the
// logical shape; rank-0 arrays are not representable, a scalar is a Scalar.
type Array struct {
	Name string
	Tag  TypeTag
	Dims []int

	Data []byte
	Strs []string
}

func (a *Array) FieldName() string { return a.Name }
func (a *Array) TypeTag() TypeTag  { return a.Tag }

// Count returns the total element count implied by Dims.
func (a *Array) Count() int {
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// NewArray builds an array field over an existing payload. The payload
// length must match the shape; the buffer is not copied.
func NewArray(name string, tag TypeTag, dims []int, data []byte) (*Array, error) {
	w, err := Width(tag)
	if err != nil {
		return nil, err
	}
	a := &Array{Name: name, Tag: tag, Dims: dims, Data: data}
	if KindOf(tag) == KindString {
		return nil, fmt.Errorf("array %q: string arrays take NewStringArray", name)
	}
	if want := a.Count() * w; len(data) != want {
		return nil, fmt.Errorf("array %q: payload is %d bytes, shape %v needs %d", name, len(data), dims, want)
	}
	return a, nil
}

// NewStringArray builds a string-kind array field.
func NewStringArray(name string, dims []int, elems []string) (*Array, error) {
	a := &Array{Name: name, Tag: TypeString, Dims: dims, Strs: elems}
	if len(elems) != a.Count() {
		return nil, fmt.Errorf("array %q: %d elements, shape %v needs %d", name, len(elems), dims, a.Count())
	}
	return a, nil
}

// Typed constructors. Each encodes the elements row-major little-endian.

func NewInt8Array(name string, dims []int, v []int8) *Array {
	data := make([]byte, len(v))
	for i, e := range v {
		data[i] = byte(e)
	}
	return mustArray(name, TypeChar, dims, data)
}

func NewInt16Array(name string, dims []int, v []int16) *Array {
	data := make([]byte, 2*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(e))
	}
	return mustArray(name, TypeShort, dims, data)
}

func NewInt32Array(name string, dims []int, v []int32) *Array {
	data := make([]byte, 4*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(e))
	}
	return mustArray(name, TypeInt, dims, data)
}

func NewInt64Array(name string, dims []int, v []int64) *Array {
	data := make([]byte, 8*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint64(data[8*i:], uint64(e))
	}
	return mustArray(name, TypeLong, dims, data)
}

func NewUint8Array(name string, dims []int, v []uint8) *Array {
	data := make([]byte, len(v))
	copy(data, v)
	return mustArray(name, TypeUchar, dims, data)
}

func NewUint16Array(name string, dims []int, v []uint16) *Array {
	data := make([]byte, 2*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint16(data[2*i:], e)
	}
	return mustArray(name, TypeUshort, dims, data)
}

func NewUint32Array(name string, dims []int, v []uint32) *Array {
	data := make([]byte, 4*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint32(data[4*i:], e)
	}
	return mustArray(name, TypeUint, dims, data)
}

func NewUint64Array(name string, dims []int, v []uint64) *Array {
	data := make([]byte, 8*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint64(data[8*i:], e)
	}
	return mustArray(name, TypeUlong, dims, data)
}

func NewFloat32Array(name string, dims []int, v []float32) *Array {
	data := make([]byte, 4*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(e))
	}
	return mustArray(name, TypeFloat, dims, data)
}

func NewFloat64Array(name string, dims []int, v []float64) *Array {
	data := make([]byte, 8*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(e))
	}
	return mustArray(name, TypeDouble, dims, data)
}

func NewBoolArray(name string, dims []int, v []bool) *Array {
	data := make([]byte, len(v))
	for i, e := range v {
		if e {
			data[i] = 1
		}
	}
	return mustArray(name, TypeBool, dims, data)
}

func NewComplex64Array(name string, dims []int, v []complex64) *Array {
	data := make([]byte, 8*len(v))
	for i, e := range v {
		binary.LittleEndian.PutUint32(data[8*i:], math.Float32bits(real(e)))
		binary.LittleEndian.PutUint32(data[8*i+4:], math.Float32bits(imag(e)))
	}
	return mustArray(name, TypeComplex64, dims, data)
}

func mustArray(name string, tag TypeTag, dims []int, data []byte) *Array {
	a, err := NewArray(name, tag, dims, data)
	if err != nil {
		panic(err)
	}
	return a
}

// Typed accessors. Each decodes the full payload; wrong-tag access errors.

func (a *Array) Int8s() ([]int8, error) {
	if a.Tag != TypeChar {
		return nil, a.tagErr(TypeChar)
	}
	out := make([]int8, len(a.Data))
	for i, b := range a.Data {
		out[i] = int8(b)
	}
	return out, nil
}

func (a *Array) Int16s() ([]int16, error) {
	if a.Tag != TypeShort {
		return nil, a.tagErr(TypeShort)
	}
	out := make([]int16, len(a.Data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(a.Data[2*i:]))
	}
	return out, nil
}

func (a *Array) Int32s() ([]int32, error) {
	if a.Tag != TypeInt {
		return nil, a.tagErr(TypeInt)
	}
	out := make([]int32, len(a.Data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(a.Data[4*i:]))
	}
	return out, nil
}

func (a *Array) Int64s() ([]int64, error) {
	if a.Tag != TypeLong {
		return nil, a.tagErr(TypeLong)
	}
	out := make([]int64, len(a.Data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(a.Data[8*i:]))
	}
	return out, nil
}

func (a *Array) Uint8s() ([]uint8, error) {
	if a.Tag != TypeUchar {
		return nil, a.tagErr(TypeUchar)
	}
	out := make([]uint8, len(a.Data))
	copy(out, a.Data)
	return out, nil
}

func (a *Array) Uint16s() ([]uint16, error) {
	if a.Tag != TypeUshort {
		return nil, a.tagErr(TypeUshort)
	}
	out := make([]uint16, len(a.Data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(a.Data[2*i:])
	}
	return out, nil
}

func (a *Array) Uint32s() ([]uint32, error) {
	if a.Tag != TypeUint {
		return nil, a.tagErr(TypeUint)
	}
	out := make([]uint32, len(a.Data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(a.Data[4*i:])
	}
	return out, nil
}

func (a *Array) Uint64s() ([]uint64, error) {
	if a.Tag != TypeUlong {
		return nil, a.tagErr(TypeUlong)
	}
	out := make([]uint64, len(a.Data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(a.Data[8*i:])
	}
	return out, nil
}

func (a *Array) Float32s() ([]float32, error) {
	if a.Tag != TypeFloat {
		return nil, a.tagErr(TypeFloat)
	}
	out := make([]float32, len(a.Data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:]))
	}
	return out, nil
}

func (a *Array) Float64s() ([]float64, error) {
	if a.Tag != TypeDouble {
		return nil, a.tagErr(TypeDouble)
	}
	out := make([]float64, len(a.Data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:]))
	}
	return out, nil
}

func (a *Array) Bools() ([]bool, error) {
	if a.Tag != TypeBool {
		return nil, a.tagErr(TypeBool)
	}
	out := make([]bool, len(a.Data))
	for i, b := range a.Data {
		out[i] = b != 0
	}
	return out, nil
}

func (a *Array) Complex64s() ([]complex64, error) {
	if a.Tag != TypeComplex64 {
		return nil, a.tagErr(TypeComplex64)
	}
	out := make([]complex64, len(a.Data)/8)
	for i := range out {
		re := math.Float32frombits(binary.LittleEndian.Uint32(a.Data[8*i:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(a.Data[8*i+4:]))
		out[i] = complex(re, im)
	}
	return out, nil
}

func (a *Array) Strings() ([]string, error) {
	if KindOf(a.Tag) != KindString {
		return nil, a.tagErr(TypeString)
	}
	return a.Strs, nil
}

// IntAt returns the flat element at index i widened to int64, for any
// integer or bool tag. Dimension rules use this to read per-record sizes
// out of bookkeeping arrays without caring about the concrete width.
func (a *Array) IntAt(i int) (int64, error) {
	switch KindOf(a.Tag) {
	case KindChar:
		return int64(int8(a.Data[i])), nil
	case KindShort:
		return int64(int16(binary.LittleEndian.Uint16(a.Data[2*i:]))), nil
	case KindInt:
		return int64(int32(binary.LittleEndian.Uint32(a.Data[4*i:]))), nil
	case KindLong:
		return int64(binary.LittleEndian.Uint64(a.Data[8*i:])), nil
	case KindUchar, KindBool:
		return int64(a.Data[i]), nil
	case KindUshort:
		return int64(binary.LittleEndian.Uint16(a.Data[2*i:])), nil
	case KindUint:
		return int64(binary.LittleEndian.Uint32(a.Data[4*i:])), nil
	case KindUlong:
		return int64(binary.LittleEndian.Uint64(a.Data[8*i:])), nil
	}
	return 0, fmt.Errorf("array %q (%s) is not an integer kind", a.Name, a.Tag)
}

// FloatAt returns the flat element at index i widened to float64, for any
// numeric tag.
func (a *Array) FloatAt(i int) (float64, error) {
	switch KindOf(a.Tag) {
	case KindFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:]))), nil
	case KindDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:])), nil
	}
	v, err := a.IntAt(i)
	return float64(v), err
}

// Equal reports deep equality of name, tag, shape and payload.
func (a *Array) Equal(other *Array) bool {
	if other == nil || a.Name != other.Name || a.Tag != other.Tag {
		return false
	}
	if len(a.Dims) != len(other.Dims) {
		return false
	}
	for i, d := range a.Dims {
		if other.Dims[i] != d {
			return false
		}
	}
	if !bytes.Equal(a.Data, other.Data) {
		return false
	}
	if len(a.Strs) != len(other.Strs) {
		return false
	}
	for i, s := range a.Strs {
		if other.Strs[i] != s {
			return false
		}
	}
	return true
}

// SentinelBytes returns one element's worth of fill bytes for tag:
// NaN for floating and complex kinds, intSentinel for integer kinds,
// zero for bool. Used when padding ragged arrays to a common shape.
func SentinelBytes(tag TypeTag, intSentinel int64) []byte {
	w, err := Width(tag)
	if err != nil {
		return nil
	}
	out := make([]byte, w)
	switch KindOf(tag) {
	case KindFloat:
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(math.NaN())))
	case KindDouble:
		binary.LittleEndian.PutUint64(out, math.Float64bits(math.NaN()))
	case KindComplex64:
		nan := math.Float32bits(float32(math.NaN()))
		binary.LittleEndian.PutUint32(out, nan)
		binary.LittleEndian.PutUint32(out[4:], nan)
	case KindBool:
		out[0] = 0
	case KindChar:
		out[0] = byte(int8(intSentinel))
	case KindShort, KindUshort:
		binary.LittleEndian.PutUint16(out, uint16(intSentinel))
	case KindInt, KindUint:
		binary.LittleEndian.PutUint32(out, uint32(intSentinel))
	case KindLong, KindUlong:
		binary.LittleEndian.PutUint64(out, uint64(intSentinel))
	case KindUchar:
		out[0] = byte(intSentinel)
	}
	return out
}

func (a *Array) tagErr(want TypeTag) error {
	return fmt.Errorf("array %q holds %s elements, not %s", a.Name, a.Tag, want)
}
