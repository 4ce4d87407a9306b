// Package container persists record sets as Arrow IPC objects. Every
// field becomes one single-row list column whose field metadata carries
// the element tag and the logical shape, so both layouts round-trip
// without loss: a columnar set is one object, a record-oriented set is
// one object per record under a common prefix.
package container

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/openradar/darnio/pkg/models"
)

const (
	metaTag  = "darnio:tag"
	metaDims = "darnio:dims"
)

// sharedAllocator is a package-level allocator for Arrow operations.
// memory.GoAllocator is thread-safe for concurrent use.
var sharedAllocator = memory.NewGoAllocator()

// Encode serializes one record as a single-batch Arrow IPC stream.
func Encode(rec *models.Record) ([]byte, error) {
	names := rec.Names()
	fields := make([]arrow.Field, 0, len(names))
	cols := make([]arrow.Array, 0, len(names))
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()

	for _, name := range names {
		field, _ := rec.Get(name)
		af, col, err := buildColumn(field)
		if err != nil {
			return nil, err
		}
		fields = append(fields, af)
		cols = append(cols, col)
	}

	schema := arrow.NewSchema(fields, nil)
	batch := array.NewRecord(schema, cols, 1)
	defer batch.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(sharedAllocator))
	if err := w.Write(batch); err != nil {
		w.Close()
		return nil, fmt.Errorf("container: write batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("container: close stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*models.Record, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(sharedAllocator))
	if err != nil {
		return nil, fmt.Errorf("container: open stream: %w", err)
	}
	defer rdr.Release()

	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, fmt.Errorf("container: read batch: %w", err)
		}
		return nil, fmt.Errorf("container: stream holds no batch")
	}
	batch := rdr.Record()

	rec := models.NewRecord()
	for i, af := range batch.Schema().Fields() {
		field, err := fieldFromColumn(af, batch.Column(i))
		if err != nil {
			return nil, err
		}
		rec.Set(field)
	}
	return rec, nil
}

func buildColumn(field models.Field) (arrow.Field, arrow.Array, error) {
	tag := field.TypeTag()
	elemType, err := arrowElemType(tag)
	if err != nil {
		return arrow.Field{}, nil, fmt.Errorf("container: field %q: %w", field.FieldName(), err)
	}

	lb := array.NewListBuilder(sharedAllocator, elemType)
	defer lb.Release()
	lb.Append(true)

	var dims []int
	switch f := field.(type) {
	case *models.Scalar:
		if err := appendScalar(lb.ValueBuilder(), f); err != nil {
			return arrow.Field{}, nil, err
		}
	case *models.Array:
		dims = f.Dims
		if err := appendElements(lb.ValueBuilder(), f); err != nil {
			return arrow.Field{}, nil, err
		}
	default:
		return arrow.Field{}, nil, fmt.Errorf("container: unsupported field type %T", field)
	}

	md := arrow.NewMetadata(
		[]string{metaTag, metaDims},
		[]string{strconv.Itoa(int(tag)), joinDims(dims)},
	)
	af := arrow.Field{Name: field.FieldName(), Type: arrow.ListOf(elemType), Metadata: md}
	return af, lb.NewArray(), nil
}

func arrowElemType(tag models.TypeTag) (arrow.DataType, error) {
	switch models.KindOf(tag) {
	case models.KindChar:
		return arrow.PrimitiveTypes.Int8, nil
	case models.KindShort:
		return arrow.PrimitiveTypes.Int16, nil
	case models.KindInt:
		return arrow.PrimitiveTypes.Int32, nil
	case models.KindLong:
		return arrow.PrimitiveTypes.Int64, nil
	case models.KindUchar:
		return arrow.PrimitiveTypes.Uint8, nil
	case models.KindUshort:
		return arrow.PrimitiveTypes.Uint16, nil
	case models.KindUint:
		return arrow.PrimitiveTypes.Uint32, nil
	case models.KindUlong:
		return arrow.PrimitiveTypes.Uint64, nil
	case models.KindFloat:
		return arrow.PrimitiveTypes.Float32, nil
	case models.KindDouble:
		return arrow.PrimitiveTypes.Float64, nil
	case models.KindString:
		return arrow.BinaryTypes.String, nil
	case models.KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case models.KindComplex64:
		// Real/imaginary pairs; the tag metadata restores the pairing.
		return arrow.PrimitiveTypes.Float32, nil
	}
	return nil, fmt.Errorf("no storage mapping for %s", tag)
}

func appendScalar(vb array.Builder, s *models.Scalar) error {
	switch v := s.Value.(type) {
	case int8:
		vb.(*array.Int8Builder).Append(v)
	case int16:
		vb.(*array.Int16Builder).Append(v)
	case int32:
		vb.(*array.Int32Builder).Append(v)
	case int64:
		vb.(*array.Int64Builder).Append(v)
	case uint8:
		vb.(*array.Uint8Builder).Append(v)
	case uint16:
		vb.(*array.Uint16Builder).Append(v)
	case uint32:
		vb.(*array.Uint32Builder).Append(v)
	case uint64:
		vb.(*array.Uint64Builder).Append(v)
	case float32:
		vb.(*array.Float32Builder).Append(v)
	case float64:
		vb.(*array.Float64Builder).Append(v)
	case string:
		vb.(*array.StringBuilder).Append(v)
	case bool:
		vb.(*array.BooleanBuilder).Append(v)
	case complex64:
		fb := vb.(*array.Float32Builder)
		fb.Append(real(v))
		fb.Append(imag(v))
	default:
		return fmt.Errorf("container: scalar %q holds unsupported value %T", s.Name, s.Value)
	}
	return nil
}

func appendElements(vb array.Builder, a *models.Array) error {
	switch models.KindOf(a.Tag) {
	case models.KindString:
		vb.(*array.StringBuilder).AppendValues(a.Strs, nil)
		return nil
	case models.KindComplex64:
		vals, err := a.Complex64s()
		if err != nil {
			return err
		}
		fb := vb.(*array.Float32Builder)
		for _, c := range vals {
			fb.Append(real(c))
			fb.Append(imag(c))
		}
		return nil
	case models.KindBool:
		vals, err := a.Bools()
		if err != nil {
			return err
		}
		vb.(*array.BooleanBuilder).AppendValues(vals, nil)
		return nil
	case models.KindChar:
		vals, err := a.Int8s()
		if err != nil {
			return err
		}
		vb.(*array.Int8Builder).AppendValues(vals, nil)
		return nil
	case models.KindShort:
		vals, err := a.Int16s()
		if err != nil {
			return err
		}
		vb.(*array.Int16Builder).AppendValues(vals, nil)
		return nil
	case models.KindInt:
		vals, err := a.Int32s()
		if err != nil {
			return err
		}
		vb.(*array.Int32Builder).AppendValues(vals, nil)
		return nil
	case models.KindLong:
		vals, err := a.Int64s()
		if err != nil {
			return err
		}
		vb.(*array.Int64Builder).AppendValues(vals, nil)
		return nil
	case models.KindUchar:
		vals, err := a.Uint8s()
		if err != nil {
			return err
		}
		vb.(*array.Uint8Builder).AppendValues(vals, nil)
		return nil
	case models.KindUshort:
		vals, err := a.Uint16s()
		if err != nil {
			return err
		}
		vb.(*array.Uint16Builder).AppendValues(vals, nil)
		return nil
	case models.KindUint:
		vals, err := a.Uint32s()
		if err != nil {
			return err
		}
		vb.(*array.Uint32Builder).AppendValues(vals, nil)
		return nil
	case models.KindUlong:
		vals, err := a.Uint64s()
		if err != nil {
			return err
		}
		vb.(*array.Uint64Builder).AppendValues(vals, nil)
		return nil
	case models.KindFloat:
		vals, err := a.Float32s()
		if err != nil {
			return err
		}
		vb.(*array.Float32Builder).AppendValues(vals, nil)
		return nil
	case models.KindDouble:
		vals, err := a.Float64s()
		if err != nil {
			return err
		}
		vb.(*array.Float64Builder).AppendValues(vals, nil)
		return nil
	}
	return fmt.Errorf("container: array %q holds unsupported tag %s", a.Name, a.Tag)
}

func fieldFromColumn(af arrow.Field, col arrow.Array) (models.Field, error) {
	tag, dims, err := fieldMeta(af)
	if err != nil {
		return nil, err
	}

	list, ok := col.(*array.List)
	if !ok {
		return nil, fmt.Errorf("container: field %q is %s, not a list column", af.Name, col.DataType())
	}
	start64, end64 := list.ValueOffsets(0)
	start, end := int(start64), int(end64)
	values := list.ListValues()

	if dims == nil {
		return scalarFromColumn(af.Name, tag, values, start, end)
	}
	return arrayFromColumn(af.Name, tag, dims, values, start, end)
}

func fieldMeta(af arrow.Field) (models.TypeTag, []int, error) {
	idx := af.Metadata.FindKey(metaTag)
	if idx < 0 {
		return 0, nil, fmt.Errorf("container: field %q has no tag metadata", af.Name)
	}
	tagNum, err := strconv.Atoi(af.Metadata.Values()[idx])
	if err != nil {
		return 0, nil, fmt.Errorf("container: field %q tag metadata: %w", af.Name, err)
	}
	tag := models.TypeTag(tagNum)
	if !models.Known(tag) {
		return 0, nil, fmt.Errorf("container: field %q has unknown tag %d", af.Name, tagNum)
	}

	idx = af.Metadata.FindKey(metaDims)
	if idx < 0 {
		return 0, nil, fmt.Errorf("container: field %q has no dims metadata", af.Name)
	}
	dimsStr := af.Metadata.Values()[idx]
	if dimsStr == "" {
		return tag, nil, nil
	}
	parts := strings.Split(dimsStr, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(p)
		if err != nil || d < 0 {
			return 0, nil, fmt.Errorf("container: field %q dims metadata %q", af.Name, dimsStr)
		}
		dims[i] = d
	}
	return tag, dims, nil
}

func scalarFromColumn(name string, tag models.TypeTag, values arrow.Array, start, end int) (*models.Scalar, error) {
	want := 1
	if models.KindOf(tag) == models.KindComplex64 {
		want = 2
	}
	if end-start != want {
		return nil, fmt.Errorf("container: scalar %q stores %d elements", name, end-start)
	}

	var value any
	switch va := values.(type) {
	case *array.Int8:
		value = va.Value(start)
	case *array.Int16:
		value = va.Value(start)
	case *array.Int32:
		value = va.Value(start)
	case *array.Int64:
		value = va.Value(start)
	case *array.Uint8:
		value = va.Value(start)
	case *array.Uint16:
		value = va.Value(start)
	case *array.Uint32:
		value = va.Value(start)
	case *array.Uint64:
		value = va.Value(start)
	case *array.Float32:
		if models.KindOf(tag) == models.KindComplex64 {
			value = complex(va.Value(start), va.Value(start+1))
		} else {
			value = va.Value(start)
		}
	case *array.Float64:
		value = va.Value(start)
	case *array.String:
		value = va.Value(start)
	case *array.Boolean:
		value = va.Value(start)
	default:
		return nil, fmt.Errorf("container: scalar %q stored as unsupported %s", name, values.DataType())
	}
	return models.NewScalar(name, tag, value), nil
}

func arrayFromColumn(name string, tag models.TypeTag, dims []int, values arrow.Array, start, end int) (*models.Array, error) {
	count := 1
	for _, d := range dims {
		count *= d
	}
	want := count
	if models.KindOf(tag) == models.KindComplex64 {
		want = 2 * count
	}
	if end-start != want {
		return nil, fmt.Errorf("container: array %q stores %d elements, shape %v needs %d",
			name, end-start, dims, want)
	}

	badType := func() error {
		return fmt.Errorf("container: array %q (%s) stored as %s", name, tag, values.DataType())
	}

	switch models.KindOf(tag) {
	case models.KindString:
		va, ok := values.(*array.String)
		if !ok {
			return nil, badType()
		}
		elems := make([]string, count)
		for i := range elems {
			elems[i] = va.Value(start + i)
		}
		return models.NewStringArray(name, dims, elems)
	case models.KindComplex64:
		va, ok := values.(*array.Float32)
		if !ok {
			return nil, badType()
		}
		elems := make([]complex64, count)
		for i := range elems {
			elems[i] = complex(va.Value(start+2*i), va.Value(start+2*i+1))
		}
		return models.NewComplex64Array(name, dims, elems), nil
	case models.KindBool:
		va, ok := values.(*array.Boolean)
		if !ok {
			return nil, badType()
		}
		elems := make([]bool, count)
		for i := range elems {
			elems[i] = va.Value(start + i)
		}
		return models.NewBoolArray(name, dims, elems), nil
	case models.KindChar:
		va, ok := values.(*array.Int8)
		if !ok {
			return nil, badType()
		}
		return models.NewInt8Array(name, dims, va.Int8Values()[start:end]), nil
	case models.KindShort:
		va, ok := values.(*array.Int16)
		if !ok {
			return nil, badType()
		}
		return models.NewInt16Array(name, dims, va.Int16Values()[start:end]), nil
	case models.KindInt:
		va, ok := values.(*array.Int32)
		if !ok {
			return nil, badType()
		}
		return models.NewInt32Array(name, dims, va.Int32Values()[start:end]), nil
	case models.KindLong:
		va, ok := values.(*array.Int64)
		if !ok {
			return nil, badType()
		}
		return models.NewInt64Array(name, dims, va.Int64Values()[start:end]), nil
	case models.KindUchar:
		va, ok := values.(*array.Uint8)
		if !ok {
			return nil, badType()
		}
		return models.NewUint8Array(name, dims, va.Uint8Values()[start:end]), nil
	case models.KindUshort:
		va, ok := values.(*array.Uint16)
		if !ok {
			return nil, badType()
		}
		return models.NewUint16Array(name, dims, va.Uint16Values()[start:end]), nil
	case models.KindUint:
		va, ok := values.(*array.Uint32)
		if !ok {
			return nil, badType()
		}
		return models.NewUint32Array(name, dims, va.Uint32Values()[start:end]), nil
	case models.KindUlong:
		va, ok := values.(*array.Uint64)
		if !ok {
			return nil, badType()
		}
		return models.NewUint64Array(name, dims, va.Uint64Values()[start:end]), nil
	case models.KindFloat:
		va, ok := values.(*array.Float32)
		if !ok {
			return nil, badType()
		}
		return models.NewFloat32Array(name, dims, va.Float32Values()[start:end]), nil
	case models.KindDouble:
		va, ok := values.(*array.Float64)
		if !ok {
			return nil, badType()
		}
		return models.NewFloat64Array(name, dims, va.Float64Values()[start:end]), nil
	}
	return nil, fmt.Errorf("container: array %q holds unsupported tag %s", name, tag)
}

func joinDims(dims []int) string {
	if len(dims) == 0 {
		return ""
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
