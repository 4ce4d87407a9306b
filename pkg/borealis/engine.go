package borealis

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/openradar/darnio/pkg/models"
)

// SiteRecord is one record-oriented record with its timestamp key, the
// millisecond-epoch decimal string the site layout stores it under.
type SiteRecord struct {
	Key    string
	Record *models.Record
}

// SiteSet is an ordered record-oriented record set.
type SiteSet []SiteRecord

// ToColumnar restructures a site set into one columnar set: shared
// fields collapse to a single value, unshared fields gain a leading
// record-count dimension padded to the set-wide maximum shape, and the
// columnar-only bookkeeping fields are generated over the whole set.
// workers bounds the parallel per-record fill; values below 2 run
// sequentially.
func ToColumnar(f *Format, set SiteSet, workers int) (*models.Record, error) {
	if !f.Restructurable() {
		return nil, restructureErrf(f.Name, "format is not restructurable")
	}
	if len(set) == 0 {
		return nil, restructureErrf(f.Name, "empty record set")
	}

	reshaped := make([]*models.Record, len(set))
	for i, sr := range set {
		rec, err := f.reshapeRecord(sr.Record)
		if err != nil {
			return nil, err
		}
		reshaped[i] = rec
	}

	out := models.NewRecord()
	first := reshaped[0]
	for _, name := range f.Shared {
		field, ok := first.Get(name)
		if !ok {
			return nil, restructureErrf(f.Name, "record 0 lacks shared field %q", name)
		}
		out.Set(field)
	}

	for _, name := range f.ColumnarOnlyFields() {
		field, err := f.generateColumnar(name, f.ColumnarOnly[name], reshaped)
		if err != nil {
			return nil, err
		}
		out.Set(field)
	}

	unshared := f.UnsharedFields()
	filled := make([]models.Field, len(unshared))
	g := newGroup(workers)
	for idx, name := range unshared {
		idx, name := idx, name
		g.Go(func() error {
			field, err := f.fillUnshared(name, reshaped)
			if err != nil {
				return err
			}
			filled[idx] = field
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, field := range filled {
		out.Set(field)
	}

	log.Debug().Str("component", "restructure").Str("format", f.Name).
		Int("records", len(set)).Msg("site set restructured to columnar")
	return out, nil
}

// ToSite restructures a columnar set back into ordered per-record
// records, slicing each unshared field to its true per-record shape and
// discarding sentinel padding.
func ToSite(f *Format, columnar *models.Record, workers int) (SiteSet, error) {
	if !f.Restructurable() {
		return nil, restructureErrf(f.Name, "format is not restructurable")
	}
	n, err := f.checkLeadingDims(columnar)
	if err != nil {
		return nil, err
	}

	ts, ok := columnar.Array(f.RecordKeyField)
	if !ok {
		return nil, restructureErrf(f.Name, "columnar set lacks key field %q", f.RecordKeyField)
	}
	rowLen := 1
	for _, d := range ts.Dims[1:] {
		rowLen *= d
	}

	set := make(SiteSet, n)
	g := newGroup(workers)
	for ri := 0; ri < n; ri++ {
		ri := ri
		g.Go(func() error {
			rec, err := f.sliceRecord(columnar, ri)
			if err != nil {
				return err
			}
			sec, err := ts.FloatAt(ri * rowLen)
			if err != nil {
				return err
			}
			set[ri] = SiteRecord{
				Key:    strconv.FormatInt(int64(sec*1000), 10),
				Record: rec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().Str("component", "restructure").Str("format", f.Name).
		Int("records", n).Msg("columnar set restructured to site")
	return set, nil
}

func newGroup(workers int) *errgroup.Group {
	var g errgroup.Group
	if workers < 2 {
		workers = 1
	}
	g.SetLimit(workers)
	return &g
}

// checkLeadingDims verifies every unshared field reports the same
// leading dimension and returns it.
func (f *Format) checkLeadingDims(columnar *models.Record) (int, error) {
	n := -1
	var sizes []string
	mismatch := false
	for _, name := range f.UnsharedFields() {
		a, ok := columnar.Array(name)
		if !ok {
			return 0, restructureErrf(f.Name, "columnar set lacks unshared field %q", name)
		}
		lead := a.Dims[0]
		sizes = append(sizes, fmt.Sprintf("%s=%d", name, lead))
		if n == -1 {
			n = lead
		} else if lead != n {
			mismatch = true
		}
	}
	if mismatch {
		return 0, restructureErrf(f.Name, "inconsistent leading dimensions: %v", sizes)
	}
	if n <= 0 {
		return 0, restructureErrf(f.Name, "columnar set has no records")
	}
	return n, nil
}

// reshapeRecord returns a copy of rec with the flattened site arrays
// restored to the shape carried by the format's dimension-vector field.
func (f *Format) reshapeRecord(rec *models.Record) (*models.Record, error) {
	if f.Reshape == nil {
		return rec, nil
	}
	dims, err := intVector(rec, f.Reshape.DimsField)
	if err != nil {
		return nil, restructureErrf(f.Name, "reshape: %v", err)
	}
	out := models.NewRecord()
	for _, name := range rec.Names() {
		field, _ := rec.Get(name)
		out.Set(field)
	}
	for _, name := range f.Reshape.Fields {
		a, ok := rec.Array(name)
		if !ok {
			return nil, restructureErrf(f.Name, "reshape: record lacks array %q", name)
		}
		cells := 1
		for _, d := range dims {
			cells *= d
		}
		if cells != a.Count() {
			return nil, restructureErrf(f.Name, "reshape: %q has %d cells, shape %v needs %d",
				name, a.Count(), dims, cells)
		}
		out.Set(&models.Array{Name: name, Tag: a.Tag, Dims: dims, Data: a.Data, Strs: a.Strs})
	}
	return out, nil
}

// flattenRecord is the inverse: the reshape fields drop to one
// dimension for site storage.
func (f *Format) flattenRecord(rec *models.Record) {
	if f.Reshape == nil {
		return
	}
	for _, name := range f.Reshape.Fields {
		if a, ok := rec.Array(name); ok {
			rec.Set(&models.Array{Name: a.Name, Tag: a.Tag, Dims: []int{a.Count()}, Data: a.Data, Strs: a.Strs})
		}
	}
}

func (f *Format) generateColumnar(name string, gen Generator, recs []*models.Record) (models.Field, error) {
	switch gen.Kind {
	case GenLenPerRecord:
		vals := make([]uint32, len(recs))
		for i, rec := range recs {
			a, ok := rec.Array(gen.Source)
			if !ok {
				return nil, restructureErrf(f.Name, "record %d lacks array %q", i, gen.Source)
			}
			vals[i] = uint32(a.Dims[0])
		}
		return models.NewUint32Array(name, []int{len(vals)}, vals), nil
	case GenConstStrings:
		return models.NewStringArray(name, []int{len(gen.Values)}, gen.Values)
	}
	return nil, restructureErrf(f.Name, "field %q: generator kind %d is not columnar", name, gen.Kind)
}

func (f *Format) generateSite(name string, gen Generator, columnar *models.Record, ri int) (models.Field, error) {
	switch gen.Kind {
	case GenConstStrings:
		return models.NewStringArray(name, []int{len(gen.Values)}, gen.Values)
	case GenDimsVector:
		vals := make([]uint32, len(gen.Dims))
		for i, sd := range gen.Dims {
			d, err := f.evalSiteDim(sd, columnar, ri)
			if err != nil {
				return nil, err
			}
			vals[i] = uint32(d)
		}
		return models.NewUint32Array(name, []int{len(vals)}, vals), nil
	}
	return nil, restructureErrf(f.Name, "field %q: generator kind %d is not record-oriented", name, gen.Kind)
}

// fillUnshared builds one columnar array for an unshared field: a
// (recordCount, maxShape...) buffer pre-filled with the sentinel, each
// record's own sub-array copied into its leading-index slice.
func (f *Format) fillUnshared(name string, recs []*models.Record) (models.Field, error) {
	tag, ok := f.tagOf(name)
	if !ok {
		return nil, restructureErrf(f.Name, "field %q is not declared", name)
	}
	rules := f.Unshared[name].ColumnarDims
	n := len(recs)

	if models.KindOf(tag) == models.KindString {
		if len(rules) > 0 {
			return nil, restructureErrf(f.Name, "field %q: ragged string arrays are not supported", name)
		}
		elems := make([]string, n)
		for i, rec := range recs {
			s, ok := rec.Scalar(name)
			if !ok {
				return nil, restructureErrf(f.Name, "record %d lacks field %q", i, name)
			}
			str, ok := s.Value.(string)
			if !ok {
				return nil, restructureErrf(f.Name, "record %d field %q is not a string", i, name)
			}
			elems[i] = str
		}
		return models.NewStringArray(name, []int{n}, elems)
	}

	dims := make([]int, len(rules))
	for i, rule := range rules {
		d, err := f.evalDimRule(rule, recs)
		if err != nil {
			return nil, err
		}
		dims[i] = d
	}

	w, err := models.Width(tag)
	if err != nil {
		return nil, err
	}
	rowCells := 1
	for _, d := range dims {
		rowCells *= d
	}
	data := bytes.Repeat(models.SentinelBytes(tag, f.IntSentinel), n*rowCells)

	for ri, rec := range recs {
		row := data[ri*rowCells*w : (ri+1)*rowCells*w]
		if len(dims) == 0 {
			s, ok := rec.Scalar(name)
			if !ok {
				return nil, restructureErrf(f.Name, "record %d lacks field %q", ri, name)
			}
			if err := putElem(row, tag, s.Value); err != nil {
				return nil, restructureErrf(f.Name, "record %d field %q: %v", ri, name, err)
			}
			continue
		}
		a, ok := rec.Array(name)
		if !ok {
			return nil, restructureErrf(f.Name, "record %d lacks array %q", ri, name)
		}
		if len(a.Dims) != len(dims) {
			return nil, restructureErrf(f.Name, "record %d array %q is rank %d, want %d",
				ri, name, len(a.Dims), len(dims))
		}
		for i, d := range a.Dims {
			if d > dims[i] {
				return nil, restructureErrf(f.Name, "record %d array %q dimension %d is %d, exceeds maximum %d",
					ri, name, i, d, dims[i])
			}
		}
		blockCopy(row, dims, a.Data, a.Dims, a.Dims, w)
	}

	return &models.Array{Name: name, Tag: tag, Dims: append([]int{n}, dims...), Data: data}, nil
}

// sliceRecord rebuilds one site record from the columnar set.
func (f *Format) sliceRecord(columnar *models.Record, ri int) (*models.Record, error) {
	rec := models.NewRecord()
	for _, name := range f.Shared {
		field, ok := columnar.Get(name)
		if !ok {
			return nil, restructureErrf(f.Name, "columnar set lacks shared field %q", name)
		}
		rec.Set(field)
	}
	for _, name := range f.RecordOnlyFields() {
		field, err := f.generateSite(name, f.RecordOnly[name], columnar, ri)
		if err != nil {
			return nil, err
		}
		rec.Set(field)
	}
	for _, name := range f.UnsharedFields() {
		a, ok := columnar.Array(name)
		if !ok {
			return nil, restructureErrf(f.Name, "columnar set lacks unshared field %q", name)
		}
		field, err := f.sliceUnshared(name, a, columnar, ri)
		if err != nil {
			return nil, err
		}
		rec.Set(field)
	}
	f.flattenRecord(rec)
	return rec, nil
}

func (f *Format) sliceUnshared(name string, a *models.Array, columnar *models.Record, ri int) (models.Field, error) {
	tag, _ := f.tagOf(name)
	if _, isScalar := f.ScalarTypes[name]; isScalar {
		if models.KindOf(tag) == models.KindString {
			return models.NewScalar(name, tag, a.Strs[ri]), nil
		}
		v, err := elemValue(a, ri)
		if err != nil {
			return nil, restructureErrf(f.Name, "field %q record %d: %v", name, ri, err)
		}
		return models.NewScalar(name, tag, v), nil
	}

	rowDims := a.Dims[1:]
	rules := f.Unshared[name].SiteDims
	if len(rules) != len(rowDims) {
		return nil, restructureErrf(f.Name, "field %q: %d site dimensions declared for rank %d",
			name, len(rules), len(rowDims))
	}
	siteDims := make([]int, len(rules))
	for i, sd := range rules {
		d, err := f.evalSiteDim(sd, columnar, ri)
		if err != nil {
			return nil, err
		}
		// Secondary dimensions may be smaller than the padded maximum
		// but never larger.
		if d > rowDims[i] {
			return nil, restructureErrf(f.Name, "field %q record %d: dimension %d is %d, padded maximum %d",
				name, ri, i, d, rowDims[i])
		}
		siteDims[i] = d
	}

	w, _ := models.Width(tag)
	rowCells := 1
	for _, d := range rowDims {
		rowCells *= d
	}
	cells := 1
	for _, d := range siteDims {
		cells *= d
	}
	data := make([]byte, cells*w)
	blockCopy(data, siteDims, a.Data[ri*rowCells*w:(ri+1)*rowCells*w], rowDims, siteDims, w)
	return &models.Array{Name: name, Tag: tag, Dims: siteDims, Data: data}, nil
}

func (f *Format) evalDimRule(rule DimRule, recs []*models.Record) (int, error) {
	switch rule.Kind {
	case DimMaxScalar:
		max := int64(0)
		for i, rec := range recs {
			s, ok := rec.Scalar(rule.Field)
			if !ok {
				return 0, restructureErrf(f.Name, "record %d lacks scalar %q", i, rule.Field)
			}
			v, err := s.AsInt64()
			if err != nil {
				return 0, restructureErrf(f.Name, "%v", err)
			}
			if v > max {
				max = v
			}
		}
		return int(max), nil
	case DimMaxLen:
		max := 0
		for i, rec := range recs {
			a, ok := rec.Array(rule.Field)
			if !ok {
				return 0, restructureErrf(f.Name, "record %d lacks array %q", i, rule.Field)
			}
			if a.Dims[0] > max {
				max = a.Dims[0]
			}
		}
		return max, nil
	case DimFirstElem:
		a, ok := recs[0].Array(rule.Field)
		if !ok {
			return 0, restructureErrf(f.Name, "record 0 lacks array %q", rule.Field)
		}
		v, err := a.IntAt(rule.Index)
		if err != nil {
			return 0, restructureErrf(f.Name, "%v", err)
		}
		return int(v), nil
	}
	return 0, restructureErrf(f.Name, "unknown dimension rule kind %d", rule.Kind)
}

func (f *Format) evalSiteDim(sd SiteDim, columnar *models.Record, ri int) (int, error) {
	a, ok := columnar.Array(sd.Field)
	if !ok {
		return 0, restructureErrf(f.Name, "columnar set lacks array %q", sd.Field)
	}
	switch sd.Kind {
	case SitePerRecordScalar:
		v, err := a.IntAt(ri)
		if err != nil {
			return 0, restructureErrf(f.Name, "%v", err)
		}
		return int(v), nil
	case SiteColumnarDim:
		if sd.Axis >= len(a.Dims) {
			return 0, restructureErrf(f.Name, "array %q has no axis %d", sd.Field, sd.Axis)
		}
		return a.Dims[sd.Axis], nil
	}
	return 0, restructureErrf(f.Name, "unknown site dimension kind %d", sd.Kind)
}

// blockCopy copies a row-major region of the given shape from src into
// dst, where the two buffers may have different (elementwise no smaller
// than shape) dimensions. w is the element width.
func blockCopy(dst []byte, dstDims []int, src []byte, srcDims []int, shape []int, w int) {
	if len(shape) == 0 {
		copy(dst[:w], src[:w])
		return
	}
	if len(shape) == 1 {
		copy(dst[:shape[0]*w], src[:shape[0]*w])
		return
	}
	dstStride := w
	for _, d := range dstDims[1:] {
		dstStride *= d
	}
	srcStride := w
	for _, d := range srcDims[1:] {
		srcStride *= d
	}
	for i := 0; i < shape[0]; i++ {
		blockCopy(dst[i*dstStride:], dstDims[1:], src[i*srcStride:], srcDims[1:], shape[1:], w)
	}
}

// putElem encodes one scalar value little-endian at the front of b.
func putElem(b []byte, tag models.TypeTag, value any) error {
	switch v := value.(type) {
	case int8:
		b[0] = byte(v)
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case uint8:
		b[0] = v
	case uint16:
		binary.LittleEndian.PutUint16(b, v)
	case uint32:
		binary.LittleEndian.PutUint32(b, v)
	case uint64:
		binary.LittleEndian.PutUint64(b, v)
	case float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	case bool:
		if v {
			b[0] = 1
		} else {
			b[0] = 0
		}
	default:
		return fmt.Errorf("value %T does not serialize as %s", value, tag)
	}
	return nil
}

// elemValue decodes the flat element at index i into the Go type for the
// array's tag.
func elemValue(a *models.Array, i int) (any, error) {
	switch models.KindOf(a.Tag) {
	case models.KindChar:
		return int8(a.Data[i]), nil
	case models.KindShort:
		return int16(binary.LittleEndian.Uint16(a.Data[2*i:])), nil
	case models.KindInt:
		return int32(binary.LittleEndian.Uint32(a.Data[4*i:])), nil
	case models.KindLong:
		return int64(binary.LittleEndian.Uint64(a.Data[8*i:])), nil
	case models.KindUchar:
		return a.Data[i], nil
	case models.KindUshort:
		return binary.LittleEndian.Uint16(a.Data[2*i:]), nil
	case models.KindUint:
		return binary.LittleEndian.Uint32(a.Data[4*i:]), nil
	case models.KindUlong:
		return binary.LittleEndian.Uint64(a.Data[8*i:]), nil
	case models.KindFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:])), nil
	case models.KindDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:])), nil
	case models.KindBool:
		return a.Data[i] != 0, nil
	}
	return nil, fmt.Errorf("array %q: no scalar form for %s", a.Name, a.Tag)
}

// intVector reads an integer array field as a shape vector.
func intVector(rec *models.Record, name string) ([]int, error) {
	a, ok := rec.Array(name)
	if !ok {
		return nil, fmt.Errorf("record lacks array %q", name)
	}
	out := make([]int, a.Count())
	for i := range out {
		v, err := a.IntAt(i)
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}
