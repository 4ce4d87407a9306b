package models

import "fmt"

// Field is a named, typed value inside a Record: either *Scalar or *Array.
type Field interface {
	FieldName() string
	TypeTag() TypeTag
}

// Scalar is a single primitive value. The concrete type of Value follows
// the tag: int8 (char), int16, int32, float32, float64, string, int64,
// uint8, uint16, uint32, uint64, bool, complex64.
type Scalar struct {
	Name  string
	Tag   TypeTag
	Value any
}

// NewScalar builds a scalar field. The caller is responsible for passing
// a value whose Go type matches the tag; the wire writer will reject
// mismatches at encode time.
func NewScalar(name string, tag TypeTag, value any) *Scalar {
	return &Scalar{Name: name, Tag: tag, Value: value}
}

func (s *Scalar) FieldName() string { return s.Name }
func (s *Scalar) TypeTag() TypeTag  { return s.Tag }

// AsInt64 returns the scalar value widened to int64 for any integer or
// bool kind. Used by dimension rules that read bookkeeping scalars.
func (s *Scalar) AsInt64() (int64, error) {
	switch v := s.Value.(type) {
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("scalar %q (%s) is not an integer kind", s.Name, s.Tag)
}

// AsFloat64 returns the scalar value widened to float64 for any numeric kind.
func (s *Scalar) AsFloat64() (float64, error) {
	switch v := s.Value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	i, err := s.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("scalar %q (%s) is not a numeric kind", s.Name, s.Tag)
	}
	return float64(i), nil
}

// Equal reports deep equality of name, tag and value.
func (s *Scalar) Equal(other *Scalar) bool {
	if other == nil {
		return false
	}
	return s.Name == other.Name && s.Tag == other.Tag && s.Value == other.Value
}

// Record is an ordered mapping of field name to value. Lookup is by name;
// iteration follows insertion order. The wire codec always serializes all
// scalar fields before all array fields regardless of insertion order.
type Record struct {
	names  []string
	fields map[string]Field
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Field)}
}

// Set inserts or replaces a field. A replaced field keeps its original
// position in the iteration order.
func (r *Record) Set(f Field) {
	name := f.FieldName()
	if _, ok := r.fields[name]; !ok {
		r.names = append(r.names, name)
	}
	r.fields[name] = f
}

// Get returns the field with the given name.
func (r *Record) Get(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// Scalar returns the named field if it is a scalar.
func (r *Record) Scalar(name string) (*Scalar, bool) {
	s, ok := r.fields[name].(*Scalar)
	return s, ok
}

// Array returns the named field if it is an array.
func (r *Record) Array(name string) (*Array, bool) {
	a, ok := r.fields[name].(*Array)
	return a, ok
}

// Names returns the field names in insertion order. The returned slice
// is shared; callers must not modify it.
func (r *Record) Names() []string { return r.names }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.names) }

// Scalars returns the scalar fields in insertion order.
func (r *Record) Scalars() []*Scalar {
	var out []*Scalar
	for _, name := range r.names {
		if s, ok := r.fields[name].(*Scalar); ok {
			out = append(out, s)
		}
	}
	return out
}

// Arrays returns the array fields in insertion order.
func (r *Record) Arrays() []*Array {
	var out []*Array
	for _, name := range r.names {
		if a, ok := r.fields[name].(*Array); ok {
			out = append(out, a)
		}
	}
	return out
}

// Equal reports whether two records hold the same field set with equal
// values. Field order is not significant.
func (r *Record) Equal(other *Record) bool {
	if other == nil || len(r.names) != len(other.names) {
		return false
	}
	for name, f := range r.fields {
		g, ok := other.fields[name]
		if !ok {
			return false
		}
		switch fv := f.(type) {
		case *Scalar:
			gv, ok := g.(*Scalar)
			if !ok || !fv.Equal(gv) {
				return false
			}
		case *Array:
			gv, ok := g.(*Array)
			if !ok || !fv.Equal(gv) {
				return false
			}
		default:
			return false
		}
	}
	return true
}
