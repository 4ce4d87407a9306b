package models

import "fmt"

// TypeTag identifies the element type of a scalar or array field.
//
// Tags 0-19 are the DMAP wire tags and are bit-exact with the RST
// definition; they must never be renumbered. Tags 24+ exist only for
// in-memory records (Borealis array files carry bool and complex data
// that DMAP has no wire representation for) and are rejected by the
// wire codec.
type TypeTag uint8

const (
	TypeNone   TypeTag = 0
	TypeChar   TypeTag = 1 // signed 8-bit integer, never a character type
	TypeShort  TypeTag = 2
	TypeInt    TypeTag = 3
	TypeFloat  TypeTag = 4
	TypeDouble TypeTag = 8
	TypeString TypeTag = 9
	TypeLong   TypeTag = 10
	TypeUchar  TypeTag = 16
	TypeUshort TypeTag = 17
	TypeUint   TypeTag = 18
	TypeUlong  TypeTag = 19

	// In-memory only.
	TypeBool      TypeTag = 24
	TypeComplex64 TypeTag = 25
)

// Kind is the semantic class of a type tag.
type Kind int

const (
	KindNone Kind = iota
	KindChar
	KindShort
	KindInt
	KindFloat
	KindDouble
	KindString
	KindLong
	KindUchar
	KindUshort
	KindUint
	KindUlong
	KindBool
	KindComplex64
)

type typeInfo struct {
	width int
	kind  Kind
	wire  bool
	name  string
}

// Single source of truth for element widths and kinds. Every other
// package consults this table through Width/KindOf/IsWire.
var typeRegistry = map[TypeTag]typeInfo{
	TypeNone:      {0, KindNone, true, "none"},
	TypeChar:      {1, KindChar, true, "char"},
	TypeShort:     {2, KindShort, true, "short"},
	TypeInt:       {4, KindInt, true, "int"},
	TypeFloat:     {4, KindFloat, true, "float"},
	TypeDouble:    {8, KindDouble, true, "double"},
	TypeString:    {1, KindString, true, "string"},
	TypeLong:      {8, KindLong, true, "long"},
	TypeUchar:     {1, KindUchar, true, "uchar"},
	TypeUshort:    {2, KindUshort, true, "ushort"},
	TypeUint:      {4, KindUint, true, "uint"},
	TypeUlong:     {8, KindUlong, true, "ulong"},
	TypeBool:      {1, KindBool, false, "bool"},
	TypeComplex64: {8, KindComplex64, false, "complex64"},
}

// UnsupportedTypeTagError reports a tag that is absent from the registry.
type UnsupportedTypeTagError struct {
	Tag TypeTag
}

func (e *UnsupportedTypeTagError) Error() string {
	return fmt.Sprintf("unsupported type tag %d", e.Tag)
}

// Known reports whether tag is registered.
func Known(tag TypeTag) bool {
	_, ok := typeRegistry[tag]
	return ok
}

// Width returns the element byte width for tag, or an error for an
// unregistered tag. String elements report width 1 (they are streams of
// 1-byte characters; the true length is the NUL-terminated encoding).
func Width(tag TypeTag) (int, error) {
	info, ok := typeRegistry[tag]
	if !ok {
		return 0, &UnsupportedTypeTagError{Tag: tag}
	}
	return info.width, nil
}

// KindOf returns the semantic kind for tag, or KindNone if unregistered.
func KindOf(tag TypeTag) Kind {
	return typeRegistry[tag].kind
}

// IsWire reports whether tag may appear in the DMAP wire format.
func IsWire(tag TypeTag) bool {
	info, ok := typeRegistry[tag]
	return ok && info.wire
}

// IsFloating reports whether tag is a floating-point or complex kind.
// Used to pick the NaN sentinel for ragged-array padding.
func IsFloating(tag TypeTag) bool {
	switch typeRegistry[tag].kind {
	case KindFloat, KindDouble, KindComplex64:
		return true
	}
	return false
}

func (t TypeTag) String() string {
	if info, ok := typeRegistry[t]; ok {
		return info.name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}
