package borealis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openradar/darnio/pkg/models"
)

// DimRuleKind selects how one columnar dimension of an unshared field is
// derived from a whole record-oriented set.
type DimRuleKind int

const (
	// DimMaxScalar is the maximum of a per-record integer scalar.
	DimMaxScalar DimRuleKind = iota
	// DimMaxLen is the maximum leading length of a per-record array.
	DimMaxLen
	// DimFirstElem is one element of the first record's integer array.
	// Used for dimensions that cannot change within a file.
	DimFirstElem
)

// DimRule is one columnar dimension of an unshared field.
type DimRule struct {
	Kind  DimRuleKind
	Field string
	Index int
}

// SiteDimKind selects how one record-oriented dimension of an unshared
// field is derived from the columnar set and a record index.
type SiteDimKind int

const (
	// SitePerRecordScalar indexes a columnar integer array by record.
	SitePerRecordScalar SiteDimKind = iota
	// SiteColumnarDim is an axis length of a columnar array. These
	// dimensions are constant across records, unlike the padded ones.
	SiteColumnarDim
)

// SiteDim is one record-oriented dimension of an unshared field.
type SiteDim struct {
	Kind  SiteDimKind
	Field string
	Axis  int
}

// UnsharedField declares how a per-record field's shape is derived in
// each layout. Both dimension lists empty means the field is a single
// element per record, becoming a length-recordCount array in columnar
// layout.
type UnsharedField struct {
	ColumnarDims []DimRule
	SiteDims     []SiteDim
}

// GeneratorKind selects how a layout-only field is computed.
type GeneratorKind int

const (
	// GenLenPerRecord produces a uint array of the Source field's
	// leading length in every record. Columnar-only.
	GenLenPerRecord GeneratorKind = iota
	// GenConstStrings produces a fixed string vector. Either layout.
	GenConstStrings
	// GenDimsVector produces a uint vector of evaluated site
	// dimensions for one record. Record-only.
	GenDimsVector
)

// Generator computes a field that exists in only one layout.
type Generator struct {
	Kind   GeneratorKind
	Source string
	Values []string
	Dims   []SiteDim
}

// ReshapeRule names the fields stored flattened in the site layout and
// the integer vector field carrying their true shape. Restructuring
// reshapes them on the way in and flattens them again on the way out.
type ReshapeRule struct {
	Fields    []string
	DimsField string
}

// Format is the complete field-role schema for one Borealis file type at
// one version. Values are built by the compose functions in formats.go
// and registered once; they are never mutated afterwards.
type Format struct {
	Name string

	// ScalarTypes and ArrayTypes together declare every known field.
	ScalarTypes map[string]models.TypeTag
	ArrayTypes  map[string]models.TypeTag

	Shared       []string
	Unshared     map[string]UnsharedField
	ColumnarOnly map[string]Generator
	RecordOnly   map[string]Generator
	Reshape      *ReshapeRule

	// RecordKeyField is the timestamp array whose first element keys
	// each record. A format without one supports only the site layout.
	RecordKeyField string

	// IntSentinel fills padded cells of integer-kind ragged arrays.
	// Floating and complex kinds always pad with NaN.
	IntSentinel int64
}

// Restructurable reports whether the format maps between layouts.
func (f *Format) Restructurable() bool {
	return f.RecordKeyField != ""
}

func (f *Format) tagOf(name string) (models.TypeTag, bool) {
	if tag, ok := f.ScalarTypes[name]; ok {
		return tag, true
	}
	tag, ok := f.ArrayTypes[name]
	return tag, ok
}

// UnsharedFields returns the unshared field names, sorted.
func (f *Format) UnsharedFields() []string {
	return sortedKeys(f.Unshared)
}

// ColumnarOnlyFields returns the columnar-only field names, sorted.
func (f *Format) ColumnarOnlyFields() []string {
	return sortedKeys(f.ColumnarOnly)
}

// RecordOnlyFields returns the record-only field names, sorted.
func (f *Format) RecordOnlyFields() []string {
	return sortedKeys(f.RecordOnly)
}

// SiteFields returns every field of a site-layout record.
func (f *Format) SiteFields() []string {
	out := append([]string{}, f.Shared...)
	out = append(out, f.UnsharedFields()...)
	out = append(out, f.RecordOnlyFields()...)
	sort.Strings(out)
	return out
}

// ColumnarFields returns every field of a columnar-layout set.
func (f *Format) ColumnarFields() []string {
	out := append([]string{}, f.Shared...)
	out = append(out, f.UnsharedFields()...)
	out = append(out, f.ColumnarOnlyFields()...)
	sort.Strings(out)
	return out
}

// FieldsetError reports a record or set whose fields do not match the
// format's declared set for its layout.
type FieldsetError struct {
	Format     string
	Missing    []string
	Extra      []string
	Mismatches []string
}

func (e *FieldsetError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing fields %v", e.Missing))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("extra fields %v", e.Extra))
	}
	parts = append(parts, e.Mismatches...)
	return fmt.Sprintf("borealis: %s: %s", e.Format, strings.Join(parts, "; "))
}

// ValidateSite checks one site-layout record against the format: every
// site field present, nothing undeclared, element types as declared.
func (f *Format) ValidateSite(rec *models.Record) error {
	return f.validateFields(rec, f.SiteFields())
}

// ValidateColumnar checks a columnar set the same way.
func (f *Format) ValidateColumnar(set *models.Record) error {
	return f.validateFields(set, f.ColumnarFields())
}

func (f *Format) validateFields(rec *models.Record, want []string) error {
	ferr := &FieldsetError{Format: f.Name}
	wanted := make(map[string]struct{}, len(want))
	for _, name := range want {
		wanted[name] = struct{}{}
		if _, ok := rec.Get(name); !ok {
			ferr.Missing = append(ferr.Missing, name)
		}
	}
	for _, name := range rec.Names() {
		if _, ok := wanted[name]; !ok {
			ferr.Extra = append(ferr.Extra, name)
			continue
		}
		declared, _ := f.tagOf(name)
		field, _ := rec.Get(name)
		if got := field.TypeTag(); got != declared {
			ferr.Mismatches = append(ferr.Mismatches,
				fmt.Sprintf("field %q is %s, want %s", name, got, declared))
		}
	}
	sort.Strings(ferr.Missing)
	sort.Strings(ferr.Extra)
	sort.Strings(ferr.Mismatches)
	if len(ferr.Missing) > 0 || len(ferr.Extra) > 0 || len(ferr.Mismatches) > 0 {
		return ferr
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
