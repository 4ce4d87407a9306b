// Package sdarn declares the SuperDARN file formats carried over DMAP
// (iqdat, rawacf, fitacf, grid, map) and validates records against them.
package sdarn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openradar/darnio/pkg/models"
)

// FieldGroup is one independently-optional set of fields. Processing
// options upstream decide whether a group is emitted at all, so a record
// may omit an entire group without error; omitting part of one is a
// missing-field violation.
type FieldGroup struct {
	Name  string
	Types map[string]models.TypeTag
}

// Format is an ordered list of field groups for one file type. The first
// group is the core field set; the rest are optional extensions.
type Format struct {
	Name   string
	Groups []FieldGroup
}

// allFields returns the union of every group's field set with its
// declared tag.
func (f *Format) allFields() map[string]models.TypeTag {
	out := make(map[string]models.TypeTag)
	for _, g := range f.Groups {
		for name, tag := range g.Types {
			out[name] = tag
		}
	}
	return out
}

// TypeMismatch is one field whose runtime tag differs from the declared
// one.
type TypeMismatch struct {
	Field string
	Want  models.TypeTag
	Got   models.TypeTag
}

// ValidationError aggregates every violation found in one record. All
// three checks run regardless of earlier failures so the caller gets the
// complete diagnostic set in one pass.
type ValidationError struct {
	Format     string
	Record     int
	Missing    []string
	Extra      []string
	Mismatches []TypeMismatch
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing fields %v", e.Missing))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("extra fields %v", e.Extra))
	}
	for _, m := range e.Mismatches {
		parts = append(parts, fmt.Sprintf("field %q is %s, want %s", m.Field, m.Got, m.Want))
	}
	return fmt.Sprintf("sdarn: %s record %d: %s", e.Format, e.Record, strings.Join(parts, "; "))
}

// Validate checks rec against the format's field groups: missing fields
// (whole-group absence tolerated), undeclared extra fields, and element
// type mismatches. recNum is carried into the diagnostic only.
func (f *Format) Validate(rec *models.Record, recNum int) error {
	complete := f.allFields()

	present := make(map[string]struct{}, rec.Len())
	for _, name := range rec.Names() {
		if _, known := complete[name]; known {
			present[name] = struct{}{}
		}
	}

	missing := make(map[string]struct{})
	for _, g := range f.Groups {
		var diff []string
		for name := range g.Types {
			if _, ok := present[name]; !ok {
				diff = append(diff, name)
			}
		}
		// A fully absent group means the producing option was not
		// used, not a broken record.
		if len(diff) == 0 || len(diff) == len(g.Types) {
			continue
		}
		for _, name := range diff {
			missing[name] = struct{}{}
		}
	}

	verr := &ValidationError{Format: f.Name, Record: recNum}
	for name := range missing {
		verr.Missing = append(verr.Missing, name)
	}
	sort.Strings(verr.Missing)

	for _, name := range rec.Names() {
		want, known := complete[name]
		if !known {
			verr.Extra = append(verr.Extra, name)
			continue
		}
		field, _ := rec.Get(name)
		if got := field.TypeTag(); got != want {
			verr.Mismatches = append(verr.Mismatches, TypeMismatch{Field: name, Want: want, Got: got})
		}
	}
	sort.Strings(verr.Extra)
	sort.Slice(verr.Mismatches, func(i, j int) bool {
		return verr.Mismatches[i].Field < verr.Mismatches[j].Field
	})

	if len(verr.Missing) > 0 || len(verr.Extra) > 0 || len(verr.Mismatches) > 0 {
		return verr
	}
	return nil
}
