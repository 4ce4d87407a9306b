// Package dmap implements the DMAP self-describing binary record format:
// a sequence of records, each carrying its own byte-length header and an
// ordered set of named, typed scalar and array fields.
package dmap

import (
	"fmt"

	"github.com/openradar/darnio/pkg/models"
)

// StructuralError reports a header or size violation: a block size that
// does not fit the remaining buffer, a negative count, a bad dimension.
// It is always fatal for the whole buffer.
type StructuralError struct {
	Offset int
	Record int
	Msg    string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("dmap: structural error at offset %d (record %d): %s", e.Offset, e.Record, e.Msg)
}

// CursorError reports a cursor overrun or a record whose consumed byte
// count does not match its declared block size. Fatal, no partial record.
type CursorError struct {
	Offset int
	Record int
	Msg    string
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("dmap: cursor error at offset %d (record %d): %s", e.Offset, e.Record, e.Msg)
}

// TypeTagError reports a type tag that is unknown to the registry or not
// permitted on the wire.
type TypeTagError struct {
	Offset int
	Record int
	Field  string
	Tag    models.TypeTag
}

func (e *TypeTagError) Error() string {
	return fmt.Sprintf("dmap: field %q at offset %d (record %d): unsupported wire type tag %d", e.Field, e.Offset, e.Record, uint8(e.Tag))
}
