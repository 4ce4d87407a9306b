package borealis

import "fmt"

// RestructureError reports a set that cannot be transformed: a format
// with no record-oriented/columnar mapping, inconsistent leading
// dimensions, or a field the schema requires that the set lacks.
type RestructureError struct {
	Format string
	Msg    string
}

func (e *RestructureError) Error() string {
	return fmt.Sprintf("borealis: %s: %s", e.Format, e.Msg)
}

func restructureErrf(format, msg string, args ...any) *RestructureError {
	return &RestructureError{Format: format, Msg: fmt.Sprintf(msg, args...)}
}
