package sdarn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openradar/darnio/pkg/models"
)

func scalarFor(name string, tag models.TypeTag) *models.Scalar {
	var v any
	switch models.KindOf(tag) {
	case models.KindChar:
		v = int8(0)
	case models.KindShort:
		v = int16(0)
	case models.KindInt:
		v = int32(0)
	case models.KindFloat:
		v = float32(0)
	case models.KindDouble:
		v = float64(0)
	case models.KindString:
		v = ""
	}
	return models.NewScalar(name, tag, v)
}

// recordFor builds a record covering exactly the named groups.
func recordFor(f *Format, groups ...string) *models.Record {
	want := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		want[g] = struct{}{}
	}
	rec := models.NewRecord()
	for _, g := range f.Groups {
		if _, ok := want[g.Name]; !ok {
			continue
		}
		for name, tag := range g.Types {
			rec.Set(scalarFor(name, tag))
		}
	}
	return rec
}

func TestValidateCompleteRecord(t *testing.T) {
	rec := recordFor(Rawacf, "types", "correlation")
	require.NoError(t, Rawacf.Validate(rec, 0))
}

func TestValidateWholeGroupAbsent(t *testing.T) {
	// A fitacf record without the fitted and elevation groups is a
	// legitimate no-echo record.
	rec := recordFor(Fitacf, "types")
	require.NoError(t, Fitacf.Validate(rec, 0))
}

func TestValidateMissingField(t *testing.T) {
	f := &Format{Name: "bfiq", Groups: []FieldGroup{
		{Name: "types", Types: map[string]models.TypeTag{
			"num_sequences": models.TypeInt,
			"num_slices":    models.TypeInt,
			"borealis_git_hash": models.TypeString,
		}},
	}}
	rec := models.NewRecord()
	rec.Set(scalarFor("num_slices", models.TypeInt))
	rec.Set(scalarFor("borealis_git_hash", models.TypeString))

	err := f.Validate(rec, 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"num_sequences"}, verr.Missing)
	require.Equal(t, 3, verr.Record)
	require.Empty(t, verr.Extra)
}

func TestValidateExtraField(t *testing.T) {
	rec := recordFor(Rawacf, "types")
	rec.Set(scalarFor("dummy", models.TypeInt))

	err := Rawacf.Validate(rec, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"dummy"}, verr.Extra)
	require.Empty(t, verr.Missing)
}

func TestValidateTypeMismatch(t *testing.T) {
	rec := recordFor(Rawacf, "types")
	rec.Set(models.NewScalar("stid", models.TypeInt, int32(5)))

	err := Rawacf.Validate(rec, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Mismatches, 1)
	require.Equal(t, "stid", verr.Mismatches[0].Field)
	require.Equal(t, models.TypeShort, verr.Mismatches[0].Want)
	require.Equal(t, models.TypeInt, verr.Mismatches[0].Got)
}

func TestValidateAggregatesAllChecks(t *testing.T) {
	f := &Format{Name: "test", Groups: []FieldGroup{
		{Name: "types", Types: map[string]models.TypeTag{
			"a": models.TypeShort,
			"b": models.TypeShort,
			"c_f": models.TypeFloat,
		}},
	}}
	rec := models.NewRecord()
	rec.Set(scalarFor("a", models.TypeShort))
	rec.Set(models.NewScalar("c_f", models.TypeDouble, 0.0))
	rec.Set(scalarFor("dummy", models.TypeInt))

	err := f.Validate(rec, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"b"}, verr.Missing)
	require.Equal(t, []string{"dummy"}, verr.Extra)
	require.Len(t, verr.Mismatches, 1)
}

func TestEncodeDecodeValidated(t *testing.T) {
	recs := []*models.Record{recordFor(Grid, "types", "fitted")}
	buf, err := EncodeValidated(recs, Grid)
	require.NoError(t, err)

	got, err := DecodeValidated(buf, Grid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(recs[0]))
}

func TestEncodeValidatedRejectsBadRecord(t *testing.T) {
	rec := recordFor(Map, "types")
	rec.Set(scalarFor("dummy", models.TypeInt))
	_, err := EncodeValidated([]*models.Record{rec}, Map)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
