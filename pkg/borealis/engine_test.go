package borealis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openradar/darnio/pkg/models"
)

// antennasIqSiteRecord builds one antennas_iq v0.4 site record with two
// antennas and three samples. The sequence and beam counts vary per
// record, which is what makes the columnar layout ragged.
func antennasIqSiteRecord(t *testing.T, ts float64, numSeqs, numBeams int) *models.Record {
	t.Helper()
	rec := models.NewRecord()

	rec.Set(models.NewScalar("borealis_git_hash", models.TypeString, "v0.4-61-gc13ab34"))
	rec.Set(models.NewScalar("experiment_id", models.TypeLong, int64(100123)))
	rec.Set(models.NewScalar("experiment_name", models.TypeString, "TwoFSound"))
	rec.Set(models.NewScalar("experiment_comment", models.TypeString, ""))
	rec.Set(models.NewScalar("slice_comment", models.TypeString, ""))
	rec.Set(models.NewScalar("station", models.TypeString, "sas"))
	rec.Set(models.NewScalar("rx_sample_rate", models.TypeDouble, 3333.333))
	rec.Set(models.NewScalar("int_time", models.TypeFloat, float32(3.5)))
	rec.Set(models.NewScalar("tx_pulse_len", models.TypeUint, uint32(300)))
	rec.Set(models.NewScalar("tau_spacing", models.TypeUint, uint32(2400)))
	rec.Set(models.NewScalar("main_antenna_count", models.TypeUint, uint32(2)))
	rec.Set(models.NewScalar("intf_antenna_count", models.TypeUint, uint32(0)))
	rec.Set(models.NewScalar("freq", models.TypeUint, uint32(10500)))
	rec.Set(models.NewScalar("samples_data_type", models.TypeString, "complex float"))
	rec.Set(models.NewScalar("num_samps", models.TypeUint, uint32(3)))
	rec.Set(models.NewScalar("data_normalization_factor", models.TypeDouble, 9999999.999))
	rec.Set(models.NewScalar("num_slices", models.TypeLong, int64(1)))
	rec.Set(models.NewScalar("num_sequences", models.TypeLong, int64(numSeqs)))
	rec.Set(models.NewScalar("scan_start_marker", models.TypeBool, true))

	rec.Set(models.NewUint32Array("pulses", []int{2}, []uint32{0, 9}))
	rec.Set(models.NewFloat32Array("pulse_phase_offset", []int{2}, []float32{0, 0}))
	order, err := models.NewStringArray("antenna_arrays_order", []int{2}, []string{"antenna_0", "antenna_1"})
	require.NoError(t, err)
	rec.Set(order)

	seqTS := make([]float64, numSeqs)
	noise := make([]float64, numSeqs)
	for i := range seqTS {
		seqTS[i] = ts + float64(i)*0.1
		noise[i] = 1.5
	}
	rec.Set(models.NewFloat64Array("sqn_timestamps", []int{numSeqs}, seqTS))
	rec.Set(models.NewFloat64Array("noise_at_freq", []int{numSeqs}, noise))

	beams := make([]uint32, numBeams)
	azms := make([]float64, numBeams)
	for i := range beams {
		beams[i] = uint32(i)
		azms[i] = float64(i) * 3.24
	}
	rec.Set(models.NewUint32Array("beam_nums", []int{numBeams}, beams))
	rec.Set(models.NewFloat64Array("beam_azms", []int{numBeams}, azms))

	descs, err := models.NewStringArray("data_descriptors", []int{3},
		[]string{"num_antennas", "num_sequences", "num_samps"})
	require.NoError(t, err)
	rec.Set(descs)
	rec.Set(models.NewUint32Array("data_dimensions", []int{3}, []uint32{2, uint32(numSeqs), 3}))

	// Flat in the site layout; data_dimensions carries the true shape.
	samples := make([]complex64, 2*numSeqs*3)
	for i := range samples {
		samples[i] = complex(float32(i), -float32(i))
	}
	rec.Set(models.NewComplex64Array("data", []int{len(samples)}, samples))

	return rec
}

func antennasIqSiteSet(t *testing.T) SiteSet {
	t.Helper()
	return SiteSet{
		{Key: "1558583991500", Record: antennasIqSiteRecord(t, 1558583991.5, 2, 2)},
		{Key: "1558583994750", Record: antennasIqSiteRecord(t, 1558583994.75, 1, 1)},
	}
}

func TestToColumnarAntennasIq(t *testing.T) {
	f, err := Lookup("antennas_iq", V04)
	require.NoError(t, err)

	set := antennasIqSiteSet(t)
	columnar, err := ToColumnar(f, set, 2)
	require.NoError(t, err)
	require.NoError(t, f.ValidateColumnar(columnar))

	// Shared fields collapse to the first record's value.
	station, ok := columnar.Scalar("station")
	require.True(t, ok)
	require.Equal(t, "sas", station.Value)

	// The data block pads to the maximum sequence count.
	data, ok := columnar.Array("data")
	require.True(t, ok)
	require.Equal(t, []int{2, 2, 2, 3}, data.Dims)

	// Record 1 had one sequence; its second sequence slot is padding.
	samples, err := data.Complex64s()
	require.NoError(t, err)
	pad := samples[(1*2*2+0*2+1)*3]
	require.True(t, math.IsNaN(float64(real(pad))))
	require.True(t, math.IsNaN(float64(imag(pad))))

	// num_beams is generated from beam_nums lengths.
	nb, ok := columnar.Array("num_beams")
	require.True(t, ok)
	got, err := nb.Uint32s()
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 1}, got)

	// Unshared scalars become leading-dimension arrays.
	ns, ok := columnar.Array("num_sequences")
	require.True(t, ok)
	require.Equal(t, []int{2}, ns.Dims)
	first, err := ns.IntAt(0)
	require.NoError(t, err)
	require.Equal(t, int64(2), first)
}

func TestRestructureIdempotence(t *testing.T) {
	f, err := Lookup("antennas_iq", V04)
	require.NoError(t, err)

	set := antennasIqSiteSet(t)
	columnar, err := ToColumnar(f, set, 1)
	require.NoError(t, err)

	back, err := ToSite(f, columnar, 1)
	require.NoError(t, err)
	require.Len(t, back, len(set))

	for i := range set {
		require.Equal(t, set[i].Key, back[i].Key, "record %d key", i)
		require.NoError(t, f.ValidateSite(back[i].Record))
		if !set[i].Record.Equal(back[i].Record) {
			t.Fatalf("record %d did not survive the round trip", i)
		}
	}
}

func TestRaggedPaddingAndRecovery(t *testing.T) {
	// Two records with float payloads of lengths 5 and 3. The columnar
	// block must come out (2, 5) with NaN in the padded tail, and the
	// way back must recover the length-3 row exactly.
	f := &Format{
		Name: "pointstream",
		ScalarTypes: map[string]models.TypeTag{
			"num_points": models.TypeLong,
		},
		ArrayTypes: map[string]models.TypeTag{
			"sqn_timestamps": models.TypeDouble,
			"data":           models.TypeFloat,
		},
		Unshared: map[string]UnsharedField{
			"num_points": {},
			"sqn_timestamps": {
				ColumnarDims: []DimRule{{Kind: DimMaxScalar, Field: "num_points"}},
				SiteDims:     []SiteDim{{Kind: SitePerRecordScalar, Field: "num_points"}},
			},
			"data": {
				ColumnarDims: []DimRule{{Kind: DimMaxLen, Field: "data"}},
				SiteDims:     []SiteDim{{Kind: SitePerRecordScalar, Field: "num_points"}},
			},
		},
		RecordKeyField: "sqn_timestamps",
	}

	mk := func(ts float64, vals []float32) *models.Record {
		rec := models.NewRecord()
		rec.Set(models.NewScalar("num_points", models.TypeLong, int64(len(vals))))
		ats := make([]float64, len(vals))
		for i := range ats {
			ats[i] = ts
		}
		rec.Set(models.NewFloat64Array("sqn_timestamps", []int{len(vals)}, ats))
		rec.Set(models.NewFloat32Array("data", []int{len(vals)}, vals))
		return rec
	}

	set := SiteSet{
		{Key: "1000", Record: mk(1.0, []float32{1, 2, 3, 4, 5})},
		{Key: "2000", Record: mk(2.0, []float32{6, 7, 8})},
	}

	columnar, err := ToColumnar(f, set, 1)
	require.NoError(t, err)

	data, ok := columnar.Array("data")
	require.True(t, ok)
	require.Equal(t, []int{2, 5}, data.Dims)

	vals, err := data.Float32s()
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4, 5}, vals[:5])
	require.Equal(t, []float32{6, 7, 8}, vals[5:8])
	require.True(t, math.IsNaN(float64(vals[8])))
	require.True(t, math.IsNaN(float64(vals[9])))

	back, err := ToSite(f, columnar, 1)
	require.NoError(t, err)
	row1, ok := back[1].Record.Array("data")
	require.True(t, ok)
	require.Equal(t, []int{3}, row1.Dims)
	got, err := row1.Float32s()
	require.NoError(t, err)
	require.Equal(t, []float32{6, 7, 8}, got)
}

func TestLeadingDimensionMismatch(t *testing.T) {
	f := &Format{
		Name: "pointstream",
		ArrayTypes: map[string]models.TypeTag{
			"sqn_timestamps": models.TypeDouble,
			"a":              models.TypeFloat,
			"b":              models.TypeFloat,
			"c":              models.TypeFloat,
		},
		Unshared: map[string]UnsharedField{
			"a": {ColumnarDims: []DimRule{{Kind: DimMaxLen, Field: "a"}}},
			"b": {ColumnarDims: []DimRule{{Kind: DimMaxLen, Field: "b"}}},
			"c": {ColumnarDims: []DimRule{{Kind: DimMaxLen, Field: "c"}}},
		},
		RecordKeyField: "sqn_timestamps",
	}

	columnar := models.NewRecord()
	columnar.Set(models.NewFloat32Array("a", []int{5, 1}, make([]float32, 5)))
	columnar.Set(models.NewFloat32Array("b", []int{5, 1}, make([]float32, 5)))
	columnar.Set(models.NewFloat32Array("c", []int{4, 1}, make([]float32, 4)))
	columnar.Set(models.NewFloat64Array("sqn_timestamps", []int{5, 1}, make([]float64, 5)))

	_, err := ToSite(f, columnar, 1)
	var rerr *RestructureError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Msg, "c=4")
}

func TestRawrfNotRestructurable(t *testing.T) {
	f, err := Lookup("rawrf", V04)
	require.NoError(t, err)

	var rerr *RestructureError
	_, err = ToColumnar(f, SiteSet{}, 1)
	require.ErrorAs(t, err, &rerr)
	_, err = ToSite(f, models.NewRecord(), 1)
	require.ErrorAs(t, err, &rerr)
}

func TestValidateSiteFieldset(t *testing.T) {
	f, err := Lookup("antennas_iq", V04)
	require.NoError(t, err)

	rec := antennasIqSiteRecord(t, 1558583991.5, 2, 2)
	require.NoError(t, f.ValidateSite(rec))

	rec.Set(models.NewScalar("dummy", models.TypeInt, int32(0)))
	err = f.ValidateSite(rec)
	var ferr *FieldsetError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, []string{"dummy"}, ferr.Extra)
}

func TestSentinelFillUsesIntSentinelForIntegers(t *testing.T) {
	f := &Format{
		Name: "gates",
		ScalarTypes: map[string]models.TypeTag{
			"n": models.TypeLong,
		},
		ArrayTypes: map[string]models.TypeTag{
			"sqn_timestamps": models.TypeDouble,
			"gates":          models.TypeShort,
		},
		Unshared: map[string]UnsharedField{
			"n": {},
			"sqn_timestamps": {
				ColumnarDims: []DimRule{{Kind: DimMaxLen, Field: "sqn_timestamps"}},
				SiteDims:     []SiteDim{{Kind: SitePerRecordScalar, Field: "n"}},
			},
			"gates": {
				ColumnarDims: []DimRule{{Kind: DimMaxLen, Field: "gates"}},
				SiteDims:     []SiteDim{{Kind: SitePerRecordScalar, Field: "n"}},
			},
		},
		RecordKeyField: "sqn_timestamps",
		IntSentinel:    -1,
	}

	mk := func(vals []int16) *models.Record {
		rec := models.NewRecord()
		rec.Set(models.NewScalar("n", models.TypeLong, int64(len(vals))))
		rec.Set(models.NewFloat64Array("sqn_timestamps", []int{len(vals)}, make([]float64, len(vals))))
		rec.Set(models.NewInt16Array("gates", []int{len(vals)}, vals))
		return rec
	}
	set := SiteSet{
		{Key: "0", Record: mk([]int16{1, 2})},
		{Key: "0", Record: mk([]int16{3})},
	}

	columnar, err := ToColumnar(f, set, 1)
	require.NoError(t, err)
	gates, ok := columnar.Array("gates")
	require.True(t, ok)
	vals, err := gates.Int16s()
	require.NoError(t, err)
	require.Equal(t, []int16{1, 2, 3, -1}, vals)
}
