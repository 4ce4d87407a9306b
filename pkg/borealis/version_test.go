package borealis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openradar/darnio/pkg/models"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"v0.5", Version{0, 5}},
		{"v0.4-61-gc13ab34", Version{0, 4}},
		{"v0.2", Version{0, 2}},
		{"v1.0-dirty", Version{1, 0}},
		{"deadbeef", VersionSentinel},
		{"0.5", VersionSentinel},
		{"v0x5", VersionSentinel},
		{"v0.x", VersionSentinel},
		{"v0", VersionSentinel},
		{"", VersionSentinel},
	}
	for _, c := range cases {
		if got := ParseVersion(c.in); got != c.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestVersionOf(t *testing.T) {
	rec := models.NewRecord()
	rec.Set(models.NewScalar("borealis_git_hash", models.TypeString, "v0.5-12-gdeadbee"))
	require.Equal(t, V05, VersionOf(rec))

	require.Equal(t, VersionSentinel, VersionOf(models.NewRecord()))
}

func TestRegistry(t *testing.T) {
	for _, v := range []Version{V02, V03, V04} {
		f, err := Lookup("rawacf", v)
		require.NoError(t, err)
		require.Contains(t, f.Shared, "blanked_samples")
		require.NotContains(t, f.UnsharedFields(), "blanked_samples")
	}

	f, err := Lookup("rawacf", V05)
	require.NoError(t, err)
	require.NotContains(t, f.Shared, "blanked_samples")
	require.Contains(t, f.UnsharedFields(), "blanked_samples")
	require.Contains(t, f.UnsharedFields(), "slice_interfacing")
	require.Contains(t, f.ColumnarOnlyFields(), "num_blanked_samples")
	require.Contains(t, f.Shared, "averaging_method")

	b5, err := Lookup("bfiq", V05)
	require.NoError(t, err)
	require.NotContains(t, b5.Shared, "averaging_method")
	require.Contains(t, b5.Shared, "slice_id")

	a5, err := Lookup("antennas_iq", V05)
	require.NoError(t, err)
	require.Contains(t, a5.UnsharedFields(), "blanked_samples")
	require.Equal(t, models.TypeUint, a5.ArrayTypes["blanked_samples"])

	rf, err := Lookup("rawrf", V04)
	require.NoError(t, err)
	require.False(t, rf.Restructurable())

	_, err = Lookup("rawacf", Version{0, 1})
	require.Error(t, err)

	_, err = Lookup("nonsense", V04)
	require.Error(t, err)
}

func TestDerivedFieldSets(t *testing.T) {
	f, err := Lookup("antennas_iq", V04)
	require.NoError(t, err)

	site := f.SiteFields()
	columnar := f.ColumnarFields()

	// data_dimensions exists only in site records; num_beams only in
	// the columnar set.
	require.Contains(t, site, "data_dimensions")
	require.NotContains(t, columnar, "data_dimensions")
	require.Contains(t, columnar, "num_beams")
	require.NotContains(t, site, "num_beams")

	// data_descriptors exists in both with different contents.
	require.Contains(t, site, "data_descriptors")
	require.Contains(t, columnar, "data_descriptors")
}
