// Package borealis declares the Borealis data formats (rawacf, bfiq,
// antennas_iq, rawrf) as field-role schemas and restructures record sets
// between the record-oriented site layout and the columnar array layout.
package borealis

import (
	"fmt"

	"github.com/openradar/darnio/pkg/models"
)

// Version is a Borealis software version, taken from the git tag embedded
// in each record.
type Version struct {
	Major uint8
	Minor uint8
}

// VersionSentinel marks data produced by an untagged build.
var VersionSentinel = Version{255, 255}

var (
	V02 = Version{0, 2}
	V03 = Version{0, 3}
	V04 = Version{0, 4}
	V05 = Version{0, 5}
)

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// ParseVersion extracts the version from a git describe string such as
// "v0.5-12-gdeadbee". Only the two single-digit positions of a tagged
// build are significant; anything else yields the sentinel.
func ParseVersion(s string) Version {
	if len(s) >= 4 && s[0] == 'v' && s[2] == '.' &&
		s[1] >= '0' && s[1] <= '9' && s[3] >= '0' && s[3] <= '9' {
		return Version{Major: s[1] - '0', Minor: s[3] - '0'}
	}
	return VersionSentinel
}

// VersionOf reads the version from a record's borealis_git_hash field.
func VersionOf(rec *models.Record) Version {
	s, ok := rec.Scalar("borealis_git_hash")
	if !ok {
		return VersionSentinel
	}
	hash, ok := s.Value.(string)
	if !ok {
		return VersionSentinel
	}
	return ParseVersion(hash)
}
