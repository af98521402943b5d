package version

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/homeboy-cli/homeboy/apperror"
)

// BumpType selects which SemVer segment to increment.
type BumpType string

const (
	BumpPatch BumpType = "patch"
	BumpMinor BumpType = "minor"
	BumpMajor BumpType = "major"
)

// ParseBumpType parses a bump type argument.
func ParseBumpType(s string) (BumpType, error) {
	switch BumpType(s) {
	case BumpPatch, BumpMinor, BumpMajor:
		return BumpType(s), nil
	default:
		return "", apperror.InvalidArgument("bump_type", fmt.Sprintf("'%s' is not one of patch, minor, major", s), nil)
	}
}

var plainVersion = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Parse accepts only MAJOR.MINOR.PATCH with numeric segments.
func Parse(v string) (*semver.Version, error) {
	if !plainVersion.MatchString(v) {
		return nil, apperror.InvalidArgument("version", fmt.Sprintf("'%s' is not a MAJOR.MINOR.PATCH version", v), nil)
	}
	sv, err := semver.StrictNewVersion(v)
	if err != nil {
		return nil, apperror.InvalidArgument("version", err.Error(), nil)
	}
	return sv, nil
}

// Increment bumps v. Lower segments are reset to zero.
func Increment(v string, bump BumpType) (string, error) {
	sv, err := Parse(v)
	if err != nil {
		return "", err
	}
	var next semver.Version
	switch bump {
	case BumpPatch:
		next = sv.IncPatch()
	case BumpMinor:
		next = sv.IncMinor()
	case BumpMajor:
		next = sv.IncMajor()
	default:
		_, err := ParseBumpType(string(bump))
		return "", err
	}
	return next.String(), nil
}

// Compare orders two plain versions like strings.Compare.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
