// ABOUTME: Semantic version normalization for tool registration and resolution.
// ABOUTME: Accepts ints, dotted strings, and 1-3 integer sequences; canonical form is (major, minor, patch).

package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion indicates a version that could not be normalized.
var ErrInvalidVersion = errors.New("invalid version")

// Version is a canonical (major, minor, patch) triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// String renders the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 comparing v to o, ordering by major, then
// minor, then patch.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmpInt(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmpInt(v.Patch, o.Patch)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ParseVersion normalizes a version expressed as an int, a dotted string with
// 1-3 numeric components, a Version, or a sequence of 1-3 ints. Missing
// trailing components default to 0. Negative numbers, more than 3 components,
// and non-numeric components are ErrInvalidVersion.
func ParseVersion(v any) (Version, error) {
	switch val := v.(type) {
	case Version:
		if val.Major < 0 || val.Minor < 0 || val.Patch < 0 {
			return Version{}, fmt.Errorf("%w: %v", ErrInvalidVersion, val)
		}
		return val, nil
	case int:
		if val < 0 {
			return Version{}, fmt.Errorf("%w: %d", ErrInvalidVersion, val)
		}
		return Version{Major: val}, nil
	case string:
		return parseVersionString(val)
	case []int:
		return versionFromParts(val)
	case [3]int:
		return versionFromParts(val[:])
	default:
		return Version{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidVersion, v)
	}
}

// parseVersionString parses a dotted version string like "2", "2.1", "2.1.3".
func parseVersionString(s string) (Version, error) {
	components := strings.Split(s, ".")
	if len(components) > 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	parts := make([]int, 0, 3)
	for _, c := range components {
		n, err := strconv.Atoi(c)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		parts = append(parts, n)
	}
	return versionFromParts(parts)
}

// versionFromParts builds a Version from 1-3 components, padding with zeros.
func versionFromParts(parts []int) (Version, error) {
	if len(parts) < 1 || len(parts) > 3 {
		return Version{}, fmt.Errorf("%w: expected 1-3 components, got %d", ErrInvalidVersion, len(parts))
	}
	padded := [3]int{}
	for i, p := range parts {
		if p < 0 {
			return Version{}, fmt.Errorf("%w: negative component %d", ErrInvalidVersion, p)
		}
		padded[i] = p
	}
	return Version{Major: padded[0], Minor: padded[1], Patch: padded[2]}, nil
}
