// Package fileref provides the canonical path handle used throughout the
// mining pipeline. A Ref is comparable by value, so it can be used directly
// as a map key for queue membership and pool occupancy tracking.
package fileref

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Ref is an opaque handle denoting a filesystem path. Two Refs are equal if
// and only if their canonical paths are equal. Refs are immutable.
type Ref struct {
	path string
}

// New creates a Ref from a filesystem path, cleaning and absolutizing it so
// that equality and prefix tests are based on the canonical form. The result
// is also run through Unicode NFC normalization, the same treatment the
// teacher's scan path applies to content names before comparing them, so
// that two paths differing only in combining-character composition (e.g. a
// precomposed "é" versus "e" + combining acute) still compare equal.
func New(path string) Ref {
	clean := filepath.Clean(path)
	if abs, err := filepath.Abs(clean); err == nil {
		clean = abs
	}
	return Ref{path: norm.NFC.String(clean)}
}

// Zero reports whether the Ref holds no path.
func (r Ref) Zero() bool {
	return r.path == ""
}

// Path returns the canonical filesystem path.
func (r Ref) Path() string {
	return r.path
}

// Base returns the final path segment (the display name).
func (r Ref) Base() string {
	return filepath.Base(r.path)
}

// Dir returns a Ref for the parent directory.
func (r Ref) Dir() Ref {
	return Ref{path: filepath.Dir(r.path)}
}

// Join returns a Ref for a child of this Ref by name.
func (r Ref) Join(name string) Ref {
	return Ref{path: filepath.Join(r.path, name)}
}

// Equal reports whether two Refs denote the same canonical path.
func (r Ref) Equal(other Ref) bool {
	return r.path == other.path
}

// HasPrefix reports whether r is other itself or a descendant of other, using
// path-segment containment rather than raw string prefixing (so
// "/root/subdir" is not considered a descendant of "/root/sub").
func (r Ref) HasPrefix(other Ref) bool {
	if r.path == other.path {
		return true
	}
	prefix := other.path
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(r.path, prefix)
}

// URI converts the Ref to a "file://" URI string, matching the template the
// store's SPARQL-like endpoint expects for resource identifiers.
func (r Ref) URI() string {
	escaped := (&url.URL{Path: filepath.ToSlash(r.path)}).EscapedPath()
	return "file://" + escaped
}

// String implements fmt.Stringer for diagnostic output.
func (r Ref) String() string {
	return r.path
}
