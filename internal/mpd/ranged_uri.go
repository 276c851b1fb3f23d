package mpd

import "github.com/streamcore/ndash/pkg/urischeme"

// LengthUnbounded marks a RangedURI (or DataSpec) whose length runs to the
// end of the resource.
const LengthUnbounded int64 = -1

// RangedURI is an immutable (base URI, relative reference, byte range)
// triple. It resolves lazily to a full URI via RFC 3986, and two adjacent
// RangedURIs referring to the same resolved resource can be merged into one.
type RangedURI struct {
	baseURI      string
	referenceURI string
	start        int64
	length       int64
}

// NewRangedURI builds a RangedURI. start must be >= 0; length is >= 0 or
// LengthUnbounded.
func NewRangedURI(baseURI, referenceURI string, start, length int64) *RangedURI {
	return &RangedURI{baseURI: baseURI, referenceURI: referenceURI, start: start, length: length}
}

// ResolveURI resolves the reference against the base URI.
func (r *RangedURI) ResolveURI() (string, error) {
	return urischeme.Resolve(r.baseURI, r.referenceURI)
}

// Start returns the byte offset of the range.
func (r *RangedURI) Start() int64 { return r.start }

// Length returns the byte length of the range, or LengthUnbounded.
func (r *RangedURI) Length() int64 { return r.length }

// Equal reports whether r and other resolve to the same URI and cover the
// same byte range.
func (r *RangedURI) Equal(other *RangedURI) bool {
	if r == nil || other == nil {
		return r == other
	}
	ru, err1 := r.ResolveURI()
	ou, err2 := other.ResolveURI()
	if err1 != nil || err2 != nil {
		return false
	}
	return ru == ou && r.start == other.start && r.length == other.length
}

// AttemptMerge merges r with other if they resolve to the same URI and their
// byte ranges are adjacent (in either order). It returns nil when no merge
// is possible. An unbounded length absorbs any adjacent range.
func (r *RangedURI) AttemptMerge(other *RangedURI) *RangedURI {
	if r == nil || other == nil {
		return nil
	}
	ru, err1 := r.ResolveURI()
	ou, err2 := other.ResolveURI()
	if err1 != nil || err2 != nil || ru != ou {
		return nil
	}

	if r.length != LengthUnbounded && r.start+r.length == other.start {
		mergedLength := other.length
		if mergedLength != LengthUnbounded {
			mergedLength = r.length + other.length
		}
		return NewRangedURI(r.baseURI, r.referenceURI, r.start, mergedLength)
	}
	if other.length != LengthUnbounded && other.start+other.length == r.start {
		mergedLength := r.length
		if mergedLength != LengthUnbounded {
			mergedLength = r.length + other.length
		}
		return NewRangedURI(other.baseURI, other.referenceURI, other.start, mergedLength)
	}
	return nil
}
