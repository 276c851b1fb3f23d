package mpd

// IndexUnbounded is the sentinel returned by LastSegmentNum when a period's
// duration is not yet known (a live/dynamic presentation whose current
// period has no announced end).
const IndexUnbounded int32 = -1

// SegmentBase is the sum type of the three ways a Representation can name
// its media segments. Rather than a class hierarchy, it is modeled as an
// interface with a type switch at the few call sites that need to
// distinguish the variants (mirroring the capability-trait approach the
// specification's design notes recommend for this kind of polymorphism).
type SegmentBase interface {
	// Timescale is the number of ticks per second used by this segment
	// base's time values.
	Timescale() int64
	// PresentationTimeOffset shifts segment-local time onto the period
	// timeline, in Timescale units.
	PresentationTimeOffset() int64
	// BaseURL is the base URI RangedURIs produced by this segment base
	// should resolve against; empty means "inherit from the enclosing
	// Period/AdaptationSet/Representation".
	BaseURL() string
	// IsSingleSegment reports whether this segment base names exactly one
	// media file (a SingleSegmentBase), as opposed to a MultiSegmentBase
	// (SegmentList or SegmentTemplate).
	IsSingleSegment() bool
}

// baseSegmentBase holds the fields common to every SegmentBase variant.
type baseSegmentBase struct {
	timescale              int64
	presentationTimeOffset int64
	baseURL                string
}

func (b *baseSegmentBase) Timescale() int64              { return b.timescale }
func (b *baseSegmentBase) PresentationTimeOffset() int64  { return b.presentationTimeOffset }
func (b *baseSegmentBase) BaseURL() string                { return b.baseURL }

// SingleSegmentBase names a Representation backed by exactly one media
// file, optionally self-indexed by a sidx box covered by IndexRange.
type SingleSegmentBase struct {
	baseSegmentBase
	Initialization *RangedURI
	IndexRange     *RangedURI
	MediaURI       *RangedURI
}

// NewSingleSegmentBase constructs a SingleSegmentBase. timescale must be >0.
func NewSingleSegmentBase(baseURL string, timescale, presentationTimeOffset int64, initialization, indexRange, media *RangedURI) *SingleSegmentBase {
	return &SingleSegmentBase{
		baseSegmentBase: baseSegmentBase{timescale: timescale, presentationTimeOffset: presentationTimeOffset, baseURL: baseURL},
		Initialization:  initialization,
		IndexRange:      indexRange,
		MediaURI:        media,
	}
}

// IsSingleSegment always returns true for SingleSegmentBase.
func (s *SingleSegmentBase) IsSingleSegment() bool { return true }

// IsSelfIndexed reports whether this base carries a sidx box range; a
// Representation constructed from such a base is promoted to expose a
// DashSegmentIndex (see internal/extractor for the sidx reader).
func (s *SingleSegmentBase) IsSelfIndexed() bool { return s.IndexRange != nil }
