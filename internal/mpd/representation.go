package mpd

// DashSegmentIndex is the interface a self-indexed Representation exposes
// over a parsed sidx box, letting the chunk pipeline look up segments by
// sequence number or by time without re-parsing the index.
type DashSegmentIndex interface {
	FirstSegmentNum() int32
	LastSegmentNum(periodDurationUs int64) int32
	SegmentNumForTime(timeUs, periodDurationUs int64) int32
	SegmentTimeUs(sequenceNumber int32) int64
	SegmentDurationUs(sequenceNumber int32, periodDurationUs int64) int64
	SegmentURI(sequenceNumber int32) *RangedURI
	IsExplicit() bool
}

// Representation is one encoding of an AdaptationSet's content: a Format
// plus the SegmentBase describing how to locate its media segments. A
// Representation either owns its SegmentBase or borrows the enclosing
// AdaptationSet's (SegmentBase is nil in the latter case and the caller
// must consult the AdaptationSet).
type Representation struct {
	ID           string
	RevisionID   int64
	Format       Format
	SegmentBase  SegmentBase
	ContentID    string

	// index is set when this Representation was constructed from a
	// SingleSegmentBase carrying a known IndexRange: it is then
	// "self-indexed" and exposes a DashSegmentIndex over the sidx box an
	// extractor adapter has scanned. Nil until the sidx has been read.
	index DashSegmentIndex
}

// NewRepresentation constructs a Representation. If base is a
// *SingleSegmentBase with a non-nil IndexRange, the Representation is
// promoted to self-indexed: IsSelfIndexed reports true and SetSegmentIndex
// may later be called once the sidx box has been parsed.
func NewRepresentation(id string, revisionID int64, format Format, base SegmentBase, contentID string) *Representation {
	return &Representation{ID: id, RevisionID: revisionID, Format: format, SegmentBase: base, ContentID: contentID}
}

// IsSelfIndexed reports whether this Representation's SegmentBase is a
// SingleSegmentBase carrying a sidx IndexRange.
func (r *Representation) IsSelfIndexed() bool {
	ssb, ok := r.SegmentBase.(*SingleSegmentBase)
	return ok && ssb.IsSelfIndexed()
}

// SetSegmentIndex attaches a parsed DashSegmentIndex (built by an extractor
// adapter after scanning the sidx box at IndexRange) to a self-indexed
// Representation.
func (r *Representation) SetSegmentIndex(idx DashSegmentIndex) {
	r.index = idx
}

// SegmentIndex returns the attached DashSegmentIndex, or nil if this
// Representation isn't self-indexed or hasn't had its sidx scanned yet.
func (r *Representation) SegmentIndex() DashSegmentIndex {
	return r.index
}

// EffectiveSegmentBase returns this Representation's own SegmentBase, or
// inherited, falling back to the enclosing AdaptationSet's when this
// Representation doesn't carry its own.
func (r *Representation) EffectiveSegmentBase(adaptationSetBase SegmentBase) SegmentBase {
	if r.SegmentBase != nil {
		return r.SegmentBase
	}
	return adaptationSetBase
}
