package mpd

// Period is a contiguous playback interval within an MPD.
type Period struct {
	ID             string
	StartMs        int64
	AdaptationSets []*AdaptationSet
	// SegmentBase is inherited by AdaptationSets/Representations that don't
	// define their own.
	SegmentBase SegmentBase
}

// NewPeriod constructs a Period starting at startMs.
func NewPeriod(id string, startMs int64) *Period {
	return &Period{ID: id, StartMs: startMs}
}

// AdaptationSetsByType returns the subset of this Period's AdaptationSets
// matching contentType, in document order.
func (p *Period) AdaptationSetsByType(contentType ContentType) []*AdaptationSet {
	var out []*AdaptationSet
	for _, as := range p.AdaptationSets {
		if as.ContentType == contentType {
			out = append(out, as)
		}
	}
	return out
}
