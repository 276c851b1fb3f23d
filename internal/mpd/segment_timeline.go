package mpd

// SegmentTimelineElement is one expanded entry of a DASH <SegmentTimeline>,
// after <S r="n"> repeat counts have been expanded into individual
// (startTime, duration) pairs, both in the owning SegmentBase's timescale.
type SegmentTimelineElement struct {
	StartTime int64
	Duration  int64
}
