package mpd

import "github.com/streamcore/ndash/pkg/dashtime"

// MultiSegmentBase carries the fields and segment-index arithmetic shared
// by SegmentList and SegmentTemplate. It is embedded by both rather than
// reached through inheritance.
type MultiSegmentBase struct {
	baseSegmentBase
	StartNumber int32
	// Duration is the default per-segment duration in Timescale units; it
	// is meaningless (and Timeline is used instead) when Timeline != nil.
	Duration int64
	// Timeline is this level's explicit <SegmentTimeline>, or nil if one
	// was not present (in which case it may be inherited from Parent).
	Timeline []SegmentTimelineElement
	// Parent supplies an inherited Timeline when Timeline is nil, mirroring
	// AdaptationSet-level SegmentList/SegmentTemplate inheritance down to
	// Representation level.
	Parent *MultiSegmentBase
	// ExplicitSegmentCount overrides the duration-based last-segment-number
	// computation when the segment count is known by construction (a
	// SegmentList's enumerated media URIs); -1 means "not applicable".
	ExplicitSegmentCount int32
}

// NewMultiSegmentBase constructs the shared core of a SegmentList or
// SegmentTemplate.
func NewMultiSegmentBase(baseURL string, timescale, presentationTimeOffset int64, startNumber int32, duration int64, timeline []SegmentTimelineElement, parent *MultiSegmentBase) MultiSegmentBase {
	return MultiSegmentBase{
		baseSegmentBase:       baseSegmentBase{timescale: timescale, presentationTimeOffset: presentationTimeOffset, baseURL: baseURL},
		StartNumber:           startNumber,
		Duration:              duration,
		Timeline:              timeline,
		Parent:                parent,
		ExplicitSegmentCount:  -1,
	}
}

// IsSingleSegment is always false for a MultiSegmentBase.
func (m *MultiSegmentBase) IsSingleSegment() bool { return false }

// GetSegmentTimeLine returns this level's timeline, falling back to the
// parent's when this level doesn't define one.
func (m *MultiSegmentBase) GetSegmentTimeLine() []SegmentTimelineElement {
	if m.Timeline == nil && m.Parent != nil {
		return m.Parent.GetSegmentTimeLine()
	}
	return m.Timeline
}

// FirstSegmentNum is the lowest valid segment sequence number.
func (m *MultiSegmentBase) FirstSegmentNum() int32 { return m.StartNumber }

// IsExplicit reports whether segment timing comes from an explicit
// timeline rather than a fixed default duration.
func (m *MultiSegmentBase) IsExplicit() bool { return m.GetSegmentTimeLine() != nil }

// LastSegmentNum returns the highest valid segment sequence number, or
// IndexUnbounded if the period's duration (and hence the segment count) is
// not yet known.
func (m *MultiSegmentBase) LastSegmentNum(periodDurationUs int64) int32 {
	if tl := m.GetSegmentTimeLine(); tl != nil {
		return m.StartNumber + int32(len(tl)) - 1
	}
	if m.ExplicitSegmentCount >= 0 {
		return m.StartNumber + m.ExplicitSegmentCount - 1
	}
	if periodDurationUs == 0 {
		return IndexUnbounded
	}
	durationUs := dashtime.ScaleLargeTimestamp(m.Duration, dashtime.MicrosPerSecond, m.timescale)
	return m.StartNumber + int32(ceilDiv(periodDurationUs, durationUs)) - 1
}

// SegmentTimeUs returns the presentation start time of sequenceNumber, in
// microseconds, or -1 if it falls outside an explicit timeline.
func (m *MultiSegmentBase) SegmentTimeUs(sequenceNumber int32) int64 {
	idx := sequenceNumber - m.StartNumber
	var unscaled int64
	if tl := m.GetSegmentTimeLine(); tl != nil {
		if idx < 0 || int(idx) >= len(tl) {
			return -1
		}
		unscaled = tl[idx].StartTime - m.presentationTimeOffset
	} else {
		unscaled = int64(idx) * m.Duration
	}
	return dashtime.ScaleLargeTimestamp(unscaled, dashtime.MicrosPerSecond, m.timescale)
}

// SegmentDurationUs returns the duration of sequenceNumber in microseconds.
// The final implicit segment of a bounded period is shortened to fit
// exactly within periodDurationUs.
func (m *MultiSegmentBase) SegmentDurationUs(sequenceNumber int32, periodDurationUs int64) int64 {
	if tl := m.GetSegmentTimeLine(); tl != nil {
		idx := sequenceNumber - m.StartNumber
		if idx < 0 || int(idx) >= len(tl) {
			return -1
		}
		return dashtime.ScaleLargeTimestamp(tl[idx].Duration, dashtime.MicrosPerSecond, m.timescale)
	}
	if sequenceNumber == m.LastSegmentNum(periodDurationUs) {
		return periodDurationUs - m.SegmentTimeUs(sequenceNumber)
	}
	return dashtime.ScaleLargeTimestamp(m.Duration, dashtime.MicrosPerSecond, m.timescale)
}

// SegmentNumForTime returns the sequence number of the segment covering
// timeUs, clamped to [FirstSegmentNum, LastSegmentNum].
func (m *MultiSegmentBase) SegmentNumForTime(timeUs, periodDurationUs int64) int32 {
	first := m.StartNumber
	low := first
	high := m.LastSegmentNum(periodDurationUs)

	if tl := m.GetSegmentTimeLine(); tl == nil {
		durationUs := dashtime.ScaleLargeTimestamp(m.Duration, dashtime.MicrosPerSecond, m.timescale)
		segNum := first + int32(timeUs/durationUs)
		if segNum < low {
			return low
		}
		if high != IndexUnbounded && segNum > high {
			return high
		}
		return segNum
	}

	for low <= high {
		mid := low + (high-low)/2
		midTimeUs := m.SegmentTimeUs(mid)
		switch {
		case midTimeUs < timeUs:
			low = mid + 1
		case midTimeUs > timeUs:
			high = mid - 1
		default:
			return mid
		}
	}
	if low == first {
		return low
	}
	return high
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// SegmentList is a MultiSegmentBase whose media is an explicit list of
// RangedURIs, one per segment.
type SegmentList struct {
	MultiSegmentBase
	Initialization *RangedURI
	MediaURIs      []*RangedURI
}

// NewSegmentList constructs a SegmentList; core.ExplicitSegmentCount is set
// from len(mediaURIs) so LastSegmentNum doesn't need a period duration.
func NewSegmentList(core MultiSegmentBase, initialization *RangedURI, mediaURIs []*RangedURI) *SegmentList {
	core.ExplicitSegmentCount = int32(len(mediaURIs))
	return &SegmentList{MultiSegmentBase: core, Initialization: initialization, MediaURIs: mediaURIs}
}

// GetInitialization returns the static initialization segment, if any.
func (s *SegmentList) GetInitialization() *RangedURI { return s.Initialization }

// GetSegmentURI returns the RangedURI for segment sequenceNumber.
func (s *SegmentList) GetSegmentURI(sequenceNumber int32) *RangedURI {
	idx := sequenceNumber - s.StartNumber
	if idx < 0 || int(idx) >= len(s.MediaURIs) {
		return nil
	}
	return s.MediaURIs[idx]
}

// SegmentTemplate is a MultiSegmentBase whose media (and optionally
// initialization) URIs are built from compiled URLTemplates.
type SegmentTemplate struct {
	MultiSegmentBase
	// Initialization is the static initialization RangedURI, used when
	// InitializationTemplate is nil. Exactly one of the two is non-nil.
	Initialization         *RangedURI
	InitializationTemplate *URLTemplate
	MediaTemplate          *URLTemplate
}

// NewSegmentTemplate constructs a SegmentTemplate.
func NewSegmentTemplate(core MultiSegmentBase, initialization *RangedURI, initTemplate, mediaTemplate *URLTemplate) *SegmentTemplate {
	return &SegmentTemplate{MultiSegmentBase: core, Initialization: initialization, InitializationTemplate: initTemplate, MediaTemplate: mediaTemplate}
}

// GetInitialization resolves the initialization segment for representationID
// at the given bitrate.
func (s *SegmentTemplate) GetInitialization(representationID string, bitrate int64) *RangedURI {
	if s.InitializationTemplate != nil {
		uri := s.InitializationTemplate.BuildURI(representationID, 0, bitrate, 0)
		return NewRangedURI(s.BaseURL(), uri, 0, LengthUnbounded)
	}
	return s.Initialization
}

// GetSegmentURI resolves the media segment URI for sequenceNumber.
func (s *SegmentTemplate) GetSegmentURI(representationID string, bitrate int64, sequenceNumber int32) *RangedURI {
	idx := sequenceNumber - s.StartNumber
	var time int64
	if tl := s.GetSegmentTimeLine(); tl != nil {
		if idx < 0 || int(idx) >= len(tl) {
			return nil
		}
		time = tl[idx].StartTime
	} else {
		time = int64(idx) * s.Duration
	}
	uri := s.MediaTemplate.BuildURI(representationID, int64(sequenceNumber), bitrate, time)
	return NewRangedURI(s.BaseURL(), uri, 0, LengthUnbounded)
}
