package mpd

// DurationUnknown marks an MPD or Period whose duration is not yet known
// (an in-progress live presentation).
const DurationUnknown int64 = -1

// UTCTiming describes an MPD's <UTCTiming> element: a scheme for resolving
// wall-clock time against the manifest, used to synchronize availability
// windows on live presentations. The engine carries it opaquely; resolving
// it against a real UTC source is an embedder concern.
type UTCTiming struct {
	SchemeIDURI string
	Value       string
}

// MediaPresentationDescription is the root of the DASH data model. It is
// constructed by the parser (internal/mpdparser) and handed to callers as
// an immutable value: callers hold a *MediaPresentationDescription, the
// fetcher swaps in a newer one atomically on refresh, and the old one is
// collected once the last reader drops it. Nothing mutates a published
// MPD in place.
type MediaPresentationDescription struct {
	AvailabilityStartTimeMs int64
	DurationMs              int64
	MinBufferTimeMs         int64
	Dynamic                 bool
	MinUpdatePeriodMs       int64
	TimeShiftBufferDepthMs  int64
	UTCTiming               *UTCTiming
	Location                string
	Periods                 []*Period
	Descriptors             []DescriptorType
}

// PeriodDurationMs returns the duration of the period at index i, derived
// from the start of the following period (or the MPD's own duration for
// the last period of a static presentation). Returns DurationUnknown when
// it cannot be determined (the last period of a dynamic presentation).
func (m *MediaPresentationDescription) PeriodDurationMs(i int) int64 {
	if i < 0 || i >= len(m.Periods) {
		return DurationUnknown
	}
	if i+1 < len(m.Periods) {
		return m.Periods[i+1].StartMs - m.Periods[i].StartMs
	}
	if m.DurationMs == DurationUnknown {
		return DurationUnknown
	}
	return m.DurationMs - m.Periods[i].StartMs
}
