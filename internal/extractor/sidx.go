package extractor

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/abema/go-mp4"

	"github.com/streamcore/ndash/internal/mpd"
	"github.com/streamcore/ndash/pkg/dashtime"
)

// ChunkIndex is a segment index built from a parsed sidx box: parallel
// arrays of byte offsets, sizes, start times and durations, one entry per
// referenced subsegment. It implements mpd.DashSegmentIndex so a
// self-indexed Representation can expose it directly, and it doubles as
// the SeekMap a sidx-carrying extractor emits.
type ChunkIndex struct {
	uri        string
	sizes      []int64
	offsets    []int64
	durationsUs []int64
	timesUs    []int64
}

// ParseSidx scans box for a sidx box and builds a ChunkIndex over it. uri
// is the media resource the byte offsets refer into; indexEnd is the
// absolute offset of the first byte after the sidx box (sidx offsets are
// relative to that anchor plus the box's firstOffset field).
func ParseSidx(box []byte, uri string, indexEnd int64) (*ChunkIndex, error) {
	var sidx *mp4.Sidx
	_, err := mp4.ReadBoxStructure(bytes.NewReader(box), func(h *mp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Type != mp4.BoxTypeSidx() {
			return h.Expand()
		}
		payload, _, err := h.ReadPayload()
		if err != nil {
			return nil, err
		}
		if s, ok := payload.(*mp4.Sidx); ok && sidx == nil {
			sidx = s
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: scanning sidx: %w", err)
	}
	if sidx == nil {
		return nil, fmt.Errorf("extractor: no sidx box found")
	}
	if sidx.Timescale == 0 {
		return nil, fmt.Errorf("extractor: sidx timescale is zero")
	}

	var earliest, firstOffset uint64
	if sidx.Version == 0 {
		earliest = uint64(sidx.EarliestPresentationTimeV0)
		firstOffset = uint64(sidx.FirstOffsetV0)
	} else {
		earliest = sidx.EarliestPresentationTimeV1
		firstOffset = sidx.FirstOffsetV1
	}

	idx := &ChunkIndex{uri: uri}
	offset := indexEnd + int64(firstOffset)
	timescale := int64(sidx.Timescale)
	elapsed := int64(earliest)
	for _, ref := range sidx.References {
		if ref.ReferenceType {
			// A reference to a nested sidx box, not media. Hierarchical
			// indexes are not supported.
			return nil, fmt.Errorf("extractor: hierarchical sidx not supported")
		}
		idx.offsets = append(idx.offsets, offset)
		idx.sizes = append(idx.sizes, int64(ref.ReferencedSize))
		idx.timesUs = append(idx.timesUs, dashtime.ScaleLargeTimestamp(elapsed, dashtime.MicrosPerSecond, timescale))
		idx.durationsUs = append(idx.durationsUs, dashtime.ScaleLargeTimestamp(int64(ref.SubsegmentDuration), dashtime.MicrosPerSecond, timescale))
		offset += int64(ref.ReferencedSize)
		elapsed += int64(ref.SubsegmentDuration)
	}
	return idx, nil
}

// FirstSegmentNum is always 0 for a sidx-derived index.
func (c *ChunkIndex) FirstSegmentNum() int32 { return 0 }

// LastSegmentNum ignores the period duration: a sidx enumerates its
// subsegments explicitly.
func (c *ChunkIndex) LastSegmentNum(int64) int32 { return int32(len(c.offsets)) - 1 }

// IsExplicit is always true: every subsegment's timing is enumerated.
func (c *ChunkIndex) IsExplicit() bool { return true }

// SegmentTimeUs returns the presentation start of subsegment n.
func (c *ChunkIndex) SegmentTimeUs(n int32) int64 {
	if n < 0 || int(n) >= len(c.timesUs) {
		return -1
	}
	return c.timesUs[n]
}

// SegmentDurationUs returns the duration of subsegment n.
func (c *ChunkIndex) SegmentDurationUs(n int32, _ int64) int64 {
	if n < 0 || int(n) >= len(c.durationsUs) {
		return -1
	}
	return c.durationsUs[n]
}

// SegmentNumForTime returns the subsegment covering timeUs, clamped to the
// index bounds.
func (c *ChunkIndex) SegmentNumForTime(timeUs, _ int64) int32 {
	n := sort.Search(len(c.timesUs), func(i int) bool { return c.timesUs[i] > timeUs })
	if n == 0 {
		return 0
	}
	return int32(n) - 1
}

// SegmentURI returns the byte range of subsegment n within the indexed
// media resource.
func (c *ChunkIndex) SegmentURI(n int32) *mpd.RangedURI {
	if n < 0 || int(n) >= len(c.offsets) {
		return nil
	}
	return mpd.NewRangedURI(c.uri, "", c.offsets[n], c.sizes[n])
}

// CoalescedRanges merges runs of adjacent subsegment ranges into the
// minimal set of RangedURIs, the request-batching step RangedURI merging
// exists for.
func (c *ChunkIndex) CoalescedRanges() []*mpd.RangedURI {
	var out []*mpd.RangedURI
	for n := int32(0); int(n) < len(c.offsets); n++ {
		uri := c.SegmentURI(n)
		if len(out) > 0 {
			if merged := out[len(out)-1].AttemptMerge(uri); merged != nil {
				out[len(out)-1] = merged
				continue
			}
		}
		out = append(out, uri)
	}
	return out
}

// IsSeekable implements SeekMap; a sidx index is always seekable.
func (c *ChunkIndex) IsSeekable() bool { return true }

// PositionForTime implements SeekMap: the byte offset of the subsegment
// covering timeUs, or 0 for an empty index.
func (c *ChunkIndex) PositionForTime(timeUs int64) int64 {
	if len(c.offsets) == 0 {
		return 0
	}
	return c.offsets[c.SegmentNumForTime(timeUs, 0)]
}
