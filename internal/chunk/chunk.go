// Package chunk implements the media-load pipeline: a Chunk describes one
// HTTP load (a segment, an index box, an initialization segment), a
// MediaChunk adds media timing, and the concrete chunk types drive a data
// source and route the bytes into a track output — directly for
// single-sample chunks, through a hosted container parser for
// stream-parsed chunks.
package chunk

import (
	"context"
	"sync"

	"github.com/streamcore/ndash/internal/extractor"
	"github.com/streamcore/ndash/internal/mpd"
)

// TriggerReason records why a chunk load was scheduled.
type TriggerReason int

const (
	TriggerUnspecified TriggerReason = iota
	TriggerInitial
	TriggerManual
	TriggerAdaptive
	TriggerTrickPlay
)

// DataSource is the slice of internal/httpsource.Source the chunk loaders
// drive. Tests substitute an in-memory fake.
type DataSource interface {
	Open(ctx context.Context, spec mpd.DataSpec) (int64, error)
	Read(ctx context.Context, p []byte) (int, error)
	Close() error
}

// Chunk describes one load: what to fetch, why, and the media interval it
// covers. ChunkIndex is the segment sequence number, or -1 for loads that
// aren't media segments (initialization, index boxes).
type Chunk struct {
	DataSpec   mpd.DataSpec
	Trigger    TriggerReason
	Format     *mpd.Format
	StartTimeUs int64
	EndTimeUs   int64
	ChunkIndex  int32
	ParentID    string
}

// DurationUs is the media interval this chunk covers.
func (c *Chunk) DurationUs() int64 { return c.EndTimeUs - c.StartTimeUs }

// MediaChunk is a Chunk that carries media samples (as opposed to an
// initialization or index load).
type MediaChunk struct {
	Chunk
}

// BaseMediaChunk adds the track-output binding shared by the concrete
// media chunk types: the output sink and the output's write index at
// Init time, so samples written by this chunk can be located later even
// when loads interleave.
type BaseMediaChunk struct {
	MediaChunk

	// IsMediaFormatFinal reports whether GetMediaFormat is authoritative
	// (true) or may be refined by the container parser during load.
	IsMediaFormatFinal bool

	output           extractor.IndexedTrackOutput
	firstSampleIndex int64
}

// Init binds the track output and captures its current write index.
func (b *BaseMediaChunk) Init(output extractor.IndexedTrackOutput) {
	b.output = output
	b.firstSampleIndex = output.WriteIndex()
}

// Output returns the bound track output, nil before Init.
func (b *BaseMediaChunk) Output() extractor.IndexedTrackOutput { return b.output }

// FirstSampleIndex returns the output write index captured at Init.
func (b *BaseMediaChunk) FirstSampleIndex() int64 { return b.firstSampleIndex }

// loadCancelState is the shared cancellation flag polled between reads by
// every chunk loader.
type loadCancelState struct {
	mu       sync.Mutex
	canceled bool
}

func (l *loadCancelState) cancel() {
	l.mu.Lock()
	l.canceled = true
	l.mu.Unlock()
}

func (l *loadCancelState) isCanceled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canceled
}
