package chunk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/streamcore/ndash/internal/extractor"
	"github.com/streamcore/ndash/internal/mpd"
)

// StreamParsedMediaChunk loads a containerized segment by delegating the
// byte stream to a hosted container parser (an extractor.Extractor); the
// parser emits configs, sample data and an optional seek map through the
// chunk's output shim.
type StreamParsedMediaChunk struct {
	BaseMediaChunk

	source DataSource
	parser extractor.Extractor

	mu           sync.Mutex
	bytesLoaded  int64
	mediaFormat  *extractor.MediaFormat
	seekMap      extractor.SeekMap
	drmInitData  []byte

	cancelState loadCancelState
}

// NewStreamParsedMediaChunk constructs a stream-parsed chunk: bytes from
// source are fed through parser, whose track output is shimmed onto this
// chunk's bound IndexedTrackOutput.
func NewStreamParsedMediaChunk(source DataSource, spec mpd.DataSpec, trigger TriggerReason, format *mpd.Format,
	startTimeUs, endTimeUs int64, chunkIndex int32, parser extractor.Extractor, parentID string) *StreamParsedMediaChunk {
	c := &StreamParsedMediaChunk{source: source, parser: parser}
	c.Chunk = Chunk{
		DataSpec:    spec,
		Trigger:     trigger,
		Format:      format,
		StartTimeUs: startTimeUs,
		EndTimeUs:   endTimeUs,
		ChunkIndex:  chunkIndex,
		ParentID:    parentID,
	}
	return c
}

// GetMediaFormat returns the format the parser discovered, nil until the
// parser has emitted one.
func (c *StreamParsedMediaChunk) GetMediaFormat() *extractor.MediaFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mediaFormat
}

// SeekMap returns the seek map the parser emitted, if any.
func (c *StreamParsedMediaChunk) SeekMap() extractor.SeekMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekMap
}

// DrmInitData returns scheme init data found in the container, if any.
func (c *StreamParsedMediaChunk) DrmInitData() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drmInitData
}

// BytesLoaded returns the byte count consumed so far; safe to call
// concurrently with Load.
func (c *StreamParsedMediaChunk) BytesLoaded() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesLoaded
}

// CancelLoad requests that an in-flight Load abort at its next poll point.
func (c *StreamParsedMediaChunk) CancelLoad() { c.cancelState.cancel() }

// IsLoadCanceled reports whether CancelLoad has been called.
func (c *StreamParsedMediaChunk) IsLoadCanceled() bool { return c.cancelState.isCanceled() }

// Load opens the remaining byte range and drives the parser until end of
// input, an error, or cancellation.
func (c *StreamParsedMediaChunk) Load(ctx context.Context) error {
	loadSpec := mpd.Remainder(c.DataSpec, c.BytesLoaded())

	openSize, err := c.source.Open(ctx, loadSpec)
	if err != nil {
		c.source.Close()
		return fmt.Errorf("chunk: opening %s: %w", loadSpec.URI, err)
	}

	input := extractor.NewInput(ctx, &countingSource{chunk: c, source: c.source}, loadSpec.AbsoluteStreamPosition, openSize)
	c.parser.Init(&outputShim{chunk: c})

	for {
		if c.cancelState.isCanceled() {
			c.source.Close()
			return errors.New("chunk: load aborted")
		}
		switch c.parser.Read(input) {
		case extractor.ResultEndOfInput:
			c.source.Close()
			return nil
		case extractor.ResultIOError:
			c.source.Close()
			return fmt.Errorf("chunk: parsing %s failed", loadSpec.URI)
		}
	}
}

// countingSource wraps the chunk's data source so every byte handed to the
// parser is reflected in bytesLoaded.
type countingSource struct {
	chunk  *StreamParsedMediaChunk
	source DataSource
}

func (s *countingSource) Read(ctx context.Context, p []byte) (int, error) {
	n, err := s.source.Read(ctx, p)
	if n > 0 {
		s.chunk.mu.Lock()
		s.chunk.bytesLoaded += int64(n)
		s.chunk.mu.Unlock()
	}
	return n, err
}

// outputShim adapts the chunk's single bound track output to the
// extractor.Output registry contract, capturing format/seek-map/DRM
// emissions on the chunk as they happen.
type outputShim struct {
	chunk *StreamParsedMediaChunk
}

func (o *outputShim) RegisterTrack(int32) extractor.TrackOutput {
	return &trackShim{chunk: o.chunk}
}

func (o *outputShim) DoneRegisteringTracks() {}

func (o *outputShim) GiveSeekMap(seekMap extractor.SeekMap) {
	o.chunk.mu.Lock()
	o.chunk.seekMap = seekMap
	o.chunk.mu.Unlock()
}

func (o *outputShim) SetDrmInitData(schemeInitData []byte) {
	o.chunk.mu.Lock()
	o.chunk.drmInitData = schemeInitData
	o.chunk.mu.Unlock()
}

type trackShim struct {
	chunk *StreamParsedMediaChunk
}

func (t *trackShim) GiveFormat(format *extractor.MediaFormat) {
	t.chunk.mu.Lock()
	t.chunk.mediaFormat = format
	t.chunk.mu.Unlock()
}

func (t *trackShim) WriteSampleData(in extractor.Input, length int64, allowEndOfInput bool) (int64, error) {
	return t.chunk.Output().WriteSampleData(in, length, allowEndOfInput)
}

func (t *trackShim) WriteSampleBytes(p []byte) (int64, error) {
	return t.chunk.Output().WriteSampleBytes(p)
}

func (t *trackShim) WriteSampleMetadata(meta extractor.SampleMetadata) {
	t.chunk.Output().WriteSampleMetadata(meta)
}
