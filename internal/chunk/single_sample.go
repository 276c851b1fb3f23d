package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/streamcore/ndash/internal/extractor"
	"github.com/streamcore/ndash/internal/mpd"
)

// SingleSampleMediaChunk loads a resource that is exactly one
// container-less sample (e.g. a self-contained caption file): the whole
// body is appended as sample data and committed with a single
// sample-metadata record spanning the chunk's media interval.
type SingleSampleMediaChunk struct {
	BaseMediaChunk

	source       DataSource
	sampleFormat *extractor.MediaFormat
	drmInitData  []mpd.ContentProtection

	mu          sync.Mutex
	bytesLoaded int64

	cancelState loadCancelState
}

// NewSingleSampleMediaChunk constructs a single-sample chunk over source.
// sampleFormat is the (final) media format of the one sample; drmInitData
// carries the content protections of the owning adaptation set, or nil.
func NewSingleSampleMediaChunk(source DataSource, spec mpd.DataSpec, trigger TriggerReason, format *mpd.Format,
	startTimeUs, endTimeUs int64, chunkIndex int32, sampleFormat *extractor.MediaFormat,
	drmInitData []mpd.ContentProtection, parentID string) *SingleSampleMediaChunk {
	c := &SingleSampleMediaChunk{
		source:       source,
		sampleFormat: sampleFormat,
		drmInitData:  drmInitData,
	}
	c.Chunk = Chunk{
		DataSpec:    spec,
		Trigger:     trigger,
		Format:      format,
		StartTimeUs: startTimeUs,
		EndTimeUs:   endTimeUs,
		ChunkIndex:  chunkIndex,
		ParentID:    parentID,
	}
	c.IsMediaFormatFinal = true
	return c
}

// GetMediaFormat returns the sample's media format.
func (c *SingleSampleMediaChunk) GetMediaFormat() *extractor.MediaFormat { return c.sampleFormat }

// GetDrmInitData returns the content protections carried for this sample.
func (c *SingleSampleMediaChunk) GetDrmInitData() []mpd.ContentProtection { return c.drmInitData }

// BytesLoaded returns how many bytes have landed in the track output so
// far; safe to call concurrently with Load.
func (c *SingleSampleMediaChunk) BytesLoaded() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesLoaded
}

// CancelLoad requests that an in-flight Load abort at its next poll point.
func (c *SingleSampleMediaChunk) CancelLoad() { c.cancelState.cancel() }

// IsLoadCanceled reports whether CancelLoad has been called.
func (c *SingleSampleMediaChunk) IsLoadCanceled() bool { return c.cancelState.isCanceled() }

// Load fetches the chunk's remaining bytes and writes them as one sample.
// A re-load after a partial failure resumes at the unloaded suffix via the
// DataSpec remainder. Returns an error on transport failure or
// cancellation; the partial byte count survives for the next attempt.
func (c *SingleSampleMediaChunk) Load(ctx context.Context) error {
	loadSpec := mpd.Remainder(c.DataSpec, c.BytesLoaded())

	openSize, err := c.source.Open(ctx, loadSpec)
	if err != nil {
		c.source.Close()
		return fmt.Errorf("chunk: opening %s: %w", loadSpec.URI, err)
	}

	input := extractor.NewInput(ctx, c.source, loadSpec.AbsoluteStreamPosition, openSize)

	failed := false
	for {
		if c.cancelState.isCanceled() {
			failed = true
			break
		}
		appended, err := c.Output().WriteSampleData(input, math.MaxInt64, true)
		c.mu.Lock()
		c.bytesLoaded += appended
		c.mu.Unlock()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			failed = true
			break
		}
	}

	c.source.Close()

	if failed {
		return errors.New("chunk: load aborted")
	}

	c.Output().WriteSampleMetadata(extractor.SampleMetadata{
		TimeUs:     c.StartTimeUs,
		DurationUs: c.EndTimeUs - c.StartTimeUs,
		Flags:      extractor.SampleFlagSync,
		Size:       c.BytesLoaded(),
		Offset:     0,
	})
	return nil
}
