package rawcc

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcore/ndash/internal/extractor"
	"github.com/streamcore/ndash/pkg/dashtime"
)

// capturingTrack records every sample-data and sample-metadata write.
type capturingTrack struct {
	format   *extractor.MediaFormat
	writes   [][]byte
	metadata []extractor.SampleMetadata
}

func (c *capturingTrack) GiveFormat(f *extractor.MediaFormat) { c.format = f }

func (c *capturingTrack) WriteSampleData(in extractor.Input, length int64, allowEndOfInput bool) (int64, error) {
	return 0, io.EOF
}

func (c *capturingTrack) WriteSampleBytes(p []byte) (int64, error) {
	c.writes = append(c.writes, append([]byte(nil), p...))
	return int64(len(p)), nil
}

func (c *capturingTrack) WriteSampleMetadata(meta extractor.SampleMetadata) {
	c.metadata = append(c.metadata, meta)
}

type capturingOutput struct {
	track capturingTrack
}

func (c *capturingOutput) RegisterTrack(int32) extractor.TrackOutput { return &c.track }
func (c *capturingOutput) DoneRegisteringTracks()                    {}
func (c *capturingOutput) GiveSeekMap(extractor.SeekMap)             {}
func (c *capturingOutput) SetDrmInitData([]byte)                     {}

type byteReader struct {
	data      []byte
	chunkSize int
}

func (r *byteReader) Read(_ context.Context, p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunkSize
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.data) {
		n = len(r.data)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

// packet is one RAWCC file: header, then a single packet with pts=1 and
// five caption entries.
var packet = []byte{
	0x52, 0x43, 0x43, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x01, 0x05,
	0x03, 0x80, 0x80,
	0x03, 0x81, 0x81,
	0x03, 0x82, 0x82,
	0x03, 0x83, 0x83,
	0x03, 0x84, 0x84,
}

func drive(t *testing.T, chunkSize int) *capturingOutput {
	t.Helper()
	out := &capturingOutput{}
	p := New(0, nil, nil)
	p.Init(out)

	in := extractor.NewInput(context.Background(), &byteReader{data: packet, chunkSize: chunkSize}, 0, int64(len(packet)))
	for {
		result := p.Read(in)
		require.NotEqual(t, extractor.ResultIOError, result)
		if result == extractor.ResultEndOfInput {
			break
		}
	}
	return out
}

func assertParsedPacket(t *testing.T, out *capturingOutput) {
	t.Helper()
	wantPtsUs := dashtime.ScaleLargeTimestamp(1, dashtime.MicrosPerMs, 45)

	require.Len(t, out.track.metadata, 1)
	meta := out.track.metadata[0]
	assert.Equal(t, wantPtsUs, meta.TimeUs)
	assert.EqualValues(t, 0, meta.DurationUs)
	assert.Equal(t, extractor.SampleFlagSync, meta.Flags)
	assert.EqualValues(t, 40, meta.Size)
	assert.EqualValues(t, 0, meta.Offset)

	require.Len(t, out.track.writes, 5)
	for i, w := range out.track.writes {
		require.Len(t, w, 8)
		assert.Equal(t, []byte{0, 0, 0, 1}, w[:4], "entry %d pts", i)
		assert.Equal(t, byte(0x03), w[4], "entry %d field", i)
		assert.Equal(t, byte(0x80+i), w[5], "entry %d cc1", i)
		assert.Equal(t, byte(0x80+i), w[6], "entry %d cc2", i)
		assert.Equal(t, byte(0), w[7], "entry %d cc_valid", i)
	}
}

func TestParseWholePacket(t *testing.T) {
	assertParsedPacket(t, drive(t, len(packet)))
}

func TestParseByteByByte(t *testing.T) {
	assertParsedPacket(t, drive(t, 1))
}

func TestBadHeaderIsIOError(t *testing.T) {
	out := &capturingOutput{}
	p := New(0, nil, nil)
	p.Init(out)

	bad := []byte{'B', 'A', 'R', 'F', 0, 0, 0, 0}
	in := extractor.NewInput(context.Background(), &byteReader{data: bad, chunkSize: len(bad)}, 0, int64(len(bad)))
	assert.Equal(t, extractor.ResultIOError, p.Read(in))
}

func TestUnsupportedVersionIsIOError(t *testing.T) {
	out := &capturingOutput{}
	p := New(0, nil, nil)
	p.Init(out)

	bad := []byte{0x52, 0x43, 0x43, 0x01, 0x01, 0x00, 0x00, 0x00}
	in := extractor.NewInput(context.Background(), &byteReader{data: bad, chunkSize: len(bad)}, 0, int64(len(bad)))
	assert.Equal(t, extractor.ResultIOError, p.Read(in))
}

func TestTruncationWindowSuppressesOutput(t *testing.T) {
	out := &capturingOutput{}
	start := 10 * time.Second
	p := New(0, &start, nil)
	p.Init(out)

	in := extractor.NewInput(context.Background(), &byteReader{data: packet, chunkSize: len(packet)}, 0, int64(len(packet)))
	for {
		result := p.Read(in)
		require.NotEqual(t, extractor.ResultIOError, result)
		if result == extractor.ResultEndOfInput {
			break
		}
	}

	assert.Empty(t, out.track.writes)
	assert.Empty(t, out.track.metadata)
}

func TestSeekResetsState(t *testing.T) {
	out := &capturingOutput{}
	p := New(0, nil, nil)
	p.Init(out)

	half := packet[:10]
	in := extractor.NewInput(context.Background(), &byteReader{data: half, chunkSize: len(half)}, 0, int64(len(half)))
	require.Equal(t, extractor.ResultContinue, p.Read(in))

	p.Seek()

	in = extractor.NewInput(context.Background(), &byteReader{data: packet, chunkSize: len(packet)}, 0, int64(len(packet)))
	for {
		result := p.Read(in)
		require.NotEqual(t, extractor.ResultIOError, result)
		if result == extractor.ResultEndOfInput {
			break
		}
	}
	assertParsedPacket(t, out)
}
