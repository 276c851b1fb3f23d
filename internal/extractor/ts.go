package extractor

import (
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astits"

	"github.com/streamcore/ndash/pkg/dashtime"
)

// tsClockHz is the MPEG-TS 90 kHz PES clock.
const tsClockHz = 90000

// TSExtractor adapts the go-astits MPEG-TS demuxer to the Extractor
// contract: PMT entries become registered tracks with a MediaFormat, and
// each PES packet becomes one sample on its track's output.
type TSExtractor struct {
	output Output

	demuxer *astits.Demuxer
	tracks  map[uint16]*tsTrack
	doneReg bool
}

type tsTrack struct {
	out       TrackOutput
	streamType astits.StreamType
}

// NewTSExtractor returns an MPEG-TS extractor. Init must be called before
// the first Read.
func NewTSExtractor() *TSExtractor {
	return &TSExtractor{tracks: make(map[uint16]*tsTrack)}
}

// Init wires the output registry.
func (t *TSExtractor) Init(output Output) {
	t.output = output
}

// Read demuxes the next transport-stream payload from in and routes it to
// the matching track output.
func (t *TSExtractor) Read(in Input) Result {
	if t.demuxer == nil {
		t.demuxer = astits.NewDemuxer(context.Background(), inputReader{in})
	}

	data, err := t.demuxer.NextData()
	if err != nil {
		if errors.Is(err, astits.ErrNoMorePackets) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ResultEndOfInput
		}
		return ResultIOError
	}

	switch {
	case data.PMT != nil:
		t.handlePMT(data.PMT)
	case data.PES != nil:
		if err := t.handlePES(data.PID, data.PES); err != nil {
			return ResultIOError
		}
	}
	return ResultContinue
}

func (t *TSExtractor) handlePMT(pmt *astits.PMTData) {
	for _, es := range pmt.ElementaryStreams {
		if _, ok := t.tracks[es.ElementaryPID]; ok {
			continue
		}
		mime := mimeForStreamType(es.StreamType)
		if mime == "" {
			continue
		}
		out := t.output.RegisterTrack(int32(es.ElementaryPID))
		out.GiveFormat(&MediaFormat{
			TrackID:    int32(es.ElementaryPID),
			MimeType:   mime,
			DurationUs: dashtime.UnknownTimeUs,
		})
		t.tracks[es.ElementaryPID] = &tsTrack{out: out, streamType: es.StreamType}
	}
	if !t.doneReg && len(t.tracks) > 0 {
		t.output.DoneRegisteringTracks()
		t.doneReg = true
	}
}

func (t *TSExtractor) handlePES(pid uint16, pes *astits.PESData) error {
	track, ok := t.tracks[pid]
	if !ok {
		return nil
	}
	var timeUs int64 = dashtime.UnknownTimeUs
	if h := pes.Header; h != nil && h.OptionalHeader != nil && h.OptionalHeader.PTS != nil {
		timeUs = dashtime.ScaleLargeTimestamp(h.OptionalHeader.PTS.Base, dashtime.MicrosPerSecond, tsClockHz)
	}

	remaining := pes.Data
	for len(remaining) > 0 {
		n, err := track.out.WriteSampleBytes(remaining)
		if err != nil {
			return err
		}
		remaining = remaining[n:]
	}
	track.out.WriteSampleMetadata(SampleMetadata{
		TimeUs: timeUs,
		Flags:  SampleFlagSync,
		Size:   int64(len(pes.Data)),
	})
	return nil
}

// Seek drops all demuxer state; the next Read starts parsing from the new
// input position.
func (t *TSExtractor) Seek() {
	t.demuxer = nil
}

// Release detaches the output.
func (t *TSExtractor) Release() {
	t.output = nil
	t.demuxer = nil
	t.tracks = make(map[uint16]*tsTrack)
	t.doneReg = false
}

func mimeForStreamType(st astits.StreamType) string {
	switch st {
	case astits.StreamTypeH264Video:
		return "video/avc"
	case astits.StreamTypeH265Video:
		return "video/hevc"
	case astits.StreamTypeMPEG2Video, astits.StreamTypeMPEG1Video:
		return "video/mpeg2"
	case astits.StreamTypeAACAudio:
		return "audio/mp4a-latm"
	case astits.StreamTypeAC3Audio:
		return "audio/ac3"
	case astits.StreamTypeEAC3Audio:
		return "audio/eac3"
	case astits.StreamTypeMPEG1Audio, astits.StreamTypeMPEG2HalvedSampleRateAudio:
		return "audio/mpeg"
	default:
		return ""
	}
}

// inputReader adapts Input to io.Reader for libraries that pull from a
// plain reader.
type inputReader struct {
	in Input
}

func (r inputReader) Read(p []byte) (int, error) { return r.in.Read(p) }
