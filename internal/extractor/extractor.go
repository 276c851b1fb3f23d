// Package extractor defines the contracts between the chunk pipeline and
// the container parsers it hosts: an Extractor consumes bytes from an
// ExtractorInput and emits decoded-ready samples to per-track TrackOutput
// sinks obtained from an ExtractorOutput. Concrete adapters in this package
// wire real container libraries (go-astits for MPEG-TS, go-mp4 for sidx
// scanning) to these contracts.
package extractor

// Sample flag bits carried on every sample-metadata record.
const (
	SampleFlagSync       uint32 = 0x00000001
	SampleFlagEncrypted  uint32 = 0x00000002
	SampleFlagDecodeOnly uint32 = 0x08000000
)

// Result is the status of one Extractor.Read pass, mirroring the sentinel
// codes of the data-source contract.
type Result int

const (
	// ResultContinue means the pass consumed what it could and the caller
	// should feed more input.
	ResultContinue Result = -4
	// ResultEndOfInput means the input is exhausted.
	ResultEndOfInput Result = -3
	// ResultIOError means the input is malformed or the read failed.
	ResultIOError Result = -2
)

// MediaFormat describes one elementary stream emitted by an extractor. It
// is deliberately smaller than mpd.Format: it carries only what a decoder
// needs to configure itself, discovered from the container rather than
// declared in the manifest.
type MediaFormat struct {
	TrackID           int32
	MimeType          string
	DurationUs        int64
	Width             int32
	Height            int32
	AudioChannels     int32
	AudioSamplingRate int32
	Bitrate           int32
	InitializationData [][]byte
}

// SampleMetadata is the record written once per sample after its data
// bytes, covering the preceding Size bytes at Offset from the write head.
type SampleMetadata struct {
	TimeUs     int64
	DurationUs int64
	Flags      uint32
	Size       int64
	Offset     int64

	// Encryption fields are set only when SampleFlagEncrypted is present.
	EncryptionKeyID []byte
	IV              []byte
	NumBytesClear   []int32
	NumBytesEnc     []int32
}

// TrackOutput is the sink that receives one track's sample bytes and
// metadata from an extractor.
type TrackOutput interface {
	// GiveFormat delivers the track's media format, once known.
	GiveFormat(format *MediaFormat)

	// WriteSampleData appends up to length bytes read from in, returning
	// the number appended. When allowEndOfInput is true a clean end of
	// input returns (0, io.EOF) instead of an error.
	WriteSampleData(in Input, length int64, allowEndOfInput bool) (int64, error)

	// WriteSampleBytes appends p wholesale, returning the number appended
	// (which may be short; callers loop until all of p has landed).
	WriteSampleBytes(p []byte) (int64, error)

	// WriteSampleMetadata commits the preceding data bytes as one sample.
	WriteSampleMetadata(meta SampleMetadata)
}

// IndexedTrackOutput is a TrackOutput that exposes its current write index,
// captured by chunks at Init time so firstSampleIndex bookkeeping survives
// interleaved loads.
type IndexedTrackOutput interface {
	TrackOutput
	WriteIndex() int64
}

// SeekMap maps presentation time to a byte offset within the stream an
// extractor has parsed, emitted by sidx-carrying extractors.
type SeekMap interface {
	IsSeekable() bool
	PositionForTime(timeUs int64) int64
}

// Output is the registry an Extractor emits into: per-track sinks, an
// optional seek map, and optional DRM init data discovered in the
// container.
type Output interface {
	// RegisterTrack allocates (or returns the existing) sink for trackID.
	RegisterTrack(trackID int32) TrackOutput
	// DoneRegisteringTracks signals that no further RegisterTrack calls
	// will be made.
	DoneRegisteringTracks()
	// GiveSeekMap delivers the stream's seek map, when the container
	// carries one.
	GiveSeekMap(seekMap SeekMap)
	// SetDrmInitData delivers scheme init data found in the container.
	SetDrmInitData(schemeInitData []byte)
}

// Extractor is a black-box container parser hosted by the chunk pipeline:
// Init wires the output, Read consumes bytes from in until it needs more
// input (ResultContinue), the input ends (ResultEndOfInput) or fails
// (ResultIOError). Seek resets all parse state.
type Extractor interface {
	Init(output Output)
	Read(in Input) Result
	Seek()
	Release()
}
