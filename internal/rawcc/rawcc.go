// Package rawcc parses the RAWCC binary closed-caption container: a small
// streaming state machine over 45 kHz-clocked caption packets, re-emitting
// each caption entry as a fixed 8-byte record on a track output. It is the
// simplest extractor the engine hosts and the reference for how a
// byte-accumulating parser behaves under arbitrarily fragmented input.
package rawcc

import (
	"errors"
	"io"
	"time"

	"github.com/streamcore/ndash/internal/extractor"
	"github.com/streamcore/ndash/pkg/dashtime"
)

type state int

const (
	parsingHeader state = iota
	parsingPtsAndCount
	parsingEntries
)

const (
	headerSize      = 8
	flagsSize       = 3
	ptsAndCountSize = 5
	entrySize       = 3

	// sampleEntrySize is the size of each emitted caption record.
	sampleEntrySize = 8

	// rawccClockHz is the caption timestamp clock.
	rawccClockHz = 45 // kHz; scaled against dashtime.MicrosPerMs

	readBufferSize = 8 * 1024

	// maxEntriesPerSample bounds how many emitted records accumulate
	// before a sample-metadata record is flushed mid-stream.
	maxEntriesPerSample = 500
)

// rawccMagic is 'R' 'C' 'C' 0x01 read as a big-endian 32-bit word.
const rawccMagic uint32 = 'R'<<24 | 'C'<<16 | 'C'<<8 | 0x01

// Parser is a streaming RAWCC extractor. The zero value is not usable;
// construct with New and call Init before Read.
type Parser struct {
	sampleOffset time.Duration
	truncStart   *time.Duration
	truncEnd     *time.Duration

	output   extractor.Output
	outTrack extractor.TrackOutput

	buf      [readBufferSize]byte
	readPos  int
	writePos int

	st              state
	version         byte
	pts             uint32
	samplePtsUs     int64
	expectedCount   int
	sampleIndex     int
	totalWritten    int
	producingToQueue bool
}

// New constructs a Parser. sampleOffset shifts every emitted entry's
// timestamp (used when a caption file is appended mid-stream); truncStart
// and truncEnd, when non-nil, bound the window of packet timestamps that
// produce output.
func New(sampleOffset time.Duration, truncStart, truncEnd *time.Duration) *Parser {
	p := &Parser{sampleOffset: sampleOffset, truncStart: truncStart, truncEnd: truncEnd}
	p.reset()
	return p
}

// Init registers the single caption track on output.
func (p *Parser) Init(output extractor.Output) {
	p.output = output
	p.outTrack = output.RegisterTrack(0)
}

func (p *Parser) available() int { return p.writePos - p.readPos }

func (p *Parser) readByte() byte {
	v := p.buf[p.readPos]
	p.readPos++
	return v
}

// readInt reads a network-byte-order 32-bit word with explicit shifts.
func (p *Parser) readInt() uint32 {
	v := uint32(p.buf[p.readPos]) << 24
	v |= uint32(p.buf[p.readPos+1]) << 16
	v |= uint32(p.buf[p.readPos+2]) << 8
	v |= uint32(p.buf[p.readPos+3])
	p.readPos += 4
	return v
}

// Read compacts any unconsumed bytes to the buffer origin, appends what the
// input has available, then drives the state machine over as much of the
// buffer as it can commit to.
func (p *Parser) Read(in extractor.Input) extractor.Result {
	if n := p.available(); n > 0 && p.readPos != 0 {
		copy(p.buf[:], p.buf[p.readPos:p.writePos])
		p.readPos = 0
		p.writePos = n
	} else if n == 0 {
		p.readPos = 0
		p.writePos = 0
	}

	n, err := in.Read(p.buf[p.writePos:])
	if err != nil {
		if n == 0 {
			if isEndOfInput(err) {
				p.reset()
				return extractor.ResultEndOfInput
			}
			return extractor.ResultIOError
		}
	}
	if n == 0 {
		return extractor.ResultContinue
	}
	p.writePos += n

	for p.readPos < p.writePos {
		switch p.st {
		case parsingHeader:
			if p.available() < headerSize {
				return extractor.ResultContinue
			}
			if p.readInt() != rawccMagic {
				return extractor.ResultIOError
			}
			p.version = p.readByte()
			if p.version != 0 {
				return extractor.ResultIOError
			}
			p.readPos += flagsSize
			p.st = parsingPtsAndCount
			fallthrough

		case parsingPtsAndCount:
			if p.available() < ptsAndCountSize {
				return extractor.ResultContinue
			}
			p.pts = p.readInt()

			thisPtsUs := dashtime.ScaleLargeTimestamp(int64(p.pts), dashtime.MicrosPerMs, rawccClockHz)
			p.producingToQueue = true
			if p.truncStart != nil && thisPtsUs < p.truncStart.Microseconds() {
				p.producingToQueue = false
			} else if p.truncEnd != nil && thisPtsUs > p.truncEnd.Microseconds() {
				p.producingToQueue = false
			}
			if p.totalWritten == 0 {
				p.samplePtsUs = thisPtsUs
			}

			p.expectedCount = int(p.readByte())
			p.sampleIndex = 0
			p.st = parsingEntries
			fallthrough

		case parsingEntries:
			for p.sampleIndex < p.expectedCount {
				if p.available() < entrySize {
					return extractor.ResultContinue
				}
				flags := p.readByte()
				cc1 := p.readByte()
				cc2 := p.readByte()

				if !p.producingToQueue {
					p.sampleIndex++
					continue
				}

				entryPts := p.pts
				if p.sampleOffset != 0 {
					samplePts := time.Duration(dashtime.ScaleLargeTimestamp(int64(p.pts), dashtime.MicrosPerMs, rawccClockHz)) * time.Microsecond
					samplePts += p.sampleOffset
					entryPts = uint32(samplePts.Milliseconds() * rawccClockHz)
				}

				var entry [sampleEntrySize]byte
				entry[0] = byte(entryPts >> 24)
				entry[1] = byte(entryPts >> 16)
				entry[2] = byte(entryPts >> 8)
				entry[3] = byte(entryPts)
				entry[4] = flags & 0x03
				entry[5] = cc1
				entry[6] = cc2
				entry[7] = (flags >> 2) & 0x01

				if !p.writeFully(entry[:]) {
					return extractor.ResultIOError
				}
				p.sampleIndex++
				p.totalWritten++
				if p.totalWritten > maxEntriesPerSample {
					p.flushSample()
				}
			}

			p.expectedCount = 0
			p.sampleIndex = 0
			p.st = parsingPtsAndCount
		}
	}

	p.flushSample()
	return extractor.ResultContinue
}

// flushSample commits accumulated entries as one sample: the first packet
// pts seen becomes the sample time, the span to the latest packet pts its
// duration.
func (p *Parser) flushSample() {
	if p.totalWritten > 0 && p.producingToQueue {
		lastPtsUs := dashtime.ScaleLargeTimestamp(int64(p.pts), dashtime.MicrosPerMs, rawccClockHz)
		p.outTrack.WriteSampleMetadata(extractor.SampleMetadata{
			TimeUs:     p.samplePtsUs,
			DurationUs: lastPtsUs - p.samplePtsUs,
			Flags:      extractor.SampleFlagSync,
			Size:       int64(p.totalWritten) * sampleEntrySize,
			Offset:     0,
		})
		p.totalWritten = 0
	}
}

func (p *Parser) writeFully(src []byte) bool {
	for len(src) > 0 {
		n, err := p.outTrack.WriteSampleBytes(src)
		if err != nil {
			return false
		}
		src = src[n:]
	}
	return true
}

// Seek resets all parse state.
func (p *Parser) Seek() {
	p.reset()
}

// Release detaches the output.
func (p *Parser) Release() {
	p.output = nil
}

func (p *Parser) reset() {
	p.totalWritten = 0
	p.expectedCount = 0
	p.readPos = 0
	p.writePos = 0
	p.sampleIndex = 0
	p.producingToQueue = true
	p.samplePtsUs = 0
	p.pts = 0
	p.version = 0
	p.st = parsingHeader
}

func isEndOfInput(err error) bool {
	return errors.Is(err, io.EOF)
}
