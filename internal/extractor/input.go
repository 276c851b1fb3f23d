package extractor

import (
	"context"
	"io"
)

// DataReader is the slice of the data-source contract an Input needs:
// internal/httpsource.Source satisfies it directly, and tests substitute a
// bytes-backed fake.
type DataReader interface {
	Read(ctx context.Context, p []byte) (int, error)
}

// Input is the reader handed to extractors: positional reads over a data
// source plus a bounded peek-ahead window for format sniffing. The peek
// position runs ahead of the read position; ResetPeekPosition rewinds it,
// and reads consume peeked bytes before touching the source again.
type Input interface {
	// Read copies up to len(p) bytes, returning io.EOF at clean end of
	// input.
	Read(p []byte) (int, error)
	// ReadFully fills p completely. When allowEndOfInput is true and the
	// input ends before the first byte, it returns (false, nil); an end of
	// input mid-fill is always an error.
	ReadFully(p []byte, allowEndOfInput bool) (bool, error)
	// Skip discards up to length bytes, returning the number skipped.
	Skip(length int64) (int64, error)
	// PeekFully fills p from the peek position without consuming.
	PeekFully(p []byte, allowEndOfInput bool) (bool, error)
	// AdvancePeekPosition moves the peek position forward without copying.
	AdvancePeekPosition(length int, allowEndOfInput bool) (bool, error)
	// ResetPeekPosition rewinds the peek position to the read position.
	ResetPeekPosition()
	// PeekPosition returns the absolute peek position.
	PeekPosition() int64
	// Position returns the absolute read position.
	Position() int64
	// Length returns the total input length, or -1 when unbounded.
	Length() int64
}

const peekChunkSize = 32 * 1024

// sourceInput is the concrete Input over a DataReader, created per chunk
// load with the load's absolute stream position and resolved length.
type sourceInput struct {
	ctx    context.Context
	source DataReader

	position int64
	length   int64

	// peeked holds bytes read from the source but not yet consumed by
	// Read/Skip; peekOffset is how far into it the peek position sits.
	peeked     []byte
	peekOffset int
}

// NewInput wraps source as an Input whose read position starts at
// absolutePosition and whose total length is length (-1 for unbounded).
// ctx bounds every underlying source read, carrying cancellation from the
// chunk load path.
func NewInput(ctx context.Context, source DataReader, absolutePosition, length int64) Input {
	return &sourceInput{ctx: ctx, source: source, position: absolutePosition, length: length}
}

func (i *sourceInput) Read(p []byte) (int, error) {
	if len(i.peeked) > 0 {
		n := copy(p, i.peeked)
		i.peeked = i.peeked[n:]
		if i.peekOffset > n {
			i.peekOffset -= n
		} else {
			i.peekOffset = 0
		}
		i.position += int64(n)
		return n, nil
	}
	n, err := i.source.Read(i.ctx, p)
	i.position += int64(n)
	return n, err
}

func (i *sourceInput) ReadFully(p []byte, allowEndOfInput bool) (bool, error) {
	filled := 0
	for filled < len(p) {
		n, err := i.Read(p[filled:])
		filled += n
		if err == io.EOF {
			if filled == 0 && allowEndOfInput {
				return false, nil
			}
			if filled < len(p) {
				return false, io.ErrUnexpectedEOF
			}
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (i *sourceInput) Skip(length int64) (int64, error) {
	buf := make([]byte, min64(length, peekChunkSize))
	var skipped int64
	for skipped < length {
		want := min64(length-skipped, int64(len(buf)))
		n, err := i.Read(buf[:want])
		skipped += int64(n)
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func (i *sourceInput) PeekFully(p []byte, allowEndOfInput bool) (bool, error) {
	ok, err := i.ensurePeeked(i.peekOffset + len(p))
	if err != nil || !ok {
		if !ok && allowEndOfInput && err == nil {
			return false, nil
		}
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return false, err
	}
	copy(p, i.peeked[i.peekOffset:])
	i.peekOffset += len(p)
	return true, nil
}

func (i *sourceInput) AdvancePeekPosition(length int, allowEndOfInput bool) (bool, error) {
	ok, err := i.ensurePeeked(i.peekOffset + length)
	if err != nil || !ok {
		if !ok && allowEndOfInput && err == nil {
			return false, nil
		}
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return false, err
	}
	i.peekOffset += length
	return true, nil
}

// ensurePeeked grows the peek buffer to at least want bytes ahead of the
// read position. Returns ok=false when the input ends first.
func (i *sourceInput) ensurePeeked(want int) (bool, error) {
	for len(i.peeked) < want {
		chunk := make([]byte, peekChunkSize)
		n, err := i.source.Read(i.ctx, chunk)
		if n > 0 {
			i.peeked = append(i.peeked, chunk[:n]...)
		}
		if err == io.EOF {
			return len(i.peeked) >= want, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (i *sourceInput) ResetPeekPosition() { i.peekOffset = 0 }

func (i *sourceInput) PeekPosition() int64 { return i.position + int64(i.peekOffset) }

func (i *sourceInput) Position() int64 { return i.position }

func (i *sourceInput) Length() int64 { return i.length }

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
