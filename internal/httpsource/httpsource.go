// Package httpsource implements the cancellable, byte-range-aware HTTP
// data source: open exactly one request at a time, read through a bounded
// FIFO buffer fed by a background worker, and report transfer progress to
// an injected bandwidth listener.
//
// The transport is an injected http.RoundTripper: the real
// *http.Transport in production, a round-trip func as an in-memory fake
// in tests.
package httpsource

import (
	"github.com/google/uuid"
)

// Sentinel result codes shared across the data-source contract. Open
// returns the content length or one of these; Read returns bytes-read or
// one of these.
const (
	LengthUnbounded  int64 = -1
	ResultIOError    int64 = -2
	ResultEndOfInput int64 = -3
	ResultContinue   int64 = -4
)

// HTTPError classifies semantic HTTP failures, as opposed to plain
// transport failures.
type HTTPError int

const (
	HTTPErrorNone HTTPError = iota
	HTTPErrorResponseCode
	HTTPErrorContentType
)

// State is the request lifecycle of a Source.
type State int

const (
	StateIdle State = iota
	StateAwaitingHeaders
	StateStreaming
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateAwaitingHeaders:
		return "awaiting_headers"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	default:
		return "idle"
	}
}

// TransferListener receives the bandwidth-meter events a Source produces.
// internal/bandwidth.Meter implements this contract directly.
type TransferListener interface {
	OnTransferStart()
	OnBytesTransferred(bytes int64)
	OnTransferEnd()
}

type noopListener struct{}

func (noopListener) OnTransferStart()         {}
func (noopListener) OnBytesTransferred(int64) {}
func (noopListener) OnTransferEnd()           {}

// newClientID returns an opaque identifier logged alongside transfer
// events.
func newClientID() string {
	return uuid.NewString()
}
