package httpsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/streamcore/ndash/internal/mpd"
)

const (
	// DefaultBufferSize is the bound on undelivered buffered body bytes.
	DefaultBufferSize = 10 << 20
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "ndash/1.0"
)

// Config configures a Source.
type Config struct {
	// Transport is the round-tripper used to issue requests. http.Transport
	// gives a real client; a http.RoundTripper func gives an in-memory fake
	// for tests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// BufferSize bounds how many undelivered bytes the worker goroutine may
	// buffer before blocking on the body reader.
	BufferSize int

	// UserAgent is sent as the User-Agent request header.
	UserAgent string

	// RequestHeaders are applied to every request before the range headers
	// computed from the DataSpec.
	RequestHeaders map[string]string

	// Listener receives transfer start/progress/end events for bandwidth
	// estimation. internal/bandwidth.Meter satisfies this directly. Nil
	// disables event reporting.
	Listener TransferListener

	// UseGlobalLock makes Open take one process-wide lock shared by every
	// Source constructed with this flag set, held until Open fails or the
	// transfer's body is drained, fails or is cancelled, so at most one
	// such transfer is active at a time: for origins that reject
	// concurrent requests from one client and for deterministic bandwidth
	// measurement.
	UseGlobalLock bool
	globalLock    *sync.Mutex
}

// globalTransferLock is the one lock shared by every Source whose Config
// sets UseGlobalLock.
var globalTransferLock sync.Mutex

// DefaultConfig returns sane defaults: a 10MiB buffer, http.DefaultTransport,
// no extra headers, no listener.
func DefaultConfig() Config {
	return Config{
		Transport:      http.DefaultTransport,
		BufferSize:     DefaultBufferSize,
		UserAgent:      DefaultUserAgent,
		RequestHeaders: map[string]string{},
	}
}

// HTTPSourceError reports a semantic HTTP failure (bad status code or
// content-type-vs-range-request mismatch) as opposed to a plain transport
// error, so callers can distinguish "retry is pointless" from "retry the
// transport call."
type HTTPSourceError struct {
	Kind       HTTPError
	StatusCode int
	URI        string
}

func (e *HTTPSourceError) Error() string {
	switch e.Kind {
	case HTTPErrorResponseCode:
		return fmt.Sprintf("httpsource: %s: unexpected response code %d", e.URI, e.StatusCode)
	case HTTPErrorContentType:
		return fmt.Sprintf("httpsource: %s: server returned 200 for a byte-range request", e.URI)
	default:
		return fmt.Sprintf("httpsource: %s: error", e.URI)
	}
}

// Source is a single-flight HTTP data source: Open starts exactly one
// request, Read drains its body through a bounded buffer, and Close
// releases the underlying connection. A Source may be reused for
// subsequent Open calls once Close has returned.
type Source struct {
	cfg Config
	id  string

	mu       sync.Mutex
	state    State
	spec     mpd.DataSpec
	buf      *fifo
	cancel   context.CancelFunc
	workerWG sync.WaitGroup

	bytesRead    int64
	responseCode int
	openErr      error

	// startedListener records whether OnTransferStart actually fired for
	// the current Open, so the worker only pairs it with OnTransferEnd
	// when it did.
	startedListener bool
}

// New constructs a Source. The zero Config is not valid; use DefaultConfig
// and override fields as needed.
func New(cfg Config) *Source {
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Listener == nil {
		cfg.Listener = noopListener{}
	}
	if cfg.UseGlobalLock {
		cfg.globalLock = &globalTransferLock
	}
	return &Source{cfg: cfg, id: newClientID(), state: StateIdle, buf: newFIFO(cfg.BufferSize)}
}

// ClientID returns this Source's opaque identifier, for correlating
// transfer log lines across components.
func (s *Source) ClientID() string { return s.id }

// SetRequestProperty sets a request header sent with every subsequent
// Open on this Source, overwriting any previous value for the name. An
// empty value sends the header with no value.
func (s *Source) SetRequestProperty(name, value string) {
	s.mu.Lock()
	if s.cfg.RequestHeaders == nil {
		s.cfg.RequestHeaders = map[string]string{}
	}
	s.cfg.RequestHeaders[name] = value
	s.mu.Unlock()
}

// Open issues the request described by spec and blocks until the response
// headers are available (or an error occurs). It returns the resolved
// content length, LengthUnbounded if the server didn't report one, or one
// of the negative sentinel results on failure.
func (s *Source) Open(ctx context.Context, spec mpd.DataSpec) (int64, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ResultIOError, fmt.Errorf("httpsource: Open called while state is %s", s.state)
	}
	s.state = StateAwaitingHeaders
	s.spec = spec
	s.buf.Reset()
	s.bytesRead = 0
	s.startedListener = false
	s.mu.Unlock()

	if s.cfg.UseGlobalLock {
		s.cfg.globalLock.Lock()
	}

	req, err := s.buildRequest(ctx, spec)
	if err != nil {
		s.failOpen(err)
		if s.cfg.UseGlobalLock {
			s.cfg.globalLock.Unlock()
		}
		return ResultIOError, err
	}

	resp, err := s.cfg.Transport.RoundTrip(req)
	if err != nil {
		s.failOpen(err)
		if s.cfg.UseGlobalLock {
			s.cfg.globalLock.Unlock()
		}
		return ResultIOError, err
	}

	if httpErr := classifyResponse(spec, resp); httpErr != nil {
		resp.Body.Close()
		s.failOpen(httpErr)
		if s.cfg.UseGlobalLock {
			s.cfg.globalLock.Unlock()
		}
		return ResultIOError, httpErr
	}

	body, decoded, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		s.failOpen(err)
		if s.cfg.UseGlobalLock {
			s.cfg.globalLock.Unlock()
		}
		return ResultIOError, err
	}

	contentLength := resolveContentLength(spec, resp)
	if decoded {
		// The wire length describes the encoded stream, not what the
		// caller will read.
		contentLength = LengthUnbounded
	}

	// Headers validated; the transfer counts as started from here, not
	// from the literal first body byte.
	s.cfg.Listener.OnTransferStart()

	s.mu.Lock()
	s.state = StateStreaming
	s.responseCode = resp.StatusCode
	s.startedListener = true
	s.mu.Unlock()

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.workerWG.Add(1)
	go s.pump(workerCtx, body)

	return contentLength, nil
}

func (s *Source) failOpen(err error) {
	s.mu.Lock()
	s.state = StateIdle
	s.openErr = err
	s.mu.Unlock()
}

// pump drains resp.Body into the buffer, reporting progress to the
// listener, until EOF, an error, or cancellation.
func (s *Source) pump(ctx context.Context, body io.ReadCloser) {
	defer s.workerWG.Done()
	defer body.Close()

	chunk := make([]byte, 32*1024)
	var total int64
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			total += int64(n)
			s.cfg.Listener.OnBytesTransferred(int64(n))
			if werr := s.buf.Write(ctx, chunk[:n]); werr != nil {
				s.endTransfer()
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				s.buf.CloseWithError(io.EOF)
			} else {
				s.buf.CloseWithError(err)
			}
			s.endTransfer()
			return
		}
	}
}

// endTransfer pairs OnTransferEnd with a prior OnTransferStart exactly
// once per Open.
func (s *Source) endTransfer() {
	s.mu.Lock()
	started := s.startedListener
	s.startedListener = false
	if s.cfg.UseGlobalLock {
		s.cfg.globalLock.Unlock()
	}
	s.mu.Unlock()
	if started {
		s.cfg.Listener.OnTransferEnd()
	}
}

// Read copies buffered response bytes into p, returning (0, io.EOF)
// once the body and buffer are fully drained.
func (s *Source) Read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := s.buf.Read(ctx, p)
	if n > 0 {
		s.mu.Lock()
		s.bytesRead += int64(n)
		s.mu.Unlock()
		return n, nil
	}
	if err == io.EOF {
		return 0, io.EOF
	}
	return 0, err
}

// ReadAllToString drains the entire response body as a string, for small
// payloads like manifests and license responses. The result is bounded by
// the configured buffer size; a body that overflows it is an error. Must
// not be intermixed with Read calls.
func (s *Source) ReadAllToString(ctx context.Context) (string, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := s.Read(ctx, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
			if len(out) > s.cfg.BufferSize {
				return "", fmt.Errorf("httpsource: body exceeds %d bytes", s.cfg.BufferSize)
			}
		}
		if err == io.EOF {
			return string(out), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// BytesRead returns the number of bytes delivered to the caller so far in
// the current (or most recently completed) Open.
func (s *Source) BytesRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesRead
}

// Close releases the current request, if any, and returns the Source to
// StateIdle so it can be reused.
func (s *Source) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.workerWG.Wait()

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	return nil
}

func (s *Source) buildRequest(ctx context.Context, spec mpd.DataSpec) (*http.Request, error) {
	method := http.MethodGet
	var body io.Reader
	if spec.PostBody != nil {
		method = http.MethodPost
		body = &byteReader{b: spec.PostBody}
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URI, body)
	if err != nil {
		return nil, err
	}

	for k, v := range s.cfg.RequestHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	if rangeHeader, ok := buildRangeHeader(spec); ok {
		req.Header.Set("Range", rangeHeader)
	} else {
		req.Header.Set("Accept-Encoding", acceptEncodingHeader)
	}
	return req, nil
}

// buildRangeHeader builds the byte-range header: no Range header for
// (position 0, unbounded length); otherwise
// bytes=position-(position+length-1), or an open-ended bytes=position- when
// length is unbounded.
func buildRangeHeader(spec mpd.DataSpec) (string, bool) {
	if spec.Position == 0 && spec.Length == mpd.LengthUnbounded {
		return "", false
	}
	if spec.Length == mpd.LengthUnbounded {
		return fmt.Sprintf("bytes=%d-", spec.Position), true
	}
	end := spec.Position + spec.Length - 1
	return fmt.Sprintf("bytes=%d-%d", spec.Position, end), true
}

// classifyResponse detects the two semantic HTTP failures that are not
// plain transport errors: an unacceptable status code,
// and a 200 response to a request that asked for a byte range (the server
// ignored the Range header and is about to send the whole resource).
func classifyResponse(spec mpd.DataSpec, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPSourceError{Kind: HTTPErrorResponseCode, StatusCode: resp.StatusCode, URI: spec.URI}
	}
	_, wantedRange := buildRangeHeader(spec)
	if wantedRange && resp.StatusCode == http.StatusOK {
		return &HTTPSourceError{Kind: HTTPErrorContentType, StatusCode: resp.StatusCode, URI: spec.URI}
	}
	return nil
}

func resolveContentLength(spec mpd.DataSpec, resp *http.Response) int64 {
	if resp.StatusCode == http.StatusPartialContent {
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if total, ok := parseContentRangeTotal(cr); ok {
				return total
			}
		}
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	if spec.Length != mpd.LengthUnbounded {
		return spec.Length
	}
	return mpd.LengthUnbounded
}

// parseContentRangeTotal extracts the "/total" suffix of a
// "Content-Range: bytes start-end/total" header.
func parseContentRangeTotal(headerValue string) (int64, bool) {
	idx := -1
	for i := len(headerValue) - 1; i >= 0; i-- {
		if headerValue[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(headerValue)-1 {
		return 0, false
	}
	suffix := headerValue[idx+1:]
	if suffix == "*" {
		return 0, false
	}
	total, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// byteReader adapts a []byte to io.Reader without copying, used for POST
// bodies (license requests).
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}
