package httpsource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcore/ndash/internal/mpd"
)

func TestSource_OpenAndReadFullResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Range"))
		w.Header().Set("Content-Length", "11")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "hello world")
	}))
	defer server.Close()

	s := New(DefaultConfig())
	ctx := context.Background()

	length, err := s.Open(ctx, mpd.NewDataSpec(server.URL))
	require.NoError(t, err)
	assert.EqualValues(t, 11, length)

	body, err := s.ReadAllToString(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world", body)

	require.NoError(t, s.Close())
}

func TestSource_ByteRangeSendsRangeHeaderAndRejectsPlainOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=10-19", r.Header.Get("Range"))
		// Server ignores the range and returns the whole body with 200.
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "full body ignoring range")
	}))
	defer server.Close()

	s := New(DefaultConfig())
	spec := mpd.DataSpec{URI: server.URL, Position: 10, Length: 10}

	_, err := s.Open(context.Background(), spec)
	require.Error(t, err)
	var httpErr *HTTPSourceError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, HTTPErrorContentType, httpErr.Kind)
}

func TestSource_NonSuccessStatusIsSemanticError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := New(DefaultConfig())
	_, err := s.Open(context.Background(), mpd.NewDataSpec(server.URL))
	require.Error(t, err)
	var httpErr *HTTPSourceError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, HTTPErrorResponseCode, httpErr.Kind)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

type countingListener struct {
	mu          sync.Mutex
	starts, ends int
	bytes       int64
}

func (c *countingListener) OnTransferStart() {
	c.mu.Lock()
	c.starts++
	c.mu.Unlock()
}
func (c *countingListener) OnBytesTransferred(n int64) {
	c.mu.Lock()
	c.bytes += n
	c.mu.Unlock()
}
func (c *countingListener) OnTransferEnd() {
	c.mu.Lock()
	c.ends++
	c.mu.Unlock()
}

func TestSource_TransferListenerPairedOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "abc")
	}))
	defer server.Close()

	listener := &countingListener{}
	cfg := DefaultConfig()
	cfg.Listener = listener
	s := New(cfg)

	_, err := s.Open(context.Background(), mpd.NewDataSpec(server.URL))
	require.NoError(t, err)
	_, err = s.ReadAllToString(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Equal(t, 1, listener.starts)
	assert.Equal(t, 1, listener.ends)
	assert.EqualValues(t, 3, listener.bytes)
}

func TestSource_ListenerNotEndedWhenHeadersNeverValidated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	listener := &countingListener{}
	cfg := DefaultConfig()
	cfg.Listener = listener
	s := New(cfg)

	_, err := s.Open(context.Background(), mpd.NewDataSpec(server.URL))
	require.Error(t, err)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Equal(t, 0, listener.starts)
	assert.Equal(t, 0, listener.ends)
}

func TestSource_OpenWithCanceledContextFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "never delivered")
	}))
	defer server.Close()

	s := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Open(ctx, mpd.NewDataSpec(server.URL))
	require.Error(t, err)
	require.NoError(t, s.Close())
}

func TestSource_ReusableAcrossOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "payload")
	}))
	defer server.Close()

	s := New(DefaultConfig())
	for i := 0; i < 3; i++ {
		_, err := s.Open(context.Background(), mpd.NewDataSpec(server.URL))
		require.NoError(t, err)
		body, err := s.ReadAllToString(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "payload", body)
		require.NoError(t, s.Close())
	}
}

func TestBuildRangeHeader(t *testing.T) {
	full := mpd.NewDataSpec("http://x/y")
	_, ok := buildRangeHeader(full)
	assert.False(t, ok)

	bounded := mpd.DataSpec{Position: 5, Length: 10}
	header, ok := buildRangeHeader(bounded)
	require.True(t, ok)
	assert.Equal(t, "bytes=5-14", header)

	openEnded := mpd.DataSpec{Position: 100, Length: mpd.LengthUnbounded}
	header, ok = buildRangeHeader(openEnded)
	require.True(t, ok)
	assert.Equal(t, "bytes=100-", header)
}
