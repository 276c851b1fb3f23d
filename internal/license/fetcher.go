// Package license fetches DRM license blobs: a synchronous HTTP POST of
// the CDM's key message to the license server, returning the raw response
// body for the caller to hand back to the CDM. The engine treats both
// sides as opaque.
package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streamcore/ndash/internal/httpsource"
	"github.com/streamcore/ndash/internal/mpd"
)

// licenseContentType is the request content type the license servers this
// engine talks to expect, carried over verbatim (including the charset
// spelling) because it is the wire-observable value.
const licenseContentType = "text/xml;charset=utf=8"

// Fetcher posts key messages to a license server. SetLicenseURI and
// SetAuthToken may be called from any goroutine; Fetch serializes against
// other Fetch calls on the same instance.
type Fetcher struct {
	source *httpsource.Source
	logger *slog.Logger

	// attributesMu guards the URI/token pair; fetchMu serializes whole
	// fetches so header mutation and the request itself stay atomic.
	attributesMu sync.Mutex
	licenseURI   string
	authToken    string

	fetchMu sync.Mutex
}

// NewFetcher constructs a Fetcher over its own data source. userAgent is
// optional; logger nil defaults to slog.Default.
func NewFetcher(cfg httpsource.Config, userAgent string, logger *slog.Logger) *Fetcher {
	if userAgent != "" {
		cfg.UserAgent = userAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{source: httpsource.New(cfg), logger: logger}
	f.source.SetRequestProperty("Content-Type", licenseContentType)
	return f
}

// SetLicenseURI updates the license server endpoint.
func (f *Fetcher) SetLicenseURI(uri string) {
	f.attributesMu.Lock()
	f.licenseURI = uri
	f.attributesMu.Unlock()
}

// SetAuthToken updates the Authorization header value sent with fetches.
func (f *Fetcher) SetAuthToken(token string) {
	f.attributesMu.Lock()
	f.authToken = token
	f.attributesMu.Unlock()
}

// Fetch posts keyMessage to the license server and returns the response
// body. An empty body is a failure: a license server that accepted the
// request always returns a license blob.
func (f *Fetcher) Fetch(ctx context.Context, keyMessage []byte) (string, error) {
	f.fetchMu.Lock()
	defer f.fetchMu.Unlock()

	f.attributesMu.Lock()
	uri := f.licenseURI
	f.source.SetRequestProperty("Authorization", f.authToken)
	f.attributesMu.Unlock()

	if uri == "" {
		return "", errors.New("license: no license URI configured")
	}

	spec := mpd.DataSpec{URI: uri, PostBody: keyMessage, Length: mpd.LengthUnbounded}

	defer f.source.Close()
	if _, err := f.source.Open(ctx, spec); err != nil {
		f.logger.Warn("license fetch failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return "", fmt.Errorf("license: posting key message: %w", err)
	}

	body, err := f.source.ReadAllToString(ctx)
	if err != nil {
		return "", fmt.Errorf("license: reading response: %w", err)
	}
	if body == "" {
		return "", errors.New("license: empty response body")
	}
	return body, nil
}
