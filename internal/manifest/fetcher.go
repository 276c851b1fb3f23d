// Package manifest implements the periodic MPD refresh loop: fetch the
// manifest document over the HTTP data source, parse it, and atomically
// publish the result, tolerating one transient failure silently and
// applying a linear capped backoff to repeated failures.
package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streamcore/ndash/internal/httpsource"
	"github.com/streamcore/ndash/internal/mpd"
	"github.com/streamcore/ndash/internal/mpdparser"
)

// FetchError classifies why the most recent refresh failed.
type FetchError int

const (
	FetchErrorNone FetchError = iota
	FetchErrorUnknown
	FetchErrorNetwork
	FetchErrorParsing
)

func (e FetchError) String() string {
	switch e {
	case FetchErrorUnknown:
		return "unknown"
	case FetchErrorNetwork:
		return "network"
	case FetchErrorParsing:
		return "parsing"
	default:
		return "none"
	}
}

// EventListener receives refresh lifecycle notifications. Callbacks are
// posted through the Fetcher's PostFunc, never invoked inline from the
// loader goroutine.
type EventListener interface {
	OnManifestRefreshStarted()
	OnManifestRefreshed()
	OnManifestError(err FetchError)
}

// PostFunc schedules fn onto the caller's task runner.
type PostFunc func(fn func())

// Config carries the Fetcher's tunables.
type Config struct {
	// ManifestURI is the document to fetch.
	ManifestURI string

	// Source configures the HTTP data source each load uses.
	Source httpsource.Config

	// RetryDelayUnit is the backoff step; the gap after the n-th
	// consecutive error is min((n-1)*RetryDelayUnit, RetryDelayCap).
	RetryDelayUnit time.Duration
	RetryDelayCap  time.Duration

	// Logger is used for refresh/backoff events; nil uses slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the standard backoff of 1s steps capped at 5s.
func DefaultConfig(manifestURI string) Config {
	return Config{
		ManifestURI:    manifestURI,
		Source:         httpsource.DefaultConfig(),
		RetryDelayUnit: time.Second,
		RetryDelayCap:  5 * time.Second,
	}
}

// Fetcher fetches and republishes a parsed MPD. All methods are called
// from the owning (caller) goroutine; load completions arrive on it via
// the injected PostFunc.
type Fetcher struct {
	cfg      Config
	parser   *mpdparser.Parser
	listener EventListener
	post     PostFunc
	logger   *slog.Logger

	mu               sync.Mutex
	manifest         *mpd.MediaPresentationDescription
	loadError        FetchError
	loadErrorCount   int
	loadErrorTime    time.Time
	loadStartTime    time.Time
	loadCompleteTime time.Time

	enabledCount int
	loadGen      int
	loading      bool
	cancelLoad   context.CancelFunc

	now       func() time.Time
	newSource func() loadSource
}

// loadSource is the slice of httpsource.Source a manifest load drives.
type loadSource interface {
	Open(ctx context.Context, spec mpd.DataSpec) (int64, error)
	ReadAllToString(ctx context.Context) (string, error)
	Close() error
}

// NewFetcher constructs a Fetcher. listener may be nil; post must not be
// nil when listener is set.
func NewFetcher(cfg Config, listener EventListener, post PostFunc) *Fetcher {
	if cfg.RetryDelayUnit <= 0 {
		cfg.RetryDelayUnit = time.Second
	}
	if cfg.RetryDelayCap <= 0 {
		cfg.RetryDelayCap = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	f := &Fetcher{
		cfg:      cfg,
		parser:   &mpdparser.Parser{},
		listener: listener,
		post:     post,
		logger:   logger,
		now:      time.Now,
	}
	f.newSource = func() loadSource { return httpsource.New(cfg.Source) }
	return f
}

// UpdateManifestURI changes where subsequent refreshes fetch from.
func (f *Fetcher) UpdateManifestURI(uri string) {
	f.mu.Lock()
	f.cfg.ManifestURI = uri
	f.mu.Unlock()
}

// Manifest returns the most recently published MPD, or nil before the
// first successful refresh.
func (f *Fetcher) Manifest() *mpd.MediaPresentationDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manifest
}

// HasManifest reports whether a manifest has been published.
func (f *Fetcher) HasManifest() bool { return f.Manifest() != nil }

// LoadStartTimestamp returns when the most recent successful fetch began.
func (f *Fetcher) LoadStartTimestamp() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadStartTime
}

// LoadCompleteTimestamp returns when the most recent successful fetch
// finished.
func (f *Fetcher) LoadCompleteTimestamp() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCompleteTime
}

// LoadError returns the kind of the most recent failure, FetchErrorNone
// after a success.
func (f *Fetcher) LoadError() FetchError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadError
}

// LoadErrorCount returns the consecutive-failure count.
func (f *Fetcher) LoadErrorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadErrorCount
}

// CanContinueBuffering reports whether chunk loading should proceed: one
// transient manifest failure is tolerated silently.
func (f *Fetcher) CanContinueBuffering() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadError == FetchErrorNone || f.loadErrorCount <= 1
}

// Enable reference-counts fetcher usage. The first Enable clears error
// state.
func (f *Fetcher) Enable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enabledCount == 0 {
		f.loadError = FetchErrorNone
		f.loadErrorCount = 0
	}
	f.enabledCount++
}

// Disable drops one reference; the last Disable cancels any running load.
func (f *Fetcher) Disable() {
	f.mu.Lock()
	cancel := context.CancelFunc(nil)
	if f.enabledCount > 0 {
		f.enabledCount--
		if f.enabledCount == 0 && f.loading {
			cancel = f.cancelLoad
			f.loadGen++
			f.loading = false
		}
	}
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RequestRefresh starts a manifest load unless the previous failure is
// still inside its backoff window (returns false) or a load is already in
// flight (returns true without starting another).
func (f *Fetcher) RequestRefresh() bool {
	f.mu.Lock()
	now := f.now()
	if f.loadError != FetchErrorNone && now.Before(f.loadErrorTime.Add(f.retryDelay(f.loadErrorCount))) {
		f.mu.Unlock()
		return false
	}
	if f.loading {
		f.mu.Unlock()
		return true
	}
	f.loading = true
	f.loadGen++
	gen := f.loadGen
	startTime := now
	uri := f.cfg.ManifestURI
	ctx, cancel := context.WithCancel(context.Background())
	f.cancelLoad = cancel
	f.mu.Unlock()

	f.notify(func(l EventListener) { l.OnManifestRefreshStarted() })

	go f.load(ctx, gen, uri, startTime)
	return true
}

// load runs on its own goroutine and posts its outcome back to the caller
// runner. A completion whose generation no longer matches is stale (a
// newer load superseded it, or Disable cancelled it) and is dropped.
func (f *Fetcher) load(ctx context.Context, gen int, uri string, startTime time.Time) {
	body, err := f.fetch(ctx, uri)
	f.post(func() {
		f.mu.Lock()
		if gen != f.loadGen {
			f.mu.Unlock()
			return
		}
		f.loading = false
		f.cancelLoad = nil
		f.mu.Unlock()

		if err != nil {
			f.recordError(FetchErrorUnknown)
			f.logger.Warn("manifest fetch failed", slog.String("uri", uri), slog.String("error", err.Error()))
			return
		}
		parsed, perr := f.parser.Parse(uri, []byte(body))
		if perr != nil || parsed == nil {
			f.recordError(FetchErrorParsing)
			f.logger.Warn("manifest parse failed", slog.String("uri", uri), slog.String("error", fmt.Sprint(perr)))
			return
		}

		f.mu.Lock()
		f.manifest = parsed
		f.loadStartTime = startTime
		f.loadCompleteTime = f.now()
		f.loadError = FetchErrorNone
		f.loadErrorCount = 0
		f.mu.Unlock()

		f.logger.Debug("manifest refreshed",
			slog.String("uri", uri),
			slog.Int("periods", len(parsed.Periods)),
			slog.Bool("dynamic", parsed.Dynamic))
		f.notify(func(l EventListener) { l.OnManifestRefreshed() })
	})
}

func (f *Fetcher) fetch(ctx context.Context, uri string) (string, error) {
	source := f.newSource()
	defer source.Close()
	if _, err := source.Open(ctx, mpd.NewDataSpec(uri)); err != nil {
		return "", err
	}
	return source.ReadAllToString(ctx)
}

func (f *Fetcher) recordError(kind FetchError) {
	f.mu.Lock()
	f.loadErrorCount++
	f.loadErrorTime = f.now()
	f.loadError = kind
	f.mu.Unlock()
	f.notify(func(l EventListener) { l.OnManifestError(kind) })
}

// retryDelay allows fast retry after the first error and a linearly
// growing, capped gap thereafter.
func (f *Fetcher) retryDelay(errorCount int) time.Duration {
	delay := time.Duration(errorCount-1) * f.cfg.RetryDelayUnit
	if delay > f.cfg.RetryDelayCap {
		return f.cfg.RetryDelayCap
	}
	return delay
}

// notify posts a listener callback onto the caller's task runner; the
// loader goroutine never invokes the listener inline.
func (f *Fetcher) notify(fn func(EventListener)) {
	if f.listener == nil {
		return
	}
	f.post(func() { fn(f.listener) })
}
