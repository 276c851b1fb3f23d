package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamcore/ndash/internal/bandwidth"
	"github.com/streamcore/ndash/internal/manifest"
	"github.com/streamcore/ndash/internal/statusserver"
)

var watchHTTPAddr string

// watchCmd runs the manifest fetcher's periodic refresh loop.
var watchCmd = &cobra.Command{
	Use:   "watch <mpd-url>",
	Short: "Run the periodic manifest refresh loop",
	Long: `watch fetches the manifest on the configured refresh interval,
logging refresh, parse, and backoff events, until interrupted. With
--http, a debug status endpoint reports fetcher health.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := newEventLoop()
		defer runner.stop()

		fetcherCfg := manifest.DefaultConfig(args[0])
		fetcherCfg.RetryDelayUnit = cfg.Manifest.RetryDelayUnit
		fetcherCfg.RetryDelayCap = cfg.Manifest.RetryDelayCap
		fetcherCfg.Source.BufferSize = cfg.Source.BufferSize.Int()
		fetcherCfg.Source.UserAgent = cfg.Source.UserAgent

		fetcher := manifest.NewFetcher(fetcherCfg, loggingListener{}, runner.post)
		fetcher.Enable()
		defer fetcher.Disable()

		if watchHTTPAddr != "" {
			statusCfg := statusserver.DefaultConfig()
			statusCfg.Addr = watchHTTPAddr
			server := statusserver.New(statusCfg, bandwidth.New(nil), fetcher, slog.Default())
			if err := server.Start(); err != nil {
				return err
			}
			defer server.Stop(context.Background())
		}

		interval := cfg.Manifest.RefreshInterval
		if interval <= 0 {
			interval = 5 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fetcher.RequestRefresh()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if !fetcher.RequestRefresh() {
					slog.Info("refresh suppressed by backoff",
						slog.Int("error_count", fetcher.LoadErrorCount()))
				}
			}
		}
	},
}

// loggingListener logs fetcher lifecycle events.
type loggingListener struct{}

func (loggingListener) OnManifestRefreshStarted() {
	slog.Info("manifest refresh started")
}

func (loggingListener) OnManifestRefreshed() {
	slog.Info("manifest refreshed")
}

func (loggingListener) OnManifestError(err manifest.FetchError) {
	slog.Warn("manifest refresh failed", slog.String("kind", err.String()))
}

// eventLoop is a single-goroutine task runner for fetcher callbacks.
type eventLoop struct {
	ch   chan func()
	wg   sync.WaitGroup
	once sync.Once
}

func newEventLoop() *eventLoop {
	l := &eventLoop{ch: make(chan func(), 64)}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for fn := range l.ch {
			fn()
		}
	}()
	return l
}

func (l *eventLoop) post(fn func()) {
	defer func() {
		// A post after stop is dropped.
		_ = recover()
	}()
	l.ch <- fn
}

func (l *eventLoop) stop() {
	l.once.Do(func() { close(l.ch) })
	l.wg.Wait()
}

func init() {
	watchCmd.Flags().StringVar(&watchHTTPAddr, "http", "", "serve debug status endpoint on this address (e.g. :8080)")
	rootCmd.AddCommand(watchCmd)
}
