package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/streamcore/ndash/internal/httpsource"
	"github.com/streamcore/ndash/internal/mpd"
	"github.com/streamcore/ndash/internal/mpdparser"
)

// fetchCmd fetches and summarizes one manifest.
var fetchCmd = &cobra.Command{
	Use:   "fetch <mpd-url>",
	Short: "Fetch and summarize a DASH manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		uri := args[0]

		sourceCfg := httpsource.DefaultConfig()
		sourceCfg.BufferSize = cfg.Source.BufferSize.Int()
		sourceCfg.UserAgent = cfg.Source.UserAgent

		source := httpsource.New(sourceCfg)
		defer source.Close()

		ctx := cmd.Context()
		if _, err := source.Open(ctx, mpd.NewDataSpec(uri)); err != nil {
			return fmt.Errorf("fetching manifest: %w", err)
		}
		body, err := source.ReadAllToString(ctx)
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}

		parser := &mpdparser.Parser{}
		manifest, err := parser.Parse(uri, []byte(body))
		if err != nil {
			return fmt.Errorf("parsing manifest: %w", err)
		}

		printManifestSummary(ctx, manifest)
		return nil
	},
}

func printManifestSummary(ctx context.Context, m *mpd.MediaPresentationDescription) {
	kind := "static"
	if m.Dynamic {
		kind = "dynamic"
	}
	fmt.Printf("%s presentation, %d period(s), duration %s\n", kind, len(m.Periods), formatMs(m.DurationMs))

	for i, period := range m.Periods {
		fmt.Printf("  period %q start=%s duration=%s\n", period.ID, formatMs(period.StartMs), formatMs(m.PeriodDurationMs(i)))
		for _, as := range period.AdaptationSets {
			fmt.Printf("    %s adaptation set %q (%d representation(s))\n", as.ContentType, as.ID, len(as.Representations))
			for _, rep := range as.Representations {
				f := rep.Format
				detail := fmt.Sprintf("%d bps", f.Bitrate)
				if f.Width > 0 {
					detail += fmt.Sprintf(", %dx%d", f.Width, f.Height)
				}
				if f.AudioSamplingRate > 0 {
					detail += fmt.Sprintf(", %d Hz", f.AudioSamplingRate)
				}
				fmt.Printf("      %s (%s; %s)\n", rep.ID, f.Codecs, detail)
			}
		}
	}
	slog.DebugContext(ctx, "manifest summarized", slog.Int("periods", len(m.Periods)))
}

func formatMs(ms int64) string {
	if ms < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.3fs", float64(ms)/1000)
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
