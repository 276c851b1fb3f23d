package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamcore/ndash/internal/bandwidth"
	"github.com/streamcore/ndash/internal/evaluator"
	"github.com/streamcore/ndash/internal/httpsource"
	"github.com/streamcore/ndash/internal/mpd"
	"github.com/streamcore/ndash/internal/mpdparser"
)

var probePlaybackRate float64

// probeCmd fetches a manifest, selects a representation, and downloads its
// first media segment while measuring bandwidth.
var probeCmd = &cobra.Command{
	Use:   "probe <mpd-url>",
	Short: "Select a representation and fetch its first segment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		uri := args[0]
		ctx := cmd.Context()

		meter := bandwidth.NewWithMaxWeight(func(elapsed time.Duration, bytes, bitrate int64) {
			slog.Info("bandwidth sample",
				slog.Duration("elapsed", elapsed),
				slog.Int64("bytes", bytes),
				slog.Int64("bitrate_bps", bitrate))
		}, cfg.Bandwidth.MaxWeight)

		sourceCfg := httpsource.DefaultConfig()
		sourceCfg.BufferSize = cfg.Source.BufferSize.Int()
		sourceCfg.UserAgent = cfg.Source.UserAgent
		sourceCfg.UseGlobalLock = cfg.Source.GlobalLock
		sourceCfg.Listener = meter

		source := httpsource.New(sourceCfg)
		defer source.Close()

		if _, err := source.Open(ctx, mpd.NewDataSpec(uri)); err != nil {
			return fmt.Errorf("fetching manifest: %w", err)
		}
		body, err := source.ReadAllToString(ctx)
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}
		source.Close()

		parser := &mpdparser.Parser{}
		manifest, err := parser.Parse(uri, []byte(body))
		if err != nil {
			return fmt.Errorf("parsing manifest: %w", err)
		}

		period := manifest.Periods[0]
		videoSets := period.AdaptationSetsByType(mpd.ContentTypeVideo)
		if len(videoSets) == 0 {
			return fmt.Errorf("no video adaptation set in period %q", period.ID)
		}
		as := videoSets[0]

		formats := make([]mpd.Format, 0, len(as.Representations))
		for _, rep := range as.Representations {
			formats = append(formats, rep.Format)
		}

		var eval evaluator.Evaluation
		evaluator.New().Evaluate(formats, probePlaybackRate, &eval)
		if eval.Format == nil {
			return fmt.Errorf("no usable representation for playback rate %.1f", probePlaybackRate)
		}
		fmt.Printf("selected representation %s (%d bps) for rate %.1f\n", eval.Format.ID, eval.Format.Bitrate, probePlaybackRate)

		var chosen *mpd.Representation
		for _, rep := range as.Representations {
			if rep.ID == eval.Format.ID {
				chosen = rep
				break
			}
		}

		segment, err := firstSegmentURI(chosen, as, period)
		if err != nil {
			return err
		}
		segmentURI, err := segment.ResolveURI()
		if err != nil {
			return fmt.Errorf("resolving segment URI: %w", err)
		}

		spec := mpd.DataSpec{URI: segmentURI, Position: segment.Start(), Length: segment.Length()}
		if _, err := source.Open(ctx, spec); err != nil {
			return fmt.Errorf("opening segment: %w", err)
		}
		data, err := source.ReadAllToString(ctx)
		if err != nil {
			return fmt.Errorf("reading segment: %w", err)
		}
		source.Close()

		fmt.Printf("fetched %d bytes from %s\n", len(data), segmentURI)
		if estimate := meter.GetEstimate(); estimate != bandwidth.NoEstimate {
			fmt.Printf("bandwidth estimate: %d bps\n", estimate)
		} else {
			fmt.Println("bandwidth estimate: none")
		}
		return nil
	},
}

// firstSegmentURI resolves the first media segment of rep, whatever kind
// of segment base it carries.
func firstSegmentURI(rep *mpd.Representation, as *mpd.AdaptationSet, period *mpd.Period) (*mpd.RangedURI, error) {
	base := rep.EffectiveSegmentBase(as.EffectiveSegmentBase(period.SegmentBase))
	if base == nil {
		return nil, fmt.Errorf("representation %s has no segment base", rep.ID)
	}

	switch b := base.(type) {
	case *mpd.SegmentTemplate:
		seg := b.GetSegmentURI(rep.ID, int64(rep.Format.Bitrate), b.FirstSegmentNum())
		if seg == nil {
			return nil, fmt.Errorf("representation %s has no first segment", rep.ID)
		}
		return seg, nil
	case *mpd.SegmentList:
		seg := b.GetSegmentURI(b.FirstSegmentNum())
		if seg == nil {
			return nil, fmt.Errorf("representation %s has an empty segment list", rep.ID)
		}
		return seg, nil
	case *mpd.SingleSegmentBase:
		if b.MediaURI != nil {
			return b.MediaURI, nil
		}
		return mpd.NewRangedURI(b.BaseURL(), "", 0, mpd.LengthUnbounded), nil
	default:
		return nil, fmt.Errorf("representation %s: unsupported segment base", rep.ID)
	}
}

func init() {
	probeCmd.Flags().Float64Var(&probePlaybackRate, "rate", 1, "requested playback rate magnitude")
	rootCmd.AddCommand(probeCmd)
}
