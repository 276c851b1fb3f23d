// Package evaluator selects which Representation to load next from a set
// of candidate formats and the requested playback rate. This is the fixed
// (non-adaptive) policy: it honours trick-play constraints via
// MaxPlayoutRate and otherwise prefers the highest usable bitrate.
// Adaptive policies layer bandwidth and queue-depth inputs on the same
// Evaluation contract.
package evaluator

import (
	"math"

	"github.com/streamcore/ndash/internal/mpd"
)

// TriggerReason records why an Evaluation chose (or re-chose) a format.
type TriggerReason int

const (
	TriggerUnknown TriggerReason = iota
	TriggerInitial
	TriggerManual
	TriggerAdaptive
	TriggerTrickPlay
)

// Evaluation is the outcome of one selection pass. Format is nil when the
// candidate set's MIME category is unsupported.
type Evaluation struct {
	Format  *mpd.Format
	Trigger TriggerReason
}

// Evaluator is the stateless fixed-format selector. Enable and Disable
// exist for symmetry with adaptive evaluators that hold resources.
type Evaluator struct{}

// New returns a fixed-format Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Enable is a no-op for the fixed evaluator.
func (e *Evaluator) Enable() {}

// Disable is a no-op for the fixed evaluator.
func (e *Evaluator) Disable() {}

// Evaluate picks a format for the given playback rate and stores it in
// eval. For video and audio it picks per selectFormat; text tracks carry a
// single representation by contract so the first is taken; an unsupported
// MIME category leaves eval unset.
func (e *Evaluator) Evaluate(formats []mpd.Format, playbackRate float64, eval *Evaluation) {
	if len(formats) == 0 {
		return
	}
	switch formats[0].Category() {
	case "video", "audio":
		if best := selectFormat(formats, playbackRate); best != nil {
			f := *best
			eval.Format = &f
		}
	case "text", "application":
		f := formats[0]
		eval.Format = &f
	default:
		eval.Format = nil
	}
}

// selectFormat picks the highest-bitrate format among those with the
// lowest max playout rate that still covers the playback rate. When no
// format covers it, the best fallback is the one with the highest max
// playout rate (then highest bitrate).
func selectFormat(formats []mpd.Format, playbackRate float64) *mpd.Format {
	rate := math.Abs(playbackRate)

	var gte, lt []*mpd.Format
	for i := range formats {
		f := &formats[i]
		if f.MaxPlayoutRate >= rate {
			gte = append(gte, f)
		} else {
			lt = append(lt, f)
		}
	}

	if len(gte) > 0 {
		return maxFormat(gte, true)
	}
	if len(lt) > 0 {
		return maxFormat(lt, false)
	}
	return nil
}

// maxFormat scans candidates for the best pick. With minPlayoutRate true
// the lowest MaxPlayoutRate wins (the cheapest rate that still suffices);
// otherwise the highest wins. Ties break to the higher bitrate, then the
// lexicographically smaller ID.
func maxFormat(candidates []*mpd.Format, minPlayoutRate bool) *mpd.Format {
	best := candidates[0]
	for _, f := range candidates[1:] {
		if formatBetter(f, best, minPlayoutRate) {
			best = f
		}
	}
	return best
}

func formatBetter(f, best *mpd.Format, minPlayoutRate bool) bool {
	if f.MaxPlayoutRate != best.MaxPlayoutRate {
		if minPlayoutRate {
			return f.MaxPlayoutRate < best.MaxPlayoutRate
		}
		return f.MaxPlayoutRate > best.MaxPlayoutRate
	}
	if f.Bitrate != best.Bitrate {
		return f.Bitrate > best.Bitrate
	}
	return f.ID < best.ID
}
