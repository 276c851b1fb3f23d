package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcore/ndash/internal/mpd"
)

func videoFormat(id string, bitrate int32, maxPlayoutRate float64) mpd.Format {
	f := mpd.NewFormat(id, "video/mp4")
	f.Bitrate = bitrate
	f.MaxPlayoutRate = maxPlayoutRate
	return f
}

func TestEvaluateHonoursPlayoutRateConstraint(t *testing.T) {
	formats := []mpd.Format{
		videoFormat("low", 500000, 1),
		videoFormat("mid", 1500000, 2),
		videoFormat("high", 3000000, 4),
	}

	var eval Evaluation
	New().Evaluate(formats, 2, &eval)
	require.NotNil(t, eval.Format)
	// "mid" has the lowest max playout rate that still covers rate 2.
	assert.Equal(t, "mid", eval.Format.ID)
	assert.GreaterOrEqual(t, eval.Format.MaxPlayoutRate, 2.0)
}

func TestEvaluatePrefersHighestBitrateAtChosenRate(t *testing.T) {
	formats := []mpd.Format{
		videoFormat("a", 1000000, 1),
		videoFormat("b", 2000000, 1),
		videoFormat("c", 500000, 1),
	}

	var eval Evaluation
	New().Evaluate(formats, 1, &eval)
	require.NotNil(t, eval.Format)
	assert.Equal(t, "b", eval.Format.ID)
}

func TestEvaluateFallsBackWhenNoFormatCoversRate(t *testing.T) {
	formats := []mpd.Format{
		videoFormat("slow", 1000000, 1),
		videoFormat("faster", 800000, 2),
	}

	var eval Evaluation
	New().Evaluate(formats, 8, &eval)
	require.NotNil(t, eval.Format)
	// Nothing covers 8x; the highest max playout rate wins.
	assert.Equal(t, "faster", eval.Format.ID)
}

func TestEvaluateNegativeRateUsesMagnitude(t *testing.T) {
	formats := []mpd.Format{
		videoFormat("normal", 1000000, 1),
		videoFormat("trick", 500000, 4),
	}

	var eval Evaluation
	New().Evaluate(formats, -4, &eval)
	require.NotNil(t, eval.Format)
	assert.Equal(t, "trick", eval.Format.ID)
}

func TestEvaluateTextPicksFirst(t *testing.T) {
	captions := mpd.NewFormat("captions", "application/x-rawcc")
	var eval Evaluation
	New().Evaluate([]mpd.Format{captions}, 1, &eval)
	require.NotNil(t, eval.Format)
	assert.Equal(t, "captions", eval.Format.ID)
}

func TestEvaluateUnsupportedMimeLeavesEvaluationUnset(t *testing.T) {
	unknown := mpd.NewFormat("x", "font/woff")
	var eval Evaluation
	New().Evaluate([]mpd.Format{unknown}, 1, &eval)
	assert.Nil(t, eval.Format)
}

func TestEvaluateTieBreaksOnID(t *testing.T) {
	formats := []mpd.Format{
		videoFormat("b", 1000000, 1),
		videoFormat("a", 1000000, 1),
	}

	var eval Evaluation
	New().Evaluate(formats, 1, &eval)
	require.NotNil(t, eval.Format)
	assert.Equal(t, "a", eval.Format.ID)
}
