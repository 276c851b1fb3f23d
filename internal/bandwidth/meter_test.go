package bandwidth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAverager struct {
	lastWeight, lastValue uint64
	average               uint64
}

func (f *fakeAverager) AddSample(weight, value uint64) {
	f.lastWeight, f.lastValue = weight, value
}

func (f *fakeAverager) GetAverage() uint64 { return f.average }

func TestMeterPublishesOnlyWhenStreamCountReturnsToZero(t *testing.T) {
	avg := &fakeAverager{average: 5000}
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	var samples int
	m := newMeter(func(elapsed time.Duration, bytes, bitrate int64) {
		samples++
	}, avg, clock)

	m.OnTransferStart()
	now = now.Add(10 * time.Millisecond)
	m.OnTransferStart() // overlapping second transfer

	m.OnBytesTransferred(1000)
	now = now.Add(10 * time.Millisecond)

	m.OnTransferEnd() // stream_count: 2 -> 1, no sample yet
	assert.Equal(t, 0, samples)
	assert.Equal(t, NoEstimate, m.GetEstimate())

	m.OnTransferEnd() // stream_count: 1 -> 0, publishes
	require.Equal(t, 1, samples)
	assert.Equal(t, int64(5000), m.GetEstimate())
}

func TestMeterNonPositiveElapsedYieldsNoEstimate(t *testing.T) {
	avg := &fakeAverager{average: 5000}
	now := time.Unix(0, 0)
	m := newMeter(nil, avg, func() time.Time { return now })

	m.OnTransferStart()
	m.OnBytesTransferred(1000)
	m.OnTransferEnd() // elapsed == 0

	assert.Equal(t, NoEstimate, m.GetEstimate())
}

func TestIntegerSqrtMatchesMathSqrtRounding(t *testing.T) {
	assert.Equal(t, uint64(3), integerSqrt(9))
	assert.Equal(t, uint64(3), integerSqrt(10))
	assert.Equal(t, uint64(0), integerSqrt(0))
	assert.Equal(t, uint64(0), integerSqrt(-5))
}
