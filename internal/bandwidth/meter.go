// Package bandwidth implements the event-driven bandwidth estimator: it
// listens to transfer start/progress/end events from one or more
// concurrently-open HTTP transfers and publishes a bitrate estimate each
// time the last overlapping transfer ends.
//
// pkg/slidingmedian supplies the averaging step; a weighted median is far
// more resistant to one-off outlier transfers than a flat moving window.
package bandwidth

import (
	"math"
	"sync"
	"time"
)

// NoEstimate is returned by GetEstimate before any sample has been
// published, and substituted whenever a computed average is non-positive.
const NoEstimate int64 = -1

// DefaultMaxWeight bounds the averager's tracked sample weight.
const DefaultMaxWeight uint64 = 20000

const bitsPerByte = 8

// averager is the subset of pkg/slidingmedian.Averager the meter depends
// on, so tests can substitute a deterministic fake.
type averager interface {
	AddSample(weight, value uint64)
	GetAverage() uint64
}

// SampleFunc is the "post to runner" capability: the meter calls it on the
// goroutine that ended the last open transfer, after releasing its lock.
// The caller supplies a func that schedules the callback appropriately
// (e.g. onto a single-goroutine event loop).
type SampleFunc func(elapsed time.Duration, bytes int64, bitrateBps int64)

// Meter tracks bytes transferred across possibly-overlapping transfers and
// produces one bandwidth sample each time the number of concurrently open
// transfers returns to zero.
type Meter struct {
	post SampleFunc

	mu               sync.Mutex
	averager         averager
	bytesAccumulator int64
	startTime        time.Time
	bitrateEstimate  int64
	streamCount      int
	now              func() time.Time
}

// New returns a Meter with the default max weight. post may be nil to
// disable sample notifications (GetEstimate still works).
func New(post SampleFunc) *Meter {
	return NewWithMaxWeight(post, DefaultMaxWeight)
}

// NewWithMaxWeight returns a Meter whose internal averager trims samples
// once tracked weight exceeds maxWeight.
func NewWithMaxWeight(post SampleFunc, maxWeight uint64) *Meter {
	return newMeter(post, slidingMedianAverager(maxWeight), time.Now)
}

func newMeter(post SampleFunc, avg averager, now func() time.Time) *Meter {
	return &Meter{
		post:            post,
		averager:        avg,
		bitrateEstimate: NoEstimate,
		now:             now,
	}
}

// GetEstimate returns the most recently published bitrate estimate in bits
// per second, or NoEstimate if none has been published yet. Safe to call
// from any goroutine.
func (m *Meter) GetEstimate() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bitrateEstimate
}

// OnTransferStart must be called when a transfer begins. The accounting
// window opens on the first (0->1) transition of the concurrent-transfer
// count.
func (m *Meter) OnTransferStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streamCount == 0 {
		m.startTime = m.now()
		m.bytesAccumulator = 0
	}
	m.streamCount++
}

// OnBytesTransferred records bytes delivered by the transport for the
// transfer currently open on this meter. bytes must be > 0.
func (m *Meter) OnBytesTransferred(bytes int64) {
	m.mu.Lock()
	m.bytesAccumulator += bytes
	m.mu.Unlock()
}

// OnTransferEnd must be called when a transfer ends (success, error, or
// cancellation). Only the transition to stream_count == 0 publishes a
// sample.
func (m *Meter) OnTransferEnd() {
	var (
		elapsed       time.Duration
		accumulated   int64
		bitrate       = NoEstimate
		publishSample bool
	)

	m.mu.Lock()
	m.streamCount--
	if m.streamCount == 0 {
		// Only the end of the last overlapping transfer closes the
		// accounting window and publishes a sample.
		now := m.now()
		elapsed = now.Sub(m.startTime)
		accumulated = m.bytesAccumulator

		if elapsed > 0 && accumulated > 0 {
			bitsPerSecond := accumulated * bitsPerByte * int64(time.Second) / int64(elapsed)
			m.averager.AddSample(integerSqrt(accumulated), uint64(bitsPerSecond))
			avg := int64(m.averager.GetAverage())
			if avg <= 0 {
				avg = NoEstimate
			}
			bitrate = avg
			m.bitrateEstimate = bitrate
			publishSample = true
		}

		m.startTime = now
		m.bytesAccumulator = 0
	}
	m.mu.Unlock()

	if publishSample && m.post != nil {
		m.post(elapsed, accumulated, bitrate)
	}
}

// integerSqrt truncates sqrt to an integer explicitly so the weight fed
// to the averager is reproducible across platforms; rounding here breaks
// ties between comparably-sized transfers.
func integerSqrt(v int64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(math.Sqrt(float64(v)))
}
