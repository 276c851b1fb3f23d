// Package slidingmedian implements a bounded-weight streaming quantile
// averager: samples are inserted with a weight, older samples are trimmed
// once the total weight exceeds a configured maximum, and the "average" is
// the value at the ceiling of half the remaining total weight.
//
// It is used by the bandwidth meter as a median-like averager that is more
// resistant to one-off outlier transfers than a flat moving average.
package slidingmedian

import "sort"

type sample struct {
	value  uint64
	weight uint64
}

// Averager is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves (the bandwidth meter does
// this with its own lock).
type Averager struct {
	maxWeight   uint64
	totalWeight uint64
	// queue holds samples in insertion order for FIFO expiration.
	queue []*sample
}

// New returns an Averager that trims samples once the sum of their weights
// would exceed maxWeight.
func New(maxWeight uint64) *Averager {
	return &Averager{maxWeight: maxWeight}
}

// AddSample inserts a sample with the given weight (> 0) and value, then
// trims the oldest samples until the total tracked weight is at most
// maxWeight. A single large-weight sample may partially evict, or fully
// evict and continue trimming into, several of the oldest samples.
func (a *Averager) AddSample(weight, value uint64) {
	if weight == 0 {
		return
	}
	a.queue = append(a.queue, &sample{value: value, weight: weight})
	a.totalWeight += weight

	for a.totalWeight > a.maxWeight && len(a.queue) > 0 {
		head := a.queue[0]
		excess := a.totalWeight - a.maxWeight
		if head.weight <= excess {
			a.totalWeight -= head.weight
			a.queue = a.queue[1:]
		} else {
			head.weight -= excess
			a.totalWeight -= excess
		}
	}
}

// GetAverage returns the value at cumulative weight ceil(totalWeight/2) when
// samples are ordered by value ascending, or 0 if no samples are tracked.
func (a *Averager) GetAverage() uint64 {
	if a.totalWeight == 0 {
		return 0
	}
	ordered := make([]*sample, len(a.queue))
	copy(ordered, a.queue)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].value < ordered[j].value })

	desired := (a.totalWeight + 1) / 2
	var cumulative uint64
	for _, s := range ordered {
		cumulative += s.weight
		if cumulative >= desired {
			return s.value
		}
	}
	return 0
}

// TotalWeight reports the currently tracked weight, for diagnostics.
func (a *Averager) TotalWeight() uint64 {
	return a.totalWeight
}
