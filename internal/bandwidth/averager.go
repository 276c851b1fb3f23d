package bandwidth

import "github.com/streamcore/ndash/pkg/slidingmedian"

// slidingMedianAverager adapts pkg/slidingmedian.Averager to this
// package's averager interface (it already satisfies it structurally;
// this indirection exists so tests can inject a deterministic fake
// without importing slidingmedian).
func slidingMedianAverager(maxWeight uint64) averager {
	return slidingmedian.New(maxWeight)
}
