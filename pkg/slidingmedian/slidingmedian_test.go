package slidingmedian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverager_ReplaceByOneSample(t *testing.T) {
	a := New(1000)

	a.AddSample(1000, 1)
	assert.Equal(t, uint64(1), a.GetAverage())

	a.AddSample(1000, 5)
	assert.Equal(t, uint64(5), a.GetAverage())

	a.AddSample(1000, 100)
	assert.Equal(t, uint64(100), a.GetAverage())
}

func TestAverager_BuildUp(t *testing.T) {
	a := New(70)

	samples := []struct {
		weight, value uint64
	}{
		{10, 5}, {20, 7}, {15, 3}, {5, 6}, {1, 8}, {2, 4}, {9, 1}, {15, 9},
	}
	expected := []uint64{5, 7, 5, 5, 6, 5, 5, 7}

	for i, s := range samples {
		a.AddSample(s.weight, s.value)
		assert.Equal(t, expected[i], a.GetAverage(), "after sample %d", i)
	}
}

func TestAverager_Empty(t *testing.T) {
	a := New(1000)
	assert.Equal(t, uint64(0), a.GetAverage())
}

func TestAverager_ZeroWeightIgnored(t *testing.T) {
	a := New(1000)
	a.AddSample(0, 42)
	assert.Equal(t, uint64(0), a.GetAverage())
}
