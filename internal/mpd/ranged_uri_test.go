package mpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangedURIResolve(t *testing.T) {
	r := NewRangedURI("http://host/path/", "seg-1.m4s", 0, 100)
	uri, err := r.ResolveURI()
	require.NoError(t, err)
	assert.Equal(t, "http://host/path/seg-1.m4s", uri)
}

func TestAttemptMergeAdjacentRanges(t *testing.T) {
	a := NewRangedURI("http://host/", "media.mp4", 0, 100)
	b := NewRangedURI("http://host/", "media.mp4", 100, 50)

	merged := a.AttemptMerge(b)
	require.NotNil(t, merged)
	assert.EqualValues(t, 0, merged.Start())
	assert.EqualValues(t, 150, merged.Length())

	// Merge works in either argument order.
	merged = b.AttemptMerge(a)
	require.NotNil(t, merged)
	assert.EqualValues(t, 0, merged.Start())
	assert.EqualValues(t, 150, merged.Length())
}

func TestAttemptMergeUnboundedAbsorbs(t *testing.T) {
	a := NewRangedURI("http://host/", "media.mp4", 0, 100)
	b := NewRangedURI("http://host/", "media.mp4", 100, LengthUnbounded)

	merged := a.AttemptMerge(b)
	require.NotNil(t, merged)
	assert.EqualValues(t, 0, merged.Start())
	assert.Equal(t, LengthUnbounded, merged.Length())
}

func TestAttemptMergeRejectsGapsAndDifferentURIs(t *testing.T) {
	a := NewRangedURI("http://host/", "media.mp4", 0, 100)

	gap := NewRangedURI("http://host/", "media.mp4", 150, 50)
	assert.Nil(t, a.AttemptMerge(gap))

	other := NewRangedURI("http://host/", "other.mp4", 100, 50)
	assert.Nil(t, a.AttemptMerge(other))
}

func TestAttemptMergeIsAssociative(t *testing.T) {
	a := NewRangedURI("http://host/", "m.mp4", 0, 10)
	b := NewRangedURI("http://host/", "m.mp4", 10, 20)
	c := NewRangedURI("http://host/", "m.mp4", 30, 30)

	left := a.AttemptMerge(b).AttemptMerge(c)
	right := a.AttemptMerge(b.AttemptMerge(c))
	require.NotNil(t, left)
	require.NotNil(t, right)
	assert.True(t, left.Equal(right))
	assert.EqualValues(t, 60, left.Length())
}

func TestRangedURIEqual(t *testing.T) {
	a := NewRangedURI("http://host/", "m.mp4", 0, 10)
	same := NewRangedURI("http://host/", "m.mp4", 0, 10)
	// The same resolved URI spelled through a different base/reference
	// split is still equal.
	split := NewRangedURI("http://host/x/", "/m.mp4", 0, 10)
	differentRange := NewRangedURI("http://host/", "m.mp4", 0, 11)

	assert.True(t, a.Equal(same))
	assert.True(t, a.Equal(split))
	assert.False(t, a.Equal(differentRange))
	assert.False(t, a.Equal(nil))
}
