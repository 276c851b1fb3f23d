package mpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemainderAdvancesBoundedSpec(t *testing.T) {
	spec := DataSpec{URI: "http://host/seg.m4s", Position: 100, Length: 500, AbsoluteStreamPosition: 1000}

	rest := Remainder(spec, 200)
	assert.Equal(t, spec.URI, rest.URI)
	assert.EqualValues(t, 300, rest.Position)
	assert.EqualValues(t, 300, rest.Length)
	assert.EqualValues(t, 1200, rest.AbsoluteStreamPosition)
}

func TestRemainderKeepsUnboundedLength(t *testing.T) {
	spec := NewDataSpec("http://host/seg.m4s")

	rest := Remainder(spec, 64)
	assert.EqualValues(t, 64, rest.Position)
	assert.Equal(t, LengthUnbounded, rest.Length)
}

func TestRemainderZeroLoadedIsIdentity(t *testing.T) {
	spec := DataSpec{URI: "u", Position: 5, Length: 10, Key: "k", Flags: FlagAllowGzip}
	assert.Equal(t, spec, Remainder(spec, 0))
}

func TestContentProtectionEquality(t *testing.T) {
	uuid := [16]byte{1, 2, 3}
	data := &SchemeInitData{MimeType: "video/mp4", Data: []byte{9, 9}}

	a := NewContentProtection("urn:uuid:widevine", uuid, true, data)
	same := NewContentProtection("urn:uuid:widevine", uuid, true, &SchemeInitData{MimeType: "video/mp4", Data: []byte{9, 9}})
	differentUUID := NewContentProtection("urn:uuid:widevine", [16]byte{7}, true, data)
	differentScheme := NewContentProtection("urn:uuid:playready", uuid, true, data)
	noData := NewContentProtection("urn:uuid:widevine", uuid, true, nil)

	assert.True(t, a.Equal(same))
	assert.False(t, a.Equal(differentUUID))
	assert.False(t, a.Equal(differentScheme))
	assert.False(t, a.Equal(noData))
}
