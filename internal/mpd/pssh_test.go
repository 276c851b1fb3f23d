package mpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widevineSystemID is the well-known Widevine DRM system UUID.
var widevineSystemID = [16]byte{
	0xed, 0xef, 0x8b, 0xa9, 0x79, 0xd6, 0x4a, 0xce,
	0xa3, 0xc8, 0x27, 0xdc, 0xd5, 0x1d, 0x21, 0xed,
}

// buildPsshBox hand-assembles a version-0 pssh box with an empty data
// payload.
func buildPsshBox(systemID [16]byte) []byte {
	box := []byte{
		0x00, 0x00, 0x00, 0x20, 'p', 's', 's', 'h',
		0x00, 0x00, 0x00, 0x00, // version 0, flags
	}
	box = append(box, systemID[:]...)
	box = append(box, 0x00, 0x00, 0x00, 0x00) // data size 0
	return box
}

func TestPsshUUIDExtractsSystemID(t *testing.T) {
	uuid, ok := PsshUUID(buildPsshBox(widevineSystemID))
	require.True(t, ok)
	assert.Equal(t, widevineSystemID, uuid)
}

func TestPsshUUIDRejectsGarbage(t *testing.T) {
	_, ok := PsshUUID([]byte("definitely not an iso box"))
	assert.False(t, ok)

	_, ok = PsshUUID(nil)
	assert.False(t, ok)
}
