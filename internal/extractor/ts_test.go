package extractor

import (
	"testing"

	"github.com/asticode/go-astits"
	"github.com/stretchr/testify/assert"
)

func TestMimeForStreamType(t *testing.T) {
	assert.Equal(t, "video/avc", mimeForStreamType(astits.StreamTypeH264Video))
	assert.Equal(t, "audio/mp4a-latm", mimeForStreamType(astits.StreamTypeAACAudio))
	assert.Equal(t, "audio/eac3", mimeForStreamType(astits.StreamTypeEAC3Audio))
	assert.Equal(t, "", mimeForStreamType(astits.StreamType(0x06)))
}
