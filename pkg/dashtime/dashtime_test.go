package dashtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleLargeTimestamp(t *testing.T) {
	assert.Equal(t, int64(12345678000), ScaleLargeTimestamp(12345678, 1000000, 1000))
	assert.Equal(t, int64(12345), ScaleLargeTimestamp(12345678, 1000, 1000000))
}

func TestParseXSDuration(t *testing.T) {
	assert.Equal(t, int64(3600000), ParseXSDuration("PT1H"))
	assert.Equal(t, int64(63113852000), ParseXSDuration("P2Y"))
	assert.Equal(t, int64(36500), ParseXSDuration("PT36.5S"))
	assert.Equal(t, int64(-1), ParseXSDuration(""))
	assert.Equal(t, int64(-1), ParseXSDuration("P"))
}

func TestParseXSDateTime(t *testing.T) {
	ms, err := ParseXSDateTime("2020-01-01T00:00:00Z")
	assert.NoError(t, err)
	assert.Equal(t, int64(1577836800000), ms)

	_, err = ParseXSDateTime("not-a-date")
	assert.Error(t, err)
}
