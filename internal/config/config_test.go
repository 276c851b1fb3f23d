package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.EqualValues(t, 10*1024*1024, cfg.Source.BufferSize)
	assert.Equal(t, "ndash/1.0", cfg.Source.UserAgent)
	assert.False(t, cfg.Source.GlobalLock)
	assert.EqualValues(t, 20000, cfg.Bandwidth.MaxWeight)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:8080", cfg.Status.Addr)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("logging.level", "shouty")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"5MB", 5 << 20},
		{"5MiB", 5 << 20},
		{"1.5 GB", ByteSize(1.5 * (1 << 30))},
		{"500KB", 500 << 10},
		{"5242880", 5242880},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseByteSizeErrors(t *testing.T) {
	for _, in := range []string{"", "lots", "-5MB", "5XB"} {
		_, err := ParseByteSize(in)
		assert.Error(t, err, in)
	}
}

func TestByteSizeString(t *testing.T) {
	assert.Equal(t, "10MiB", ByteSize(10<<20).String())
	assert.Equal(t, "1KiB", ByteSize(1024).String())
	assert.Equal(t, "1500", ByteSize(1500).String())
}

func TestByteSizeUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("2MiB")))
	assert.EqualValues(t, 2<<20, b)
}
