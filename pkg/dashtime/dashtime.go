// Package dashtime provides the timestamp-scaling and xs:duration/xs:dateTime
// parsing primitives the DASH engine needs: converting between MPD timescales
// and microseconds, and parsing ISO-8601 durations and date-times as they
// appear in a Media Presentation Description.
package dashtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel time values used throughout the chunk/extractor contracts.
const (
	UnknownTimeUs = -1
	MatchLongestUs = -2
	EndOfTrackUs = -3

	MicrosPerSecond = 1000000
	MicrosPerMs     = 1000
)

// ScaleLargeTimestamp rescales timestamp from a clock running at div ticks
// per unit to one running at mul ticks per unit, without overflowing for the
// common DASH case where one side is an integer multiple of the other.
func ScaleLargeTimestamp(timestamp, mul, div int64) int64 {
	if div%mul == 0 {
		return timestamp / (div / mul)
	}
	if mul%div == 0 {
		return timestamp * (mul / div)
	}
	return int64(float64(timestamp) * (float64(mul) / float64(div)))
}

var xsDurationPattern = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// Millisecond multipliers use the mean tropical year (31556926s) and its
// twelfth for months, not the Gregorian calendar.
const (
	msPerYear   = 31556926000.0
	msPerMonth  = 2629743830.0
	msPerDay    = 86400000.0
	msPerHour   = 3600000.0
	msPerMinute = 60000.0
	msPerSecond = 1000.0
)

// ParseXSDuration parses an xs:duration literal of the restricted form
// P[nY][nM][nD][T[nH][nM][nS]], where the final present component may carry
// a fractional part. It returns milliseconds, or -1 if s is not a well-formed
// duration of this form (it never returns an error).
func ParseXSDuration(s string) int64 {
	if !strings.HasPrefix(s, "P") {
		return -1
	}
	m := xsDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return -1
	}
	if m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "" && m[6] == "" {
		return -1
	}
	for i := 1; i < 6; i++ {
		if strings.Contains(m[i], ".") && strings.Join(m[i+1:], "") != "" {
			// Only the final present component may be fractional.
			return -1
		}
	}
	var total float64
	if m[1] != "" {
		v, _ := strconv.ParseFloat(m[1], 64)
		total += v * msPerYear
	}
	if m[2] != "" {
		v, _ := strconv.ParseFloat(m[2], 64)
		total += v * msPerMonth
	}
	if m[3] != "" {
		v, _ := strconv.ParseFloat(m[3], 64)
		total += v * msPerDay
	}
	if m[4] != "" {
		v, _ := strconv.ParseFloat(m[4], 64)
		total += v * msPerHour
	}
	if m[5] != "" {
		v, _ := strconv.ParseFloat(m[5], 64)
		total += v * msPerMinute
	}
	if m[6] != "" {
		v, _ := strconv.ParseFloat(m[6], 64)
		total += v * msPerSecond
	}
	return int64(total)
}

// ParseXSDateTime parses a UTC ISO-8601 date-time (as used by
// availabilityStartTime and related MPD attributes) and returns milliseconds
// since the Unix epoch.
func ParseXSDateTime(s string) (int64, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UnixMilli(), nil
		}
		lastErr = err
	}
	return -1, fmt.Errorf("dashtime: parse xs:dateTime %q: %w", s, lastErr)
}
