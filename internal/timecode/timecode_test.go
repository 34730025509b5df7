package timecode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"hours minutes seconds", "01:02:03.5", 3723.5},
		{"minutes seconds", "02:03.5", 123.5},
		{"seconds only", "3.5", 3.5},
		{"empty", "", 0},
		{"vtt style", "00:00:12.480", 12.48},
		{"non-numeric seconds", "00:01:abc", 60},
		{"non-numeric minutes", "x:10", 10},
		{"integer prefix of minutes", "1.9:00", 60},
		{"float prefix of seconds", "3.5s", 3.5},
		{"too many components", "1:2:3:4", 0},
		{"whitespace", " 1 : 05 ", 65},
		{"garbage", "abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Parse(tt.input), 1e-9)
		})
	}
}

func TestParseAttr(t *testing.T) {
	assert.Zero(t, ParseAttr("", false))
	assert.Zero(t, ParseAttr("00:00:05.000", false))
	assert.InDelta(t, 5.0, ParseAttr("00:00:05.000", true), 1e-9)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0:00", Format(0))
	assert.Equal(t, "0:00", Format(-3))
	assert.Equal(t, "1:05", Format(65.9))
	assert.Equal(t, "1:02:03", Format(3723.5))
}

func TestDurationRoundTrip(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Duration(1.5))
	assert.InDelta(t, 1.5, Seconds(1500*time.Millisecond), 1e-9)
}
