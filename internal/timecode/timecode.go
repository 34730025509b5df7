// Package timecode converts the colon-delimited cue timestamps found in the
// chapter documents into seconds and back.
package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Parse converts "s", "m:s" or "h:m:s" into seconds. Hours and minutes use
// the leading integer of their component, seconds the leading decimal.
// Anything unparseable counts as zero; so does a string with more than three
// components.
func Parse(s string) float64 {
	if s == "" {
		return 0
	}

	parts := strings.Split(s, ":")
	var hours, minutes, seconds float64
	switch len(parts) {
	case 3:
		hours = leadingInt(parts[0])
		minutes = leadingInt(parts[1])
		seconds = leadingFloat(parts[2])
	case 2:
		minutes = leadingInt(parts[0])
		seconds = leadingFloat(parts[1])
	case 1:
		seconds = leadingFloat(parts[0])
	}

	return hours*3600 + minutes*60 + seconds
}

// ParseAttr parses an attribute value that may be absent.
func ParseAttr(value string, ok bool) float64 {
	if !ok {
		return 0
	}
	return Parse(value)
}

func leadingInt(s string) float64 {
	m := intPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func leadingFloat(s string) float64 {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// Format renders seconds as m:ss, or h:mm:ss past the hour. Negative values
// render as 0:00.
func Format(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Duration converts seconds to a time.Duration.
func Duration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// Seconds converts a time.Duration to seconds.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}
