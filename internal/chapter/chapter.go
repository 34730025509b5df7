// Package chapter names the 100 dashakams and derives the resource names
// that belong to each of them.
package chapter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// First is the lowest chapter number.
	First Number = 1
	// Last is the highest chapter number.
	Last Number = 100

	// AudioDir is the directory the chapter recordings live in.
	AudioDir = "Audio_Sync_S_Verses_Only"
)

// ErrOutOfRange is returned when a chapter number is outside [First, Last].
var ErrOutOfRange = errors.New("chapter out of range")

// Number identifies a chapter.
type Number int

// Parse reads a chapter number such as "7" or "007".
func Parse(s string) (Number, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid chapter %q: %w", s, err)
	}
	n := Number(v)
	if !n.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return n, nil
}

// Clamp bounds v into [First, Last].
func Clamp(v int) Number {
	switch {
	case v < int(First):
		return First
	case v > int(Last):
		return Last
	}
	return Number(v)
}

// All returns every chapter in order.
func All() []Number {
	out := make([]Number, 0, Last)
	for n := First; n <= Last; n++ {
		out = append(out, n)
	}
	return out
}

// Valid reports whether n is in [First, Last].
func (n Number) Valid() bool {
	return n >= First && n <= Last
}

// Padded returns the three digit form used in resource names.
func (n Number) Padded() string {
	return fmt.Sprintf("%03d", int(n))
}

// Title is the heading title that marks the chapter in both documents.
func (n Number) Title() string {
	return "Narayaneeyam D" + n.Padded()
}

// AudioFile is the recording's file name.
func (n Number) AudioFile() string {
	return "Narayaneeyam_D" + n.Padded() + ".mp3"
}

// AudioPath is the recording's path relative to the documents.
func (n Number) AudioPath() string {
	return AudioDir + "/" + n.AudioFile()
}

// Label is the user-facing name.
func (n Number) Label() string {
	return "Dashakam " + strconv.Itoa(int(n))
}

func (n Number) String() string {
	return n.Padded()
}

// Next returns the following chapter and whether one exists.
func (n Number) Next() (Number, bool) {
	if n >= Last {
		return n, false
	}
	return Clamp(int(n) + 1), true
}

// Prev returns the preceding chapter and whether one exists.
func (n Number) Prev() (Number, bool) {
	if n <= First {
		return n, false
	}
	return Clamp(int(n) - 1), true
}
