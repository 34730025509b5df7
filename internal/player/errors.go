package player

import (
	"errors"
	"fmt"

	"github.com/narayaneeyam/dashakam/internal/chapter"
)

var (
	// ErrNoAudio is returned by NewController without an audio output.
	ErrNoAudio = errors.New("no audio output")
	// ErrNoFetcher is returned by NewController without a fetcher.
	ErrNoFetcher = errors.New("no chapter fetcher")
	// ErrStaleResult is returned when another chapter was selected while
	// loading.
	ErrStaleResult = errors.New("chapter load superseded")
)

// LoadError reports a failed chapter load. The audio source has already
// been switched to the chapter when it occurs.
type LoadError struct {
	Chapter chapter.Number
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Chapter.Label(), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
