package player

import "github.com/narayaneeyam/dashakam/internal/chapter"

// StateType summarizes what the player is doing.
type StateType int

const (
	// StateIdle indicates no chapter has been loaded.
	StateIdle StateType = iota
	// StateLoading indicates a chapter load is in flight.
	StateLoading
	// StatePlaying indicates audio is playing.
	StatePlaying
	// StatePaused indicates a chapter is loaded and paused.
	StatePaused
	// StateError indicates the last chapter load failed.
	StateError
)

func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the playback state.
type State struct {
	Status  StateType
	Chapter chapter.Number

	CurrentTime float64 // seconds
	Duration    float64 // seconds, 0 while unknown
	Playing     bool
	ActiveCue   int // -1 when no cue is active
	Cues        int

	RepeatChapter  bool
	RepeatSegment  bool
	Transliterated bool

	Speed  float64
	Volume float64
	Muted  bool

	Loading   bool
	LastError error
}

// HasActiveCue reports whether a verse is highlighted.
func (s State) HasActiveCue() bool {
	return s.ActiveCue >= 0
}
