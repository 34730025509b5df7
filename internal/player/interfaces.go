package player

import (
	"context"

	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/content"
	"github.com/narayaneeyam/dashakam/internal/loader"
)

// Audio is the media element the controller drives.
type Audio interface {
	SetSource(path string) error
	Play() error
	Pause() error
	Seek(sec float64) error
	CurrentTime() float64
	Duration() float64
	Ended() bool
	SetSpeed(speed float64) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
}

// Fetcher loads chapter content. *loader.Loader implements it.
type Fetcher interface {
	Load(ctx context.Context, n chapter.Number) (*loader.Chapter, error)
	AudioPath(n chapter.Number) string
}

// Toggle labels offered by the view for the other text variant.
const (
	LabelShowCanonical       = "Display Sanskrit"
	LabelShowTransliteration = "Display English Transliteration"
)

// Display is what the text panel shows for a chapter.
type Display struct {
	Chapter        chapter.Number
	Fragments      []content.Fragment
	Cues           []content.Cue
	Transliterated bool
	ToggleLabel    string
}

// View renders the text panel. Calls are made while the controller holds its
// lock, so implementations must not call back into the controller.
type View interface {
	ShowChapter(d Display)
	ShowError(n chapter.Number, err error)
	// SetActive marks or unmarks the cue at index as the current verse.
	SetActive(index int, active bool)
}

// NopView discards all display updates.
type NopView struct{}

func (NopView) ShowChapter(Display)             {}
func (NopView) ShowError(chapter.Number, error) {}
func (NopView) SetActive(int, bool)             {}
