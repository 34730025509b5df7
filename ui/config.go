package ui

import (
	"time"

	"github.com/narayaneeyam/dashakam/internal/chapter"
)

// DefaultTick is how often the playback position is sampled.
const DefaultTick = 200 * time.Millisecond

// Config contains TUI-specific configuration.
type Config struct {
	// Chapter opened on start.
	Chapter chapter.Number

	GlamourMaxWidth uint   `env:"DASHAKAM_WIDTH"  envDefault:"100"`
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool   `env:"DASHAKAM_MOUSE"`
	ShowCueNumbers  bool   `env:"DASHAKAM_CUE_NUMBERS" envDefault:"true"`

	// Tick drives the cue sync while playing.
	Tick time.Duration `env:"DASHAKAM_TICK" envDefault:"200ms"`

	// Autoplay starts playback once the first chapter is selected.
	Autoplay bool `env:"DASHAKAM_AUTOPLAY"`

	// Watch reloads the chapter when local documents change.
	Watch bool `env:"DASHAKAM_WATCH" envDefault:"true"`

	// SpeedStep and VolumeStep are the increments of the [ ] and + - keys.
	SpeedStep  float64 `env:"DASHAKAM_SPEED_STEP"  envDefault:"0.25"`
	VolumeStep float64 `env:"DASHAKAM_VOLUME_STEP" envDefault:"0.1"`
}

func (c Config) tick() time.Duration {
	if c.Tick <= 0 {
		return DefaultTick
	}
	return c.Tick
}
