package audio

import (
	"errors"
	"fmt"
)

var (
	ErrNoSource = errors.New("no audio source")
	ErrClosed   = errors.New("player is closed")
)

// Limits accepted by SetSpeed and SetVolume.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// PlayerState represents the current state of the player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StateLoading
	StatePlaying
	StatePaused
	StateClosed
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func checkSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("speed must be between %.1f and %.1f, got %f", MinSpeed, MaxSpeed, speed)
	}
	return nil
}

func checkVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	return nil
}
