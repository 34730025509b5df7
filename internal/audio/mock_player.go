package audio

import (
	"sync"
	"time"
)

// MockPlayer is a silent player driven by a clock. Its position advances
// with the clock while playing, scaled by the playback speed. It is used in
// tests and when audio output is disabled.
type MockPlayer struct {
	mu sync.Mutex

	now      func() time.Time
	duration func(source string) float64

	source  string
	length  float64
	offset  float64   // position when the clock was last read
	since   time.Time // clock time of offset while playing
	playing bool
	speed   float64
	volume  float64
	muted   bool
	closed  bool
	playErr error

	callbacks MockCallbacks

	// Recorded calls for tests.
	Sources []string
	Seeks   []float64
	Plays   int
	Pauses  int
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnSource func(source string)
	OnPlay   func()
	OnPause  func()
	OnSeek   func(sec float64)
}

// MockOption configures a MockPlayer.
type MockOption func(*MockPlayer)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) MockOption {
	return func(mp *MockPlayer) { mp.now = now }
}

// WithDurations reports a track length for each source. A length of 0 means
// the track never ends.
func WithDurations(fn func(source string) float64) MockOption {
	return func(mp *MockPlayer) { mp.duration = fn }
}

// WithCallbacks installs test hooks.
func WithCallbacks(cb MockCallbacks) MockOption {
	return func(mp *MockPlayer) { mp.callbacks = cb }
}

// NewMockPlayer creates a mock player on the wall clock.
func NewMockPlayer(opts ...MockOption) *MockPlayer {
	mp := &MockPlayer{
		now:    time.Now,
		speed:  1.0,
		volume: 1.0,
	}
	for _, opt := range opts {
		opt(mp)
	}
	return mp
}

// FailPlay makes subsequent Play calls return err; nil restores them.
func (mp *MockPlayer) FailPlay(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

func (mp *MockPlayer) SetSource(source string) error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return ErrClosed
	}
	mp.source = source
	mp.offset = 0
	mp.playing = false
	mp.length = 0
	if mp.duration != nil && source != "" {
		mp.length = mp.duration(source)
	}
	mp.Sources = append(mp.Sources, source)
	cb := mp.callbacks.OnSource
	mp.mu.Unlock()

	if cb != nil {
		cb(source)
	}
	return nil
}

func (mp *MockPlayer) Play() error {
	mp.mu.Lock()
	switch {
	case mp.closed:
		mp.mu.Unlock()
		return ErrClosed
	case mp.source == "":
		mp.mu.Unlock()
		return ErrNoSource
	case mp.playErr != nil:
		err := mp.playErr
		mp.mu.Unlock()
		return err
	}

	if mp.length > 0 && mp.positionLocked() >= mp.length {
		mp.offset = 0
	}
	if !mp.playing {
		mp.playing = true
		mp.since = mp.now()
	}
	mp.Plays++
	cb := mp.callbacks.OnPlay
	mp.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return ErrClosed
	}
	mp.offset = mp.positionLocked()
	mp.playing = false
	mp.Pauses++
	cb := mp.callbacks.OnPause
	mp.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

func (mp *MockPlayer) Seek(sec float64) error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return ErrClosed
	}
	if sec < 0 {
		sec = 0
	}
	if mp.length > 0 && sec > mp.length {
		sec = mp.length
	}
	mp.offset = sec
	mp.since = mp.now()
	mp.Seeks = append(mp.Seeks, sec)
	cb := mp.callbacks.OnSeek
	mp.mu.Unlock()

	if cb != nil {
		cb(sec)
	}
	return nil
}

func (mp *MockPlayer) CurrentTime() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.positionLocked()
}

func (mp *MockPlayer) positionLocked() float64 {
	t := mp.offset
	if mp.playing {
		t += mp.now().Sub(mp.since).Seconds() * mp.speed
	}
	if mp.length > 0 && t > mp.length {
		t = mp.length
	}
	return t
}

func (mp *MockPlayer) Duration() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.length
}

// Ended reports whether a playing track reached its end.
func (mp *MockPlayer) Ended() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.playing && mp.length > 0 && mp.positionLocked() >= mp.length
}

func (mp *MockPlayer) SetSpeed(speed float64) error {
	if err := checkSpeed(speed); err != nil {
		return err
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	// Fold elapsed time in at the old speed.
	mp.offset = mp.positionLocked()
	mp.since = mp.now()
	mp.speed = speed
	return nil
}

func (mp *MockPlayer) SetVolume(volume float64) error {
	if err := checkVolume(volume); err != nil {
		return err
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.volume = volume
	return nil
}

func (mp *MockPlayer) SetMuted(muted bool) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.muted = muted
	return nil
}

// Volume returns the volume and mute flag.
func (mp *MockPlayer) Volume() (float64, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.volume, mp.muted
}

// Speed returns the playback rate.
func (mp *MockPlayer) Speed() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.speed
}

// Playing reports whether the mock is playing.
func (mp *MockPlayer) Playing() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.playing
}

func (mp *MockPlayer) Source() string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.source
}

func (mp *MockPlayer) State() PlayerState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	switch {
	case mp.closed:
		return StateClosed
	case mp.playing:
		return StatePlaying
	case mp.source == "":
		return StateStopped
	default:
		return StatePaused
	}
}

func (mp *MockPlayer) Err() error { return nil }

func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.closed = true
	mp.playing = false
	return nil
}
