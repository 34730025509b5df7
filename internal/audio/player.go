package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// Player plays MP3 sources through a shared oto context.
//
// SetSource swaps the source immediately and opens it in the background.
// Play, Pause, Seek, speed and volume changes made while the source is still
// opening are recorded and applied once it is ready.
type Player struct {
	config PlayerConfig
	client *http.Client

	state atomic.Int32 // PlayerState

	mu       sync.Mutex
	source   string
	gen      uint64
	stream   *stream
	player   *oto.Player
	data     []byte // keeps the encoded track alive while it plays
	wantPlay bool
	seekTo   float64 // applied when the source opens
	speed    float64
	volume   float64
	muted    bool

	lastError error
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int           // 44100 or 48000 Hz only
	BufferSize time.Duration // output latency; also the position error bound
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		BufferSize: 100 * time.Millisecond,
	}
}

var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoErr     error
)

// oto allows a single context per process.
func sharedContext(config PlayerConfig) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   config.BufferSize,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
	})
	return otoContext, otoErr
}

// NewPlayer creates a player. The audio device is opened lazily with the
// first source.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Player{
		config: config,
		client: &http.Client{Timeout: 2 * time.Minute},
		speed:  1.0,
		volume: 1.0,
	}
	p.state.Store(int32(StateStopped))
	return p, nil
}

func validateConfig(config PlayerConfig) error {
	// oto only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// SetSource replaces the current source. The previous track stops at once.
func (p *Player) SetSource(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateClosed {
		return ErrClosed
	}

	p.releaseLocked()
	p.gen++
	p.source = path
	p.wantPlay = false
	p.seekTo = 0
	p.lastError = nil

	if path == "" {
		p.state.Store(int32(StateStopped))
		return nil
	}

	p.state.Store(int32(StateLoading))
	go p.open(p.gen, path)
	return nil
}

// Source returns the current source path or URL.
func (p *Player) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

func (p *Player) open(gen uint64, path string) {
	data, err := p.read(path)
	if err == nil && len(data) == 0 {
		err = errors.New("empty audio file")
	}

	var dec *mp3.Decoder
	if err == nil {
		dec, err = mp3.NewDecoder(bytes.NewReader(data))
	}

	var ctx *oto.Context
	if err == nil {
		ctx, err = sharedContext(p.config)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		log.Debug("discarding stale audio source", "source", path)
		return
	}
	if err != nil {
		p.lastError = fmt.Errorf("open %s: %w", path, err)
		p.state.Store(int32(StateStopped))
		log.Error("error opening audio", "source", path, "error", err)
		return
	}

	p.data = data
	p.stream = newStream(dec, p.config.SampleRate, p.speed)
	p.player = ctx.NewPlayer(p.stream)
	p.player.SetVolume(p.effectiveVolume())
	if p.seekTo > 0 {
		p.seekLocked(p.seekTo)
	}
	log.Info("audio opened", "source", path, "size", humanize.Bytes(uint64(len(data))), "duration", p.stream.duration())

	if p.wantPlay {
		p.player.Play()
		p.state.Store(int32(StatePlaying))
	} else {
		p.state.Store(int32(StatePaused))
	}
}

func (p *Player) read(path string) ([]byte, error) {
	u, err := url.Parse(path)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return os.ReadFile(path)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Play starts or resumes playback. A finished track restarts from the
// beginning.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateClosed {
		return ErrClosed
	}
	if p.source == "" {
		return ErrNoSource
	}

	p.wantPlay = true
	if p.player == nil {
		if p.lastError != nil {
			return p.lastError
		}
		return nil
	}

	if p.stream.drained() && !p.player.IsPlaying() {
		p.seekLocked(0)
	}
	p.player.Play()
	p.state.Store(int32(StatePlaying))
	return nil
}

// Pause pauses playback.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateClosed {
		return ErrClosed
	}

	p.wantPlay = false
	if p.player != nil {
		p.player.Pause()
		p.state.Store(int32(StatePaused))
	}
	return nil
}

// Seek moves the playback position to sec seconds.
func (p *Player) Seek(sec float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateClosed {
		return ErrClosed
	}
	if sec < 0 {
		sec = 0
	}
	if p.player == nil {
		p.seekTo = sec
		return nil
	}
	return p.seekLocked(sec)
}

func (p *Player) seekLocked(sec float64) error {
	if d := p.stream.duration(); d > 0 && sec > d {
		sec = d
	}
	offset := int64(sec*float64(p.config.SampleRate)) * bytesPerFrame
	if _, err := p.player.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	// oto stops a player whose source hit EOF; restart it if playback is wanted.
	if p.wantPlay && !p.player.IsPlaying() {
		p.player.Play()
	}
	return nil
}

// CurrentTime returns the playback position in seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return p.seekTo
	}

	// Frames handed to oto but not yet heard.
	buffered := float64(p.player.BufferedSize()/bytesPerFrame) / float64(p.config.SampleRate)
	t := p.stream.position() - buffered*p.speed
	if t < 0 {
		t = 0
	}
	if d := p.stream.duration(); d > 0 && t > d {
		t = d
	}
	return t
}

// Duration returns the track length in seconds, 0 while unknown.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return 0
	}
	return p.stream.duration()
}

// Ended reports whether a playing track ran out.
func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.wantPlay && p.player != nil && p.stream.drained() && !p.player.IsPlaying()
}

// SetSpeed sets the playback rate.
func (p *Player) SetSpeed(speed float64) error {
	if err := checkSpeed(speed); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.speed = speed
	if p.stream != nil {
		p.stream.setSpeed(speed)
	}
	return nil
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if err := checkVolume(volume); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	p.applyVolumeLocked()
	return nil
}

// SetMuted silences output without changing the volume.
func (p *Player) SetMuted(muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = muted
	p.applyVolumeLocked()
	return nil
}

func (p *Player) effectiveVolume() float64 {
	if p.muted {
		return 0
	}
	return p.volume
}

func (p *Player) applyVolumeLocked() {
	if p.player != nil {
		p.player.SetVolume(p.effectiveVolume())
	}
}

// Err returns the last error from opening or playing the source.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastError != nil {
		return p.lastError
	}
	if p.player != nil {
		return p.player.Err()
	}
	return nil
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	return PlayerState(p.state.Load())
}

// Close stops playback and releases the current track.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked()
	p.gen++
	p.state.Store(int32(StateClosed))
	return nil
}

func (p *Player) releaseLocked() {
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			log.Debug("error closing oto player", "error", err)
		}
		p.player = nil
	}
	p.stream = nil
	p.data = nil
}
