package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/content"
	"github.com/narayaneeyam/dashakam/internal/loader"
)

// DefaultSeekStep is the rewind and forward step in seconds.
const DefaultSeekStep = 5.0

// Options configures a Controller.
type Options struct {
	// AutoAdvance loads the next chapter when a track ends.
	AutoAdvance bool
	SeekStep    float64

	RepeatChapter  bool
	RepeatSegment  bool
	Transliterated bool

	Speed  float64
	Volume float64
	Muted  bool

	Logger *log.Logger
}

// DefaultOptions returns the default controller options.
func DefaultOptions() Options {
	return Options{
		AutoAdvance: true,
		SeekStep:    DefaultSeekStep,
		Speed:       1.0,
		Volume:      1.0,
	}
}

// Request identifies one chapter selection.
type Request struct {
	Chapter    chapter.Number
	Generation uint64
}

// Result is the outcome of fetching a Request.
type Result struct {
	Request
	Chapter *loader.Chapter
	Err     error
}

// Controller owns the playback state of the current chapter.
type Controller struct {
	mu sync.Mutex

	audio   Audio
	view    View
	fetcher Fetcher
	logger  *log.Logger

	autoAdvance bool
	seekStep    float64

	state   State
	gen     uint64
	chapter *loader.Chapter
	cues    []content.Cue
	active  int
	segment int // cue repeated by segment repeat, -1 when none
}

// NewController creates a controller. No chapter is loaded.
func NewController(audio Audio, view View, fetcher Fetcher, opts Options) (*Controller, error) {
	if audio == nil {
		return nil, ErrNoAudio
	}
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	if view == nil {
		view = NopView{}
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = DefaultSeekStep
	}
	if opts.Speed == 0 {
		opts.Speed = 1.0
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		audio:       audio,
		view:        view,
		fetcher:     fetcher,
		logger:      logger,
		autoAdvance: opts.AutoAdvance,
		seekStep:    opts.SeekStep,
		active:      -1,
		segment:     -1,
		state: State{
			ActiveCue:      -1,
			RepeatChapter:  opts.RepeatChapter,
			RepeatSegment:  opts.RepeatSegment,
			Transliterated: opts.Transliterated,
			Speed:          opts.Speed,
			Volume:         opts.Volume,
			Muted:          opts.Muted,
		},
	}

	if err := audio.SetSpeed(opts.Speed); err != nil {
		return nil, err
	}
	if err := audio.SetVolume(opts.Volume); err != nil {
		return nil, err
	}
	if err := audio.SetMuted(opts.Muted); err != nil {
		return nil, err
	}
	return c, nil
}

// SelectChapter switches the audio source to chapter n and starts a new
// load generation. The returned request must be fetched and applied.
func (c *Controller) SelectChapter(n chapter.Number) Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(n)
}

func (c *Controller) selectLocked(n chapter.Number) Request {
	n = chapter.Clamp(int(n))

	c.gen++
	c.state.Chapter = n
	c.state.Loading = true
	c.state.LastError = nil
	c.chapter = nil
	c.cues = nil
	c.active = -1
	c.segment = -1

	path := c.fetcher.AudioPath(n)
	if err := c.audio.SetSource(path); err != nil {
		c.logger.Error("error setting audio source", "source", path, "error", err)
	}
	c.logger.Info("chapter selected", "chapter", n, "generation", c.gen, "audio", path)

	return Request{Chapter: n, Generation: c.gen}
}

// Fetch loads the requested chapter. It touches no controller state and may
// run on any goroutine.
func (c *Controller) Fetch(ctx context.Context, req Request) Result {
	ch, err := c.fetcher.Load(ctx, req.Chapter)
	return Result{Request: req, Chapter: ch, Err: err}
}

// Apply installs a fetched chapter. Results from superseded selections are
// discarded and Apply reports false.
func (c *Controller) Apply(res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Generation != c.gen {
		c.logger.Debug("discarding stale chapter load", "chapter", res.Request.Chapter, "generation", res.Generation, "current", c.gen)
		return false
	}

	c.state.Loading = false
	if res.Err != nil {
		err := &LoadError{Chapter: res.Request.Chapter, Err: res.Err}
		c.state.LastError = err
		c.logger.Error("error loading chapter", "chapter", res.Request.Chapter, "error", res.Err)

		// a failed reload drops the chapter shown before it
		c.setActiveLocked(-1)
		c.chapter = nil
		c.cues = nil
		c.segment = -1
		c.view.ShowError(res.Request.Chapter, err)
	} else {
		c.state.LastError = nil
		c.chapter = res.Chapter
		c.updateDisplayLocked()
	}

	if c.state.Playing {
		if err := c.audio.Play(); err != nil {
			c.logger.Error("error resuming playback", "error", err)
		}
	}
	return true
}

// LoadChapter selects, fetches and applies chapter n in one call.
func (c *Controller) LoadChapter(ctx context.Context, n chapter.Number) error {
	res := c.Fetch(ctx, c.SelectChapter(n))
	if !c.Apply(res) {
		return ErrStaleResult
	}
	if res.Err != nil {
		return &LoadError{Chapter: res.Request.Chapter, Err: res.Err}
	}
	return nil
}

// Current returns the request for the selected chapter without starting a
// new generation. Its Chapter is zero before the first selection.
func (c *Controller) Current() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Request{Chapter: c.state.Chapter, Generation: c.gen}
}

// Reload fetches the current chapter again without touching the audio.
func (c *Controller) Reload(ctx context.Context) error {
	req := c.Current()
	if req.Chapter == 0 {
		return nil
	}
	res := c.Fetch(ctx, req)
	if !c.Apply(res) {
		return ErrStaleResult
	}
	return res.Err
}

// UpdateDisplay shows the fragment list selected by the transliteration
// flag and re-derives the cues from it.
func (c *Controller) UpdateDisplay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateDisplayLocked()
}

func (c *Controller) updateDisplayLocked() {
	if c.chapter == nil {
		return
	}

	frags := c.chapter.Canonical
	label := LabelShowTransliteration
	if c.state.Transliterated {
		frags = c.chapter.Transliterated
		label = LabelShowCanonical
	}

	c.cues = content.Cues(frags)
	c.active = -1
	c.view.ShowChapter(Display{
		Chapter:        c.chapter.Number,
		Fragments:      frags,
		Cues:           c.cues,
		Transliterated: c.state.Transliterated,
		ToggleLabel:    label,
	})
	c.recomputeLocked(false)
}

// TimeUpdate is the periodic tick. It handles the end of the track and,
// while playing, recomputes the active cue. A non-nil request means the next chapter was
// selected and must be fetched.
func (c *Controller) TimeUpdate() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.audio.Ended() {
		return c.endedLocked()
	}
	if c.state.Playing {
		c.recomputeLocked(false)
	}
	return nil
}

// Seek moves playback to t seconds and recomputes immediately.
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seekLocked(t)
}

func (c *Controller) seekLocked(t float64) {
	if t < 0 {
		t = 0
	}
	if d := c.audio.Duration(); d > 0 && t > d {
		t = d
	}
	if err := c.audio.Seek(t); err != nil {
		c.logger.Error("error seeking", "time", t, "error", err)
	}
	c.recomputeLocked(true)
}

// Ended handles the end of the track.
func (c *Controller) Ended() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endedLocked()
}

func (c *Controller) endedLocked() *Request {
	if c.state.RepeatChapter {
		if err := c.audio.Seek(0); err != nil {
			c.logger.Error("error rewinding chapter", "error", err)
		}
		if err := c.audio.Play(); err != nil {
			c.logger.Error("error repeating chapter", "error", err)
		}
		c.state.Playing = true
		c.recomputeLocked(true)
		return nil
	}

	if c.autoAdvance {
		if next, ok := c.state.Chapter.Next(); ok {
			c.logger.Info("advancing to next chapter", "chapter", next)
			req := c.selectLocked(next)
			return &req
		}
	}

	if err := c.audio.Pause(); err != nil {
		c.logger.Error("error stopping playback", "error", err)
	}
	c.state.Playing = false
	c.setActiveLocked(-1)
	return nil
}

// TogglePlay plays or pauses.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Playing {
		c.state.Playing = false
		if err := c.audio.Pause(); err != nil {
			return err
		}
	} else {
		if err := c.audio.Play(); err != nil {
			c.logger.Error("error starting playback", "error", err)
			return err
		}
		c.state.Playing = true
	}
	c.recomputeLocked(false)
	return nil
}

// Rewind steps back by the seek step.
func (c *Controller) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seekLocked(c.audio.CurrentTime() - c.seekStep)
}

// Forward steps ahead by the seek step.
func (c *Controller) Forward() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seekLocked(c.audio.CurrentTime() + c.seekStep)
}

// NextVerse seeks to the start of the verse after the current one, or to
// the beginning of the track after the last verse.
func (c *Controller) NextVerse() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepVerseLocked(1)
}

// PrevVerse seeks to the start of the verse before the current one, or to
// the beginning of the track from the first verse.
func (c *Controller) PrevVerse() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepVerseLocked(-1)
}

func (c *Controller) stepVerseLocked(dir int) {
	target := 0.0

	if c.active >= 0 {
		if j := c.active + dir; j >= 0 && j < len(c.cues) {
			target = c.cues[j].Start
		}
	} else {
		t := c.audio.CurrentTime()
		if dir > 0 {
			for _, cue := range c.cues {
				if cue.Start > t {
					target = cue.Start
					break
				}
			}
		} else {
			for i := len(c.cues) - 1; i >= 0; i-- {
				if c.cues[i].Start < t {
					target = c.cues[i].Start
					break
				}
			}
		}
	}

	c.seekLocked(target)
}

// NextChapter selects the following chapter. It returns nil on the last one.
func (c *Controller) NextChapter() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := c.state.Chapter.Next()
	if !ok {
		return nil
	}
	req := c.selectLocked(next)
	return &req
}

// PrevChapter selects the preceding chapter. It returns nil on the first one.
func (c *Controller) PrevChapter() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.state.Chapter.Prev()
	if !ok {
		return nil
	}
	req := c.selectLocked(prev)
	return &req
}

// ToggleRepeatChapter loops the whole chapter instead of advancing.
func (c *Controller) ToggleRepeatChapter() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.RepeatChapter = !c.state.RepeatChapter
	return c.state.RepeatChapter
}

// ToggleRepeatSegment loops the current verse.
func (c *Controller) ToggleRepeatSegment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.RepeatSegment = !c.state.RepeatSegment
	if c.state.RepeatSegment && c.active >= 0 {
		c.segment = c.active
	}
	return c.state.RepeatSegment
}

// ToggleTransliteration switches between the canonical and transliterated
// text.
func (c *Controller) ToggleTransliteration() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Transliterated = !c.state.Transliterated
	c.updateDisplayLocked()
	return c.state.Transliterated
}

// SetSpeed changes the playback rate.
func (c *Controller) SetSpeed(speed float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.audio.SetSpeed(speed); err != nil {
		return err
	}
	c.state.Speed = speed
	return nil
}

// SetVolume sets the volume in [0, 1].
func (c *Controller) SetVolume(volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.audio.SetVolume(volume); err != nil {
		return err
	}
	c.state.Volume = volume
	return nil
}

// ToggleMute mutes or unmutes, reporting the new setting.
func (c *Controller) ToggleMute() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	muted := !c.state.Muted
	if err := c.audio.SetMuted(muted); err != nil {
		return c.state.Muted, err
	}
	c.state.Muted = muted
	return muted, nil
}

// ActiveCue returns the highlighted cue.
func (c *Controller) ActiveCue() (content.Cue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active < 0 || c.active >= len(c.cues) {
		return content.Cue{}, false
	}
	return c.cues[c.active], true
}

// Chapter returns the loaded chapter content, nil while loading or after an
// error.
func (c *Controller) Chapter() *loader.Chapter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chapter
}

// State returns a snapshot of the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.ActiveCue = c.active
	s.Cues = len(c.cues)
	s.Duration = c.audio.Duration()

	switch {
	case s.Loading:
		s.Status = StateLoading
	case s.LastError != nil:
		s.Status = StateError
	case s.Playing:
		s.Status = StatePlaying
	case c.chapter == nil:
		s.Status = StateIdle
	default:
		s.Status = StatePaused
	}
	return s
}
