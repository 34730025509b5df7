package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narayaneeyam/dashakam/internal/audio"
	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/content"
	"github.com/narayaneeyam/dashakam/internal/loader"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }
func (c *clock) Advance(sec float64) {
	c.t = c.t.Add(time.Duration(sec * float64(time.Second)))
}

type recordingView struct {
	displays []Display
	errs     []error
	events   []string
	active   map[int]bool
}

func (v *recordingView) ShowChapter(d Display) {
	v.displays = append(v.displays, d)
	v.active = make(map[int]bool)
}

func (v *recordingView) ShowError(n chapter.Number, err error) {
	v.errs = append(v.errs, err)
}

func (v *recordingView) SetActive(index int, active bool) {
	if active {
		v.events = append(v.events, fmt.Sprintf("on:%d", index))
		v.active[index] = true
	} else {
		v.events = append(v.events, fmt.Sprintf("off:%d", index))
		delete(v.active, index)
	}
}

func (v *recordingView) last() Display {
	return v.displays[len(v.displays)-1]
}

type fakeFetcher struct {
	mu    sync.Mutex
	err   error
	empty map[chapter.Number]bool
	loads []chapter.Number
}

func (f *fakeFetcher) Load(ctx context.Context, n chapter.Number) (*loader.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads = append(f.loads, n)
	if f.err != nil {
		return nil, f.err
	}
	ch := &loader.Chapter{
		Number:         n,
		AudioPath:      f.AudioPath(n),
		Canonical:      []content.Fragment{},
		Transliterated: []content.Fragment{},
	}
	if !f.empty[n] {
		ch.Canonical = fixture(n, "पद")
		ch.Transliterated = fixture(n, "pada")
	}
	return ch, nil
}

func (f *fakeFetcher) AudioPath(n chapter.Number) string {
	return "audio/" + n.AudioFile()
}

// fixture builds a chapter with cues [0,4) [4,9.5) [10,15).
func fixture(n chapter.Number, word string) []content.Fragment {
	frags := []content.Fragment{{Tag: "h2", Text: n.Title()}}
	times := [][2]string{{"00:00.000", "00:04.000"}, {"4", "9.5"}, {"0:10", "15s"}}
	for i, tm := range times {
		frags = append(frags, content.Fragment{
			Tag:      "p",
			ID:       fmt.Sprintf("cue_%d_%d", n, i),
			Start:    tm[0],
			End:      tm[1],
			HasStart: true,
			HasEnd:   true,
			Text:     fmt.Sprintf("%s %d", word, i),
		})
	}
	return frags
}

type harness struct {
	c       *Controller
	audio   *audio.MockPlayer
	clock   *clock
	view    *recordingView
	fetcher *fakeFetcher
}

func newHarness(t *testing.T, length float64, mutate ...func(*Options)) *harness {
	t.Helper()

	clk := &clock{t: time.Unix(1000, 0)}
	mp := audio.NewMockPlayer(
		audio.WithClock(clk.Now),
		audio.WithDurations(func(string) float64 { return length }),
	)
	view := &recordingView{active: map[int]bool{}}
	fetcher := &fakeFetcher{empty: map[chapter.Number]bool{}}

	opts := DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	c, err := NewController(mp, view, fetcher, opts)
	require.NoError(t, err)

	return &harness{c: c, audio: mp, clock: clk, view: view, fetcher: fetcher}
}

func (h *harness) load(t *testing.T, n chapter.Number) {
	t.Helper()
	require.NoError(t, h.c.LoadChapter(context.Background(), n))
}

func (h *harness) play(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.TogglePlay())
	require.True(t, h.c.State().Playing)
}

func TestFindCue(t *testing.T) {
	cues := content.Cues(fixture(1, "x"))
	require.Len(t, cues, 3)

	tests := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{3.999, 0},
		{4, 1},
		{9.49, 1},
		{9.5, -1},
		{9.99, -1},
		{10, 2},
		{15, -1},
		{-1, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FindCue(cues, tt.t), "t=%v", tt.t)
	}

	// Overlapping cues: the first match wins.
	overlap := []content.Cue{{Start: 0, End: 10}, {Start: 5, End: 8}}
	assert.Equal(t, 0, FindCue(overlap, 6))
	assert.Equal(t, -1, FindCue(nil, 1))
}

func TestNewControllerRequiresAudioAndFetcher(t *testing.T) {
	_, err := NewController(nil, nil, &fakeFetcher{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoAudio)

	_, err = NewController(audio.NewMockPlayer(), nil, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestLoadChapterShowsCanonicalText(t *testing.T) {
	h := newHarness(t, 20)
	assert.Equal(t, StateIdle, h.c.State().Status)

	h.load(t, 7)

	assert.Equal(t, []string{"audio/Narayaneeyam_D007.mp3"}, h.audio.Sources)
	require.Len(t, h.view.displays, 1)
	d := h.view.last()
	assert.Equal(t, chapter.Number(7), d.Chapter)
	assert.False(t, d.Transliterated)
	assert.Equal(t, LabelShowTransliteration, d.ToggleLabel)
	assert.Len(t, d.Fragments, 4)
	assert.Len(t, d.Cues, 3)
	assert.Equal(t, "पद 0", d.Cues[0].Text)

	s := h.c.State()
	assert.Equal(t, StatePaused, s.Status)
	assert.Equal(t, chapter.Number(7), s.Chapter)
	assert.Equal(t, 0, s.ActiveCue, "time 0 falls in the first cue")
	assert.Equal(t, 3, s.Cues)
}

func TestToggleTransliteration(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.c.Seek(5)

	assert.True(t, h.c.ToggleTransliteration())
	d := h.view.last()
	assert.True(t, d.Transliterated)
	assert.Equal(t, LabelShowCanonical, d.ToggleLabel)
	assert.Equal(t, "pada 1", d.Cues[1].Text)
	assert.Equal(t, map[int]bool{1: true}, h.view.active, "highlight restored on the new text")

	assert.False(t, h.c.ToggleTransliteration())
	assert.Equal(t, LabelShowTransliteration, h.view.last().ToggleLabel)
}

func TestTimeUpdateTracksActiveCue(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.play(t)
	h.view.events = nil

	h.clock.Advance(1)
	assert.Nil(t, h.c.TimeUpdate())
	assert.Empty(t, h.view.events, "no change inside the same cue")

	h.clock.Advance(3.5) // 4.5
	h.c.TimeUpdate()
	assert.Equal(t, []string{"off:0", "on:1"}, h.view.events)

	h.clock.Advance(5.2) // 9.7, gap
	h.c.TimeUpdate()
	assert.Equal(t, []string{"off:0", "on:1", "off:1"}, h.view.events)
	assert.Equal(t, -1, h.c.State().ActiveCue)
	assert.Empty(t, h.view.active)

	h.clock.Advance(0.5) // 10.2
	h.c.TimeUpdate()
	cue, ok := h.c.ActiveCue()
	require.True(t, ok)
	assert.Equal(t, "cue_1_2", cue.ID)
}

func TestTimeUpdateIdleWhilePaused(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.view.events = nil

	require.NoError(t, h.audio.Seek(5))
	h.c.TimeUpdate()
	assert.Empty(t, h.view.events)
}

func TestSeekRecomputesImmediately(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)

	h.c.Seek(12)
	assert.Equal(t, 2, h.c.State().ActiveCue)
	assert.InDelta(t, 12, h.c.State().CurrentTime, 1e-9)

	h.c.Seek(-3)
	assert.Equal(t, 0, h.c.State().ActiveCue)
	assert.Equal(t, 0.0, h.audio.CurrentTime())
}

func TestRepeatSegment(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.play(t)

	h.c.Seek(4.5)
	assert.True(t, h.c.ToggleRepeatSegment())

	h.clock.Advance(5.1) // 9.6, past the end of cue 1
	h.c.TimeUpdate()
	assert.InDelta(t, 4, h.audio.CurrentTime(), 1e-9)
	assert.Equal(t, 1, h.c.State().ActiveCue)

	seeks := len(h.audio.Seeks)
	h.c.TimeUpdate()
	assert.Len(t, h.audio.Seeks, seeks, "repeated ticks do not seek again")
}

func TestRepeatSegmentBackToBackCues(t *testing.T) {
	h := newHarness(t, 20, func(o *Options) { o.RepeatSegment = true })
	h.load(t, 1)
	h.play(t)

	h.c.Seek(1)
	h.clock.Advance(3.2) // 4.2, inside cue 1 which directly follows cue 0
	h.c.TimeUpdate()

	assert.InDelta(t, 0, h.audio.CurrentTime(), 1e-9)
	assert.Equal(t, 0, h.c.State().ActiveCue)
}

func TestRepeatSegmentSurvivesGap(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.play(t)
	h.c.Seek(5)

	// Cue 1 ends at 9.5; the tick at 9.7 finds no cue.
	h.clock.Advance(4.7)
	h.c.TimeUpdate()
	assert.Equal(t, -1, h.c.State().ActiveCue)

	h.c.ToggleRepeatSegment()
	h.clock.Advance(0.1)
	h.c.TimeUpdate()
	assert.InDelta(t, 4, h.audio.CurrentTime(), 1e-9)
	assert.Equal(t, 1, h.c.State().ActiveCue)
}

func TestRepeatSegmentResetOnChapterLoad(t *testing.T) {
	h := newHarness(t, 20, func(o *Options) { o.RepeatSegment = true })
	h.load(t, 1)
	h.play(t)
	h.c.Seek(5)

	// The new chapter starts inside its first cue, which becomes the segment
	// instead of the previous chapter's second cue.
	h.load(t, 2)
	require.NoError(t, h.audio.Seek(5))
	h.c.TimeUpdate()
	assert.InDelta(t, 0, h.audio.CurrentTime(), 1e-9)
	assert.Equal(t, 0, h.c.State().ActiveCue)
}

func TestEndedAutoAdvance(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.play(t)
	h.c.Seek(19)
	h.clock.Advance(2)

	req := h.c.TimeUpdate()
	require.NotNil(t, req)
	assert.Equal(t, chapter.Number(2), req.Chapter)
	assert.True(t, h.c.State().Playing)
	assert.Equal(t, "audio/Narayaneeyam_D002.mp3", h.audio.Source())

	plays := h.audio.Plays
	assert.True(t, h.c.Apply(h.c.Fetch(context.Background(), *req)))
	assert.Equal(t, plays+1, h.audio.Plays)
	assert.True(t, h.audio.Playing())
	assert.Equal(t, chapter.Number(2), h.view.last().Chapter)
}

func TestEndedRepeatChapter(t *testing.T) {
	h := newHarness(t, 20, func(o *Options) { o.RepeatChapter = true })
	h.load(t, 1)
	h.play(t)
	h.c.Seek(19)
	h.clock.Advance(2)

	assert.Nil(t, h.c.TimeUpdate())
	assert.InDelta(t, 0, h.audio.CurrentTime(), 1e-9)
	assert.True(t, h.audio.Playing())
	assert.Equal(t, 0, h.c.State().ActiveCue)
}

func TestEndedStopsOnLastChapter(t *testing.T) {
	h := newHarness(t, 12)
	h.load(t, 100)
	h.play(t)
	h.c.Seek(11)
	assert.Equal(t, 2, h.c.State().ActiveCue)

	h.clock.Advance(2)
	assert.Nil(t, h.c.TimeUpdate())

	s := h.c.State()
	assert.False(t, s.Playing)
	assert.Equal(t, -1, s.ActiveCue)
	assert.False(t, h.audio.Playing())
	assert.Empty(t, h.view.active)
}

func TestEndedWithoutAutoAdvance(t *testing.T) {
	h := newHarness(t, 12, func(o *Options) { o.AutoAdvance = false })
	h.load(t, 5)
	h.play(t)

	assert.Nil(t, h.c.Ended())
	assert.False(t, h.c.State().Playing)
	assert.Equal(t, []string{"audio/Narayaneeyam_D005.mp3"}, h.audio.Sources)
}

func TestStaleLoadDiscarded(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()

	first := h.c.SelectChapter(1)
	second := h.c.SelectChapter(2)
	assert.Greater(t, second.Generation, first.Generation)
	assert.Equal(t, StateLoading, h.c.State().Status)

	assert.False(t, h.c.Apply(h.c.Fetch(ctx, first)))
	assert.Empty(t, h.view.displays)

	assert.True(t, h.c.Apply(h.c.Fetch(ctx, second)))
	require.Len(t, h.view.displays, 1)
	assert.Equal(t, chapter.Number(2), h.view.last().Chapter)
	assert.Equal(t, chapter.Number(2), h.c.State().Chapter)
}

func TestLoadErrorKeepsAudioSource(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.play(t)

	boom := errors.New("boom")
	h.fetcher.err = boom
	plays := h.audio.Plays

	err := h.c.LoadChapter(context.Background(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, chapter.Number(2), le.Chapter)

	assert.Equal(t, "audio/Narayaneeyam_D002.mp3", h.audio.Source())
	require.Len(t, h.view.errs, 1)
	assert.Contains(t, h.view.errs[0].Error(), "Dashakam 2")
	assert.Equal(t, plays+1, h.audio.Plays, "playback continues on the new source")

	s := h.c.State()
	assert.Equal(t, StateError, s.Status)
	assert.Nil(t, h.c.Chapter())
	assert.Zero(t, s.Cues)
}

func TestMissingChapterShowsEmptyText(t *testing.T) {
	h := newHarness(t, 20)
	h.fetcher.empty[3] = true

	h.load(t, 3)
	d := h.view.last()
	assert.Empty(t, d.Fragments)
	assert.Empty(t, d.Cues)
	assert.Empty(t, h.view.errs)
	assert.Equal(t, StatePaused, h.c.State().Status)
}

func TestVerseStepping(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)

	h.c.Seek(5)
	h.c.NextVerse()
	assert.Equal(t, 10.0, h.audio.CurrentTime())
	assert.Equal(t, 2, h.c.State().ActiveCue)

	h.c.NextVerse()
	assert.Equal(t, 0.0, h.audio.CurrentTime(), "past the last verse wraps to the start")

	h.c.PrevVerse()
	assert.Equal(t, 0.0, h.audio.CurrentTime())

	h.c.Seek(12)
	h.c.PrevVerse()
	assert.Equal(t, 4.0, h.audio.CurrentTime())
}

func TestVerseSteppingWithoutActiveCue(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)

	h.c.Seek(9.7)
	h.c.NextVerse()
	assert.Equal(t, 10.0, h.audio.CurrentTime())

	h.c.Seek(9.7)
	h.c.PrevVerse()
	assert.Equal(t, 4.0, h.audio.CurrentTime())

	h.c.Seek(16)
	h.c.NextVerse()
	assert.Equal(t, 0.0, h.audio.CurrentTime())

	h.fetcher.empty[4] = true
	h.load(t, 4)
	h.c.Seek(3)
	h.c.PrevVerse()
	assert.Equal(t, 0.0, h.audio.CurrentTime())
}

func TestChapterStepping(t *testing.T) {
	h := newHarness(t, 20)

	h.load(t, 100)
	assert.Nil(t, h.c.NextChapter())
	req := h.c.PrevChapter()
	require.NotNil(t, req)
	assert.Equal(t, chapter.Number(99), req.Chapter)

	h.load(t, 1)
	assert.Nil(t, h.c.PrevChapter())
	req = h.c.NextChapter()
	require.NotNil(t, req)
	assert.Equal(t, chapter.Number(2), req.Chapter)
	assert.Equal(t, "audio/Narayaneeyam_D002.mp3", h.audio.Source())
}

func TestSelectChapterClamps(t *testing.T) {
	h := newHarness(t, 20)
	assert.Equal(t, chapter.Number(100), h.c.SelectChapter(250).Chapter)
	assert.Equal(t, chapter.Number(1), h.c.SelectChapter(-4).Chapter)
}

func TestRewindForward(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)

	h.c.Seek(2)
	h.c.Rewind()
	assert.Equal(t, 0.0, h.audio.CurrentTime())

	h.c.Forward()
	assert.Equal(t, 5.0, h.audio.CurrentTime())
	assert.Equal(t, 1, h.c.State().ActiveCue)

	h.c.Seek(18)
	h.c.Forward()
	assert.Equal(t, 20.0, h.audio.CurrentTime())
}

func TestTogglePlay(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)

	h.audio.FailPlay(errors.New("no device"))
	assert.Error(t, h.c.TogglePlay())
	assert.False(t, h.c.State().Playing)

	h.audio.FailPlay(nil)
	require.NoError(t, h.c.TogglePlay())
	assert.Equal(t, StatePlaying, h.c.State().Status)

	require.NoError(t, h.c.TogglePlay())
	assert.Equal(t, StatePaused, h.c.State().Status)
	assert.False(t, h.audio.Playing())
}

func TestSpeedVolumeMute(t *testing.T) {
	h := newHarness(t, 20, func(o *Options) {
		o.Speed = 1.25
		o.Volume = 0.8
	})
	assert.Equal(t, 1.25, h.audio.Speed())

	require.NoError(t, h.c.SetSpeed(1.5))
	assert.Equal(t, 1.5, h.audio.Speed())
	assert.Error(t, h.c.SetSpeed(3))
	assert.Equal(t, 1.5, h.c.State().Speed)

	require.NoError(t, h.c.SetVolume(0.3))
	muted, err := h.c.ToggleMute()
	require.NoError(t, err)
	assert.True(t, muted)

	v, m := h.audio.Volume()
	assert.Equal(t, 0.3, v)
	assert.True(t, m)

	s := h.c.State()
	assert.Equal(t, 0.3, s.Volume)
	assert.True(t, s.Muted)
}

func TestReloadKeepsAudio(t *testing.T) {
	h := newHarness(t, 20)
	require.NoError(t, h.c.Reload(context.Background()))
	assert.Empty(t, h.fetcher.loads)

	h.load(t, 1)
	h.c.Seek(5)
	require.NoError(t, h.c.Reload(context.Background()))

	assert.Len(t, h.audio.Sources, 1)
	assert.Len(t, h.view.displays, 2)
	assert.Equal(t, 1, h.c.State().ActiveCue)
}

func TestReloadClearsLoadError(t *testing.T) {
	h := newHarness(t, 20)
	h.fetcher.err = errors.New("boom")
	require.Error(t, h.c.LoadChapter(context.Background(), 3))
	require.Equal(t, StateError, h.c.State().Status)

	h.fetcher.err = nil
	require.NoError(t, h.c.Reload(context.Background()))

	s := h.c.State()
	assert.Equal(t, StatePaused, s.Status)
	assert.NoError(t, s.LastError)
	assert.Equal(t, 3, s.Cues)
	require.NotNil(t, h.c.Chapter())
}

func TestFailedReloadDropsChapter(t *testing.T) {
	h := newHarness(t, 20)
	h.load(t, 1)
	h.c.Seek(1)
	require.Equal(t, 0, h.c.State().ActiveCue)
	displays := len(h.view.displays)

	h.fetcher.err = errors.New("boom")
	require.Error(t, h.c.Reload(context.Background()))

	s := h.c.State()
	assert.Equal(t, StateError, s.Status)
	assert.Zero(t, s.Cues)
	assert.Equal(t, -1, s.ActiveCue)
	assert.Nil(t, h.c.Chapter())
	assert.Empty(t, h.view.active)
	require.Len(t, h.view.errs, 1)

	// ticks and toggles leave the error in place
	h.play(t)
	h.clock.Advance(5)
	assert.Nil(t, h.c.TimeUpdate())
	h.c.ToggleTransliteration()
	assert.Len(t, h.view.displays, displays)
	assert.Equal(t, -1, h.c.State().ActiveCue)
}
