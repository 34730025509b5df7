package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedMock(length float64) (*MockPlayer, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	mp := NewMockPlayer(
		WithClock(clock.Now),
		WithDurations(func(string) float64 { return length }),
	)
	return mp, clock
}

func TestMockPlayerAdvancesWithClock(t *testing.T) {
	mp, clock := newClockedMock(60)
	require.NoError(t, mp.SetSource("a.mp3"))
	require.NoError(t, mp.Play())

	clock.Advance(1500 * time.Millisecond)
	assert.InDelta(t, 1.5, mp.CurrentTime(), 1e-9)

	require.NoError(t, mp.Pause())
	clock.Advance(10 * time.Second)
	assert.InDelta(t, 1.5, mp.CurrentTime(), 1e-9)

	require.NoError(t, mp.SetSpeed(2))
	require.NoError(t, mp.Play())
	clock.Advance(time.Second)
	assert.InDelta(t, 3.5, mp.CurrentTime(), 1e-9)
}

func TestMockPlayerSeekAndEnd(t *testing.T) {
	mp, clock := newClockedMock(10)
	require.NoError(t, mp.SetSource("a.mp3"))
	require.NoError(t, mp.Play())

	require.NoError(t, mp.Seek(9))
	assert.False(t, mp.Ended())

	clock.Advance(2 * time.Second)
	assert.InDelta(t, 10, mp.CurrentTime(), 1e-9)
	assert.True(t, mp.Ended())

	require.NoError(t, mp.Pause())
	assert.False(t, mp.Ended())

	// Playing a finished track restarts it.
	require.NoError(t, mp.Play())
	assert.InDelta(t, 0, mp.CurrentTime(), 1e-9)
	assert.Equal(t, []float64{9}, mp.Seeks)
}

func TestMockPlayerSetSourceResets(t *testing.T) {
	mp, clock := newClockedMock(0)
	require.NoError(t, mp.SetSource("a.mp3"))
	require.NoError(t, mp.Play())
	clock.Advance(time.Hour)
	assert.False(t, mp.Ended(), "unbounded tracks never end")

	var sources []string
	mp.callbacks.OnSource = func(s string) { sources = append(sources, s) }
	require.NoError(t, mp.SetSource("b.mp3"))
	assert.False(t, mp.Playing())
	assert.Zero(t, mp.CurrentTime())
	assert.Equal(t, []string{"b.mp3"}, sources)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, mp.Sources)
}

func TestMockPlayerErrors(t *testing.T) {
	mp := NewMockPlayer()
	assert.ErrorIs(t, mp.Play(), ErrNoSource)

	require.NoError(t, mp.SetSource("a.mp3"))
	blocked := errors.New("blocked")
	mp.FailPlay(blocked)
	assert.ErrorIs(t, mp.Play(), blocked)
	mp.FailPlay(nil)
	assert.NoError(t, mp.Play())

	assert.Error(t, mp.SetSpeed(3))
	assert.Error(t, mp.SetVolume(-0.1))
	require.NoError(t, mp.SetVolume(0.4))
	require.NoError(t, mp.SetMuted(true))
	v, muted := mp.Volume()
	assert.Equal(t, 0.4, v)
	assert.True(t, muted)

	require.NoError(t, mp.Close())
	assert.Equal(t, StateClosed, mp.State())
	assert.ErrorIs(t, mp.Play(), ErrClosed)
}
