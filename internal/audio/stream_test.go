package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcm is an in-memory pcmSource whose left and right samples both equal the
// frame index.
type pcm struct {
	*bytes.Reader
	rate int
	size int64
}

func newPCM(frames, rate int) *pcm {
	buf := make([]byte, frames*bytesPerFrame)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(buf[i*4:], uint16(int16(i)))
		binary.LittleEndian.PutUint16(buf[i*4+2:], uint16(int16(i)))
	}
	return &pcm{Reader: bytes.NewReader(buf), rate: rate, size: int64(len(buf))}
}

func (p *pcm) SampleRate() int { return p.rate }
func (p *pcm) Length() int64   { return p.size }

func samples(t *testing.T, r io.Reader) []int16 {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	out := make([]int16, 0, len(data)/bytesPerFrame)
	for i := 0; i+bytesPerFrame <= len(data); i += bytesPerFrame {
		out = append(out, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	return out
}

func TestStreamPassThrough(t *testing.T) {
	s := newStream(newPCM(1000, 44100), 44100, 1.0)
	got := samples(t, s)
	require.Len(t, got, 1000)
	assert.Equal(t, int16(0), got[0])
	assert.Equal(t, int16(999), got[999])
	assert.True(t, s.drained())
	assert.InDelta(t, 1000.0/44100, s.duration(), 1e-9)
}

func TestStreamDoubleSpeed(t *testing.T) {
	s := newStream(newPCM(1000, 44100), 44100, 2.0)
	got := samples(t, s)
	require.Len(t, got, 500)
	assert.Equal(t, int16(2), got[1])
	assert.Equal(t, int16(998), got[499])
}

func TestStreamHalfSpeedInterpolates(t *testing.T) {
	s := newStream(newPCM(100, 44100), 44100, 0.5)
	got := samples(t, s)
	require.Len(t, got, 200)
	// Frame 10.5 sits halfway between 10 and 11.
	assert.Equal(t, int16(11), got[21])
	assert.Equal(t, int16(10), got[20])
}

func TestStreamResamplesRate(t *testing.T) {
	s := newStream(newPCM(2205, 22050), 44100, 1.0)
	got := samples(t, s)
	assert.InDelta(t, 4410, len(got), 1)
}

func TestStreamSeek(t *testing.T) {
	s := newStream(newPCM(44100, 44100), 44100, 1.0)

	buf := make([]byte, 400)
	_, err := s.Read(buf)
	require.NoError(t, err)

	// Half a second in output bytes.
	off, err := s.Seek(22050*bytesPerFrame, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(22050*bytesPerFrame), off)
	assert.InDelta(t, 0.5, s.position(), 1e-9)

	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 400, n)
	assert.Equal(t, int16(22050), int16(binary.LittleEndian.Uint16(buf)))

	cur, err := s.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64((22050+100)*bytesPerFrame), cur)
}

func TestStreamSeekPastEndClamps(t *testing.T) {
	s := newStream(newPCM(100, 44100), 44100, 1.0)
	_, err := s.Seek(1000*bytesPerFrame, io.SeekStart)
	require.NoError(t, err)

	n, err := s.Read(make([]byte, 64))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, s.drained())
}

func TestStreamReadDoesNotAllocate(t *testing.T) {
	s := newStream(newPCM(1<<17, 44100), 44100, 1.25)
	buf := make([]byte, 441*bytesPerFrame) // 10ms of output

	allocs := testing.AllocsPerRun(100, func() {
		if _, err := s.Read(buf); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs)
}
