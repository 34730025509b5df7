package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
)

// bytesPerFrame is the size of one 16-bit little endian stereo frame, the
// format produced by the MP3 decoder and consumed by oto.
const bytesPerFrame = 4

// pcmSource is a seekable stream of 16-bit stereo PCM, such as *mp3.Decoder.
type pcmSource interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

// stream resamples a pcmSource to the output rate. Playback speed is applied
// by stepping through source frames faster or slower than real time, with
// linear interpolation between neighbouring frames.
type stream struct {
	mu sync.Mutex

	src     pcmSource
	srcRate int
	outRate int
	speed   float64

	pos   float64 // source frame position of the next output frame
	base  int64   // source frame index of buf[0]
	buf   []byte
	chunk []byte // scratch for source reads
	eof   bool
	err   error
}

func newStream(src pcmSource, outRate int, speed float64) *stream {
	return &stream{
		src:     src,
		srcRate: src.SampleRate(),
		outRate: outRate,
		speed:   speed,
		chunk:   make([]byte, 4096),
	}
}

func (s *stream) ratio() float64 {
	return s.speed * float64(s.srcRate) / float64(s.outRate)
}

func (s *stream) setSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
}

// Read fills p with whole output frames.
func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trim()

	ratio := s.ratio()
	n := 0
	for n+bytesPerFrame <= len(p) {
		i := int64(s.pos)
		if !s.ensure(i) {
			break
		}
		frac := s.pos - float64(i)

		l0, r0 := s.frame(i)
		l, r := l0, r0
		if frac > 0 && s.ensure(i+1) {
			l1, r1 := s.frame(i + 1)
			l = lerp(l0, l1, frac)
			r = lerp(r0, r1, frac)
		}

		binary.LittleEndian.PutUint16(p[n:], uint16(l))
		binary.LittleEndian.PutUint16(p[n+2:], uint16(r))
		n += bytesPerFrame
		s.pos += ratio
	}

	if n == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.eof {
			return 0, io.EOF
		}
	}
	return n, nil
}

// Seek positions the stream. Offsets are in output bytes at normal speed,
// the unit oto.Player.Seek passes through.
func (s *stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += s.outputOffset()
	default:
		return 0, errors.New("audio: unsupported whence")
	}
	if offset < 0 {
		return 0, errors.New("audio: negative position")
	}

	sec := float64(offset/bytesPerFrame) / float64(s.outRate)
	frame := int64(math.Round(sec * float64(s.srcRate)))
	if length := s.src.Length(); length > 0 && frame*bytesPerFrame > length {
		frame = length / bytesPerFrame
	}

	if _, err := s.src.Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return 0, err
	}
	s.pos = float64(frame)
	s.base = frame
	s.buf = s.buf[:0]
	s.eof = false
	s.err = nil
	return offset, nil
}

func (s *stream) outputOffset() int64 {
	sec := s.pos / float64(s.srcRate)
	return int64(math.Round(sec*float64(s.outRate))) * bytesPerFrame
}

// position returns the source position in seconds of the next frame to be
// read.
func (s *stream) position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos / float64(s.srcRate)
}

func (s *stream) duration() float64 {
	length := s.src.Length()
	if length <= 0 {
		return 0
	}
	return float64(length/bytesPerFrame) / float64(s.srcRate)
}

func (s *stream) drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof && int64(s.pos) >= s.base+int64(len(s.buf)/bytesPerFrame)
}

// ensure reads from the source until frame i is buffered. It reports false
// when the source ends first.
func (s *stream) ensure(i int64) bool {
	for i >= s.base+int64(len(s.buf)/bytesPerFrame) {
		if s.eof || s.err != nil {
			return false
		}
		n, err := s.src.Read(s.chunk)
		s.buf = append(s.buf, s.chunk[:n]...)
		if errors.Is(err, io.EOF) {
			s.eof = true
		} else if err != nil {
			s.err = err
		}
	}
	return true
}

// trim drops buffered frames behind the read position, keeping the
// buffer's capacity.
func (s *stream) trim() {
	drop := int64(s.pos) - s.base
	if drop <= 0 {
		return
	}
	if buffered := int64(len(s.buf) / bytesPerFrame); drop > buffered {
		drop = buffered
	}
	n := copy(s.buf, s.buf[drop*bytesPerFrame:])
	s.buf = s.buf[:n]
	s.base += drop
}

func (s *stream) frame(i int64) (int16, int16) {
	off := (i - s.base) * bytesPerFrame
	l := int16(binary.LittleEndian.Uint16(s.buf[off:]))
	r := int16(binary.LittleEndian.Uint16(s.buf[off+2:]))
	return l, r
}

func lerp(a, b int16, t float64) int16 {
	return int16(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
