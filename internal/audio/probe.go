package audio

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/simonhull/audiometa"
)

// Info describes a track as read from its tags and headers.
type Info struct {
	Title      string
	Artist     string
	Duration   time.Duration
	SampleRate int
	Bitrate    int
}

// Probe reads a local track's metadata without decoding it.
func Probe(ctx context.Context, path string) (Info, error) {
	f, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close() //nolint:errcheck

	return Info{
		Title:      f.Tags.Title,
		Artist:     f.Tags.Artist,
		Duration:   f.Audio.Duration,
		SampleRate: f.Audio.SampleRate,
		Bitrate:    f.Audio.Bitrate,
	}, nil
}

// ProbedDurations returns a duration lookup for MockPlayer that probes local
// files once and remembers the result. Remote sources report 0.
func ProbedDurations() func(source string) float64 {
	var mu sync.Mutex
	seen := make(map[string]float64)

	return func(source string) float64 {
		if u, err := url.Parse(source); err == nil && u.Host != "" {
			return 0
		}

		mu.Lock()
		defer mu.Unlock()
		if d, ok := seen[source]; ok {
			return d
		}
		info, err := Probe(context.Background(), source)
		if err != nil {
			log.Debug("probe failed", "source", source, "error", err)
		}
		seen[source] = info.Duration.Seconds()
		return seen[source]
	}
}
