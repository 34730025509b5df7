// Package loader resolves a chapter number into its audio path and the
// chapter's fragments from the canonical and transliterated documents.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/narayaneeyam/dashakam/internal/cache"
	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/content"
)

// Document names, relative to the source base.
const (
	TextDocument            = "narayaneeyam_text.html"
	TransliterationDocument = "narayaneeyam_transliteration.html"
)

// DefaultCacheSize bounds the parsed document cache.
const DefaultCacheSize = 32 << 20

// Chapter is the result of loading one chapter.
type Chapter struct {
	Number         chapter.Number
	AudioPath      string
	Canonical      []content.Fragment
	Transliterated []content.Fragment
}

// Loader fetches, parses and caches chapter documents.
type Loader struct {
	source Source
	audio  Source
	docs   *cache.MemoryCache[*content.Document]
	disk   *cache.DiskCache // raw documents, nil when disabled
}

// Option configures a Loader.
type Option func(*Loader)

// WithAudioBase resolves audio paths against base instead of the document
// source.
func WithAudioBase(base string) Option {
	return func(l *Loader) {
		if base != "" {
			l.audio = NewSource(base)
		}
	}
}

// WithCacheSize sets the document cache capacity in bytes.
func WithCacheSize(size int64) Option {
	return func(l *Loader) {
		l.docs = cache.NewMemoryCache[*content.Document](size)
	}
}

// WithDiskCache keeps fetched documents in dc so later sessions need not
// fetch them again.
func WithDiskCache(dc *cache.DiskCache) Option {
	return func(l *Loader) {
		l.disk = dc
	}
}

// New creates a loader reading documents from source.
func New(source Source, opts ...Option) *Loader {
	l := &Loader{
		source: source,
		audio:  source,
		docs:   cache.NewMemoryCache[*content.Document](DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AudioPath returns the location of a chapter's audio track.
func (l *Loader) AudioPath(n chapter.Number) string {
	return l.audio.Location(n.AudioPath())
}

// Load fetches both documents concurrently and extracts the chapter from
// each. A chapter missing from the documents yields empty fragment lists.
func (l *Loader) Load(ctx context.Context, n chapter.Number) (*Chapter, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("load chapter %d: %w", n, chapter.ErrOutOfRange)
	}

	var text, translit *content.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		text, err = l.document(gctx, TextDocument)
		return err
	})
	g.Go(func() error {
		var err error
		translit, err = l.document(gctx, TransliterationDocument)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load chapter %d: %w", n, err)
	}

	title := n.Title()
	ch := &Chapter{
		Number:         n,
		AudioPath:      l.AudioPath(n),
		Canonical:      text.Chapter(title),
		Transliterated: translit.Chapter(title),
	}
	if len(ch.Canonical) == 0 {
		log.Warn("chapter heading not found", "chapter", title, "document", TextDocument)
	}
	if len(ch.Transliterated) == 0 {
		log.Warn("chapter heading not found", "chapter", title, "document", TransliterationDocument)
	}
	return ch, nil
}

// Invalidate drops a cached document so the next load fetches it again.
func (l *Loader) Invalidate(name string) {
	l.docs.Delete(name)
	if l.disk != nil {
		l.disk.Delete(l.source.Location(name))
	}
}

// CacheStats reports document cache usage.
func (l *Loader) CacheStats() cache.Stats {
	return l.docs.Stats()
}

func (l *Loader) document(ctx context.Context, name string) (*content.Document, error) {
	if doc, ok := l.docs.Get(name); ok {
		return doc, nil
	}

	data, err := l.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	doc, err := content.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("document parsed", "document", name, "size", humanize.Bytes(uint64(doc.Size)), "chapters", len(doc.Records))

	if err := l.docs.Put(name, doc, int64(doc.Size)); err != nil {
		if !errors.Is(err, cache.ErrItemTooLarge) {
			return nil, err
		}
		log.Debug("document not cached", "document", name, "error", err)
	}
	return doc, nil
}

func (l *Loader) fetch(ctx context.Context, name string) ([]byte, error) {
	if l.disk == nil {
		return l.source.Fetch(ctx, name)
	}

	key := l.source.Location(name)
	if data, ok := l.disk.Get(key); ok {
		log.Debug("document read from disk cache", "document", name)
		return data, nil
	}

	data, err := l.source.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := l.disk.Put(key, data); err != nil {
		log.Debug("document not cached on disk", "document", name, "error", err)
	}
	return data, nil
}
