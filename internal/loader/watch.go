package loader

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// ErrNotWatchable is returned by Watch when the source cannot be watched.
var ErrNotWatchable = errors.New("source cannot be watched")

// Watcher is implemented by sources that can report document changes.
type Watcher interface {
	Watch(ctx context.Context, onChange func(name string)) error
}

// Watch reports changes to the directory's documents until ctx is done.
// onChange receives the document name with any compression suffix removed.
func (s *DirSource) Watch(ctx context.Context, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(s.Dir); err != nil {
		return err
	}
	log.Info("fsnotify watching dir", "dir", s.Dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := documentName(event.Name)
			if name == "" {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			onChange(name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", s.Dir, "error", err)
		}
	}
}

func documentName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".zst")
	switch base {
	case TextDocument, TransliterationDocument:
		return base
	}
	return ""
}

// Watch invalidates cached documents as they change and then calls onChange.
// It blocks until ctx is done.
func (l *Loader) Watch(ctx context.Context, onChange func(name string)) error {
	w, ok := l.source.(Watcher)
	if !ok {
		return ErrNotWatchable
	}
	return w.Watch(ctx, func(name string) {
		l.Invalidate(name)
		if onChange != nil {
			onChange(name)
		}
	})
}
