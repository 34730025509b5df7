// Package compile builds the canonical and transliterated chapter documents
// from a directory of per-chapter WebVTT files.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/muesli/gitcha"
	"github.com/yuin/goldmark"
	"golang.org/x/sync/errgroup"

	"github.com/narayaneeyam/dashakam/internal/loader"
	"github.com/narayaneeyam/dashakam/internal/translit"
	"github.com/narayaneeyam/dashakam/internal/vtt"
)

// ErrNoCaptions is returned when the directory holds no .vtt files.
var ErrNoCaptions = errors.New("no .vtt files found")

// verseEnd matches captions closing a verse with a danda marker.
var verseEnd = regexp.MustCompile(`[\x{0900}-\x{097F}\s]*(\s*॥\s*[\x{0966}-\x{096F}]+\s*॥|\s*॥|\s*।)\s*$`)

// Variant selects which document to render.
type Variant int

const (
	Canonical Variant = iota
	Transliterated
)

func (v Variant) String() string {
	if v == Transliterated {
		return "transliteration"
	}
	return "text"
}

// Document returns the variant's document name.
func (v Variant) Document() string {
	if v == Transliterated {
		return loader.TransliterationDocument
	}
	return loader.TextDocument
}

func (v Variant) heading() string {
	if v == Transliterated {
		return "Narayaneeyam Transliteration Compilation"
	}
	return "Narayaneeyam Text Compilation"
}

// Chapter is one caption file.
type Chapter struct {
	File     string // base name
	ID       string // section id
	Title    string // data-chapter value
	Captions []vtt.Cue
	Err      error // set when the file could not be parsed
}

// Options controls rendering and output.
type Options struct {
	// Intro is markdown rendered into the page header.
	Intro []byte
	// Source names the caption collection in the footer.
	Source      string
	GeneratedAt time.Time
	// Compress is "", "gz" or "zst".
	Compress string
}

// Summary describes a generator run.
type Summary struct {
	Chapters int
	Cues     int
	Failed   []string
	Written  map[string]int64 // output path -> bytes
}

// IsVerseEnd reports whether a caption ends with a verse marker.
func IsVerseEnd(text string) bool {
	return text != "" && verseEnd.MatchString(text)
}

// ChapterID derives the section id from a file's base name without
// extension.
func ChapterID(root string) string {
	return strings.ToLower(strings.ReplaceAll(root, " ", "-"))
}

// ChapterTitle derives the heading title from a file's base name without
// extension.
func ChapterTitle(root string) string {
	return strings.ReplaceAll(root, "_", " ")
}

// Discover returns the .vtt files under dir sorted by file name.
func Discover(dir string) ([]string, error) {
	ch, err := gitcha.FindAllFilesExcept(dir, []string{"*.vtt"}, nil)
	if err != nil {
		return nil, err
	}

	var paths []string
	for res := range ch {
		paths = append(paths, res.Path)
	}
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})
	return paths, nil
}

// Load reads the caption files concurrently. Malformed files are kept with
// their error.
func Load(ctx context.Context, paths []string) ([]Chapter, error) {
	chapters := make([]Chapter, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			base := filepath.Base(path)
			root := strings.TrimSuffix(base, filepath.Ext(base))
			ch := Chapter{File: base, ID: ChapterID(root), Title: ChapterTitle(root)}

			f, err := vtt.ReadFile(path)
			var me *vtt.MalformedError
			switch {
			case errors.As(err, &me):
				log.Warn("error parsing captions", "file", base, "error", err)
				ch.Err = err
			case err != nil:
				return fmt.Errorf("read %s: %w", base, err)
			default:
				ch.Captions = f.Cues
			}
			chapters[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chapters, nil
}

// Render writes one document for the chapters.
func Render(w io.Writer, chapters []Chapter, v Variant, opts Options) error {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", v.heading())
	if v == Canonical {
		b.WriteString(stylesheet)
	}
	b.WriteString("</head>\n<body>\n<header>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", v.heading())
	if len(opts.Intro) > 0 {
		var intro bytes.Buffer
		if err := goldmark.Convert(opts.Intro, &intro); err != nil {
			return fmt.Errorf("render intro: %w", err)
		}
		b.WriteString("<div class=\"intro\">\n")
		b.Write(intro.Bytes())
		b.WriteString("</div>\n")
	}
	b.WriteString("</header>\n<main>\n")

	for _, ch := range chapters {
		writeChapter(&b, ch, v)
	}

	b.WriteString("</main>\n")
	if v == Canonical && opts.Source != "" {
		generated := opts.GeneratedAt
		if generated.IsZero() {
			generated = time.Now()
		}
		fmt.Fprintf(&b, "<footer>\n<p>&copy; %s | Generated on %s</p>\n</footer>\n",
			html.EscapeString(opts.Source), generated.UTC().Format(time.RFC1123))
	}
	b.WriteString("</body>\n</html>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeChapter(b *strings.Builder, ch Chapter, v Variant) {
	if ch.Err != nil {
		b.WriteString("<section>\n")
		fmt.Fprintf(b, "<h2>Error processing %s</h2>\n", html.EscapeString(ch.File))
		fmt.Fprintf(b, "<p>There was an error reading this VTT file: %s</p>\n", html.EscapeString(ch.Err.Error()))
		b.WriteString("</section>\n")
		return
	}

	title := html.EscapeString(ch.Title)
	fmt.Fprintf(b, "<section id=\"%s\">\n", html.EscapeString(ch.ID))
	fmt.Fprintf(b, "<h2 data-chapter=\"%s\">%s</h2>\n", title, title)

	for i, c := range ch.Captions {
		raw := strings.TrimSpace(c.Text)
		text := raw
		if v == Transliterated {
			text = translit.IAST(raw)
		}
		body := strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
		if v == Canonical && IsVerseEnd(raw) {
			body = "<span class='cue-text'>" + body + "</span>"
		}

		fmt.Fprintf(b, "<p id=\"cue_%s_%d\" data-start=\"%s\" data-end=\"%s\">%s</p>\n",
			html.EscapeString(ch.ID), i, vtt.FormatTimestamp(c.Start), vtt.FormatTimestamp(c.End), body)
	}

	b.WriteString("</section>\n")
}

const stylesheet = `<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; margin: 20px; }
h1 { color: #2e8b57; }
h2 { margin-top: 40px; color: #2e8b57; border-bottom: 2px solid #ccc; padding-bottom: 5px; }
p { margin: 10px 0; }
.cue-text { font-size: 1.25em; color: #004d40; }
</style>
`

// Generate builds both documents from the captions in dir and writes them
// to outDir.
func Generate(ctx context.Context, dir, outDir string, opts Options) (Summary, error) {
	sum := Summary{Written: make(map[string]int64)}

	paths, err := Discover(dir)
	if err != nil {
		return sum, fmt.Errorf("find captions: %w", err)
	}
	if len(paths) == 0 {
		return sum, fmt.Errorf("%s: %w", dir, ErrNoCaptions)
	}

	chapters, err := Load(ctx, paths)
	if err != nil {
		return sum, err
	}
	for _, ch := range chapters {
		if ch.Err != nil {
			sum.Failed = append(sum.Failed, ch.File)
			continue
		}
		sum.Chapters++
		sum.Cues += len(ch.Captions)
	}

	if opts.Source == "" {
		opts.Source = filepath.Base(filepath.Clean(dir))
	}
	if opts.GeneratedAt.IsZero() {
		if info, err := os.Stat(dir); err == nil {
			opts.GeneratedAt = info.ModTime()
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return sum, err
	}
	for _, v := range []Variant{Canonical, Transliterated} {
		var buf bytes.Buffer
		if err := Render(&buf, chapters, v, opts); err != nil {
			return sum, err
		}

		path, n, err := write(outDir, v.Document(), buf.Bytes(), opts.Compress)
		if err != nil {
			return sum, err
		}
		sum.Written[path] = n
		log.Info("document written", "variant", v, "path", path, "size", humanize.Bytes(uint64(n)))
	}
	return sum, nil
}

func write(dir, name string, data []byte, compress string) (string, int64, error) {
	path := filepath.Join(dir, name)

	switch compress {
	case "":
	case "gz":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return "", 0, err
		}
		if err := w.Close(); err != nil {
			return "", 0, err
		}
		path += ".gz"
		data = buf.Bytes()
	case "zst":
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return "", 0, err
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return "", 0, err
		}
		path += ".zst"
	default:
		return "", 0, fmt.Errorf("unknown compression %q", compress)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, err
	}
	return path, int64(len(data)), nil
}
