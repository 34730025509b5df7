// Package content parses the chapter documents into plain records of
// fragments and cues, independent of how they are later rendered.
package content

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/narayaneeyam/dashakam/internal/timecode"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	chapterAttr = "data-chapter"
	startAttr   = "data-start"
	endAttr     = "data-end"
)

// Fragment is one top-level element of a chapter: the heading, or one of the
// sibling elements that follow it.
type Fragment struct {
	HTML string // serialized element
	Tag  string
	ID   string

	Start    string // raw data-start value
	End      string // raw data-end value
	HasStart bool
	HasEnd   bool

	Text string // plain text, <br> kept as newlines

	// timed paragraphs inside the element, in document order
	Nested []Fragment
}

// IsHeading reports whether the fragment is the chapter heading.
func (f Fragment) IsHeading() bool {
	return f.Tag == "h2"
}

// IsVerse reports whether the fragment is itself a timed paragraph.
func (f Fragment) IsVerse() bool {
	return f.Tag == "p" && f.HasStart
}

// Verses returns the timed paragraphs the fragment holds: the fragment itself
// when it is one, otherwise the ones nested inside it.
func (f Fragment) Verses() []Fragment {
	if f.IsVerse() {
		return []Fragment{f}
	}
	return f.Nested
}

// Cue is a fragment with a time interval in the chapter's recording.
type Cue struct {
	Index    int // position among the chapter's cues
	Fragment int // position among the chapter's fragments
	ID       string
	Start    float64
	End      float64
	Text     string
}

// Contains reports whether t falls in [Start, End).
func (c Cue) Contains(t float64) bool {
	return t >= c.Start && t < c.End
}

// Record is a chapter heading together with its fragments.
type Record struct {
	Title     string // data-chapter value as found in the document
	Fragments []Fragment
}

// Document is a parsed chapter document.
type Document struct {
	Records []Record
	Size    int // bytes parsed
}

// Parse reads an HTML document and records, for every h2 carrying a
// data-chapter attribute, the heading and each following sibling element up
// to the next h2.
func Parse(r io.Reader) (*Document, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	size := buf.Len()

	root, err := html.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	doc := &Document{Size: size}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.H2 {
			if title, ok := attr(n, chapterAttr); ok {
				rec, err := record(n, title)
				if err == nil {
					doc.Records = append(doc.Records, rec)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return doc, nil
}

func record(heading *html.Node, title string) (Record, error) {
	rec := Record{Title: title}

	f, err := fragment(heading)
	if err != nil {
		return rec, err
	}
	rec.Fragments = append(rec.Fragments, f)

	for sib := nextElement(heading); sib != nil && sib.DataAtom != atom.H2; sib = nextElement(sib) {
		f, err := fragment(sib)
		if err != nil {
			return rec, err
		}
		rec.Fragments = append(rec.Fragments, f)
	}
	return rec, nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func fragment(n *html.Node) (Fragment, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return Fragment{}, fmt.Errorf("render %s: %w", n.Data, err)
	}

	f := Fragment{
		HTML: b.String(),
		Tag:  n.Data,
		Text: text(n),
	}
	f.ID, _ = attr(n, "id")
	f.Start, f.HasStart = attr(n, startAttr)
	f.End, f.HasEnd = attr(n, endAttr)
	if f.IsVerse() {
		return f, nil
	}

	for _, p := range timedParagraphs(n) {
		v, err := fragment(p)
		if err != nil {
			return f, err
		}
		f.Nested = append(f.Nested, v)
	}
	return f, nil
}

// timedParagraphs finds the <p> elements below n that carry a start time.
func timedParagraphs(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if _, ok := attr(c, startAttr); ok && c.DataAtom == atom.P {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

var spaces = regexp.MustCompile(`[ \t\r\n]+`)

// text extracts the text of n, turning <br> into line breaks and collapsing
// other whitespace.
func text(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(spaces.ReplaceAllString(n.Data, " "))
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			buf.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	lines := strings.Split(buf.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Chapter returns the fragments under the first heading whose trimmed title
// equals the trimmed title given. It returns an empty list when no heading
// matches.
func (d *Document) Chapter(title string) []Fragment {
	want := strings.TrimSpace(title)
	for _, rec := range d.Records {
		if strings.TrimSpace(rec.Title) == want {
			out := make([]Fragment, len(rec.Fragments))
			copy(out, rec.Fragments)
			return out
		}
	}
	return []Fragment{}
}

// Cues derives the ordered cue list from the <p> elements that carry a start
// time, at any depth below the fragments. Other elements with a start time
// are not cues.
func Cues(frags []Fragment) []Cue {
	var cues []Cue
	for i, f := range frags {
		for _, v := range f.Verses() {
			cues = append(cues, Cue{
				Index:    len(cues),
				Fragment: i,
				ID:       v.ID,
				Start:    timecode.ParseAttr(v.Start, v.HasStart),
				End:      timecode.ParseAttr(v.End, v.HasEnd),
				Text:     v.Text,
			})
		}
	}
	return cues
}

// Markdown converts a fragment to markdown for terminal rendering, falling
// back to its plain text.
func Markdown(f Fragment) string {
	md, err := htmltomarkdown.ConvertString(f.HTML)
	if err != nil {
		return f.Text
	}
	return strings.TrimSpace(md)
}
