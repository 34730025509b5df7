package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/content"
	"github.com/narayaneeyam/dashakam/internal/player"
)

const cueNumberWidth = 4

var (
	verseStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1)

	activeVerseStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Bold(true).
				PaddingLeft(1).
				PaddingRight(1)
)

// textView is the text panel the controller drives. It only records what
// to show; the pager renders it.
type textView struct {
	display player.Display
	active  int
	err     error

	// fragment index -> index of its first cue
	cueAt map[int]int

	// bumped on every change so the pager knows when to re-render
	version int

	md      *glamour.TermRenderer
	mdWidth int
	mdStyle string
}

var _ player.View = (*textView)(nil)

func newTextView() *textView {
	return &textView{active: -1}
}

func (v *textView) ShowChapter(d player.Display) {
	v.display = d
	v.err = nil
	v.active = -1
	v.cueAt = make(map[int]int, len(d.Cues))
	for i := len(d.Cues) - 1; i >= 0; i-- {
		v.cueAt[d.Cues[i].Fragment] = d.Cues[i].Index
	}
	v.version++
}

func (v *textView) ShowError(n chapter.Number, err error) {
	v.display = player.Display{Chapter: n}
	v.cueAt = nil
	v.err = err
	v.active = -1
	v.version++
}

func (v *textView) SetActive(index int, active bool) {
	switch {
	case active:
		v.active = index
	case v.active == index:
		v.active = -1
	default:
		return
	}
	v.version++
}

// render lays out the chapter for the given width. It also returns the
// line on which the active verse starts, or -1.
func (v *textView) render(cfg Config, width int) (string, int, error) {
	if v.err != nil {
		s := fmt.Sprintf("%s\n\n%s\n\n%s",
			errorTitleStyle.Render("ERROR"),
			wordwrap.String(v.err.Error(), max(width-6, 10)),
			subtleStyle.Render("press o to open another dashakam"),
		)
		return "\n" + indent(s, 3), -1, nil
	}

	var (
		b          strings.Builder
		lines      int
		activeLine = -1
	)
	write := func(s string) {
		s = strings.TrimRight(s, "\n")
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
			lines += 2
		}
		b.WriteString(s)
		lines += strings.Count(s, "\n")
	}

	for i, f := range v.display.Fragments {
		if first, ok := v.cueAt[i]; ok {
			for j, verse := range f.Verses() {
				cue := first + j
				if cue == v.active {
					// the separator is written before the verse
					activeLine = lines
					if b.Len() > 0 {
						activeLine += 2
					}
				}
				write(v.verse(cfg, width, cue, verse.Text))
			}
			continue
		}

		md := content.Markdown(f)
		if f.IsHeading() {
			md = "## " + strings.TrimSpace(f.Text)
		}
		out, err := v.markdown(cfg, width, md)
		if err != nil {
			return "", -1, err
		}
		write(out)
	}

	return b.String(), activeLine, nil
}

// verse renders one cue with its number in the gutter.
func (v *textView) verse(cfg Config, width, cue int, text string) string {
	gutter := 0
	if cfg.ShowCueNumbers {
		gutter = cueNumberWidth
	}
	w := max(width-gutter-2, 10)

	style := verseStyle
	if cue == v.active {
		style = activeVerseStyle.Width(w + 2)
	}
	block := style.Render(wordwrap.String(strings.TrimSpace(text), w))
	if gutter == 0 {
		return block
	}

	lines := strings.Split(block, "\n")
	for i := range lines {
		num := strings.Repeat(" ", gutter)
		if i == 0 {
			num = fmt.Sprintf("%"+fmt.Sprint(gutter-1)+"d ", cue+1)
		}
		lines[i] = lineNumberStyle(num) + lines[i]
	}
	return strings.Join(lines, "\n")
}

func (v *textView) markdown(cfg Config, width int, md string) (string, error) {
	w := max(0, min(int(cfg.GlamourMaxWidth), width)) //nolint:gosec
	if v.md == nil || v.mdWidth != w || v.mdStyle != cfg.GlamourStyle {
		r, err := glamour.NewTermRenderer(
			glamourStyle(cfg.GlamourStyle),
			glamour.WithWordWrap(w),
		)
		if err != nil {
			return "", fmt.Errorf("error creating glamour renderer: %w", err)
		}
		v.md, v.mdWidth, v.mdStyle = r, w, cfg.GlamourStyle
	}

	out, err := v.md.Render(md)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

func glamourStyle(style string) glamour.TermRendererOption {
	if style == "" || style == "auto" {
		return glamour.WithAutoStyle()
	}
	return glamour.WithStylePath(style)
}
