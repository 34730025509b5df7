package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/narayaneeyam/dashakam/internal/chapter"
)

const pickerLabelWidth = 16

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFDF5")).
				Background(darkGreen).
				Padding(0, 1)

	pickerCursorStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Bold(true)

	pickerMatchStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Underline(true)
)

// chapterLabels is the data set the picker filters.
type chapterLabels []chapter.Number

func (c chapterLabels) String(i int) string { return c[i].Label() }
func (c chapterLabels) Len() int            { return len(c) }

type (
	chapterPickedMsg   chapter.Number
	pickerCancelledMsg struct{}
)

type pickerModel struct {
	common  *commonModel
	input   textinput.Model
	all     chapterLabels
	matches fuzzy.Matches
	cursor  int
	offset  int
	current chapter.Number
}

func newPickerModel(common *commonModel) pickerModel {
	ti := textinput.New()
	ti.Prompt = "Find: "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(mintGreen)
	ti.Placeholder = "dashakam number"
	ti.CharLimit = 24

	m := pickerModel{
		common: common,
		input:  ti,
		all:    chapterLabels(chapter.All()),
	}
	m.filter()
	return m
}

// open resets the filter and places the cursor on the current chapter.
func (m *pickerModel) open(current chapter.Number) tea.Cmd {
	m.current = current
	m.input.SetValue("")
	m.filter()
	for i, match := range m.matches {
		if m.all[match.Index] == current {
			m.cursor = i
			break
		}
	}
	m.scroll()
	return m.input.Focus()
}

func (m *pickerModel) filter() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.matches = make(fuzzy.Matches, len(m.all))
		for i := range m.all {
			m.matches[i] = fuzzy.Match{Str: m.all.String(i), Index: i}
		}
	} else {
		m.matches = fuzzy.FindFrom(query, m.all)
		// a bare number should put that chapter first
		if n, err := chapter.Parse(query); err == nil {
			m.promote(n)
		}
	}
	m.cursor = 0
	m.offset = 0
}

func (m *pickerModel) promote(n chapter.Number) {
	for i, match := range m.matches {
		if m.all[match.Index] == n {
			copy(m.matches[1:i+1], m.matches[:i])
			m.matches[0] = match
			return
		}
	}
}

func (m pickerModel) selected() (chapter.Number, bool) {
	if m.cursor < 0 || m.cursor >= len(m.matches) {
		return 0, false
	}
	return m.all[m.matches[m.cursor].Index], true
}

func (m pickerModel) visibleRows() int {
	return max(m.common.height-6, 1)
}

func (m *pickerModel) scroll() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m pickerModel) update(msg tea.Msg) (pickerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case keyEsc:
			m.input.Blur()
			return m, func() tea.Msg { return pickerCancelledMsg{} }
		case "enter":
			n, ok := m.selected()
			if !ok {
				return m, nil
			}
			m.input.Blur()
			return m, func() tea.Msg { return chapterPickedMsg(n) }
		case "up", "ctrl+p", "ctrl+k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.scroll()
			return m, nil
		case "down", "ctrl+n", "ctrl+j":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			m.scroll()
			return m, nil
		case "pgup":
			m.cursor = max(m.cursor-m.visibleRows(), 0)
			m.scroll()
			return m, nil
		case "pgdown":
			m.cursor = min(m.cursor+m.visibleRows(), max(len(m.matches)-1, 0))
			m.scroll()
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.filter()
	}
	return m, cmd
}

func (m pickerModel) view() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\n", pickerTitleStyle.Render("Open Dashakam"), m.input.View())

	if len(m.matches) == 0 {
		b.WriteString(subtleStyle.Render("  no match"))
		return indent(b.String(), 2)
	}

	end := min(m.offset+m.visibleRows(), len(m.matches))
	for i := m.offset; i < end; i++ {
		match := m.matches[i]
		label := highlightMatch(match) +
			strings.Repeat(" ", max(pickerLabelWidth-runewidth.StringWidth(match.Str), 1))
		if m.all[match.Index] == m.current {
			label += subtleStyle.Render("current")
		}
		if i == m.cursor {
			fmt.Fprintf(&b, "%s %s\n", pickerCursorStyle.Render("│"), label)
		} else {
			fmt.Fprintf(&b, "  %s\n", label)
		}
	}
	return indent(b.String(), 2)
}

// highlightMatch marks the runes of the label the query matched.
func highlightMatch(match fuzzy.Match) string {
	if len(match.MatchedIndexes) == 0 {
		return match.Str
	}
	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, i := range match.MatchedIndexes {
		matched[i] = true
	}

	var b strings.Builder
	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(pickerMatchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
