package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/narayaneeyam/dashakam/internal/content"
	"github.com/narayaneeyam/dashakam/internal/player"
	"github.com/narayaneeyam/dashakam/internal/timecode"
)

const (
	statusBarHeight = 1
	progressWidth   = 20
)

var (
	pagerHelpHeight int

	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	green     = lipgloss.Color("#04B575")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	lineNumberFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#FF5F87")).
			Bold(true)

	statusBarTimeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarFlagStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFDF5")).
				Background(red).
				Render

	statusBarMessageHelpStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#B6FFE4")).
					Background(green).
					Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(lineNumberFg).
			Render

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1F1F1")).
			Background(red).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
)

type pagerState int

const (
	pagerStateBrowse pagerState = iota
	pagerStateStatusMessage
)

type pagerStatusMessage struct {
	message string
	isError bool
}

type pagerModel struct {
	common   *commonModel
	text     *textView
	viewport viewport.Model
	state    pagerState
	showHelp bool

	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap

	statusMessage      pagerStatusMessage
	statusMessageTimer *time.Timer

	// rendered text version and width, to skip needless re-renders
	renderedVersion int
	renderedWidth   int
	activeLine      int

	// last playback snapshot, taken after every update
	playback player.State
}

func newPagerModel(common *commonModel, text *textView) pagerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0
	// space, left and right belong to playback
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown", "f"))
	vp.KeyMap.Left.SetEnabled(false)
	vp.KeyMap.Right.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(mintGreen).Background(statusBarBg)

	pg := progress.New(
		progress.WithSolidFill(string(green)),
		progress.WithoutPercentage(),
		progress.WithWidth(progressWidth),
	)

	h := help.New()
	h.ShowAll = true

	return pagerModel{
		common:          common,
		text:            text,
		viewport:        vp,
		state:           pagerStateBrowse,
		spinner:         sp,
		progress:        pg,
		help:            h,
		keys:            newKeyMap(),
		renderedVersion: -1,
		activeLine:      -1,
	}
}

func (m *pagerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight
	m.help.Width = w

	if m.showHelp {
		if pagerHelpHeight == 0 {
			pagerHelpHeight = strings.Count(m.helpView(), "\n")
		}
		m.viewport.Height -= (statusBarHeight + pagerHelpHeight)
	}
}

func (m *pagerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.common.width, m.common.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

// Perform stuff that needs to happen after an action the user should hear
// about. The returned command must be sent back through update.
func (m *pagerModel) showStatusMessage(msg pagerStatusMessage) tea.Cmd {
	m.state = pagerStateStatusMessage
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

// refresh re-renders the text when it changed and keeps the active verse
// in view.
func (m *pagerModel) refresh() {
	if m.text.version == m.renderedVersion && m.viewport.Width == m.renderedWidth {
		return
	}
	prevActive := m.activeLine

	s, line, err := m.text.render(m.common.cfg, m.viewport.Width)
	if err != nil {
		log.Error("error rendering chapter", "error", err)
		s, line = "\n"+indent(errorTitleStyle.Render("ERROR")+"\n\n"+err.Error(), 3), -1
	}
	m.viewport.SetContent(s)
	m.renderedVersion = m.text.version
	m.renderedWidth = m.viewport.Width
	m.activeLine = line

	if line >= 0 && line != prevActive {
		top, bottom := m.viewport.YOffset, m.viewport.YOffset+m.viewport.Height
		if line < top || line >= bottom-2 {
			m.viewport.SetYOffset(max(line-2, 0))
		}
	}
}

// copyVerse puts the active verse on the clipboard.
func (m *pagerModel) copyVerse(cue content.Cue, ok bool) tea.Cmd {
	if !ok {
		return m.showStatusMessage(pagerStatusMessage{"No verse to copy", true})
	}
	// Copy using OSC 52
	termenv.Copy(cue.Text)
	// Copy using native system clipboard
	_ = clipboard.WriteAll(cue.Text)
	return m.showStatusMessage(pagerStatusMessage{fmt.Sprintf("Copied verse %d", cue.Index+1), false})
}

func (m pagerModel) update(msg tea.Msg) (pagerModel, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "home", "g":
			m.viewport.GotoTop()
		case "end", "G":
			m.viewport.GotoBottom()
		case "?":
			m.toggleHelp()
		}

	case tea.WindowSizeMsg:
		m.setSize(m.common.width, m.common.height)

	case statusMessageTimeoutMsg:
		m.state = pagerStateBrowse

	case spinner.TickMsg:
		if m.playback.Loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m pagerModel) View() string {
	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")

	// Footer
	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

func (m pagerModel) statusBarView(b *strings.Builder) {
	showStatusMessage := m.state == pagerStateStatusMessage
	st := m.playback

	// Logo
	logo := logoStyle.Render(" " + st.Chapter.Label() + " ")

	// Playback state
	var icon string
	switch st.Status {
	case player.StateLoading:
		icon = m.spinner.View()
	case player.StatePlaying:
		icon = statusBarFlagStyle(" ▶")
	case player.StateError:
		icon = statusBarErrorStyle(" ✗ ")
	default:
		icon = statusBarNoteStyle(" ⏸")
	}

	// Position
	var pct float64
	if st.Duration > 0 {
		pct = st.CurrentTime / st.Duration
	}
	position := statusBarTimeStyle(fmt.Sprintf(" %s / %s ",
		timecode.Format(st.CurrentTime), timecode.Format(st.Duration)))
	bar := m.progress.ViewAs(pct)

	// "Help" note
	var helpNote string
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	// Flags
	flags := statusBarFlagStyle(flagsView(st))

	// Note
	var note string
	if showStatusMessage {
		note = m.statusMessage.message
	} else {
		note = verseNote(st)
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(icon)-
			ansi.PrintableRuneWidth(bar)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(flags)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	switch {
	case showStatusMessage && m.statusMessage.isError:
		note = statusBarErrorStyle(note)
	case showStatusMessage:
		note = statusBarMessageStyle(note)
	default:
		note = statusBarNoteStyle(note)
	}

	// Empty space
	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(icon)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(bar)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(flags)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := strings.Repeat(" ", padding)
	if showStatusMessage && !m.statusMessage.isError {
		emptySpace = statusBarMessageStyle(emptySpace)
	} else {
		emptySpace = statusBarNoteStyle(emptySpace)
	}

	fmt.Fprintf(b, "%s%s%s%s%s%s%s%s",
		logo,
		icon,
		note,
		emptySpace,
		flags,
		bar,
		position,
		helpNote,
	)
}

func verseNote(st player.State) string {
	switch {
	case st.Status == player.StateLoading:
		return "Loading…"
	case st.LastError != nil:
		return "Could not load"
	case st.Cues == 0:
		return ""
	case st.HasActiveCue():
		return fmt.Sprintf("Verse %d/%d", st.ActiveCue+1, st.Cues)
	default:
		return fmt.Sprintf("%d verses", st.Cues)
	}
}

func flagsView(st player.State) string {
	var flags []string
	if st.RepeatChapter {
		flags = append(flags, "⟲ dashakam")
	}
	if st.RepeatSegment {
		flags = append(flags, "⟲ verse")
	}
	if st.Transliterated {
		flags = append(flags, "IAST")
	}
	if st.Speed != 0 && st.Speed != 1 {
		flags = append(flags, fmt.Sprintf("%gx", st.Speed))
	}
	if st.Muted {
		flags = append(flags, "muted")
	} else if st.Volume < 1 {
		flags = append(flags, fmt.Sprintf("vol %d%%", int(st.Volume*100+0.5)))
	}
	if len(flags) == 0 {
		return ""
	}
	return " " + strings.Join(flags, " · ") + " "
}

func (m pagerModel) helpView() (s string) {
	s = "\n" + m.help.View(m.keys) + "\n"
	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.common.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := ansi.PrintableRuneWidth(lines[i])
			n := max(m.common.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}
