// Package ui provides the terminal player for dashakam.
package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/narayaneeyam/dashakam/internal/audio"
	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/loader"
	"github.com/narayaneeyam/dashakam/internal/player"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied"
	ellipsis             = "…"
	keyEsc               = "esc"
)

// NewProgram returns a new Tea program that plays through a and loads
// chapters with fetcher.
func NewProgram(cfg Config, a player.Audio, fetcher player.Fetcher, opts player.Options) (*tea.Program, error) {
	log.Debug(
		"Starting dashakam",
		"chapter",
		cfg.Chapter,
		"tick",
		cfg.tick(),
		"glamour_style",
		cfg.GlamourStyle,
	)

	m, err := newModel(cfg, a, fetcher, opts)
	if err != nil {
		return nil, err
	}

	teaOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		teaOpts = append(teaOpts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(m, teaOpts...), nil
}

type (
	tickMsg                 time.Time
	chapterLoadedMsg        player.Result
	reloadMsg               string
	statusMessageTimeoutMsg struct{}
	watchStoppedMsg         struct{ err error }
)

// state is the top-level application state.
type state int

const (
	stateShowChapter state = iota
	stateShowPicker
)

func (s state) String() string {
	return map[state]string{
		stateShowChapter: "showing chapter",
		stateShowPicker:  "picking chapter",
	}[s]
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	width  int
	height int
}

type model struct {
	common *commonModel
	state  state

	ctrl  *player.Controller
	audio player.Audio
	text  *textView

	// Sub-models
	pager  pagerModel
	picker pickerModel

	// Document changes reported by the watcher, nil when not watching
	watcher loader.Watcher
	reloads chan string

	// last audio error shown to the user
	audioErr error
}

func newModel(cfg Config, a player.Audio, fetcher player.Fetcher, opts player.Options) (model, error) {
	text := newTextView()
	ctrl, err := player.NewController(a, text, fetcher, opts)
	if err != nil {
		return model{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	common := &commonModel{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	m := model{
		common: common,
		state:  stateShowChapter,
		ctrl:   ctrl,
		audio:  a,
		text:   text,
		pager:  newPagerModel(common, text),
		picker: newPickerModel(common),
	}

	if cfg.Watch {
		if w, ok := fetcher.(loader.Watcher); ok {
			m.watcher = w
			m.reloads = make(chan string)
		}
	}
	return m, nil
}

func (m model) Init() tea.Cmd {
	req := m.ctrl.SelectChapter(m.common.cfg.Chapter)
	cmds := []tea.Cmd{
		fetchChapter(m.common.ctx, m.ctrl, req),
		m.pager.spinner.Tick,
		tick(m.common.cfg.tick()),
	}

	if m.common.cfg.Autoplay {
		if err := m.ctrl.TogglePlay(); err != nil {
			log.Error("error starting playback", "error", err)
		}
	}
	if m.watcher != nil {
		cmds = append(cmds,
			watchDocuments(m.common.ctx, m.watcher, m.reloads),
			waitForReload(m.reloads),
		)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}

		if m.state == stateShowPicker {
			m.picker, cmd = m.picker.update(msg)
			return m, cmd
		}

		if cmd, ok := m.handleKey(msg); ok {
			m.sync()
			return m, cmd
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.pager.setSize(msg.Width, msg.Height)

	case tickMsg:
		if req := m.ctrl.TimeUpdate(); req != nil {
			cmds = append(cmds, m.load(*req))
		}
		cmds = append(cmds, m.checkAudio(), tick(m.common.cfg.tick()))

	case chapterLoadedMsg:
		res := player.Result(msg)
		if m.ctrl.Apply(res) && res.Err == nil {
			log.Debug("chapter shown", "chapter", res.Request.Chapter, "cues", len(m.text.display.Cues))
		}

	case chapterPickedMsg:
		m.state = stateShowChapter
		cmds = append(cmds, m.load(m.ctrl.SelectChapter(chapter.Number(msg))))

	case pickerCancelledMsg:
		m.state = stateShowChapter

	// A document changed on disk and the cache was invalidated
	case reloadMsg:
		log.Info("document changed, reloading", "document", string(msg))
		if req := m.ctrl.Current(); req.Chapter != 0 {
			cmds = append(cmds, fetchChapter(m.common.ctx, m.ctrl, req))
		}
		cmds = append(cmds, waitForReload(m.reloads))

	case watchStoppedMsg:
		if msg.err != nil && !errors.Is(msg.err, loader.ErrNotWatchable) {
			log.Error("error watching documents", "error", msg.err)
		}
	}

	if m.state == stateShowPicker {
		m.picker, cmd = m.picker.update(msg)
		cmds = append(cmds, cmd)
	}

	m.pager, cmd = m.pager.update(msg)
	cmds = append(cmds, cmd)

	m.sync()
	return m, tea.Batch(cmds...)
}

// handleKey runs the playback bindings. It reports whether the key was one
// of them.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := m.pager.keys

	switch {
	case key.Matches(msg, k.Quit):
		return m.quit(), true

	case key.Matches(msg, k.PlayPause):
		if err := m.ctrl.TogglePlay(); err != nil {
			return m.showError("Could not play", err), true
		}

	case key.Matches(msg, k.Rewind):
		m.ctrl.Rewind()

	case key.Matches(msg, k.Forward):
		m.ctrl.Forward()

	case key.Matches(msg, k.NextVerse):
		m.ctrl.NextVerse()

	case key.Matches(msg, k.PrevVerse):
		m.ctrl.PrevVerse()

	case key.Matches(msg, k.NextChapter):
		req := m.ctrl.NextChapter()
		if req == nil {
			return m.pager.showStatusMessage(pagerStatusMessage{"Already at the last dashakam", false}), true
		}
		return m.load(*req), true

	case key.Matches(msg, k.PrevChapter):
		req := m.ctrl.PrevChapter()
		if req == nil {
			return m.pager.showStatusMessage(pagerStatusMessage{"Already at the first dashakam", false}), true
		}
		return m.load(*req), true

	case key.Matches(msg, k.SpeedUp):
		return m.changeSpeed(m.common.cfg.SpeedStep), true

	case key.Matches(msg, k.SpeedDown):
		return m.changeSpeed(-m.common.cfg.SpeedStep), true

	case key.Matches(msg, k.VolumeUp):
		return m.changeVolume(m.common.cfg.VolumeStep), true

	case key.Matches(msg, k.VolumeDown):
		return m.changeVolume(-m.common.cfg.VolumeStep), true

	case key.Matches(msg, k.Mute):
		muted, err := m.ctrl.ToggleMute()
		if err != nil {
			return m.showError("Could not mute", err), true
		}
		return m.pager.showStatusMessage(pagerStatusMessage{onOff("Muted", "Unmuted", muted), false}), true

	case key.Matches(msg, k.RepeatChapter):
		on := m.ctrl.ToggleRepeatChapter()
		return m.pager.showStatusMessage(pagerStatusMessage{onOff("Repeat dashakam on", "Repeat dashakam off", on), false}), true

	case key.Matches(msg, k.RepeatVerse):
		on := m.ctrl.ToggleRepeatSegment()
		return m.pager.showStatusMessage(pagerStatusMessage{onOff("Repeat verse on", "Repeat verse off", on), false}), true

	case key.Matches(msg, k.Translit):
		on := m.ctrl.ToggleTransliteration()
		return m.pager.showStatusMessage(pagerStatusMessage{onOff("English transliteration", "Sanskrit", on), false}), true

	case key.Matches(msg, k.Copy):
		return m.pager.copyVerse(m.ctrl.ActiveCue()), true

	case key.Matches(msg, k.Picker):
		m.state = stateShowPicker
		return m.picker.open(m.ctrl.State().Chapter), true

	default:
		return nil, false
	}
	return nil, true
}

func (m *model) changeSpeed(delta float64) tea.Cmd {
	speed := math.Round((m.ctrl.State().Speed+delta)*100) / 100
	speed = math.Max(audio.MinSpeed, math.Min(audio.MaxSpeed, speed))
	if err := m.ctrl.SetSpeed(speed); err != nil {
		return m.showError("Could not change speed", err)
	}
	return m.pager.showStatusMessage(pagerStatusMessage{fmt.Sprintf("Speed %gx", speed), false})
}

func (m *model) changeVolume(delta float64) tea.Cmd {
	volume := math.Round((m.ctrl.State().Volume+delta)*100) / 100
	volume = math.Max(0, math.Min(1, volume))
	if err := m.ctrl.SetVolume(volume); err != nil {
		return m.showError("Could not change volume", err)
	}
	return m.pager.showStatusMessage(pagerStatusMessage{fmt.Sprintf("Volume %d%%", int(volume*100+0.5)), false})
}

// failingAudio is an output that reports errors from its playback goroutine.
type failingAudio interface {
	Err() error
	Source() string
}

var (
	_ failingAudio = (*audio.Player)(nil)
	_ failingAudio = (*audio.MockPlayer)(nil)
)

// checkAudio surfaces a new audio output error once.
func (m *model) checkAudio() tea.Cmd {
	a, ok := m.audio.(failingAudio)
	if !ok {
		return nil
	}
	err := a.Err()
	if err == nil || err == m.audioErr { //nolint:errorlint
		return nil
	}
	m.audioErr = err
	log.Error("audio error", "source", a.Source(), "error", err)
	return m.showError("Audio", err)
}

func (m *model) showError(what string, err error) tea.Cmd {
	return m.pager.showStatusMessage(pagerStatusMessage{what + ": " + err.Error(), true})
}

// load fetches a selected chapter and starts the spinner.
func (m *model) load(req player.Request) tea.Cmd {
	cmds := []tea.Cmd{fetchChapter(m.common.ctx, m.ctrl, req)}
	if !m.pager.playback.Loading {
		cmds = append(cmds, m.pager.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// sync takes a playback snapshot and re-renders the text if needed.
func (m *model) sync() {
	m.pager.playback = m.ctrl.State()
	m.pager.refresh()
}

func (m *model) quit() tea.Cmd {
	m.common.cancel()
	return tea.Quit
}

func (m model) View() string {
	switch m.state { //nolint:exhaustive
	case stateShowPicker:
		return m.picker.view()
	default:
		return m.pager.View()
	}
}

func onOff(on, off string, v bool) string {
	if v {
		return on
	}
	return off
}

// COMMANDS

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchChapter loads a chapter off the UI goroutine. The result is applied
// in Update.
func fetchChapter(ctx context.Context, c *player.Controller, req player.Request) tea.Cmd {
	return func() tea.Msg {
		return chapterLoadedMsg(c.Fetch(ctx, req))
	}
}

func watchDocuments(ctx context.Context, w loader.Watcher, ch chan<- string) tea.Cmd {
	return func() tea.Msg {
		err := w.Watch(ctx, func(name string) {
			select {
			case ch <- name:
			case <-ctx.Done():
			}
		})
		return watchStoppedMsg{err}
	}
}

func waitForReload(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return reloadMsg(<-ch)
	}
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
