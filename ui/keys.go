package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PlayPause     key.Binding
	Rewind        key.Binding
	Forward       key.Binding
	NextVerse     key.Binding
	PrevVerse     key.Binding
	NextChapter   key.Binding
	PrevChapter   key.Binding
	SpeedUp       key.Binding
	SpeedDown     key.Binding
	VolumeUp      key.Binding
	VolumeDown    key.Binding
	Mute          key.Binding
	RepeatChapter key.Binding
	RepeatVerse   key.Binding
	Translit      key.Binding
	Copy          key.Binding
	Picker        key.Binding
	Help          key.Binding
	Quit          key.Binding

	// Scrolling is handled by the viewport; these only document it.
	Up   key.Binding
	Down key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		PlayPause:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Rewind:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "back 5s")),
		Forward:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "ahead 5s")),
		NextVerse:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next verse")),
		PrevVerse:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous verse")),
		NextChapter:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "next dashakam")),
		PrevChapter:   key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "previous dashakam")),
		SpeedUp:       key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "faster")),
		SpeedDown:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "slower")),
		VolumeUp:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		VolumeDown:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "quieter")),
		Mute:          key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		RepeatChapter: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat dashakam")),
		RepeatVerse:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "repeat verse")),
		Translit:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "transliteration")),
		Copy:          key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy verse")),
		Picker:        key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open dashakam")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:            key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "scroll up")),
		Down:          key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "scroll down")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.NextVerse, k.PrevVerse, k.Picker, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Rewind, k.Forward, k.NextVerse, k.PrevVerse, k.NextChapter, k.PrevChapter},
		{k.SpeedUp, k.SpeedDown, k.VolumeUp, k.VolumeDown, k.Mute},
		{k.RepeatChapter, k.RepeatVerse, k.Translit, k.Copy, k.Picker},
		{k.Up, k.Down, k.Help, k.Quit},
	}
}
