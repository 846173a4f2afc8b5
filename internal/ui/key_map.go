package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	left     key.Binding
	right    key.Binding
	enter    key.Binding
	back     key.Binding
	focus    key.Binding
	search   key.Binding
	toggle   key.Binding
	next     key.Binding
	prev     key.Binding
	like     key.Binding
	liked    key.Binding
	open     key.Binding
	forward  key.Binding
	rewind   key.Binding
	louder   key.Binding
	quieter  key.Binding
	mute     key.Binding
	reset    key.Binding
	logout   key.Binding
	switchTo key.Binding
	more     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous option")),
		right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next option")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "filters")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		like:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "like")),
		liked:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "library/liked")),
		open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "now playing")),
		forward:  key.NewBinding(key.WithKeys("."), key.WithHelp(".", "+10s")),
		rewind:   key.NewBinding(key.WithKeys(","), key.WithHelp(",", "-10s")),
		louder:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset filters")),
		logout:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "log out")),
		switchTo: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
		more:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.enter, k.liked, k.open, k.more, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.toggle},
		{k.next, k.prev, k.forward, k.rewind},
		{k.like, k.liked, k.open, k.search},
		{k.louder, k.quieter, k.mute},
		{k.focus, k.reset, k.logout, k.more, k.quit},
	}
}
