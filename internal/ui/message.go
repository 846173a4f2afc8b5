package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/store"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStoreEvent MsgKind = iota
	MsgAuthDone
	MsgFetchDone
	MsgLyricsFetched
	MsgInfoFetched
	MsgSearchSettled
)

// storeEventMsg is the constructor for [MsgStoreEvent]
func storeEventMsg(e store.Event) Msg {
	return Msg{kind: MsgStoreEvent, data: e}
}

type authResult struct {
	register bool
	err      error
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(register bool, err error) Msg {
	return Msg{kind: MsgAuthDone, data: authResult{register, err}}
}

// fetchDoneMsg is the constructor for [MsgFetchDone]
func fetchDoneMsg(err error) Msg {
	return Msg{kind: MsgFetchDone, data: err}
}

type lyricsResult struct {
	song  models.ID
	lines []string
	err   error
}

// lyricsFetchedMsg is the constructor for [MsgLyricsFetched]
func lyricsFetchedMsg(song models.ID, lines []string, err error) Msg {
	return Msg{kind: MsgLyricsFetched, data: lyricsResult{song, lines, err}}
}

type infoResult struct {
	song models.ID
	text string
	err  error
}

// infoFetchedMsg is the constructor for [MsgInfoFetched]
func infoFetchedMsg(song models.ID, text string, err error) Msg {
	return Msg{kind: MsgInfoFetched, data: infoResult{song, text, err}}
}

// searchSettledMsg is the constructor for [MsgSearchSettled]; seq identifies the keystroke that scheduled it.
func searchSettledMsg(seq int) Msg {
	return Msg{kind: MsgSearchSettled, data: seq}
}
