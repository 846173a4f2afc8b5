// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The screen is derived from the store rather than tracked separately:
//  1. [LoginView] : Log in or register while no session exists
//  2. [BrowseView] : Browse the catalogue or liked songs, with the filter sidebar and search
//  3. [NowPlayingView] : Full-screen player with lyrics and the song's background
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Store notifications arrive through a one-slot channel, so bursts of mutations collapse into a single redraw.
// Calls that reach the network (login, filter changes, paging, lookups) run as commands off the update loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
