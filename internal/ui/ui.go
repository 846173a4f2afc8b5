package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/vibe/internal/formatter"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/store"
)

const (
	sidebarWidth   = 32
	searchDebounce = 300 * time.Millisecond
	seekStep       = 10.0
	volumeStep     = 0.1
)

// ViewState is the screen the TUI derives from the store.
type ViewState int

const (
	LoginView ViewState = iota
	BrowseView
	NowPlayingView
)

// focus is the browse-screen pane receiving keys.
type focus int

const (
	focusList focus = iota
	focusFilters
	focusSearch
)

// Seeker is the part of the playback transport the TUI drives directly.
type Seeker interface {
	SeekBy(delta float64) error
	Progress() (pos, dur, ratio float64)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	store     *store.Store
	transport Seeker
	logger    *log.Logger

	width  int
	height int
	focus  focus
	st     store.State

	songs     list.Model
	search    textinput.Model
	searchSeq int
	sidebar   sidebar
	auth      authForm

	playing    models.ID
	lyrics     []string
	lyricsFor  models.ID
	info       string
	infoFor    models.ID
	lyricsView viewport.Model
	spinner    spinner.Model

	notice string
	help   help.Model
	keys   keyMap

	events      chan store.Event
	expired     atomic.Bool
	unsubscribe func()
}

// NewModel creates a TUI over s. transport may be nil, in which case seeking moves the stored position only.
func NewModel(ctx context.Context, s *store.Store, transport Seeker, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	songs := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	songs.SetFilteringEnabled(false)
	songs.SetShowHelp(false)
	songs.DisableQuitKeybindings()
	songs.Styles.Title = styles.title

	search := textinput.New()
	search.Placeholder = "Search songs..."
	search.Prompt = "⌕ "
	search.Width = sidebarWidth - 8

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.accent

	m := &Model{
		ctx:        ctx,
		store:      s,
		transport:  transport,
		logger:     logger,
		songs:      songs,
		search:     search,
		auth:       newAuthForm(),
		lyricsView: viewport.New(0, 0),
		spinner:    spin,
		help:       help.New(),
		keys:       newKeyMap(),
		events:     make(chan store.Event, 1),
	}

	m.unsubscribe = s.Subscribe(func(e store.Event) {
		if e == store.SessionExpired {
			m.expired.Store(true)
		}
		select {
		case m.events <- e:
		default:
		}
	})

	m.refresh()
	m.search.SetValue(m.st.Filters.SearchQuery)
	return m
}

// Close detaches the model from the store.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts listening for store events and loads the first page when signed in.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent(), m.spinner.Tick, m.trackCurrentSong()}
	if m.st.Authenticated() && len(m.st.Songs) == 0 {
		cmds = append(cmds, m.fetchSongs(false))
	}
	return tea.Batch(cmds...)
}

// ViewState reports the screen for the current store state.
func (m *Model) ViewState() ViewState {
	switch {
	case !m.st.Authenticated():
		return LoginView
	case m.st.PlayerOpen && m.st.Playback.CurrentSong != nil:
		return NowPlayingView
	default:
		return BrowseView
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch m.ViewState() {
		case LoginView:
			return m.handleLoginKeys(msg)
		case NowPlayingView:
			return m.handleNowPlayingKeys(msg)
		default:
			return m.handleBrowseKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStoreEvent:
		m.refresh()
		if m.expired.Swap(false) {
			m.focus = focusList
			m.auth.reset()
			m.auth.notice = "Session expired. Please log in again."
		}
		return m, tea.Batch(m.waitForEvent(), m.trackCurrentSong())

	case MsgAuthDone:
		res := msg.data.(authResult)
		m.auth.busy = false
		if res.err != nil {
			m.auth.err = describeError(res.err)
			return m, nil
		}
		m.auth.err = ""
		m.auth.notice = ""
		m.auth.reset()
		m.notice = ""
		m.search.Reset()
		m.refresh()
		return m, m.fetchSongs(false)

	case MsgFetchDone:
		if err, _ := msg.data.(error); err != nil && !errors.Is(err, context.Canceled) {
			m.notice = "Could not load songs: " + err.Error()
		} else {
			m.notice = ""
		}
		return m, nil

	case MsgLyricsFetched:
		res := msg.data.(lyricsResult)
		if res.err != nil {
			m.logger.Debug("lyrics lookup failed", "song", res.song, "error", res.err)
		}
		if res.song == m.playing {
			m.lyrics = res.lines
			m.lyricsFor = res.song
		}
		return m, nil

	case MsgInfoFetched:
		res := msg.data.(infoResult)
		if res.err != nil {
			m.logger.Debug("info lookup failed", "song", res.song, "error", res.err)
		}
		if res.song == m.playing {
			m.info = res.text
			m.infoFor = res.song
		}
		return m, nil

	case MsgSearchSettled:
		if seq := msg.data.(int); seq != m.searchSeq {
			return m, nil
		}
		return m, m.applySearch()
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	submit, cmd := m.auth.update(msg, m.keys)
	if !submit {
		return m, cmd
	}

	register := m.auth.register
	username, password := m.auth.credentials()
	return m, func() tea.Msg {
		var err error
		if register {
			err = m.store.Register(m.ctx, username, password)
		} else {
			err = m.store.Login(m.ctx, username, password)
		}
		return authDoneMsg(register, err)
	}
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusSearch:
		return m.handleSearchKeys(msg)
	case focusFilters:
		return m.handleFilterKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.focus = focusSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.focus):
		m.focus = focusFilters
	case key.Matches(msg, m.keys.enter):
		if song, ok := m.selectedSong(); ok {
			m.store.SetCurrentSong(song)
		}
	case key.Matches(msg, m.keys.like):
		if song, ok := m.selectedSong(); ok {
			m.store.ToggleLike(song)
		}
	case key.Matches(msg, m.keys.liked):
		if m.st.View == models.LikedView {
			m.store.SetView(models.HomeView)
		} else {
			m.store.SetView(models.LikedView)
		}
		m.songs.Select(0)
	case key.Matches(msg, m.keys.open):
		if m.st.Playback.CurrentSong != nil {
			m.store.SetPlayerOpen(true)
		}
	case key.Matches(msg, m.keys.reset):
		return m, m.changeFilters(m.store.ResetFilters)
	case key.Matches(msg, m.keys.logout):
		m.store.Logout()
	case key.Matches(msg, m.keys.more):
		m.help.ShowAll = !m.help.ShowAll
	default:
		if cmd, ok := m.handlePlayerKeys(msg); ok {
			return m, cmd
		}
		var cmd tea.Cmd
		m.songs, cmd = m.songs.Update(msg)
		return m, tea.Batch(cmd, m.maybeLoadMore())
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyTab:
		m.search.Blur()
		m.focus = focusList
		return m, nil
	case tea.KeyEnter:
		m.search.Blur()
		m.focus = focusList
		m.searchSeq++
		return m, m.applySearch()
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}

	m.searchSeq++
	seq := m.searchSeq
	return m, tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchSettledMsg(seq)
	}))
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC, key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.focus):
		m.focus = focusList
	case key.Matches(msg, m.keys.up):
		m.sidebar.move(-1)
	case key.Matches(msg, m.keys.down):
		m.sidebar.move(1)
	case key.Matches(msg, m.keys.left):
		return m, m.changeFilters(func() { m.sidebar.apply(m.store, -1) })
	case key.Matches(msg, m.keys.right), key.Matches(msg, m.keys.enter):
		return m, m.changeFilters(func() { m.sidebar.apply(m.store, 1) })
	case key.Matches(msg, m.keys.search):
		m.focus = focusSearch
		return m, m.search.Focus()
	}
	return m, nil
}

func (m *Model) handleNowPlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.open):
		m.store.SetPlayerOpen(false)
	case key.Matches(msg, m.keys.like):
		if song := m.st.Playback.CurrentSong; song != nil {
			m.store.ToggleLike(*song)
		}
	case key.Matches(msg, m.keys.logout):
		m.store.Logout()
	case key.Matches(msg, m.keys.more):
		m.help.ShowAll = !m.help.ShowAll
	default:
		cmd, _ := m.handlePlayerKeys(msg)
		return m, cmd
	}
	return m, nil
}

// handlePlayerKeys applies transport controls shared by the browse and now-playing screens.
func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	pb := m.st.Playback
	switch {
	case key.Matches(msg, m.keys.toggle):
		m.store.TogglePlay()
	case key.Matches(msg, m.keys.next):
		m.store.PlayNext()
	case key.Matches(msg, m.keys.prev):
		m.store.PlayPrev()
	case key.Matches(msg, m.keys.forward):
		m.seek(seekStep)
	case key.Matches(msg, m.keys.rewind):
		m.seek(-seekStep)
	case key.Matches(msg, m.keys.louder):
		m.store.SetVolume(pb.Volume + volumeStep)
	case key.Matches(msg, m.keys.quieter):
		m.store.SetVolume(pb.Volume - volumeStep)
	case key.Matches(msg, m.keys.mute):
		m.store.ToggleMute()
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) seek(delta float64) {
	if m.st.Playback.CurrentSong == nil {
		return
	}
	if m.transport != nil {
		if err := m.transport.SeekBy(delta); err != nil {
			m.notice = "Seek failed: " + err.Error()
		}
		return
	}
	m.store.SetCurrentTime(max(0, m.st.Playback.CurrentTime+delta))
}

// refresh copies the store state and rebuilds the song list from it.
func (m *Model) refresh() {
	m.st = m.store.Snapshot()

	index := m.songs.Index()
	items := songItems(m.st)
	m.songs.SetItems(items)
	if index >= len(items) {
		m.songs.Select(max(0, len(items)-1))
	}

	if m.st.View == models.LikedView {
		m.songs.Title = "Liked Songs"
	} else {
		m.songs.Title = "Library"
	}
}

func (m *Model) resize() {
	listWidth := max(20, m.width-sidebarWidth-4)
	listHeight := max(5, m.height-8)
	m.songs.SetSize(listWidth, listHeight)
	m.help.Width = m.width
}

func (m *Model) selectedSong() (models.Song, bool) {
	item, ok := m.songs.SelectedItem().(songItem)
	if !ok {
		return models.Song{}, false
	}
	return item.song, true
}

// changeFilters returns to the catalogue and runs fn, which refetches, off the update loop.
func (m *Model) changeFilters(fn func()) tea.Cmd {
	if m.st.View != models.HomeView {
		m.store.SetView(models.HomeView)
	}
	m.songs.Select(0)
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m *Model) applySearch() tea.Cmd {
	query := strings.TrimSpace(m.search.Value())
	if query == m.st.Filters.SearchQuery && m.st.View == models.HomeView {
		return nil
	}
	return m.changeFilters(func() { m.store.SetSearchQuery(query) })
}

func (m *Model) maybeLoadMore() tea.Cmd {
	if !needsMore(m.st, m.songs.Index()) {
		return nil
	}
	return m.fetchSongs(true)
}

func (m *Model) fetchSongs(loadMore bool) tea.Cmd {
	return func() tea.Msg {
		return fetchDoneMsg(m.store.FetchSongs(m.ctx, loadMore))
	}
}

// trackCurrentSong starts the lyrics and info lookups when the current song changes.
func (m *Model) trackCurrentSong() tea.Cmd {
	current := m.st.Playback.CurrentSong
	if current == nil || current.ID == m.playing {
		return nil
	}

	song := *current
	m.playing = song.ID
	m.lyrics = nil

	backend := m.store.Backend()
	return tea.Batch(
		func() tea.Msg {
			lines, err := services.SongLyrics(m.ctx, backend, song)
			return lyricsFetchedMsg(song.ID, lines, err)
		},
		func() tea.Msg {
			text, err := services.SongInfo(m.ctx, backend, song)
			return infoFetchedMsg(song.ID, text, err)
		},
	)
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-m.events:
			return storeEventMsg(e)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.ViewState() {
	case LoginView:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.auth.view(m.keys))
	case NowPlayingView:
		return lipgloss.JoinVertical(lipgloss.Left, m.nowPlaying(m.st), m.help.View(m.keys))
	default:
		return m.renderBrowse()
	}
}

func (m *Model) renderBrowse() string {
	st := m.st
	side := m.sidebar.view(st, m.search.View(), m.focus == focusFilters, sidebarWidth)
	body := lipgloss.JoinHorizontal(lipgloss.Top, side, " ", m.renderSongs(st))

	status := ""
	if m.notice != "" {
		status = styles.err.Render(m.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.playerBar(st, max(40, m.width-2)),
		status,
		m.help.View(m.keys),
	)
}

func (m *Model) renderSongs(st store.State) string {
	if len(m.songs.Items()) > 0 {
		view := m.songs.View()
		if st.IsLoading {
			view += "\n" + m.spinner.View() + styles.dim.Render(" loading more...")
		}
		return view
	}

	var msg string
	switch {
	case st.View == models.LikedView:
		msg = "Your collection is empty. Press L on a song to like it."
	case st.IsLoading:
		msg = m.spinner.View() + " Loading library..."
	default:
		msg = fmt.Sprintf("No songs match these filters (%s).", formatter.DescribeFilters(st.Filters))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(styles.title.Render(m.songs.Title) + "\n\n" + styles.dim.Render(msg))
}
