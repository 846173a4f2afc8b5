package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/samber/lo"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
)

var _ list.Item = songItem{}

// loadMoreThreshold is how close to the end of the catalogue the cursor gets before the next page is requested.
const loadMoreThreshold = 5

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song    models.Song
	liked   bool
	current bool
	playing bool
}

func (i songItem) FilterValue() string { return i.song.Title }
func (i songItem) Title() string {
	mark := "  "
	switch {
	case i.current && i.playing:
		mark = "▶ "
	case i.current:
		mark = "❚❚"
	}
	if i.liked {
		return fmt.Sprintf("%s %s ♥", mark, i.song.DisplayTitle())
	}
	return fmt.Sprintf("%s %s", mark, i.song.DisplayTitle())
}
func (i songItem) Description() string {
	desc := i.song.DisplayArtist()
	if i.song.Duration > 0 {
		desc = fmt.Sprintf("%s • %s", desc, shared.FormatDuration(i.song.Duration))
	}
	if !i.song.Playable() {
		desc += " • unavailable"
	}
	return desc
}

// songItems builds list items for the active list of st.
func songItems(st store.State) []list.Item {
	var current models.ID
	if st.Playback.CurrentSong != nil {
		current = st.Playback.CurrentSong.ID
	}
	return lo.Map(st.ActiveList(), func(s models.Song, _ int) list.Item {
		return songItem{
			song:    s,
			liked:   st.IsLiked(s),
			current: s.ID == current,
			playing: s.ID == current && st.Playback.IsPlaying,
		}
	})
}

// needsMore reports whether the cursor is close enough to the end of the catalogue to fetch the next page.
func needsMore(st store.State, index int) bool {
	if st.View != models.HomeView || st.IsLoading || !st.Cursor.HasMore || len(st.Songs) == 0 {
		return false
	}
	return index >= len(st.Songs)-loadMoreThreshold
}
