package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/store"
)

// filterRow identifies a row of the filter sidebar.
type filterRow int

const (
	rowDuration filterRow = iota
	rowGenre
	rowMood
	rowLanguage
	rowReset
)

var filterRows = []filterRow{rowDuration, rowGenre, rowMood, rowLanguage, rowReset}

func (r filterRow) label() string {
	switch r {
	case rowDuration:
		return "Duration"
	case rowGenre:
		return "Genre"
	case rowMood:
		return "Mood"
	case rowLanguage:
		return "Language"
	default:
		return "Reset filters"
	}
}

func (r filterRow) options() []string {
	switch r {
	case rowDuration:
		return models.Durations
	case rowGenre:
		return models.Genres
	case rowMood:
		return models.Moods
	case rowLanguage:
		return models.Languages
	default:
		return nil
	}
}

func (r filterRow) value(f models.Filters) string {
	switch r {
	case rowDuration:
		return f.Duration
	case rowGenre:
		return f.Genre
	case rowMood:
		return f.Mood
	case rowLanguage:
		return f.Language
	default:
		return ""
	}
}

// cycle returns the option delta steps away from current, wrapping around.
// Values the UI does not offer start from "all".
func cycle(options []string, current string, delta int) string {
	if len(options) == 0 {
		return current
	}
	i := max(slices.Index(options, current), 0)
	n := len(options)
	return options[((i+delta)%n+n)%n]
}

// sidebar is the filter panel: one row per filter dimension plus a reset action.
type sidebar struct {
	row int
}

func (s *sidebar) move(delta int) {
	s.row = max(0, min(s.row+delta, len(filterRows)-1))
}

func (s sidebar) current() filterRow {
	return filterRows[s.row]
}

// apply changes the selected row's filter by delta options, or resets all filters on the reset row.
func (s sidebar) apply(st *store.Store, delta int) {
	row := s.current()
	if row == rowReset {
		st.ResetFilters()
		return
	}

	next := cycle(row.options(), row.value(st.Snapshot().Filters), delta)
	switch row {
	case rowDuration:
		st.SetDuration(next)
	case rowGenre:
		st.SetGenre(next)
	case rowMood:
		st.SetMood(next)
	case rowLanguage:
		st.SetLanguage(next)
	}
}

func (s sidebar) view(st store.State, search string, focused bool, width int) string {
	var b strings.Builder

	home, liked := "  Library", "  Liked Songs"
	if st.View == models.LikedView {
		liked = styles.active.Render("▸ Liked Songs")
	} else {
		home = styles.active.Render("▸ Library")
	}
	b.WriteString(home + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", liked, styles.dim.Render(fmt.Sprintf("(%d)", len(st.Liked)))))

	b.WriteString(styles.heading.Render("Search") + "\n")
	b.WriteString(search + "\n\n")

	b.WriteString(styles.heading.Render("Filters") + "\n")
	for i, row := range filterRows {
		line := row.label()
		if row != rowReset {
			line = fmt.Sprintf("%-9s ‹ %s ›", row.label()+":", row.value(st.Filters))
		}
		if row == rowReset {
			b.WriteString("\n")
		}
		if focused && i == s.row {
			line = styles.selected.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if st.Session != nil {
		b.WriteString("\n" + styles.dim.Render("signed in as "+st.Session.Username))
	}

	return styles.panel.Width(width).Render(b.String())
}
