package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
)

// progressBar renders ratio in [0,1] as a width-cell scrub bar.
func progressBar(ratio float64, width int) string {
	if width < 3 {
		return ""
	}
	ratio = max(0, min(ratio, 1))
	filled := int(ratio * float64(width-1))
	return styles.accent.Render(strings.Repeat("━", filled)+"●") + styles.dim.Render(strings.Repeat("─", width-1-filled))
}

func volumeLabel(pb models.Playback) string {
	if pb.IsMuted || pb.Volume == 0 {
		return "🔇 muted"
	}
	return fmt.Sprintf("🔊 %3.0f%%", pb.Volume*100)
}

// playerBar is the compact player shown under the song list.
func (m *Model) playerBar(st store.State, width int) string {
	pb := st.Playback
	if pb.CurrentSong == nil {
		return styles.bar.Width(width).Render(styles.dim.Render("Nothing playing. Pick a song and press enter."))
	}

	pos, dur, ratio := m.progress(st)
	state := "❚❚"
	if pb.IsPlaying {
		state = "▶ "
	}

	heart := " "
	if st.IsLiked(*pb.CurrentSong) {
		heart = styles.err.Render("♥")
	}

	title := fmt.Sprintf("%s %s %s · %s", state, heart, styles.active.Render(pb.CurrentSong.DisplayTitle()), pb.CurrentSong.DisplayArtist())
	clock := fmt.Sprintf("%s / %s", shared.FormatDuration(pos), shared.FormatDuration(dur))
	right := fmt.Sprintf("%s  %s", clock, volumeLabel(pb))

	barWidth := max(10, width-lipgloss.Width(right)-4)
	return styles.bar.Width(width).Render(
		title + "\n" + progressBar(ratio, barWidth) + "  " + right,
	)
}

// progress prefers the transport's figures, which know the real media duration.
func (m *Model) progress(st store.State) (pos, dur, ratio float64) {
	if m.transport != nil {
		return m.transport.Progress()
	}
	pb := st.Playback
	if pb.CurrentSong == nil {
		return 0, 0, 0
	}
	return pb.CurrentTime, pb.CurrentSong.EffectiveDuration(), pb.Progress()
}

// nowPlaying renders the full-screen player: song details and controls on the left,
// lyrics with the estimated active line on the right, and the song's background below.
func (m *Model) nowPlaying(st store.State) string {
	pb := st.Playback
	if pb.CurrentSong == nil {
		return styles.dim.Render("Nothing playing.")
	}
	song := *pb.CurrentSong

	leftWidth := max(30, m.width/3)
	rightWidth := max(20, m.width-leftWidth-6)

	pos, dur, ratio := m.progress(st)

	var left strings.Builder
	left.WriteString(styles.heading.Render("NOW PLAYING") + "\n\n")
	left.WriteString(styles.title.Render(song.DisplayTitle()))
	left.WriteString("\n" + song.DisplayArtist() + "\n\n")
	left.WriteString(progressBar(ratio, leftWidth-4) + "\n")
	left.WriteString(fmt.Sprintf("%s%s\n\n", shared.FormatDuration(pos), strings.Repeat(" ", max(1, leftWidth-14))+shared.FormatDuration(dur)))

	state := "paused"
	if pb.IsPlaying {
		state = "playing"
	}
	liked := "not liked"
	if st.IsLiked(song) {
		liked = styles.err.Render("♥ liked")
	}
	left.WriteString(fmt.Sprintf("%s · %s · %s\n", state, liked, volumeLabel(pb)))
	if !song.Playable() {
		left.WriteString(styles.warn.Render("This song cannot be streamed.") + "\n")
	}

	m.lyricsView.Width = rightWidth
	m.lyricsView.Height = max(5, m.height-14)
	content, active := m.renderLyrics(ratio, rightWidth)
	m.lyricsView.SetContent(content)
	m.lyricsView.SetYOffset(max(0, active-m.lyricsView.Height/2))

	lyricsTitle := styles.heading.Render("LYRICS")
	if m.lyricsFor != song.ID {
		lyricsTitle += " " + m.spinner.View()
	}

	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.panel.Width(leftWidth).Render(left.String()),
		styles.panel.Width(rightWidth).Render(lyricsTitle+"\n"+m.lyricsView.View()),
	)

	info := m.info
	if m.infoFor != song.ID {
		info = "Looking up the story behind the song..."
	}
	about := styles.panel.Width(m.width - 2).Render(
		styles.heading.Render("BEHIND THE SONG") + "\n" + lipgloss.NewStyle().Width(m.width-6).Render(info),
	)

	return lipgloss.JoinVertical(lipgloss.Left, columns, about)
}

// renderLyrics highlights the line estimated from progress and returns its index.
func (m *Model) renderLyrics(ratio float64, width int) (string, int) {
	if len(m.lyrics) == 0 {
		return "", 0
	}

	active := services.ActiveLyricLine(ratio, len(m.lyrics))
	lines := make([]string, len(m.lyrics))
	for i, line := range m.lyrics {
		if i == active {
			lines[i] = styles.active.Render(line)
		} else {
			lines[i] = styles.dim.Render(line)
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n")), active
}
