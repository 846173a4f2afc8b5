// package formatter renders song lists as terminal tables and exports them to files (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
)

// SongExport is a titled song list along with the filters that produced it.
type SongExport struct {
	Title      string         `json:"title"`
	Filters    models.Filters `json:"filters"`
	Songs      []models.Song  `json:"songs"`
	ExportedAt time.Time      `json:"exported_at"`
}

// Metadata describes an export without its songs.
type Metadata struct {
	Title      string         `json:"title"`
	Filters    models.Filters `json:"filters"`
	SongCount  int            `json:"song_count"`
	Playable   int            `json:"playable"`
	ExportedAt time.Time      `json:"exported_at"`
}

// Metadata summarizes the export.
func (e *SongExport) Metadata() Metadata {
	return Metadata{
		Title:      e.Title,
		Filters:    e.Filters,
		SongCount:  len(e.Songs),
		Playable:   lo.CountBy(e.Songs, func(s models.Song) bool { return s.Playable() }),
		ExportedAt: e.ExportedAt,
	}
}

// DescribeFilters renders the active filters as "key: value" pairs, or "none".
func DescribeFilters(f models.Filters) string {
	parts := []string{}
	if f.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("search: %q", f.SearchQuery))
	}
	for _, kv := range [][2]string{
		{"genre", f.Genre},
		{"mood", f.Mood},
		{"duration", f.Duration},
		{"language", f.Language},
	} {
		if kv[1] != "" && kv[1] != models.FilterAll {
			parts = append(parts, kv[0]+": "+kv[1])
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func durationCell(s models.Song) string {
	if s.Duration <= 0 {
		return "-"
	}
	return shared.FormatDuration(s.Duration)
}

// ExportToCSV converts a SongExport to CSV format with columns: ID, Title, Artist, Duration, Playable, Stream, Cover
func ExportToCSV(export *SongExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Duration", "Playable", "Stream", "Cover"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range export.Songs {
		record := []string{
			song.ID.String(),
			song.DisplayTitle(),
			song.DisplayArtist(),
			strconv.FormatFloat(song.Duration, 'f', -1, 64),
			strconv.FormatBool(song.Playable()),
			song.StreamRef.String(),
			song.CoverArt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a SongExport to Markdown format with optional cover image
func ExportToMarkdown(export *SongExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Filters**: %s\n", DescribeFilters(export.Filters))
	fmt.Fprintf(&buf, "**Songs**: %d\n", len(export.Songs))
	if !export.ExportedAt.IsZero() {
		fmt.Fprintf(&buf, "**Exported**: %s\n", export.ExportedAt.Format(time.RFC3339))
	}
	buf.WriteString("\n## Songs\n\n")

	for i, song := range export.Songs {
		suffix := ""
		if !song.Playable() {
			suffix = " _(unavailable)_"
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s]%s\n", i+1, song.DisplayArtist(), song.DisplayTitle(), durationCell(song), suffix)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a SongExport to plain text format
func ExportToText(export *SongExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Title)
	fmt.Fprintf(&buf, "Filters: %s\n", DescribeFilters(export.Filters))
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(export.Songs))

	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.DisplayArtist(), song.DisplayTitle())
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of the export metadata (without songs)
func ToMetadataJSON(export *SongExport) ([]byte, error) {
	return shared.MarshalJSON(export.Metadata(), true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	MetadataFile string
}

// WriteCSVExport writes {base}_songs.csv and {base}_metadata.json.
func WriteCSVExport(export *SongExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		return nil, fmt.Errorf("%w: empty base path", shared.ErrInvalidInput)
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	songsFile := baseFilepath + "_songs.csv"
	if err := os.WriteFile(songsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{SongsFile: songsFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when imageURL downloads, {dir}/cover.jpg.
//
// A failed cover download is not an error; the README is written without it.
func WriteMarkdownExport(export *SongExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: empty output directory", shared.ErrInvalidInput)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if imageURL != "" {
		if imageData, err := DownloadImage(nil, imageURL); err == nil {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport exports a song list to plain text format at path.
func WriteTextExport(export *SongExport, path string) (string, error) {
	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the whole export, songs included, as indented JSON at path.
func WriteJSONExport(export *SongExport, path string) (string, error) {
	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// TableOptions controls [RenderTable] output.
type TableOptions struct {
	// Offset is added to each row number.
	Offset  int
	Current models.ID
	Liked   func(models.ID) bool
	// Width caps the row length; zero means unlimited.
	Width int
}

// RenderTable writes songs as a box-drawn table.
//
// The now-playing row is green and unplayable rows are dimmed.
func RenderTable(w io.Writer, songs []models.Song, opts TableOptions) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if opts.Width > 0 {
		t.SetAllowedRowLength(opts.Width)
	}

	t.AppendHeader(table.Row{"#", "", "ID", "Title", "Artist", "Length"})

	for i, song := range songs {
		paint := text.Colors{}
		switch {
		case opts.Current != "" && song.ID == opts.Current:
			paint = text.Colors{text.FgGreen}
		case !song.Playable():
			paint = text.Colors{text.FgHiBlack}
		}

		mark := " "
		if opts.Liked != nil && opts.Liked(song.ID) {
			mark = "♥"
		}

		t.AppendRow(table.Row{
			opts.Offset + i + 1,
			paint.Sprint(mark),
			paint.Sprint(song.ID.String()),
			paint.Sprint(song.DisplayTitle()),
			paint.Sprint(song.DisplayArtist()),
			paint.Sprint(durationCell(song)),
		})
	}

	if len(songs) == 0 {
		t.AppendFooter(table.Row{"", "", "", "No songs found"})
	}

	t.Render()
}
