package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/samber/lo"

	"github.com/desertthunder/vibe/internal/formatter"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
)

// Export formats accepted by [ExportOpts].
var Formats = []string{"json", "csv", "markdown", "txt"}

// ExportOpts contains configuration for catalogue exports.
type ExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: vibe_export_{epoch})
	NumWorkers int    // Concurrent selections (default: 3)
	Covers     bool   // Download a cover image for markdown exports
}

// SelectionResult is the outcome of exporting one [Selection].
type SelectionResult struct {
	Name       string         `json:"name"`
	Filters    models.Filters `json:"filters"`
	Songs      int            `json:"songs"`
	Pages      int            `json:"pages"`
	Duplicates int            `json:"duplicates"`
	Files      []string       `json:"files"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
}

// ExportResult summarizes an export run. It is also written as the manifest.
type ExportResult struct {
	StartedAt       time.Time         `json:"started_at"`
	Format          string            `json:"format"`
	TotalSelections int               `json:"total_selections"`
	Successful      int               `json:"successful"`
	Failed          int               `json:"failed"`
	OutputDirectory string            `json:"output_directory"`
	ManifestPath    string            `json:"-"`
	Results         []SelectionResult `json:"results"`
}

type exportJob struct {
	index     int
	selection Selection
}

type exportOutcome struct {
	index  int
	result SelectionResult
}

// Export crawls each selection and writes it to disk in opts.Format.
//
// Selections run on a small worker pool; every catalogue request still goes through the crawler's
// shared rate limiter. A failed selection does not stop the others. A manifest summarizing the run
// is written to {OutputDir}/export_manifest.json.
func (c *Crawler) Export(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	selections []Selection,
	opts ExportOpts,
) (*ExportResult, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("%w: backend not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !lo.Contains(Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", shared.ErrInvalidInput)
	}

	started := time.Now()
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("vibe_export_%d", started.Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	opts.NumWorkers = min(opts.NumWorkers, 10, len(selections))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		StartedAt:       started.UTC(),
		Format:          opts.Format,
		TotalSelections: len(selections),
		OutputDirectory: opts.OutputDir,
		Results:         make([]SelectionResult, len(selections)),
	}

	jobs := make(chan exportJob)
	outcomes := make(chan exportOutcome, len(selections))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go c.exportWorker(ctx, &wg, jobs, outcomes, progress, opts)
	}

	go func() {
		defer close(jobs)
		for i, sel := range selections {
			select {
			case <-ctx.Done():
				return
			case jobs <- exportJob{index: i, selection: sel}:
				sendProgress(progress, queuedSelectionUpdate(i+1, len(selections), sel.Name))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	done := make([]bool, len(selections))
	completed := 0
	for out := range outcomes {
		completed++
		done[out.index] = true
		result.Results[out.index] = out.result

		if out.result.Success {
			result.Successful++
			sendProgress(progress, exportCompletedUpdate(completed, len(selections), out.result))
		} else {
			result.Failed++
			sendProgress(progress, exportFailedUpdate(completed, len(selections), out.result.Name, fmt.Errorf("%s", out.result.Error)))
		}
	}

	for i, ok := range done {
		if ok {
			continue
		}
		reason := "not started"
		if cause := context.Cause(ctx); cause != nil {
			reason = cause.Error()
		}
		result.Failed++
		result.Results[i] = SelectionResult{
			Name:    selections[i].Name,
			Filters: selections[i].Filters,
			Files:   []string{},
			Error:   reason,
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker crawls and writes selections from the jobs channel.
func (c *Crawler) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	outcomes chan<- exportOutcome,
	progress chan<- ProgressUpdate,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		outcomes <- exportOutcome{index: job.index, result: c.exportSelection(ctx, job.selection, progress, opts)}
	}
}

func (c *Crawler) exportSelection(ctx context.Context, sel Selection, progress chan<- ProgressUpdate, opts ExportOpts) SelectionResult {
	result := SelectionResult{Name: sel.Name, Filters: sel.Filters, Files: []string{}}

	crawl, err := c.Crawl(ctx, sel.Name, sel.Filters, progress)
	if crawl != nil {
		result.Songs = len(crawl.Songs)
		result.Pages = crawl.Pages
		result.Duplicates = crawl.Duplicates
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	sendProgress(progress, writingFilesUpdate(sel.Name, opts.Format))

	export := &formatter.SongExport{
		Title:      sel.Name,
		Filters:    sel.Filters,
		Songs:      crawl.Songs,
		ExportedAt: time.Now().UTC(),
	}

	files, err := writeExport(export, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Files = files
	result.Success = true
	return result
}

// writeExport writes one selection in the requested format and returns the files created.
func writeExport(export *formatter.SongExport, opts ExportOpts) ([]string, error) {
	base := slug(export.Title)

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, filepath.Join(opts.OutputDir, base))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.SongsFile, res.MetadataFile}, nil
	case "markdown":
		var imageURL string
		if opts.Covers {
			if song, ok := lo.Find(export.Songs, func(s models.Song) bool { return s.CoverArt != "" }); ok {
				imageURL = song.CoverArt
			}
		}
		res, err := formatter.WriteMarkdownExport(export, filepath.Join(opts.OutputDir, base), imageURL)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil
	case "txt":
		path, err := formatter.WriteTextExport(export, filepath.Join(opts.OutputDir, base+"_songs.txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil
	default:
		path, err := formatter.WriteJSONExport(export, filepath.Join(opts.OutputDir, base+".json"))
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{path}, nil
	}
}

func writeManifest(result *ExportResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// slug turns a selection name into a file name: lowercase letters and digits joined by underscores.
func slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return "catalogue"
	}
	return strings.Join(fields, "_")
}
