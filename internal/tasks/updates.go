package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, zero when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CrawlCatalogue Phase = iota
	WriteFiles
	ExportSelection
)

func (p Phase) String() string {
	switch p {
	case CrawlCatalogue:
		return "crawl_catalogue"
	case WriteFiles:
		return "write_files"
	case ExportSelection:
		return "export_selection"
	default:
		return ""
	}
}

func crawlPageUpdate(page int, name string, songs int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CrawlCatalogue,
		Step:    page,
		Message: fmt.Sprintf("%s: page %d (%d songs)", name, page, songs),
	}
}

func queuedSelectionUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSelection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Crawling: %s...", step, total, name),
	}
}

func writingFilesUpdate(name, format string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFiles,
		Message: fmt.Sprintf("Writing %s as %s...", name, format),
	}
}

func exportCompletedUpdate(step, total int, res SelectionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSelection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d songs, %d files)", step, total, res.Name, res.Songs, len(res.Files)),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSelection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
