package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription task.
type Status string

const (
	StatusPending      Status = "pending"
	StatusSegmenting   Status = "segmenting"
	StatusSegmented    Status = "segmented"
	StatusExporting    Status = "exporting"
	StatusExported     Status = "exported"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusAssembling   Status = "assembling"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when tasks are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusSegmenting,
	StatusSegmented,
	StatusExporting,
	StatusExported,
	StatusTranscribing,
	StatusTranscribed,
	StatusAssembling,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusSegmenting:   {},
	StatusExporting:    {},
	StatusTranscribing: {},
	StatusAssembling:   {},
}

// basePercents anchor overall task progress at the start of each stage.
var basePercents = map[Status]float64{
	StatusPending:      0,
	StatusSegmenting:   5,
	StatusSegmented:    20,
	StatusExporting:    20,
	StatusExported:     35,
	StatusTranscribing: 35,
	StatusTranscribed:  90,
	StatusAssembling:   90,
	StatusCompleted:    100,
}

// BasePercent returns the overall progress anchor for a status.
func BasePercent(status Status) float64 {
	return basePercents[status]
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalTasks       int
	Error            string
}

// Task represents a transcription task persisted in SQLite.
type Task struct {
	ID       int64
	TaskID   string
	BatchID  string
	Filename string

	// SourcePath is the staged audio file the task operates on.
	SourcePath string
	// WorkDir holds exported clips and intermediate artifacts.
	WorkDir string
	// OutputDir holds the assembled subtitle files.
	OutputDir string

	Method   string
	Language string
	// Formats is the comma-separated list of requested subtitle formats.
	Formats string

	Status       Status
	ErrorMessage string

	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string

	// OptionsJSON carries caller-supplied per-task overrides (segmentation
	// thresholds, back-end endpoint/credential/model). Empty means the
	// configured defaults apply.
	OptionsJSON string

	// SegmentsJSON carries the detected speech intervals and exported clip
	// paths between stages.
	SegmentsJSON string
	// ResultsJSON carries per-segment transcription outcomes.
	ResultsJSON string
	// FilesJSON maps assembled format names to output paths.
	FilesJSON string

	SegmentsTotal     int
	SegmentsSucceeded int
	SegmentsEmpty     int
	SegmentsFailed    int
	// EntriesTotal is the number of subtitle entries the assembly stage
	// rendered.
	EntriesTotal int

	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (t Task) IsProcessing() bool {
	return IsProcessingStatus(t.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the task has finished, successfully or not.
func (t Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// FormatList splits the stored format string into individual format names.
func (t Task) FormatList() []string {
	if strings.TrimSpace(t.Formats) == "" {
		return nil
	}
	parts := strings.Split(t.Formats, ",")
	formats := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			formats = append(formats, trimmed)
		}
	}
	return formats
}

// SetProgress updates all three progress fields together.
func (t *Task) SetProgress(stage, message string, percent float64) {
	t.ProgressStage = stage
	t.ProgressMessage = message
	t.ProgressPercent = percent
}

// SetFailed marks the task as failed with the given error message.
func (t *Task) SetFailed(message string) {
	t.Status = StatusFailed
	t.ErrorMessage = message
	t.ProgressStage = "Failed"
	t.ProgressMessage = message
	t.LastHeartbeat = nil
}
