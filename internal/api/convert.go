package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"scribe/internal/queue"
	"scribe/internal/stage"
	"scribe/internal/workflow"
)

// FromTask converts a queue record to its API representation.
func FromTask(task *queue.Task) Task {
	if task == nil {
		return Task{}
	}

	dto := Task{
		ID:       task.ID,
		TaskID:   task.TaskID,
		BatchID:  task.BatchID,
		Filename: task.Filename,
		Method:   task.Method,
		Language: task.Language,
		Formats:  task.FormatList(),
		Status:   string(task.Status),
		Progress: TaskProgress{
			Stage:   task.ProgressStage,
			Percent: task.ProgressPercent,
			Message: task.ProgressMessage,
		},
		ErrorMessage: task.ErrorMessage,
		Segments: SegmentCounts{
			Total:     task.SegmentsTotal,
			Succeeded: task.SegmentsSucceeded,
			Empty:     task.SegmentsEmpty,
			Failed:    task.SegmentsFailed,
		},
		Entries: task.EntriesTotal,
	}

	if raw := strings.TrimSpace(task.FilesJSON); raw != "" {
		var files map[string]string
		if err := json.Unmarshal([]byte(raw), &files); err == nil && len(files) > 0 {
			dto.Files = files
		}
	}
	if !task.CreatedAt.IsZero() {
		dto.CreatedAt = FormatTime(task.CreatedAt)
	}
	if !task.UpdatedAt.IsZero() {
		dto.UpdatedAt = FormatTime(task.UpdatedAt)
	}
	if task.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*task.LastHeartbeat)
	}
	return dto
}

// FromTasks converts a slice of queue records into API DTOs.
func FromTasks(tasks []*queue.Task) []Task {
	if len(tasks) == 0 {
		return nil
	}
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, FromTask(task))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastTask != nil {
		last := FromTask(summary.LastTask)
		wf.LastTask = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
