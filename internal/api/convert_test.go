package api_test

import (
	"reflect"
	"testing"
	"time"

	"scribe/internal/api"
	"scribe/internal/queue"
	"scribe/internal/stage"
	"scribe/internal/workflow"
)

func TestFromTaskMapsFields(t *testing.T) {
	heartbeat := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	task := &queue.Task{
		ID:                7,
		TaskID:            "task-7",
		BatchID:           "batch-1",
		Filename:          "lecture.wav",
		Method:            "whisper",
		Language:          "en",
		Formats:           "srt,vtt",
		Status:            queue.StatusTranscribing,
		ProgressStage:     "Transcribing",
		ProgressPercent:   42.5,
		ProgressMessage:   "Transcribed 3/8 segments",
		SegmentsTotal:     8,
		SegmentsSucceeded: 3,
		FilesJSON:         `{"srt":"/out/lecture.srt"}`,
		CreatedAt:         heartbeat.Add(-time.Minute),
		UpdatedAt:         heartbeat,
		LastHeartbeat:     &heartbeat,
	}

	dto := api.FromTask(task)
	if dto.TaskID != "task-7" || dto.Status != "transcribing" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if !reflect.DeepEqual(dto.Formats, []string{"srt", "vtt"}) {
		t.Fatalf("formats = %v", dto.Formats)
	}
	if dto.Progress.Percent != 42.5 || dto.Progress.Stage != "Transcribing" {
		t.Fatalf("progress = %+v", dto.Progress)
	}
	if dto.Segments.Total != 8 || dto.Segments.Succeeded != 3 {
		t.Fatalf("segments = %+v", dto.Segments)
	}
	if dto.Files["srt"] != "/out/lecture.srt" {
		t.Fatalf("files = %v", dto.Files)
	}
	if dto.LastHeartbeat == "" || dto.CreatedAt == "" {
		t.Fatalf("timestamps missing: %+v", dto)
	}
}

func TestFromTaskNil(t *testing.T) {
	dto := api.FromTask(nil)
	if dto.TaskID != "" || dto.Files != nil {
		t.Fatalf("expected zero dto, got %+v", dto)
	}
}

func TestFromTaskIgnoresMalformedFilesJSON(t *testing.T) {
	dto := api.FromTask(&queue.Task{FilesJSON: "{not-json"})
	if dto.Files != nil {
		t.Fatalf("expected nil files, got %v", dto.Files)
	}
}

func TestFromStatusSummarySortsStageHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running: true,
		QueueStats: map[queue.Status]int{
			queue.StatusPending: 2,
		},
		StageHealth: map[string]stage.Health{
			"transcriber": stage.Unhealthy("transcriber", "no endpoint"),
			"segmenter":   stage.Healthy("segmenter"),
		},
	}

	wf := api.FromStatusSummary(summary)
	if !wf.Running {
		t.Fatal("running not mapped")
	}
	if wf.QueueStats["pending"] != 2 {
		t.Fatalf("stats = %v", wf.QueueStats)
	}
	if len(wf.StageHealth) != 2 || wf.StageHealth[0].Name != "segmenter" || wf.StageHealth[1].Name != "transcriber" {
		t.Fatalf("stage health order: %+v", wf.StageHealth)
	}
	if wf.StageHealth[1].Ready || wf.StageHealth[1].Detail != "no endpoint" {
		t.Fatalf("unhealthy stage mangled: %+v", wf.StageHealth[1])
	}
}

func TestFormatTimeZero(t *testing.T) {
	if got := api.FormatTime(time.Time{}); got != "" {
		t.Fatalf("zero time formatted as %q", got)
	}
}
