package stage

import (
	"encoding/json"
	"time"

	"scribe/internal/services"
	"scribe/internal/transcription"
)

// SegmentRecord is the envelope stages use to hand detected speech intervals
// and exported clip paths from one stage to the next via the task record.
type SegmentRecord struct {
	Index    int           `json:"index"`
	Start    time.Duration `json:"start"`
	End      time.Duration `json:"end"`
	ClipPath string        `json:"clip_path,omitempty"`
}

// EncodeSegments serializes segment records for persistence on the task.
func EncodeSegments(records []SegmentRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stage", "encode segments",
			"segment records are not serializable", err)
	}
	return string(data), nil
}

// ParseSegments parses the segment envelope persisted by an earlier stage.
// An empty string yields no records, matching a task with no detected speech.
func ParseSegments(raw string) ([]SegmentRecord, error) {
	if raw == "" {
		return nil, nil
	}
	var records []SegmentRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, services.Wrap(services.ErrValidation, "stage", "parse segments",
			"segment records missing or invalid; rerun segmentation", err)
	}
	return records, nil
}

// EncodeResults serializes per-segment transcription results.
func EncodeResults(results []transcription.Result) (string, error) {
	data, err := json.Marshal(results)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "stage", "encode results",
			"transcription results are not serializable", err)
	}
	return string(data), nil
}

// ParseResults parses the transcription results persisted by an earlier stage.
func ParseResults(raw string) ([]transcription.Result, error) {
	if raw == "" {
		return nil, nil
	}
	var results []transcription.Result
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, services.Wrap(services.ErrValidation, "stage", "parse results",
			"transcription results missing or invalid; rerun transcription", err)
	}
	return results, nil
}
