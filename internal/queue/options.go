package queue

import (
	"encoding/json"
	"fmt"

	"scribe/internal/config"
	"scribe/internal/services"
)

// TaskOptions are caller-supplied per-task overrides. Zero-value fields fall
// back to the configured defaults; validation happens once at submission so
// the stages can trust persisted values.
type TaskOptions struct {
	// MinSpeechMs overrides the minimum speech interval duration.
	MinSpeechMs int `json:"min_speech_ms,omitempty"`
	// MinSilenceMs overrides the minimum silence gap between intervals.
	MinSilenceMs int `json:"min_silence_ms,omitempty"`

	// ASREndpoint overrides the back-end URL for back-ends that accept one.
	ASREndpoint string `json:"asr_endpoint,omitempty"`
	// ASRAPIKey overrides the back-end credential.
	ASRAPIKey string `json:"asr_api_key,omitempty"`
	// ASRModel overrides the back-end model identifier.
	ASRModel string `json:"asr_model,omitempty"`
}

// IsZero reports whether every override is unset.
func (o TaskOptions) IsZero() bool {
	return o == TaskOptions{}
}

// Validate rejects thresholds outside the accepted range. Unset thresholds
// are valid and mean the configured default.
func (o TaskOptions) Validate() error {
	if err := validateThreshold("min_speech_ms", o.MinSpeechMs); err != nil {
		return err
	}
	return validateThreshold("min_silence_ms", o.MinSilenceMs)
}

func validateThreshold(name string, value int) error {
	if value == 0 {
		return nil
	}
	if value < config.MinThresholdMs || value > config.MaxThresholdMs {
		return services.Wrap(services.ErrValidation, "queue", "options",
			fmt.Sprintf("%s %d is outside the accepted range %d-%d",
				name, value, config.MinThresholdMs, config.MaxThresholdMs), nil)
	}
	return nil
}

// Encode marshals the options for persistence. Zero options encode as the
// empty string so unset overrides cost nothing per row.
func (o TaskOptions) Encode() (string, error) {
	if o.IsZero() {
		return "", nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encode task options: %w", err)
	}
	return string(raw), nil
}

// Options decodes the task's persisted overrides. An empty or malformed
// payload yields zero options; submission-time validation makes malformed
// payloads unreachable in practice.
func (t *Task) Options() TaskOptions {
	var opts TaskOptions
	if t == nil || t.OptionsJSON == "" {
		return opts
	}
	_ = json.Unmarshal([]byte(t.OptionsJSON), &opts)
	return opts
}
