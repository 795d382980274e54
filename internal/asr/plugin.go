package asr

import (
	"context"
	"time"
)

// Options carries per-request transcription parameters.
type Options struct {
	// Language is an optional hint passed to back-ends that accept one.
	Language string
	// Timeout bounds a single clip transcription. Zero means no per-call
	// deadline beyond the caller's context.
	Timeout time.Duration

	// Endpoint overrides the configured service URL for back-ends that
	// accept one. Empty means the configured endpoint.
	Endpoint string
	// APIKey overrides the configured credential. Empty means the
	// configured key.
	APIKey string
	// Model overrides the configured model identifier. Empty means the
	// configured model.
	Model string
}

// Descriptor describes a back-end for the plugins listing.
type Descriptor struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	Description string `json:"description"`
	// Remote is true for hosted services that require credentials.
	Remote bool `json:"remote"`
}

// Plugin is one transcription back-end. Implementations must be safe for
// concurrent use; the dispatcher fans clip requests out across goroutines.
type Plugin interface {
	// Name returns the registry key, e.g. "whisper".
	Name() string
	// Describe reports back-end metadata for the plugins listing.
	Describe() Descriptor
	// Validate checks the back-end's configuration without performing a
	// transcription. Called at registry construction.
	Validate() error
	// Transcribe sends one exported clip to the back-end and returns the
	// recognized text. Whitespace-only results are legitimate and indicate
	// a clip with no recognizable speech.
	Transcribe(ctx context.Context, clipPath string, opts Options) (string, error)
}
