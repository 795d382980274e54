package asr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"
	"scribe/internal/services"
)

// WhisperPlugin talks to a self-hosted faster-whisper compatible HTTP
// server. The server accepts a multipart upload and responds with plain
// text, one recognized line per row.
type WhisperPlugin struct {
	cfg    config.Whisper
	client *http.Client
}

// NewWhisperPlugin returns a whisper back-end bound to the configured
// endpoint.
func NewWhisperPlugin(cfg config.Whisper) *WhisperPlugin {
	return &WhisperPlugin{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (p *WhisperPlugin) Name() string { return "whisper" }

func (p *WhisperPlugin) Describe() Descriptor {
	return Descriptor{
		Name:        "whisper",
		Model:       p.cfg.Model,
		Description: "Self-hosted faster-whisper transcription server",
		Remote:      false,
	}
}

// Validate checks that the endpoint parses as an absolute URL.
func (p *WhisperPlugin) Validate() error {
	endpoint := strings.TrimSpace(p.cfg.Endpoint)
	if endpoint == "" {
		return services.Wrap(services.ErrConfiguration, "asr", "whisper",
			"endpoint is not configured", nil)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || !parsed.IsAbs() {
		return services.Wrap(services.ErrConfiguration, "asr", "whisper",
			fmt.Sprintf("endpoint %q is not an absolute URL", endpoint), err)
	}
	return nil
}

// Transcribe uploads the clip as a multipart form and returns the
// recognized text with one line per server row.
func (p *WhisperPlugin) Transcribe(ctx context.Context, clipPath string, opts Options) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	body, contentType, err := p.buildRequestBody(clipPath, opts)
	if err != nil {
		return "", err
	}

	endpoint := p.cfg.Endpoint
	if opts.Endpoint != "" {
		endpoint = opts.Endpoint
	}
	apiKey := p.cfg.APIKey
	if opts.APIKey != "" {
		apiKey = opts.APIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build whisper request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransportError("whisper", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "asr", "whisper",
			"read response body", err)
	}

	if err := classifyHTTPStatus("whisper", resp.StatusCode, payload); err != nil {
		return "", err
	}

	return normalizeLines(string(payload)), nil
}

func (p *WhisperPlugin) buildRequestBody(clipPath string, opts Options) (*bytes.Buffer, string, error) {
	clip, err := os.Open(clipPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrNotFound, "asr", "whisper",
			fmt.Sprintf("open clip %s", clipPath), err)
	}
	defer clip.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(clipPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, clip); err != nil {
		return nil, "", fmt.Errorf("copy clip into form: %w", err)
	}
	model := p.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	if err := writer.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if opts.Language != "" {
		if err := writer.WriteField("language", opts.Language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return nil, "", fmt.Errorf("write response format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// normalizeLines joins the server's text rows into a single line of speech,
// dropping blank rows.
func normalizeLines(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

func classifyTransportError(backend string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "asr", backend, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("asr: %s: %w", backend, err)
	}
	return services.Wrap(services.ErrTransient, "asr", backend, "request failed", err)
}

func classifyHTTPStatus(backend string, status int, payload []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "asr", backend,
			fmt.Sprintf("authentication rejected (status %d)", status), nil)
	case status >= 400 && status < 500:
		return services.Wrap(services.ErrValidation, "asr", backend,
			fmt.Sprintf("request rejected (status %d): %s", status, truncate(payload, 200)), nil)
	default:
		return services.Wrap(services.ErrTransient, "asr", backend,
			fmt.Sprintf("server error (status %d)", status), nil)
	}
}

func truncate(payload []byte, limit int) string {
	s := strings.TrimSpace(string(payload))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

var _ Plugin = (*WhisperPlugin)(nil)
