package asr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"scribe/internal/config"
	"scribe/internal/services"
)

// qwenEndpoint is the hosted qwen-asr service. Unlike whisper the endpoint
// is fixed; only the API key and model are configurable.
const qwenEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"

// qwenModels enumerates the accepted model identifiers.
var qwenModels = map[string]struct{}{
	"qwen3-asr-flash": {},
}

// QwenPlugin talks to the hosted qwen-asr service over JSON.
type QwenPlugin struct {
	cfg    config.QwenASR
	client *http.Client

	// endpoint is overridable in tests only.
	endpoint string
}

// NewQwenPlugin returns a qwen-asr back-end using the configured credentials.
func NewQwenPlugin(cfg config.QwenASR) *QwenPlugin {
	return &QwenPlugin{
		cfg:      cfg,
		client:   &http.Client{},
		endpoint: qwenEndpoint,
	}
}

func (p *QwenPlugin) Name() string { return "qwen-asr" }

func (p *QwenPlugin) Describe() Descriptor {
	return Descriptor{
		Name:        "qwen-asr",
		Model:       p.cfg.Model,
		Description: "Hosted qwen-asr transcription service",
		Remote:      true,
	}
}

// Validate requires an API key and a known model. The hosted service has no
// anonymous tier, so a missing key is a configuration error rather than a
// per-request failure.
func (p *QwenPlugin) Validate() error {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return services.Wrap(services.ErrConfiguration, "asr", "qwen-asr",
			"api key is required", nil)
	}
	if _, ok := qwenModels[p.cfg.Model]; !ok {
		return services.Wrap(services.ErrConfiguration, "asr", "qwen-asr",
			fmt.Sprintf("unsupported model %q", p.cfg.Model), nil)
	}
	return nil
}

type qwenRequest struct {
	Model string    `json:"model"`
	Input qwenInput `json:"input"`
}

type qwenInput struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role    string        `json:"role"`
	Content []qwenContent `json:"content"`
}

type qwenContent struct {
	Audio string `json:"audio,omitempty"`
	Text  string `json:"text,omitempty"`
}

type qwenResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []qwenContent `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transcribe sends the clip inline as a base64 data URI and returns the
// recognized text.
func (p *QwenPlugin) Transcribe(ctx context.Context, clipPath string, opts Options) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	clip, err := os.ReadFile(clipPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "asr", "qwen-asr",
			fmt.Sprintf("read clip %s", clipPath), err)
	}

	content := []qwenContent{{
		Audio: "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(clip),
	}}
	if opts.Language != "" {
		content = append(content, qwenContent{Text: "language: " + opts.Language})
	}

	model := p.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	payload, err := json.Marshal(qwenRequest{
		Model: model,
		Input: qwenInput{Messages: []qwenMessage{{Role: "user", Content: content}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal qwen request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build qwen request: %w", err)
	}
	apiKey := p.cfg.APIKey
	if opts.APIKey != "" {
		apiKey = opts.APIKey
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransportError("qwen-asr", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "asr", "qwen-asr",
			"read response body", err)
	}

	if err := classifyHTTPStatus("qwen-asr", resp.StatusCode, body); err != nil {
		return "", err
	}

	var decoded qwenResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrTransient, "asr", "qwen-asr",
			"decode response", err)
	}
	if decoded.Code != "" {
		return "", services.Wrap(services.ErrTransient, "asr", "qwen-asr",
			fmt.Sprintf("service error %s: %s", decoded.Code, decoded.Message), nil)
	}

	var parts []string
	for _, choice := range decoded.Output.Choices {
		for _, c := range choice.Message.Content {
			if trimmed := strings.TrimSpace(c.Text); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

var _ Plugin = (*QwenPlugin)(nil)
