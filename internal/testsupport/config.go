package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMethod sets the default transcription back-end on the test config.
func WithMethod(method string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ASR.DefaultMethod = method
	}
}

// WithWhisperEndpoint points the whisper back-end at a test server.
func WithWhisperEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ASR.Whisper.Endpoint = endpoint
	}
}

// WithQwenKey sets the qwen-asr API key on the test config.
func WithQwenKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ASR.Qwen.APIKey = key
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
