package config

const (
	defaultUploadDir          = "~/.local/share/scribe/uploads"
	defaultOutputDir          = "~/.local/share/scribe/output"
	defaultLogDir             = "~/.local/share/scribe/logs"
	defaultAPIBind            = "127.0.0.1:8315"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMinSpeechMs        = 500
	defaultMinSilenceMs       = 500
	defaultThresholdDBFS      = -40.0
	defaultMaxClipSec         = 60
	defaultMethod             = "whisper"
	defaultRequestTimeout     = 60
	defaultSegmentConcurrency = 4
	defaultWhisperEndpoint    = "http://127.0.0.1:8000/v1/audio/transcriptions"
	defaultWhisperModel       = "Systran/faster-whisper-large-v2"
	defaultQwenModel          = "qwen3-asr-flash"
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5
	defaultTaskConcurrency    = 2
	defaultBatchMaxFiles      = 10
	defaultMaxUploadMB        = 100
	defaultNtfyRequestTimeout = 10
)

// Bounds for caller-supplied VAD thresholds. Values outside this range are
// rejected at submission time.
const (
	MinThresholdMs = 100
	MaxThresholdMs = 5000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		VAD: VAD{
			MinSpeechMs:   defaultMinSpeechMs,
			MinSilenceMs:  defaultMinSilenceMs,
			ThresholdDBFS: defaultThresholdDBFS,
			MaxClipSec:    defaultMaxClipSec,
		},
		ASR: ASR{
			DefaultMethod:      defaultMethod,
			RequestTimeout:     defaultRequestTimeout,
			SegmentConcurrency: defaultSegmentConcurrency,
			Whisper: Whisper{
				Endpoint: defaultWhisperEndpoint,
				Model:    defaultWhisperModel,
			},
			Qwen: QwenASR{
				Model: defaultQwenModel,
			},
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			TaskConcurrency:    defaultTaskConcurrency,
		},
		Batch: Batch{
			MaxFiles: defaultBatchMaxFiles,
		},
		Server: Server{
			MaxUploadMB: defaultMaxUploadMB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
