package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validateASR(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateVAD() error {
	if c.VAD.MinSpeechMs < MinThresholdMs || c.VAD.MinSpeechMs > MaxThresholdMs {
		return fmt.Errorf("vad.min_speech_ms must be between %d and %d", MinThresholdMs, MaxThresholdMs)
	}
	if c.VAD.MinSilenceMs < MinThresholdMs || c.VAD.MinSilenceMs > MaxThresholdMs {
		return fmt.Errorf("vad.min_silence_ms must be between %d and %d", MinThresholdMs, MaxThresholdMs)
	}
	if c.VAD.ThresholdDBFS >= 0 {
		return errors.New("vad.threshold_dbfs must be negative")
	}
	if c.VAD.MaxClipSec <= 0 {
		return errors.New("vad.max_clip_sec must be positive")
	}
	return nil
}

func (c *Config) validateASR() error {
	switch c.ASR.DefaultMethod {
	case "whisper", "qwen-asr":
	default:
		return fmt.Errorf("asr.default_method: unknown method %q", c.ASR.DefaultMethod)
	}
	if c.ASR.RequestTimeout <= 0 {
		return errors.New("asr.request_timeout must be positive")
	}
	if c.ASR.SegmentConcurrency <= 0 {
		return errors.New("asr.segment_concurrency must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.TaskConcurrency <= 0 {
		return errors.New("workflow.task_concurrency must be positive")
	}
	if c.Batch.MaxFiles <= 0 {
		return errors.New("batch.max_files must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
