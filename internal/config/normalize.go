package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeASR()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeASR() {
	c.ASR.DefaultMethod = strings.ToLower(strings.TrimSpace(c.ASR.DefaultMethod))
	if c.ASR.DefaultMethod == "" {
		c.ASR.DefaultMethod = defaultMethod
	}
	if c.ASR.RequestTimeout <= 0 {
		c.ASR.RequestTimeout = defaultRequestTimeout
	}
	if c.ASR.SegmentConcurrency <= 0 {
		c.ASR.SegmentConcurrency = defaultSegmentConcurrency
	}
	c.ASR.Whisper.Endpoint = strings.TrimSpace(c.ASR.Whisper.Endpoint)
	if c.ASR.Whisper.Model == "" {
		c.ASR.Whisper.Model = defaultWhisperModel
	}
	if c.ASR.Qwen.Model == "" {
		c.ASR.Qwen.Model = defaultQwenModel
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.TaskConcurrency <= 0 {
		c.Workflow.TaskConcurrency = defaultTaskConcurrency
	}
	if c.Batch.MaxFiles <= 0 {
		c.Batch.MaxFiles = defaultBatchMaxFiles
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
