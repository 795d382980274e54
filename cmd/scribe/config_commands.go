package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the scribe configuration file",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(path)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return err
				}
				target = expanded
			}

			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Where to write the file (default ~/.config/scribe/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check that the configuration file parses and validates",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			_, resolved, exists, err := config.Load(path)
			if err != nil {
				return err
			}
			if !exists {
				fmt.Fprintf(cmd.OutOrStdout(), "No configuration file at %s; built-in defaults are valid.\n", resolved)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid.\n", resolved)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var sample bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sample {
				fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
				return nil
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			printResolvedConfig(cmd, cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sample, "sample", false, "Print the sample configuration instead of resolved values")
	return cmd
}

func printResolvedConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := make([]string, 0, 24)

	lines = append(lines, renderSectionHeader("Paths", colorize)...)
	lines = append(lines, renderStatusLine("Upload dir", statusInfo, cfg.Paths.UploadDir, colorize))
	lines = append(lines, renderStatusLine("Output dir", statusInfo, cfg.Paths.OutputDir, colorize))
	lines = append(lines, renderStatusLine("Log dir", statusInfo, cfg.Paths.LogDir, colorize))
	lines = append(lines, renderStatusLine("API bind", statusInfo, cfg.Paths.APIBind, colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Transcription", colorize)...)
	lines = append(lines, renderStatusLine("Default method", statusInfo, cfg.ASR.DefaultMethod, colorize))
	lines = append(lines, renderStatusLine("Language", statusInfo, orUnset(cfg.ASR.Language), colorize))
	lines = append(lines, renderStatusLine("Request timeout", statusInfo, fmt.Sprintf("%ds", cfg.ASR.RequestTimeout), colorize))
	lines = append(lines, renderStatusLine("Segment workers", statusInfo, fmt.Sprintf("%d", cfg.ASR.SegmentConcurrency), colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Segmentation", colorize)...)
	lines = append(lines, renderStatusLine("Min speech", statusInfo, fmt.Sprintf("%d ms", cfg.VAD.MinSpeechMs), colorize))
	lines = append(lines, renderStatusLine("Min silence", statusInfo, fmt.Sprintf("%d ms", cfg.VAD.MinSilenceMs), colorize))
	lines = append(lines, renderStatusLine("Threshold", statusInfo, fmt.Sprintf("%.1f dBFS", cfg.VAD.ThresholdDBFS), colorize))
	lines = append(lines, renderStatusLine("Max clip", statusInfo, fmt.Sprintf("%d s", cfg.VAD.MaxClipSec), colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Workflow", colorize)...)
	lines = append(lines, renderStatusLine("Concurrency", statusInfo, fmt.Sprintf("%d", cfg.Workflow.TaskConcurrency), colorize))
	lines = append(lines, renderStatusLine("Poll interval", statusInfo, fmt.Sprintf("%ds", cfg.Workflow.QueuePollInterval), colorize))
	lines = append(lines, renderStatusLine("Retry interval", statusInfo, fmt.Sprintf("%ds", cfg.Workflow.ErrorRetryInterval), colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Limits", colorize)...)
	lines = append(lines, renderStatusLine("Max upload", statusInfo, fmt.Sprintf("%d MB", cfg.Server.MaxUploadMB), colorize))
	lines = append(lines, renderStatusLine("Batch limit", statusInfo, fmt.Sprintf("%d files", cfg.Batch.MaxFiles), colorize))

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func orUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(auto)"
	}
	return value
}
