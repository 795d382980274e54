package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/asr"
	"scribe/internal/assembling"
	"scribe/internal/batch"
	"scribe/internal/config"
	"scribe/internal/exporting"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/segmenting"
	"scribe/internal/transcribing"
	"scribe/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var method string
	var language string
	var formats []string
	var verbose bool
	var taskOptions queue.TaskOptions

	cmd := &cobra.Command{
		Use:   "run <audio-file> [audio-file...]",
		Short: "Transcribe audio files and wait for the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				return runLocal(cmd, cfg, store, args, runOptions{
					method:    method,
					language:  language,
					formats:   formats,
					verbose:   verbose,
					overrides: taskOptions,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "Transcription back-end (default from config)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Language hint passed to the back-end")
	cmd.Flags().StringSliceVarP(&formats, "formats", "f", nil, "Subtitle formats to produce (srt, vtt, lrc, txt)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show pipeline logs while processing")
	cmd.Flags().IntVar(&taskOptions.MinSpeechMs, "min-speech-ms", 0, "Minimum speech duration in milliseconds (default from config)")
	cmd.Flags().IntVar(&taskOptions.MinSilenceMs, "min-silence-ms", 0, "Minimum silence gap in milliseconds (default from config)")
	cmd.Flags().StringVar(&taskOptions.ASREndpoint, "asr-url", "", "Back-end endpoint override")
	cmd.Flags().StringVar(&taskOptions.ASRAPIKey, "asr-key", "", "Back-end API key override")
	cmd.Flags().StringVar(&taskOptions.ASRModel, "asr-model", "", "Back-end model override")
	return cmd
}

type runOptions struct {
	method    string
	language  string
	formats   []string
	verbose   bool
	overrides queue.TaskOptions
}

func runLocal(cmd *cobra.Command, cfg *config.Config, store *queue.Store, files []string, opts runOptions) error {
	registry, err := asr.NewRegistry(cfg)
	if err != nil {
		return err
	}

	var logger *slog.Logger
	if opts.verbose {
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return err
		}
	} else {
		logger = logging.NewNop()
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(strings.TrimSpace(file))
		if err != nil {
			return fmt.Errorf("resolve %s: %w", file, err)
		}
		paths = append(paths, abs)
	}

	coordinator := batch.New(cfg, store, logger)
	sub, err := coordinator.Submit(cmd.Context(), batch.Request{
		SourcePaths: paths,
		Method:      opts.method,
		Language:    opts.language,
		Formats:     opts.formats,
		Options:     opts.overrides,
	})
	if err != nil {
		return err
	}

	hub := progress.NewHub()
	defer hub.Close()

	bar := newBatchProgress(!opts.verbose && shouldColorize(cmd.ErrOrStderr()), len(sub.Tasks))
	for _, task := range sub.Tasks {
		bar.watch(task.TaskID, hub.Subscribe(task.TaskID))
	}

	manager := workflow.NewManager(cfg, store, hub, workflow.StageSet{
		Segmenter:   segmenting.New(cfg, store, hub, logger),
		Exporter:    exporting.New(cfg, store, hub, logger),
		Transcriber: transcribing.New(cfg, store, registry, hub, logger),
		Assembler:   assembling.New(cfg, store, hub, logger),
	}, logger)
	if err := manager.Start(cmd.Context()); err != nil {
		return err
	}
	defer manager.Stop()

	report, err := coordinator.Wait(cmd.Context(), sub.BatchID, time.Second)
	bar.finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderRunReport(report))
	if report.Completed == 0 {
		return fmt.Errorf("all %d files failed", report.Total)
	}
	if report.Failed > 0 {
		fmt.Fprintf(out, "\n%d of %d files failed\n", report.Failed, report.Total)
	}
	return nil
}

func renderRunReport(report *batch.Report) string {
	rows := make([][]string, 0, len(report.Tasks))
	for _, task := range report.Tasks {
		detail := task.OutputDir
		if task.Status == queue.StatusFailed {
			detail = task.ErrorMessage
		}
		rows = append(rows, []string{
			task.Filename,
			string(task.Status),
			fmt.Sprintf("%d/%d", task.SegmentsSucceeded, task.SegmentsTotal),
			detail,
		})
	}
	table := renderTable(
		[]string{"File", "Status", "Segments", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
	summary := fmt.Sprintf("%d completed, %d failed, %d segments, %d subtitle entries\n",
		report.Completed, report.Failed, report.TotalSegments, report.TotalEntries)
	return table + summary + "\n"
}
