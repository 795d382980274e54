package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue database health and task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				return runStatus(cmd, cfg, store)
			})
		},
	}
}

func runStatus(cmd *cobra.Command, cfg *config.Config, store *queue.Store) error {
	colorize := shouldColorize(cmd.OutOrStdout())
	lines := make([]string, 0, 16)

	health, err := store.CheckHealth(cmd.Context())
	if err != nil {
		return err
	}

	lines = append(lines, renderSectionHeader("Queue Database", colorize)...)
	lines = append(lines, renderStatusLine("Path", statusInfo, health.DBPath, colorize))
	lines = append(lines, renderBoolStatus("Exists", health.DatabaseExists, colorize))
	lines = append(lines, renderBoolStatus("Readable", health.DatabaseReadable, colorize))
	lines = append(lines, renderBoolStatus("Schema", health.TableExists, colorize))
	lines = append(lines, renderBoolStatus("Integrity", health.IntegrityCheck, colorize))
	if health.Error != "" {
		lines = append(lines, renderStatusLine("Error", statusError, health.Error, colorize))
	}

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Tasks", colorize)...)
	lines = append(lines, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", health.TotalTasks), colorize))
	for _, status := range sortedStatuses(stats) {
		kind := statusInfo
		if status == queue.StatusFailed {
			kind = statusWarn
		}
		label := strings.ReplaceAll(string(status), "_", " ")
		lines = append(lines, renderStatusLine(label, kind, fmt.Sprintf("%d", stats[status]), colorize))
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
	return nil
}

func renderBoolStatus(label string, ok bool, colorize bool) string {
	kind := statusOK
	if !ok {
		kind = statusError
	}
	return renderStatusLine(label, kind, yesNo(ok), colorize)
}

func sortedStatuses(stats map[queue.Status]int) []queue.Status {
	statuses := make([]queue.Status, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	return statuses
}
