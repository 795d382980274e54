package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/asr"
	"scribe/internal/config"
)

func newPluginsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List transcription back-ends and their readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runPlugins(cmd, cfg)
		},
	}
}

func runPlugins(cmd *cobra.Command, cfg *config.Config) error {
	registry, err := asr.NewRegistry(cfg)
	if err != nil {
		return err
	}

	descriptors := registry.Describe()
	rows := make([][]string, 0, len(descriptors))
	for _, desc := range descriptors {
		name := desc.Name
		if name == registry.Default() {
			name += " (default)"
		}
		ready := "yes"
		detail := desc.Description
		if _, err := registry.Resolve(desc.Name); err != nil {
			ready = "no"
			detail = err.Error()
		}
		rows = append(rows, []string{
			name,
			desc.Model,
			yesNo(desc.Remote),
			ready,
			detail,
		})
	}

	table := renderTable(
		[]string{"Plugin", "Model", "Remote", "Ready", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}
