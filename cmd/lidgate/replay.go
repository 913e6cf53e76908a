package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/lidgate/internal/scenario"
)

type replayOptions struct {
	*rootOptions
	Format string
}

func newReplayCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &replayOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Run scripted switch and touchpad scenarios",
		Long: `Replay feeds scripted lid and touchpad activity through the gate
pipeline using in-memory devices and a virtual clock, and prints the events
delivered by each dispatch.

Examples:
  lidgate replay testdata/lid_switch.yaml
  lidgate replay --format json testdata/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	return cmd
}

func runReplay(opts *replayOptions, cmd *cobra.Command, paths []string) error {
	if opts.Format != "text" && opts.Format != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
	}

	runner := scenario.NewRunner(opts.logger)
	out := cmd.OutOrStdout()
	for _, path := range paths {
		s, err := scenario.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res, err := runner.Run(s)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if opts.Format == "json" {
			data, err := scenario.TraceJSON(res)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}
		fmt.Fprint(out, scenario.FormatTrace(res))
	}
	return nil
}
