package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paveg/movers/internal/config"
)

type presetOptions struct {
	input    string
	output   string
	baseline string
	current  string
	limit    int
}

func newPresetCmd(opts *rootOptions) *cobra.Command {
	var p presetOptions

	cmd := &cobra.Command{
		Use:   "preset <name>",
		Short: "Run a built-in survey ranking",
		Long: fmt.Sprintf(`Run one of the built-in rankings over a commercial-district survey export.

Available presets: %s`, strings.Join(config.PresetNames(), ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.PresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.Preset(args[0])
			if err != nil {
				return err
			}

			if p.input != "" {
				job.Source = config.Source{Path: p.input}
			}
			if p.output != "" {
				job.Output.Path = p.output
			}
			if p.baseline != "" {
				job.Baseline = p.baseline
			}
			if p.current != "" {
				job.Current = p.current
			}
			if cmd.Flags().Changed("limit") {
				job.Limit = p.limit
			}

			cfg := config.LoadFromEnv(config.NewConfig())
			cfg.Jobs = []config.Job{job}
			return opts.execute(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&p.input, "input", "i", "", "survey file (csv, json, jsonl or parquet)")
	cmd.Flags().StringVarP(&p.output, "output", "o", "", "ranking file (.json or .csv)")
	cmd.Flags().StringVar(&p.baseline, "baseline", "", "baseline period (default "+config.DefaultBaseline+")")
	cmd.Flags().StringVar(&p.current, "current", "", "current period (default "+config.DefaultCurrent+")")
	cmd.Flags().IntVarP(&p.limit, "limit", "n", config.DefaultLimit, "number of movers per ranking")
	cmd.Flags().StringVar(&opts.digest, "digest", "", "write chat analysis data to this file")
	return cmd
}
