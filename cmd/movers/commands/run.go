package commands

import (
	"github.com/spf13/cobra"

	"github.com/paveg/movers/internal/config"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ranking jobs of a configuration file",
		Long: `Run loads a YAML or JSON configuration, applies MOVERS_* environment
overrides and runs every job. Jobs sharing a source load it once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			return opts.execute(cmd, config.LoadFromEnv(cfg))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "movers.yaml", "configuration file (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&opts.digest, "digest", "", "write chat analysis data for all jobs to this file")
	return cmd
}
