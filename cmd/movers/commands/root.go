// Package commands implements the movers command line.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/paveg/movers/internal/config"
	"github.com/paveg/movers/internal/digest"
	mio "github.com/paveg/movers/internal/io"
	"github.com/paveg/movers/internal/logging"
	"github.com/paveg/movers/internal/runner"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	verbose  bool
	logDir   string
	envFiles []string
	digest   string

	logCloser io.Closer
}

// Execute runs the movers command line
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "movers",
		Short: "Rank commercial districts by period-over-period change",
		Long: `movers aggregates commercial-district survey rows per key and period,
computes the percentage change between two periods and publishes the top
movers, optionally one ranking per axis value such as weekday or category.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv(opts.envFiles...)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.logCloser != nil {
				return opts.logCloser.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	cmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "directory for the rotating log file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	cmd.AddCommand(
		newRunCmd(opts),
		newPresetCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// execute runs cfg and reports every job on the command's output
func (o *rootOptions) execute(cmd *cobra.Command, cfg config.Config) error {
	if err := o.setupLogging(cmd, cfg); err != nil {
		return err
	}

	r := runner.New(cfg)
	results, runErr := r.Run(cmd.Context())

	out := cmd.OutOrStdout()
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(out, "FAIL %s: %v\n", res.Job, res.Err)
		case res.Output != "":
			fmt.Fprintf(out, "ok   %s: %d rankings -> %s\n", res.Job, res.Ranking.Len(), res.Output)
		default:
			fmt.Fprintf(out, "ok   %s: %d rankings\n", res.Job, res.Ranking.Len())
		}
	}

	if r.Metrics().IsEnabled() {
		s := r.Metrics().GetSummary()
		log.Info().
			Int("jobs", s.TotalJobs).
			Int("failed", s.FailedJobs).
			Int64("rows", s.TotalRows).
			Int("records", s.TotalRecords).
			Int("excluded", s.TotalExcluded).
			Dur("duration", s.TotalDuration).
			Msg("run summary")
	}

	if o.digest != "" {
		if err := writeDigest(o.digest, results); err != nil {
			return err
		}
	}

	return runErr
}

func (o *rootOptions) setupLogging(cmd *cobra.Command, cfg config.Config) error {
	dir := o.logDir
	if dir == "" {
		dir = cfg.LogDir
	}
	closer, err := logging.Init(logging.Options{
		Verbose: o.verbose || cfg.VerboseLogging,
		Dir:     dir,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	o.logCloser = closer
	return nil
}

// writeDigest stores the chat analysis data of every successful job
func writeDigest(path string, results []runner.JobResult) error {
	data := digest.Data{}
	for _, res := range results {
		if res.Ranking != nil {
			data.Merge(digest.Summarize(res.Job, res.Ranking))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating digest: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", mio.DefaultIndent)
	if err := enc.Encode(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing digest: %w", err)
	}
	return f.Close()
}
