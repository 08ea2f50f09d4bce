// Package runner executes configured ranking jobs: it loads every distinct
// source once, ranks each job on a worker pool and writes the results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/paveg/movers/internal/config"
	"github.com/paveg/movers/internal/io"
	"github.com/paveg/movers/internal/monitoring"
	"github.com/paveg/movers/internal/parallel"
	"github.com/paveg/movers/internal/ranking"
	"github.com/paveg/movers/internal/table"
)

// JobResult is the outcome of one job
type JobResult struct {
	Job     string
	Ranking *ranking.AxisRanking
	// Output and Snapshot are the resolved paths written, "" when disabled.
	Output   string
	Snapshot string
	// Missing lists unpivot labels whose column the source lacks.
	Missing []string
	Err     error
}

// Runner executes the jobs of one configuration
type Runner struct {
	cfg     config.Config
	mem     memory.Allocator
	metrics *monitoring.MetricsCollector
}

// Option configures a Runner
type Option func(*Runner)

// WithAllocator sets the allocator used for loaded tables
func WithAllocator(mem memory.Allocator) Option {
	return func(r *Runner) {
		r.mem = mem
	}
}

// WithMetrics replaces the metrics collector
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(r *Runner) {
		r.metrics = mc
	}
}

// New creates a runner for cfg with defaults applied
func New(cfg config.Config, opts ...Option) *Runner {
	cfg = cfg.WithDefaults()
	r := &Runner{
		cfg:     cfg,
		mem:     memory.NewGoAllocator(),
		metrics: monitoring.NewMetricsCollector(cfg.MetricsCollection),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every job of cfg. See Runner.Run.
func Run(ctx context.Context, cfg config.Config) ([]JobResult, error) {
	return New(cfg).Run(ctx)
}

// Metrics returns the collector recording per-job metrics
func (r *Runner) Metrics() *monitoring.MetricsCollector {
	return r.metrics
}

// Run validates the configuration, loads sources and runs every job. A failing
// job does not stop the others; their errors are joined. Results are in job
// order.
func (r *Runner) Run(ctx context.Context) ([]JobResult, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sources, loadErrs := r.loadSources(ctx)
	defer func() {
		for _, tbl := range sources {
			tbl.Release()
		}
	}()

	pool := parallel.NewWorkerPoolContext(ctx, r.cfg.Workers())
	defer pool.Close()

	results, started := parallel.ProcessIndexed(pool, r.cfg.Jobs, func(_ int, job config.Job) JobResult {
		id := job.Source.ID()
		return r.runJob(job, sources[id], loadErrs[id])
	})

	var errs []error
	for i, job := range r.cfg.Jobs {
		if !started[i] {
			results[i] = JobResult{Job: job.Name, Err: fmt.Errorf("not started: %w", context.Cause(ctx))}
		}
		if err := results[i].Err; err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", job.Name, err))
		}
	}

	return results, errors.Join(errs...)
}

// loadSources reads each distinct source once. A source that fails to load
// only fails the jobs reading it.
func (r *Runner) loadSources(ctx context.Context) (map[string]*table.Table, map[string]error) {
	var (
		mu     sync.Mutex
		tables = make(map[string]*table.Table)
		errs   = make(map[string]error)
		seen   = make(map[string]bool)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers())

	for _, job := range r.cfg.Jobs {
		src := job.Source
		id := src.ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		g.Go(func() error {
			tbl, err := r.load(gctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[id] = fmt.Errorf("loading %s: %w", describe(src), err)
				log.Error().Err(err).Str("source", describe(src)).Msg("failed to load source")
				return nil
			}
			tables[id] = tbl
			log.Debug().
				Str("source", describe(src)).
				Int("rows", tbl.Len()).
				Int("columns", tbl.Width()).
				Msg("source loaded")
			return nil
		})
	}
	_ = g.Wait()

	return tables, errs
}

func (r *Runner) load(ctx context.Context, src config.Source) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if src.Format == config.FormatSQL {
		db, err := io.OpenSQL(src.Driver, src.DSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return io.NewSQLReader(db, src.Query, r.mem).ReadContext(ctx)
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	var reader io.DataReader
	switch src.Format {
	case config.FormatCSV:
		reader = io.NewCSVReader(f, io.DefaultCSVOptions(), r.mem)
	case config.FormatJSON:
		reader = io.NewJSONReader(f, io.DefaultJSONOptions(), r.mem)
	case config.FormatJSONL:
		opts := io.DefaultJSONOptions()
		opts.Format = io.JSONLines
		reader = io.NewJSONReader(f, opts, r.mem)
	case config.FormatParquet:
		reader = io.NewParquetReader(f, io.DefaultParquetOptions(), r.mem)
	default:
		return nil, fmt.Errorf("unsupported source format %q", src.Format)
	}
	return reader.Read()
}

func describe(src config.Source) string {
	if src.Format == config.FormatSQL {
		return src.Driver + " query"
	}
	return src.Path
}

func (r *Runner) runJob(job config.Job, src *table.Table, loadErr error) JobResult {
	res := JobResult{
		Job:      job.Name,
		Output:   r.cfg.OutputPath(job),
		Snapshot: r.cfg.SnapshotPath(job),
	}

	res.Err = r.metrics.RecordJob(job.Name, func(m *monitoring.JobMetrics) error {
		if loadErr != nil {
			return loadErr
		}

		rows := src
		q := job.Query()
		if len(job.Unpivot) > 0 {
			long, missing, err := src.Unpivot(unpivotIDs(job), job.Unpivot, job.Axis, job.Metric, r.mem)
			if err != nil {
				return fmt.Errorf("unpivoting: %w", err)
			}
			defer long.Release()

			if len(missing) > 0 {
				log.Warn().Str("job", job.Name).Strs("labels", missing).Msg("source lacks unpivot columns, skipping")
				res.Missing = missing
				if len(job.AxisValues) == 0 {
					q.AxisValues = slices.DeleteFunc(q.AxisValues, func(v string) bool {
						return slices.Contains(missing, v)
					})
				}
			}
			rows = long
		}
		m.RowsRead = int64(rows.Len())

		byAxis, err := ranking.RankByAxis(rows, q)
		if err != nil {
			return err
		}
		res.Ranking = byAxis

		m.AxisValues = byAxis.Len()
		for _, ar := range byAxis.Results() {
			m.Records += ar.Result.Len()
			m.Excluded += ar.Result.Excluded
			m.Unmatched += ar.Result.Unmatched
		}

		if err := writeSnapshot(res.Snapshot, rows); err != nil {
			return err
		}
		return writeOutput(res.Output, job, byAxis)
	})

	if res.Err != nil {
		log.Error().Err(res.Err).Str("job", job.Name).Msg("job failed")
		return res
	}

	event := log.Info().Str("job", job.Name).Int("axis_values", res.Ranking.Len())
	if res.Output != "" {
		event = event.Str("output", res.Output)
	}
	event.Msg("job ranked")

	return res
}

// unpivotIDs are the columns carried to every stacked row
func unpivotIDs(job config.Job) []string {
	ids := slices.Clone(job.GroupBy)
	if !slices.Contains(ids, job.PeriodField) {
		ids = append(ids, job.PeriodField)
	}
	return ids
}

// ResultFormat translates a job's output settings for the result writer
func ResultFormat(job config.Job) io.ResultFormat {
	format := io.DefaultResultFormat()
	if job.Output.LatestField != "" {
		format.LatestField = job.Output.LatestField
	}
	if job.Output.ChangeField != "" {
		format.ChangeField = job.Output.ChangeField
	}
	if job.Output.LatestPrecision != nil {
		format.LatestPrecision = *job.Output.LatestPrecision
	}
	return format
}

func writeOutput(path string, job config.Job, byAxis *ranking.AxisRanking) error {
	if path == "" {
		return nil
	}

	f, err := create(path)
	if err != nil {
		return err
	}

	w := io.NewResultWriter(f, ResultFormat(job), job.Unpivot)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = w.WriteCSV(byAxis)
	} else {
		err = w.Write(byAxis)
	}
	return errors.Join(err, f.Close())
}

// writeSnapshot writes the job's input rows, every period included
func writeSnapshot(path string, rows *table.Table) error {
	if path == "" {
		return nil
	}

	f, err := create(path)
	if err != nil {
		return err
	}

	err = io.NewParquetWriter(f, io.DefaultParquetOptions()).Write(rows)
	return errors.Join(err, f.Close())
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	return f, nil
}
