package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/phrasebound/logging"
	"github.com/RyanBlaney/phrasebound/results"
	"github.com/RyanBlaney/phrasebound/segmentation"
	"github.com/RyanBlaney/phrasebound/transcode"
)

// Failure kinds recorded in SongOutcome.Kind
const (
	KindDecode            = "decode"
	KindDimensionMismatch = "dimension_mismatch"
	KindTimeout           = "timeout"
	KindCancelled         = "cancelled"
	KindAnalysis          = "analysis"
	KindSink              = "sink"
)

// Analyzer analyses one song file
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*segmentation.Result, error)
}

// Options configures a Runner
type Options struct {
	MaxWorkers    int           `json:"max_workers" mapstructure:"max_workers"`
	SongTimeout   time.Duration `json:"song_timeout" mapstructure:"song_timeout"` // 0 disables the per-song deadline
	MaxBoundaries int           `json:"max_boundaries" mapstructure:"max_boundaries"`
}

// DefaultOptions returns the default batch options
func DefaultOptions() Options {
	return Options{
		MaxWorkers:    8,
		SongTimeout:   5 * time.Minute,
		MaxBoundaries: 25,
	}
}

// SongOutcome is the per-song line of a Report
type SongOutcome struct {
	Path       string        `json:"path"`
	SongID     string        `json:"song_id"`
	Boundaries int           `json:"boundaries"`
	Source     string        `json:"source,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Kind       string        `json:"kind,omitempty"`
	Err        error         `json:"-"`
}

// Report summarises a batch run
type Report struct {
	RunID     string              `json:"run_id"`
	Started   time.Time           `json:"started"`
	Finished  time.Time           `json:"finished"`
	Succeeded []SongOutcome       `json:"succeeded"`
	Failures  []SongOutcome       `json:"failures"`
	Written   int                 `json:"written"`
	Unwritten []results.SongEntry `json:"unwritten,omitempty"`
	SinkErr   error               `json:"-"`
}

// AllFailed reports whether the run had songs and none succeeded
func (r *Report) AllFailed() bool {
	return len(r.Succeeded) == 0 && len(r.Failures) > 0
}

// Runner analyses songs in parallel, one independent pipeline per song, and
// funnels results through a single aggregator into the sink
type Runner struct {
	analyzer Analyzer
	sink     results.Sink
	opts     Options
}

// NewRunner creates a batch runner
func NewRunner(analyzer Analyzer, sink results.Sink, opts Options) *Runner {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultOptions().MaxWorkers
	}
	if opts.MaxBoundaries <= 0 {
		opts.MaxBoundaries = DefaultOptions().MaxBoundaries
	}
	return &Runner{analyzer: analyzer, sink: sink, opts: opts}
}

// Run analyses every path. Per-song failures are recorded in the report and
// never abort the batch; the returned error is only set when ctx itself
// was cancelled.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	ctx = logging.ContextWithFields(ctx, logging.Fields{"run_id": report.RunID})
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "batch_runner",
		"function":  "Run",
	})

	workers := min(len(paths), r.opts.MaxWorkers)
	logger.Info("Starting batch", logging.Fields{
		"songs":   len(paths),
		"workers": workers,
	})

	agg := results.NewAggregator(ctx, r.sink, workers)
	outcomes := make([]SongOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = r.analyzeOne(gctx, path, agg)
			return nil
		})
	}
	_ = g.Wait()

	report.Unwritten, report.SinkErr = agg.Close()
	report.Written = agg.Written()
	unwritten := make(map[string]bool, len(report.Unwritten))
	for _, e := range report.Unwritten {
		unwritten[e.SongName] = true
	}

	for _, o := range outcomes {
		if o.Err == nil && unwritten[o.SongID] {
			o.Kind = KindSink
			o.Err = report.SinkErr
		}
		if o.Err != nil {
			report.Failures = append(report.Failures, o)
		} else {
			report.Succeeded = append(report.Succeeded, o)
		}
	}
	report.Finished = time.Now()

	logger.Info("Batch finished", logging.Fields{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failures),
		"written":   report.Written,
		"unwritten": len(report.Unwritten),
		"elapsed":   report.Finished.Sub(report.Started).String(),
	})

	return report, ctx.Err()
}

func (r *Runner) analyzeOne(ctx context.Context, path string, agg *results.Aggregator) SongOutcome {
	outcome := SongOutcome{Path: path, SongID: segmentation.SongID(path)}
	start := time.Now()

	songCtx := logging.ContextWithFields(ctx, logging.Fields{"song": outcome.SongID})
	logger := logging.WithContext(songCtx).WithFields(logging.Fields{
		"component": "batch_runner",
		"function":  "analyzeOne",
	})

	if r.opts.SongTimeout > 0 {
		var cancel context.CancelFunc
		songCtx, cancel = context.WithTimeout(songCtx, r.opts.SongTimeout)
		defer cancel()
	}

	res, err := r.analyzer.Analyze(songCtx, path)
	outcome.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, segmentation.ErrSongTimeout) {
			err = fmt.Errorf("%w: %w", segmentation.ErrSongTimeout, err)
		}
		outcome.Err = err
		outcome.Kind = Classify(err)
		logger.Error(err, "Song failed, skipping", logging.Fields{
			"kind":    outcome.Kind,
			"path":    path,
			"elapsed": outcome.Elapsed.String(),
		})
		return outcome
	}

	outcome.SongID = res.SongID
	outcome.Boundaries = res.Boundaries.Len()
	outcome.Source = res.Boundaries.Source

	if err := agg.Submit(ctx, results.NewSongEntry(res, r.opts.MaxBoundaries)); err != nil {
		outcome.Err = err
		outcome.Kind = KindCancelled
	}
	return outcome
}

// Classify maps a per-song error to a failure kind
func Classify(err error) string {
	var decodeErr *transcode.DecodeError
	var dimErr *segmentation.DimensionMismatchError
	var sinkErr *results.SinkError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, segmentation.ErrSongTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &dimErr):
		return KindDimensionMismatch
	case errors.As(err, &sinkErr):
		return KindSink
	default:
		return KindAnalysis
	}
}
