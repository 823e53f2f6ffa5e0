package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/phrasebound/batch"
	"github.com/RyanBlaney/phrasebound/configs"
	"github.com/RyanBlaney/phrasebound/logging"
	"github.com/RyanBlaney/phrasebound/results"
	"github.com/RyanBlaney/phrasebound/segmentation"
	segconfig "github.com/RyanBlaney/phrasebound/segmentation/config"
	"github.com/RyanBlaney/phrasebound/transcode"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files|dirs...]",
	Short: "Detect phrase boundaries in songs",
	Long: `Analyzes every given file, and every file in the given directories that
matches --pattern, in parallel. Each song's entry and exit boundary
candidates are merged into the results document.

A song that cannot be decoded or times out is reported and skipped; the
command exits with status 2 only when every song failed.`,
	Example: `  phrasebound analyze ./songs
  phrasebound analyze a.wav b.mp3 --output results.json --workers 4
  phrasebound analyze ./songs --pattern "*.mp3" --annotate`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	defaults := segconfig.DefaultConfig()
	opts := batch.DefaultOptions()

	flags := analyzeCmd.Flags()
	flags.StringP("output", "o", configs.DefaultOutputPath, "results document to merge into")
	flags.Int("workers", opts.MaxWorkers, "maximum songs analysed in parallel")
	flags.Duration("song-timeout", opts.SongTimeout, "per-song analysis deadline (0 disables)")
	flags.String("pattern", "*.wav", "glob used to select files inside directories")
	flags.Int("hop-length", defaults.HopLength, "analysis hop length in samples")
	flags.Int("kernel-half-width", defaults.KernelHalfWidth, "checkerboard kernel half-width in frames (0 derives it from kernel seconds)")
	flags.Float64("threshold-factor", defaults.ThresholdFactor, "peak threshold as a multiple of the smoothed novelty mean")
	flags.Int("max-boundaries", defaults.MaxBoundaries, "size of the entry and exit candidate lists")
	flags.Bool("annotate", defaults.Annotate, "estimate BPM and key for each song")
	flags.Bool("disable-ffmpeg", false, "only decode WAV files natively")

	bindFlags(flags, map[string]string{
		"output.path":                "output",
		"batch.max_workers":          "workers",
		"batch.song_timeout":         "song-timeout",
		"batch.pattern":              "pattern",
		"analysis.hop_length":        "hop-length",
		"analysis.kernel_half_width": "kernel-half-width",
		"analysis.threshold_factor":  "threshold-factor",
		"analysis.max_boundaries":    "max-boundaries",
		"analysis.annotate":          "annotate",
		"decoder.disable_ffmpeg":     "disable-ffmpeg",
	})

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("invalid configuration: %w", err)}
	}

	paths, err := batch.Discover(args, cfg.Batch.Pattern)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	if len(paths) == 0 {
		return &exitError{code: 1, err: fmt.Errorf("no files matching %q found", cfg.Batch.Pattern)}
	}

	analyzer, err := segmentation.NewAnalyzer(&cfg.Analysis, transcode.NewAutoCodec(cfg.DecoderConfig()))
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	sink := results.NewFileSink(cfg.Output.Path)
	runner := batch.NewRunner(analyzer, sink, cfg.BatchOptions())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := runner.Run(ctx, paths)
	printReport(cmd.OutOrStdout(), report, sink.Path())

	if runErr != nil {
		return &exitError{code: 1, err: fmt.Errorf("batch interrupted: %w", runErr)}
	}
	if report.SinkErr != nil {
		logging.Error(report.SinkErr, "Results document not updated", logging.Fields{
			"component": "cli",
			"path":      sink.Path(),
			"unwritten": len(report.Unwritten),
		})
	}
	if len(report.Unwritten) > 0 {
		dumped, err := saveUnwritten(cmd.OutOrStdout(), sink.Path(), report.Unwritten)
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("unwritten results lost: %w", err)}
		}
		logging.Warn("Unwritten results saved", logging.Fields{
			"component": "cli",
			"path":      dumped,
			"songs":     len(report.Unwritten),
		})
	}
	if report.AllFailed() {
		return &exitError{code: 2, err: errors.New("every song failed")}
	}
	return nil
}

// saveUnwritten writes entries next to the results document, or to w when
// that file cannot be created. It returns where the entries went.
func saveUnwritten(w io.Writer, output string, entries []results.SongEntry) (string, error) {
	path := results.UnwrittenPath(output)
	if f, err := os.Create(path); err == nil {
		err = results.WriteEntries(f, entries)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			return path, nil
		}
		os.Remove(path)
	}
	return "stdout", results.WriteEntries(w, entries)
}

func printReport(w io.Writer, report *batch.Report, output string) {
	outcomes := make([]batch.SongOutcome, 0, len(report.Succeeded)+len(report.Failures))
	outcomes = append(outcomes, report.Succeeded...)
	outcomes = append(outcomes, report.Failures...)
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Path < outcomes[j].Path
	})

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			o.SongID,
			strconv.Itoa(o.Boundaries),
			o.Source,
			o.Elapsed.Round(time.Millisecond).String(),
			outcomeStatus(o),
		})
	}

	fmt.Fprintln(w, renderTable(
		[]string{"Song", "Boundaries", "Source", "Elapsed", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "run %s: %d succeeded, %d failed, %d written to %s\n",
		report.RunID, len(report.Succeeded), len(report.Failures), report.Written, output)
}

func outcomeStatus(o batch.SongOutcome) string {
	if o.Err == nil {
		return "ok"
	}
	return o.Kind + ": " + o.Err.Error()
}
