package segmentation

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/algorithms/temporal"
	"github.com/RyanBlaney/phrasebound/algorithms/tonal"
	"github.com/RyanBlaney/phrasebound/logging"
	"github.com/RyanBlaney/phrasebound/segmentation/config"
	"github.com/RyanBlaney/phrasebound/transcode"
)

// Annotations are the optional per-song descriptors written next to the
// boundaries
type Annotations struct {
	BPM         float64 `json:"bpm"`
	Key         string  `json:"key"`
	Scale       string  `json:"scale"`
	KeyStrength float64 `json:"key_strength"`
}

// Result is the outcome of analysing one song
type Result struct {
	SongID          string        `json:"song_id"`
	Path            string        `json:"path"`
	Duration        time.Duration `json:"duration"`
	Frames          int           `json:"frames"`
	KernelHalfWidth int           `json:"kernel_half_width"`
	Boundaries      BoundarySet   `json:"boundaries"`
	Novelty         []float64     `json:"-"`
	Annotations     *Annotations  `json:"annotations,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Analyzer runs the phrase-boundary pipeline. It holds no per-song state
// and may be shared between goroutines.
type Analyzer struct {
	config *config.Config
	codec  transcode.Codec
}

// NewAnalyzer validates cfg and creates an analyzer. codec is used by
// Analyze and may be nil when only AnalyzeSignal is called.
func NewAnalyzer(cfg *config.Config, codec transcode.Codec) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{config: cfg, codec: codec}, nil
}

// Config returns the analysis configuration
func (a *Analyzer) Config() *config.Config {
	return a.config
}

// Analyze decodes path and analyses it
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Result, error) {
	song, err := NewPreprocessor(a.config, a.codec).Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeSignal(ctx, song)
}

// AnalyzeSignal runs preprocessing, feature extraction, self-similarity,
// novelty and post-processing on an already decoded song
func (a *Analyzer) AnalyzeSignal(ctx context.Context, song Song) (*Result, error) {
	start := time.Now()
	ctx = logging.ContextWithFields(ctx, logging.Fields{"song": song.ID})
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "analyzer",
		"function":  "AnalyzeSignal",
	})

	signal := song.Signal
	if signal.Len() == 0 {
		return nil, ErrEmptySignal
	}
	if signal.SampleRate() != a.config.SampleRate {
		resampled := common.NewInterpolator(common.Cubic).ResampleSignal(signal.samples, signal.sampleRate, a.config.SampleRate)
		signal = AudioSignal{samples: resampled, sampleRate: a.config.SampleRate}
		if signal.Len() == 0 {
			return nil, ErrEmptySignal
		}
	}

	pre, err := NewPreprocessor(a.config, a.codec).Preprocess(ctx, signal)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	extractor, err := NewFeatureExtractor(a.config)
	if err != nil {
		return nil, err
	}
	features, err := extractor.Extract(ctx, pre)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}

	ssm, err := ComputeSSM(ctx, features.Matrix)
	if err != nil {
		return nil, fmt.Errorf("similarity: %w", err)
	}

	frames := ssm.Size()
	halfWidth := EffectiveHalfWidth(a.config, frames)
	novelty, err := Novelty(ctx, ssm, halfWidth)
	if err != nil {
		return nil, fmt.Errorf("novelty: %w", err)
	}

	boundaries := NewPostProcessor(a.config).Process(novelty, halfWidth)
	if boundaries.Fallback {
		logger.Warn("No novelty peak survived validation, using fallback grid", logging.Fields{
			"reason":            ErrNoBoundaryFound.Error(),
			"kernel_half_width": halfWidth,
			"frames":            frames,
		})
	}

	result := &Result{
		SongID:          song.ID,
		Path:            song.Path,
		Duration:        secondsToDuration(signal.Duration()),
		Frames:          frames,
		KernelHalfWidth: halfWidth,
		Boundaries:      boundaries,
		Novelty:         novelty,
	}

	if a.config.Annotate {
		result.Annotations = a.annotate(features)
	}

	result.Elapsed = time.Since(start)
	logger.Info("Song analysed", logging.Fields{
		"boundaries": boundaries.Len(),
		"source":     boundaries.Source,
		"frames":     frames,
		"elapsed_ms": result.Elapsed.Milliseconds(),
	})

	return result, nil
}

// annotate estimates tempo and key. Failures leave the affected fields empty.
func (a *Analyzer) annotate(features *Features) *Annotations {
	ann := &Annotations{
		BPM: temporal.NewTempoEstimation().EstimateFromTempogram(features.Tempogram, a.config.HopLength, a.config.SampleRate),
	}
	if key, err := tonal.NewKeyEstimator().Estimate(features.Chroma); err == nil {
		ann.Key = key.KeyName
		ann.Scale = key.Mode.String()
		ann.KeyStrength = key.Strength
	}
	return ann
}
