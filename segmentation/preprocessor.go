package segmentation

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/algorithms/filters"
	"github.com/RyanBlaney/phrasebound/algorithms/harmonic"
	"github.com/RyanBlaney/phrasebound/logging"
	"github.com/RyanBlaney/phrasebound/segmentation/config"
	"github.com/RyanBlaney/phrasebound/transcode"
)

// Preprocessor loads songs and prepares the harmonic and percussive signals
// the feature extractor works on
type Preprocessor struct {
	config *config.Config
	codec  transcode.Codec
	hpss   *harmonic.HPSS
}

// NewPreprocessor creates a preprocessor. codec may be nil when only
// in-memory signals are analysed.
func NewPreprocessor(cfg *config.Config, codec transcode.Codec) *Preprocessor {
	return &Preprocessor{
		config: cfg,
		codec:  codec,
		hpss: harmonic.NewHPSS(harmonic.HPSSParams{
			FFTSize:    cfg.FFTSize,
			HopSize:    cfg.FFTSize / 4,
			KernelSize: cfg.HPSSKernelSize,
			Power:      cfg.HPSSPower,
		}),
	}
}

// Load decodes path into a song. Decoder failures are returned as
// *transcode.DecodeError.
func (p *Preprocessor) Load(ctx context.Context, path string) (Song, error) {
	if p.codec == nil {
		return Song{}, &transcode.DecodeError{Path: path, Cause: fmt.Errorf("no codec configured")}
	}

	data, err := p.codec.Decode(ctx, path)
	if err != nil {
		return Song{}, err
	}
	if len(data.PCM) == 0 {
		return Song{}, &transcode.DecodeError{Path: path, Cause: transcode.ErrEmptyAudio}
	}

	logging.WithContext(ctx).Debug("Song loaded", logging.Fields{
		"component":   "preprocessor",
		"function":    "Load",
		"path":        path,
		"samples":     len(data.PCM),
		"sample_rate": data.SampleRate,
	})

	return NewSong(path, data.PCM, data.SampleRate), nil
}

// Normalize scales the signal to unit peak magnitude. Silence is returned
// unchanged.
func (p *Preprocessor) Normalize(signal AudioSignal) AudioSignal {
	normalized := common.NewNormalizer(common.Peak).Normalize(signal.samples)
	return AudioSignal{samples: normalized, sampleRate: signal.sampleRate}
}

// HighpassFilter removes content below cutoff Hz with a zero-phase
// second-order Butterworth filter
func (p *Preprocessor) HighpassFilter(signal AudioSignal, cutoff float64) (AudioSignal, error) {
	bw, err := filters.NewButterworth(signal.sampleRate, cutoff, filters.HighPass)
	if err != nil {
		return AudioSignal{}, fmt.Errorf("failed to create high-pass filter: %w", err)
	}
	return AudioSignal{samples: bw.FiltFilt(signal.samples), sampleRate: signal.sampleRate}, nil
}

// SeparateHarmonicPercussive splits the signal with median-filter HPSS
func (p *Preprocessor) SeparateHarmonicPercussive(ctx context.Context, signal AudioSignal) (*Preprocessed, error) {
	result, err := p.hpss.Separate(ctx, signal.samples, signal.sampleRate)
	if err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("harmonic/percussive separation failed: %w", err)
	}
	return &Preprocessed{
		Harmonic:   AudioSignal{samples: result.Harmonic, sampleRate: signal.sampleRate},
		Percussive: AudioSignal{samples: result.Percussive, sampleRate: signal.sampleRate},
	}, nil
}

// Preprocess runs normalize, high-pass and HPSS in order
func (p *Preprocessor) Preprocess(ctx context.Context, signal AudioSignal) (*Preprocessed, error) {
	if signal.Len() == 0 {
		return nil, ErrEmptySignal
	}

	normalized := p.Normalize(signal)

	filtered, err := p.HighpassFilter(normalized, p.config.HighpassCutoff)
	if err != nil {
		return nil, err
	}
	if err := contextError(ctx); err != nil {
		return nil, err
	}

	return p.SeparateHarmonicPercussive(ctx, filtered)
}
