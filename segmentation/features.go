package segmentation

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/phrasebound/algorithms/chroma"
	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/algorithms/spectral"
	"github.com/RyanBlaney/phrasebound/algorithms/temporal"
	"github.com/RyanBlaney/phrasebound/algorithms/windowing"
	"github.com/RyanBlaney/phrasebound/logging"
	"github.com/RyanBlaney/phrasebound/segmentation/config"
)

// Feature block names, in fusion order
const (
	BlockChroma    = "chroma"
	BlockTimbre    = "mfcc_timbre"
	BlockTempogram = "tempogram"
	BlockOnset     = "onset"
	BlockFlux      = "spectral_flux"
)

// Block is a named row range [Start, End) of a FeatureMatrix
type Block struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// FeatureMatrix is the fused [channel][frame] feature representation of a
// song. Every row has the same number of frames.
type FeatureMatrix struct {
	Data   [][]float64
	Layout []Block
}

// Channels returns the number of rows
func (fm *FeatureMatrix) Channels() int { return len(fm.Data) }

// Frames returns the number of columns
func (fm *FeatureMatrix) Frames() int {
	if len(fm.Data) == 0 {
		return 0
	}
	return len(fm.Data[0])
}

// Column copies frame t across all channels
func (fm *FeatureMatrix) Column(t int) []float64 {
	col := make([]float64, len(fm.Data))
	for c, row := range fm.Data {
		col[c] = row[t]
	}
	return col
}

// Rows returns the rows of a named block, or nil if the block is absent
func (fm *FeatureMatrix) Rows(name string) [][]float64 {
	for _, b := range fm.Layout {
		if b.Name == name {
			return fm.Data[b.Start:b.End]
		}
	}
	return nil
}

// NamedFeature is one sub-feature handed to Fuse
type NamedFeature struct {
	Name string
	Data [][]float64 // [row][frame]
}

// Features keeps the intermediate sub-features next to the fused matrix
type Features struct {
	Matrix    *FeatureMatrix
	Chroma    [][]float64
	Timbre    [][]float64
	Tempogram [][]float64
	Onset     []float64
	Flux      []float64
}

// FeatureExtractor computes chroma, timbre, rhythm and flux features. An
// extractor is not safe for concurrent use.
type FeatureExtractor struct {
	config    *config.Config
	stft      *spectral.STFT
	window    *windowing.Hann
	chroma    *chroma.ChromaSTFT
	nnFilter  *chroma.NNFilter
	mfcc      *spectral.MFCC
	onset     *temporal.OnsetStrength
	tempogram *temporal.Tempogram
	flux      *spectral.SpectralFlux
}

// NewFeatureExtractor creates an extractor for cfg
func NewFeatureExtractor(cfg *config.Config) (*FeatureExtractor, error) {
	mfcc := spectral.NewMFCCWithParams(cfg.SampleRate, spectral.MFCCParams{
		NumCoefficients: cfg.NumMFCC,
		NumMelFilters:   cfg.NumMelBands,
	})
	if err := mfcc.Initialize(cfg.FFTSize); err != nil {
		return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
	}

	return &FeatureExtractor{
		config:    cfg,
		stft:      spectral.NewSTFT(),
		window:    windowing.NewHann(cfg.FFTSize, false),
		chroma:    chroma.NewChromaSTFTDefault(),
		nnFilter:  chroma.NewNNFilter(cfg.ChromaNeighborWidth),
		mfcc:      mfcc,
		onset:     temporal.NewOnsetStrength(cfg.SampleRate, cfg.OnsetMelBands),
		tempogram: temporal.NewTempogram(cfg.TempogramWindow),
		flux:      spectral.NewSpectralFlux(true),
	}, nil
}

// Spectrogram computes the centered STFT every feature is framed on
func (fe *FeatureExtractor) Spectrogram(signal AudioSignal) (*spectral.STFTResult, error) {
	if signal.Len() == 0 {
		return nil, ErrEmptySignal
	}
	return fe.stft.ComputeWithWindow(signal.samples, fe.config.FFTSize, fe.config.HopLength, signal.sampleRate, fe.window)
}

// Chroma returns the smoothed [12][frame] chromagram. The neighbour filter
// stops early when ctx is done.
func (fe *FeatureExtractor) Chroma(ctx context.Context, spec *spectral.STFTResult) ([][]float64, error) {
	raw := fe.chroma.FromSpectrogram(spec)
	smoothed, err := fe.nnFilter.Apply(ctx, raw)
	if err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	common.NewNormalizer(common.Peak).NormalizeColumns(smoothed)
	return smoothed, nil
}

// MFCCTimbre returns the MFCCs stacked on their deltas, each row scaled to
// unit peak magnitude
func (fe *FeatureExtractor) MFCCTimbre(spec *spectral.STFTResult) ([][]float64, error) {
	coeffs, err := fe.mfcc.ComputeSpectrogram(spec.PowerSpectrogram())
	if err != nil {
		return nil, err
	}
	deltas := spectral.Delta(coeffs, fe.config.DeltaWidth)

	timbre := make([][]float64, 0, len(coeffs)+len(deltas))
	timbre = append(timbre, coeffs...)
	timbre = append(timbre, deltas...)
	common.NewNormalizer(common.Peak).NormalizeRows(timbre)
	return timbre, nil
}

// TempogramOnset returns the [lag][frame] tempogram and the onset envelope
// it was computed from, both peak normalized
func (fe *FeatureExtractor) TempogramOnset(spec *spectral.STFTResult) ([][]float64, []float64, error) {
	envelope, err := fe.onset.Compute(spec.PowerSpectrogram(), fe.config.FFTSize, fe.config.HopLength)
	if err != nil {
		return nil, nil, fmt.Errorf("onset strength: %w", err)
	}
	tg, err := fe.tempogram.Compute(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("tempogram: %w", err)
	}
	return tg, common.NewNormalizer(common.Peak).Normalize(envelope), nil
}

// SpectralFlux returns the z-scored frame-to-frame change of the
// column-normalized magnitude spectrogram. It has one value fewer than the
// spectrogram has frames.
func (fe *FeatureExtractor) SpectralFlux(spec *spectral.STFTResult) []float64 {
	flux := fe.flux.ComputeAllChanges(spec.Magnitude)
	return common.NewNormalizer(common.ZScore).Normalize(flux)
}

// Fuse stacks sub-features onto the frame axis of the first one. Shorter
// sub-features are padded with trailing zeros; a longer one is a
// *DimensionMismatchError. Each fused column is scaled to unit peak
// magnitude.
func (fe *FeatureExtractor) Fuse(parts ...NamedFeature) (*FeatureMatrix, error) {
	if len(parts) == 0 || len(parts[0].Data) == 0 {
		return nil, fmt.Errorf("no features to fuse")
	}
	target := len(parts[0].Data[0])

	fm := &FeatureMatrix{}
	for _, part := range parts {
		start := len(fm.Data)
		for _, row := range part.Data {
			if len(row) > target {
				return nil, &DimensionMismatchError{Feature: part.Name, Frames: len(row), Target: target}
			}
			padded := make([]float64, target)
			copy(padded, row)
			fm.Data = append(fm.Data, padded)
		}
		fm.Layout = append(fm.Layout, Block{Name: part.Name, Start: start, End: len(fm.Data)})
	}

	common.NewNormalizer(common.Peak).NormalizeColumns(fm.Data)
	return fm, nil
}

// Extract computes and fuses every feature of a preprocessed song
func (fe *FeatureExtractor) Extract(ctx context.Context, pre *Preprocessed) (*Features, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "feature_extractor",
		"function":  "Extract",
	})

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	harmSpec, err := fe.Spectrogram(pre.Harmonic)
	if err != nil {
		return nil, fmt.Errorf("harmonic spectrogram: %w", err)
	}
	percSpec, err := fe.Spectrogram(pre.Percussive)
	if err != nil {
		return nil, fmt.Errorf("percussive spectrogram: %w", err)
	}

	chromagram, err := fe.Chroma(ctx, harmSpec)
	if err != nil {
		return nil, err
	}
	timbre, err := fe.MFCCTimbre(harmSpec)
	if err != nil {
		return nil, fmt.Errorf("mfcc: %w", err)
	}
	if err := contextError(ctx); err != nil {
		return nil, err
	}

	tg, onset, err := fe.TempogramOnset(percSpec)
	if err != nil {
		return nil, err
	}
	flux := fe.SpectralFlux(percSpec)

	matrix, err := fe.Fuse(
		NamedFeature{Name: BlockChroma, Data: chromagram},
		NamedFeature{Name: BlockTimbre, Data: timbre},
		NamedFeature{Name: BlockTempogram, Data: tg},
		NamedFeature{Name: BlockOnset, Data: [][]float64{onset}},
		NamedFeature{Name: BlockFlux, Data: [][]float64{flux}},
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("Features fused", logging.Fields{
		"channels":   matrix.Channels(),
		"frames":     matrix.Frames(),
		"flux_pad":   matrix.Frames() - len(flux),
		"chroma_len": len(chromagram[0]),
	})

	return &Features{
		Matrix:    matrix,
		Chroma:    chromagram,
		Timbre:    timbre,
		Tempogram: tg,
		Onset:     onset,
		Flux:      flux,
	}, nil
}
