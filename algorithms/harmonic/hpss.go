package harmonic

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/algorithms/spectral"
	"github.com/RyanBlaney/phrasebound/algorithms/windowing"
)

// HPSS separates a signal into harmonic and percussive parts by median
// filtering its magnitude spectrogram.
//
// Sustained tones form horizontal ridges in a spectrogram and survive a
// median along time; transients form vertical ridges and survive a median
// along frequency. Soft (Wiener) masks built from the two filtered
// magnitudes split the complex spectrogram, which is then inverted.
//
// Reference: D. FitzGerald, "Harmonic/Percussive Separation using Median
// Filtering", DAFx 2010.
type HPSS struct {
	fftSize    int
	hopSize    int
	kernelSize int
	power      float64
	stft       *spectral.STFT
	window     *windowing.Hann
}

// HPSSParams configures the separation
type HPSSParams struct {
	FFTSize    int     `json:"fft_size"`    // STFT size (default: 2048)
	HopSize    int     `json:"hop_size"`    // STFT hop (default: FFTSize/4)
	KernelSize int     `json:"kernel_size"` // Median filter length in frames and bins (default: 31)
	Power      float64 `json:"power"`       // Soft mask exponent (default: 2)
}

// HPSSResult holds the separated time signals and the masks that produced them
type HPSSResult struct {
	Harmonic       []float64
	Percussive     []float64
	HarmonicMask   [][]float64 // Time x Frequency
	PercussiveMask [][]float64 // Time x Frequency
}

// NewHPSS creates a separator, filling zero parameters with defaults
func NewHPSS(params HPSSParams) *HPSS {
	if params.FFTSize <= 0 {
		params.FFTSize = 2048
	}
	if params.HopSize <= 0 {
		params.HopSize = params.FFTSize / 4
	}
	if params.KernelSize <= 0 {
		params.KernelSize = 31
	}
	if params.Power <= 0 {
		params.Power = 2
	}

	return &HPSS{
		fftSize:    params.FFTSize,
		hopSize:    params.HopSize,
		kernelSize: params.KernelSize,
		power:      params.Power,
		stft:       spectral.NewSTFT(),
		window:     windowing.NewHann(params.FFTSize, false),
	}
}

// Separate splits signal into harmonic and percussive signals of the same
// length. The two outputs sum back to the input up to rounding. The harmonic
// part comes from the median along time, the percussive part from the median
// along frequency. ctx is checked between filter rows.
func (h *HPSS) Separate(ctx context.Context, signal []float64, sampleRate int) (*HPSSResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	spec, err := h.stft.ComputeWithWindow(signal, h.fftSize, h.hopSize, sampleRate, h.window)
	if err != nil {
		return nil, fmt.Errorf("failed to compute STFT: %w", err)
	}

	harmMask, percMask, err := h.Masks(ctx, spec.Magnitude)
	if err != nil {
		return nil, err
	}

	harmSpec := applyMask(spec.Complex, harmMask)
	percSpec := applyMask(spec.Complex, percMask)

	harmonic, err := h.stft.Inverse(harmSpec, h.fftSize, h.hopSize, len(signal), h.window)
	if err != nil {
		return nil, fmt.Errorf("failed to invert harmonic spectrogram: %w", err)
	}
	percussive, err := h.stft.Inverse(percSpec, h.fftSize, h.hopSize, len(signal), h.window)
	if err != nil {
		return nil, fmt.Errorf("failed to invert percussive spectrogram: %w", err)
	}

	return &HPSSResult{
		Harmonic:       harmonic,
		Percussive:     percussive,
		HarmonicMask:   harmMask,
		PercussiveMask: percMask,
	}, nil
}

// Masks computes soft harmonic and percussive masks for a [time][freq]
// magnitude spectrogram. Where both filtered magnitudes vanish both masks
// are 0.
func (h *HPSS) Masks(ctx context.Context, magnitude [][]float64) (harmMask, percMask [][]float64, err error) {
	frames := len(magnitude)
	if frames == 0 {
		return [][]float64{}, [][]float64{}, nil
	}
	bins := len(magnitude[0])

	// median along time, per frequency bin
	harm := make([][]float64, frames)
	for t := range harm {
		harm[t] = make([]float64, bins)
	}
	series := make([]float64, frames)
	for k := range bins {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for t := range frames {
			series[t] = magnitude[t][k]
		}
		filtered := common.MedianFilter(series, h.kernelSize)
		for t := range frames {
			harm[t][k] = filtered[t]
		}
	}

	// median along frequency, per frame
	perc := make([][]float64, frames)
	for t := range frames {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		perc[t] = common.MedianFilter(magnitude[t], h.kernelSize)
	}

	harmMask = make([][]float64, frames)
	percMask = make([][]float64, frames)
	for t := range frames {
		harmMask[t] = make([]float64, bins)
		percMask[t] = make([]float64, bins)
		for k := range bins {
			harmMask[t][k], percMask[t][k] = softMask(harm[t][k], perc[t][k], h.power)
		}
	}

	return harmMask, percMask, nil
}

// softMask returns x^p/(x^p+ref^p) and its complement, scaled by the larger
// input first so large powers cannot overflow.
func softMask(x, ref, power float64) (float64, float64) {
	z := max(x, ref)
	if z <= 0 {
		return 0, 0
	}
	a := pow(x/z, power)
	b := pow(ref/z, power)
	return a / (a + b), b / (a + b)
}

func pow(v, p float64) float64 {
	if p == 2 {
		return v * v
	}
	return math.Pow(v, p)
}

func applyMask(spec [][]complex128, mask [][]float64) [][]complex128 {
	out := make([][]complex128, len(spec))
	for t, frame := range spec {
		out[t] = make([]complex128, len(frame))
		for k, c := range frame {
			out[t][k] = c * complex(mask[t][k], 0)
		}
	}
	return out
}
