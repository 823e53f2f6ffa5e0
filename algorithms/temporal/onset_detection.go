package temporal

import (
	"fmt"

	"github.com/RyanBlaney/phrasebound/algorithms/spectral"
)

// OnsetStrength computes an onset-strength envelope from a power spectrogram.
//
// The spectrogram is projected onto a mel filter bank and converted to dB;
// the envelope at each frame is the mean over mel bands of the half-wave
// rectified difference from the previous frame. The envelope is shifted to
// line up with centered STFT frames and has exactly one value per
// spectrogram frame.
type OnsetStrength struct {
	numMelBands int
	sampleRate  int
	topDB       float64
	melScale    *spectral.MelScale
}

// NewOnsetStrength creates an onset-strength calculator
func NewOnsetStrength(sampleRate, numMelBands int) *OnsetStrength {
	if numMelBands <= 0 {
		numMelBands = 128
	}
	return &OnsetStrength{
		numMelBands: numMelBands,
		sampleRate:  sampleRate,
		topDB:       80,
		melScale:    spectral.NewMelScale(),
	}
}

// Compute returns the envelope for a [freq][time] power spectrogram taken
// with the given FFT size and hop
func (o *OnsetStrength) Compute(power [][]float64, fftSize, hopSize int) ([]float64, error) {
	if len(power) == 0 || len(power[0]) == 0 {
		return nil, fmt.Errorf("empty power spectrogram")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	bank := o.melScale.CreateMelFilterBank(o.numMelBands, fftSize, o.sampleRate, 0, 0)
	melDB := spectral.PowerToDB(o.melScale.ApplyFilterBank(power, bank), 1.0, 1e-10, o.topDB)

	frames := len(power[0])
	diff := make([]float64, max(frames-1, 0))
	for t := 1; t < frames; t++ {
		sum := 0.0
		for _, band := range melDB {
			if d := band[t] - band[t-1]; d > 0 {
				sum += d
			}
		}
		diff[t-1] = sum / float64(len(melDB))
	}

	// one frame of lag plus the half-window offset of centered frames
	shift := 1 + fftSize/(2*hopSize)

	envelope := make([]float64, frames)
	for t := range envelope {
		src := t - shift
		if src >= 0 && src < len(diff) {
			envelope[t] = diff[src]
		}
	}

	return envelope, nil
}
