package spectral

import (
	"math"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
)

// SpectralFlux measures frame-to-frame spectral change
type SpectralFlux struct {
	normalizeFrames bool
}

// NewSpectralFlux creates a flux calculator. When normalizeFrames is set each
// frame is scaled to unit peak magnitude before differencing.
func NewSpectralFlux(normalizeFrames bool) *SpectralFlux {
	return &SpectralFlux{normalizeFrames: normalizeFrames}
}

// ComputeAllChanges returns the L2 norm of the full difference between
// consecutive frames of a [time][freq] spectrogram. The result has one value
// fewer than the spectrogram has frames.
func (sf *SpectralFlux) ComputeAllChanges(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	frames := spectrogram
	if sf.normalizeFrames {
		peak := common.NewNormalizer(common.Peak)
		frames = make([][]float64, len(spectrogram))
		for t, frame := range spectrogram {
			frames[t] = peak.Normalize(frame)
		}
	}

	flux := make([]float64, len(frames)-1)
	for t := 1; t < len(frames); t++ {
		sum := 0.0
		for k := range frames[t] {
			d := frames[t][k] - frames[t-1][k]
			sum += d * d
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}
