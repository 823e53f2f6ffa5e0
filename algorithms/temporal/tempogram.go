package temporal

import (
	"fmt"
	"math/cmplx"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/algorithms/spectral"
	"github.com/RyanBlaney/phrasebound/algorithms/windowing"
)

// Tempogram computes a local autocorrelation tempogram of an onset envelope.
//
// For each frame t a window of winLength envelope samples centered on t
// (zero padded past the ends) is Hann weighted and autocorrelated. Row l of
// the result is the autocorrelation at lag l frames, so a periodic beat
// with period p frames shows up as ridges at l = p, 2p, ...
type Tempogram struct {
	winLength int
	fft       *spectral.FFT
	window    *windowing.Hann
}

// NewTempogram creates a tempogram calculator with the given window length
// in frames
func NewTempogram(winLength int) *Tempogram {
	if winLength <= 0 {
		winLength = 384
	}
	return &Tempogram{
		winLength: winLength,
		fft:       spectral.NewFFT(),
		window:    windowing.NewHann(winLength, false),
	}
}

// WinLength returns the number of lag rows produced
func (tg *Tempogram) WinLength() int {
	return tg.winLength
}

// Compute returns a [lag][time] tempogram with one column per envelope
// sample. Each column is scaled to unit peak magnitude; all-zero columns
// stay zero.
func (tg *Tempogram) Compute(envelope []float64) ([][]float64, error) {
	if len(envelope) == 0 {
		return nil, fmt.Errorf("empty onset envelope")
	}

	frames := len(envelope)
	half := tg.winLength / 2
	padded := make([]float64, frames+tg.winLength)
	copy(padded[half:], envelope)

	out := make([][]float64, tg.winLength)
	for l := range out {
		out[l] = make([]float64, frames)
	}

	n := common.NextPowerOfTwo(2 * tg.winLength)
	buf := make([]float64, n)
	for t := range frames {
		clear(buf)
		copy(buf, padded[t:t+tg.winLength])
		if err := tg.window.ApplyInPlace(buf[:tg.winLength]); err != nil {
			return nil, err
		}

		ac := tg.autocorrelate(buf)
		for l := range tg.winLength {
			out[l][t] = ac[l]
		}
	}

	common.NewNormalizer(common.Peak).NormalizeColumns(out)
	return out, nil
}

// autocorrelate computes the linear autocorrelation of a zero-padded buffer
// through the power spectrum
func (tg *Tempogram) autocorrelate(buf []float64) []float64 {
	spectrum := tg.fft.Compute(buf)
	for i, c := range spectrum {
		mag := cmplx.Abs(c)
		spectrum[i] = complex(mag*mag, 0)
	}
	return tg.fft.ComputeInverseReal(spectrum)
}
