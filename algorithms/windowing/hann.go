package windowing

import (
	"fmt"
	"math"
)

// Hann is a raised-cosine analysis window
type Hann struct {
	coefficients []float64
}

// NewHann builds a Hann window of the given length. STFT analysis uses the
// periodic form (symmetric=false), which sums to a constant at 75% overlap;
// the symmetric form ends in zeros at both edges.
func NewHann(size int, symmetric bool) *Hann {
	coeffs := make([]float64, max(size, 0))
	switch {
	case size == 1:
		coeffs[0] = 1
	case size > 1:
		period := float64(size)
		if symmetric {
			period--
		}
		for n := range coeffs {
			coeffs[n] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/period)
		}
	}
	return &Hann{coefficients: coeffs}
}

// Len returns the window length in samples
func (h *Hann) Len() int {
	return len(h.coefficients)
}

// ApplyInPlace multiplies frame by the window. The frame must be exactly
// Len samples long.
func (h *Hann) ApplyInPlace(frame []float64) error {
	if len(frame) != len(h.coefficients) {
		return fmt.Errorf("frame has %d samples, window has %d", len(frame), len(h.coefficients))
	}
	for n, w := range h.coefficients {
		frame[n] *= w
	}
	return nil
}

// Coefficients returns a copy of the window
func (h *Hann) Coefficients() []float64 {
	return append([]float64(nil), h.coefficients...)
}
