package filters

import (
	"fmt"
	"math"
)

// Butterworth implements a 2nd-order Butterworth filter as a single biquad.
//
// Coefficients follow Robert Bristow-Johnson's cookbook with Q = 1/sqrt(2),
// which is the bilinear transform of the analog Butterworth prototype with
// the cutoff prewarped.
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type Butterworth struct {
	sampleRate int
	cutoffFreq float64
	response   Response

	// Normalized biquad coefficients (a0 == 1)
	b0, b1, b2 float64
	a1, a2     float64
}

// Response selects the pass region of a Butterworth section
type Response int

const (
	// HighPass attenuates content below the cutoff
	HighPass Response = iota
	// LowPass attenuates content above the cutoff
	LowPass
)

func (r Response) String() string {
	switch r {
	case HighPass:
		return "highpass"
	case LowPass:
		return "lowpass"
	default:
		return "unknown"
	}
}

// NewButterworth creates a 2nd-order Butterworth section.
//
// Parameters:
//   - sampleRate: Sample rate in Hz
//   - cutoffFreq: -3 dB frequency in Hz, strictly between 0 and Nyquist
//   - response: HighPass or LowPass
func NewButterworth(sampleRate int, cutoffFreq float64, response Response) (*Butterworth, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if cutoffFreq <= 0 || cutoffFreq >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff frequency must be between 0 and Nyquist (%d Hz), got %g", sampleRate/2, cutoffFreq)
	}

	bw := &Butterworth{
		sampleRate: sampleRate,
		cutoffFreq: cutoffFreq,
		response:   response,
	}
	bw.computeCoefficients()
	return bw, nil
}

func (bw *Butterworth) computeCoefficients() {
	w0 := 2.0 * math.Pi * bw.cutoffFreq / float64(bw.sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * (1.0 / math.Sqrt2))

	a0 := 1.0 + alpha
	switch bw.response {
	case LowPass:
		bw.b0 = (1.0 - cosW0) / 2.0
		bw.b1 = 1.0 - cosW0
		bw.b2 = (1.0 - cosW0) / 2.0
	default:
		bw.b0 = (1.0 + cosW0) / 2.0
		bw.b1 = -(1.0 + cosW0)
		bw.b2 = (1.0 + cosW0) / 2.0
	}
	bw.a1 = -2.0 * cosW0
	bw.a2 = 1.0 - alpha

	bw.b0 /= a0
	bw.b1 /= a0
	bw.b2 /= a0
	bw.a1 /= a0
	bw.a2 /= a0
}

// Coefficients returns the normalized numerator and denominator
func (bw *Butterworth) Coefficients() (b [3]float64, a [3]float64) {
	return [3]float64{bw.b0, bw.b1, bw.b2}, [3]float64{1, bw.a1, bw.a2}
}

// Filter runs the section causally over input using transposed direct form
// II, starting from state (z0, z1). It returns the output and final state.
//
// The difference equation is:
// y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2]
func (bw *Butterworth) Filter(input []float64, z0, z1 float64) ([]float64, float64, float64) {
	output := make([]float64, len(input))
	for i, x := range input {
		y := bw.b0*x + z0
		z0 = bw.b1*x - bw.a1*y + z1
		z1 = bw.b2*x - bw.a2*y
		output[i] = y
	}
	return output, z0, z1
}

// steadyState returns the filter state for which a constant input of 1
// produces a constant output from the first sample on.
func (bw *Butterworth) steadyState() (float64, float64) {
	dc := (bw.b0 + bw.b1 + bw.b2) / (1.0 + bw.a1 + bw.a2)
	return dc - bw.b0, bw.b2 - bw.a2*dc
}

// FiltFilt applies the section forward and then backward, giving zero phase
// and squared magnitude response.
//
// The signal is extended at both ends by odd reflection about its end
// samples (3 times the filter order long, shortened for tiny inputs) and the
// filter state is initialized to the steady state for the first extended
// sample, which keeps start-up transients out of the result.
func (bw *Butterworth) FiltFilt(input []float64) []float64 {
	n := len(input)
	if n == 0 {
		return []float64{}
	}
	if n == 1 {
		// a single sample has no frequency content to shape beyond DC
		out, _, _ := bw.Filter(input, 0, 0)
		return out
	}

	padLen := min(9, n-1)
	ext := oddExtend(input, padLen)

	zi0, zi1 := bw.steadyState()

	forward, _, _ := bw.Filter(ext, zi0*ext[0], zi1*ext[0])
	reverse(forward)
	backward, _, _ := bw.Filter(forward, zi0*forward[0], zi1*forward[0])
	reverse(backward)

	out := make([]float64, n)
	copy(out, backward[padLen:padLen+n])
	return out
}

// GetFrequencyResponse returns the linear magnitude of a single causal pass
// at the given frequency
func (bw *Butterworth) GetFrequencyResponse(frequency float64) float64 {
	w := 2.0 * math.Pi * frequency / float64(bw.sampleRate)

	numReal := bw.b0 + bw.b1*math.Cos(w) + bw.b2*math.Cos(2*w)
	numImag := -bw.b1*math.Sin(w) - bw.b2*math.Sin(2*w)
	denReal := 1.0 + bw.a1*math.Cos(w) + bw.a2*math.Cos(2*w)
	denImag := -bw.a1*math.Sin(w) - bw.a2*math.Sin(2*w)

	return math.Sqrt((numReal*numReal + numImag*numImag) / (denReal*denReal + denImag*denImag))
}

func oddExtend(x []float64, padLen int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*padLen)
	for i := range padLen {
		ext[i] = 2*x[0] - x[padLen-i]
		ext[padLen+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[padLen:], x)
	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
