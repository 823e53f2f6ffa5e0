package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for the real-signal transforms the analysis needs.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the full complex spectrum of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes via Bluestein
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// InverseHalfSpectrum rebuilds a length-n real signal from its n/2+1
// non-negative frequency bins using Hermitian symmetry.
func (f *FFT) InverseHalfSpectrum(half []complex128, n int) []float64 {
	if n <= 0 || len(half) == 0 {
		return []float64{}
	}

	full := make([]complex128, n)
	for k := 0; k < len(half) && k < n; k++ {
		full[k] = half[k]
	}
	for k := 1; k < (n+1)/2 && k < len(half); k++ {
		re, im := real(half[k]), imag(half[k])
		full[n-k] = complex(re, -im)
	}
	// DC and Nyquist bins of a real signal carry no imaginary part
	full[0] = complex(real(full[0]), 0)
	if n%2 == 0 && n/2 < len(half) {
		full[n/2] = complex(real(half[n/2]), 0)
	}

	return f.ComputeInverseReal(full)
}
