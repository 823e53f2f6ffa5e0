package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft     *FFT
	center  bool
	workers int
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64    `json:"magnitude"`       // Time x Frequency magnitude matrix
	Complex        [][]complex128 `json:"-"`               // Raw complex spectrogram (not serialized)
	TimeFrames     int            `json:"time_frames"`     // Number of time frames
	FreqBins       int            `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int            `json:"sample_rate"`     // Sample rate
	WindowSize     int            `json:"window_size"`     // FFT window size
	HopSize        int            `json:"hop_size"`        // Hop size between frames
	Centered       bool           `json:"centered"`        // Frames centered on t*hop
	SignalLength   int            `json:"signal_length"`   // Input length in samples
	FreqResolution float64        `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64        `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
	Coefficients() []float64
}

// NewSTFT creates a centered, single-worker STFT calculator. Frame t is
// centered on sample t*hop and the signal is zero padded by half a window
// at both ends, giving 1 + len/hop frames.
func NewSTFT() *STFT {
	return &STFT{
		fft:     NewFFT(),
		center:  true,
		workers: 1,
	}
}

// WithCenter toggles frame centering
func (s *STFT) WithCenter(center bool) *STFT {
	s.center = center
	return s
}

// WithWorkers sets the number of frame workers. Zero picks a count from the
// CPU count and workload.
func (s *STFT) WithWorkers(workers int) *STFT {
	s.workers = workers
	return s
}

// NumFrames returns the frame count for a signal of the given length
func (s *STFT) NumFrames(signalLength, windowSize, hopSize int) int {
	if hopSize <= 0 {
		return 0
	}
	if s.center {
		signalLength += 2 * (windowSize / 2)
	}
	if signalLength < windowSize {
		return 0
	}
	return (signalLength-windowSize)/hopSize + 1
}

// ComputeWithWindow computes the STFT of signal with the given window
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	padded := signal
	if s.center {
		pad := windowSize / 2
		padded = make([]float64, len(signal)+2*pad)
		copy(padded[pad:], signal)
	}

	numFrames := s.NumFrames(len(signal), windowSize, hopSize)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	complexSpectrum := make([][]complex128, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
		complexSpectrum[i] = make([]complex128, freqBins)
	}

	numWorkers := s.workers
	if numWorkers <= 0 {
		numWorkers = getOptimalWorkerCount(numFrames)
	}
	numWorkers = max(1, min(numWorkers, numFrames))

	jobs := make(chan int, numFrames)
	errs := make(chan error, numWorkers)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, padded[start:start+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errs <- fmt.Errorf("frame %d: %w", frameIdx, err)
						return
					}
				}

				fftResult := s.fft.Compute(frameBuffer)
				for i := range freqBins {
					complexSpectrum[frameIdx][i] = fftResult[i]
					magnitude[frameIdx][i] = cmplx.Abs(fftResult[i])
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		Centered:       s.center,
		SignalLength:   len(signal),
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// Inverse reconstructs a time signal of the given length from a complex
// spectrogram by windowed overlap-add, normalized by the summed squared
// window. Samples where the window sum vanishes are left unscaled.
func (s *STFT) Inverse(spectrum [][]complex128, windowSize, hopSize, length int, window Window) ([]float64, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("window and hop size must be positive")
	}
	if length < 0 {
		return nil, fmt.Errorf("negative output length")
	}

	var coeffs []float64
	if window != nil {
		coeffs = window.Coefficients()
	}
	if coeffs == nil {
		coeffs = make([]float64, windowSize)
		for i := range coeffs {
			coeffs[i] = 1
		}
	}
	if len(coeffs) != windowSize {
		return nil, fmt.Errorf("window length (%d) doesn't match window size (%d)", len(coeffs), windowSize)
	}

	total := windowSize + hopSize*max(len(spectrum)-1, 0)
	out := make([]float64, total)
	norm := make([]float64, total)

	for t, frame := range spectrum {
		frameSignal := s.fft.InverseHalfSpectrum(frame, windowSize)
		start := t * hopSize
		for i, v := range frameSignal {
			out[start+i] += v * coeffs[i]
			norm[start+i] += coeffs[i] * coeffs[i]
		}
	}

	const tiny = 1e-10
	for i := range out {
		if norm[i] > tiny {
			out[i] /= norm[i]
		}
	}

	offset := 0
	if s.center {
		offset = windowSize / 2
	}

	result := make([]float64, length)
	if offset < len(out) {
		copy(result, out[offset:])
	}
	return result, nil
}

// PowerSpectrogram returns |X|^2 transposed to [freq][time]
func (r *STFTResult) PowerSpectrogram() [][]float64 {
	return r.transposed(func(m float64) float64 { return m * m })
}

// MagnitudeByFrequency returns |X| transposed to [freq][time]
func (r *STFTResult) MagnitudeByFrequency() [][]float64 {
	return r.transposed(func(m float64) float64 { return m })
}

func (r *STFTResult) transposed(f func(float64) float64) [][]float64 {
	out := make([][]float64, r.FreqBins)
	for k := range out {
		out[k] = make([]float64, r.TimeFrames)
		for t := range r.TimeFrames {
			out[k][t] = f(r.Magnitude[t][k])
		}
	}
	return out
}

// BinFrequency returns the center frequency of bin k in Hz
func (r *STFTResult) BinFrequency(k int) float64 {
	return float64(k) * r.FreqResolution
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}

