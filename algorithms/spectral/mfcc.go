package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients over whole spectrograms
type MFCC struct {
	numCoefficients int
	numMelFilters   int
	sampleRate      int
	lowFreq         float64
	highFreq        float64
	topDB           float64
	useLiftering    bool
	lifterCoeff     float64

	melScale    *MelScale
	filterBank  [][]float64
	dctMatrix   [][]float64
	fftSize     int
	initialized bool
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // Number of MFCC coefficients (default: 13)
	NumMelFilters   int     `json:"num_mel_filters"`  // Number of mel filters (default: 40)
	LowFreq         float64 `json:"low_freq"`         // Low frequency bound (default: 0)
	HighFreq        float64 `json:"high_freq"`        // High frequency bound (default: sampleRate/2)
	TopDB           float64 `json:"top_db"`           // Dynamic range of the log-mel input (default: 80)
	UseLiftering    bool    `json:"use_liftering"`    // Apply sinusoidal liftering
	LifterCoeff     float64 `json:"lifter_coeff"`     // Liftering coefficient (default: 22)
}

// NewMFCCWithParams creates a new MFCC computer with custom parameters
func NewMFCCWithParams(sampleRate int, params MFCCParams) *MFCC {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 40
	}
	if params.HighFreq <= 0 {
		params.HighFreq = float64(sampleRate) / 2.0
	}
	if params.TopDB <= 0 {
		params.TopDB = 80
	}
	if params.LifterCoeff <= 0 {
		params.LifterCoeff = 22.0
	}

	return &MFCC{
		numCoefficients: params.NumCoefficients,
		numMelFilters:   params.NumMelFilters,
		sampleRate:      sampleRate,
		lowFreq:         params.LowFreq,
		highFreq:        params.HighFreq,
		topDB:           params.TopDB,
		useLiftering:    params.UseLiftering,
		lifterCoeff:     params.LifterCoeff,
		melScale:        NewMelScale(),
	}
}

// Initialize prepares the filter bank and DCT matrix for the given FFT size
func (mfcc *MFCC) Initialize(fftSize int) error {
	if fftSize <= 0 {
		return fmt.Errorf("invalid FFT size: %d", fftSize)
	}

	mfcc.filterBank = mfcc.melScale.CreateMelFilterBank(
		mfcc.numMelFilters,
		fftSize,
		mfcc.sampleRate,
		mfcc.lowFreq,
		mfcc.highFreq,
	)
	if len(mfcc.filterBank) == 0 {
		return fmt.Errorf("failed to create mel filter bank")
	}

	mfcc.createDCTMatrix()
	mfcc.fftSize = fftSize
	mfcc.initialized = true
	return nil
}

// ComputeSpectrogram turns a [freq][time] power spectrogram into a
// [coefficient][time] MFCC matrix
func (mfcc *MFCC) ComputeSpectrogram(power [][]float64) ([][]float64, error) {
	if len(power) == 0 {
		return nil, fmt.Errorf("empty power spectrogram")
	}

	fftSize := (len(power) - 1) * 2
	if !mfcc.initialized || mfcc.fftSize != fftSize {
		if err := mfcc.Initialize(fftSize); err != nil {
			return nil, fmt.Errorf("failed to initialize MFCC: %w", err)
		}
	}

	melDB := PowerToDB(mfcc.melScale.ApplyFilterBank(power, mfcc.filterBank), 1.0, 1e-10, mfcc.topDB)

	frames := len(power[0])
	coeffs := make([][]float64, mfcc.numCoefficients)
	for k := range coeffs {
		coeffs[k] = make([]float64, frames)
	}

	column := make([]float64, mfcc.numMelFilters)
	for t := range frames {
		for m := range column {
			column[m] = melDB[m][t]
		}
		frame := mfcc.applyDCT(column)
		if mfcc.useLiftering {
			frame = mfcc.applyLiftering(frame)
		}
		for k, v := range frame {
			coeffs[k][t] = v
		}
	}

	return coeffs, nil
}

// createDCTMatrix builds an orthonormal DCT-II matrix
func (mfcc *MFCC) createDCTMatrix() {
	n := float64(mfcc.numMelFilters)
	mfcc.dctMatrix = make([][]float64, mfcc.numCoefficients)

	for k := range mfcc.numCoefficients {
		mfcc.dctMatrix[k] = make([]float64, mfcc.numMelFilters)
		scale := math.Sqrt(2.0 / n)
		if k == 0 {
			scale = math.Sqrt(1.0 / n)
		}
		for i := range mfcc.numMelFilters {
			mfcc.dctMatrix[k][i] = scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/n)
		}
	}
}

func (mfcc *MFCC) applyDCT(logMel []float64) []float64 {
	out := make([]float64, mfcc.numCoefficients)
	for k, row := range mfcc.dctMatrix {
		sum := 0.0
		for i, w := range row {
			sum += logMel[i] * w
		}
		out[k] = sum
	}
	return out
}

// applyLiftering applies sinusoidal liftering, leaving C0 untouched
func (mfcc *MFCC) applyLiftering(coeffs []float64) []float64 {
	liftered := make([]float64, len(coeffs))
	liftered[0] = coeffs[0]
	for i := 1; i < len(coeffs); i++ {
		lifter := 1.0 + (mfcc.lifterCoeff/2.0)*math.Sin(math.Pi*float64(i)/mfcc.lifterCoeff)
		liftered[i] = coeffs[i] * lifter
	}
	return liftered
}

// GetParams returns the current MFCC parameters
func (mfcc *MFCC) GetParams() MFCCParams {
	return MFCCParams{
		NumCoefficients: mfcc.numCoefficients,
		NumMelFilters:   mfcc.numMelFilters,
		LowFreq:         mfcc.lowFreq,
		HighFreq:        mfcc.highFreq,
		TopDB:           mfcc.topDB,
		UseLiftering:    mfcc.useLiftering,
		LifterCoeff:     mfcc.lifterCoeff,
	}
}
