package spectral

import (
	"math"
)

// MelScale provides mel frequency conversion and filter bank construction
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates a [numFilters][fftSize/2+1] bank of triangular
// filters equally spaced on the mel scale. Triangles are evaluated at each
// bin's exact frequency so narrow low-frequency filters never collapse, and
// each filter is scaled to unit area.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}
	if highFreq <= 0 || highFreq > float64(sampleRate)/2 {
		highFreq = float64(sampleRate) / 2
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	hzPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range hzPoints {
		hzPoints[i] = ms.MelToHz(lowMel + float64(i)*melStep)
	}

	numBins := fftSize/2 + 1
	binHz := float64(sampleRate) / float64(fftSize)

	filterBank := make([][]float64, numFilters)
	for m := range filterBank {
		filterBank[m] = make([]float64, numBins)
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		area := 2.0 / (right - left)

		for k := range numBins {
			f := float64(k) * binHz
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Max(0, math.Min(lower, upper))
			filterBank[m][k] = w * area
		}
	}

	return filterBank
}

// ApplyFilterBank projects a [freq][time] power spectrogram onto the filter
// bank, returning [filter][time]
func (ms *MelScale) ApplyFilterBank(power [][]float64, filterBank [][]float64) [][]float64 {
	if len(filterBank) == 0 || len(power) == 0 {
		return [][]float64{}
	}

	frames := len(power[0])
	mel := make([][]float64, len(filterBank))
	for m, filter := range filterBank {
		mel[m] = make([]float64, frames)
		for k := 0; k < len(filter) && k < len(power); k++ {
			w := filter[k]
			if w == 0 {
				continue
			}
			row := power[k]
			for t := range frames {
				mel[m][t] += w * row[t]
			}
		}
	}

	return mel
}

// PowerToDB converts a power spectrogram to decibels relative to ref.
// Values are floored at amin before the log, and when topDB is positive the
// result is clipped to no more than topDB below its peak.
func PowerToDB(power [][]float64, ref, amin, topDB float64) [][]float64 {
	refDB := 10.0 * math.Log10(math.Max(amin, ref))
	peak := math.Inf(-1)

	db := make([][]float64, len(power))
	for i, row := range power {
		db[i] = make([]float64, len(row))
		for j, p := range row {
			v := 10.0*math.Log10(math.Max(amin, p)) - refDB
			db[i][j] = v
			peak = math.Max(peak, v)
		}
	}

	if topDB > 0 && !math.IsInf(peak, -1) {
		floor := peak - topDB
		for i := range db {
			for j := range db[i] {
				db[i][j] = math.Max(db[i][j], floor)
			}
		}
	}

	return db
}
