package common

import (
	"math"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	// ZScore subtracts the mean and divides by the population standard
	// deviation. Constant input is only mean-subtracted.
	ZScore NormalizationType = iota
	// Peak divides by the largest absolute value so the result lies in [-1, 1].
	Peak
	// MinMax maps the range onto [0, 1].
	MinMax
)

// Normalizer provides signal and matrix normalization
type Normalizer struct {
	method NormalizationType
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{
		method: method,
	}
}

// Normalize returns a normalized copy of signal using the configured method.
// All-zero input is returned unchanged as a copy.
func (n *Normalizer) Normalize(signal []float64) []float64 {
	switch n.method {
	case Peak:
		return n.peakNormalize(signal)
	case MinMax:
		return n.minMaxNormalize(signal)
	default:
		return n.zScoreNormalize(signal)
	}
}

func (n *Normalizer) zScoreNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	mean := Mean(signal)
	std := PopStandardDeviation(signal)

	if std < 1e-10 {
		for i, val := range signal {
			normalized[i] = val - mean
		}
		return normalized
	}

	for i, val := range signal {
		normalized[i] = (val - mean) / std
	}
	return normalized
}

func (n *Normalizer) peakNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	peak := MaxAbs(signal)
	if peak == 0 {
		copy(normalized, signal)
		return normalized
	}

	for i, val := range signal {
		normalized[i] = val / peak
	}
	return normalized
}

func (n *Normalizer) minMaxNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	if len(signal) == 0 {
		return normalized
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range signal {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-10 {
		return normalized
	}

	for i, val := range signal {
		normalized[i] = (val - lo) / (hi - lo)
	}
	return normalized
}

// NormalizeRows applies the normalizer to every row of m in place.
// m is indexed [row][column].
func (n *Normalizer) NormalizeRows(m [][]float64) {
	for i, row := range m {
		m[i] = n.Normalize(row)
	}
}

// NormalizeColumns applies the normalizer to every column of m in place.
// Rows may not be ragged.
func (n *Normalizer) NormalizeColumns(m [][]float64) {
	if len(m) == 0 {
		return
	}
	column := make([]float64, len(m))
	for j := range m[0] {
		for i := range m {
			column[i] = m[i][j]
		}
		normalized := n.Normalize(column)
		for i := range m {
			m[i][j] = normalized[i]
		}
	}
}
