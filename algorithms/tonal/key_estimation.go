package tonal

import (
	"fmt"

	"github.com/RyanBlaney/phrasebound/algorithms/chroma"
	"github.com/RyanBlaney/phrasebound/algorithms/stats"
)

// KeyMode represents major or minor mode
type KeyMode int

const (
	KeyModeMajor KeyMode = iota
	KeyModeMinor
)

func (m KeyMode) String() string {
	if m == KeyModeMinor {
		return "minor"
	}
	return "major"
}

// KeyEstimate is the best-matching key for a chromagram
type KeyEstimate struct {
	Key      int     `json:"key"`      // Tonic pitch class (0=C, 1=C#, ..., 11=B)
	Mode     KeyMode `json:"mode"`     // Major or Minor
	KeyName  string  `json:"key_name"` // Tonic name, e.g. "F#"
	Strength float64 `json:"strength"` // Pearson correlation with the winning profile
}

// KeyEstimator matches the mean chroma vector against rotated
// Krumhansl-Schmuckler key profiles
type KeyEstimator struct {
	majorProfile []float64
	minorProfile []float64
}

// NewKeyEstimator creates a key estimator using the Krumhansl-Schmuckler
// profiles (empirical listener ratings)
func NewKeyEstimator() *KeyEstimator {
	return &KeyEstimator{
		majorProfile: []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88},
		minorProfile: []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17},
	}
}

// Estimate returns the key of a [12][time] chromagram. Ties go to the lower
// pitch class, and major wins over minor at equal strength.
func (ke *KeyEstimator) Estimate(chromagram [][]float64) (*KeyEstimate, error) {
	if len(chromagram) != 12 {
		return nil, fmt.Errorf("chromagram must have 12 rows, got %d", len(chromagram))
	}

	mean := make([]float64, 12)
	for c, row := range chromagram {
		if len(row) == 0 {
			return nil, fmt.Errorf("empty chromagram")
		}
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		mean[c] = sum / float64(len(row))
	}

	best := &KeyEstimate{Strength: -2}
	for key := range 12 {
		for _, mode := range []KeyMode{KeyModeMajor, KeyModeMinor} {
			profile := ke.majorProfile
			if mode == KeyModeMinor {
				profile = ke.minorProfile
			}
			corr := ke.correlateWithProfile(mean, profile, key)
			if corr > best.Strength {
				best = &KeyEstimate{Key: key, Mode: mode, Strength: corr}
			}
		}
	}

	best.KeyName = chroma.PitchClassNames[best.Key]
	return best, nil
}

// correlateWithProfile correlates a chroma vector with the profile rotated
// so its tonic sits on keyShift
func (ke *KeyEstimator) correlateWithProfile(chromaVector, profile []float64, keyShift int) float64 {
	shifted := make([]float64, len(profile))
	for i := range profile {
		shifted[(i+keyShift)%len(profile)] = profile[i]
	}
	return stats.PearsonCorrelationFunc(chromaVector, shifted)
}
