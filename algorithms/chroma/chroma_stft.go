package chroma

import (
	"math"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/algorithms/spectral"
)

// ChromaSTFT folds a linear-frequency spectrogram onto the 12 pitch classes
// (C, C#, D, D#, E, F, F#, G, G#, A, A#, B). Every FFT bin inside
// [minFreq, maxFreq] is assigned to the pitch class of its nearest
// equal-tempered semitone.
type ChromaSTFT struct {
	tuningFreq float64 // A4 frequency (default 440 Hz)
	chromaBins int     // Number of chroma bins (always 12)
	minFreq    float64 // Minimum frequency to consider
	maxFreq    float64 // Maximum frequency to consider
}

// NewChromaSTFT creates a chromagram calculator for the given A4 tuning
func NewChromaSTFT(tuningFreq float64) *ChromaSTFT {
	if tuningFreq <= 0 {
		tuningFreq = 440.0
	}
	return &ChromaSTFT{
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
	}
}

// NewChromaSTFTDefault creates chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault() *ChromaSTFT {
	return NewChromaSTFT(440.0)
}

// FromSpectrogram returns the [12][time] chromagram of an STFT. Each column
// holds pitch-class energy scaled so its largest entry is 1; silent frames
// stay zero.
func (cs *ChromaSTFT) FromSpectrogram(stftResult *spectral.STFTResult) [][]float64 {
	chromagram := make([][]float64, cs.chromaBins)
	for c := range chromagram {
		chromagram[c] = make([]float64, stftResult.TimeFrames)
	}

	mapping := cs.calculateChromaMapping(stftResult.FreqBins, stftResult.FreqResolution)
	for t := range stftResult.TimeFrames {
		for f, bin := range mapping {
			if bin < 0 {
				continue
			}
			magnitude := stftResult.Magnitude[t][f]
			chromagram[bin][t] += magnitude * magnitude
		}
	}

	common.NewNormalizer(common.Peak).NormalizeColumns(chromagram)
	return chromagram
}

// calculateChromaMapping maps FFT bins to chroma bins, -1 for bins outside
// the analysed range
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution
		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := int(math.Round(cs.frequencyToMIDI(frequency)))
		mapping[f] = ((midiNote % 12) + 12) % 12
	}

	return mapping
}

// frequencyToMIDI converts frequency to MIDI note number
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	// A4 = MIDI note 69
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

// PitchClassNames lists chroma rows in order
var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
