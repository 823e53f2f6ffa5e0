package segmentation

import (
	"path/filepath"
	"strings"
	"time"
)

// AudioSignal is an immutable mono waveform
type AudioSignal struct {
	samples    []float64
	sampleRate int
}

// NewAudioSignal copies samples into a new signal
func NewAudioSignal(samples []float64, sampleRate int) AudioSignal {
	owned := make([]float64, len(samples))
	copy(owned, samples)
	return AudioSignal{samples: owned, sampleRate: sampleRate}
}

// Samples returns a copy of the waveform
func (s AudioSignal) Samples() []float64 {
	out := make([]float64, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s AudioSignal) Len() int        { return len(s.samples) }
func (s AudioSignal) SampleRate() int { return s.sampleRate }

// Duration returns the signal length in seconds
func (s AudioSignal) Duration() float64 {
	if s.sampleRate <= 0 {
		return 0
	}
	return float64(len(s.samples)) / float64(s.sampleRate)
}

// Song is one analysis input
type Song struct {
	ID     string
	Path   string
	Signal AudioSignal
}

// NewSong builds a song record for a decoded file
func NewSong(path string, samples []float64, sampleRate int) Song {
	return Song{
		ID:     SongID(path),
		Path:   path,
		Signal: NewAudioSignal(samples, sampleRate),
	}
}

// SongID derives the identifier written to the results document: the file
// base name without its extension
func SongID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Preprocessed holds the harmonic and percussive parts of one signal
type Preprocessed struct {
	Harmonic   AudioSignal
	Percussive AudioSignal
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
