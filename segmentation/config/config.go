package config

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
)

// Config holds every tunable of the phrase-boundary pipeline
type Config struct {
	// Framing
	SampleRate int `json:"sample_rate" mapstructure:"sample_rate" yaml:"sample_rate"`
	HopLength  int `json:"hop_length" mapstructure:"hop_length" yaml:"hop_length"`
	FFTSize    int `json:"fft_size" mapstructure:"fft_size" yaml:"fft_size"`

	// Novelty kernel
	KernelSeconds   float64 `json:"kernel_seconds" mapstructure:"kernel_seconds" yaml:"kernel_seconds"`
	KernelHalfWidth int     `json:"kernel_half_width" mapstructure:"kernel_half_width" yaml:"kernel_half_width"` // 0 derives L from KernelSeconds

	// Post-processing
	SmoothingWindow    int     `json:"smoothing_window" mapstructure:"smoothing_window" yaml:"smoothing_window"`
	MinPeakDistanceSec float64 `json:"min_peak_distance_sec" mapstructure:"min_peak_distance_sec" yaml:"min_peak_distance_sec"`
	ThresholdFactor    float64 `json:"threshold_factor" mapstructure:"threshold_factor" yaml:"threshold_factor"`
	SustainWindowSec   float64 `json:"sustain_window_sec" mapstructure:"sustain_window_sec" yaml:"sustain_window_sec"`
	SustainRatio       float64 `json:"sustain_ratio" mapstructure:"sustain_ratio" yaml:"sustain_ratio"`
	MaxBoundaries      int     `json:"max_boundaries" mapstructure:"max_boundaries" yaml:"max_boundaries"` // size of each entry/exit view

	// Preprocessing
	HighpassCutoff float64 `json:"highpass_cutoff" mapstructure:"highpass_cutoff" yaml:"highpass_cutoff"`
	HPSSKernelSize int     `json:"hpss_kernel_size" mapstructure:"hpss_kernel_size" yaml:"hpss_kernel_size"`
	HPSSPower      float64 `json:"hpss_power" mapstructure:"hpss_power" yaml:"hpss_power"`

	// Features
	ChromaNeighborWidth int `json:"chroma_neighbor_width" mapstructure:"chroma_neighbor_width" yaml:"chroma_neighbor_width"`
	NumMFCC             int `json:"num_mfcc" mapstructure:"num_mfcc" yaml:"num_mfcc"`
	NumMelBands         int `json:"num_mel_bands" mapstructure:"num_mel_bands" yaml:"num_mel_bands"`
	DeltaWidth          int `json:"delta_width" mapstructure:"delta_width" yaml:"delta_width"`
	OnsetMelBands       int `json:"onset_mel_bands" mapstructure:"onset_mel_bands" yaml:"onset_mel_bands"`
	TempogramWindow     int `json:"tempogram_window" mapstructure:"tempogram_window" yaml:"tempogram_window"`

	// Annotate adds bpm and key estimates to each result
	Annotate bool `json:"annotate" mapstructure:"annotate" yaml:"annotate"`
}

// DefaultConfig returns the default analysis configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:          22050,
		HopLength:           512,
		FFTSize:             2048,
		KernelSeconds:       0.5,
		KernelHalfWidth:     0,
		SmoothingWindow:     25,
		MinPeakDistanceSec:  1.0,
		ThresholdFactor:     1.0,
		SustainWindowSec:    0.2,
		SustainRatio:        0.6,
		MaxBoundaries:       25,
		HighpassCutoff:      100,
		HPSSKernelSize:      31,
		HPSSPower:           2,
		ChromaNeighborWidth: 1,
		NumMFCC:             13,
		NumMelBands:         40,
		DeltaWidth:          4,
		OnsetMelBands:       128,
		TempogramWindow:     384,
	}
}

// ValidationError lists every invalid parameter found by Validate
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid analysis config: " + strings.Join(e.Problems, "; ")
}

// Validate checks numeric ranges. The returned error is a *ValidationError.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.SampleRate <= 0 {
		add("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.HopLength <= 0 {
		add("hop_length must be positive, got %d", c.HopLength)
	}
	if c.FFTSize < 4 || !common.IsPowerOfTwo(c.FFTSize) {
		add("fft_size must be a power of two >= 4, got %d", c.FFTSize)
	}
	if c.KernelSeconds < 0 {
		add("kernel_seconds must not be negative, got %g", c.KernelSeconds)
	}
	if c.KernelHalfWidth < 0 {
		add("kernel_half_width must not be negative, got %d", c.KernelHalfWidth)
	}
	if c.SmoothingWindow < 1 {
		add("smoothing_window must be at least 1, got %d", c.SmoothingWindow)
	}
	if c.MinPeakDistanceSec < 0 {
		add("min_peak_distance_sec must not be negative, got %g", c.MinPeakDistanceSec)
	}
	if c.ThresholdFactor < 0 {
		add("threshold_factor must not be negative, got %g", c.ThresholdFactor)
	}
	if c.SustainWindowSec < 0 {
		add("sustain_window_sec must not be negative, got %g", c.SustainWindowSec)
	}
	if c.SustainRatio < 0 || c.SustainRatio >= 1 {
		add("sustain_ratio must be in [0, 1), got %g", c.SustainRatio)
	}
	if c.MaxBoundaries < 1 {
		add("max_boundaries must be at least 1, got %d", c.MaxBoundaries)
	}
	if c.SampleRate > 0 && (c.HighpassCutoff <= 0 || c.HighpassCutoff >= float64(c.SampleRate)/2) {
		add("highpass_cutoff must be in (0, %d) Hz, got %g", c.SampleRate/2, c.HighpassCutoff)
	}
	if c.HPSSKernelSize < 1 {
		add("hpss_kernel_size must be at least 1, got %d", c.HPSSKernelSize)
	}
	if c.HPSSPower <= 0 {
		add("hpss_power must be positive, got %g", c.HPSSPower)
	}
	if c.ChromaNeighborWidth < 0 {
		add("chroma_neighbor_width must not be negative, got %d", c.ChromaNeighborWidth)
	}
	if c.NumMFCC < 1 || c.NumMFCC > c.NumMelBands {
		add("num_mfcc must be in [1, num_mel_bands], got %d", c.NumMFCC)
	}
	if c.NumMelBands < 1 {
		add("num_mel_bands must be at least 1, got %d", c.NumMelBands)
	}
	if c.DeltaWidth < 1 {
		add("delta_width must be at least 1, got %d", c.DeltaWidth)
	}
	if c.OnsetMelBands < 1 {
		add("onset_mel_bands must be at least 1, got %d", c.OnsetMelBands)
	}
	if c.TempogramWindow < 2 {
		add("tempogram_window must be at least 2, got %d", c.TempogramWindow)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// FramesFor converts a duration in seconds to a frame count at the configured hop
func (c *Config) FramesFor(seconds float64) int {
	return int(seconds * float64(c.SampleRate) / float64(c.HopLength))
}

// FrameTime converts a frame index to seconds
func (c *Config) FrameTime(frame int) float64 {
	return float64(frame) * float64(c.HopLength) / float64(c.SampleRate)
}
