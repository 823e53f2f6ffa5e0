package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 512, cfg.HopLength)
	assert.Equal(t, 25, cfg.SmoothingWindow)
	assert.Equal(t, 21, cfg.FramesFor(cfg.KernelSeconds))
	assert.Equal(t, 43, cfg.FramesFor(cfg.MinPeakDistanceSec))
	assert.InDelta(t, 512.0/22050.0, cfg.FrameTime(1), 1e-12)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero hop", func(c *Config) { c.HopLength = 0 }, "hop_length"},
		{"fft not power of two", func(c *Config) { c.FFTSize = 1000 }, "fft_size"},
		{"negative threshold", func(c *Config) { c.ThresholdFactor = -1 }, "threshold_factor"},
		{"sustain ratio of one", func(c *Config) { c.SustainRatio = 1 }, "sustain_ratio"},
		{"cutoff above nyquist", func(c *Config) { c.HighpassCutoff = 20000 }, "highpass_cutoff"},
		{"zero smoothing", func(c *Config) { c.SmoothingWindow = 0 }, "smoothing_window"},
		{"too many mfcc", func(c *Config) { c.NumMFCC = 41 }, "num_mfcc"},
		{"negative kernel", func(c *Config) { c.KernelHalfWidth = -2 }, "kernel_half_width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Problems, 1)
			assert.Contains(t, verr.Problems[0], tt.field)
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HopLength = -1
	cfg.SampleRate = 0
	cfg.TempogramWindow = 1

	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, verr.Error(), "hop_length")
}
