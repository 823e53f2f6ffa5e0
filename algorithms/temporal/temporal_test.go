package temporal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clickTrain returns an onset envelope with a spike every period frames
func clickTrain(frames, period int) []float64 {
	env := make([]float64, frames)
	for t := 0; t < frames; t += period {
		env[t] = 1
	}
	return env
}

func TestOnsetStrengthLengthAndShift(t *testing.T) {
	frames := 20
	bins := 1025
	power := make([][]float64, bins)
	for k := range power {
		power[k] = make([]float64, frames)
		for f := 10; f < frames; f++ {
			power[k][f] = 1
		}
	}

	env, err := NewOnsetStrength(22050, 128).Compute(power, 2048, 512)
	require.NoError(t, err)
	require.Len(t, env, frames)

	// the step at frame 10 shows up after the centering shift of 3 frames
	peak := 0
	for i := range env {
		if env[i] > env[peak] {
			peak = i
		}
		assert.GreaterOrEqual(t, env[i], 0.0)
	}
	assert.Equal(t, 12, peak)
	assert.Equal(t, 0.0, env[0])
}

func TestOnsetStrengthEmpty(t *testing.T) {
	_, err := NewOnsetStrength(22050, 128).Compute(nil, 2048, 512)
	assert.Error(t, err)
}

func TestTempogramShape(t *testing.T) {
	env := clickTrain(200, 20)
	tg := NewTempogram(64)
	out, err := tg.Compute(env)
	require.NoError(t, err)
	require.Len(t, out, 64)
	for _, row := range out {
		require.Len(t, row, 200)
	}

	// lag 0 carries the column peak and the beat period shows up as a ridge
	col := 100
	assert.InDelta(t, 1.0, out[0][col], 1e-9)
	assert.Greater(t, out[20][col], out[10][col])
}

func TestTempogramSilence(t *testing.T) {
	out, err := NewTempogram(16).Compute(make([]float64, 10))
	require.NoError(t, err)
	for _, row := range out {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
			assert.InDelta(t, 0, v, 1e-12)
		}
	}
}

func TestEstimateTempo(t *testing.T) {
	// a beat every 20 frames at 22050 Hz / 512 hop is about 129.2 BPM
	sr, hop := 22050, 512
	env := clickTrain(1000, 20)

	tg, err := NewTempogram(384).Compute(env)
	require.NoError(t, err)

	bpm := NewTempoEstimation().EstimateFromTempogram(tg, hop, sr)
	assert.InDelta(t, 60.0*float64(sr)/float64(hop*20), bpm, 1e-9)
}

func TestEstimateTempoNoPeak(t *testing.T) {
	flat := make([][]float64, 384)
	for l := range flat {
		flat[l] = []float64{1}
	}
	assert.Equal(t, 0.0, NewTempoEstimation().EstimateFromTempogram(flat, 512, 22050))
}
