package segmentation

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/phrasebound/segmentation/config"
)

func randomFeatures(channels, frames int, seed int64) *FeatureMatrix {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, channels)
	for c := range data {
		data[c] = make([]float64, frames)
		for t := range data[c] {
			data[c][t] = rng.Float64()*2 - 1
		}
	}
	return &FeatureMatrix{Data: data}
}

func zeroFeatures(channels, frames int) *FeatureMatrix {
	data := make([][]float64, channels)
	for c := range data {
		data[c] = make([]float64, frames)
	}
	return &FeatureMatrix{Data: data}
}

func TestSongID(t *testing.T) {
	assert.Equal(t, "Artist - Track", SongID("/music/wav_files/Artist - Track.wav"))
	assert.Equal(t, "song.final", SongID("song.final.mp3"))
	assert.Equal(t, "noext", SongID("dir/noext"))
}

func TestAudioSignalIsImmutable(t *testing.T) {
	samples := []float64{0.1, 0.2, 0.3}
	sig := NewAudioSignal(samples, 10)
	samples[0] = 9

	got := sig.Samples()
	got[1] = 9

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, sig.Samples())
	assert.InDelta(t, 0.3, sig.Duration(), 1e-12)
}

func TestCheckerboardKernel(t *testing.T) {
	k := CheckerboardKernel(0)
	r, c := k.Dims()
	require.Equal(t, 1, r)
	require.Equal(t, 1, c)
	assert.Equal(t, 1.0, k.At(0, 0))

	k = CheckerboardKernel(4)
	r, c = k.Dims()
	require.Equal(t, 9, r)
	require.Equal(t, 9, c)

	assert.Equal(t, 1.0, k.At(4, 4))
	assert.Greater(t, k.At(0, 0), 0.0)
	assert.Greater(t, k.At(8, 8), 0.0)
	assert.Less(t, k.At(0, 8), 0.0)
	assert.Less(t, k.At(8, 0), 0.0)
	assert.Greater(t, k.At(4, 0), 0.0)
	assert.Greater(t, k.At(0, 4), 0.0)

	// sigma = L/2 = 2
	assert.InDelta(t, math.Exp(-1), k.At(2, 2), 1e-12)
	for i := range 9 {
		for j := range 9 {
			assert.Equal(t, k.At(i, j), k.At(j, i))
		}
	}
}

func TestEffectiveHalfWidth(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, 21, EffectiveHalfWidth(cfg, 431))
	assert.Equal(t, 21, EffectiveHalfWidth(cfg, 43))
	assert.Equal(t, 20, EffectiveHalfWidth(cfg, 42))
	assert.Equal(t, 8, EffectiveHalfWidth(cfg, 18))
	assert.Equal(t, 0, EffectiveHalfWidth(cfg, 1))

	cfg.KernelHalfWidth = 5
	assert.Equal(t, 5, EffectiveHalfWidth(cfg, 431))
}

func TestComputeSSMProperties(t *testing.T) {
	fm := randomFeatures(20, 60, 7)
	for c := range fm.Data {
		fm.Data[c][13] = 0
	}

	ssm, err := ComputeSSM(context.Background(), fm)
	require.NoError(t, err)
	require.Equal(t, 60, ssm.Size())

	for i := range 60 {
		if i == 13 {
			assert.Equal(t, 0.0, ssm.At(i, i))
		} else {
			assert.InDelta(t, 1.0, ssm.At(i, i), 1e-12)
		}
		for j := range 60 {
			v := ssm.At(i, j)
			assert.False(t, math.IsNaN(v))
			assert.LessOrEqual(t, v, 1.0)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.Equal(t, v, ssm.At(j, i))
			if i == 13 || j == 13 {
				assert.Equal(t, 0.0, v)
			}
		}
	}
}

func TestComputeSSMMatchesCosine(t *testing.T) {
	fm := &FeatureMatrix{Data: [][]float64{
		{1, 0, 1, -1},
		{0, 1, 1, 0},
	}}
	ssm, err := ComputeSSM(context.Background(), fm)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, ssm.At(0, 1), 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, ssm.At(0, 2), 1e-12)
	assert.InDelta(t, -1.0, ssm.At(0, 3), 1e-12)
	assert.InDelta(t, -1/math.Sqrt2, ssm.At(2, 3), 1e-12)
}

func TestZeroEnergyFramesNeverProduceNaN(t *testing.T) {
	for _, frames := range []int{9, 57} {
		ssm, err := ComputeSSM(context.Background(), zeroFeatures(5, frames))
		require.NoError(t, err)

		for i := range frames {
			for j := range frames {
				assert.Equal(t, 0.0, ssm.At(i, j))
			}
		}

		l := EffectiveHalfWidth(config.DefaultConfig(), frames)
		novelty, err := Novelty(context.Background(), ssm, l)
		require.NoError(t, err)
		require.Len(t, novelty, frames)
		for _, v := range novelty {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestNoveltyEdgesAreZero(t *testing.T) {
	fm := randomFeatures(8, 100, 3)
	ssm, err := ComputeSSM(context.Background(), fm)
	require.NoError(t, err)

	const l = 10
	novelty, err := Novelty(context.Background(), ssm, l)
	require.NoError(t, err)
	require.Len(t, novelty, 100)

	for t0 := range l {
		assert.Equal(t, 0.0, novelty[t0])
	}
	for t0 := 100 - l; t0 < 100; t0++ {
		assert.Equal(t, 0.0, novelty[t0])
	}
	assert.NotEqual(t, 0.0, novelty[50])
}

func TestNoveltyPeaksAtBlockChange(t *testing.T) {
	// two homogeneous sections meeting at frame 40
	data := [][]float64{make([]float64, 80), make([]float64, 80)}
	for t0 := range 80 {
		if t0 < 40 {
			data[0][t0] = 1
		} else {
			data[1][t0] = 1
		}
	}
	ssm, err := ComputeSSM(context.Background(), &FeatureMatrix{Data: data})
	require.NoError(t, err)

	novelty, err := Novelty(context.Background(), ssm, 8)
	require.NoError(t, err)

	best := 0
	for t0, v := range novelty {
		if v > novelty[best] {
			best = t0
		}
	}
	assert.InDelta(t, 40, best, 1)
}

func TestNoveltyRejectsOversizedKernel(t *testing.T) {
	ssm, err := ComputeSSM(context.Background(), randomFeatures(3, 5, 1))
	require.NoError(t, err)
	_, err = Novelty(context.Background(), ssm, 3)
	assert.Error(t, err)
}

func TestNoveltyObservesCancellation(t *testing.T) {
	ssm, err := ComputeSSM(context.Background(), randomFeatures(3, 50, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Novelty(ctx, ssm, 5)
	assert.ErrorIs(t, err, context.Canceled)
}
