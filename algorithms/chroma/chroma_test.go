package chroma

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/phrasebound/algorithms/spectral"
	"github.com/RyanBlaney/phrasebound/algorithms/windowing"
)

func TestChromaFindsPitchClass(t *testing.T) {
	sr := 22050
	signal := make([]float64, sr)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 440 * float64(i) / float64(sr))
	}
	spec, err := spectral.NewSTFT().ComputeWithWindow(signal, 2048, 512, sr, windowing.NewHann(2048, false))
	require.NoError(t, err)

	chroma := NewChromaSTFTDefault().FromSpectrogram(spec)
	require.Len(t, chroma, 12)

	mid := spec.TimeFrames / 2
	assert.InDelta(t, 1.0, chroma[9][mid], 1e-12, "A should dominate")
	for c := range 12 {
		assert.LessOrEqual(t, chroma[c][mid], 1.0)
	}
	assert.Equal(t, "A", PitchClassNames[9])
}

func TestChromaSilentFramesStayZero(t *testing.T) {
	spec, err := spectral.NewSTFT().ComputeWithWindow(make([]float64, 4096), 2048, 512, 22050, nil)
	require.NoError(t, err)

	for _, row := range NewChromaSTFTDefault().FromSpectrogram(spec) {
		for _, v := range row {
			assert.Equal(t, 0.0, v)
		}
	}
}

func TestNNFilterAveragesRepeats(t *testing.T) {
	// frames 0, 2 and 4 repeat, frame 1 is an outlier
	features := [][]float64{
		{1, 0, 1, 5, 1},
	}
	out, err := (&NNFilter{Width: 1, K: 2}).Apply(context.Background(), features)
	require.NoError(t, err)
	require.Len(t, out[0], 5)

	// frame 0's nearest neighbours are frames 2 and 4
	assert.InDelta(t, 1.0, out[0][0], 1e-12)
	// input untouched
	assert.Equal(t, []float64{1, 0, 1, 5, 1}, features[0])
}

func TestNNFilterTiesPreferEarlierFrames(t *testing.T) {
	// frames 1..4 are all equally far from frame 0
	features := [][]float64{
		{0, 1, -1, 1, -1},
		{0, 0, 0, 0, 0},
	}
	out, err := (&NNFilter{Width: 1, K: 2}).Apply(context.Background(), features)
	require.NoError(t, err)

	// frames 1 and 2 win the tie: (1 + -1) / 2
	assert.InDelta(t, 0.0, out[0][0], 1e-12)
}

func TestNNFilterMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rows, frames := 12, 150
	features := make([][]float64, rows)
	for r := range features {
		features[r] = make([]float64, frames)
		for c := range features[r] {
			features[r][c] = rng.Float64()
		}
	}

	nf := NewNNFilter(1)
	got, err := nf.Apply(context.Background(), features)
	require.NoError(t, err)

	k := nf.neighbourCount(frames)
	for i := range frames {
		type cand struct {
			frame int
			dist  float64
		}
		var cands []cand
		for j := range frames {
			if j == i {
				continue
			}
			d := 0.0
			for r := range rows {
				diff := features[r][i] - features[r][j]
				d += diff * diff
			}
			cands = append(cands, cand{j, d})
		}
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

		for r := range rows {
			want := 0.0
			for _, c := range cands[:k] {
				want += features[r][c.frame]
			}
			assert.InDelta(t, want/float64(k), got[r][i], 1e-9)
		}
	}
}

func TestNNFilterStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNNFilter(1).Apply(ctx, [][]float64{{1, 2, 3, 4}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNNFilterAutoK(t *testing.T) {
	nf := NewNNFilter(0)
	assert.Equal(t, 1, nf.Width)
	assert.Equal(t, 0, nf.neighbourCount(1))
	assert.Equal(t, 1, nf.neighbourCount(2))
	assert.Equal(t, 2*int(math.Ceil(math.Sqrt(99))), nf.neighbourCount(100))

	single, err := nf.Apply(context.Background(), [][]float64{{3}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}}, single)
}
