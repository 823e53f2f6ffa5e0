package segmentation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/phrasebound/segmentation/config"
)

// bumps builds a fixed novelty curve with Gaussian bumps of the given
// heights centred at the given frames
func bumps(frames int, centres []int, heights []float64) []float64 {
	curve := make([]float64, frames)
	for i, c := range centres {
		for t := range curve {
			d := float64(t - c)
			curve[t] += heights[i] * math.Exp(-d*d/128)
		}
	}
	return curve
}

func TestSmoothKeepsLength(t *testing.T) {
	p := NewPostProcessor(config.DefaultConfig())
	assert.Len(t, p.Smooth(make([]float64, 400)), 400)
	assert.Len(t, p.Smooth(make([]float64, 7)), 7)
	assert.Empty(t, p.Smooth(nil))
}

func TestMinPeakDistance(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, 43, NewPostProcessor(cfg).MinPeakDistance())

	cfg.MinPeakDistanceSec = 0
	assert.Equal(t, 1, NewPostProcessor(cfg).MinPeakDistance())
}

func TestThresholdFactorIsMonotonic(t *testing.T) {
	novelty := bumps(400, []int{80, 160, 240, 320}, []float64{1, 3, 0.5, 2})

	count := func(factor float64) int {
		cfg := config.DefaultConfig()
		cfg.ThresholdFactor = factor
		set := NewPostProcessor(cfg).Process(novelty, 21)
		if set.Fallback {
			return 0
		}
		return set.Len()
	}

	low, high := count(0.0), count(2.0)
	assert.Equal(t, 4, low)
	assert.GreaterOrEqual(t, low, high)
	assert.Less(t, high, 4)
}

func TestSustainedRejectsSpikes(t *testing.T) {
	p := NewPostProcessor(config.DefaultConfig())

	smoothed := make([]float64, 100)
	smoothed[50] = 10
	for t0 := 70; t0 < 90; t0++ {
		smoothed[t0] = 5
	}

	kept := p.Sustained(smoothed, []int{50, 80}, 0.1)
	assert.Equal(t, []int{80}, kept)
}

func TestSustainedWindowAlwaysHoldsPeak(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SustainWindowSec = 0
	p := NewPostProcessor(cfg)

	smoothed := []float64{0, 1, 0}
	assert.Equal(t, []int{1}, p.Sustained(smoothed, []int{1}, 0.5))
	assert.Empty(t, p.Sustained(smoothed, []int{1}, 1.0))
}

func TestFallbackGrid(t *testing.T) {
	assert.Equal(t, []int{10, 30, 50, 70, 90}, FallbackGrid(100, 10))
	assert.Equal(t, []int{8}, FallbackGrid(18, 8))
	assert.Equal(t, []int{0, 1, 2}, FallbackGrid(3, 0))
}

func TestProcessFallsBackOnFlatNovelty(t *testing.T) {
	cfg := config.DefaultConfig()
	set := NewPostProcessor(cfg).Process(make([]float64, 100), 10)

	assert.True(t, set.Fallback)
	assert.Equal(t, SourceFallback, set.Source)
	require.Len(t, set.Boundaries, 5)
	assert.Equal(t, 10, set.Boundaries[0].Frame)
	assert.InDelta(t, cfg.FrameTime(10), set.Boundaries[0].Time, 1e-12)
}

func TestProcessFindsBumps(t *testing.T) {
	novelty := bumps(600, []int{100, 250, 400, 520}, []float64{2, 2, 2, 2})
	set := NewPostProcessor(config.DefaultConfig()).Process(novelty, 21)

	assert.False(t, set.Fallback)
	assert.Equal(t, SourceNovelty, set.Source)
	require.Len(t, set.Boundaries, 4)

	frames := []int{}
	for _, b := range set.Boundaries {
		frames = append(frames, b.Frame)
	}
	for i, want := range []int{100, 250, 400, 520} {
		assert.InDelta(t, want, frames[i], 1)
	}
	for i := 1; i < len(set.Boundaries); i++ {
		assert.Greater(t, set.Boundaries[i].Time, set.Boundaries[i-1].Time)
	}
}

func TestEntryExitViews(t *testing.T) {
	cfg := config.DefaultConfig()
	frames := make([]int, 30)
	for i := range frames {
		frames[i] = i * 10
	}

	set := BoundarySet{Source: SourceNovelty}
	for _, f := range frames {
		set.Boundaries = append(set.Boundaries, PhraseBoundary{Frame: f, Time: cfg.FrameTime(f)})
	}

	entry := set.Entry(25)
	exit := set.Exit(25)
	require.Len(t, entry, 25)
	require.Len(t, exit, 25)
	assert.Equal(t, 0, entry[0].Frame)
	assert.Equal(t, 240, entry[24].Frame)
	assert.Equal(t, 50, exit[0].Frame)
	assert.Equal(t, 290, exit[24].Frame)

	short := BoundarySet{Boundaries: set.Boundaries[:3]}
	assert.Len(t, short.Entry(25), 3)
	assert.Len(t, short.Exit(25), 3)
	assert.Empty(t, short.Exit(0))
	assert.Equal(t, []float64{0, cfg.FrameTime(10), cfg.FrameTime(20)}, short.Times())
}

func TestEntryExitOverlapOnShortSets(t *testing.T) {
	set := func(n int) BoundarySet {
		s := BoundarySet{Source: SourceNovelty}
		for i := range n {
			s.Boundaries = append(s.Boundaries, PhraseBoundary{Frame: i})
		}
		return s
	}
	frames := func(bs []PhraseBoundary) []int {
		out := make([]int, len(bs))
		for i, b := range bs {
			out[i] = b.Frame
		}
		return out
	}

	tests := []struct {
		total   int
		overlap int
	}{
		{total: 10, overlap: 10},
		{total: 25, overlap: 25},
		{total: 30, overlap: 20},
		{total: 49, overlap: 1},
		{total: 50, overlap: 0},
		{total: 60, overlap: 0},
	}
	for _, tt := range tests {
		s := set(tt.total)
		entry, exit := frames(s.Entry(25)), frames(s.Exit(25))
		size := min(tt.total, 25)
		require.Len(t, entry, size)
		require.Len(t, exit, size)

		// shared frames sit at the tail of entry and the head of exit
		assert.Equal(t, entry[size-tt.overlap:], exit[:tt.overlap], "total %d", tt.total)
		if tt.overlap < size {
			assert.Less(t, entry[size-tt.overlap-1], exit[0], "total %d", tt.total)
		}

		// each view is strictly ascending with no duplicates or padding
		for _, view := range [][]int{entry, exit} {
			for i := 1; i < len(view); i++ {
				assert.Greater(t, view[i], view[i-1])
			}
		}
	}
}
