package segmentation

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/segmentation/config"
	"github.com/RyanBlaney/phrasebound/transcode"
)

func newAnalyzer(t *testing.T, cfg *config.Config) *Analyzer {
	t.Helper()
	codecCfg := transcode.DefaultDecoderConfig()
	codecCfg.DisableFFmpeg = true
	a, err := NewAnalyzer(cfg, transcode.NewAutoCodec(codecCfg))
	require.NoError(t, err)
	return a
}

func assertValidBoundaries(t *testing.T, res *Result) {
	t.Helper()
	require.NotEmpty(t, res.Boundaries.Boundaries)
	duration := res.Duration.Seconds()
	prev := -1.0
	for _, b := range res.Boundaries.Boundaries {
		assert.Greater(t, b.Time, prev)
		assert.GreaterOrEqual(t, b.Time, 0.0)
		assert.LessOrEqual(t, b.Time, duration)
		prev = b.Time
	}
	assert.False(t, common.HasNaN(res.Novelty))
}

func TestAnalyzeSineSweep(t *testing.T) {
	a := newAnalyzer(t, nil)
	song := NewSong("sweep.wav", sweep(10, 22050, 110, 1760, 0.8), 22050)

	res, err := a.AnalyzeSignal(context.Background(), song)
	require.NoError(t, err)

	assert.Equal(t, "sweep", res.SongID)
	assert.Equal(t, 431, res.Frames)
	assert.Equal(t, 21, res.KernelHalfWidth)
	assert.False(t, res.Boundaries.Fallback)
	assert.Equal(t, SourceNovelty, res.Boundaries.Source)
	assertValidBoundaries(t, res)

	for t0 := range res.KernelHalfWidth {
		assert.Equal(t, 0.0, res.Novelty[t0])
		assert.Equal(t, 0.0, res.Novelty[res.Frames-1-t0])
	}
}

func TestAnalyzeShortClipClampsKernel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]float64, int(0.4*22050))
	for i := range samples {
		samples[i] = 1e-4 * (rng.Float64()*2 - 1)
	}

	res, err := newAnalyzer(t, nil).AnalyzeSignal(context.Background(), NewSong("quiet.wav", samples, 22050))
	require.NoError(t, err)

	assert.Equal(t, 18, res.Frames)
	assert.Equal(t, 8, res.KernelHalfWidth)
	assert.True(t, res.Boundaries.Fallback)
	assert.Equal(t, SourceFallback, res.Boundaries.Source)
	require.Len(t, res.Boundaries.Boundaries, 1)
	assert.Equal(t, 8, res.Boundaries.Boundaries[0].Frame)
	assertValidBoundaries(t, res)
}

func TestAnalyzeSilence(t *testing.T) {
	a := newAnalyzer(t, nil)
	for _, seconds := range []float64{0.5, 1.3} {
		silence := make([]float64, int(seconds*22050))
		res, err := a.AnalyzeSignal(context.Background(), NewSong("silence.wav", silence, 22050))
		require.NoError(t, err)
		assertValidBoundaries(t, res)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := newAnalyzer(t, nil)
	samples := sweep(3, 22050, 220, 880, 0.6)

	first, err := a.AnalyzeSignal(context.Background(), NewSong("a.wav", samples, 22050))
	require.NoError(t, err)
	second, err := a.AnalyzeSignal(context.Background(), NewSong("a.wav", samples, 22050))
	require.NoError(t, err)

	assert.Equal(t, first.Boundaries, second.Boundaries)
	assert.Equal(t, first.Novelty, second.Novelty)
}

func TestAnalyzeResamplesInput(t *testing.T) {
	a := newAnalyzer(t, nil)
	res, err := a.AnalyzeSignal(context.Background(), NewSong("hi.wav", sweep(1, 44100, 220, 440, 0.5), 44100))
	require.NoError(t, err)
	assert.InDelta(t, 1+22050/512, res.Frames, 1)
}

func TestAnalyzeEmptySignal(t *testing.T) {
	_, err := newAnalyzer(t, nil).AnalyzeSignal(context.Background(), NewSong("empty.wav", nil, 22050))
	assert.ErrorIs(t, err, ErrEmptySignal)
}

func TestAnalyzeTimeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := newAnalyzer(t, nil).AnalyzeSignal(ctx, NewSong("slow.wav", sweep(1, 22050, 220, 440, 0.5), 22050))
	assert.ErrorIs(t, err, ErrSongTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyzeLongSongStopsAtDeadline(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a one minute signal")
	}
	song := NewSong("long.wav", sweep(60, 22050, 110, 3520, 0.5), 22050)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newAnalyzer(t, nil).AnalyzeSignal(ctx, song)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrSongTimeout)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestChromaStopsAtDeadline(t *testing.T) {
	fe := newExtractor(t)
	spec, err := fe.Spectrogram(NewAudioSignal(sweep(5, 22050, 200, 2000, 0.5), 22050))
	require.NoError(t, err)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err = fe.Chroma(ctx, spec)
	assert.ErrorIs(t, err, ErrSongTimeout)

	chromagram, err := fe.Chroma(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, chromagram, 12)
	assert.Len(t, chromagram[0], spec.TimeFrames)
}

func TestAnalyzeFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Band - Song.wav")
	require.NoError(t, transcode.WriteWAV(path, sweep(2, 22050, 200, 600, 0.7), 22050))

	cfg := config.DefaultConfig()
	cfg.Annotate = true
	res, err := newAnalyzer(t, cfg).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Band - Song", res.SongID)
	assert.Equal(t, path, res.Path)
	assert.InDelta(t, 2.0, res.Duration.Seconds(), 1e-3)
	require.NotNil(t, res.Annotations)
	assert.Contains(t, []string{"major", "minor"}, res.Annotations.Scale)
	assert.NotEmpty(t, res.Annotations.Key)
	assert.False(t, math.IsNaN(res.Annotations.BPM))
	assertValidBoundaries(t, res)

	_, err = newAnalyzer(t, nil).Analyze(context.Background(), filepath.Join(dir, "absent.wav"))
	var de *transcode.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestNewAnalyzerRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HopLength = 0
	_, err := NewAnalyzer(cfg, nil)

	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
}
