package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	segconfig "github.com/RyanBlaney/phrasebound/segmentation/config"
)

func TestDefaultsMatchPackageDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, *segconfig.DefaultConfig(), cfg.Analysis)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Batch.MaxWorkers)
	assert.Equal(t, 5*time.Minute, cfg.Batch.SongTimeout)
	assert.Equal(t, "*.wav", cfg.Batch.Pattern)
	assert.Equal(t, DefaultOutputPath, cfg.Output.Path)
	assert.Equal(t, "ffmpeg", cfg.Decoder.FFmpegPath)
	require.NoError(t, cfg.Validate())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PHRASEBOUND_ANALYSIS_HOP_LENGTH", "256")
	t.Setenv("PHRASEBOUND_BATCH_SONG_TIMEOUT", "90s")
	t.Setenv("PHRASEBOUND_OUTPUT_PATH", "/tmp/out.json")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Analysis.HopLength)
	assert.Equal(t, 90*time.Second, cfg.Batch.SongTimeout)
	assert.Equal(t, "/tmp/out.json", cfg.Output.Path)
}

func TestConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrasebound.yaml")
	doc := `
log_level: debug
analysis:
  threshold_factor: 1.5
  kernel_half_width: 16
batch:
  max_workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	v := NewViper()
	require.NoError(t, ReadConfigFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1.5, cfg.Analysis.ThresholdFactor)
	assert.Equal(t, 16, cfg.Analysis.KernelHalfWidth)
	assert.Equal(t, 2, cfg.Batch.MaxWorkers)
	// untouched keys keep their defaults
	assert.Equal(t, 512, cfg.Analysis.HopLength)
}

func TestReadConfigFileMissingExplicitPath(t *testing.T) {
	err := ReadConfigFile(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)

	cfg.Analysis.HopLength = 0
	cfg.Batch.MaxWorkers = 0
	cfg.Output.Path = ""
	cfg.LogLevel = "loud"

	err = cfg.Validate()
	var verr *segconfig.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Problems), 4)
}

func TestDerivedSettings(t *testing.T) {
	cfg, err := Load(NewViper())
	require.NoError(t, err)
	cfg.Analysis.SampleRate = 16000
	cfg.Analysis.MaxBoundaries = 10

	dec := cfg.DecoderConfig()
	assert.Equal(t, 16000, dec.TargetSampleRate)
	assert.Equal(t, cfg.Decoder.Timeout, dec.Timeout)

	opts := cfg.BatchOptions()
	assert.Equal(t, 10, opts.MaxBoundaries)
	assert.Equal(t, cfg.Batch.MaxWorkers, opts.MaxWorkers)
}
