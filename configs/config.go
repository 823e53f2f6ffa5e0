package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/phrasebound/batch"
	"github.com/RyanBlaney/phrasebound/logging"
	segconfig "github.com/RyanBlaney/phrasebound/segmentation/config"
	"github.com/RyanBlaney/phrasebound/transcode"
)

// EnvPrefix prefixes every environment override, e.g.
// PHRASEBOUND_ANALYSIS_HOP_LENGTH
const EnvPrefix = "PHRASEBOUND"

// Config represents the application configuration
type Config struct {
	// Application settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	NoColor  bool   `mapstructure:"no_color" yaml:"no_color"`

	// Pipeline parameters
	Analysis segconfig.Config `mapstructure:"analysis" yaml:"analysis"`

	// Audio decoding
	Decoder DecoderConfig `mapstructure:"decoder" yaml:"decoder"`

	// Worker pool
	Batch BatchConfig `mapstructure:"batch" yaml:"batch"`

	// Results document
	Output OutputConfig `mapstructure:"output" yaml:"output"`
}

// DecoderConfig contains decoder settings
type DecoderConfig struct {
	FFmpegPath      string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath     string        `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ResampleQuality string        `mapstructure:"resample_quality" yaml:"resample_quality"`
	DisableFFmpeg   bool          `mapstructure:"disable_ffmpeg" yaml:"disable_ffmpeg"`
}

// BatchConfig contains worker pool settings
type BatchConfig struct {
	MaxWorkers  int           `mapstructure:"max_workers" yaml:"max_workers"`
	SongTimeout time.Duration `mapstructure:"song_timeout" yaml:"song_timeout"`
	Pattern     string        `mapstructure:"pattern" yaml:"pattern"`
}

// OutputConfig contains results document settings
type OutputConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// NewViper returns a viper instance with defaults and environment overrides
// registered
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// ReadConfigFile loads an explicit config file, or searches for
// phrasebound.yaml in ., ./configs and $HOME/.config/phrasebound. Only an
// explicit file is required to exist.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("phrasebound")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "phrasebound"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	logging.Debug("Using config file", logging.Fields{
		"component": "configs",
		"path":      v.ConfigFileUsed(),
	})
	return nil
}

// Load decodes the effective configuration from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every section. Problems are reported together as a
// *segconfig.ValidationError.
func (c *Config) Validate() error {
	var problems []string

	if err := c.Analysis.Validate(); err != nil {
		var verr *segconfig.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		problems = append(problems, verr.Problems...)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.DecoderConfig().Validate(); err != nil {
		problems = append(problems, "decoder: "+err.Error())
	}
	if c.Batch.MaxWorkers < 1 {
		problems = append(problems, fmt.Sprintf("batch.max_workers must be at least 1, got %d", c.Batch.MaxWorkers))
	}
	if c.Batch.SongTimeout < 0 {
		problems = append(problems, "batch.song_timeout must not be negative")
	}
	if _, err := filepath.Match(c.Batch.Pattern, ""); err != nil || c.Batch.Pattern == "" {
		problems = append(problems, fmt.Sprintf("batch.pattern %q is not a valid glob", c.Batch.Pattern))
	}
	if c.Output.Path == "" {
		problems = append(problems, "output.path must not be empty")
	}

	if len(problems) > 0 {
		return &segconfig.ValidationError{Problems: problems}
	}
	return nil
}

// DecoderConfig builds the transcode settings. Audio is always decoded at
// the analysis sample rate.
func (c *Config) DecoderConfig() *transcode.DecoderConfig {
	return &transcode.DecoderConfig{
		TargetSampleRate: c.Analysis.SampleRate,
		ResampleQuality:  c.Decoder.ResampleQuality,
		FFmpegPath:       c.Decoder.FFmpegPath,
		FFprobePath:      c.Decoder.FFprobePath,
		Timeout:          c.Decoder.Timeout,
		DisableFFmpeg:    c.Decoder.DisableFFmpeg,
	}
}

// BatchOptions builds the worker pool settings
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		MaxWorkers:    c.Batch.MaxWorkers,
		SongTimeout:   c.Batch.SongTimeout,
		MaxBoundaries: c.Analysis.MaxBoundaries,
	}
}
