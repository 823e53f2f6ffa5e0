package transcode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/phrasebound/logging"
)

// ErrEmptyAudio is returned when a file decodes to zero samples
var ErrEmptyAudio = errors.New("no audio samples decoded")

// ErrUnsupportedWAV marks WAV encodings the native reader does not handle
var ErrUnsupportedWAV = errors.New("unsupported WAV encoding")

// DecodeError reports an unreadable, corrupt or undecodable input file
type DecodeError struct {
	Path  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // Channel count of the source
	Duration   time.Duration `json:"duration"`
	Codec      string        `json:"codec"` // Decoder that produced the samples
}

// Codec decodes an audio file to mono samples at the configured rate
type Codec interface {
	Decode(ctx context.Context, path string) (*AudioData, error)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" mapstructure:"target_sample_rate"`
	ResampleQuality  string        `json:"resample_quality" mapstructure:"resample_quality"` // "fast" or "high"
	FFmpegPath       string        `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`           // Path to ffmpeg binary
	FFprobePath      string        `json:"ffprobe_path" mapstructure:"ffprobe_path"`         // Path to ffprobe binary
	Timeout          time.Duration `json:"timeout" mapstructure:"timeout"`                   // Timeout for ffmpeg operations
	DisableFFmpeg    bool          `json:"disable_ffmpeg" mapstructure:"disable_ffmpeg"`     // Only accept natively decodable WAV
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 22050,
		ResampleQuality:  "high",
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		Timeout:          60 * time.Second,
	}
}

// Validate checks the decoder configuration
func (c *DecoderConfig) Validate() error {
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive, got %d", c.TargetSampleRate)
	}
	switch c.ResampleQuality {
	case "", "fast", "high":
	default:
		return fmt.Errorf("resample quality must be fast or high, got %q", c.ResampleQuality)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// AutoCodec decodes .wav files natively and hands everything else, including
// WAV encodings the native reader rejects, to ffmpeg
type AutoCodec struct {
	wav    *WAVDecoder
	ffmpeg *FFmpegDecoder
	config *DecoderConfig
}

// NewAutoCodec creates the default codec
func NewAutoCodec(config *DecoderConfig) *AutoCodec {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &AutoCodec{
		wav:    NewWAVDecoder(config),
		ffmpeg: NewFFmpegDecoder(config),
		config: config,
	}
}

// Decode implements Codec. Every failure is returned as a *DecodeError.
func (a *AutoCodec) Decode(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_codec",
		"function":  "Decode",
		"path":      path,
	})

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		data, err := a.wav.Decode(ctx, path)
		if err == nil || a.config.DisableFFmpeg || !errors.Is(err, ErrUnsupportedWAV) {
			return data, err
		}
		logger.Debug("Native WAV reader declined file, falling back to ffmpeg", logging.Fields{
			"reason": err.Error(),
		})
	} else if a.config.DisableFFmpeg {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("ffmpeg disabled and %q is not a WAV file", filepath.Ext(path))}
	}

	return a.ffmpeg.Decode(ctx, path)
}

// asDecodeError wraps err for path unless it already is a DecodeError
func asDecodeError(path string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Path: path, Cause: err}
}
