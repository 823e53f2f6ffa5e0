package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/RyanBlaney/phrasebound/logging"
)

// AudioMetadata is the subset of ffprobe stream information the decoder uses
type AudioMetadata struct {
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
}

// FFmpegDecoder decodes any container/codec ffmpeg understands, downmixed to
// mono float64 at the target rate
type FFmpegDecoder struct {
	config *DecoderConfig
}

// NewFFmpegDecoder creates an ffmpeg-backed decoder
func NewFFmpegDecoder(config *DecoderConfig) *FFmpegDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &FFmpegDecoder{config: config}
}

// Decode implements Codec
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Decode",
		"path":      path,
	})

	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Cause: err}
	}

	logger.Debug("Starting audio file decode")

	metadata, err := d.probeAudioFile(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, asDecodeError(path, err)
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	samples, err := d.decodeWithFFmpeg(ctx, path)
	if err != nil {
		return nil, asDecodeError(path, err)
	}
	if len(samples) == 0 {
		return nil, &DecodeError{Path: path, Cause: ErrEmptyAudio}
	}

	sr := d.config.TargetSampleRate
	return &AudioData{
		PCM:        samples,
		SampleRate: sr,
		Channels:   metadata.Channels,
		Duration:   time.Duration(len(samples)) * time.Second / time.Duration(sr),
		Codec:      metadata.Codec,
	}, nil
}

// commandContext bounds ctx by the configured timeout
func (d *FFmpegDecoder) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// probeAudioFile uses ffprobe to get audio information from a file
func (d *FFmpegDecoder) probeAudioFile(ctx context.Context, path string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		path,
	}

	probeCtx, cancel := d.commandContext(ctx)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, d.config.FFprobePath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = 44100 // Fallback to common sample rate
	}
	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}
	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	return &AudioMetadata{
		Codec:      stream.CodecName,
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Duration:   duration,
		Bitrate:    bitrate,
	}, nil
}

// decodeWithFFmpeg resamples and downmixes to mono float64 in ffmpeg itself
func (d *FFmpegDecoder) decodeWithFFmpeg(ctx context.Context, path string) ([]float64, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeWithFFmpeg",
	})

	args := []string{
		"-nostdin",
		"-i", path,
		"-f", "f64le", // 64-bit float little-endian
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
		"pipe:1",
	}

	decodeCtx, cancel := d.commandContext(ctx)
	defer cancel()

	output, err := exec.CommandContext(decodeCtx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "FFmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
			return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		if ctxErr := decodeCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	return bytesToFloat64(output)
}

// bytesToFloat64 converts little-endian float64 bytes to samples
func bytesToFloat64(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid data length for float64 samples: %d", len(data))
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : (i+1)*8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples, nil
}
