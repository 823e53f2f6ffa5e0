package transcode

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/logging"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder reads integer PCM WAV files with go-audio, averages channels to
// mono and resamples to the target rate
type WAVDecoder struct {
	config *DecoderConfig
}

// NewWAVDecoder creates a native WAV decoder
func NewWAVDecoder(config *DecoderConfig) *WAVDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &WAVDecoder{config: config}
}

// Decode implements Codec
func (w *WAVDecoder) Decode(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "wav_decoder",
		"function":  "Decode",
		"path":      path,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("invalid WAV file")}
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, dec.WavAudioFormat)}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("could not read PCM buffer: %w", err)}
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, &DecodeError{Path: path, Cause: fmt.Errorf("missing WAV format information")}
	}

	mono := downmix(buf)
	if len(mono) == 0 {
		return nil, &DecodeError{Path: path, Cause: ErrEmptyAudio}
	}

	interp := common.NewInterpolator(common.Cubic)
	if w.config.ResampleQuality == "fast" {
		interp = common.NewInterpolator(common.Linear)
	}
	pcm := interp.ResampleSignal(mono, buf.Format.SampleRate, w.config.TargetSampleRate)
	if len(pcm) == 0 {
		return nil, &DecodeError{Path: path, Cause: ErrEmptyAudio}
	}

	logger.Debug("WAV decoded", logging.Fields{
		"input_sample_rate": buf.Format.SampleRate,
		"input_channels":    buf.Format.NumChannels,
		"bit_depth":         buf.SourceBitDepth,
		"samples":           len(pcm),
	})

	return &AudioData{
		PCM:        pcm,
		SampleRate: w.config.TargetSampleRate,
		Channels:   buf.Format.NumChannels,
		Duration:   time.Duration(float64(len(pcm)) / float64(w.config.TargetSampleRate) * float64(time.Second)),
		Codec:      "wav",
	}, nil
}

// downmix averages interleaved integer channels into mono samples in [-1, 1]
func downmix(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}

	offset := 0.0
	scale := math.Exp2(float64(bitDepth - 1))
	if bitDepth == 8 {
		// 8-bit WAV samples are unsigned
		offset = 128
	}

	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// WriteWAV writes mono samples in [-1, 1] to path as 16-bit PCM. Samples
// outside the range are clipped.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(common.Clamp(s, -1, 1) * 32767))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize WAV: %w", err)
	}
	return f.Close()
}
