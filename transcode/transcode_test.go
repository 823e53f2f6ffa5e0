package transcode

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n, sr int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	samples := sine(22050, 22050, 440, 0.5)
	require.NoError(t, WriteWAV(path, samples, 22050))

	data, err := NewWAVDecoder(nil).Decode(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 22050, data.SampleRate)
	assert.Equal(t, 1, data.Channels)
	assert.Equal(t, "wav", data.Codec)
	require.Len(t, data.PCM, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], data.PCM[i], 1.0/16384)
	}
	assert.InDelta(t, 1.0, data.Duration.Seconds(), 1e-6)
}

func TestWAVResamplesToTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone44.wav")
	require.NoError(t, WriteWAV(path, sine(44100, 44100, 220, 0.3), 44100))

	data, err := NewWAVDecoder(DefaultDecoderConfig()).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 22050, data.SampleRate)
	assert.InDelta(t, 22050, len(data.PCM), 2)
}

func TestWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 22050, 16, 2, 1)
	data := make([]int, 200)
	for i := 0; i < len(data); i += 2 {
		data[i] = 16384
	}
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 22050},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	decoded, err := NewWAVDecoder(nil).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Channels)
	require.Len(t, decoded.PCM, 100)
	for _, v := range decoded.PCM {
		assert.InDelta(t, 0.25, v, 1e-9)
	}
}

func TestWriteWAVClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, WriteWAV(path, []float64{2, -2, 0}, 8000))

	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 8000
	data, err := NewWAVDecoder(cfg).Decode(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, data.PCM, 3)
	assert.InDelta(t, 1.0, data.PCM[0], 1e-4)
	assert.InDelta(t, -1.0, data.PCM[1], 1e-4)
	assert.Equal(t, 0.0, data.PCM[2])
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewWAVDecoder(nil).Decode(context.Background(), filepath.Join(dir, "nope.wav"))
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, de.Error(), "nope.wav")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(dir, "junk.wav")
		require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o644))
		_, err := NewWAVDecoder(nil).Decode(context.Background(), path)
		var de *DecodeError
		assert.ErrorAs(t, err, &de)
	})

	t.Run("ffmpeg disabled for other containers", func(t *testing.T) {
		cfg := DefaultDecoderConfig()
		cfg.DisableFFmpeg = true
		path := filepath.Join(dir, "song.mp3")
		require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfb}, 0o644))
		_, err := NewAutoCodec(cfg).Decode(context.Background(), path)
		var de *DecodeError
		assert.ErrorAs(t, err, &de)
	})

	t.Run("missing ffmpeg binary", func(t *testing.T) {
		cfg := DefaultDecoderConfig()
		cfg.FFprobePath = filepath.Join(dir, "no-such-ffprobe")
		path := filepath.Join(dir, "song.flac")
		require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o644))
		_, err := NewAutoCodec(cfg).Decode(context.Background(), path)
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, path, de.Path)
	})
}

func TestAutoCodecUsesNativeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.WAV")
	require.NoError(t, WriteWAV(path, sine(1000, 22050, 100, 0.2), 22050))

	cfg := DefaultDecoderConfig()
	cfg.DisableFFmpeg = true
	data, err := NewAutoCodec(cfg).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, data.PCM, 1000)
}

func TestBytesToFloat64(t *testing.T) {
	raw := make([]byte, 16)
	binary.LittleEndian.PutUint64(raw[0:], math.Float64bits(0.5))
	binary.LittleEndian.PutUint64(raw[8:], math.Float64bits(-0.25))

	samples, err := bytesToFloat64(raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25}, samples)

	_, err = bytesToFloat64(raw[:7])
	assert.Error(t, err)
}

func TestParseFFprobeOutput(t *testing.T) {
	out := []byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2,"duration":"12.5","bit_rate":"128000"}]}`)
	meta, err := parseFFprobeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, "mp3", meta.Codec)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, 12.5, meta.Duration)
	assert.Equal(t, 128000, meta.Bitrate)

	_, err = parseFFprobeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)

	_, err = parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"video"}]}`))
	assert.Error(t, err)
}

func TestDecoderConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultDecoderConfig().Validate())

	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultDecoderConfig()
	cfg.ResampleQuality = "best"
	assert.Error(t, cfg.Validate())
}
