package configs

import (
	"github.com/spf13/viper"

	"github.com/RyanBlaney/phrasebound/batch"
	segconfig "github.com/RyanBlaney/phrasebound/segmentation/config"
	"github.com/RyanBlaney/phrasebound/transcode"
)

// DefaultOutputPath is the results document written when none is configured
const DefaultOutputPath = "PhraseBoundaries_Results.json"

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	// Application defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("no_color", false)

	// Analysis defaults
	a := segconfig.DefaultConfig()
	v.SetDefault("analysis.sample_rate", a.SampleRate)
	v.SetDefault("analysis.hop_length", a.HopLength)
	v.SetDefault("analysis.fft_size", a.FFTSize)
	v.SetDefault("analysis.kernel_seconds", a.KernelSeconds)
	v.SetDefault("analysis.kernel_half_width", a.KernelHalfWidth)
	v.SetDefault("analysis.smoothing_window", a.SmoothingWindow)
	v.SetDefault("analysis.min_peak_distance_sec", a.MinPeakDistanceSec)
	v.SetDefault("analysis.threshold_factor", a.ThresholdFactor)
	v.SetDefault("analysis.sustain_window_sec", a.SustainWindowSec)
	v.SetDefault("analysis.sustain_ratio", a.SustainRatio)
	v.SetDefault("analysis.max_boundaries", a.MaxBoundaries)
	v.SetDefault("analysis.highpass_cutoff", a.HighpassCutoff)
	v.SetDefault("analysis.hpss_kernel_size", a.HPSSKernelSize)
	v.SetDefault("analysis.hpss_power", a.HPSSPower)
	v.SetDefault("analysis.chroma_neighbor_width", a.ChromaNeighborWidth)
	v.SetDefault("analysis.num_mfcc", a.NumMFCC)
	v.SetDefault("analysis.num_mel_bands", a.NumMelBands)
	v.SetDefault("analysis.delta_width", a.DeltaWidth)
	v.SetDefault("analysis.onset_mel_bands", a.OnsetMelBands)
	v.SetDefault("analysis.tempogram_window", a.TempogramWindow)
	v.SetDefault("analysis.annotate", a.Annotate)

	// Decoder defaults
	d := transcode.DefaultDecoderConfig()
	v.SetDefault("decoder.ffmpeg_path", d.FFmpegPath)
	v.SetDefault("decoder.ffprobe_path", d.FFprobePath)
	v.SetDefault("decoder.timeout", d.Timeout)
	v.SetDefault("decoder.resample_quality", d.ResampleQuality)
	v.SetDefault("decoder.disable_ffmpeg", d.DisableFFmpeg)

	// Batch defaults
	b := batch.DefaultOptions()
	v.SetDefault("batch.max_workers", b.MaxWorkers)
	v.SetDefault("batch.song_timeout", b.SongTimeout)
	v.SetDefault("batch.pattern", "*.wav")

	// Output defaults
	v.SetDefault("output.path", DefaultOutputPath)
}
