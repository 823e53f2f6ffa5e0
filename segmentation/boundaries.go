package segmentation

import (
	"github.com/RyanBlaney/phrasebound/algorithms/common"
	"github.com/RyanBlaney/phrasebound/segmentation/config"
)

// Boundary sources
const (
	SourceNovelty  = "novelty"
	SourceFallback = "fallback"
)

// PhraseBoundary is a detected section change
type PhraseBoundary struct {
	Frame int     `json:"frame"`
	Time  float64 `json:"time"` // seconds
}

// BoundarySet holds boundaries in ascending time order. Fallback is set when
// no novelty peak survived and the boundaries are an evenly spaced grid.
type BoundarySet struct {
	Boundaries []PhraseBoundary `json:"boundaries"`
	Fallback   bool             `json:"fallback"`
	Source     string           `json:"source"`
}

// Len returns the number of boundaries
func (b BoundarySet) Len() int { return len(b.Boundaries) }

// Entry returns up to n earliest boundaries
func (b BoundarySet) Entry(n int) []PhraseBoundary {
	n = min(max(n, 0), len(b.Boundaries))
	out := make([]PhraseBoundary, n)
	copy(out, b.Boundaries[:n])
	return out
}

// Exit returns up to n latest boundaries, in ascending order
func (b BoundarySet) Exit(n int) []PhraseBoundary {
	n = min(max(n, 0), len(b.Boundaries))
	out := make([]PhraseBoundary, n)
	copy(out, b.Boundaries[len(b.Boundaries)-n:])
	return out
}

// Times returns the boundary times in seconds
func (b BoundarySet) Times() []float64 {
	times := make([]float64, len(b.Boundaries))
	for i, pb := range b.Boundaries {
		times[i] = pb.Time
	}
	return times
}

// PostProcessor turns a novelty curve into a BoundarySet
type PostProcessor struct {
	config *config.Config
}

// NewPostProcessor creates a post-processor for cfg
func NewPostProcessor(cfg *config.Config) *PostProcessor {
	return &PostProcessor{config: cfg}
}

// Smooth applies the centered moving average
func (p *PostProcessor) Smooth(novelty []float64) []float64 {
	return common.MovingAverageSame(novelty, p.config.SmoothingWindow)
}

// Threshold returns mean(smoothed) x ThresholdFactor
func (p *PostProcessor) Threshold(smoothed []float64) float64 {
	if len(smoothed) == 0 {
		return 0
	}
	return common.Mean(smoothed) * p.config.ThresholdFactor
}

// MinPeakDistance returns the minimum peak spacing in frames, at least 1
func (p *PostProcessor) MinPeakDistance() int {
	return max(p.config.FramesFor(p.config.MinPeakDistanceSec), 1)
}

// PickPeaks returns local maxima of smoothed at or above threshold that are
// at least MinPeakDistance frames apart
func (p *PostProcessor) PickPeaks(smoothed []float64, threshold float64) []int {
	return common.FindPeaks(smoothed, common.PeakOptions{
		Height:    threshold,
		HasHeight: true,
		Distance:  p.MinPeakDistance(),
	})
}

// Sustained keeps peaks where more than SustainRatio of the frames around
// them lie strictly above threshold. The window spans SustainWindowSec and
// always contains the peak.
func (p *PostProcessor) Sustained(smoothed []float64, peaks []int, threshold float64) []int {
	half := p.config.FramesFor(p.config.SustainWindowSec) / 2

	kept := make([]int, 0, len(peaks))
	for _, peak := range peaks {
		start := max(0, peak-half)
		end := min(len(smoothed), max(peak+half, peak+1))

		above := 0
		for _, v := range smoothed[start:end] {
			if v > threshold {
				above++
			}
		}
		if float64(above)/float64(end-start) > p.config.SustainRatio {
			kept = append(kept, peak)
		}
	}
	return kept
}

// FallbackGrid returns frames L, 3L, 5L, ... below frames. L = 0 yields
// every frame.
func FallbackGrid(frames, halfWidth int) []int {
	step := 2 * halfWidth
	if step == 0 {
		step = 1
	}
	var grid []int
	for f := halfWidth; f < frames; f += step {
		grid = append(grid, f)
	}
	return grid
}

// Process runs smoothing, thresholding, peak picking and validation. When no
// peak survives the fallback grid is returned with Fallback set.
func (p *PostProcessor) Process(novelty []float64, halfWidth int) BoundarySet {
	smoothed := p.Smooth(novelty)
	threshold := p.Threshold(smoothed)
	peaks := p.Sustained(smoothed, p.PickPeaks(smoothed, threshold), threshold)

	set := BoundarySet{Source: SourceNovelty}
	if err := requirePeaks(peaks); err != nil {
		peaks = FallbackGrid(len(novelty), halfWidth)
		set.Fallback = true
		set.Source = SourceFallback
	}

	set.Boundaries = make([]PhraseBoundary, len(peaks))
	for i, frame := range peaks {
		set.Boundaries[i] = PhraseBoundary{Frame: frame, Time: p.config.FrameTime(frame)}
	}
	return set
}

func requirePeaks(peaks []int) error {
	if len(peaks) == 0 {
		return ErrNoBoundaryFound
	}
	return nil
}
