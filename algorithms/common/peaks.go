package common

import (
	"sort"
)

// PeakOptions configures FindPeaks.
type PeakOptions struct {
	// Height is the minimum peak value (inclusive). Ignored when HasHeight is false.
	Height    float64
	HasHeight bool

	// Distance is the minimum index spacing between kept peaks. Values below
	// 1 disable the constraint.
	Distance int
}

// FindPeaks returns the indices of local maxima in data, ascending.
//
// A peak is a sample strictly greater than its left neighbour and strictly
// greater than the first differing sample to its right; flat tops report the
// middle sample (rounded down). The first and last samples are never peaks.
// When Distance is set, peaks are visited in order of decreasing height
// (ties go to the earlier index) and any lower peak closer than Distance to
// a kept one is discarded.
func FindPeaks(data []float64, opts PeakOptions) []int {
	peaks := localMaxima(data)

	if opts.HasHeight {
		kept := peaks[:0]
		for _, p := range peaks {
			if data[p] >= opts.Height {
				kept = append(kept, p)
			}
		}
		peaks = kept
	}

	if opts.Distance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(data, peaks, opts.Distance)
	}

	return peaks
}

func localMaxima(data []float64) []int {
	peaks := []int{}
	n := len(data)
	i := 1
	for i < n-1 {
		if data[i-1] < data[i] {
			ahead := i + 1
			for ahead < n-1 && data[ahead] == data[i] {
				ahead++
			}
			if data[ahead] < data[i] {
				left, right := i, ahead-1
				peaks = append(peaks, (left+right)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return peaks
}

func selectByDistance(data []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return data[peaks[order[a]]] > data[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	removed := make([]bool, len(peaks))
	for _, j := range order {
		if removed[j] {
			continue
		}
		keep[j] = true
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			removed[k] = true
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			removed[k] = true
		}
	}

	kept := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			kept = append(kept, p)
		}
	}
	return kept
}
