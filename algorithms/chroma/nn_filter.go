package chroma

import (
	"container/heap"
	"context"
	"math"

	"github.com/RyanBlaney/phrasebound/algorithms/stats"
)

// NNFilter denoises a feature sequence by replacing every frame with the
// mean of its k nearest neighbours (Euclidean distance) elsewhere in the
// track. Repeated material reinforces itself while one-off flicker averages
// away.
type NNFilter struct {
	// Width excludes neighbours closer than Width frames in time. A width of
	// 1 only excludes the frame itself.
	Width int
	// K is the neighbour count. Zero picks 2*ceil(sqrt(frames-2*Width+1)).
	K int
}

// NewNNFilter creates a filter with automatic k. Widths below 1 become 1.
func NewNNFilter(width int) *NNFilter {
	return &NNFilter{Width: max(width, 1)}
}

// Apply filters a [row][time] matrix and returns a new matrix of the same
// shape. Frames without any eligible neighbour are copied through. Equally
// distant neighbours are taken in time order. ctx is checked once per frame.
func (nf *NNFilter) Apply(ctx context.Context, features [][]float64) ([][]float64, error) {
	rows := len(features)
	if rows == 0 {
		return [][]float64{}, nil
	}
	frames := len(features[0])

	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, frames)
		copy(out[r], features[r])
	}

	k := nf.neighbourCount(frames)
	if k <= 0 {
		return out, nil
	}

	columns := make([][]float64, frames)
	for t := range columns {
		columns[t] = make([]float64, rows)
		for r := range rows {
			columns[t][r] = features[r][t]
		}
	}

	width := max(nf.Width, 1)
	nearest := make(neighbourHeap, 0, k)
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nearest = nearest[:0]
		for j := range frames {
			if abs(i-j) < width {
				continue
			}
			n := neighbour{frame: j, dist: stats.EuclideanDistanceFunc(columns[i], columns[j])}
			if len(nearest) < k {
				heap.Push(&nearest, n)
			} else if n.closerThan(nearest[0]) {
				nearest[0] = n
				heap.Fix(&nearest, 0)
			}
		}
		if len(nearest) == 0 {
			continue
		}

		for r := range rows {
			sum := 0.0
			for _, n := range nearest {
				sum += features[r][n.frame]
			}
			out[r][i] = sum / float64(len(nearest))
		}
	}

	return out, nil
}

func (nf *NNFilter) neighbourCount(frames int) int {
	if nf.K > 0 {
		return nf.K
	}
	span := frames - 2*max(nf.Width, 1) + 1
	if span <= 0 {
		return 0
	}
	return min(frames-1, 2*int(math.Ceil(math.Sqrt(float64(span)))))
}

type neighbour struct {
	frame int
	dist  float64
}

func (a neighbour) closerThan(b neighbour) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.frame < b.frame
}

// neighbourHeap keeps the k closest frames seen so far with the farthest
// of them at the root
type neighbourHeap []neighbour

func (h neighbourHeap) Len() int           { return len(h) }
func (h neighbourHeap) Less(i, j int) bool { return h[j].closerThan(h[i]) }
func (h neighbourHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighbourHeap) Push(x any) {
	*h = append(*h, x.(neighbour))
}

func (h *neighbourHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
