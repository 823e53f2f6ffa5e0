package segmentation

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/phrasebound/segmentation/config"
)

// CheckerboardKernel builds the (2L+1)x(2L+1) Gaussian-tapered checkerboard
// kernel with sigma L/2 (Foote 2000). Entries with row and column offsets of
// opposite sign are negative; the centre row and column are positive.
// L = 0 gives the 1x1 kernel [1].
func CheckerboardKernel(halfWidth int) *mat.Dense {
	if halfWidth <= 0 {
		return mat.NewDense(1, 1, []float64{1})
	}

	size := 2*halfWidth + 1
	sigma := float64(halfWidth) / 2
	denom := 2 * sigma * sigma

	kernel := mat.NewDense(size, size, nil)
	for i := range size {
		y := float64(i - halfWidth)
		for j := range size {
			x := float64(j - halfWidth)
			g := math.Exp(-(x*x + y*y) / denom)
			if x*y < 0 {
				g = -g
			}
			kernel.Set(i, j, g)
		}
	}
	return kernel
}

// EffectiveHalfWidth returns the kernel half-width for a song of the given
// frame count: the configured width (or KernelSeconds converted to frames),
// clamped so that 2L+1 <= frames
func EffectiveHalfWidth(cfg *config.Config, frames int) int {
	l := cfg.KernelHalfWidth
	if l <= 0 {
		l = cfg.FramesFor(cfg.KernelSeconds)
	}
	if 2*l+1 > frames {
		l = (frames - 1) / 2
	}
	return max(l, 0)
}

// Novelty correlates the checkerboard kernel with the diagonal of the SSM.
// Frames closer than L to either end are 0.
func Novelty(ctx context.Context, ssm *SimilarityMatrix, halfWidth int) ([]float64, error) {
	frames := ssm.Size()
	if 2*halfWidth+1 > frames {
		return nil, fmt.Errorf("kernel half-width %d does not fit %d frames", halfWidth, frames)
	}

	kernel := CheckerboardKernel(halfWidth).RawMatrix()
	size := 2*halfWidth + 1

	novelty := make([]float64, frames)
	for t := halfWidth; t < frames-halfWidth; t++ {
		if err := contextError(ctx); err != nil {
			return nil, err
		}

		off := t - halfWidth
		sum := 0.0
		for i := range size {
			row := kernel.Data[i*kernel.Stride : i*kernel.Stride+size]
			for j, k := range row {
				sum += k * ssm.sym.At(off+i, off+j)
			}
		}
		novelty[t] = sum
	}
	return novelty, nil
}
