package segmentation

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SimilarityMatrix is the frames x frames cosine self-similarity of a
// feature matrix. A frame with zero magnitude has similarity 0 with every
// frame, itself included; every other diagonal entry is exactly 1.
type SimilarityMatrix struct {
	sym *mat.SymDense
}

// Size returns the number of frames
func (s *SimilarityMatrix) Size() int {
	if s.sym == nil {
		return 0
	}
	return s.sym.SymmetricDim()
}

// At returns the similarity of frames i and j
func (s *SimilarityMatrix) At(i, j int) float64 {
	return s.sym.At(i, j)
}

// ComputeSSM builds the cosine self-similarity matrix of fm's frame columns
func ComputeSSM(ctx context.Context, fm *FeatureMatrix) (*SimilarityMatrix, error) {
	frames, channels := fm.Frames(), fm.Channels()
	if frames == 0 || channels == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}

	// one unit-length row per frame; silent frames stay zero
	units := mat.NewDense(frames, channels, nil)
	silent := make([]bool, frames)
	for t := range frames {
		col := fm.Column(t)
		norm := floats.Norm(col, 2)
		if norm == 0 {
			silent[t] = true
			continue
		}
		floats.Scale(1/norm, col)
		units.SetRow(t, col)
	}

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	sym := &mat.SymDense{}
	sym.SymOuterK(1, units)

	if err := contextError(ctx); err != nil {
		return nil, err
	}

	for i := range frames {
		if !silent[i] {
			sym.SetSym(i, i, 1)
		}
		for j := i + 1; j < frames; j++ {
			v := sym.At(i, j)
			if v > 1 {
				sym.SetSym(i, j, 1)
			} else if v < -1 {
				sym.SetSym(i, j, -1)
			}
		}
	}

	return &SimilarityMatrix{sym: sym}, nil
}
