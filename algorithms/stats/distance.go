package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// EuclideanDistanceFunc calculates Euclidean distance between two points
func EuclideanDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// CosineSimilarityFunc calculates cosine similarity between two vectors.
// A zero-magnitude vector is similar to nothing, itself included: the
// result is 0 rather than NaN. The value is clamped to [-1, 1].
func CosineSimilarityFunc(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0.0
	}

	similarity := floats.Dot(a, b) / (normA * normB)
	return math.Max(-1, math.Min(1, similarity))
}

// PearsonCorrelationFunc calculates the Pearson correlation coefficient.
// Constant inputs have no defined correlation and yield 0.
func PearsonCorrelationFunc(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0.0
	}

	meanA := floats.Sum(a) / float64(n)
	meanB := floats.Sum(b) / float64(n)

	numerator := 0.0
	sumSqA := 0.0
	sumSqB := 0.0
	for i := range a {
		diffA := a[i] - meanA
		diffB := b[i] - meanB
		numerator += diffA * diffB
		sumSqA += diffA * diffA
		sumSqB += diffB * diffB
	}

	if sumSqA == 0 || sumSqB == 0 {
		return 0.0
	}

	return numerator / math.Sqrt(sumSqA*sumSqB)
}
