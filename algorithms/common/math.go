package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopStandardDeviation calculates the population (ddof=0) standard deviation
func PopStandardDeviation(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// MaxAbs returns the largest absolute value in data, 0 for empty input
func MaxAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// Sum returns the sum of data using gonum
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// HasNaN reports whether any element is NaN or infinite
func HasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// MovingAverageSame convolves data with a box kernel of windowSize taps and
// returns the centered part of the convolution, len(data) values long.
// Samples outside the signal count as zero, so the ends taper.
func MovingAverageSame(data []float64, windowSize int) []float64 {
	result := make([]float64, len(data))
	if len(data) == 0 {
		return result
	}
	if windowSize <= 1 {
		copy(result, data)
		return result
	}

	offset := (windowSize - 1) / 2
	scale := 1.0 / float64(windowSize)
	for i := range result {
		hi := min(i+offset, len(data)-1)
		lo := max(i+offset-windowSize+1, 0)
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += data[j]
		}
		result[i] = sum * scale
	}

	return result
}

// MedianFilter applies median filtering with given window size. Edges are
// extended by reflection (d c b a | a b c d | d c b a).
func MedianFilter(data []float64, windowSize int) []float64 {
	result := make([]float64, len(data))
	if len(data) == 0 || windowSize <= 1 {
		copy(result, data)
		return result
	}

	halfWindow := windowSize / 2
	window := make([]float64, windowSize)
	for i := range data {
		for j := 0; j < windowSize; j++ {
			window[j] = data[ReflectIndex(i-halfWindow+j, len(data))]
		}
		result[i] = median(window)
	}

	return result
}

// median sorts buf in place and returns its middle value. Even-length
// buffers use the upper middle element, matching rank-filter behaviour.
func median(buf []float64) float64 {
	sort.Float64s(buf)
	return buf[len(buf)/2]
}

// ReflectIndex maps any index into [0, n) by mirroring about the edges with
// the edge sample repeated.
func ReflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// IsPowerOfTwo checks if n is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
