package spectral

// Delta estimates the local time derivative of every row of a [row][time]
// matrix by least-squares regression over +/-width frames. Frames beyond the
// edges repeat the nearest edge frame.
func Delta(features [][]float64, width int) [][]float64 {
	if width < 1 {
		width = 1
	}

	denom := 0.0
	for n := 1; n <= width; n++ {
		denom += float64(2 * n * n)
	}

	out := make([][]float64, len(features))
	for r, row := range features {
		out[r] = make([]float64, len(row))
		last := len(row) - 1
		for t := range row {
			sum := 0.0
			for n := 1; n <= width; n++ {
				ahead := min(t+n, last)
				behind := max(t-n, 0)
				sum += float64(n) * (row[ahead] - row[behind])
			}
			out[r][t] = sum / denom
		}
	}

	return out
}
