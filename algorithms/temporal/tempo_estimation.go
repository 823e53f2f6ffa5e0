package temporal

// TempoEstimation picks a global tempo from a tempogram
type TempoEstimation struct {
	minBPM float64
	maxBPM float64
}

// NewTempoEstimation creates a tempo estimator searching 60-200 BPM
func NewTempoEstimation() *TempoEstimation {
	return &TempoEstimation{
		minBPM: 60,
		maxBPM: 200,
	}
}

// EstimateFromTempogram averages a [lag][time] tempogram over time and
// returns the tempo of the strongest local maximum in the search range.
// Returns 0 when no local maximum exists.
func (te *TempoEstimation) EstimateFromTempogram(tempogram [][]float64, hopSize, sampleRate int) float64 {
	if len(tempogram) < 3 || hopSize <= 0 || sampleRate <= 0 {
		return 0.0
	}

	autocorr := make([]float64, len(tempogram))
	for l, row := range tempogram {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if len(row) > 0 {
			autocorr[l] = sum / float64(len(row))
		}
	}

	return te.findTempoFromAutocorrelation(autocorr, hopSize, sampleRate)
}

// findTempoFromAutocorrelation finds tempo from autocorrelation peaks
func (te *TempoEstimation) findTempoFromAutocorrelation(autocorr []float64, hopSize int, sampleRate int) float64 {
	timePerFrame := float64(hopSize) / float64(sampleRate)

	minLag := int(60.0 / te.maxBPM / timePerFrame)
	maxLag := int(60.0 / te.minBPM / timePerFrame)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(autocorr)-1 {
		maxLag = len(autocorr) - 2
	}

	maxVal := 0.0
	bestLag := 0
	for lag := minLag; lag <= maxLag; lag++ {
		if autocorr[lag] > autocorr[lag-1] &&
			autocorr[lag] > autocorr[lag+1] &&
			autocorr[lag] > maxVal {
			maxVal = autocorr[lag]
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0.0
	}

	return 60.0 / (float64(bestLag) * timePerFrame)
}
