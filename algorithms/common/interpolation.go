package common

// InterpolationType selects how values between samples are reconstructed
type InterpolationType int

const (
	// Linear joins neighbouring samples with straight lines
	Linear InterpolationType = iota
	// Cubic fits a Catmull-Rom spline through the four nearest samples,
	// falling back to linear within one sample of either edge
	Cubic
)

// Interpolator reads signals at fractional sample positions
type Interpolator struct {
	method InterpolationType
}

// NewInterpolator creates an interpolator using method
func NewInterpolator(method InterpolationType) *Interpolator {
	return &Interpolator{method: method}
}

// At returns the signal value at fractional position pos. Positions
// outside the signal take the nearest edge sample.
func (interp *Interpolator) At(data []float64, pos float64) float64 {
	n := len(data)
	switch {
	case n == 0:
		return 0
	case pos <= 0:
		return data[0]
	case pos >= float64(n-1):
		return data[n-1]
	}

	i := int(pos)
	t := pos - float64(i)
	if interp.method != Cubic || i < 1 || i+2 >= n {
		return data[i] + t*(data[i+1]-data[i])
	}

	p0, p1, p2, p3 := data[i-1], data[i], data[i+1], data[i+2]
	return p1 + 0.5*t*(p2-p0+t*(2*p0-5*p1+4*p2-p3+t*(3*(p1-p2)+p3-p0)))
}

// ResampleSignal converts signal from originalRate to targetRate. The output
// holds floor(len*targetRate/originalRate) samples; output sample k reads the
// input at k*originalRate/targetRate. Equal or invalid rates return a copy.
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if originalRate <= 0 || targetRate <= 0 || originalRate == targetRate {
		return append([]float64{}, signal...)
	}

	step := float64(originalRate) / float64(targetRate)
	out := make([]float64, int(float64(len(signal))/step))
	for k := range out {
		out[k] = interp.At(signal, float64(k)*step)
	}
	return out
}
