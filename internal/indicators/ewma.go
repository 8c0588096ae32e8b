package indicators

// EWMA returns the exponentially weighted moving average series of values.
// Weights follow the adjusted formulation: each output is a weighted mean of
// all observations so far with weights (1-alpha)^k, which converges to the
// recursive EMA but is unbiased over short histories.
func EWMA(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	num, den := 0.0, 0.0
	decay := 1 - alpha
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// SpanAlpha converts an EMA span to its smoothing factor.
func SpanAlpha(span int) float64 {
	return 2 / (float64(span) + 1)
}
