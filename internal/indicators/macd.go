package indicators

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal-line
// EMA for closes. Both series are indexed like closes.
func MACD(closes []float64, fastSpan, slowSpan, signalSpan int) (line, signal []float64) {
	fast := EWMA(closes, SpanAlpha(fastSpan))
	slow := EWMA(closes, SpanAlpha(slowSpan))

	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal = EWMA(line, SpanAlpha(signalSpan))
	return line, signal
}
