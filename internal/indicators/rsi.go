package indicators

import "math"

// RSI returns the Wilder Relative Strength Index series for closes, rounded
// to two decimals. out[i] corresponds to closes[i]; the first period values
// have not seen enough history to be meaningful.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) < 2 || period <= 0 {
		return out
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	// Wilder smoothing: alpha = 1/period (com = period-1).
	avgGain := EWMA(gains, 1/float64(period))
	avgLoss := EWMA(losses, 1/float64(period))

	for i := 1; i < len(closes); i++ {
		var rsi float64
		if avgLoss[i-1] == 0 {
			rsi = 100
		} else {
			rs := avgGain[i-1] / avgLoss[i-1]
			rsi = 100 - 100/(1+rs)
		}
		out[i] = math.Round(rsi*100) / 100
	}
	return out
}
