package strategy

import (
	"futures-core/internal/candle"
	"futures-core/internal/indicators"
)

// TechnicalSignaler combines RSI and MACD over the closed candle series.
// Both indicators are read at the second-to-last candle, the most recently
// completed interval, since the last one may still be live.
type TechnicalSignaler struct {
	EMAFast   int
	EMASlow   int
	EMASignal int
	RSILength int
}

// EvaluateSignal returns +1 when RSI is oversold with MACD above its signal
// line, -1 when overbought with MACD below, else 0.
func (t TechnicalSignaler) EvaluateSignal(candles []candle.Candle) int {
	need := t.EMASlow
	if t.RSILength > need {
		need = t.RSILength
	}
	if len(candles) < need+2 {
		return 0
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	rsi := indicators.RSI(closes, t.RSILength)
	line, signal := indicators.MACD(closes, t.EMAFast, t.EMASlow, t.EMASignal)

	i := len(closes) - 2
	switch {
	case rsi[i] < 30 && line[i] > signal[i]:
		return 1
	case rsi[i] > 70 && line[i] < signal[i]:
		return -1
	default:
		return 0
	}
}
