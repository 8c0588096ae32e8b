package strategy

import "futures-core/internal/candle"

// BreakoutSignaler fires when the last completed candle closes through the
// prior candle's range on sufficient volume.
type BreakoutSignaler struct {
	MinVolume float64
}

// EvaluateSignal returns +1 on an upside range break, -1 on a downside
// break, else 0.
func (b BreakoutSignaler) EvaluateSignal(candles []candle.Candle) int {
	if len(candles) < 2 {
		return 0
	}
	last := candles[len(candles)-1]
	prior := candles[len(candles)-2]

	switch {
	case last.Close > prior.High && last.Volume > b.MinVolume:
		return 1
	case last.Close < prior.Low && last.Volume > b.MinVolume:
		return -1
	default:
		return 0
	}
}
